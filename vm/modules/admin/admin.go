// Package admin handles policy changes and other admin-key instructions.
package admin

import (
	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/vm"
)

func Register(r *vm.Registry) {
	r.Register(core.FamilyAdmin, Handle)
}

// Handle dispatches one Admin instruction. Every instruction of the family
// requires the admin signature.
func Handle(ctx *vm.Context, ins core.Instruction) error {
	if err := ctx.RequireAdmin(); err != nil {
		return err
	}
	switch ins := ins.(type) {
	case *core.SetPolicy:
		return setPolicy(ctx, ins)
	case *core.GrantModifiers:
		return grantModifiers(ctx, ins)
	case *core.RotateAdmin:
		return rotateAdmin(ctx, ins)
	case *core.SetBridgePaused:
		return setBridgePaused(ctx, ins)
	}
	return core.NewError(core.CodeUnknownTag, "admin cannot handle %s", ins.Tag())
}

// updatePolicy applies fn to a copy of the stored policy and saves it.
// ctx.Policy is refreshed so later steps in the same transaction see it.
func updatePolicy(ctx *vm.Context, fn func(p *core.Policy) error) error {
	pol, err := ctx.State.GetPolicy()
	if err != nil {
		return err
	}
	if err := fn(pol); err != nil {
		return err
	}
	if err := ctx.State.SetPolicy(pol); err != nil {
		return err
	}
	ctx.Policy = pol
	return nil
}

func setPolicy(ctx *vm.Context, ins *core.SetPolicy) error {
	var old uint64
	err := updatePolicy(ctx, func(p *core.Policy) error {
		var ok bool
		if old, ok = p.Get(ins.Param); !ok {
			return core.NewError(core.CodeBadPolicy, "unknown parameter %d", ins.Param)
		}
		return p.Set(ins.Param, ins.Value)
	})
	if err != nil {
		return err
	}
	ctx.Emit(events.PolicyChanged{Admin: ctx.Signer(), Param: ins.Param.String(), Old: old, New: ins.Value})
	return nil
}

func grantModifiers(ctx *vm.Context, ins *core.GrantModifiers) error {
	p, err := ctx.State.GetPlayer(ins.Player)
	if err != nil {
		return err
	}
	shields, err := vm.Add(uint64(p.Shields), uint64(ins.Shields))
	if err != nil {
		return err
	}
	doubles, err := vm.Add(uint64(p.Doubles), uint64(ins.Doubles))
	if err != nil {
		return err
	}
	if shields > 1<<32-1 || doubles > 1<<32-1 {
		return core.NewError(core.CodeOverflow, "modifier count overflows")
	}
	if err := vm.Credit(&p.Freeroll, ins.Freeroll); err != nil {
		return err
	}
	p.Shields, p.Doubles = uint32(shields), uint32(doubles)
	if err := ctx.State.SetPlayer(p); err != nil {
		return err
	}
	ctx.Emit(events.ModifiersGranted{Player: p.Key, Shields: ins.Shields, Doubles: ins.Doubles, Freeroll: ins.Freeroll})
	return nil
}

func rotateAdmin(ctx *vm.Context, ins *core.RotateAdmin) error {
	old := ctx.Signer()
	if err := updatePolicy(ctx, func(p *core.Policy) error {
		p.Admin = ins.NewAdmin
		return nil
	}); err != nil {
		return err
	}
	ctx.Emit(events.AdminRotated{Old: old, New: ins.NewAdmin})
	return nil
}

func setBridgePaused(ctx *vm.Context, ins *core.SetBridgePaused) error {
	if err := updatePolicy(ctx, func(p *core.Policy) error {
		p.BridgePaused = ins.Paused
		return nil
	}); err != nil {
		return err
	}
	ctx.Emit(events.BridgePauseChanged{Paused: ins.Paused})
	return nil
}

// Package casino handles the Casino instruction family: accounts, modifiers,
// single-player sessions and the shared tables.
package casino

import (
	"errors"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/games"
	"github.com/tolelom/casinochain/vm"
)

// Register wires the family handler into r. TickTables is scheduled by the
// caller so begin-block ordering stays in one place.
func Register(r *vm.Registry) {
	r.Register(core.FamilyCasino, Handle)
}

// Handle dispatches one Casino instruction.
func Handle(ctx *vm.Context, ins core.Instruction) error {
	switch ins := ins.(type) {
	case *core.Register:
		return register(ctx, ins)
	case *core.Faucet:
		return faucet(ctx)
	case *core.Transfer:
		return transfer(ctx, ins)
	case *core.StartGame:
		return startGame(ctx, ins)
	case *core.GameMove:
		return gameMove(ctx, ins)
	case *core.ToggleShield:
		return toggle(ctx, "shield")
	case *core.ToggleDouble:
		return toggle(ctx, "double")
	case *core.TablePlaceBets:
		return placeBets(ctx, ins)
	}
	return core.NewError(core.CodeUnknownTag, "casino cannot handle %s", ins.Tag())
}

// gameErr maps a state-machine error onto a domain error.
func gameErr(err error, action string) error {
	switch {
	case errors.Is(err, games.ErrTooManyBets):
		return core.WrapError(core.CodeBetLimit, err, "%s", action)
	case errors.Is(err, games.ErrCorruptState):
		return core.WrapError(core.CodeInvariant, err, "%s", action)
	}
	return core.WrapError(core.CodeGameRule, err, "%s", action)
}

func loadRegistered(ctx *vm.Context) (*core.Player, error) {
	p, err := ctx.State.GetPlayer(ctx.Signer())
	if err != nil {
		return nil, err
	}
	if !p.Registered {
		return nil, core.NewError(core.CodeNotRegistered, "%s has not registered", p.Key.Address())
	}
	return p, nil
}

func register(ctx *vm.Context, ins *core.Register) error {
	p, err := ctx.State.GetPlayer(ctx.Signer())
	if err != nil {
		return err
	}
	if p.Registered {
		return core.NewError(core.CodeAlreadyRegistered, "already registered as %q", p.Name)
	}
	p.Name, p.Registered = ins.Name, true
	if err := ctx.State.SetPlayer(p); err != nil {
		return err
	}
	ctx.Emit(events.PlayerRegistered{Player: p.Key, Name: p.Name})
	return nil
}

func faucet(ctx *vm.Context) error {
	p, err := loadRegistered(ctx)
	if err != nil {
		return err
	}
	now := ctx.Timestamp()
	if p.LastFaucet != 0 && now < p.LastFaucet+ctx.Policy.FaucetCooldown {
		return core.NewError(core.CodeFaucetCooldown, "next claim at %d", p.LastFaucet+ctx.Policy.FaucetCooldown)
	}
	amount := ctx.Policy.FaucetAmount
	if err := vm.Credit(&p.Chips, amount); err != nil {
		return err
	}
	p.LastFaucet = now
	house, err := ctx.State.GetHouse()
	if err != nil {
		return err
	}
	if err := vm.Credit(&house.TotalIssued, amount); err != nil {
		return err
	}
	if err := ctx.State.SetHouse(house); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(p); err != nil {
		return err
	}
	ctx.Emit(events.FaucetClaimed{Player: p.Key, Amount: amount})
	return nil
}

func transfer(ctx *vm.Context, ins *core.Transfer) error {
	if ins.To == ctx.Signer() {
		return core.NewError(core.CodeInvalidAmount, "transfer to self")
	}
	from, err := ctx.State.GetPlayer(ctx.Signer())
	if err != nil {
		return err
	}
	if err := vm.Debit(&from.Chips, ins.Amount, "chips"); err != nil {
		return err
	}
	to, err := ctx.State.GetPlayer(ins.To)
	if err != nil {
		return err
	}
	if err := vm.Credit(&to.Chips, ins.Amount); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(from); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(to); err != nil {
		return err
	}
	ctx.Emit(events.ChipsTransferred{From: from.Key, To: to.Key, Amount: ins.Amount})
	return nil
}

// toggle arms or disarms a modifier for the next session. Arming needs an
// unspent modifier; the count is consumed when a session starts.
func toggle(ctx *vm.Context, which string) error {
	p, err := ctx.State.GetPlayer(ctx.Signer())
	if err != nil {
		return err
	}
	armed, count := &p.ShieldArmed, p.Shields
	if which == "double" {
		armed, count = &p.DoubleArmed, p.Doubles
	}
	if !*armed && count == 0 {
		return core.NewError(core.CodeNoModifier, "no %s available", which)
	}
	*armed = !*armed
	if err := ctx.State.SetPlayer(p); err != nil {
		return err
	}
	ctx.Emit(events.ModifierToggled{Player: p.Key, Modifier: which, Armed: *armed})
	return nil
}

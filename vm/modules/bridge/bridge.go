// Package bridge keeps the books for chips entering and leaving through the
// external bridge. The relayer is the admin key.
package bridge

import (
	"encoding/hex"
	"errors"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/vm"
)

func Register(r *vm.Registry) {
	r.Register(core.FamilyBridge, Handle)
}

// Handle dispatches one Bridge instruction.
func Handle(ctx *vm.Context, ins core.Instruction) error {
	switch ins := ins.(type) {
	case *core.BridgeDeposit:
		return deposit(ctx, ins)
	case *core.BridgeWithdraw:
		return withdraw(ctx, ins)
	case *core.BridgeFinalize:
		return finalize(ctx, ins)
	}
	return core.NewError(core.CodeUnknownTag, "bridge cannot handle %s", ins.Tag())
}

// deposit credits an inbound transfer. Each external id is credited once.
func deposit(ctx *vm.Context, ins *core.BridgeDeposit) error {
	if err := ctx.RequireAdmin(); err != nil {
		return err
	}
	seen, err := ctx.State.HasDeposit(ins.ExternalID)
	if err != nil {
		return err
	}
	if seen {
		return core.NewError(core.CodeDuplicateDeposit, "deposit %x already credited", ins.ExternalID)
	}
	p, err := ctx.State.GetPlayer(ins.Recipient)
	if err != nil {
		return err
	}
	house, err := ctx.State.GetHouse()
	if err != nil {
		return err
	}
	if err := vm.Credit(&p.Chips, ins.Amount); err != nil {
		return err
	}
	if err := vm.Credit(&house.BridgedIn, ins.Amount); err != nil {
		return err
	}
	if err := vm.Credit(&house.TotalIssued, ins.Amount); err != nil {
		return err
	}
	if err := ctx.State.MarkDeposit(ins.ExternalID, ctx.Height()); err != nil {
		return err
	}
	if err := ctx.State.SetHouse(house); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(p); err != nil {
		return err
	}
	ctx.Emit(events.BridgeDeposited{Recipient: p.Key, Amount: ins.Amount, ExternalID: hex.EncodeToString(ins.ExternalID[:])})
	return nil
}

// withdraw burns chips and queues an outbound transfer for the relayer.
func withdraw(ctx *vm.Context, ins *core.BridgeWithdraw) error {
	if ctx.Policy.BridgePaused {
		return core.NewError(core.CodeBridgePaused, "bridge withdrawals are paused")
	}
	if ins.Amount > ctx.Policy.BridgeMaxWithdrawal {
		return core.NewError(core.CodeBridgeLimit, "withdrawal %d over limit %d", ins.Amount, ctx.Policy.BridgeMaxWithdrawal)
	}
	p, err := ctx.State.GetPlayer(ctx.Signer())
	if err != nil {
		return err
	}
	house, err := ctx.State.GetHouse()
	if err != nil {
		return err
	}
	if err := vm.Debit(&p.Chips, ins.Amount, "chips"); err != nil {
		return err
	}
	if err := vm.Credit(&house.TotalBurned, ins.Amount); err != nil {
		return err
	}
	if err := vm.Credit(&house.BridgedOut, ins.Amount); err != nil {
		return err
	}
	w := &core.Withdrawal{
		ID:          house.NextWithdrawalID,
		Owner:       p.Key,
		Amount:      ins.Amount,
		Destination: ins.Destination,
		Status:      core.WithdrawalPending,
		RequestedAt: ctx.Height(),
	}
	house.NextWithdrawalID++
	if err := ctx.State.SetWithdrawal(w); err != nil {
		return err
	}
	if err := ctx.State.SetHouse(house); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(p); err != nil {
		return err
	}
	ctx.Emit(events.WithdrawalRequested{
		ID:          w.ID,
		Owner:       w.Owner,
		Amount:      w.Amount,
		Destination: hex.EncodeToString(w.Destination[:]),
	})
	return nil
}

// finalize closes a pending withdrawal. A failed transfer re-issues the
// burned chips to the owner.
func finalize(ctx *vm.Context, ins *core.BridgeFinalize) error {
	if err := ctx.RequireAdmin(); err != nil {
		return err
	}
	w, err := ctx.State.GetWithdrawal(ins.WithdrawalID)
	if errors.Is(err, core.ErrNotFound) {
		return core.NewError(core.CodeUnknownWithdrawal, "withdrawal %d does not exist", ins.WithdrawalID)
	}
	if err != nil {
		return err
	}
	if w.Status != core.WithdrawalPending {
		return core.NewError(core.CodeUnknownWithdrawal, "withdrawal %d already %s", w.ID, w.Status)
	}
	w.Status = core.WithdrawalComplete
	if !ins.Success {
		w.Status = core.WithdrawalRefunded
		p, err := ctx.State.GetPlayer(w.Owner)
		if err != nil {
			return err
		}
		house, err := ctx.State.GetHouse()
		if err != nil {
			return err
		}
		if err := vm.Credit(&p.Chips, w.Amount); err != nil {
			return err
		}
		if err := vm.Credit(&house.TotalIssued, w.Amount); err != nil {
			return err
		}
		if err := vm.Debit(&house.BridgedOut, w.Amount, "bridged out"); err != nil {
			return err
		}
		if err := ctx.State.SetHouse(house); err != nil {
			return err
		}
		if err := ctx.State.SetPlayer(p); err != nil {
			return err
		}
	}
	if err := ctx.State.SetWithdrawal(w); err != nil {
		return err
	}
	ctx.Emit(events.WithdrawalFinalized{ID: w.ID, Owner: w.Owner, Amount: w.Amount, Success: ins.Success})
	return nil
}

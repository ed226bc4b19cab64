// Package liquidity handles the chips/stable pool and the collateral vaults.
package liquidity

import (
	"errors"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/economy"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/vm"
)

// Register wires the family handler and the vault sweep. The sweep runs at
// the start of every block and after every Liquidity or Admin instruction,
// since both can move a vault's LTV.
func Register(r *vm.Registry) {
	r.Register(core.FamilyLiquidity, Handle)
	r.AfterInstruction("vault-sweep", Sweep, core.FamilyLiquidity, core.FamilyAdmin)
}

// Handle dispatches one Liquidity instruction.
func Handle(ctx *vm.Context, ins core.Instruction) error {
	switch ins := ins.(type) {
	case *core.Swap:
		return swap(ctx, ins)
	case *core.AddLiquidity:
		return addLiquidity(ctx, ins)
	case *core.RemoveLiquidity:
		return removeLiquidity(ctx, ins)
	case *core.VaultDeposit:
		return withVault(ctx, "deposit", ins.Amount, deposit)
	case *core.VaultWithdraw:
		return withVault(ctx, "withdraw", ins.Amount, withdraw)
	case *core.VaultBorrow:
		return withVault(ctx, "borrow", ins.Amount, borrow)
	case *core.VaultRepay:
		return withVault(ctx, "repay", ins.Amount, repay)
	case *core.VaultLiquidate:
		return liquidateOne(ctx, ins.Owner)
	}
	return core.NewError(core.CodeUnknownTag, "liquidity cannot handle %s", ins.Tag())
}

// econErr maps an economy math error onto a domain error.
func econErr(err error, action string) error {
	code := core.CodeInvariant
	switch {
	case errors.Is(err, economy.ErrSlippage):
		code = core.CodeSlippage
	case errors.Is(err, economy.ErrInsufficientLiquidity):
		code = core.CodeLiquidity
	case errors.Is(err, economy.ErrZeroAmount):
		code = core.CodeInvalidAmount
	case errors.Is(err, economy.ErrOverflow):
		code = core.CodeOverflow
	case errors.Is(err, economy.ErrBadBps):
		code = core.CodeBadPolicy
	}
	return core.WrapError(code, err, "%s", action)
}

// sidesOf returns the pool reserves in swap direction.
func sidesOf(pool *core.Pool, chipsIn bool) (in, out *uint64) {
	if chipsIn {
		return &pool.ReserveChips, &pool.ReserveStable
	}
	return &pool.ReserveStable, &pool.ReserveChips
}

func swap(ctx *vm.Context, ins *core.Swap) error {
	p, err := ctx.State.GetPlayer(ctx.Signer())
	if err != nil {
		return err
	}
	pool, err := ctx.State.GetPool()
	if err != nil {
		return err
	}
	house, err := ctx.State.GetHouse()
	if err != nil {
		return err
	}

	taxBps := ctx.Policy.BuyTaxBps
	payFrom, payTo := &p.Stable, &p.Chips
	if ins.ChipsIn {
		taxBps = ctx.Policy.SellTaxBps
		payFrom, payTo = &p.Chips, &p.Stable
	}
	resIn, resOut := sidesOf(pool, ins.ChipsIn)
	q, err := economy.QuoteSwap(*resIn, *resOut, ins.AmountIn, ctx.Policy.FeeBps, taxBps)
	if err != nil {
		return econErr(err, "quote swap")
	}
	if err := q.CheckMinOut(ins.MinOut); err != nil {
		return core.WrapError(core.CodeSlippage, err, "out %d < min %d", q.Out, ins.MinOut)
	}
	if err := vm.Debit(payFrom, q.AmountIn, "swap input"); err != nil {
		return err
	}
	if err := vm.Credit(resIn, q.NetIn); err != nil {
		return err
	}
	*resOut -= q.Out
	if err := vm.Credit(payTo, q.Out); err != nil {
		return err
	}

	// Sell tax leaves circulation; buy tax recapitalises the stability pool.
	if ins.ChipsIn {
		err = errors.Join(vm.Credit(&house.FeesChips, q.Fee), vm.Credit(&house.TotalBurned, q.Tax))
	} else {
		err = errors.Join(vm.Credit(&house.FeesStable, q.Fee), vm.Credit(&house.StabilityStable, q.Tax))
	}
	if err != nil {
		return core.WrapError(core.CodeOverflow, err, "swap accounting")
	}

	if err := ctx.State.SetPool(pool); err != nil {
		return err
	}
	if err := ctx.State.SetHouse(house); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(p); err != nil {
		return err
	}
	ctx.Emit(events.Swapped{
		Player:        p.Key,
		ChipsIn:       ins.ChipsIn,
		AmountIn:      q.AmountIn,
		Fee:           q.Fee,
		Tax:           q.Tax,
		AmountOut:     q.Out,
		ReserveChips:  pool.ReserveChips,
		ReserveStable: pool.ReserveStable,
	})
	return nil
}

func addLiquidity(ctx *vm.Context, ins *core.AddLiquidity) error {
	p, err := ctx.State.GetPlayer(ctx.Signer())
	if err != nil {
		return err
	}
	pool, err := ctx.State.GetPool()
	if err != nil {
		return err
	}
	q, err := economy.QuoteAddLiquidity(pool.ReserveChips, pool.ReserveStable, pool.TotalShares, ins.Chips, ins.Stable)
	if err != nil {
		return econErr(err, "quote add liquidity")
	}
	if err := vm.Debit(&p.Chips, q.UsedA, "chips"); err != nil {
		return err
	}
	if err := vm.Debit(&p.Stable, q.UsedB, "stable"); err != nil {
		return err
	}
	for _, c := range []struct {
		bal *uint64
		amt uint64
	}{
		{&pool.ReserveChips, q.UsedA},
		{&pool.ReserveStable, q.UsedB},
		{&pool.TotalShares, q.Minted()},
		{&p.LPShares, q.Shares},
	} {
		if err := vm.Credit(c.bal, c.amt); err != nil {
			return err
		}
	}
	if err := ctx.State.SetPool(pool); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(p); err != nil {
		return err
	}
	ctx.Emit(events.LiquidityAdded{Player: p.Key, Chips: q.UsedA, Stable: q.UsedB, Shares: q.Shares})
	return nil
}

func removeLiquidity(ctx *vm.Context, ins *core.RemoveLiquidity) error {
	p, err := ctx.State.GetPlayer(ctx.Signer())
	if err != nil {
		return err
	}
	pool, err := ctx.State.GetPool()
	if err != nil {
		return err
	}
	if err := vm.Debit(&p.LPShares, ins.Shares, "lp shares"); err != nil {
		return err
	}
	chips, stable, err := economy.QuoteRemoveLiquidity(pool.ReserveChips, pool.ReserveStable, pool.TotalShares, ins.Shares)
	if err != nil {
		return econErr(err, "quote remove liquidity")
	}
	if chips < ins.MinChips || stable < ins.MinStable {
		return core.NewError(core.CodeSlippage, "got %d chips / %d stable, want at least %d / %d", chips, stable, ins.MinChips, ins.MinStable)
	}
	pool.ReserveChips -= chips
	pool.ReserveStable -= stable
	pool.TotalShares -= ins.Shares
	if err := vm.Credit(&p.Chips, chips); err != nil {
		return err
	}
	if err := vm.Credit(&p.Stable, stable); err != nil {
		return err
	}
	if err := ctx.State.SetPool(pool); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(p); err != nil {
		return err
	}
	ctx.Emit(events.LiquidityRemoved{Player: p.Key, Shares: ins.Shares, Chips: chips, Stable: stable})
	return nil
}

package liquidity

import (
	"errors"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/economy"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/log"
	"github.com/tolelom/casinochain/vm"
)

var logger = log.Module("liquidity")

// vaultOp mutates a freshly accrued vault and returns the effective amount.
type vaultOp func(ctx *vm.Context, b *book, v *core.Vault, amount uint64) (uint64, error)

// book is the shared ledger a vault operation touches.
type book struct {
	player *core.Player
	house  *core.House
	pool   *core.Pool
}

func (b *book) value(v *core.Vault) uint64 {
	return economy.CollateralValue(v.Collateral, b.pool.ReserveChips, b.pool.ReserveStable)
}

func (b *book) ltv(v *core.Vault) uint64 { return economy.LTVBps(v.Debt, b.value(v)) }

func withVault(ctx *vm.Context, action string, amount uint64, op vaultOp) error {
	p, err := ctx.State.GetPlayer(ctx.Signer())
	if err != nil {
		return err
	}
	house, err := ctx.State.GetHouse()
	if err != nil {
		return err
	}
	pool, err := ctx.State.GetPool()
	if err != nil {
		return err
	}
	v, err := ctx.State.GetVault(p.Key)
	switch {
	case errors.Is(err, core.ErrNotFound) && action == "deposit":
		v = &core.Vault{Owner: p.Key, LastAccrual: ctx.Timestamp()}
	case errors.Is(err, core.ErrNotFound):
		return core.NewError(core.CodeNoVault, "%s has no vault", p.Key.Address())
	case err != nil:
		return err
	}

	b := &book{player: p, house: house, pool: pool}
	accrued, err := accrue(ctx, house, v)
	if err != nil {
		return err
	}
	done, err := op(ctx, b, v, amount)
	if err != nil {
		return err
	}
	if err := saveVault(ctx, v); err != nil {
		return err
	}
	if err := ctx.State.SetHouse(house); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(p); err != nil {
		return err
	}
	if accrued != nil {
		ctx.Emit(*accrued)
	}
	ctx.Emit(events.VaultUpdated{
		Owner:      v.Owner,
		Action:     action,
		Amount:     done,
		Collateral: v.Collateral,
		Debt:       v.Debt,
		LTVBps:     b.ltv(v),
	})
	return nil
}

// saveVault stores v, or drops it once it holds nothing.
func saveVault(ctx *vm.Context, v *core.Vault) error {
	if v.Collateral == 0 && v.Debt == 0 {
		return ctx.State.DeleteVault(v.Owner)
	}
	return ctx.State.SetVault(v)
}

func deposit(_ *vm.Context, b *book, v *core.Vault, amount uint64) (uint64, error) {
	if err := vm.Debit(&b.player.Chips, amount, "chips"); err != nil {
		return 0, err
	}
	return amount, vm.Credit(&v.Collateral, amount)
}

func withdraw(ctx *vm.Context, b *book, v *core.Vault, amount uint64) (uint64, error) {
	if err := vm.Debit(&v.Collateral, amount, "collateral"); err != nil {
		return 0, err
	}
	if v.Debt > 0 {
		if err := checkCeiling(ctx, b, v); err != nil {
			return 0, err
		}
	}
	return amount, vm.Credit(&b.player.Chips, amount)
}

func borrow(ctx *vm.Context, b *book, v *core.Vault, amount uint64) (uint64, error) {
	if err := vm.Credit(&v.Debt, amount); err != nil {
		return 0, err
	}
	if err := checkCeiling(ctx, b, v); err != nil {
		return 0, err
	}
	if err := vm.Credit(&b.house.TotalDebt, amount); err != nil {
		return 0, err
	}
	return amount, vm.Credit(&b.player.Stable, amount)
}

// repay burns stable against the debt. Paying more than is owed repays the
// whole debt.
func repay(_ *vm.Context, b *book, v *core.Vault, amount uint64) (uint64, error) {
	if v.Debt == 0 {
		return 0, core.NewError(core.CodeInvalidAmount, "vault has no debt")
	}
	amount = min(amount, v.Debt)
	if err := vm.Debit(&b.player.Stable, amount, "stable"); err != nil {
		return 0, err
	}
	v.Debt -= amount
	return amount, vm.Debit(&b.house.TotalDebt, amount, "house debt")
}

// checkCeiling enforces the borrow ceiling. Stakers get the higher tier.
func checkCeiling(ctx *vm.Context, b *book, v *core.Vault) error {
	st, err := ctx.State.GetStaker(v.Owner)
	if err != nil {
		return err
	}
	ceiling := ctx.Policy.LTVCeiling(st.Amount > 0)
	if limit := economy.MaxBorrow(b.value(v), ceiling); v.Debt > limit {
		return core.NewError(core.CodeLTV, "debt %d exceeds %d at %d bps", v.Debt, limit, ceiling)
	}
	return nil
}

// accrue adds interest since the last accrual. Interest is minted to the
// stability pool. The clock only moves when a whole unit accrued, so
// frequent sweeps cannot round a small debt's interest away.
func accrue(ctx *vm.Context, house *core.House, v *core.Vault) (*events.InterestAccrued, error) {
	now := ctx.Timestamp()
	if v.Debt == 0 {
		v.LastAccrual = now
		return nil, nil
	}
	if now <= v.LastAccrual {
		return nil, nil
	}
	elapsed := now - v.LastAccrual
	interest, err := economy.Interest(v.Debt, ctx.Policy.InterestRateBps, elapsed)
	if err != nil {
		return nil, econErr(err, "accrue interest")
	}
	if interest == 0 {
		return nil, nil
	}
	if err := vm.Credit(&v.Debt, interest); err != nil {
		return nil, err
	}
	if err := vm.Credit(&house.TotalDebt, interest); err != nil {
		return nil, err
	}
	if err := vm.Credit(&house.StabilityStable, interest); err != nil {
		return nil, err
	}
	v.LastAccrual = now
	return &events.InterestAccrued{Owner: v.Owner, Interest: interest, Debt: v.Debt, Elapsed: elapsed}, nil
}

// liquidate unwinds v toward the target LTV. The stability pool burns its
// stable to retire the repaid debt and takes the seized chips; any debt it
// cannot cover is bad debt. A nil liquidator sends the whole penalty to the
// stability pool.
func liquidate(ctx *vm.Context, b *book, v *core.Vault, liquidator *core.Player) (*events.VaultLiquidated, error) {
	pol := ctx.Policy
	before := b.ltv(v)
	if v.Debt == 0 || before <= pol.LiquidationThresholdBps {
		return nil, core.NewError(core.CodeNotLiquidatable, "ltv %d bps within threshold %d", before, pol.LiquidationThresholdBps)
	}
	plan, err := economy.PlanLiquidation(v.Debt, v.Collateral, b.value(v), economy.LiquidationParams{
		TargetBps:          pol.LiquidationTargetBps,
		PenaltyBps:         pol.LiquidationPenaltyBps,
		LiquidatorShareBps: pol.LiquidatorShareBps,
	})
	if err != nil {
		return nil, econErr(err, "plan liquidation")
	}
	if plan.Repay == 0 {
		return nil, core.NewError(core.CodeNotLiquidatable, "nothing to repay")
	}

	h := b.house
	v.Debt -= plan.Repay
	v.Collateral -= plan.Seized
	if err := vm.Debit(&h.TotalDebt, plan.Repay, "house debt"); err != nil {
		return nil, err
	}
	covered := min(plan.Repay, h.StabilityStable)
	h.StabilityStable -= covered
	bad := plan.Repay - covered

	toPool := plan.SeizedBase + plan.PoolShare
	if liquidator != nil {
		if err := vm.Credit(&liquidator.Chips, plan.LiquidatorShare); err != nil {
			return nil, err
		}
	} else {
		toPool += plan.LiquidatorShare
	}
	if err := vm.Credit(&h.StabilityChips, toPool); err != nil {
		return nil, err
	}
	if v.Collateral == 0 && v.Debt > 0 {
		// closed out underwater: the residue is unbacked
		bad += v.Debt
		h.TotalDebt -= min(h.TotalDebt, v.Debt)
		v.Debt = 0
	}
	if err := vm.Credit(&h.BadDebt, bad); err != nil {
		return nil, err
	}

	ev := &events.VaultLiquidated{
		Owner:      v.Owner,
		LTVBefore:  before,
		LTVAfter:   b.ltv(v),
		Plan:       plan,
		BadDebt:    bad,
		Collateral: v.Collateral,
		Debt:       v.Debt,
	}
	if liquidator != nil {
		ev.Liquidator = liquidator.Key
	}
	return ev, nil
}

func liquidateOne(ctx *vm.Context, owner crypto.PublicKey) error {
	if owner == ctx.Signer() {
		return core.NewError(core.CodeUnauthorized, "cannot liquidate own vault")
	}
	v, err := ctx.State.GetVault(owner)
	if errors.Is(err, core.ErrNotFound) {
		return core.NewError(core.CodeNoVault, "%s has no vault", owner.Address())
	}
	if err != nil {
		return err
	}
	p, err := ctx.State.GetPlayer(ctx.Signer())
	if err != nil {
		return err
	}
	house, err := ctx.State.GetHouse()
	if err != nil {
		return err
	}
	pool, err := ctx.State.GetPool()
	if err != nil {
		return err
	}
	b := &book{player: p, house: house, pool: pool}
	accrued, err := accrue(ctx, house, v)
	if err != nil {
		return err
	}
	ev, err := liquidate(ctx, b, v, p)
	if err != nil {
		return err
	}
	if err := saveVault(ctx, v); err != nil {
		return err
	}
	if err := ctx.State.SetHouse(house); err != nil {
		return err
	}
	if err := ctx.State.SetPlayer(p); err != nil {
		return err
	}
	if accrued != nil {
		ctx.Emit(*accrued)
	}
	ctx.Emit(*ev)
	return nil
}

// Sweep accrues every vault and liquidates those over the threshold. Each
// vault runs under its own snapshot so one failing position cannot hold the
// rest back. Liquidation is skipped while the pool has no price.
func Sweep(ctx *vm.Context) error {
	owners, err := ctx.State.VaultOwners()
	if err != nil {
		return err
	}
	for _, owner := range owners {
		snap, err := ctx.State.Snapshot()
		if err != nil {
			return core.Fault(err)
		}
		evs, err := sweepVault(ctx, owner)
		if core.IsFault(err) {
			return err
		}
		if err != nil {
			if rerr := ctx.State.RevertToSnapshot(snap); rerr != nil {
				return core.Fault(rerr)
			}
			logger.Warn("vault sweep skipped", "owner", owner.Address(), "height", ctx.Height(), "err", err)
			continue
		}
		for _, ev := range evs {
			ctx.Emit(ev)
		}
	}
	return nil
}

func sweepVault(ctx *vm.Context, owner crypto.PublicKey) ([]events.Event, error) {
	v, err := ctx.State.GetVault(owner)
	if err != nil {
		return nil, err
	}
	house, err := ctx.State.GetHouse()
	if err != nil {
		return nil, err
	}
	pool, err := ctx.State.GetPool()
	if err != nil {
		return nil, err
	}
	b := &book{house: house, pool: pool}

	var evs []events.Event
	last := v.LastAccrual
	accrued, err := accrue(ctx, house, v)
	if err != nil {
		return nil, err
	}
	if accrued != nil {
		evs = append(evs, *accrued)
	}
	priced := pool.ReserveChips > 0 && pool.ReserveStable > 0
	if priced && v.Debt > 0 && b.ltv(v) > ctx.Policy.LiquidationThresholdBps {
		liq, err := liquidate(ctx, b, v, nil)
		if err != nil {
			return nil, err
		}
		evs = append(evs, *liq)
	}
	if len(evs) == 0 && v.LastAccrual == last {
		return nil, nil
	}
	if err := saveVault(ctx, v); err != nil {
		return nil, err
	}
	if err := ctx.State.SetHouse(house); err != nil {
		return nil, err
	}
	return evs, nil
}

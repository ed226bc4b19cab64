// Package staking handles chip staking and the epoch reward accumulator.
package staking

import (
	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/economy"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/vm"
)

func Register(r *vm.Registry) {
	r.Register(core.FamilyStaking, Handle)
}

// Handle dispatches one Staking instruction.
func Handle(ctx *vm.Context, ins core.Instruction) error {
	switch ins := ins.(type) {
	case *core.Stake:
		return stake(ctx, ins.Amount)
	case *core.Unstake:
		return unstake(ctx, ins.Amount)
	case *core.ClaimRewards:
		return claim(ctx)
	}
	return core.NewError(core.CodeUnknownTag, "staking cannot handle %s", ins.Tag())
}

// checkpoint moves rewards earned at the current accumulator into
// Unclaimed. It must run before the stake size changes.
func checkpoint(st *core.Staker, house *core.House) error {
	pending := economy.Pending(st.Amount, house.AccRewardPerShare, st.RewardDebt)
	return vm.Credit(&st.Unclaimed, pending)
}

func load(ctx *vm.Context) (*core.Player, *core.Staker, *core.House, error) {
	p, err := ctx.State.GetPlayer(ctx.Signer())
	if err != nil {
		return nil, nil, nil, err
	}
	st, err := ctx.State.GetStaker(p.Key)
	if err != nil {
		return nil, nil, nil, err
	}
	house, err := ctx.State.GetHouse()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := checkpoint(st, house); err != nil {
		return nil, nil, nil, err
	}
	return p, st, house, nil
}

func save(ctx *vm.Context, p *core.Player, st *core.Staker, house *core.House) error {
	st.RewardDebt = economy.Accrued(st.Amount, house.AccRewardPerShare)
	var err error
	if st.Amount == 0 && st.Unclaimed == 0 {
		err = ctx.State.DeleteStaker(st.Owner)
	} else {
		err = ctx.State.SetStaker(st)
	}
	if err != nil {
		return err
	}
	if err := ctx.State.SetHouse(house); err != nil {
		return err
	}
	return ctx.State.SetPlayer(p)
}

func stake(ctx *vm.Context, amount uint64) error {
	p, st, house, err := load(ctx)
	if err != nil {
		return err
	}
	if err := vm.Debit(&p.Chips, amount, "chips"); err != nil {
		return err
	}
	if err := vm.Credit(&st.Amount, amount); err != nil {
		return err
	}
	if err := vm.Credit(&house.TotalStaked, amount); err != nil {
		return err
	}
	// every stake restarts the lock for the whole position
	if st.UnlockAt, err = vm.Add(ctx.Timestamp(), ctx.Policy.StakeLockSeconds); err != nil {
		return err
	}
	if err := save(ctx, p, st, house); err != nil {
		return err
	}
	ctx.Emit(events.Staked{Owner: p.Key, Amount: amount, Total: st.Amount, UnlockAt: st.UnlockAt})
	return nil
}

func unstake(ctx *vm.Context, amount uint64) error {
	p, st, house, err := load(ctx)
	if err != nil {
		return err
	}
	if now := ctx.Timestamp(); now < st.UnlockAt {
		return core.NewError(core.CodeStakeLocked, "stake locked until %d, now %d", st.UnlockAt, now)
	}
	if err := vm.Debit(&st.Amount, amount, "stake"); err != nil {
		return err
	}
	if err := vm.Debit(&house.TotalStaked, amount, "total staked"); err != nil {
		return err
	}
	if err := vm.Credit(&p.Chips, amount); err != nil {
		return err
	}
	if err := save(ctx, p, st, house); err != nil {
		return err
	}
	ctx.Emit(events.Unstaked{Owner: p.Key, Amount: amount, Total: st.Amount})
	return nil
}

func claim(ctx *vm.Context) error {
	p, st, house, err := load(ctx)
	if err != nil {
		return err
	}
	amount := st.Unclaimed
	if amount == 0 {
		return core.NewError(core.CodeInvalidAmount, "no rewards to claim")
	}
	if err := vm.Debit(&house.RewardsReserve, amount, "rewards reserve"); err != nil {
		return core.WrapError(core.CodeInvariant, err, "reserve cannot cover claim")
	}
	st.Unclaimed = 0
	if err := vm.Credit(&p.Chips, amount); err != nil {
		return err
	}
	if err := save(ctx, p, st, house); err != nil {
		return err
	}
	ctx.Emit(events.RewardsClaimed{Owner: p.Key, Amount: amount})
	return nil
}

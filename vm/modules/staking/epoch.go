package staking

import (
	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/economy"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/vm"
)

// Epoch closes a staking epoch every EpochLength blocks. The stakers' share
// of the house profit since the previous mark is minted into the rewards
// reserve and spread over the accumulator. A loss or an empty staking set
// pays nothing, and the mark moves on either way.
func Epoch(ctx *vm.Context) error {
	length := ctx.Policy.EpochLength
	if length == 0 || ctx.Height()%length != 0 {
		return nil
	}
	house, err := ctx.State.GetHouse()
	if err != nil {
		return err
	}
	delta, err := pnlDelta(house.NetPnL, house.EpochMark)
	if err != nil {
		return err
	}
	reward := economy.EpochReward(delta, ctx.Policy.StakerShareBps)
	if house.TotalStaked == 0 {
		reward = 0
	}
	if reward > 0 {
		house.AccRewardPerShare = economy.AddReward(house.AccRewardPerShare, reward, house.TotalStaked)
		if err := vm.Credit(&house.RewardsReserve, reward); err != nil {
			return err
		}
		if err := vm.Credit(&house.TotalIssued, reward); err != nil {
			return err
		}
	}
	house.EpochMark = house.NetPnL
	if err := ctx.State.SetHouse(house); err != nil {
		return err
	}
	ctx.Emit(events.EpochClosed{
		Delta:             delta,
		Reward:            reward,
		TotalStaked:       house.TotalStaked,
		AccRewardPerShare: economy.Or(house.AccRewardPerShare).Dec(),
	})
	return nil
}

// pnlDelta returns now-mark, failing on int64 overflow.
func pnlDelta(now, mark int64) (int64, error) {
	d := now - mark
	if (mark < 0 && d < now) || (mark > 0 && d > now) {
		return 0, core.NewError(core.CodeOverflow, "pnl delta %d - %d overflows", now, mark)
	}
	return d, nil
}

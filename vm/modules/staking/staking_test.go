package staking_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/internal/testutil"
	"github.com/tolelom/casinochain/wallet"
)

// bookProfit moves the house P&L outside the pipeline, standing in for a
// run of games.
func bookProfit(t *testing.T, c *testutil.Chain, delta int64) {
	t.Helper()
	h := c.House()
	h.NetPnL += delta
	require.NoError(t, c.State.SetHouse(h))
	require.NoError(t, c.State.Commit())
}

func TestEpochRewardsAndClaim(t *testing.T) {
	admin, alice, bob := wallet.FromSeed(1), wallet.FromSeed(2), wallet.FromSeed(3)
	g := testutil.Genesis(admin, alice, bob)
	policy := core.DefaultPolicy(admin.Key())
	policy.EpochLength = 5
	g.Policy = policy
	c := testutil.NewChain(t, g)

	res := c.Apply(alice.Next(&core.Stake{Amount: 1_000}), bob.Next(&core.Stake{Amount: 3_000}))
	staked := testutil.EventsOf[events.Staked](res.Events)
	require.Len(t, staked, 2)
	require.Equal(t, c.Time+policy.StakeLockSeconds, staked[0].UnlockAt)
	require.EqualValues(t, 4_000, c.House().TotalStaked)

	bookProfit(t, c, 1_000)
	issued := c.House().TotalIssued
	for c.Height < 5 {
		res = c.Apply()
	}
	closed := testutil.EventsOf[events.EpochClosed](res.Events)
	require.Len(t, closed, 1)
	require.EqualValues(t, 1_000, closed[0].Delta)
	require.EqualValues(t, 500, closed[0].Reward)
	require.Equal(t, "125000000000000000", closed[0].AccRewardPerShare)

	house := c.House()
	require.EqualValues(t, 500, house.RewardsReserve)
	require.Equal(t, issued+500, house.TotalIssued)
	require.Equal(t, house.NetPnL, house.EpochMark)

	res = c.Apply(alice.Next(&core.ClaimRewards{}), alice.Next(&core.ClaimRewards{}))
	require.Equal(t, []core.Code{core.CodeInvalidAmount}, testutil.Failures(res.Events))
	claimed := testutil.EventsOf[events.RewardsClaimed](res.Events)
	require.Len(t, claimed, 1)
	require.EqualValues(t, 125, claimed[0].Amount)
	require.EqualValues(t, 100_000-1_000+125, c.Player(alice).Chips)
	require.EqualValues(t, 375, c.House().RewardsReserve)

	// bob's share survives a change of his stake
	res = c.Apply(bob.Next(&core.Stake{Amount: 1_000}), bob.Next(&core.ClaimRewards{}))
	require.Empty(t, testutil.Failures(res.Events))
	claimed = testutil.EventsOf[events.RewardsClaimed](res.Events)
	require.Len(t, claimed, 1)
	require.EqualValues(t, 375, claimed[0].Amount)
	require.Zero(t, c.House().RewardsReserve)
}

func TestLossEpochPaysNothing(t *testing.T) {
	admin, alice := wallet.FromSeed(1), wallet.FromSeed(2)
	g := testutil.Genesis(admin, alice)
	policy := core.DefaultPolicy(admin.Key())
	policy.EpochLength = 3
	g.Policy = policy
	c := testutil.NewChain(t, g)
	c.Apply(alice.Next(&core.Stake{Amount: 1_000}))

	bookProfit(t, c, -400)
	c.Apply()
	res := c.Apply()
	closed := testutil.EventsOf[events.EpochClosed](res.Events)
	require.Len(t, closed, 1)
	require.EqualValues(t, -400, closed[0].Delta)
	require.Zero(t, closed[0].Reward)
	house := c.House()
	require.EqualValues(t, -400, house.EpochMark)
	require.Zero(t, house.RewardsReserve)

	// profit only counts from the new mark
	bookProfit(t, c, 600)
	for c.Height < 6 {
		res = c.Apply()
	}
	closed = testutil.EventsOf[events.EpochClosed](res.Events)
	require.Len(t, closed, 1)
	require.EqualValues(t, 600, closed[0].Delta)
	require.EqualValues(t, 300, closed[0].Reward)
}

func TestUnstakeLock(t *testing.T) {
	admin, alice := wallet.FromSeed(1), wallet.FromSeed(2)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice))
	c.Apply(alice.Next(&core.Stake{Amount: 1_000}))

	res := c.Apply(alice.Next(&core.Unstake{Amount: 1_000}))
	require.Equal(t, []core.Code{core.CodeStakeLocked}, testutil.Failures(res.Events))

	res = c.ApplyWith(testutil.SeedAt(c.Height+1), 7*86_400,
		alice.Next(&core.Unstake{Amount: 1_001}),
		alice.Next(&core.Unstake{Amount: 1_000}),
	)
	require.Equal(t, []core.Code{core.CodeInsufficientFunds}, testutil.Failures(res.Events))
	require.Len(t, testutil.EventsOf[events.Unstaked](res.Events), 1)
	require.EqualValues(t, 100_000, c.Player(alice).Chips)
	require.Zero(t, c.House().TotalStaked)
	st, err := c.State.GetStaker(alice.Key())
	require.NoError(t, err)
	require.Zero(t, st.Amount)
}

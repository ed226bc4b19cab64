package admin_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/internal/testutil"
	"github.com/tolelom/casinochain/wallet"
)

func TestSetPolicy(t *testing.T) {
	admin, alice := wallet.FromSeed(1), wallet.FromSeed(2)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice))

	res := c.Apply(
		alice.Next(&core.SetPolicy{Param: core.ParamFaucetAmount, Value: 5}),
		admin.Next(&core.SetPolicy{Param: core.ParamFaucetAmount, Value: 2_500}),
		admin.Next(&core.SetPolicy{Param: core.ParamLTVUnstakedBps, Value: 9_000}),
	)
	require.Equal(t, []core.Code{core.CodeUnauthorized, core.CodeBadPolicy}, testutil.Failures(res.Events))
	changed := testutil.EventsOf[events.PolicyChanged](res.Events)
	require.Len(t, changed, 1)
	require.Equal(t, events.PolicyChanged{
		Admin: admin.Key(),
		Param: core.ParamFaucetAmount.String(),
		Old:   1_000,
		New:   2_500,
	}, changed[0])

	pol := c.Policy()
	require.EqualValues(t, 2_500, pol.FaucetAmount)
	require.EqualValues(t, 3_000, pol.LTVUnstakedBps)
}

func TestPolicyAppliesToLaterTransactions(t *testing.T) {
	admin, alice := wallet.FromSeed(1), wallet.FromSeed(2)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice))

	res := c.Apply(
		admin.Next(&core.SetPolicy{Param: core.ParamFaucetAmount, Value: 7}),
		alice.Next(&core.Faucet{}),
	)
	claimed := testutil.EventsOf[events.FaucetClaimed](res.Events)
	require.Len(t, claimed, 1)
	require.EqualValues(t, 7, claimed[0].Amount)
}

func TestRotateAdmin(t *testing.T) {
	admin, next := wallet.FromSeed(1), wallet.FromSeed(2)
	c := testutil.NewChain(t, testutil.Genesis(admin, next))

	res := c.Apply(admin.Next(&core.RotateAdmin{NewAdmin: next.Key()}))
	rot := testutil.EventsOf[events.AdminRotated](res.Events)
	require.Len(t, rot, 1)
	require.Equal(t, admin.Key(), rot[0].Old)
	require.Equal(t, next.Key(), c.Policy().Admin)

	res = c.Apply(
		admin.Next(&core.GrantModifiers{Player: next.Key(), Shields: 1}),
		next.Next(&core.GrantModifiers{Player: next.Key(), Shields: 2, Freeroll: 50}),
	)
	require.Equal(t, []core.Code{core.CodeUnauthorized}, testutil.Failures(res.Events))
	p := c.Player(next)
	require.EqualValues(t, 2, p.Shields)
	require.EqualValues(t, 50, p.Freeroll)
}

package casino_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/games"
	"github.com/tolelom/casinochain/internal/testutil"
	"github.com/tolelom/casinochain/wallet"
)

const hiloCashout = 2

func red(amount uint64) []byte {
	return games.EncodeBets([]games.Bet{{Kind: games.RouRed, Amount: amount}})
}

func TestRegisterAndFaucet(t *testing.T) {
	admin, newbie := wallet.FromSeed(1), wallet.FromSeed(9)
	c := testutil.NewChain(t, testutil.Genesis(admin))

	res := c.Apply(newbie.Next(&core.Faucet{}))
	require.Equal(t, []core.Code{core.CodeNotRegistered}, testutil.Failures(res.Events))

	res = c.Apply(newbie.Next(&core.Register{Name: "newbie"}))
	reg := testutil.EventsOf[events.PlayerRegistered](res.Events)
	require.Len(t, reg, 1)
	require.Equal(t, "newbie", reg[0].Name)

	res = c.Apply(newbie.Next(&core.Register{Name: "again"}))
	require.Equal(t, []core.Code{core.CodeAlreadyRegistered}, testutil.Failures(res.Events))

	issued := c.House().TotalIssued
	res = c.Apply(newbie.Next(&core.Faucet{}))
	require.Len(t, testutil.EventsOf[events.FaucetClaimed](res.Events), 1)
	require.EqualValues(t, 1_000, c.Player(newbie).Chips)
	require.Equal(t, issued+1_000, c.House().TotalIssued)

	res = c.Apply(newbie.Next(&core.Faucet{}))
	require.Equal(t, []core.Code{core.CodeFaucetCooldown}, testutil.Failures(res.Events))

	res = c.ApplyWith(testutil.SeedAt(c.Height+1), 86_400, newbie.Next(&core.Faucet{}))
	require.Empty(t, testutil.Failures(res.Events))
	p := c.Player(newbie)
	require.EqualValues(t, 2_000, p.Chips)
	require.Equal(t, "newbie", p.Name)
	require.EqualValues(t, 6, p.Nonce)
}

func TestTransferRules(t *testing.T) {
	admin, alice, bob := wallet.FromSeed(1), wallet.FromSeed(2), wallet.FromSeed(3)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice, bob))

	res := c.Apply(alice.Transfer(alice.Key(), 10), alice.Transfer(bob.Key(), 200_000), alice.Transfer(bob.Key(), 250))
	require.Equal(t, []core.Code{core.CodeInvalidAmount, core.CodeInsufficientFunds}, testutil.Failures(res.Events))
	require.EqualValues(t, 100_000-250, c.Player(alice).Chips)
	require.EqualValues(t, 100_000+250, c.Player(bob).Chips)
}

func TestStartGameChecks(t *testing.T) {
	admin, alice := wallet.FromSeed(1), wallet.FromSeed(2)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice))

	res := c.Apply(alice.Play(games.HiLo, 2_000_000, nil))
	require.Equal(t, []core.Code{core.CodeBetLimit}, testutil.Failures(res.Events))

	res = c.Apply(alice.Play(games.HiLo, 100, nil))
	started := testutil.EventsOf[events.SessionStarted](res.Events)
	require.Len(t, started, 1)
	id := started[0].SessionID
	require.Equal(t, id, c.Player(alice).ActiveSession)

	res = c.Apply(
		alice.Play(games.Roulette, 10, red(10)),
		alice.Move(games.HiLo, id+1, hiloCashout),
		alice.Move(games.Blackjack, id, 1),
	)
	require.Equal(t, []core.Code{core.CodeSessionActive, core.CodeNoSession, core.CodeGameRule}, testutil.Failures(res.Events))

	pnl := c.House().NetPnL
	res = c.Apply(alice.Move(games.HiLo, id, hiloCashout))
	done := testutil.EventsOf[events.SessionCompleted](res.Events)
	require.Len(t, done, 1)
	require.EqualValues(t, 100, done[0].Paid)
	require.Zero(t, done[0].HouseDelta)
	require.Equal(t, pnl, c.House().NetPnL)

	p := c.Player(alice)
	require.Zero(t, p.ActiveSession)
	require.EqualValues(t, 100_000, p.Chips)
	require.EqualValues(t, 1, p.GamesPlayed)
	_, err := c.State.GetSession(id)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestSessionBetsHonourTableLimits(t *testing.T) {
	admin, alice := wallet.FromSeed(1), wallet.FromSeed(2)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice))
	c.Apply(admin.Next(&core.SetPolicy{Param: core.ParamMaxBet, Value: 1_000}))

	pass := games.EncodeBets([]games.Bet{{Kind: games.CrapsPass, Amount: 100}})
	res := c.Apply(alice.Play(games.Craps, 100, pass))
	started := testutil.EventsOf[events.SessionStarted](res.Events)
	require.Len(t, started, 1)
	id := started[0].SessionID

	res = c.Apply(alice.Move(games.Craps, id, games.EncodeCrapsAddBet(games.Bet{Kind: games.CrapsField, Amount: 50_000})...))
	require.Equal(t, []core.Code{core.CodeBetLimit}, testutil.Failures(res.Events))
	require.EqualValues(t, 100_000-100, c.Player(alice).Chips)

	res = c.Apply(alice.Move(games.Craps, id, games.EncodeCrapsAddBet(games.Bet{Kind: games.CrapsField, Amount: 500})...))
	require.Empty(t, testutil.Failures(res.Events))
	require.Len(t, testutil.EventsOf[events.SessionMoved](res.Events), 1)
	require.EqualValues(t, 100_000-600, c.Player(alice).Chips)
}

func TestShieldRefundsLoss(t *testing.T) {
	admin, alice := wallet.FromSeed(1), wallet.FromSeed(2)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice))

	res := c.Apply(alice.Next(&core.ToggleShield{}))
	require.Equal(t, []core.Code{core.CodeNoModifier}, testutil.Failures(res.Events))

	c.Apply(admin.Next(&core.GrantModifiers{Player: alice.Key(), Shields: 1}))
	res = c.Apply(alice.Next(&core.ToggleShield{}))
	toggled := testutil.EventsOf[events.ModifierToggled](res.Events)
	require.Len(t, toggled, 1)
	require.True(t, toggled[0].Armed)

	res = c.Apply(alice.Play(games.Roulette, 100, red(100)))
	done := testutil.EventsOf[events.SessionCompleted](res.Events)
	require.Len(t, done, 1)
	p := c.Player(alice)
	if done[0].Payout < 100 {
		require.True(t, done[0].ShieldUsed)
		require.EqualValues(t, 100, done[0].Paid)
		require.EqualValues(t, 100_000, p.Chips)
	} else {
		require.False(t, done[0].ShieldUsed)
		require.Equal(t, done[0].Payout, done[0].Paid)
		require.Equal(t, 100_000-100+done[0].Payout, p.Chips)
	}
	require.Zero(t, p.Shields)
	require.False(t, p.ShieldArmed)
}

func TestDoubleBoostsWin(t *testing.T) {
	admin, alice := wallet.FromSeed(1), wallet.FromSeed(2)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice))
	c.Apply(admin.Next(&core.GrantModifiers{Player: alice.Key(), Doubles: 2}))

	// arm and disarm leaves the count alone
	c.Apply(alice.Next(&core.ToggleDouble{}), alice.Next(&core.ToggleDouble{}))
	require.EqualValues(t, 2, c.Player(alice).Doubles)
	require.False(t, c.Player(alice).DoubleArmed)

	c.Apply(alice.Next(&core.ToggleDouble{}))
	res := c.Apply(alice.Play(games.Roulette, 100, red(100)))
	done := testutil.EventsOf[events.SessionCompleted](res.Events)
	require.Len(t, done, 1)
	if done[0].Payout > 100 {
		require.True(t, done[0].DoubleUsed)
		require.Equal(t, 2*done[0].Payout-100, done[0].Paid)
	} else {
		require.False(t, done[0].DoubleUsed)
		require.Equal(t, done[0].Payout, done[0].Paid)
	}
	require.EqualValues(t, 1, c.Player(alice).Doubles)
}

func TestFreerollStake(t *testing.T) {
	admin, alice := wallet.FromSeed(1), wallet.FromSeed(2)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice))
	c.Apply(admin.Next(&core.GrantModifiers{Player: alice.Key(), Freeroll: 60}))

	res := c.Apply(alice.Next(&core.StartGame{Game: games.HiLo, Bet: 100, UseFreeroll: true}))
	started := testutil.EventsOf[events.SessionStarted](res.Events)
	require.Len(t, started, 1)
	require.EqualValues(t, 60, started[0].FreerollStake)
	p := c.Player(alice)
	require.EqualValues(t, 100_000-40, p.Chips)
	require.Zero(t, p.Freeroll)

	res = c.Apply(alice.Move(games.HiLo, started[0].SessionID, hiloCashout))
	done := testutil.EventsOf[events.SessionCompleted](res.Events)
	require.Len(t, done, 1)
	// the freeroll stake is never returned
	require.EqualValues(t, 40, done[0].Paid)
	require.Zero(t, done[0].HouseDelta)
	require.EqualValues(t, 100_000, c.Player(alice).Chips)
}

func TestTableRound(t *testing.T) {
	admin, alice, bob := wallet.FromSeed(1), wallet.FromSeed(2), wallet.FromSeed(3)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice, bob))
	bet := games.Bet{Kind: games.RouRed, Amount: 100}

	c.Apply()
	tbl, err := c.State.GetTable(games.Roulette)
	require.NoError(t, err)
	require.EqualValues(t, 1, tbl.Clock.RoundID)
	require.Equal(t, games.PhaseBetting, tbl.Clock.Phase)

	res := c.Apply(alice.Bet(games.Roulette, 1, bet), bob.Bet(games.Roulette, 2, bet))
	require.Equal(t, []core.Code{core.CodeRoundMismatch}, testutil.Failures(res.Events))
	placed := testutil.EventsOf[events.TableBetPlaced](res.Events)
	require.Len(t, placed, 1)
	require.EqualValues(t, 100, placed[0].Total)
	require.EqualValues(t, 100_000-100, c.Player(alice).Chips)

	for c.Height < 10 {
		c.Apply()
	}
	// height 11 locks the round before any transaction runs
	res = c.Apply(bob.Bet(games.Roulette, 1, bet))
	require.Equal(t, []core.Code{core.CodeTableClosed}, testutil.Failures(res.Events))

	pnl := c.House().NetPnL
	res = c.Apply()
	resolved := testutil.EventsOf[events.TableRoundResolved](res.Events)
	require.Len(t, resolved, 1)
	require.EqualValues(t, 1, resolved[0].RoundID)
	require.Equal(t, 1, resolved[0].Bettors)
	require.EqualValues(t, 100, resolved[0].TotalWagered)
	payouts := testutil.EventsOf[events.TablePayout](res.Events)
	require.Len(t, payouts, 1)
	require.Equal(t, alice.Key(), payouts[0].Player)
	for _, rec := range res.Events {
		require.Equal(t, events.SystemTx, rec.TxIndex)
	}

	paid := payouts[0].Paid
	require.Equal(t, 100_000-100+paid, c.Player(alice).Chips)
	require.Equal(t, pnl+100-int64(paid), c.House().NetPnL)
	tbl, err = c.State.GetTable(games.Roulette)
	require.NoError(t, err)
	require.Empty(t, tbl.Entries)
	require.Equal(t, games.PhaseCooldown, tbl.Clock.Phase)

	c.Apply()
	c.Apply()
	res = c.Apply(bob.Bet(games.Roulette, 2, bet))
	require.Empty(t, testutil.Failures(res.Events))
}

func TestTableBetsMerge(t *testing.T) {
	admin, alice := wallet.FromSeed(1), wallet.FromSeed(2)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice))
	c.Apply()
	c.Apply(
		alice.Bet(games.SicBo, 1, games.Bet{Kind: games.SicBig, Amount: 30}),
		alice.Bet(games.SicBo, 1, games.Bet{Kind: games.SicSmall, Amount: 20}),
	)
	tbl, err := c.State.GetTable(games.SicBo)
	require.NoError(t, err)
	require.Len(t, tbl.Entries, 1)
	require.EqualValues(t, 50, tbl.Entries[0].Total)
	require.Len(t, tbl.Entries[0].Bets, 2)
	require.EqualValues(t, 1, c.Player(alice).GamesPlayed)
}

func TestFailedTableRoundIsVoided(t *testing.T) {
	admin, alice, bob := wallet.FromSeed(1), wallet.FromSeed(2), wallet.FromSeed(3)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice, bob))
	c.Apply()
	res := c.Apply(bob.Bet(games.SicBo, 1, games.Bet{Kind: games.SicBig, Amount: 100}))
	require.Empty(t, testutil.Failures(res.Events))

	// the roulette entries overflow the round total at settlement
	onRed := games.Bet{Kind: games.RouRed, Amount: 100}
	tbl, err := c.State.GetTable(games.Roulette)
	require.NoError(t, err)
	tbl.Entries = []core.TableEntry{
		{Player: alice.Key(), Bets: []games.Bet{onRed}, Total: math.MaxUint64 - 200_000},
		{Player: bob.Key(), Bets: []games.Bet{onRed}, Total: 300_000},
	}
	require.NoError(t, c.State.SetTable(tbl))
	require.NoError(t, c.State.Commit())

	for c.Height < 11 {
		c.Apply()
	}
	res = c.Apply()
	voided := testutil.EventsOf[events.TableRoundVoided](res.Events)
	require.Len(t, voided, 1)
	require.Equal(t, games.Roulette, voided[0].Game)
	require.EqualValues(t, 1, voided[0].RoundID)
	require.Equal(t, 2, voided[0].Bettors)
	require.Equal(t, string(core.CodeOverflow), voided[0].Reason)

	// the sic bo table settles in the same block
	resolved := testutil.EventsOf[events.TableRoundResolved](res.Events)
	require.Len(t, resolved, 1)
	require.Equal(t, games.SicBo, resolved[0].Game)
	payouts := testutil.EventsOf[events.TablePayout](res.Events)
	require.Len(t, payouts, 1)
	payout := payouts[0]
	require.Equal(t, bob.Key(), payout.Player)

	require.EqualValues(t, uint64(math.MaxUint64-100_000), c.Player(alice).Chips)
	require.Equal(t, 100_000-100+payout.Paid+300_000, c.Player(bob).Chips)
	tbl, err = c.State.GetTable(games.Roulette)
	require.NoError(t, err)
	require.Empty(t, tbl.Entries)
	require.Equal(t, games.PhaseCooldown, tbl.Clock.Phase)
}

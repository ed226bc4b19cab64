package indexer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/events"
	"github.com/tolelom/casinochain/games"
	"github.com/tolelom/casinochain/internal/testutil"
	"github.com/tolelom/casinochain/wallet"
)

// seeds rebuilds the header seed testutil.Chain uses at each height.
type seeds struct{}

func (seeds) GetBlockByHeight(h uint64) (*core.Block, error) {
	return core.NewBlock(h, "", "", 0, testutil.SeedAt(h), nil), nil
}

func TestJournalRecordsBlocks(t *testing.T) {
	admin, alice, bob := wallet.FromSeed(1), wallet.FromSeed(2), wallet.FromSeed(3)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice, bob))
	idx := New(testutil.NewMemDB(), c.Emitter)

	res := c.Apply(alice.Transfer(bob.Key(), 5), alice.Play(games.HiLo, 10, nil))
	recs, err := idx.Events(1)
	require.NoError(t, err)
	require.Len(t, recs, len(res.Events)+1)
	require.Equal(t, events.EventBlockCommitted, recs[len(recs)-1].Type)
	moved := testutil.EventsOf[events.ChipsTransferred](recs)
	require.Len(t, moved, 1)
	require.EqualValues(t, 5, moved[0].Amount)

	started := testutil.EventsOf[events.SessionStarted](res.Events)
	require.Len(t, started, 1)
	ids, err := idx.SessionsByPlayer(alice.Key())
	require.NoError(t, err)
	require.Equal(t, []uint64{started[0].SessionID}, ids)
	ids, err = idx.SessionsByPlayer(bob.Key())
	require.NoError(t, err)
	require.Empty(t, ids)

	_, err = idx.Events(2)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestVerifyRound(t *testing.T) {
	admin, alice, bob := wallet.FromSeed(1), wallet.FromSeed(2), wallet.FromSeed(3)
	c := testutil.NewChain(t, testutil.Genesis(admin, alice, bob))
	db := testutil.NewMemDB()
	idx := New(db, c.Emitter)
	rules := c.Policy().Rules()

	c.Apply()
	c.Apply(
		alice.Bet(games.Roulette, 1, games.Bet{Kind: games.RouRed, Amount: 100}),
		bob.Bet(games.Roulette, 1, games.Bet{Kind: games.RouBlack, Amount: 50}),
	)
	c.Apply(alice.Bet(games.Roulette, 1, games.Bet{Kind: games.RouBlack, Amount: 10}))

	_, err := idx.VerifyRound(seeds{}, games.Roulette, 1, rules)
	require.ErrorIs(t, err, ErrRoundNotResolved)

	for c.Height < 12 {
		c.Apply()
	}
	r, err := idx.VerifyRound(seeds{}, games.Roulette, 1, rules)
	require.NoError(t, err)
	require.EqualValues(t, 12, r.ResolvedAt)
	require.Len(t, r.Entries, 2)
	require.Len(t, r.Payouts, 2)
	require.EqualValues(t, 160, r.Resolved.TotalWagered)
	for _, e := range r.Entries {
		if e.Player == alice.Key() {
			require.EqualValues(t, 110, e.Total)
			require.Len(t, e.Bets, 2)
		}
	}

	// a doctored payout no longer matches the redraw
	r.Payouts[0].Paid++
	data, err := json.Marshal(r)
	require.NoError(t, err)
	require.NoError(t, db.Set(roundKey(games.Roulette, 1), data))
	_, err = idx.VerifyRound(seeds{}, games.Roulette, 1, rules)
	require.ErrorIs(t, err, ErrRoundMismatch)
}

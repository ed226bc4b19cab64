package games

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/casinochain/rng"
)

func startParams(g GameType) (uint64, []byte) {
	switch g {
	case Baccarat:
		return 100, EncodeBets([]Bet{{Kind: BacPlayer, Amount: 100}})
	case Craps:
		return 100, EncodeBets([]Bet{{Kind: CrapsPass, Amount: 100}})
	case Roulette:
		return 100, EncodeBets([]Bet{{Kind: RouRed, Amount: 60}, {Kind: RouStraight, Target: 17, Amount: 40}})
	case SicBo:
		return 100, EncodeBets([]Bet{{Kind: SicBig, Amount: 100}})
	case CasinoWar:
		return 100, EncodeSideBet(10)
	}
	return 100, nil
}

func defaultMove(g GameType) []byte {
	switch g {
	case Blackjack:
		return []byte{bjStand}
	case CasinoWar:
		return []byte{warGoToWar}
	case Craps:
		return []byte{crapsRoll}
	case HiLo:
		return []byte{hiloCashout}
	case ThreeCardPoker:
		return []byte{tcpPlay}
	case UltimateHoldem:
		return []byte{uthBet, 4}
	case VideoPoker:
		return []byte{vpHold, 0}
	}
	return nil
}

func playOut(t *testing.T, env Env, g GameType) (*Session, []Result) {
	t.Helper()
	s := &Session{ID: 77, Game: g}
	bet, params := startParams(g)
	res, err := AcceptBet(env, s, bet, params)
	require.NoError(t, err, g.String())
	results := []Result{res}
	for i := 0; !s.Complete; i++ {
		require.Less(t, i, 500, "%s never completed", g)
		res, err = AcceptMove(env, s, defaultMove(g))
		require.NoError(t, err, g.String())
		results = append(results, res)
		require.LessOrEqual(t, len(s.State), g.MaxStateSize())
	}
	require.EqualValues(t, len(results), s.Move)
	require.Nil(t, s.State)
	return s, results
}

func TestEveryVariantPlaysToCompletion(t *testing.T) {
	env := Env{Seed: rng.Seed{1, 2, 3}}
	require.Len(t, All, 10)
	for _, g := range All {
		t.Run(g.String(), func(t *testing.T) {
			require.True(t, g.Valid())
			require.Positive(t, g.MaxStateSize())
			s, results := playOut(t, env, g)
			var wagered uint64
			for _, r := range results {
				wagered += r.Wager
			}
			require.Equal(t, s.Wagered, wagered)
			require.True(t, results[len(results)-1].Complete)
		})
	}
}

func TestVariantsAreDeterministic(t *testing.T) {
	env := Env{Seed: rng.Seed{9}}
	for _, g := range All {
		a, ra := playOut(t, env, g)
		b, rb := playOut(t, env, g)
		require.Equal(t, a, b, g.String())
		require.Equal(t, ra, rb, g.String())
	}
}

func TestUnknownGameRejected(t *testing.T) {
	require.False(t, GameType(0).Valid())
	require.False(t, GameType(11).Valid())
	_, err := AcceptBet(Env{}, &Session{Game: 42}, 10, nil)
	require.ErrorIs(t, err, ErrUnknownGame)
}

func TestParseGameType(t *testing.T) {
	for _, g := range All {
		got, err := ParseGameType(g.String())
		require.NoError(t, err)
		require.Equal(t, g, got)
	}
	_, err := ParseGameType("keno")
	require.ErrorIs(t, err, ErrUnknownGame)
}

func TestMoveOnCompletedSession(t *testing.T) {
	env := Env{Seed: rng.Seed{4}}
	s, _ := playOut(t, env, VideoPoker)
	_, err := AcceptMove(env, s, []byte{vpHold, 0})
	require.ErrorIs(t, err, ErrSessionComplete)
}

func TestBetCountLimits(t *testing.T) {
	many := func(n int, b Bet) ([]byte, uint64) {
		bets := make([]Bet, n)
		for i := range bets {
			bets[i] = b
		}
		return EncodeBets(bets), uint64(n) * b.Amount
	}
	p, total := many(21, Bet{Kind: RouRed, Amount: 5})
	require.ErrorIs(t, ValidateStart(Roulette, total, p), ErrTooManyBets)
	p, total = many(20, Bet{Kind: RouRed, Amount: 5})
	require.NoError(t, ValidateStart(Roulette, total, p))
	p, total = many(12, Bet{Kind: BacTie, Amount: 5})
	require.ErrorIs(t, ValidateStart(Baccarat, total, p), ErrTooManyBets)
	p, total = many(21, Bet{Kind: CrapsField, Amount: 5})
	require.ErrorIs(t, ValidateStart(Craps, total, p), ErrTooManyBets)
	p, total = many(21, Bet{Kind: SicSmall, Amount: 5})
	require.ErrorIs(t, ValidateStart(SicBo, total, p), ErrTooManyBets)
}

func TestBetListMustMatchStake(t *testing.T) {
	p := EncodeBets([]Bet{{Kind: RouRed, Amount: 50}})
	require.ErrorIs(t, ValidateStart(Roulette, 60, p), ErrInvalidBet)
	bad := EncodeBets([]Bet{{Kind: RouStraight, Target: 37, Amount: 50}})
	require.ErrorIs(t, ValidateStart(Roulette, 50, bad), ErrInvalidBet)
	require.ErrorIs(t, ValidateStart(Craps, 5, EncodeBets([]Bet{{Kind: CrapsPassOdds, Amount: 5}})), ErrInvalidBet)
}

func TestValidateMoveShapes(t *testing.T) {
	require.NoError(t, ValidateMove(Blackjack, []byte{bjSurrender}))
	require.ErrorIs(t, ValidateMove(Blackjack, []byte{9}), ErrInvalidMove)
	require.ErrorIs(t, ValidateMove(Blackjack, nil), ErrInvalidMove)
	require.ErrorIs(t, ValidateMove(UltimateHoldem, []byte{uthBet, 5}), ErrInvalidMove)
	require.ErrorIs(t, ValidateMove(VideoPoker, []byte{vpHold, 32}), ErrInvalidMove)
	require.ErrorIs(t, ValidateMove(Roulette, []byte{0}), ErrInvalidMove)
	require.ErrorIs(t, ValidateMove(Craps, append([]byte{crapsAddBet}, make([]byte, betSize)...)), ErrInvalidBet)
}

func TestCorruptBlobRejected(t *testing.T) {
	_, state, err := dealBlackjack(deal(t, "8s", "8h", "6d"), 100)
	require.NoError(t, err)
	_, err = decodeBlackjack(append(state, 0))
	require.ErrorIs(t, err, ErrCorruptState)
	_, err = decodeBlackjack(state[:len(state)-1])
	require.ErrorIs(t, err, ErrCorruptState)
}

func TestDeckNeverRepeats(t *testing.T) {
	var d Deck
	for c := Card(0); c < numCards; c++ {
		if c != 17 {
			d.Remove(c)
		}
	}
	require.Equal(t, 1, d.Remaining())
	require.Equal(t, Card(17), d.Draw(rng.Derive(rng.Seed{}, 1, 1)))

	d = Deck{}
	s := rng.Derive(rng.Seed{5}, 2, 0)
	seen := map[Card]bool{}
	for i := 0; i < numCards; i++ {
		c := d.Draw(s)
		require.False(t, seen[c])
		seen[c] = true
	}
}

func TestCardText(t *testing.T) {
	c, err := ParseCard("Td")
	require.NoError(t, err)
	require.EqualValues(t, rankTen, c.Rank())
	require.EqualValues(t, 1, c.Suit())
	require.Equal(t, "Td", c.String())
	_, err = ParseCard("1x")
	require.Error(t, err)
}

func TestTableClockSchedule(t *testing.T) {
	timing := TableTiming{BettingBlocks: 3, CooldownBlocks: 2}
	var c TableClock
	require.False(t, c.Tick(1, timing))
	require.Equal(t, TableClock{RoundID: 1, Phase: PhaseBetting, PhaseStart: 1}, c)
	require.False(t, c.Tick(2, timing))
	require.False(t, c.Tick(3, timing))
	require.Equal(t, PhaseBetting, c.Phase)
	require.False(t, c.Tick(4, timing))
	require.Equal(t, PhaseLocked, c.Phase)
	require.True(t, c.Tick(5, timing))
	require.Equal(t, PhaseCooldown, c.Phase)
	require.False(t, c.Tick(6, timing))
	require.False(t, c.Tick(7, timing))
	require.Equal(t, TableClock{RoundID: 2, Phase: PhaseBetting, PhaseStart: 7}, c)
}

func TestTableRoundSettlesEachBettor(t *testing.T) {
	env := Env{Seed: rng.Seed{7}}
	r, err := DrawRound(env, Roulette, 3)
	require.NoError(t, err)
	again, err := DrawRound(env, Roulette, 3)
	require.NoError(t, err)
	require.Equal(t, r, again)

	n := *r.Summary().Number
	hit, d := r.Settle(Rules{}, []Bet{{Kind: RouStraight, Target: n, Amount: 10}})
	require.EqualValues(t, 360, hit)
	require.Equal(t, Win, d.Bets[0].Outcome)

	_, err = DrawRound(env, Blackjack, 1)
	require.ErrorIs(t, err, ErrUnknownGame)
	require.NotEqual(t, TableSessionID(Roulette, 3), TableSessionID(SicBo, 3))
}

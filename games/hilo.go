package games

import "github.com/tolelom/casinochain/rng"

// HiLo actions.
const (
	hiloHigher uint8 = iota
	hiloLower
	hiloCashout
)

const (
	bpsOne = 10_000
	// hiloRTPNumerator is 13 ranks at a 97% return, in basis points.
	hiloRTPNumerator = 126_100
	// hiloMaxMultiplier forces a cashout once the streak reaches 10,000x.
	hiloMaxMultiplier = 10_000 * bpsOne
)

// hiloFactors[w] is the multiplier step, in bps, for a guess that wins on
// w of the 13 ranks. Equal ranks always lose.
var hiloFactors = func() [13]uint64 {
	var t [13]uint64
	for w := 1; w < 13; w++ {
		t[w] = hiloRTPNumerator / uint64(w)
	}
	return t
}()

type hiloState struct {
	card       Card
	multiplier uint64
	streak     uint8
}

func (st *hiloState) encode() []byte {
	var w writer
	w.u8(uint8(st.card))
	w.u64(st.multiplier)
	w.u8(st.streak)
	return w.buf
}

func decodeHiLo(b []byte) (*hiloState, error) {
	r := reader{buf: b}
	st := &hiloState{card: Card(r.u8()), multiplier: r.u64(), streak: r.u8()}
	if err := r.done(); err != nil {
		return nil, err
	}
	if st.card >= numCards || st.multiplier == 0 {
		return nil, ErrCorruptState
	}
	return st, nil
}

// hiloWinningRanks counts the ranks that win the guess from rank r.
func hiloWinningRanks(r uint8, action uint8) int {
	if action == hiloHigher {
		return int(rankAce - r)
	}
	return int(r - rankTwo)
}

// hiloCard draws from an infinite deck: every draw sees all 52 cards.
func hiloCard(src source) Card { return Card(src.number(numCards)) }

func startHiLo(s *rng.Stream, bet uint64) (Result, []byte, error) {
	st := &hiloState{card: hiloCard(newSource(s)), multiplier: bpsOne}
	return Result{Wager: bet, Detail: st.detail("guess")}, st.encode(), nil
}

func moveHiLo(s *rng.Stream, sess *Session, move []byte) (Result, []byte, error) {
	st, err := decodeHiLo(sess.State)
	if err != nil {
		return Result{}, nil, err
	}
	return st.act(newSource(s), sess.Bet, move[0])
}

func (st *hiloState) act(src source, bet uint64, action uint8) (Result, []byte, error) {
	if action == hiloCashout {
		return st.cashout(bet, "cashed_out"), nil, nil
	}
	w := hiloWinningRanks(st.card.Rank(), action)
	if w == 0 {
		return Result{}, nil, ErrInvalidMove
	}
	next := hiloCard(src)
	won := (action == hiloHigher && next.Rank() > st.card.Rank()) ||
		(action == hiloLower && next.Rank() < st.card.Rank())
	st.card = next
	if !won {
		d := st.detail("lost")
		return Result{Complete: true, Detail: d}, nil, nil
	}
	st.multiplier = mulDiv(st.multiplier, hiloFactors[w], bpsOne)
	st.streak++
	if st.multiplier >= hiloMaxMultiplier {
		st.multiplier = hiloMaxMultiplier
		return st.cashout(bet, "max_multiplier"), nil, nil
	}
	return Result{Detail: st.detail("guess")}, st.encode(), nil
}

func (st *hiloState) cashout(bet uint64, stage string) Result {
	p := mulDiv(bet, st.multiplier, bpsOne)
	return Result{Payout: p, Complete: true, Detail: st.detail(stage)}
}

func (st *hiloState) detail(stage string) Detail {
	return Detail{
		Stage:      stage,
		Player:     []Hand{{Cards: []Card{st.card}, Value: st.card.Rank() + 2}},
		Multiplier: st.multiplier,
		Streak:     st.streak,
	}
}

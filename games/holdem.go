package games

import (
	"fmt"

	"github.com/tolelom/casinochain/rng"
)

// Ultimate hold'em actions. uthBet carries a play multiplier.
const (
	uthCheck uint8 = iota
	uthBet
	uthFold
)

const (
	uthPreflop uint8 = iota
	uthFlop
	uthRiver
)

var holdemRules = struct {
	playMultipliers [3][]uint8
	blindPays       map[HandRank]ratio
	tripsPays       map[HandRank]uint64
	qualifyRank     HandRank
	// ante odds against a qualified dealer, and the ante result whenever
	// the dealer does not qualify and the player stayed in
	qualifiedAnte   ratio
	nonQualifyAnte  ratio
}{
	playMultipliers: [3][]uint8{uthPreflop: {3, 4}, uthFlop: {2}, uthRiver: {1}},
	blindPays: map[HandRank]ratio{
		Straight: odds(1), Flush: {3, 2}, FullHouse: odds(3), FourOfAKind: odds(10),
		StraightFlush: odds(50), RoyalFlush: odds(500),
	},
	tripsPays: map[HandRank]uint64{
		ThreeOfAKind: 3, Straight: 4, Flush: 7, FullHouse: 8, FourOfAKind: 30,
		StraightFlush: 40, RoyalFlush: 50,
	},
	qualifyRank:    OnePair,
	qualifiedAnte:  odds(1),
	nonQualifyAnte: odds(0),
}

type uthState struct {
	stage     uint8
	player    []Card
	community []Card
	ante      uint64
	trips     uint64
}

func (st *uthState) encode() []byte {
	var w writer
	w.u8(st.stage)
	w.cards(st.player)
	w.cards(st.community)
	w.u64(st.ante)
	w.u64(st.trips)
	return w.buf
}

func decodeHoldem(b []byte) (*uthState, error) {
	r := reader{buf: b}
	st := &uthState{stage: r.u8(), player: r.cards(), community: r.cards(), ante: r.u64(), trips: r.u64()}
	if err := r.done(); err != nil {
		return nil, err
	}
	wantBoard := [3]int{uthPreflop: 0, uthFlop: 3, uthRiver: 5}
	if st.stage > uthRiver || len(st.player) != 2 || len(st.community) != wantBoard[st.stage] {
		return nil, ErrCorruptState
	}
	return st, nil
}

func (st *uthState) known() []Card {
	return append(append([]Card(nil), st.player...), st.community...)
}

func startHoldem(s *rng.Stream, ante uint64, params []byte) (Result, []byte, error) {
	trips, err := parseSideBet(params)
	if err != nil {
		return Result{}, nil, err
	}
	st := &uthState{stage: uthPreflop, player: drawN(newSource(s), 2), ante: ante, trips: trips}
	wager := addChecked(addChecked(ante, ante), trips)
	return Result{Wager: wager, Detail: st.detail("preflop")}, st.encode(), nil
}

func moveHoldem(s *rng.Stream, sess *Session, move []byte) (Result, []byte, error) {
	st, err := decodeHoldem(sess.State)
	if err != nil {
		return Result{}, nil, err
	}
	var mult uint8
	if move[0] == uthBet {
		mult = move[1]
	}
	return st.act(newSource(s, st.known()...), move[0], mult)
}

func (st *uthState) act(src source, action, mult uint8) (Result, []byte, error) {
	switch action {
	case uthCheck:
		switch st.stage {
		case uthPreflop:
			st.community = drawN(src, 3)
			st.stage = uthFlop
			return Result{Detail: st.detail("flop")}, st.encode(), nil
		case uthFlop:
			st.community = append(st.community, drawN(src, 2)...)
			st.stage = uthRiver
			return Result{Detail: st.detail("river")}, st.encode(), nil
		}
		return Result{}, nil, fmt.Errorf("%w: must bet or fold on the river", ErrInvalidMove)
	case uthBet:
		allowed := false
		for _, m := range holdemRules.playMultipliers[st.stage] {
			allowed = allowed || m == mult
		}
		if !allowed {
			return Result{}, nil, fmt.Errorf("%w: %dx play not allowed here", ErrInvalidMove, mult)
		}
		play := mulDiv(st.ante, uint64(mult), 1)
		res := st.resolve(src, play)
		res.Wager = play
		return res, nil, nil
	case uthFold:
		if st.stage != uthRiver {
			return Result{}, nil, fmt.Errorf("%w: fold only on the river", ErrInvalidMove)
		}
		return st.resolve(src, 0), nil, nil
	}
	return Result{}, nil, ErrInvalidMove
}

// antePayout returns base against a qualified dealer and the
// non-qualifying ante result otherwise.
func (st *uthState) antePayout(qualified bool, base uint64) uint64 {
	if qualified {
		return base
	}
	return holdemRules.nonQualifyAnte.pay(st.ante)
}

// resolve completes the board, plays the dealer and settles every wager.
// play == 0 means the player folded.
func (st *uthState) resolve(src source, play uint64) Result {
	if n := 5 - len(st.community); n > 0 {
		st.community = append(st.community, drawN(src, n)...)
	}
	dealer := drawN(src, 2)
	pv, _ := bestFive(append(append([]Card(nil), st.player...), st.community...))
	dv, _ := bestFive(append(append([]Card(nil), dealer...), st.community...))
	qualified := dv.rank() >= holdemRules.qualifyRank

	var (
		bets   []BetOutcome
		payout uint64
	)
	add := func(kind string, amount, p uint64) {
		bets = append(bets, BetOutcome{Kind: kind, Amount: amount, Payout: p, Outcome: outcomeOf(amount, p)})
		payout = addChecked(payout, p)
	}
	outcome := Loss
	switch {
	case play == 0:
		add("ante", st.ante, 0)
		add("blind", st.ante, 0)
	case pv > dv:
		outcome = Win
		blind := st.ante
		if r, ok := holdemRules.blindPays[pv.rank()]; ok {
			blind = r.pay(st.ante)
		}
		add("ante", st.ante, st.antePayout(qualified, holdemRules.qualifiedAnte.pay(st.ante)))
		add("blind", st.ante, blind)
		add("play", play, odds(1).pay(play))
	case pv == dv:
		outcome = Push
		add("ante", st.ante, st.ante)
		add("blind", st.ante, st.ante)
		add("play", play, play)
	default:
		add("ante", st.ante, st.antePayout(qualified, 0))
		add("blind", st.ante, 0)
		add("play", play, 0)
	}
	if st.trips > 0 {
		var p uint64
		if m, ok := holdemRules.tripsPays[pv.rank()]; ok {
			p = odds(m).pay(st.trips)
		}
		add("trips", st.trips, p)
	}
	stage := "settled"
	if play == 0 {
		stage = "folded"
	}
	dealerLabel := dv.rank().String()
	if !qualified {
		dealerLabel = "not_qualified"
	}
	d := Detail{
		Stage:     stage,
		Bets:      bets,
		Community: st.community,
		Player:    []Hand{{Cards: st.player, Label: pv.rank().String(), Outcome: outcome}},
		Dealer:    &Hand{Cards: dealer, Label: dealerLabel},
	}
	return Result{Payout: payout, Complete: true, Jackpot: pv.rank() == RoyalFlush, Detail: d}
}

func (st *uthState) detail(stage string) Detail {
	return Detail{Stage: stage, Community: st.community, Player: []Hand{{Cards: st.player, Bet: st.ante}}}
}

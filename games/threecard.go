package games

import "github.com/tolelom/casinochain/rng"

// Three card poker actions.
const (
	tcpPlay uint8 = iota
	tcpFold
)

var threeCardRules = struct {
	pairPlus       map[ThreeCardRank]uint64
	anteBonus      map[ThreeCardRank]uint64
	qualifyRank    uint8
	nonQualifyAnte ratio
}{
	pairPlus:       map[ThreeCardRank]uint64{TCPair: 1, TCFlush: 3, TCStraight: 6, TCThreeOfAKind: 30, TCStraightFlush: 40},
	anteBonus:      map[ThreeCardRank]uint64{TCStraight: 1, TCThreeOfAKind: 4, TCStraightFlush: 5},
	qualifyRank:    rankQueen,
	nonQualifyAnte: odds(1),
}

type tcpState struct {
	player   []Card
	ante     uint64
	pairPlus uint64
}

func (st *tcpState) encode() []byte {
	var w writer
	w.cards(st.player)
	w.u64(st.ante)
	w.u64(st.pairPlus)
	return w.buf
}

func decodeThreeCard(b []byte) (*tcpState, error) {
	r := reader{buf: b}
	st := &tcpState{player: r.cards(), ante: r.u64(), pairPlus: r.u64()}
	if err := r.done(); err != nil {
		return nil, err
	}
	if len(st.player) != 3 {
		return nil, ErrCorruptState
	}
	return st, nil
}

// dealerQualifies reports a queen-high or better dealer hand.
func dealerQualifies(v threeValue) bool {
	return v.rank() > TCHighCard || uint8(v>>8)&0xF >= threeCardRules.qualifyRank
}

func startThreeCard(s *rng.Stream, ante uint64, params []byte) (Result, []byte, error) {
	pp, err := parseSideBet(params)
	if err != nil {
		return Result{}, nil, err
	}
	st := &tcpState{player: drawN(newSource(s), 3), ante: ante, pairPlus: pp}
	v := evalThree(st.player)
	d := Detail{Stage: "decision", Player: []Hand{{Cards: st.player, Label: v.rank().String(), Bet: ante}}}
	return Result{Wager: addChecked(ante, pp), Detail: d}, st.encode(), nil
}

func moveThreeCard(s *rng.Stream, sess *Session, move []byte) (Result, []byte, error) {
	st, err := decodeThreeCard(sess.State)
	if err != nil {
		return Result{}, nil, err
	}
	return st.resolve(newSource(s, st.player...), move[0] == tcpPlay), nil, nil
}

func (st *tcpState) resolve(src source, play bool) Result {
	dealer := drawN(src, 3)
	pv, dv := evalThree(st.player), evalThree(dealer)
	var (
		bets   []BetOutcome
		payout uint64
		wager  uint64
	)
	add := func(kind string, amount, p uint64) {
		bets = append(bets, BetOutcome{Kind: kind, Amount: amount, Payout: p, Outcome: outcomeOf(amount, p)})
		payout = addChecked(payout, p)
	}
	qualified := dealerQualifies(dv)
	playerOutcome := Loss
	if play {
		wager = st.ante
		var anteP, playP uint64
		switch {
		case !qualified:
			anteP, playP = threeCardRules.nonQualifyAnte.pay(st.ante), st.ante
			playerOutcome = Win
		case pv > dv:
			anteP, playP = odds(1).pay(st.ante), odds(1).pay(st.ante)
			playerOutcome = Win
		case pv == dv:
			anteP, playP = st.ante, st.ante
			playerOutcome = Push
		}
		add("ante", st.ante, anteP)
		add("play", st.ante, playP)
		if m, ok := threeCardRules.anteBonus[pv.rank()]; ok {
			add("ante_bonus", 0, mulDiv(st.ante, m, 1))
		}
	} else {
		add("ante", st.ante, 0)
	}
	if st.pairPlus > 0 {
		var p uint64
		if m, ok := threeCardRules.pairPlus[pv.rank()]; ok {
			p = odds(m).pay(st.pairPlus)
		}
		add("pair_plus", st.pairPlus, p)
	}
	stage := "settled"
	if !play {
		stage = "folded"
	}
	dealerLabel := dv.rank().String()
	if !qualified {
		dealerLabel = "not_qualified"
	}
	d := Detail{
		Stage:  stage,
		Bets:   bets,
		Player: []Hand{{Cards: st.player, Label: pv.rank().String(), Bet: st.ante, Outcome: playerOutcome}},
		Dealer: &Hand{Cards: dealer, Label: dealerLabel},
	}
	return Result{Wager: wager, Payout: payout, Complete: true, Jackpot: isMiniRoyal(st.player), Detail: d}
}

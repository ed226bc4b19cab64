package games

import "github.com/tolelom/casinochain/rng"

const vpHold uint8 = 0

// videoPokerPays is the 9/6 Jacks or Better table: total return per unit
// bet. OnePair only pays for jacks or better.
var videoPokerPays = map[HandRank]uint64{
	RoyalFlush: 800, StraightFlush: 50, FourOfAKind: 25, FullHouse: 9,
	Flush: 6, Straight: 4, ThreeOfAKind: 3, TwoPair: 2, OnePair: 1,
}

const vpMinPairRank = rankJack

func videoPokerReturn(v handValue) uint64 {
	if v.rank() == OnePair && v.topRank() < vpMinPairRank {
		return 0
	}
	return videoPokerPays[v.rank()]
}

func decodeVideoPoker(b []byte) ([]Card, error) {
	r := reader{buf: b}
	cs := r.cards()
	if err := r.done(); err != nil {
		return nil, err
	}
	if len(cs) != 5 {
		return nil, ErrCorruptState
	}
	return cs, nil
}

func startVideoPoker(s *rng.Stream, bet uint64) (Result, []byte, error) {
	hand := drawN(newSource(s), 5)
	var w writer
	w.cards(hand)
	d := Detail{Stage: "hold", Player: []Hand{{Cards: hand, Bet: bet}}}
	return Result{Wager: bet, Detail: d}, w.buf, nil
}

func moveVideoPoker(s *rng.Stream, sess *Session, move []byte) (Result, []byte, error) {
	hand, err := decodeVideoPoker(sess.State)
	if err != nil {
		return Result{}, nil, err
	}
	return drawVideoPoker(newSource(s, hand...), hand, sess.Bet, move[1]), nil, nil
}

// drawVideoPoker replaces every card whose bit is clear in hold and pays
// the final hand.
func drawVideoPoker(src source, hand []Card, bet uint64, hold uint8) Result {
	final := append([]Card(nil), hand...)
	for i := range final {
		if hold&(1<<i) == 0 {
			final[i] = src.card()
		}
	}
	v := evalFive(final)
	p := mulDiv(bet, videoPokerReturn(v), 1)
	label := v.rank().String()
	if p == 0 {
		label = "no_win"
	}
	d := Detail{Stage: "settled", Player: []Hand{{Cards: final, Label: label, Bet: bet, Payout: p, Outcome: outcomeOf(bet, p)}}}
	return Result{Payout: p, Complete: true, Jackpot: v.rank() == RoyalFlush, Detail: d}
}

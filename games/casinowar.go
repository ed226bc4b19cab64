package games

import "github.com/tolelom/casinochain/rng"

// Casino war actions, valid only after a tie on the deal.
const (
	warSurrender uint8 = iota
	warGoToWar
)

var warRules = struct {
	tieBetPays      ratio
	surrenderReturn ratio
	warWinRaise     ratio
	warTieRaise     ratio
	burn            int
}{
	tieBetPays:      odds(10),
	surrenderReturn: ratio{Num: 1, Den: 2},
	warWinRaise:     odds(1),
	warTieRaise:     odds(2),
	burn:            3,
}

type warState struct {
	player, dealer Card
	ante           uint64
	tiePayout      uint64
}

func (st *warState) encode() []byte {
	var w writer
	w.u8(uint8(st.player))
	w.u8(uint8(st.dealer))
	w.u64(st.ante)
	w.u64(st.tiePayout)
	return w.buf
}

func decodeWar(b []byte) (*warState, error) {
	r := reader{buf: b}
	st := &warState{player: Card(r.u8()), dealer: Card(r.u8()), ante: r.u64(), tiePayout: r.u64()}
	if err := r.done(); err != nil {
		return nil, err
	}
	if st.player >= numCards || st.dealer >= numCards || st.player.Rank() != st.dealer.Rank() {
		return nil, ErrCorruptState
	}
	return st, nil
}

func startCasinoWar(s *rng.Stream, ante uint64, params []byte) (Result, []byte, error) {
	tie, err := parseSideBet(params)
	if err != nil {
		return Result{}, nil, err
	}
	return dealCasinoWar(newSource(s), ante, tie)
}

func dealCasinoWar(src source, ante, tie uint64) (Result, []byte, error) {
	st := &warState{player: src.card(), dealer: src.card(), ante: ante}
	wager := addChecked(ante, tie)
	var bets []BetOutcome
	if tie > 0 {
		var p uint64
		if st.player.Rank() == st.dealer.Rank() {
			p = warRules.tieBetPays.pay(tie)
		}
		st.tiePayout = p
		bets = append(bets, BetOutcome{Kind: "tie", Amount: tie, Payout: p, Outcome: outcomeOf(tie, p)})
	}
	d := Detail{
		Bets:   bets,
		Player: []Hand{{Cards: []Card{st.player}, Value: st.player.Rank() + 2, Bet: ante}},
		Dealer: &Hand{Cards: []Card{st.dealer}, Value: st.dealer.Rank() + 2},
	}
	if st.player.Rank() == st.dealer.Rank() {
		d.Stage = "tie"
		return Result{Wager: wager, Detail: d}, st.encode(), nil
	}
	var p uint64
	if st.player.Rank() > st.dealer.Rank() {
		p = odds(1).pay(ante)
	}
	d.Stage = "settled"
	d.Player[0].Payout = p
	d.Player[0].Outcome = outcomeOf(ante, p)
	return Result{Wager: wager, Payout: addChecked(p, st.tiePayout), Complete: true, Detail: d}, nil, nil
}

func moveCasinoWar(s *rng.Stream, sess *Session, move []byte) (Result, []byte, error) {
	st, err := decodeWar(sess.State)
	if err != nil {
		return Result{}, nil, err
	}
	return st.act(newSource(s, st.player, st.dealer), move[0])
}

func (st *warState) act(src source, action uint8) (Result, []byte, error) {
	d := Detail{Dealer: &Hand{Cards: []Card{st.dealer}, Value: st.dealer.Rank() + 2}}
	switch action {
	case warSurrender:
		p := mulDiv(st.ante, warRules.surrenderReturn.Num, warRules.surrenderReturn.Den)
		d.Stage = "surrendered"
		d.Player = []Hand{{Cards: []Card{st.player}, Value: st.player.Rank() + 2, Bet: st.ante, Payout: p, Outcome: Loss, Label: "surrender"}}
		return Result{Payout: addChecked(p, st.tiePayout), Complete: true, Detail: d}, nil, nil
	case warGoToWar:
		raise := st.ante
		for i := 0; i < warRules.burn; i++ {
			src.card()
		}
		pc, dc := src.card(), src.card()
		var p uint64
		switch {
		case pc.Rank() > dc.Rank():
			p = addChecked(st.ante, warRules.warWinRaise.pay(raise))
		case pc.Rank() == dc.Rank():
			p = addChecked(st.ante, warRules.warTieRaise.pay(raise))
		}
		stake := addChecked(st.ante, raise)
		d.Stage = "war"
		d.Player = []Hand{{Cards: []Card{st.player, pc}, Value: pc.Rank() + 2, Bet: stake, Payout: p, Outcome: outcomeOf(stake, p)}}
		d.Dealer.Cards = append(d.Dealer.Cards, dc)
		d.Dealer.Value = dc.Rank() + 2
		return Result{Wager: raise, Payout: addChecked(p, st.tiePayout), Complete: true, Detail: d}, nil, nil
	}
	return Result{}, nil, ErrInvalidMove
}

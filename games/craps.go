package games

import (
	"fmt"

	"github.com/tolelom/casinochain/rng"
)

const maxCrapsBets = 20

// Craps actions.
const (
	crapsRoll uint8 = iota
	crapsAddBet
)

// Craps bet kinds.
const (
	CrapsPass uint8 = iota
	CrapsDontPass
	CrapsField
	CrapsPlace
	CrapsHardway
	CrapsAny7
	CrapsAnyCraps
	CrapsYo
	CrapsPassOdds
)

var crapsBetNames = [...]string{
	"pass", "dont_pass", "field", "place", "hardway", "any_seven", "any_craps", "yo", "pass_odds",
}

func crapsBetName(k uint8) string {
	if int(k) < len(crapsBetNames) {
		return crapsBetNames[k]
	}
	return "unknown"
}

// Payout tables keyed by point or target number.
var (
	crapsPlacePays = map[uint8]ratio{4: {9, 5}, 5: {7, 5}, 6: {7, 6}, 8: {7, 6}, 9: {7, 5}, 10: {9, 5}}
	crapsHardPays  = map[uint8]ratio{4: odds(7), 6: odds(9), 8: odds(9), 10: odds(7)}
	crapsTrueOdds  = map[uint8]ratio{4: {2, 1}, 5: {3, 2}, 6: {6, 5}, 8: {6, 5}, 9: {3, 2}, 10: {2, 1}}
	crapsFieldPays = map[uint8]ratio{2: odds(2), 3: odds(1), 4: odds(1), 9: odds(1), 10: odds(1), 11: odds(1), 12: odds(2)}
	crapsOneRoll   = map[uint8]struct {
		wins []uint8
		pays ratio
	}{
		CrapsAny7:     {[]uint8{7}, odds(4)},
		CrapsAnyCraps: {[]uint8{2, 3, 12}, odds(7)},
		CrapsYo:       {[]uint8{11}, odds(15)},
	}
)

func validCrapsBet(b Bet) bool {
	switch b.Kind {
	case CrapsPlace:
		_, ok := crapsPlacePays[b.Target]
		return ok
	case CrapsHardway:
		_, ok := crapsHardPays[b.Target]
		return ok
	case CrapsPass, CrapsDontPass, CrapsField, CrapsAny7, CrapsAnyCraps, CrapsYo, CrapsPassOdds:
		return b.Target == 0
	}
	return false
}

// EncodeCrapsAddBet builds the craps move that places b on an open session.
func EncodeCrapsAddBet(b Bet) []byte {
	return appendBet([]byte{crapsAddBet}, b)
}

func validCrapsStartBet(b Bet) bool {
	return b.Kind != CrapsPassOdds && validCrapsBet(b)
}

type crapsState struct {
	point   uint8
	pending uint64
	bets    []Bet
}

func (st *crapsState) encode() []byte {
	var w writer
	w.u8(st.point)
	w.u64(st.pending)
	w.buf = append(w.buf, EncodeBets(st.bets)...)
	return w.buf
}

func decodeCraps(b []byte) (*crapsState, error) {
	r := reader{buf: b}
	st := &crapsState{point: r.u8(), pending: r.u64()}
	if r.err != nil {
		return nil, r.err
	}
	bets, err := DecodeBets(r.buf, maxCrapsBets)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	st.bets = bets
	return st, nil
}

func startCraps(_ *rng.Stream, bet uint64, params []byte) (Result, []byte, error) {
	bets, err := parseBetList(params, bet, maxCrapsBets, validCrapsStartBet)
	if err != nil {
		return Result{}, nil, err
	}
	st := &crapsState{bets: bets}
	return Result{Wager: bet, Detail: Detail{Stage: "come_out"}}, st.encode(), nil
}

func moveCraps(s *rng.Stream, sess *Session, move []byte) (Result, []byte, error) {
	st, err := decodeCraps(sess.State)
	if err != nil {
		return Result{}, nil, err
	}
	if move[0] == crapsAddBet {
		return st.add(decodeBet(move[1:]))
	}
	return st.roll(newSource(s))
}

func (st *crapsState) add(b Bet) (Result, []byte, error) {
	if len(st.bets) >= maxCrapsBets {
		return Result{}, nil, ErrTooManyBets
	}
	switch b.Kind {
	case CrapsPass, CrapsDontPass:
		if st.point != 0 {
			return Result{}, nil, fmt.Errorf("%w: line bets only on the come-out", ErrInvalidBet)
		}
	case CrapsPassOdds:
		if st.point == 0 || !st.has(CrapsPass) {
			return Result{}, nil, fmt.Errorf("%w: odds need a point and a pass bet", ErrInvalidBet)
		}
	}
	st.bets = append(st.bets, b)
	return Result{Wager: b.Amount, Placed: b.Amount, Detail: Detail{Stage: "bet_placed", Point: st.point}}, st.encode(), nil
}

func (st *crapsState) has(kind uint8) bool {
	for _, b := range st.bets {
		if b.Kind == kind {
			return true
		}
	}
	return false
}

func (st *crapsState) roll(src source) (Result, []byte, error) {
	d1, d2 := src.die(), src.die()
	var (
		kept    []Bet
		settled []BetOutcome
	)
	for _, b := range st.bets {
		done, p := settleCrapsBet(b, st.point, d1, d2)
		if !done {
			kept = append(kept, b)
			continue
		}
		st.pending = addChecked(st.pending, p)
		settled = append(settled, BetOutcome{Kind: crapsBetName(b.Kind), Target: b.Target, Amount: b.Amount, Payout: p, Outcome: outcomeOf(b.Amount, p)})
	}
	st.point = nextPoint(st.point, d1+d2)
	st.bets = kept
	d := Detail{Dice: []uint8{d1, d2}, Bets: settled, Point: st.point}
	if len(kept) == 0 {
		d.Stage = "settled"
		return Result{Payout: st.pending, Complete: true, Detail: d}, nil, nil
	}
	d.Stage = "rolled"
	return Result{Detail: d}, st.encode(), nil
}

func nextPoint(point, total uint8) uint8 {
	if point == 0 {
		switch total {
		case 4, 5, 6, 8, 9, 10:
			return total
		}
		return 0
	}
	if total == point || total == 7 {
		return 0
	}
	return point
}

// settleCrapsBet resolves b against a roll. It reports whether the bet came
// down and, if so, the credit owed.
func settleCrapsBet(b Bet, point, d1, d2 uint8) (bool, uint64) {
	total := d1 + d2
	win := func(r ratio) (bool, uint64) { return true, r.pay(b.Amount) }
	lose := func() (bool, uint64) { return true, 0 }
	switch b.Kind {
	case CrapsPass, CrapsPassOdds:
		if point == 0 {
			if b.Kind == CrapsPassOdds {
				return true, b.Amount
			}
			switch total {
			case 7, 11:
				return win(odds(1))
			case 2, 3, 12:
				return lose()
			}
			return false, 0
		}
		switch total {
		case point:
			if b.Kind == CrapsPassOdds {
				return win(crapsTrueOdds[point])
			}
			return win(odds(1))
		case 7:
			return lose()
		}
		return false, 0
	case CrapsDontPass:
		if point == 0 {
			switch total {
			case 2, 3:
				return win(odds(1))
			case 12:
				return true, b.Amount
			case 7, 11:
				return lose()
			}
			return false, 0
		}
		switch total {
		case 7:
			return win(odds(1))
		case point:
			return lose()
		}
		return false, 0
	case CrapsField:
		if r, ok := crapsFieldPays[total]; ok {
			return win(r)
		}
		return lose()
	case CrapsPlace:
		switch total {
		case b.Target:
			return win(crapsPlacePays[b.Target])
		case 7:
			return lose()
		}
		return false, 0
	case CrapsHardway:
		switch {
		case total == b.Target && d1 == d2:
			return win(crapsHardPays[b.Target])
		case total == b.Target, total == 7:
			return lose()
		}
		return false, 0
	case CrapsAny7, CrapsAnyCraps, CrapsYo:
		rule := crapsOneRoll[b.Kind]
		for _, t := range rule.wins {
			if t == total {
				return win(rule.pays)
			}
		}
		return lose()
	}
	return lose()
}

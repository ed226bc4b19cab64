package games

import "github.com/tolelom/casinochain/rng"

const maxRouletteBets = 20

// Roulette bet kinds. Targets: Straight 0-36; SplitH n with n%3 != 0
// covers n,n+1; SplitV n<=33 covers n,n+3; Street and SixLine take a row
// 1-12 (1-11 for SixLine); Corner n with n%3 != 0, n<=32 covers
// n,n+1,n+3,n+4; Dozen and Column take 1-3.
const (
	RouStraight uint8 = iota
	RouSplitH
	RouSplitV
	RouStreet
	RouCorner
	RouSixLine
	RouDozen
	RouColumn
	RouRed
	RouBlack
	RouOdd
	RouEven
	RouLow
	RouHigh
)

var rouletteBetNames = [...]string{
	"straight", "split_h", "split_v", "street", "corner", "six_line", "dozen", "column",
	"red", "black", "odd", "even", "low", "high",
}

func rouletteBetName(k uint8) string {
	if int(k) < len(rouletteBetNames) {
		return rouletteBetNames[k]
	}
	return "unknown"
}

var roulettePays = [...]uint64{
	RouStraight: 35, RouSplitH: 17, RouSplitV: 17, RouStreet: 11, RouCorner: 8, RouSixLine: 5,
	RouDozen: 2, RouColumn: 2, RouRed: 1, RouBlack: 1, RouOdd: 1, RouEven: 1, RouLow: 1, RouHigh: 1,
}

var rouletteRed = func() [37]bool {
	var t [37]bool
	for _, n := range []int{1, 3, 5, 7, 9, 12, 14, 16, 18, 19, 21, 23, 25, 27, 30, 32, 34, 36} {
		t[n] = true
	}
	return t
}()

func validRouletteBet(b Bet) bool {
	t := b.Target
	switch b.Kind {
	case RouStraight:
		return t <= 36
	case RouSplitH:
		return t >= 1 && t <= 35 && t%3 != 0
	case RouSplitV:
		return t >= 1 && t <= 33
	case RouStreet:
		return t >= 1 && t <= 12
	case RouCorner:
		return t >= 1 && t <= 32 && t%3 != 0
	case RouSixLine:
		return t >= 1 && t <= 11
	case RouDozen, RouColumn:
		return t >= 1 && t <= 3
	case RouRed, RouBlack, RouOdd, RouEven, RouLow, RouHigh:
		return t == 0
	}
	return false
}

func rouletteEvenMoney(kind uint8) bool { return kind >= RouRed }

// rouletteCovers reports whether bet b covers pocket n.
func rouletteCovers(b Bet, n uint8) bool {
	t := b.Target
	if n == 0 {
		return b.Kind == RouStraight && t == 0
	}
	row := (n + 2) / 3
	switch b.Kind {
	case RouStraight:
		return n == t
	case RouSplitH:
		return n == t || n == t+1
	case RouSplitV:
		return n == t || n == t+3
	case RouStreet:
		return row == t
	case RouCorner:
		return n == t || n == t+1 || n == t+3 || n == t+4
	case RouSixLine:
		return row == t || row == t+1
	case RouDozen:
		return (n-1)/12+1 == t
	case RouColumn:
		return (n-1)%3+1 == t
	case RouRed:
		return rouletteRed[n]
	case RouBlack:
		return !rouletteRed[n]
	case RouOdd:
		return n%2 == 1
	case RouEven:
		return n%2 == 0
	case RouLow:
		return n <= 18
	case RouHigh:
		return n >= 19
	}
	return false
}

func spinRoulette(src source) uint8 { return uint8(src.number(37)) }

func settleRoulette(rules Rules, n uint8, bets []Bet) (uint64, Detail) {
	total, outcomes := settleList(bets, rouletteBetName, func(b Bet) uint64 {
		switch {
		case rouletteCovers(b, n):
			return odds(roulettePays[b.Kind]).pay(b.Amount)
		case n == 0 && rules.LaPartage && rouletteEvenMoney(b.Kind):
			return b.Amount / 2
		}
		return 0
	})
	return total, Detail{Stage: "settled", Bets: outcomes, Number: &n}
}

func startRoulette(s *rng.Stream, rules Rules, bet uint64, params []byte) (Result, []byte, error) {
	bets, err := parseBetList(params, bet, maxRouletteBets, validRouletteBet)
	if err != nil {
		return Result{}, nil, err
	}
	payout, d := settleRoulette(rules, spinRoulette(newSource(s)), bets)
	return Result{Wager: bet, Payout: payout, Complete: true, Detail: d}, nil, nil
}

package games

import "github.com/tolelom/casinochain/rng"

const maxSicBoBets = 20

// Sic bo bet kinds. Total takes 4-17, SpecificTriple/SpecificDouble/Single
// take a face 1-6, Combination packs two distinct faces as lo<<4 | hi.
const (
	SicSmall uint8 = iota
	SicBig
	SicOdd
	SicEven
	SicTotal
	SicSpecificTriple
	SicAnyTriple
	SicSpecificDouble
	SicCombination
	SicSingle
)

var sicBoBetNames = [...]string{
	"small", "big", "odd", "even", "total", "specific_triple", "any_triple",
	"specific_double", "combination", "single",
}

func sicBoBetName(k uint8) string {
	if int(k) < len(sicBoBetNames) {
		return sicBoBetNames[k]
	}
	return "unknown"
}

var sicBoTotalPays = map[uint8]uint64{
	4: 60, 5: 30, 6: 17, 7: 12, 8: 8, 9: 6, 10: 6,
	11: 6, 12: 6, 13: 8, 14: 12, 15: 17, 16: 30, 17: 60,
}

var sicBoFixedPays = map[uint8]uint64{
	SicSmall: 1, SicBig: 1, SicOdd: 1, SicEven: 1,
	SicSpecificTriple: 180, SicAnyTriple: 30, SicSpecificDouble: 10, SicCombination: 5,
}

// sicBoSinglePays is indexed by how many dice show the face.
var sicBoSinglePays = [4]uint64{0, 1, 2, 3}

func validSicBoBet(b Bet) bool {
	t := b.Target
	switch b.Kind {
	case SicSmall, SicBig, SicOdd, SicEven, SicAnyTriple:
		return t == 0
	case SicTotal:
		_, ok := sicBoTotalPays[t]
		return ok
	case SicSpecificTriple, SicSpecificDouble, SicSingle:
		return t >= 1 && t <= 6
	case SicCombination:
		lo, hi := t>>4, t&0xF
		return lo >= 1 && hi <= 6 && lo < hi
	}
	return false
}

func sicBoPays(b Bet, dice [3]uint8) uint64 {
	var counts [7]uint8
	for _, d := range dice {
		counts[d]++
	}
	total := dice[0] + dice[1] + dice[2]
	triple := dice[0] == dice[1] && dice[1] == dice[2]
	win := false
	switch b.Kind {
	case SicSmall:
		win = !triple && total >= 4 && total <= 10
	case SicBig:
		win = !triple && total >= 11 && total <= 17
	case SicOdd:
		win = !triple && total%2 == 1
	case SicEven:
		win = !triple && total%2 == 0
	case SicTotal:
		if total == b.Target {
			return odds(sicBoTotalPays[total]).pay(b.Amount)
		}
	case SicSpecificTriple:
		win = triple && dice[0] == b.Target
	case SicAnyTriple:
		win = triple
	case SicSpecificDouble:
		win = counts[b.Target] >= 2
	case SicCombination:
		win = counts[b.Target>>4] > 0 && counts[b.Target&0xF] > 0
	case SicSingle:
		if n := counts[b.Target]; n > 0 {
			return odds(sicBoSinglePays[n]).pay(b.Amount)
		}
	}
	if !win {
		return 0
	}
	return odds(sicBoFixedPays[b.Kind]).pay(b.Amount)
}

func rollSicBo(src source) [3]uint8 { return [3]uint8{src.die(), src.die(), src.die()} }

func settleSicBo(dice [3]uint8, bets []Bet) (uint64, Detail) {
	total, outcomes := settleList(bets, sicBoBetName, func(b Bet) uint64 { return sicBoPays(b, dice) })
	return total, Detail{Stage: "settled", Bets: outcomes, Dice: dice[:]}
}

func startSicBo(s *rng.Stream, bet uint64, params []byte) (Result, []byte, error) {
	bets, err := parseBetList(params, bet, maxSicBoBets, validSicBoBet)
	if err != nil {
		return Result{}, nil, err
	}
	payout, d := settleSicBo(rollSicBo(newSource(s)), bets)
	return Result{Wager: bet, Payout: payout, Complete: true, Detail: d}, nil, nil
}

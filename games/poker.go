package games

import "sort"

// HandRank is a five-card poker category. RoyalFlush is split out of
// StraightFlush so payout tables can index it directly.
type HandRank uint8

const (
	HighCard HandRank = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

var handRankNames = [...]string{
	"high_card", "pair", "two_pair", "three_of_a_kind", "straight",
	"flush", "full_house", "four_of_a_kind", "straight_flush", "royal_flush",
}

func (r HandRank) String() string {
	if int(r) < len(handRankNames) {
		return handRankNames[r]
	}
	return "unknown"
}

// handValue orders hands: category in bits 20+, tiebreak ranks in nibbles.
type handValue uint32

func (v handValue) rank() HandRank { return HandRank(v >> 20) }

// topRank is the first tiebreak rank, i.e. the pair rank for OnePair.
func (v handValue) topRank() uint8 { return uint8(v>>16) & 0xF }

type rankGroup struct {
	count, rank uint8
}

func groupRanks(cs []Card) []rankGroup {
	var counts [13]uint8
	for _, c := range cs {
		counts[c.Rank()]++
	}
	var gs []rankGroup
	for r := 12; r >= 0; r-- {
		if counts[r] > 0 {
			gs = append(gs, rankGroup{count: counts[r], rank: uint8(r)})
		}
	}
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].count > gs[j].count })
	return gs
}

func isFlush(cs []Card) bool {
	for _, c := range cs[1:] {
		if c.Suit() != cs[0].Suit() {
			return false
		}
	}
	return true
}

// straightHigh returns the high rank of a straight over distinct ranks
// (sorted descending) or -1. The ace also plays low.
func straightHigh(gs []rankGroup, size int) int {
	if len(gs) != size {
		return -1
	}
	hi, lo := int(gs[0].rank), int(gs[size-1].rank)
	if hi-lo == size-1 {
		return hi
	}
	// wheel: ace plus the lowest size-1 ranks
	if hi == rankAce && int(gs[1].rank) == size-2 && lo == rankTwo {
		return size - 2
	}
	return -1
}

func packValue(cat HandRank, ranks ...uint8) handValue {
	v := uint32(cat) << 20
	shift := 16
	for _, r := range ranks {
		if shift < 0 {
			break
		}
		v |= uint32(r) << shift
		shift -= 4
	}
	return handValue(v)
}

// evalFive ranks exactly five cards.
func evalFive(cs []Card) handValue {
	gs := groupRanks(cs)
	flush := isFlush(cs)
	high := straightHigh(gs, 5)
	ranks := make([]uint8, len(gs))
	for i, g := range gs {
		ranks[i] = g.rank
	}
	switch {
	case high >= 0 && flush && high == rankAce:
		return packValue(RoyalFlush, uint8(high))
	case high >= 0 && flush:
		return packValue(StraightFlush, uint8(high))
	case gs[0].count == 4:
		return packValue(FourOfAKind, ranks...)
	case gs[0].count == 3 && gs[1].count == 2:
		return packValue(FullHouse, ranks...)
	case flush:
		return packValue(Flush, ranks...)
	case high >= 0:
		return packValue(Straight, uint8(high))
	case gs[0].count == 3:
		return packValue(ThreeOfAKind, ranks...)
	case gs[0].count == 2 && gs[1].count == 2:
		return packValue(TwoPair, ranks...)
	case gs[0].count == 2:
		return packValue(OnePair, ranks...)
	}
	return packValue(HighCard, ranks...)
}

// bestFive picks the strongest five-card hand out of five to seven cards.
func bestFive(cs []Card) (handValue, []Card) {
	n := len(cs)
	var (
		best     handValue
		bestHand []Card
		hand     = make([]Card, 5)
	)
	var pick func(start, depth int)
	pick = func(start, depth int) {
		if depth == 5 {
			if v := evalFive(hand); bestHand == nil || v > best {
				best = v
				bestHand = append([]Card(nil), hand...)
			}
			return
		}
		for i := start; i <= n-(5-depth); i++ {
			hand[depth] = cs[i]
			pick(i+1, depth+1)
		}
	}
	pick(0, 0)
	return best, bestHand
}

// ThreeCardRank is the three-card poker category order, in which a straight
// outranks a flush.
type ThreeCardRank uint8

const (
	TCHighCard ThreeCardRank = iota
	TCPair
	TCFlush
	TCStraight
	TCThreeOfAKind
	TCStraightFlush
)

var threeCardNames = [...]string{"high_card", "pair", "flush", "straight", "three_of_a_kind", "straight_flush"}

func (r ThreeCardRank) String() string {
	if int(r) < len(threeCardNames) {
		return threeCardNames[r]
	}
	return "unknown"
}

type threeValue uint32

func (v threeValue) rank() ThreeCardRank { return ThreeCardRank(v >> 12) }

func evalThree(cs []Card) threeValue {
	gs := groupRanks(cs)
	flush := isFlush(cs)
	high := straightHigh(gs, 3)
	pack := func(cat ThreeCardRank, ranks ...uint8) threeValue {
		v := uint32(cat) << 12
		for i, r := range ranks {
			v |= uint32(r) << (8 - 4*i)
		}
		return threeValue(v)
	}
	ranks := make([]uint8, len(gs))
	for i, g := range gs {
		ranks[i] = g.rank
	}
	switch {
	case high >= 0 && flush:
		return pack(TCStraightFlush, uint8(high))
	case gs[0].count == 3:
		return pack(TCThreeOfAKind, ranks...)
	case high >= 0:
		return pack(TCStraight, uint8(high))
	case flush:
		return pack(TCFlush, ranks...)
	case gs[0].count == 2:
		return pack(TCPair, ranks...)
	}
	return pack(TCHighCard, ranks...)
}

// isMiniRoyal reports an ace-king-queen straight flush.
func isMiniRoyal(cs []Card) bool {
	v := evalThree(cs)
	return v.rank() == TCStraightFlush && uint8(v>>8)&0xF == rankAce
}

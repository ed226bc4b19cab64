package games

import (
	"encoding/binary"
	"fmt"
)

// betSize is the wire size of one catalogue bet: kind, target, amount.
const betSize = 10

// Bet is one entry of a bet list.
type Bet struct {
	Kind   uint8  `json:"kind"`
	Target uint8  `json:"target"`
	Amount uint64 `json:"amount"`
}

func decodeBet(b []byte) Bet {
	return Bet{Kind: b[0], Target: b[1], Amount: binary.BigEndian.Uint64(b[2:10])}
}

func appendBet(dst []byte, b Bet) []byte {
	dst = append(dst, b.Kind, b.Target)
	return binary.BigEndian.AppendUint64(dst, b.Amount)
}

// EncodeBets renders a bet list as [count][bet...].
func EncodeBets(bets []Bet) []byte {
	out := make([]byte, 0, 1+len(bets)*betSize)
	out = append(out, uint8(len(bets)))
	for _, b := range bets {
		out = appendBet(out, b)
	}
	return out
}

// DecodeBets parses an EncodeBets payload without validating kinds.
func DecodeBets(p []byte, max int) ([]Bet, error) {
	if len(p) < 1 {
		return nil, fmt.Errorf("%w: missing bet count", ErrInvalidBet)
	}
	n := int(p[0])
	if n == 0 {
		return nil, fmt.Errorf("%w: empty bet list", ErrInvalidBet)
	}
	if n > max {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyBets, n, max)
	}
	if len(p) != 1+n*betSize {
		return nil, fmt.Errorf("%w: bet list length", ErrInvalidBet)
	}
	out := make([]Bet, n)
	for i := range out {
		out[i] = decodeBet(p[1+i*betSize:])
	}
	return out, nil
}

// parseBetList decodes and validates a list whose amounts must sum to total.
// A zero total skips the sum check.
func parseBetList(p []byte, total uint64, max int, valid func(Bet) bool) ([]Bet, error) {
	bets, err := DecodeBets(p, max)
	if err != nil {
		return nil, err
	}
	var sum uint64
	for _, b := range bets {
		if b.Amount == 0 || !valid(b) {
			return nil, fmt.Errorf("%w: kind %d target %d", ErrInvalidBet, b.Kind, b.Target)
		}
		next := sum + b.Amount
		if next < sum {
			return nil, fmt.Errorf("%w: bet total overflows", ErrInvalidBet)
		}
		sum = next
	}
	if total != 0 && sum != total {
		return nil, fmt.Errorf("%w: bets sum to %d, stake is %d", ErrInvalidBet, sum, total)
	}
	return bets, nil
}

// ValidateBets checks a table bet list for g.
func ValidateBets(g GameType, p []byte) ([]Bet, error) {
	switch g {
	case Baccarat:
		return parseBetList(p, 0, maxBaccaratBets, validBaccaratBet)
	case Roulette:
		return parseBetList(p, 0, maxRouletteBets, validRouletteBet)
	case SicBo:
		return parseBetList(p, 0, maxSicBoBets, validSicBoBet)
	}
	return nil, fmt.Errorf("%w: %s has no table", ErrUnknownGame, g)
}

// SumBets totals a validated bet list.
func SumBets(bets []Bet) uint64 {
	var sum uint64
	for _, b := range bets {
		sum = addChecked(sum, b.Amount)
	}
	return sum
}

// parseSideBet reads the optional side bet of CasinoWar, ThreeCardPoker and
// UltimateHoldem: empty or 8 bytes.
func parseSideBet(p []byte) (uint64, error) {
	switch len(p) {
	case 0:
		return 0, nil
	case 8:
		return binary.BigEndian.Uint64(p), nil
	}
	return 0, fmt.Errorf("%w: side bet must be 0 or 8 bytes", ErrInvalidBet)
}

// EncodeSideBet is the inverse of parseSideBet.
func EncodeSideBet(amount uint64) []byte {
	if amount == 0 {
		return nil
	}
	return binary.BigEndian.AppendUint64(nil, amount)
}

func settleList(bets []Bet, name func(uint8) string, pay func(Bet) uint64) (uint64, []BetOutcome) {
	var total uint64
	out := make([]BetOutcome, len(bets))
	for i, b := range bets {
		p := pay(b)
		total = addChecked(total, p)
		out[i] = BetOutcome{Kind: name(b.Kind), Target: b.Target, Amount: b.Amount, Payout: p, Outcome: outcomeOf(b.Amount, p)}
	}
	return total, out
}

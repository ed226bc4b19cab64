package games

import "fmt"

// Outcome is the settlement of one bet or hand.
type Outcome uint8

const (
	Pending Outcome = iota
	Loss
	Win
	Push
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Push:
		return "push"
	case Loss:
		return "loss"
	case Pending:
		return "pending"
	}
	return fmt.Sprintf("outcome(%d)", uint8(o))
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "win":
		*o = Win
	case "push":
		*o = Push
	case "loss":
		*o = Loss
	case "pending":
		*o = Pending
	default:
		return fmt.Errorf("unknown outcome %q", b)
	}
	return nil
}

func outcomeOf(amount, payout uint64) Outcome {
	switch {
	case payout > amount:
		return Win
	case payout == amount:
		return Push
	}
	return Loss
}

// BetOutcome is the settlement of one catalogue bet.
type BetOutcome struct {
	Kind    string  `json:"kind"`
	Target  uint8   `json:"target,omitempty"`
	Amount  uint64  `json:"amount"`
	Payout  uint64  `json:"payout"`
	Outcome Outcome `json:"outcome"`
}

// Hand is a card hand as shown in events.
type Hand struct {
	Cards   []Card  `json:"cards"`
	Value   uint8   `json:"value,omitempty"`
	Soft    bool    `json:"soft,omitempty"`
	Label   string  `json:"label,omitempty"`
	Bet     uint64  `json:"bet,omitempty"`
	Payout  uint64  `json:"payout,omitempty"`
	Outcome Outcome `json:"outcome,omitempty"`
}

// Detail is the structured settlement attached to game events, detailed
// enough that consumers never re-run rule logic.
type Detail struct {
	Stage      string       `json:"stage,omitempty"`
	Bets       []BetOutcome `json:"bets,omitempty"`
	Player     []Hand       `json:"player,omitempty"`
	Dealer     *Hand        `json:"dealer,omitempty"`
	Community  []Card       `json:"community,omitempty"`
	Dice       []uint8      `json:"dice,omitempty"`
	Number     *uint8       `json:"number,omitempty"`
	Point      uint8        `json:"point,omitempty"`
	Multiplier uint64       `json:"multiplier_bps,omitempty"`
	Streak     uint8        `json:"streak,omitempty"`
}

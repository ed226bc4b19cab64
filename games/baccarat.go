package games

import "github.com/tolelom/casinochain/rng"

const maxBaccaratBets = 11

// Baccarat bet kinds.
const (
	BacPlayer uint8 = iota
	BacBanker
	BacTie
	BacPlayerPair
	BacBankerPair
)

var baccaratBetNames = [...]string{"player", "banker", "tie", "player_pair", "banker_pair"}

func baccaratBetName(k uint8) string {
	if int(k) < len(baccaratBetNames) {
		return baccaratBetNames[k]
	}
	return "unknown"
}

func validBaccaratBet(b Bet) bool { return b.Kind <= BacBankerPair && b.Target == 0 }

// baccaratPays is the winning return per bet kind.
var baccaratPays = [...]ratio{
	BacPlayer:     odds(1),
	BacBanker:     {Num: 95, Den: 100},
	BacTie:        odds(8),
	BacPlayerPair: odds(11),
	BacBankerPair: odds(11),
}

// bankerDraws[b] is a bitmask over the player's third-card point: bit p set
// means a banker on b draws. Bit playerStood covers a player who stood.
var bankerDraws = [8]uint16{
	0: 0x3FF | 1<<10,
	1: 0x3FF | 1<<10,
	2: 0x3FF | 1<<10,
	3: (0x3FF &^ (1 << 8)) | 1<<10,
	4: 0b0011111100 | 1<<10,
	5: 0b0011110000 | 1<<10,
	6: 0b0011000000,
	7: 0,
}

const playerStood = 10

func baccaratPoint(c Card) uint8 {
	switch r := c.Rank(); {
	case r == rankAce:
		return 1
	case r >= rankTen:
		return 0
	default:
		return r + 2
	}
}

func baccaratTotal(cs []Card) uint8 {
	var t uint8
	for _, c := range cs {
		t += baccaratPoint(c)
	}
	return t % 10
}

// baccaratCoup is one dealt coup.
type baccaratCoup struct {
	player, banker []Card
}

func dealBaccarat(src source) baccaratCoup {
	p := []Card{src.card()}
	b := []Card{src.card()}
	p = append(p, src.card())
	b = append(b, src.card())
	pt, bt := baccaratTotal(p), baccaratTotal(b)
	if pt >= 8 || bt >= 8 {
		return baccaratCoup{player: p, banker: b}
	}
	third := uint8(playerStood)
	if pt <= 5 {
		c := src.card()
		p = append(p, c)
		third = baccaratPoint(c)
	}
	if bankerDraws[bt]&(1<<third) != 0 {
		b = append(b, src.card())
	}
	return baccaratCoup{player: p, banker: b}
}

func (c baccaratCoup) pays(b Bet) uint64 {
	pt, bt := baccaratTotal(c.player), baccaratTotal(c.banker)
	win := false
	switch b.Kind {
	case BacPlayer:
		if pt == bt {
			return b.Amount
		}
		win = pt > bt
	case BacBanker:
		if pt == bt {
			return b.Amount
		}
		win = bt > pt
	case BacTie:
		win = pt == bt
	case BacPlayerPair:
		win = c.player[0].Rank() == c.player[1].Rank()
	case BacBankerPair:
		win = c.banker[0].Rank() == c.banker[1].Rank()
	}
	if !win {
		return 0
	}
	return baccaratPays[b.Kind].pay(b.Amount)
}

func (c baccaratCoup) settle(bets []Bet) (uint64, Detail) {
	total, outcomes := settleList(bets, baccaratBetName, c.pays)
	pt, bt := baccaratTotal(c.player), baccaratTotal(c.banker)
	ph := Hand{Cards: c.player, Value: pt, Label: "player"}
	bh := Hand{Cards: c.banker, Value: bt, Label: "banker"}
	switch {
	case pt > bt:
		ph.Outcome, bh.Outcome = Win, Loss
	case bt > pt:
		ph.Outcome, bh.Outcome = Loss, Win
	default:
		ph.Outcome, bh.Outcome = Push, Push
	}
	return total, Detail{Stage: "settled", Bets: outcomes, Player: []Hand{ph}, Dealer: &bh}
}

func startBaccarat(s *rng.Stream, bet uint64, params []byte) (Result, []byte, error) {
	bets, err := parseBetList(params, bet, maxBaccaratBets, validBaccaratBet)
	if err != nil {
		return Result{}, nil, err
	}
	payout, detail := dealBaccarat(newSource(s)).settle(bets)
	return Result{Wager: bet, Payout: payout, Complete: true, Detail: detail}, nil, nil
}

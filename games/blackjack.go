package games

import "github.com/tolelom/casinochain/rng"

// Blackjack actions.
const (
	bjHit uint8 = iota
	bjStand
	bjDouble
	bjSplit
	bjSurrender
)

const (
	bjStagePlayer uint8 = 1
	bjStageDone   uint8 = 2
)

// blackjackRules holds the house rules. The dealer takes no hole card and
// draws its second card only after every player hand is finished.
var blackjackRules = struct {
	naturalPays       ratio
	dealerHitsSoft17  bool
	maxHands          int
	splitTenIsNatural bool
	surrenderReturn   ratio
}{
	naturalPays:       ratio{Num: 3, Den: 2},
	dealerHitsSoft17:  false,
	maxHands:          4,
	splitTenIsNatural: false,
	surrenderReturn:   ratio{Num: 1, Den: 2},
}

type bjHand struct {
	cards     []Card
	bet       uint64
	doubled   bool
	done      bool
	fromSplit bool
	splitAces bool
}

type bjState struct {
	stage  uint8
	active uint8
	acted  bool
	dealer []Card
	hands  []bjHand
}

func bjCardValue(c Card) uint8 {
	switch r := c.Rank(); {
	case r == rankAce:
		return 1
	case r >= rankTen:
		return 10
	default:
		return r + 2
	}
}

// bjTotal returns the best total and whether an ace counts as eleven.
func bjTotal(cs []Card) (uint8, bool) {
	var sum uint8
	ace := false
	for _, c := range cs {
		sum += bjCardValue(c)
		if c.Rank() == rankAce {
			ace = true
		}
	}
	if ace && sum+10 <= 21 {
		return sum + 10, true
	}
	return sum, false
}

// isNatural reports a two-card 21. A split hand never counts unless the
// rules say so.
func isNatural(cs []Card, fromSplit bool) bool {
	if fromSplit && !blackjackRules.splitTenIsNatural {
		return false
	}
	t, _ := bjTotal(cs)
	return len(cs) == 2 && t == 21
}

func dealerShouldDraw(cs []Card) bool {
	t, soft := bjTotal(cs)
	if t < 17 {
		return true
	}
	return t == 17 && soft && blackjackRules.dealerHitsSoft17
}

func (st *bjState) encode() []byte {
	var w writer
	w.u8(st.stage)
	w.u8(st.active)
	w.bool(st.acted)
	w.cards(st.dealer)
	w.u8(uint8(len(st.hands)))
	for _, h := range st.hands {
		w.u64(h.bet)
		var flags uint8
		for i, f := range []bool{h.doubled, h.done, h.fromSplit, h.splitAces} {
			if f {
				flags |= 1 << i
			}
		}
		w.u8(flags)
		w.cards(h.cards)
	}
	return w.buf
}

func decodeBlackjack(b []byte) (*bjState, error) {
	r := reader{buf: b}
	st := &bjState{stage: r.u8(), active: r.u8(), acted: r.bool(), dealer: r.cards()}
	n := int(r.u8())
	if n == 0 || n > blackjackRules.maxHands {
		return nil, ErrCorruptState
	}
	for i := 0; i < n && r.err == nil; i++ {
		h := bjHand{bet: r.u64()}
		flags := r.u8()
		h.doubled, h.done = flags&1 != 0, flags&2 != 0
		h.fromSplit, h.splitAces = flags&4 != 0, flags&8 != 0
		h.cards = r.cards()
		st.hands = append(st.hands, h)
	}
	if err := r.done(); err != nil {
		return nil, err
	}
	if int(st.active) >= len(st.hands) || st.stage != bjStagePlayer {
		return nil, ErrCorruptState
	}
	return st, nil
}

func (st *bjState) known() []Card {
	out := append([]Card(nil), st.dealer...)
	for _, h := range st.hands {
		out = append(out, h.cards...)
	}
	return out
}

func startBlackjack(s *rng.Stream, bet uint64) (Result, []byte, error) {
	return dealBlackjack(newSource(s), bet)
}

func dealBlackjack(src source, bet uint64) (Result, []byte, error) {
	p := []Card{src.card(), src.card()}
	st := &bjState{stage: bjStagePlayer, dealer: []Card{src.card()}, hands: []bjHand{{cards: p, bet: bet}}}
	if isNatural(p, false) {
		// no hole card: the dealer completes its hand right away
		st.dealer = append(st.dealer, src.card())
		payout := blackjackRules.naturalPays.pay(bet)
		outcome := Win
		if isNatural(st.dealer, false) {
			payout, outcome = bet, Push
		}
		st.hands[0].done = true
		res := Result{Wager: bet, Payout: payout, Complete: true, Detail: st.detail("settled")}
		res.Detail.Player[0].Payout = payout
		res.Detail.Player[0].Outcome = outcome
		return res, nil, nil
	}
	return Result{Wager: bet, Detail: st.detail("player_turn")}, st.encode(), nil
}

func moveBlackjack(s *rng.Stream, sess *Session, move []byte) (Result, []byte, error) {
	st, err := decodeBlackjack(sess.State)
	if err != nil {
		return Result{}, nil, err
	}
	return st.act(newSource(s, st.known()...), move[0])
}

func (st *bjState) act(src source, action uint8) (Result, []byte, error) {
	h := &st.hands[st.active]
	var wager uint64
	switch action {
	case bjHit:
		if h.splitAces {
			return Result{}, nil, ErrInvalidMove
		}
		h.cards = append(h.cards, src.card())
		if t, _ := bjTotal(h.cards); t >= 21 {
			h.done = true
		}
	case bjStand:
		h.done = true
	case bjDouble:
		if len(h.cards) != 2 || h.splitAces {
			return Result{}, nil, ErrInvalidMove
		}
		wager = h.bet
		h.bet = addChecked(h.bet, h.bet)
		h.doubled = true
		h.cards = append(h.cards, src.card())
		h.done = true
	case bjSplit:
		if len(h.cards) != 2 || h.cards[0].Rank() != h.cards[1].Rank() || len(st.hands) >= blackjackRules.maxHands {
			return Result{}, nil, ErrInvalidMove
		}
		wager = h.bet
		aces := h.cards[0].Rank() == rankAce
		first := bjHand{cards: []Card{h.cards[0], src.card()}, bet: h.bet, fromSplit: true, splitAces: aces, done: aces}
		second := bjHand{cards: []Card{h.cards[1], src.card()}, bet: h.bet, fromSplit: true, splitAces: aces, done: aces}
		hands := make([]bjHand, 0, len(st.hands)+1)
		hands = append(hands, st.hands[:st.active]...)
		hands = append(hands, first, second)
		st.hands = append(hands, st.hands[st.active+1:]...)
	case bjSurrender:
		if st.acted || len(st.hands) != 1 || len(h.cards) != 2 {
			return Result{}, nil, ErrInvalidMove
		}
		h.done = true
		payout := mulDiv(h.bet, blackjackRules.surrenderReturn.Num, blackjackRules.surrenderReturn.Den)
		res := Result{Payout: payout, Complete: true, Detail: st.detail("surrendered")}
		res.Detail.Player[0].Payout = payout
		res.Detail.Player[0].Label = "surrender"
		return res, nil, nil
	default:
		return Result{}, nil, ErrInvalidMove
	}
	st.acted = true
	for int(st.active) < len(st.hands) && st.hands[st.active].done {
		st.active++
	}
	if int(st.active) < len(st.hands) {
		return Result{Wager: wager, Detail: st.detail("player_turn")}, st.encode(), nil
	}
	res := st.finish(src)
	res.Wager = wager
	return res, nil, nil
}

// finish plays the dealer hand and settles every player hand.
func (st *bjState) finish(src source) Result {
	st.stage = bjStageDone
	live := false
	for _, h := range st.hands {
		if t, _ := bjTotal(h.cards); t <= 21 {
			live = true
		}
	}
	st.dealer = append(st.dealer, src.card())
	for live && dealerShouldDraw(st.dealer) {
		st.dealer = append(st.dealer, src.card())
	}
	res := Result{Complete: true, Detail: st.detail("settled")}
	for i, h := range st.hands {
		p := settleBlackjackHand(h, st.dealer)
		res.Payout = addChecked(res.Payout, p)
		res.Detail.Player[i].Payout = p
		res.Detail.Player[i].Outcome = outcomeOf(h.bet, p)
	}
	return res
}

// settleBlackjackHand returns the credit for a finished hand. Player
// naturals are settled at the deal, so a dealer natural beats every hand
// reaching this point, including a split ace plus ten.
func settleBlackjackHand(h bjHand, dealer []Card) uint64 {
	pt, _ := bjTotal(h.cards)
	dt, _ := bjTotal(dealer)
	switch {
	case pt > 21:
		return 0
	case isNatural(dealer, false):
		if isNatural(h.cards, h.fromSplit) {
			return h.bet
		}
		return 0
	case dt > 21, pt > dt:
		return odds(1).pay(h.bet)
	case pt == dt:
		return h.bet
	}
	return 0
}

func bjLabel(cs []Card, fromSplit bool) string {
	t, _ := bjTotal(cs)
	switch {
	case isNatural(cs, fromSplit):
		return "blackjack"
	case t > 21:
		return "bust"
	}
	return ""
}

func (st *bjState) detail(stage string) Detail {
	d := Detail{Stage: stage}
	for _, h := range st.hands {
		t, soft := bjTotal(h.cards)
		d.Player = append(d.Player, Hand{
			Cards: append([]Card(nil), h.cards...), Value: t, Soft: soft,
			Label: bjLabel(h.cards, h.fromSplit), Bet: h.bet,
		})
	}
	t, soft := bjTotal(st.dealer)
	d.Dealer = &Hand{Cards: append([]Card(nil), st.dealer...), Value: t, Soft: soft, Label: bjLabel(st.dealer, false)}
	return d
}

package games

import (
	"fmt"
	"math/bits"

	"github.com/tolelom/casinochain/rng"
)

// Card is 0..51. Rank is c%13 with 0 = deuce and 12 = ace; suit is c/13.
type Card uint8

const numCards = 52

const (
	rankTwo   = 0
	rankTen   = 8
	rankJack  = 9
	rankQueen = 10
	rankKing  = 11
	rankAce   = 12
)

const (
	rankChars = "23456789TJQKA"
	suitChars = "cdhs"
)

func (c Card) Rank() uint8 { return uint8(c) % 13 }
func (c Card) Suit() uint8 { return uint8(c) / 13 }

func (c Card) String() string {
	if c >= numCards {
		return "??"
	}
	return string([]byte{rankChars[c.Rank()], suitChars[c.Suit()]})
}

// MarshalText renders the card as rank and suit, e.g. "As".
func (c Card) MarshalText() ([]byte, error) {
	if c >= numCards {
		return nil, fmt.Errorf("card %d out of range", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText parses the MarshalText form.
func (c *Card) UnmarshalText(b []byte) error {
	p, err := ParseCard(string(b))
	if err != nil {
		return err
	}
	*c = p
	return nil
}

// ParseCard parses a two-character card such as "Td".
func ParseCard(s string) (Card, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("bad card %q", s)
	}
	r, u := -1, -1
	for i := 0; i < len(rankChars); i++ {
		if rankChars[i] == s[0] {
			r = i
		}
	}
	for i := 0; i < len(suitChars); i++ {
		if suitChars[i] == s[1] {
			u = i
		}
	}
	if r < 0 || u < 0 {
		return 0, fmt.Errorf("bad card %q", s)
	}
	return Card(u*13 + r), nil
}

// Deck tracks which cards of a single 52-card deck are out.
type Deck struct {
	used uint64
}

// Remove marks cards as dealt.
func (d *Deck) Remove(cs ...Card) {
	for _, c := range cs {
		d.used |= 1 << c
	}
}

// Remaining counts undealt cards.
func (d *Deck) Remaining() int {
	return numCards - bits.OnesCount64(d.used)
}

// Draw picks uniformly among undealt cards and removes it.
func (d *Deck) Draw(s *rng.Stream) Card {
	left := d.Remaining()
	if left == 0 {
		panic("games: deck exhausted")
	}
	idx := int(s.Uniform(uint32(left)))
	for c := Card(0); c < numCards; c++ {
		if d.used&(1<<c) != 0 {
			continue
		}
		if idx == 0 {
			d.used |= 1 << c
			return c
		}
		idx--
	}
	panic("games: deck accounting")
}

// source supplies randomness to the rule engines. Production code wraps an
// rng.Stream and a Deck; tests script exact outcomes.
type source interface {
	card() Card
	die() uint8
	number(n uint32) uint32
}

type streamSource struct {
	s    *rng.Stream
	deck Deck
}

func newSource(s *rng.Stream, known ...Card) *streamSource {
	src := &streamSource{s: s}
	src.deck.Remove(known...)
	return src
}

func (src *streamSource) card() Card            { return src.deck.Draw(src.s) }
func (src *streamSource) die() uint8            { return src.s.Die(6) }
func (src *streamSource) number(n uint32) uint32 { return src.s.Uniform(n) }

func drawN(src source, n int) []Card {
	out := make([]Card, n)
	for i := range out {
		out[i] = src.card()
	}
	return out
}

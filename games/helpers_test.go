package games

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// scripted is a source that replays fixed outcomes in order.
type scripted struct {
	cards []Card
	dice  []uint8
	nums  []uint32
}

func (s *scripted) card() Card {
	c := s.cards[0]
	s.cards = s.cards[1:]
	return c
}

func (s *scripted) die() uint8 {
	d := s.dice[0]
	s.dice = s.dice[1:]
	return d
}

func (s *scripted) number(uint32) uint32 {
	n := s.nums[0]
	s.nums = s.nums[1:]
	return n
}

func cardList(t *testing.T, names ...string) []Card {
	t.Helper()
	out := make([]Card, len(names))
	for i, n := range names {
		c, err := ParseCard(n)
		require.NoError(t, err)
		out[i] = c
	}
	return out
}

func deal(t *testing.T, names ...string) *scripted {
	return &scripted{cards: cardList(t, names...)}
}

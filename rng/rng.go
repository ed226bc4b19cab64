// Package rng derives reproducible byte streams from a consensus-committed
// seed. A stream is a SHA-256 hash chain: the first block is
// SHA-256(seed || BE64(session) || BE64(move)) and every following block is
// SHA-256 of the previous one. Bytes are consumed one at a time and every
// selection helper samples by integer rejection, never floating point.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// SeedSize is the length of a committed block seed.
const SeedSize = 48

// Seed is the per-block random value supplied by consensus.
type Seed [SeedSize]byte

// Hex returns the hex form of the seed.
func (s Seed) Hex() string { return hex.EncodeToString(s[:]) }

func (s Seed) MarshalText() ([]byte, error) { return []byte(s.Hex()), nil }

func (s *Seed) UnmarshalText(b []byte) error {
	v, err := SeedFromHex(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// SeedFromHex parses a hex-encoded seed.
func SeedFromHex(s string) (Seed, error) {
	var out Seed
	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("invalid seed hex: %w", err)
	}
	if len(b) != SeedSize {
		return out, fmt.Errorf("seed must be %d bytes, got %d", SeedSize, len(b))
	}
	copy(out[:], b)
	return out, nil
}

// Stream is a chained hash-drip generator. It is not safe for concurrent use.
type Stream struct {
	block [sha256.Size]byte
	pos   int
	drawn uint64
}

// Derive returns the stream for (seed, sessionID, move).
func Derive(seed Seed, sessionID, move uint64) *Stream {
	var buf [SeedSize + 16]byte
	copy(buf[:SeedSize], seed[:])
	binary.BigEndian.PutUint64(buf[SeedSize:], sessionID)
	binary.BigEndian.PutUint64(buf[SeedSize+8:], move)
	return &Stream{block: sha256.Sum256(buf[:])}
}

// NextByte returns the next byte, re-hashing when the block is exhausted.
func (s *Stream) NextByte() byte {
	if s.pos == len(s.block) {
		s.block = sha256.Sum256(s.block[:])
		s.pos = 0
	}
	b := s.block[s.pos]
	s.pos++
	s.drawn++
	return b
}

// Read fills p from the stream. It never fails.
func (s *Stream) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = s.NextByte()
	}
	return len(p), nil
}

// Drawn reports how many bytes have been consumed.
func (s *Stream) Drawn() uint64 { return s.drawn }

// Uniform returns a value in [0, n) with no modulo bias. It reads the
// fewest whole bytes that cover n and rejects values in the biased tail.
// n must be positive.
func (s *Stream) Uniform(n uint32) uint32 {
	if n == 0 {
		panic("rng: Uniform with n == 0")
	}
	if n == 1 {
		return 0
	}
	width := 1
	for span := uint64(256); span < uint64(n); span <<= 8 {
		width++
	}
	span := uint64(1) << (8 * width)
	limit := span - span%uint64(n)
	for {
		var v uint64
		for i := 0; i < width; i++ {
			v = v<<8 | uint64(s.NextByte())
		}
		if v < limit {
			return uint32(v % uint64(n))
		}
	}
}

// Die rolls a die with the given number of sides and returns 1..sides.
func (s *Stream) Die(sides uint32) uint8 {
	return uint8(s.Uniform(sides) + 1)
}

// Shuffle permutes n elements in place using Fisher-Yates.
func (s *Stream) Shuffle(n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := int(s.Uniform(uint32(i + 1)))
		swap(i, j)
	}
}

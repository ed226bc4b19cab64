package games

import (
	"encoding/binary"
	"math/bits"
)

// writer and reader encode state blobs. Integers are big-endian and card
// lists are length-prefixed with one byte.
type writer struct {
	buf []byte
}

func (w *writer) u8(v uint8) { w.buf = append(w.buf, v) }

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

func (w *writer) u64(v uint64) { w.buf = binary.BigEndian.AppendUint64(w.buf, v) }

func (w *writer) cards(cs []Card) {
	w.u8(uint8(len(cs)))
	for _, c := range cs {
		w.u8(uint8(c))
	}
}

type reader struct {
	buf []byte
	err error
}

func (r *reader) u8() uint8 {
	if r.err != nil || len(r.buf) < 1 {
		r.err = ErrCorruptState
		return 0
	}
	v := r.buf[0]
	r.buf = r.buf[1:]
	return v
}

func (r *reader) bool() bool {
	v := r.u8()
	if v > 1 {
		r.err = ErrCorruptState
	}
	return v == 1
}

func (r *reader) u64() uint64 {
	if r.err != nil || len(r.buf) < 8 {
		r.err = ErrCorruptState
		return 0
	}
	v := binary.BigEndian.Uint64(r.buf)
	r.buf = r.buf[8:]
	return v
}

func (r *reader) cards() []Card {
	n := int(r.u8())
	if r.err != nil {
		return nil
	}
	if n > len(r.buf) || n > numCards {
		r.err = ErrCorruptState
		return nil
	}
	out := make([]Card, n)
	for i := range out {
		c := r.u8()
		if c >= numCards {
			r.err = ErrCorruptState
		}
		out[i] = Card(c)
	}
	return out
}

// done reports the first decode error, or ErrCorruptState on trailing bytes.
func (r *reader) done() error {
	if r.err == nil && len(r.buf) != 0 {
		return ErrCorruptState
	}
	return r.err
}

// addChecked and mulDiv panic on overflow. The pipeline turns panics into
// failed instructions, so an overflow can never commit.
func addChecked(a, b uint64) uint64 {
	s, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		panic("games: uint64 overflow")
	}
	return s
}

// mulDiv returns a*num/den using a 128-bit intermediate.
func mulDiv(a, num, den uint64) uint64 {
	hi, lo := bits.Mul64(a, num)
	if hi >= den {
		panic("games: uint64 overflow")
	}
	q, _ := bits.Div64(hi, lo, den)
	return q
}

// ratio is a payout of Num:Den on top of the returned stake.
type ratio struct {
	Num, Den uint64
}

// pay returns stake plus winnings at r.
func (r ratio) pay(stake uint64) uint64 {
	return addChecked(stake, mulDiv(stake, r.Num, r.Den))
}

func odds(n uint64) ratio { return ratio{Num: n, Den: 1} }

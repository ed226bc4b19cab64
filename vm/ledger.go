package vm

import (
	"math"
	"math/bits"

	"github.com/tolelom/casinochain/core"
)

// Add returns a+b or an overflow domain error.
func Add(a, b uint64) (uint64, error) {
	s, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, core.NewError(core.CodeOverflow, "%d + %d overflows", a, b)
	}
	return s, nil
}

// Sub returns a-b or an insufficient-funds domain error.
func Sub(a, b uint64, what string) (uint64, error) {
	if b > a {
		return 0, core.NewError(core.CodeInsufficientFunds, "%s: have %d, need %d", what, a, b)
	}
	return a - b, nil
}

// Credit adds amount to *bal.
func Credit(bal *uint64, amount uint64) error {
	v, err := Add(*bal, amount)
	if err != nil {
		return err
	}
	*bal = v
	return nil
}

// Debit removes amount from *bal.
func Debit(bal *uint64, amount uint64, what string) error {
	v, err := Sub(*bal, amount, what)
	if err != nil {
		return err
	}
	*bal = v
	return nil
}

// AddPnL applies a signed delta to the house net P&L.
func AddPnL(h *core.House, delta int64) error {
	if (delta > 0 && h.NetPnL > math.MaxInt64-delta) || (delta < 0 && h.NetPnL < math.MinInt64-delta) {
		return core.NewError(core.CodeOverflow, "net pnl overflow")
	}
	h.NetPnL += delta
	return nil
}

// SignedDelta returns in-out as int64, failing if it does not fit.
func SignedDelta(in, out uint64) (int64, error) {
	if in >= out {
		d := in - out
		if d > math.MaxInt64 {
			return 0, core.NewError(core.CodeOverflow, "delta %d exceeds int64", d)
		}
		return int64(d), nil
	}
	d := out - in
	if d > math.MaxInt64 {
		return 0, core.NewError(core.CodeOverflow, "delta -%d exceeds int64", d)
	}
	return -int64(d), nil
}

// Settle moves the house side of a settlement into supply accounting. The
// house took in chips and paid out chips; the difference is burned when
// positive and issued when negative, and added to net P&L.
func Settle(h *core.House, in, out uint64) (int64, error) {
	delta, err := SignedDelta(in, out)
	if err != nil {
		return 0, err
	}
	if err := AddPnL(h, delta); err != nil {
		return 0, err
	}
	if delta >= 0 {
		err = Credit(&h.TotalBurned, uint64(delta))
	} else {
		err = Credit(&h.TotalIssued, uint64(-delta))
	}
	return delta, err
}

// Package economy holds the integer math behind the AMM, the vaults and the
// staking accumulator. Intermediate products run on 256-bit integers so no
// rounding or overflow behavior depends on the platform.
package economy

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// BpsDenominator is one whole in basis points.
const BpsDenominator = 10_000

// SecondsPerYear is the interest year used by vault accrual.
const SecondsPerYear = 31_536_000

var (
	ErrZeroAmount            = errors.New("amount must be positive")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	ErrSlippage              = errors.New("output below minimum")
	ErrOverflow              = errors.New("arithmetic overflow")
	ErrBadBps                = errors.New("basis points out of range")
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

// mulDiv returns floor(a*b/d) and fails when the quotient leaves uint64.
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrInsufficientLiquidity
	}
	q, overflow := new(uint256.Int).MulDivOverflow(u(a), u(b), u(d))
	if overflow || !q.IsUint64() {
		return 0, ErrOverflow
	}
	return q.Uint64(), nil
}

// mulDivUp is mulDiv rounded toward positive infinity.
func mulDivUp(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrInsufficientLiquidity
	}
	prod := new(uint256.Int).Mul(u(a), u(b))
	q, r := new(uint256.Int).DivMod(prod, u(d), new(uint256.Int))
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	if !q.IsUint64() {
		return 0, ErrOverflow
	}
	return q.Uint64(), nil
}

// Bps returns floor(amount*bps/10000). Every caller passes a rate of at most
// BpsDenominator (Policy.Validate bounds the adjustable ones), so the result
// never exceeds amount; a larger rate is a programming error and panics.
func Bps(amount, bps uint64) uint64 {
	if bps > BpsDenominator {
		panic(fmt.Sprintf("economy: rate %d bps above %d", bps, BpsDenominator))
	}
	v, err := mulDiv(amount, bps, BpsDenominator)
	if err != nil {
		panic(err)
	}
	return v
}

// AddU64 adds with an overflow check.
func AddU64(a, b uint64) (uint64, error) {
	s := a + b
	if s < a {
		return 0, ErrOverflow
	}
	return s, nil
}

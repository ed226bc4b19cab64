package economy

import (
	"math"

	"github.com/holiman/uint256"
)

// MaxLTV is reported for a position with debt and no collateral value.
const MaxLTV = math.MaxUint64

// CollateralValue prices chips at the pool spot rate, in stable units.
func CollateralValue(collateral, reserveChips, reserveStable uint64) uint64 {
	if reserveChips == 0 {
		return 0
	}
	v, err := mulDiv(collateral, reserveStable, reserveChips)
	if err != nil {
		return math.MaxUint64
	}
	return v
}

// LTVBps returns ceil(debt*1e4/value). Rounding up means a position never
// looks safer than it is.
func LTVBps(debt, value uint64) uint64 {
	if debt == 0 {
		return 0
	}
	if value == 0 {
		return MaxLTV
	}
	v, err := mulDivUp(debt, BpsDenominator, value)
	if err != nil {
		return MaxLTV
	}
	return v
}

// MaxBorrow returns the largest total debt allowed at ceilingBps.
func MaxBorrow(value, ceilingBps uint64) uint64 {
	return Bps(value, ceilingBps)
}

// Interest returns debt*rateBps*elapsed / (1e4 * SecondsPerYear).
func Interest(debt, rateBps, elapsed uint64) (uint64, error) {
	num := new(uint256.Int).Mul(u(debt), u(rateBps))
	num.Mul(num, u(elapsed))
	num.Div(num, u(BpsDenominator*SecondsPerYear))
	if !num.IsUint64() {
		return 0, ErrOverflow
	}
	return num.Uint64(), nil
}

// Liquidation is a planned partial unwind.
type Liquidation struct {
	Repay           uint64 `json:"repay"`
	Seized          uint64 `json:"seized"`
	SeizedBase      uint64 `json:"seized_base"`
	Penalty         uint64 `json:"penalty"`
	LiquidatorShare uint64 `json:"liquidator_share"`
	PoolShare       uint64 `json:"pool_share"`
}

// LiquidationParams are the policy inputs of PlanLiquidation.
type LiquidationParams struct {
	TargetBps          uint64
	PenaltyBps         uint64
	LiquidatorShareBps uint64
}

// PlanLiquidation computes the debt x to repay so the position lands on
// the target LTV t after seizing collateral worth x*(1+p):
//
//	(D - x) / (V - x(1+p)) = t
//	x = (1e8*D - 1e4*t*V) / (1e8 - t*(1e4+p))
//
// with t and p in bps and x rounded up. If the collateral cannot cover the
// seizure the whole position is closed. Seized chips are priced through
// collateral/value, i.e. the pool spot price.
func PlanLiquidation(debt, collateral, value uint64, p LiquidationParams) (Liquidation, error) {
	if debt == 0 || collateral == 0 {
		return Liquidation{}, ErrZeroAmount
	}
	if value == 0 {
		return Liquidation{}, ErrInsufficientLiquidity
	}
	t, pen := p.TargetBps, p.PenaltyBps
	den := uint256.NewInt(1e8)
	tp := new(uint256.Int).Mul(u(t), u(BpsDenominator+pen))
	if !tp.Lt(den) {
		return Liquidation{}, ErrBadBps
	}
	den.Sub(den, tp)

	num := new(uint256.Int).Mul(u(debt), u(1e8))
	tv := new(uint256.Int).Mul(u(t), u(value))
	tv.Mul(tv, u(BpsDenominator))
	var repay uint64
	if num.Gt(tv) {
		num.Sub(num, tv)
		q, r := new(uint256.Int).DivMod(num, den, new(uint256.Int))
		if !r.IsZero() {
			q.AddUint64(q, 1)
		}
		if q.IsUint64() {
			repay = min(q.Uint64(), debt)
		} else {
			repay = debt
		}
	}
	if repay == 0 {
		return Liquidation{}, nil
	}

	// chips seized = x * (1e4+p) * C / (1e4 * V)
	seized := new(uint256.Int).Mul(u(repay), u(BpsDenominator+pen))
	seized.Mul(seized, u(collateral))
	seized.Div(seized, new(uint256.Int).Mul(u(BpsDenominator), u(value)))
	if !seized.IsUint64() || seized.Uint64() > collateral {
		// collateral is short: close out. The repay is whatever the full
		// collateral covers at the penalty rate, capped by the debt.
		cover, err := mulDiv(value, BpsDenominator, BpsDenominator+pen)
		if err != nil {
			return Liquidation{}, err
		}
		repay = min(cover, debt)
		seized.SetUint64(collateral)
	}
	l := Liquidation{Repay: repay, Seized: seized.Uint64()}
	base, err := mulDiv(repay, collateral, value)
	if err != nil || base > l.Seized {
		base = l.Seized
	}
	l.SeizedBase = base
	l.Penalty = l.Seized - base
	l.LiquidatorShare = Bps(l.Penalty, p.LiquidatorShareBps)
	l.PoolShare = l.Penalty - l.LiquidatorShare
	return l, nil
}

package economy

import "github.com/holiman/uint256"

// AccScale is the fixed-point scale of the reward-per-share accumulator.
var AccScale = uint256.NewInt(1_000_000_000_000_000_000)

// Zero returns a fresh zero accumulator value.
func Zero() *uint256.Int { return new(uint256.Int) }

// Or returns v, or zero when v is nil. Decoded records may carry nil.
func Or(v *uint256.Int) *uint256.Int {
	if v == nil {
		return Zero()
	}
	return v
}

// EpochReward is the stakers' cut of a house profit delta. Losses and flat
// epochs pay nothing.
func EpochReward(delta int64, shareBps uint64) uint64 {
	if delta <= 0 {
		return 0
	}
	return Bps(uint64(delta), shareBps)
}

// AddReward returns acc + reward*1e18/totalStaked. With nothing staked the
// accumulator is unchanged.
func AddReward(acc *uint256.Int, reward, totalStaked uint64) *uint256.Int {
	out := new(uint256.Int).Set(Or(acc))
	if reward == 0 || totalStaked == 0 {
		return out
	}
	inc := new(uint256.Int).Mul(u(reward), AccScale)
	inc.Div(inc, u(totalStaked))
	return out.Add(out, inc)
}

// Accrued returns stake*acc/1e18, the reward earned since genesis of the
// accumulator by a position of this size.
func Accrued(stake uint64, acc *uint256.Int) *uint256.Int {
	v := new(uint256.Int).Mul(u(stake), Or(acc))
	return v.Div(v, AccScale)
}

// Pending returns Accrued(stake, acc) - debt, floored at zero.
func Pending(stake uint64, acc, debt *uint256.Int) uint64 {
	a := Accrued(stake, acc)
	d := Or(debt)
	if !a.Gt(d) {
		return 0
	}
	a.Sub(a, d)
	if !a.IsUint64() {
		return 0
	}
	return a.Uint64()
}

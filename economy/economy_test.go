package economy

import (
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestSwapClosedForm(t *testing.T) {
	q, err := QuoteSwap(100_000, 50_000, 1_000, 30, 500)
	require.NoError(t, err)
	require.EqualValues(t, 3, q.Fee)
	require.EqualValues(t, 50, q.Tax)
	require.EqualValues(t, 947, q.NetIn)
	require.EqualValues(t, 50_000*947/(100_000+947), q.Out)
	require.EqualValues(t, 469, q.Out)
	require.NoError(t, q.CheckMinOut(469))
	require.ErrorIs(t, q.CheckMinOut(470), ErrSlippage)
}

func TestSwapNeverShrinksProduct(t *testing.T) {
	type pool struct{ a, b uint64 }
	cases := []struct {
		p   pool
		in  uint64
		fee uint64
		tax uint64
	}{
		{pool{100_000, 50_000}, 1_000, 30, 500},
		{pool{1_000_000, 1_000_000}, 999_999, 0, 0},
		{pool{7, 13}, 5, 30, 0},
		{pool{1 << 40, 1 << 20}, 1 << 30, 100, 200},
		{pool{500, 500_000}, 1, 0, 0},
	}
	for _, c := range cases {
		q, err := QuoteSwap(c.p.a, c.p.b, c.in, c.fee, c.tax)
		if err != nil {
			require.ErrorIs(t, err, ErrInsufficientLiquidity)
			continue
		}
		before := Product(c.p.a, c.p.b)
		after := Product(c.p.a+q.NetIn, c.p.b-q.Out)
		require.False(t, after.Lt(before), "product shrank for %+v", c)
	}
}

func TestSwapRejects(t *testing.T) {
	_, err := QuoteSwap(100, 100, 0, 30, 0)
	require.ErrorIs(t, err, ErrZeroAmount)
	_, err = QuoteSwap(0, 100, 10, 30, 0)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
	_, err = QuoteSwap(100, 100, 10, 5_000, 5_000)
	require.ErrorIs(t, err, ErrBadBps)
}

func TestLiquidityProportional(t *testing.T) {
	first, err := QuoteAddLiquidity(0, 0, 0, 10_000, 40_000)
	require.NoError(t, err)
	require.EqualValues(t, 20_000-MinimumLiquidity, first.Shares)
	require.EqualValues(t, 20_000, first.Minted())
	_, err = QuoteAddLiquidity(0, 0, 0, 1_000, 1_000)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)

	q, err := QuoteAddLiquidity(10_000, 40_000, 20_000, 1_000, 10_000)
	require.NoError(t, err)
	require.EqualValues(t, 2_000, q.Shares)
	require.EqualValues(t, 1_000, q.UsedA)
	require.EqualValues(t, 4_000, q.UsedB)

	a, b, err := QuoteRemoveLiquidity(11_000, 44_000, 22_000, 2_000)
	require.NoError(t, err)
	require.EqualValues(t, 1_000, a)
	require.EqualValues(t, 4_000, b)
	_, _, err = QuoteRemoveLiquidity(11_000, 44_000, 22_000, 22_001)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestLTVRoundsUp(t *testing.T) {
	require.EqualValues(t, 0, LTVBps(0, 100))
	require.EqualValues(t, 3_334, LTVBps(1, 3))
	require.EqualValues(t, MaxLTV, LTVBps(1, 0))
	require.EqualValues(t, 5_000, CollateralValue(10_000, 100_000, 50_000))
	require.EqualValues(t, 3_000, MaxBorrow(10_000, 3_000))
}

func TestInterestAccrual(t *testing.T) {
	i, err := Interest(1_000_000, 1_000, SecondsPerYear)
	require.NoError(t, err)
	require.EqualValues(t, 100_000, i)
	i, err = Interest(1_000, 500, 60)
	require.NoError(t, err)
	require.Zero(t, i)
}

func TestLiquidationReturnsToTarget(t *testing.T) {
	params := LiquidationParams{TargetBps: 4_500, PenaltyBps: 1_000, LiquidatorShareBps: 5_000}
	l, err := PlanLiquidation(6_100, 10_000, 10_000, params)
	require.NoError(t, err)
	require.EqualValues(t, 3_169, l.Repay)
	require.EqualValues(t, 3_485, l.Seized)
	require.EqualValues(t, 3_169, l.SeizedBase)
	require.EqualValues(t, l.Seized-l.SeizedBase, l.Penalty)
	require.EqualValues(t, l.Penalty, l.LiquidatorShare+l.PoolShare)

	ltv := LTVBps(6_100-l.Repay, 10_000-l.Seized)
	require.LessOrEqual(t, ltv, uint64(4_500))
	require.Greater(t, ltv, uint64(4_400))
}

func TestLiquidationUnderwaterClosesOut(t *testing.T) {
	params := LiquidationParams{TargetBps: 4_500, PenaltyBps: 1_000, LiquidatorShareBps: 5_000}
	l, err := PlanLiquidation(12_000, 10_000, 10_000, params)
	require.NoError(t, err)
	require.EqualValues(t, 10_000, l.Seized)
	require.EqualValues(t, 9_090, l.Repay)
	require.LessOrEqual(t, l.SeizedBase, l.Seized)

	_, err = PlanLiquidation(100, 100, 0, params)
	require.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestStakingAccumulator(t *testing.T) {
	require.Zero(t, EpochReward(-50, 2_000))
	require.EqualValues(t, 200, EpochReward(1_000, 2_000))

	acc := AddReward(nil, 200, 1_000)
	require.Equal(t, new(uint256.Int).Div(new(uint256.Int).Mul(uint256.NewInt(200), AccScale), uint256.NewInt(1_000)), acc)
	require.EqualValues(t, 50, Pending(250, acc, nil))
	require.EqualValues(t, 150, Pending(750, acc, nil))

	debt := Accrued(250, acc)
	require.Zero(t, Pending(250, acc, debt))
	acc = AddReward(acc, 100, 1_000)
	require.EqualValues(t, 25, Pending(250, acc, debt))
	require.Equal(t, acc, AddReward(acc, 100, 0))
}

func TestBps(t *testing.T) {
	require.EqualValues(t, 30, Bps(10_000, 30))
	require.EqualValues(t, 0, Bps(333, 3))
	require.Equal(t, uint64(math.MaxUint64), Bps(math.MaxUint64, BpsDenominator))
	require.Panics(t, func() { Bps(1, BpsDenominator+1) })
}

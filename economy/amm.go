package economy

import (
	"github.com/holiman/uint256"
)

// SwapQuote is the breakdown of one constant-product swap. Fee and Tax are
// both taken from the gross input before the curve sees it.
type SwapQuote struct {
	AmountIn uint64 `json:"amount_in"`
	Fee      uint64 `json:"fee"`
	Tax      uint64 `json:"tax"`
	NetIn    uint64 `json:"net_in"`
	Out      uint64 `json:"out"`
}

// QuoteSwap prices a swap of amountIn against the reserves:
//
//	out = reserveOut * netIn / (reserveIn + netIn)
//	netIn = amountIn - amountIn*feeBps/1e4 - amountIn*taxBps/1e4
func QuoteSwap(reserveIn, reserveOut, amountIn, feeBps, taxBps uint64) (SwapQuote, error) {
	if amountIn == 0 {
		return SwapQuote{}, ErrZeroAmount
	}
	if feeBps+taxBps >= BpsDenominator {
		return SwapQuote{}, ErrBadBps
	}
	if reserveIn == 0 || reserveOut == 0 {
		return SwapQuote{}, ErrInsufficientLiquidity
	}
	q := SwapQuote{AmountIn: amountIn, Fee: Bps(amountIn, feeBps), Tax: Bps(amountIn, taxBps)}
	q.NetIn = amountIn - q.Fee - q.Tax
	if q.NetIn == 0 {
		return SwapQuote{}, ErrZeroAmount
	}
	den := new(uint256.Int).Add(u(reserveIn), u(q.NetIn))
	out := new(uint256.Int).Mul(u(reserveOut), u(q.NetIn))
	out.Div(out, den)
	q.Out = out.Uint64()
	if q.Out == 0 || q.Out >= reserveOut {
		return SwapQuote{}, ErrInsufficientLiquidity
	}
	return q, nil
}

// CheckMinOut enforces the caller's slippage bound.
func (q SwapQuote) CheckMinOut(minOut uint64) error {
	if q.Out < minOut {
		return ErrSlippage
	}
	return nil
}

// Product returns a*b as a 256-bit integer.
func Product(a, b uint64) *uint256.Int {
	return new(uint256.Int).Mul(u(a), u(b))
}

// MinimumLiquidity is the share count locked forever on the first
// provision, so the reserves can never be withdrawn to zero.
const MinimumLiquidity = 1_000

// LiquidityQuote is the outcome of adding liquidity. Locked shares are
// added to the pool total but owned by nobody.
type LiquidityQuote struct {
	Shares uint64 `json:"shares"`
	Locked uint64 `json:"locked,omitempty"`
	UsedA  uint64 `json:"used_a"`
	UsedB  uint64 `json:"used_b"`
}

// Minted is the total the pool's share supply grows by.
func (q LiquidityQuote) Minted() uint64 { return q.Shares + q.Locked }

// QuoteAddLiquidity prices a deposit of up to (a, b). The first provider
// sets the price and receives sqrt(a*b) shares less MinimumLiquidity; later providers receive
// shares proportional to the scarcer side and deposit the matching amounts,
// rounded up so existing holders are never diluted.
func QuoteAddLiquidity(reserveA, reserveB, totalShares, a, b uint64) (LiquidityQuote, error) {
	if a == 0 || b == 0 {
		return LiquidityQuote{}, ErrZeroAmount
	}
	if totalShares == 0 {
		s := new(uint256.Int).Sqrt(Product(a, b))
		if !s.IsUint64() || s.Uint64() <= MinimumLiquidity {
			return LiquidityQuote{}, ErrInsufficientLiquidity
		}
		return LiquidityQuote{Shares: s.Uint64() - MinimumLiquidity, Locked: MinimumLiquidity, UsedA: a, UsedB: b}, nil
	}
	if reserveA == 0 || reserveB == 0 {
		return LiquidityQuote{}, ErrInsufficientLiquidity
	}
	sa, err := mulDiv(a, totalShares, reserveA)
	if err != nil {
		return LiquidityQuote{}, err
	}
	sb, err := mulDiv(b, totalShares, reserveB)
	if err != nil {
		return LiquidityQuote{}, err
	}
	shares := min(sa, sb)
	if shares == 0 {
		return LiquidityQuote{}, ErrInsufficientLiquidity
	}
	usedA, err := mulDivUp(shares, reserveA, totalShares)
	if err != nil {
		return LiquidityQuote{}, err
	}
	usedB, err := mulDivUp(shares, reserveB, totalShares)
	if err != nil {
		return LiquidityQuote{}, err
	}
	return LiquidityQuote{Shares: shares, UsedA: usedA, UsedB: usedB}, nil
}

// QuoteRemoveLiquidity returns the reserves owed for burning shares,
// rounded down.
func QuoteRemoveLiquidity(reserveA, reserveB, totalShares, shares uint64) (uint64, uint64, error) {
	if shares == 0 {
		return 0, 0, ErrZeroAmount
	}
	if shares > totalShares {
		return 0, 0, ErrInsufficientLiquidity
	}
	a, err := mulDiv(shares, reserveA, totalShares)
	if err != nil {
		return 0, 0, err
	}
	b, err := mulDiv(shares, reserveB, totalShares)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

package core

import (
	"fmt"

	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/games"
)

// Policy holds the admin-adjustable parameters of the engine.
type Policy struct {
	Admin crypto.PublicKey `json:"admin"`

	FeeBps     uint64 `json:"fee_bps"`
	SellTaxBps uint64 `json:"sell_tax_bps"`
	BuyTaxBps  uint64 `json:"buy_tax_bps"`

	LTVUnstakedBps          uint64 `json:"ltv_unstaked_bps"`
	LTVStakedBps            uint64 `json:"ltv_staked_bps"`
	LiquidationThresholdBps uint64 `json:"liquidation_threshold_bps"`
	LiquidationTargetBps    uint64 `json:"liquidation_target_bps"`
	LiquidationPenaltyBps   uint64 `json:"liquidation_penalty_bps"`
	LiquidatorShareBps      uint64 `json:"liquidator_share_bps"`
	InterestRateBps         uint64 `json:"interest_rate_bps"`

	MinBet         uint64 `json:"min_bet"`
	MaxBet         uint64 `json:"max_bet"`
	FaucetAmount   uint64 `json:"faucet_amount"`
	FaucetCooldown uint64 `json:"faucet_cooldown"` // consensus seconds
	LaPartage      bool   `json:"la_partage"`

	TableBettingBlocks  uint64 `json:"table_betting_blocks"`
	TableCooldownBlocks uint64 `json:"table_cooldown_blocks"`

	EpochLength      uint64 `json:"epoch_length"` // blocks
	StakerShareBps   uint64 `json:"staker_share_bps"`
	StakeLockSeconds uint64 `json:"stake_lock_seconds"`

	BridgeMaxWithdrawal uint64 `json:"bridge_max_withdrawal"`
	BridgePaused        bool   `json:"bridge_paused"`
}

// DefaultPolicy returns the launch parameters.
func DefaultPolicy(admin crypto.PublicKey) *Policy {
	return &Policy{
		Admin:                   admin,
		FeeBps:                  30,
		SellTaxBps:              100,
		BuyTaxBps:               0,
		LTVUnstakedBps:          3_000,
		LTVStakedBps:            4_500,
		LiquidationThresholdBps: 6_000,
		LiquidationTargetBps:    4_500,
		LiquidationPenaltyBps:   1_000,
		LiquidatorShareBps:      5_000,
		InterestRateBps:         500,
		MinBet:                  1,
		MaxBet:                  1_000_000,
		FaucetAmount:            1_000,
		FaucetCooldown:          86_400,
		TableBettingBlocks:      10,
		TableCooldownBlocks:     2,
		EpochLength:             100,
		StakerShareBps:          5_000,
		StakeLockSeconds:        7 * 86_400,
		BridgeMaxWithdrawal:     1_000_000,
	}
}

// Rules returns the game rule switches.
func (p *Policy) Rules() games.Rules { return games.Rules{LaPartage: p.LaPartage} }

// Timing returns the shared-table phase budget.
func (p *Policy) Timing() games.TableTiming {
	return games.TableTiming{BettingBlocks: p.TableBettingBlocks, CooldownBlocks: p.TableCooldownBlocks}
}

// LTVCeiling returns the borrow ceiling for a staked or unstaked owner.
func (p *Policy) LTVCeiling(staked bool) uint64 {
	if staked {
		return p.LTVStakedBps
	}
	return p.LTVUnstakedBps
}

// PolicyParam names one adjustable field for SetPolicy.
type PolicyParam uint8

const (
	ParamFeeBps PolicyParam = iota + 1
	ParamSellTaxBps
	ParamBuyTaxBps
	ParamLTVUnstakedBps
	ParamLTVStakedBps
	ParamLiquidationThresholdBps
	ParamLiquidationTargetBps
	ParamLiquidationPenaltyBps
	ParamLiquidatorShareBps
	ParamInterestRateBps
	ParamMinBet
	ParamMaxBet
	ParamFaucetAmount
	ParamFaucetCooldown
	ParamLaPartage
	ParamTableBettingBlocks
	ParamTableCooldownBlocks
	ParamEpochLength
	ParamStakerShareBps
	ParamStakeLockSeconds
	ParamBridgeMaxWithdrawal
	paramEnd
)

// Valid reports whether p names a known parameter.
func (p PolicyParam) Valid() bool { return p >= ParamFeeBps && p < paramEnd }

// Set applies one parameter change and re-checks the cross-field
// constraints. On error the policy is left unchanged.
func (p *Policy) Set(param PolicyParam, v uint64) error {
	next := *p
	field := next.field(param)
	switch {
	case field != nil:
		*field = v
	case param == ParamLaPartage:
		if v > 1 {
			return NewError(CodeBadPolicy, "la_partage must be 0 or 1")
		}
		next.LaPartage = v == 1
	default:
		return NewError(CodeBadPolicy, "unknown parameter %d", param)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*p = next
	return nil
}

// Get returns the current value of param. LaPartage reads as 0 or 1.
func (p *Policy) Get(param PolicyParam) (uint64, bool) {
	if f := p.field(param); f != nil {
		return *f, true
	}
	if param == ParamLaPartage {
		if p.LaPartage {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func (p *Policy) field(param PolicyParam) *uint64 {
	switch param {
	case ParamFeeBps:
		return &p.FeeBps
	case ParamSellTaxBps:
		return &p.SellTaxBps
	case ParamBuyTaxBps:
		return &p.BuyTaxBps
	case ParamLTVUnstakedBps:
		return &p.LTVUnstakedBps
	case ParamLTVStakedBps:
		return &p.LTVStakedBps
	case ParamLiquidationThresholdBps:
		return &p.LiquidationThresholdBps
	case ParamLiquidationTargetBps:
		return &p.LiquidationTargetBps
	case ParamLiquidationPenaltyBps:
		return &p.LiquidationPenaltyBps
	case ParamLiquidatorShareBps:
		return &p.LiquidatorShareBps
	case ParamInterestRateBps:
		return &p.InterestRateBps
	case ParamMinBet:
		return &p.MinBet
	case ParamMaxBet:
		return &p.MaxBet
	case ParamFaucetAmount:
		return &p.FaucetAmount
	case ParamFaucetCooldown:
		return &p.FaucetCooldown
	case ParamTableBettingBlocks:
		return &p.TableBettingBlocks
	case ParamTableCooldownBlocks:
		return &p.TableCooldownBlocks
	case ParamEpochLength:
		return &p.EpochLength
	case ParamStakerShareBps:
		return &p.StakerShareBps
	case ParamStakeLockSeconds:
		return &p.StakeLockSeconds
	case ParamBridgeMaxWithdrawal:
		return &p.BridgeMaxWithdrawal
	}
	return nil
}

// Validate checks bps ranges and the vault threshold ordering.
func (p *Policy) Validate() error {
	bps := []struct {
		name string
		v    uint64
	}{
		{"fee_bps", p.FeeBps},
		{"sell_tax_bps", p.SellTaxBps},
		{"buy_tax_bps", p.BuyTaxBps},
		{"ltv_unstaked_bps", p.LTVUnstakedBps},
		{"ltv_staked_bps", p.LTVStakedBps},
		{"liquidation_threshold_bps", p.LiquidationThresholdBps},
		{"liquidation_target_bps", p.LiquidationTargetBps},
		{"liquidation_penalty_bps", p.LiquidationPenaltyBps},
		{"liquidator_share_bps", p.LiquidatorShareBps},
		{"staker_share_bps", p.StakerShareBps},
	}
	for _, b := range bps {
		if b.v > 10_000 {
			return NewError(CodeBadPolicy, "%s = %d exceeds 10000", b.name, b.v)
		}
	}
	if p.FeeBps+p.SellTaxBps >= 10_000 || p.FeeBps+p.BuyTaxBps >= 10_000 {
		return NewError(CodeBadPolicy, "fee plus tax must stay below 10000 bps")
	}
	if p.LTVUnstakedBps > p.LTVStakedBps || p.LTVStakedBps >= p.LiquidationThresholdBps {
		return NewError(CodeBadPolicy, "ltv ceilings must sit below the liquidation threshold")
	}
	if p.LiquidationTargetBps == 0 || p.LiquidationTargetBps >= p.LiquidationThresholdBps {
		return NewError(CodeBadPolicy, "liquidation target must sit below the threshold")
	}
	// the partial unwind only converges when target*(1+penalty) < 100%
	if p.LiquidationTargetBps*(10_000+p.LiquidationPenaltyBps) >= 100_000_000 {
		return NewError(CodeBadPolicy, "liquidation target too high for the penalty")
	}
	if p.MinBet == 0 || p.MinBet > p.MaxBet {
		return NewError(CodeBadPolicy, "bet limits must satisfy 0 < min <= max")
	}
	if p.TableBettingBlocks == 0 {
		return NewError(CodeBadPolicy, "table betting window must be positive")
	}
	if p.EpochLength == 0 {
		return NewError(CodeBadPolicy, "epoch length must be positive")
	}
	if p.InterestRateBps > 100_000 {
		return NewError(CodeBadPolicy, "interest rate above 1000%% a year")
	}
	return nil
}

func (p PolicyParam) String() string {
	if p.Valid() {
		return paramNames[p-1]
	}
	return fmt.Sprintf("param(%d)", uint8(p))
}

var paramNames = [...]string{
	"fee_bps", "sell_tax_bps", "buy_tax_bps", "ltv_unstaked_bps", "ltv_staked_bps",
	"liquidation_threshold_bps", "liquidation_target_bps", "liquidation_penalty_bps",
	"liquidator_share_bps", "interest_rate_bps", "min_bet", "max_bet", "faucet_amount",
	"faucet_cooldown", "la_partage", "table_betting_blocks", "table_cooldown_blocks",
	"epoch_length", "staker_share_bps", "stake_lock_seconds", "bridge_max_withdrawal",
}

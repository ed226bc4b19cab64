package events

import (
	"github.com/tolelom/casinochain/core"
	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/economy"
	"github.com/tolelom/casinochain/games"
)

// EventType labels what happened. Values are stable: they are hashed into
// the events root.
type EventType string

const (
	EventTxRejected        EventType = "tx_rejected"
	EventInstructionFailed EventType = "instruction_failed"
	EventBlockCommitted    EventType = "block_committed"

	EventPlayerRegistered   EventType = "player_registered"
	EventFaucetClaimed      EventType = "faucet_claimed"
	EventChipsTransferred   EventType = "chips_transferred"
	EventModifierToggled    EventType = "modifier_toggled"
	EventSessionStarted     EventType = "session_started"
	EventSessionMoved       EventType = "session_moved"
	EventSessionCompleted   EventType = "session_completed"
	EventTableBetPlaced     EventType = "table_bet_placed"
	EventTableRoundResolved EventType = "table_round_resolved"
	EventTablePayout        EventType = "table_payout"
	EventTableRoundVoided   EventType = "table_round_voided"

	EventSwapped          EventType = "swapped"
	EventLiquidityAdded   EventType = "liquidity_added"
	EventLiquidityRemoved EventType = "liquidity_removed"
	EventVaultUpdated     EventType = "vault_updated"
	EventInterestAccrued  EventType = "interest_accrued"
	EventVaultLiquidated  EventType = "vault_liquidated"

	EventStaked         EventType = "staked"
	EventUnstaked       EventType = "unstaked"
	EventRewardsClaimed EventType = "rewards_claimed"
	EventEpochClosed    EventType = "epoch_closed"

	EventBridgeDeposited     EventType = "bridge_deposited"
	EventWithdrawalRequested EventType = "withdrawal_requested"
	EventWithdrawalFinalized EventType = "withdrawal_finalized"

	EventPolicyChanged      EventType = "policy_changed"
	EventModifiersGranted   EventType = "modifiers_granted"
	EventAdminRotated       EventType = "admin_rotated"
	EventBridgePauseChanged EventType = "bridge_pause_changed"
)

// Event is a typed payload. Implementations are plain structs without maps
// so their JSON form is canonical.
type Event interface {
	Type() EventType
}

// ---- pipeline ----

// TxRejected marks a transaction dropped before any handler ran. Signer is
// zero when the envelope could not be decoded.
type TxRejected struct {
	Signer crypto.PublicKey `json:"signer"`
	Nonce  uint64           `json:"nonce"`
	Code   core.Code        `json:"code"`
}

// InstructionFailed records a domain error. The nonce was consumed and every
// mutation of the instruction rolled back.
type InstructionFailed struct {
	Signer crypto.PublicKey `json:"signer"`
	Nonce  uint64           `json:"nonce"`
	Tag    string           `json:"tag"`
	Code   core.Code        `json:"code"`
}

// BlockCommitted is published to subscribers after a block commits. It is
// not part of the block's log.
type BlockCommitted struct {
	Height     uint64 `json:"height"`
	StateRoot  string `json:"state_root"`
	EventsRoot string `json:"events_root"`
	Executed   int    `json:"executed"`
	Failed     int    `json:"failed"`
	Rejected   int    `json:"rejected"`
}

// ---- casino ----

type PlayerRegistered struct {
	Player crypto.PublicKey `json:"player"`
	Name   string           `json:"name"`
}

type FaucetClaimed struct {
	Player crypto.PublicKey `json:"player"`
	Amount uint64           `json:"amount"`
}

type ChipsTransferred struct {
	From   crypto.PublicKey `json:"from"`
	To     crypto.PublicKey `json:"to"`
	Amount uint64           `json:"amount"`
}

// ModifierToggled reports a shield or double being armed or disarmed.
type ModifierToggled struct {
	Player   crypto.PublicKey `json:"player"`
	Modifier string           `json:"modifier"`
	Armed    bool             `json:"armed"`
}

type SessionStarted struct {
	Player        crypto.PublicKey `json:"player"`
	SessionID     uint64           `json:"session_id"`
	Game          games.GameType   `json:"game"`
	Bet           uint64           `json:"bet"`
	FreerollStake uint64           `json:"freeroll_stake,omitempty"`
	Shield        bool             `json:"shield,omitempty"`
	Double        bool             `json:"double,omitempty"`
	Detail        games.Detail     `json:"detail"`
}

// SessionMoved is emitted for every accepted move that leaves the session
// open.
type SessionMoved struct {
	Player    crypto.PublicKey `json:"player"`
	SessionID uint64           `json:"session_id"`
	Game      games.GameType   `json:"game"`
	Move      uint64           `json:"move"`
	Wager     uint64           `json:"wager,omitempty"`
	Detail    games.Detail     `json:"detail"`
}

// SessionCompleted is the single completion event of a session. Payout is
// the rule payout; Paid is what the player received after modifiers and
// freeroll.
type SessionCompleted struct {
	Player        crypto.PublicKey `json:"player"`
	SessionID     uint64           `json:"session_id"`
	Game          games.GameType   `json:"game"`
	Moves         uint64           `json:"moves"`
	Wagered       uint64           `json:"wagered"`
	FreerollStake uint64           `json:"freeroll_stake,omitempty"`
	Payout        uint64           `json:"payout"`
	Paid          uint64           `json:"paid"`
	ShieldUsed    bool             `json:"shield_used,omitempty"`
	DoubleUsed    bool             `json:"double_used,omitempty"`
	JackpotFed    uint64           `json:"jackpot_fed,omitempty"`
	JackpotWon    uint64           `json:"jackpot_won,omitempty"`
	HouseDelta    int64            `json:"house_delta"`
	Detail        games.Detail     `json:"detail"`
}

type TableBetPlaced struct {
	Player  crypto.PublicKey `json:"player"`
	Game    games.GameType   `json:"game"`
	RoundID uint64           `json:"round_id"`
	Bets    []games.Bet      `json:"bets"`
	Total   uint64           `json:"total"`
}

// TableRoundResolved carries the drawn result of a round; per-player
// settlement follows as TablePayout events.
type TableRoundResolved struct {
	Game         games.GameType `json:"game"`
	RoundID      uint64         `json:"round_id"`
	Bettors      int            `json:"bettors"`
	TotalWagered uint64         `json:"total_wagered"`
	TotalPaid    uint64         `json:"total_paid"`
	HouseDelta   int64          `json:"house_delta"`
	Result       games.Detail   `json:"result"`
}

type TablePayout struct {
	Player  crypto.PublicKey `json:"player"`
	Game    games.GameType   `json:"game"`
	RoundID uint64           `json:"round_id"`
	Wagered uint64           `json:"wagered"`
	Paid    uint64           `json:"paid"`
	Detail  games.Detail     `json:"detail"`
}

// TableRoundVoided marks a round that could not be settled. Each bettor's
// stake is returned and the table moves on.
type TableRoundVoided struct {
	Game     games.GameType `json:"game"`
	RoundID  uint64         `json:"round_id"`
	Bettors  int            `json:"bettors"`
	Refunded uint64         `json:"refunded"`
	Reason   string         `json:"reason"`
}

// ---- liquidity ----

type Swapped struct {
	Player        crypto.PublicKey `json:"player"`
	ChipsIn       bool             `json:"chips_in"`
	AmountIn      uint64           `json:"amount_in"`
	Fee           uint64           `json:"fee"`
	Tax           uint64           `json:"tax"`
	AmountOut     uint64           `json:"amount_out"`
	ReserveChips  uint64           `json:"reserve_chips"`
	ReserveStable uint64           `json:"reserve_stable"`
}

type LiquidityAdded struct {
	Player crypto.PublicKey `json:"player"`
	Chips  uint64           `json:"chips"`
	Stable uint64           `json:"stable"`
	Shares uint64           `json:"shares"`
}

type LiquidityRemoved struct {
	Player crypto.PublicKey `json:"player"`
	Shares uint64           `json:"shares"`
	Chips  uint64           `json:"chips"`
	Stable uint64           `json:"stable"`
}

// VaultUpdated reports a deposit, withdraw, borrow or repay and the
// resulting position.
type VaultUpdated struct {
	Owner      crypto.PublicKey `json:"owner"`
	Action     string           `json:"action"`
	Amount     uint64           `json:"amount"`
	Collateral uint64           `json:"collateral"`
	Debt       uint64           `json:"debt"`
	LTVBps     uint64           `json:"ltv_bps"`
}

type InterestAccrued struct {
	Owner    crypto.PublicKey `json:"owner"`
	Interest uint64           `json:"interest"`
	Debt     uint64           `json:"debt"`
	Elapsed  uint64           `json:"elapsed"`
}

// VaultLiquidated records a partial or full unwind. Liquidator is zero for
// sweeps run by the pipeline, in which case the whole penalty went to the
// stability pool.
type VaultLiquidated struct {
	Owner      crypto.PublicKey    `json:"owner"`
	Liquidator crypto.PublicKey    `json:"liquidator"`
	LTVBefore  uint64              `json:"ltv_before_bps"`
	LTVAfter   uint64              `json:"ltv_after_bps"`
	Plan       economy.Liquidation `json:"plan"`
	BadDebt    uint64              `json:"bad_debt,omitempty"`
	Collateral uint64              `json:"collateral"`
	Debt       uint64              `json:"debt"`
}

// ---- staking ----

type Staked struct {
	Owner    crypto.PublicKey `json:"owner"`
	Amount   uint64           `json:"amount"`
	Total    uint64           `json:"total"`
	UnlockAt uint64           `json:"unlock_at"`
}

type Unstaked struct {
	Owner  crypto.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
	Total  uint64           `json:"total"`
}

type RewardsClaimed struct {
	Owner  crypto.PublicKey `json:"owner"`
	Amount uint64           `json:"amount"`
}

// EpochClosed reports one staking epoch. AccRewardPerShare is the decimal
// accumulator after the epoch.
type EpochClosed struct {
	Delta             int64  `json:"delta"`
	Reward            uint64 `json:"reward"`
	TotalStaked       uint64 `json:"total_staked"`
	AccRewardPerShare string `json:"acc_reward_per_share"`
}

// ---- bridge ----

type BridgeDeposited struct {
	Recipient  crypto.PublicKey `json:"recipient"`
	Amount     uint64           `json:"amount"`
	ExternalID string           `json:"external_id"`
}

type WithdrawalRequested struct {
	ID          uint64           `json:"id"`
	Owner       crypto.PublicKey `json:"owner"`
	Amount      uint64           `json:"amount"`
	Destination string           `json:"destination"`
}

type WithdrawalFinalized struct {
	ID      uint64           `json:"id"`
	Owner   crypto.PublicKey `json:"owner"`
	Amount  uint64           `json:"amount"`
	Success bool             `json:"success"`
}

// ---- admin ----

type PolicyChanged struct {
	Admin crypto.PublicKey `json:"admin"`
	Param string           `json:"param"`
	Old   uint64           `json:"old"`
	New   uint64           `json:"new"`
}

type ModifiersGranted struct {
	Player   crypto.PublicKey `json:"player"`
	Shields  uint32           `json:"shields"`
	Doubles  uint32           `json:"doubles"`
	Freeroll uint64           `json:"freeroll"`
}

type AdminRotated struct {
	Old crypto.PublicKey `json:"old"`
	New crypto.PublicKey `json:"new"`
}

type BridgePauseChanged struct {
	Paused bool `json:"paused"`
}

func (TxRejected) Type() EventType          { return EventTxRejected }
func (InstructionFailed) Type() EventType   { return EventInstructionFailed }
func (BlockCommitted) Type() EventType      { return EventBlockCommitted }
func (PlayerRegistered) Type() EventType    { return EventPlayerRegistered }
func (FaucetClaimed) Type() EventType       { return EventFaucetClaimed }
func (ChipsTransferred) Type() EventType    { return EventChipsTransferred }
func (ModifierToggled) Type() EventType     { return EventModifierToggled }
func (SessionStarted) Type() EventType      { return EventSessionStarted }
func (SessionMoved) Type() EventType        { return EventSessionMoved }
func (SessionCompleted) Type() EventType    { return EventSessionCompleted }
func (TableBetPlaced) Type() EventType      { return EventTableBetPlaced }
func (TableRoundResolved) Type() EventType  { return EventTableRoundResolved }
func (TablePayout) Type() EventType         { return EventTablePayout }
func (TableRoundVoided) Type() EventType    { return EventTableRoundVoided }
func (Swapped) Type() EventType             { return EventSwapped }
func (LiquidityAdded) Type() EventType      { return EventLiquidityAdded }
func (LiquidityRemoved) Type() EventType    { return EventLiquidityRemoved }
func (VaultUpdated) Type() EventType        { return EventVaultUpdated }
func (InterestAccrued) Type() EventType     { return EventInterestAccrued }
func (VaultLiquidated) Type() EventType     { return EventVaultLiquidated }
func (Staked) Type() EventType              { return EventStaked }
func (Unstaked) Type() EventType            { return EventUnstaked }
func (RewardsClaimed) Type() EventType      { return EventRewardsClaimed }
func (EpochClosed) Type() EventType         { return EventEpochClosed }
func (BridgeDeposited) Type() EventType     { return EventBridgeDeposited }
func (WithdrawalRequested) Type() EventType { return EventWithdrawalRequested }
func (WithdrawalFinalized) Type() EventType { return EventWithdrawalFinalized }
func (PolicyChanged) Type() EventType       { return EventPolicyChanged }
func (ModifiersGranted) Type() EventType    { return EventModifiersGranted }
func (AdminRotated) Type() EventType        { return EventAdminRotated }
func (BridgePauseChanged) Type() EventType  { return EventBridgePauseChanged }

// decoders maps each type to a constructor for JSON decoding.
var decoders = map[EventType]func() Event{
	EventTxRejected:          func() Event { return &TxRejected{} },
	EventInstructionFailed:   func() Event { return &InstructionFailed{} },
	EventBlockCommitted:      func() Event { return &BlockCommitted{} },
	EventPlayerRegistered:    func() Event { return &PlayerRegistered{} },
	EventFaucetClaimed:       func() Event { return &FaucetClaimed{} },
	EventChipsTransferred:    func() Event { return &ChipsTransferred{} },
	EventModifierToggled:     func() Event { return &ModifierToggled{} },
	EventSessionStarted:      func() Event { return &SessionStarted{} },
	EventSessionMoved:        func() Event { return &SessionMoved{} },
	EventSessionCompleted:    func() Event { return &SessionCompleted{} },
	EventTableBetPlaced:      func() Event { return &TableBetPlaced{} },
	EventTableRoundResolved:  func() Event { return &TableRoundResolved{} },
	EventTableRoundVoided:    func() Event { return &TableRoundVoided{} },
	EventTablePayout:         func() Event { return &TablePayout{} },
	EventSwapped:             func() Event { return &Swapped{} },
	EventLiquidityAdded:      func() Event { return &LiquidityAdded{} },
	EventLiquidityRemoved:    func() Event { return &LiquidityRemoved{} },
	EventVaultUpdated:        func() Event { return &VaultUpdated{} },
	EventInterestAccrued:     func() Event { return &InterestAccrued{} },
	EventVaultLiquidated:     func() Event { return &VaultLiquidated{} },
	EventStaked:              func() Event { return &Staked{} },
	EventUnstaked:            func() Event { return &Unstaked{} },
	EventRewardsClaimed:      func() Event { return &RewardsClaimed{} },
	EventEpochClosed:         func() Event { return &EpochClosed{} },
	EventBridgeDeposited:     func() Event { return &BridgeDeposited{} },
	EventWithdrawalRequested: func() Event { return &WithdrawalRequested{} },
	EventWithdrawalFinalized: func() Event { return &WithdrawalFinalized{} },
	EventPolicyChanged:       func() Event { return &PolicyChanged{} },
	EventModifiersGranted:    func() Event { return &ModifiersGranted{} },
	EventAdminRotated:        func() Event { return &AdminRotated{} },
	EventBridgePauseChanged:  func() Event { return &BridgePauseChanged{} },
}

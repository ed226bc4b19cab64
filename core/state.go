package core

import (
	"github.com/holiman/uint256"

	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/games"
)

// Player is the per-key account. It is created on the first instruction that
// references the key; Registered flips once a name is claimed.
type Player struct {
	Key        crypto.PublicKey `json:"key"`
	Nonce      uint64           `json:"nonce"`
	Name       string           `json:"name,omitempty"`
	Registered bool             `json:"registered"`

	Chips    uint64 `json:"chips"`
	Stable   uint64 `json:"stable"`
	Freeroll uint64 `json:"freeroll"` // non-transferable stake credit
	LPShares uint64 `json:"lp_shares"`

	Shields     uint32 `json:"shields"`
	Doubles     uint32 `json:"doubles"`
	ShieldArmed bool   `json:"shield_armed"`
	DoubleArmed bool   `json:"double_armed"`

	ActiveSession uint64 `json:"active_session"` // 0 when idle
	LastFaucet    uint64 `json:"last_faucet"`    // consensus seconds, 0 = never

	GamesPlayed  uint64 `json:"games_played"`
	TotalWagered uint64 `json:"total_wagered"`
	TotalWon     uint64 `json:"total_won"`
}

// NewPlayer returns the zero account for key.
func NewPlayer(key crypto.PublicKey) *Player { return &Player{Key: key} }

// GameSession is a single-player session. Chips staked so far are held in
// escrow until completion settles the whole session at once.
type GameSession struct {
	games.Session
	Player        crypto.PublicKey `json:"player"`
	FreerollStake uint64           `json:"freeroll_stake"`
	Shield        bool             `json:"shield"`
	Double        bool             `json:"double"`
	StartedAt     uint64           `json:"started_at"` // height
}

// TableEntry is one player's bets on the current round of a table.
type TableEntry struct {
	Player crypto.PublicKey `json:"player"`
	Bets   []games.Bet      `json:"bets"`
	Total  uint64           `json:"total"`
}

// MaxTableEntries bounds the number of bettors per round.
const MaxTableEntries = 256

// Table is a shared multiplayer table. Entries are kept sorted by player key.
type Table struct {
	Game    games.GameType   `json:"game"`
	Clock   games.TableClock `json:"clock"`
	Entries []TableEntry     `json:"entries"`
}

// Pool is the single chips/stable constant-product pool.
type Pool struct {
	ReserveChips  uint64 `json:"reserve_chips"`
	ReserveStable uint64 `json:"reserve_stable"`
	TotalShares   uint64 `json:"total_shares"`
}

// Vault is a collateralised stable loan: chips in, stable out.
type Vault struct {
	Owner       crypto.PublicKey `json:"owner"`
	Collateral  uint64           `json:"collateral"`
	Debt        uint64           `json:"debt"`
	LastAccrual uint64           `json:"last_accrual"` // consensus seconds
}

// Staker is a staking position. RewardDebt is stake*acc at the last
// settlement, in accumulator units.
type Staker struct {
	Owner      crypto.PublicKey `json:"owner"`
	Amount     uint64           `json:"amount"`
	RewardDebt *uint256.Int     `json:"reward_debt"`
	Unclaimed  uint64           `json:"unclaimed"`
	UnlockAt   uint64           `json:"unlock_at"` // consensus seconds
}

// House is the global ledger of supply, profit and protocol reserves.
type House struct {
	NetPnL          int64                     `json:"net_pnl"`
	TotalIssued     uint64                    `json:"total_issued"`
	TotalBurned     uint64                    `json:"total_burned"`
	TotalStaked     uint64                    `json:"total_staked"`
	TotalDebt       uint64                    `json:"total_debt"`
	Jackpots        map[games.GameType]uint64 `json:"jackpots"`
	FeesChips       uint64                    `json:"fees_chips"`
	FeesStable      uint64                    `json:"fees_stable"`
	StabilityStable uint64                    `json:"stability_stable"`
	StabilityChips  uint64                    `json:"stability_chips"`
	BadDebt         uint64                    `json:"bad_debt"`

	RewardsReserve    uint64       `json:"rewards_reserve"`
	AccRewardPerShare *uint256.Int `json:"acc_reward_per_share"`
	EpochMark         int64        `json:"epoch_mark"`

	BridgedIn        uint64 `json:"bridged_in"`
	BridgedOut       uint64 `json:"bridged_out"`
	NextSessionID    uint64 `json:"next_session_id"`
	NextWithdrawalID uint64 `json:"next_withdrawal_id"`
}

// NewHouse returns an empty house ledger with id counters at 1.
func NewHouse() *House {
	return &House{
		Jackpots:          map[games.GameType]uint64{},
		AccRewardPerShare: new(uint256.Int),
		NextSessionID:     1,
		NextWithdrawalID:  1,
	}
}

// WithdrawalStatus is the lifecycle of a bridge withdrawal.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalComplete WithdrawalStatus = "complete"
	WithdrawalRefunded WithdrawalStatus = "refunded"
)

// Withdrawal is a queued outbound bridge transfer.
type Withdrawal struct {
	ID          uint64           `json:"id"`
	Owner       crypto.PublicKey `json:"owner"`
	Amount      uint64           `json:"amount"`
	Destination [32]byte         `json:"destination"`
	Status      WithdrawalStatus `json:"status"`
	RequestedAt uint64           `json:"requested_at"` // height
}

// ChainMeta records the last applied block.
type ChainMeta struct {
	Height    uint64 `json:"height"`
	Timestamp uint64 `json:"timestamp"`
}

// State is the full ledger interface. Implementations must be snapshot-able
// so the executor can roll back failed instructions, and discardable so a
// faulted block leaves no trace.
//
// Getters return ErrNotFound for absent records; everything else is an
// internal fault.
type State interface {
	GetPlayer(key crypto.PublicKey) (*Player, error)
	SetPlayer(p *Player) error

	GetSession(id uint64) (*GameSession, error)
	SetSession(s *GameSession) error
	DeleteSession(id uint64) error

	GetTable(g games.GameType) (*Table, error)
	SetTable(t *Table) error

	GetPool() (*Pool, error)
	SetPool(p *Pool) error

	GetVault(owner crypto.PublicKey) (*Vault, error)
	SetVault(v *Vault) error
	DeleteVault(owner crypto.PublicKey) error
	// VaultOwners lists every open vault in key order.
	VaultOwners() ([]crypto.PublicKey, error)

	GetStaker(owner crypto.PublicKey) (*Staker, error)
	SetStaker(s *Staker) error
	DeleteStaker(owner crypto.PublicKey) error

	GetHouse() (*House, error)
	SetHouse(h *House) error

	GetPolicy() (*Policy, error)
	SetPolicy(p *Policy) error

	GetWithdrawal(id uint64) (*Withdrawal, error)
	SetWithdrawal(w *Withdrawal) error

	// HasDeposit reports whether an external deposit id was already credited.
	HasDeposit(externalID [32]byte) (bool, error)
	MarkDeposit(externalID [32]byte, height uint64) error

	GetMeta() (*ChainMeta, error)
	SetMeta(m *ChainMeta) error

	// Snapshot / rollback / commit
	Snapshot() (int, error)
	RevertToSnapshot(id int) error
	// ComputeRoot returns the deterministic state root from the current write
	// buffer without flushing.
	ComputeRoot() string
	// Commit flushes the write buffer to the underlying DB and clears it.
	Commit() error
	// Discard drops every buffered write and snapshot.
	Discard()
}

package core

import (
	"fmt"

	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/games"
)

// MaxInstructionSize bounds the encoded [tag][payload] of one transaction.
const MaxInstructionSize = 256

// MaxNameLen bounds a registered player name.
const MaxNameLen = 32

// Tag identifies an instruction. Tags are grouped into families by range.
type Tag uint8

const (
	TagRegister       Tag = 0x01
	TagFaucet         Tag = 0x02
	TagTransfer       Tag = 0x03
	TagStartGame      Tag = 0x04
	TagGameMove       Tag = 0x05
	TagToggleShield   Tag = 0x06
	TagToggleDouble   Tag = 0x07
	TagTablePlaceBets Tag = 0x08

	TagSwap            Tag = 0x20
	TagAddLiquidity    Tag = 0x21
	TagRemoveLiquidity Tag = 0x22
	TagVaultDeposit    Tag = 0x23
	TagVaultWithdraw   Tag = 0x24
	TagVaultBorrow     Tag = 0x25
	TagVaultRepay      Tag = 0x26
	TagVaultLiquidate  Tag = 0x27

	TagStake        Tag = 0x40
	TagUnstake      Tag = 0x41
	TagClaimRewards Tag = 0x42

	TagBridgeDeposit  Tag = 0x60
	TagBridgeWithdraw Tag = 0x61
	TagBridgeFinalize Tag = 0x62

	TagSetPolicy       Tag = 0x80
	TagGrantModifiers  Tag = 0x81
	TagRotateAdmin     Tag = 0x82
	TagSetBridgePaused Tag = 0x83
)

// Family groups tags that share a handler module.
type Family uint8

const (
	FamilyUnknown Family = iota
	FamilyCasino
	FamilyLiquidity
	FamilyStaking
	FamilyBridge
	FamilyAdmin
)

func (f Family) String() string {
	switch f {
	case FamilyCasino:
		return "casino"
	case FamilyLiquidity:
		return "liquidity"
	case FamilyStaking:
		return "staking"
	case FamilyBridge:
		return "bridge"
	case FamilyAdmin:
		return "admin"
	}
	return "unknown"
}

// Family returns the family a tag belongs to.
func (t Tag) Family() Family {
	switch {
	case t >= TagRegister && t <= TagTablePlaceBets:
		return FamilyCasino
	case t >= TagSwap && t <= TagVaultLiquidate:
		return FamilyLiquidity
	case t >= TagStake && t <= TagClaimRewards:
		return FamilyStaking
	case t >= TagBridgeDeposit && t <= TagBridgeFinalize:
		return FamilyBridge
	case t >= TagSetPolicy && t <= TagSetBridgePaused:
		return FamilyAdmin
	}
	return FamilyUnknown
}

var tagNames = map[Tag]string{
	TagRegister:        "register",
	TagFaucet:          "faucet",
	TagTransfer:        "transfer",
	TagStartGame:       "start_game",
	TagGameMove:        "game_move",
	TagToggleShield:    "toggle_shield",
	TagToggleDouble:    "toggle_double",
	TagTablePlaceBets:  "table_place_bets",
	TagSwap:            "swap",
	TagAddLiquidity:    "add_liquidity",
	TagRemoveLiquidity: "remove_liquidity",
	TagVaultDeposit:    "vault_deposit",
	TagVaultWithdraw:   "vault_withdraw",
	TagVaultBorrow:     "vault_borrow",
	TagVaultRepay:      "vault_repay",
	TagVaultLiquidate:  "vault_liquidate",
	TagStake:           "stake",
	TagUnstake:         "unstake",
	TagClaimRewards:    "claim_rewards",
	TagBridgeDeposit:   "bridge_deposit",
	TagBridgeWithdraw:  "bridge_withdraw",
	TagBridgeFinalize:  "bridge_finalize",
	TagSetPolicy:       "set_policy",
	TagGrantModifiers:  "grant_modifiers",
	TagRotateAdmin:     "rotate_admin",
	TagSetBridgePaused: "set_bridge_paused",
}

func (t Tag) String() string {
	if n, ok := tagNames[t]; ok {
		return n
	}
	return fmt.Sprintf("tag(0x%02x)", uint8(t))
}

// Instruction is a decoded, statically valid instruction. The set is closed:
// only types in this package implement it.
type Instruction interface {
	Tag() Tag
	encode(e *encoder)
	decode(d *decoder)
	validate() error
}

func newInstruction(t Tag) Instruction {
	switch t {
	case TagRegister:
		return &Register{}
	case TagFaucet:
		return &Faucet{}
	case TagTransfer:
		return &Transfer{}
	case TagStartGame:
		return &StartGame{}
	case TagGameMove:
		return &GameMove{}
	case TagToggleShield:
		return &ToggleShield{}
	case TagToggleDouble:
		return &ToggleDouble{}
	case TagTablePlaceBets:
		return &TablePlaceBets{}
	case TagSwap:
		return &Swap{}
	case TagAddLiquidity:
		return &AddLiquidity{}
	case TagRemoveLiquidity:
		return &RemoveLiquidity{}
	case TagVaultDeposit:
		return &VaultDeposit{}
	case TagVaultWithdraw:
		return &VaultWithdraw{}
	case TagVaultBorrow:
		return &VaultBorrow{}
	case TagVaultRepay:
		return &VaultRepay{}
	case TagVaultLiquidate:
		return &VaultLiquidate{}
	case TagStake:
		return &Stake{}
	case TagUnstake:
		return &Unstake{}
	case TagClaimRewards:
		return &ClaimRewards{}
	case TagBridgeDeposit:
		return &BridgeDeposit{}
	case TagBridgeWithdraw:
		return &BridgeWithdraw{}
	case TagBridgeFinalize:
		return &BridgeFinalize{}
	case TagSetPolicy:
		return &SetPolicy{}
	case TagGrantModifiers:
		return &GrantModifiers{}
	case TagRotateAdmin:
		return &RotateAdmin{}
	case TagSetBridgePaused:
		return &SetBridgePaused{}
	}
	return nil
}

// EncodeInstruction renders ins as [tag][payload].
func EncodeInstruction(ins Instruction) []byte {
	e := &encoder{}
	e.u8(uint8(ins.Tag()))
	ins.encode(e)
	return e.buf
}

// DecodeInstruction parses and statically validates [tag][payload]. Every
// failure is a CodeMalformed-family error: the transaction is rejected
// without touching state.
func DecodeInstruction(b []byte) (Instruction, error) {
	if len(b) == 0 {
		return nil, NewError(CodeMalformed, "empty instruction")
	}
	if len(b) > MaxInstructionSize {
		return nil, NewError(CodeTooLarge, "instruction is %d bytes, max %d", len(b), MaxInstructionSize)
	}
	tag := Tag(b[0])
	ins := newInstruction(tag)
	if ins == nil {
		return nil, NewError(CodeUnknownTag, "unknown tag 0x%02x", b[0])
	}
	d := &decoder{buf: b[1:]}
	ins.decode(d)
	if err := d.done(); err != nil {
		return nil, WrapError(CodeMalformed, err, "decode %s", tag)
	}
	if err := ins.validate(); err != nil {
		return nil, WrapError(CodeMalformed, err, "validate %s", tag)
	}
	return ins, nil
}

func nonZero(name string, v uint64) error {
	if v == 0 {
		return fmt.Errorf("%s must be positive", name)
	}
	return nil
}

func validName(name string) error {
	if len(name) == 0 || len(name) > MaxNameLen {
		return fmt.Errorf("name must be 1..%d bytes", MaxNameLen)
	}
	for i := 0; i < len(name); i++ {
		if c := name[i]; c < 0x21 || c > 0x7e {
			return fmt.Errorf("name byte %d is not printable ascii", i)
		}
	}
	return nil
}

// ---- Casino ----

// Register claims a display name for the signer.
type Register struct {
	Name string `json:"name"`
}

func (*Register) Tag() Tag            { return TagRegister }
func (i *Register) encode(e *encoder) { e.bytes8([]byte(i.Name)) }
func (i *Register) decode(d *decoder) { i.Name = string(d.bytes8()) }
func (i *Register) validate() error   { return validName(i.Name) }

// Faucet claims the periodic chip allowance.
type Faucet struct{}

func (*Faucet) Tag() Tag        { return TagFaucet }
func (*Faucet) encode(*encoder) {}
func (*Faucet) decode(*decoder) {}
func (*Faucet) validate() error { return nil }

// Transfer moves chips between players.
type Transfer struct {
	To     crypto.PublicKey `json:"to"`
	Amount uint64           `json:"amount"`
}

func (*Transfer) Tag() Tag { return TagTransfer }
func (i *Transfer) encode(e *encoder) {
	e.raw(i.To[:])
	e.u64(i.Amount)
}
func (i *Transfer) decode(d *decoder) {
	d.fixed(i.To[:])
	i.Amount = d.u64()
}
func (i *Transfer) validate() error {
	if i.To.IsZero() {
		return fmt.Errorf("zero recipient")
	}
	return nonZero("amount", i.Amount)
}

// StartGame opens a session. Params is the variant's opening payload: a bet
// list for the single-round games and craps, an optional side bet for war,
// three card and hold'em, nothing otherwise.
type StartGame struct {
	Game        games.GameType `json:"game"`
	Bet         uint64         `json:"bet"`
	UseFreeroll bool           `json:"use_freeroll"`
	Params      []byte         `json:"params,omitempty"`
}

func (*StartGame) Tag() Tag { return TagStartGame }
func (i *StartGame) encode(e *encoder) {
	e.u8(uint8(i.Game))
	e.u64(i.Bet)
	e.flag(i.UseFreeroll)
	e.bytes8(i.Params)
}
func (i *StartGame) decode(d *decoder) {
	i.Game = games.GameType(d.u8())
	i.Bet = d.u64()
	i.UseFreeroll = d.flag()
	i.Params = d.bytes8()
}
func (i *StartGame) validate() error {
	if !i.Game.Valid() {
		return games.ErrUnknownGame
	}
	if err := nonZero("bet", i.Bet); err != nil {
		return err
	}
	return games.ValidateStart(i.Game, i.Bet, i.Params)
}

// GameMove advances the signer's active session.
type GameMove struct {
	SessionID uint64         `json:"session_id"`
	Game      games.GameType `json:"game"`
	Move      []byte         `json:"move"`
}

func (*GameMove) Tag() Tag { return TagGameMove }
func (i *GameMove) encode(e *encoder) {
	e.u64(i.SessionID)
	e.u8(uint8(i.Game))
	e.bytes8(i.Move)
}
func (i *GameMove) decode(d *decoder) {
	i.SessionID = d.u64()
	i.Game = games.GameType(d.u8())
	i.Move = d.bytes8()
}
func (i *GameMove) validate() error {
	if !i.Game.Valid() {
		return games.ErrUnknownGame
	}
	return games.ValidateMove(i.Game, i.Move)
}

// ToggleShield arms or disarms a shield for the next session.
type ToggleShield struct{}

func (*ToggleShield) Tag() Tag        { return TagToggleShield }
func (*ToggleShield) encode(*encoder) {}
func (*ToggleShield) decode(*decoder) {}
func (*ToggleShield) validate() error { return nil }

// ToggleDouble arms or disarms a double for the next session.
type ToggleDouble struct{}

func (*ToggleDouble) Tag() Tag        { return TagToggleDouble }
func (*ToggleDouble) encode(*encoder) {}
func (*ToggleDouble) decode(*decoder) {}
func (*ToggleDouble) validate() error { return nil }

// TablePlaceBets joins the current round of a shared table.
type TablePlaceBets struct {
	Game    games.GameType `json:"game"`
	RoundID uint64         `json:"round_id"`
	Bets    []games.Bet    `json:"bets"`
}

func (*TablePlaceBets) Tag() Tag { return TagTablePlaceBets }
func (i *TablePlaceBets) encode(e *encoder) {
	e.u8(uint8(i.Game))
	e.u64(i.RoundID)
	e.raw(games.EncodeBets(i.Bets))
}
func (i *TablePlaceBets) decode(d *decoder) {
	i.Game = games.GameType(d.u8())
	i.RoundID = d.u64()
	if d.err != nil {
		return
	}
	bets, err := games.ValidateBets(i.Game, d.buf)
	if err != nil {
		d.err = err
		return
	}
	i.Bets = bets
	d.buf = nil
}
func (i *TablePlaceBets) validate() error {
	if !i.Game.HasTable() {
		return fmt.Errorf("%s has no shared table", i.Game)
	}
	return nil
}

// ---- Liquidity ----

// Swap trades against the chips/stable pool. ChipsIn selects the direction.
type Swap struct {
	ChipsIn  bool   `json:"chips_in"`
	AmountIn uint64 `json:"amount_in"`
	MinOut   uint64 `json:"min_out"`
}

func (*Swap) Tag() Tag { return TagSwap }
func (i *Swap) encode(e *encoder) {
	e.flag(i.ChipsIn)
	e.u64(i.AmountIn)
	e.u64(i.MinOut)
}
func (i *Swap) decode(d *decoder) {
	i.ChipsIn = d.flag()
	i.AmountIn = d.u64()
	i.MinOut = d.u64()
}
func (i *Swap) validate() error { return nonZero("amount_in", i.AmountIn) }

// AddLiquidity deposits both sides of the pool.
type AddLiquidity struct {
	Chips  uint64 `json:"chips"`
	Stable uint64 `json:"stable"`
}

func (*AddLiquidity) Tag() Tag { return TagAddLiquidity }
func (i *AddLiquidity) encode(e *encoder) {
	e.u64(i.Chips)
	e.u64(i.Stable)
}
func (i *AddLiquidity) decode(d *decoder) {
	i.Chips = d.u64()
	i.Stable = d.u64()
}
func (i *AddLiquidity) validate() error {
	if err := nonZero("chips", i.Chips); err != nil {
		return err
	}
	return nonZero("stable", i.Stable)
}

// RemoveLiquidity burns pool shares for a proportional withdrawal.
type RemoveLiquidity struct {
	Shares    uint64 `json:"shares"`
	MinChips  uint64 `json:"min_chips"`
	MinStable uint64 `json:"min_stable"`
}

func (*RemoveLiquidity) Tag() Tag { return TagRemoveLiquidity }
func (i *RemoveLiquidity) encode(e *encoder) {
	e.u64(i.Shares)
	e.u64(i.MinChips)
	e.u64(i.MinStable)
}
func (i *RemoveLiquidity) decode(d *decoder) {
	i.Shares = d.u64()
	i.MinChips = d.u64()
	i.MinStable = d.u64()
}
func (i *RemoveLiquidity) validate() error { return nonZero("shares", i.Shares) }

// VaultDeposit adds chip collateral to the signer's vault.
type VaultDeposit struct {
	Amount uint64 `json:"amount"`
}

func (*VaultDeposit) Tag() Tag            { return TagVaultDeposit }
func (i *VaultDeposit) encode(e *encoder) { e.u64(i.Amount) }
func (i *VaultDeposit) decode(d *decoder) { i.Amount = d.u64() }
func (i *VaultDeposit) validate() error   { return nonZero("amount", i.Amount) }

// VaultWithdraw removes collateral while staying under the LTV ceiling.
type VaultWithdraw struct {
	Amount uint64 `json:"amount"`
}

func (*VaultWithdraw) Tag() Tag            { return TagVaultWithdraw }
func (i *VaultWithdraw) encode(e *encoder) { e.u64(i.Amount) }
func (i *VaultWithdraw) decode(d *decoder) { i.Amount = d.u64() }
func (i *VaultWithdraw) validate() error   { return nonZero("amount", i.Amount) }

// VaultBorrow mints stable against collateral.
type VaultBorrow struct {
	Amount uint64 `json:"amount"`
}

func (*VaultBorrow) Tag() Tag            { return TagVaultBorrow }
func (i *VaultBorrow) encode(e *encoder) { e.u64(i.Amount) }
func (i *VaultBorrow) decode(d *decoder) { i.Amount = d.u64() }
func (i *VaultBorrow) validate() error   { return nonZero("amount", i.Amount) }

// VaultRepay burns stable to reduce debt.
type VaultRepay struct {
	Amount uint64 `json:"amount"`
}

func (*VaultRepay) Tag() Tag            { return TagVaultRepay }
func (i *VaultRepay) encode(e *encoder) { e.u64(i.Amount) }
func (i *VaultRepay) decode(d *decoder) { i.Amount = d.u64() }
func (i *VaultRepay) validate() error   { return nonZero("amount", i.Amount) }

// VaultLiquidate unwinds another player's unhealthy vault. The signer
// receives the liquidator share of the penalty.
type VaultLiquidate struct {
	Owner crypto.PublicKey `json:"owner"`
}

func (*VaultLiquidate) Tag() Tag            { return TagVaultLiquidate }
func (i *VaultLiquidate) encode(e *encoder) { e.raw(i.Owner[:]) }
func (i *VaultLiquidate) decode(d *decoder) { d.fixed(i.Owner[:]) }
func (i *VaultLiquidate) validate() error {
	if i.Owner.IsZero() {
		return fmt.Errorf("zero vault owner")
	}
	return nil
}

// ---- Staking ----

// Stake locks chips to earn a share of house profit.
type Stake struct {
	Amount uint64 `json:"amount"`
}

func (*Stake) Tag() Tag            { return TagStake }
func (i *Stake) encode(e *encoder) { e.u64(i.Amount) }
func (i *Stake) decode(d *decoder) { i.Amount = d.u64() }
func (i *Stake) validate() error   { return nonZero("amount", i.Amount) }

// Unstake releases staked chips once the lock has expired.
type Unstake struct {
	Amount uint64 `json:"amount"`
}

func (*Unstake) Tag() Tag            { return TagUnstake }
func (i *Unstake) encode(e *encoder) { e.u64(i.Amount) }
func (i *Unstake) decode(d *decoder) { i.Amount = d.u64() }
func (i *Unstake) validate() error   { return nonZero("amount", i.Amount) }

// ClaimRewards pays accrued staking rewards.
type ClaimRewards struct{}

func (*ClaimRewards) Tag() Tag        { return TagClaimRewards }
func (*ClaimRewards) encode(*encoder) {}
func (*ClaimRewards) decode(*decoder) {}
func (*ClaimRewards) validate() error { return nil }

// ---- Bridge ----

// BridgeDeposit credits chips locked on the external chain. Only the relayer
// may submit it and ExternalID makes it idempotent.
type BridgeDeposit struct {
	Recipient  crypto.PublicKey `json:"recipient"`
	Amount     uint64           `json:"amount"`
	ExternalID [32]byte         `json:"external_id"`
}

func (*BridgeDeposit) Tag() Tag { return TagBridgeDeposit }
func (i *BridgeDeposit) encode(e *encoder) {
	e.raw(i.Recipient[:])
	e.u64(i.Amount)
	e.raw(i.ExternalID[:])
}
func (i *BridgeDeposit) decode(d *decoder) {
	d.fixed(i.Recipient[:])
	i.Amount = d.u64()
	d.fixed(i.ExternalID[:])
}
func (i *BridgeDeposit) validate() error {
	if i.Recipient.IsZero() {
		return fmt.Errorf("zero recipient")
	}
	return nonZero("amount", i.Amount)
}

// BridgeWithdraw burns chips and queues a withdrawal to Destination.
type BridgeWithdraw struct {
	Amount      uint64   `json:"amount"`
	Destination [32]byte `json:"destination"`
}

func (*BridgeWithdraw) Tag() Tag { return TagBridgeWithdraw }
func (i *BridgeWithdraw) encode(e *encoder) {
	e.u64(i.Amount)
	e.raw(i.Destination[:])
}
func (i *BridgeWithdraw) decode(d *decoder) {
	i.Amount = d.u64()
	d.fixed(i.Destination[:])
}
func (i *BridgeWithdraw) validate() error { return nonZero("amount", i.Amount) }

// BridgeFinalize settles a queued withdrawal; a failure refunds the owner.
type BridgeFinalize struct {
	WithdrawalID uint64 `json:"withdrawal_id"`
	Success      bool   `json:"success"`
}

func (*BridgeFinalize) Tag() Tag { return TagBridgeFinalize }
func (i *BridgeFinalize) encode(e *encoder) {
	e.u64(i.WithdrawalID)
	e.flag(i.Success)
}
func (i *BridgeFinalize) decode(d *decoder) {
	i.WithdrawalID = d.u64()
	i.Success = d.flag()
}
func (i *BridgeFinalize) validate() error { return nonZero("withdrawal_id", i.WithdrawalID) }

// ---- Admin ----

// SetPolicy changes one policy parameter.
type SetPolicy struct {
	Param PolicyParam `json:"param"`
	Value uint64      `json:"value"`
}

func (*SetPolicy) Tag() Tag { return TagSetPolicy }
func (i *SetPolicy) encode(e *encoder) {
	e.u8(uint8(i.Param))
	e.u64(i.Value)
}
func (i *SetPolicy) decode(d *decoder) {
	i.Param = PolicyParam(d.u8())
	i.Value = d.u64()
}
func (i *SetPolicy) validate() error {
	if !i.Param.Valid() {
		return fmt.Errorf("unknown policy parameter %d", i.Param)
	}
	return nil
}

// GrantModifiers credits shields, doubles and freeroll chips to a player.
type GrantModifiers struct {
	Player   crypto.PublicKey `json:"player"`
	Shields  uint32           `json:"shields"`
	Doubles  uint32           `json:"doubles"`
	Freeroll uint64           `json:"freeroll"`
}

func (*GrantModifiers) Tag() Tag { return TagGrantModifiers }
func (i *GrantModifiers) encode(e *encoder) {
	e.raw(i.Player[:])
	e.u32(i.Shields)
	e.u32(i.Doubles)
	e.u64(i.Freeroll)
}
func (i *GrantModifiers) decode(d *decoder) {
	d.fixed(i.Player[:])
	i.Shields = d.u32()
	i.Doubles = d.u32()
	i.Freeroll = d.u64()
}
func (i *GrantModifiers) validate() error {
	if i.Player.IsZero() {
		return fmt.Errorf("zero player")
	}
	if i.Shields == 0 && i.Doubles == 0 && i.Freeroll == 0 {
		return fmt.Errorf("empty grant")
	}
	return nil
}

// RotateAdmin hands the admin and relayer role to a new key.
type RotateAdmin struct {
	NewAdmin crypto.PublicKey `json:"new_admin"`
}

func (*RotateAdmin) Tag() Tag            { return TagRotateAdmin }
func (i *RotateAdmin) encode(e *encoder) { e.raw(i.NewAdmin[:]) }
func (i *RotateAdmin) decode(d *decoder) { d.fixed(i.NewAdmin[:]) }
func (i *RotateAdmin) validate() error {
	if i.NewAdmin.IsZero() {
		return fmt.Errorf("zero admin key")
	}
	return nil
}

// SetBridgePaused halts or resumes bridge withdrawals.
type SetBridgePaused struct {
	Paused bool `json:"paused"`
}

func (*SetBridgePaused) Tag() Tag            { return TagSetBridgePaused }
func (i *SetBridgePaused) encode(e *encoder) { e.flag(i.Paused) }
func (i *SetBridgePaused) decode(d *decoder) { i.Paused = d.flag() }
func (*SetBridgePaused) validate() error     { return nil }

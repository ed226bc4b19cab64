package core

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tolelom/casinochain/crypto"
	"github.com/tolelom/casinochain/games"
)

func testKey(b byte) crypto.PublicKey {
	var k crypto.PublicKey
	k[0] = b
	return k
}

func TestInstructionEncodeDecode(t *testing.T) {
	all := []Instruction{
		&Register{Name: "alice"},
		&Faucet{},
		&Transfer{To: testKey(2), Amount: 50},
		&StartGame{Game: games.Blackjack, Bet: 100},
		&StartGame{Game: games.ThreeCardPoker, Bet: 10, UseFreeroll: true, Params: games.EncodeSideBet(5)},
		&GameMove{SessionID: 7, Game: games.Blackjack, Move: []byte{1}},
		&ToggleShield{},
		&ToggleDouble{},
		&TablePlaceBets{Game: games.Roulette, RoundID: 3, Bets: []games.Bet{{Kind: 0, Target: 17, Amount: 10}}},
		&Swap{ChipsIn: true, AmountIn: 100, MinOut: 90},
		&AddLiquidity{Chips: 10, Stable: 20},
		&RemoveLiquidity{Shares: 5, MinChips: 1},
		&VaultDeposit{Amount: 1},
		&VaultWithdraw{Amount: 1},
		&VaultBorrow{Amount: 1},
		&VaultRepay{Amount: 1},
		&VaultLiquidate{Owner: testKey(9)},
		&Stake{Amount: 3},
		&Unstake{Amount: 3},
		&ClaimRewards{},
		&BridgeDeposit{Recipient: testKey(4), Amount: 8, ExternalID: [32]byte{1}},
		&BridgeWithdraw{Amount: 8, Destination: [32]byte{2}},
		&BridgeFinalize{WithdrawalID: 1, Success: true},
		&SetPolicy{Param: ParamFeeBps, Value: 25},
		&GrantModifiers{Player: testKey(5), Shields: 1},
		&RotateAdmin{NewAdmin: testKey(6)},
		&SetBridgePaused{Paused: true},
	}
	seen := map[Tag]bool{}
	for _, ins := range all {
		b := EncodeInstruction(ins)
		require.LessOrEqual(t, len(b), MaxInstructionSize)
		got, err := DecodeInstruction(b)
		require.NoError(t, err, ins.Tag().String())
		require.Equal(t, ins, got)
		require.NotEqual(t, FamilyUnknown, ins.Tag().Family())
		seen[ins.Tag()] = true
	}
	require.Len(t, seen, len(tagNames))
}

func TestDecodeInstructionRejects(t *testing.T) {
	valid := EncodeInstruction(&Transfer{To: testKey(1), Amount: 5})
	tests := []struct {
		name string
		in   []byte
		code Code
	}{
		{"empty", nil, CodeMalformed},
		{"unknown tag", []byte{0x1f}, CodeUnknownTag},
		{"truncated", valid[:len(valid)-1], CodeMalformed},
		{"trailing", append(append([]byte{}, valid...), 0), CodeMalformed},
		{"oversize", make([]byte, MaxInstructionSize+1), CodeTooLarge},
		{"zero amount", EncodeInstruction(&Transfer{To: testKey(1)}), CodeMalformed},
		{"bad flag", []byte{byte(TagSetBridgePaused), 2}, CodeMalformed},
		{"bad game", EncodeInstruction(&StartGame{Game: 0, Bet: 1}), CodeMalformed},
		{"bad name", EncodeInstruction(&Register{Name: "a b"}), CodeMalformed},
		{"bad policy param", EncodeInstruction(&SetPolicy{Param: paramEnd}), CodeMalformed},
		{"table on solo game", EncodeInstruction(&TablePlaceBets{Game: games.Blackjack, RoundID: 1, Bets: []games.Bet{{Amount: 1}}}), CodeMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeInstruction(tt.in)
			require.Error(t, err)
			require.Equal(t, tt.code, CodeOf(err))
			require.False(t, IsFault(err))
		})
	}
}

func TestDecodeRejectsTooManyBets(t *testing.T) {
	bets := make([]games.Bet, 21)
	for i := range bets {
		bets[i] = games.Bet{Kind: 0, Target: uint8(i), Amount: 1}
	}
	_, err := DecodeInstruction(EncodeInstruction(&TablePlaceBets{Game: games.Roulette, RoundID: 1, Bets: bets}))
	require.Error(t, err)
	require.ErrorIs(t, err, games.ErrTooManyBets)

	var params []byte
	params = append(params, 12)
	for i := 0; i < 12; i++ {
		params = append(params, 0, 0)
		params = binary.BigEndian.AppendUint64(params, 1)
	}
	_, err = DecodeInstruction(EncodeInstruction(&StartGame{Game: games.Baccarat, Bet: 12, Params: params}))
	require.ErrorIs(t, err, games.ErrTooManyBets)
}

func TestTagFamilies(t *testing.T) {
	require.Equal(t, FamilyCasino, TagTablePlaceBets.Family())
	require.Equal(t, FamilyLiquidity, TagVaultLiquidate.Family())
	require.Equal(t, FamilyStaking, TagClaimRewards.Family())
	require.Equal(t, FamilyBridge, TagBridgeFinalize.Family())
	require.Equal(t, FamilyAdmin, TagSetBridgePaused.Family())
	require.Equal(t, FamilyUnknown, Tag(0x09).Family())
}

func TestErrorCodes(t *testing.T) {
	err := WrapError(CodeSlippage, errors.New("boom"), "swap")
	require.ErrorIs(t, err, &Error{Code: CodeSlippage})
	require.NotErrorIs(t, err, &Error{Code: CodeLTV})
	require.Equal(t, CodeSlippage, CodeOf(err))
	require.Equal(t, CodeUnknown, CodeOf(errors.New("plain")))

	f := Fault(errors.New("disk"))
	require.True(t, IsFault(f))
	require.Equal(t, f, Fault(f))
	require.Nil(t, Fault(nil))
}

package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested object does not exist in storage.
var ErrNotFound = errors.New("not found")

// ErrFault marks an internal fault, such as a storage failure. A block that
// hits one is abandoned as a whole and never partially committed. Every
// other error a handler returns is a domain error.
var ErrFault = errors.New("internal fault")

// Fault wraps err as an internal fault.
func Fault(err error) error {
	if err == nil || errors.Is(err, ErrFault) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrFault, err)
}

// IsFault reports whether err must abort the block.
func IsFault(err error) bool { return errors.Is(err, ErrFault) }

// Code is a machine-readable reason carried by rejection and failure events.
type Code string

const (
	CodeUnknown Code = "UNKNOWN"

	// Malformed / unauthorized: rejected before any handler runs.
	CodeMalformed    Code = "MALFORMED"
	CodeBadSignature Code = "BAD_SIGNATURE"
	CodeNonce        Code = "NONCE_MISMATCH"
	CodeUnknownTag   Code = "UNKNOWN_TAG"
	CodeTooLarge     Code = "PAYLOAD_TOO_LARGE"

	// Domain errors: nonce advances, state rolls back.
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeInvalidAmount     Code = "INVALID_AMOUNT"
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeNotRegistered     Code = "NOT_REGISTERED"
	CodeAlreadyRegistered Code = "ALREADY_REGISTERED"
	CodeFaucetCooldown    Code = "FAUCET_COOLDOWN"
	CodeBetLimit          Code = "BET_LIMIT"
	CodeGameRule          Code = "GAME_RULE"
	CodeSessionActive     Code = "SESSION_ACTIVE"
	CodeNoSession         Code = "NO_SESSION"
	CodeTableClosed       Code = "TABLE_CLOSED"
	CodeRoundMismatch     Code = "ROUND_MISMATCH"
	CodeTableFull         Code = "TABLE_FULL"
	CodeNoModifier        Code = "NO_MODIFIER"
	CodeSlippage          Code = "SLIPPAGE"
	CodeLiquidity         Code = "INSUFFICIENT_LIQUIDITY"
	CodeLTV               Code = "LTV_CEILING"
	CodeNotLiquidatable   Code = "NOT_LIQUIDATABLE"
	CodeNoVault           Code = "NO_VAULT"
	CodeStakeLocked       Code = "STAKE_LOCKED"
	CodeBridgePaused      Code = "BRIDGE_PAUSED"
	CodeBridgeLimit       Code = "BRIDGE_LIMIT"
	CodeDuplicateDeposit  Code = "DUPLICATE_DEPOSIT"
	CodeUnknownWithdrawal Code = "UNKNOWN_WITHDRAWAL"
	CodeBadPolicy         Code = "BAD_POLICY"
	CodeOverflow          Code = "ARITHMETIC_OVERFLOW"

	// Invariant: a recovered panic, reported as a domain error.
	CodeInvariant Code = "INVARIANT_VIOLATION"
)

// Error is the typed error handlers return.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError creates a coded error.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates a coded error around cause.
func WrapError(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf extracts the code from err, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

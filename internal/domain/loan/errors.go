package loan

import (
	"errors"

	"collateral-loan-engine/internal/domain/custody"
	"collateral-loan-engine/pkg/u256"
)

// Rejection taxonomy. Engine errors wrap one of these with %w.
var (
	ErrValidation   = errors.New("invalid loan terms")
	ErrConflict     = errors.New("collateral already locked")
	ErrInvalidState = errors.New("loan not in required state")
	ErrNotExpired   = errors.New("loan not past due")
	ErrUnauthorized = errors.New("caller lacks required role")
	ErrPaused       = errors.New("engine paused")
	ErrArithmetic   = u256.ErrOverflow
	// ErrTransfer is raised by the asset rails, not the engine.
	ErrTransfer = custody.ErrTransferRejected
)

// Code is a stable, machine-readable rejection reason.
type Code string

const (
	CodeUnknown      Code = "UNKNOWN"
	CodeValidation   Code = "VALIDATION"
	CodeConflict     Code = "CONFLICT"
	CodeInvalidState Code = "INVALID_STATE"
	CodeNotExpired   Code = "NOT_EXPIRED"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodePaused       Code = "PAUSED"
	CodeArithmetic   Code = "ARITHMETIC"
	CodeTransfer     Code = "TRANSFER_REJECTED"
)

var codes = []struct {
	err  error
	code Code
}{
	{ErrValidation, CodeValidation},
	{ErrConflict, CodeConflict},
	{ErrInvalidState, CodeInvalidState},
	{ErrNotExpired, CodeNotExpired},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrPaused, CodePaused},
	{ErrArithmetic, CodeArithmetic},
	{ErrTransfer, CodeTransfer},
}

// CodeOf maps err onto the taxonomy; unknown errors map to CodeUnknown.
func CodeOf(err error) Code {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeUnknown
}

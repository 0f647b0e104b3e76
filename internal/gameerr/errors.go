// Package gameerr defines the error taxonomy shared by the engine, the
// ledger and the save store.
package gameerr

import (
	"errors"
	"fmt"
)

// Error codes
const (
	CodeOracleUnavailable        = 1
	CodeInsufficientFunds        = 2
	CodeAlreadyUnlocked          = 3
	CodeUnsupportedSchemaVersion = 4
	CodeStorageWriteFailed       = 5
	CodeUnknownUpgrade           = 6
	CodeInvalidSave              = 7
)

// GameError is a structured error carrying one of the codes above
type GameError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *GameError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("hashquest: [%d] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("hashquest: [%d] %s", e.Code, e.Message)
}

// Is matches any GameError with the same code, so errors.Is works against
// the predefined values below regardless of details.
func (e *GameError) Is(target error) bool {
	t, ok := target.(*GameError)
	return ok && t.Code == e.Code
}

func (e *GameError) Unwrap() error {
	return e.Err
}

// New creates a GameError
func New(code int, message string, details ...string) *GameError {
	err := &GameError{
		Code:    code,
		Message: message,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// Wrap returns a copy of base with details and a cause attached
func Wrap(base *GameError, cause error, details string) error {
	return &GameError{
		Code:    base.Code,
		Message: base.Message,
		Details: details,
		Err:     cause,
	}
}

// CodeOf returns the code of the first GameError in err's chain, or 0
func CodeOf(err error) int {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return 0
}

// Predefined errors
var (
	ErrOracleUnavailable        = New(CodeOracleUnavailable, "hash oracle unavailable")
	ErrInsufficientFunds        = New(CodeInsufficientFunds, "insufficient funds")
	ErrAlreadyUnlocked          = New(CodeAlreadyUnlocked, "upgrade already unlocked")
	ErrUnsupportedSchemaVersion = New(CodeUnsupportedSchemaVersion, "unsupported schema version")
	ErrStorageWriteFailed       = New(CodeStorageWriteFailed, "storage write failed")
	ErrUnknownUpgrade           = New(CodeUnknownUpgrade, "unknown upgrade")
	ErrInvalidSave              = New(CodeInvalidSave, "invalid save data")
)

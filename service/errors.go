package service

import (
	"errors"
	"fmt"
)

// Error taxonomy. Validation errors are rejected before any write.
// Precondition errors are rejected inside the transaction with no partial
// write. Conflict errors surface after the store's own retry limit.
// ErrLedgerCorrupted is fatal: it indicates inconsistent ledger state
// upstream, not a legitimate race, and must abort the whole unit.
var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation is attempted against
	// an entity whose lifecycle state does not permit it.
	ErrInvalidState = errors.New("invalid lifecycle state")

	// ErrInsufficientFunds is returned when a debit would exceed the
	// user's spendable balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrLedgerCorrupted is returned when the locked balance is smaller
	// than the amount being released or debited. This is a consistency
	// failure, never retryable.
	ErrLedgerCorrupted = errors.New("ledger corrupted: locked balance below required amount")

	// ErrUnauthorized is returned when the acting operator is not allowed
	// to perform the requested action.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSettlementInProgress is returned when a settlement invocation
	// loses the guard-state race to a concurrent one.
	ErrSettlementInProgress = errors.New("settlement already in progress")
)

// ValidationError wraps a malformed or out-of-range input rejection.
// No side effects have occurred when one is returned.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// NewValidationError creates a validation error with the given reason
func NewValidationError(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err is a validation rejection
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

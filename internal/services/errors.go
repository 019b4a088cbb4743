package services

import (
	"errors"
	"fmt"
)

// Ledger/value errors. A declined debit or credit aborts the whole
// transition; the enclosing transaction rolls back.
var (
	ErrInsufficientFunds     = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// PreconditionError reports a failed transition guard: a role mismatch, an
// entity not in the expected state, an out-of-range index, or a malformed
// argument. The guard names which check failed; nothing is mutated.
type PreconditionError struct {
	Guard   string
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition %s: %s", e.Guard, e.Message)
}

func precondition(guard, format string, args ...interface{}) error {
	return &PreconditionError{Guard: guard, Message: fmt.Sprintf(format, args...)}
}

// InvariantError reports a defensive check that should be unreachable under
// correct transition logic. It means the escrow-entity reconciliation has
// already drifted somewhere else, so it is treated as fatal rather than as a
// recoverable user error.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant breach: %s", e.Message)
}

// ErrNotFound marks lookups for entities that were never created.
var ErrNotFound = errors.New("not found")

// IsPrecondition reports whether err carries a failed guard.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// IsInsufficientValue reports whether err is a ledger balance/allowance decline.
func IsInsufficientValue(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInsufficientAllowance)
}

// IsInvariant reports whether err is an internal reconciliation breach.
func IsInvariant(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

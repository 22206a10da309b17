/*
errors.go - Centralized error taxonomy for the balance core

PURPOSE:
  Every expected outcome of a balance operation is a named error here.
  Domain packages (wallet, ordering) add their own validation errors on
  top and wrap these where appropriate.

ERROR CATEGORIES:
  1. Money errors      - insufficient funds, invalid amount
  2. Concurrency       - contention, optimistic-lock conflict
  3. Lookup errors     - account not found
  4. Store errors      - persistence failures (wrapped, never partial)

PROPAGATION POLICY:
  All of these are recoverable results returned to the caller, never
  panics. On any error path the store performs no partial mutation -
  the Mutator's atomic unit rolls back whole.
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientFunds is returned when a debit would take the source
	// account below zero. No mutation happens.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidAmount is returned for amounts that are malformed,
	// zero, or negative.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrContention is returned when an account's serialization unit could
	// not be acquired within the configured bound. Retryable with the
	// same inputs.
	ErrContention = errors.New("account contention: lock not acquired in time")

	// ErrConcurrentModification is returned when the optimistic version
	// check fails inside the atomic unit. With account locks held this
	// indicates a writer bypassing the Mutator.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrAccountNotFound is returned when a referenced account doesn't exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrStoreRequired is returned when an operation needs a store
	// capability the configured implementation doesn't provide.
	ErrStoreRequired = errors.New("operation requires extended store interface")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError reports how short the source account was.
type InsufficientFundsError struct {
	AccountID AccountID
	Available Amount
	Requested Amount
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: account %s has %s, needs %s",
		e.AccountID, e.Available, e.Requested)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// InvalidAmountError reports why an amount was rejected.
type InvalidAmountError struct {
	Input  string
	Reason string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("invalid amount %q: %s", e.Input, e.Reason)
}

func (e *InvalidAmountError) Unwrap() error { return ErrInvalidAmount }

// StorageError wraps an underlying persistence fault. The operation that
// produced it performed no partial mutation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the same call might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrContention) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to the caller's input
// or balance state rather than a system fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsNotFound returns true if the error indicates a missing account.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

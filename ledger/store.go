/*
store.go - Persistence contracts for accounts and the entry log

PURPOSE:
  Defines the interface between the balance core and the database.
  The Store reads accounts, writes balances under an optimistic version
  check, and appends entries. TxStore adds the atomic unit the Mutator
  runs inside.

APPEND-ONLY CONTRACT:
  ledger entries have exactly one write operation: AppendEntry.
  No Update, no Delete. Ever. History is the audit trail.

CONSISTENCY:
  GetAccount inside a WithTx callback must observe the latest committed
  balance - the Mutator's read-modify-write depends on it. Implementations
  route tx-scoped reads through the transaction connection.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store (all interfaces)
  - ledger/store:  in-memory store for tests
*/
package ledger

import "context"

// =============================================================================
// STORE - Account and entry persistence
// =============================================================================

type Store interface {
	// GetAccount returns the account's current balance and version.
	// Returns ErrAccountNotFound if the id is unknown.
	GetAccount(ctx context.Context, id AccountID) (*Account, error)

	// UpdateBalance writes a new balance if the stored version still
	// matches expectedVersion, and bumps the version. Returns
	// ErrConcurrentModification on a version mismatch.
	//
	// ONLY the Mutator may call this.
	UpdateBalance(ctx context.Context, id AccountID, balance Amount, expectedVersion int) error

	// AppendEntry persists an entry. This is the only entry write.
	AppendEntry(ctx context.Context, e Entry) (EntryID, error)

	// EntriesFor returns all entries in which the account is sender or
	// recipient, newest first. Read-only.
	EntriesFor(ctx context.Context, id AccountID) ([]Entry, error)
}

// =============================================================================
// TRANSACTIONAL STORE - The Mutator's atomic unit
// =============================================================================

// TxStore wraps Store with transaction support.
//
// WithTx executes fn within one database transaction. If fn returns an
// error the transaction is rolled back whole - callers never observe a
// half-applied move. The Store handed to fn may implement further
// capabilities (top-up claims, order claims); callers type-assert and
// return ErrStoreRequired when the capability is missing.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}

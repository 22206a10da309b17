/*
Package ledger is the balance-consistency core of the wallet.

PURPOSE:
  Every peso that moves between campus accounts moves through this package.
  It owns the Account balance, the append-only Entry log, and the Mutator -
  the single primitive allowed to change a balance value.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: an exact fixed-point money value (2 decimal places)
  - Account: the ledger's view of a user - id, balance, version
  - Entry: an immutable record of one completed fund movement

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal - money is never a float
  2. Immutability: Entries are appended, never updated or deleted
  3. Single writer: Only the Mutator writes balances (see mutator.go)
  4. Auditability: Every entry carries kind, reference, and timestamp

SEE ALSO:
  - mutator.go: The atomic debit/credit/append primitive
  - store.go: Persistence contracts
  - errors.go: Error taxonomy
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Exact fixed-point money
// =============================================================================

// Amount is a monetary value with an implicit single currency.
// Amounts are always carried with 2 decimal places and never pass
// through binary floating point.
type Amount struct {
	Value decimal.Decimal
}

const amountPlaces = 2

// NewAmount builds an Amount from integer pesos and centavos.
func NewAmount(pesos int64, centavos int64) Amount {
	v := decimal.NewFromInt(pesos).Add(decimal.New(centavos, -amountPlaces))
	return Amount{Value: v}
}

// ParseAmount parses a decimal string such as "45.00".
// Returns ErrInvalidAmount for malformed input or more than 2 decimal
// places. Sign is NOT validated here - zero and negative amounts parse
// fine; the Mutator rejects them at the point of use.
func ParseAmount(s string) (Amount, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, &InvalidAmountError{Input: s, Reason: "not a decimal"}
	}
	if v.Exponent() < -amountPlaces {
		return Amount{}, &InvalidAmountError{Input: s, Reason: "more than 2 decimal places"}
	}
	return Amount{Value: v}, nil
}

// MustAmount parses a decimal string and panics on failure. Test helper.
func MustAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func Zero() Amount { return Amount{Value: decimal.Zero} }

func (a Amount) Add(b Amount) Amount      { return Amount{Value: a.Value.Add(b.Value)} }
func (a Amount) Sub(b Amount) Amount      { return Amount{Value: a.Value.Sub(b.Value)} }
func (a Amount) Neg() Amount              { return Amount{Value: a.Value.Neg()} }
func (a Amount) MulInt(n int64) Amount    { return Amount{Value: a.Value.Mul(decimal.NewFromInt(n))} }
func (a Amount) IsZero() bool             { return a.Value.IsZero() }
func (a Amount) IsNegative() bool         { return a.Value.IsNegative() }
func (a Amount) IsPositive() bool         { return a.Value.IsPositive() }
func (a Amount) LessThan(b Amount) bool   { return a.Value.LessThan(b.Value) }
func (a Amount) Equal(b Amount) bool      { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }

// String renders with exactly 2 decimal places ("20.00", not "20").
func (a Amount) String() string { return a.Value.StringFixed(amountPlaces) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type AccountID string

// EntryID is assigned by the store (auto-increment). Zero until persisted.
type EntryID int64

// =============================================================================
// ACCOUNT - Balance-holding identity
// =============================================================================

// Account is the ledger's projection of a user: just enough to move money.
// Profile data (name, phone, role) lives in the user package.
//
// INVARIANTS:
//   - Balance >= 0 at all times
//   - Version increments on every balance write (optimistic check)
//   - Accounts referenced by entries are never deleted
type Account struct {
	ID      AccountID
	Balance Amount
	Version int
}

// =============================================================================
// ENTRY - Immutable record of one completed fund movement
// =============================================================================

type EntryKind string

const (
	KindTransfer   EntryKind = "transfer"   // peer-to-peer or buyer->vendor
	KindSettlement EntryKind = "settlement" // order payment, buyer->vendor
	KindTopUp      EntryKind = "topup"      // unilateral admin-approved credit
)

// Entry records that Sender's balance was decremented and Recipient's
// incremented by exactly Amount, atomically, at CreatedAt.
//
// A nil Sender is the sentinel for a unilateral credit: money entered the
// system (top-up) rather than moving between accounts.
type Entry struct {
	ID        EntryID
	Sender    *AccountID
	Recipient AccountID
	Amount    Amount
	Kind      EntryKind

	// ReferenceID ties the entry back to the operation that caused it
	// (top-up request id, order id). Empty for plain transfers.
	ReferenceID string

	CreatedAt time.Time
}

// Unilateral reports whether the entry credits money into the system
// without debiting any account.
func (e Entry) Unilateral() bool { return e.Sender == nil }

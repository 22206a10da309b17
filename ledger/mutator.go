/*
mutator.go - The single choke point for every balance change

PURPOSE:
  Mutator.Apply is the only code path in the repository that writes an
  account balance. It debits one account (if present), credits another,
  and appends exactly one entry - all inside one atomic unit.

GUARANTEES (hold under concurrent invocations):
  - Atomicity: both balance writes and the entry append happen, or none do
  - No negative balances: a debit below zero fails with ErrInsufficientFunds
    and performs no mutation
  - Serializability per account: read-modify-write of one account's balance
    never interleaves (per-account locks, acquired in sorted order)
  - Exactly one entry per successful call

UNILATERAL CREDITS:
  A Move with From == nil credits money into the system (top-up approval).
  No account is debited; the entry records a nil sender as the sentinel.

WORKFLOW CLAIMS:
  State transitions that must be decided inside the same atomic unit as
  the fund movement (top-up pending->approved, order unpaid->paid) are
  passed as the Within hook. The hook runs first, inside the transaction,
  against the tx-scoped store - so a failed claim rolls the whole move
  back and a successful claim can never race the credit.

CANCELLATION:
  Once the atomic unit begins the move runs to commit or failure; the
  context only bounds lock acquisition.
*/
package ledger

import (
	"context"
	"time"
)

// =============================================================================
// MOVE - One requested fund movement
// =============================================================================

type Move struct {
	// From is the account to debit, or nil for a unilateral credit.
	From *AccountID

	// To is the account to credit.
	To AccountID

	Amount Amount
	Kind   EntryKind

	// ReferenceID is recorded on the entry (top-up id, order id).
	ReferenceID string

	// Within, if set, runs inside the same atomic unit before any
	// balance is read. Used for exactly-once status claims.
	Within func(Store) error
}

// =============================================================================
// MUTATOR
// =============================================================================

type Mutator struct {
	Store TxStore
	Locks *AccountLocks
}

func NewMutator(store TxStore) *Mutator {
	return &Mutator{
		Store: store,
		Locks: NewAccountLocks(DefaultLockTimeout),
	}
}

// Apply executes the move and returns the recorded entry.
//
// Error taxonomy: ErrInvalidAmount, ErrAccountNotFound,
// ErrInsufficientFunds, ErrContention, plus whatever the Within hook
// returns. On every error path no mutation has happened.
func (m *Mutator) Apply(ctx context.Context, mv Move) (*Entry, error) {
	if !mv.Amount.IsPositive() {
		return nil, &InvalidAmountError{Input: mv.Amount.String(), Reason: "must be positive"}
	}

	// Serialize on every involved account, sorted ids, bounded wait.
	involved := []AccountID{mv.To}
	if mv.From != nil {
		involved = append(involved, *mv.From)
	}
	release, err := m.Locks.Acquire(ctx, involved...)
	if err != nil {
		return nil, err
	}
	defer release()

	var entry *Entry
	err = m.Store.WithTx(ctx, func(s Store) error {
		if mv.Within != nil {
			if err := mv.Within(s); err != nil {
				return err
			}
		}

		// Debit source, if any.
		if mv.From != nil {
			from, err := s.GetAccount(ctx, *mv.From)
			if err != nil {
				return err
			}
			if from.Balance.LessThan(mv.Amount) {
				return &InsufficientFundsError{
					AccountID: from.ID,
					Available: from.Balance,
					Requested: mv.Amount,
				}
			}
			if err := s.UpdateBalance(ctx, from.ID, from.Balance.Sub(mv.Amount), from.Version); err != nil {
				return err
			}
		}

		// Credit destination.
		to, err := s.GetAccount(ctx, mv.To)
		if err != nil {
			return err
		}
		if err := s.UpdateBalance(ctx, to.ID, to.Balance.Add(mv.Amount), to.Version); err != nil {
			return err
		}

		e := Entry{
			Sender:      mv.From,
			Recipient:   mv.To,
			Amount:      mv.Amount,
			Kind:        mv.Kind,
			ReferenceID: mv.ReferenceID,
			CreatedAt:   time.Now().UTC(),
		}
		id, err := s.AppendEntry(ctx, e)
		if err != nil {
			return err
		}
		e.ID = id
		entry = &e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Balance reads an account's current balance outside any move.
func (m *Mutator) Balance(ctx context.Context, id AccountID) (Amount, error) {
	acc, err := m.Store.GetAccount(ctx, id)
	if err != nil {
		return Amount{}, err
	}
	return acc.Balance, nil
}

/*
Package wallet exposes the user-facing money operations: peer transfers,
vendor-initiated buyer payments, and the top-up approval workflow.

These services are thin orchestration in front of the ledger Mutator:
validate, resolve, move, map errors. They never touch a balance
directly - only ledger.Mutator.Apply does that.
*/
package wallet

import (
	"context"
	"errors"

	"github.com/juanbytes/campuspay/ledger"
	"github.com/juanbytes/campuspay/user"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSelfTransfer is returned when sender and recipient resolve to
	// the same account.
	ErrSelfTransfer = errors.New("cannot transfer to yourself")

	// ErrRecipientNotFound is returned when the phone number resolves
	// to no registered user.
	ErrRecipientNotFound = errors.New("recipient not found")

	// ErrRecipientNotBuyer is returned when a vendor tries to pull
	// payment from another vendor.
	ErrRecipientNotBuyer = errors.New("recipient must be a buyer")

	// ErrNotAuthorized is returned when the caller lacks the role the
	// operation requires.
	ErrNotAuthorized = errors.New("not authorized")
)

// =============================================================================
// TRANSFER SERVICE
// =============================================================================

type TransferService struct {
	Mutator *ledger.Mutator
	Users   user.Directory
}

func NewTransferService(m *ledger.Mutator, users user.Directory) *TransferService {
	return &TransferService{Mutator: m, Users: users}
}

// Peer moves amount from the sender to the user owning recipientPhone.
//
// Errors: ErrRecipientNotFound, ErrSelfTransfer, and everything the
// Mutator can return (ErrInsufficientFunds, ErrInvalidAmount,
// ErrContention).
func (s *TransferService) Peer(ctx context.Context, senderID ledger.AccountID, recipientPhone string, amount ledger.Amount) (*ledger.Entry, error) {
	recipient, err := s.Users.FindByPhone(ctx, recipientPhone)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}

	if recipient.ID == senderID {
		return nil, ErrSelfTransfer
	}

	return s.Mutator.Apply(ctx, ledger.Move{
		From:   &senderID,
		To:     recipient.ID,
		Amount: amount,
		Kind:   ledger.KindTransfer,
	})
}

// BuyerToVendor lets a vendor pull payment from a buyer identified by
// phone. The caller must hold the vendor role and the resolved account
// must not: role difference is the authorization, not the staff flag.
//
// Errors: ErrNotAuthorized, ErrRecipientNotFound, ErrRecipientNotBuyer,
// plus Mutator errors (the buyer's ErrInsufficientFunds included).
func (s *TransferService) BuyerToVendor(ctx context.Context, vendorID ledger.AccountID, buyerPhone string, amount ledger.Amount) (*ledger.Entry, error) {
	vendor, err := s.Users.Get(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor.Role != user.RoleVendor {
		return nil, ErrNotAuthorized
	}

	buyer, err := s.Users.FindByPhone(ctx, buyerPhone)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrRecipientNotFound
		}
		return nil, err
	}
	if buyer.Role == user.RoleVendor {
		return nil, ErrRecipientNotBuyer
	}

	buyerID := buyer.ID
	return s.Mutator.Apply(ctx, ledger.Move{
		From:   &buyerID,
		To:     vendorID,
		Amount: amount,
		Kind:   ledger.KindTransfer,
	})
}

// History returns the ledger entries involving the account, newest first.
func (s *TransferService) History(ctx context.Context, id ledger.AccountID) ([]ledger.Entry, error) {
	return s.Mutator.Store.EntriesFor(ctx, id)
}

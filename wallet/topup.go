/*
topup.go - Admin-approved top-up workflow

STATE MACHINE:
  pending --(approve)--> approved   (terminal, credits exactly once)
  pending --(reject)---> rejected   (terminal, no balance effect)

The decision claim runs INSIDE the Mutator's atomic unit, not before
it: ClaimDecision flips pending->terminal with a conditional update, so
a re-run or a concurrent rival sees zero affected rows and gets
ErrAlreadyDecided instead of a second credit. Check-then-act is not
possible here - the check IS the act.
*/
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juanbytes/campuspay/ledger"
	"github.com/juanbytes/campuspay/user"
)

// =============================================================================
// TOP-UP REQUEST
// =============================================================================

type TopUpStatus string

const (
	TopUpPending  TopUpStatus = "pending"
	TopUpApproved TopUpStatus = "approved"
	TopUpRejected TopUpStatus = "rejected"
)

var ErrAlreadyDecided = errors.New("top-up request already decided")

var ErrTopUpNotFound = errors.New("top-up request not found")

type TopUpRequest struct {
	ID        string
	UserID    ledger.AccountID
	Amount    ledger.Amount
	Status    TopUpStatus
	CreatedAt time.Time

	DecidedBy *ledger.AccountID
	DecidedAt *time.Time
}

// =============================================================================
// TOP-UP STORE
// =============================================================================

// TopUpStore persists requests. ClaimDecision is the only status write
// and must be conditional on the current status being pending.
type TopUpStore interface {
	CreateTopUp(ctx context.Context, req TopUpRequest) error
	GetTopUp(ctx context.Context, id string) (*TopUpRequest, error)
	ListTopUps(ctx context.Context) ([]TopUpRequest, error)
	ListTopUpsFor(ctx context.Context, userID ledger.AccountID) ([]TopUpRequest, error)

	// ClaimDecision transitions pending -> status, recording the
	// decider. Returns ErrAlreadyDecided when the request is already
	// terminal and ErrTopUpNotFound when it doesn't exist.
	ClaimDecision(ctx context.Context, id string, status TopUpStatus, decidedBy ledger.AccountID, at time.Time) error
}

// =============================================================================
// TOP-UP SERVICE
// =============================================================================

type TopUpService struct {
	Mutator *ledger.Mutator
	Store   TopUpStore
	Users   user.Directory
}

func NewTopUpService(m *ledger.Mutator, store TopUpStore, users user.Directory) *TopUpService {
	return &TopUpService{Mutator: m, Store: store, Users: users}
}

// Create files a pending top-up request for the given account.
func (s *TopUpService) Create(ctx context.Context, userID ledger.AccountID, amount ledger.Amount) (*TopUpRequest, error) {
	if !amount.IsPositive() {
		return nil, &ledger.InvalidAmountError{Input: amount.String(), Reason: "must be positive"}
	}

	req := TopUpRequest{
		ID:        fmt.Sprintf("top-%d", time.Now().UnixNano()),
		UserID:    userID,
		Amount:    amount,
		Status:    TopUpPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Store.CreateTopUp(ctx, req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Approve credits the requester's balance exactly once.
//
// The claim and the credit share one atomic unit: if the claim fails
// (already decided) nothing is credited; if the credit fails
// (storage fault) the claim rolls back and the request stays pending.
func (s *TopUpService) Approve(ctx context.Context, requestID string, adminID ledger.AccountID) (*TopUpRequest, error) {
	req, err := s.authorizeDecision(ctx, requestID, adminID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = s.Mutator.Apply(ctx, ledger.Move{
		To:          req.UserID,
		Amount:      req.Amount,
		Kind:        ledger.KindTopUp,
		ReferenceID: req.ID,
		Within: func(store ledger.Store) error {
			ts, ok := store.(TopUpStore)
			if !ok {
				return ledger.ErrStoreRequired
			}
			return ts.ClaimDecision(ctx, req.ID, TopUpApproved, adminID, now)
		},
	})
	if err != nil {
		return nil, err
	}

	return s.Store.GetTopUp(ctx, requestID)
}

// Reject terminates the request with no balance effect.
func (s *TopUpService) Reject(ctx context.Context, requestID string, adminID ledger.AccountID) (*TopUpRequest, error) {
	req, err := s.authorizeDecision(ctx, requestID, adminID)
	if err != nil {
		return nil, err
	}

	if err := s.Store.ClaimDecision(ctx, req.ID, TopUpRejected, adminID, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.Store.GetTopUp(ctx, requestID)
}

func (s *TopUpService) authorizeDecision(ctx context.Context, requestID string, adminID ledger.AccountID) (*TopUpRequest, error) {
	admin, err := s.Users.Get(ctx, adminID)
	if err != nil {
		return nil, err
	}
	if admin.Role != user.RoleAdmin {
		return nil, ErrNotAuthorized
	}
	return s.Store.GetTopUp(ctx, requestID)
}

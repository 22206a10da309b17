/*
Package ordering covers purchase intents and their settlement.

ORDER LIFECYCLE:
  created (unpaid) --(pay)--> paid   (one-way, settles buyer->vendor once)

PRICE SNAPSHOT:
  total price = food unit price x quantity, computed at creation and
  frozen. Later catalog price changes never affect an existing order -
  the order carries copied data, not a live reference. The vendor is
  copied the same way.

ONE UNPAID ORDER PER BUYER:
  New orders are rejected while one is outstanding. The store backs the
  pre-check with a partial unique index, so two racing creates cannot
  both slip through.

SETTLEMENT:
  Pay claims unpaid->paid inside the Mutator's atomic unit that moves
  the funds. InsufficientFunds aborts the claim too: the order stays
  unpaid, balances untouched.
*/
package ordering

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/juanbytes/campuspay/catalog"
	"github.com/juanbytes/campuspay/ledger"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrAlreadyPaid       = errors.New("order already paid")
	ErrUnpaidOrderExists = errors.New("an unpaid order already exists for this account")
	ErrInvalidQuantity   = errors.New("quantity must be a positive integer")
)

// =============================================================================
// ORDER
// =============================================================================

type Order struct {
	ID       string
	UserID   ledger.AccountID // buyer
	FoodID   string
	FoodName string // copied for display, like the price
	Quantity int

	// TotalPrice and VendorID are snapshotted at creation and immutable.
	TotalPrice ledger.Amount
	VendorID   ledger.AccountID

	Paid      bool
	CreatedAt time.Time
}

// =============================================================================
// ORDER STORE
// =============================================================================

type OrderStore interface {
	// CreateOrder inserts an unpaid order. Returns ErrUnpaidOrderExists
	// when the buyer already has one outstanding (unique-index backed).
	CreateOrder(ctx context.Context, o Order) error

	GetOrder(ctx context.Context, id string) (*Order, error)

	// ListOrdersFor returns the buyer's orders, newest first.
	ListOrdersFor(ctx context.Context, userID ledger.AccountID) ([]Order, error)

	// ListOrdersForVendor returns orders addressed to the vendor, newest first.
	ListOrdersForVendor(ctx context.Context, vendorID ledger.AccountID) ([]Order, error)

	// ClaimPaid transitions unpaid -> paid. Returns ErrAlreadyPaid when
	// the order is already paid and ErrOrderNotFound when it doesn't exist.
	ClaimPaid(ctx context.Context, id string) error
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Mutator *ledger.Mutator
	Store   OrderStore
	Catalog catalog.FoodFinder
}

func NewService(m *ledger.Mutator, store OrderStore, cat catalog.FoodFinder) *Service {
	return &Service{Mutator: m, Store: store, Catalog: cat}
}

// Create places an unpaid order, snapshotting the food's price and vendor.
func (s *Service) Create(ctx context.Context, buyerID ledger.AccountID, foodID string, quantity int) (*Order, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	food, err := s.Catalog.GetFood(ctx, foodID)
	if err != nil {
		return nil, err
	}

	o := Order{
		ID:         fmt.Sprintf("ord-%d", time.Now().UnixNano()),
		UserID:     buyerID,
		FoodID:     food.ID,
		FoodName:   food.Name,
		Quantity:   quantity,
		TotalPrice: food.Price.MulInt(int64(quantity)),
		VendorID:   food.VendorID,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.Store.CreateOrder(ctx, o); err != nil {
		return nil, err
	}
	return &o, nil
}

// Pay settles the order: one buyer->vendor move of the snapshotted
// total, and the unpaid->paid flip, in one atomic unit.
//
// Only the order's buyer (or an admin) may pay; the api layer enforces
// that and hands us the authorized caller.
func (s *Service) Pay(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.Store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Paid {
		return nil, ErrAlreadyPaid
	}

	buyerID := o.UserID
	_, err = s.Mutator.Apply(ctx, ledger.Move{
		From:        &buyerID,
		To:          o.VendorID,
		Amount:      o.TotalPrice,
		Kind:        ledger.KindSettlement,
		ReferenceID: o.ID,
		Within: func(store ledger.Store) error {
			os, ok := store.(OrderStore)
			if !ok {
				return ledger.ErrStoreRequired
			}
			return os.ClaimPaid(ctx, o.ID)
		},
	})
	if err != nil {
		return nil, err
	}

	return s.Store.GetOrder(ctx, orderID)
}

// ListFor returns the caller's view: buyers see their own orders,
// vendors see orders addressed to them.
func (s *Service) ListFor(ctx context.Context, id ledger.AccountID, vendor bool) ([]Order, error) {
	if vendor {
		return s.Store.ListOrdersForVendor(ctx, id)
	}
	return s.Store.ListOrdersFor(ctx, id)
}

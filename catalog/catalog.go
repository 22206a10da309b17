/*
Package catalog models the browsable food catalog: canteens, their
categories, and the foods vendors sell. It is read-mostly projection -
the only thing the balance core ever takes from it is a food's price
and vendor at order creation, and those are copied, never referenced.
*/
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/juanbytes/campuspay/ledger"
)

var (
	ErrFoodNotFound     = errors.New("food not found")
	ErrCanteenNotFound  = errors.New("canteen not found")
	ErrCategoryNotFound = errors.New("category not found")
)

// =============================================================================
// TYPES
// =============================================================================

type Canteen struct {
	ID          string
	Name        string
	Description string
}

type Category struct {
	ID        string
	Name      string
	CanteenID string
}

type Food struct {
	ID          string
	Name        string
	Description string
	Price       ledger.Amount
	CategoryID  string
	VendorID    ledger.AccountID

	// Approved foods appear in the featured listing.
	Approved bool

	CreatedAt time.Time
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// FoodFinder is the slice of the catalog the ordering service needs.
type FoodFinder interface {
	GetFood(ctx context.Context, id string) (*Food, error)
}

type Store interface {
	FoodFinder

	ListCanteens(ctx context.Context) ([]Canteen, error)
	ListCategories(ctx context.Context, canteenID string) ([]Category, error)
	ListFoods(ctx context.Context, categoryID string) ([]Food, error)
	ListFeaturedFoods(ctx context.Context) ([]Food, error)

	CreateCanteen(ctx context.Context, c Canteen) error
	CreateCategory(ctx context.Context, c Category) error
	CreateFood(ctx context.Context, f Food) error
	UpdateFood(ctx context.Context, f Food) error
}

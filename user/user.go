/*
Package user holds the profile side of a campus account.

The ledger package owns the money (balance, entries); this package owns
who the person is: contact identifiers, role, and the health-profile
fields the mobile app shows. Registration creates both sides at once -
a profile here and an account at balance 0 in the ledger.

ROLES:
  The original platform overloaded a single staff flag to mean both
  "site admin" and "food vendor". Those are distinct capabilities, so
  they are split into an explicit enum: vendors can pull buyer payments
  and own foods, admins decide top-ups and publish notifications.
*/
package user

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/juanbytes/campuspay/ledger"
)

// =============================================================================
// ROLES
// =============================================================================

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleVendor Role = "vendor"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleBuyer, RoleVendor, RoleAdmin:
		return true
	}
	return false
}

// =============================================================================
// USER
// =============================================================================

// User is a registered person. User.ID doubles as the ledger account id.
type User struct {
	ID        ledger.AccountID
	Phone     string // unique; transfer-resolution identifier
	Email     string // unique; login identifier
	FirstName string
	LastName  string
	Role      Role

	// Health profile, optional. Height in centimeters, weight in kilograms.
	Height *decimal.Decimal
	Weight *decimal.Decimal

	PasswordHash string
	CreatedAt    time.Time
}

// BMI computes weight / (height/100)^2 rounded to 2 decimal places, or
// nil when either measurement is missing or height is zero.
func (u *User) BMI() *decimal.Decimal {
	if u.Height == nil || u.Weight == nil || u.Height.IsZero() {
		return nil
	}
	meters := u.Height.Div(decimal.NewFromInt(100))
	bmi := u.Weight.Div(meters.Mul(meters)).Round(2)
	return &bmi
}

// =============================================================================
// DIRECTORY - How services resolve users
// =============================================================================

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("user already exists")
)

// Directory is the lookup surface the wallet and ordering services need.
// The sqlite store implements it.
type Directory interface {
	// Get returns the user owning the given account.
	Get(ctx context.Context, id ledger.AccountID) (*User, error)

	// FindByPhone resolves a user by phone number.
	FindByPhone(ctx context.Context, phone string) (*User, error)

	// FindByEmail resolves a user by email address.
	FindByEmail(ctx context.Context, email string) (*User, error)
}

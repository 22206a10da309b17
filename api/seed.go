/*
seed.go - Demo dataset loader for testing and demonstrations

PURPOSE:

	Populates the database with a realistic campus: an admin, two
	vendors with canteen stalls and priced foods, and a couple of
	buyers with approved top-ups so transfers and orders work right
	away in a demo.

USAGE VIA API:

	POST /api/admin/seed        (admin token required)

All demo accounts share the password "campus123".

NOTE:

	Seeding is additive and idempotent per run only on a fresh
	database; re-running against existing data fails on the unique
	phone/email constraints. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler dependencies
  - server.go: Route registration
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/juanbytes/campuspay/auth"
	"github.com/juanbytes/campuspay/catalog"
	"github.com/juanbytes/campuspay/ledger"
	"github.com/juanbytes/campuspay/user"
)

// SeedDemo loads the demo campus dataset.
func (h *Handler) SeedDemo(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if !id.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required", nil)
		return
	}

	if err := h.seedCampus(r.Context(), id.AccountID); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to seed demo data", err)
		return
	}

	h.Log.Info("demo dataset seeded")
	writeJSON(w, http.StatusOK, map[string]string{"status": "seeded"})
}

// SeedAdmin creates the bootstrap admin account if it does not exist.
// Called from main on startup when seeding is enabled; without at
// least one admin no top-up can ever be approved.
func (h *Handler) SeedAdmin(ctx context.Context, email, password string) error {
	if _, err := h.Store.FindByEmail(ctx, email); err == nil {
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	return h.Store.CreateUser(ctx, user.User{
		ID:           "usr-admin",
		Phone:        "0917-000-0000",
		Email:        email,
		FirstName:    "Campus",
		LastName:     "Admin",
		Role:         user.RoleAdmin,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	})
}

func (h *Handler) seedCampus(ctx context.Context, adminID ledger.AccountID) error {
	hash, err := auth.HashPassword("campus123")
	if err != nil {
		return err
	}

	users := []user.User{
		{ID: "usr-aling-nena", Phone: "0917-111-0001", Email: "nena@campus.demo",
			FirstName: "Nena", LastName: "Reyes", Role: user.RoleVendor},
		{ID: "usr-mang-tomas", Phone: "0917-111-0002", Email: "tomas@campus.demo",
			FirstName: "Tomas", LastName: "Cruz", Role: user.RoleVendor},
		{ID: "usr-juan", Phone: "0917-111-0003", Email: "juan@campus.demo",
			FirstName: "Juan", LastName: "Santos", Role: user.RoleBuyer},
		{ID: "usr-maria", Phone: "0917-111-0004", Email: "maria@campus.demo",
			FirstName: "Maria", LastName: "Garcia", Role: user.RoleBuyer},
	}
	for _, u := range users {
		u.PasswordHash = hash
		u.CreatedAt = time.Now().UTC()
		if err := h.Store.CreateUser(ctx, u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.ID, err)
		}
	}

	// Buyers start with an approved top-up so orders settle in demos.
	for _, buyer := range []ledger.AccountID{"usr-juan", "usr-maria"} {
		topup, err := h.TopUps.Create(ctx, buyer, ledger.MustAmount("500.00"))
		if err != nil {
			return err
		}
		if _, err := h.TopUps.Approve(ctx, topup.ID, adminID); err != nil {
			return err
		}
	}

	canteen := catalog.Canteen{ID: "cnt-main", Name: "Main Canteen",
		Description: "Ground floor, student center"}
	if err := h.Store.CreateCanteen(ctx, canteen); err != nil {
		return err
	}

	categories := []catalog.Category{
		{ID: "cat-mains", Name: "Mains", CanteenID: canteen.ID},
		{ID: "cat-drinks", Name: "Drinks", CanteenID: canteen.ID},
	}
	for _, c := range categories {
		if err := h.Store.CreateCategory(ctx, c); err != nil {
			return err
		}
	}

	foods := []catalog.Food{
		{ID: "food-sisig", Name: "Sisig Rice", Price: ledger.MustAmount("65.00"),
			CategoryID: "cat-mains", VendorID: "usr-aling-nena", Approved: true},
		{ID: "food-adobo", Name: "Chicken Adobo", Price: ledger.MustAmount("70.00"),
			CategoryID: "cat-mains", VendorID: "usr-aling-nena", Approved: true},
		{ID: "food-lumpia", Name: "Lumpiang Shanghai", Price: ledger.MustAmount("50.00"),
			CategoryID: "cat-mains", VendorID: "usr-mang-tomas", Approved: true},
		{ID: "food-gulaman", Name: "Sago't Gulaman", Price: ledger.MustAmount("25.00"),
			CategoryID: "cat-drinks", VendorID: "usr-mang-tomas", Approved: true},
	}
	for _, f := range foods {
		f.CreatedAt = time.Now().UTC()
		if err := h.Store.CreateFood(ctx, f); err != nil {
			return err
		}
	}

	return nil
}

package ordering_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juanbytes/campuspay/catalog"
	"github.com/juanbytes/campuspay/ledger"
	"github.com/juanbytes/campuspay/ordering"
	"github.com/juanbytes/campuspay/store/sqlite"
	"github.com/juanbytes/campuspay/user"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fixture struct {
	store   *sqlite.Store
	mutator *ledger.Mutator
	orders  *ordering.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	m := ledger.NewMutator(store)
	return &fixture{
		store:   store,
		mutator: m,
		orders:  ordering.NewService(m, store, store),
	}
}

var seq int

func (f *fixture) seedUser(t *testing.T, role user.Role, balance string) ledger.AccountID {
	t.Helper()
	seq++
	id := ledger.AccountID(fmt.Sprintf("usr-%s-%d", role, seq))
	err := f.store.CreateUser(context.Background(), user.User{
		ID:           id,
		Phone:        fmt.Sprintf("0917-%06d", seq),
		Email:        fmt.Sprintf("%s@campus.test", id),
		PasswordHash: "x",
		FirstName:    "Test",
		LastName:     string(role),
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	if balance != "" && balance != "0.00" {
		_, err := f.mutator.Apply(context.Background(), ledger.Move{
			To:     id,
			Amount: ledger.MustAmount(balance),
			Kind:   ledger.KindTopUp,
		})
		require.NoError(t, err)
	}
	return id
}

func (f *fixture) seedFood(t *testing.T, vendorID ledger.AccountID, name, price string) *catalog.Food {
	t.Helper()
	seq++
	ctx := context.Background()

	canteen := catalog.Canteen{ID: fmt.Sprintf("cnt-%d", seq), Name: "Main Canteen"}
	require.NoError(t, f.store.CreateCanteen(ctx, canteen))
	category := catalog.Category{ID: fmt.Sprintf("cat-%d", seq), Name: "Mains", CanteenID: canteen.ID}
	require.NoError(t, f.store.CreateCategory(ctx, category))

	food := catalog.Food{
		ID:         fmt.Sprintf("food-%d", seq),
		Name:       name,
		Price:      ledger.MustAmount(price),
		CategoryID: category.ID,
		VendorID:   vendorID,
		Approved:   true,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, f.store.CreateFood(ctx, food))
	return &food
}

func (f *fixture) balance(t *testing.T, id ledger.AccountID) string {
	t.Helper()
	b, err := f.mutator.Balance(context.Background(), id)
	require.NoError(t, err)
	return b.String()
}

// =============================================================================
// ORDER CREATION
// =============================================================================

func TestCreate_SnapshotsPriceAndVendor(t *testing.T) {
	// GIVEN: sisig at 65.00 sold by a vendor
	// WHEN: a buyer orders 3
	// THEN: the order carries 195.00 and the vendor id, not a food pointer

	f := newFixture(t)
	ctx := context.Background()

	vendor := f.seedUser(t, user.RoleVendor, "")
	buyer := f.seedUser(t, user.RoleBuyer, "500.00")
	food := f.seedFood(t, vendor, "Sisig", "65.00")

	o, err := f.orders.Create(ctx, buyer, food.ID, 3)
	require.NoError(t, err)

	assert.Equal(t, "195.00", o.TotalPrice.String())
	assert.Equal(t, vendor, o.VendorID)
	assert.Equal(t, "Sisig", o.FoodName)
	assert.False(t, o.Paid)
}

func TestCreate_PriceChangeDoesNotTouchExistingOrder(t *testing.T) {
	// GIVEN: an unpaid order snapshotted at 65.00/unit
	// WHEN: the catalog price rises before payment
	// THEN: settlement still charges the snapshotted total

	f := newFixture(t)
	ctx := context.Background()

	vendor := f.seedUser(t, user.RoleVendor, "")
	buyer := f.seedUser(t, user.RoleBuyer, "500.00")
	food := f.seedFood(t, vendor, "Sisig", "65.00")

	o, err := f.orders.Create(ctx, buyer, food.ID, 2)
	require.NoError(t, err)

	repriced := *food
	repriced.Price = ledger.MustAmount("80.00")
	require.NoError(t, f.store.UpdateFood(ctx, repriced))

	paid, err := f.orders.Pay(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "130.00", paid.TotalPrice.String())
	assert.Equal(t, "370.00", f.balance(t, buyer))
	assert.Equal(t, "130.00", f.balance(t, vendor))
}

func TestCreate_SecondUnpaidOrderRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vendor := f.seedUser(t, user.RoleVendor, "")
	buyer := f.seedUser(t, user.RoleBuyer, "500.00")
	food := f.seedFood(t, vendor, "Sisig", "65.00")

	_, err := f.orders.Create(ctx, buyer, food.ID, 1)
	require.NoError(t, err)

	_, err = f.orders.Create(ctx, buyer, food.ID, 1)
	assert.ErrorIs(t, err, ordering.ErrUnpaidOrderExists)
}

func TestCreate_AllowedAgainAfterPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vendor := f.seedUser(t, user.RoleVendor, "")
	buyer := f.seedUser(t, user.RoleBuyer, "500.00")
	food := f.seedFood(t, vendor, "Sisig", "65.00")

	first, err := f.orders.Create(ctx, buyer, food.ID, 1)
	require.NoError(t, err)
	_, err = f.orders.Pay(ctx, first.ID)
	require.NoError(t, err)

	_, err = f.orders.Create(ctx, buyer, food.ID, 1)
	assert.NoError(t, err, "a paid order no longer blocks new ones")
}

func TestCreate_RejectsBadQuantityAndUnknownFood(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vendor := f.seedUser(t, user.RoleVendor, "")
	buyer := f.seedUser(t, user.RoleBuyer, "100.00")
	food := f.seedFood(t, vendor, "Sisig", "65.00")

	_, err := f.orders.Create(ctx, buyer, food.ID, 0)
	assert.ErrorIs(t, err, ordering.ErrInvalidQuantity)
	_, err = f.orders.Create(ctx, buyer, food.ID, -2)
	assert.ErrorIs(t, err, ordering.ErrInvalidQuantity)
	_, err = f.orders.Create(ctx, buyer, "food-does-not-exist", 1)
	assert.ErrorIs(t, err, catalog.ErrFoodNotFound)
}

// =============================================================================
// SETTLEMENT
// =============================================================================

func TestPay_SettlesBuyerToVendor(t *testing.T) {
	// GIVEN: buyer 500.00, vendor 0.00, unpaid order for 130.00
	// WHEN: the buyer pays
	// THEN: buyer 370.00, vendor 130.00, order paid, one settlement entry

	f := newFixture(t)
	ctx := context.Background()

	vendor := f.seedUser(t, user.RoleVendor, "")
	buyer := f.seedUser(t, user.RoleBuyer, "500.00")
	food := f.seedFood(t, vendor, "Sisig", "65.00")

	o, err := f.orders.Create(ctx, buyer, food.ID, 2)
	require.NoError(t, err)

	paid, err := f.orders.Pay(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	assert.Equal(t, "370.00", f.balance(t, buyer))
	assert.Equal(t, "130.00", f.balance(t, vendor))

	entries, err := f.store.EntriesFor(ctx, vendor)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ledger.KindSettlement, entries[0].Kind)
	assert.Equal(t, o.ID, entries[0].ReferenceID)
}

func TestPay_InsufficientFundsLeavesOrderUnpaid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vendor := f.seedUser(t, user.RoleVendor, "")
	buyer := f.seedUser(t, user.RoleBuyer, "50.00")
	food := f.seedFood(t, vendor, "Sisig", "65.00")

	o, err := f.orders.Create(ctx, buyer, food.ID, 1)
	require.NoError(t, err)

	_, err = f.orders.Pay(ctx, o.ID)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	after, err := f.store.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.False(t, after.Paid, "failed settlement must not flip the status")
	assert.Equal(t, "50.00", f.balance(t, buyer))
	assert.Equal(t, "0.00", f.balance(t, vendor))
}

func TestPay_SecondPaymentRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vendor := f.seedUser(t, user.RoleVendor, "")
	buyer := f.seedUser(t, user.RoleBuyer, "500.00")
	food := f.seedFood(t, vendor, "Sisig", "65.00")

	o, err := f.orders.Create(ctx, buyer, food.ID, 1)
	require.NoError(t, err)

	_, err = f.orders.Pay(ctx, o.ID)
	require.NoError(t, err)
	_, err = f.orders.Pay(ctx, o.ID)
	assert.ErrorIs(t, err, ordering.ErrAlreadyPaid)

	assert.Equal(t, "435.00", f.balance(t, buyer), "no double charge")
	assert.Equal(t, "65.00", f.balance(t, vendor))
}

func TestPay_ConcurrentPayments_ChargeOnce(t *testing.T) {
	// GIVEN: one unpaid order
	// WHEN: several callers race to pay it
	// THEN: one settlement, everyone else sees AlreadyPaid

	f := newFixture(t)
	ctx := context.Background()

	vendor := f.seedUser(t, user.RoleVendor, "")
	buyer := f.seedUser(t, user.RoleBuyer, "500.00")
	food := f.seedFood(t, vendor, "Sisig", "65.00")

	o, err := f.orders.Create(ctx, buyer, food.ID, 1)
	require.NoError(t, err)

	const racers = 8
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.Pay(ctx, o.ID)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ordering.ErrAlreadyPaid)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, "435.00", f.balance(t, buyer))
	assert.Equal(t, "65.00", f.balance(t, vendor))
}

func TestPay_UnknownOrder(t *testing.T) {
	f := newFixture(t)
	_, err := f.orders.Pay(context.Background(), "ord-missing")
	assert.ErrorIs(t, err, ordering.ErrOrderNotFound)
}

// =============================================================================
// LISTING
// =============================================================================

func TestListFor_SplitsBuyerAndVendorViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	vendor := f.seedUser(t, user.RoleVendor, "")
	buyerA := f.seedUser(t, user.RoleBuyer, "500.00")
	buyerB := f.seedUser(t, user.RoleBuyer, "500.00")
	food := f.seedFood(t, vendor, "Sisig", "65.00")

	oa, err := f.orders.Create(ctx, buyerA, food.ID, 1)
	require.NoError(t, err)
	_, err = f.orders.Pay(ctx, oa.ID)
	require.NoError(t, err)
	_, err = f.orders.Create(ctx, buyerB, food.ID, 2)
	require.NoError(t, err)

	mine, err := f.orders.ListFor(ctx, buyerA, false)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, buyerA, mine[0].UserID)

	incoming, err := f.orders.ListFor(ctx, vendor, true)
	require.NoError(t, err)
	assert.Len(t, incoming, 2)
}

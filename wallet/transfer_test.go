package wallet_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/juanbytes/campuspay/ledger"
	"github.com/juanbytes/campuspay/user"
	"github.com/juanbytes/campuspay/wallet"
)

// =============================================================================
// PEER TRANSFERS
// =============================================================================

func TestPeer_MovesExactAmount(t *testing.T) {
	// GIVEN: Ana holds 500.00, Ben holds 20.00
	// WHEN: Ana sends 125.50 to Ben's phone number
	// THEN: Ana 374.50, Ben 145.50, one transfer entry recorded

	store := newTestStore(t)
	mutator := ledger.NewMutator(store)
	svc := wallet.NewTransferService(mutator, store)
	ctx := context.Background()

	ana := seedUser(t, store, user.RoleBuyer, "0917-100-0001")
	ben := seedUser(t, store, user.RoleBuyer, "0917-100-0002")
	fund(t, mutator, ana, "500.00")
	fund(t, mutator, ben, "20.00")

	entry, err := svc.Peer(ctx, ana, "0917-100-0002", ledger.MustAmount("125.50"))
	require.NoError(t, err)

	assert.Equal(t, "374.50", balanceOf(t, mutator, ana))
	assert.Equal(t, "145.50", balanceOf(t, mutator, ben))
	require.NotNil(t, entry.Sender)
	assert.Equal(t, ana, *entry.Sender)
	assert.Equal(t, ben, entry.Recipient)
	assert.Equal(t, ledger.KindTransfer, entry.Kind)
}

func TestPeer_SelfTransferRejected(t *testing.T) {
	store := newTestStore(t)
	mutator := ledger.NewMutator(store)
	svc := wallet.NewTransferService(mutator, store)

	ana := seedUser(t, store, user.RoleBuyer, "0917-100-0011")
	fund(t, mutator, ana, "100.00")

	_, err := svc.Peer(context.Background(), ana, "0917-100-0011", ledger.MustAmount("10.00"))
	assert.ErrorIs(t, err, wallet.ErrSelfTransfer)
	assert.Equal(t, "100.00", balanceOf(t, mutator, ana))
}

func TestPeer_UnknownRecipientPhone(t *testing.T) {
	store := newTestStore(t)
	mutator := ledger.NewMutator(store)
	svc := wallet.NewTransferService(mutator, store)

	ana := seedUser(t, store, user.RoleBuyer, "0917-100-0021")
	fund(t, mutator, ana, "100.00")

	_, err := svc.Peer(context.Background(), ana, "0999-999-9999", ledger.MustAmount("10.00"))
	assert.ErrorIs(t, err, wallet.ErrRecipientNotFound)
	assert.Equal(t, "100.00", balanceOf(t, mutator, ana))
}

func TestPeer_InsufficientFundsLeavesBothUntouched(t *testing.T) {
	store := newTestStore(t)
	mutator := ledger.NewMutator(store)
	svc := wallet.NewTransferService(mutator, store)
	ctx := context.Background()

	ana := seedUser(t, store, user.RoleBuyer, "0917-100-0031")
	ben := seedUser(t, store, user.RoleBuyer, "0917-100-0032")
	fund(t, mutator, ana, "40.00")

	_, err := svc.Peer(ctx, ana, "0917-100-0032", ledger.MustAmount("45.00"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	var detail *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &detail)
	assert.Equal(t, "40.00", detail.Available.String())
	assert.Equal(t, "45.00", detail.Requested.String())

	assert.Equal(t, "40.00", balanceOf(t, mutator, ana))
	assert.Equal(t, "0.00", balanceOf(t, mutator, ben))
}

// =============================================================================
// VENDOR-INITIATED COLLECTION
// =============================================================================

func TestBuyerToVendor_CollectsFromBuyer(t *testing.T) {
	// GIVEN: a vendor and a buyer holding 200.00
	// WHEN: the vendor collects 75.00 by the buyer's phone number
	// THEN: buyer 125.00, vendor 75.00

	store := newTestStore(t)
	mutator := ledger.NewMutator(store)
	svc := wallet.NewTransferService(mutator, store)
	ctx := context.Background()

	vendor := seedUser(t, store, user.RoleVendor, "0917-200-0001")
	buyer := seedUser(t, store, user.RoleBuyer, "0917-200-0002")
	fund(t, mutator, buyer, "200.00")

	entry, err := svc.BuyerToVendor(ctx, vendor, "0917-200-0002", ledger.MustAmount("75.00"))
	require.NoError(t, err)

	assert.Equal(t, "125.00", balanceOf(t, mutator, buyer))
	assert.Equal(t, "75.00", balanceOf(t, mutator, vendor))
	require.NotNil(t, entry.Sender)
	assert.Equal(t, buyer, *entry.Sender)
	assert.Equal(t, vendor, entry.Recipient)
}

func TestBuyerToVendor_InitiatorMustBeVendor(t *testing.T) {
	store := newTestStore(t)
	mutator := ledger.NewMutator(store)
	svc := wallet.NewTransferService(mutator, store)

	buyerA := seedUser(t, store, user.RoleBuyer, "0917-200-0011")
	buyerB := seedUser(t, store, user.RoleBuyer, "0917-200-0012")
	fund(t, mutator, buyerB, "50.00")

	_, err := svc.BuyerToVendor(context.Background(), buyerA, "0917-200-0012", ledger.MustAmount("10.00"))
	assert.ErrorIs(t, err, wallet.ErrNotAuthorized)
	assert.Equal(t, "50.00", balanceOf(t, mutator, buyerB))
}

func TestBuyerToVendor_TargetMustBeBuyer(t *testing.T) {
	store := newTestStore(t)
	mutator := ledger.NewMutator(store)
	svc := wallet.NewTransferService(mutator, store)

	vendorA := seedUser(t, store, user.RoleVendor, "0917-200-0021")
	vendorB := seedUser(t, store, user.RoleVendor, "0917-200-0022")
	fund(t, mutator, vendorB, "50.00")

	_, err := svc.BuyerToVendor(context.Background(), vendorA, "0917-200-0022", ledger.MustAmount("10.00"))
	assert.ErrorIs(t, err, wallet.ErrRecipientNotBuyer)
	assert.Equal(t, "50.00", balanceOf(t, mutator, vendorB))
}

// =============================================================================
// HISTORY
// =============================================================================

func TestHistory_ListsBothDirections(t *testing.T) {
	store := newTestStore(t)
	mutator := ledger.NewMutator(store)
	svc := wallet.NewTransferService(mutator, store)
	ctx := context.Background()

	ana := seedUser(t, store, user.RoleBuyer, "0917-300-0001")
	ben := seedUser(t, store, user.RoleBuyer, "0917-300-0002")
	fund(t, mutator, ana, "100.00")
	fund(t, mutator, ben, "100.00")

	_, err := svc.Peer(ctx, ana, "0917-300-0002", ledger.MustAmount("10.00"))
	require.NoError(t, err)
	_, err = svc.Peer(ctx, ben, "0917-300-0001", ledger.MustAmount("5.00"))
	require.NoError(t, err)

	entries, err := svc.History(ctx, ana)
	require.NoError(t, err)
	// Seed top-up plus one outgoing and one incoming transfer.
	require.Len(t, entries, 3)
}

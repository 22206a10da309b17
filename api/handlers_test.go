package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/juanbytes/campuspay/api"
	"github.com/juanbytes/campuspay/auth"
	"github.com/juanbytes/campuspay/catalog"
	"github.com/juanbytes/campuspay/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type testServer struct {
	srv     *httptest.Server
	handler *api.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	authSvc := auth.NewService(store, []byte("test-secret"), time.Hour)
	handler := api.NewHandler(store, authSvc, zap.NewNop())
	require.NoError(t, handler.SeedAdmin(context.Background(), "admin@campus.test", "admin-pass"))

	srv := httptest.NewServer(api.NewRouter(handler, zap.NewNop()))
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, handler: handler}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (ts *testServer) doList(t *testing.T, path, token string) (*http.Response, []map[string]any) {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded []map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

var regSeq int

// register creates a user through the API and returns a login token.
func (ts *testServer) register(t *testing.T, role string) (token, phone string) {
	t.Helper()
	regSeq++
	phone = fmt.Sprintf("0917-%03d-%04d", regSeq, regSeq)
	email := fmt.Sprintf("user%d@campus.test", regSeq)

	resp, _ := ts.do(t, http.MethodPost, "/api/register", "", api.RegisterRequest{
		Phone: phone, Email: email, Password: "secret123",
		FirstName: "Test", LastName: "User", Role: role,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{
		Email: email, Password: "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["token"].(string), phone
}

func (ts *testServer) adminToken(t *testing.T) string {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{
		Email: "admin@campus.test", Password: "admin-pass",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["token"].(string)
}

// fundViaTopUp credits a wallet through the full approval workflow.
func (ts *testServer) fundViaTopUp(t *testing.T, token, admin, amount string) {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/api/topups", token, api.CreateTopUpRequest{Amount: amount})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	id := body["id"].(string)
	resp, _ = ts.do(t, http.MethodPost, "/api/topups/"+id+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

// =============================================================================
// AUTH
// =============================================================================

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/api/register", "", api.RegisterRequest{
		Phone: "0917-555-0001", Email: "ana@campus.test", Password: "secret123",
		FirstName: "Ana", LastName: "Lim",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "buyer", body["role"], "role defaults to buyer")

	// Same phone again: conflict.
	resp, _ = ts.do(t, http.MethodPost, "/api/register", "", api.RegisterRequest{
		Phone: "0917-555-0001", Email: "other@campus.test", Password: "secret123",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Wrong password: unauthorized.
	resp, _ = ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{
		Email: "ana@campus.test", Password: "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Phone login works too.
	resp, body = ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{
		Phone: "0917-555-0001", Password: "secret123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
}

func TestRegister_AdminRoleRejected(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/api/register", "", api.RegisterRequest{
		Phone: "0917-555-0002", Email: "evil@campus.test", Password: "secret123",
		Role: "admin",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodGet, "/api/me/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/api/me/balance", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// =============================================================================
// WALLET FLOW
// =============================================================================

func TestTopUpTransferFlow(t *testing.T) {
	// GIVEN: Ana funded with 300.00 through an approved top-up
	// WHEN: she transfers 120.50 to Ben by phone
	// THEN: balances read 179.50 and 120.50 through the API

	ts := newTestServer(t)
	admin := ts.adminToken(t)
	ana, _ := ts.register(t, "")
	ben, benPhone := ts.register(t, "")

	ts.fundViaTopUp(t, ana, admin, "300.00")

	resp, body := ts.do(t, http.MethodGet, "/api/me/balance", ana, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "300.00", body["balance"])

	resp, _ = ts.do(t, http.MethodPost, "/api/transfers", ana, api.TransferRequest{
		RecipientPhone: benPhone, Amount: "120.50",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = ts.do(t, http.MethodGet, "/api/me/balance", ana, nil)
	assert.Equal(t, "179.50", body["balance"])
	_, body = ts.do(t, http.MethodGet, "/api/me/balance", ben, nil)
	assert.Equal(t, "120.50", body["balance"])

	// History shows the top-up and the transfer.
	resp, entries := ts.doList(t, "/api/transactions", ana)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, entries, 2)
}

func TestTransfer_ErrorStatuses(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	ana, anaPhone := ts.register(t, "")
	_, benPhone := ts.register(t, "")
	ts.fundViaTopUp(t, ana, admin, "50.00")

	// Insufficient funds: 402.
	resp, _ := ts.do(t, http.MethodPost, "/api/transfers", ana, api.TransferRequest{
		RecipientPhone: benPhone, Amount: "80.00",
	})
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	// Self transfer: 400.
	resp, _ = ts.do(t, http.MethodPost, "/api/transfers", ana, api.TransferRequest{
		RecipientPhone: anaPhone, Amount: "10.00",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unknown phone: 404.
	resp, _ = ts.do(t, http.MethodPost, "/api/transfers", ana, api.TransferRequest{
		RecipientPhone: "0000-000-0000", Amount: "10.00",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Malformed amount: 400.
	resp, _ = ts.do(t, http.MethodPost, "/api/transfers", ana, api.TransferRequest{
		RecipientPhone: benPhone, Amount: "10.123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTopUp_DecisionStatuses(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	ana, _ := ts.register(t, "")

	resp, body := ts.do(t, http.MethodPost, "/api/topups", ana, api.CreateTopUpRequest{Amount: "100.00"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	id := body["id"].(string)

	// Non-admin cannot decide: 403.
	resp, _ = ts.do(t, http.MethodPost, "/api/topups/"+id+"/approve", ana, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/topups/"+id+"/approve", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Second decision: 409.
	resp, _ = ts.do(t, http.MethodPost, "/api/topups/"+id+"/reject", admin, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// =============================================================================
// ORDER FLOW
// =============================================================================

func TestOrderFlow(t *testing.T) {
	// Full path: vendor lists a food, buyer orders it, pays it, and the
	// vendor sees the settled order in the incoming list.

	ts := newTestServer(t)
	admin := ts.adminToken(t)
	vendor, _ := ts.register(t, "vendor")
	buyer, _ := ts.register(t, "")
	ts.fundViaTopUp(t, buyer, admin, "200.00")

	// Catalog skeleton built directly so the test controls the data.
	require.NoError(t, ts.handler.Store.CreateCanteen(context.Background(),
		catalog.Canteen{ID: "cnt-1", Name: "Main"}))
	require.NoError(t, ts.handler.Store.CreateCategory(context.Background(),
		catalog.Category{ID: "cat-1", Name: "Mains", CanteenID: "cnt-1"}))

	resp, body := ts.do(t, http.MethodPost, "/api/foods", vendor, api.CreateFoodRequest{
		Name: "Sisig Rice", Price: "65.00", CategoryID: "cat-1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	foodID := body["id"].(string)

	resp, body = ts.do(t, http.MethodPost, "/api/orders", buyer, api.CreateOrderRequest{
		FoodID: foodID, Quantity: 2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	orderID := body["id"].(string)
	assert.Equal(t, "130.00", body["total_price"])

	// A second unpaid order is refused.
	resp, _ = ts.do(t, http.MethodPost, "/api/orders", buyer, api.CreateOrderRequest{
		FoodID: foodID, Quantity: 1,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Only the buyer may pay.
	resp, _ = ts.do(t, http.MethodPost, "/api/orders/"+orderID+"/pay", vendor, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = ts.do(t, http.MethodPost, "/api/orders/"+orderID+"/pay", buyer, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["paid"])

	// Double pay: 409.
	resp, _ = ts.do(t, http.MethodPost, "/api/orders/"+orderID+"/pay", buyer, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	_, balance := ts.do(t, http.MethodGet, "/api/me/balance", buyer, nil)
	assert.Equal(t, "70.00", balance["balance"])
	_, balance = ts.do(t, http.MethodGet, "/api/me/balance", vendor, nil)
	assert.Equal(t, "130.00", balance["balance"])

	resp, incoming := ts.doList(t, "/api/orders", vendor)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, incoming, 1)
	assert.Equal(t, true, incoming[0]["paid"])
}

// =============================================================================
// PROFILE
// =============================================================================

func TestMeasurementsAndBMI(t *testing.T) {
	ts := newTestServer(t)
	ana, _ := ts.register(t, "")

	height, weight := "170", "65.5"
	resp, body := ts.do(t, http.MethodPut, "/api/me/measurements", ana, api.UpdateMeasurementsRequest{
		Height: &height, Weight: &weight,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	// 65.5 / 1.70^2 = 22.66
	assert.Equal(t, "22.66", body["bmi"])

	bad := "-10"
	resp, _ = ts.do(t, http.MethodPut, "/api/me/measurements", ana, api.UpdateMeasurementsRequest{
		Height: &bad,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// NOTIFICATIONS AND SEED
// =============================================================================

func TestNotifications_AdminOnlyCreate(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	ana, _ := ts.register(t, "")

	resp, _ := ts.do(t, http.MethodPost, "/api/notifications", ana, api.CreateNotificationRequest{
		Title: "nope",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/notifications", admin, api.CreateNotificationRequest{
		Title: "Enrollment week", Message: "Expect queues at the canteen.",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, list := ts.doList(t, "/api/notifications", ana)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, list, 1)
	assert.Equal(t, "Enrollment week", list[0]["title"])
}

func TestSeedDemo(t *testing.T) {
	ts := newTestServer(t)
	admin := ts.adminToken(t)
	ana, _ := ts.register(t, "")

	resp, _ := ts.do(t, http.MethodPost, "/api/admin/seed", ana, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/api/admin/seed", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Seeded buyers can log in and hold the seeded balance.
	resp, body := ts.do(t, http.MethodPost, "/api/login", "", api.LoginRequest{
		Email: "juan@campus.demo", Password: "campus123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	juan := body["token"].(string)

	_, balance := ts.do(t, http.MethodGet, "/api/me/balance", juan, nil)
	assert.Equal(t, "500.00", balance["balance"])

	resp, foods := ts.doList(t, "/api/foods/featured", juan)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, foods)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

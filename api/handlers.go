/*
handlers.go - HTTP API handlers for the campus wallet platform

PURPOSE:
  Exposes the wallet, ordering, and catalog services via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic. No handler touches a balance directly; everything that
  moves money goes through the domain services and, underneath them,
  ledger.Mutator.Apply.

ENDPOINTS:
  Auth:
    POST   /api/register                 Create user + zero-balance account
    POST   /api/login                    Email-or-phone + password -> JWT
    POST   /api/verify-password          Re-check password for sensitive ops
    GET    /api/verify-user              Validate token, return identity

  Profile:
    GET    /api/me                       Own profile with balance and BMI
    GET    /api/me/balance               Balance only
    PUT    /api/me/measurements          Update height/weight

  Wallet:
    POST   /api/transfers                Peer transfer by recipient phone
    POST   /api/transfers/collect        Vendor pulls payment from a buyer
    GET    /api/transactions             Ledger history, newest first
    POST   /api/topups                   File a top-up request
    GET    /api/topups                   Own requests (admins see all)
    POST   /api/topups/{id}/approve      Admin approval (credits once)
    POST   /api/topups/{id}/reject       Admin rejection

  Catalog:
    GET    /api/canteens
    GET    /api/canteens/{id}/categories
    GET    /api/categories/{id}/foods
    GET    /api/foods/featured
    POST   /api/foods                    Vendor creates a food
    PUT    /api/foods/{id}               Vendor edits own food

  Orders:
    POST   /api/orders                   Place order (price snapshotted)
    GET    /api/orders                   Buyer's own / vendor's incoming
    GET    /api/orders/{id}
    POST   /api/orders/{id}/pay          Settle buyer -> vendor

  Notifications:
    GET    /api/notifications
    POST   /api/notifications            Admin only

  Admin:
    POST   /api/admin/seed               Load the demo campus dataset

ERROR HANDLING:
  Errors are returned as JSON with a stable HTTP status per error kind:
  - 400: invalid amount/quantity, self transfer, malformed body
  - 401: bad credentials, missing/invalid token
  - 402: insufficient funds
  - 403: role does not permit the operation
  - 404: user/order/food/top-up not found
  - 409: already decided, already paid, unpaid order exists, contention
  - 500: storage faults
  A 409 from lock contention is safe to retry; the others are not.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - seed.go: Demo dataset loader
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/juanbytes/campuspay/auth"
	"github.com/juanbytes/campuspay/catalog"
	"github.com/juanbytes/campuspay/ledger"
	"github.com/juanbytes/campuspay/notify"
	"github.com/juanbytes/campuspay/ordering"
	"github.com/juanbytes/campuspay/store/sqlite"
	"github.com/juanbytes/campuspay/user"
	"github.com/juanbytes/campuspay/wallet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     *sqlite.Store
	Auth      *auth.Service
	Mutator   *ledger.Mutator
	Transfers *wallet.TransferService
	TopUps    *wallet.TopUpService
	Orders    *ordering.Service
	Log       *zap.Logger
}

// NewHandler wires the full service stack on top of one store.
func NewHandler(store *sqlite.Store, authSvc *auth.Service, log *zap.Logger) *Handler {
	m := ledger.NewMutator(store)
	return &Handler{
		Store:     store,
		Auth:      authSvc,
		Mutator:   m,
		Transfers: wallet.NewTransferService(m, store),
		TopUps:    wallet.NewTopUpService(m, store, store),
		Orders:    ordering.NewService(m, store, store),
		Log:       log,
	}
}

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// Register creates a user and, with it, a ledger account at balance 0.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Phone == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "phone, email and password are required", nil)
		return
	}

	role := user.RoleBuyer
	if req.Role != "" {
		role = user.Role(req.Role)
	}
	if !role.Valid() || role == user.RoleAdmin {
		writeError(w, http.StatusBadRequest, "role must be buyer or vendor", nil)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to hash password", err)
		return
	}

	u := user.User{
		ID:           ledger.AccountID(fmt.Sprintf("usr-%d", time.Now().UnixNano())),
		Phone:        req.Phone,
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := h.Store.CreateUser(r.Context(), u); err != nil {
		if errors.Is(err, user.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "phone or email already registered", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create user", err)
		return
	}

	h.Log.Info("user registered",
		zap.String("account", string(u.ID)),
		zap.String("role", string(u.Role)))
	writeJSON(w, http.StatusCreated, h.userDTO(r, &u, false))
}

// Login exchanges credentials for a signed token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	token, u, err := h.Auth.Login(r.Context(), req.Email, req.Phone, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "Login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		User:  h.userDTO(r, u, true),
	})
}

// VerifyPassword re-checks the caller's password. The mobile app calls
// this before transfers as a confirmation step.
func (h *Handler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	var req VerifyPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	u, err := h.Store.Get(r.Context(), id.AccountID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}

// VerifyUser confirms the token is still good and echoes the identity.
func (h *Handler) VerifyUser(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{
		"account_id": string(id.AccountID),
		"role":       string(id.Role),
	})
}

// =============================================================================
// PROFILE HANDLERS
// =============================================================================

// Me returns the caller's own profile, balance included.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	u, err := h.Store.Get(r.Context(), id.AccountID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.userDTO(r, u, true))
}

// MyBalance returns just the balance.
func (h *Handler) MyBalance(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	balance, err := h.Mutator.Balance(r.Context(), id.AccountID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceDTO{
		AccountID: string(id.AccountID),
		Balance:   balance.String(),
	})
}

// UpdateMeasurements stores height (cm) and weight (kg); BMI is derived
// on read, never stored.
func (h *Handler) UpdateMeasurements(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	var req UpdateMeasurementsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	height, err := parseMeasurement(req.Height)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid height", err)
		return
	}
	weight, err := parseMeasurement(req.Weight)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid weight", err)
		return
	}

	if err := h.Store.UpdateMeasurements(r.Context(), id.AccountID, height, weight); err != nil {
		h.writeDomainError(w, err)
		return
	}

	u, err := h.Store.Get(r.Context(), id.AccountID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.userDTO(r, u, true))
}

func parseMeasurement(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	if d.IsNegative() || d.IsZero() {
		return nil, errors.New("must be positive")
	}
	return &d, nil
}

// =============================================================================
// WALLET HANDLERS
// =============================================================================

// Transfer moves money from the caller to the phone number's owner.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	var req TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	entry, err := h.Transfers.Peer(r.Context(), id.AccountID, req.RecipientPhone, amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	transfersTotal.WithLabelValues("peer").Inc()
	h.Log.Info("transfer completed",
		zap.String("sender", string(id.AccountID)),
		zap.String("recipient", string(entry.Recipient)),
		zap.String("amount", entry.Amount.String()))
	writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

// Collect lets a vendor pull payment from a buyer's wallet by phone.
func (h *Handler) Collect(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	var req CollectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	entry, err := h.Transfers.BuyerToVendor(r.Context(), id.AccountID, req.BuyerPhone, amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	transfersTotal.WithLabelValues("collect").Inc()
	writeJSON(w, http.StatusOK, toEntryDTO(*entry))
}

// Transactions returns the caller's ledger history, newest first.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	entries, err := h.Transfers.History(r.Context(), id.AccountID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// TOP-UP HANDLERS
// =============================================================================

// CreateTopUp files a pending request for the caller's account.
func (h *Handler) CreateTopUp(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	var req CreateTopUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := ledger.ParseAmount(req.Amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	topup, err := h.TopUps.Create(r.Context(), id.AccountID, amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTopUpDTO(*topup))
}

// ListTopUps: admins see every request, everyone else their own.
func (h *Handler) ListTopUps(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	ctx := r.Context()

	var (
		reqs []wallet.TopUpRequest
		err  error
	)
	if id.IsAdmin() {
		reqs, err = h.Store.ListTopUps(ctx)
	} else {
		reqs, err = h.Store.ListTopUpsFor(ctx, id.AccountID)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]TopUpRequestDTO, len(reqs))
	for i, t := range reqs {
		dtos[i] = toTopUpDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveTopUp credits the requester exactly once.
func (h *Handler) ApproveTopUp(w http.ResponseWriter, r *http.Request) {
	h.decideTopUp(w, r, true)
}

// RejectTopUp terminates the request with no credit.
func (h *Handler) RejectTopUp(w http.ResponseWriter, r *http.Request) {
	h.decideTopUp(w, r, false)
}

func (h *Handler) decideTopUp(w http.ResponseWriter, r *http.Request, approve bool) {
	id := identityFrom(r.Context())
	requestID := chi.URLParam(r, "id")

	var (
		topup *wallet.TopUpRequest
		err   error
	)
	if approve {
		topup, err = h.TopUps.Approve(r.Context(), requestID, id.AccountID)
	} else {
		topup, err = h.TopUps.Reject(r.Context(), requestID, id.AccountID)
	}
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	topupDecisionsTotal.WithLabelValues(string(topup.Status)).Inc()
	h.Log.Info("top-up decided",
		zap.String("request", topup.ID),
		zap.String("status", string(topup.Status)),
		zap.String("admin", string(id.AccountID)))
	writeJSON(w, http.StatusOK, toTopUpDTO(*topup))
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

func (h *Handler) ListCanteens(w http.ResponseWriter, r *http.Request) {
	canteens, err := h.Store.ListCanteens(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]CanteenDTO, len(canteens))
	for i, c := range canteens {
		dtos[i] = CanteenDTO{ID: c.ID, Name: c.Name, Description: c.Description}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	canteenID := chi.URLParam(r, "id")

	categories, err := h.Store.ListCategories(r.Context(), canteenID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]CategoryDTO, len(categories))
	for i, c := range categories {
		dtos[i] = CategoryDTO{ID: c.ID, Name: c.Name, CanteenID: c.CanteenID}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) ListFoods(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "id")

	foods, err := h.Store.ListFoods(r.Context(), categoryID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFoodDTOs(foods))
}

func (h *Handler) FeaturedFoods(w http.ResponseWriter, r *http.Request) {
	foods, err := h.Store.ListFeaturedFoods(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFoodDTOs(foods))
}

// CreateFood: vendors add items under an existing category. New foods
// start unapproved and stay out of the featured listing until an admin
// flips them.
func (h *Handler) CreateFood(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if !id.IsVendor() && !id.IsAdmin() {
		writeError(w, http.StatusForbidden, "vendor role required", nil)
		return
	}

	var req CreateFoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name == "" || req.CategoryID == "" {
		writeError(w, http.StatusBadRequest, "name and category_id are required", nil)
		return
	}
	price, err := ledger.ParseAmount(req.Price)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if !price.IsPositive() {
		writeError(w, http.StatusBadRequest, "price must be positive", nil)
		return
	}

	f := catalog.Food{
		ID:          fmt.Sprintf("food-%d", time.Now().UnixNano()),
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		CategoryID:  req.CategoryID,
		VendorID:    id.AccountID,
		Approved:    id.IsAdmin(),
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.Store.CreateFood(r.Context(), f); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFoodDTO(f))
}

// UpdateFood edits a food. Vendors may only touch their own items;
// only admins flip the approved flag.
func (h *Handler) UpdateFood(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	foodID := chi.URLParam(r, "id")

	f, err := h.Store.GetFood(r.Context(), foodID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if !id.IsAdmin() && f.VendorID != id.AccountID {
		writeError(w, http.StatusForbidden, "not your food item", nil)
		return
	}

	var req UpdateFoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Name != "" {
		f.Name = req.Name
	}
	if req.Description != "" {
		f.Description = req.Description
	}
	if req.Price != "" {
		price, err := ledger.ParseAmount(req.Price)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}
		f.Price = price
	}
	if req.Approved != nil && id.IsAdmin() {
		f.Approved = *req.Approved
	}

	if err := h.Store.UpdateFood(r.Context(), *f); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFoodDTO(*f))
}

// =============================================================================
// ORDER HANDLERS
// =============================================================================

// CreateOrder places an unpaid order with the price snapshotted now.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	order, err := h.Orders.Create(r.Context(), id.AccountID, req.FoodID, req.Quantity)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(*order))
}

// ListOrders: buyers see their own orders, vendors their incoming ones.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())

	orders, err := h.Orders.ListFor(r.Context(), id.AccountID, id.IsVendor())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]OrderDTO, len(orders))
	for i, o := range orders {
		dtos[i] = toOrderDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetOrder returns one order the caller is a party to.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	orderID := chi.URLParam(r, "id")

	order, err := h.Store.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if order.UserID != id.AccountID && order.VendorID != id.AccountID && !id.IsAdmin() {
		writeError(w, http.StatusForbidden, "not your order", nil)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(*order))
}

// PayOrder settles the order: buyer debited, vendor credited, status
// flipped, all in one atomic unit. Only the buyer (or an admin) pays.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	orderID := chi.URLParam(r, "id")

	order, err := h.Store.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if order.UserID != id.AccountID && !id.IsAdmin() {
		writeError(w, http.StatusForbidden, "only the buyer may pay this order", nil)
		return
	}

	paid, err := h.Orders.Pay(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	settlementsTotal.Inc()
	h.Log.Info("order settled",
		zap.String("order", paid.ID),
		zap.String("buyer", string(paid.UserID)),
		zap.String("vendor", string(paid.VendorID)),
		zap.String("total", paid.TotalPrice.String()))
	writeJSON(w, http.StatusOK, toOrderDTO(*paid))
}

// =============================================================================
// NOTIFICATION HANDLERS
// =============================================================================

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notifications, err := h.Store.ListNotifications(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]NotificationDTO, len(notifications))
	for i, n := range notifications {
		dtos[i] = NotificationDTO{
			ID:        n.ID,
			Title:     n.Title,
			Message:   n.Message,
			CreatedAt: n.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	if !id.IsAdmin() {
		writeError(w, http.StatusForbidden, "admin role required", nil)
		return
	}

	var req CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required", nil)
		return
	}

	n := notify.Notification{
		ID:        fmt.Sprintf("ntf-%d", time.Now().UnixNano()),
		Title:     req.Title,
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.Store.CreateNotification(r.Context(), n); err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, NotificationDTO{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		CreatedAt: n.CreatedAt.Format(time.RFC3339),
	})
}

// =============================================================================
// DTO CONVERSION
// =============================================================================

func (h *Handler) userDTO(r *http.Request, u *user.User, withBalance bool) UserDTO {
	dto := UserDTO{
		ID:        string(u.ID),
		Phone:     u.Phone,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt.Format(time.RFC3339),
	}
	if u.Height != nil {
		s := u.Height.String()
		dto.Height = &s
	}
	if u.Weight != nil {
		s := u.Weight.String()
		dto.Weight = &s
	}
	if bmi := u.BMI(); bmi != nil {
		s := bmi.StringFixed(2)
		dto.BMI = &s
	}
	if withBalance {
		if balance, err := h.Mutator.Balance(r.Context(), u.ID); err == nil {
			dto.Balance = balance.String()
		}
	}
	return dto
}

func toEntryDTO(e ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:          int64(e.ID),
		Recipient:   string(e.Recipient),
		Amount:      e.Amount.String(),
		Kind:        string(e.Kind),
		ReferenceID: e.ReferenceID,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
	if e.Sender != nil {
		dto.Sender = string(*e.Sender)
	}
	return dto
}

func toTopUpDTO(t wallet.TopUpRequest) TopUpRequestDTO {
	dto := TopUpRequestDTO{
		ID:        t.ID,
		UserID:    string(t.UserID),
		Amount:    t.Amount.String(),
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
	}
	if t.DecidedBy != nil {
		dto.DecidedBy = string(*t.DecidedBy)
	}
	if t.DecidedAt != nil {
		dto.DecidedAt = t.DecidedAt.Format(time.RFC3339)
	}
	return dto
}

func toFoodDTO(f catalog.Food) FoodDTO {
	return FoodDTO{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Price:       f.Price.String(),
		CategoryID:  f.CategoryID,
		VendorID:    string(f.VendorID),
		Approved:    f.Approved,
	}
}

func toFoodDTOs(foods []catalog.Food) []FoodDTO {
	dtos := make([]FoodDTO, len(foods))
	for i, f := range foods {
		dtos[i] = toFoodDTO(f)
	}
	return dtos
}

func toOrderDTO(o ordering.Order) OrderDTO {
	return OrderDTO{
		ID:         o.ID,
		UserID:     string(o.UserID),
		FoodID:     o.FoodID,
		FoodName:   o.FoodName,
		Quantity:   o.Quantity,
		TotalPrice: o.TotalPrice.String(),
		VendorID:   string(o.VendorID),
		Paid:       o.Paid,
		CreatedAt:  o.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// writeDomainError maps the domain error taxonomy onto stable HTTP
// statuses. Anything unrecognized is a 500 and gets logged.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ordering.ErrInvalidQuantity),
		errors.Is(err, wallet.ErrSelfTransfer),
		errors.Is(err, wallet.ErrRecipientNotBuyer):
		writeError(w, http.StatusBadRequest, err.Error(), nil)

	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err.Error(), nil)

	case errors.Is(err, wallet.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, err.Error(), nil)

	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, wallet.ErrRecipientNotFound),
		errors.Is(err, wallet.ErrTopUpNotFound),
		errors.Is(err, ordering.ErrOrderNotFound),
		errors.Is(err, catalog.ErrFoodNotFound),
		errors.Is(err, catalog.ErrCanteenNotFound),
		errors.Is(err, ledger.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, err.Error(), nil)

	case errors.Is(err, wallet.ErrAlreadyDecided),
		errors.Is(err, ordering.ErrAlreadyPaid),
		errors.Is(err, ordering.ErrUnpaidOrderExists),
		errors.Is(err, user.ErrAlreadyExists):
		writeError(w, http.StatusConflict, err.Error(), nil)

	case errors.Is(err, ledger.ErrContention),
		errors.Is(err, ledger.ErrConcurrentModification):
		// Retryable: nothing was committed.
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusConflict, err.Error(), nil)

	default:
		h.Log.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts travel as strings ("125.50"), never as JSON numbers. The server
  parses them through ledger.ParseAmount and rejects anything it cannot
  represent exactly.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Router setup and middleware
*/
package api

// =============================================================================
// AUTH
// =============================================================================

// RegisterRequest creates a user plus a zero-balance ledger account.
type RegisterRequest struct {
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role,omitempty"` // defaults to buyer
}

type LoginRequest struct {
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string  `json:"token"`
	User  UserDTO `json:"user"`
}

type VerifyPasswordRequest struct {
	Password string `json:"password"`
}

// UserDTO represents a user in API responses. Balance is included only
// on self-views, never when resolving someone else's account.
type UserDTO struct {
	ID        string  `json:"id"`
	Phone     string  `json:"phone"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Role      string  `json:"role"`
	Balance   string  `json:"balance,omitempty"`
	Height    *string `json:"height,omitempty"`
	Weight    *string `json:"weight,omitempty"`
	BMI       *string `json:"bmi,omitempty"`
	CreatedAt string  `json:"created_at,omitempty"`
}

type UpdateMeasurementsRequest struct {
	Height *string `json:"height,omitempty"`
	Weight *string `json:"weight,omitempty"`
}

// =============================================================================
// WALLET
// =============================================================================

type BalanceDTO struct {
	AccountID string `json:"account_id"`
	Balance   string `json:"balance"`
}

// TransferRequest moves money to the user owning the phone number.
type TransferRequest struct {
	RecipientPhone string `json:"recipient_phone"`
	Amount         string `json:"amount"`
}

// CollectRequest lets a vendor pull payment from a buyer's wallet.
type CollectRequest struct {
	BuyerPhone string `json:"buyer_phone"`
	Amount     string `json:"amount"`
}

// EntryDTO is one ledger entry. Sender is absent for top-up credits.
type EntryDTO struct {
	ID          int64  `json:"id"`
	Sender      string `json:"sender,omitempty"`
	Recipient   string `json:"recipient"`
	Amount      string `json:"amount"`
	Kind        string `json:"kind"`
	ReferenceID string `json:"reference_id,omitempty"`
	CreatedAt   string `json:"created_at"`
}

type TopUpRequestDTO struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Amount    string `json:"amount"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	DecidedBy string `json:"decided_by,omitempty"`
	DecidedAt string `json:"decided_at,omitempty"`
}

type CreateTopUpRequest struct {
	Amount string `json:"amount"`
}

// =============================================================================
// CATALOG
// =============================================================================

type CanteenDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type CategoryDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CanteenID string `json:"canteen_id"`
}

type FoodDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	CategoryID  string `json:"category_id"`
	VendorID    string `json:"vendor_id"`
	Approved    bool   `json:"approved"`
}

type CreateFoodRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	CategoryID  string `json:"category_id"`
}

type UpdateFoodRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price"`
	Approved    *bool  `json:"approved,omitempty"`
}

// =============================================================================
// ORDERS
// =============================================================================

type OrderDTO struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	FoodID     string `json:"food_id"`
	FoodName   string `json:"food_name"`
	Quantity   int    `json:"quantity"`
	TotalPrice string `json:"total_price"`
	VendorID   string `json:"vendor_id"`
	Paid       bool   `json:"paid"`
	CreatedAt  string `json:"created_at"`
}

type CreateOrderRequest struct {
	FoodID   string `json:"food_id"`
	Quantity int    `json:"quantity"`
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

type NotificationDTO struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

type CreateNotificationRequest struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

/*
Package sqlite provides the SQLite-backed implementation of every
storage interface in the system.

INTERFACES IMPLEMENTED:
  ledger.TxStore:     accounts, append-only entry log, atomic unit
  user.Directory:     profile lookups (plus registration/profile writes)
  wallet.TopUpStore:  top-up requests with conditional decision claims
  ordering.OrderStore: orders with a one-unpaid-per-buyer unique index
  catalog.Store:      canteens, categories, foods
  notify.Store:       notifications

APPEND-ONLY ENFORCEMENT:
  ledger_entries has exactly one write path (INSERT). No UPDATE, no
  DELETE statements exist for it anywhere in this package.

MONEY REPRESENTATION:
  Balances and amounts are stored as decimal TEXT and parsed back with
  shopspring/decimal. They never pass through REAL columns or floats.

CONDITIONAL CLAIMS:
  Status transitions that must happen at most once (top-up decision,
  order payment) are conditional UPDATEs: the WHERE clause requires the
  non-terminal state, and zero affected rows means somebody already won.

TX-SCOPED READS:
  WithTx hands callbacks a view whose reads AND writes go through the
  transaction connection, so the Mutator's read-modify-write observes
  the latest state inside its own atomic unit.

WAL MODE:
  Opened with WAL and foreign keys on. A coarse RWMutex serializes
  writers at the process level; the per-account fairness the Mutator
  needs comes from its own lock table, not from here.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/juanbytes/campuspay/catalog"
	"github.com/juanbytes/campuspay/ledger"
	"github.com/juanbytes/campuspay/notify"
	"github.com/juanbytes/campuspay/ordering"
	"github.com/juanbytes/campuspay/user"
	"github.com/juanbytes/campuspay/wallet"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One connection: SQLite allows one writer anyway, and a pooled
	// ":memory:" database would otherwise be a different database per
	// connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Users double as ledger accounts: profile plus balance.
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		phone TEXT UNIQUE,
		email TEXT UNIQUE,
		password_hash TEXT NOT NULL,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'buyer',
		balance TEXT NOT NULL DEFAULT '0',
		version INTEGER NOT NULL DEFAULT 0,
		height TEXT,
		weight TEXT,
		created_at TEXT NOT NULL
	);

	-- Ledger entries (append-only). sender_id NULL = unilateral top-up credit.
	CREATE TABLE IF NOT EXISTS ledger_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id TEXT REFERENCES users(id),
		recipient_id TEXT NOT NULL REFERENCES users(id),
		amount TEXT NOT NULL,
		kind TEXT NOT NULL,
		reference_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_entries_sender
		ON ledger_entries(sender_id) WHERE sender_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_entries_recipient
		ON ledger_entries(recipient_id);
	CREATE INDEX IF NOT EXISTS idx_entries_reference
		ON ledger_entries(reference_id) WHERE reference_id IS NOT NULL;

	-- Top-up requests: one decision, ever.
	CREATE TABLE IF NOT EXISTS topup_requests (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TEXT NOT NULL,
		decided_by TEXT,
		decided_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_topups_user ON topup_requests(user_id);
	CREATE INDEX IF NOT EXISTS idx_topups_status ON topup_requests(status);

	-- Orders. Price and vendor are snapshots copied from the food.
	CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		food_id TEXT NOT NULL,
		food_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		total_price TEXT NOT NULL,
		vendor_id TEXT NOT NULL REFERENCES users(id),
		paid INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id);
	CREATE INDEX IF NOT EXISTS idx_orders_vendor ON orders(vendor_id);

	-- CRITICAL: at most one unpaid order per buyer. Two racing creates
	-- cannot both pass the service pre-check; this index breaks the tie.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_one_unpaid
		ON orders(user_id) WHERE paid = 0;

	-- Catalog
	CREATE TABLE IF NOT EXISTS canteens (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT
	);

	CREATE TABLE IF NOT EXISTS food_categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		canteen_id TEXT NOT NULL REFERENCES canteens(id)
	);

	CREATE INDEX IF NOT EXISTS idx_categories_canteen ON food_categories(canteen_id);

	CREATE TABLE IF NOT EXISTS foods (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT,
		price TEXT NOT NULL,
		category_id TEXT NOT NULL REFERENCES food_categories(id),
		vendor_id TEXT NOT NULL REFERENCES users(id),
		approved INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_foods_category ON foods(category_id);
	CREATE INDEX IF NOT EXISTS idx_foods_vendor ON foods(vendor_id);
	CREATE INDEX IF NOT EXISTS idx_foods_approved ON foods(approved);

	-- Notifications
	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx, so every query below
// works unchanged inside and outside the atomic unit.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// LEDGER STORE (ledger.TxStore interface)
// =============================================================================

func (s *Store) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccount(ctx, s.db, id)
}

func getAccount(ctx context.Context, db dbtx, id ledger.AccountID) (*ledger.Account, error) {
	var (
		acc     ledger.Account
		balance string
	)
	err := db.QueryRowContext(ctx,
		"SELECT id, balance, version FROM users WHERE id = ?", id,
	).Scan(&acc.ID, &balance, &acc.Version)
	if err == sql.ErrNoRows {
		return nil, ledger.ErrAccountNotFound
	}
	if err != nil {
		return nil, &ledger.StorageError{Op: "GetAccount", Err: err}
	}

	acc.Balance, err = parseStoredAmount(balance)
	if err != nil {
		return nil, &ledger.StorageError{Op: "GetAccount", Err: err}
	}
	return &acc, nil
}

func (s *Store) UpdateBalance(ctx context.Context, id ledger.AccountID, balance ledger.Amount, expectedVersion int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateBalance(ctx, s.db, id, balance, expectedVersion)
}

func updateBalance(ctx context.Context, db dbtx, id ledger.AccountID, balance ledger.Amount, expectedVersion int) error {
	res, err := db.ExecContext(ctx,
		"UPDATE users SET balance = ?, version = version + 1 WHERE id = ? AND version = ?",
		balance.String(), id, expectedVersion,
	)
	if err != nil {
		return &ledger.StorageError{Op: "UpdateBalance", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &ledger.StorageError{Op: "UpdateBalance", Err: err}
	}
	if n == 0 {
		// Either the account vanished or the version moved under us.
		if _, getErr := getAccount(ctx, db, id); getErr != nil {
			return getErr
		}
		return ledger.ErrConcurrentModification
	}
	return nil
}

func (s *Store) AppendEntry(ctx context.Context, e ledger.Entry) (ledger.EntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendEntry(ctx, s.db, e)
}

func appendEntry(ctx context.Context, db dbtx, e ledger.Entry) (ledger.EntryID, error) {
	var sender sql.NullString
	if e.Sender != nil {
		sender = sql.NullString{String: string(*e.Sender), Valid: true}
	}

	res, err := db.ExecContext(ctx, `
		INSERT INTO ledger_entries (sender_id, recipient_id, amount, kind, reference_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sender,
		e.Recipient,
		e.Amount.String(),
		e.Kind,
		nullString(e.ReferenceID),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, &ledger.StorageError{Op: "AppendEntry", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &ledger.StorageError{Op: "AppendEntry", Err: err}
	}
	return ledger.EntryID(id), nil
}

func (s *Store) EntriesFor(ctx context.Context, id ledger.AccountID) ([]ledger.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return entriesFor(ctx, s.db, id)
}

func entriesFor(ctx context.Context, db dbtx, id ledger.AccountID) ([]ledger.Entry, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, amount, kind, reference_id, created_at
		FROM ledger_entries
		WHERE sender_id = ? OR recipient_id = ?
		ORDER BY id DESC`,
		id, id,
	)
	if err != nil {
		return nil, &ledger.StorageError{Op: "EntriesFor", Err: err}
	}
	defer rows.Close()

	var entries []ledger.Entry
	for rows.Next() {
		var (
			e         ledger.Entry
			sender    sql.NullString
			amount    string
			reference sql.NullString
			createdAt string
		)
		if err := rows.Scan(&e.ID, &sender, &e.Recipient, &amount, &e.Kind, &reference, &createdAt); err != nil {
			return nil, &ledger.StorageError{Op: "EntriesFor", Err: err}
		}
		if sender.Valid {
			sid := ledger.AccountID(sender.String)
			e.Sender = &sid
		}
		e.Amount, err = parseStoredAmount(amount)
		if err != nil {
			return nil, &ledger.StorageError{Op: "EntriesFor", Err: err}
		}
		e.ReferenceID = reference.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// WithTx executes fn within one database transaction. The view handed
// to fn also satisfies wallet.TopUpStore and ordering.OrderStore so the
// Mutator's Within hooks can claim status transitions atomically.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &ledger.StorageError{Op: "WithTx", Err: err}
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return &ledger.StorageError{Op: "WithTx", Err: err}
	}
	return nil
}

// txStore routes everything through the transaction connection.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetAccount(ctx context.Context, id ledger.AccountID) (*ledger.Account, error) {
	return getAccount(ctx, ts.tx, id)
}

func (ts *txStore) UpdateBalance(ctx context.Context, id ledger.AccountID, balance ledger.Amount, expectedVersion int) error {
	return updateBalance(ctx, ts.tx, id, balance, expectedVersion)
}

func (ts *txStore) AppendEntry(ctx context.Context, e ledger.Entry) (ledger.EntryID, error) {
	return appendEntry(ctx, ts.tx, e)
}

func (ts *txStore) EntriesFor(ctx context.Context, id ledger.AccountID) ([]ledger.Entry, error) {
	return entriesFor(ctx, ts.tx, id)
}

func (ts *txStore) CreateTopUp(ctx context.Context, req wallet.TopUpRequest) error {
	return createTopUp(ctx, ts.tx, req)
}

func (ts *txStore) GetTopUp(ctx context.Context, id string) (*wallet.TopUpRequest, error) {
	return getTopUp(ctx, ts.tx, id)
}

func (ts *txStore) ListTopUps(ctx context.Context) ([]wallet.TopUpRequest, error) {
	return listTopUps(ctx, ts.tx, "")
}

func (ts *txStore) ListTopUpsFor(ctx context.Context, userID ledger.AccountID) ([]wallet.TopUpRequest, error) {
	return listTopUps(ctx, ts.tx, userID)
}

func (ts *txStore) ClaimDecision(ctx context.Context, id string, status wallet.TopUpStatus, decidedBy ledger.AccountID, at time.Time) error {
	return claimDecision(ctx, ts.tx, id, status, decidedBy, at)
}

func (ts *txStore) CreateOrder(ctx context.Context, o ordering.Order) error {
	return createOrder(ctx, ts.tx, o)
}

func (ts *txStore) GetOrder(ctx context.Context, id string) (*ordering.Order, error) {
	return getOrder(ctx, ts.tx, id)
}

func (ts *txStore) ListOrdersFor(ctx context.Context, userID ledger.AccountID) ([]ordering.Order, error) {
	return listOrders(ctx, ts.tx, "user_id", userID)
}

func (ts *txStore) ListOrdersForVendor(ctx context.Context, vendorID ledger.AccountID) ([]ordering.Order, error) {
	return listOrders(ctx, ts.tx, "vendor_id", vendorID)
}

func (ts *txStore) ClaimPaid(ctx context.Context, id string) error {
	return claimPaid(ctx, ts.tx, id)
}

// =============================================================================
// USER STORE (user.Directory plus writes)
// =============================================================================

// CreateUser inserts a profile with its account opened at balance 0.
func (s *Store) CreateUser(ctx context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, phone, email, password_hash, first_name, last_name, role, balance, version, height, weight, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, '0', 0, ?, ?, ?)`,
		u.ID,
		nullString(u.Phone),
		nullString(u.Email),
		u.PasswordHash,
		u.FirstName,
		u.LastName,
		u.Role,
		nullDecimal(u.Height),
		nullDecimal(u.Weight),
		u.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return user.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id ledger.AccountID) (*user.User, error) {
	return s.userWhere(ctx, "id = ?", string(id))
}

func (s *Store) FindByPhone(ctx context.Context, phone string) (*user.User, error) {
	return s.userWhere(ctx, "phone = ?", phone)
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	return s.userWhere(ctx, "email = ?", email)
}

func (s *Store) userWhere(ctx context.Context, where string, arg any) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		u              user.User
		phone, email   sql.NullString
		height, weight sql.NullString
		createdAt      string
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, phone, email, password_hash, first_name, last_name, role, height, weight, created_at FROM users WHERE "+where,
		arg,
	).Scan(&u.ID, &phone, &email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role, &height, &weight, &createdAt)
	if err == sql.ErrNoRows {
		return nil, user.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	u.Phone = phone.String
	u.Email = email.String
	u.Height = parseNullDecimal(height)
	u.Weight = parseNullDecimal(weight)
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// UpdateMeasurements sets height and/or weight; nil leaves a field unchanged.
func (s *Store) UpdateMeasurements(ctx context.Context, id ledger.AccountID, height, weight *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET height = COALESCE(?, height), weight = COALESCE(?, weight) WHERE id = ?",
		nullDecimal(height), nullDecimal(weight), id,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return user.ErrNotFound
	}
	return nil
}

// =============================================================================
// TOP-UP STORE (wallet.TopUpStore interface)
// =============================================================================

func (s *Store) CreateTopUp(ctx context.Context, req wallet.TopUpRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createTopUp(ctx, s.db, req)
}

func createTopUp(ctx context.Context, db dbtx, req wallet.TopUpRequest) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO topup_requests (id, user_id, amount, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		req.ID, req.UserID, req.Amount.String(), req.Status,
		req.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetTopUp(ctx context.Context, id string) (*wallet.TopUpRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTopUp(ctx, s.db, id)
}

func getTopUp(ctx context.Context, db dbtx, id string) (*wallet.TopUpRequest, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, amount, status, created_at, decided_by, decided_at
		FROM topup_requests WHERE id = ?`, id)
	req, err := scanTopUp(row.Scan)
	if err == sql.ErrNoRows {
		return nil, wallet.ErrTopUpNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Store) ListTopUps(ctx context.Context) ([]wallet.TopUpRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTopUps(ctx, s.db, "")
}

func (s *Store) ListTopUpsFor(ctx context.Context, userID ledger.AccountID) ([]wallet.TopUpRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTopUps(ctx, s.db, userID)
}

func listTopUps(ctx context.Context, db dbtx, userID ledger.AccountID) ([]wallet.TopUpRequest, error) {
	query := `
		SELECT id, user_id, amount, status, created_at, decided_by, decided_at
		FROM topup_requests`
	args := []any{}
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY created_at DESC"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reqs []wallet.TopUpRequest
	for rows.Next() {
		req, err := scanTopUp(rows.Scan)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, *req)
	}
	return reqs, rows.Err()
}

func scanTopUp(scan func(...any) error) (*wallet.TopUpRequest, error) {
	var (
		req       wallet.TopUpRequest
		amount    string
		createdAt string
		decidedBy sql.NullString
		decidedAt sql.NullString
	)
	if err := scan(&req.ID, &req.UserID, &amount, &req.Status, &createdAt, &decidedBy, &decidedAt); err != nil {
		return nil, err
	}

	var err error
	req.Amount, err = parseStoredAmount(amount)
	if err != nil {
		return nil, err
	}
	req.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	if decidedBy.Valid {
		id := ledger.AccountID(decidedBy.String)
		req.DecidedBy = &id
	}
	if decidedAt.Valid {
		t, _ := time.Parse(time.RFC3339, decidedAt.String)
		req.DecidedAt = &t
	}
	return &req, nil
}

func (s *Store) ClaimDecision(ctx context.Context, id string, status wallet.TopUpStatus, decidedBy ledger.AccountID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return claimDecision(ctx, s.db, id, status, decidedBy, at)
}

func claimDecision(ctx context.Context, db dbtx, id string, status wallet.TopUpStatus, decidedBy ledger.AccountID, at time.Time) error {
	res, err := db.ExecContext(ctx,
		"UPDATE topup_requests SET status = ?, decided_by = ?, decided_at = ? WHERE id = ? AND status = 'pending'",
		status, decidedBy, at.UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := getTopUp(ctx, db, id); getErr != nil {
			return getErr
		}
		return wallet.ErrAlreadyDecided
	}
	return nil
}

// =============================================================================
// ORDER STORE (ordering.OrderStore interface)
// =============================================================================

func (s *Store) CreateOrder(ctx context.Context, o ordering.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createOrder(ctx, s.db, o)
}

func createOrder(ctx context.Context, db dbtx, o ordering.Order) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, food_id, food_name, quantity, total_price, vendor_id, paid, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)`,
		o.ID, o.UserID, o.FoodID, o.FoodName, o.Quantity,
		o.TotalPrice.String(), o.VendorID,
		o.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ordering.ErrUnpaidOrderExists
		}
		return err
	}
	return nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*ordering.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getOrder(ctx, s.db, id)
}

func getOrder(ctx context.Context, db dbtx, id string) (*ordering.Order, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, user_id, food_id, food_name, quantity, total_price, vendor_id, paid, created_at
		FROM orders WHERE id = ?`, id)
	o, err := scanOrder(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ordering.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Store) ListOrdersFor(ctx context.Context, userID ledger.AccountID) ([]ordering.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listOrders(ctx, s.db, "user_id", userID)
}

func (s *Store) ListOrdersForVendor(ctx context.Context, vendorID ledger.AccountID) ([]ordering.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listOrders(ctx, s.db, "vendor_id", vendorID)
}

func listOrders(ctx context.Context, db dbtx, column string, id ledger.AccountID) ([]ordering.Order, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, user_id, food_id, food_name, quantity, total_price, vendor_id, paid, created_at
		FROM orders WHERE `+column+` = ? ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []ordering.Order
	for rows.Next() {
		o, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(scan func(...any) error) (*ordering.Order, error) {
	var (
		o          ordering.Order
		totalPrice string
		paid       int
		createdAt  string
	)
	if err := scan(&o.ID, &o.UserID, &o.FoodID, &o.FoodName, &o.Quantity, &totalPrice, &o.VendorID, &paid, &createdAt); err != nil {
		return nil, err
	}

	var err error
	o.TotalPrice, err = parseStoredAmount(totalPrice)
	if err != nil {
		return nil, err
	}
	o.Paid = paid != 0
	o.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &o, nil
}

func (s *Store) ClaimPaid(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return claimPaid(ctx, s.db, id)
}

func claimPaid(ctx context.Context, db dbtx, id string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE orders SET paid = 1 WHERE id = ? AND paid = 0", id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := getOrder(ctx, db, id); getErr != nil {
			return getErr
		}
		return ordering.ErrAlreadyPaid
	}
	return nil
}

// =============================================================================
// CATALOG STORE (catalog.Store interface)
// =============================================================================

func (s *Store) ListCanteens(ctx context.Context) ([]catalog.Canteen, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, COALESCE(description, '') FROM canteens ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var canteens []catalog.Canteen
	for rows.Next() {
		var c catalog.Canteen
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, err
		}
		canteens = append(canteens, c)
	}
	return canteens, rows.Err()
}

func (s *Store) ListCategories(ctx context.Context, canteenID string) ([]catalog.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, canteen_id FROM food_categories WHERE canteen_id = ? ORDER BY name", canteenID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []catalog.Category
	for rows.Next() {
		var c catalog.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CanteenID); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

const foodColumns = "id, name, COALESCE(description, ''), price, category_id, vendor_id, approved, created_at"

func (s *Store) GetFood(ctx context.Context, id string) (*catalog.Food, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+foodColumns+" FROM foods WHERE id = ?", id)
	f, err := scanFood(row.Scan)
	if err == sql.ErrNoRows {
		return nil, catalog.ErrFoodNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Store) ListFoods(ctx context.Context, categoryID string) ([]catalog.Food, error) {
	return s.foodsWhere(ctx, "category_id = ?", categoryID)
}

func (s *Store) ListFeaturedFoods(ctx context.Context) ([]catalog.Food, error) {
	return s.foodsWhere(ctx, "approved = ?", 1)
}

func (s *Store) foodsWhere(ctx context.Context, where string, arg any) ([]catalog.Food, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+foodColumns+" FROM foods WHERE "+where+" ORDER BY name", arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var foods []catalog.Food
	for rows.Next() {
		f, err := scanFood(rows.Scan)
		if err != nil {
			return nil, err
		}
		foods = append(foods, *f)
	}
	return foods, rows.Err()
}

func scanFood(scan func(...any) error) (*catalog.Food, error) {
	var (
		f         catalog.Food
		price     string
		approved  int
		createdAt string
	)
	if err := scan(&f.ID, &f.Name, &f.Description, &price, &f.CategoryID, &f.VendorID, &approved, &createdAt); err != nil {
		return nil, err
	}

	var err error
	f.Price, err = parseStoredAmount(price)
	if err != nil {
		return nil, err
	}
	f.Approved = approved != 0
	f.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &f, nil
}

func (s *Store) CreateCanteen(ctx context.Context, c catalog.Canteen) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO canteens (id, name, description) VALUES (?, ?, ?)",
		c.ID, c.Name, nullString(c.Description))
	return err
}

func (s *Store) CreateCategory(ctx context.Context, c catalog.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO food_categories (id, name, canteen_id) VALUES (?, ?, ?)",
		c.ID, c.Name, c.CanteenID)
	return err
}

func (s *Store) CreateFood(ctx context.Context, f catalog.Food) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO foods (id, name, description, price, category_id, vendor_id, approved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.Name, nullString(f.Description), f.Price.String(),
		f.CategoryID, f.VendorID, boolToInt(f.Approved),
		f.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) UpdateFood(ctx context.Context, f catalog.Food) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE foods SET name = ?, description = ?, price = ?, approved = ?
		WHERE id = ?`,
		f.Name, nullString(f.Description), f.Price.String(), boolToInt(f.Approved), f.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return catalog.ErrFoodNotFound
	}
	return nil
}

// =============================================================================
// NOTIFICATION STORE (notify.Store interface)
// =============================================================================

func (s *Store) CreateNotification(ctx context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notifications (id, title, message, created_at) VALUES (?, ?, ?, ?)",
		n.ID, n.Title, n.Message, n.CreatedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) ListNotifications(ctx context.Context) ([]notify.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, message, created_at FROM notifications ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []notify.Notification
	for rows.Next() {
		var (
			n         notify.Notification
			createdAt string
		)
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &createdAt); err != nil {
			return nil, err
		}
		n.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDecimal(s sql.NullString) *decimal.Decimal {
	if !s.Valid {
		return nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil
	}
	return &d
}

func parseStoredAmount(s string) (ledger.Amount, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return ledger.Amount{}, fmt.Errorf("corrupt stored amount %q: %w", s, err)
	}
	return ledger.Amount{Value: v}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

/*
Package sqlite provides the SQLite-backed implementation of core.TxStore.

PURPOSE:
  Persists supply requests, the inventory movement ledger, requisition
  slips, the document tracking trail, and the sequence counters. The same
  statements port to PostgreSQL with only minor dialect differences.

APPEND-ONLY ENFORCEMENT:
  No UPDATE or DELETE statements exist for inventory_movements or
  document_tracking. Corrections are new movements.

KEY TABLES:
  supply_requests / supply_request_items
  inventory_items / inventory_movements
  ris / ris_items
  document_tracking      (AUTOINCREMENT seq is the tie-breaker)
  sequence_counters      (one row per kind+year, bumped atomically)

ATOMIC GUARDS:
  NextSequence is a single INSERT ... ON CONFLICT DO UPDATE ... RETURNING:
  increment-and-read in one statement, never read-then-write.
  UpdateItemStock carries the caller's observed balance in the WHERE
  clause; zero rows affected means another writer won.

CONCURRENCY:
  Writers serialize on a sync.RWMutex (SQLite is single-writer anyway)
  and every WithTx runs a real BEGIN/COMMIT, so rollback leaves nothing
  behind. WAL mode keeps readers unblocked.

TIMESTAMPS:
  Stored as fixed-width UTC text (nanosecond padding), so lexicographic
  order is chronological order and ORDER BY works on the raw column.

USAGE:
  store, err := sqlite.New("./data/supply.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := core.NewEngine(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - core/store.go: Interface definitions
  - core/store/memory.go: In-memory implementation used by tests
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
	"github.com/stockroom/supply-engine/core"
)

// timeLayout pads fractional seconds so stored strings sort correctly.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements core.TxStore on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

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

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS supply_requests (
		id TEXT PRIMARY KEY,
		tracking_id TEXT NOT NULL UNIQUE,
		requester_id TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		justification TEXT,
		remarks TEXT,
		expected_delivery_date TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_requests_status
		ON supply_requests(status, created_at);
	CREATE INDEX IF NOT EXISTS idx_requests_requester
		ON supply_requests(requester_id);

	CREATE TABLE IF NOT EXISTS supply_request_items (
		id TEXT PRIMARY KEY,
		request_id TEXT NOT NULL REFERENCES supply_requests(id),
		description TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_of_measure TEXT NOT NULL,
		specifications TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_request_items_request
		ON supply_request_items(request_id);

	CREATE TABLE IF NOT EXISTS inventory_items (
		id TEXT PRIMARY KEY,
		item_code TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL,
		category TEXT,
		unit_of_measure TEXT NOT NULL,
		standard_unit_price TEXT NOT NULL,
		reorder_level INTEGER NOT NULL DEFAULT 0,
		reorder_quantity INTEGER NOT NULL DEFAULT 0,
		stock_on_hand INTEGER NOT NULL CHECK (stock_on_hand >= 0),
		location TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Movement ledger (append-only)
	CREATE TABLE IF NOT EXISTS inventory_movements (
		id TEXT PRIMARY KEY,
		item_id TEXT NOT NULL REFERENCES inventory_items(id),
		movement_type TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		reference_type TEXT NOT NULL,
		reference_id TEXT,
		stock_before INTEGER NOT NULL,
		stock_after INTEGER NOT NULL,
		notes TEXT,
		actor_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movements_item
		ON inventory_movements(item_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_movements_reference
		ON inventory_movements(reference_id) WHERE reference_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS ris (
		id TEXT PRIMARY KEY,
		ris_number TEXT NOT NULL UNIQUE,
		supply_request_id TEXT NOT NULL UNIQUE REFERENCES supply_requests(id),
		requester_id TEXT NOT NULL,
		issued_to_id TEXT NOT NULL,
		issue_date TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		status TEXT NOT NULL,
		created_by TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS ris_items (
		id TEXT PRIMARY KEY,
		ris_id TEXT NOT NULL REFERENCES ris(id),
		inventory_item_id TEXT,
		item_description TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_of_measure TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		total_amount TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ris_items_ris
		ON ris_items(ris_id);

	-- Document tracking trail (append-only); seq breaks timestamp ties
	CREATE TABLE IF NOT EXISTS document_tracking (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		document_type TEXT NOT NULL,
		document_id TEXT NOT NULL,
		document_number TEXT NOT NULL,
		previous_status TEXT,
		current_status TEXT NOT NULL,
		remarks TEXT,
		tracked_by TEXT NOT NULL,
		office_id TEXT,
		tracked_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tracking_document
		ON document_tracking(document_type, document_id, tracked_at, seq);

	CREATE TABLE IF NOT EXISTS sequence_counters (
		kind TEXT NOT NULL,
		scope_year INTEGER NOT NULL,
		value INTEGER NOT NULL,
		PRIMARY KEY (kind, scope_year)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// SUPPLY REQUESTS
// =============================================================================

func (s *Store) InsertRequest(ctx context.Context, req *core.SupplyRequest, items []core.SupplyRequestItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertRequest(ctx, s.db, req, items)
}

func insertRequest(ctx context.Context, q dbtx, req *core.SupplyRequest, items []core.SupplyRequestItem) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO supply_requests
		(id, tracking_id, requester_id, status, priority, justification, remarks,
		 expected_delivery_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		req.ID, req.TrackingID, req.RequesterID, req.Status, req.Priority,
		nullString(req.Justification), nullString(req.Remarks),
		nullTime(req.ExpectedDeliveryDate),
		req.CreatedAt.Format(timeLayout), req.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert request: %w", wrapWrite(err))
	}

	for _, item := range items {
		_, err := q.ExecContext(ctx, `
			INSERT INTO supply_request_items
			(id, request_id, description, quantity, unit_of_measure, specifications)
			VALUES (?, ?, ?, ?, ?, ?)`,
			item.ID, item.RequestID, item.Description, item.Quantity,
			item.UnitOfMeasure, nullString(item.Specifications),
		)
		if err != nil {
			return fmt.Errorf("insert request item: %w", wrapWrite(err))
		}
	}
	return nil
}

const requestColumns = `id, tracking_id, requester_id, status, priority, justification,
	remarks, expected_delivery_date, created_at, updated_at`

func (s *Store) GetRequest(ctx context.Context, id core.RequestID) (*core.SupplyRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequest(ctx, s.db, id)
}

func getRequest(ctx context.Context, q dbtx, id core.RequestID) (*core.SupplyRequest, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM supply_requests WHERE id = ?`, id)
	req, err := scanRequest(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func scanRequest(scan func(...any) error) (*core.SupplyRequest, error) {
	var (
		req                    core.SupplyRequest
		justification, remarks sql.NullString
		expectedDelivery       sql.NullString
		createdAt, updatedAt   string
	)
	err := scan(
		&req.ID, &req.TrackingID, &req.RequesterID, &req.Status, &req.Priority,
		&justification, &remarks, &expectedDelivery, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	req.Justification = justification.String
	req.Remarks = remarks.String
	if expectedDelivery.Valid {
		t, err := time.Parse(timeLayout, expectedDelivery.String)
		if err != nil {
			return nil, fmt.Errorf("parse expected_delivery_date: %w", err)
		}
		req.ExpectedDeliveryDate = &t
	}
	if req.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if req.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &req, nil
}

func (s *Store) GetRequestItems(ctx context.Context, id core.RequestID) ([]core.SupplyRequestItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRequestItems(ctx, s.db, id)
}

func getRequestItems(ctx context.Context, q dbtx, id core.RequestID) ([]core.SupplyRequestItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, request_id, description, quantity, unit_of_measure, specifications
		FROM supply_request_items WHERE request_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []core.SupplyRequestItem
	for rows.Next() {
		var item core.SupplyRequestItem
		var specs sql.NullString
		if err := rows.Scan(&item.ID, &item.RequestID, &item.Description,
			&item.Quantity, &item.UnitOfMeasure, &specs); err != nil {
			return nil, err
		}
		item.Specifications = specs.String
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) ListRequestsByStatus(ctx context.Context, status core.Status) ([]core.SupplyRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listRequestsByStatus(ctx, s.db, status)
}

func listRequestsByStatus(ctx context.Context, q dbtx, status core.Status) ([]core.SupplyRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM supply_requests ORDER BY created_at, rowid`
	args := []any{}
	if status != "" {
		query = `SELECT ` + requestColumns + ` FROM supply_requests
			WHERE status = ? ORDER BY created_at, rowid`
		args = append(args, status)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.SupplyRequest
	for rows.Next() {
		req, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRequestStatus(ctx context.Context, id core.RequestID, status core.Status, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateRequestStatus(ctx, s.db, id, status, at)
}

func updateRequestStatus(ctx context.Context, q dbtx, id core.RequestID, status core.Status, at time.Time) error {
	res, err := q.ExecContext(ctx,
		`UPDATE supply_requests SET status = ?, updated_at = ? WHERE id = ?`,
		status, at.Format(timeLayout), id)
	if err != nil {
		return wrapWrite(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrRequestNotFound
	}
	return nil
}

// =============================================================================
// INVENTORY
// =============================================================================

func (s *Store) InsertItem(ctx context.Context, item *core.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertItem(ctx, s.db, item)
}

func insertItem(ctx context.Context, q dbtx, item *core.InventoryItem) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO inventory_items
		(id, item_code, description, category, unit_of_measure, standard_unit_price,
		 reorder_level, reorder_quantity, stock_on_hand, location, active,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ItemCode, item.Description, nullString(item.Category),
		item.UnitOfMeasure, item.StandardUnitPrice.String(),
		item.ReorderLevel, item.ReorderQuantity, item.StockOnHand,
		nullString(item.Location), boolInt(item.Active),
		item.CreatedAt.Format(timeLayout), item.UpdatedAt.Format(timeLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return core.ErrDuplicateItemCode
		}
		return wrapWrite(err)
	}
	return nil
}

const itemColumns = `id, item_code, description, category, unit_of_measure,
	standard_unit_price, reorder_level, reorder_quantity, stock_on_hand,
	location, active, created_at, updated_at`

func (s *Store) GetItem(ctx context.Context, id core.ItemID) (*core.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getItem(ctx, s.db, id)
}

func getItem(ctx context.Context, q dbtx, id core.ItemID) (*core.InventoryItem, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE id = ?`, id)
	item, err := scanItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *Store) FindItemByCode(ctx context.Context, code string) (*core.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return findItemByCode(ctx, s.db, code)
}

func findItemByCode(ctx context.Context, q dbtx, code string) (*core.InventoryItem, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM inventory_items WHERE item_code = ?`, code)
	item, err := scanItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func scanItem(scan func(...any) error) (*core.InventoryItem, error) {
	var (
		item                 core.InventoryItem
		category, location   sql.NullString
		price                string
		active               int
		createdAt, updatedAt string
	)
	err := scan(
		&item.ID, &item.ItemCode, &item.Description, &category, &item.UnitOfMeasure,
		&price, &item.ReorderLevel, &item.ReorderQuantity, &item.StockOnHand,
		&location, &active, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Category = category.String
	item.Location = location.String
	item.Active = active != 0
	if item.StandardUnitPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("parse standard_unit_price: %w", err)
	}
	if item.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if item.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &item, nil
}

func (s *Store) SearchActiveItems(ctx context.Context, fragment string) ([]core.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return searchActiveItems(ctx, s.db, fragment)
}

func searchActiveItems(ctx context.Context, q dbtx, fragment string) ([]core.InventoryItem, error) {
	// LIKE is case-insensitive for ASCII in SQLite; the escape keeps
	// user text from injecting pattern characters.
	pattern := "%" + escapeLike(fragment) + "%"
	return queryItems(ctx, q, `
		SELECT `+itemColumns+` FROM inventory_items
		WHERE active = 1 AND description LIKE ? ESCAPE '\'
		ORDER BY item_code`, pattern)
}

func (s *Store) ListItems(ctx context.Context) ([]core.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listItems(ctx, s.db)
}

func listItems(ctx context.Context, q dbtx) ([]core.InventoryItem, error) {
	return queryItems(ctx, q,
		`SELECT `+itemColumns+` FROM inventory_items ORDER BY item_code`)
}

func (s *Store) ListLowStockItems(ctx context.Context) ([]core.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listLowStockItems(ctx, s.db)
}

func listLowStockItems(ctx context.Context, q dbtx) ([]core.InventoryItem, error) {
	return queryItems(ctx, q, `
		SELECT `+itemColumns+` FROM inventory_items
		WHERE active = 1 AND stock_on_hand <= reorder_level
		ORDER BY item_code`)
}

func queryItems(ctx context.Context, q dbtx, query string, args ...any) ([]core.InventoryItem, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.InventoryItem
	for rows.Next() {
		item, err := scanItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *item)
	}
	return out, rows.Err()
}

func (s *Store) UpdateItemStock(ctx context.Context, id core.ItemID, observed, updated int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateItemStock(ctx, s.db, id, observed, updated, at)
}

func updateItemStock(ctx context.Context, q dbtx, id core.ItemID, observed, updated int64, at time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE inventory_items SET stock_on_hand = ?, updated_at = ?
		WHERE id = ? AND stock_on_hand = ?`,
		updated, at.Format(timeLayout), id, observed)
	if err != nil {
		return wrapWrite(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// A missing row and a stale guard look the same to the UPDATE;
		// distinguish them for the caller.
		item, err := getItem(ctx, q, id)
		if err != nil {
			return err
		}
		if item == nil {
			return core.ErrItemNotFound
		}
		return core.ErrConcurrentModification
	}
	return nil
}

func (s *Store) AppendMovement(ctx context.Context, mv core.InventoryMovement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendMovement(ctx, s.db, mv)
}

func appendMovement(ctx context.Context, q dbtx, mv core.InventoryMovement) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO inventory_movements
		(id, item_id, movement_type, quantity, reference_type, reference_id,
		 stock_before, stock_after, notes, actor_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		mv.ID, mv.ItemID, mv.Type, mv.Quantity, mv.ReferenceType,
		nullString(mv.ReferenceID), mv.StockBefore, mv.StockAfter,
		nullString(mv.Notes), nullString(mv.ActorID),
		mv.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("append movement: %w", wrapWrite(err))
	}
	return nil
}

func (s *Store) Movements(ctx context.Context, id core.ItemID) ([]core.InventoryMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return movements(ctx, s.db, id)
}

func movements(ctx context.Context, q dbtx, id core.ItemID) ([]core.InventoryMovement, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, item_id, movement_type, quantity, reference_type, reference_id,
		       stock_before, stock_after, notes, actor_id, created_at
		FROM inventory_movements
		WHERE item_id = ?
		ORDER BY created_at, rowid`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.InventoryMovement
	for rows.Next() {
		var (
			mv                  core.InventoryMovement
			refID, notes, actor sql.NullString
			createdAt           string
		)
		if err := rows.Scan(&mv.ID, &mv.ItemID, &mv.Type, &mv.Quantity,
			&mv.ReferenceType, &refID, &mv.StockBefore, &mv.StockAfter,
			&notes, &actor, &createdAt); err != nil {
			return nil, err
		}
		mv.ReferenceID = refID.String
		mv.Notes = notes.String
		mv.ActorID = actor.String
		if mv.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		out = append(out, mv)
	}
	return out, rows.Err()
}

// =============================================================================
// REQUISITION SLIPS
// =============================================================================

func (s *Store) InsertRIS(ctx context.Context, ris *core.RIS, items []core.RISItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertRIS(ctx, s.db, ris, items)
}

func insertRIS(ctx context.Context, q dbtx, ris *core.RIS, items []core.RISItem) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO ris
		(id, ris_number, supply_request_id, requester_id, issued_to_id,
		 issue_date, total_amount, status, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ris.ID, ris.RISNumber, ris.SupplyRequestID, ris.RequesterID,
		ris.IssuedToID, ris.IssueDate.Format(timeLayout),
		ris.TotalAmount.String(), ris.Status, ris.CreatedBy,
		ris.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return core.ErrAlreadyIssued
		}
		return wrapWrite(err)
	}

	for _, item := range items {
		_, err := q.ExecContext(ctx, `
			INSERT INTO ris_items
			(id, ris_id, inventory_item_id, item_description, quantity,
			 unit_of_measure, unit_price, total_amount)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			item.ID, item.RISID, nullString(string(item.InventoryItemID)),
			item.ItemDescription, item.Quantity, item.UnitOfMeasure,
			item.UnitPrice.String(), item.TotalAmount.String(),
		)
		if err != nil {
			return fmt.Errorf("insert ris item: %w", wrapWrite(err))
		}
	}
	return nil
}

func (s *Store) GetRISByRequest(ctx context.Context, id core.RequestID) (*core.RIS, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRISByRequest(ctx, s.db, id)
}

func getRISByRequest(ctx context.Context, q dbtx, id core.RequestID) (*core.RIS, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, ris_number, supply_request_id, requester_id, issued_to_id,
		       issue_date, total_amount, status, created_by, created_at
		FROM ris WHERE supply_request_id = ?`, id)

	var (
		ris                  core.RIS
		issueDate, createdAt string
		total                string
	)
	err := row.Scan(&ris.ID, &ris.RISNumber, &ris.SupplyRequestID,
		&ris.RequesterID, &ris.IssuedToID, &issueDate, &total,
		&ris.Status, &ris.CreatedBy, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if ris.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("parse total_amount: %w", err)
	}
	if ris.IssueDate, err = time.Parse(timeLayout, issueDate); err != nil {
		return nil, fmt.Errorf("parse issue_date: %w", err)
	}
	if ris.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	return &ris, nil
}

func (s *Store) GetRISItems(ctx context.Context, id core.RISID) ([]core.RISItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getRISItems(ctx, s.db, id)
}

func getRISItems(ctx context.Context, q dbtx, id core.RISID) ([]core.RISItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, ris_id, inventory_item_id, item_description, quantity,
		       unit_of_measure, unit_price, total_amount
		FROM ris_items WHERE ris_id = ? ORDER BY rowid`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.RISItem
	for rows.Next() {
		var (
			item         core.RISItem
			invItem      sql.NullString
			price, total string
		)
		if err := rows.Scan(&item.ID, &item.RISID, &invItem,
			&item.ItemDescription, &item.Quantity, &item.UnitOfMeasure,
			&price, &total); err != nil {
			return nil, err
		}
		item.InventoryItemID = core.ItemID(invItem.String)
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("parse unit_price: %w", err)
		}
		if item.TotalAmount, err = decimal.NewFromString(total); err != nil {
			return nil, fmt.Errorf("parse total_amount: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// =============================================================================
// DOCUMENT TRACKING
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, entry core.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAudit(ctx, s.db, entry)
}

func appendAudit(ctx context.Context, q dbtx, entry core.AuditEntry) error {
	var previous any
	if entry.PreviousStatus != nil {
		previous = string(*entry.PreviousStatus)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO document_tracking
		(id, document_type, document_id, document_number, previous_status,
		 current_status, remarks, tracked_by, office_id, tracked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.DocumentType, entry.DocumentID, entry.DocumentNumber,
		previous, entry.CurrentStatus, nullString(entry.Remarks),
		entry.TrackedBy, nullStringPtr(entry.OfficeID),
		entry.TrackedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("append tracking entry: %w", wrapWrite(err))
	}
	return nil
}

func (s *Store) AuditHistory(ctx context.Context, docType core.DocumentType, docID string) ([]core.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return auditHistory(ctx, s.db, docType, docID)
}

func auditHistory(ctx context.Context, q dbtx, docType core.DocumentType, docID string) ([]core.AuditEntry, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT seq, id, document_type, document_id, document_number,
		       previous_status, current_status, remarks, tracked_by, office_id,
		       tracked_at
		FROM document_tracking
		WHERE document_type = ? AND document_id = ?
		ORDER BY tracked_at, seq`, docType, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.AuditEntry
	for rows.Next() {
		var (
			entry                     core.AuditEntry
			previous, remarks, office sql.NullString
			trackedAt                 string
		)
		if err := rows.Scan(&entry.Seq, &entry.ID, &entry.DocumentType,
			&entry.DocumentID, &entry.DocumentNumber, &previous,
			&entry.CurrentStatus, &remarks, &entry.TrackedBy, &office,
			&trackedAt); err != nil {
			return nil, err
		}
		if previous.Valid {
			st := core.Status(previous.String)
			entry.PreviousStatus = &st
		}
		entry.Remarks = remarks.String
		if office.Valid {
			o := office.String
			entry.OfficeID = &o
		}
		if entry.TrackedAt, err = time.Parse(timeLayout, trackedAt); err != nil {
			return nil, fmt.Errorf("parse tracked_at: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// =============================================================================
// SEQUENCE COUNTERS
// =============================================================================

func (s *Store) NextSequence(ctx context.Context, kind core.SequenceKind, scopeYear int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return nextSequence(ctx, s.db, kind, scopeYear)
}

// nextSequence bumps the counter in one statement. No max()+1, no second
// round trip: concurrent callers each get a distinct value.
func nextSequence(ctx context.Context, q dbtx, kind core.SequenceKind, scopeYear int) (int64, error) {
	var value int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO sequence_counters (kind, scope_year, value)
		VALUES (?, ?, 1)
		ON CONFLICT(kind, scope_year) DO UPDATE SET value = value + 1
		RETURNING value`, kind, scopeYear).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", core.ErrAllocationUnavailable, err)
	}
	return value, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(core.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", core.ErrPersistence, err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", core.ErrPersistence, err)
	}
	return nil
}

// txStore routes every operation through the open transaction. The parent's
// mutex is held for the whole transaction, so no extra locking here.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) InsertRequest(ctx context.Context, req *core.SupplyRequest, items []core.SupplyRequestItem) error {
	return insertRequest(ctx, t.tx, req, items)
}

func (t *txStore) GetRequest(ctx context.Context, id core.RequestID) (*core.SupplyRequest, error) {
	return getRequest(ctx, t.tx, id)
}

func (t *txStore) GetRequestItems(ctx context.Context, id core.RequestID) ([]core.SupplyRequestItem, error) {
	return getRequestItems(ctx, t.tx, id)
}

func (t *txStore) ListRequestsByStatus(ctx context.Context, status core.Status) ([]core.SupplyRequest, error) {
	return listRequestsByStatus(ctx, t.tx, status)
}

func (t *txStore) UpdateRequestStatus(ctx context.Context, id core.RequestID, status core.Status, at time.Time) error {
	return updateRequestStatus(ctx, t.tx, id, status, at)
}

func (t *txStore) InsertItem(ctx context.Context, item *core.InventoryItem) error {
	return insertItem(ctx, t.tx, item)
}

func (t *txStore) GetItem(ctx context.Context, id core.ItemID) (*core.InventoryItem, error) {
	return getItem(ctx, t.tx, id)
}

func (t *txStore) FindItemByCode(ctx context.Context, code string) (*core.InventoryItem, error) {
	return findItemByCode(ctx, t.tx, code)
}

func (t *txStore) SearchActiveItems(ctx context.Context, fragment string) ([]core.InventoryItem, error) {
	return searchActiveItems(ctx, t.tx, fragment)
}

func (t *txStore) ListItems(ctx context.Context) ([]core.InventoryItem, error) {
	return listItems(ctx, t.tx)
}

func (t *txStore) ListLowStockItems(ctx context.Context) ([]core.InventoryItem, error) {
	return listLowStockItems(ctx, t.tx)
}

func (t *txStore) UpdateItemStock(ctx context.Context, id core.ItemID, observed, updated int64, at time.Time) error {
	return updateItemStock(ctx, t.tx, id, observed, updated, at)
}

func (t *txStore) AppendMovement(ctx context.Context, mv core.InventoryMovement) error {
	return appendMovement(ctx, t.tx, mv)
}

func (t *txStore) Movements(ctx context.Context, id core.ItemID) ([]core.InventoryMovement, error) {
	return movements(ctx, t.tx, id)
}

func (t *txStore) InsertRIS(ctx context.Context, ris *core.RIS, items []core.RISItem) error {
	return insertRIS(ctx, t.tx, ris, items)
}

func (t *txStore) GetRISByRequest(ctx context.Context, id core.RequestID) (*core.RIS, error) {
	return getRISByRequest(ctx, t.tx, id)
}

func (t *txStore) GetRISItems(ctx context.Context, id core.RISID) ([]core.RISItem, error) {
	return getRISItems(ctx, t.tx, id)
}

func (t *txStore) AppendAudit(ctx context.Context, entry core.AuditEntry) error {
	return appendAudit(ctx, t.tx, entry)
}

func (t *txStore) AuditHistory(ctx context.Context, docType core.DocumentType, docID string) ([]core.AuditEntry, error) {
	return auditHistory(ctx, t.tx, docType, docID)
}

func (t *txStore) NextSequence(ctx context.Context, kind core.SequenceKind, scopeYear int) (int64, error) {
	return nextSequence(ctx, t.tx, kind, scopeYear)
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

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(timeLayout), Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	return strings.ReplaceAll(s, `_`, `\_`)
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

// wrapWrite classifies storage-level write failures as retryable
// persistence errors; constraint violations are handled by the callers
// that can name them.
func wrapWrite(err error) error {
	if err == nil {
		return nil
	}
	if isUniqueConstraintError(err) {
		return err
	}
	return fmt.Errorf("%w: %v", core.ErrPersistence, err)
}

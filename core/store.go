/*
store.go - Persistence interfaces for the engine

PURPOSE:
  Defines the boundary between domain logic and the database. Services only
  ever see these interfaces; store/sqlite provides the production
  implementation and core/store an in-memory one for tests.

TRANSACTIONAL CONTRACT:
  Every multi-step operation (create request + first audit entry, status
  change + audit entry, the whole issuance path) runs inside
  TxStore.WithTx. If the callback returns an error the transaction is
  rolled back and NO partial state survives; commit is the only other exit.

LOOKUP CONVENTION:
  Getters return (nil, nil) for "not found". Services translate that into
  the appropriate sentinel (ErrRequestNotFound, ErrItemNotFound) so the
  store layer stays free of business vocabulary.

MOVEMENT LEDGER CONTRACT:
  AppendMovement is append-only: no update or delete exists for movements
  or audit entries. UpdateItemStock carries the caller's observed balance
  as a guard; a mismatch means another writer won and the store returns
  ErrConcurrentModification without touching the row.
*/
package core

import (
	"context"
	"time"
)

// Store is the flat persistence surface. Implementations must be safe for
// concurrent use.
type Store interface {
	// --- supply requests ---

	// InsertRequest persists a request together with its line items.
	InsertRequest(ctx context.Context, req *SupplyRequest, items []SupplyRequestItem) error

	// GetRequest returns the request, or (nil, nil) if absent.
	GetRequest(ctx context.Context, id RequestID) (*SupplyRequest, error)

	// GetRequestItems returns the request's lines in insertion order.
	GetRequestItems(ctx context.Context, id RequestID) ([]SupplyRequestItem, error)

	// ListRequestsByStatus returns requests in a status, oldest first.
	// An empty status lists everything.
	ListRequestsByStatus(ctx context.Context, status Status) ([]SupplyRequest, error)

	// UpdateRequestStatus sets status and updatedAt on an existing request.
	UpdateRequestStatus(ctx context.Context, id RequestID, status Status, updatedAt time.Time) error

	// --- inventory ---

	// InsertItem registers an inventory item. A taken item code is
	// reported as ErrDuplicateItemCode.
	InsertItem(ctx context.Context, item *InventoryItem) error

	// GetItem returns the item, or (nil, nil) if absent.
	GetItem(ctx context.Context, id ItemID) (*InventoryItem, error)

	// FindItemByCode returns the item with the exact code, or (nil, nil).
	FindItemByCode(ctx context.Context, code string) (*InventoryItem, error)

	// SearchActiveItems returns active items whose description contains
	// the fragment, case-insensitively.
	SearchActiveItems(ctx context.Context, fragment string) ([]InventoryItem, error)

	// ListItems returns all items ordered by code.
	ListItems(ctx context.Context) ([]InventoryItem, error)

	// ListLowStockItems returns active items at or below reorder level.
	ListLowStockItems(ctx context.Context) ([]InventoryItem, error)

	// UpdateItemStock sets the on-hand balance, guarded by the balance the
	// caller observed. Mismatch returns ErrConcurrentModification.
	UpdateItemStock(ctx context.Context, id ItemID, observed, updated int64, at time.Time) error

	// AppendMovement records a stock movement. Append-only.
	AppendMovement(ctx context.Context, mv InventoryMovement) error

	// Movements returns an item's movements in recorded order.
	Movements(ctx context.Context, id ItemID) ([]InventoryMovement, error)

	// --- requisition slips ---

	// InsertRIS persists a slip with its lines. A second slip for the same
	// request is reported as ErrAlreadyIssued.
	InsertRIS(ctx context.Context, ris *RIS, items []RISItem) error

	// GetRISByRequest returns the slip for a request, or (nil, nil).
	GetRISByRequest(ctx context.Context, id RequestID) (*RIS, error)

	// GetRISItems returns a slip's lines in insertion order.
	GetRISItems(ctx context.Context, id RISID) ([]RISItem, error)

	// --- document tracking ---

	// AppendAudit records a tracking entry. Append-only; the store assigns
	// the insert-order Seq.
	AppendAudit(ctx context.Context, entry AuditEntry) error

	// AuditHistory returns a document's entries ordered by TrackedAt
	// ascending, ties broken by Seq.
	AuditHistory(ctx context.Context, docType DocumentType, docID string) ([]AuditEntry, error)

	// --- sequence counters ---

	// NextSequence atomically increments and returns the counter for
	// (kind, scopeYear). Failure is reported as ErrAllocationUnavailable.
	NextSequence(ctx context.Context, kind SequenceKind, scopeYear int) (int64, error)
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

/*
Package core provides the supply request lifecycle and inventory ledger engine.

PURPOSE:
  This package contains the domain types and services for tracking a supply
  request from submission through fulfillment: the status workflow, the
  inventory stock ledger, sequential document numbering, the requisition
  slip (RIS) issuance path, and the append-only document tracking trail.

KEY CONCEPTS IN THIS FILE (types.go):
  - SupplyRequest / SupplyRequestItem: What a requester asked for
  - InventoryItem: A stocked good with an on-hand balance
  - InventoryMovement: One signed stock change (the ledger entry)
  - RIS / RISItem: The requisition slip issued against a request
  - AuditEntry: One row of the document tracking trail

DESIGN PRINCIPLES:
  1. Immutability: movements, RIS lines, and audit entries are never edited
  2. Precision: decimal.Decimal for all money amounts
  3. Type Safety: distinct ID types so request/item/RIS keys cannot be mixed
  4. Auditability: every status change and stock change is traceable

SEE ALSO:
  - status.go: The request status enum and transition table
  - ledger.go: Stock adjustment and consumption
  - issuance.go: The atomic RIS issuance path
*/
package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// parsePrice parses a decimal string; empty input means zero.
func parsePrice(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type RequestID string
type ItemID string
type MovementID string
type RISID string
type AuditEntryID string

// DocumentType names the kind of document an audit entry tracks.
type DocumentType string

const (
	DocSupplyRequest DocumentType = "SUPPLY_REQUEST"
	DocRIS           DocumentType = "RIS"
)

// =============================================================================
// SUPPLY REQUEST
// =============================================================================

type Priority string

const (
	PriorityNormal Priority = "Normal"
	PriorityHigh   Priority = "High"
	PriorityUrgent Priority = "Urgent"
)

// ValidPriority reports whether p is one of the known priority levels.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// SupplyRequest is a requester's ask for supplies. It is owned by the
// requester and mutated only through workflow transitions; the tracking ID
// is assigned once at creation and never changes.
type SupplyRequest struct {
	ID          RequestID
	TrackingID  string
	RequesterID string
	Status      Status
	Priority    Priority

	Justification string
	Remarks       string

	ExpectedDeliveryDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// SupplyRequestItem is one requested line. Lines are immutable after the
// request is created.
type SupplyRequestItem struct {
	ID             string
	RequestID      RequestID
	Description    string
	Quantity       int64
	UnitOfMeasure  string
	Specifications string
}

// =============================================================================
// INVENTORY
// =============================================================================

// InventoryItem is a stocked good. StockOnHand is never assigned directly by
// callers; it only moves through recorded ledger movements.
type InventoryItem struct {
	ID            ItemID
	ItemCode      string
	Description   string
	Category      string
	UnitOfMeasure string

	StandardUnitPrice decimal.Decimal

	ReorderLevel    int64
	ReorderQuantity int64
	StockOnHand     int64

	Location string
	Active   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

type MovementType string

const (
	MovementIn         MovementType = "IN"
	MovementOut        MovementType = "OUT"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// ReferenceType names what caused a movement.
type ReferenceType string

const (
	RefAdjustment ReferenceType = "ADJUSTMENT"
	RefIssuance   ReferenceType = "ISSUANCE"
	RefReceipt    ReferenceType = "RECEIPT"
)

// InventoryMovement is one signed stock change. Movements are append-only:
// replaying them in order from zero reproduces the item's StockOnHand.
type InventoryMovement struct {
	ID     MovementID
	ItemID ItemID

	Type     MovementType
	Quantity int64 // always > 0; sign is implied by Type

	ReferenceType ReferenceType
	ReferenceID   string

	StockBefore int64
	StockAfter  int64

	Notes   string
	ActorID string

	CreatedAt time.Time
}

// SignedQuantity returns the movement's effect on stock: +Quantity for IN,
// -Quantity for OUT. ADJUSTMENT movements are recorded as IN or OUT by
// direction, so every stored movement has a definite sign.
func (m InventoryMovement) SignedQuantity() int64 {
	if m.Type == MovementOut {
		return -m.Quantity
	}
	return m.Quantity
}

// =============================================================================
// RIS - Requisition & Issue Slip
// =============================================================================

type RISStatus string

const (
	RISGenerated RISStatus = "Generated"
	RISIssued    RISStatus = "Issued"
	RISReceived  RISStatus = "Received"
)

// RIS is the requisition slip issued against a supply request. At most one
// RIS exists per request; it is created exactly once and never re-created.
type RIS struct {
	ID        RISID
	RISNumber string

	SupplyRequestID RequestID
	RequesterID     string
	IssuedToID      string

	IssueDate   time.Time
	TotalAmount decimal.Decimal
	Status      RISStatus
	CreatedBy   string

	CreatedAt time.Time
}

// RISItem is a denormalized line snapshot taken at issuance time. Later
// price changes on the inventory item never alter a historical slip.
type RISItem struct {
	ID    string
	RISID RISID

	// Optional back-reference to the inventory item consumed. Empty when
	// the line was issued without a resolved inventory match.
	InventoryItemID ItemID

	ItemDescription string
	Quantity        int64
	UnitOfMeasure   string
	UnitPrice       decimal.Decimal
	TotalAmount     decimal.Decimal
}

// =============================================================================
// AUDIT ENTRY - document tracking trail
// =============================================================================

// AuditEntry is one row of the append-only document tracking trail. Entries
// for a document, ordered by TrackedAt (ties by insert order), reconstruct
// the exact status sequence the document went through.
type AuditEntry struct {
	ID AuditEntryID

	DocumentType   DocumentType
	DocumentID     string
	DocumentNumber string

	// PreviousStatus is nil for the entry recorded at document creation.
	PreviousStatus *Status
	CurrentStatus  Status

	Remarks   string
	TrackedBy string

	// OfficeID is nil when no office is associated; presentation renders
	// this as "N/A".
	OfficeID *string

	TrackedAt time.Time

	// Seq is the insert-order tie-breaker, assigned by the store.
	Seq int64
}

/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

CONVENTIONS:
  - Money travels as decimal strings ("1234.50"), never floats
  - Timestamps are RFC 3339 UTC
  - A tracking entry with no office renders office as "N/A"
  - previous_status is null on a document's creation entry

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Body: Request body types from clients

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// SUPPLY REQUESTS
// =============================================================================

// CreateRequestBody is the POST /api/requests payload.
type CreateRequestBody struct {
	RequesterID          string            `json:"requester_id"`
	Priority             string            `json:"priority"`
	Justification        string            `json:"justification,omitempty"`
	ExpectedDeliveryDate string            `json:"expected_delivery_date,omitempty"` // RFC 3339
	Items                []RequestLineBody `json:"items"`
}

type RequestLineBody struct {
	Description    string `json:"description"`
	Quantity       int64  `json:"quantity"`
	UnitOfMeasure  string `json:"unit_of_measure"`
	Specifications string `json:"specifications,omitempty"`
}

// CreateRequestResponse returns both keys for a new request: the opaque ID
// and the human-readable tracking ID.
type CreateRequestResponse struct {
	ID         string `json:"id"`
	TrackingID string `json:"tracking_id"`
	Status     string `json:"status"`
}

type SupplyRequestDTO struct {
	ID                   string                 `json:"id"`
	TrackingID           string                 `json:"tracking_id"`
	RequesterID          string                 `json:"requester_id"`
	Status               string                 `json:"status"`
	Priority             string                 `json:"priority"`
	Justification        string                 `json:"justification,omitempty"`
	Remarks              string                 `json:"remarks,omitempty"`
	ExpectedDeliveryDate *string                `json:"expected_delivery_date,omitempty"`
	Items                []SupplyRequestItemDTO `json:"items,omitempty"`
	CreatedAt            string                 `json:"created_at"`
	UpdatedAt            string                 `json:"updated_at"`
}

type SupplyRequestItemDTO struct {
	ID             string `json:"id"`
	Description    string `json:"description"`
	Quantity       int64  `json:"quantity"`
	UnitOfMeasure  string `json:"unit_of_measure"`
	Specifications string `json:"specifications,omitempty"`
}

// TransitionBody is the POST /api/requests/{id}/transition payload.
type TransitionBody struct {
	Status  string `json:"status"`
	ActorID string `json:"actor_id"`
	Remarks string `json:"remarks,omitempty"`
}

// =============================================================================
// INVENTORY
// =============================================================================

// CreateItemBody is the POST /api/items payload.
type CreateItemBody struct {
	ItemCode          string `json:"item_code"`
	Description       string `json:"description"`
	Category          string `json:"category,omitempty"`
	UnitOfMeasure     string `json:"unit_of_measure"`
	StandardUnitPrice string `json:"standard_unit_price,omitempty"` // decimal string
	ReorderLevel      int64  `json:"reorder_level,omitempty"`
	ReorderQuantity   int64  `json:"reorder_quantity,omitempty"`
	InitialStock      int64  `json:"initial_stock,omitempty"`
	Location          string `json:"location,omitempty"`
	ActorID           string `json:"actor_id"`
}

type InventoryItemDTO struct {
	ID                string `json:"id"`
	ItemCode          string `json:"item_code"`
	Description       string `json:"description"`
	Category          string `json:"category,omitempty"`
	UnitOfMeasure     string `json:"unit_of_measure"`
	StandardUnitPrice string `json:"standard_unit_price"`
	ReorderLevel      int64  `json:"reorder_level"`
	ReorderQuantity   int64  `json:"reorder_quantity"`
	StockOnHand       int64  `json:"stock_on_hand"`
	Location          string `json:"location,omitempty"`
	Active            bool   `json:"active"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

// AdjustStockBody is the POST /api/items/{id}/adjust payload. NewQuantity
// is the new absolute on-hand count, not a delta.
type AdjustStockBody struct {
	NewQuantity int64  `json:"new_quantity"`
	ActorID     string `json:"actor_id"`
	Notes       string `json:"notes,omitempty"`
}

type MovementDTO struct {
	ID             string `json:"id"`
	ItemID         string `json:"item_id"`
	Type           string `json:"type"`
	Quantity       int64  `json:"quantity"`
	SignedQuantity int64  `json:"signed_quantity"`
	ReferenceType  string `json:"reference_type"`
	ReferenceID    string `json:"reference_id,omitempty"`
	StockBefore    int64  `json:"stock_before"`
	StockAfter     int64  `json:"stock_after"`
	Notes          string `json:"notes,omitempty"`
	ActorID        string `json:"actor_id,omitempty"`
	CreatedAt      string `json:"created_at"`
}

// VerifyItemResponse reports ledger replay against the stored balance.
type VerifyItemResponse struct {
	ItemID      string `json:"item_id"`
	StockOnHand int64  `json:"stock_on_hand"`
	Drift       int64  `json:"drift"`
	Consistent  bool   `json:"consistent"`
}

// =============================================================================
// ISSUANCE
// =============================================================================

// IssueBody is the POST /api/requests/{id}/issue payload.
type IssueBody struct {
	ActorID string `json:"actor_id"`
}

type RISDTO struct {
	ID              string       `json:"id"`
	RISNumber       string       `json:"ris_number"`
	SupplyRequestID string       `json:"supply_request_id"`
	RequesterID     string       `json:"requester_id"`
	IssuedToID      string       `json:"issued_to_id"`
	IssueDate       string       `json:"issue_date"`
	TotalAmount     string       `json:"total_amount"`
	Status          string       `json:"status"`
	CreatedBy       string       `json:"created_by"`
	Items           []RISItemDTO `json:"items,omitempty"`
	CreatedAt       string       `json:"created_at"`
}

type RISItemDTO struct {
	ID              string `json:"id"`
	InventoryItemID string `json:"inventory_item_id,omitempty"`
	ItemDescription string `json:"item_description"`
	Quantity        int64  `json:"quantity"`
	UnitOfMeasure   string `json:"unit_of_measure"`
	UnitPrice       string `json:"unit_price"`
	TotalAmount     string `json:"total_amount"`
}

// =============================================================================
// TRACKING
// =============================================================================

type AuditEntryDTO struct {
	ID             string  `json:"id"`
	DocumentType   string  `json:"document_type"`
	DocumentID     string  `json:"document_id"`
	DocumentNumber string  `json:"document_number"`
	PreviousStatus *string `json:"previous_status"`
	CurrentStatus  string  `json:"current_status"`
	Remarks        string  `json:"remarks,omitempty"`
	TrackedBy      string  `json:"tracked_by"`
	Office         string  `json:"office"`
	TrackedAt      string  `json:"tracked_at"`
}

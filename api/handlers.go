/*
handlers.go - HTTP API handlers for the supply engine

PURPOSE:
  Exposes the supply request lifecycle and inventory ledger via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  domain services.

ENDPOINTS:
  Requests:
    POST   /api/requests                    Create supply request
    GET    /api/requests                    List (optionally ?status=)
    GET    /api/requests/{id}               Request with its lines
    POST   /api/requests/{id}/transition    Advance the status workflow
    POST   /api/requests/{id}/issue         Issue the requisition slip
    GET    /api/requests/{id}/ris           The issued slip, if any
    GET    /api/requests/{id}/history       Tracking trail for the request

  Inventory:
    POST   /api/items                       Register inventory item
    GET    /api/items                       List (optionally ?search=)
    GET    /api/items/low-stock             At or below reorder level
    GET    /api/items/{id}                  Single item
    POST   /api/items/{id}/adjust           Set a new absolute stock count
    GET    /api/items/{id}/movements        The item's movement ledger
    GET    /api/items/{id}/verify           Replay the ledger, report drift

  Tracking:
    GET    /api/tracking/{documentType}/{id}  Trail for any document kind

ERROR HANDLING:
  Domain errors map to HTTP status by classification:
  - 400: validation errors, malformed input
  - 404: unknown request or item
  - 409: illegal transition, duplicate code, already issued, lost race
  - 422: insufficient stock
  - 503: allocation/persistence failures (retryable)
  - 500: everything else

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stockroom/supply-engine/core"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine *core.Engine
}

// NewHandler creates a new handler over the given engine.
func NewHandler(engine *core.Engine) *Handler {
	return &Handler{Engine: engine}
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// CreateRequest opens a new supply request.
// POST /api/requests
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body CreateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in := core.CreateRequestInput{
		RequesterID:   body.RequesterID,
		Priority:      core.Priority(body.Priority),
		Justification: body.Justification,
	}
	if body.Priority == "" {
		in.Priority = core.PriorityNormal
	}
	if body.ExpectedDeliveryDate != "" {
		t, err := time.Parse(time.RFC3339, body.ExpectedDeliveryDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid expected_delivery_date", err)
			return
		}
		in.ExpectedDeliveryDate = &t
	}
	for _, line := range body.Items {
		in.Lines = append(in.Lines, core.RequestLine{
			Description:    line.Description,
			Quantity:       line.Quantity,
			UnitOfMeasure:  line.UnitOfMeasure,
			Specifications: line.Specifications,
		})
	}

	result, err := h.Engine.Workflow.CreateRequest(r.Context(), in)
	if err != nil {
		writeDomainError(w, "Failed to create request", err)
		return
	}

	writeJSON(w, http.StatusCreated, CreateRequestResponse{
		ID:         string(result.RequestID),
		TrackingID: result.TrackingID,
		Status:     string(core.StatusSubmitted),
	})
}

// ListRequests returns requests, optionally filtered by ?status=.
// GET /api/requests
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	status := core.Status(r.URL.Query().Get("status"))
	if status != "" && !core.ValidStatus(status) {
		writeError(w, http.StatusBadRequest, "Unknown status", nil)
		return
	}

	requests, err := h.Engine.Workflow.ListByStatus(r.Context(), status)
	if err != nil {
		writeDomainError(w, "Failed to list requests", err)
		return
	}

	dtos := make([]SupplyRequestDTO, len(requests))
	for i := range requests {
		dtos[i] = toRequestDTO(&requests[i], nil)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRequest returns a single request with its lines.
// GET /api/requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := core.RequestID(chi.URLParam(r, "id"))

	req, err := h.Engine.Workflow.GetRequest(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get request", err)
		return
	}
	items, err := h.Engine.Workflow.GetRequestItems(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get request items", err)
		return
	}

	writeJSON(w, http.StatusOK, toRequestDTO(req, items))
}

// TransitionRequest advances a request through the status workflow.
// POST /api/requests/{id}/transition
func (h *Handler) TransitionRequest(w http.ResponseWriter, r *http.Request) {
	id := core.RequestID(chi.URLParam(r, "id"))

	var body TransitionBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	target := core.Status(body.Status)
	if !core.ValidStatus(target) {
		writeError(w, http.StatusBadRequest, "Unknown status", nil)
		return
	}

	if err := h.Engine.Workflow.Transition(r.Context(), id, target, body.ActorID, body.Remarks); err != nil {
		writeDomainError(w, "Transition failed", err)
		return
	}

	req, err := h.Engine.Workflow.GetRequest(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req, nil))
}

// IssueRequest issues the requisition slip for a request.
// POST /api/requests/{id}/issue
func (h *Handler) IssueRequest(w http.ResponseWriter, r *http.Request) {
	id := core.RequestID(chi.URLParam(r, "id"))

	var body IssueBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.Engine.Issuance.Issue(r.Context(), id, body.ActorID)
	if err != nil {
		writeDomainError(w, "Issuance failed", err)
		return
	}

	ris, items, err := h.Engine.Issuance.GetRIS(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to load issued slip", err)
		return
	}
	if ris == nil {
		// Issue succeeded moments ago; this should not happen.
		writeJSON(w, http.StatusCreated, map[string]string{
			"id":         string(result.RISID),
			"ris_number": result.RISNumber,
		})
		return
	}
	writeJSON(w, http.StatusCreated, toRISDTO(ris, items))
}

// GetRIS returns the slip issued against a request, if any.
// GET /api/requests/{id}/ris
func (h *Handler) GetRIS(w http.ResponseWriter, r *http.Request) {
	id := core.RequestID(chi.URLParam(r, "id"))

	ris, items, err := h.Engine.Issuance.GetRIS(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get slip", err)
		return
	}
	if ris == nil {
		writeError(w, http.StatusNotFound, "No slip issued for this request", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRISDTO(ris, items))
}

// GetRequestHistory returns the tracking trail for a request.
// GET /api/requests/{id}/history
func (h *Handler) GetRequestHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	entries, err := h.Engine.Audit.History(r.Context(), core.DocSupplyRequest, id)
	if err != nil {
		writeDomainError(w, "Failed to get history", err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditDTOs(entries))
}

// GetTracking returns the trail for any document kind.
// GET /api/tracking/{documentType}/{id}
func (h *Handler) GetTracking(w http.ResponseWriter, r *http.Request) {
	docType := core.DocumentType(chi.URLParam(r, "documentType"))
	if docType != core.DocSupplyRequest && docType != core.DocRIS {
		writeError(w, http.StatusBadRequest, "Unknown document type", nil)
		return
	}

	entries, err := h.Engine.Audit.History(r.Context(), docType, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get tracking trail", err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditDTOs(entries))
}

// =============================================================================
// INVENTORY HANDLERS
// =============================================================================

// CreateItem registers a new inventory item.
// POST /api/items
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var body CreateItemBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	item, err := h.Engine.Ledger.RegisterItem(r.Context(), core.RegisterItemInput{
		ItemCode:          body.ItemCode,
		Description:       body.Description,
		Category:          body.Category,
		UnitOfMeasure:     body.UnitOfMeasure,
		StandardUnitPrice: body.StandardUnitPrice,
		ReorderLevel:      body.ReorderLevel,
		ReorderQuantity:   body.ReorderQuantity,
		InitialStock:      body.InitialStock,
		Location:          body.Location,
		ActorID:           body.ActorID,
	})
	if err != nil {
		writeDomainError(w, "Failed to register item", err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemDTO(item))
}

// ListItems returns inventory items; ?search= filters active items by
// description fragment.
// GET /api/items
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	var (
		items []core.InventoryItem
		err   error
	)
	if fragment := r.URL.Query().Get("search"); fragment != "" {
		items, err = h.Engine.Store.SearchActiveItems(r.Context(), fragment)
	} else {
		items, err = h.Engine.Ledger.ListItems(r.Context())
	}
	if err != nil {
		writeDomainError(w, "Failed to list items", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTOs(items))
}

// ListLowStockItems returns active items at or below their reorder level.
// GET /api/items/low-stock
func (h *Handler) ListLowStockItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Engine.Ledger.LowStock(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list low-stock items", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTOs(items))
}

// GetItem returns a single inventory item.
// GET /api/items/{id}
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Engine.Ledger.GetItem(r.Context(), core.ItemID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, "Failed to get item", err)
		return
	}
	writeJSON(w, http.StatusOK, toItemDTO(item))
}

// AdjustStock sets a new absolute stock count for an item.
// POST /api/items/{id}/adjust
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	id := core.ItemID(chi.URLParam(r, "id"))

	var body AdjustStockBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	mv, err := h.Engine.Ledger.AdjustStock(r.Context(), id, body.NewQuantity, body.ActorID, body.Notes)
	if err != nil {
		writeDomainError(w, "Failed to adjust stock", err)
		return
	}
	if mv == nil {
		// New quantity equals the current count; nothing recorded.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, toMovementDTO(*mv))
}

// GetMovements returns the movement ledger for an item.
// GET /api/items/{id}/movements
func (h *Handler) GetMovements(w http.ResponseWriter, r *http.Request) {
	id := core.ItemID(chi.URLParam(r, "id"))

	movements, err := h.Engine.Ledger.Movements(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get movements", err)
		return
	}

	dtos := make([]MovementDTO, len(movements))
	for i, mv := range movements {
		dtos[i] = toMovementDTO(mv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// VerifyItem replays the movement ledger and reports drift against the
// stored balance.
// GET /api/items/{id}/verify
func (h *Handler) VerifyItem(w http.ResponseWriter, r *http.Request) {
	id := core.ItemID(chi.URLParam(r, "id"))

	drift, err := h.Engine.Ledger.VerifyItem(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to verify item", err)
		return
	}
	item, err := h.Engine.Ledger.GetItem(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get item", err)
		return
	}

	writeJSON(w, http.StatusOK, VerifyItemResponse{
		ItemID:      string(id),
		StockOnHand: item.StockOnHand,
		Drift:       drift,
		Consistent:  drift == 0,
	})
}

// =============================================================================
// DTO CONVERSION
// =============================================================================

func toRequestDTO(req *core.SupplyRequest, items []core.SupplyRequestItem) SupplyRequestDTO {
	dto := SupplyRequestDTO{
		ID:            string(req.ID),
		TrackingID:    req.TrackingID,
		RequesterID:   req.RequesterID,
		Status:        string(req.Status),
		Priority:      string(req.Priority),
		Justification: req.Justification,
		Remarks:       req.Remarks,
		CreatedAt:     req.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     req.UpdatedAt.Format(time.RFC3339),
	}
	if req.ExpectedDeliveryDate != nil {
		dto.ExpectedDeliveryDate = strPtr(req.ExpectedDeliveryDate.Format(time.RFC3339))
	}
	for _, item := range items {
		dto.Items = append(dto.Items, SupplyRequestItemDTO{
			ID:             item.ID,
			Description:    item.Description,
			Quantity:       item.Quantity,
			UnitOfMeasure:  item.UnitOfMeasure,
			Specifications: item.Specifications,
		})
	}
	return dto
}

func toItemDTO(item *core.InventoryItem) InventoryItemDTO {
	return InventoryItemDTO{
		ID:                string(item.ID),
		ItemCode:          item.ItemCode,
		Description:       item.Description,
		Category:          item.Category,
		UnitOfMeasure:     item.UnitOfMeasure,
		StandardUnitPrice: item.StandardUnitPrice.String(),
		ReorderLevel:      item.ReorderLevel,
		ReorderQuantity:   item.ReorderQuantity,
		StockOnHand:       item.StockOnHand,
		Location:          item.Location,
		Active:            item.Active,
		CreatedAt:         item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         item.UpdatedAt.Format(time.RFC3339),
	}
}

func toItemDTOs(items []core.InventoryItem) []InventoryItemDTO {
	dtos := make([]InventoryItemDTO, len(items))
	for i := range items {
		dtos[i] = toItemDTO(&items[i])
	}
	return dtos
}

func toMovementDTO(mv core.InventoryMovement) MovementDTO {
	return MovementDTO{
		ID:             string(mv.ID),
		ItemID:         string(mv.ItemID),
		Type:           string(mv.Type),
		Quantity:       mv.Quantity,
		SignedQuantity: mv.SignedQuantity(),
		ReferenceType:  string(mv.ReferenceType),
		ReferenceID:    mv.ReferenceID,
		StockBefore:    mv.StockBefore,
		StockAfter:     mv.StockAfter,
		Notes:          mv.Notes,
		ActorID:        mv.ActorID,
		CreatedAt:      mv.CreatedAt.Format(time.RFC3339),
	}
}

func toRISDTO(ris *core.RIS, items []core.RISItem) RISDTO {
	dto := RISDTO{
		ID:              string(ris.ID),
		RISNumber:       ris.RISNumber,
		SupplyRequestID: string(ris.SupplyRequestID),
		RequesterID:     ris.RequesterID,
		IssuedToID:      ris.IssuedToID,
		IssueDate:       ris.IssueDate.Format(time.RFC3339),
		TotalAmount:     ris.TotalAmount.String(),
		Status:          string(ris.Status),
		CreatedBy:       ris.CreatedBy,
		CreatedAt:       ris.CreatedAt.Format(time.RFC3339),
	}
	for _, item := range items {
		dto.Items = append(dto.Items, RISItemDTO{
			ID:              item.ID,
			InventoryItemID: string(item.InventoryItemID),
			ItemDescription: item.ItemDescription,
			Quantity:        item.Quantity,
			UnitOfMeasure:   item.UnitOfMeasure,
			UnitPrice:       item.UnitPrice.String(),
			TotalAmount:     item.TotalAmount.String(),
		})
	}
	return dto
}

func toAuditDTOs(entries []core.AuditEntry) []AuditEntryDTO {
	dtos := make([]AuditEntryDTO, len(entries))
	for i, entry := range entries {
		dto := AuditEntryDTO{
			ID:             string(entry.ID),
			DocumentType:   string(entry.DocumentType),
			DocumentID:     entry.DocumentID,
			DocumentNumber: entry.DocumentNumber,
			CurrentStatus:  string(entry.CurrentStatus),
			Remarks:        entry.Remarks,
			TrackedBy:      entry.TrackedBy,
			Office:         "N/A",
			TrackedAt:      entry.TrackedAt.Format(time.RFC3339),
		}
		if entry.PreviousStatus != nil {
			dto.PreviousStatus = strPtr(string(*entry.PreviousStatus))
		}
		if entry.OfficeID != nil {
			dto.Office = *entry.OfficeID
		}
		dtos[i] = dto
	}
	return dtos
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

// writeDomainError maps domain error classes to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, core.ErrInsufficientStock):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case errors.Is(err, core.ErrInvalidTransition),
		errors.Is(err, core.ErrDuplicateItemCode),
		errors.Is(err, core.ErrAlreadyIssued),
		errors.Is(err, core.ErrConcurrentModification):
		writeError(w, http.StatusConflict, message, err)
	case core.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	case core.IsRetryable(err):
		writeError(w, http.StatusServiceUnavailable, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func strPtr(s string) *string {
	return &s
}

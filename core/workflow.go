/*
workflow.go - Supply request lifecycle service

PURPOSE:
  Creates supply requests and advances them through the status machine.
  Every mutation of a request happens here, and every mutation writes
  exactly one tracking entry in the same transaction - a crash can never
  leave a status change without its trail entry, or the reverse.

CREATE FLOW:
  validate input -> allocate tracking ID -> insert request + lines +
  the first tracking entry (previous status nil) as one transaction.

TRANSITION FLOW:
  load request -> check the transition table -> update status/updatedAt +
  append one tracking entry as one transaction. Illegal targets return
  ErrInvalidTransition and leave the request untouched.
*/
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestLine is one requested item in CreateRequestInput.
type RequestLine struct {
	Description    string
	Quantity       int64
	UnitOfMeasure  string
	Specifications string
}

// CreateRequestInput carries everything needed to open a request.
type CreateRequestInput struct {
	RequesterID          string
	Priority             Priority
	Justification        string
	ExpectedDeliveryDate *time.Time
	Lines                []RequestLine
}

// CreateRequestResult is what the caller gets back: the opaque key and the
// human-readable tracking ID.
type CreateRequestResult struct {
	RequestID  RequestID
	TrackingID string
}

// RequestWorkflow governs the supply request lifecycle.
type RequestWorkflow struct {
	Store     TxStore
	Allocator *IdentifierAllocator
	Audit     *AuditTrail
	Clock     Clock
}

func NewRequestWorkflow(store TxStore) *RequestWorkflow {
	return &RequestWorkflow{
		Store:     store,
		Allocator: NewIdentifierAllocator(store),
		Audit:     NewAuditTrail(store),
		Clock:     UTCNow,
	}
}

// CreateRequest validates and persists a new request in status Submitted.
func (w *RequestWorkflow) CreateRequest(ctx context.Context, in CreateRequestInput) (*CreateRequestResult, error) {
	if strings.TrimSpace(in.RequesterID) == "" {
		return nil, &ValidationError{Field: "requester_id", Message: "must not be empty"}
	}
	if !ValidPriority(in.Priority) {
		return nil, &ValidationError{Field: "priority", Message: fmt.Sprintf("unknown priority %q", in.Priority)}
	}
	if len(in.Lines) == 0 {
		return nil, &ValidationError{Field: "items", Message: "at least one item is required"}
	}
	for i, line := range in.Lines {
		if strings.TrimSpace(line.Description) == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].description", i), Message: "must not be empty"}
		}
		if line.Quantity <= 0 {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be positive"}
		}
		if strings.TrimSpace(line.UnitOfMeasure) == "" {
			return nil, &ValidationError{Field: fmt.Sprintf("items[%d].unit_of_measure", i), Message: "must not be empty"}
		}
	}

	now := w.now()
	var result *CreateRequestResult

	err := w.Store.WithTx(ctx, func(s Store) error {
		trackingID, err := w.Allocator.allocateIn(ctx, s, SeqSupplyRequest, now.Year())
		if err != nil {
			return err
		}

		req := &SupplyRequest{
			ID:                   RequestID(uuid.NewString()),
			TrackingID:           trackingID,
			RequesterID:          in.RequesterID,
			Status:               StatusSubmitted,
			Priority:             in.Priority,
			Justification:        in.Justification,
			ExpectedDeliveryDate: in.ExpectedDeliveryDate,
			CreatedAt:            now,
			UpdatedAt:            now,
		}

		items := make([]SupplyRequestItem, len(in.Lines))
		for i, line := range in.Lines {
			items[i] = SupplyRequestItem{
				ID:             uuid.NewString(),
				RequestID:      req.ID,
				Description:    line.Description,
				Quantity:       line.Quantity,
				UnitOfMeasure:  line.UnitOfMeasure,
				Specifications: line.Specifications,
			}
		}

		if err := s.InsertRequest(ctx, req, items); err != nil {
			return err
		}

		if err := w.Audit.append(ctx, s, AuditEntry{
			DocumentType:   DocSupplyRequest,
			DocumentID:     string(req.ID),
			DocumentNumber: trackingID,
			PreviousStatus: nil,
			CurrentStatus:  StatusSubmitted,
			Remarks:        "request submitted",
			TrackedBy:      in.RequesterID,
			TrackedAt:      now,
		}); err != nil {
			return err
		}

		result = &CreateRequestResult{RequestID: req.ID, TrackingID: trackingID}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Transition moves a request to target, recording one tracking entry.
func (w *RequestWorkflow) Transition(ctx context.Context, id RequestID, target Status, actorID, remarks string) error {
	if !ValidStatus(target) {
		return &ValidationError{Field: "target_status", Message: fmt.Sprintf("unknown status %q", target)}
	}

	return w.Store.WithTx(ctx, func(s Store) error {
		return w.transition(ctx, s, id, target, actorID, remarks)
	})
}

// transition is the transaction-scoped variant shared with the issuance
// path.
func (w *RequestWorkflow) transition(ctx context.Context, s Store, id RequestID, target Status, actorID, remarks string) error {
	req, err := s.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if req == nil {
		return fmt.Errorf("request %s: %w", id, ErrRequestNotFound)
	}

	if !CanTransition(req.Status, target) {
		return &TransitionError{RequestID: id, From: req.Status, To: target}
	}

	now := w.now()
	if err := s.UpdateRequestStatus(ctx, id, target, now); err != nil {
		return err
	}

	previous := req.Status
	return w.Audit.append(ctx, s, AuditEntry{
		DocumentType:   DocSupplyRequest,
		DocumentID:     string(id),
		DocumentNumber: req.TrackingID,
		PreviousStatus: &previous,
		CurrentStatus:  target,
		Remarks:        remarks,
		TrackedBy:      actorID,
		TrackedAt:      now,
	})
}

// GetRequest returns a request or ErrRequestNotFound.
func (w *RequestWorkflow) GetRequest(ctx context.Context, id RequestID) (*SupplyRequest, error) {
	req, err := w.Store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("request %s: %w", id, ErrRequestNotFound)
	}
	return req, nil
}

// GetRequestItems returns a request's lines.
func (w *RequestWorkflow) GetRequestItems(ctx context.Context, id RequestID) ([]SupplyRequestItem, error) {
	if _, err := w.GetRequest(ctx, id); err != nil {
		return nil, err
	}
	return w.Store.GetRequestItems(ctx, id)
}

// ListByStatus returns the fulfillment worklist for a status. An empty
// status lists every request.
func (w *RequestWorkflow) ListByStatus(ctx context.Context, status Status) ([]SupplyRequest, error) {
	if status != "" && !ValidStatus(status) {
		return nil, &ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	return w.Store.ListRequestsByStatus(ctx, status)
}

func (w *RequestWorkflow) now() time.Time {
	if w.Clock != nil {
		return w.Clock()
	}
	return UTCNow()
}

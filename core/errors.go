/*
errors.go - Centralized error types for the engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers classify errors with errors.Is / errors.As; the API layer maps
  the classification helpers at the bottom to HTTP status codes.

ERROR CATEGORIES:
  1. Validation errors  - malformed input, rejected before any write
  2. Business errors    - illegal transition, insufficient stock, conflicts
  3. Storage errors     - transaction conflicts, storage unavailable

USAGE:
  if errors.Is(err, core.ErrInvalidTransition) { ... }

  var tErr *core.TransitionError
  if errors.As(err, &tErr) { log.Print(tErr.From, tErr.To) }
*/
package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all pre-write input rejections.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidQuantity is returned for non-positive or negative-target
	// quantities. Wraps ErrValidation.
	ErrInvalidQuantity = errors.New("invalid quantity")

	// ErrRequestNotFound is returned when a supply request does not exist.
	ErrRequestNotFound = errors.New("supply request not found")

	// ErrItemNotFound is returned when an inventory item does not exist.
	ErrItemNotFound = errors.New("inventory item not found")

	// ErrInvalidTransition is returned for status changes the transition
	// table does not allow. The request is left unchanged.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrInsufficientStock is returned when a consumption would overdraw an
	// item. Nothing is deducted.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrDuplicateItemCode is returned when registering an item whose code
	// is already taken.
	ErrDuplicateItemCode = errors.New("duplicate item code")

	// ErrAlreadyIssued is returned when a request already has a requisition
	// slip. At most one RIS ever exists per request.
	ErrAlreadyIssued = errors.New("request already issued")

	// ErrConcurrentModification is returned when an optimistic stock guard
	// detects that another writer got there first. Safe to retry.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrAllocationUnavailable is returned when the sequence counter store
	// cannot be reached. The caller must not invent an identifier.
	ErrAllocationUnavailable = errors.New("identifier allocation unavailable")

	// ErrPersistence is returned for storage-level failures (timeouts,
	// unavailable store). Transient; safe to retry with the same inputs.
	ErrPersistence = errors.New("persistence failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransitionError reports an illegal status change.
type TransitionError struct {
	RequestID RequestID
	From      Status
	To        Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition for %s: %q -> %q", e.RequestID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// InsufficientStockError reports a stock shortage on consumption.
type InsufficientStockError struct {
	ItemID    ItemID
	Available int64
	Requested int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
		e.ItemID, e.Available, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ValidationError reports a field-level input rejection.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry with the
// same inputs.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrPersistence) ||
		errors.Is(err, ErrAllocationUnavailable)
}

// IsClientError returns true if the error is a business rule violation or
// invalid input, not a bug or an outage.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidQuantity) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrInsufficientStock) ||
		errors.Is(err, ErrDuplicateItemCode) ||
		errors.Is(err, ErrAlreadyIssued)
}

// IsNotFound returns true if the error indicates a missing document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrItemNotFound)
}

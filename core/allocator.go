/*
allocator.go - Year-scoped sequential document numbering

PURPOSE:
  Issues the human-readable identifiers users see: the tracking ID stamped
  on a supply request and the RIS number stamped on a requisition slip.

GUARANTEES:
  - Strictly increasing per (kind, year); never reused, never guessed.
  - Allocation is ONE atomic increment-and-read against the counter row.
    There is no "SELECT max(...)+1 then INSERT" anywhere: that pattern
    hands two concurrent callers the same number.
  - Gaps are fine (an aborted caller burns a number); duplicates are not.
  - If the counter store is unreachable the allocation fails with
    ErrAllocationUnavailable and NO identifier is produced.
*/
package core

import (
	"context"
	"fmt"
)

// SequenceKind names an independent counter family.
type SequenceKind string

const (
	SeqSupplyRequest SequenceKind = "SR"
	SeqRIS           SequenceKind = "RIS"
)

// IdentifierAllocator renders sequence counters as document numbers.
type IdentifierAllocator struct {
	Store Store
}

func NewIdentifierAllocator(store Store) *IdentifierAllocator {
	return &IdentifierAllocator{Store: store}
}

// Allocate returns the next document number for (kind, scopeYear).
func (a *IdentifierAllocator) Allocate(ctx context.Context, kind SequenceKind, scopeYear int) (string, error) {
	return a.allocateIn(ctx, a.Store, kind, scopeYear)
}

// allocateIn allocates against a store handle that may be bound to the
// caller's transaction, so the counter bump aborts together with it.
func (a *IdentifierAllocator) allocateIn(ctx context.Context, s Store, kind SequenceKind, scopeYear int) (string, error) {
	seq, err := s.NextSequence(ctx, kind, scopeYear)
	if err != nil {
		return "", fmt.Errorf("allocate %s/%d: %w", kind, scopeYear, err)
	}
	return Render(kind, scopeYear, seq), nil
}

// Render formats a sequence value as the document number users see.
// Tracking IDs read "2025-SR-001"; RIS numbers read "RIS-2025-001".
// Three digits of padding, but sequences past 999 still render correctly.
func Render(kind SequenceKind, scopeYear int, seq int64) string {
	switch kind {
	case SeqRIS:
		return fmt.Sprintf("RIS-%d-%03d", scopeYear, seq)
	default:
		return fmt.Sprintf("%d-SR-%03d", scopeYear, seq)
	}
}

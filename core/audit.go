/*
audit.go - Append-only document tracking trail

PURPOSE:
  Records every status change a tracked document goes through, and serves
  the history back in the exact order it happened. The tracking view and
  every report are read off this trail.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: entries are never updated or deleted
  2. ONE ENTRY PER TRANSITION: a status change without its entry (or the
     reverse) must be impossible - callers append inside the same
     transaction that mutates the document
  3. ORDERED: History returns entries by TrackedAt ascending, ties broken
     by insert sequence, so the status chain replays exactly
*/
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditTrail records and serves document tracking entries.
type AuditTrail struct {
	Store Store
	Clock Clock
}

func NewAuditTrail(store Store) *AuditTrail {
	return &AuditTrail{Store: store, Clock: UTCNow}
}

// Append records one tracking entry. The entry's ID and TrackedAt are
// assigned here when unset; Seq is assigned by the store.
func (t *AuditTrail) Append(ctx context.Context, entry AuditEntry) error {
	return t.append(ctx, t.Store, entry)
}

// append is the transaction-scoped variant used by the workflow and
// issuance services: s is the store handle bound to their transaction.
func (t *AuditTrail) append(ctx context.Context, s Store, entry AuditEntry) error {
	if entry.ID == "" {
		entry.ID = AuditEntryID(uuid.NewString())
	}
	if entry.TrackedAt.IsZero() {
		entry.TrackedAt = t.now()
	}
	if err := s.AppendAudit(ctx, entry); err != nil {
		return fmt.Errorf("append audit entry for %s %s: %w", entry.DocumentType, entry.DocumentID, err)
	}
	return nil
}

// History returns the tracking trail for a document in transition order.
func (t *AuditTrail) History(ctx context.Context, docType DocumentType, docID string) ([]AuditEntry, error) {
	return t.Store.AuditHistory(ctx, docType, docID)
}

func (t *AuditTrail) now() time.Time {
	if t.Clock != nil {
		return t.Clock()
	}
	return UTCNow()
}

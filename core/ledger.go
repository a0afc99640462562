/*
ledger.go - Inventory stock balances and the movement ledger

PURPOSE:
  Owns every change to an item's on-hand balance. A balance never moves
  except through a recorded movement, and the movement carries the exact
  before/after pair, so replaying all movements from zero reproduces the
  balance at any time.

WRITE PATHS:
  AdjustStock  Stocktake / manual correction: caller states the NEW total,
               the ledger derives the signed delta and records IN or OUT
               with reference type ADJUSTMENT. Restating the current total
               is a no-op (nothing written), which makes stale double
               submissions harmless.
  Consume      Issuance path: checked decrement. Never partial, never
               negative. The stock check and the decrement are guarded so
               two concurrent consumers cannot both draw the last units.

CONCURRENCY:
  Both paths run inside a store transaction. The balance update carries
  the observed value as a guard; if another writer changed the row between
  read and write, the store reports ErrConcurrentModification and the
  whole operation rolls back. Retrying re-reads fresh state.
*/
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// InventoryLedger is the only mutator of inventory stock balances.
type InventoryLedger struct {
	Store TxStore
	Clock Clock
}

func NewInventoryLedger(store TxStore) *InventoryLedger {
	return &InventoryLedger{Store: store, Clock: UTCNow}
}

// =============================================================================
// ITEM REGISTRY
// =============================================================================

// RegisterItemInput describes a new inventory item.
type RegisterItemInput struct {
	ItemCode          string
	Description       string
	Category          string
	UnitOfMeasure     string
	StandardUnitPrice string // decimal string; empty means zero
	ReorderLevel      int64
	ReorderQuantity   int64
	InitialStock      int64
	Location          string
	ActorID           string
}

// RegisterItem creates an item. A non-zero initial stock is recorded as an
// IN movement in the same transaction, so even the opening balance is
// reconstructible from the ledger.
func (l *InventoryLedger) RegisterItem(ctx context.Context, in RegisterItemInput) (*InventoryItem, error) {
	if strings.TrimSpace(in.ItemCode) == "" {
		return nil, &ValidationError{Field: "item_code", Message: "must not be empty"}
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, &ValidationError{Field: "description", Message: "must not be empty"}
	}
	if strings.TrimSpace(in.UnitOfMeasure) == "" {
		return nil, &ValidationError{Field: "unit_of_measure", Message: "must not be empty"}
	}
	if in.ReorderLevel < 0 || in.ReorderQuantity < 0 || in.InitialStock < 0 {
		return nil, &ValidationError{Field: "quantities", Message: "must not be negative"}
	}
	price, err := parsePrice(in.StandardUnitPrice)
	if err != nil {
		return nil, &ValidationError{Field: "standard_unit_price", Message: err.Error()}
	}

	now := l.now()
	item := &InventoryItem{
		ID:                ItemID(uuid.NewString()),
		ItemCode:          strings.TrimSpace(in.ItemCode),
		Description:       strings.TrimSpace(in.Description),
		Category:          in.Category,
		UnitOfMeasure:     in.UnitOfMeasure,
		StandardUnitPrice: price,
		ReorderLevel:      in.ReorderLevel,
		ReorderQuantity:   in.ReorderQuantity,
		StockOnHand:       in.InitialStock,
		Location:          in.Location,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	err = l.Store.WithTx(ctx, func(s Store) error {
		if err := s.InsertItem(ctx, item); err != nil {
			return err
		}
		if in.InitialStock == 0 {
			return nil
		}
		return s.AppendMovement(ctx, InventoryMovement{
			ID:            MovementID(uuid.NewString()),
			ItemID:        item.ID,
			Type:          MovementIn,
			Quantity:      in.InitialStock,
			ReferenceType: RefReceipt,
			StockBefore:   0,
			StockAfter:    in.InitialStock,
			Notes:         "initial stock",
			ActorID:       in.ActorID,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// GetItem returns an item or ErrItemNotFound.
func (l *InventoryLedger) GetItem(ctx context.Context, id ItemID) (*InventoryItem, error) {
	item, err := l.Store.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", id, ErrItemNotFound)
	}
	return item, nil
}

// ListItems returns every registered item.
func (l *InventoryLedger) ListItems(ctx context.Context) ([]InventoryItem, error) {
	return l.Store.ListItems(ctx)
}

// LowStock returns active items at or below their reorder level.
func (l *InventoryLedger) LowStock(ctx context.Context) ([]InventoryItem, error) {
	return l.Store.ListLowStockItems(ctx)
}

// =============================================================================
// STOCK WRITES
// =============================================================================

// AdjustStock sets an item's balance to newQuantity and records the signed
// difference as an ADJUSTMENT movement. Returns (nil, nil) when the stated
// quantity equals the current balance: an exact duplicate submission has
// nothing to record.
func (l *InventoryLedger) AdjustStock(ctx context.Context, id ItemID, newQuantity int64, actorID, notes string) (*InventoryMovement, error) {
	if newQuantity < 0 {
		return nil, fmt.Errorf("adjust %s to %d: %w", id, newQuantity, ErrInvalidQuantity)
	}

	var mv *InventoryMovement
	err := l.Store.WithTx(ctx, func(s Store) error {
		item, err := s.GetItem(ctx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return fmt.Errorf("item %s: %w", id, ErrItemNotFound)
		}

		delta := newQuantity - item.StockOnHand
		if delta == 0 {
			return nil // idempotent no-op
		}

		mvType := MovementIn
		quantity := delta
		if delta < 0 {
			mvType = MovementOut
			quantity = -delta
		}

		now := l.now()
		if err := s.UpdateItemStock(ctx, id, item.StockOnHand, newQuantity, now); err != nil {
			return err
		}
		mv = &InventoryMovement{
			ID:            MovementID(uuid.NewString()),
			ItemID:        id,
			Type:          mvType,
			Quantity:      quantity,
			ReferenceType: RefAdjustment,
			StockBefore:   item.StockOnHand,
			StockAfter:    newQuantity,
			Notes:         notes,
			ActorID:       actorID,
			CreatedAt:     now,
		}
		return s.AppendMovement(ctx, *mv)
	})
	if err != nil {
		return nil, err
	}
	return mv, nil
}

// Consume deducts quantity from an item inside its own transaction.
func (l *InventoryLedger) Consume(ctx context.Context, id ItemID, quantity int64, refType ReferenceType, refID, actorID string) (*InventoryMovement, error) {
	var mv *InventoryMovement
	err := l.Store.WithTx(ctx, func(s Store) error {
		var err error
		mv, err = l.consume(ctx, s, id, quantity, refType, refID, actorID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mv, nil
}

// consume is the transaction-scoped deduction shared with the issuance
// path: s is the store handle bound to the caller's transaction.
func (l *InventoryLedger) consume(ctx context.Context, s Store, id ItemID, quantity int64, refType ReferenceType, refID, actorID string) (*InventoryMovement, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("consume %d from %s: %w", quantity, id, ErrInvalidQuantity)
	}

	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("item %s: %w", id, ErrItemNotFound)
	}
	if quantity > item.StockOnHand {
		return nil, &InsufficientStockError{
			ItemID:    id,
			Available: item.StockOnHand,
			Requested: quantity,
		}
	}

	now := l.now()
	after := item.StockOnHand - quantity
	if err := s.UpdateItemStock(ctx, id, item.StockOnHand, after, now); err != nil {
		return nil, err
	}

	mv := &InventoryMovement{
		ID:            MovementID(uuid.NewString()),
		ItemID:        id,
		Type:          MovementOut,
		Quantity:      quantity,
		ReferenceType: refType,
		ReferenceID:   refID,
		StockBefore:   item.StockOnHand,
		StockAfter:    after,
		ActorID:       actorID,
		CreatedAt:     now,
	}
	if err := s.AppendMovement(ctx, *mv); err != nil {
		return nil, err
	}
	return mv, nil
}

// =============================================================================
// LEDGER READS
// =============================================================================

// Movements returns an item's movement history in recorded order.
func (l *InventoryLedger) Movements(ctx context.Context, id ItemID) ([]InventoryMovement, error) {
	if _, err := l.GetItem(ctx, id); err != nil {
		return nil, err
	}
	return l.Store.Movements(ctx, id)
}

// VerifyItem replays an item's movements from zero and compares the result
// with the stored balance. A non-zero drift means the ledger and the
// balance disagree, which should never happen.
func (l *InventoryLedger) VerifyItem(ctx context.Context, id ItemID) (drift int64, err error) {
	item, err := l.GetItem(ctx, id)
	if err != nil {
		return 0, err
	}
	movements, err := l.Store.Movements(ctx, id)
	if err != nil {
		return 0, err
	}

	var replayed int64
	for _, mv := range movements {
		replayed += mv.SignedQuantity()
	}
	return item.StockOnHand - replayed, nil
}

func (l *InventoryLedger) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return UTCNow()
}

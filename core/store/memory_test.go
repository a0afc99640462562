package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stockroom/supply-engine/core"
	"github.com/stockroom/supply-engine/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItem(id, code string, stock int64) *core.InventoryItem {
	now := time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC)
	return &core.InventoryItem{
		ID:            core.ItemID(id),
		ItemCode:      code,
		Description:   "Bond Paper A4",
		UnitOfMeasure: "ream",
		StockOnHand:   stock,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// =============================================================================
// TRANSACTION SEMANTICS
// =============================================================================

func TestMemory_WithTx_RollsBackOnError(t *testing.T) {
	// GIVEN: An item with 50 on hand
	// WHEN: A transaction updates stock, appends a movement, bumps a
	//       counter, and then fails
	// THEN: Every effect is rolled back

	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.InsertItem(ctx, testItem("item-1", "PAPER-A4", 50)))

	boom := errors.New("boom")
	err := m.WithTx(ctx, func(s core.Store) error {
		if err := s.UpdateItemStock(ctx, "item-1", 50, 40, time.Now().UTC()); err != nil {
			return err
		}
		if err := s.AppendMovement(ctx, core.InventoryMovement{
			ID: "mv-1", ItemID: "item-1", Type: core.MovementOut, Quantity: 10,
			ReferenceType: core.RefIssuance, StockBefore: 50, StockAfter: 40,
		}); err != nil {
			return err
		}
		if _, err := s.NextSequence(ctx, core.SeqRIS, 2025); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	item, err := m.GetItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), item.StockOnHand, "stock update must roll back")

	movements, err := m.Movements(ctx, "item-1")
	require.NoError(t, err)
	assert.Empty(t, movements, "movement must roll back")

	seq, err := m.NextSequence(ctx, core.SeqRIS, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq, "counter bump must roll back")
}

func TestMemory_WithTx_CommitsOnSuccess(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.InsertItem(ctx, testItem("item-1", "PAPER-A4", 50)))

	err := m.WithTx(ctx, func(s core.Store) error {
		return s.UpdateItemStock(ctx, "item-1", 50, 40, time.Now().UTC())
	})
	require.NoError(t, err)

	item, err := m.GetItem(ctx, "item-1")
	require.NoError(t, err)
	assert.Equal(t, int64(40), item.StockOnHand)
}

// =============================================================================
// GUARDS
// =============================================================================

func TestMemory_UpdateItemStock_StaleGuard(t *testing.T) {
	// The observed balance in the call must match the stored one.
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.InsertItem(ctx, testItem("item-1", "PAPER-A4", 50)))

	err := m.UpdateItemStock(ctx, "item-1", 45, 35, time.Now().UTC())
	assert.ErrorIs(t, err, core.ErrConcurrentModification)

	err = m.UpdateItemStock(ctx, "missing", 10, 5, time.Now().UTC())
	assert.ErrorIs(t, err, core.ErrItemNotFound)
}

func TestMemory_InsertItem_DuplicateCode(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	require.NoError(t, m.InsertItem(ctx, testItem("item-1", "PAPER-A4", 50)))

	err := m.InsertItem(ctx, testItem("item-2", "PAPER-A4", 10))
	assert.ErrorIs(t, err, core.ErrDuplicateItemCode)
}

func TestMemory_InsertRIS_OnePerRequest(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	ris := &core.RIS{ID: "ris-1", RISNumber: "RIS-2025-001", SupplyRequestID: "req-1"}
	require.NoError(t, m.InsertRIS(ctx, ris, nil))

	again := &core.RIS{ID: "ris-2", RISNumber: "RIS-2025-002", SupplyRequestID: "req-1"}
	err := m.InsertRIS(ctx, again, nil)
	assert.ErrorIs(t, err, core.ErrAlreadyIssued)
}

// =============================================================================
// READS
// =============================================================================

func TestMemory_Getters_ReturnNilForMissing(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	req, err := m.GetRequest(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, req)

	item, err := m.GetItem(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, item)

	ris, err := m.GetRISByRequest(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, ris)
}

func TestMemory_AuditHistory_OrderedWithSeqTieBreak(t *testing.T) {
	// GIVEN: Entries appended with identical timestamps
	// WHEN: Reading the history
	// THEN: Insert order is preserved via the assigned Seq

	m := store.NewMemory()
	ctx := context.Background()
	at := time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC)

	for i, status := range []core.Status{core.StatusSubmitted, core.StatusAvailable, core.StatusCompleted} {
		entry := core.AuditEntry{
			ID:             core.AuditEntryID(string(rune('a' + i))),
			DocumentType:   core.DocSupplyRequest,
			DocumentID:     "req-1",
			DocumentNumber: "2025-SR-001",
			CurrentStatus:  status,
			TrackedBy:      "officer-1",
			TrackedAt:      at,
		}
		require.NoError(t, m.AppendAudit(ctx, entry))
	}

	trail, err := m.AuditHistory(ctx, core.DocSupplyRequest, "req-1")
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, core.StatusSubmitted, trail[0].CurrentStatus)
	assert.Equal(t, core.StatusAvailable, trail[1].CurrentStatus)
	assert.Equal(t, core.StatusCompleted, trail[2].CurrentStatus)
	assert.Less(t, trail[0].Seq, trail[1].Seq)
	assert.Less(t, trail[1].Seq, trail[2].Seq)
}

func TestMemory_SearchActiveItems(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	paper := testItem("item-1", "PAPER-A4", 50)
	require.NoError(t, m.InsertItem(ctx, paper))

	inactive := testItem("item-2", "PAPER-OLD", 10)
	inactive.Active = false
	require.NoError(t, m.InsertItem(ctx, inactive))

	found, err := m.SearchActiveItems(ctx, "bond paper")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, paper.ID, found[0].ID)
}

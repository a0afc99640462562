// Package store provides an in-memory core.TxStore for tests and dev.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stockroom/supply-engine/core"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps everything in maps guarded by one mutex. WithTx snapshots
// the maps and restores them if the callback fails, so rollback semantics
// match the SQLite store.
type Memory struct {
	mu sync.RWMutex

	requests     map[core.RequestID]core.SupplyRequest
	requestOrder []core.RequestID
	requestItems map[core.RequestID][]core.SupplyRequestItem

	items     map[core.ItemID]core.InventoryItem
	itemOrder []core.ItemID
	codeIndex map[string]core.ItemID
	movements map[core.ItemID][]core.InventoryMovement

	ris          map[core.RISID]core.RIS
	risByRequest map[core.RequestID]core.RISID
	risItems     map[core.RISID][]core.RISItem

	audit   []core.AuditEntry
	auditSeq int64

	counters map[counterKey]int64
}

type counterKey struct {
	Kind core.SequenceKind
	Year int
}

func NewMemory() *Memory {
	return &Memory{
		requests:     make(map[core.RequestID]core.SupplyRequest),
		requestItems: make(map[core.RequestID][]core.SupplyRequestItem),
		items:        make(map[core.ItemID]core.InventoryItem),
		codeIndex:    make(map[string]core.ItemID),
		movements:    make(map[core.ItemID][]core.InventoryMovement),
		ris:          make(map[core.RISID]core.RIS),
		risByRequest: make(map[core.RequestID]core.RISID),
		risItems:     make(map[core.RISID][]core.RISItem),
		counters:     make(map[counterKey]int64),
	}
}

// =============================================================================
// SUPPLY REQUESTS
// =============================================================================

func (m *Memory) InsertRequest(_ context.Context, req *core.SupplyRequest, items []core.SupplyRequestItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertRequestLocked(req, items)
}

func (m *Memory) insertRequestLocked(req *core.SupplyRequest, items []core.SupplyRequestItem) error {
	m.requests[req.ID] = *req
	m.requestOrder = append(m.requestOrder, req.ID)
	m.requestItems[req.ID] = append([]core.SupplyRequestItem(nil), items...)
	return nil
}

func (m *Memory) GetRequest(_ context.Context, id core.RequestID) (*core.SupplyRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRequestLocked(id)
}

func (m *Memory) getRequestLocked(id core.RequestID) (*core.SupplyRequest, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (m *Memory) GetRequestItems(_ context.Context, id core.RequestID) ([]core.SupplyRequestItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.SupplyRequestItem(nil), m.requestItems[id]...), nil
}

func (m *Memory) ListRequestsByStatus(_ context.Context, status core.Status) ([]core.SupplyRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.SupplyRequest
	for _, id := range m.requestOrder {
		req := m.requests[id]
		if status == "" || req.Status == status {
			out = append(out, req)
		}
	}
	return out, nil
}

func (m *Memory) UpdateRequestStatus(_ context.Context, id core.RequestID, status core.Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateRequestStatusLocked(id, status, at)
}

func (m *Memory) updateRequestStatusLocked(id core.RequestID, status core.Status, at time.Time) error {
	req, ok := m.requests[id]
	if !ok {
		return core.ErrRequestNotFound
	}
	req.Status = status
	req.UpdatedAt = at
	m.requests[id] = req
	return nil
}

// =============================================================================
// INVENTORY
// =============================================================================

func (m *Memory) InsertItem(_ context.Context, item *core.InventoryItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertItemLocked(item)
}

func (m *Memory) insertItemLocked(item *core.InventoryItem) error {
	if _, taken := m.codeIndex[item.ItemCode]; taken {
		return core.ErrDuplicateItemCode
	}
	m.items[item.ID] = *item
	m.itemOrder = append(m.itemOrder, item.ID)
	m.codeIndex[item.ItemCode] = item.ID
	return nil
}

func (m *Memory) GetItem(_ context.Context, id core.ItemID) (*core.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getItemLocked(id)
}

func (m *Memory) getItemLocked(id core.ItemID) (*core.InventoryItem, error) {
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *Memory) FindItemByCode(_ context.Context, code string) (*core.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.codeIndex[code]
	if !ok {
		return nil, nil
	}
	return m.getItemLocked(id)
}

func (m *Memory) SearchActiveItems(_ context.Context, fragment string) ([]core.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(fragment)
	var out []core.InventoryItem
	for _, id := range m.itemOrder {
		item := m.items[id]
		if item.Active && strings.Contains(strings.ToLower(item.Description), needle) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *Memory) ListItems(_ context.Context) ([]core.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.InventoryItem, 0, len(m.itemOrder))
	for _, id := range m.itemOrder {
		out = append(out, m.items[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemCode < out[j].ItemCode })
	return out, nil
}

func (m *Memory) ListLowStockItems(_ context.Context) ([]core.InventoryItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.InventoryItem
	for _, id := range m.itemOrder {
		item := m.items[id]
		if item.Active && item.StockOnHand <= item.ReorderLevel {
			out = append(out, item)
		}
	}
	return out, nil
}

func (m *Memory) UpdateItemStock(_ context.Context, id core.ItemID, observed, updated int64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateItemStockLocked(id, observed, updated, at)
}

func (m *Memory) updateItemStockLocked(id core.ItemID, observed, updated int64, at time.Time) error {
	item, ok := m.items[id]
	if !ok {
		return core.ErrItemNotFound
	}
	if item.StockOnHand != observed {
		return core.ErrConcurrentModification
	}
	item.StockOnHand = updated
	item.UpdatedAt = at
	m.items[id] = item
	return nil
}

func (m *Memory) AppendMovement(_ context.Context, mv core.InventoryMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendMovementLocked(mv)
}

func (m *Memory) appendMovementLocked(mv core.InventoryMovement) error {
	m.movements[mv.ItemID] = append(m.movements[mv.ItemID], mv)
	return nil
}

func (m *Memory) Movements(_ context.Context, id core.ItemID) ([]core.InventoryMovement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.InventoryMovement(nil), m.movements[id]...), nil
}

// =============================================================================
// REQUISITION SLIPS
// =============================================================================

func (m *Memory) InsertRIS(_ context.Context, ris *core.RIS, items []core.RISItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertRISLocked(ris, items)
}

func (m *Memory) insertRISLocked(ris *core.RIS, items []core.RISItem) error {
	if _, taken := m.risByRequest[ris.SupplyRequestID]; taken {
		return core.ErrAlreadyIssued
	}
	m.ris[ris.ID] = *ris
	m.risByRequest[ris.SupplyRequestID] = ris.ID
	m.risItems[ris.ID] = append([]core.RISItem(nil), items...)
	return nil
}

func (m *Memory) GetRISByRequest(_ context.Context, id core.RequestID) (*core.RIS, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getRISByRequestLocked(id)
}

func (m *Memory) getRISByRequestLocked(id core.RequestID) (*core.RIS, error) {
	risID, ok := m.risByRequest[id]
	if !ok {
		return nil, nil
	}
	ris := m.ris[risID]
	return &ris, nil
}

func (m *Memory) GetRISItems(_ context.Context, id core.RISID) ([]core.RISItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]core.RISItem(nil), m.risItems[id]...), nil
}

// =============================================================================
// DOCUMENT TRACKING
// =============================================================================

func (m *Memory) AppendAudit(_ context.Context, entry core.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendAuditLocked(entry)
}

func (m *Memory) appendAuditLocked(entry core.AuditEntry) error {
	m.auditSeq++
	entry.Seq = m.auditSeq
	m.audit = append(m.audit, entry)
	return nil
}

func (m *Memory) AuditHistory(_ context.Context, docType core.DocumentType, docID string) ([]core.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.AuditEntry
	for _, e := range m.audit {
		if e.DocumentType == docType && e.DocumentID == docID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TrackedAt.Equal(out[j].TrackedAt) {
			return out[i].Seq < out[j].Seq
		}
		return out[i].TrackedAt.Before(out[j].TrackedAt)
	})
	return out, nil
}

// =============================================================================
// SEQUENCE COUNTERS
// =============================================================================

func (m *Memory) NextSequence(_ context.Context, kind core.SequenceKind, scopeYear int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.nextSequenceLocked(kind, scopeYear)
}

func (m *Memory) nextSequenceLocked(kind core.SequenceKind, scopeYear int) (int64, error) {
	k := counterKey{Kind: kind, Year: scopeYear}
	m.counters[k]++
	return m.counters[k], nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn against a handle that shares the held lock. State is
// snapshotted first; an error from fn restores the snapshot so no partial
// writes survive.
func (m *Memory) WithTx(_ context.Context, fn func(core.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshotLocked()
	if err := fn(&txMemory{parent: m}); err != nil {
		m.restoreLocked(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	requests     map[core.RequestID]core.SupplyRequest
	requestOrder []core.RequestID
	requestItems map[core.RequestID][]core.SupplyRequestItem
	items        map[core.ItemID]core.InventoryItem
	itemOrder    []core.ItemID
	codeIndex    map[string]core.ItemID
	movements    map[core.ItemID][]core.InventoryMovement
	ris          map[core.RISID]core.RIS
	risByRequest map[core.RequestID]core.RISID
	risItems     map[core.RISID][]core.RISItem
	audit        []core.AuditEntry
	auditSeq     int64
	counters     map[counterKey]int64
}

func (m *Memory) snapshotLocked() memorySnapshot {
	return memorySnapshot{
		requests:     copyMap(m.requests),
		requestOrder: append([]core.RequestID(nil), m.requestOrder...),
		requestItems: copySliceMap(m.requestItems),
		items:        copyMap(m.items),
		itemOrder:    append([]core.ItemID(nil), m.itemOrder...),
		codeIndex:    copyMap(m.codeIndex),
		movements:    copySliceMap(m.movements),
		ris:          copyMap(m.ris),
		risByRequest: copyMap(m.risByRequest),
		risItems:     copySliceMap(m.risItems),
		audit:        append([]core.AuditEntry(nil), m.audit...),
		auditSeq:     m.auditSeq,
		counters:     copyMap(m.counters),
	}
}

func (m *Memory) restoreLocked(snap memorySnapshot) {
	m.requests = snap.requests
	m.requestOrder = snap.requestOrder
	m.requestItems = snap.requestItems
	m.items = snap.items
	m.itemOrder = snap.itemOrder
	m.codeIndex = snap.codeIndex
	m.movements = snap.movements
	m.ris = snap.ris
	m.risByRequest = snap.risByRequest
	m.risItems = snap.risItems
	m.audit = snap.audit
	m.auditSeq = snap.auditSeq
	m.counters = snap.counters
}

func copyMap[K comparable, V any](src map[K]V) map[K]V {
	dst := make(map[K]V, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func copySliceMap[K comparable, V any](src map[K][]V) map[K][]V {
	dst := make(map[K][]V, len(src))
	for k, v := range src {
		dst[k] = append([]V(nil), v...)
	}
	return dst
}

// txMemory is the transaction-scoped handle. The parent's lock is already
// held, so it calls the unexported locked methods directly.
type txMemory struct {
	parent *Memory
}

func (t *txMemory) InsertRequest(_ context.Context, req *core.SupplyRequest, items []core.SupplyRequestItem) error {
	return t.parent.insertRequestLocked(req, items)
}

func (t *txMemory) GetRequest(_ context.Context, id core.RequestID) (*core.SupplyRequest, error) {
	return t.parent.getRequestLocked(id)
}

func (t *txMemory) GetRequestItems(_ context.Context, id core.RequestID) ([]core.SupplyRequestItem, error) {
	return append([]core.SupplyRequestItem(nil), t.parent.requestItems[id]...), nil
}

func (t *txMemory) ListRequestsByStatus(_ context.Context, status core.Status) ([]core.SupplyRequest, error) {
	var out []core.SupplyRequest
	for _, id := range t.parent.requestOrder {
		req := t.parent.requests[id]
		if status == "" || req.Status == status {
			out = append(out, req)
		}
	}
	return out, nil
}

func (t *txMemory) UpdateRequestStatus(_ context.Context, id core.RequestID, status core.Status, at time.Time) error {
	return t.parent.updateRequestStatusLocked(id, status, at)
}

func (t *txMemory) InsertItem(_ context.Context, item *core.InventoryItem) error {
	return t.parent.insertItemLocked(item)
}

func (t *txMemory) GetItem(_ context.Context, id core.ItemID) (*core.InventoryItem, error) {
	return t.parent.getItemLocked(id)
}

func (t *txMemory) FindItemByCode(_ context.Context, code string) (*core.InventoryItem, error) {
	id, ok := t.parent.codeIndex[code]
	if !ok {
		return nil, nil
	}
	return t.parent.getItemLocked(id)
}

func (t *txMemory) SearchActiveItems(_ context.Context, fragment string) ([]core.InventoryItem, error) {
	needle := strings.ToLower(fragment)
	var out []core.InventoryItem
	for _, id := range t.parent.itemOrder {
		item := t.parent.items[id]
		if item.Active && strings.Contains(strings.ToLower(item.Description), needle) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (t *txMemory) ListItems(_ context.Context) ([]core.InventoryItem, error) {
	out := make([]core.InventoryItem, 0, len(t.parent.itemOrder))
	for _, id := range t.parent.itemOrder {
		out = append(out, t.parent.items[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemCode < out[j].ItemCode })
	return out, nil
}

func (t *txMemory) ListLowStockItems(_ context.Context) ([]core.InventoryItem, error) {
	var out []core.InventoryItem
	for _, id := range t.parent.itemOrder {
		item := t.parent.items[id]
		if item.Active && item.StockOnHand <= item.ReorderLevel {
			out = append(out, item)
		}
	}
	return out, nil
}

func (t *txMemory) UpdateItemStock(_ context.Context, id core.ItemID, observed, updated int64, at time.Time) error {
	return t.parent.updateItemStockLocked(id, observed, updated, at)
}

func (t *txMemory) AppendMovement(_ context.Context, mv core.InventoryMovement) error {
	return t.parent.appendMovementLocked(mv)
}

func (t *txMemory) Movements(_ context.Context, id core.ItemID) ([]core.InventoryMovement, error) {
	return append([]core.InventoryMovement(nil), t.parent.movements[id]...), nil
}

func (t *txMemory) InsertRIS(_ context.Context, ris *core.RIS, items []core.RISItem) error {
	return t.parent.insertRISLocked(ris, items)
}

func (t *txMemory) GetRISByRequest(_ context.Context, id core.RequestID) (*core.RIS, error) {
	return t.parent.getRISByRequestLocked(id)
}

func (t *txMemory) GetRISItems(_ context.Context, id core.RISID) ([]core.RISItem, error) {
	return append([]core.RISItem(nil), t.parent.risItems[id]...), nil
}

func (t *txMemory) AppendAudit(_ context.Context, entry core.AuditEntry) error {
	return t.parent.appendAuditLocked(entry)
}

func (t *txMemory) AuditHistory(_ context.Context, docType core.DocumentType, docID string) ([]core.AuditEntry, error) {
	var out []core.AuditEntry
	for _, e := range t.parent.audit {
		if e.DocumentType == docType && e.DocumentID == docID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (t *txMemory) NextSequence(_ context.Context, kind core.SequenceKind, scopeYear int) (int64, error) {
	return t.parent.nextSequenceLocked(kind, scopeYear)
}

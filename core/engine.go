/*
engine.go - Wired service bundle

The Engine ties the services together over one TxStore so they share the
same allocator, trail, and clock. The HTTP layer and tests go through this
instead of wiring services by hand.
*/
package core

// Engine bundles the engine's services over a single store.
type Engine struct {
	Store     TxStore
	Allocator *IdentifierAllocator
	Audit     *AuditTrail
	Ledger    *InventoryLedger
	Workflow  *RequestWorkflow
	Issuance  *RISIssuance
}

func NewEngine(store TxStore) *Engine {
	allocator := NewIdentifierAllocator(store)
	audit := NewAuditTrail(store)
	ledger := NewInventoryLedger(store)

	workflow := NewRequestWorkflow(store)
	workflow.Allocator = allocator
	workflow.Audit = audit

	issuance := NewRISIssuance(store)
	issuance.Workflow = workflow
	issuance.Ledger = ledger

	return &Engine{
		Store:     store,
		Allocator: allocator,
		Audit:     audit,
		Ledger:    ledger,
		Workflow:  workflow,
		Issuance:  issuance,
	}
}

// SetClock pins every service to the given clock. Tests use this to get
// deterministic timestamps.
func (e *Engine) SetClock(c Clock) {
	e.Audit.Clock = c
	e.Ledger.Clock = c
	e.Workflow.Clock = c
	e.Issuance.Clock = c
}

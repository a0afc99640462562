package core_test

import (
	"testing"

	"github.com/stockroom/supply-engine/core"
	"github.com/stretchr/testify/assert"
)

// =============================================================================
// TRANSITION TABLE TESTS
// =============================================================================

func TestStatus_ForwardChain_Allowed(t *testing.T) {
	// GIVEN: The full procurement chain from submission to completion
	// WHEN: Walking it one step at a time
	// THEN: Every step is a legal transition

	chain := []core.Status{
		core.StatusSubmitted,
		core.StatusNotAvailable,
		core.StatusPendingPPMP,
		core.StatusForApproval,
		core.StatusApproved,
		core.StatusPendingBudget,
		core.StatusUnderProcurement,
		core.StatusDVProcessing,
		core.StatusPaid,
		core.StatusCompleted,
	}

	for i := 0; i < len(chain)-1; i++ {
		assert.True(t, core.CanTransition(chain[i], chain[i+1]),
			"%s -> %s should be allowed", chain[i], chain[i+1])
	}
}

func TestStatus_StockPath_Allowed(t *testing.T) {
	// The short path for requests fulfilled directly from stock.
	assert.True(t, core.CanTransition(core.StatusSubmitted, core.StatusAvailable))
	assert.True(t, core.CanTransition(core.StatusAvailable, core.StatusCompleted))
}

func TestStatus_SkippingSteps_Rejected(t *testing.T) {
	// GIVEN: A freshly submitted request
	// WHEN: Trying to jump over the intermediate workflow steps
	// THEN: The transition table rejects it

	assert.False(t, core.CanTransition(core.StatusSubmitted, core.StatusApproved))
	assert.False(t, core.CanTransition(core.StatusSubmitted, core.StatusPaid))
	assert.False(t, core.CanTransition(core.StatusSubmitted, core.StatusCompleted))
	assert.False(t, core.CanTransition(core.StatusApproved, core.StatusPaid))
}

func TestStatus_BackwardsMoves_Rejected(t *testing.T) {
	assert.False(t, core.CanTransition(core.StatusApproved, core.StatusSubmitted))
	assert.False(t, core.CanTransition(core.StatusPaid, core.StatusDVProcessing))
	assert.False(t, core.CanTransition(core.StatusAvailable, core.StatusSubmitted))
}

func TestStatus_CancelAndReject_FromAnyActiveState(t *testing.T) {
	// GIVEN: Any non-terminal status
	// WHEN: Cancelling or rejecting
	// THEN: Both are always reachable

	active := []core.Status{
		core.StatusSubmitted, core.StatusAvailable, core.StatusNotAvailable,
		core.StatusPendingPPMP, core.StatusForApproval, core.StatusApproved,
		core.StatusPendingBudget, core.StatusUnderProcurement,
		core.StatusDVProcessing, core.StatusPaid,
	}
	for _, s := range active {
		assert.True(t, core.CanTransition(s, core.StatusCancelled), "%s -> Cancelled", s)
		assert.True(t, core.CanTransition(s, core.StatusRejected), "%s -> Rejected", s)
	}
}

func TestStatus_TerminalStates_NoExit(t *testing.T) {
	// GIVEN: A terminal status
	// WHEN: Attempting any transition out of it
	// THEN: Nothing is allowed, not even cancel

	terminals := []core.Status{core.StatusCompleted, core.StatusCancelled, core.StatusRejected}
	everything := []core.Status{
		core.StatusSubmitted, core.StatusAvailable, core.StatusNotAvailable,
		core.StatusPendingPPMP, core.StatusForApproval, core.StatusApproved,
		core.StatusPendingBudget, core.StatusUnderProcurement,
		core.StatusDVProcessing, core.StatusPaid,
		core.StatusCompleted, core.StatusCancelled, core.StatusRejected,
	}

	for _, from := range terminals {
		assert.True(t, from.IsTerminal())
		for _, to := range everything {
			assert.False(t, core.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestStatus_SelfTransition_Rejected(t *testing.T) {
	assert.False(t, core.CanTransition(core.StatusSubmitted, core.StatusSubmitted))
	assert.False(t, core.CanTransition(core.StatusApproved, core.StatusApproved))
}

func TestStatus_UnknownStatus_Rejected(t *testing.T) {
	assert.False(t, core.ValidStatus(core.Status("Lost In Transit")))
	assert.False(t, core.CanTransition(core.StatusSubmitted, core.Status("Lost In Transit")))
	assert.False(t, core.CanTransition(core.Status("Lost In Transit"), core.StatusCancelled))
}

func TestStatus_Successors_IncludeCancelAndReject(t *testing.T) {
	succ := core.Successors(core.StatusApproved)
	assert.Contains(t, succ, core.StatusPendingBudget)
	assert.Contains(t, succ, core.StatusUnderProcurement)
	assert.Contains(t, succ, core.StatusCancelled)
	assert.Contains(t, succ, core.StatusRejected)

	assert.Empty(t, core.Successors(core.StatusCompleted))
}

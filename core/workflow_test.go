package core_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stockroom/supply-engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func submitRequest(t *testing.T, engine *core.Engine, requester string) *core.CreateRequestResult {
	t.Helper()
	result, err := engine.Workflow.CreateRequest(context.Background(), core.CreateRequestInput{
		RequesterID:   requester,
		Priority:      core.PriorityNormal,
		Justification: "monthly office supplies",
		Lines: []core.RequestLine{
			{Description: "Bond Paper A4", Quantity: 10, UnitOfMeasure: "ream"},
		},
	})
	require.NoError(t, err)
	return result
}

// =============================================================================
// CREATION
// =============================================================================

func TestWorkflow_CreateRequest_AssignsTrackingID(t *testing.T) {
	// GIVEN: A fresh engine with a pinned clock
	// WHEN: Two requests are created in the same year
	// THEN: Tracking IDs come out sequential in YEAR-SR-SEQ form

	engine := newTestEngine(t)
	engine.SetClock(fixedClock(time.Date(2025, time.March, 3, 8, 0, 0, 0, time.UTC)))

	first := submitRequest(t, engine, "emp-1")
	second := submitRequest(t, engine, "emp-2")

	assert.Equal(t, "2025-SR-001", first.TrackingID)
	assert.Equal(t, "2025-SR-002", second.TrackingID)
	assert.NotEqual(t, first.RequestID, second.RequestID)
}

func TestWorkflow_CreateRequest_StartsSubmittedWithTrailEntry(t *testing.T) {
	// GIVEN: A new request
	// WHEN: Reading it back with its tracking trail
	// THEN: Status is Submitted and exactly one trail entry exists,
	//       with a nil previous status marking document creation

	engine := newTestEngine(t)
	ctx := context.Background()

	result := submitRequest(t, engine, "emp-1")

	req, err := engine.Workflow.GetRequest(ctx, result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusSubmitted, req.Status)
	assert.Equal(t, result.TrackingID, req.TrackingID)

	trail, err := engine.Audit.History(ctx, core.DocSupplyRequest, string(result.RequestID))
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Nil(t, trail[0].PreviousStatus)
	assert.Equal(t, core.StatusSubmitted, trail[0].CurrentStatus)
	assert.Equal(t, result.TrackingID, trail[0].DocumentNumber)
	assert.Equal(t, "emp-1", trail[0].TrackedBy)
}

func TestWorkflow_CreateRequest_KeepsLineOrder(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	result, err := engine.Workflow.CreateRequest(ctx, core.CreateRequestInput{
		RequesterID: "emp-1",
		Priority:    core.PriorityHigh,
		Lines: []core.RequestLine{
			{Description: "Stapler", Quantity: 2, UnitOfMeasure: "pc"},
			{Description: "Bond Paper A4", Quantity: 10, UnitOfMeasure: "ream"},
			{Description: "Ballpoint Pen Black", Quantity: 24, UnitOfMeasure: "pc"},
		},
	})
	require.NoError(t, err)

	items, err := engine.Workflow.GetRequestItems(ctx, result.RequestID)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Stapler", items[0].Description)
	assert.Equal(t, "Bond Paper A4", items[1].Description)
	assert.Equal(t, "Ballpoint Pen Black", items[2].Description)
}

func TestWorkflow_CreateRequest_Validation(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   core.CreateRequestInput
	}{
		{"empty requester", core.CreateRequestInput{
			Priority: core.PriorityNormal,
			Lines:    []core.RequestLine{{Description: "x", Quantity: 1, UnitOfMeasure: "pc"}},
		}},
		{"unknown priority", core.CreateRequestInput{
			RequesterID: "emp-1", Priority: "ASAP",
			Lines: []core.RequestLine{{Description: "x", Quantity: 1, UnitOfMeasure: "pc"}},
		}},
		{"no lines", core.CreateRequestInput{
			RequesterID: "emp-1", Priority: core.PriorityNormal,
		}},
		{"zero quantity", core.CreateRequestInput{
			RequesterID: "emp-1", Priority: core.PriorityNormal,
			Lines: []core.RequestLine{{Description: "x", Quantity: 0, UnitOfMeasure: "pc"}},
		}},
		{"negative quantity", core.CreateRequestInput{
			RequesterID: "emp-1", Priority: core.PriorityNormal,
			Lines: []core.RequestLine{{Description: "x", Quantity: -4, UnitOfMeasure: "pc"}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Workflow.CreateRequest(ctx, tc.in)
			assert.ErrorIs(t, err, core.ErrValidation)
		})
	}
}

func TestWorkflow_CreateRequest_ValidationLeavesNoTrace(t *testing.T) {
	// A rejected creation must not burn a sequence number.
	engine := newTestEngine(t)
	ctx := context.Background()

	_, err := engine.Workflow.CreateRequest(ctx, core.CreateRequestInput{
		RequesterID: "emp-1", Priority: core.PriorityNormal,
	})
	require.Error(t, err)

	result := submitRequest(t, engine, "emp-1")
	assert.True(t, strings.HasSuffix(result.TrackingID, "-SR-001"),
		"first valid request should get sequence 001, got %s", result.TrackingID)
}

// =============================================================================
// TRANSITIONS
// =============================================================================

func TestWorkflow_Transition_RecordsExactlyOneTrailEntry(t *testing.T) {
	// GIVEN: A submitted request
	// WHEN: Walking it through several legal transitions
	// THEN: The trail has creation + one entry per transition, in order,
	//       each carrying the correct previous status

	engine := newTestEngine(t)
	ctx := context.Background()
	result := submitRequest(t, engine, "emp-1")
	id := result.RequestID

	steps := []core.Status{
		core.StatusNotAvailable,
		core.StatusPendingPPMP,
		core.StatusForApproval,
		core.StatusApproved,
	}
	for _, target := range steps {
		require.NoError(t, engine.Workflow.Transition(ctx, id, target, "officer-1", ""))
	}

	trail, err := engine.Audit.History(ctx, core.DocSupplyRequest, string(id))
	require.NoError(t, err)
	require.Len(t, trail, 1+len(steps))

	expected := append([]core.Status{core.StatusSubmitted}, steps...)
	for i, entry := range trail {
		assert.Equal(t, expected[i], entry.CurrentStatus, "entry %d", i)
		if i == 0 {
			assert.Nil(t, entry.PreviousStatus)
		} else {
			require.NotNil(t, entry.PreviousStatus)
			assert.Equal(t, expected[i-1], *entry.PreviousStatus, "entry %d previous", i)
		}
	}
}

func TestWorkflow_Transition_Illegal_LeavesRequestUntouched(t *testing.T) {
	// GIVEN: A submitted request
	// WHEN: Jumping straight to Approved
	// THEN: TransitionError, status unchanged, and no trail entry added

	engine := newTestEngine(t)
	ctx := context.Background()
	result := submitRequest(t, engine, "emp-1")

	err := engine.Workflow.Transition(ctx, result.RequestID, core.StatusApproved, "officer-1", "")
	require.Error(t, err)

	var trErr *core.TransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, core.StatusSubmitted, trErr.From)
	assert.Equal(t, core.StatusApproved, trErr.To)

	req, err := engine.Workflow.GetRequest(ctx, result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, core.StatusSubmitted, req.Status)

	trail, err := engine.Audit.History(ctx, core.DocSupplyRequest, string(result.RequestID))
	require.NoError(t, err)
	assert.Len(t, trail, 1)
}

func TestWorkflow_Transition_CancelFromMidChain(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()
	result := submitRequest(t, engine, "emp-1")
	id := result.RequestID

	require.NoError(t, engine.Workflow.Transition(ctx, id, core.StatusNotAvailable, "officer-1", ""))
	require.NoError(t, engine.Workflow.Transition(ctx, id, core.StatusPendingPPMP, "officer-1", ""))
	require.NoError(t, engine.Workflow.Transition(ctx, id, core.StatusCancelled, "emp-1", "no longer needed"))

	req, err := engine.Workflow.GetRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCancelled, req.Status)

	// Terminal: nothing moves out of Cancelled
	err = engine.Workflow.Transition(ctx, id, core.StatusPendingPPMP, "officer-1", "")
	assert.ErrorIs(t, err, core.ErrInvalidTransition)
}

func TestWorkflow_Transition_UnknownRequest(t *testing.T) {
	engine := newTestEngine(t)
	err := engine.Workflow.Transition(context.Background(), "no-such-id", core.StatusAvailable, "officer-1", "")
	assert.ErrorIs(t, err, core.ErrRequestNotFound)
}

func TestWorkflow_Transition_UnknownStatus(t *testing.T) {
	engine := newTestEngine(t)
	result := submitRequest(t, engine, "emp-1")

	err := engine.Workflow.Transition(context.Background(), result.RequestID, "Lost In Transit", "officer-1", "")
	assert.ErrorIs(t, err, core.ErrValidation)
}

// =============================================================================
// WORKLIST
// =============================================================================

func TestWorkflow_ListByStatus(t *testing.T) {
	engine := newTestEngine(t)
	ctx := context.Background()

	a := submitRequest(t, engine, "emp-1")
	b := submitRequest(t, engine, "emp-2")
	submitRequest(t, engine, "emp-3")

	require.NoError(t, engine.Workflow.Transition(ctx, a.RequestID, core.StatusNotAvailable, "officer-1", ""))
	require.NoError(t, engine.Workflow.Transition(ctx, b.RequestID, core.StatusNotAvailable, "officer-1", ""))

	notAvailable, err := engine.Workflow.ListByStatus(ctx, core.StatusNotAvailable)
	require.NoError(t, err)
	assert.Len(t, notAvailable, 2)

	submitted, err := engine.Workflow.ListByStatus(ctx, core.StatusSubmitted)
	require.NoError(t, err)
	assert.Len(t, submitted, 1)

	all, err := engine.Workflow.ListByStatus(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestWorkflow_GetRequest_Unknown(t *testing.T) {
	engine := newTestEngine(t)
	_, err := engine.Workflow.GetRequest(context.Background(), "no-such-id")
	assert.ErrorIs(t, err, core.ErrRequestNotFound)
}

/*
status.go - Supply request status enum and transition table

PURPOSE:
  Models the request lifecycle as a closed enum with an explicit transition
  table. Legality of a status change is decided here and nowhere else; the
  services consult CanTransition and never compare raw strings.

LIFECYCLE:

  Submitted ──▶ Available ──────────────▶ Completed (fast path, stock issued)
      │             │
      │             ▼
      └───▶ NotAvailable ─▶ PendingPPMP ─▶ ForApproval ─▶ Approved
                                                             │
                                              ┌──────────────┤
                                              ▼              ▼
                                        PendingBudget ─▶ UnderProcurement
                                                             │
                                                             ▼
                                      Completed ◀─ Paid ◀─ DVProcessing

  Cancelled and Rejected are reachable from every non-terminal status.
  Completed, Cancelled, and Rejected are terminal and retained forever.
*/
package core

// Status is the lifecycle state of a supply request.
type Status string

const (
	StatusSubmitted        Status = "Submitted"
	StatusAvailable        Status = "Available"
	StatusNotAvailable     Status = "Not Available"
	StatusPendingPPMP      Status = "Pending PPMP"
	StatusForApproval      Status = "For Approval"
	StatusApproved         Status = "Approved"
	StatusPendingBudget    Status = "Pending Budget"
	StatusUnderProcurement Status = "Under Procurement"
	StatusDVProcessing     Status = "DV Processing"
	StatusPaid             Status = "Paid"
	StatusCompleted        Status = "Completed"
	StatusCancelled        Status = "Cancelled"
	StatusRejected         Status = "Rejected"
)

// transitions is the forward edge set of the lifecycle. Cancelled and
// Rejected are handled separately in CanTransition so the table stays
// readable.
var transitions = map[Status][]Status{
	StatusSubmitted:        {StatusAvailable, StatusNotAvailable},
	StatusAvailable:        {StatusPendingPPMP, StatusCompleted},
	StatusNotAvailable:     {StatusPendingPPMP},
	StatusPendingPPMP:      {StatusForApproval},
	StatusForApproval:      {StatusApproved},
	StatusApproved:         {StatusPendingBudget, StatusUnderProcurement},
	StatusPendingBudget:    {StatusUnderProcurement},
	StatusUnderProcurement: {StatusDVProcessing},
	StatusDVProcessing:     {StatusPaid},
	StatusPaid:             {StatusCompleted},
	StatusCompleted:        nil,
	StatusCancelled:        nil,
	StatusRejected:         nil,
}

// ValidStatus reports whether s is a known lifecycle status.
func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusRejected
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	if !ValidStatus(from) || !ValidStatus(to) {
		return false
	}
	if from.IsTerminal() {
		return false
	}
	if to == StatusCancelled || to == StatusRejected {
		return true
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Successors returns the legal targets from s, including the terminal
// side-exits. The slice is freshly allocated; callers may mutate it.
func Successors(s Status) []Status {
	if !ValidStatus(s) || s.IsTerminal() {
		return nil
	}
	out := append([]Status{}, transitions[s]...)
	return append(out, StatusCancelled, StatusRejected)
}

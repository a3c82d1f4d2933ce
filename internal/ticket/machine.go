// Package ticket governs the maintenance work-order lifecycle:
// a fixed state machine, assignment eligibility checks and month-scoped
// sequential numbering.
package ticket

import (
	"recycle-fleet-backend/internal/apperr"
	"recycle-fleet-backend/internal/model"
)

// transitions is the total transition function over ticket states:
// every (from, to) pair absent here is illegal, including same-state
// no-ops and skips. closed is terminal.
var transitions = map[model.TicketStatus]map[model.TicketStatus]bool{
	model.TicketPending:    {model.TicketAssigned: true},
	model.TicketAssigned:   {model.TicketInProgress: true},
	model.TicketInProgress: {model.TicketResolved: true},
	model.TicketResolved:   {model.TicketClosed: true},
	model.TicketClosed:     {},
}

// ValidStatus reports whether s is a known lifecycle state.
func ValidStatus(s model.TicketStatus) bool {
	_, ok := transitions[s]
	return ok
}

// CheckTransition returns nil when from -> to is a legal edge and a
// StateTransitionError otherwise. Illegal transitions are normal
// failure results; they never mutate state.
func CheckTransition(from, to model.TicketStatus) error {
	if !ValidStatus(to) {
		return &apperr.StateTransitionError{From: string(from), To: string(to), Reason: "unknown target state"}
	}
	if !transitions[from][to] {
		return &apperr.StateTransitionError{From: string(from), To: string(to)}
	}
	return nil
}

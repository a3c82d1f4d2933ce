package ticket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"recycle-fleet-backend/internal/apperr"
	"recycle-fleet-backend/internal/logs"
	"recycle-fleet-backend/internal/model"
	"recycle-fleet-backend/internal/store"
)

// numberAllocRetries bounds the retry loop for concurrent creations
// that race over the same sequence number. Every conflict implies some
// other creator made progress, so a handful of tries is enough.
const numberAllocRetries = 5

// Notifier dispatches a ticket-assigned notification. The worker pool
// in internal/notification satisfies it.
type Notifier interface {
	Dispatch(ticketID int64)
}

// CreateInput carries the reporter-supplied fields of a new ticket.
type CreateInput struct {
	UnitID      string
	Category    string
	Priority    string
	Description string
	ReporterID  string
}

// Service implements the work-order lifecycle over the store.
type Service struct {
	store    store.Store
	notifier Notifier
	now      func() time.Time
}

// NewService wires the ticket service. notifier may be nil when
// assignment notifications are not configured.
func NewService(s store.Store, notifier Notifier) *Service {
	return &Service{store: s, notifier: notifier, now: time.Now}
}

// NumberPrefix returns the month-scoped ticket number prefix for t,
// e.g. "TKT-202608-".
func NumberPrefix(t time.Time) string {
	return fmt.Sprintf("TKT-%04d%02d-", t.Year(), int(t.Month()))
}

// Create opens a new pending ticket. The sequence number is computed as
// the current month maximum plus one; the uniqueIndex on Number is the
// real arbiter, so a conflicting allocation is retried with a freshly
// computed number rather than skipped or overwritten.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.MaintenanceTicket, error) {
	if in.UnitID == "" {
		return nil, &apperr.ValidationError{Field: "unit_id", Reason: "required"}
	}
	if in.Category == "" {
		return nil, &apperr.ValidationError{Field: "category", Reason: "required"}
	}
	if _, err := s.store.UnitByID(ctx, in.UnitID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &apperr.NotFoundError{Resource: "unit", ID: in.UnitID}
		}
		return nil, err
	}

	priority := in.Priority
	if priority == "" {
		priority = "normal"
	}

	prefix := NumberPrefix(s.now())
	for attempt := 0; attempt < numberAllocRetries; attempt++ {
		seq, err := s.store.NextTicketSeq(ctx, prefix)
		if err != nil {
			return nil, err
		}

		t := &model.MaintenanceTicket{
			Number:      fmt.Sprintf("%s%04d", prefix, seq),
			UnitID:      in.UnitID,
			Category:    in.Category,
			Priority:    priority,
			Description: in.Description,
			Status:      model.TicketPending,
			ReporterID:  in.ReporterID,
		}
		err = s.store.CreateTicket(ctx, t)
		if errors.Is(err, store.ErrDuplicate) {
			continue
		}
		if err != nil {
			return nil, err
		}

		logs.Logger.WithFields(map[string]any{
			"ticket": t.Number,
			"unit":   t.UnitID,
		}).Info("ticket created")
		return t, nil
	}
	return nil, &apperr.ConflictError{Key: prefix + "<seq>"}
}

// Get loads a live (non-retired) ticket by number.
func (s *Service) Get(ctx context.Context, number string) (*model.MaintenanceTicket, error) {
	t, err := s.store.TicketByNumber(ctx, number)
	if errors.Is(err, store.ErrNotFound) {
		return nil, &apperr.NotFoundError{Resource: "ticket", ID: number}
	}
	return t, err
}

// ListByUnit returns the live tickets of one unit, newest first.
func (s *Service) ListByUnit(ctx context.Context, unitID string) ([]model.MaintenanceTicket, error) {
	return s.store.TicketsByUnit(ctx, unitID)
}

// Assign moves a pending ticket to assigned. The assignee must hold an
// active MachineAssignment for the ticket's unit; anything else
// violates the referential invariant and is rejected.
func (s *Service) Assign(ctx context.Context, number, technicianID string) (*model.MaintenanceTicket, error) {
	if technicianID == "" {
		return nil, &apperr.ValidationError{Field: "technician_id", Reason: "required"}
	}
	t, err := s.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(t.Status, model.TicketAssigned); err != nil {
		return nil, err
	}

	if _, err := s.store.ActiveAssignmentFor(ctx, t.UnitID, technicianID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &apperr.StateTransitionError{
				From:   string(t.Status),
				To:     string(model.TicketAssigned),
				Reason: "assignee has no active assignment for this unit",
			}
		}
		return nil, err
	}

	now := s.now().UTC()
	t, err = s.apply(ctx, t, model.TicketAssigned, map[string]any{
		"status":      model.TicketAssigned,
		"assignee_id": technicianID,
		"assigned_at": now,
	})
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Dispatch(t.ID)
	}
	return t, nil
}

// Start moves an assigned ticket to in_progress and records the start
// timestamp.
func (s *Service) Start(ctx context.Context, number string) (*model.MaintenanceTicket, error) {
	t, err := s.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(t.Status, model.TicketInProgress); err != nil {
		return nil, err
	}
	return s.apply(ctx, t, model.TicketInProgress, map[string]any{
		"status":     model.TicketInProgress,
		"started_at": s.now().UTC(),
	})
}

// Resolve moves an in_progress ticket to resolved. Resolution notes or
// a proof reference are required; the completion timestamp is recorded.
func (s *Service) Resolve(ctx context.Context, number, notes, proofRef string) (*model.MaintenanceTicket, error) {
	t, err := s.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(t.Status, model.TicketResolved); err != nil {
		return nil, err
	}
	if notes == "" && proofRef == "" {
		return nil, &apperr.ValidationError{Field: "resolution", Reason: "resolution notes or a proof reference are required"}
	}
	return s.apply(ctx, t, model.TicketResolved, map[string]any{
		"status":           model.TicketResolved,
		"resolution_notes": notes,
		"proof_ref":        proofRef,
		"completed_at":     s.now().UTC(),
	})
}

// Close confirms a resolved ticket. The state is terminal.
func (s *Service) Close(ctx context.Context, number string) (*model.MaintenanceTicket, error) {
	t, err := s.Get(ctx, number)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(t.Status, model.TicketClosed); err != nil {
		return nil, err
	}
	return s.apply(ctx, t, model.TicketClosed, map[string]any{
		"status": model.TicketClosed,
	})
}

// Retire soft-deletes a ticket. It stays in storage for audit but
// disappears from every listing and lookup.
func (s *Service) Retire(ctx context.Context, number string) error {
	err := s.store.RetireTicket(ctx, number)
	if errors.Is(err, store.ErrNotFound) {
		return &apperr.NotFoundError{Resource: "ticket", ID: number}
	}
	return err
}

// apply runs the guarded status update and reloads the ticket. A guard
// miss means another request moved the ticket first; that surfaces as
// the same normal failure an illegal transition does.
func (s *Service) apply(ctx context.Context, t *model.MaintenanceTicket, to model.TicketStatus, updates map[string]any) (*model.MaintenanceTicket, error) {
	moved, err := s.store.UpdateTicketStatus(ctx, t.Number, t.Status, updates)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, &apperr.StateTransitionError{
			From:   string(t.Status),
			To:     string(to),
			Reason: "ticket changed concurrently",
		}
	}

	logs.Logger.WithFields(map[string]any{
		"ticket": t.Number,
		"from":   t.Status,
		"to":     to,
	}).Info("ticket transitioned")
	return s.Get(ctx, t.Number)
}

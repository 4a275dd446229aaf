// Package lifecycle owns ticket status transitions and their timestamp
// invariants. Manual transitions are validated against a fixed table;
// outbound replies drive a separate auto-transition path.
package lifecycle

import (
	"time"

	"github.com/spec-kit/mailroom/internal/domain"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

// transitions is the manual transition table. Anything absent is rejected.
var transitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusNew:      {domain.TicketStatusOpen, domain.TicketStatusPending, domain.TicketStatusClosed},
	domain.TicketStatusOpen:     {domain.TicketStatusPending, domain.TicketStatusOnHold, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusPending:  {domain.TicketStatusOpen, domain.TicketStatusOnHold, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusOnHold:   {domain.TicketStatusOpen, domain.TicketStatusPending, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved: {domain.TicketStatusOpen, domain.TicketStatusClosed},
	domain.TicketStatusClosed:   {domain.TicketStatusOpen},
}

// Machine validates and applies ticket status changes.
type Machine struct {
	now func() time.Time
}

// New builds a machine using the wall clock.
func New() *Machine {
	return NewWithNow(time.Now)
}

// NewWithNow builds a machine with an injected clock for deterministic tests.
func NewWithNow(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{now: now}
}

// CanTransition reports whether the manual transition table allows from → to.
func (m *Machine) CanTransition(from, to domain.TicketStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition applies a manual status change, maintaining timestamp
// invariants. On rejection the ticket is left unmodified.
func (m *Machine) Transition(ticket *domain.Ticket, to domain.TicketStatus) error {
	from := ticket.Status
	if !m.CanTransition(from, to) {
		return apperrors.NewValidationError("invalid status transition", map[string]any{
			"from": string(from),
			"to":   string(to),
		})
	}

	now := m.now()
	switch to {
	case domain.TicketStatusResolved:
		ticket.ResolvedAt = &now
	case domain.TicketStatusClosed:
		ticket.ClosedAt = &now
	case domain.TicketStatusOpen:
		// Reopening from either terminal state clears both markers.
		if from == domain.TicketStatusResolved || from == domain.TicketStatusClosed {
			ticket.ResolvedAt = nil
			ticket.ClosedAt = nil
		}
	}
	ticket.Status = to
	ticket.UpdatedAt = now
	return nil
}

// RecordOutboundReply applies the reply auto-transition: the first outbound
// message on a NEW ticket moves it to OPEN without consulting the manual
// table, and FirstResponseAt is set once and never overwritten.
func (m *Machine) RecordOutboundReply(ticket *domain.Ticket) {
	now := m.now()
	if ticket.Status == domain.TicketStatusNew {
		ticket.Status = domain.TicketStatusOpen
	}
	if ticket.FirstResponseAt == nil {
		ticket.FirstResponseAt = &now
	}
	ticket.UpdatedAt = now
}

// NewTicket stamps a freshly created ticket with its initial state.
func (m *Machine) NewTicket(ticket *domain.Ticket) {
	now := m.now()
	ticket.Status = domain.TicketStatusNew
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
}

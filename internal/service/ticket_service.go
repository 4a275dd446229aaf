// Package service holds the agent-facing application services.
package service

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/events"
	"github.com/spec-kit/mailroom/internal/lifecycle"
	"github.com/spec-kit/mailroom/internal/mail"
	"github.com/spec-kit/mailroom/internal/repository"
	"github.com/spec-kit/mailroom/internal/ticketnumber"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

// TicketService exposes agent operations on tickets: listing, manual status
// transitions, and outbound replies. Every operation is tenant-scoped.
type TicketService struct {
	tickets    repository.TicketRepository
	messages   repository.TicketMessageRepository
	agents     repository.AgentRepository
	machine    *lifecycle.Machine
	outbox     mail.Outbox
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// TicketServiceDeps bundles collaborators for TicketService.
type TicketServiceDeps struct {
	TicketRepo  repository.TicketRepository
	MessageRepo repository.TicketMessageRepository
	AgentRepo   repository.AgentRepository
	Machine     *lifecycle.Machine
	Outbox      mail.Outbox
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
	Now         func() time.Time
}

func NewTicketService(deps TicketServiceDeps) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		messages:   deps.MessageRepo,
		agents:     deps.AgentRepo,
		machine:    deps.Machine,
		outbox:     deps.Outbox,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if s.machine == nil {
		s.machine = lifecycle.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Get returns a ticket by id, scoped to the tenant.
func (s *TicketService) Get(ctx context.Context, tenantID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
		}
		return nil, err
	}
	if ticket.TenantID != tenantID {
		// A foreign-tenant ticket is indistinguishable from a missing one.
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	return ticket, nil
}

// List returns tickets for the tenant matching the filter.
func (s *TicketService) List(ctx context.Context, tenantID string, filter repository.TicketFilter) ([]domain.Ticket, error) {
	return s.tickets.ListByTenant(ctx, tenantID, filter)
}

// Messages returns the full thread of a ticket, oldest first.
func (s *TicketService) Messages(ctx context.Context, tenantID, ticketID string) ([]domain.TicketMessage, error) {
	if _, err := s.Get(ctx, tenantID, ticketID); err != nil {
		return nil, err
	}
	return s.messages.ListByTicket(ctx, ticketID)
}

// Transition applies a manual status change requested by an agent. Rejected
// transitions surface as validation errors and leave the ticket untouched.
func (s *TicketService) Transition(ctx context.Context, tenantID, ticketID string, to domain.TicketStatus, agentID string) (*domain.Ticket, error) {
	ticket, err := s.Get(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	oldStatus := ticket.Status
	if err := s.machine.Transition(ticket, to); err != nil {
		return nil, err
	}
	ticket.UpdatedAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: ticket.Status,
			AgentID:   &agentID,
		},
	})
	return ticket, nil
}

// Assign sets or clears the assigned agent on a ticket. The agent must
// belong to the same tenant.
func (s *TicketService) Assign(ctx context.Context, tenantID, ticketID string, agentID *string) (*domain.Ticket, error) {
	ticket, err := s.Get(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}
	if agentID != nil {
		agent, err := s.agents.GetByID(ctx, *agentID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NewNotFound("agent", map[string]any{"id": *agentID})
			}
			return nil, err
		}
		if agent.TenantID != tenantID {
			return nil, apperrors.NewNotFound("agent", map[string]any{"id": *agentID})
		}
	}
	ticket.AssignedAgentID = agentID
	ticket.UpdatedAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// Reply records an outbound agent reply on the thread and hands it to the
// outbox. The reply carries the correlation header and the ticket number in
// the subject so follow-ups thread back to this ticket. The first reply on a
// NEW ticket moves it to OPEN and stamps firstResponseAt.
func (s *TicketService) Reply(ctx context.Context, tenantID, ticketID string, agent *domain.Agent, body string) (*domain.TicketMessage, error) {
	if body == "" {
		return nil, apperrors.NewValidationError("reply body must not be empty", nil)
	}
	ticket, err := s.Get(ctx, tenantID, ticketID)
	if err != nil {
		return nil, err
	}

	message := &domain.TicketMessage{
		ID:          uuid.NewString(),
		TicketID:    ticket.ID,
		Direction:   domain.DirectionOutbound,
		SenderEmail: agent.Email,
		SenderName:  agent.DisplayName,
		Body:        body,
		CreatedAt:   s.now(),
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, err
	}

	oldStatus := ticket.Status
	s.machine.RecordOutboundReply(ticket)
	ticket.UpdatedAt = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	subject := ticket.Subject
	if ticketnumber.FindToken(subject) == "" {
		subject = fmt.Sprintf("[%s] %s", ticket.Number, subject)
	}
	outbound := mail.OutboundMessage{
		To:      ticket.RequesterEmail,
		Subject: "Re: " + subject,
		Body:    body,
		Headers: map[string]string{mail.CorrelationHeader: ticket.ID},
	}
	if s.outbox != nil {
		if err := s.outbox.Send(ctx, agent.Email, outbound); err != nil {
			// Delivery failures do not undo the recorded reply.
			s.logger.Warn("outbound reply delivery failed",
				zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	s.publish(ctx, events.Event{
		Type:     events.EventMessageAppended,
		TenantID: ticket.TenantID,
		TicketID: ticket.ID,
		Payload: events.MessageAppendedPayload{
			MessageID:   message.ID,
			Direction:   message.Direction,
			SenderEmail: message.SenderEmail,
			BodyPreview: preview(body),
		},
	})
	if oldStatus != ticket.Status {
		s.publish(ctx, events.Event{
			Type:     events.EventTicketStatusChanged,
			TenantID: ticket.TenantID,
			TicketID: ticket.ID,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
				AgentID:   &agent.ID,
			},
		})
	}
	return message, nil
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	event.ID = uuid.NewString()
	event.Timestamp = s.now()
	_ = s.dispatcher.Publish(ctx, event)
}

func preview(body string) string {
	const max = 120
	if len(body) <= max {
		return body
	}
	// Never split a multi-byte rune at the cut.
	cut := max
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	return body[:cut]
}

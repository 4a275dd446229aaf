package events

import (
	"time"

	"github.com/spec-kit/mailroom/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketRouted        EventType = "ticket_routed"
	EventMessageAppended     EventType = "ticket_message_appended"
	EventIntakeFailed        EventType = "intake_message_failed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TenantID  string      `json:"tenant_id"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Number         string                `json:"number"`
	Source         domain.TicketSource   `json:"source"`
	Priority       domain.TicketPriority `json:"priority"`
	QueueID        *string               `json:"queue_id,omitempty"`
	RequesterEmail string                `json:"requester_email"`
	Subject        string                `json:"subject"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
	AgentID   *string             `json:"agent_id,omitempty"`
}

// TicketRoutedPayload payload.
type TicketRoutedPayload struct {
	QueueID           *string `json:"queue_id,omitempty"`
	MatchedRuleID     *string `json:"matched_rule_id,omitempty"`
	IsDefaultFallback bool    `json:"is_default_fallback"`
}

// MessageAppendedPayload payload.
type MessageAppendedPayload struct {
	MessageID   string                  `json:"message_id"`
	Direction   domain.MessageDirection `json:"direction"`
	SenderEmail string                  `json:"sender_email"`
	BodyPreview string                  `json:"body_preview"`
}

// IntakeFailedPayload payload.
type IntakeFailedPayload struct {
	ExternalMessageID string `json:"external_message_id"`
	ErrorDetail       string `json:"error_detail"`
}

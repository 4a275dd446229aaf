// Package dto defines the HTTP request and response shapes.
package dto

import (
	"time"

	"github.com/spec-kit/mailroom/internal/domain"
)

// LoginRequest carries agent credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the issued access token.
type LoginResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
	Agent     AgentResponse `json:"agent"`
}

// AgentResponse is the public view of an agent account.
type AgentResponse struct {
	ID          string           `json:"id"`
	TenantID    string           `json:"tenant_id"`
	Email       string           `json:"email"`
	DisplayName string           `json:"display_name"`
	Role        domain.AgentRole `json:"role"`
}

func NewAgentResponse(agent *domain.Agent) AgentResponse {
	return AgentResponse{
		ID:          agent.ID,
		TenantID:    agent.TenantID,
		Email:       agent.Email,
		DisplayName: agent.DisplayName,
		Role:        agent.Role,
	}
}

// TicketResponse is the public view of a ticket.
type TicketResponse struct {
	ID              string                `json:"id"`
	Number          string                `json:"number"`
	Subject         string                `json:"subject"`
	Description     string                `json:"description,omitempty"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	Source          domain.TicketSource   `json:"source"`
	RequesterEmail  string                `json:"requester_email"`
	RequesterName   string                `json:"requester_name,omitempty"`
	AssignedAgentID *string               `json:"assigned_agent_id,omitempty"`
	QueueID         *string               `json:"queue_id,omitempty"`
	Tags            []string              `json:"tags,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	FirstResponseAt *time.Time            `json:"first_response_at,omitempty"`
	ResolvedAt      *time.Time            `json:"resolved_at,omitempty"`
	ClosedAt        *time.Time            `json:"closed_at,omitempty"`
}

func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              ticket.ID,
		Number:          ticket.Number,
		Subject:         ticket.Subject,
		Description:     ticket.Description,
		Status:          ticket.Status,
		Priority:        ticket.Priority,
		Source:          ticket.Source,
		RequesterEmail:  ticket.RequesterEmail,
		RequesterName:   ticket.RequesterName,
		AssignedAgentID: ticket.AssignedAgentID,
		QueueID:         ticket.QueueID,
		Tags:            ticket.Tags,
		CreatedAt:       ticket.CreatedAt,
		UpdatedAt:       ticket.UpdatedAt,
		FirstResponseAt: ticket.FirstResponseAt,
		ResolvedAt:      ticket.ResolvedAt,
		ClosedAt:        ticket.ClosedAt,
	}
}

func NewTicketListResponse(tickets []domain.Ticket) []TicketResponse {
	result := make([]TicketResponse, 0, len(tickets))
	for i := range tickets {
		result = append(result, NewTicketResponse(&tickets[i]))
	}
	return result
}

// MessageResponse is one message in a ticket thread.
type MessageResponse struct {
	ID          string                  `json:"id"`
	TicketID    string                  `json:"ticket_id"`
	Direction   domain.MessageDirection `json:"direction"`
	SenderEmail string                  `json:"sender_email"`
	SenderName  string                  `json:"sender_name,omitempty"`
	Body        string                  `json:"body"`
	CreatedAt   time.Time               `json:"created_at"`
}

func NewMessageResponse(message *domain.TicketMessage) MessageResponse {
	return MessageResponse{
		ID:          message.ID,
		TicketID:    message.TicketID,
		Direction:   message.Direction,
		SenderEmail: message.SenderEmail,
		SenderName:  message.SenderName,
		Body:        message.Body,
		CreatedAt:   message.CreatedAt,
	}
}

// TransitionRequest asks for a manual status change.
type TransitionRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// ReplyRequest carries an outbound agent reply body.
type ReplyRequest struct {
	Body string `json:"body"`
}

// AssignRequest sets or clears the assigned agent.
type AssignRequest struct {
	AgentID *string `json:"agent_id"`
}

// RoutingRuleRequest creates or updates a routing rule.
type RoutingRuleRequest struct {
	QueueID           string                 `json:"queue_id"`
	MatchType         domain.RuleMatchType   `json:"match_type"`
	Operator          domain.RuleOperator    `json:"operator"`
	MatchValue        string                 `json:"match_value"`
	SortOrder         int                    `json:"sort_order"`
	IsActive          bool                   `json:"is_active"`
	AutoAssignAgentID *string                `json:"auto_assign_agent_id,omitempty"`
	AutoPriority      *domain.TicketPriority `json:"auto_priority,omitempty"`
	AutoTags          string                 `json:"auto_tags,omitempty"`
}

func (r RoutingRuleRequest) ToDomain(tenantID string) *domain.RoutingRule {
	return &domain.RoutingRule{
		TenantID:          tenantID,
		QueueID:           r.QueueID,
		MatchType:         r.MatchType,
		Operator:          r.Operator,
		MatchValue:        r.MatchValue,
		SortOrder:         r.SortOrder,
		IsActive:          r.IsActive,
		AutoAssignAgentID: r.AutoAssignAgentID,
		AutoPriority:      r.AutoPriority,
		AutoTags:          r.AutoTags,
	}
}

// RoutingRuleResponse is the public view of a routing rule.
type RoutingRuleResponse struct {
	ID                string                 `json:"id"`
	QueueID           string                 `json:"queue_id"`
	MatchType         domain.RuleMatchType   `json:"match_type"`
	Operator          domain.RuleOperator    `json:"operator"`
	MatchValue        string                 `json:"match_value"`
	SortOrder         int                    `json:"sort_order"`
	IsActive          bool                   `json:"is_active"`
	AutoAssignAgentID *string                `json:"auto_assign_agent_id,omitempty"`
	AutoPriority      *domain.TicketPriority `json:"auto_priority,omitempty"`
	AutoTags          string                 `json:"auto_tags,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

func NewRoutingRuleResponse(rule *domain.RoutingRule) RoutingRuleResponse {
	return RoutingRuleResponse{
		ID:                rule.ID,
		QueueID:           rule.QueueID,
		MatchType:         rule.MatchType,
		Operator:          rule.Operator,
		MatchValue:        rule.MatchValue,
		SortOrder:         rule.SortOrder,
		IsActive:          rule.IsActive,
		AutoAssignAgentID: rule.AutoAssignAgentID,
		AutoPriority:      rule.AutoPriority,
		AutoTags:          rule.AutoTags,
		CreatedAt:         rule.CreatedAt,
		UpdatedAt:         rule.UpdatedAt,
	}
}

// QueueRequest creates or updates a queue.
type QueueRequest struct {
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// QueueResponse is the public view of a queue.
type QueueResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewQueueResponse(queue *domain.Queue) QueueResponse {
	return QueueResponse{
		ID:        queue.ID,
		Name:      queue.Name,
		IsDefault: queue.IsDefault,
		CreatedAt: queue.CreatedAt,
		UpdatedAt: queue.UpdatedAt,
	}
}

// MailboxRequest creates or updates a mailbox config.
type MailboxRequest struct {
	Address           string                `json:"address"`
	PollIntervalSec   int                   `json:"poll_interval_sec"`
	AutoCreateTickets bool                  `json:"auto_create_tickets"`
	DefaultPriority   domain.TicketPriority `json:"default_priority"`
	IsActive          bool                  `json:"is_active"`
}

func (r MailboxRequest) ToDomain(tenantID string) *domain.MailboxConfig {
	return &domain.MailboxConfig{
		TenantID:          tenantID,
		Address:           r.Address,
		PollIntervalSec:   r.PollIntervalSec,
		AutoCreateTickets: r.AutoCreateTickets,
		DefaultPriority:   r.DefaultPriority,
		IsActive:          r.IsActive,
	}
}

// MailboxResponse is the public view of a mailbox config.
type MailboxResponse struct {
	ID                string                `json:"id"`
	Address           string                `json:"address"`
	PollIntervalSec   int                   `json:"poll_interval_sec"`
	LastPolledAt      *time.Time            `json:"last_polled_at,omitempty"`
	AutoCreateTickets bool                  `json:"auto_create_tickets"`
	DefaultPriority   domain.TicketPriority `json:"default_priority"`
	IsActive          bool                  `json:"is_active"`
	CreatedAt         time.Time             `json:"created_at"`
	UpdatedAt         time.Time             `json:"updated_at"`
}

func NewMailboxResponse(mailbox *domain.MailboxConfig) MailboxResponse {
	return MailboxResponse{
		ID:                mailbox.ID,
		Address:           mailbox.Address,
		PollIntervalSec:   mailbox.PollIntervalSec,
		LastPolledAt:      mailbox.LastPolledAt,
		AutoCreateTickets: mailbox.AutoCreateTickets,
		DefaultPriority:   mailbox.DefaultPriority,
		IsActive:          mailbox.IsActive,
		CreatedAt:         mailbox.CreatedAt,
		UpdatedAt:         mailbox.UpdatedAt,
	}
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

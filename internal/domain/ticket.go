package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew      TicketStatus = "NEW"
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusPending  TicketStatus = "PENDING"
	TicketStatusOnHold   TicketStatus = "ON_HOLD"
	TicketStatusResolved TicketStatus = "RESOLVED"
	TicketStatusClosed   TicketStatus = "CLOSED"
)

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// TicketSource records which channel opened the ticket.
type TicketSource string

const (
	TicketSourceEmail  TicketSource = "EMAIL"
	TicketSourceManual TicketSource = "MANUAL"
)

// Ticket is the aggregate for support requests.
//
// ResolvedAt/ClosedAt are set iff the ticket is in the matching terminal
// state; FirstResponseAt is write-once and never cleared.
type Ticket struct {
	ID              string
	TenantID        string
	Number          string
	Subject         string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	Source          TicketSource
	RequesterEmail  string
	RequesterName   string
	AssignedAgentID *string
	QueueID         *string
	IssueType       *string
	IssueSystem     *string
	Tags            []string
	Classification  map[string]any
	CreatedAt       time.Time
	UpdatedAt       time.Time
	FirstResponseAt *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
}

// HasTag reports whether the ticket carries the given tag (case-insensitive
// comparisons belong to the routing engine; this is an exact check).
func (t *Ticket) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

package domain

import "time"

// MailboxConfig describes one polled tenant mailbox.
type MailboxConfig struct {
	ID                 string
	TenantID           string
	Address            string
	PollIntervalSec    int
	LastPolledAt       *time.Time
	AutoCreateTickets  bool
	DefaultPriority    TicketPriority
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// IsDue reports whether the mailbox should be polled at the given instant.
func (m *MailboxConfig) IsDue(now time.Time) bool {
	if !m.IsActive {
		return false
	}
	if m.LastPolledAt == nil {
		return true
	}
	interval := time.Duration(m.PollIntervalSec) * time.Second
	return !now.Before(m.LastPolledAt.Add(interval))
}

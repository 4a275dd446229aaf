package domain

import "time"

// AgentRole enumerates permission tiers for agents.
type AgentRole string

const (
	AgentRoleAgent AgentRole = "AGENT"
	AgentRoleAdmin AgentRole = "ADMIN"
)

// Agent is a tenant-scoped staff account that works tickets and, for admins,
// administers routing rules and mailbox configs.
type Agent struct {
	ID           string
	TenantID     string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         AgentRole
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

package domain

import "time"

// RuleMatchType selects which context field a routing rule inspects.
type RuleMatchType string

const (
	MatchSenderDomain   RuleMatchType = "SENDER_DOMAIN"
	MatchSubjectKeyword RuleMatchType = "SUBJECT_KEYWORD"
	MatchBodyKeyword    RuleMatchType = "BODY_KEYWORD"
	MatchTag            RuleMatchType = "TAG"
	MatchRequesterEmail RuleMatchType = "REQUESTER_EMAIL"
	MatchIssueType      RuleMatchType = "ISSUE_TYPE"
)

// RuleOperator selects how the extracted field is compared to MatchValue.
type RuleOperator string

const (
	OperatorEquals     RuleOperator = "EQUALS"
	OperatorContains   RuleOperator = "CONTAINS"
	OperatorStartsWith RuleOperator = "STARTS_WITH"
	OperatorRegex      RuleOperator = "REGEX"
	OperatorIn         RuleOperator = "IN"
)

// RoutingRule routes a matching message/ticket context to a queue and
// optionally applies assignment, priority, and tag side effects.
// MatchValue is a comma-separated list when Operator is IN; AutoTags is
// always comma-separated.
type RoutingRule struct {
	ID                string
	TenantID          string
	QueueID           string
	MatchType         RuleMatchType
	Operator          RuleOperator
	MatchValue        string
	SortOrder         int
	IsActive          bool
	AutoAssignAgentID *string
	AutoPriority      *TicketPriority
	AutoTags          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Queue is a tenant-scoped work bucket for tickets. At most one queue per
// tenant carries IsDefault; the storage layer enforces that invariant.
type Queue struct {
	ID        string
	TenantID  string
	Name      string
	IsDefault bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/mailroom/internal/domain"
	"github.com/spec-kit/mailroom/internal/repository"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

var validMatchTypes = map[domain.RuleMatchType]bool{
	domain.MatchSenderDomain:   true,
	domain.MatchSubjectKeyword: true,
	domain.MatchBodyKeyword:    true,
	domain.MatchTag:            true,
	domain.MatchRequesterEmail: true,
	domain.MatchIssueType:      true,
}

var validOperators = map[domain.RuleOperator]bool{
	domain.OperatorEquals:     true,
	domain.OperatorContains:   true,
	domain.OperatorStartsWith: true,
	domain.OperatorRegex:      true,
	domain.OperatorIn:         true,
}

var validPriorities = map[domain.TicketPriority]bool{
	domain.TicketPriorityLow:    true,
	domain.TicketPriorityMedium: true,
	domain.TicketPriorityHigh:   true,
	domain.TicketPriorityUrgent: true,
}

// RoutingAdminService manages routing rules, queues, and mailbox configs for
// tenant admins.
type RoutingAdminService struct {
	rules     repository.RoutingRuleRepository
	queues    repository.QueueRepository
	mailboxes repository.MailboxConfigRepository
	agents    repository.AgentRepository
	logger    *zap.Logger
	now       func() time.Time
}

type RoutingAdminDeps struct {
	RuleRepo    repository.RoutingRuleRepository
	QueueRepo   repository.QueueRepository
	MailboxRepo repository.MailboxConfigRepository
	AgentRepo   repository.AgentRepository
	Logger      *zap.Logger
	Now         func() time.Time
}

func NewRoutingAdminService(deps RoutingAdminDeps) *RoutingAdminService {
	s := &RoutingAdminService{
		rules:     deps.RuleRepo,
		queues:    deps.QueueRepo,
		mailboxes: deps.MailboxRepo,
		agents:    deps.AgentRepo,
		logger:    deps.Logger,
		now:       deps.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CreateRule validates and persists a new routing rule.
func (s *RoutingAdminService) CreateRule(ctx context.Context, rule *domain.RoutingRule) (*domain.RoutingRule, error) {
	if err := s.validateRule(ctx, rule); err != nil {
		return nil, err
	}
	rule.ID = uuid.NewString()
	rule.CreatedAt = s.now()
	rule.UpdatedAt = rule.CreatedAt
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// UpdateRule validates and persists changes to an existing rule.
func (s *RoutingAdminService) UpdateRule(ctx context.Context, rule *domain.RoutingRule) (*domain.RoutingRule, error) {
	existing, err := s.rules.GetByID(ctx, rule.TenantID, rule.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("routing rule", map[string]any{"id": rule.ID})
		}
		return nil, err
	}
	if err := s.validateRule(ctx, rule); err != nil {
		return nil, err
	}
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = s.now()
	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func (s *RoutingAdminService) DeleteRule(ctx context.Context, tenantID, id string) error {
	return s.rules.Delete(ctx, tenantID, id)
}

func (s *RoutingAdminService) ListRules(ctx context.Context, tenantID string) ([]domain.RoutingRule, error) {
	return s.rules.ListByTenant(ctx, tenantID)
}

func (s *RoutingAdminService) validateRule(ctx context.Context, rule *domain.RoutingRule) error {
	details := map[string]any{}
	if !validMatchTypes[rule.MatchType] {
		details["match_type"] = string(rule.MatchType)
	}
	if !validOperators[rule.Operator] {
		details["operator"] = string(rule.Operator)
	}
	if strings.TrimSpace(rule.MatchValue) == "" {
		details["match_value"] = "must not be empty"
	}
	if rule.Operator == domain.OperatorRegex {
		if _, err := regexp.Compile(rule.MatchValue); err != nil {
			details["match_value"] = "invalid regular expression"
		}
	}
	if rule.AutoPriority != nil && !validPriorities[*rule.AutoPriority] {
		details["auto_priority"] = string(*rule.AutoPriority)
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid routing rule", details)
	}

	queue, err := s.queues.GetByID(ctx, rule.QueueID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewValidationError("invalid routing rule",
				map[string]any{"queue_id": "unknown queue"})
		}
		return err
	}
	if queue.TenantID != rule.TenantID {
		return apperrors.NewValidationError("invalid routing rule",
			map[string]any{"queue_id": "unknown queue"})
	}
	if rule.AutoAssignAgentID != nil {
		agent, err := s.agents.GetByID(ctx, *rule.AutoAssignAgentID)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return apperrors.NewValidationError("invalid routing rule",
					map[string]any{"auto_assign_agent_id": "unknown agent"})
			}
			return err
		}
		if agent.TenantID != rule.TenantID {
			return apperrors.NewValidationError("invalid routing rule",
				map[string]any{"auto_assign_agent_id": "unknown agent"})
		}
	}
	return nil
}

// CreateQueue persists a new queue. Marking it default demotes any previous
// default in the same transaction.
func (s *RoutingAdminService) CreateQueue(ctx context.Context, queue *domain.Queue) (*domain.Queue, error) {
	if strings.TrimSpace(queue.Name) == "" {
		return nil, apperrors.NewValidationError("queue name must not be empty", nil)
	}
	queue.ID = uuid.NewString()
	queue.CreatedAt = s.now()
	queue.UpdatedAt = queue.CreatedAt
	if err := s.queues.Create(ctx, queue); err != nil {
		return nil, err
	}
	return queue, nil
}

func (s *RoutingAdminService) UpdateQueue(ctx context.Context, queue *domain.Queue) (*domain.Queue, error) {
	existing, err := s.queues.GetByID(ctx, queue.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("queue", map[string]any{"id": queue.ID})
		}
		return nil, err
	}
	if existing.TenantID != queue.TenantID {
		return nil, apperrors.NewNotFound("queue", map[string]any{"id": queue.ID})
	}
	if strings.TrimSpace(queue.Name) == "" {
		return nil, apperrors.NewValidationError("queue name must not be empty", nil)
	}
	queue.CreatedAt = existing.CreatedAt
	queue.UpdatedAt = s.now()
	if err := s.queues.Update(ctx, queue); err != nil {
		return nil, err
	}
	return queue, nil
}

func (s *RoutingAdminService) ListQueues(ctx context.Context, tenantID string) ([]domain.Queue, error) {
	return s.queues.ListByTenant(ctx, tenantID)
}

// CreateMailbox persists a new mailbox config.
func (s *RoutingAdminService) CreateMailbox(ctx context.Context, mailbox *domain.MailboxConfig) (*domain.MailboxConfig, error) {
	if err := validateMailbox(mailbox); err != nil {
		return nil, err
	}
	mailbox.ID = uuid.NewString()
	mailbox.CreatedAt = s.now()
	mailbox.UpdatedAt = mailbox.CreatedAt
	if err := s.mailboxes.Create(ctx, mailbox); err != nil {
		return nil, err
	}
	return mailbox, nil
}

func (s *RoutingAdminService) UpdateMailbox(ctx context.Context, mailbox *domain.MailboxConfig) (*domain.MailboxConfig, error) {
	existing, err := s.mailboxes.GetByID(ctx, mailbox.ID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFound("mailbox", map[string]any{"id": mailbox.ID})
		}
		return nil, err
	}
	if existing.TenantID != mailbox.TenantID {
		return nil, apperrors.NewNotFound("mailbox", map[string]any{"id": mailbox.ID})
	}
	if err := validateMailbox(mailbox); err != nil {
		return nil, err
	}
	mailbox.CreatedAt = existing.CreatedAt
	mailbox.LastPolledAt = existing.LastPolledAt
	mailbox.UpdatedAt = s.now()
	if err := s.mailboxes.Update(ctx, mailbox); err != nil {
		return nil, err
	}
	return mailbox, nil
}

func (s *RoutingAdminService) ListMailboxes(ctx context.Context, tenantID string) ([]domain.MailboxConfig, error) {
	return s.mailboxes.ListByTenant(ctx, tenantID)
}

func validateMailbox(mailbox *domain.MailboxConfig) error {
	details := map[string]any{}
	if !strings.Contains(mailbox.Address, "@") {
		details["address"] = "must be an email address"
	}
	if mailbox.PollIntervalSec <= 0 {
		details["poll_interval_sec"] = "must be positive"
	}
	if mailbox.DefaultPriority == "" {
		mailbox.DefaultPriority = domain.TicketPriorityMedium
	} else if !validPriorities[mailbox.DefaultPriority] {
		details["default_priority"] = string(mailbox.DefaultPriority)
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid mailbox config", details)
	}
	return nil
}

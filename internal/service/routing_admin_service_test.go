package service

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/mailroom/internal/domain"
	apperrors "github.com/spec-kit/mailroom/pkg/util"
)

type memRuleRepo struct {
	rules map[string]*domain.RoutingRule
}

func newMemRuleRepo() *memRuleRepo { return &memRuleRepo{rules: map[string]*domain.RoutingRule{}} }

func (r *memRuleRepo) Create(_ context.Context, rule *domain.RoutingRule) error {
	clone := *rule
	r.rules[rule.ID] = &clone
	return nil
}

func (r *memRuleRepo) Update(_ context.Context, rule *domain.RoutingRule) error {
	return r.Create(context.Background(), rule)
}

func (r *memRuleRepo) Delete(_ context.Context, tenantID, id string) error {
	if rule, ok := r.rules[id]; ok && rule.TenantID == tenantID {
		delete(r.rules, id)
	}
	return nil
}

func (r *memRuleRepo) GetByID(_ context.Context, tenantID, id string) (*domain.RoutingRule, error) {
	if rule, ok := r.rules[id]; ok && rule.TenantID == tenantID {
		clone := *rule
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memRuleRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.RoutingRule, error) {
	var result []domain.RoutingRule
	for _, rule := range r.rules {
		if rule.TenantID == tenantID {
			result = append(result, *rule)
		}
	}
	return result, nil
}

type memQueueRepo struct {
	queues map[string]*domain.Queue
}

func (r *memQueueRepo) Create(_ context.Context, queue *domain.Queue) error {
	clone := *queue
	r.queues[queue.ID] = &clone
	return nil
}

func (r *memQueueRepo) Update(_ context.Context, queue *domain.Queue) error {
	return r.Create(context.Background(), queue)
}

func (r *memQueueRepo) GetByID(_ context.Context, id string) (*domain.Queue, error) {
	if queue, ok := r.queues[id]; ok {
		clone := *queue
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memQueueRepo) GetDefaultForTenant(_ context.Context, tenantID string) (*domain.Queue, error) {
	for _, queue := range r.queues {
		if queue.TenantID == tenantID && queue.IsDefault {
			clone := *queue
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memQueueRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.Queue, error) {
	var result []domain.Queue
	for _, queue := range r.queues {
		if queue.TenantID == tenantID {
			result = append(result, *queue)
		}
	}
	return result, nil
}

type memMailboxRepo struct {
	boxes map[string]*domain.MailboxConfig
}

func (r *memMailboxRepo) Create(_ context.Context, box *domain.MailboxConfig) error {
	clone := *box
	r.boxes[box.ID] = &clone
	return nil
}

func (r *memMailboxRepo) Update(_ context.Context, box *domain.MailboxConfig) error {
	return r.Create(context.Background(), box)
}

func (r *memMailboxRepo) GetByID(_ context.Context, id string) (*domain.MailboxConfig, error) {
	if box, ok := r.boxes[id]; ok {
		clone := *box
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (r *memMailboxRepo) ListByTenant(_ context.Context, tenantID string) ([]domain.MailboxConfig, error) {
	var result []domain.MailboxConfig
	for _, box := range r.boxes {
		if box.TenantID == tenantID {
			result = append(result, *box)
		}
	}
	return result, nil
}

func (r *memMailboxRepo) FindDue(context.Context, time.Time) ([]domain.MailboxConfig, error) {
	return nil, nil
}

func (r *memMailboxRepo) MarkPolled(context.Context, string, time.Time) error { return nil }

func newAdminService() (*RoutingAdminService, *memRuleRepo, *memQueueRepo) {
	rules := newMemRuleRepo()
	queues := &memQueueRepo{queues: map[string]*domain.Queue{
		"q-1": {ID: "q-1", TenantID: "tn-1", Name: "Support"},
		"q-x": {ID: "q-x", TenantID: "tn-other", Name: "Foreign"},
	}}
	svc := NewRoutingAdminService(RoutingAdminDeps{
		RuleRepo:    rules,
		QueueRepo:   queues,
		MailboxRepo: &memMailboxRepo{boxes: map[string]*domain.MailboxConfig{}},
		AgentRepo:   &memAgentRepo{agents: map[string]*domain.Agent{"ag-1": testAgent()}},
		Now:         func() time.Time { return serviceNow },
	})
	return svc, rules, queues
}

func validRule() *domain.RoutingRule {
	return &domain.RoutingRule{
		TenantID:   "tn-1",
		QueueID:    "q-1",
		MatchType:  domain.MatchSubjectKeyword,
		Operator:   domain.OperatorContains,
		MatchValue: "invoice",
		SortOrder:  10,
		IsActive:   true,
	}
}

func TestCreateRuleValid(t *testing.T) {
	svc, rules, _ := newAdminService()

	created, err := svc.CreateRule(context.Background(), validRule())
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Len(t, rules.rules, 1)
}

func TestCreateRuleRejectsBadRegex(t *testing.T) {
	svc, _, _ := newAdminService()
	rule := validRule()
	rule.Operator = domain.OperatorRegex
	rule.MatchValue = "urgent[("

	_, err := svc.CreateRule(context.Background(), rule)
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
	assert.Contains(t, de.Details, "match_value")
}

func TestCreateRuleRejectsUnknownOperator(t *testing.T) {
	svc, _, _ := newAdminService()
	rule := validRule()
	rule.Operator = "GREATER_THAN"

	_, err := svc.CreateRule(context.Background(), rule)
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestCreateRuleRejectsForeignQueue(t *testing.T) {
	svc, _, _ := newAdminService()
	rule := validRule()
	rule.QueueID = "q-x"

	_, err := svc.CreateRule(context.Background(), rule)
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", de.Code)
	assert.Contains(t, de.Details, "queue_id")
}

func TestCreateRuleRejectsForeignAgent(t *testing.T) {
	svc, _, _ := newAdminService()
	rule := validRule()
	foreign := "ag-unknown"
	rule.AutoAssignAgentID = &foreign

	_, err := svc.CreateRule(context.Background(), rule)
	require.Error(t, err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "auto_assign_agent_id")
}

func TestUpdateRuleScopedToTenant(t *testing.T) {
	svc, rules, _ := newAdminService()
	created, err := svc.CreateRule(context.Background(), validRule())
	require.NoError(t, err)

	created.TenantID = "tn-other"
	_, err = svc.UpdateRule(context.Background(), created)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
	assert.Equal(t, "tn-1", rules.rules[created.ID].TenantID)
}

func TestCreateMailboxDefaultsPriority(t *testing.T) {
	svc, _, _ := newAdminService()
	box, err := svc.CreateMailbox(context.Background(), &domain.MailboxConfig{
		TenantID:        "tn-1",
		Address:         "help@tenant-one.example",
		PollIntervalSec: 60,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityMedium, box.DefaultPriority)
}

func TestCreateMailboxRejectsBadInterval(t *testing.T) {
	svc, _, _ := newAdminService()
	_, err := svc.CreateMailbox(context.Background(), &domain.MailboxConfig{
		TenantID: "tn-1",
		Address:  "help@tenant-one.example",
	})
	require.Error(t, err)
	assert.Contains(t, apperrors.ToDomainError(err).Details, "poll_interval_sec")
}

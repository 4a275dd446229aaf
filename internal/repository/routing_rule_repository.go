package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/mailroom/internal/domain"
)

// RoutingRuleRepository persists tenant routing rules.
type RoutingRuleRepository interface {
	Create(ctx context.Context, rule *domain.RoutingRule) error
	Update(ctx context.Context, rule *domain.RoutingRule) error
	Delete(ctx context.Context, tenantID, id string) error
	GetByID(ctx context.Context, tenantID, id string) (*domain.RoutingRule, error)
	// ListByTenant returns every rule for the tenant in ascending sort
	// order; the routing engine filters inactive rules itself.
	ListByTenant(ctx context.Context, tenantID string) ([]domain.RoutingRule, error)
}

type routingRuleRepository struct {
	pool *pgxpool.Pool
}

// NewRoutingRuleRepository instantiates repository.
func NewRoutingRuleRepository(pool *pgxpool.Pool) RoutingRuleRepository {
	return &routingRuleRepository{pool: pool}
}

const ruleColumns = `id, tenant_id, queue_id, match_type, match_operator, match_value, sort_order,
       is_active, auto_assign_agent_id, auto_priority, auto_tags, created_at, updated_at`

func (r *routingRuleRepository) Create(ctx context.Context, rule *domain.RoutingRule) error {
	const query = `
        INSERT INTO routing_rules (id, tenant_id, queue_id, match_type, match_operator, match_value,
            sort_order, is_active, auto_assign_agent_id, auto_priority, auto_tags, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`
	_, err := r.pool.Exec(ctx, query,
		rule.ID,
		rule.TenantID,
		rule.QueueID,
		rule.MatchType,
		rule.Operator,
		rule.MatchValue,
		rule.SortOrder,
		rule.IsActive,
		rule.AutoAssignAgentID,
		rule.AutoPriority,
		rule.AutoTags,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	return err
}

func (r *routingRuleRepository) Update(ctx context.Context, rule *domain.RoutingRule) error {
	const query = `
        UPDATE routing_rules SET queue_id=$1, match_type=$2, match_operator=$3, match_value=$4,
            sort_order=$5, is_active=$6, auto_assign_agent_id=$7, auto_priority=$8, auto_tags=$9,
            updated_at=NOW()
        WHERE id=$10 AND tenant_id=$11`
	cmd, err := r.pool.Exec(ctx, query,
		rule.QueueID,
		rule.MatchType,
		rule.Operator,
		rule.MatchValue,
		rule.SortOrder,
		rule.IsActive,
		rule.AutoAssignAgentID,
		rule.AutoPriority,
		rule.AutoTags,
		rule.ID,
		rule.TenantID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *routingRuleRepository) Delete(ctx context.Context, tenantID, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM routing_rules WHERE id=$1 AND tenant_id=$2`, id, tenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *routingRuleRepository) GetByID(ctx context.Context, tenantID, id string) (*domain.RoutingRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM routing_rules WHERE id=$1 AND tenant_id=$2`
	var rule domain.RoutingRule
	if err := r.pool.QueryRow(ctx, query, id, tenantID).Scan(
		&rule.ID,
		&rule.TenantID,
		&rule.QueueID,
		&rule.MatchType,
		&rule.Operator,
		&rule.MatchValue,
		&rule.SortOrder,
		&rule.IsActive,
		&rule.AutoAssignAgentID,
		&rule.AutoPriority,
		&rule.AutoTags,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *routingRuleRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.RoutingRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM routing_rules WHERE tenant_id=$1 ORDER BY sort_order ASC`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.RoutingRule
	for rows.Next() {
		var rule domain.RoutingRule
		if err := rows.Scan(
			&rule.ID,
			&rule.TenantID,
			&rule.QueueID,
			&rule.MatchType,
			&rule.Operator,
			&rule.MatchValue,
			&rule.SortOrder,
			&rule.IsActive,
			&rule.AutoAssignAgentID,
			&rule.AutoPriority,
			&rule.AutoTags,
			&rule.CreatedAt,
			&rule.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, rule)
	}
	return result, rows.Err()
}

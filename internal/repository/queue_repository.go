package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/mailroom/internal/domain"
)

// QueueRepository persists tenant queues. The one-default-per-tenant
// invariant is enforced here: writing a default queue demotes any other
// default in the same transaction.
type QueueRepository interface {
	Create(ctx context.Context, queue *domain.Queue) error
	Update(ctx context.Context, queue *domain.Queue) error
	GetByID(ctx context.Context, id string) (*domain.Queue, error)
	GetDefaultForTenant(ctx context.Context, tenantID string) (*domain.Queue, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.Queue, error)
}

type queueRepository struct {
	pool *pgxpool.Pool
}

// NewQueueRepository instantiates repository.
func NewQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &queueRepository{pool: pool}
}

func (r *queueRepository) Create(ctx context.Context, queue *domain.Queue) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if queue.IsDefault {
		if _, err := tx.Exec(ctx,
			`UPDATE queues SET is_default=FALSE, updated_at=NOW() WHERE tenant_id=$1 AND is_default`,
			queue.TenantID); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO queues (id, tenant_id, name, is_default, created_at, updated_at)
         VALUES ($1,$2,$3,$4,$5,$6)`,
		queue.ID, queue.TenantID, queue.Name, queue.IsDefault, queue.CreatedAt, queue.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *queueRepository) Update(ctx context.Context, queue *domain.Queue) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if queue.IsDefault {
		if _, err := tx.Exec(ctx,
			`UPDATE queues SET is_default=FALSE, updated_at=NOW() WHERE tenant_id=$1 AND is_default AND id<>$2`,
			queue.TenantID, queue.ID); err != nil {
			return err
		}
	}
	cmd, err := tx.Exec(ctx,
		`UPDATE queues SET name=$1, is_default=$2, updated_at=NOW() WHERE id=$3 AND tenant_id=$4`,
		queue.Name, queue.IsDefault, queue.ID, queue.TenantID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func (r *queueRepository) GetByID(ctx context.Context, id string) (*domain.Queue, error) {
	const query = `SELECT id, tenant_id, name, is_default, created_at, updated_at FROM queues WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *queueRepository) GetDefaultForTenant(ctx context.Context, tenantID string) (*domain.Queue, error) {
	const query = `SELECT id, tenant_id, name, is_default, created_at, updated_at
                   FROM queues WHERE tenant_id=$1 AND is_default LIMIT 1`
	return r.fetchSingle(ctx, query, tenantID)
}

func (r *queueRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Queue, error) {
	var queue domain.Queue
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&queue.ID,
		&queue.TenantID,
		&queue.Name,
		&queue.IsDefault,
		&queue.CreatedAt,
		&queue.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &queue, nil
}

func (r *queueRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.Queue, error) {
	const query = `SELECT id, tenant_id, name, is_default, created_at, updated_at
                   FROM queues WHERE tenant_id=$1 ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Queue
	for rows.Next() {
		var queue domain.Queue
		if err := rows.Scan(
			&queue.ID,
			&queue.TenantID,
			&queue.Name,
			&queue.IsDefault,
			&queue.CreatedAt,
			&queue.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, queue)
	}
	return result, rows.Err()
}

package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/mailroom/internal/domain"
)

// MailboxConfigRepository persists polled mailbox configurations.
type MailboxConfigRepository interface {
	Create(ctx context.Context, config *domain.MailboxConfig) error
	Update(ctx context.Context, config *domain.MailboxConfig) error
	GetByID(ctx context.Context, id string) (*domain.MailboxConfig, error)
	ListByTenant(ctx context.Context, tenantID string) ([]domain.MailboxConfig, error)
	// FindDue returns active mailboxes whose poll interval has elapsed.
	FindDue(ctx context.Context, now time.Time) ([]domain.MailboxConfig, error)
	MarkPolled(ctx context.Context, id string, polledAt time.Time) error
}

type mailboxConfigRepository struct {
	pool *pgxpool.Pool
}

// NewMailboxConfigRepository instantiates repository.
func NewMailboxConfigRepository(pool *pgxpool.Pool) MailboxConfigRepository {
	return &mailboxConfigRepository{pool: pool}
}

const mailboxColumns = `id, tenant_id, address, poll_interval_seconds, last_polled_at,
       auto_create_tickets, default_priority, is_active, created_at, updated_at`

func (r *mailboxConfigRepository) Create(ctx context.Context, config *domain.MailboxConfig) error {
	const query = `
        INSERT INTO mailbox_configs (id, tenant_id, address, poll_interval_seconds, last_polled_at,
            auto_create_tickets, default_priority, is_active, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := r.pool.Exec(ctx, query,
		config.ID,
		config.TenantID,
		config.Address,
		config.PollIntervalSec,
		config.LastPolledAt,
		config.AutoCreateTickets,
		config.DefaultPriority,
		config.IsActive,
		config.CreatedAt,
		config.UpdatedAt,
	)
	return err
}

func (r *mailboxConfigRepository) Update(ctx context.Context, config *domain.MailboxConfig) error {
	const query = `
        UPDATE mailbox_configs SET address=$1, poll_interval_seconds=$2, auto_create_tickets=$3,
            default_priority=$4, is_active=$5, updated_at=NOW()
        WHERE id=$6 AND tenant_id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		config.Address,
		config.PollIntervalSec,
		config.AutoCreateTickets,
		config.DefaultPriority,
		config.IsActive,
		config.ID,
		config.TenantID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *mailboxConfigRepository) GetByID(ctx context.Context, id string) (*domain.MailboxConfig, error) {
	query := `SELECT ` + mailboxColumns + ` FROM mailbox_configs WHERE id=$1`
	var config domain.MailboxConfig
	if err := scanMailbox(r.pool.QueryRow(ctx, query, id), &config); err != nil {
		return nil, err
	}
	return &config, nil
}

func (r *mailboxConfigRepository) ListByTenant(ctx context.Context, tenantID string) ([]domain.MailboxConfig, error) {
	query := `SELECT ` + mailboxColumns + ` FROM mailbox_configs WHERE tenant_id=$1 ORDER BY address ASC`
	return r.list(ctx, query, tenantID)
}

func (r *mailboxConfigRepository) FindDue(ctx context.Context, now time.Time) ([]domain.MailboxConfig, error) {
	query := `SELECT ` + mailboxColumns + ` FROM mailbox_configs
        WHERE is_active
          AND (last_polled_at IS NULL
               OR last_polled_at + make_interval(secs => poll_interval_seconds) <= $1)
        ORDER BY last_polled_at ASC NULLS FIRST`
	return r.list(ctx, query, now)
}

func (r *mailboxConfigRepository) MarkPolled(ctx context.Context, id string, polledAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE mailbox_configs SET last_polled_at=$1, updated_at=NOW() WHERE id=$2`, polledAt, id)
	return err
}

func (r *mailboxConfigRepository) list(ctx context.Context, query string, args ...any) ([]domain.MailboxConfig, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MailboxConfig
	for rows.Next() {
		var config domain.MailboxConfig
		if err := scanMailbox(rows, &config); err != nil {
			return nil, err
		}
		result = append(result, config)
	}
	return result, rows.Err()
}

func scanMailbox(row pgx.Row, config *domain.MailboxConfig) error {
	return row.Scan(
		&config.ID,
		&config.TenantID,
		&config.Address,
		&config.PollIntervalSec,
		&config.LastPolledAt,
		&config.AutoCreateTickets,
		&config.DefaultPriority,
		&config.IsActive,
		&config.CreatedAt,
		&config.UpdatedAt,
	)
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/mailroom/internal/domain"
)

// LedgerRepository persists the processing ledger: one write-once row per
// external message id. Exists is the sole duplicate-processing gate.
type LedgerRepository interface {
	Exists(ctx context.Context, externalMessageID string) (bool, error)
	// Record inserts the entry. A concurrent insert for the same external
	// message id loses silently (ON CONFLICT DO NOTHING): rows are never
	// updated once written.
	Record(ctx context.Context, entry *domain.LedgerEntry) error
	GetByExternalMessageID(ctx context.Context, externalMessageID string) (*domain.LedgerEntry, error)
}

type ledgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository instantiates repository.
func NewLedgerRepository(pool *pgxpool.Pool) LedgerRepository {
	return &ledgerRepository{pool: pool}
}

func (r *ledgerRepository) Exists(ctx context.Context, externalMessageID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM processing_ledger WHERE external_message_id=$1)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, externalMessageID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ledgerRepository) Record(ctx context.Context, entry *domain.LedgerEntry) error {
	const query = `
        INSERT INTO processing_ledger (id, external_message_id, outcome, ticket_id, error_detail, processed_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (external_message_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		entry.ID,
		entry.ExternalMessageID,
		entry.Outcome,
		entry.TicketID,
		entry.ErrorDetail,
		entry.ProcessedAt,
	)
	return err
}

func (r *ledgerRepository) GetByExternalMessageID(ctx context.Context, externalMessageID string) (*domain.LedgerEntry, error) {
	const query = `
        SELECT id, external_message_id, outcome, ticket_id, error_detail, processed_at
        FROM processing_ledger WHERE external_message_id=$1`
	var entry domain.LedgerEntry
	if err := r.pool.QueryRow(ctx, query, externalMessageID).Scan(
		&entry.ID,
		&entry.ExternalMessageID,
		&entry.Outcome,
		&entry.TicketID,
		&entry.ErrorDetail,
		&entry.ProcessedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/mailroom/internal/domain"
)

// AttachmentRepository persists attachment metadata. Blob contents live in
// the AttachmentStore; rows here carry the storage handle.
type AttachmentRepository interface {
	Create(ctx context.Context, ref *domain.AttachmentReference) error
	ListByMessage(ctx context.Context, messageID string) ([]domain.AttachmentReference, error)
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository instantiates repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, ref *domain.AttachmentReference) error {
	const query = `
        INSERT INTO ticket_attachments (id, ticket_message_id, storage_key, file_name, mime_type, size_bytes, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := r.pool.Exec(ctx, query,
		ref.ID,
		ref.TicketMessageID,
		ref.StorageKey,
		ref.FileName,
		ref.MimeType,
		ref.SizeBytes,
		ref.CreatedAt,
	)
	return err
}

func (r *attachmentRepository) ListByMessage(ctx context.Context, messageID string) ([]domain.AttachmentReference, error) {
	const query = `
        SELECT id, ticket_message_id, storage_key, file_name, mime_type, size_bytes, created_at
        FROM ticket_attachments WHERE ticket_message_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, messageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AttachmentReference
	for rows.Next() {
		var ref domain.AttachmentReference
		if err := rows.Scan(
			&ref.ID,
			&ref.TicketMessageID,
			&ref.StorageKey,
			&ref.FileName,
			&ref.MimeType,
			&ref.SizeBytes,
			&ref.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ref)
	}
	return result, rows.Err()
}

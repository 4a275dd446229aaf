package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/mailroom/internal/domain"
)

// TicketMessageRepository persists ticket thread messages.
type TicketMessageRepository interface {
	Create(ctx context.Context, message *domain.TicketMessage) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error)
	// FindTicketIDByExternalMessageID resolves any of the given message ids
	// to the ticket of a prior stored message, for thread-reference
	// correlation. Returns pgx.ErrNoRows when none match.
	FindTicketIDByExternalMessageID(ctx context.Context, messageIDs []string) (string, error)
}

type ticketMessageRepository struct {
	pool *pgxpool.Pool
}

// NewTicketMessageRepository instantiates repository.
func NewTicketMessageRepository(pool *pgxpool.Pool) TicketMessageRepository {
	return &ticketMessageRepository{pool: pool}
}

func (r *ticketMessageRepository) Create(ctx context.Context, message *domain.TicketMessage) error {
	const query = `
        INSERT INTO ticket_messages (id, ticket_id, direction, sender_email, sender_name, body,
            external_message_id, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.pool.Exec(ctx, query,
		message.ID,
		message.TicketID,
		message.Direction,
		message.SenderEmail,
		message.SenderName,
		message.Body,
		message.ExternalMessageID,
		message.CreatedAt,
	)
	return err
}

func (r *ticketMessageRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketMessage, error) {
	const query = `
        SELECT id, ticket_id, direction, sender_email, sender_name, body, external_message_id, created_at
        FROM ticket_messages WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketMessage
	for rows.Next() {
		var msg domain.TicketMessage
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.Direction,
			&msg.SenderEmail,
			&msg.SenderName,
			&msg.Body,
			&msg.ExternalMessageID,
			&msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *ticketMessageRepository) FindTicketIDByExternalMessageID(ctx context.Context, messageIDs []string) (string, error) {
	if len(messageIDs) == 0 {
		return "", pgx.ErrNoRows
	}
	const query = `
        SELECT ticket_id FROM ticket_messages
        WHERE external_message_id = ANY($1)
        ORDER BY created_at DESC LIMIT 1`
	var ticketID string
	if err := r.pool.QueryRow(ctx, query, messageIDs).Scan(&ticketID); err != nil {
		return "", err
	}
	return ticketID, nil
}

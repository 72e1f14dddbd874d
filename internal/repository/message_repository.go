package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dormdesk/maintenance-service/internal/domain"
)

// MessageRepository manages the per-ticket conversation log.
type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.Message, error)
}

type messageRepository struct {
	pool *pgxpool.Pool
}

// NewMessageRepository builds repository.
func NewMessageRepository(pool *pgxpool.Pool) MessageRepository {
	return &messageRepository{pool: pool}
}

// Create appends a message and fills in the denormalized sender fields so the
// caller can render it without a second round trip.
func (r *messageRepository) Create(ctx context.Context, msg *domain.Message) error {
	const insertQuery = `
        INSERT INTO ticket_messages (ticket_id, sender_id, body)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	if err := r.pool.QueryRow(ctx, insertQuery,
		msg.TicketID,
		msg.SenderID,
		msg.Body,
	).Scan(&msg.ID, &msg.CreatedAt); err != nil {
		return err
	}

	const senderQuery = `SELECT name, role, avatar FROM users WHERE id=$1`
	return r.pool.QueryRow(ctx, senderQuery, msg.SenderID).Scan(
		&msg.SenderName,
		&msg.SenderRole,
		&msg.SenderAvatar,
	)
}

func (r *messageRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.Message, error) {
	const query = `
        SELECT m.id, m.ticket_id, m.sender_id, m.body, m.created_at,
               u.name, u.role, u.avatar
        FROM ticket_messages m
        JOIN users u ON m.sender_id = u.id
        WHERE m.ticket_id=$1
        ORDER BY m.created_at ASC, m.id ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.TicketID,
			&msg.SenderID,
			&msg.Body,
			&msg.CreatedAt,
			&msg.SenderName,
			&msg.SenderRole,
			&msg.SenderAvatar,
		); err != nil {
			return nil, err
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

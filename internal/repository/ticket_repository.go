package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dormdesk/maintenance-service/internal/domain"
)

// TicketFilter captures the role-scoped listing rules: residents see their
// own tickets, technicians see unassigned tickets plus their own, admins see
// everything (zero filter).
type TicketFilter struct {
	CreatedBy            *int64
	AssignedOrUnassigned *int64
}

// TicketRepository encapsulates ticket persistence.
//
// Mutate is the single write path for lifecycle transitions: it locks the
// ticket row, runs fn against the current state and persists the result in
// one transaction, so concurrent transition attempts on the same ticket
// serialize and the loser of a race sees the winner's state. Delete takes
// the same lock and runs guard against the current state before removing
// the row, so a delete racing a transition cannot remove a ticket its
// precondition no longer holds for.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id int64) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	Mutate(ctx context.Context, id int64, fn func(*domain.Ticket) error) (*domain.Ticket, error)
	Delete(ctx context.Context, id int64, guard func(*domain.Ticket) error) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketJoinedColumns = `
        t.id, t.title, t.description, t.room_number, t.created_by, t.technician_id,
        t.status, t.image_before, t.image_after, t.rating, t.review, t.cancel_reason,
        t.created_at, u1.name AS creator_name, u2.name AS technician_name`

const ticketJoinedFrom = `
        FROM tickets t
        LEFT JOIN users u1 ON t.created_by = u1.id
        LEFT JOIN users u2 ON t.technician_id = u2.id`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, description, room_number, created_by, image_before)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, status, created_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Title,
		ticket.Description,
		ticket.RoomNumber,
		ticket.CreatedBy,
		ticket.ImageBefore,
	).Scan(&ticket.ID, &ticket.Status, &ticket.CreatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id int64) (*domain.Ticket, error) {
	query := `SELECT` + ticketJoinedColumns + ticketJoinedFrom + ` WHERE t.id=$1`

	var ticket domain.Ticket
	var creatorName *string
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.RoomNumber,
		&ticket.CreatedBy,
		&ticket.TechnicianID,
		&ticket.Status,
		&ticket.ImageBefore,
		&ticket.ImageAfter,
		&ticket.Rating,
		&ticket.Review,
		&ticket.CancelReason,
		&ticket.CreatedAt,
		&creatorName,
		&ticket.TechnicianName,
	); err != nil {
		return nil, err
	}
	if creatorName != nil {
		ticket.CreatorName = *creatorName
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT` + ticketJoinedColumns + ticketJoinedFrom
	clauses := []string{}
	args := []any{}

	if filter.CreatedBy != nil {
		args = append(args, *filter.CreatedBy)
		clauses = append(clauses, fmt.Sprintf("t.created_by=$%d", len(args)))
	}
	if filter.AssignedOrUnassigned != nil {
		args = append(args, *filter.AssignedOrUnassigned)
		clauses = append(clauses, fmt.Sprintf("(t.technician_id=$%d OR t.technician_id IS NULL)", len(args)))
	}

	query := base
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY t.created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		var creatorName *string
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Description,
			&ticket.RoomNumber,
			&ticket.CreatedBy,
			&ticket.TechnicianID,
			&ticket.Status,
			&ticket.ImageBefore,
			&ticket.ImageAfter,
			&ticket.Rating,
			&ticket.Review,
			&ticket.CancelReason,
			&ticket.CreatedAt,
			&creatorName,
			&ticket.TechnicianName,
		); err != nil {
			return nil, err
		}
		if creatorName != nil {
			ticket.CreatorName = *creatorName
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func (r *ticketRepository) Mutate(ctx context.Context, id int64, fn func(*domain.Ticket) error) (*domain.Ticket, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ticket, err := lockTicket(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(ticket); err != nil {
		return nil, err
	}

	const updateQuery = `
        UPDATE tickets SET technician_id=$1, status=$2, image_after=$3,
            rating=$4, review=$5, cancel_reason=$6
        WHERE id=$7`
	if _, err := tx.Exec(ctx, updateQuery,
		ticket.TechnicianID,
		ticket.Status,
		ticket.ImageAfter,
		ticket.Rating,
		ticket.Review,
		ticket.CancelReason,
		ticket.ID,
	); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id int64, guard func(*domain.Ticket) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	ticket, err := lockTicket(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := guard(ticket); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, ticket.ID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// lockTicket reads one ticket row under FOR UPDATE, blocking other
// transition or delete attempts on the same row until the caller commits.
func lockTicket(ctx context.Context, tx pgx.Tx, id int64) (*domain.Ticket, error) {
	const lockQuery = `
        SELECT id, title, description, room_number, created_by, technician_id,
               status, image_before, image_after, rating, review, cancel_reason, created_at
        FROM tickets WHERE id=$1 FOR UPDATE`

	var ticket domain.Ticket
	if err := tx.QueryRow(ctx, lockQuery, id).Scan(
		&ticket.ID,
		&ticket.Title,
		&ticket.Description,
		&ticket.RoomNumber,
		&ticket.CreatedBy,
		&ticket.TechnicianID,
		&ticket.Status,
		&ticket.ImageBefore,
		&ticket.ImageAfter,
		&ticket.Rating,
		&ticket.Review,
		&ticket.CancelReason,
		&ticket.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

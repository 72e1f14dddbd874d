package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dormdesk/maintenance-service/internal/domain"
)

// ReportRepository reads ticket history for the aggregation service. It never
// writes; rating statistics are folded in Go so the computation is testable
// against an in-memory fake.
type ReportRepository interface {
	TechnicianAssignments(ctx context.Context) ([]domain.TechnicianAssignment, error)
	ReviewsByTechnician(ctx context.Context, technicianID int64) ([]domain.TechnicianReview, error)
}

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository instantiates the repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

func (r *reportRepository) TechnicianAssignments(ctx context.Context) ([]domain.TechnicianAssignment, error) {
	const query = `
        SELECT technician_id, rating
        FROM tickets
        WHERE technician_id IS NOT NULL`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TechnicianAssignment
	for rows.Next() {
		var row domain.TechnicianAssignment
		if err := rows.Scan(&row.TechnicianID, &row.Rating); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func (r *reportRepository) ReviewsByTechnician(ctx context.Context, technicianID int64) ([]domain.TechnicianReview, error) {
	const query = `
        SELECT t.id, t.title, t.room_number, t.rating, t.review, u.name, t.created_at
        FROM tickets t
        JOIN users u ON t.created_by = u.id
        WHERE t.technician_id=$1 AND t.rating IS NOT NULL
        ORDER BY t.created_at DESC`
	rows, err := r.pool.Query(ctx, query, technicianID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TechnicianReview
	for rows.Next() {
		var review domain.TechnicianReview
		if err := rows.Scan(
			&review.TicketID,
			&review.Title,
			&review.RoomNumber,
			&review.Rating,
			&review.Review,
			&review.ReviewerName,
			&review.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, review)
	}
	return result, rows.Err()
}

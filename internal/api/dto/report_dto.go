package dto

import (
	"time"

	"github.com/dormdesk/maintenance-service/internal/domain"
)

// TechnicianRatingResponse is one leaderboard row.
type TechnicianRatingResponse struct {
	TechnicianID int64    `json:"technician_id"`
	Name         string   `json:"name"`
	TotalRatings int      `json:"total_ratings"`
	AvgRating    *float64 `json:"avg_rating"`
	TotalTickets int      `json:"total_tickets"`
}

// NewTechnicianRatingResponse maps one aggregate row.
func NewTechnicianRatingResponse(r domain.TechnicianRating) TechnicianRatingResponse {
	return TechnicianRatingResponse{
		TechnicianID: r.TechnicianID,
		Name:         r.Name,
		TotalRatings: r.TotalRatings,
		AvgRating:    r.AvgRating,
		TotalTickets: r.TotalTickets,
	}
}

// TechnicianReviewResponse is one written review of a resolved ticket.
type TechnicianReviewResponse struct {
	TicketID     int64     `json:"ticket_id"`
	Title        string    `json:"title"`
	RoomNumber   *string   `json:"room_number"`
	Rating       int16     `json:"rating"`
	Review       *string   `json:"review"`
	ReviewerName string    `json:"reviewer_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewTechnicianReviewResponse maps one review row.
func NewTechnicianReviewResponse(r domain.TechnicianReview) TechnicianReviewResponse {
	return TechnicianReviewResponse{
		TicketID:     r.TicketID,
		Title:        r.Title,
		RoomNumber:   r.RoomNumber,
		Rating:       r.Rating,
		Review:       r.Review,
		ReviewerName: r.ReviewerName,
		CreatedAt:    r.CreatedAt,
	}
}

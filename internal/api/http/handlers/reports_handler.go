package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/dormdesk/maintenance-service/internal/api/dto"
	"github.com/dormdesk/maintenance-service/internal/service"
)

// ReportsHandler serves the technician performance views.
type ReportsHandler struct {
	service *service.ReportService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reportService *service.ReportService) *ReportsHandler {
	return &ReportsHandler{service: reportService}
}

// TechnicianRatings GET /technician-ratings. Leaderboard ordered by average
// rating, every technician included.
func (h *ReportsHandler) TechnicianRatings(c *fiber.Ctx) error {
	if _, err := requireCaller(c); err != nil {
		return err
	}
	ratings, err := h.service.TechnicianRatings(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.TechnicianRatingResponse, 0, len(ratings))
	for _, r := range ratings {
		items = append(items, dto.NewTechnicianRatingResponse(r))
	}
	return c.JSON(fiber.Map{"data": items})
}

// TechnicianReviews GET /technicians/:id/reviews.
func (h *ReportsHandler) TechnicianReviews(c *fiber.Ctx) error {
	if _, err := requireCaller(c); err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	reviews, err := h.service.TechnicianReviews(c.UserContext(), id)
	if err != nil {
		return err
	}
	items := make([]dto.TechnicianReviewResponse, 0, len(reviews))
	for _, r := range reviews {
		items = append(items, dto.NewTechnicianReviewResponse(r))
	}
	return c.JSON(fiber.Map{"data": items})
}

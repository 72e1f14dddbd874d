package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/dormdesk/maintenance-service/internal/api/dto"
	"github.com/dormdesk/maintenance-service/internal/auth"
	"github.com/dormdesk/maintenance-service/internal/domain"
	"github.com/dormdesk/maintenance-service/internal/service"
	"github.com/dormdesk/maintenance-service/internal/storage"
	apperrors "github.com/dormdesk/maintenance-service/pkg/util"
)

// TicketsHandler manages ticket lifecycle and thread endpoints.
type TicketsHandler struct {
	tickets  *service.TicketService
	messages *service.MessageService
	uploads  *storage.Store
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService, messageService *service.MessageService, uploads *storage.Store) *TicketsHandler {
	return &TicketsHandler{tickets: ticketService, messages: messageService, uploads: uploads}
}

// CreateTicket POST /tickets. Accepts multipart form data with an optional
// image_before attachment, or a plain JSON body.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}

	input := service.TicketCreateInput{}
	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return apperrors.NewValidationError("invalid form payload", nil)
		}
		input.Title = formValue(form.Value, "title")
		input.Description = formValuePtr(form.Value, "description")
		input.RoomNumber = formValuePtr(form.Value, "room_number")
		if files := form.File["image_before"]; len(files) > 0 {
			path, err := h.uploads.SaveMultipart(files[0])
			if err != nil {
				return apperrors.MapError(err)
			}
			input.ImageBefore = &path
		}
	} else {
		var req dto.CreateTicketRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		input.Title = req.Title
		input.Description = req.Description
		input.RoomNumber = req.RoomNumber
	}

	ticket, err := h.tickets.CreateTicket(c.UserContext(), caller, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	tickets, err := h.tickets.ListTickets(c.UserContext(), caller)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	if _, err := requireCaller(c); err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	ticket, err := h.tickets.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// UpdateTicket PUT /tickets/:id. One partial-update endpoint carries every
// lifecycle transition; which one is meant is inferred from the fields
// present. Resolve arrives as multipart because of the image_after proof.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}

	var patch service.TicketPatch
	if isMultipart(c) {
		patch, err = h.parseMultipartPatch(c)
	} else {
		patch, err = parseJSONPatch(c)
	}
	if err != nil {
		return err
	}

	ticket, err := h.tickets.UpdateTicket(c.UserContext(), caller, id, patch)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.tickets.DeleteTicket(c.UserContext(), caller, id); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"deleted": id}})
}

// ListMessages GET /tickets/:id/messages.
func (h *TicketsHandler) ListMessages(c *fiber.Ctx) error {
	if _, err := requireCaller(c); err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	msgs, err := h.messages.List(c.UserContext(), id)
	if err != nil {
		return err
	}
	items := make([]dto.MessageResponse, 0, len(msgs))
	for i := range msgs {
		items = append(items, dto.NewMessageResponse(&msgs[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// PostMessage POST /tickets/:id/messages.
func (h *TicketsHandler) PostMessage(c *fiber.Ctx) error {
	caller, err := requireCaller(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.CreateMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	msg, err := h.messages.Post(c.UserContext(), caller, id, req.Message)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewMessageResponse(msg)})
}

func parseJSONPatch(c *fiber.Ctx) (service.TicketPatch, error) {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return service.TicketPatch{}, apperrors.NewValidationError("invalid payload", nil)
	}

	patch := service.TicketPatch{
		Rating:       req.Rating,
		Review:       req.Review,
		CancelReason: req.CancelReason,
	}
	if req.Status != nil {
		status := domain.TicketStatus(*req.Status)
		if !status.Valid() {
			return service.TicketPatch{}, apperrors.NewValidationError("unknown status", map[string]any{"status": *req.Status})
		}
		patch.Status = &status
	}
	if req.TechnicianID.Set {
		patch.Technician.Set = true
		if req.TechnicianID.Valid {
			id := int64(req.TechnicianID.Value)
			patch.Technician.ID = &id
		}
	}
	return patch, nil
}

// parseMultipartPatch builds a patch from form fields; a key being present in
// the form is what marks the field as part of the patch.
func (h *TicketsHandler) parseMultipartPatch(c *fiber.Ctx) (service.TicketPatch, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return service.TicketPatch{}, apperrors.NewValidationError("invalid form payload", nil)
	}

	patch := service.TicketPatch{}
	if vals, ok := form.Value["status"]; ok && len(vals) > 0 {
		status := domain.TicketStatus(strings.TrimSpace(vals[0]))
		if !status.Valid() {
			return service.TicketPatch{}, apperrors.NewValidationError("unknown status", map[string]any{"status": vals[0]})
		}
		patch.Status = &status
	}
	if vals, ok := form.Value["technician_id"]; ok && len(vals) > 0 {
		patch.Technician.Set = true
		raw := strings.TrimSpace(vals[0])
		if raw != "" && raw != "null" {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return service.TicketPatch{}, apperrors.NewValidationError("technician_id must be numeric", nil)
			}
			patch.Technician.ID = &id
		}
	}
	if vals, ok := form.Value["rating"]; ok && len(vals) > 0 {
		rating, err := strconv.Atoi(strings.TrimSpace(vals[0]))
		if err != nil {
			return service.TicketPatch{}, apperrors.NewValidationError("rating must be numeric", nil)
		}
		patch.Rating = &rating
	}
	if val := formValuePtr(form.Value, "review"); val != nil {
		patch.Review = val
	}
	if val := formValuePtr(form.Value, "cancel_reason"); val != nil {
		patch.CancelReason = val
	}
	if files := form.File["image_after"]; len(files) > 0 {
		path, err := h.uploads.SaveMultipart(files[0])
		if err != nil {
			return service.TicketPatch{}, apperrors.MapError(err)
		}
		patch.ImageAfter = &path
	}
	return patch, nil
}

func requireCaller(c *fiber.Ctx) (service.Caller, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return service.Caller{}, apperrors.NewUnauthorized("user required")
	}
	return service.Caller{ID: principal.User.ID, Role: principal.User.Role}, nil
}

func parseID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm)
}

func formValue(values map[string][]string, key string) string {
	if vals, ok := values[key]; ok && len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// formValuePtr returns nil for an absent or blank form key.
func formValuePtr(values map[string][]string, key string) *string {
	vals, ok := values[key]
	if !ok || len(vals) == 0 {
		return nil
	}
	trimmed := strings.TrimSpace(vals[0])
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

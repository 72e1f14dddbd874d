package dto

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/dormdesk/maintenance-service/internal/domain"
)

// Optional wraps a patch field so the three cases stay distinguishable after
// decoding: absent (Set=false), explicit null (Set=true, Valid=false), and a
// value (Set=true, Valid=true).
type Optional[T any] struct {
	Set   bool
	Valid bool
	Value T
}

// UnmarshalJSON is only invoked for present fields, so Set is always true
// here; absent fields keep the zero Optional.
func (o *Optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(b, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// TechID decodes from either a JSON number or a quoted string; clients send
// both forms.
type TechID int64

func (t *TechID) UnmarshalJSON(b []byte) error {
	s := string(bytes.Trim(bytes.TrimSpace(b), `"`))
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*t = TechID(v)
	return nil
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description"`
	RoomNumber  *string `json:"room_number"`
}

// UpdateTicketRequest is the single partial-update payload through which
// accept, assign, cancel, resolve and rate are all expressed.
type UpdateTicketRequest struct {
	Status       *string          `json:"status"`
	TechnicianID Optional[TechID] `json:"technician_id"`
	Rating       *int             `json:"rating"`
	Review       *string          `json:"review"`
	CancelReason *string          `json:"cancel_reason"`
}

// TicketResponse is the full ticket view, with denormalized names.
type TicketResponse struct {
	ID             int64               `json:"id"`
	Title          string              `json:"title"`
	Description    *string             `json:"description"`
	RoomNumber     *string             `json:"room_number"`
	CreatedBy      int64               `json:"created_by"`
	CreatorName    string              `json:"creator_name"`
	TechnicianID   *int64              `json:"technician_id"`
	TechnicianName *string             `json:"technician_name"`
	Status         domain.TicketStatus `json:"status"`
	ImageBefore    *string             `json:"image_before"`
	ImageAfter     *string             `json:"image_after"`
	Rating         *int16              `json:"rating"`
	Review         *string             `json:"review"`
	CancelReason   *string             `json:"cancel_reason"`
	CreatedAt      time.Time           `json:"created_at"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(ticket *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:             ticket.ID,
		Title:          ticket.Title,
		Description:    ticket.Description,
		RoomNumber:     ticket.RoomNumber,
		CreatedBy:      ticket.CreatedBy,
		CreatorName:    ticket.CreatorName,
		TechnicianID:   ticket.TechnicianID,
		TechnicianName: ticket.TechnicianName,
		Status:         ticket.Status,
		ImageBefore:    ticket.ImageBefore,
		ImageAfter:     ticket.ImageAfter,
		Rating:         ticket.Rating,
		Review:         ticket.Review,
		CancelReason:   ticket.CancelReason,
		CreatedAt:      ticket.CreatedAt,
	}
}

// CreateMessageRequest payload; the field name matches the polling clients.
type CreateMessageRequest struct {
	Message string `json:"message"`
}

// MessageResponse is one thread entry with denormalized sender fields.
type MessageResponse struct {
	ID           int64       `json:"id"`
	TicketID     int64       `json:"ticket_id"`
	SenderID     int64       `json:"sender_id"`
	Message      string      `json:"message"`
	SenderName   string      `json:"sender_name"`
	SenderRole   domain.Role `json:"sender_role"`
	SenderAvatar *string     `json:"sender_avatar"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NewMessageResponse maps a domain message.
func NewMessageResponse(msg *domain.Message) MessageResponse {
	return MessageResponse{
		ID:           msg.ID,
		TicketID:     msg.TicketID,
		SenderID:     msg.SenderID,
		Message:      msg.Body,
		SenderName:   msg.SenderName,
		SenderRole:   msg.SenderRole,
		SenderAvatar: msg.SenderAvatar,
		CreatedAt:    msg.CreatedAt,
	}
}

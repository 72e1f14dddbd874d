package events

import (
	"time"

	"github.com/dormdesk/maintenance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketRated         EventType = "ticket_rated"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventMessagePosted       EventType = "message_posted"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	ActorID   int64       `json:"actor_id"`
	ActorRole domain.Role `json:"actor_role"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title      string  `json:"title"`
	RoomNumber *string `json:"room_number,omitempty"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	TechnicianID *int64              `json:"technician_id,omitempty"`
	CancelReason *string             `json:"cancel_reason,omitempty"`
}

// TicketRatedPayload payload.
type TicketRatedPayload struct {
	TechnicianID int64 `json:"technician_id"`
	Rating       int16 `json:"rating"`
}

// MessagePostedPayload payload.
type MessagePostedPayload struct {
	MessageID   int64  `json:"message_id"`
	BodyPreview string `json:"body_preview"`
}

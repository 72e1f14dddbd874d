package service

import (
	"context"
	"strings"

	"github.com/dormdesk/maintenance-service/internal/domain"
	"github.com/dormdesk/maintenance-service/internal/events"
	"github.com/dormdesk/maintenance-service/internal/repository"
	apperrors "github.com/dormdesk/maintenance-service/pkg/util"
)

// MessageService manages the append-only per-ticket conversation log.
type MessageService struct {
	messages   repository.MessageRepository
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// NewMessageService constructs the service.
func NewMessageService(messages repository.MessageRepository, tickets repository.TicketRepository, dispatcher events.Dispatcher) *MessageService {
	return &MessageService{messages: messages, tickets: tickets, dispatcher: dispatcher}
}

// Post appends a message to a ticket's thread. The stored message comes back
// with denormalized sender fields so a polling client can render it directly.
func (s *MessageService) Post(ctx context.Context, caller Caller, ticketID int64, body string) (*domain.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message body required", nil)
	}
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, mapTicketLookup(err, ticketID)
	}

	msg := &domain.Message{
		TicketID: ticketID,
		SenderID: caller.ID,
		Body:     body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, apperrors.MapError(err)
	}

	publishEvent(ctx, s.dispatcher, caller, events.Event{
		Type:     events.EventMessagePosted,
		TicketID: ticketID,
		Payload: events.MessagePostedPayload{
			MessageID:   msg.ID,
			BodyPreview: bodyPreview(msg.Body, 120),
		},
	})
	return msg, nil
}

// List returns a ticket's messages in ascending chronological order. The read
// is idempotent and repeatable, which is all the polling clients need.
func (s *MessageService) List(ctx context.Context, ticketID int64) ([]domain.Message, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, mapTicketLookup(err, ticketID)
	}
	msgs, err := s.messages.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return msgs, nil
}

// bodyPreview truncates on rune boundaries so multi-byte text never ends up
// as a broken UTF-8 fragment in the event payload.
func bodyPreview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

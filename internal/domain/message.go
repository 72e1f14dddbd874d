package domain

import "time"

// Message is one entry in a ticket's conversation thread. The log is
// append-only and ordered by creation time ascending.
type Message struct {
	ID        int64
	TicketID  int64
	SenderID  int64
	Body      string
	CreatedAt time.Time

	// Denormalized sender fields for display on polling clients.
	SenderName   string
	SenderRole   Role
	SenderAvatar *string
}

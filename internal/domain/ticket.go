package domain

import "time"

// TicketStatus enumerates lifecycle states for maintenance tickets.
// The values are stored and sent over the wire verbatim; clients match on
// them, so they are part of the API contract.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "Pending"
	TicketStatusInProgress TicketStatus = "In-Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
)

// Valid reports whether the status is one of the known values.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusResolved:
		return true
	}
	return false
}

// Ticket is the aggregate for a single maintenance request.
//
// CreatedBy and ImageBefore are immutable after creation. TechnicianID is
// non-nil only while the ticket is In-Progress or Resolved. Rating is set at
// most once and only on a Resolved ticket.
type Ticket struct {
	ID           int64
	Title        string
	Description  *string
	RoomNumber   *string
	CreatedBy    int64
	TechnicianID *int64
	Status       TicketStatus
	ImageBefore  *string
	ImageAfter   *string
	Rating       *int16
	Review       *string
	CancelReason *string
	CreatedAt    time.Time

	// Denormalized on read for display; never written back.
	CreatorName    string
	TechnicianName *string
}

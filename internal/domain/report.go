package domain

import "time"

// TechnicianRating summarizes one technician's rating history. AvgRating is
// nil when the technician has no rated tickets yet.
type TechnicianRating struct {
	TechnicianID int64
	Name         string
	TotalRatings int
	AvgRating    *float64
	TotalTickets int
}

// TechnicianReview is one rated ticket as seen on a technician's review page.
type TechnicianReview struct {
	TicketID     int64
	Title        string
	RoomNumber   *string
	Rating       int16
	Review       *string
	ReviewerName string
	CreatedAt    time.Time
}

// TechnicianAssignment is one ticket ever assigned to a technician, rated or
// not. The aggregation service folds these into TechnicianRating rows.
type TechnicianAssignment struct {
	TechnicianID int64
	Rating       *int16
}

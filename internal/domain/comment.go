package domain

import "time"

// Comment is an append-only note in a ticket thread. Internal comments are
// staff-only.
type Comment struct {
	ID         string
	TicketID   string
	Author     *string
	Body       string
	IsInternal bool
	CreatedAt  time.Time
}

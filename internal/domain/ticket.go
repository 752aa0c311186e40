package domain

import "time"

// TicketIDPrefix precedes the counter value in every ticket id.
const TicketIDPrefix = "ST-"

// TicketType categorizes a support request.
type TicketType string

const (
	TicketTypeTechnical TicketType = "Technical"
	TicketTypeBilling   TicketType = "Billing"
	TicketTypeOther     TicketType = "Other"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Med"
	TicketPriorityHigh   TicketPriority = "High"
)

// TicketStatus enumerates lifecycle states for tickets. Any status may
// follow any other; Resolved tickets can be reopened.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "Pending"
	TicketStatusInProgress TicketStatus = "In Progress"
	TicketStatusResolved   TicketStatus = "Resolved"
	TicketStatusUnassigned TicketStatus = "Unassigned"
)

var (
	TicketTypes      = []TicketType{TicketTypeTechnical, TicketTypeBilling, TicketTypeOther}
	TicketPriorities = []TicketPriority{TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh}
	TicketStatuses   = []TicketStatus{TicketStatusPending, TicketStatusInProgress, TicketStatusResolved, TicketStatusUnassigned}
)

func (t TicketType) Valid() bool {
	for _, candidate := range TicketTypes {
		if t == candidate {
			return true
		}
	}
	return false
}

func (p TicketPriority) Valid() bool {
	for _, candidate := range TicketPriorities {
		if p == candidate {
			return true
		}
	}
	return false
}

func (s TicketStatus) Valid() bool {
	for _, candidate := range TicketStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID          string
	Subject     string
	Description string
	Type        TicketType
	Priority    TicketPriority
	Status      TicketStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

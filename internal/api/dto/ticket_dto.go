package dto

import (
	"time"

	"github.com/mmaxwell0637/safetrack-fe/internal/domain"
	"github.com/mmaxwell0637/safetrack-fe/internal/service"
)

// CreateTicketRequest payload. Category is accepted for older clients.
type CreateTicketRequest struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Priority    string `json:"priority"`
}

// ToInput maps the request onto the service input.
func (r CreateTicketRequest) ToInput() service.TicketCreateInput {
	return service.TicketCreateInput{
		Subject:     r.Subject,
		Description: r.Description,
		Type:        r.Type,
		Category:    r.Category,
		Priority:    r.Priority,
	}
}

// UpdateTicketRequest payload for PATCH.
type UpdateTicketRequest struct {
	Status string `json:"status"`
}

// TicketListQuery captures query filters for the list endpoint.
type TicketListQuery struct {
	Q      string `query:"q"`
	Status string `query:"status"`
	Type   string `query:"type"`
}

// ToFilter maps the query onto the service filter.
func (q TicketListQuery) ToFilter() service.TicketListFilter {
	return service.TicketListFilter{Query: q.Q, Status: q.Status, Type: q.Type}
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Body       string  `json:"body"`
	IsInternal bool    `json:"is_internal"`
	Author     *string `json:"author"`
}

// ToInput maps the request onto the service input.
func (r CreateCommentRequest) ToInput() service.CommentCreateInput {
	return service.CommentCreateInput{
		Body:       r.Body,
		IsInternal: r.IsInternal,
		Author:     r.Author,
	}
}

// TicketResponse is the wire form of a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	Subject     string                `json:"subject"`
	Description string                `json:"description"`
	Type        domain.TicketType     `json:"type"`
	Priority    domain.TicketPriority `json:"priority"`
	Status      domain.TicketStatus   `json:"status"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// CommentResponse is the wire form of a comment.
type CommentResponse struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	Author     *string   `json:"author"`
	Body       string    `json:"body"`
	IsInternal bool      `json:"is_internal"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TicketResponseFrom converts a domain ticket.
func TicketResponseFrom(t domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		Subject:     t.Subject,
		Description: t.Description,
		Type:        t.Type,
		Priority:    t.Priority,
		Status:      t.Status,
		CreatedAt:   t.CreatedAt.UTC(),
		UpdatedAt:   t.UpdatedAt.UTC(),
	}
}

// TicketResponses converts a list, never returning nil.
func TicketResponses(tickets []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketResponseFrom(t))
	}
	return out
}

// CommentResponseFrom converts a domain comment.
func CommentResponseFrom(c domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		TicketID:   c.TicketID,
		Author:     c.Author,
		Body:       c.Body,
		IsInternal: c.IsInternal,
		CreatedAt:  c.CreatedAt.UTC(),
	}
}

// CommentResponses converts a list, never returning nil.
func CommentResponses(comments []domain.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, CommentResponseFrom(c))
	}
	return out
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmaxwell0637/safetrack-fe/internal/domain"
	"github.com/mmaxwell0637/safetrack-fe/internal/events"
	"github.com/mmaxwell0637/safetrack-fe/internal/repository"
)

// TicketService coordinates ticket workflows.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	allocator  *IdentifierAllocator
	dispatcher events.Dispatcher
	validate   *validator.Validate
	logger     *zap.Logger
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	CounterRepo repository.CounterRepository
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// TicketCreateInput is the raw creation payload. Category is the legacy
// name for Type and is only consulted when Type is empty.
type TicketCreateInput struct {
	Subject     string
	Description string
	Type        string
	Category    string
	Priority    string
}

// TicketListFilter describes listing filters; empty values match everything.
type TicketListFilter struct {
	Query  string
	Status string
	Type   string
}

// CommentCreateInput is the raw comment payload.
type CommentCreateInput struct {
	Body       string
	IsInternal bool
	Author     *string
}

// ticketFields is the normalized form validated before anything is written.
type ticketFields struct {
	Subject     string                `json:"subject" validate:"min=3"`
	Description string                `json:"description" validate:"min=5"`
	Type        domain.TicketType     `json:"type" validate:"required,ticket_type"`
	Priority    domain.TicketPriority `json:"priority" validate:"ticket_priority"`
}

type statusFields struct {
	Status domain.TicketStatus `json:"status" validate:"required,ticket_status"`
}

type commentFields struct {
	Body string `json:"body" validate:"min=1"`
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		allocator:  NewIdentifierAllocator(deps.CounterRepo),
		dispatcher: deps.Dispatcher,
		validate:   newValidator(),
		logger:     logger,
	}
}

// normalizeTicketInput trims strings, resolves the type/category synonym and
// applies the default priority.
func normalizeTicketInput(input TicketCreateInput) ticketFields {
	chosenType := strings.TrimSpace(input.Type)
	if chosenType == "" {
		chosenType = strings.TrimSpace(input.Category)
	}
	priority := strings.TrimSpace(input.Priority)
	if priority == "" {
		priority = string(domain.TicketPriorityLow)
	}
	return ticketFields{
		Subject:     strings.TrimSpace(input.Subject),
		Description: strings.TrimSpace(input.Description),
		Type:        domain.TicketType(chosenType),
		Priority:    domain.TicketPriority(priority),
	}
}

// CreateTicket validates the payload, allocates an id and stores the ticket.
// An id allocated for an insert that then fails is not reused.
func (s *TicketService) CreateTicket(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	fields := normalizeTicketInput(input)
	if err := validateStruct(s.validate, fields); err != nil {
		return nil, err
	}

	id, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		ID:          id,
		Subject:     fields.Subject,
		Description: fields.Description,
		Type:        fields.Type,
		Priority:    fields.Priority,
		Status:      domain.TicketStatusPending,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		s.logger.Warn("ticket insert failed; id discarded", zap.String("ticket_id", id), zap.Error(err))
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Payload: events.TicketCreatedPayload{
			Subject:  ticket.Subject,
			Type:     ticket.Type,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// ListTickets returns tickets newest first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	return s.tickets.List(ctx, repository.TicketFilter{
		Query:  strings.TrimSpace(filter.Query),
		Status: domain.TicketStatus(strings.TrimSpace(filter.Status)),
		Type:   domain.TicketType(strings.TrimSpace(filter.Type)),
	})
}

// GetTicket fetches one ticket.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.tickets.GetByID(ctx, ticketID)
}

// UpdateStatus moves a ticket to any status. There are no forbidden
// transitions.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID, status string) (*domain.Ticket, error) {
	fields := statusFields{Status: domain.TicketStatus(strings.TrimSpace(status))}
	if err := validateStruct(s.validate, fields); err != nil {
		return nil, err
	}

	current, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ticket, err := s.tickets.UpdateStatus(ctx, ticketID, fields.Status)
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Payload: events.TicketStatusChangedPayload{
			OldStatus: current.Status,
			NewStatus: ticket.Status,
		},
	})
	return ticket, nil
}

// ListComments returns the thread oldest first. The ticket is not required
// to exist.
func (s *TicketService) ListComments(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	return s.comments.ListByTicket(ctx, ticketID)
}

// AddComment appends a comment to a ticket thread. A blank author is stored
// as absent.
func (s *TicketService) AddComment(ctx context.Context, ticketID string, input CommentCreateInput) (*domain.Comment, error) {
	fields := commentFields{Body: strings.TrimSpace(input.Body)}
	if err := validateStruct(s.validate, fields); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID:   ticketID,
		Body:       fields.Body,
		IsInternal: input.IsInternal,
	}
	if input.Author != nil {
		if author := strings.TrimSpace(*input.Author); author != "" {
			comment.Author = &author
		}
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticketID,
		Payload: events.TicketCommentAddedPayload{
			CommentID:   comment.ID,
			Author:      comment.Author,
			IsInternal:  comment.IsInternal,
			BodyPreview: stringPreview(comment.Body, 120),
		},
	})
	return comment, nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func stringPreview(body string, max int) string {
	runes := []rune(strings.TrimSpace(body))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

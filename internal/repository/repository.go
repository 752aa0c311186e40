package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/mmaxwell0637/safetrack-fe/internal/domain"
	apperrors "github.com/mmaxwell0637/safetrack-fe/pkg/util/errorutil"
)

// TicketFilter captures list parameters. Empty fields do not filter.
type TicketFilter struct {
	Query  string
	Status domain.TicketStatus
	Type   domain.TicketType
}

// CounterRepository hands out values from named monotonic counters.
type CounterRepository interface {
	// Increment atomically advances the counter stored under key and returns
	// the new value. A missing counter is treated as holding start.
	Increment(ctx context.Context, key string, start int64) (int64, error)
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error)
}

// CommentRepository is an append-only store of ticket comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error)
}

func ticketNotFound(id string) error {
	return apperrors.NewNotFound("ticket", map[string]any{"id": id})
}

// storageErr classifies driver errors: missing rows become NOT_FOUND for the
// given ticket, everything else is STORAGE_UNAVAILABLE.
func storageErr(err error, ticketID string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ticketNotFound(ticketID)
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewStorageUnavailable(err)
}

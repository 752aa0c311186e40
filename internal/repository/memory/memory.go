// Package memory provides process-local implementations of the repository
// interfaces. They back the service when no database is configured and in
// tests; counters are only unique within one process.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmaxwell0637/safetrack-fe/internal/domain"
	"github.com/mmaxwell0637/safetrack-fe/internal/repository"
	apperrors "github.com/mmaxwell0637/safetrack-fe/pkg/util/errorutil"
)

// Clock returns the current time.
type Clock func() time.Time

// CounterRepository keeps named counters in a map.
type CounterRepository struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewCounterRepository builds an empty counter store.
func NewCounterRepository() *CounterRepository {
	return &CounterRepository{values: make(map[string]int64)}
}

func (r *CounterRepository) Increment(ctx context.Context, key string, start int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperrors.NewStorageUnavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.values[key]
	if !ok {
		current = start
	}
	current++
	r.values[key] = current
	return current, nil
}

// Value returns the stored counter and whether it exists.
func (r *CounterRepository) Value(key string) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.values[key]
	return v, ok
}

// TicketRepository keeps tickets in insertion order.
type TicketRepository struct {
	mu      sync.RWMutex
	now     Clock
	order   []string
	tickets map[string]domain.Ticket
}

// NewTicketRepository builds an empty ticket store. A nil clock uses time.Now.
func NewTicketRepository(now Clock) *TicketRepository {
	if now == nil {
		now = time.Now
	}
	return &TicketRepository{now: now, tickets: make(map[string]domain.Ticket)}
}

func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStorageUnavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tickets[ticket.ID]; exists {
		return apperrors.NewStorageUnavailable(errDuplicateTicket(ticket.ID))
	}
	now := r.now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = *ticket
	r.order = append(r.order, ticket.ID)
	return nil
}

func (r *TicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return &ticket, nil
}

func (r *TicketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (*domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	updated := r.now()
	if floor := ticket.UpdatedAt.Add(time.Microsecond); updated.Before(floor) {
		updated = floor
	}
	ticket.Status = status
	ticket.UpdatedAt = updated
	r.tickets[id] = ticket
	return &ticket, nil
}

func (r *TicketRepository) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	query := strings.ToLower(strings.TrimSpace(filter.Query))

	r.mu.RLock()
	result := make([]domain.Ticket, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		ticket := r.tickets[r.order[i]]
		if filter.Status != "" && ticket.Status != filter.Status {
			continue
		}
		if filter.Type != "" && ticket.Type != filter.Type {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(ticket.Subject), query) &&
			!strings.Contains(strings.ToLower(ticket.Description), query) {
			continue
		}
		result = append(result, ticket)
	}
	r.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

// CommentRepository keeps comments per ticket in insertion order.
type CommentRepository struct {
	mu       sync.RWMutex
	now      Clock
	byTicket map[string][]domain.Comment
}

// NewCommentRepository builds an empty comment store. A nil clock uses time.Now.
func NewCommentRepository(now Clock) *CommentRepository {
	if now == nil {
		now = time.Now
	}
	return &CommentRepository{now: now, byTicket: make(map[string][]domain.Comment)}
}

func (r *CommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewStorageUnavailable(err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	comment.ID = uuid.NewString()
	comment.CreatedAt = r.now()
	stored := *comment
	if comment.Author != nil {
		author := *comment.Author
		stored.Author = &author
	}
	r.byTicket[comment.TicketID] = append(r.byTicket[comment.TicketID], stored)
	return nil
}

func (r *CommentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Comment, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewStorageUnavailable(err)
	}
	r.mu.RLock()
	result := append([]domain.Comment{}, r.byTicket[ticketID]...)
	r.mu.RUnlock()

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

type errDuplicateTicket string

func (e errDuplicateTicket) Error() string {
	return "duplicate ticket id " + string(e)
}

var (
	_ repository.CounterRepository = (*CounterRepository)(nil)
	_ repository.TicketRepository  = (*TicketRepository)(nil)
	_ repository.CommentRepository = (*CommentRepository)(nil)
)

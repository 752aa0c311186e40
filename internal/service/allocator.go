package service

import (
	"context"
	"strconv"

	"github.com/mmaxwell0637/safetrack-fe/internal/domain"
	"github.com/mmaxwell0637/safetrack-fe/internal/repository"
)

const (
	ticketCounterKey   = "TICKET"
	ticketCounterStart = 1000
)

// IdentifierAllocator issues ticket ids from the shared TICKET counter.
// Uniqueness across processes comes from the counter store's atomic
// increment, never from local locking.
type IdentifierAllocator struct {
	counters repository.CounterRepository
}

// NewIdentifierAllocator builds an allocator over the counter store.
func NewIdentifierAllocator(counters repository.CounterRepository) *IdentifierAllocator {
	return &IdentifierAllocator{counters: counters}
}

// Allocate reserves the next ticket id. The first id is ST-1001.
func (a *IdentifierAllocator) Allocate(ctx context.Context) (string, error) {
	next, err := a.counters.Increment(ctx, ticketCounterKey, ticketCounterStart)
	if err != nil {
		return "", err
	}
	return domain.TicketIDPrefix + strconv.FormatInt(next, 10), nil
}

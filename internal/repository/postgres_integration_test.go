package repository

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmaxwell0637/safetrack-fe/internal/domain"
	"github.com/mmaxwell0637/safetrack-fe/internal/persistence"
	apperrors "github.com/mmaxwell0637/safetrack-fe/pkg/util/errorutil"
)

// setupTestPostgres connects to SAFETRACK_TEST_POSTGRES_DSN, applies the
// migrations and empties the tables. The test is skipped without a DSN.
func setupTestPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("SAFETRACK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("SAFETRACK_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("Postgres not available: %v", err)
	}

	migrator, err := persistence.NewMigrator(pool, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, migrator.Up(ctx))

	_, err = pool.Exec(ctx, `TRUNCATE ticket_comments, tickets, ticket_counter`)
	require.NoError(t, err)

	t.Cleanup(pool.Close)
	return pool
}

func TestPostgresCounter_ConcurrentIncrements(t *testing.T) {
	pool := setupTestPostgres(t)
	counters := NewCounterRepository(pool)
	const workers = 32

	var wg sync.WaitGroup
	results := make(chan int64, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := counters.Increment(context.Background(), "TICKET", 1000)
			assert.NoError(t, err)
			results <- v
		}()
	}
	wg.Wait()
	close(results)

	seen := map[int64]bool{}
	for v := range results {
		assert.False(t, seen[v], "value %d issued twice", v)
		seen[v] = true
	}
	for v := int64(1001); v <= 1000+workers; v++ {
		assert.True(t, seen[v], "value %d missing", v)
	}
}

func TestPostgresTickets_Lifecycle(t *testing.T) {
	pool := setupTestPostgres(t)
	tickets := NewTicketRepository(pool)
	ctx := context.Background()

	ticket := &domain.Ticket{
		ID:          "ST-1001",
		Subject:     "Printer jam",
		Description: "Tray 2 stuck",
		Type:        domain.TicketTypeTechnical,
		Priority:    domain.TicketPriorityLow,
		Status:      domain.TicketStatusPending,
	}
	require.NoError(t, tickets.Create(ctx, ticket))
	assert.False(t, ticket.CreatedAt.IsZero())

	other := &domain.Ticket{
		ID:          "ST-1002",
		Subject:     "Invoice wrong",
		Description: "Charged 50% twice",
		Type:        domain.TicketTypeBilling,
		Priority:    domain.TicketPriorityHigh,
		Status:      domain.TicketStatusPending,
	}
	require.NoError(t, tickets.Create(ctx, other))

	got, err := tickets.GetByID(ctx, "ST-1001")
	require.NoError(t, err)
	assert.Equal(t, "Printer jam", got.Subject)

	_, err = tickets.GetByID(ctx, "ST-999999")
	assert.True(t, apperrors.IsNotFound(err))

	resolved, err := tickets.UpdateStatus(ctx, "ST-1001", domain.TicketStatusResolved)
	require.NoError(t, err)
	reopened, err := tickets.UpdateStatus(ctx, "ST-1001", domain.TicketStatusPending)
	require.NoError(t, err)
	assert.True(t, resolved.UpdatedAt.After(got.UpdatedAt))
	assert.True(t, reopened.UpdatedAt.After(resolved.UpdatedAt))

	_, err = tickets.UpdateStatus(ctx, "ST-999999", domain.TicketStatusResolved)
	assert.True(t, apperrors.IsNotFound(err))

	all, err := tickets.List(ctx, TicketFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "ST-1002", all[0].ID)

	literal, err := tickets.List(ctx, TicketFilter{Query: "50%"})
	require.NoError(t, err)
	require.Len(t, literal, 1)
	assert.Equal(t, "ST-1002", literal[0].ID)

	both, err := tickets.List(ctx, TicketFilter{Status: domain.TicketStatusPending, Type: domain.TicketTypeTechnical})
	require.NoError(t, err)
	require.Len(t, both, 1)
	assert.Equal(t, "ST-1001", both[0].ID)
}

func TestPostgresComments_AppendOrder(t *testing.T) {
	pool := setupTestPostgres(t)
	comments := NewCommentRepository(pool)
	ctx := context.Background()

	author := "Dana"
	for _, body := range []string{"C1", "C2", "C3"} {
		require.NoError(t, comments.Create(ctx, &domain.Comment{TicketID: "ST-1001", Body: body, Author: &author}))
	}

	list, err := comments.ListByTicket(ctx, "ST-1001")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"C1", "C2", "C3"}, []string{list[0].Body, list[1].Body, list[2].Body})
	assert.NotEmpty(t, list[0].ID)
	require.NotNil(t, list[0].Author)
	assert.Equal(t, "Dana", *list[0].Author)

	empty, err := comments.ListByTicket(ctx, "ST-4242")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

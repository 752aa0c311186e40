package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmaxwell0637/safetrack-fe/internal/domain"
	"github.com/mmaxwell0637/safetrack-fe/internal/events"
	"github.com/mmaxwell0637/safetrack-fe/internal/repository/memory"
	apperrors "github.com/mmaxwell0637/safetrack-fe/pkg/util/errorutil"
)

type serviceFixture struct {
	svc        *TicketService
	counters   *memory.CounterRepository
	tickets    *memory.TicketRepository
	comments   *memory.CommentRepository
	dispatcher events.Dispatcher
}

func newFixture(t *testing.T, clock memory.Clock) serviceFixture {
	t.Helper()
	f := serviceFixture{
		counters:   memory.NewCounterRepository(),
		tickets:    memory.NewTicketRepository(clock),
		comments:   memory.NewCommentRepository(clock),
		dispatcher: events.NewInMemoryDispatcher(),
	}
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:  f.tickets,
		CommentRepo: f.comments,
		CounterRepo: f.counters,
		Dispatcher:  f.dispatcher,
	})
	return f
}

func steppingClock(step time.Duration) memory.Clock {
	var mu sync.Mutex
	current := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(step)
		return current
	}
}

func validInput() TicketCreateInput {
	return TicketCreateInput{
		Subject:     "Printer jam",
		Description: "Tray 2 is stuck again",
		Type:        "Technical",
	}
}

// fieldErrors pulls details.fields out of a validation error.
func fieldErrors(t *testing.T, err error) map[string][]string {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	require.Equal(t, apperrors.CodeValidationFailed, domainErr.Code)
	fields, ok := domainErr.Details["fields"].(map[string][]string)
	require.True(t, ok, "details.fields missing: %#v", domainErr.Details)
	return fields
}

func TestCreateTicket_Defaults(t *testing.T) {
	f := newFixture(t, nil)

	ticket, err := f.svc.CreateTicket(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, "ST-1001", ticket.ID)
	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Equal(t, domain.TicketPriorityLow, ticket.Priority)
	assert.Equal(t, domain.TicketTypeTechnical, ticket.Type)
	assert.False(t, ticket.CreatedAt.IsZero())
	assert.Equal(t, ticket.CreatedAt, ticket.UpdatedAt)

	stored, err := f.svc.GetTicket(context.Background(), "ST-1001")
	require.NoError(t, err)
	assert.Equal(t, ticket.Subject, stored.Subject)
}

func TestCreateTicket_TrimsFields(t *testing.T) {
	f := newFixture(t, nil)

	ticket, err := f.svc.CreateTicket(context.Background(), TicketCreateInput{
		Subject:     "  VPN down  ",
		Description: "\tcannot connect\n",
		Type:        " Technical ",
		Priority:    " High ",
	})
	require.NoError(t, err)

	assert.Equal(t, "VPN down", ticket.Subject)
	assert.Equal(t, "cannot connect", ticket.Description)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
}

func TestCreateTicket_SequentialIDs(t *testing.T) {
	f := newFixture(t, nil)

	for i := 1; i <= 3; i++ {
		ticket, err := f.svc.CreateTicket(context.Background(), validInput())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("ST-%d", 1000+i), ticket.ID)
	}
}

func TestCreateTicket_ConcurrentIDsAreUnique(t *testing.T) {
	f := newFixture(t, nil)
	const n = 50

	var wg sync.WaitGroup
	ids := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticket, err := f.svc.CreateTicket(context.Background(), validInput())
			if assert.NoError(t, err) {
				ids <- ticket.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[string]bool{}
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
	require.Len(t, seen, n)
	for i := 1; i <= n; i++ {
		assert.True(t, seen[fmt.Sprintf("ST-%d", 1000+i)])
	}
}

func TestCreateTicket_CategoryFallback(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		category string
		want     domain.TicketType
	}{
		{name: "category only", category: "Billing", want: domain.TicketTypeBilling},
		{name: "type wins over category", typ: "Technical", category: "Billing", want: domain.TicketTypeTechnical},
		{name: "blank type falls back", typ: "   ", category: "Other", want: domain.TicketTypeOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			input := validInput()
			input.Type = tt.typ
			input.Category = tt.category

			ticket, err := f.svc.CreateTicket(context.Background(), input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ticket.Type)
		})
	}
}

func TestCreateTicket_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TicketCreateInput)
		field  string
		msg    string
	}{
		{name: "short subject", mutate: func(in *TicketCreateInput) { in.Subject = "ab" }, field: "subject", msg: "Subject must be at least 3 characters"},
		{name: "subject short after trim", mutate: func(in *TicketCreateInput) { in.Subject = "  ab  " }, field: "subject", msg: "Subject must be at least 3 characters"},
		{name: "short description", mutate: func(in *TicketCreateInput) { in.Description = "abcd" }, field: "description", msg: "Description must be at least 5 characters"},
		{name: "missing type and category", mutate: func(in *TicketCreateInput) { in.Type = "" }, field: "type", msg: "Missing category/type"},
		{name: "unknown type", mutate: func(in *TicketCreateInput) { in.Type = "Hardware" }, field: "type", msg: "type must be one of [Technical Billing Other]"},
		{name: "unknown priority", mutate: func(in *TicketCreateInput) { in.Priority = "Urgent" }, field: "priority", msg: "priority must be one of [Low Med High]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			input := validInput()
			tt.mutate(&input)

			_, err := f.svc.CreateTicket(context.Background(), input)
			fields := fieldErrors(t, err)
			assert.Equal(t, []string{tt.msg}, fields[tt.field])

			_, consumed := f.counters.Value("TICKET")
			assert.False(t, consumed, "validation failure must not consume an id")
		})
	}
}

func TestCreateTicket_ValidationBoundaries(t *testing.T) {
	f := newFixture(t, nil)
	input := validInput()
	input.Subject = "abc"
	input.Description = "abcde"

	ticket, err := f.svc.CreateTicket(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, "ST-1001", ticket.ID)
}

func TestCreateTicket_ReportsEveryInvalidField(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.CreateTicket(context.Background(), TicketCreateInput{Subject: "x", Description: "y"})
	fields := fieldErrors(t, err)

	assert.Contains(t, fields, "subject")
	assert.Contains(t, fields, "description")
	assert.Contains(t, fields, "type")
	assert.NotContains(t, fields, "priority")
}

type failingTicketRepo struct {
	*memory.TicketRepository
	failures int
}

func (r *failingTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	if r.failures > 0 {
		r.failures--
		return apperrors.NewStorageUnavailable(errors.New("insert failed"))
	}
	return r.TicketRepository.Create(ctx, ticket)
}

func TestCreateTicket_InsertFailureBurnsID(t *testing.T) {
	counters := memory.NewCounterRepository()
	tickets := &failingTicketRepo{TicketRepository: memory.NewTicketRepository(nil), failures: 1}
	svc := NewTicketService(TicketDependencies{
		TicketRepo:  tickets,
		CommentRepo: memory.NewCommentRepository(nil),
		CounterRepo: counters,
	})

	_, err := svc.CreateTicket(context.Background(), validInput())
	assert.True(t, apperrors.IsCode(err, apperrors.CodeStorageUnavailable))

	ticket, err := svc.CreateTicket(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "ST-1002", ticket.ID)

	_, err = svc.GetTicket(context.Background(), "ST-1001")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestUpdateStatus_RoundTrip(t *testing.T) {
	frozen := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	f := newFixture(t, func() time.Time { return frozen })

	created, err := f.svc.CreateTicket(context.Background(), validInput())
	require.NoError(t, err)

	resolved, err := f.svc.UpdateStatus(context.Background(), created.ID, "Resolved")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusResolved, resolved.Status)
	assert.True(t, resolved.UpdatedAt.After(created.UpdatedAt))

	reopened, err := f.svc.UpdateStatus(context.Background(), created.ID, "Pending")
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, reopened.Status)
	assert.True(t, reopened.UpdatedAt.After(resolved.UpdatedAt))
	assert.Equal(t, created.CreatedAt, reopened.CreatedAt)
}

func TestUpdateStatus_AnyTransitionAllowed(t *testing.T) {
	f := newFixture(t, nil)
	created, err := f.svc.CreateTicket(context.Background(), validInput())
	require.NoError(t, err)

	for _, status := range []string{"Unassigned", "In Progress", "Resolved", "Unassigned", "Pending"} {
		ticket, err := f.svc.UpdateStatus(context.Background(), created.ID, status)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatus(status), ticket.Status)
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	f := newFixture(t, nil)
	created, err := f.svc.CreateTicket(context.Background(), validInput())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), created.ID, "Closed")
	fields := fieldErrors(t, err)
	assert.Equal(t, []string{"status must be one of [Pending, In Progress, Resolved, Unassigned]"}, fields["status"])

	_, err = f.svc.UpdateStatus(context.Background(), created.ID, "")
	fields = fieldErrors(t, err)
	assert.Len(t, fields["status"], 1)

	_, err = f.svc.UpdateStatus(context.Background(), "ST-999999", "Resolved")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = f.svc.UpdateStatus(context.Background(), "ST-999999", "Closed")
	assert.True(t, apperrors.IsCode(err, apperrors.CodeValidationFailed))
}

func TestGetTicket_NotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.GetTicket(context.Background(), "ST-999999")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestListTickets_Filters(t *testing.T) {
	f := newFixture(t, steppingClock(time.Second))
	ctx := context.Background()

	seed := []TicketCreateInput{
		{Subject: "Printer jam", Description: "Tray 2 stuck", Type: "Technical"},
		{Subject: "Invoice wrong", Description: "Charged twice", Type: "Billing", Priority: "High"},
		{Subject: "VPN down", Description: "cannot connect from home", Category: "Technical", Priority: "Med"},
	}
	for _, in := range seed {
		_, err := f.svc.CreateTicket(ctx, in)
		require.NoError(t, err)
	}
	_, err := f.svc.UpdateStatus(ctx, "ST-1003", "Resolved")
	require.NoError(t, err)

	all, err := f.svc.ListTickets(ctx, TicketListFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"ST-1003", "ST-1002", "ST-1001"}, ticketIDs(all))

	pendingTechnical, err := f.svc.ListTickets(ctx, TicketListFilter{Status: "Pending", Type: "Technical"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ST-1001"}, ticketIDs(pendingTechnical))

	search, err := f.svc.ListTickets(ctx, TicketListFilter{Query: "  CHARGED "})
	require.NoError(t, err)
	assert.Equal(t, []string{"ST-1002"}, ticketIDs(search))

	none, err := f.svc.ListTickets(ctx, TicketListFilter{Status: "Closed"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func ticketIDs(tickets []domain.Ticket) []string {
	out := make([]string, 0, len(tickets))
	for _, ticket := range tickets {
		out = append(out, ticket.ID)
	}
	return out
}

func TestComments_OrderAndEmpty(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	created, err := f.svc.CreateTicket(ctx, validInput())
	require.NoError(t, err)

	author := "  Dana  "
	for _, body := range []string{"C1", "C2", "C3"} {
		_, err := f.svc.AddComment(ctx, created.ID, CommentCreateInput{Body: body, Author: &author})
		require.NoError(t, err)
	}

	comments, err := f.svc.ListComments(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "C1", comments[0].Body)
	assert.Equal(t, "C3", comments[2].Body)
	require.NotNil(t, comments[0].Author)
	assert.Equal(t, "Dana", *comments[0].Author)

	empty, err := f.svc.ListComments(ctx, "ST-4242")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestAddComment_Normalization(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	blank := "   "
	comment, err := f.svc.AddComment(ctx, "ST-1001", CommentCreateInput{Body: "  hello  ", Author: &blank, IsInternal: true})
	require.NoError(t, err)
	assert.Equal(t, "hello", comment.Body)
	assert.Nil(t, comment.Author)
	assert.True(t, comment.IsInternal)
	assert.NotEmpty(t, comment.ID)
	assert.Equal(t, "ST-1001", comment.TicketID)

	_, err = f.svc.AddComment(ctx, "ST-1001", CommentCreateInput{Body: " \n "})
	fields := fieldErrors(t, err)
	assert.Equal(t, []string{"Comment cannot be empty"}, fields["body"])
}

func TestTicketService_EmitsEvents(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var mu sync.Mutex
	var got []events.Event
	record := func(_ context.Context, e events.Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
		return nil
	}
	f.dispatcher.Subscribe(events.EventTicketCreated, record)
	f.dispatcher.Subscribe(events.EventTicketStatusChanged, record)
	f.dispatcher.Subscribe(events.EventTicketCommentAdded, record)

	ticket, err := f.svc.CreateTicket(ctx, validInput())
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(ctx, ticket.ID, "Resolved")
	require.NoError(t, err)
	_, err = f.svc.AddComment(ctx, ticket.ID, CommentCreateInput{Body: "done"})
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, events.EventTicketCreated, got[0].Type)
	assert.NotEmpty(t, got[0].ID)
	assert.False(t, got[0].Timestamp.IsZero())

	changed, ok := got[1].Payload.(events.TicketStatusChangedPayload)
	require.True(t, ok)
	assert.Equal(t, domain.TicketStatusPending, changed.OldStatus)
	assert.Equal(t, domain.TicketStatusResolved, changed.NewStatus)

	assert.Equal(t, events.EventTicketCommentAdded, got[2].Type)
	assert.Equal(t, ticket.ID, got[2].TicketID)
}

func TestTicketService_HandlerFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t, nil)
	f.dispatcher.Subscribe(events.EventTicketCreated, func(context.Context, events.Event) error {
		return errors.New("broker down")
	})

	ticket, err := f.svc.CreateTicket(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "ST-1001", ticket.ID)
}

func TestStringPreview(t *testing.T) {
	assert.Equal(t, "short", stringPreview("  short ", 10))
	assert.Equal(t, "abcdefg...", stringPreview("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", stringPreview("abcdef", 2))
}

package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/repository"
	"github.com/Domenick1991/heliseats/internal/repository/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, event domain.BookingEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// recorder captures side effects emitted after commit.
type recorder struct {
	mu          sync.Mutex
	events      []domain.BookingEvent
	audits      []domain.AuditEntry
	refreshed   []domain.FlightQuota
	invalidated []string
}

func (r *recorder) Notify(_ context.Context, event domain.BookingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) Record(_ context.Context, entry domain.AuditEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.audits = append(r.audits, entry)
}

func (r *recorder) SetQuota(_ context.Context, q domain.FlightQuota) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshed = append(r.refreshed, q)
	return nil
}

func (r *recorder) InvalidateQuotas(_ context.Context, dates ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invalidated = append(r.invalidated, dates...)
	return nil
}

// sequentialTickets hands out HC-000001, HC-000002, ... safely across goroutines.
func sequentialTickets() TicketGenerator {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("HC-%06d", n)
	}
}

var admin = domain.Principal{Role: domain.RoleAdmin, Subject: "ops"}

func passenger(t *testing.T, raw string) domain.Principal {
	t.Helper()
	c, err := domain.ParseContact(raw)
	require.NoError(t, err)
	return domain.Principal{Role: domain.RolePassenger, Subject: c.Value, Contact: c}
}

func newLedger(t *testing.T, opts ...Option) (*SeatLedger, *memstore.Store, *recorder) {
	t.Helper()
	store := memstore.New()
	rec := &recorder{}
	base := []Option{
		WithNotifier(rec),
		WithAuditor(rec),
		WithCache(rec),
		WithTicketGenerator(sequentialTickets()),
	}
	return New(store, append(base, opts...)...), store, rec
}

func input(date string) CreateBookingInput {
	return CreateBookingInput{
		PassengerName: "Asha Rao",
		Age:           34,
		Email:         "asha@example.com",
		Date:          date,
		From:          "Phata",
		To:            "Kedarnath",
	}
}

func quotaOf(t *testing.T, store *memstore.Store, date string) domain.FlightQuota {
	t.Helper()
	q, err := store.Quotas().GetByDate(context.Background(), date)
	require.NoError(t, err)
	return *q
}

func TestScenario_BookCancelCancelAgain(t *testing.T) {
	l, store, rec := newLedger(t)
	ctx := context.Background()
	owner := passenger(t, "9876543210")

	_, err := l.SetQuota(ctx, admin, "2025-06-01", 2, 5)
	require.NoError(t, err)

	out, err := l.CreateBooking(ctx, owner, input("2025-06-01"))
	require.NoError(t, err)
	assert.False(t, out.Degraded)
	assert.Regexp(t, `^HC-\d{6}$`, out.Booking.TicketNumber)
	assert.Equal(t, domain.BookingStatusConfirmed, out.Booking.Status)

	q := quotaOf(t, store, "2025-06-01")
	assert.Equal(t, 1, q.BookedSeats)
	assert.Equal(t, 9, q.AvailableSeats)

	_, err = l.CancelBooking(ctx, owner, out.Booking.TicketNumber)
	require.NoError(t, err)
	q = quotaOf(t, store, "2025-06-01")
	assert.Equal(t, 0, q.BookedSeats)
	assert.Equal(t, 10, q.AvailableSeats)

	again, err := l.CancelBooking(ctx, owner, out.Booking.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, again.Booking.Status)
	q = quotaOf(t, store, "2025-06-01")
	assert.Equal(t, 0, q.BookedSeats)
	assert.Equal(t, 10, q.AvailableSeats)

	// второй cancel не порождает событий
	require.Len(t, rec.events, 2)
	assert.Equal(t, domain.EventBookingCreated, rec.events[0].Type)
	assert.Equal(t, domain.EventBookingCancelled, rec.events[1].Type)
	assert.Equal(t, domain.RolePassenger, rec.events[1].CancelledBy)
	require.NoError(t, store.Verify())
}

func TestScenario_NoCapacity(t *testing.T) {
	l, store, _ := newLedger(t)
	ctx := context.Background()

	_, err := l.SetQuota(ctx, admin, "2025-07-01", 1, 1)
	require.NoError(t, err)
	_, err = l.CreateBooking(ctx, passenger(t, "9876543210"), input("2025-07-01"))
	require.NoError(t, err)
	before := quotaOf(t, store, "2025-07-01")
	require.Equal(t, 0, before.AvailableSeats)

	_, err = l.CreateBooking(ctx, passenger(t, "1234567890"), input("2025-07-01"))
	assert.ErrorIs(t, err, domain.ErrNoCapacity)
	assert.Equal(t, before, quotaOf(t, store, "2025-07-01"))
	require.NoError(t, store.Verify())
}

func TestScenario_ModifyToFullDate(t *testing.T) {
	l, store, rec := newLedger(t)
	ctx := context.Background()
	owner := passenger(t, "asha@example.com")

	_, err := l.SetQuota(ctx, admin, "2025-08-01", 2, 5)
	require.NoError(t, err)
	_, err = l.SetQuota(ctx, admin, "2025-08-02", 1, 1)
	require.NoError(t, err)

	var x *domain.Booking
	for i := 0; i < 5; i++ {
		out, err := l.CreateBooking(ctx, owner, input("2025-08-01"))
		require.NoError(t, err)
		x = out.Booking
	}
	_, err = l.CreateBooking(ctx, passenger(t, "9876543210"), input("2025-08-02"))
	require.NoError(t, err)

	origin := quotaOf(t, store, "2025-08-01")
	dest := quotaOf(t, store, "2025-08-02")
	require.Equal(t, 5, origin.BookedSeats)
	require.Equal(t, 0, dest.AvailableSeats)
	events := len(rec.events)

	_, err = l.ModifyBooking(ctx, owner, x.TicketNumber, ModifyBookingInput{NewDate: "2025-08-02"})
	assert.ErrorIs(t, err, domain.ErrNoCapacity)

	assert.Equal(t, origin, quotaOf(t, store, "2025-08-01"))
	assert.Equal(t, dest, quotaOf(t, store, "2025-08-02"))
	got, err := store.Bookings().GetByTicket(ctx, x.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, "2025-08-01", got.Date)
	assert.Len(t, rec.events, events)
	require.NoError(t, store.Verify())
}

func TestCreateBooking_NoOversell(t *testing.T) {
	l, store, _ := newLedger(t, WithTicketGenerator(RandomTickets), WithTicketAttempts(20))
	ctx := context.Background()

	const seats, callers = 7, 25
	_, err := l.SetQuota(ctx, admin, "2025-09-10", 1, seats)
	require.NoError(t, err)

	var mu sync.Mutex
	succeeded, rejected := 0, 0
	var g errgroup.Group
	for i := 0; i < callers; i++ {
		p := passenger(t, fmt.Sprintf("98765432%02d", i))
		g.Go(func() error {
			_, err := l.CreateBooking(ctx, p, input("2025-09-10"))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrNoCapacity):
				rejected++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, seats, succeeded)
	assert.Equal(t, callers-seats, rejected)
	q := quotaOf(t, store, "2025-09-10")
	assert.Equal(t, seats, q.BookedSeats)
	assert.Equal(t, 0, q.AvailableSeats)
	require.NoError(t, store.Verify())
}

func TestConcurrentMixedOperations_KeepInvariant(t *testing.T) {
	l, store, _ := newLedger(t, WithTicketGenerator(RandomTickets), WithTicketAttempts(20))
	ctx := context.Background()
	dates := []string{"2025-10-01", "2025-10-02", "2025-10-03"}
	for _, d := range dates {
		_, err := l.SetQuota(ctx, admin, d, 2, 4)
		require.NoError(t, err)
	}

	owner := passenger(t, "owner@example.com")
	var tickets []string
	for i := 0; i < 6; i++ {
		out, err := l.CreateBooking(ctx, owner, input(dates[i%len(dates)]))
		require.NoError(t, err)
		tickets = append(tickets, out.Booking.TicketNumber)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, ticket := range tickets {
		g.Go(func() error {
			_, err := l.ModifyBooking(gctx, owner, ticket, ModifyBookingInput{NewDate: dates[(i+1)%len(dates)]})
			// the concurrent cancel may win first
			if err != nil && !errors.Is(err, domain.ErrNoCapacity) && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			_, err := l.CancelBooking(gctx, admin, ticket)
			return err
		})
	}
	for i := 0; i < 12; i++ {
		p := passenger(t, fmt.Sprintf("55500000%02d", i))
		g.Go(func() error {
			_, err := l.CreateBooking(gctx, p, input(dates[i%len(dates)]))
			if err != nil && !errors.Is(err, domain.ErrNoCapacity) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		_, err := l.SetQuota(gctx, admin, dates[0], 3, 4)
		return err
	})
	require.NoError(t, g.Wait())
	require.NoError(t, store.Verify())
}

func TestModifyBooking_MovesSeat(t *testing.T) {
	l, store, rec := newLedger(t)
	ctx := context.Background()
	owner := passenger(t, "asha@example.com")

	_, err := l.SetQuota(ctx, admin, "2025-08-10", 1, 3)
	require.NoError(t, err)
	_, err = l.SetQuota(ctx, admin, "2025-08-05", 1, 3)
	require.NoError(t, err)
	created, err := l.CreateBooking(ctx, owner, input("2025-08-10"))
	require.NoError(t, err)

	out, err := l.ModifyBooking(ctx, owner, created.Booking.TicketNumber, ModifyBookingInput{
		NewDate: "2025-08-05",
		Phone:   "9876543210",
	})
	require.NoError(t, err)
	assert.Equal(t, "2025-08-05", out.Booking.Date)
	assert.Equal(t, "9876543210", out.Booking.Phone)

	assert.Equal(t, 0, quotaOf(t, store, "2025-08-10").BookedSeats)
	assert.Equal(t, 3, quotaOf(t, store, "2025-08-10").AvailableSeats)
	assert.Equal(t, 1, quotaOf(t, store, "2025-08-05").BookedSeats)
	require.GreaterOrEqual(t, len(rec.refreshed), 2)
	moved := rec.refreshed[len(rec.refreshed)-2:]
	assert.Equal(t, "2025-08-10", moved[0].Date)
	assert.Equal(t, 0, moved[0].BookedSeats)
	assert.Equal(t, "2025-08-05", moved[1].Date)
	assert.Equal(t, 1, moved[1].BookedSeats)

	last := rec.events[len(rec.events)-1]
	assert.Equal(t, domain.EventBookingModified, last.Type)
	assert.Equal(t, "2025-08-10", last.PreviousDate)
	assert.Equal(t, domain.ContactEmail, last.Channel)
	require.NoError(t, store.Verify())
}

func TestModifyBooking_SameDateOnlyContact(t *testing.T) {
	l, store, _ := newLedger(t)
	ctx := context.Background()
	owner := passenger(t, "9876543210")

	_, err := l.SetQuota(ctx, admin, "2025-08-10", 1, 3)
	require.NoError(t, err)
	in := input("2025-08-10")
	in.Email = ""
	created, err := l.CreateBooking(ctx, owner, in)
	require.NoError(t, err)
	before := quotaOf(t, store, "2025-08-10")

	out, err := l.ModifyBooking(ctx, owner, created.Booking.TicketNumber, ModifyBookingInput{
		NewDate: "2025-08-10",
		Email:   "New@Example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", out.Booking.Email)
	assert.Equal(t, before.BookedSeats, quotaOf(t, store, "2025-08-10").BookedSeats)
	assert.Equal(t, domain.Contact{Kind: domain.ContactEmail, Value: "new@example.com"}, out.Booking.DeliveryChannel())
}

func TestModifyBooking_NoChangeHasNoSideEffects(t *testing.T) {
	l, store, rec := newLedger(t)
	ctx := context.Background()
	owner := passenger(t, "9876543210")

	_, err := l.SetQuota(ctx, admin, "2025-08-10", 1, 3)
	require.NoError(t, err)
	created, err := l.CreateBooking(ctx, owner, input("2025-08-10"))
	require.NoError(t, err)
	b := created.Booking

	rec.mu.Lock()
	events, audits := len(rec.events), len(rec.audits)
	rec.mu.Unlock()

	out, err := l.ModifyBooking(ctx, owner, b.TicketNumber, ModifyBookingInput{
		NewDate: b.Date,
		Phone:   b.Phone,
		Email:   b.Email,
	})
	require.NoError(t, err)
	assert.False(t, out.Degraded)
	assert.Equal(t, b.Date, out.Booking.Date)

	_, err = l.ModifyBooking(ctx, owner, b.TicketNumber, ModifyBookingInput{})
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Len(t, rec.events, events)
	assert.Len(t, rec.audits, audits)
	assert.Equal(t, 1, quotaOf(t, store, "2025-08-10").BookedSeats)
}

func TestModifyBooking_DestinationWithoutQuota(t *testing.T) {
	l, store, _ := newLedger(t)
	ctx := context.Background()
	owner := passenger(t, "9876543210")

	_, err := l.SetQuota(ctx, admin, "2025-08-10", 1, 3)
	require.NoError(t, err)
	created, err := l.CreateBooking(ctx, owner, input("2025-08-10"))
	require.NoError(t, err)

	_, err = l.ModifyBooking(ctx, owner, created.Booking.TicketNumber, ModifyBookingInput{NewDate: "2025-08-11"})
	assert.ErrorIs(t, err, domain.ErrNoCapacity)
	_, err = store.Quotas().GetByDate(ctx, "2025-08-11")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestModifyBooking_Errors(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	owner := passenger(t, "9876543210")
	stranger := passenger(t, "1234567890")

	_, err := l.SetQuota(ctx, admin, "2025-08-10", 1, 3)
	require.NoError(t, err)
	created, err := l.CreateBooking(ctx, owner, input("2025-08-10"))
	require.NoError(t, err)
	ticket := created.Booking.TicketNumber

	testCases := []struct {
		name   string
		p      domain.Principal
		ticket string
		in     ModifyBookingInput
		want   error
	}{
		{"bad ticket", owner, "HC-12", ModifyBookingInput{}, domain.ErrValidation},
		{"bad phone", owner, ticket, ModifyBookingInput{Phone: "12345"}, domain.ErrValidation},
		{"bad email", owner, ticket, ModifyBookingInput{Email: "nope"}, domain.ErrValidation},
		{"bad date", owner, ticket, ModifyBookingInput{NewDate: "2025-02-30"}, domain.ErrValidation},
		{"unknown ticket", owner, "HC-999999", ModifyBookingInput{}, domain.ErrNotFound},
		{"not owner", stranger, ticket, ModifyBookingInput{NewDate: "2025-08-10"}, domain.ErrNotAuthorized},
		{"admin", admin, ticket, ModifyBookingInput{}, domain.ErrNotAuthorized},
		{"anonymous", domain.Principal{}, ticket, ModifyBookingInput{}, domain.ErrNotAuthenticated},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.ModifyBooking(ctx, tc.p, tc.ticket, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err = l.CancelBooking(ctx, owner, ticket)
	require.NoError(t, err)
	_, err = l.ModifyBooking(ctx, owner, ticket, ModifyBookingInput{Phone: "9876543210"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelBooking_Ownership(t *testing.T) {
	l, store, rec := newLedger(t)
	ctx := context.Background()
	owner := passenger(t, "asha@example.com")

	_, err := l.SetQuota(ctx, admin, "2025-06-01", 1, 2)
	require.NoError(t, err)
	created, err := l.CreateBooking(ctx, owner, input("2025-06-01"))
	require.NoError(t, err)
	ticket := created.Booking.TicketNumber

	_, err = l.CancelBooking(ctx, passenger(t, "other@example.com"), ticket)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	assert.Equal(t, 1, quotaOf(t, store, "2025-06-01").BookedSeats)

	_, err = l.CancelBooking(ctx, owner, "HC-000999")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out, err := l.CancelBooking(ctx, admin, ticket)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, out.Booking.CancelledBy)
	assert.Equal(t, 0, quotaOf(t, store, "2025-06-01").BookedSeats)

	last := rec.audits[len(rec.audits)-1]
	assert.Equal(t, domain.AuditCancel, last.Action)
	assert.Equal(t, domain.RoleAdmin, last.ActorType)
	assert.Equal(t, "ops", last.ActorID)
	require.NoError(t, store.Verify())
}

func TestCancelBooking_WithoutQuotaRow(t *testing.T) {
	l, store, rec := newLedger(t)
	ctx := context.Background()
	owner := passenger(t, "9876543210")

	err := store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return tx.InsertBooking(ctx, &domain.Booking{
			TicketNumber:  "HC-424242",
			Owner:         owner.Contact,
			Date:          "2025-12-31",
			Status:        domain.BookingStatusConfirmed,
			PassengerName: "Ravi",
			From:          "A",
			To:            "B",
		})
	})
	require.NoError(t, err)

	out, err := l.CancelBooking(ctx, owner, "HC-424242")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, out.Booking.Status)
	assert.Equal(t, []string{"2025-12-31"}, rec.invalidated)
	assert.Empty(t, rec.refreshed)
}

func TestGetBooking_Visibility(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()
	owner := passenger(t, "9876543210")

	_, err := l.SetQuota(ctx, admin, "2025-06-01", 1, 2)
	require.NoError(t, err)
	created, err := l.CreateBooking(ctx, owner, input("2025-06-01"))
	require.NoError(t, err)
	ticket := created.Booking.TicketNumber

	got, err := l.GetBooking(ctx, owner, ticket)
	require.NoError(t, err)
	assert.Equal(t, owner.Contact, got.Owner)

	_, err = l.GetBooking(ctx, admin, ticket)
	assert.NoError(t, err)

	_, err = l.GetBooking(ctx, passenger(t, "1234567890"), ticket)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = l.GetBooking(ctx, owner, "bad")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateBooking_Validation(t *testing.T) {
	l, store, _ := newLedger(t)
	ctx := context.Background()
	owner := passenger(t, "9876543210")
	_, err := l.SetQuota(ctx, admin, "2025-06-01", 1, 2)
	require.NoError(t, err)

	testCases := []struct {
		name   string
		mutate func(*CreateBookingInput)
	}{
		{"missing name", func(in *CreateBookingInput) { in.PassengerName = "  " }},
		{"missing date", func(in *CreateBookingInput) { in.Date = "" }},
		{"missing route", func(in *CreateBookingInput) { in.To = "" }},
		{"bad date", func(in *CreateBookingInput) { in.Date = "01-06-2025" }},
		{"impossible date", func(in *CreateBookingInput) { in.Date = "2025-02-29" }},
		{"bad phone", func(in *CreateBookingInput) { in.Phone = "98765" }},
		{"bad email", func(in *CreateBookingInput) { in.Email = "asha@" }},
		{"age too high", func(in *CreateBookingInput) { in.Age = 121 }},
		{"negative age", func(in *CreateBookingInput) { in.Age = -3 }},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			in := input("2025-06-01")
			tc.mutate(&in)
			_, err := l.CreateBooking(ctx, owner, in)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	_, err = l.CreateBooking(ctx, domain.Principal{Role: domain.RolePassenger}, input("2025-06-01"))
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	_, err = l.CreateBooking(ctx, admin, input("2025-06-01"))
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)

	_, err = l.CreateBooking(ctx, owner, input("2025-06-02"))
	assert.ErrorIs(t, err, domain.ErrNoCapacity)

	assert.Equal(t, 0, quotaOf(t, store, "2025-06-01").BookedSeats)
}

func TestCreateBooking_TicketCollisionRetried(t *testing.T) {
	calls := 0
	gen := func() string {
		calls++
		if calls <= 2 {
			return "HC-100001"
		}
		return "HC-100002"
	}
	l, _, _ := newLedger(t, WithTicketGenerator(gen))
	ctx := context.Background()
	_, err := l.SetQuota(ctx, admin, "2025-06-01", 1, 5)
	require.NoError(t, err)

	first, err := l.CreateBooking(ctx, passenger(t, "9876543210"), input("2025-06-01"))
	require.NoError(t, err)
	assert.Equal(t, "HC-100001", first.Booking.TicketNumber)

	second, err := l.CreateBooking(ctx, passenger(t, "9876543210"), input("2025-06-01"))
	require.NoError(t, err)
	assert.Equal(t, "HC-100002", second.Booking.TicketNumber)
}

func TestCreateBooking_TicketsExhausted(t *testing.T) {
	l, store, _ := newLedger(t,
		WithTicketGenerator(func() string { return "HC-100001" }),
		WithTicketAttempts(3))
	ctx := context.Background()
	_, err := l.SetQuota(ctx, admin, "2025-06-01", 1, 5)
	require.NoError(t, err)

	_, err = l.CreateBooking(ctx, passenger(t, "9876543210"), input("2025-06-01"))
	require.NoError(t, err)

	_, err = l.CreateBooking(ctx, passenger(t, "9876543210"), input("2025-06-01"))
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, 1, quotaOf(t, store, "2025-06-01").BookedSeats)
}

func TestCreateBooking_DegradedWhenNotificationFails(t *testing.T) {
	notifier := &MockNotifier{}
	l, store, _ := newLedger(t, WithNotifier(notifier))
	ctx := context.Background()
	_, err := l.SetQuota(ctx, admin, "2025-06-01", 1, 5)
	require.NoError(t, err)

	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(e domain.BookingEvent) bool {
		return e.Type == domain.EventBookingCreated && e.Channel == domain.ContactEmail && e.Recipient == "asha@example.com"
	})).Return(errors.New("queue full")).Once()

	out, err := l.CreateBooking(ctx, passenger(t, "9876543210"), input("2025-06-01"))
	require.NoError(t, err)
	assert.True(t, out.Degraded)
	assert.Equal(t, 1, quotaOf(t, store, "2025-06-01").BookedSeats)
	notifier.AssertExpectations(t)
}

func TestCreateBooking_CancelledContextLeavesNoTrace(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	gen := func() string {
		cancel()
		return "HC-555555"
	}
	l, store, rec := newLedger(t, WithTicketGenerator(gen))
	_, err := l.SetQuota(context.Background(), admin, "2025-06-01", 1, 5)
	require.NoError(t, err)

	_, err = l.CreateBooking(ctx, passenger(t, "9876543210"), input("2025-06-01"))
	require.Error(t, err)
	assert.Equal(t, 0, quotaOf(t, store, "2025-06-01").BookedSeats)
	_, err = store.Bookings().GetByTicket(context.Background(), "HC-555555")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, rec.events)
}

func TestSetQuota_ShrinkProtection(t *testing.T) {
	l, store, _ := newLedger(t)
	ctx := context.Background()

	_, err := l.SetQuota(ctx, admin, "2025-06-01", 2, 2)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := l.CreateBooking(ctx, passenger(t, "9876543210"), input("2025-06-01"))
		require.NoError(t, err)
	}
	before := quotaOf(t, store, "2025-06-01")

	_, err = l.SetQuota(ctx, admin, "2025-06-01", 1, 2)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, before, quotaOf(t, store, "2025-06-01"))

	q, err := l.SetQuota(ctx, admin, "2025-06-01", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, q.TotalSeats)
	assert.Equal(t, 0, q.AvailableSeats)
	require.NoError(t, store.Verify())
}

func TestSetQuota_Errors(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	_, err := l.SetQuota(ctx, passenger(t, "9876543210"), "2025-06-01", 1, 1)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	_, err = l.SetQuota(ctx, admin, "2025-13-01", 1, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = l.SetQuota(ctx, admin, "2025-06-01", 0, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = l.SetQuota(ctx, admin, "2025-06-01", 1, -1)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSetQuota_CapacityBounds(t *testing.T) {
	l, store, _ := newLedger(t)
	ctx := context.Background()

	// product would overflow int
	_, err := l.SetQuota(ctx, admin, "2025-06-01", 3037000500, 3037000500)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = l.SetQuota(ctx, admin, "2025-06-01", 2, domain.MaxTotalSeats/2+1)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = store.Quotas().GetByDate(ctx, "2025-06-01")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	q, err := l.SetQuota(ctx, admin, "2025-06-01", 1, domain.MaxTotalSeats)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxTotalSeats, q.TotalSeats)
	assert.True(t, q.Consistent())
	require.NoError(t, store.Verify())
}

func TestSetQuota_ConcurrentCreateSameDate(t *testing.T) {
	l, store, _ := newLedger(t)
	ctx := context.Background()

	var g errgroup.Group
	for i := 1; i <= 8; i++ {
		g.Go(func() error {
			_, err := l.SetQuota(ctx, admin, "2025-11-11", i, 2)
			return err
		})
	}
	require.NoError(t, g.Wait())
	q := quotaOf(t, store, "2025-11-11")
	assert.True(t, q.Consistent())
	require.NoError(t, store.Verify())
}

func TestSetMonthlyQuota_SkipsConflicts(t *testing.T) {
	l, store, rec := newLedger(t)
	ctx := context.Background()

	_, err := l.SetQuota(ctx, admin, "2024-02-10", 2, 3)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := l.CreateBooking(ctx, passenger(t, "9876543210"), input("2024-02-10"))
		require.NoError(t, err)
	}

	res, err := l.SetMonthlyQuota(ctx, admin, 2024, time.February, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 28, res.DaysUpdated)
	assert.Equal(t, []string{"2024-02-10"}, res.Skipped)

	assert.Equal(t, 2, quotaOf(t, store, "2024-02-29").TotalSeats)
	assert.Equal(t, 6, quotaOf(t, store, "2024-02-10").TotalSeats)

	last := rec.audits[len(rec.audits)-1]
	assert.Equal(t, domain.AuditSetMonthlyQuota, last.Action)
	assert.Equal(t, 28, last.Details["days_updated"])
	require.NoError(t, store.Verify())
}

func TestSetMonthlyQuota_Errors(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	_, err := l.SetMonthlyQuota(ctx, passenger(t, "9876543210"), 2025, time.March, 1, 1)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	_, err = l.SetMonthlyQuota(ctx, admin, 2025, time.Month(13), 1, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = l.SetMonthlyQuota(ctx, admin, 2025, time.March, 0, 1)
	assert.ErrorIs(t, err, domain.ErrValidation)
	res, err := l.SetMonthlyQuota(ctx, admin, 2025, time.March, 3037000500, 3037000500)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, res.DaysUpdated)
}

func TestSetMonthlyQuota_MonthLength(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	res, err := l.SetMonthlyQuota(ctx, admin, 2025, time.February, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 28, res.DaysUpdated)
	assert.Empty(t, res.Skipped)

	res, err = l.SetMonthlyQuota(ctx, admin, 2025, time.April, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 30, res.DaysUpdated)
}

func TestSetMonthlyQuota_LastDaySkipped(t *testing.T) {
	l, _, _ := newLedger(t)
	ctx := context.Background()

	_, err := l.SetQuota(ctx, admin, "2025-04-30", 1, 2)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err := l.CreateBooking(ctx, passenger(t, "9876543210"), input("2025-04-30"))
		require.NoError(t, err)
	}

	res, err := l.SetMonthlyQuota(ctx, admin, 2025, time.April, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 29, res.DaysUpdated)
	assert.Equal(t, []string{"2025-04-30"}, res.Skipped)
}

package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-payments/internal/apperr"
	"github.com/iliyamo/rental-payments/internal/model"
	"github.com/iliyamo/rental-payments/internal/queue"
	"github.com/iliyamo/rental-payments/internal/repository"
)

var (
	guest = model.Actor{UserID: 7, Role: model.RoleGuest}
	other = model.Actor{UserID: 8, Role: model.RoleGuest}
	admin = model.Actor{UserID: 1, Role: model.RoleAdmin}
)

type recorder struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recorder) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	store  *repository.MemoryStore
	engine *Engine
	events *recorder
	clock  *fakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  repository.NewMemoryStore(),
		events: &recorder{},
		clock:  &fakeClock{t: time.Date(2026, time.January, 10, 12, 0, 0, 0, time.UTC)},
	}
	f.engine = New(f.store, WithNotifier(f.events), WithClock(f.clock.Now), WithLinkSecret("link-secret"))
	t.Cleanup(f.engine.Close)
	return f
}

// delivered waits for the outbox and returns the event types seen so far.
func (f *fixture) delivered() []string {
	f.engine.Flush()
	return f.events.types()
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthly books 1200 + 50 over three months for the guest.
func (f *fixture) monthly(t *testing.T) (*model.Booking, []model.Milestone) {
	t.Helper()
	b, ms, err := f.engine.CreateBooking(context.Background(), guest, CreateBookingInput{
		Price:        decimal.NewFromInt(1200),
		BookingPrice: decimal.NewFromInt(50),
		PriceType:    model.PeriodMonth,
		StartDate:    day(2026, time.January, 1),
		EndDate:      day(2026, time.April, 1),
	})
	require.NoError(t, err)
	require.Len(t, ms, 4)
	return b, ms
}

func (f *fixture) booking(t *testing.T, id uint64) *model.Booking {
	t.Helper()
	b, err := f.store.GetBooking(context.Background(), id)
	require.NoError(t, err)
	return b
}

func (f *fixture) milestone(t *testing.T, id uint64) *model.Milestone {
	t.Helper()
	m, err := f.store.GetMilestone(context.Background(), id)
	require.NoError(t, err)
	return m
}

func (f *fixture) payment(t *testing.T, id uint64) *model.Payment {
	t.Helper()
	p, err := f.store.GetPayment(context.Background(), id)
	require.NoError(t, err)
	return p
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	require.True(t, apperr.HasCode(err, code), "want %s, got %v", code, err)
}

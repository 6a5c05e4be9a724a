package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/rental-payments/internal/model"
)

// MemoryStore is a process-local Store.  A transaction works on a copy of
// the whole state and swaps it in on success, so a failed unit of work
// leaves nothing behind.  Transactions are serialised by a single mutex.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	now   func() time.Time
}

type memState struct {
	bookings   map[uint64]model.Booking
	milestones map[uint64]model.Milestone
	payments   map[uint64]model.Payment
	links      map[uint64]model.PaymentLink
	nextID     map[string]uint64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		state: &memState{
			bookings:   map[uint64]model.Booking{},
			milestones: map[uint64]model.Milestone{},
			payments:   map[uint64]model.Payment{},
			links:      map[uint64]model.PaymentLink{},
			nextID:     map[string]uint64{},
		},
		now: time.Now,
	}
}

func (s *MemoryStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(&memTx{st: work, now: s.now}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) read() *memTx {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memTx{st: s.state.clone(), now: s.now}
}

func (s *MemoryStore) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return s.read().GetBooking(ctx, id)
}

func (s *MemoryStore) GetMilestone(ctx context.Context, id uint64) (*model.Milestone, error) {
	return s.read().GetMilestone(ctx, id)
}

func (s *MemoryStore) ListMilestones(ctx context.Context, bookingID uint64) ([]model.Milestone, error) {
	return s.read().ListMilestones(ctx, bookingID)
}

func (s *MemoryStore) GetPayment(ctx context.Context, id uint64) (*model.Payment, error) {
	return s.read().GetPayment(ctx, id)
}

func (s *MemoryStore) ListPayments(ctx context.Context, bookingID uint64) ([]model.Payment, error) {
	return s.read().ListPayments(ctx, bookingID)
}

func (s *MemoryStore) GetLinkByToken(ctx context.Context, tokenHash string) (*model.PaymentLink, error) {
	return s.read().GetLinkByToken(ctx, tokenHash)
}

func (s *MemoryStore) ListLinks(ctx context.Context, milestoneID uint64) ([]model.PaymentLink, error) {
	return s.read().ListLinks(ctx, milestoneID)
}

func (st *memState) clone() *memState {
	c := &memState{
		bookings:   make(map[uint64]model.Booking, len(st.bookings)),
		milestones: make(map[uint64]model.Milestone, len(st.milestones)),
		payments:   make(map[uint64]model.Payment, len(st.payments)),
		links:      make(map[uint64]model.PaymentLink, len(st.links)),
		nextID:     make(map[string]uint64, len(st.nextID)),
	}
	// Rows hold pointers only to values that are replaced wholesale on
	// update, never mutated in place, so a shallow copy per row suffices.
	for k, v := range st.bookings {
		c.bookings[k] = v
	}
	for k, v := range st.milestones {
		c.milestones[k] = v
	}
	for k, v := range st.payments {
		c.payments[k] = v
	}
	for k, v := range st.links {
		c.links[k] = v
	}
	for k, v := range st.nextID {
		c.nextID[k] = v
	}
	return c
}

func (st *memState) id(table string) uint64 {
	st.nextID[table]++
	return st.nextID[table]
}

type memTx struct {
	st  *memState
	now func() time.Time
}

func (t *memTx) GetBooking(_ context.Context, id uint64) (*model.Booking, error) {
	b, ok := t.st.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t *memTx) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return t.GetBooking(ctx, id)
}

func (t *memTx) CreateBooking(_ context.Context, b *model.Booking) error {
	now := t.now()
	b.ID = t.st.id("bookings")
	b.CreatedAt, b.UpdatedAt = now, now
	if b.PaymentStatus == "" {
		b.PaymentStatus = model.BookingPaymentPending
	}
	t.st.bookings[b.ID] = *b
	return nil
}

func (t *memTx) UpdateBookingPaymentStatus(_ context.Context, id uint64, status string, last *time.Time) error {
	b, ok := t.st.bookings[id]
	if !ok {
		return ErrNotFound
	}
	b.PaymentStatus = status
	b.LastPaymentDate = last
	b.UpdatedAt = t.now()
	t.st.bookings[id] = b
	return nil
}

func (t *memTx) GetMilestone(_ context.Context, id uint64) (*model.Milestone, error) {
	m, ok := t.st.milestones[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (t *memTx) ListMilestones(_ context.Context, bookingID uint64) ([]model.Milestone, error) {
	out := []model.Milestone{}
	for _, m := range t.st.milestones {
		if m.BookingID == bookingID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

func (t *memTx) LockMilestones(ctx context.Context, bookingID uint64) ([]model.Milestone, error) {
	return t.ListMilestones(ctx, bookingID)
}

func (t *memTx) CreateMilestones(_ context.Context, ms []model.Milestone) error {
	now := t.now()
	for i := range ms {
		ms[i].ID = t.st.id("milestones")
		ms[i].CreatedAt, ms[i].UpdatedAt = now, now
		t.st.milestones[ms[i].ID] = ms[i]
	}
	return nil
}

func (t *memTx) UpdateMilestone(_ context.Context, m *model.Milestone) error {
	if _, ok := t.st.milestones[m.ID]; !ok {
		return ErrNotFound
	}
	m.UpdatedAt = t.now()
	t.st.milestones[m.ID] = *m
	return nil
}

func (t *memTx) GetPayment(_ context.Context, id uint64) (*model.Payment, error) {
	p, ok := t.st.payments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memTx) ListPayments(_ context.Context, bookingID uint64) ([]model.Payment, error) {
	out := []model.Payment{}
	for _, p := range t.st.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) CreatePayment(_ context.Context, p *model.Payment) error {
	now := t.now()
	p.ID = t.st.id("payments")
	p.CreatedAt, p.UpdatedAt = now, now
	t.st.payments[p.ID] = *p
	return nil
}

func (t *memTx) UpdatePayment(_ context.Context, p *model.Payment) error {
	if _, ok := t.st.payments[p.ID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = t.now()
	t.st.payments[p.ID] = *p
	return nil
}

func (t *memTx) GetLinkByToken(_ context.Context, tokenHash string) (*model.PaymentLink, error) {
	for _, l := range t.st.links {
		if l.TokenHash == tokenHash {
			return &l, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) ListLinks(_ context.Context, milestoneID uint64) ([]model.PaymentLink, error) {
	out := []model.PaymentLink{}
	for _, l := range t.st.links {
		if l.MilestoneID == milestoneID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (t *memTx) CreateLink(_ context.Context, l *model.PaymentLink) error {
	for _, existing := range t.st.links {
		if existing.TokenHash == l.TokenHash {
			return ErrConflict
		}
	}
	now := t.now()
	l.ID = t.st.id("payment_links")
	l.CreatedAt, l.UpdatedAt = now, now
	stored := *l
	stored.UniqueID = ""
	t.st.links[l.ID] = stored
	return nil
}

func (t *memTx) UpdateLink(_ context.Context, l *model.PaymentLink) error {
	if _, ok := t.st.links[l.ID]; !ok {
		return ErrNotFound
	}
	l.UpdatedAt = t.now()
	stored := *l
	stored.UniqueID = ""
	t.st.links[l.ID] = stored
	return nil
}

func (t *memTx) TransitionLinks(_ context.Context, milestoneID uint64, from []string, to string) (int64, error) {
	var n int64
	for id, l := range t.st.links {
		if l.MilestoneID != milestoneID || !contains(from, l.Status) {
			continue
		}
		l.Status = to
		l.UpdatedAt = t.now()
		t.st.links[id] = l
		n++
	}
	return n, nil
}

func (t *memTx) ExpireLinks(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, l := range t.st.links {
		if l.Status == model.LinkActive && l.ExpiresAt.Before(now) {
			l.Status = model.LinkExpired
			l.UpdatedAt = now
			t.st.links[id] = l
			n++
		}
	}
	return n, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

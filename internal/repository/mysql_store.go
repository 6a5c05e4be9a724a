package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/rental-payments/internal/model"
)

// MySQLStore implements Store on top of the four table repositories.
type MySQLStore struct {
	db  *sql.DB
	ops sqlOps
}

// NewMySQLStore returns a Store bound to db.
func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db, ops: sqlOps{q: db}}
}

// DB exposes the underlying handle for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

// WithTx begins a READ COMMITTED transaction.  Isolation between writers
// comes from the booking row lock every ledger operation takes first;
// READ COMMITTED makes the reads that follow the lock see the latest
// committed rows instead of an older snapshot.
func (s *MySQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(sqlOps{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

func (s *MySQLStore) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return s.ops.GetBooking(ctx, id)
}

func (s *MySQLStore) GetMilestone(ctx context.Context, id uint64) (*model.Milestone, error) {
	return s.ops.GetMilestone(ctx, id)
}

func (s *MySQLStore) ListMilestones(ctx context.Context, bookingID uint64) ([]model.Milestone, error) {
	return s.ops.ListMilestones(ctx, bookingID)
}

func (s *MySQLStore) GetPayment(ctx context.Context, id uint64) (*model.Payment, error) {
	return s.ops.GetPayment(ctx, id)
}

func (s *MySQLStore) ListPayments(ctx context.Context, bookingID uint64) ([]model.Payment, error) {
	return s.ops.ListPayments(ctx, bookingID)
}

func (s *MySQLStore) GetLinkByToken(ctx context.Context, tokenHash string) (*model.PaymentLink, error) {
	return s.ops.GetLinkByToken(ctx, tokenHash)
}

func (s *MySQLStore) ListLinks(ctx context.Context, milestoneID uint64) ([]model.PaymentLink, error) {
	return s.ops.ListLinks(ctx, milestoneID)
}

// sqlOps adapts the table repositories to the Tx interface for a single
// querier, either the pool (reads) or an open transaction.
type sqlOps struct {
	q          querier
	bookings   BookingRepo
	milestones MilestoneRepo
	payments   PaymentRepo
	links      PaymentLinkRepo
}

func (o sqlOps) GetBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return o.bookings.Get(ctx, o.q, id)
}

func (o sqlOps) LockBooking(ctx context.Context, id uint64) (*model.Booking, error) {
	return o.bookings.GetForUpdate(ctx, o.q, id)
}

func (o sqlOps) CreateBooking(ctx context.Context, b *model.Booking) error {
	return o.bookings.Create(ctx, o.q, b)
}

func (o sqlOps) UpdateBookingPaymentStatus(ctx context.Context, id uint64, status string, last *time.Time) error {
	return o.bookings.UpdatePaymentStatus(ctx, o.q, id, status, last)
}

func (o sqlOps) GetMilestone(ctx context.Context, id uint64) (*model.Milestone, error) {
	return o.milestones.Get(ctx, o.q, id)
}

func (o sqlOps) ListMilestones(ctx context.Context, bookingID uint64) ([]model.Milestone, error) {
	return o.milestones.ListByBooking(ctx, o.q, bookingID, false)
}

func (o sqlOps) LockMilestones(ctx context.Context, bookingID uint64) ([]model.Milestone, error) {
	return o.milestones.ListByBooking(ctx, o.q, bookingID, true)
}

func (o sqlOps) CreateMilestones(ctx context.Context, ms []model.Milestone) error {
	return o.milestones.CreateBulk(ctx, o.q, ms)
}

func (o sqlOps) UpdateMilestone(ctx context.Context, m *model.Milestone) error {
	return o.milestones.Update(ctx, o.q, m)
}

func (o sqlOps) GetPayment(ctx context.Context, id uint64) (*model.Payment, error) {
	return o.payments.Get(ctx, o.q, id)
}

func (o sqlOps) ListPayments(ctx context.Context, bookingID uint64) ([]model.Payment, error) {
	return o.payments.ListByBooking(ctx, o.q, bookingID)
}

func (o sqlOps) CreatePayment(ctx context.Context, p *model.Payment) error {
	return o.payments.Create(ctx, o.q, p)
}

func (o sqlOps) UpdatePayment(ctx context.Context, p *model.Payment) error {
	return o.payments.Update(ctx, o.q, p)
}

func (o sqlOps) GetLinkByToken(ctx context.Context, tokenHash string) (*model.PaymentLink, error) {
	return o.links.GetByTokenHash(ctx, o.q, tokenHash)
}

func (o sqlOps) ListLinks(ctx context.Context, milestoneID uint64) ([]model.PaymentLink, error) {
	return o.links.ListByMilestone(ctx, o.q, milestoneID)
}

func (o sqlOps) CreateLink(ctx context.Context, l *model.PaymentLink) error {
	return o.links.Create(ctx, o.q, l)
}

func (o sqlOps) UpdateLink(ctx context.Context, l *model.PaymentLink) error {
	return o.links.Update(ctx, o.q, l)
}

func (o sqlOps) TransitionLinks(ctx context.Context, milestoneID uint64, from []string, to string) (int64, error) {
	return o.links.TransitionByMilestone(ctx, o.q, milestoneID, from, to)
}

func (o sqlOps) ExpireLinks(ctx context.Context, now time.Time) (int64, error) {
	return o.links.ExpireBefore(ctx, o.q, now)
}

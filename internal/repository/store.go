package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/rental-payments/internal/model"
)

// Reader exposes the committed state of the four ledgers.
type Reader interface {
	GetBooking(ctx context.Context, id uint64) (*model.Booking, error)
	GetMilestone(ctx context.Context, id uint64) (*model.Milestone, error)
	ListMilestones(ctx context.Context, bookingID uint64) ([]model.Milestone, error)
	GetPayment(ctx context.Context, id uint64) (*model.Payment, error)
	ListPayments(ctx context.Context, bookingID uint64) ([]model.Payment, error)
	GetLinkByToken(ctx context.Context, tokenHash string) (*model.PaymentLink, error)
	ListLinks(ctx context.Context, milestoneID uint64) ([]model.PaymentLink, error)
}

// Tx is one unit of work spanning bookings, milestones, payments and
// payment links.  Every write issued through a Tx commits or rolls back
// together.
type Tx interface {
	Reader

	// LockBooking loads the booking and holds its row lock until the
	// transaction ends.  Every ledger write for a booking takes this lock
	// first, which serialises concurrent writers per booking.
	LockBooking(ctx context.Context, id uint64) (*model.Booking, error)
	// LockMilestones loads the booking's milestones ordered by due date
	// and sequence, locking the rows.
	LockMilestones(ctx context.Context, bookingID uint64) ([]model.Milestone, error)

	CreateBooking(ctx context.Context, b *model.Booking) error
	UpdateBookingPaymentStatus(ctx context.Context, id uint64, status string, lastPaymentDate *time.Time) error

	CreateMilestones(ctx context.Context, ms []model.Milestone) error
	UpdateMilestone(ctx context.Context, m *model.Milestone) error

	CreatePayment(ctx context.Context, p *model.Payment) error
	UpdatePayment(ctx context.Context, p *model.Payment) error

	CreateLink(ctx context.Context, l *model.PaymentLink) error
	UpdateLink(ctx context.Context, l *model.PaymentLink) error
	// TransitionLinks moves every link of the milestone whose status is in
	// from to status to and returns how many rows changed.
	TransitionLinks(ctx context.Context, milestoneID uint64, from []string, to string) (int64, error)
	// ExpireLinks flips active links whose expiry is before now to expired.
	ExpireLinks(ctx context.Context, now time.Time) (int64, error)
}

// Store is the ledger's storage boundary.
type Store interface {
	Reader
	// WithTx runs fn inside a single transaction.  A non-nil error from fn
	// (or from commit) rolls back every write fn made.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// querier is satisfied by both *sql.DB and *sql.Tx so the same
// repository methods serve reads outside and writes inside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

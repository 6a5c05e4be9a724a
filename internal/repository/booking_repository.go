package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/rental-payments/internal/model"
)

// BookingRepo provides access to the bookings table.  Dates are stored as
// DATE columns and timestamps in UTC.
type BookingRepo struct{}

const bookingColumns = `id, user_id, price, booking_price, price_type, start_date, end_date,
                        payment_status, last_payment_date, created_at, updated_at`

// Create inserts a booking and reads back the generated id and defaults.
func (BookingRepo) Create(ctx context.Context, q querier, b *model.Booking) error {
	const ins = `INSERT INTO bookings (user_id, price, booking_price, price_type, start_date, end_date, payment_status)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`
	if b.PaymentStatus == "" {
		b.PaymentStatus = model.BookingPaymentPending
	}
	res, err := q.ExecContext(ctx, ins, b.UserID, b.Price, b.BookingPrice, b.PriceType,
		nullTime(b.StartDate), nullTime(b.EndDate), b.PaymentStatus)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := BookingRepo{}.get(ctx, q, uint64(id), false)
	if err != nil {
		return err
	}
	*b = *got
	return nil
}

// Get loads a booking by id.  ErrNotFound is returned when it does not
// exist.
func (r BookingRepo) Get(ctx context.Context, q querier, id uint64) (*model.Booking, error) {
	return r.get(ctx, q, id, false)
}

// GetForUpdate loads a booking and locks its row for the remainder of the
// transaction.  q must be a *sql.Tx.
func (r BookingRepo) GetForUpdate(ctx context.Context, q querier, id uint64) (*model.Booking, error) {
	return r.get(ctx, q, id, true)
}

func (BookingRepo) get(ctx context.Context, q querier, id uint64, lock bool) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = ?`
	if lock {
		query += ` FOR UPDATE`
	}
	var b model.Booking
	var start, end, last sql.NullTime
	err := q.QueryRowContext(ctx, query, id).Scan(
		&b.ID, &b.UserID, &b.Price, &b.BookingPrice, &b.PriceType, &start, &end,
		&b.PaymentStatus, &last, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	b.StartDate = timePtr(start)
	b.EndDate = timePtr(end)
	b.LastPaymentDate = timePtr(last)
	return &b, nil
}

// UpdatePaymentStatus writes the derived aggregate.  It is the only write
// path for bookings.payment_status.
func (BookingRepo) UpdatePaymentStatus(ctx context.Context, q querier, id uint64, status string, last *time.Time) error {
	const upd = `UPDATE bookings SET payment_status = ?, last_payment_date = ? WHERE id = ?`
	res, err := q.ExecContext(ctx, upd, status, nullTime(last), id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullID(id *uint64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*id), Valid: true}
}

func idPtr(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	id := uint64(n.Int64)
	return &id
}

// expectRow turns an UPDATE that matched nothing into ErrNotFound.  The
// DSN sets clientFoundRows so unchanged-but-matched rows still count.
func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

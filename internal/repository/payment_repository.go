package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/rental-payments/internal/model"
)

// PaymentRepo provides access to the payments table.
type PaymentRepo struct{}

const paymentColumns = `id, booking_id, milestone_id, amount, method, status, reference,
                        match_source, paid_at, created_at, updated_at`

// Create inserts a payment and reads back the stored row.
func (r PaymentRepo) Create(ctx context.Context, q querier, p *model.Payment) error {
	const ins = `INSERT INTO payments (booking_id, milestone_id, amount, method, status, reference, match_source, paid_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, ins, p.BookingID, nullID(p.MilestoneID), p.Amount, p.Method,
		p.Status, p.Reference, p.MatchSource, nullTime(p.PaidAt))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	got, err := r.Get(ctx, q, uint64(id))
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// Get loads a payment by id.
func (PaymentRepo) Get(ctx context.Context, q querier, id uint64) (*model.Payment, error) {
	row := q.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListByBooking returns every payment recorded against the booking,
// oldest first.
func (PaymentRepo) ListByBooking(ctx context.Context, q querier, bookingID uint64) ([]model.Payment, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = ? ORDER BY id`, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes status, resolution and paid-at of a payment.  Amount,
// method and owning booking are immutable once recorded.
func (PaymentRepo) Update(ctx context.Context, q querier, p *model.Payment) error {
	const upd = `UPDATE payments
                 SET milestone_id = ?, status = ?, reference = ?, match_source = ?, paid_at = ?
                 WHERE id = ?`
	res, err := q.ExecContext(ctx, upd, nullID(p.MilestoneID), p.Status, p.Reference,
		p.MatchSource, nullTime(p.PaidAt), p.ID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func scanPayment(s rowScanner) (*model.Payment, error) {
	var p model.Payment
	var milestoneID sql.NullInt64
	var paidAt sql.NullTime
	if err := s.Scan(
		&p.ID, &p.BookingID, &milestoneID, &p.Amount, &p.Method, &p.Status, &p.Reference,
		&p.MatchSource, &paidAt, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.MilestoneID = idPtr(milestoneID)
	p.PaidAt = timePtr(paidAt)
	return &p, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/rental-payments/internal/model"
)

// MilestoneRepo provides access to the milestones table.  Rows are only
// ever inserted in bulk and updated; there is no delete.
type MilestoneRepo struct{}

const milestoneColumns = `id, booking_id, sequence, type, due_date, amount, status,
                          payment_id, paid_at, payment_method, payment_reference, created_at, updated_at`

// CreateBulk inserts the whole schedule in one statement and assigns ids
// back onto ms.  MySQL hands out consecutive auto-increment ids for a
// single multi-row insert, so ids are derived from LastInsertId.
func (MilestoneRepo) CreateBulk(ctx context.Context, q querier, ms []model.Milestone) error {
	if len(ms) == 0 {
		return nil
	}
	query := `INSERT INTO milestones (booking_id, sequence, type, due_date, amount, status) VALUES `
	args := make([]any, 0, len(ms)*6)
	for i, m := range ms {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		status := m.Status
		if status == "" {
			status = model.MilestonePending
		}
		args = append(args, m.BookingID, m.Sequence, m.Type, m.DueDate, m.Amount, status)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	first, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i := range ms {
		ms[i].ID = uint64(first) + uint64(i)
		if ms[i].Status == "" {
			ms[i].Status = model.MilestonePending
		}
	}
	return nil
}

// Get loads one milestone by id.
func (MilestoneRepo) Get(ctx context.Context, q querier, id uint64) (*model.Milestone, error) {
	row := q.QueryRowContext(ctx, `SELECT `+milestoneColumns+` FROM milestones WHERE id = ?`, id)
	m, err := scanMilestone(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

// ListByBooking returns the booking's milestones ordered by due date then
// sequence, which is the order amount matching walks them in.  With lock
// set the rows are read FOR UPDATE.
func (MilestoneRepo) ListByBooking(ctx context.Context, q querier, bookingID uint64, lock bool) ([]model.Milestone, error) {
	query := `SELECT ` + milestoneColumns + ` FROM milestones WHERE booking_id = ? ORDER BY due_date, sequence`
	if lock {
		query += ` FOR UPDATE`
	}
	rows, err := q.QueryContext(ctx, query, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Milestone, 0)
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes the mutable columns of a milestone: status and the
// satisfying-payment snapshot.
func (MilestoneRepo) Update(ctx context.Context, q querier, m *model.Milestone) error {
	const upd = `UPDATE milestones
                 SET status = ?, payment_id = ?, paid_at = ?, payment_method = ?, payment_reference = ?
                 WHERE id = ?`
	res, err := q.ExecContext(ctx, upd, m.Status, nullID(m.PaymentID), nullTime(m.PaidAt),
		nullString(m.PaymentMethod), nullString(m.PaymentReference), m.ID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMilestone(s rowScanner) (*model.Milestone, error) {
	var m model.Milestone
	var paymentID sql.NullInt64
	var paidAt sql.NullTime
	var method, ref sql.NullString
	if err := s.Scan(
		&m.ID, &m.BookingID, &m.Sequence, &m.Type, &m.DueDate, &m.Amount, &m.Status,
		&paymentID, &paidAt, &method, &ref, &m.CreatedAt, &m.UpdatedAt,
	); err != nil {
		return nil, err
	}
	m.DueDate = m.DueDate.UTC()
	m.PaymentID = idPtr(paymentID)
	m.PaidAt = timePtr(paidAt)
	m.PaymentMethod = stringPtr(method)
	m.PaymentReference = stringPtr(ref)
	return &m, nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

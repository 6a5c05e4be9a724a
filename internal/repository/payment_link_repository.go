package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/rental-payments/internal/model"
)

// PaymentLinkRepo provides access to the payment_links table.  Links are
// never deleted; superseded links move to expired or revoked.
type PaymentLinkRepo struct{}

const linkColumns = `id, token_hash, booking_id, milestone_id, amount, status, payment_id,
                     created_by, expires_at, created_at, updated_at`

// mysqlDuplicateEntry is the server error number for a unique key clash.
const mysqlDuplicateEntry = 1062

// Create inserts a link.  A clash on token_hash is reported as ErrConflict.
func (r PaymentLinkRepo) Create(ctx context.Context, q querier, l *model.PaymentLink) error {
	const ins = `INSERT INTO payment_links (token_hash, booking_id, milestone_id, amount, status, created_by, expires_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := q.ExecContext(ctx, ins, l.TokenHash, l.BookingID, l.MilestoneID, l.Amount, l.Status,
		l.CreatedBy, l.ExpiresAt.UTC())
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == mysqlDuplicateEntry {
			return ErrConflict
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	row := q.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM payment_links WHERE id = ?`, id)
	got, err := scanLink(row)
	if err != nil {
		return err
	}
	*l = *got
	return nil
}

// GetByTokenHash resolves a link by the digest of its token.
func (PaymentLinkRepo) GetByTokenHash(ctx context.Context, q querier, tokenHash string) (*model.PaymentLink, error) {
	row := q.QueryRowContext(ctx, `SELECT `+linkColumns+` FROM payment_links WHERE token_hash = ?`, tokenHash)
	l, err := scanLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

// ListByMilestone returns every link ever issued for the milestone,
// newest first.
func (PaymentLinkRepo) ListByMilestone(ctx context.Context, q querier, milestoneID uint64) ([]model.PaymentLink, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+linkColumns+` FROM payment_links WHERE milestone_id = ? ORDER BY id DESC`, milestoneID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.PaymentLink, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes status and the submitted payment id of a link.
func (PaymentLinkRepo) Update(ctx context.Context, q querier, l *model.PaymentLink) error {
	res, err := q.ExecContext(ctx, `UPDATE payment_links SET status = ?, payment_id = ? WHERE id = ?`,
		l.Status, nullID(l.PaymentID), l.ID)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// TransitionByMilestone moves the milestone's links in any of the from
// states to the to state.
func (PaymentLinkRepo) TransitionByMilestone(ctx context.Context, q querier, milestoneID uint64, from []string, to string) (int64, error) {
	if len(from) == 0 {
		return 0, nil
	}
	query := `UPDATE payment_links SET status = ? WHERE milestone_id = ? AND status IN (` + placeholders(len(from)) + `)`
	args := make([]any, 0, len(from)+2)
	args = append(args, to, milestoneID)
	for _, s := range from {
		args = append(args, s)
	}
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ExpireBefore flips active links whose expiry has passed.
func (PaymentLinkRepo) ExpireBefore(ctx context.Context, q querier, now time.Time) (int64, error) {
	res, err := q.ExecContext(ctx, `UPDATE payment_links SET status = ? WHERE status = ? AND expires_at < ?`,
		model.LinkExpired, model.LinkActive, now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func scanLink(s rowScanner) (*model.PaymentLink, error) {
	var l model.PaymentLink
	var paymentID sql.NullInt64
	if err := s.Scan(
		&l.ID, &l.TokenHash, &l.BookingID, &l.MilestoneID, &l.Amount, &l.Status, &paymentID,
		&l.CreatedBy, &l.ExpiresAt, &l.CreatedAt, &l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	l.PaymentID = idPtr(paymentID)
	l.ExpiresAt = l.ExpiresAt.UTC()
	return &l, nil
}

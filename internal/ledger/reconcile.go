package ledger

import (
	"context"
	"time"

	"github.com/iliyamo/rental-payments/internal/apperr"
	"github.com/iliyamo/rental-payments/internal/model"
	"github.com/iliyamo/rental-payments/internal/queue"
	"github.com/iliyamo/rental-payments/internal/repository"
)

// SetPaymentStatus moves a payment to paid, pending or cancelled and
// reconciles the milestone it belongs to and the booking aggregate in the
// same transaction.  Status names are matched case-insensitively.
func (e *Engine) SetPaymentStatus(ctx context.Context, paymentID uint64, status string) (*model.Payment, error) {
	target, ok := model.ParsePaymentStatus(status)
	if !ok {
		return nil, apperr.InvalidTransition(status)
	}

	var (
		out    *model.Payment
		events []queue.Event
	)
	err := e.store.WithTx(ctx, func(tx repository.Tx) error {
		p, err := tx.GetPayment(ctx, paymentID)
		if err != nil {
			return storeErr(err, "payment", paymentID)
		}
		b, err := tx.LockBooking(ctx, p.BookingID)
		if err != nil {
			return storeErr(err, "booking", p.BookingID)
		}
		// The first read only located the booking.  Re-read under its lock
		// so resolution sees what the previous writer committed.
		if p, err = tx.GetPayment(ctx, paymentID); err != nil {
			return storeErr(err, "payment", paymentID)
		}
		ms, err := tx.LockMilestones(ctx, b.ID)
		if err != nil {
			return storeErr(err, "milestones", b.ID)
		}
		events, err = e.reconcile(ctx, tx, b, ms, p, target)
		out = p
		return err
	})
	if err != nil {
		e.log.Ctx(ctx).Error("reconciliation aborted", "payment_id", paymentID, "status", target, "error", err)
		return nil, err
	}
	e.publish(events)
	return out, nil
}

// reconcile applies target to p inside tx.  b must be locked and ms must
// be the booking's milestones ordered by due date; both are updated in
// place.  The returned events are to be published after commit.
func (e *Engine) reconcile(ctx context.Context, tx repository.Tx, b *model.Booking, ms []model.Milestone,
	p *model.Payment, target string) ([]queue.Event, error) {
	now := e.clock()
	var events []queue.Event

	idx, source, err := resolveMilestone(ms, p, target)
	if err != nil {
		return nil, err
	}

	wasPaid := p.Status == model.PaymentPaid
	p.Status = target
	switch {
	case target == model.PaymentPaid && !wasPaid:
		p.PaidAt = &now
	case target != model.PaymentPaid:
		p.PaidAt = nil
	}
	if idx >= 0 {
		p.MilestoneID = &ms[idx].ID
	}
	p.MatchSource = source
	if err := tx.UpdatePayment(ctx, p); err != nil {
		return nil, storeErr(err, "payment", p.ID)
	}

	log := e.log.Ctx(ctx).Booking(b.ID).With("payment_id", p.ID, "status", target)
	if idx < 0 {
		log.Info("payment has no milestone", "match_source", source)
	} else {
		m := &ms[idx]
		log = log.With("milestone_id", m.ID)
		log.Info("payment milestone resolved", "match_source", source, "milestone", m.Label())

		if target == model.PaymentPaid {
			ev, err := e.settle(ctx, tx, b, m, p, now)
			if err != nil {
				return nil, err
			}
			if ev != nil {
				events = append(events, *ev)
			}
		} else if err := e.reverse(ctx, tx, m, p); err != nil {
			return nil, err
		}
	}

	ev, err := e.recompute(ctx, tx, b, ms, now)
	if err != nil {
		return nil, err
	}
	if ev != nil {
		events = append(events, *ev)
	}
	return events, nil
}

// resolveMilestone picks the milestone a payment applies to.  A milestone
// already recorded on the payment wins; then the milestone this payment
// currently satisfies; then, for payments becoming paid, the earliest-due
// pending milestone of exactly the payment's amount.
func resolveMilestone(ms []model.Milestone, p *model.Payment, target string) (int, string, error) {
	if p.MilestoneID != nil {
		idx := findMilestone(ms, *p.MilestoneID)
		if idx < 0 {
			return -1, "", apperr.NotFoundWithID("milestone", *p.MilestoneID)
		}
		source := p.MatchSource
		if source == "" || source == model.MatchNone {
			source = model.MatchExplicit
		}
		return idx, source, nil
	}
	for i := range ms {
		if ms[i].PaymentID != nil && *ms[i].PaymentID == p.ID {
			return i, model.MatchSatisfying, nil
		}
	}
	if target == model.PaymentPaid {
		for i := range ms {
			if !ms[i].IsPaid() && ms[i].Amount.Equal(p.Amount) {
				return i, model.MatchAmountMatch, nil
			}
		}
	}
	return -1, model.MatchNone, nil
}

// settle makes p the satisfying payment of m.  A different payment that
// satisfied m before is cancelled.
func (e *Engine) settle(ctx context.Context, tx repository.Tx, b *model.Booking, m *model.Milestone,
	p *model.Payment, now time.Time) (*queue.Event, error) {
	if m.IsPaid() && m.PaymentID != nil && *m.PaymentID == p.ID {
		if err := e.markCompleted(ctx, tx, m.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	previous := m.PaymentID
	method, reference := p.Method, p.Reference
	m.Status = model.MilestonePaid
	m.PaymentID = &p.ID
	m.PaidAt = &now
	m.PaymentMethod = &method
	m.PaymentReference = &reference
	if err := tx.UpdateMilestone(ctx, m); err != nil {
		return nil, storeErr(err, "milestone", m.ID)
	}
	if err := e.markCompleted(ctx, tx, m.ID); err != nil {
		return nil, err
	}

	if previous != nil && *previous != p.ID {
		old, err := tx.GetPayment(ctx, *previous)
		if err != nil {
			return nil, storeErr(err, "payment", *previous)
		}
		if old.Status != model.PaymentCancelled {
			old.Status = model.PaymentCancelled
			old.PaidAt = nil
			if err := tx.UpdatePayment(ctx, old); err != nil {
				return nil, storeErr(err, "payment", old.ID)
			}
			e.log.Ctx(ctx).Booking(b.ID).Info("payment superseded", "milestone_id", m.ID, "payment_id", old.ID, "superseded_by", p.ID)
		}
	}

	return &queue.Event{
		Type:        queue.EventMilestonePaid,
		BookingID:   b.ID,
		UserID:      b.UserID,
		MilestoneID: m.ID,
		Milestone:   m.Label(),
		PaymentID:   p.ID,
		Amount:      p.Amount,
		OccurredAt:  now,
	}, nil
}

// reverse undoes p's settlement of m.  A milestone satisfied by some other
// payment is left alone; only links carrying p are closed.
func (e *Engine) reverse(ctx context.Context, tx repository.Tx, m *model.Milestone, p *model.Payment) error {
	if m.PaymentID == nil || *m.PaymentID != p.ID {
		return e.closeLinksFor(ctx, tx, m.ID, p.ID)
	}
	m.Status = model.MilestonePending
	m.PaymentID = nil
	m.PaidAt = nil
	m.PaymentMethod = nil
	m.PaymentReference = nil
	if err := tx.UpdateMilestone(ctx, m); err != nil {
		return storeErr(err, "milestone", m.ID)
	}
	e.log.Ctx(ctx).Booking(m.BookingID).Info("milestone settlement reversed", "milestone_id", m.ID, "payment_id", p.ID)
	return e.markSuperseded(ctx, tx, m.ID)
}

// recompute persists the booking's projected status and reports a
// BookingFullyPaid event on the transition into paid.
func (e *Engine) recompute(ctx context.Context, tx repository.Tx, b *model.Booking, ms []model.Milestone,
	now time.Time) (*queue.Event, error) {
	ps, err := tx.ListPayments(ctx, b.ID)
	if err != nil {
		return nil, storeErr(err, "payments", b.ID)
	}
	proj := Project(b, ms, ps, now)
	if err := tx.UpdateBookingPaymentStatus(ctx, b.ID, proj.Status, proj.LastPaymentDate); err != nil {
		return nil, storeErr(err, "booking", b.ID)
	}
	previous := b.PaymentStatus
	b.PaymentStatus = proj.Status
	b.LastPaymentDate = proj.LastPaymentDate
	if previous != model.BookingPaymentPaid && proj.Status == model.BookingPaymentPaid {
		return &queue.Event{
			Type:       queue.EventBookingFullyPaid,
			BookingID:  b.ID,
			UserID:     b.UserID,
			Amount:     proj.TotalPaid,
			OccurredAt: now,
		}, nil
	}
	return nil, nil
}

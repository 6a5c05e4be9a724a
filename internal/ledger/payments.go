package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/iliyamo/rental-payments/internal/apperr"
	"github.com/iliyamo/rental-payments/internal/model"
	"github.com/iliyamo/rental-payments/internal/queue"
	"github.com/iliyamo/rental-payments/internal/repository"
)

// RecordPayment stores a new pending payment against a booking.  It does
// not touch milestones; confirming the payment through SetPaymentStatus
// does.  Manual payments without a reference get a synthetic one.
func (e *Engine) RecordPayment(ctx context.Context, actor model.Actor, in RecordPaymentInput) (*model.Payment, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}

	var p *model.Payment
	err := e.store.WithTx(ctx, func(tx repository.Tx) error {
		b, err := tx.LockBooking(ctx, in.BookingID)
		if err != nil {
			return storeErr(err, "booking", in.BookingID)
		}
		if err := authorize(actor, b); err != nil {
			return err
		}
		source := ""
		if in.MilestoneID != nil {
			m, err := tx.GetMilestone(ctx, *in.MilestoneID)
			if err != nil {
				return storeErr(err, "milestone", *in.MilestoneID)
			}
			if m.BookingID != b.ID {
				return apperr.Validation("milestone belongs to another booking",
					map[string]any{"milestone_id": m.ID, "booking_id": b.ID})
			}
			source = model.MatchExplicit
		}
		p = &model.Payment{
			BookingID:   b.ID,
			MilestoneID: in.MilestoneID,
			Amount:      in.Amount,
			Method:      in.Method,
			Status:      model.PaymentPending,
			Reference:   reference(in.Method, in.Reference),
			MatchSource: source,
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			return storeErr(err, "payment", b.ID)
		}
		e.log.Ctx(ctx).Booking(b.ID).Info("payment recorded", "payment_id", p.ID,
			"amount", p.Amount.StringFixed(2), "method", p.Method)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// PayMilestone is the guest self-service path: it records a payment for
// the milestone's full amount and settles it in one transaction.
func (e *Engine) PayMilestone(ctx context.Context, actor model.Actor, in PayMilestoneInput) (*model.Payment, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}

	var (
		p      *model.Payment
		events []queue.Event
	)
	err := e.store.WithTx(ctx, func(tx repository.Tx) error {
		b, ms, idx, err := e.lockMilestone(ctx, tx, actor, in.MilestoneID)
		if err != nil {
			return err
		}
		m := ms[idx]
		if m.IsPaid() {
			return apperr.AlreadySettled(m.ID)
		}
		p = &model.Payment{
			BookingID:   b.ID,
			MilestoneID: &m.ID,
			Amount:      m.Amount,
			Method:      in.Method,
			Status:      model.PaymentPending,
			Reference:   reference(in.Method, in.Reference),
			MatchSource: model.MatchExplicit,
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			return storeErr(err, "payment", b.ID)
		}
		events, err = e.reconcile(ctx, tx, b, ms, p, model.PaymentPaid)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.publish(events)
	return p, nil
}

// BookingPayments lists a booking's payments in creation order.
func (e *Engine) BookingPayments(ctx context.Context, actor model.Actor, bookingID uint64) ([]model.Payment, error) {
	if _, err := e.Booking(ctx, actor, bookingID); err != nil {
		return nil, err
	}
	ps, err := e.store.ListPayments(ctx, bookingID)
	if err != nil {
		return nil, storeErr(err, "payments", bookingID)
	}
	return ps, nil
}

func reference(method, ref string) string {
	if ref == "" && method == model.MethodManual {
		return "MAN-" + uuid.NewString()
	}
	return ref
}

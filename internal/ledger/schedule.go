package ledger

import (
	"context"
	"errors"

	"github.com/iliyamo/rental-payments/internal/apperr"
	"github.com/iliyamo/rental-payments/internal/model"
	"github.com/iliyamo/rental-payments/internal/repository"
	"github.com/iliyamo/rental-payments/internal/schedule"
)

// EnsureSchedule returns the booking's milestones, generating them on
// first use.  The existence check is repeated under the booking lock so
// two concurrent first reads produce a single schedule.
func (e *Engine) EnsureSchedule(ctx context.Context, bookingID uint64) ([]model.Milestone, error) {
	ms, err := e.store.ListMilestones(ctx, bookingID)
	if err != nil {
		return nil, storeErr(err, "milestones", bookingID)
	}
	if len(ms) > 0 {
		return ms, nil
	}

	err = e.store.WithTx(ctx, func(tx repository.Tx) error {
		b, err := tx.LockBooking(ctx, bookingID)
		if err != nil {
			return storeErr(err, "booking", bookingID)
		}
		if ms, err = tx.LockMilestones(ctx, b.ID); err != nil {
			return storeErr(err, "milestones", b.ID)
		}
		if len(ms) > 0 {
			return nil
		}
		ms, err = e.generate(ctx, tx, b)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ms, nil
}

// CreateBooking inserts a booking and its schedule together.  A booking
// whose schedule cannot be generated is not created.
func (e *Engine) CreateBooking(ctx context.Context, actor model.Actor, in CreateBookingInput) (*model.Booking, []model.Milestone, error) {
	if err := e.check(in); err != nil {
		return nil, nil, err
	}
	owner := actor.UserID
	if actor.IsAdmin() && in.UserID != 0 {
		owner = in.UserID
	}
	if owner == 0 {
		return nil, nil, apperr.Validation("booking needs an owner", map[string]any{"field": "user_id"})
	}

	start, end := in.StartDate, in.EndDate
	b := &model.Booking{
		UserID:        owner,
		Price:         in.Price,
		BookingPrice:  in.BookingPrice,
		PriceType:     in.PriceType,
		StartDate:     &start,
		EndDate:       &end,
		PaymentStatus: model.BookingPaymentPending,
	}
	var ms []model.Milestone
	err := e.store.WithTx(ctx, func(tx repository.Tx) error {
		if err := tx.CreateBooking(ctx, b); err != nil {
			return storeErr(err, "booking", 0)
		}
		var err error
		ms, err = e.generate(ctx, tx, b)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	e.log.Ctx(ctx).Booking(b.ID).Info("booking created", "user_id", b.UserID, "milestones", len(ms),
		"total", b.TotalAmount().StringFixed(2))
	return b, ms, nil
}

func (e *Engine) generate(ctx context.Context, tx repository.Tx, b *model.Booking) ([]model.Milestone, error) {
	items, err := schedule.Generate(schedule.Input{
		Price:        b.Price,
		BookingPrice: b.BookingPrice,
		StartDate:    b.StartDate,
		EndDate:      b.EndDate,
		PriceType:    b.PriceType,
	})
	if err != nil {
		if errors.Is(err, schedule.ErrInputInvalid) {
			return nil, apperr.ScheduleInput("booking cannot produce a payment schedule", err).
				WithDetails(map[string]any{"booking_id": b.ID})
		}
		return nil, apperr.Internal("schedule generation failed", err)
	}

	ms := make([]model.Milestone, len(items))
	for i, it := range items {
		ms[i] = model.Milestone{
			BookingID: b.ID,
			Sequence:  it.Sequence,
			Type:      it.Type,
			DueDate:   it.DueDate,
			Amount:    it.Amount,
			Status:    model.MilestonePending,
		}
	}
	if err := tx.CreateMilestones(ctx, ms); err != nil {
		return nil, storeErr(err, "milestones", b.ID)
	}
	e.log.Ctx(ctx).Booking(b.ID).Info("payment schedule generated", "milestones", len(ms))
	return ms, nil
}

package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rental-payments/internal/model"
)

// Projection is the booking's derived payment state.
type Projection struct {
	Status          string
	LastPaymentDate *time.Time
	TotalAmount     decimal.Decimal
	TotalPaid       decimal.Decimal
	Milestones      int
	PaidMilestones  int
}

// Project derives the booking's aggregate payment status.  A booking is
// paid only when the money covers the total and every milestone is
// settled; any paid money short of that makes it partially paid.
func Project(b *model.Booking, ms []model.Milestone, ps []model.Payment, now time.Time) Projection {
	p := Projection{
		TotalAmount: b.TotalAmount(),
		TotalPaid:   decimal.Zero,
		Milestones:  len(ms),
	}
	for i := range ps {
		if ps[i].Status == model.PaymentPaid {
			p.TotalPaid = p.TotalPaid.Add(ps[i].Amount)
		}
	}
	for i := range ms {
		if ms[i].IsPaid() {
			p.PaidMilestones++
		}
	}

	switch {
	case p.TotalPaid.GreaterThanOrEqual(p.TotalAmount) && p.PaidMilestones == p.Milestones:
		p.Status = model.BookingPaymentPaid
	case p.TotalPaid.IsPositive():
		p.Status = model.BookingPaymentPartiallyPaid
	default:
		p.Status = model.BookingPaymentPending
	}
	if p.PaidMilestones > 0 {
		t := now
		p.LastPaymentDate = &t
	}
	return p
}

// Remaining is what is still owed, never negative.
func (p Projection) Remaining() decimal.Decimal {
	r := p.TotalAmount.Sub(p.TotalPaid)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

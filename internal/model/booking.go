package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Aggregate payment states of a booking.  They are derived from the
// booking's milestones and payments and written only by the ledger's
// status projector.
const (
	BookingPaymentPending       = "pending"
	BookingPaymentPartiallyPaid = "partially_paid"
	BookingPaymentPaid          = "paid"
)

// Price period units.  A booking's PriceType decides how its price is
// split into installments.
const (
	PeriodDay   = "Day"
	PeriodWeek  = "Week"
	PeriodMonth = "Month"
)

// Booking is the rental agreement the payment plan belongs to.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – guest who owns the booking.
//  Price           – total package price, split into installments.
//  BookingPrice    – separate booking fee, scheduled as milestone 0.
//  PriceType       – period unit (Day, Week, Month).
//  StartDate       – first day of the rental (nullable for legacy rows).
//  EndDate         – last day of the rental (nullable for legacy rows).
//  PaymentStatus   – derived aggregate (pending, partially_paid, paid).
//  LastPaymentDate – stamped while at least one milestone is paid.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Booking struct {
	ID              uint64          `json:"id"`                // bookings.id
	UserID          uint64          `json:"user_id"`           // bookings.user_id
	Price           decimal.Decimal `json:"price"`             // bookings.price
	BookingPrice    decimal.Decimal `json:"booking_price"`     // bookings.booking_price
	PriceType       string          `json:"price_type"`        // bookings.price_type
	StartDate       *time.Time      `json:"start_date"`        // bookings.start_date (nullable)
	EndDate         *time.Time      `json:"end_date"`          // bookings.end_date (nullable)
	PaymentStatus   string          `json:"payment_status"`    // bookings.payment_status
	LastPaymentDate *time.Time      `json:"last_payment_date"` // bookings.last_payment_date (nullable)
	CreatedAt       time.Time       `json:"created_at"`        // bookings.created_at
	UpdatedAt       time.Time       `json:"updated_at"`        // bookings.updated_at
}

// TotalAmount is what the guest owes in full: package price plus fee.
func (b *Booking) TotalAmount() decimal.Decimal {
	return b.Price.Add(b.BookingPrice)
}

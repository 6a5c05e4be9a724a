package model

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Milestone states.
const (
	MilestonePending = "pending"
	MilestonePaid    = "paid"
)

// MilestoneTypeBooking tags the booking-fee milestone (sequence 0).  The
// remaining milestones carry the booking's period unit as their type.
const MilestoneTypeBooking = "Booking"

// Milestone is one scheduled installment of a booking.  Milestones are
// created once, in bulk, and never deleted; only the reconciliation engine
// changes them.
//
// Fields:
//  ID               – primary key identifier.
//  BookingID        – owning booking.
//  Sequence         – 0 for the booking fee, 1..N for installments.
//  Type             – Booking, Day, Week or Month.
//  DueDate          – when the installment is due.
//  Amount           – amount due, two decimal places.
//  Status           – pending or paid.
//  PaymentID        – the satisfying payment (nullable).
//  PaidAt           – when the satisfying payment was applied (nullable).
//  PaymentMethod    – method snapshot of the satisfying payment (nullable).
//  PaymentReference – reference snapshot of the satisfying payment (nullable).
type Milestone struct {
	ID               uint64          `json:"id"`                          // milestones.id
	BookingID        uint64          `json:"booking_id"`                  // milestones.booking_id
	Sequence         int             `json:"sequence"`                    // milestones.sequence
	Type             string          `json:"type"`                        // milestones.type
	DueDate          time.Time       `json:"due_date"`                    // milestones.due_date
	Amount           decimal.Decimal `json:"amount"`                      // milestones.amount
	Status           string          `json:"status"`                      // milestones.status
	PaymentID        *uint64         `json:"payment_id,omitempty"`        // milestones.payment_id (nullable)
	PaidAt           *time.Time      `json:"paid_at,omitempty"`           // milestones.paid_at (nullable)
	PaymentMethod    *string         `json:"payment_method,omitempty"`    // milestones.payment_method (nullable)
	PaymentReference *string         `json:"payment_reference,omitempty"` // milestones.payment_reference (nullable)
	CreatedAt        time.Time       `json:"created_at"`                  // milestones.created_at
	UpdatedAt        time.Time       `json:"updated_at"`                  // milestones.updated_at
}

// IsPaid reports whether the milestone is settled.
func (m *Milestone) IsPaid() bool { return m.Status == MilestonePaid }

// Label is the human name used on invoices ("Booking Fee", "Month-2").
func (m *Milestone) Label() string {
	if m.Sequence == 0 {
		return "Booking Fee"
	}
	return m.Type + "-" + strconv.Itoa(m.Sequence)
}

package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Payment states.
const (
	PaymentPending   = "pending"
	PaymentPaid      = "paid"
	PaymentCancelled = "cancelled"
)

// Payment methods.
const (
	MethodManual       = "manual"
	MethodBankTransfer = "bank_transfer"
	MethodCard         = "card"
)

// How a payment was tied to a milestone during reconciliation.  The value
// is stored on the payment so the decision can be audited and replayed.
const (
	MatchNone        = "none"
	MatchExplicit    = "explicit"
	MatchSatisfying  = "satisfying"
	MatchAmountMatch = "amount_match"
)

// Payment is a concrete payment attempt against a booking.  A milestone may
// see several payments over its life; at most one of them is its
// satisfying payment at any time.
//
// Fields:
//  ID          – primary key identifier.
//  BookingID   – owning booking.
//  MilestoneID – targeted milestone (nullable for legacy/manual entries).
//  Amount      – paid amount.
//  Method      – manual, bank_transfer or card.
//  Status      – pending, paid or cancelled.
//  Reference   – transaction reference; synthetic for manual entries.
//  MatchSource – how MilestoneID was resolved (explicit, satisfying, amount_match, none).
//  PaidAt      – when the payment was marked paid (nullable).
type Payment struct {
	ID          uint64          `json:"id"`                     // payments.id
	BookingID   uint64          `json:"booking_id"`             // payments.booking_id
	MilestoneID *uint64         `json:"milestone_id,omitempty"` // payments.milestone_id (nullable)
	Amount      decimal.Decimal `json:"amount"`                 // payments.amount
	Method      string          `json:"method"`                 // payments.method
	Status      string          `json:"status"`                 // payments.status
	Reference   string          `json:"reference"`              // payments.reference
	MatchSource string          `json:"match_source,omitempty"` // payments.match_source
	PaidAt      *time.Time      `json:"paid_at,omitempty"`      // payments.paid_at (nullable)
	CreatedAt   time.Time       `json:"created_at"`             // payments.created_at
	UpdatedAt   time.Time       `json:"updated_at"`             // payments.updated_at
}

// ParsePaymentStatus normalises a requested status.  Upstream callers send
// "Paid", "Pending" or "cancelled" in mixed case; anything else is
// rejected.
func ParsePaymentStatus(s string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case PaymentPaid:
		return PaymentPaid, true
	case PaymentPending:
		return PaymentPending, true
	case PaymentCancelled, "canceled":
		return PaymentCancelled, true
	}
	return "", false
}

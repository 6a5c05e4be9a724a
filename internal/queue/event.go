// Package queue defines the ledger's domain events and moves them over
// RabbitMQ: a publisher used by the engine after commit and a consumer
// that stands in for the notification service.
package queue

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types.
const (
	EventMilestonePaid    = "MilestonePaid"
	EventBookingFullyPaid = "BookingFullyPaid"
)

// Event is published after a reconciliation commits.  It carries enough
// context for downstream consumers to notify the guest without querying
// the ledger.
type Event struct {
	Type        string          `json:"type"`
	BookingID   uint64          `json:"booking_id"`
	UserID      uint64          `json:"user_id"`
	MilestoneID uint64          `json:"milestone_id,omitempty"`
	Milestone   string          `json:"milestone,omitempty"`
	PaymentID   uint64          `json:"payment_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

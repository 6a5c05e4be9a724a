package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment link states.
const (
	LinkActive    = "active"
	LinkPending   = "pending"
	LinkCompleted = "completed"
	LinkExpired   = "expired"
	LinkRevoked   = "revoked"
)

// PaymentLink is a shareable bearer token that lets whoever holds it pay
// one milestone.  Rows are never deleted so the audit trail from link to
// booking and payment survives supersession.
//
// Fields:
//  ID          – primary key identifier.
//  UniqueID    – opaque token handed to the payer, set only on issuance.
//  TokenHash   – keyed digest of UniqueID; the only form persisted.
//  BookingID   – owning booking.
//  MilestoneID – milestone the link pays.
//  Amount      – amount snapshot taken at issuance.
//  Status      – active, pending, completed, expired or revoked.
//  PaymentID   – payment submitted through the link (nullable).
//  CreatedBy   – actor who issued the link.
//  ExpiresAt   – after this instant the link no longer resolves.
//  CreatedAt   – creation timestamp.
type PaymentLink struct {
	ID          uint64          `json:"id"`                   // payment_links.id
	UniqueID    string          `json:"unique_id,omitempty"`  // never stored
	TokenHash   string          `json:"-"`                    // payment_links.token_hash
	BookingID   uint64          `json:"booking_id"`           // payment_links.booking_id
	MilestoneID uint64          `json:"milestone_id"`         // payment_links.milestone_id
	Amount      decimal.Decimal `json:"amount"`               // payment_links.amount
	Status      string          `json:"status"`               // payment_links.status
	PaymentID   *uint64         `json:"payment_id,omitempty"` // payment_links.payment_id (nullable)
	CreatedBy   uint64          `json:"created_by"`           // payment_links.created_by
	ExpiresAt   time.Time       `json:"expires_at"`           // payment_links.expires_at
	CreatedAt   time.Time       `json:"created_at"`           // payment_links.created_at
	UpdatedAt   time.Time       `json:"updated_at"`           // payment_links.updated_at
}

// ExpiredAt reports whether the link is past its expiry at now.
func (l *PaymentLink) ExpiredAt(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

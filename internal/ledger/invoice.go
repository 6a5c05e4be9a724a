package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rental-payments/internal/model"
)

type Invoice struct {
	BookingID        uint64          `json:"booking_id"`
	PaymentStatus    string          `json:"payment_status"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	LastPaymentDate  *time.Time      `json:"last_payment_date,omitempty"`
	Items            []InvoiceItem   `json:"items"`
}

type InvoiceItem struct {
	MilestoneID uint64          `json:"milestone_id"`
	Name        string          `json:"name"`
	DueDate     string          `json:"due_date,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	PaidAt      *time.Time      `json:"paid_at,omitempty"`
	Method      string          `json:"method,omitempty"`
	Reference   string          `json:"reference,omitempty"`
}

// Invoice itemises the booking's milestones against what has been paid.
// Totals are computed from the ledgers, not from the stored aggregate.
func (e *Engine) Invoice(ctx context.Context, actor model.Actor, bookingID uint64) (*Invoice, error) {
	b, err := e.Booking(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	ms, err := e.EnsureSchedule(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	ps, err := e.store.ListPayments(ctx, b.ID)
	if err != nil {
		return nil, storeErr(err, "payments", b.ID)
	}
	proj := Project(b, ms, ps, e.clock())

	inv := &Invoice{
		BookingID:        b.ID,
		PaymentStatus:    b.PaymentStatus,
		TotalPrice:       proj.TotalAmount,
		TotalPaid:        proj.TotalPaid,
		RemainingBalance: proj.Remaining(),
		LastPaymentDate:  b.LastPaymentDate,
		Items:            make([]InvoiceItem, 0, len(ms)),
	}
	for i := range ms {
		item, err := invoiceItem(&ms[i])
		if err != nil {
			e.log.Warn("invoice item fallback", "booking_id", b.ID, "milestone_id", ms[i].ID, "error", err)
			item = InvoiceItem{
				MilestoneID: ms[i].ID,
				Name:        fmt.Sprintf("Milestone #%d", ms[i].ID),
				Amount:      ms[i].Amount,
				Status:      ms[i].Status,
			}
		}
		inv.Items = append(inv.Items, item)
	}
	return inv, nil
}

func invoiceItem(m *model.Milestone) (InvoiceItem, error) {
	if m.Type == "" {
		return InvoiceItem{}, fmt.Errorf("milestone %d has no type", m.ID)
	}
	if m.DueDate.IsZero() {
		return InvoiceItem{}, fmt.Errorf("milestone %d has no due date", m.ID)
	}
	if m.IsPaid() && m.PaymentID == nil {
		return InvoiceItem{}, fmt.Errorf("milestone %d is paid without a payment", m.ID)
	}
	item := InvoiceItem{
		MilestoneID: m.ID,
		Name:        m.Label(),
		DueDate:     m.DueDate.Format("2006-01-02"),
		Amount:      m.Amount,
		Status:      m.Status,
		PaidAt:      m.PaidAt,
	}
	if m.PaymentMethod != nil {
		item.Method = *m.PaymentMethod
	}
	if m.PaymentReference != nil {
		item.Reference = *m.PaymentReference
	}
	return item, nil
}

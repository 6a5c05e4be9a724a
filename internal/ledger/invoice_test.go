package ledger

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-payments/internal/apperr"
	"github.com/iliyamo/rental-payments/internal/logger"
	"github.com/iliyamo/rental-payments/internal/model"
	"github.com/iliyamo/rental-payments/internal/repository"
)

func TestInvoice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, ms := f.monthly(t)

	_, err := f.engine.PayMilestone(ctx, guest, PayMilestoneInput{MilestoneID: ms[1].ID, Method: model.MethodCard, Reference: "tx-1"})
	require.NoError(t, err)

	inv, err := f.engine.Invoice(ctx, guest, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "1250.00", inv.TotalPrice.StringFixed(2))
	assert.Equal(t, "400.00", inv.TotalPaid.StringFixed(2))
	assert.Equal(t, "850.00", inv.RemainingBalance.StringFixed(2))
	assert.Equal(t, model.BookingPaymentPartiallyPaid, inv.PaymentStatus)
	require.Len(t, inv.Items, 4)

	names := []string{inv.Items[0].Name, inv.Items[1].Name, inv.Items[2].Name, inv.Items[3].Name}
	assert.Equal(t, []string{"Booking Fee", "Month-1", "Month-2", "Month-3"}, names)
	assert.Equal(t, "2026-02-01", inv.Items[2].DueDate)
	assert.Equal(t, model.MethodCard, inv.Items[1].Method)
	assert.Equal(t, "tx-1", inv.Items[1].Reference)

	_, err = f.engine.Invoice(ctx, other, b.ID)
	requireCode(t, err, apperr.CodeForbidden)
}

func TestInvoice_FallbackItem(t *testing.T) {
	var buf bytes.Buffer
	f := newFixture(t)
	f.engine = New(f.store, WithClock(f.clock.Now), WithLogger(logger.New(logger.Config{Output: &buf, Level: "warn"})))
	ctx := context.Background()

	start, end := day(2026, 1, 1), day(2026, 1, 3)
	b := f.insertBooking(t, &model.Booking{
		UserID: guest.UserID, Price: decimal.NewFromInt(10), PriceType: model.PeriodDay, StartDate: &start, EndDate: &end,
	})
	err := f.store.WithTx(ctx, func(tx repository.Tx) error {
		return tx.CreateMilestones(ctx, []model.Milestone{
			{BookingID: b.ID, Sequence: 0, Type: model.MilestoneTypeBooking, DueDate: start, Amount: decimal.Zero, Status: model.MilestonePending},
			{BookingID: b.ID, Sequence: 1, DueDate: time.Time{}, Amount: decimal.NewFromInt(10), Status: model.MilestonePending},
		})
	})
	require.NoError(t, err)

	inv, err := f.engine.Invoice(ctx, guest, b.ID)
	require.NoError(t, err)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, "Milestone #2", inv.Items[0].Name)
	assert.Empty(t, inv.Items[0].DueDate)
	assert.Equal(t, "Booking Fee", inv.Items[1].Name)
	assert.Contains(t, buf.String(), "invoice item fallback")
}

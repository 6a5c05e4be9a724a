package ledger

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-payments/internal/apperr"
	"github.com/iliyamo/rental-payments/internal/model"
	"github.com/iliyamo/rental-payments/internal/repository"
)

// insertBooking stores a booking without a schedule, the way legacy rows
// arrive.
func (f *fixture) insertBooking(t *testing.T, b *model.Booking) *model.Booking {
	t.Helper()
	err := f.store.WithTx(context.Background(), func(tx repository.Tx) error {
		return tx.CreateBooking(context.Background(), b)
	})
	require.NoError(t, err)
	return b
}

func TestEnsureSchedule_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := day(2026, 3, 1), day(2026, 3, 15)
	b := f.insertBooking(t, &model.Booking{
		UserID: guest.UserID, Price: decimal.NewFromInt(700), BookingPrice: decimal.NewFromInt(20),
		PriceType: "week", StartDate: &start, EndDate: &end,
	})

	first, err := f.engine.EnsureSchedule(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, first, 3)

	second, err := f.engine.EnsureSchedule(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, second, 3)
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	stored, err := f.store.ListMilestones(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	total := decimal.Zero
	for _, m := range stored {
		total = total.Add(m.Amount)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(720)))
	assert.Equal(t, model.PeriodWeek, stored[1].Type)
}

func TestEnsureSchedule_InvalidBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.insertBooking(t, &model.Booking{UserID: guest.UserID, Price: decimal.NewFromInt(100), PriceType: model.PeriodDay})

	_, err := f.engine.EnsureSchedule(ctx, b.ID)
	requireCode(t, err, apperr.CodeScheduleInput)

	stored, err := f.store.ListMilestones(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)

	_, err = f.engine.EnsureSchedule(ctx, 404)
	requireCode(t, err, apperr.CodeNotFound)
}

func TestCreateBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, ms, err := f.engine.CreateBooking(ctx, admin, CreateBookingInput{
		UserID:       42,
		Price:        decimal.NewFromInt(100),
		BookingPrice: decimal.Zero,
		PriceType:    model.PeriodDay,
		StartDate:    day(2026, 1, 1),
		EndDate:      day(2026, 1, 4),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), b.UserID)
	assert.Equal(t, model.BookingPaymentPending, b.PaymentStatus)
	require.Len(t, ms, 4)
	assert.Equal(t, "33.34", ms[3].Amount.StringFixed(2))

	mine, _, err := f.engine.CreateBooking(ctx, guest, CreateBookingInput{
		UserID:    42,
		Price:     decimal.NewFromInt(100),
		PriceType: model.PeriodDay,
		StartDate: day(2026, 1, 1),
		EndDate:   day(2026, 1, 2),
	})
	require.NoError(t, err)
	assert.Equal(t, guest.UserID, mine.UserID)
}

func TestCreateBooking_SameDay(t *testing.T) {
	f := newFixture(t)
	for _, unit := range []string{model.PeriodDay, model.PeriodWeek} {
		t.Run(unit, func(t *testing.T) {
			_, ms, err := f.engine.CreateBooking(context.Background(), guest, CreateBookingInput{
				Price:        decimal.NewFromInt(80),
				BookingPrice: decimal.NewFromInt(5),
				PriceType:    unit,
				StartDate:    day(2026, 1, 1),
				EndDate:      day(2026, 1, 1),
			})
			require.NoError(t, err)
			require.Len(t, ms, 2, "booking fee plus a single installment")
			assert.Equal(t, unit, ms[1].Type)
			assert.True(t, ms[1].Amount.Equal(decimal.NewFromInt(80)))
			assert.Equal(t, day(2026, 1, 1), ms[1].DueDate)
		})
	}
}

func TestCreateBooking_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateBookingInput
	}{
		{"zero price", CreateBookingInput{Price: decimal.Zero, PriceType: "Day", StartDate: day(2026, 1, 1), EndDate: day(2026, 1, 2)}},
		{"negative fee", CreateBookingInput{Price: decimal.NewFromInt(1), BookingPrice: decimal.NewFromInt(-1), PriceType: "Day", StartDate: day(2026, 1, 1), EndDate: day(2026, 1, 2)}},
		{"unknown unit", CreateBookingInput{Price: decimal.NewFromInt(1), PriceType: "Year", StartDate: day(2026, 1, 1), EndDate: day(2026, 1, 2)}},
		{"end before start", CreateBookingInput{Price: decimal.NewFromInt(1), PriceType: "Day", StartDate: day(2026, 1, 2), EndDate: day(2026, 1, 1)}},
		{"missing dates", CreateBookingInput{Price: decimal.NewFromInt(1), PriceType: "Day"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := f.engine.CreateBooking(ctx, guest, tt.in)
			requireCode(t, err, apperr.CodeValidation)
		})
	}

	_, _, err := f.engine.CreateBooking(ctx, model.Actor{Role: model.RoleAdmin}, CreateBookingInput{
		Price: decimal.NewFromInt(1), PriceType: "Day", StartDate: day(2026, 1, 1), EndDate: day(2026, 1, 2),
	})
	requireCode(t, err, apperr.CodeValidation)
}

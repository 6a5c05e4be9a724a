package schedule

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-payments/internal/model"
)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func sum(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}

func TestGenerate_MonthlyScenario(t *testing.T) {
	items, err := Generate(Input{
		Price:        decimal.NewFromInt(1200),
		BookingPrice: decimal.NewFromInt(50),
		StartDate:    date(2026, time.January, 1),
		EndDate:      date(2026, time.April, 1),
		PriceType:    "Month",
	})
	require.NoError(t, err)
	require.Len(t, items, 4)

	assert.Equal(t, model.MilestoneTypeBooking, items[0].Type)
	assert.True(t, items[0].Amount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, *date(2026, time.January, 1), items[0].DueDate)

	wantDue := []*time.Time{
		date(2026, time.January, 1),
		date(2026, time.February, 1),
		date(2026, time.March, 1),
	}
	for i, it := range items[1:] {
		assert.Equal(t, i+1, it.Sequence)
		assert.Equal(t, model.PeriodMonth, it.Type)
		assert.True(t, it.Amount.Equal(decimal.NewFromInt(400)), "installment %d = %s", i+1, it.Amount)
		assert.Equal(t, *wantDue[i], it.DueDate)
	}
	assert.True(t, sum(items).Equal(decimal.NewFromInt(1250)))
}

func TestGenerate_CountPerUnit(t *testing.T) {
	start := date(2026, time.March, 1)
	tests := []struct {
		name string
		unit string
		end  *time.Time
		want int
	}{
		{"days", "Day", date(2026, time.March, 11), 10},
		{"weeks round up", "Week", date(2026, time.March, 16), 3},
		{"weeks exact", "week", date(2026, time.March, 15), 2},
		{"months partial month dropped", "Month", date(2026, time.May, 15), 2},
		{"short of a full month floors at one", "Month", date(2026, time.March, 31), 1},
		{"same day floors at one", "Day", date(2026, time.March, 1), 1},
		{"end before start floors at one", "Month", date(2026, time.January, 1), 1},
		{"unknown unit", "Year", date(2027, time.March, 1), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Generate(Input{
				Price:        decimal.NewFromInt(900),
				BookingPrice: decimal.NewFromInt(25),
				StartDate:    start,
				EndDate:      tt.end,
				PriceType:    tt.unit,
			})
			require.NoError(t, err)
			assert.Len(t, items, tt.want+1)
			assert.True(t, sum(items).Equal(decimal.NewFromInt(925)))
		})
	}
}

func TestGenerate_RemainderGoesToLastInstallment(t *testing.T) {
	items, err := Generate(Input{
		Price:        decimal.NewFromInt(100),
		BookingPrice: decimal.Zero,
		StartDate:    date(2026, time.January, 1),
		EndDate:      date(2026, time.January, 4),
		PriceType:    "Day",
	})
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, "33.33", items[1].Amount.StringFixed(2))
	assert.Equal(t, "33.33", items[2].Amount.StringFixed(2))
	assert.Equal(t, "33.34", items[3].Amount.StringFixed(2))
	assert.True(t, sum(items).Equal(decimal.NewFromInt(100)))
}

func TestGenerate_MonthEndClamp(t *testing.T) {
	items, err := Generate(Input{
		Price:        decimal.NewFromInt(300),
		BookingPrice: decimal.Zero,
		StartDate:    date(2026, time.January, 31),
		EndDate:      date(2026, time.April, 30),
		PriceType:    "Month",
	})
	require.NoError(t, err)
	require.Len(t, items, 4)
	assert.Equal(t, *date(2026, time.January, 31), items[1].DueDate)
	assert.Equal(t, *date(2026, time.February, 28), items[2].DueDate)
	assert.Equal(t, *date(2026, time.March, 31), items[3].DueDate)
}

func TestGenerate_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		in   Input
	}{
		{"missing start", Input{Price: decimal.NewFromInt(10), EndDate: date(2026, 1, 2), PriceType: "Day"}},
		{"missing end", Input{Price: decimal.NewFromInt(10), StartDate: date(2026, 1, 2), PriceType: "Day"}},
		{"zero price", Input{Price: decimal.Zero, StartDate: date(2026, 1, 1), EndDate: date(2026, 1, 2), PriceType: "Day"}},
		{"negative fee", Input{Price: decimal.NewFromInt(10), BookingPrice: decimal.NewFromInt(-1), StartDate: date(2026, 1, 1), EndDate: date(2026, 1, 2), PriceType: "Day"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := Generate(tt.in)
			assert.Nil(t, items)
			assert.True(t, errors.Is(err, ErrInputInvalid))
		})
	}
}

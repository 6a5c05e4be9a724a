// Package schedule turns a booking's price and rental span into an ordered
// list of installments.  It has no dependencies on storage; the ledger
// decides when a schedule is generated and persists the result.
package schedule

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/rental-payments/internal/model"
)

// ErrInputInvalid is returned when the booking cannot produce a schedule:
// a missing date or a non-positive price.  Nothing is generated.
var ErrInputInvalid = errors.New("schedule input invalid")

// Input carries the booking fields the generator reads.
type Input struct {
	Price        decimal.Decimal
	BookingPrice decimal.Decimal
	StartDate    *time.Time
	EndDate      *time.Time
	PriceType    string
}

// Item is one generated installment, ready to be stored as a milestone.
type Item struct {
	Sequence int
	Type     string
	DueDate  time.Time
	Amount   decimal.Decimal
}

// Generate returns the booking-fee item followed by N installments.  The
// installment amount is price/N truncated to cents; whatever the
// truncation leaves over is added to the last installment so the items
// always sum to price + booking fee.
func Generate(in Input) ([]Item, error) {
	if in.StartDate == nil || in.EndDate == nil {
		return nil, errors.Join(ErrInputInvalid, errors.New("start and end dates are required"))
	}
	if !in.Price.IsPositive() {
		return nil, errors.Join(ErrInputInvalid, errors.New("price must be greater than zero"))
	}
	if in.BookingPrice.IsNegative() {
		return nil, errors.Join(ErrInputInvalid, errors.New("booking fee cannot be negative"))
	}

	start := truncateDay(*in.StartDate)
	end := truncateDay(*in.EndDate)
	unit := NormalizeUnit(in.PriceType)
	n := Count(unit, start, end)

	per := in.Price.Div(decimal.NewFromInt(int64(n))).Truncate(2)
	last := in.Price.Sub(per.Mul(decimal.NewFromInt(int64(n - 1))))

	items := make([]Item, 0, n+1)
	items = append(items, Item{
		Sequence: 0,
		Type:     model.MilestoneTypeBooking,
		DueDate:  start,
		Amount:   in.BookingPrice,
	})
	for i := 0; i < n; i++ {
		amount := per
		if i == n-1 {
			amount = last
		}
		items = append(items, Item{
			Sequence: i + 1,
			Type:     unit,
			DueDate:  Advance(unit, start, i),
			Amount:   amount,
		})
	}
	return items, nil
}

// NormalizeUnit maps case variants ("month", "MONTH") to the canonical
// period unit.  Unknown units are returned unchanged.
func NormalizeUnit(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "day":
		return model.PeriodDay
	case "week":
		return model.PeriodWeek
	case "month":
		return model.PeriodMonth
	}
	return s
}

// Count returns the number of installments for the span.  Unknown units
// produce a single installment.
func Count(unit string, start, end time.Time) int {
	days := int(end.Sub(start).Hours() / 24)
	var n int
	switch unit {
	case model.PeriodMonth:
		n = wholeMonths(start, end)
	case model.PeriodWeek:
		n = (days + 6) / 7
	case model.PeriodDay:
		n = days
	default:
		return 1
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Advance returns start moved forward by i periods of unit.  Month steps
// clamp to the last day of the target month, so a schedule starting on
// Jan 31 falls due on Feb 28/29 rather than spilling into March.
func Advance(unit string, start time.Time, i int) time.Time {
	switch unit {
	case model.PeriodDay:
		return start.AddDate(0, 0, i)
	case model.PeriodWeek:
		return start.AddDate(0, 0, 7*i)
	case model.PeriodMonth:
		return addMonths(start, i)
	}
	return start
}

func wholeMonths(start, end time.Time) int {
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() && end.Day() != daysIn(end.Year(), end.Month()) {
		months--
	}
	return months
}

func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	day := t.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

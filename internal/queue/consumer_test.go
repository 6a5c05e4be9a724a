package queue

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-payments/internal/logger"
)

func TestConsumer_Handle(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsumer("", "", logger.New(logger.Config{Output: &buf, Format: logger.JSON}))

	body, err := json.Marshal(Event{
		Type:        EventMilestonePaid,
		BookingID:   3,
		UserID:      9,
		MilestoneID: 11,
		Milestone:   "Month-1",
		PaymentID:   4,
		Amount:      decimal.NewFromInt(400),
		OccurredAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NoError(t, c.Handle(body))

	assert.Contains(t, buf.String(), `"msg":"notify guest: milestone paid"`)
	assert.Contains(t, buf.String(), `"amount":"400.00"`)
	assert.Contains(t, buf.String(), `"milestone":"Month-1"`)
}

func TestConsumer_HandleRejectsBadMessages(t *testing.T) {
	c := NewConsumer("", "", logger.Discard())

	assert.Error(t, c.Handle([]byte("{not json")))
	assert.Error(t, c.Handle([]byte(`{"type":"SomethingElse"}`)))
}

func TestEvent_AmountRoundTrip(t *testing.T) {
	body, err := json.Marshal(Event{Type: EventBookingFullyPaid, Amount: decimal.RequireFromString("1250.00")})
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(body, &got))
	assert.True(t, got.Amount.Equal(decimal.NewFromInt(1250)))
}

package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	for _, tt := range []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	} {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	buf.Reset()
	return line
}

func TestCtxAndBookingAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Service: "rental-payments"})

	ctx := WithRequestID(context.Background(), "req-42")
	assert.Equal(t, "req-42", RequestID(ctx))

	log.Ctx(ctx).Booking(7).Info("payment milestone resolved")
	line := decode(t, &buf)
	assert.Equal(t, "rental-payments", line[KeyService])
	assert.Equal(t, "req-42", line[KeyRequestID])
	assert.Equal(t, float64(7), line[KeyBookingID])

	log.Ctx(context.Background()).Info("stale payment links expired")
	line = decode(t, &buf)
	assert.NotContains(t, line, KeyRequestID)

	assert.Equal(t, context.Background(), WithRequestID(context.Background(), ""))
}

func TestLevelFiltersAndTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Level: "warn", Format: TEXT})
	log.Info("dropped")
	assert.Zero(t, buf.Len())
	log.Warn("kept", "booking_id", 3)
	assert.Contains(t, buf.String(), "msg=kept booking_id=3")
}

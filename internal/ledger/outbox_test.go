package ledger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-payments/internal/logger"
	"github.com/iliyamo/rental-payments/internal/model"
	"github.com/iliyamo/rental-payments/internal/queue"
	"github.com/iliyamo/rental-payments/internal/repository"
)

// gatedNotifier blocks every delivery until release is closed.
type gatedNotifier struct {
	release   chan struct{}
	delivered atomic.Int32
}

func (g *gatedNotifier) Publish(context.Context, queue.Event) error {
	<-g.release
	g.delivered.Add(1)
	return nil
}

func TestPublishDoesNotWaitForDelivery(t *testing.T) {
	f := newFixture(t)
	gate := &gatedNotifier{release: make(chan struct{})}
	eng := New(f.store, WithNotifier(gate), WithClock(f.clock.Now))
	t.Cleanup(eng.Close)
	_, ms := f.monthly(t)

	done := make(chan error, 1)
	go func() {
		_, err := eng.PayMilestone(context.Background(), guest,
			PayMilestoneInput{MilestoneID: ms[1].ID, Method: model.MethodCard})
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("PayMilestone waited on the notifier")
	}
	assert.Zero(t, gate.delivered.Load())
	assert.Equal(t, model.MilestonePaid, f.milestone(t, ms[1].ID).Status)

	close(gate.release)
	eng.Flush()
	assert.Equal(t, int32(1), gate.delivered.Load())
}

func TestOutbox_DropsWhenFull(t *testing.T) {
	gate := &gatedNotifier{release: make(chan struct{})}
	o := newOutbox(gate, logger.Discard(), 1, time.Second)

	// One event is held by the worker, one fills the buffer, the rest drop.
	for i := 0; i < 5; i++ {
		o.enqueue(queue.Event{Type: queue.EventMilestonePaid, BookingID: uint64(i)})
	}
	close(gate.release)
	o.close()
	assert.LessOrEqual(t, gate.delivered.Load(), int32(2))
	assert.GreaterOrEqual(t, gate.delivered.Load(), int32(1))

	o.enqueue(queue.Event{Type: queue.EventMilestonePaid})
	assert.LessOrEqual(t, gate.delivered.Load(), int32(2), "closed outbox accepts nothing")
}

func TestEngineWithoutNotifier(t *testing.T) {
	eng := New(repository.NewMemoryStore())
	eng.publish([]queue.Event{{Type: queue.EventBookingFullyPaid}})
	eng.Flush()
	eng.Close()
}

type failingNotifier struct{}

func (failingNotifier) Publish(context.Context, queue.Event) error {
	return errors.New("rabbitmq dial: connection refused")
}

func TestOutbox_LogsEachFailureOnce(t *testing.T) {
	var buf bytes.Buffer
	o := newOutbox(failingNotifier{}, logger.New(logger.Config{Output: &buf, Format: logger.JSON}), 4, time.Second)
	o.enqueue(queue.Event{Type: queue.EventMilestonePaid, BookingID: 7})
	o.close()

	assert.Equal(t, 1, strings.Count(buf.String(), "event publish failed"))
	assert.Contains(t, buf.String(), "connection refused")
}

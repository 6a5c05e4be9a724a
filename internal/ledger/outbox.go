package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/rental-payments/internal/logger"
	"github.com/iliyamo/rental-payments/internal/queue"
)

const (
	defaultOutboxSize    = 256
	defaultDeliveryLimit = 10 * time.Second
)

// outbox hands committed events to a single background worker.  Enqueue
// never blocks: when the buffer is full the event is dropped and logged.
type outbox struct {
	notifier Notifier
	log      *logger.Logger
	timeout  time.Duration

	mu      sync.RWMutex
	closed  bool
	ch      chan queue.Event
	pending sync.WaitGroup
	done    chan struct{}
}

func newOutbox(n Notifier, log *logger.Logger, size int, timeout time.Duration) *outbox {
	o := &outbox{
		notifier: n,
		log:      log,
		timeout:  timeout,
		ch:       make(chan queue.Event, size),
		done:     make(chan struct{}),
	}
	go o.run()
	return o
}

func (o *outbox) enqueue(ev queue.Event) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		o.log.Warn("event dropped after shutdown", "type", ev.Type, "booking_id", ev.BookingID)
		return
	}
	o.pending.Add(1)
	select {
	case o.ch <- ev:
	default:
		o.pending.Done()
		o.log.Warn("event dropped, outbox full", "type", ev.Type, "booking_id", ev.BookingID)
	}
}

func (o *outbox) run() {
	defer close(o.done)
	for ev := range o.ch {
		ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
		if err := o.notifier.Publish(ctx, ev); err != nil {
			o.log.Warn("event publish failed", "type", ev.Type, "booking_id", ev.BookingID,
				"payment_id", ev.PaymentID, "error", err)
		}
		cancel()
		o.pending.Done()
	}
}

// flush waits until every enqueued event has been handed to the notifier.
func (o *outbox) flush() { o.pending.Wait() }

func (o *outbox) close() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.ch)
	}
	o.mu.Unlock()
	<-o.done
}

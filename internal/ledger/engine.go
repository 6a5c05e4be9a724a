// Package ledger keeps a booking's milestones, payments and payment links
// consistent.  Every operation that changes money state runs as one
// transaction that first locks the booking row, so concurrent writers to
// the same booking apply one after the other and the last to commit wins.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/blake2b"

	"github.com/iliyamo/rental-payments/internal/apperr"
	"github.com/iliyamo/rental-payments/internal/logger"
	"github.com/iliyamo/rental-payments/internal/model"
	"github.com/iliyamo/rental-payments/internal/queue"
	"github.com/iliyamo/rental-payments/internal/repository"
)

// DefaultLinkTTL is how long an issued payment link stays usable.
const DefaultLinkTTL = 7 * 24 * time.Hour

// Notifier receives domain events after the transaction that produced them
// has committed.  Delivery is best effort.
type Notifier interface {
	Publish(ctx context.Context, ev queue.Event) error
}

type Engine struct {
	store      repository.Store
	notifier   Notifier
	outbox     *outbox
	outboxSize int
	log        *logger.Logger
	now        func() time.Time
	linkTTL    time.Duration
	linkKey    [32]byte
	validate   *validator.Validate
}

type Option func(*Engine)

func WithNotifier(n Notifier) Option { return func(e *Engine) { e.notifier = n } }

func WithLogger(l *logger.Logger) Option { return func(e *Engine) { e.log = l } }

// WithClock replaces time.Now; tests pin it.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// WithOutboxSize bounds how many undelivered events may wait for the
// notifier before new ones are dropped.
func WithOutboxSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.outboxSize = n
		}
	}
}

func WithLinkTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.linkTTL = d
		}
	}
}

// WithLinkSecret keys the digest under which link tokens are stored.  Links
// issued under one secret do not resolve under another.
func WithLinkSecret(secret string) Option {
	return func(e *Engine) { e.linkKey = blake2b.Sum256([]byte(secret)) }
}

func New(store repository.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		log:        logger.Discard(),
		now:        time.Now,
		linkTTL:    DefaultLinkTTL,
		outboxSize: defaultOutboxSize,
		validate:   newValidator(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "ledger")
	if e.notifier != nil {
		e.outbox = newOutbox(e.notifier, e.log, e.outboxSize, defaultDeliveryLimit)
	}
	return e
}

// Flush blocks until every event published so far has been delivered or
// has failed.
func (e *Engine) Flush() {
	if e.outbox != nil {
		e.outbox.flush()
	}
}

// Close stops event delivery after draining what is already queued.
func (e *Engine) Close() {
	if e.outbox != nil {
		e.outbox.close()
	}
}

// Booking returns the booking after checking the actor may see it.
func (e *Engine) Booking(ctx context.Context, actor model.Actor, bookingID uint64) (*model.Booking, error) {
	b, err := e.store.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, storeErr(err, "booking", bookingID)
	}
	if err := authorize(actor, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (e *Engine) clock() time.Time { return e.now().UTC() }

// publish queues events produced by a committed transaction for
// background delivery.  The caller never waits on the notifier.
func (e *Engine) publish(events []queue.Event) {
	if e.outbox == nil {
		return
	}
	for _, ev := range events {
		e.outbox.enqueue(ev)
	}
}

func authorize(actor model.Actor, b *model.Booking) error {
	if !actor.Owns(b.UserID) {
		return apperr.Forbidden("booking belongs to another user")
	}
	return nil
}

// storeErr translates repository failures into typed errors.  Errors that
// are already typed pass through unchanged.
func storeErr(err error, resource string, id any) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFoundWithID(resource, id)
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict(resource + " already exists")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return apperr.Internal("request cancelled", err)
	}
	return apperr.Internal("storage failure", err)
}

// findMilestone returns the index of id in ms, or -1.
func findMilestone(ms []model.Milestone, id uint64) int {
	for i := range ms {
		if ms[i].ID == id {
			return i
		}
	}
	return -1
}

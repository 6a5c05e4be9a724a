package ledger

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"

	"github.com/iliyamo/rental-payments/internal/apperr"
	"github.com/iliyamo/rental-payments/internal/model"
	"github.com/iliyamo/rental-payments/internal/repository"
)

// LinkView is what an unauthenticated holder of a link gets to see.
type LinkView struct {
	UniqueID      string          `json:"unique_id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	ExpiresAt     string          `json:"expires_at"`
	BookingID     uint64          `json:"booking_id"`
	UserID        uint64          `json:"user_id"`
	PaymentStatus string          `json:"booking_payment_status"`
	Milestone     model.Milestone `json:"milestone"`
	MilestoneName string          `json:"milestone_name"`
}

// IssuePaymentLink creates a fresh active link for an unpaid milestone.
// Any link still active for the milestone is revoked first so at most one
// link is open for payment at a time.
func (e *Engine) IssuePaymentLink(ctx context.Context, actor model.Actor, in IssueLinkInput) (*model.PaymentLink, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}

	var link *model.PaymentLink
	err := e.store.WithTx(ctx, func(tx repository.Tx) error {
		_, ms, idx, err := e.lockMilestone(ctx, tx, actor, in.MilestoneID)
		if err != nil {
			return err
		}
		m := &ms[idx]
		if m.IsPaid() {
			return apperr.AlreadySettled(m.ID)
		}
		revoked, err := tx.TransitionLinks(ctx, m.ID, []string{model.LinkActive}, model.LinkRevoked)
		if err != nil {
			return storeErr(err, "payment link", m.ID)
		}

		amount := in.Amount
		if amount.IsZero() {
			amount = m.Amount
		}
		now := e.clock()
		token := uuid.NewString()
		link = &model.PaymentLink{
			TokenHash:   e.tokenDigest(token),
			BookingID:   m.BookingID,
			MilestoneID: m.ID,
			Amount:      amount,
			Status:      model.LinkActive,
			CreatedBy:   actor.UserID,
			ExpiresAt:   now.Add(e.linkTTL),
		}
		if err := tx.CreateLink(ctx, link); err != nil {
			return storeErr(err, "payment link", m.ID)
		}
		link.UniqueID = token
		e.log.Ctx(ctx).Booking(m.BookingID).Info("payment link issued", "milestone_id", m.ID,
			"link_id", link.ID, "revoked", revoked, "expires_at", link.ExpiresAt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return link, nil
}

// ResolvePaymentLink looks a link up for its bearer.  A link past its
// expiry, expired by supersession or replaced by a newer link reports
// EXPIRED; an unknown id reports NOT_FOUND.
func (e *Engine) ResolvePaymentLink(ctx context.Context, uniqueID string) (*LinkView, error) {
	l, err := e.store.GetLinkByToken(ctx, e.tokenDigest(uniqueID))
	if err != nil {
		return nil, storeErr(err, "payment link", uniqueID)
	}
	if err := linkUsable(l, e.clock()); err != nil {
		return nil, err
	}
	b, err := e.store.GetBooking(ctx, l.BookingID)
	if err != nil {
		return nil, storeErr(err, "booking", l.BookingID)
	}
	m, err := e.store.GetMilestone(ctx, l.MilestoneID)
	if err != nil {
		return nil, storeErr(err, "milestone", l.MilestoneID)
	}
	return &LinkView{
		UniqueID:      uniqueID,
		Status:        l.Status,
		Amount:        l.Amount,
		ExpiresAt:     l.ExpiresAt.UTC().Format(time.RFC3339),
		BookingID:     b.ID,
		UserID:        b.UserID,
		PaymentStatus: b.PaymentStatus,
		Milestone:     *m,
		MilestoneName: m.Label(),
	}, nil
}

// SubmitViaLink records a pending payment for the link's amount and parks
// the link in pending until the payment is confirmed through
// SetPaymentStatus.
func (e *Engine) SubmitViaLink(ctx context.Context, in SubmitLinkInput) (*model.Payment, error) {
	if err := e.check(in); err != nil {
		return nil, err
	}

	var p *model.Payment
	err := e.store.WithTx(ctx, func(tx repository.Tx) error {
		hash := e.tokenDigest(in.UniqueID)
		l, err := tx.GetLinkByToken(ctx, hash)
		if err != nil {
			return storeErr(err, "payment link", in.UniqueID)
		}
		if _, err := tx.LockBooking(ctx, l.BookingID); err != nil {
			return storeErr(err, "booking", l.BookingID)
		}
		// Re-read under the booking lock; a concurrent submission may
		// have moved the link on.
		if l, err = tx.GetLinkByToken(ctx, hash); err != nil {
			return storeErr(err, "payment link", in.UniqueID)
		}
		if err := linkUsable(l, e.clock()); err != nil {
			return err
		}
		if l.Status != model.LinkActive {
			return apperr.Conflict("payment link is not open for payment").
				WithDetails(map[string]any{"status": l.Status})
		}
		ms, err := tx.LockMilestones(ctx, l.BookingID)
		if err != nil {
			return storeErr(err, "milestones", l.BookingID)
		}
		idx := findMilestone(ms, l.MilestoneID)
		if idx < 0 {
			return apperr.NotFoundWithID("milestone", l.MilestoneID)
		}
		if ms[idx].IsPaid() {
			return apperr.AlreadySettled(l.MilestoneID)
		}

		milestoneID := l.MilestoneID
		p = &model.Payment{
			BookingID:   l.BookingID,
			MilestoneID: &milestoneID,
			Amount:      l.Amount,
			Method:      in.Method,
			Status:      model.PaymentPending,
			Reference:   reference(in.Method, in.Reference),
			MatchSource: model.MatchExplicit,
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			return storeErr(err, "payment", l.BookingID)
		}
		l.Status = model.LinkPending
		l.PaymentID = &p.ID
		if err := tx.UpdateLink(ctx, l); err != nil {
			return storeErr(err, "payment link", l.ID)
		}
		e.log.Ctx(ctx).Booking(l.BookingID).Info("payment submitted via link", "milestone_id", l.MilestoneID,
			"link_id", l.ID, "payment_id", p.ID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ExpireStaleLinks flips active links past their expiry to expired.  It
// is housekeeping only; resolution already rejects stale links.
func (e *Engine) ExpireStaleLinks(ctx context.Context) (int64, error) {
	var n int64
	err := e.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		n, err = tx.ExpireLinks(ctx, e.clock())
		return err
	})
	if err != nil {
		return 0, storeErr(err, "payment link", "sweep")
	}
	if n > 0 {
		e.log.Info("stale payment links expired", "count", n)
	}
	return n, nil
}

// MilestoneLinks lists a milestone's links, newest first.
func (e *Engine) MilestoneLinks(ctx context.Context, actor model.Actor, milestoneID uint64) ([]model.PaymentLink, error) {
	m, err := e.store.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, storeErr(err, "milestone", milestoneID)
	}
	if _, err := e.Booking(ctx, actor, m.BookingID); err != nil {
		return nil, err
	}
	links, err := e.store.ListLinks(ctx, milestoneID)
	if err != nil {
		return nil, storeErr(err, "payment links", milestoneID)
	}
	return links, nil
}

func linkUsable(l *model.PaymentLink, now time.Time) error {
	switch {
	case l.Status == model.LinkExpired || l.ExpiredAt(now):
		return apperr.Expired("payment link has expired").WithDetails(map[string]any{"link_id": l.ID})
	case l.Status == model.LinkRevoked:
		return apperr.Expired("payment link was replaced by a newer link").WithDetails(map[string]any{"link_id": l.ID})
	}
	return nil
}

// tokenDigest is the keyed BLAKE2b-256 of a link token, hex encoded.  The
// raw token is never persisted.
func (e *Engine) tokenDigest(token string) string {
	h, err := blake2b.New256(e.linkKey[:])
	if err != nil {
		panic(err) // a 32 byte key is always accepted
	}
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}

// markCompleted closes the milestone's pending links once it is paid.
func (e *Engine) markCompleted(ctx context.Context, tx repository.Tx, milestoneID uint64) error {
	if _, err := tx.TransitionLinks(ctx, milestoneID, []string{model.LinkPending}, model.LinkCompleted); err != nil {
		return storeErr(err, "payment link", milestoneID)
	}
	return nil
}

// markSuperseded expires every link of the milestone that did not
// complete, so a reversed milestone cannot be paid through a stale link.
func (e *Engine) markSuperseded(ctx context.Context, tx repository.Tx, milestoneID uint64) error {
	from := []string{model.LinkActive, model.LinkPending, model.LinkRevoked}
	if _, err := tx.TransitionLinks(ctx, milestoneID, from, model.LinkExpired); err != nil {
		return storeErr(err, "payment link", milestoneID)
	}
	return nil
}

// closeLinksFor expires pending links that carried paymentID.
func (e *Engine) closeLinksFor(ctx context.Context, tx repository.Tx, milestoneID, paymentID uint64) error {
	links, err := tx.ListLinks(ctx, milestoneID)
	if err != nil {
		return storeErr(err, "payment links", milestoneID)
	}
	for i := range links {
		l := &links[i]
		if l.Status != model.LinkPending || l.PaymentID == nil || *l.PaymentID != paymentID {
			continue
		}
		l.Status = model.LinkExpired
		if err := tx.UpdateLink(ctx, l); err != nil {
			return storeErr(err, "payment link", l.ID)
		}
	}
	return nil
}

// lockMilestone locks the milestone's booking, checks the actor owns it
// and returns the booking with its milestones as read under the lock,
// plus the index of the requested milestone.
func (e *Engine) lockMilestone(ctx context.Context, tx repository.Tx, actor model.Actor,
	milestoneID uint64) (*model.Booking, []model.Milestone, int, error) {
	m, err := tx.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, nil, -1, storeErr(err, "milestone", milestoneID)
	}
	b, err := tx.LockBooking(ctx, m.BookingID)
	if err != nil {
		return nil, nil, -1, storeErr(err, "booking", m.BookingID)
	}
	if err := authorize(actor, b); err != nil {
		return nil, nil, -1, err
	}
	ms, err := tx.LockMilestones(ctx, b.ID)
	if err != nil {
		return nil, nil, -1, storeErr(err, "milestones", b.ID)
	}
	idx := findMilestone(ms, milestoneID)
	if idx < 0 {
		return nil, nil, -1, apperr.NotFoundWithID("milestone", milestoneID)
	}
	return b, ms, idx, nil
}

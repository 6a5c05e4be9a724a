package ledger

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rental-payments/internal/apperr"
	"github.com/iliyamo/rental-payments/internal/model"
)

func TestConcurrentConfirmations_LastCommittedWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b, ms := f.monthly(t)
	target := ms[1]

	const writers = 8
	ids := make([]uint64, writers)
	for i := range ids {
		milestoneID := target.ID
		p, err := f.engine.RecordPayment(ctx, guest, RecordPaymentInput{
			BookingID: b.ID, Amount: target.Amount, Method: model.MethodBankTransfer, MilestoneID: &milestoneID,
		})
		require.NoError(t, err)
		ids[i] = p.ID
	}

	var wg sync.WaitGroup
	confirmErrs := make(chan error, writers)
	linkErrs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(2)
		go func(id uint64) {
			defer wg.Done()
			_, err := f.engine.SetPaymentStatus(ctx, id, "Paid")
			confirmErrs <- err
		}(ids[i])
		go func() {
			defer wg.Done()
			_, err := f.engine.IssuePaymentLink(ctx, guest, IssueLinkInput{MilestoneID: target.ID})
			linkErrs <- err
		}()
	}
	wg.Wait()
	close(confirmErrs)
	close(linkErrs)

	for err := range confirmErrs {
		require.NoError(t, err)
	}
	for err := range linkErrs {
		if err != nil {
			requireCode(t, err, apperr.CodeAlreadySettled)
		}
	}

	m := f.milestone(t, target.ID)
	assert.Equal(t, model.MilestonePaid, m.Status)
	require.NotNil(t, m.PaymentID)

	var paid []uint64
	for _, id := range ids {
		p := f.payment(t, id)
		switch p.Status {
		case model.PaymentPaid:
			paid = append(paid, p.ID)
		default:
			assert.Equal(t, model.PaymentCancelled, p.Status, "payment %d", p.ID)
		}
	}
	require.Len(t, paid, 1, "one payment satisfies the milestone")
	assert.Equal(t, paid[0], *m.PaymentID)

	links, err := f.engine.MilestoneLinks(ctx, guest, target.ID)
	require.NoError(t, err)
	active := 0
	for _, l := range links {
		if l.Status == model.LinkActive {
			active++
		}
	}
	assert.LessOrEqual(t, active, 1)

	assert.Equal(t, model.BookingPaymentPartiallyPaid, f.booking(t, b.ID).PaymentStatus)
}

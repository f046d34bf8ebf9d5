package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/adapter/repository/memory"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromote_StrictFIFO(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(1)
	ctx := context.Background()

	a := h.join(t, key, "user-a", 1)
	h.clock.Advance(time.Second)
	b := h.join(t, key, "user-b", 1)
	h.clock.Advance(time.Second)
	c := h.join(t, key, "user-c", 1)

	require.NoError(t, h.admission.Release(ctx, a.EntryID, "user-a"))

	assert.Equal(t, domain.EntryOffered, h.entry(t, b.EntryID).Status)
	assert.Equal(t, domain.EntryWaiting, h.entry(t, c.EntryID).Status)

	pos, err := h.admission.QueryPosition(ctx, key.EventID, "user-c")
	require.NoError(t, err)
	assert.Equal(t, 1, pos.QueuePosition)
}

func TestPromote_SkipsEntriesLargerThanRemaining(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(2)
	ctx := context.Background()

	a := h.join(t, key, "user-a", 2)
	h.clock.Advance(time.Second)
	big := h.join(t, key, "user-big", 3)
	h.clock.Advance(time.Second)
	small := h.join(t, key, "user-small", 1)

	require.NoError(t, h.admission.Release(ctx, a.EntryID, "user-a"))

	assert.Equal(t, domain.EntryWaiting, h.entry(t, big.EntryID).Status, "no partial offers")
	assert.Equal(t, domain.EntryOffered, h.entry(t, small.EntryID).Status)

	n, err := h.promoter.Promote(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPromote_NothingForCancelledEvent(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(1)
	ctx := context.Background()

	a := h.join(t, key, "user-a", 1)
	b := h.join(t, key, "user-b", 1)
	require.NoError(t, h.store.CancelEvent(key.EventID))
	require.NoError(t, h.admission.Release(ctx, a.EntryID, "user-a"))

	assert.Equal(t, domain.EntryWaiting, h.entry(t, b.EntryID).Status)
}

func TestPromoteEvent_CoversEveryPool(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(1)
	ctx := context.Background()

	a := h.join(t, key, "user-a", 1)
	b := h.join(t, key, "user-b", 1)

	// Expire a without the sweeper so only the explicit pass can promote.
	require.NoError(t, h.store.WithTx(ctx, func(ctx context.Context) error {
		entry, err := h.store.GetEntry(ctx, a.EntryID)
		if err != nil {
			return err
		}
		h.clock.Advance(16 * time.Minute)
		if err := entry.Expire(h.clock.Now()); err != nil {
			return err
		}
		return h.store.UpdateEntry(ctx, entry, domain.EntryOffered)
	}))

	n, err := h.promoter.PromoteEvent(ctx, key.EventID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.EntryOffered, h.entry(t, b.EntryID).Status)
}

func TestPromote_RetriesTransientFailure(t *testing.T) {
	var flaky *flakyEntries
	h := newHarnessWith(t, nil, func(s *memory.Store) ports.WaitingListRepository {
		flaky = &flakyEntries{Store: s}
		return flaky
	})
	key := h.seedTyped(1)
	ctx := context.Background()

	a := h.join(t, key, "user-a", 1)
	b := h.join(t, key, "user-b", 1)

	flaky.failNext(1)
	require.NoError(t, h.admission.Release(ctx, a.EntryID, "user-a"))

	assert.Equal(t, domain.EntryOffered, h.entry(t, b.EntryID).Status)
}

func TestPromoteAll_PicksUpMissedPromotion(t *testing.T) {
	var flaky *flakyEntries
	h := newHarnessWith(t, nil, func(s *memory.Store) ports.WaitingListRepository {
		flaky = &flakyEntries{Store: s}
		return flaky
	})
	key := h.seedTyped(1)
	ctx := context.Background()

	a := h.join(t, key, "user-a", 1)
	b := h.join(t, key, "user-b", 1)

	// Outlasts every retry of the follow-up pass.
	flaky.failNext(10)
	require.NoError(t, h.admission.Release(ctx, a.EntryID, "user-a"))
	require.Equal(t, domain.EntryWaiting, h.entry(t, b.EntryID).Status)

	// An expiration sweep alone has nothing to expire and promotes nothing.
	flaky.failNext(0)
	expired, err := h.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
	assert.Equal(t, domain.EntryWaiting, h.entry(t, b.EntryID).Status)

	n, err := h.promoter.PromoteAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.EntryOffered, h.entry(t, b.EntryID).Status)

	avail, err := h.ledger.EventAvailability(ctx, key.EventID)
	require.NoError(t, err)
	require.Len(t, avail, 1)
	assert.Zero(t, avail[0].Remaining)
}

func TestPromoteEvent_OnlyVisitsPoolsWithWaiters(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(1)
	ctx := context.Background()

	n, err := h.promoter.PromoteEvent(ctx, key.EventID)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = h.promoter.PromoteEvent(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

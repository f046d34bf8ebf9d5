package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/core/ports/mocks"
	"github.com/srgjo27/ticket_admission/internal/core/services"
	"github.com/srgjo27/ticket_admission/internal/platform/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestExpireEntry_IgnoresLiveAndSettledOffers(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(2)
	ctx := context.Background()

	live := h.join(t, key, "user-a", 1)
	bought := h.join(t, key, "user-b", 1)
	_, err := h.purchase.Finalize(ctx, bought.EntryID, payment("user-b", "r"))
	require.NoError(t, err)

	ok, err := h.sweeper.ExpireEntry(ctx, live.EntryID)
	require.NoError(t, err)
	assert.False(t, ok, "offer is still live")

	h.clock.Advance(time.Hour)

	ok, err = h.sweeper.ExpireEntry(ctx, bought.EntryID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.EntryPurchased, h.entry(t, bought.EntryID).Status)

	ok, err = h.sweeper.ExpireEntry(ctx, live.EntryID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.sweeper.ExpireEntry(ctx, live.EntryID)
	require.NoError(t, err)
	assert.False(t, ok, "expiry is idempotent")
}

// Whichever of Finalize and expiry sees the entry first wins; the other
// must observe the result and back off.
func TestFinalizeAndExpiryRace_ExactlyOneOutcome(t *testing.T) {
	for i := 0; i < 50; i++ {
		h := newHarness(t, nil)
		key := h.seedTyped(1)
		ctx := context.Background()

		res := h.join(t, key, "user-a", 1)

		var wg sync.WaitGroup
		var finalizeErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, finalizeErr = h.purchase.Finalize(ctx, res.EntryID, payment("user-a", "r"))
		}()
		go func() {
			defer wg.Done()
			h.clock.Advance(15 * time.Minute)
			_, _ = h.sweeper.ExpireEntry(ctx, res.EntryID)
		}()
		wg.Wait()

		entry := h.entry(t, res.EntryID)
		sold, err := h.store.CountSold(ctx, key)
		require.NoError(t, err)

		switch entry.Status {
		case domain.EntryPurchased:
			assert.NoError(t, finalizeErr)
			assert.Equal(t, 1, sold)
		case domain.EntryExpired:
			assert.ErrorIs(t, finalizeErr, domain.ErrOfferExpired)
			assert.Zero(t, sold)
		default:
			t.Fatalf("entry left in %s", entry.Status)
		}
	}
}

func TestSweep_RetriesTransientStorageFailures(t *testing.T) {
	entries := mocks.NewWaitingListRepository(t)
	repos := services.Repositories{Entries: entries}
	opts := []services.Option{
		services.WithClock(clock.NewFake(epoch)),
		services.WithLogger(quietLogger()),
		services.WithRetry(3, time.Millisecond),
	}
	ledger := services.NewInventoryLedger(repos, opts...)
	sweeper := services.NewExpirationSweeper(repos, services.NewPromotionService(repos, ledger, opts...), opts...)

	entries.On("LapsedOffers", mock.Anything, epoch, 500).Return(nil, errors.New("connection reset")).Once()
	entries.On("LapsedOffers", mock.Anything, epoch, 500).Return([]domain.WaitingListEntry{}, nil).Once()

	n, err := sweeper.Sweep(context.Background())

	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweep_GivesUpAfterMaxRetries(t *testing.T) {
	entries := mocks.NewWaitingListRepository(t)
	repos := services.Repositories{Entries: entries}
	opts := []services.Option{
		services.WithClock(clock.NewFake(epoch)),
		services.WithLogger(quietLogger()),
		services.WithRetry(3, time.Millisecond),
		services.WithSweepBatch(50),
	}
	ledger := services.NewInventoryLedger(repos, opts...)
	sweeper := services.NewExpirationSweeper(repos, services.NewPromotionService(repos, ledger, opts...), opts...)

	entries.On("LapsedOffers", mock.Anything, epoch, 50).Return(nil, errors.New("connection reset")).Times(3)

	_, err := sweeper.Sweep(context.Background())

	assert.ErrorContains(t, err, "connection reset")
}

func TestSweep_PromotesOncePerPool(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(2)
	ctx := context.Background()

	h.join(t, key, "user-a", 1)
	h.join(t, key, "user-b", 1)
	h.clock.Advance(time.Second)
	c := h.join(t, key, "user-c", 2)

	h.clock.Advance(15 * time.Minute)
	n, err := h.sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, domain.EntryOffered, h.entry(t, c.EntryID).Status)
}

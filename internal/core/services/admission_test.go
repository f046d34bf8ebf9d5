package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/srgjo27/ticket_admission/internal/adapter/ratelimit"
	"github.com/srgjo27/ticket_admission/internal/adapter/repository/memory"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/srgjo27/ticket_admission/internal/core/ports"
	"github.com/srgjo27/ticket_admission/internal/core/ports/mocks"
	"github.com/srgjo27/ticket_admission/internal/core/services"
	"github.com/srgjo27/ticket_admission/internal/platform/clock"
	"github.com/srgjo27/ticket_admission/internal/platform/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestJoinQueue_OffersWhenCapacityRemains(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(2)

	res := h.join(t, key, "user-a", 2)

	assert.Equal(t, domain.EntryOffered, res.Status)
	require.NotNil(t, res.OfferExpiresAt)
	assert.Equal(t, epoch.Add(15*time.Minute), *res.OfferExpiresAt)
	assert.Zero(t, res.QueuePosition)

	res = h.join(t, key, "user-b", 1)
	assert.Equal(t, domain.EntryWaiting, res.Status)
	assert.Nil(t, res.OfferExpiresAt)
	assert.Equal(t, 1, res.QueuePosition)
}

func TestJoinQueue_LegacyEvent(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedLegacy(1)

	assert.Equal(t, domain.EntryOffered, h.join(t, key, "user-a", 1).Status)
	assert.Equal(t, domain.EntryWaiting, h.join(t, key, "user-b", 1).Status)
}

func TestJoinQueue_AlreadyQueued(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(1)
	ctx := context.Background()

	h.join(t, key, "user-a", 1)

	_, err := h.admission.JoinQueue(ctx, services.JoinRequest{EventID: key.EventID, UserID: "user-a", TicketTypeID: key.TicketTypeID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrAlreadyQueued)

	h.join(t, key, "user-b", 1)
	_, err = h.admission.JoinQueue(ctx, services.JoinRequest{EventID: key.EventID, UserID: "user-b", TicketTypeID: key.TicketTypeID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrAlreadyQueued, "waiting entries are active too")
}

func TestJoinQueue_ConcurrentSameUserJoins(t *testing.T) {
	h := newHarnessWith(t, nil, func(s *memory.Store) ports.WaitingListRepository {
		return slowActive{Store: s, delay: 20 * time.Millisecond}
	})
	key := h.seedTyped(5)
	violations := testutil.ToFloat64(metrics.ConsistencyViolations.WithLabelValues("duplicate_active_entry"))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = h.admission.JoinQueue(context.Background(), services.JoinRequest{
				EventID:      key.EventID,
				UserID:       "user-a",
				TicketTypeID: key.TicketTypeID,
				Quantity:     1,
			})
		}(i)
	}
	wg.Wait()

	var joined, queued int
	for _, err := range errs {
		switch {
		case err == nil:
			joined++
		case errors.Is(err, domain.ErrAlreadyQueued):
			queued++
		default:
			t.Fatalf("unexpected join error: %v", err)
		}
	}
	assert.Equal(t, 1, joined)
	assert.Equal(t, 1, queued)
	assert.Equal(t, violations, testutil.ToFloat64(metrics.ConsistencyViolations.WithLabelValues("duplicate_active_entry")))

	entries, err := h.store.EntriesByEventAndStatus(context.Background(), key.EventID, domain.EntryOffered)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestJoinQueue_RejectsCancelledEvent(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(5)
	require.NoError(t, h.store.CancelEvent(key.EventID))

	_, err := h.admission.JoinQueue(context.Background(), services.JoinRequest{EventID: key.EventID, UserID: "user-a", TicketTypeID: key.TicketTypeID, Quantity: 1})

	assert.ErrorIs(t, err, domain.ErrEventCancelled)
}

func TestJoinQueue_ValidatesRequest(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(5)
	ctx := context.Background()

	_, err := h.admission.JoinQueue(ctx, services.JoinRequest{EventID: key.EventID, UserID: "user-a", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrTicketTypeRequired)

	_, err = h.admission.JoinQueue(ctx, services.JoinRequest{EventID: key.EventID, UserID: "user-a", TicketTypeID: key.TicketTypeID, Quantity: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = h.admission.JoinQueue(ctx, services.JoinRequest{EventID: key.EventID, TicketTypeID: key.TicketTypeID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestJoinQueue_FourthAttemptIsRateLimited(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(clock.NewFake(epoch), 3, 30*time.Minute)
	h := newHarness(t, limiter)
	ctx := context.Background()

	// Three different events so the user is never already queued.
	for i := 0; i < 3; i++ {
		key := h.seedTyped(1)
		h.join(t, key, "user-a", 1)
	}

	key := h.seedTyped(1)
	_, err := h.admission.JoinQueue(ctx, services.JoinRequest{EventID: key.EventID, UserID: "user-a", TicketTypeID: key.TicketTypeID, Quantity: 1})

	require.ErrorIs(t, err, domain.ErrRateLimited)
	var rateErr *domain.RateLimitedError
	require.True(t, errors.As(err, &rateErr))
	assert.Greater(t, rateErr.RetryAfter, time.Duration(0))
}

func TestJoinQueue_RateLimiterOutageFailsOpen(t *testing.T) {
	limiter := mocks.NewRateLimiter(t)
	limiter.On("Allow", mock.Anything, "user-a").Return(ports.RateLimitDecision{}, errors.New("redis: connection refused"))

	h := newHarness(t, limiter)
	key := h.seedTyped(1)

	res := h.join(t, key, "user-a", 1)
	assert.Equal(t, domain.EntryOffered, res.Status)
}

func TestJoinQueue_PerEventRateLimitKey(t *testing.T) {
	limiter := mocks.NewRateLimiter(t)
	h := newHarness(t, limiter, services.WithRateLimitPerEvent(true))
	key := h.seedTyped(1)

	limiter.On("Allow", mock.Anything, "user-a:"+key.EventID.String()).
		Return(ports.RateLimitDecision{Allowed: false, RetryAfter: time.Minute}, nil)

	_, err := h.admission.JoinQueue(context.Background(), services.JoinRequest{EventID: key.EventID, UserID: "user-a", TicketTypeID: key.TicketTypeID, Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestJoinQueue_NotifiesAfterCommit(t *testing.T) {
	notifier := mocks.NewNotifier(t)
	h := newHarness(t, nil, services.WithNotifier(notifier))
	key := h.seedTyped(1)

	notifier.On("Notify", mock.Anything, mock.AnythingOfType("domain.OfferIssued")).
		Return(errors.New("broker down")).Once()
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(ev domain.DomainEvent) bool {
		joined, ok := ev.(domain.QueueJoined)
		return ok && joined.QueuePosition == 1
	})).Return(nil).Once()

	assert.Equal(t, domain.EntryOffered, h.join(t, key, "user-a", 1).Status, "delivery failure must not undo the offer")
	assert.Equal(t, domain.EntryWaiting, h.join(t, key, "user-b", 1).Status)
}

func TestQueryPosition(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(1)
	ctx := context.Background()

	_, err := h.admission.QueryPosition(ctx, key.EventID, "nobody")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	h.join(t, key, "user-a", 1)
	h.clock.Advance(time.Second)
	h.join(t, key, "user-b", 1)
	h.clock.Advance(time.Second)
	h.join(t, key, "user-c", 1)

	pos, err := h.admission.QueryPosition(ctx, key.EventID, "user-a")
	require.NoError(t, err)
	assert.Equal(t, domain.EntryOffered, pos.Status)
	assert.NotNil(t, pos.OfferExpiresAt)

	pos, err = h.admission.QueryPosition(ctx, key.EventID, "user-c")
	require.NoError(t, err)
	assert.Equal(t, domain.EntryWaiting, pos.Status)
	assert.Equal(t, 2, pos.QueuePosition)

	h.clock.Advance(20 * time.Minute)
	pos, err = h.admission.QueryPosition(ctx, key.EventID, "user-a")
	require.NoError(t, err)
	assert.Equal(t, domain.EntryExpired, pos.Status)
	assert.Nil(t, pos.OfferExpiresAt)
}

func TestRelease(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(1)
	ctx := context.Background()

	a := h.join(t, key, "user-a", 1)
	h.clock.Advance(time.Second)
	b := h.join(t, key, "user-b", 1)

	assert.ErrorIs(t, h.admission.Release(ctx, a.EntryID, "user-b"), domain.ErrUnauthorized)
	assert.ErrorIs(t, h.admission.Release(ctx, b.EntryID, "user-b"), domain.ErrInvalidState)

	require.NoError(t, h.admission.Release(ctx, a.EntryID, "user-a"))

	assert.Equal(t, domain.EntryReleased, h.entry(t, a.EntryID).Status)
	assert.Nil(t, h.entry(t, a.EntryID).OfferExpiresAt)
	assert.Equal(t, domain.EntryOffered, h.entry(t, b.EntryID).Status, "release promotes the next entry")

	assert.ErrorIs(t, h.admission.Release(ctx, a.EntryID, "user-a"), domain.ErrInvalidState)

	// The user may queue again once the old entry is terminal.
	assert.Equal(t, domain.EntryWaiting, h.join(t, key, "user-a", 1).Status)
}

func TestRelease_LapsedOffer(t *testing.T) {
	h := newHarness(t, nil)
	key := h.seedTyped(1)

	a := h.join(t, key, "user-a", 1)
	h.clock.Advance(16 * time.Minute)

	assert.ErrorIs(t, h.admission.Release(context.Background(), a.EntryID, "user-a"), domain.ErrOfferExpired)
}

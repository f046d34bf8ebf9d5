package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to domain.EntryStatus
		ok       bool
	}{
		{domain.EntryWaiting, domain.EntryOffered, true},
		{domain.EntryOffered, domain.EntryPurchased, true},
		{domain.EntryOffered, domain.EntryExpired, true},
		{domain.EntryOffered, domain.EntryReleased, true},
		{domain.EntryWaiting, domain.EntryPurchased, false},
		{domain.EntryWaiting, domain.EntryExpired, false},
		{domain.EntryOffered, domain.EntryWaiting, false},
		{domain.EntryPurchased, domain.EntryOffered, false},
		{domain.EntryExpired, domain.EntryOffered, false},
		{domain.EntryReleased, domain.EntryOffered, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	assert.True(t, domain.EntryWaiting.IsActive())
	assert.True(t, domain.EntryOffered.IsActive())
	assert.True(t, domain.EntryExpired.IsTerminal())
	assert.False(t, domain.EntryPurchased.IsActive())
}

func TestWaitingListEntry_OfferThenExpire(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := domain.InventoryKey{EventID: uuid.New(), TicketTypeID: uuid.New()}

	e := domain.NewWaitingEntry(key, "user-a", 2, now)
	assert.Nil(t, e.OfferExpiresAt)

	require.NoError(t, e.Offer(now, 15*time.Minute))
	require.NotNil(t, e.OfferExpiresAt)
	assert.Equal(t, now.Add(15*time.Minute), *e.OfferExpiresAt)
	assert.True(t, e.IsOfferLive(now))

	assert.ErrorIs(t, e.Expire(now.Add(time.Minute)), domain.ErrOfferStillLive)

	require.NoError(t, e.Expire(now.Add(15*time.Minute)))
	assert.Equal(t, domain.EntryExpired, e.Status)
	assert.Nil(t, e.OfferExpiresAt)

	assert.ErrorIs(t, e.Expire(now.Add(time.Hour)), domain.ErrInvalidState)
}

func TestWaitingListEntry_PurchaseAndRelease(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	key := domain.InventoryKey{EventID: uuid.New()}

	offered := domain.NewOfferedEntry(key, "user-a", 1, now, 10*time.Minute)
	require.NoError(t, offered.MarkPurchased("ref-1", now.Add(time.Minute)))
	assert.Equal(t, domain.EntryPurchased, offered.Status)
	assert.Equal(t, "ref-1", offered.PaymentReference)
	assert.ErrorIs(t, offered.Release(now), domain.ErrInvalidState)

	late := domain.NewOfferedEntry(key, "user-b", 1, now, 10*time.Minute)
	assert.ErrorIs(t, late.MarkPurchased("ref-2", now.Add(10*time.Minute)), domain.ErrOfferExpired)
	assert.Equal(t, domain.EntryOffered, late.Status)

	released := domain.NewOfferedEntry(key, "user-c", 1, now, 10*time.Minute)
	require.NoError(t, released.Release(now))
	assert.Equal(t, domain.EntryReleased, released.Status)

	waiting := domain.NewWaitingEntry(key, "user-d", 1, now)
	assert.ErrorIs(t, waiting.Release(now), domain.ErrInvalidState)
	assert.ErrorIs(t, waiting.MarkPurchased("ref", now), domain.ErrInvalidState)
}

func TestComputeAvailability(t *testing.T) {
	key := domain.InventoryKey{EventID: uuid.New()}

	a := domain.ComputeAvailability(key, 10, 4, 3)
	assert.Equal(t, 3, a.Remaining)
	assert.False(t, a.IsSoldOut)
	assert.False(t, a.Overcommitted())

	full := domain.ComputeAvailability(key, 10, 8, 4)
	assert.Equal(t, 0, full.Remaining)
	assert.True(t, full.IsSoldOut)
	assert.True(t, full.Overcommitted())
}

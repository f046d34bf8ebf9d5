package domain_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestEvent_ValidateRequest(t *testing.T) {
	eventID := uuid.New()
	single := domain.TicketType{ID: uuid.New(), EventID: eventID, Quantity: 10}
	group := domain.TicketType{ID: uuid.New(), EventID: eventID, Quantity: 10, AllowGroupPurchase: true, MinPerTransaction: 2, MaxPerTransaction: 4}
	hidden := domain.TicketType{ID: uuid.New(), EventID: eventID, Quantity: 10, IsHidden: true}

	event := &domain.Event{ID: eventID, TicketTypes: []domain.TicketType{single, group, hidden}}
	key := func(tt domain.TicketType) domain.InventoryKey {
		return domain.InventoryKey{EventID: eventID, TicketTypeID: tt.ID}
	}

	assert.NoError(t, event.ValidateRequest(key(single), 1))
	assert.ErrorIs(t, event.ValidateRequest(key(single), 2), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, event.ValidateRequest(key(single), 0), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, event.ValidateRequest(key(group), 1), domain.ErrInvalidQuantity)
	assert.NoError(t, event.ValidateRequest(key(group), 3))
	assert.ErrorIs(t, event.ValidateRequest(key(group), 5), domain.ErrInvalidQuantity)
	assert.ErrorIs(t, event.ValidateRequest(key(hidden), 1), domain.ErrTicketTypeUnavailable)
	assert.ErrorIs(t, event.ValidateRequest(domain.InventoryKey{EventID: eventID}, 1), domain.ErrTicketTypeRequired)
	assert.ErrorIs(t, event.ValidateRequest(domain.InventoryKey{EventID: eventID, TicketTypeID: uuid.New()}, 1), domain.ErrNotFound)
}

func TestEvent_LegacyCapacityAndPrice(t *testing.T) {
	event := &domain.Event{ID: uuid.New(), TotalTickets: 50, Price: decimal.NewFromInt(2500)}
	key := domain.InventoryKey{EventID: event.ID}

	assert.True(t, event.IsLegacy())
	assert.Equal(t, []domain.InventoryKey{key}, event.Keys())

	capacity, err := event.Capacity(key)
	assert.NoError(t, err)
	assert.Equal(t, 50, capacity)

	price, err := event.UnitPrice(key)
	assert.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(2500)))
	assert.False(t, key.NullTicketType().Valid)
}

package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketType struct {
	ID                 uuid.UUID
	EventID            uuid.UUID
	Name               string
	Price              decimal.Decimal
	Quantity           int
	Remaining          int
	IsSoldOut          bool
	IsHidden           bool
	AllowGroupPurchase bool
	MinPerTransaction  int
	MaxPerTransaction  int
	Position           int
}

// Event is owned by the event-authoring flows; the admission engine only
// reads it, except for the per-type Remaining/IsSoldOut cache.
type Event struct {
	ID           uuid.UUID
	Name         string
	TotalTickets int
	Price        decimal.Decimal
	Currency     string
	IsCancelled  bool
	TicketTypes  []TicketType
}

// IsLegacy reports whether the event predates ticket types and is sold
// against TotalTickets at a single price.
func (e *Event) IsLegacy() bool {
	return len(e.TicketTypes) == 0
}

func (e *Event) TicketType(id uuid.UUID) (*TicketType, bool) {
	for i := range e.TicketTypes {
		if e.TicketTypes[i].ID == id {
			return &e.TicketTypes[i], true
		}
	}
	return nil, false
}

// Keys returns one inventory key per ticket type, or the single legacy key.
func (e *Event) Keys() []InventoryKey {
	if e.IsLegacy() {
		return []InventoryKey{{EventID: e.ID}}
	}

	keys := make([]InventoryKey, 0, len(e.TicketTypes))
	for _, tt := range e.TicketTypes {
		keys = append(keys, InventoryKey{EventID: e.ID, TicketTypeID: tt.ID})
	}
	return keys
}

// Capacity resolves the declared capacity for key.
func (e *Event) Capacity(key InventoryKey) (int, error) {
	if key.IsLegacy() {
		if !e.IsLegacy() {
			return 0, ErrTicketTypeRequired
		}
		return e.TotalTickets, nil
	}

	tt, ok := e.TicketType(key.TicketTypeID)
	if !ok {
		return 0, ErrNotFound
	}
	return tt.Quantity, nil
}

// UnitPrice resolves the price of one ticket for key.
func (e *Event) UnitPrice(key InventoryKey) (decimal.Decimal, error) {
	if key.IsLegacy() {
		return e.Price, nil
	}

	tt, ok := e.TicketType(key.TicketTypeID)
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	return tt.Price, nil
}

// ValidateRequest checks the per-type purchase rules for a join request.
func (e *Event) ValidateRequest(key InventoryKey, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	if key.IsLegacy() {
		if !e.IsLegacy() {
			return ErrTicketTypeRequired
		}
		return nil
	}

	tt, ok := e.TicketType(key.TicketTypeID)
	if !ok {
		return ErrNotFound
	}
	if tt.IsHidden {
		return ErrTicketTypeUnavailable
	}
	if quantity > 1 && !tt.AllowGroupPurchase {
		return ErrInvalidQuantity
	}
	if tt.MinPerTransaction > 0 && quantity < tt.MinPerTransaction {
		return ErrInvalidQuantity
	}
	if tt.MaxPerTransaction > 0 && quantity > tt.MaxPerTransaction {
		return ErrInvalidQuantity
	}
	return nil
}

// InventoryKey identifies one capacity pool. A nil TicketTypeID is the
// legacy single-price pool of the event.
type InventoryKey struct {
	EventID      uuid.UUID
	TicketTypeID uuid.UUID
}

func (k InventoryKey) IsLegacy() bool {
	return k.TicketTypeID == uuid.Nil
}

func (k InventoryKey) String() string {
	if k.IsLegacy() {
		return k.EventID.String()
	}
	return k.EventID.String() + "/" + k.TicketTypeID.String()
}

// NullTicketType maps the key's ticket type to a nullable column value.
func (k InventoryKey) NullTicketType() uuid.NullUUID {
	return uuid.NullUUID{UUID: k.TicketTypeID, Valid: !k.IsLegacy()}
}

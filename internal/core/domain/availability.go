package domain

import "github.com/google/uuid"

type Availability struct {
	EventID      uuid.UUID `json:"eventId"`
	TicketTypeID uuid.UUID `json:"ticketTypeId,omitempty"`
	Capacity     int       `json:"capacity"`
	Sold         int       `json:"sold"`
	ActiveOffers int       `json:"activeOffers"`
	Remaining    int       `json:"remaining"`
	IsSoldOut    bool      `json:"isSoldOut"`
}

// ComputeAvailability derives remaining capacity from live row counts.
func ComputeAvailability(key InventoryKey, capacity, sold, activeOffers int) Availability {
	remaining := capacity - sold - activeOffers
	if remaining < 0 {
		remaining = 0
	}

	return Availability{
		EventID:      key.EventID,
		TicketTypeID: key.TicketTypeID,
		Capacity:     capacity,
		Sold:         sold,
		ActiveOffers: activeOffers,
		Remaining:    remaining,
		IsSoldOut:    remaining == 0,
	}
}

// Overcommitted reports a broken sold+offers<=capacity invariant.
func (a Availability) Overcommitted() bool {
	return a.Sold+a.ActiveOffers > a.Capacity
}

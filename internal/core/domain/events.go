package domain

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventQueueJoined      EventType = "queue.joined"
	EventOfferIssued      EventType = "offer.issued"
	EventOfferExpired     EventType = "offer.expired"
	EventOfferReleased    EventType = "offer.released"
	EventTicketsPurchased EventType = "tickets.purchased"
)

// DomainEvent is emitted after a state transition commits. Delivery is
// best effort.
type DomainEvent interface {
	Type() EventType
	// PartitionKey orders events of the same entry on the broker.
	PartitionKey() string
	Recipient() string
	OccurredAt() time.Time
}

type QueueJoined struct {
	EntryID       uuid.UUID `json:"entryId"`
	EventID       uuid.UUID `json:"eventId"`
	UserID        string    `json:"userId"`
	QueuePosition int       `json:"queuePosition"`
	At            time.Time `json:"at"`
}

func (e QueueJoined) Type() EventType       { return EventQueueJoined }
func (e QueueJoined) PartitionKey() string  { return e.EntryID.String() }
func (e QueueJoined) Recipient() string     { return e.UserID }
func (e QueueJoined) OccurredAt() time.Time { return e.At }

type OfferIssued struct {
	EntryID      uuid.UUID `json:"entryId"`
	EventID      uuid.UUID `json:"eventId"`
	TicketTypeID uuid.UUID `json:"ticketTypeId,omitempty"`
	UserID       string    `json:"userId"`
	Quantity     int       `json:"quantity"`
	ExpiresAt    time.Time `json:"expiresAt"`
	At           time.Time `json:"at"`
}

func (e OfferIssued) Type() EventType       { return EventOfferIssued }
func (e OfferIssued) PartitionKey() string  { return e.EntryID.String() }
func (e OfferIssued) Recipient() string     { return e.UserID }
func (e OfferIssued) OccurredAt() time.Time { return e.At }

type OfferExpired struct {
	EntryID uuid.UUID `json:"entryId"`
	EventID uuid.UUID `json:"eventId"`
	UserID  string    `json:"userId"`
	At      time.Time `json:"at"`
}

func (e OfferExpired) Type() EventType       { return EventOfferExpired }
func (e OfferExpired) PartitionKey() string  { return e.EntryID.String() }
func (e OfferExpired) Recipient() string     { return e.UserID }
func (e OfferExpired) OccurredAt() time.Time { return e.At }

type OfferReleased struct {
	EntryID uuid.UUID `json:"entryId"`
	EventID uuid.UUID `json:"eventId"`
	UserID  string    `json:"userId"`
	At      time.Time `json:"at"`
}

func (e OfferReleased) Type() EventType       { return EventOfferReleased }
func (e OfferReleased) PartitionKey() string  { return e.EntryID.String() }
func (e OfferReleased) Recipient() string     { return e.UserID }
func (e OfferReleased) OccurredAt() time.Time { return e.At }

type TicketsPurchased struct {
	EntryID   uuid.UUID   `json:"entryId"`
	TicketIDs []uuid.UUID `json:"ticketIds"`
	EventID   uuid.UUID   `json:"eventId"`
	UserID    string      `json:"userId"`
	At        time.Time   `json:"at"`
}

func (e TicketsPurchased) Type() EventType       { return EventTicketsPurchased }
func (e TicketsPurchased) PartitionKey() string  { return e.EntryID.String() }
func (e TicketsPurchased) Recipient() string     { return e.UserID }
func (e TicketsPurchased) OccurredAt() time.Time { return e.At }

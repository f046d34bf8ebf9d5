package domain

import (
	"time"

	"github.com/google/uuid"
)

type EntryStatus string

const (
	EntryWaiting   EntryStatus = "waiting"
	EntryOffered   EntryStatus = "offered"
	EntryPurchased EntryStatus = "purchased"
	EntryExpired   EntryStatus = "expired"
	EntryReleased  EntryStatus = "released"
)

var entryTransitions = map[EntryStatus][]EntryStatus{
	EntryWaiting: {EntryOffered},
	EntryOffered: {EntryPurchased, EntryExpired, EntryReleased},
}

func (s EntryStatus) IsTerminal() bool {
	return s == EntryPurchased || s == EntryExpired || s == EntryReleased
}

func (s EntryStatus) IsActive() bool {
	return s == EntryWaiting || s == EntryOffered
}

func (s EntryStatus) CanTransitionTo(next EntryStatus) bool {
	for _, allowed := range entryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// WaitingListEntry is one admission request. Rows are never deleted.
type WaitingListEntry struct {
	ID               uuid.UUID
	EventID          uuid.UUID
	UserID           string
	TicketTypeID     uuid.UUID
	Quantity         int
	Status           EntryStatus
	OfferExpiresAt   *time.Time
	PaymentReference string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewWaitingEntry(key InventoryKey, userID string, quantity int, now time.Time) *WaitingListEntry {
	return &WaitingListEntry{
		ID:           uuid.New(),
		EventID:      key.EventID,
		UserID:       userID,
		TicketTypeID: key.TicketTypeID,
		Quantity:     quantity,
		Status:       EntryWaiting,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func NewOfferedEntry(key InventoryKey, userID string, quantity int, now time.Time, ttl time.Duration) *WaitingListEntry {
	e := NewWaitingEntry(key, userID, quantity, now)
	expiresAt := now.Add(ttl)
	e.Status = EntryOffered
	e.OfferExpiresAt = &expiresAt
	return e
}

func (e *WaitingListEntry) Key() InventoryKey {
	return InventoryKey{EventID: e.EventID, TicketTypeID: e.TicketTypeID}
}

// IsOfferLive reports whether the entry currently holds capacity.
func (e *WaitingListEntry) IsOfferLive(now time.Time) bool {
	return e.Status == EntryOffered && e.OfferExpiresAt != nil && e.OfferExpiresAt.After(now)
}

// IsOfferLapsed reports an offer whose deadline has passed but which the
// sweeper has not yet expired.
func (e *WaitingListEntry) IsOfferLapsed(now time.Time) bool {
	return e.Status == EntryOffered && (e.OfferExpiresAt == nil || !e.OfferExpiresAt.After(now))
}

func (e *WaitingListEntry) transition(next EntryStatus, now time.Time) error {
	if !e.Status.CanTransitionTo(next) {
		return ErrInvalidState
	}
	e.Status = next
	e.UpdatedAt = now
	return nil
}

// Offer promotes a waiting entry.
func (e *WaitingListEntry) Offer(now time.Time, ttl time.Duration) error {
	if err := e.transition(EntryOffered, now); err != nil {
		return err
	}
	expiresAt := now.Add(ttl)
	e.OfferExpiresAt = &expiresAt
	return nil
}

// Expire only succeeds once the deadline has passed.
func (e *WaitingListEntry) Expire(now time.Time) error {
	if e.Status != EntryOffered {
		return ErrInvalidState
	}
	if e.IsOfferLive(now) {
		return ErrOfferStillLive
	}
	if err := e.transition(EntryExpired, now); err != nil {
		return err
	}
	e.OfferExpiresAt = nil
	return nil
}

func (e *WaitingListEntry) Release(now time.Time) error {
	if e.Status != EntryOffered {
		return ErrInvalidState
	}
	if !e.IsOfferLive(now) {
		return ErrOfferExpired
	}
	if err := e.transition(EntryReleased, now); err != nil {
		return err
	}
	e.OfferExpiresAt = nil
	return nil
}

func (e *WaitingListEntry) MarkPurchased(paymentRef string, now time.Time) error {
	if e.Status != EntryOffered {
		return ErrInvalidState
	}
	if !e.IsOfferLive(now) {
		return ErrOfferExpired
	}
	if err := e.transition(EntryPurchased, now); err != nil {
		return err
	}
	e.OfferExpiresAt = nil
	e.PaymentReference = paymentRef
	return nil
}

package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

// PutEvent seeds or replaces an event, as the authoring flows would.
func (s *Store) PutEvent(event *domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[event.ID] = cloneEvent(event)
}

// CancelEvent flags an event as cancelled.
func (s *Store) CancelEvent(eventID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[eventID]
	if !ok {
		return domain.ErrNotFound
	}
	ev.IsCancelled = true
	return nil
}

func (s *Store) GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneEvent(ev), nil
}

func (s *Store) LockInventory(ctx context.Context, key domain.InventoryKey) (*domain.Event, error) {
	if err := s.lockKey(ctx, key); err != nil {
		return nil, err
	}

	ev, err := s.GetEvent(ctx, key.EventID)
	if err != nil {
		return nil, err
	}
	if !key.IsLegacy() {
		if _, ok := ev.TicketType(key.TicketTypeID); !ok {
			return nil, domain.ErrNotFound
		}
	}
	return ev, nil
}

func (s *Store) UpdateTicketTypeStock(ctx context.Context, ticketTypeID uuid.UUID, remaining int, soldOut bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ev := range s.events {
		for i := range ev.TicketTypes {
			tt := &ev.TicketTypes[i]
			if tt.ID != ticketTypeID {
				continue
			}

			prevRemaining, prevSoldOut := tt.Remaining, tt.IsSoldOut
			tt.Remaining, tt.IsSoldOut = remaining, soldOut
			s.recordUndo(ctx, func() {
				tt.Remaining, tt.IsSoldOut = prevRemaining, prevSoldOut
			})
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) ListOpenEventIDs(ctx context.Context) ([]uuid.UUID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []uuid.UUID
	for id, ev := range s.events {
		if !ev.IsCancelled {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

func (s *Store) CreateTickets(ctx context.Context, tickets []domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(tickets))
	for i := range tickets {
		t := tickets[i]
		s.tickets[t.ID] = &t
		ids = append(ids, t.ID)
	}
	s.recordUndo(ctx, func() {
		for _, id := range ids {
			delete(s.tickets, id)
		}
	})
	return nil
}

func (s *Store) CountSold(ctx context.Context, key domain.InventoryKey) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sold := 0
	for _, t := range s.tickets {
		if t.EventID == key.EventID && t.TicketTypeID == key.TicketTypeID && t.Status.CountsAsSold() {
			sold++
		}
	}
	return sold, nil
}

func (s *Store) ListByEntry(ctx context.Context, entryID uuid.UUID) ([]domain.Ticket, error) {
	return s.filterTickets(func(t *domain.Ticket) bool { return t.EntryID == entryID }), nil
}

func (s *Store) ListByUserAndEvent(ctx context.Context, userID string, eventID uuid.UUID) ([]domain.Ticket, error) {
	return s.filterTickets(func(t *domain.Ticket) bool {
		return t.UserID == userID && t.EventID == eventID
	}), nil
}

// SetTicketStatus mirrors the external check-in and refund flows.
func (s *Store) SetTicketStatus(ticketID uuid.UUID, status domain.TicketStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return domain.ErrNotFound
	}
	t.Status = status
	return nil
}

func (s *Store) filterTickets(match func(*domain.Ticket) bool) []domain.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Ticket
	for _, t := range s.tickets {
		if match(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].PurchasedAt.Equal(out[j].PurchasedAt) {
			return out[i].PurchasedAt.Before(out[j].PurchasedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

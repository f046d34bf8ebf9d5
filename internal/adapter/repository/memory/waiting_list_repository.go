package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

func (s *Store) CreateEntry(ctx context.Context, entry *domain.WaitingListEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.UserID == entry.UserID && e.EventID == entry.EventID && e.Status.IsActive() {
			return domain.ErrDuplicateActiveEntry
		}
	}

	id := entry.ID
	s.entries[id] = cloneEntry(entry)
	s.recordUndo(ctx, func() { delete(s.entries, id) })
	return nil
}

func (s *Store) GetEntry(ctx context.Context, entryID uuid.UUID) (*domain.WaitingListEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[entryID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneEntry(e), nil
}

func (s *Store) UpdateEntry(ctx context.Context, entry *domain.WaitingListEntry, from domain.EntryStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[entry.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Status != from {
		return domain.ErrInvalidState
	}

	id := entry.ID
	s.entries[id] = cloneEntry(entry)
	s.recordUndo(ctx, func() { s.entries[id] = cur })
	return nil
}

func (s *Store) ActiveEntryForUser(ctx context.Context, userID string, eventID uuid.UUID) (*domain.WaitingListEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		if e.UserID == userID && e.EventID == eventID && e.Status.IsActive() {
			return cloneEntry(e), nil
		}
	}
	return nil, nil
}

func (s *Store) LatestEntryForUser(ctx context.Context, userID string, eventID uuid.UUID) (*domain.WaitingListEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.WaitingListEntry
	for _, e := range s.entries {
		if e.UserID != userID || e.EventID != eventID {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, nil
	}
	return cloneEntry(latest), nil
}

func (s *Store) EntriesByEventAndStatus(ctx context.Context, eventID uuid.UUID, status domain.EntryStatus) ([]domain.WaitingListEntry, error) {
	return s.filterEntries(func(e *domain.WaitingListEntry) bool {
		return e.EventID == eventID && e.Status == status
	}), nil
}

func (s *Store) WaitingEntries(ctx context.Context, key domain.InventoryKey) ([]domain.WaitingListEntry, error) {
	return s.filterEntries(func(e *domain.WaitingListEntry) bool {
		return e.Key() == key && e.Status == domain.EntryWaiting
	}), nil
}

func (s *Store) CountWaitingAhead(ctx context.Context, entry *domain.WaitingListEntry) (int, error) {
	ahead := s.filterEntries(func(e *domain.WaitingListEntry) bool {
		return e.Key() == entry.Key() && e.Status == domain.EntryWaiting && queuedBefore(e, entry)
	})
	return len(ahead), nil
}

func (s *Store) SumActiveOffers(ctx context.Context, key domain.InventoryKey, now time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, e := range s.entries {
		if e.Key() == key && e.IsOfferLive(now) {
			total += e.Quantity
		}
	}
	return total, nil
}

func (s *Store) LapsedOffers(ctx context.Context, now time.Time, limit int) ([]domain.WaitingListEntry, error) {
	lapsed := s.filterEntries(func(e *domain.WaitingListEntry) bool {
		return e.IsOfferLapsed(now)
	})
	if limit > 0 && len(lapsed) > limit {
		lapsed = lapsed[:limit]
	}
	return lapsed, nil
}

func (s *Store) LiveOffers(ctx context.Context, now time.Time) ([]domain.WaitingListEntry, error) {
	return s.filterEntries(func(e *domain.WaitingListEntry) bool {
		return e.IsOfferLive(now)
	}), nil
}

// filterEntries returns matches ordered by creation time.
func (s *Store) filterEntries(match func(*domain.WaitingListEntry) bool) []domain.WaitingListEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.WaitingListEntry
	for _, e := range s.entries {
		if match(e) {
			out = append(out, *cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return queuedBefore(&out[i], &out[j]) })
	return out
}

func queuedBefore(a, b *domain.WaitingListEntry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

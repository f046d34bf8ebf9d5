package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

// UnitOfWork runs fn inside one transaction. Repositories called with the
// context passed to fn take part in that transaction.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventRepository interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error)
	// LockInventory serializes writers of one inventory key until the
	// surrounding transaction ends and returns a fresh event snapshot.
	LockInventory(ctx context.Context, key domain.InventoryKey) (*domain.Event, error)
	UpdateTicketTypeStock(ctx context.Context, ticketTypeID uuid.UUID, remaining int, soldOut bool) error
	ListOpenEventIDs(ctx context.Context) ([]uuid.UUID, error)
}

type WaitingListRepository interface {
	// CreateEntry fails with domain.ErrDuplicateActiveEntry when the user
	// already holds an active entry for the event.
	CreateEntry(ctx context.Context, entry *domain.WaitingListEntry) error
	GetEntry(ctx context.Context, entryID uuid.UUID) (*domain.WaitingListEntry, error)
	// UpdateEntry persists entry only if the stored status still equals from.
	UpdateEntry(ctx context.Context, entry *domain.WaitingListEntry, from domain.EntryStatus) error
	ActiveEntryForUser(ctx context.Context, userID string, eventID uuid.UUID) (*domain.WaitingListEntry, error)
	LatestEntryForUser(ctx context.Context, userID string, eventID uuid.UUID) (*domain.WaitingListEntry, error)
	EntriesByEventAndStatus(ctx context.Context, eventID uuid.UUID, status domain.EntryStatus) ([]domain.WaitingListEntry, error)
	// WaitingEntries returns waiting entries of key oldest first.
	WaitingEntries(ctx context.Context, key domain.InventoryKey) ([]domain.WaitingListEntry, error)
	CountWaitingAhead(ctx context.Context, entry *domain.WaitingListEntry) (int, error)
	SumActiveOffers(ctx context.Context, key domain.InventoryKey, now time.Time) (int, error)
	LapsedOffers(ctx context.Context, now time.Time, limit int) ([]domain.WaitingListEntry, error)
	LiveOffers(ctx context.Context, now time.Time) ([]domain.WaitingListEntry, error)
}

type TicketRepository interface {
	CreateTickets(ctx context.Context, tickets []domain.Ticket) error
	CountSold(ctx context.Context, key domain.InventoryKey) (int, error)
	ListByEntry(ctx context.Context, entryID uuid.UUID) ([]domain.Ticket, error)
	ListByUserAndEvent(ctx context.Context, userID string, eventID uuid.UUID) ([]domain.Ticket, error)
}

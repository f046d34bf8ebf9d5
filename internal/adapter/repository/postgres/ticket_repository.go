package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

const ticketColumns = `id, event_id, user_id, ticket_type_id, entry_id, status,
	purchased_at, amount, currency, payment_reference`

type TicketRepository struct {
	db *sql.DB
}

func NewTicketRepository(db *sql.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

func (r *TicketRepository) CreateTickets(ctx context.Context, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	stmt, err := conn(ctx, r.db).PrepareContext(ctx, `
	INSERT INTO tickets (`+ticketColumns+`)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare ticket insert: %w", err)
	}

	defer stmt.Close()

	for _, t := range tickets {
		key := domain.InventoryKey{EventID: t.EventID, TicketTypeID: t.TicketTypeID}
		if _, err := stmt.ExecContext(ctx,
			t.ID,
			t.EventID,
			t.UserID,
			key.NullTicketType(),
			t.EntryID,
			string(t.Status),
			t.PurchasedAt,
			t.Amount,
			t.Currency,
			t.PaymentReference,
		); err != nil {
			return fmt.Errorf("failed to insert ticket %s: %w", t.ID, mapError(err))
		}
	}

	return nil
}

// CountSold counts tickets that still consume capacity.
func (r *TicketRepository) CountSold(ctx context.Context, key domain.InventoryKey) (int, error) {
	query := `
	SELECT COUNT(*)
	FROM tickets
	WHERE event_id = $1
		AND ticket_type_id IS NOT DISTINCT FROM $2
		AND status IN ('valid', 'used')
	`

	var count int
	err := conn(ctx, r.db).QueryRowContext(ctx, query, key.EventID, key.NullTicketType()).Scan(&count)

	return count, err
}

func (r *TicketRepository) ListByEntry(ctx context.Context, entryID uuid.UUID) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE entry_id = $1 ORDER BY id`

	return r.queryTickets(ctx, query, entryID)
}

func (r *TicketRepository) ListByUserAndEvent(ctx context.Context, userID string, eventID uuid.UUID) ([]domain.Ticket, error) {
	query := `
	SELECT ` + ticketColumns + `
	FROM tickets
	WHERE user_id = $1 AND event_id = $2
	ORDER BY purchased_at, id
	`

	return r.queryTickets(ctx, query, userID, eventID)
}

func (r *TicketRepository) queryTickets(ctx context.Context, query string, args ...any) ([]domain.Ticket, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var (
			t          domain.Ticket
			ticketType uuid.NullUUID
			status     string
		)
		if err := rows.Scan(
			&t.ID,
			&t.EventID,
			&t.UserID,
			&ticketType,
			&t.EntryID,
			&status,
			&t.PurchasedAt,
			&t.Amount,
			&t.Currency,
			&t.PaymentReference,
		); err != nil {
			return nil, err
		}

		t.Status = domain.TicketStatus(status)
		if ticketType.Valid {
			t.TicketTypeID = ticketType.UUID
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

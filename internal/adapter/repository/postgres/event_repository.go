package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

type EventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) GetEvent(ctx context.Context, eventID uuid.UUID) (*domain.Event, error) {
	query := `
	SELECT id, name, total_tickets, price, currency, is_cancelled
	FROM events
	WHERE id = $1
	`

	var event domain.Event
	err := conn(ctx, r.db).QueryRowContext(ctx, query, eventID).Scan(
		&event.ID,
		&event.Name,
		&event.TotalTickets,
		&event.Price,
		&event.Currency,
		&event.IsCancelled,
	)
	if err != nil {
		return nil, mapError(err)
	}

	types, err := r.ticketTypes(ctx, eventID)
	if err != nil {
		return nil, err
	}
	event.TicketTypes = types

	return &event, nil
}

func (r *EventRepository) ticketTypes(ctx context.Context, eventID uuid.UUID) ([]domain.TicketType, error) {
	query := `
	SELECT id, event_id, name, price, quantity, remaining, is_sold_out, is_hidden,
		allow_group_purchase, min_per_transaction, max_per_transaction, position
	FROM ticket_types
	WHERE event_id = $1
	ORDER BY position, name
	`

	rows, err := conn(ctx, r.db).QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var types []domain.TicketType
	for rows.Next() {
		var tt domain.TicketType
		if err := rows.Scan(
			&tt.ID,
			&tt.EventID,
			&tt.Name,
			&tt.Price,
			&tt.Quantity,
			&tt.Remaining,
			&tt.IsSoldOut,
			&tt.IsHidden,
			&tt.AllowGroupPurchase,
			&tt.MinPerTransaction,
			&tt.MaxPerTransaction,
			&tt.Position,
		); err != nil {
			return nil, err
		}

		types = append(types, tt)
	}

	return types, rows.Err()
}

// LockInventory takes a row lock on the ticket type, or on the event row
// for legacy events. Must run inside TxManager.WithTx.
func (r *EventRepository) LockInventory(ctx context.Context, key domain.InventoryKey) (*domain.Event, error) {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); !ok {
		return nil, fmt.Errorf("lock inventory %s: no transaction in context", key)
	}

	var lockedID uuid.UUID
	var err error
	if key.IsLegacy() {
		err = conn(ctx, r.db).QueryRowContext(ctx,
			`SELECT id FROM events WHERE id = $1 FOR UPDATE`,
			key.EventID,
		).Scan(&lockedID)
	} else {
		err = conn(ctx, r.db).QueryRowContext(ctx,
			`SELECT id FROM ticket_types WHERE id = $1 AND event_id = $2 FOR UPDATE`,
			key.TicketTypeID, key.EventID,
		).Scan(&lockedID)
	}
	if err != nil {
		return nil, mapError(err)
	}

	return r.GetEvent(ctx, key.EventID)
}

func (r *EventRepository) UpdateTicketTypeStock(ctx context.Context, ticketTypeID uuid.UUID, remaining int, soldOut bool) error {
	query := `
	UPDATE ticket_types
	SET remaining = $1,
		is_sold_out = $2,
		updated_at = NOW()
	WHERE id = $3
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query, remaining, soldOut, ticketTypeID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *EventRepository) ListOpenEventIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT id FROM events WHERE is_cancelled = FALSE ORDER BY id`)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}

		ids = append(ids, id)
	}

	return ids, rows.Err()
}

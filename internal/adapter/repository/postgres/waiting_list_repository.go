package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/srgjo27/ticket_admission/internal/core/domain"
)

const entryColumns = `id, event_id, user_id, ticket_type_id, quantity, status,
	offer_expires_at, payment_reference, created_at, updated_at`

type WaitingListRepository struct {
	db *sql.DB
}

func NewWaitingListRepository(db *sql.DB) *WaitingListRepository {
	return &WaitingListRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.WaitingListEntry, error) {
	var (
		entry      domain.WaitingListEntry
		ticketType uuid.NullUUID
		expiresAt  sql.NullTime
		paymentRef sql.NullString
		status     string
	)

	if err := row.Scan(
		&entry.ID,
		&entry.EventID,
		&entry.UserID,
		&ticketType,
		&entry.Quantity,
		&status,
		&expiresAt,
		&paymentRef,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	); err != nil {
		return nil, err
	}

	entry.Status = domain.EntryStatus(status)
	if ticketType.Valid {
		entry.TicketTypeID = ticketType.UUID
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		entry.OfferExpiresAt = &t
	}
	entry.PaymentReference = paymentRef.String

	return &entry, nil
}

func (r *WaitingListRepository) queryEntries(ctx context.Context, query string, args ...any) ([]domain.WaitingListEntry, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var entries []domain.WaitingListEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}

		entries = append(entries, *entry)
	}

	return entries, rows.Err()
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *WaitingListRepository) CreateEntry(ctx context.Context, entry *domain.WaitingListEntry) error {
	query := `
	INSERT INTO waiting_list_entries (` + entryColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		entry.ID,
		entry.EventID,
		entry.UserID,
		entry.Key().NullTicketType(),
		entry.Quantity,
		string(entry.Status),
		nullTime(entry.OfferExpiresAt),
		nullString(entry.PaymentReference),
		entry.CreatedAt,
		entry.UpdatedAt,
	)

	return mapError(err)
}

func (r *WaitingListRepository) GetEntry(ctx context.Context, entryID uuid.UUID) (*domain.WaitingListEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM waiting_list_entries WHERE id = $1`

	entry, err := scanEntry(conn(ctx, r.db).QueryRowContext(ctx, query, entryID))
	if err != nil {
		return nil, mapError(err)
	}

	return entry, nil
}

// UpdateEntry is a compare-and-set on status.
func (r *WaitingListRepository) UpdateEntry(ctx context.Context, entry *domain.WaitingListEntry, from domain.EntryStatus) error {
	query := `
	UPDATE waiting_list_entries
	SET status = $1,
		offer_expires_at = $2,
		payment_reference = $3,
		updated_at = $4
	WHERE id = $5 AND status = $6
	`

	result, err := conn(ctx, r.db).ExecContext(ctx, query,
		string(entry.Status),
		nullTime(entry.OfferExpiresAt),
		nullString(entry.PaymentReference),
		entry.UpdatedAt,
		entry.ID,
		string(from),
	)
	if err != nil {
		return mapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		var exists bool
		err := conn(ctx, r.db).QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM waiting_list_entries WHERE id = $1)`, entry.ID,
		).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrInvalidState
	}

	return nil
}

func (r *WaitingListRepository) ActiveEntryForUser(ctx context.Context, userID string, eventID uuid.UUID) (*domain.WaitingListEntry, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM waiting_list_entries
	WHERE user_id = $1 AND event_id = $2 AND status IN ('waiting', 'offered')
	LIMIT 1
	`

	return r.optionalEntry(ctx, query, userID, eventID)
}

func (r *WaitingListRepository) LatestEntryForUser(ctx context.Context, userID string, eventID uuid.UUID) (*domain.WaitingListEntry, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM waiting_list_entries
	WHERE user_id = $1 AND event_id = $2
	ORDER BY created_at DESC, id DESC
	LIMIT 1
	`

	return r.optionalEntry(ctx, query, userID, eventID)
}

func (r *WaitingListRepository) optionalEntry(ctx context.Context, query string, args ...any) (*domain.WaitingListEntry, error) {
	entry, err := scanEntry(conn(ctx, r.db).QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return entry, nil
}

func (r *WaitingListRepository) EntriesByEventAndStatus(ctx context.Context, eventID uuid.UUID, status domain.EntryStatus) ([]domain.WaitingListEntry, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM waiting_list_entries
	WHERE event_id = $1 AND status = $2
	ORDER BY created_at, id
	`

	return r.queryEntries(ctx, query, eventID, string(status))
}

func (r *WaitingListRepository) WaitingEntries(ctx context.Context, key domain.InventoryKey) ([]domain.WaitingListEntry, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM waiting_list_entries
	WHERE event_id = $1 AND ticket_type_id IS NOT DISTINCT FROM $2 AND status = 'waiting'
	ORDER BY created_at, id
	`

	return r.queryEntries(ctx, query, key.EventID, key.NullTicketType())
}

func (r *WaitingListRepository) CountWaitingAhead(ctx context.Context, entry *domain.WaitingListEntry) (int, error) {
	query := `
	SELECT COUNT(*)
	FROM waiting_list_entries
	WHERE event_id = $1
		AND ticket_type_id IS NOT DISTINCT FROM $2
		AND status = 'waiting'
		AND (created_at, id) < ($3, $4)
	`

	var count int
	err := conn(ctx, r.db).QueryRowContext(ctx, query,
		entry.EventID, entry.Key().NullTicketType(), entry.CreatedAt, entry.ID,
	).Scan(&count)

	return count, err
}

func (r *WaitingListRepository) SumActiveOffers(ctx context.Context, key domain.InventoryKey, now time.Time) (int, error) {
	query := `
	SELECT COALESCE(SUM(quantity), 0)
	FROM waiting_list_entries
	WHERE event_id = $1
		AND ticket_type_id IS NOT DISTINCT FROM $2
		AND status = 'offered'
		AND offer_expires_at > $3
	`

	var sum int
	err := conn(ctx, r.db).QueryRowContext(ctx, query, key.EventID, key.NullTicketType(), now).Scan(&sum)

	return sum, err
}

func (r *WaitingListRepository) LapsedOffers(ctx context.Context, now time.Time, limit int) ([]domain.WaitingListEntry, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM waiting_list_entries
	WHERE status = 'offered' AND (offer_expires_at IS NULL OR offer_expires_at <= $1)
	ORDER BY offer_expires_at NULLS FIRST, id
	LIMIT $2
	`

	return r.queryEntries(ctx, query, now, limit)
}

func (r *WaitingListRepository) LiveOffers(ctx context.Context, now time.Time) ([]domain.WaitingListEntry, error) {
	query := `
	SELECT ` + entryColumns + `
	FROM waiting_list_entries
	WHERE status = 'offered' AND offer_expires_at > $1
	ORDER BY offer_expires_at, id
	`

	return r.queryEntries(ctx, query, now)
}

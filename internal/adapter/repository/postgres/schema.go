package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const activeEntryConstraint = "waiting_list_entries_one_active"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		total_tickets INTEGER NOT NULL DEFAULT 0,
		price NUMERIC(12, 2) NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'NGN',
		is_cancelled BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS ticket_types (
		id UUID PRIMARY KEY,
		event_id UUID NOT NULL REFERENCES events(id),
		name TEXT NOT NULL,
		price NUMERIC(12, 2) NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity >= 0),
		remaining INTEGER NOT NULL,
		is_sold_out BOOLEAN NOT NULL DEFAULT FALSE,
		is_hidden BOOLEAN NOT NULL DEFAULT FALSE,
		allow_group_purchase BOOLEAN NOT NULL DEFAULT FALSE,
		min_per_transaction INTEGER NOT NULL DEFAULT 1,
		max_per_transaction INTEGER NOT NULL DEFAULT 0,
		position INTEGER NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS ticket_types_event_idx ON ticket_types (event_id)`,
	`CREATE TABLE IF NOT EXISTS waiting_list_entries (
		id UUID PRIMARY KEY,
		event_id UUID NOT NULL REFERENCES events(id),
		user_id TEXT NOT NULL,
		ticket_type_id UUID REFERENCES ticket_types(id),
		quantity INTEGER NOT NULL CHECK (quantity >= 1),
		status TEXT NOT NULL,
		offer_expires_at TIMESTAMPTZ,
		payment_reference TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS waiting_list_entries_event_status_idx ON waiting_list_entries (event_id, status)`,
	`CREATE INDEX IF NOT EXISTS waiting_list_entries_user_event_idx ON waiting_list_entries (user_id, event_id)`,
	`CREATE INDEX IF NOT EXISTS waiting_list_entries_offer_expiry_idx ON waiting_list_entries (offer_expires_at) WHERE status = 'offered'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + activeEntryConstraint + ` ON waiting_list_entries (user_id, event_id) WHERE status IN ('waiting', 'offered')`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id UUID PRIMARY KEY,
		event_id UUID NOT NULL REFERENCES events(id),
		user_id TEXT NOT NULL,
		ticket_type_id UUID REFERENCES ticket_types(id),
		entry_id UUID NOT NULL REFERENCES waiting_list_entries(id),
		status TEXT NOT NULL,
		purchased_at TIMESTAMPTZ NOT NULL,
		amount NUMERIC(12, 2) NOT NULL,
		currency TEXT NOT NULL,
		payment_reference TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS tickets_event_idx ON tickets (event_id)`,
	`CREATE INDEX IF NOT EXISTS tickets_entry_idx ON tickets (entry_id)`,
}

// Migrate creates the tables and indexes if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration step %d failed: %w", i+1, err)
		}
	}
	return nil
}

package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createEventsTable,
		createEventStaffTable,
		createTicketsTable,
		createTicketIndexes,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    user_id SERIAL PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    password_hash VARCHAR(64) NOT NULL,
    first_name VARCHAR(100) NOT NULL,
    surname VARCHAR(100) NOT NULL,
    role VARCHAR(20) NOT NULL DEFAULT 'attendee',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    registered_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (role IN ('host', 'attendee', 'staff'))
);`

const createEventsTable = `
CREATE TABLE IF NOT EXISTS events (
    id SERIAL PRIMARY KEY,
    title VARCHAR(500) NOT NULL,
    description TEXT,
    host_id INTEGER NOT NULL REFERENCES users(user_id),
    capacity INTEGER NOT NULL,
    tickets_sold INTEGER NOT NULL DEFAULT 0,
    start_at TIMESTAMP NOT NULL,
    end_at TIMESTAMP NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'draft',
    is_free BOOLEAN NOT NULL DEFAULT TRUE,
    price DECIMAL(10,2) NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (capacity >= 1),
    CHECK (tickets_sold >= 0 AND tickets_sold <= capacity),
    CHECK (end_at > start_at),
    CHECK (price >= 0),
    CHECK (status IN ('draft', 'published', 'cancelled', 'completed'))
);`

const createEventStaffTable = `
CREATE TABLE IF NOT EXISTS event_staff (
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    staff_id INTEGER NOT NULL REFERENCES users(user_id),
    assigned_at TIMESTAMP NOT NULL DEFAULT NOW(),

    PRIMARY KEY (event_id, staff_id)
);`

const createTicketsTable = `
CREATE TABLE IF NOT EXISTS tickets (
    id SERIAL PRIMARY KEY,
    event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
    attendee_id INTEGER NOT NULL REFERENCES users(user_id),
    ticket_number VARCHAR(32) NOT NULL,
    verification_token VARCHAR(64) NOT NULL,
    price_paid DECIMAL(10,2) NOT NULL DEFAULT 0,
    payment_status VARCHAR(20) NOT NULL DEFAULT 'completed',
    payment_ref VARCHAR(255),
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    is_scanned BOOLEAN NOT NULL DEFAULT FALSE,
    scanned_at TIMESTAMP,
    scanned_by INTEGER REFERENCES users(user_id),
    entry_time TIMESTAMP,
    exit_time TIMESTAMP,
    scan_count INTEGER NOT NULL DEFAULT 0,
    is_cancelled BOOLEAN NOT NULL DEFAULT FALSE,
    cancelled_at TIMESTAMP,
    cancel_reason TEXT,
    refund_amount DECIMAL(10,2),
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    CHECK (scan_count >= 0),
    CHECK (price_paid >= 0),
    CHECK (status IN ('active', 'cancelled', 'used', 'expired')),
    CHECK (payment_status IN ('pending', 'completed', 'failed', 'refunded'))
);`

// The partial unique index is the storage-level guarantee behind the
// one-non-cancelled-ticket-per-attendee invariant. Ticket numbers and
// verification tokens are globally unique; the constraint names are matched
// by the repository when translating conflicts.
const createTicketIndexes = `
CREATE UNIQUE INDEX IF NOT EXISTS tickets_ticket_number_key
    ON tickets (ticket_number);
CREATE UNIQUE INDEX IF NOT EXISTS tickets_verification_token_key
    ON tickets (verification_token);
CREATE UNIQUE INDEX IF NOT EXISTS tickets_event_attendee_active_key
    ON tickets (event_id, attendee_id) WHERE status <> 'cancelled';
CREATE INDEX IF NOT EXISTS tickets_event_id_idx ON tickets (event_id);
CREATE INDEX IF NOT EXISTS tickets_scanned_at_idx ON tickets (scanned_at)
    WHERE scanned_at IS NOT NULL;`

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tickmate/internal/database"
	"tickmate/internal/models"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// Sentinel errors the service layer translates into its taxonomy. They map
// one-to-one onto the unique constraints of the tickets table.
var (
	ErrDuplicateActiveTicket  = errors.New("active ticket already exists for attendee")
	ErrTicketNumberTaken      = errors.New("ticket number already in use")
	ErrVerificationTokenTaken = errors.New("verification token already in use")
	ErrEmailTaken             = errors.New("email already registered")

	errUnsupportedDelta = errors.New("only deltas of +1/-1 are supported")
)

const ticketColumns = `
	id, event_id, attendee_id, ticket_number, verification_token,
	price_paid, payment_status, payment_ref, status,
	is_scanned, scanned_at, scanned_by, entry_time, exit_time, scan_count,
	is_cancelled, cancelled_at, cancel_reason, refund_amount,
	created_at, updated_at
`

type TicketRepository struct {
	db *database.DB
}

func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner, t *models.Ticket) error {
	return row.Scan(
		&t.ID,
		&t.EventID,
		&t.AttendeeID,
		&t.TicketNumber,
		&t.VerificationToken,
		&t.PricePaid,
		&t.PaymentStatus,
		&t.PaymentRef,
		&t.Status,
		&t.IsScanned,
		&t.ScannedAt,
		&t.ScannedBy,
		&t.EntryTime,
		&t.ExitTime,
		&t.ScanCount,
		&t.IsCancelled,
		&t.CancelledAt,
		&t.CancelReason,
		&t.RefundAmount,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
}

// Create inserts a ticket. Unique-constraint violations come back as the
// sentinel matching the violated index, never as a raw pq error.
func (r *TicketRepository) Create(ctx context.Context, ticket *models.Ticket) error {
	query := `
		INSERT INTO tickets (event_id, attendee_id, ticket_number, verification_token,
		                     price_paid, payment_status, payment_ref, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, scan_count, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		ticket.EventID,
		ticket.AttendeeID,
		ticket.TicketNumber,
		ticket.VerificationToken,
		ticket.PricePaid,
		ticket.PaymentStatus,
		ticket.PaymentRef,
		ticket.Status,
	).Scan(&ticket.ID, &ticket.ScanCount, &ticket.CreatedAt, &ticket.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case "tickets_event_attendee_active_key":
			return ErrDuplicateActiveTicket
		case "tickets_ticket_number_key":
			return ErrTicketNumberTaken
		case "tickets_verification_token_key":
			return ErrVerificationTokenTaken
		}
		return ErrDuplicateActiveTicket
	}

	return err
}

func (r *TicketRepository) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `SELECT` + ticketColumns + `FROM tickets WHERE id = $1`

	err := scanTicket(r.db.QueryRowContext(ctx, query, id), ticket)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return ticket, err
}

// FindByLookup resolves a ticket by ticket number or verification token in
// one query. More than one row means the two keys resolved to different
// tickets, which the caller must treat as an inconsistent state.
func (r *TicketRepository) FindByLookup(ctx context.Context, key string) ([]models.Ticket, error) {
	query := `SELECT` + ticketColumns + `
		FROM tickets
		WHERE ticket_number = $1 OR verification_token = $1
		LIMIT 2`

	rows, err := r.db.QueryContext(ctx, query, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := scanTicket(rows, &t); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

func (r *TicketRepository) HasActive(ctx context.Context, eventID, attendeeID int64) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM tickets
			WHERE event_id = $1 AND attendee_id = $2 AND status <> 'cancelled'
		)`
	err := r.db.QueryRowContext(ctx, query, eventID, attendeeID).Scan(&exists)
	return exists, err
}

// CancelActive moves an active ticket to cancelled and fills the
// cancellation record. The status guard makes concurrent cancels of the
// same ticket settle to exactly one winner.
func (r *TicketRepository) CancelActive(ctx context.Context, id int64, reason string, refundAmount decimal.Decimal, now time.Time) (bool, error) {
	query := `
		UPDATE tickets
		SET status = 'cancelled', is_cancelled = TRUE, cancelled_at = $2,
		    cancel_reason = $3, refund_amount = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'active'`

	res, err := r.db.ExecContext(ctx, query, id, now, reason, refundAmount)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *TicketRepository) MarkRefunded(ctx context.Context, id int64) error {
	query := `UPDATE tickets SET payment_status = 'refunded', updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// RecordEntryScan applies an entry scan in a single statement, so two gates
// scanning the same ticket concurrently cannot lose a scan_count increment.
// First-scan fields are set once via COALESCE; later scans only bump the
// counter. Returns nil when the ticket is not active anymore.
func (r *TicketRepository) RecordEntryScan(ctx context.Context, id, staffID int64, now time.Time) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `
		UPDATE tickets
		SET is_scanned = TRUE,
		    scanned_at = COALESCE(scanned_at, $2),
		    scanned_by = COALESCE(scanned_by, $3),
		    entry_time = COALESCE(entry_time, $2),
		    scan_count = scan_count + 1,
		    updated_at = NOW()
		WHERE id = $1 AND status = 'active'
		RETURNING` + ticketColumns

	err := scanTicket(r.db.QueryRowContext(ctx, query, id, now, staffID), ticket)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return ticket, err
}

// RecordExitScan stamps the exit time. The is_scanned guard rejects an exit
// for a ticket that never entered.
func (r *TicketRepository) RecordExitScan(ctx context.Context, id int64, now time.Time) (*models.Ticket, error) {
	ticket := &models.Ticket{}
	query := `
		UPDATE tickets
		SET exit_time = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'active' AND is_scanned = TRUE
		RETURNING` + ticketColumns

	err := scanTicket(r.db.QueryRowContext(ctx, query, id, now), ticket)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return ticket, err
}

// AttendanceCounts aggregates over active tickets for an event.
func (r *TicketRepository) AttendanceCounts(ctx context.Context, eventID int64) (total, scanned int, err error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_scanned)
		FROM tickets
		WHERE event_id = $1 AND status = 'active'`

	err = r.db.QueryRowContext(ctx, query, eventID).Scan(&total, &scanned)
	return total, scanned, err
}

func (r *TicketRepository) ListByAttendee(ctx context.Context, attendeeID int64) ([]models.Ticket, error) {
	query := `SELECT` + ticketColumns + `
		FROM tickets
		WHERE attendee_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, attendeeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := scanTicket(rows, &t); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

// ListByFilter is the read-only query surface exposed to reporting.
func (r *TicketRepository) ListByFilter(ctx context.Context, filter models.TicketFilter) ([]models.Ticket, error) {
	query := `SELECT` + ticketColumns + ` FROM tickets WHERE 1=1`
	var args []interface{}
	argIndex := 1

	if filter.EventID != nil {
		query += fmt.Sprintf(" AND event_id = $%d", argIndex)
		args = append(args, *filter.EventID)
		argIndex++
	}
	if filter.AttendeeID != nil {
		query += fmt.Sprintf(" AND attendee_id = $%d", argIndex)
		args = append(args, *filter.AttendeeID)
		argIndex++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.From != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *filter.From)
		argIndex++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND created_at < $%d", argIndex)
		args = append(args, *filter.To)
		argIndex++
	}

	query += " ORDER BY created_at DESC"

	if filter.Page > 0 && filter.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
		args = append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tickets []models.Ticket
	for rows.Next() {
		var t models.Ticket
		if err := scanTicket(rows, &t); err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}

	return tickets, rows.Err()
}

// ScanHistogram buckets entry scans by hour for an event.
func (r *TicketRepository) ScanHistogram(ctx context.Context, eventID int64) ([]models.ScanHistogramBucket, error) {
	query := `
		SELECT date_trunc('hour', scanned_at) AS hour, COUNT(*)
		FROM tickets
		WHERE event_id = $1 AND scanned_at IS NOT NULL
		GROUP BY hour
		ORDER BY hour`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []models.ScanHistogramBucket
	for rows.Next() {
		var b models.ScanHistogramBucket
		if err := rows.Scan(&b.Hour, &b.Scans); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}

	return buckets, rows.Err()
}

// AnalyticsByEvent aggregates the ledger's output for the reporting view.
func (r *TicketRepository) AnalyticsByEvent(ctx context.Context, eventID int64) (*models.EventAnalytics, error) {
	a := &models.EventAnalytics{EventID: eventID}
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COUNT(*) FILTER (WHERE is_scanned AND status <> 'cancelled'),
			COALESCE(SUM(price_paid) FILTER (WHERE status <> 'cancelled'), 0),
			COALESCE(SUM(refund_amount) FILTER (WHERE status = 'cancelled'), 0)
		FROM tickets
		WHERE event_id = $1`

	err := r.db.QueryRowContext(ctx, query, eventID).Scan(
		&a.TicketsCancelled,
		&a.TicketsScanned,
		&a.Revenue,
		&a.Refunded,
	)

	return a, err
}

// ExpireUnscanned marks never-scanned active tickets of completed events as
// expired. Used by the expiration sweep.
func (r *TicketRepository) ExpireUnscanned(ctx context.Context) (int64, error) {
	query := `
		UPDATE tickets
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'active' AND is_scanned = FALSE
		  AND event_id IN (SELECT id FROM events WHERE status = 'completed')`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

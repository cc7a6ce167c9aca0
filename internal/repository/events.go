package repository

import (
	"context"
	"database/sql"

	"tickmate/internal/database"
	"tickmate/internal/models"
)

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (title, description, host_id, capacity, start_at, end_at, status, is_free, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, tickets_sold, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		event.Title,
		event.Description,
		event.HostID,
		event.Capacity,
		event.StartAt,
		event.EndAt,
		event.Status,
		event.IsFree,
		event.Price,
	).Scan(&event.ID, &event.TicketsSold, &event.CreatedAt, &event.UpdatedAt)

	return err
}

func (r *EventRepository) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event := &models.Event{}
	query := `
		SELECT id, title, description, host_id, capacity, tickets_sold,
		       start_at, end_at, status, is_free, price, created_at, updated_at
		FROM events
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&event.ID,
		&event.Title,
		&event.Description,
		&event.HostID,
		&event.Capacity,
		&event.TicketsSold,
		&event.StartAt,
		&event.EndAt,
		&event.Status,
		&event.IsFree,
		&event.Price,
		&event.CreatedAt,
		&event.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return event, err
}

func (r *EventRepository) List(ctx context.Context, page, pageSize int) ([]models.Event, error) {
	var events []models.Event
	query := `
		SELECT id, title, description, host_id, capacity, tickets_sold,
		       start_at, end_at, status, is_free, price, created_at, updated_at
		FROM events
		WHERE status = 'published'
		ORDER BY start_at
		LIMIT $1 OFFSET $2`

	rows, err := r.db.QueryContext(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID,
			&event.Title,
			&event.Description,
			&event.HostID,
			&event.Capacity,
			&event.TicketsSold,
			&event.StartAt,
			&event.EndAt,
			&event.Status,
			&event.IsFree,
			&event.Price,
			&event.CreatedAt,
			&event.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	return events, rows.Err()
}

func (r *EventRepository) UpdateStatus(ctx context.Context, id int64, status string) (bool, error) {
	query := `UPDATE events SET status = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AdjustTicketsSold is the atomic capacity primitive. For delta = +1 the
// update only lands while tickets_sold < capacity, so two concurrent
// bookings for the last seat cannot both succeed; for delta = -1 it only
// lands while tickets_sold > 0. Returns false when the guard rejected the
// change.
func (r *EventRepository) AdjustTicketsSold(ctx context.Context, id int64, delta int) (bool, error) {
	var query string
	switch {
	case delta == 1:
		query = `
			UPDATE events
			SET tickets_sold = tickets_sold + 1, updated_at = NOW()
			WHERE id = $1 AND tickets_sold < capacity`
	case delta == -1:
		query = `
			UPDATE events
			SET tickets_sold = tickets_sold - 1, updated_at = NOW()
			WHERE id = $1 AND tickets_sold > 0`
	default:
		return false, errUnsupportedDelta
	}

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *EventRepository) AssignStaff(ctx context.Context, eventID, staffID int64) error {
	query := `
		INSERT INTO event_staff (event_id, staff_id)
		VALUES ($1, $2)
		ON CONFLICT (event_id, staff_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query, eventID, staffID)
	return err
}

func (r *EventRepository) ListStaff(ctx context.Context, eventID int64) ([]models.EventStaff, error) {
	var assignments []models.EventStaff
	query := `
		SELECT event_id, staff_id, assigned_at
		FROM event_staff
		WHERE event_id = $1
		ORDER BY assigned_at`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a models.EventStaff
		if err := rows.Scan(&a.EventID, &a.StaffID, &a.AssignedAt); err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}

	return assignments, rows.Err()
}

func (r *EventRepository) IsStaffAssigned(ctx context.Context, eventID, staffID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM event_staff WHERE event_id = $1 AND staff_id = $2)`
	err := r.db.QueryRowContext(ctx, query, eventID, staffID).Scan(&exists)
	return exists, err
}

// CompletePastEvents marks published events whose window has closed as
// completed. Used by the expiration sweep.
func (r *EventRepository) CompletePastEvents(ctx context.Context) (int64, error) {
	query := `
		UPDATE events
		SET status = 'completed', updated_at = NOW()
		WHERE status = 'published' AND end_at < NOW()`

	res, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

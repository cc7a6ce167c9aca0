package service

import (
	"context"
	"time"

	apperrors "tickmate/internal/errors"
	"tickmate/internal/models"
	"tickmate/internal/repository"

	"github.com/shopspring/decimal"
)

// EventService owns the event catalog: creation, publication, listing and
// staff assignment.
type EventService struct {
	events *repository.EventRepository
	users  *repository.UserRepository

	now func() time.Time
}

func NewEventService(events *repository.EventRepository, users *repository.UserRepository) *EventService {
	return &EventService{
		events: events,
		users:  users,
		now:    time.Now,
	}
}

// Create adds a draft event owned by the host. Drafts are invisible to
// attendees until published.
func (s *EventService) Create(ctx context.Context, hostID int64, req *models.CreateEventRequest) (*models.Event, error) {
	if !req.EndAt.After(req.StartAt) {
		return nil, apperrors.New(apperrors.KindValidation, "end_at must be after start_at")
	}
	if req.EndAt.Before(s.now()) {
		return nil, apperrors.New(apperrors.KindValidation, "event window is entirely in the past")
	}

	price := req.Pricing.Price
	if req.Pricing.IsFree {
		price = decimal.Zero
	} else if !price.IsPositive() {
		return nil, apperrors.New(apperrors.KindValidation, "paid events require a positive price")
	}

	event := &models.Event{
		Title:       req.Title,
		Description: req.Description,
		HostID:      hostID,
		Capacity:    req.Capacity,
		StartAt:     req.StartAt,
		EndAt:       req.EndAt,
		Status:      models.EventStatusDraft,
		IsFree:      req.Pricing.IsFree,
		Price:       price,
	}

	if err := s.events.Create(ctx, event); err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to create event", err)
	}

	return event, nil
}

// Publish moves a host's draft event to published, opening it for booking.
func (s *EventService) Publish(ctx context.Context, eventID, hostID int64) (*models.Event, error) {
	event, err := s.ownedEvent(ctx, eventID, hostID)
	if err != nil {
		return nil, err
	}
	if event.Status != models.EventStatusDraft {
		return nil, apperrors.Newf(apperrors.KindValidation, "only draft events can be published, event is %s", event.Status)
	}

	ok, err := s.events.UpdateStatus(ctx, eventID, models.EventStatusPublished)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to publish event", err)
	}
	if !ok {
		return nil, apperrors.New(apperrors.KindNotFound, "event not found")
	}

	event.Status = models.EventStatusPublished
	return event, nil
}

func (s *EventService) Get(ctx context.Context, eventID int64) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to get event", err)
	}
	if event == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "event not found")
	}
	return event, nil
}

// List returns published events, paged.
func (s *EventService) List(ctx context.Context, page, pageSize int) ([]models.ListEventsResponseItem, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	events, err := s.events.List(ctx, page, pageSize)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list events", err)
	}

	items := make([]models.ListEventsResponseItem, 0, len(events))
	for _, e := range events {
		items = append(items, models.ListEventsResponseItem{
			ID:          e.ID,
			Title:       e.Title,
			Capacity:    e.Capacity,
			TicketsSold: e.TicketsSold,
			StartAt:     e.StartAt,
			EndAt:       e.EndAt,
			Status:      e.Status,
			IsFree:      e.IsFree,
		})
	}

	return items, nil
}

// AssignStaff attaches a staff member to a host's event. Scans authorize
// against this assignment, so only the host may grant it, and only to users
// holding the staff role.
func (s *EventService) AssignStaff(ctx context.Context, eventID, hostID, staffID int64) error {
	if _, err := s.ownedEvent(ctx, eventID, hostID); err != nil {
		return err
	}

	staff, err := s.users.GetByID(ctx, staffID)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to look up staff user", err)
	}
	if staff == nil || !staff.IsActive {
		return apperrors.New(apperrors.KindNotFound, "staff user not found")
	}
	if staff.Role != models.RoleStaff {
		return apperrors.Newf(apperrors.KindValidation, "user %d does not hold the staff role", staffID)
	}

	if err := s.events.AssignStaff(ctx, eventID, staffID); err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to assign staff", err)
	}

	return nil
}

// ListStaff returns the staff assignments for a host's event.
func (s *EventService) ListStaff(ctx context.Context, eventID, hostID int64) ([]models.EventStaff, error) {
	if _, err := s.ownedEvent(ctx, eventID, hostID); err != nil {
		return nil, err
	}

	assignments, err := s.events.ListStaff(ctx, eventID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list staff", err)
	}
	if assignments == nil {
		assignments = []models.EventStaff{}
	}

	return assignments, nil
}

// ownedEvent loads an event and verifies the caller hosts it.
func (s *EventService) ownedEvent(ctx context.Context, eventID, hostID int64) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to get event", err)
	}
	if event == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "event not found")
	}
	if event.HostID != hostID {
		return nil, apperrors.New(apperrors.KindNotOwner, "event belongs to another host")
	}
	return event, nil
}

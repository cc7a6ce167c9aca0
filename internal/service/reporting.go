package service

import (
	"context"

	apperrors "tickmate/internal/errors"
	"tickmate/internal/models"
	"tickmate/internal/repository"
)

// ReportingService exposes the read-only views over the ledger: ticket
// listings, per-event analytics and the hourly scan histogram. All views are
// restricted to the event's host or its assigned staff.
type ReportingService struct {
	events  *repository.EventRepository
	tickets *repository.TicketRepository
}

func NewReportingService(events *repository.EventRepository, tickets *repository.TicketRepository) *ReportingService {
	return &ReportingService{events: events, tickets: tickets}
}

// TicketReport lists tickets matching the filter. The filter is scoped to a
// single event, and the caller must be able to view that event.
func (s *ReportingService) TicketReport(ctx context.Context, viewerID int64, filter models.TicketFilter) ([]models.Ticket, error) {
	if filter.EventID == nil {
		return nil, apperrors.New(apperrors.KindValidation, "event_id is required")
	}
	if err := s.authorizeViewer(ctx, *filter.EventID, viewerID); err != nil {
		return nil, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 200 {
		filter.PageSize = 50
	}

	tickets, err := s.tickets.ListByFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list tickets", err)
	}

	return tickets, nil
}

// Analytics combines catalog and ledger aggregates for one event.
func (s *ReportingService) Analytics(ctx context.Context, eventID, viewerID int64) (*models.EventAnalytics, error) {
	event, err := s.viewableEvent(ctx, eventID, viewerID)
	if err != nil {
		return nil, err
	}

	analytics, err := s.tickets.AnalyticsByEvent(ctx, eventID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to aggregate analytics", err)
	}

	analytics.Capacity = event.Capacity
	analytics.TicketsSold = event.TicketsSold

	total, scanned, err := s.tickets.AttendanceCounts(ctx, eventID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to aggregate attendance", err)
	}
	analytics.AttendanceRate = attendanceRate(scanned, total)

	return analytics, nil
}

// ScanHistogram buckets entry scans by hour for an event.
func (s *ReportingService) ScanHistogram(ctx context.Context, eventID, viewerID int64) ([]models.ScanHistogramBucket, error) {
	if _, err := s.viewableEvent(ctx, eventID, viewerID); err != nil {
		return nil, err
	}

	buckets, err := s.tickets.ScanHistogram(ctx, eventID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to build scan histogram", err)
	}

	return buckets, nil
}

func (s *ReportingService) viewableEvent(ctx context.Context, eventID, viewerID int64) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to get event", err)
	}
	if event == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "event not found")
	}

	if event.HostID == viewerID {
		return event, nil
	}

	assigned, err := s.events.IsStaffAssigned(ctx, eventID, viewerID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to check staff assignment", err)
	}
	if !assigned {
		return nil, apperrors.New(apperrors.KindNotOwner, "reporting is limited to the host and assigned staff")
	}

	return event, nil
}

func (s *ReportingService) authorizeViewer(ctx context.Context, eventID, viewerID int64) error {
	_, err := s.viewableEvent(ctx, eventID, viewerID)
	return err
}

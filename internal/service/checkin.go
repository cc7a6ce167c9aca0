package service

import (
	"context"
	"math"
	"time"

	apperrors "tickmate/internal/errors"
	"tickmate/internal/logger"
	"tickmate/internal/metrics"
	"tickmate/internal/models"
)

// CheckInService performs scan verification against the ticket ledger and
// the event catalog, enforcing staff assignment and timing rules.
type CheckInService struct {
	events  EventStore
	tickets TicketStore
	nats    Publisher

	now func() time.Time
}

func NewCheckInService(events EventStore, tickets TicketStore, nats Publisher) *CheckInService {
	return &CheckInService{
		events:  events,
		tickets: tickets,
		nats:    nats,
		now:     time.Now,
	}
}

// Scan verifies a ticket at the door. Entry re-scans are a supported,
// non-destructive operation: staff re-checking a ticket at another gate
// bumps the scan counter instead of erroring. Exit requires a prior entry.
func (s *CheckInService) Scan(ctx context.Context, staffID int64, req *models.ScanRequest) (*models.VerificationResult, error) {
	result, err := s.scan(ctx, staffID, req)
	if err != nil {
		metrics.ScanFailuresTotal.WithLabelValues(string(apperrors.KindOf(err))).Inc()
		return nil, err
	}
	return result, nil
}

func (s *CheckInService) scan(ctx context.Context, staffID int64, req *models.ScanRequest) (*models.VerificationResult, error) {
	matches, err := s.tickets.FindByLookup(ctx, req.LookupKey)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "ticket lookup failed", err)
	}
	if len(matches) == 0 {
		return nil, apperrors.New(apperrors.KindNotFound, "no ticket matches the lookup key")
	}
	if len(matches) > 1 {
		// The key matched a ticket number on one ticket and a verification
		// token on another. Surface it, never resolve silently.
		return nil, apperrors.New(apperrors.KindInconsistentState, "lookup key matches multiple tickets")
	}

	ticket := matches[0]
	if req.EventID != nil && *req.EventID != ticket.EventID {
		return nil, apperrors.New(apperrors.KindNotFound, "ticket does not belong to this event")
	}

	event, err := s.events.GetByID(ctx, ticket.EventID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to get event", err)
	}
	if event == nil {
		return nil, apperrors.New(apperrors.KindInconsistentState, "ticket references a missing event")
	}

	assigned, err := s.events.IsStaffAssigned(ctx, event.ID, staffID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to check staff assignment", err)
	}
	if !assigned {
		return nil, apperrors.New(apperrors.KindStaffNotAssigned, "staff member is not assigned to this event")
	}

	if ticket.Status != models.TicketStatusActive {
		return nil, apperrors.Newf(apperrors.KindTicketNotActive, "ticket is %s", ticket.Status)
	}

	now := s.now()
	switch req.Action {
	case models.ScanActionEntry:
		if now.Before(event.StartAt) || now.After(event.EndAt) {
			return nil, apperrors.New(apperrors.KindEventWindowClosed, "entry scans are only valid during the event window")
		}
		return s.entryScan(ctx, &ticket, staffID, now)

	case models.ScanActionExit:
		if now.After(event.EndAt) {
			return nil, apperrors.New(apperrors.KindEventWindowClosed, "event window has closed")
		}
		return s.exitScan(ctx, &ticket, staffID, now)

	default:
		return nil, apperrors.Newf(apperrors.KindValidation, "unknown scan action %q", req.Action)
	}
}

func (s *CheckInService) entryScan(ctx context.Context, ticket *models.Ticket, staffID int64, now time.Time) (*models.VerificationResult, error) {
	updated, err := s.tickets.RecordEntryScan(ctx, ticket.ID, staffID, now)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to record entry scan", err)
	}
	if updated == nil {
		// Status changed between the read and the guarded update.
		return nil, apperrors.New(apperrors.KindTicketNotActive, "ticket is no longer active")
	}

	isFirst := updated.ScanCount == 1
	s.publishScan(ctx, updated, staffID, models.ScanActionEntry, isFirst, now)
	metrics.ScansTotal.WithLabelValues(models.ScanActionEntry, firstLabel(isFirst)).Inc()

	return &models.VerificationResult{
		TicketID:     updated.ID,
		TicketNumber: updated.TicketNumber,
		EventID:      updated.EventID,
		AttendeeID:   updated.AttendeeID,
		Action:       models.ScanActionEntry,
		IsFirstScan:  isFirst,
		ScanCount:    updated.ScanCount,
		ScannedAt:    updated.ScannedAt,
		EntryTime:    updated.EntryTime,
		ExitTime:     updated.ExitTime,
	}, nil
}

func (s *CheckInService) exitScan(ctx context.Context, ticket *models.Ticket, staffID int64, now time.Time) (*models.VerificationResult, error) {
	if !ticket.IsScanned {
		return nil, apperrors.New(apperrors.KindNotCheckedIn, "ticket was never scanned for entry")
	}

	updated, err := s.tickets.RecordExitScan(ctx, ticket.ID, now)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to record exit scan", err)
	}
	if updated == nil {
		return nil, apperrors.New(apperrors.KindNotCheckedIn, "ticket has no recorded entry")
	}

	s.publishScan(ctx, updated, staffID, models.ScanActionExit, false, now)
	metrics.ScansTotal.WithLabelValues(models.ScanActionExit, firstLabel(false)).Inc()

	return &models.VerificationResult{
		TicketID:     updated.ID,
		TicketNumber: updated.TicketNumber,
		EventID:      updated.EventID,
		AttendeeID:   updated.AttendeeID,
		Action:       models.ScanActionExit,
		IsFirstScan:  false,
		ScanCount:    updated.ScanCount,
		ScannedAt:    updated.ScannedAt,
		EntryTime:    updated.EntryTime,
		ExitTime:     updated.ExitTime,
	}, nil
}

func (s *CheckInService) publishScan(ctx context.Context, ticket *models.Ticket, staffID int64, action string, isFirst bool, now time.Time) {
	event := models.TicketScannedEvent{
		TicketID:    ticket.ID,
		EventID:     ticket.EventID,
		StaffID:     staffID,
		Action:      action,
		IsFirstScan: isFirst,
		ScanCount:   ticket.ScanCount,
		Timestamp:   now,
	}
	if err := s.nats.Publish(models.EventTicketScanned, event); err != nil {
		logger.WithContext(ctx).Error("Failed to publish ticket scanned event",
			"error", err,
			"ticket_id", ticket.ID,
			"event_type", models.EventTicketScanned)
	}
}

// AuthorizeStaff verifies the event exists and the staff member is assigned
// to it. Shared by the attendance view and its cached fast path.
func (s *CheckInService) AuthorizeStaff(ctx context.Context, eventID, staffID int64) error {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to get event", err)
	}
	if event == nil {
		return apperrors.New(apperrors.KindNotFound, "event not found")
	}

	assigned, err := s.events.IsStaffAssigned(ctx, eventID, staffID)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to check staff assignment", err)
	}
	if !assigned {
		return apperrors.New(apperrors.KindStaffNotAssigned, "staff member is not assigned to this event")
	}

	return nil
}

// AttendanceSummary aggregates scan state over the event's active tickets.
// Requires the staff member to be assigned to the event.
func (s *CheckInService) AttendanceSummary(ctx context.Context, eventID, staffID int64) (*models.AttendanceSummary, error) {
	if err := s.AuthorizeStaff(ctx, eventID, staffID); err != nil {
		return nil, err
	}

	total, scanned, err := s.tickets.AttendanceCounts(ctx, eventID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to aggregate attendance", err)
	}

	return &models.AttendanceSummary{
		EventID:   eventID,
		Total:     total,
		Scanned:   scanned,
		Unscanned: total - scanned,
		Rate:      attendanceRate(scanned, total),
	}, nil
}

// attendanceRate is scanned/total rounded to 2 decimals, 0 for an empty
// event.
func attendanceRate(scanned, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(scanned)/float64(total)*100) / 100
}

func firstLabel(isFirst bool) string {
	if isFirst {
		return "true"
	}
	return "false"
}

package service

import (
	"context"
	"time"

	"tickmate/internal/external"
	"tickmate/internal/messaging"
	"tickmate/internal/models"
	"tickmate/internal/repository"

	"github.com/shopspring/decimal"
)

// EventStore is the slice of the event catalog the ledger and the check-in
// service depend on. AdjustTicketsSold must be atomic and conditional: it is
// the serialization point for the capacity invariant.
type EventStore interface {
	GetByID(ctx context.Context, id int64) (*models.Event, error)
	AdjustTicketsSold(ctx context.Context, id int64, delta int) (bool, error)
	IsStaffAssigned(ctx context.Context, eventID, staffID int64) (bool, error)
}

// TicketStore is the ledger's storage port. Create must enforce the
// one-non-cancelled-ticket-per-attendee constraint and ticket number/token
// uniqueness at the storage layer, reporting violations via the sentinels in
// the repository package.
type TicketStore interface {
	Create(ctx context.Context, ticket *models.Ticket) error
	GetByID(ctx context.Context, id int64) (*models.Ticket, error)
	FindByLookup(ctx context.Context, key string) ([]models.Ticket, error)
	HasActive(ctx context.Context, eventID, attendeeID int64) (bool, error)
	CancelActive(ctx context.Context, id int64, reason string, refundAmount decimal.Decimal, now time.Time) (bool, error)
	RecordEntryScan(ctx context.Context, id, staffID int64, now time.Time) (*models.Ticket, error)
	RecordExitScan(ctx context.Context, id int64, now time.Time) (*models.Ticket, error)
	AttendanceCounts(ctx context.Context, eventID int64) (total, scanned int, err error)
	ListByAttendee(ctx context.Context, attendeeID int64) ([]models.Ticket, error)
}

// Publisher decouples the services from the concrete NATS client.
type Publisher interface {
	Publish(subject string, data interface{}) error
}

type Services struct {
	Events    *EventService
	Ledger    *TicketLedger
	CheckIn   *CheckInService
	Reporting *ReportingService
}

func NewServices(repos *repository.Repositories, natsClient *messaging.NATSClient, gateway external.PaymentGateway) *Services {
	return &Services{
		Events:    NewEventService(repos.Events, repos.Users),
		Ledger:    NewTicketLedger(repos.Events, repos.Tickets, gateway, natsClient),
		CheckIn:   NewCheckInService(repos.Events, repos.Tickets, natsClient),
		Reporting: NewReportingService(repos.Events, repos.Tickets),
	}
}

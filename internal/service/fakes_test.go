package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tickmate/internal/external"
	"tickmate/internal/models"
	"tickmate/internal/repository"

	"github.com/shopspring/decimal"
)

// In-memory stores mirroring the guarded-update semantics of the SQL layer,
// so the concurrency properties can be exercised without a database.

type fakeEventStore struct {
	mu     sync.Mutex
	events map[int64]*models.Event
	staff  map[string]bool
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{
		events: make(map[int64]*models.Event),
		staff:  make(map[string]bool),
	}
}

func (f *fakeEventStore) put(event *models.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events[event.ID] = event
}

func (f *fakeEventStore) assign(eventID, staffID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.staff[staffKey(eventID, staffID)] = true
}

func staffKey(eventID, staffID int64) string {
	return fmt.Sprintf("%d:%d", eventID, staffID)
}

func (f *fakeEventStore) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return nil, nil
	}
	copied := *event
	return &copied, nil
}

func (f *fakeEventStore) AdjustTicketsSold(ctx context.Context, id int64, delta int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	event, ok := f.events[id]
	if !ok {
		return false, nil
	}
	switch delta {
	case +1:
		if event.TicketsSold >= event.Capacity {
			return false, nil
		}
	case -1:
		if event.TicketsSold <= 0 {
			return false, nil
		}
	}
	event.TicketsSold += delta
	return true, nil
}

func (f *fakeEventStore) IsStaffAssigned(ctx context.Context, eventID, staffID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.staff[staffKey(eventID, staffID)], nil
}

type fakeTicketStore struct {
	mu      sync.Mutex
	nextID  int64
	tickets map[int64]*models.Ticket
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{tickets: make(map[int64]*models.Ticket)}
}

func (f *fakeTicketStore) put(ticket *models.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ticket.ID == 0 {
		f.nextID++
		ticket.ID = f.nextID
	} else if ticket.ID > f.nextID {
		f.nextID = ticket.ID
	}
	f.tickets[ticket.ID] = ticket
}

func (f *fakeTicketStore) Create(ctx context.Context, ticket *models.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.tickets {
		if existing.EventID == ticket.EventID &&
			existing.AttendeeID == ticket.AttendeeID &&
			existing.Status != models.TicketStatusCancelled {
			return repository.ErrDuplicateActiveTicket
		}
		if existing.TicketNumber == ticket.TicketNumber {
			return repository.ErrTicketNumberTaken
		}
		if existing.VerificationToken == ticket.VerificationToken {
			return repository.ErrVerificationTokenTaken
		}
	}

	f.nextID++
	ticket.ID = f.nextID
	ticket.CreatedAt = time.Now()
	copied := *ticket
	f.tickets[ticket.ID] = &copied
	return nil
}

func (f *fakeTicketStore) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, nil
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketStore) FindByLookup(ctx context.Context, key string) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matches []models.Ticket
	for _, ticket := range f.tickets {
		if ticket.TicketNumber == key || ticket.VerificationToken == key {
			matches = append(matches, *ticket)
		}
	}
	return matches, nil
}

func (f *fakeTicketStore) HasActive(ctx context.Context, eventID, attendeeID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ticket := range f.tickets {
		if ticket.EventID == eventID && ticket.AttendeeID == attendeeID &&
			ticket.Status != models.TicketStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeTicketStore) CancelActive(ctx context.Context, id int64, reason string, refundAmount decimal.Decimal, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok || ticket.Status != models.TicketStatusActive {
		return false, nil
	}
	ticket.Status = models.TicketStatusCancelled
	ticket.IsCancelled = true
	ticket.CancelledAt = &now
	ticket.CancelReason = &reason
	ticket.RefundAmount = &refundAmount
	return true, nil
}

func (f *fakeTicketStore) RecordEntryScan(ctx context.Context, id, staffID int64, now time.Time) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok || ticket.Status != models.TicketStatusActive {
		return nil, nil
	}
	ticket.IsScanned = true
	if ticket.ScannedAt == nil {
		at := now
		ticket.ScannedAt = &at
		by := staffID
		ticket.ScannedBy = &by
		entry := now
		ticket.EntryTime = &entry
	}
	ticket.ScanCount++
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketStore) RecordExitScan(ctx context.Context, id int64, now time.Time) (*models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok || ticket.Status != models.TicketStatusActive || !ticket.IsScanned {
		return nil, nil
	}
	exit := now
	ticket.ExitTime = &exit
	copied := *ticket
	return &copied, nil
}

func (f *fakeTicketStore) AttendanceCounts(ctx context.Context, eventID int64) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total, scanned int
	for _, ticket := range f.tickets {
		if ticket.EventID != eventID || ticket.Status != models.TicketStatusActive {
			continue
		}
		total++
		if ticket.IsScanned {
			scanned++
		}
	}
	return total, scanned, nil
}

func (f *fakeTicketStore) ListByAttendee(ctx context.Context, attendeeID int64) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var tickets []models.Ticket
	for _, ticket := range f.tickets {
		if ticket.AttendeeID == attendeeID {
			tickets = append(tickets, *ticket)
		}
	}
	return tickets, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	subjects []string
	fail     bool
}

func (f *fakePublisher) Publish(subject string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("broker unavailable")
	}
	f.subjects = append(f.subjects, subject)
	return nil
}

func (f *fakePublisher) published(subject string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int
	for _, s := range f.subjects {
		if s == subject {
			count++
		}
	}
	return count
}

type fakeGateway struct {
	mu           sync.Mutex
	confirmation *external.PaymentConfirmation
	confirmErr   error
	confirmCalls int
	refunds      []string
	refundErr    error
}

func (f *fakeGateway) ConfirmPayment(ctx context.Context, paymentRef string) (*external.PaymentConfirmation, error) {
	f.mu.Lock()
	f.confirmCalls++
	f.mu.Unlock()
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	if f.confirmation != nil {
		return f.confirmation, nil
	}
	return &external.PaymentConfirmation{Confirmed: true, Amount: decimal.NewFromInt(100), Status: "completed"}, nil
}

func (f *fakeGateway) RequestRefund(ctx context.Context, paymentRef string, amount decimal.Decimal) (*external.RefundResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return nil, f.refundErr
	}
	f.refunds = append(f.refunds, paymentRef)
	return &external.RefundResult{Accepted: true}, nil
}

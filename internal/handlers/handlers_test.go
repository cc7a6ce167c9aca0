package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tickmate/internal/external"
	"tickmate/internal/identity"
	"tickmate/internal/models"
	"tickmate/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal in-memory stores backing the HTTP layer tests. Concurrency
// semantics are covered in the service package; here only the envelope and
// status mapping matter.

type stubEventStore struct {
	events map[int64]*models.Event
	staff  map[int64]map[int64]bool
}

func (s *stubEventStore) GetByID(ctx context.Context, id int64) (*models.Event, error) {
	event, ok := s.events[id]
	if !ok {
		return nil, nil
	}
	copied := *event
	return &copied, nil
}

func (s *stubEventStore) AdjustTicketsSold(ctx context.Context, id int64, delta int) (bool, error) {
	event, ok := s.events[id]
	if !ok {
		return false, nil
	}
	if delta == 1 && event.TicketsSold >= event.Capacity {
		return false, nil
	}
	if delta == -1 && event.TicketsSold <= 0 {
		return false, nil
	}
	event.TicketsSold += delta
	return true, nil
}

func (s *stubEventStore) IsStaffAssigned(ctx context.Context, eventID, staffID int64) (bool, error) {
	return s.staff[eventID][staffID], nil
}

type stubTicketStore struct {
	nextID  int64
	tickets map[int64]*models.Ticket
}

func (s *stubTicketStore) Create(ctx context.Context, ticket *models.Ticket) error {
	s.nextID++
	ticket.ID = s.nextID
	copied := *ticket
	s.tickets[ticket.ID] = &copied
	return nil
}

func (s *stubTicketStore) GetByID(ctx context.Context, id int64) (*models.Ticket, error) {
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, nil
	}
	copied := *ticket
	return &copied, nil
}

func (s *stubTicketStore) FindByLookup(ctx context.Context, key string) ([]models.Ticket, error) {
	var matches []models.Ticket
	for _, ticket := range s.tickets {
		if ticket.TicketNumber == key || ticket.VerificationToken == key {
			matches = append(matches, *ticket)
		}
	}
	return matches, nil
}

func (s *stubTicketStore) HasActive(ctx context.Context, eventID, attendeeID int64) (bool, error) {
	for _, ticket := range s.tickets {
		if ticket.EventID == eventID && ticket.AttendeeID == attendeeID &&
			ticket.Status != models.TicketStatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (s *stubTicketStore) CancelActive(ctx context.Context, id int64, reason string, refundAmount decimal.Decimal, now time.Time) (bool, error) {
	ticket, ok := s.tickets[id]
	if !ok || ticket.Status != models.TicketStatusActive {
		return false, nil
	}
	ticket.Status = models.TicketStatusCancelled
	return true, nil
}

func (s *stubTicketStore) RecordEntryScan(ctx context.Context, id, staffID int64, now time.Time) (*models.Ticket, error) {
	ticket, ok := s.tickets[id]
	if !ok || ticket.Status != models.TicketStatusActive {
		return nil, nil
	}
	ticket.IsScanned = true
	if ticket.EntryTime == nil {
		entry := now
		ticket.EntryTime = &entry
		ticket.ScannedAt = &entry
	}
	ticket.ScanCount++
	copied := *ticket
	return &copied, nil
}

func (s *stubTicketStore) RecordExitScan(ctx context.Context, id int64, now time.Time) (*models.Ticket, error) {
	ticket, ok := s.tickets[id]
	if !ok || !ticket.IsScanned {
		return nil, nil
	}
	exit := now
	ticket.ExitTime = &exit
	copied := *ticket
	return &copied, nil
}

func (s *stubTicketStore) AttendanceCounts(ctx context.Context, eventID int64) (int, int, error) {
	var total, scanned int
	for _, ticket := range s.tickets {
		if ticket.EventID == eventID && ticket.Status == models.TicketStatusActive {
			total++
			if ticket.IsScanned {
				scanned++
			}
		}
	}
	return total, scanned, nil
}

func (s *stubTicketStore) ListByAttendee(ctx context.Context, attendeeID int64) ([]models.Ticket, error) {
	var tickets []models.Ticket
	for _, ticket := range s.tickets {
		if ticket.AttendeeID == attendeeID {
			tickets = append(tickets, *ticket)
		}
	}
	return tickets, nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(subject string, data interface{}) error { return nil }

type stubGateway struct{}

func (stubGateway) ConfirmPayment(ctx context.Context, paymentRef string) (*external.PaymentConfirmation, error) {
	return &external.PaymentConfirmation{Confirmed: true, Amount: decimal.NewFromInt(100)}, nil
}

func (stubGateway) RequestRefund(ctx context.Context, paymentRef string, amount decimal.Decimal) (*external.RefundResult, error) {
	return &external.RefundResult{Accepted: true}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

type fixture struct {
	router  *gin.Engine
	events  *stubEventStore
	tickets *stubTicketStore
}

// setupRouter builds the ticket and scan routes over in-memory stores with a
// middleware that injects the given principal, bypassing token validation.
func setupRouter(principal *identity.Principal) *fixture {
	gin.SetMode(gin.TestMode)

	now := time.Now()
	events := &stubEventStore{
		events: map[int64]*models.Event{
			1: {
				ID: 1, HostID: 10, Capacity: 2,
				StartAt: now.Add(-time.Hour), EndAt: now.Add(3 * time.Hour),
				Status: models.EventStatusPublished, IsFree: true, Price: decimal.Zero,
			},
			2: {
				ID: 2, HostID: 10, Capacity: 5,
				StartAt: now.Add(72 * time.Hour), EndAt: now.Add(76 * time.Hour),
				Status: models.EventStatusPublished, IsFree: true, Price: decimal.Zero,
			},
		},
		staff: map[int64]map[int64]bool{1: {7: true}},
	}
	tickets := &stubTicketStore{tickets: map[int64]*models.Ticket{}}

	services := &service.Services{
		Ledger:  service.NewTicketLedger(events, tickets, stubGateway{}, stubPublisher{}),
		CheckIn: service.NewCheckInService(events, tickets, stubPublisher{}),
	}
	h := NewHandlers(services, nil, nil)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set("principal", principal)
		c.Next()
	})

	api := router.Group("/api")
	{
		api.POST("/tickets", h.IssueTicket)
		api.GET("/tickets", h.ListMyTickets)
		api.DELETE("/tickets/:id", h.CancelTicket)
		api.POST("/scans", h.Scan)
		api.GET("/events/:id/attendance", h.Attendance)
	}

	return &fixture{router: router, events: events, tickets: tickets}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestIssueTicket(t *testing.T) {
	f := setupRouter(&identity.Principal{ID: 42, Role: models.RoleAttendee})

	w, env := doJSON(t, f.router, "POST", "/api/tickets", models.IssueTicketRequest{EventID: 2})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)

	var resp models.IssueTicketResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, int64(2), resp.EventID)
	assert.NotEmpty(t, resp.TicketNumber)
	assert.Equal(t, models.TicketStatusActive, resp.Status)
}

func TestIssueTicket_ValidationError(t *testing.T) {
	f := setupRouter(&identity.Principal{ID: 42, Role: models.RoleAttendee})

	w, env := doJSON(t, f.router, "POST", "/api/tickets", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION", env.Error.Kind)
}

func TestIssueTicket_SoldOutMapsToConflict(t *testing.T) {
	f := setupRouter(&identity.Principal{ID: 42, Role: models.RoleAttendee})
	f.events.events[2].TicketsSold = 5

	w, env := doJSON(t, f.router, "POST", "/api/tickets", models.IssueTicketRequest{EventID: 2})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CAPACITY_EXCEEDED", env.Error.Kind)
}

func TestCancelTicket(t *testing.T) {
	f := setupRouter(&identity.Principal{ID: 42, Role: models.RoleAttendee})

	_, issued := doJSON(t, f.router, "POST", "/api/tickets", models.IssueTicketRequest{EventID: 2})
	var ticket models.IssueTicketResponse
	require.NoError(t, json.Unmarshal(issued.Data, &ticket))

	w, env := doJSON(t, f.router, "DELETE", "/api/tickets/1", models.CancelTicketRequest{Reason: "plans changed"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
}

func TestCancelTicket_NotFound(t *testing.T) {
	f := setupRouter(&identity.Principal{ID: 42, Role: models.RoleAttendee})

	w, env := doJSON(t, f.router, "DELETE", "/api/tickets/99", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Kind)
}

func TestScan_EntryFlow(t *testing.T) {
	f := setupRouter(&identity.Principal{ID: 7, Role: models.RoleStaff})
	f.tickets.tickets[1] = &models.Ticket{
		ID: 1, EventID: 1, AttendeeID: 42,
		TicketNumber: "TKT-TEST000001", VerificationToken: "tok-1",
		Status: models.TicketStatusActive,
	}
	f.tickets.nextID = 1

	w, env := doJSON(t, f.router, "POST", "/api/scans", models.ScanRequest{
		LookupKey: "TKT-TEST000001",
		Action:    models.ScanActionEntry,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var result models.VerificationResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.IsFirstScan)
	assert.Equal(t, 1, result.ScanCount)
}

func TestScan_ExitBeforeEntryMapsTo422(t *testing.T) {
	f := setupRouter(&identity.Principal{ID: 7, Role: models.RoleStaff})
	f.tickets.tickets[1] = &models.Ticket{
		ID: 1, EventID: 1, AttendeeID: 42,
		TicketNumber: "TKT-TEST000001", VerificationToken: "tok-1",
		Status: models.TicketStatusActive,
	}

	w, env := doJSON(t, f.router, "POST", "/api/scans", models.ScanRequest{
		LookupKey: "TKT-TEST000001",
		Action:    models.ScanActionExit,
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "NOT_CHECKED_IN", env.Error.Kind)
}

func TestScan_UnassignedStaffMapsTo403(t *testing.T) {
	f := setupRouter(&identity.Principal{ID: 99, Role: models.RoleStaff})
	f.tickets.tickets[1] = &models.Ticket{
		ID: 1, EventID: 1, AttendeeID: 42,
		TicketNumber: "TKT-TEST000001", VerificationToken: "tok-1",
		Status: models.TicketStatusActive,
	}

	w, env := doJSON(t, f.router, "POST", "/api/scans", models.ScanRequest{
		LookupKey: "TKT-TEST000001",
		Action:    models.ScanActionEntry,
	})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "STAFF_NOT_ASSIGNED", env.Error.Kind)
}

func TestAttendance(t *testing.T) {
	f := setupRouter(&identity.Principal{ID: 7, Role: models.RoleStaff})
	f.tickets.tickets[1] = &models.Ticket{
		ID: 1, EventID: 1, AttendeeID: 42,
		TicketNumber: "TKT-TEST000001", VerificationToken: "tok-1",
		Status: models.TicketStatusActive, IsScanned: true,
	}
	f.tickets.tickets[2] = &models.Ticket{
		ID: 2, EventID: 1, AttendeeID: 43,
		TicketNumber: "TKT-TEST000002", VerificationToken: "tok-2",
		Status: models.TicketStatusActive,
	}

	w, env := doJSON(t, f.router, "GET", "/api/events/1/attendance", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var summary models.AttendanceSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Scanned)
	assert.InDelta(t, 0.5, summary.Rate, 0.001)
}

func TestListMyTickets(t *testing.T) {
	f := setupRouter(&identity.Principal{ID: 42, Role: models.RoleAttendee})

	_, _ = doJSON(t, f.router, "POST", "/api/tickets", models.IssueTicketRequest{EventID: 2})

	w, env := doJSON(t, f.router, "GET", "/api/tickets", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var tickets []models.Ticket
	require.NoError(t, json.Unmarshal(env.Data, &tickets))
	assert.Len(t, tickets, 1)
}

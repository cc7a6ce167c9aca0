package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Auth

// RegisterRequest - payload for POST /auth/register
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	Surname   string `json:"surname" binding:"required"`
	Role      string `json:"role" binding:"required,oneof=host attendee staff"`
}

// LoginRequest - payload for POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse carries the bearer token the client presents on API calls.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
}

// Events

// CreateEventRequest - payload for POST /api/events. Pricing arrives as a
// typed object; boundary normalization happens here, never in the services.
type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description *string   `json:"description"`
	Capacity    int       `json:"capacity" binding:"required,min=1"`
	StartAt     time.Time `json:"start_at" binding:"required"`
	EndAt       time.Time `json:"end_at" binding:"required"`
	Pricing     Pricing   `json:"pricing"`
}

// Pricing is the single typed input contract for event pricing.
type Pricing struct {
	IsFree bool            `json:"is_free"`
	Price  decimal.Decimal `json:"price"`
}

// CreateEventResponse - response for POST /api/events
type CreateEventResponse struct {
	ID int64 `json:"id"`
}

// AssignStaffRequest - payload for POST /api/events/:id/staff
type AssignStaffRequest struct {
	StaffID int64 `json:"staff_id" binding:"required"`
}

// ListEventsResponseItem - element of GET /api/events
type ListEventsResponseItem struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Capacity    int       `json:"capacity"`
	TicketsSold int       `json:"tickets_sold"`
	StartAt     time.Time `json:"start_at"`
	EndAt       time.Time `json:"end_at"`
	Status      string    `json:"status"`
	IsFree      bool      `json:"is_free"`
}

// Tickets

// IssueTicketRequest - payload for POST /api/tickets. PaymentRef is the
// confirmation reference obtained from the payment gateway; required for
// paid events, ignored for free ones.
type IssueTicketRequest struct {
	EventID    int64   `json:"event_id" binding:"required"`
	PaymentRef *string `json:"payment_ref"`
}

// IssueTicketResponse - response for POST /api/tickets
type IssueTicketResponse struct {
	ID                int64           `json:"id"`
	EventID           int64           `json:"event_id"`
	TicketNumber      string          `json:"ticket_number"`
	VerificationToken string          `json:"verification_token"`
	PricePaid         decimal.Decimal `json:"price_paid"`
	Status            string          `json:"status"`
}

// CancelTicketRequest - payload for DELETE /api/tickets/:id
type CancelTicketRequest struct {
	Reason string `json:"reason"`
}

// CancelTicketResponse - response for DELETE /api/tickets/:id
type CancelTicketResponse struct {
	RefundAmount decimal.Decimal `json:"refund_amount"`
}

// Scans

// ScanRequest - payload for POST /api/scans. LookupKey resolves a ticket by
// ticket number or verification token; EventID is an optional cross-check.
type ScanRequest struct {
	LookupKey string `json:"lookup_key" binding:"required"`
	EventID   *int64 `json:"event_id"`
	Action    string `json:"action" binding:"required,oneof=entry exit"`
}

// VerificationResult - response for POST /api/scans
type VerificationResult struct {
	TicketID     int64      `json:"ticket_id"`
	TicketNumber string     `json:"ticket_number"`
	EventID      int64      `json:"event_id"`
	AttendeeID   int64      `json:"attendee_id"`
	Action       string     `json:"action"`
	IsFirstScan  bool       `json:"is_first_scan"`
	ScanCount    int        `json:"scan_count"`
	ScannedAt    *time.Time `json:"scanned_at,omitempty"`
	EntryTime    *time.Time `json:"entry_time,omitempty"`
	ExitTime     *time.Time `json:"exit_time,omitempty"`
}

// AttendanceSummary - response for GET /api/events/:id/attendance
type AttendanceSummary struct {
	EventID   int64   `json:"event_id"`
	Total     int     `json:"total"`
	Scanned   int     `json:"scanned"`
	Unscanned int     `json:"unscanned"`
	Rate      float64 `json:"rate"`
}

// Reporting

// TicketFilter - query surface exposed to reporting over ticket records.
type TicketFilter struct {
	EventID    *int64
	AttendeeID *int64
	Status     *string
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}

// ScanHistogramBucket - one hour of entry scans for an event.
type ScanHistogramBucket struct {
	Hour  time.Time `json:"hour"`
	Scans int       `json:"scans"`
}

// EventAnalytics - per-event aggregation for hosts.
type EventAnalytics struct {
	EventID          int64           `json:"event_id"`
	Capacity         int             `json:"capacity"`
	TicketsSold      int             `json:"tickets_sold"`
	TicketsCancelled int             `json:"tickets_cancelled"`
	TicketsScanned   int             `json:"tickets_scanned"`
	Revenue          decimal.Decimal `json:"revenue"`
	Refunded         decimal.Decimal `json:"refunded"`
	AttendanceRate   float64         `json:"attendance_rate"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Roles a principal can hold. Stored on the user record and carried in the
// bearer token.
const (
	RoleHost     = "host"
	RoleAttendee = "attendee"
	RoleStaff    = "staff"
)

// Event statuses.
const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusCancelled = "cancelled"
	EventStatusCompleted = "completed"
)

// Ticket statuses. Entry scans never flip the status: scan state and status
// are intentionally decoupled. "expired" is applied by the expiration sweep
// once an event completes with the ticket never scanned.
const (
	TicketStatusActive    = "active"
	TicketStatusCancelled = "cancelled"
	TicketStatusUsed      = "used"
	TicketStatusExpired   = "expired"
)

// Payment statuses on a ticket.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// Scan actions.
const (
	ScanActionEntry = "entry"
	ScanActionExit  = "exit"
)

// User represents a principal in the system
type User struct {
	UserID       int64     `json:"user_id" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"first_name" db:"first_name"`
	Surname      string    `json:"surname" db:"surname"`
	Role         string    `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

// Event represents a bookable event. TicketsSold is mutated only through
// EventRepository.AdjustTicketsSold; the schema enforces
// 0 <= tickets_sold <= capacity.
type Event struct {
	ID          int64           `json:"id" db:"id"`
	Title       string          `json:"title" db:"title"`
	Description *string         `json:"description" db:"description"`
	HostID      int64           `json:"host_id" db:"host_id"`
	Capacity    int             `json:"capacity" db:"capacity"`
	TicketsSold int             `json:"tickets_sold" db:"tickets_sold"`
	StartAt     time.Time       `json:"start_at" db:"start_at"`
	EndAt       time.Time       `json:"end_at" db:"end_at"`
	Status      string          `json:"status" db:"status"`
	IsFree      bool            `json:"is_free" db:"is_free"`
	Price       decimal.Decimal `json:"price" db:"price"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// Ticket represents an issued ticket. At most one non-cancelled ticket may
// exist per (event, attendee) pair; the partial unique index in the schema
// closes the race the application-level check leaves open.
type Ticket struct {
	ID                int64           `json:"id" db:"id"`
	EventID           int64           `json:"event_id" db:"event_id"`
	AttendeeID        int64           `json:"attendee_id" db:"attendee_id"`
	TicketNumber      string          `json:"ticket_number" db:"ticket_number"`
	VerificationToken string          `json:"verification_token" db:"verification_token"`
	PricePaid         decimal.Decimal `json:"price_paid" db:"price_paid"`
	PaymentStatus     string          `json:"payment_status" db:"payment_status"`
	PaymentRef        *string         `json:"payment_ref,omitempty" db:"payment_ref"`
	Status            string          `json:"status" db:"status"`

	// Verification state.
	IsScanned bool       `json:"is_scanned" db:"is_scanned"`
	ScannedAt *time.Time `json:"scanned_at,omitempty" db:"scanned_at"`
	ScannedBy *int64     `json:"scanned_by,omitempty" db:"scanned_by"`
	EntryTime *time.Time `json:"entry_time,omitempty" db:"entry_time"`
	ExitTime  *time.Time `json:"exit_time,omitempty" db:"exit_time"`
	ScanCount int        `json:"scan_count" db:"scan_count"`

	// Cancellation record.
	IsCancelled  bool             `json:"is_cancelled" db:"is_cancelled"`
	CancelledAt  *time.Time       `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CancelReason *string          `json:"cancel_reason,omitempty" db:"cancel_reason"`
	RefundAmount *decimal.Decimal `json:"refund_amount,omitempty" db:"refund_amount"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EventStaff represents a staff assignment for an event. Scans are
// authorized against this table, not against the role alone.
type EventStaff struct {
	EventID    int64     `json:"event_id" db:"event_id"`
	StaffID    int64     `json:"staff_id" db:"staff_id"`
	AssignedAt time.Time `json:"assigned_at" db:"assigned_at"`
}

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// NATS Event Types
const (
	EventTicketIssued    = "ticket.issued"
	EventTicketCancelled = "ticket.cancelled"
	EventTicketScanned   = "ticket.scanned"
	EventRefundRequested = "refund.requested"
)

// TicketIssuedEvent represents a ticket issuance event
type TicketIssuedEvent struct {
	TicketID     int64           `json:"ticket_id"`
	EventID      int64           `json:"event_id"`
	AttendeeID   int64           `json:"attendee_id"`
	TicketNumber string          `json:"ticket_number"`
	PricePaid    decimal.Decimal `json:"price_paid"`
	Timestamp    time.Time       `json:"timestamp"`
}

// TicketCancelledEvent represents a ticket cancellation event
type TicketCancelledEvent struct {
	TicketID     int64           `json:"ticket_id"`
	EventID      int64           `json:"event_id"`
	AttendeeID   int64           `json:"attendee_id"`
	Reason       string          `json:"reason"`
	RefundAmount decimal.Decimal `json:"refund_amount"`
	Timestamp    time.Time       `json:"timestamp"`
}

// TicketScannedEvent represents an entry or exit scan event
type TicketScannedEvent struct {
	TicketID    int64     `json:"ticket_id"`
	EventID     int64     `json:"event_id"`
	StaffID     int64     `json:"staff_id"`
	Action      string    `json:"action"`
	IsFirstScan bool      `json:"is_first_scan"`
	ScanCount   int       `json:"scan_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// RefundRequestedEvent asks the refund consumer to settle a refund with the
// payment gateway. PaymentRef is the idempotency key: replaying the event
// must not double-refund.
type RefundRequestedEvent struct {
	TicketID   int64           `json:"ticket_id"`
	PaymentRef string          `json:"payment_ref"`
	Amount     decimal.Decimal `json:"amount"`
	Timestamp  time.Time       `json:"timestamp"`
}

package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	apperrors "tickmate/internal/errors"
	"tickmate/internal/external"
	"tickmate/internal/logger"
	"tickmate/internal/metrics"
	"tickmate/internal/models"
	"tickmate/internal/repository"

	"github.com/shopspring/decimal"
)

// CancelWindow is the minimum lead time before event start for an
// attendee-initiated cancellation. Exactly 24h is still allowed.
const CancelWindow = 24 * time.Hour

// tokenRetries bounds regeneration attempts after a ticket number or
// verification token collision.
const tokenRetries = 3

// TicketLedger owns ticket creation, uniqueness and cancellation.
type TicketLedger struct {
	events  EventStore
	tickets TicketStore
	gateway external.PaymentGateway
	nats    Publisher

	now func() time.Time
}

func NewTicketLedger(events EventStore, tickets TicketStore, gateway external.PaymentGateway, nats Publisher) *TicketLedger {
	return &TicketLedger{
		events:  events,
		tickets: tickets,
		gateway: gateway,
		nats:    nats,
		now:     time.Now,
	}
}

// Issue books a ticket for an attendee. For paid events a confirmed payment
// reference is required before anything is written. The capacity check and
// the counter increment are one atomic unit inside AdjustTicketsSold, and
// the (event, attendee) uniqueness is enforced by the storage layer, so
// concurrent bookings settle correctly without an application-level lock.
func (s *TicketLedger) Issue(ctx context.Context, attendeeID int64, req *models.IssueTicketRequest) (*models.Ticket, error) {
	event, err := s.events.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, s.issueFailure(apperrors.Wrap(apperrors.KindInternal, "failed to get event", err))
	}
	if event == nil {
		return nil, s.issueFailure(apperrors.New(apperrors.KindNotFound, "event not found"))
	}

	if event.Status != models.EventStatusPublished {
		return nil, s.issueFailure(apperrors.Newf(apperrors.KindEventNotBookable, "event is %s", event.Status))
	}
	if !s.now().Before(event.StartAt) {
		return nil, s.issueFailure(apperrors.New(apperrors.KindEventNotBookable, "event has already started"))
	}

	// Snapshot capacity check so a sold-out event is rejected before the
	// payment gateway is consulted. AdjustTicketsSold below remains the
	// authoritative guard.
	if event.TicketsSold >= event.Capacity {
		return nil, s.issueFailure(apperrors.New(apperrors.KindCapacityExceeded, "event is sold out"))
	}

	// Early duplicate check. The partial unique index closes the race this
	// check leaves open.
	exists, err := s.tickets.HasActive(ctx, event.ID, attendeeID)
	if err != nil {
		return nil, s.issueFailure(apperrors.Wrap(apperrors.KindInternal, "failed to check existing tickets", err))
	}
	if exists {
		return nil, s.issueFailure(apperrors.New(apperrors.KindDuplicateBooking, "attendee already holds a ticket for this event"))
	}

	pricePaid := decimal.Zero
	var paymentRef *string
	if !event.IsFree {
		amount, err := s.confirmPayment(ctx, event, req.PaymentRef)
		if err != nil {
			return nil, s.issueFailure(err)
		}
		pricePaid = amount
		paymentRef = req.PaymentRef
	}

	// Reserve the seat. From here on every failure path must release it.
	ok, err := s.events.AdjustTicketsSold(ctx, event.ID, +1)
	if err != nil {
		return nil, s.issueFailure(apperrors.Wrap(apperrors.KindInternal, "failed to reserve capacity", err))
	}
	if !ok {
		return nil, s.issueFailure(apperrors.New(apperrors.KindCapacityExceeded, "event is sold out"))
	}

	ticket, err := s.createWithRetry(ctx, event.ID, attendeeID, pricePaid, paymentRef)
	if err != nil {
		s.releaseCapacity(ctx, event.ID)
		return nil, s.issueFailure(err)
	}

	metrics.TicketsIssuedTotal.Inc()

	issued := models.TicketIssuedEvent{
		TicketID:     ticket.ID,
		EventID:      ticket.EventID,
		AttendeeID:   ticket.AttendeeID,
		TicketNumber: ticket.TicketNumber,
		PricePaid:    ticket.PricePaid,
		Timestamp:    s.now(),
	}
	if err := s.nats.Publish(models.EventTicketIssued, issued); err != nil {
		logger.WithContext(ctx).Error("Failed to publish ticket issued event",
			"error", err,
			"ticket_id", ticket.ID,
			"event_type", models.EventTicketIssued)
	}

	return ticket, nil
}

// confirmPayment settles the payment precondition for paid events. A
// gateway timeout is not a verdict: it surfaces as a retryable
// PaymentPending, never as a silent failure.
func (s *TicketLedger) confirmPayment(ctx context.Context, event *models.Event, paymentRef *string) (decimal.Decimal, error) {
	if paymentRef == nil || *paymentRef == "" {
		return decimal.Zero, apperrors.New(apperrors.KindPaymentRequired, "payment reference required for paid event")
	}

	conf, err := s.gateway.ConfirmPayment(ctx, *paymentRef)
	if err != nil {
		if external.IsTimeout(err) {
			return decimal.Zero, apperrors.Wrap(apperrors.KindPaymentPending, "payment confirmation timed out, retry later", err)
		}
		return decimal.Zero, apperrors.Wrap(apperrors.KindInternal, "payment gateway error", err)
	}
	if !conf.Confirmed {
		return decimal.Zero, apperrors.New(apperrors.KindPaymentNotConfirmed, "payment not confirmed")
	}
	if conf.Amount.LessThan(event.Price) {
		return decimal.Zero, apperrors.New(apperrors.KindPaymentNotConfirmed, "payment amount does not cover ticket price")
	}

	return conf.Amount, nil
}

// createWithRetry inserts the ticket, regenerating the ticket number and
// verification token on collision. Collisions are fail-and-retry, not
// fatal; a duplicate-attendee conflict is final.
func (s *TicketLedger) createWithRetry(ctx context.Context, eventID, attendeeID int64, pricePaid decimal.Decimal, paymentRef *string) (*models.Ticket, error) {
	for attempt := 0; attempt < tokenRetries; attempt++ {
		number, err := newTicketNumber()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, "failed to generate ticket number", err)
		}
		token, err := newVerificationToken()
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindInternal, "failed to generate verification token", err)
		}

		ticket := &models.Ticket{
			EventID:           eventID,
			AttendeeID:        attendeeID,
			TicketNumber:      number,
			VerificationToken: token,
			PricePaid:         pricePaid,
			PaymentStatus:     models.PaymentStatusCompleted,
			PaymentRef:        paymentRef,
			Status:            models.TicketStatusActive,
		}

		err = s.tickets.Create(ctx, ticket)
		switch err {
		case nil:
			return ticket, nil
		case repository.ErrDuplicateActiveTicket:
			return nil, apperrors.New(apperrors.KindDuplicateBooking, "attendee already holds a ticket for this event")
		case repository.ErrTicketNumberTaken, repository.ErrVerificationTokenTaken:
			logger.WithContext(ctx).Warn("Ticket identifier collision, retrying",
				"attempt", attempt+1, "event_id", eventID)
			continue
		default:
			return nil, apperrors.Wrap(apperrors.KindInternal, "failed to create ticket", err)
		}
	}

	return nil, apperrors.New(apperrors.KindInternal, "could not generate a unique ticket identifier")
}

// Cancel cancels an attendee's own active ticket and frees its seat.
// Refund settlement is asynchronous and best-effort: a refund failure is
// logged and retried by the consumer, never rolled back into the
// cancellation.
func (s *TicketLedger) Cancel(ctx context.Context, ticketID, attendeeID int64, reason string) (decimal.Decimal, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.KindInternal, "failed to get ticket", err)
	}
	if ticket == nil {
		return decimal.Zero, apperrors.New(apperrors.KindNotFound, "ticket not found")
	}
	if ticket.AttendeeID != attendeeID {
		return decimal.Zero, apperrors.New(apperrors.KindNotOwner, "ticket belongs to another attendee")
	}
	if ticket.Status != models.TicketStatusActive {
		return decimal.Zero, apperrors.Newf(apperrors.KindNotCancellable, "ticket is %s", ticket.Status)
	}

	event, err := s.events.GetByID(ctx, ticket.EventID)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.KindInternal, "failed to get event", err)
	}
	if event == nil {
		return decimal.Zero, apperrors.New(apperrors.KindInconsistentState, "ticket references a missing event")
	}

	now := s.now()
	if event.StartAt.Sub(now) < CancelWindow {
		return decimal.Zero, apperrors.New(apperrors.KindNotCancellable, "cancellation window closed (less than 24h before start)")
	}

	refundAmount := ticket.PricePaid
	ok, err := s.tickets.CancelActive(ctx, ticket.ID, reason, refundAmount, now)
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.KindInternal, "failed to cancel ticket", err)
	}
	if !ok {
		// Lost a race with another cancel or the expiration sweep.
		return decimal.Zero, apperrors.New(apperrors.KindNotCancellable, "ticket is no longer active")
	}

	if _, err := s.events.AdjustTicketsSold(ctx, event.ID, -1); err != nil {
		logger.WithContext(ctx).Error("Failed to release capacity after cancellation",
			"error", err,
			"event_id", event.ID,
			"ticket_id", ticket.ID)
	}

	metrics.TicketsCancelledTotal.Inc()

	if refundAmount.IsPositive() && ticket.PaymentRef != nil {
		refund := models.RefundRequestedEvent{
			TicketID:   ticket.ID,
			PaymentRef: *ticket.PaymentRef,
			Amount:     refundAmount,
			Timestamp:  now,
		}
		if err := s.nats.Publish(models.EventRefundRequested, refund); err != nil {
			logger.WithContext(ctx).Error("Failed to publish refund request, attempting direct refund",
				"error", err,
				"ticket_id", ticket.ID)
			s.directRefund(ctx, *ticket.PaymentRef, refundAmount)
		}
	}

	cancelled := models.TicketCancelledEvent{
		TicketID:     ticket.ID,
		EventID:      ticket.EventID,
		AttendeeID:   ticket.AttendeeID,
		Reason:       reason,
		RefundAmount: refundAmount,
		Timestamp:    now,
	}
	if err := s.nats.Publish(models.EventTicketCancelled, cancelled); err != nil {
		logger.WithContext(ctx).Error("Failed to publish ticket cancelled event",
			"error", err,
			"ticket_id", ticket.ID,
			"event_type", models.EventTicketCancelled)
	}

	return refundAmount, nil
}

// ListForAttendee returns the attendee's own tickets, newest first.
func (s *TicketLedger) ListForAttendee(ctx context.Context, attendeeID int64) ([]models.Ticket, error) {
	tickets, err := s.tickets.ListByAttendee(ctx, attendeeID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, "failed to list tickets", err)
	}
	return tickets, nil
}

// directRefund is the fallback when the refund queue is unavailable.
// RequestRefund is idempotent on the payment reference, so overlap with a
// later queued retry is harmless.
func (s *TicketLedger) directRefund(ctx context.Context, paymentRef string, amount decimal.Decimal) {
	res, err := s.gateway.RequestRefund(ctx, paymentRef, amount)
	if err != nil {
		logger.WithContext(ctx).Error("Direct refund failed",
			"error", err,
			"payment_ref", paymentRef)
		return
	}
	if !res.Accepted {
		logger.WithContext(ctx).Error("Direct refund not accepted",
			"payment_ref", paymentRef)
	}
}

func (s *TicketLedger) releaseCapacity(ctx context.Context, eventID int64) {
	if _, err := s.events.AdjustTicketsSold(ctx, eventID, -1); err != nil {
		logger.WithContext(ctx).Error("Failed to release reserved capacity",
			"error", err,
			"event_id", eventID)
	}
}

func (s *TicketLedger) issueFailure(err error) error {
	metrics.IssueFailuresTotal.WithLabelValues(string(apperrors.KindOf(err))).Inc()
	return err
}

func newTicketNumber() (string, error) {
	b := make([]byte, 5)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return fmt.Sprintf("TKT-%s", strings.ToUpper(hex.EncodeToString(b))), nil
}

func newVerificationToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

package consumers

import (
	"context"
	"encoding/json"
	"time"

	"tickmate/internal/logger"
	"tickmate/internal/metrics"
	"tickmate/internal/models"

	"github.com/nats-io/stan.go"
)

const refundTimeout = 15 * time.Second

// handleRefundRequested settles one refund against the payment gateway. On
// failure the message is deliberately not acked; the broker redelivers it
// after AckWait. RequestRefund is idempotent on the payment reference, so a
// redelivery after a crash between refund and ack is harmless.
func (s *Service) handleRefundRequested(msg *stan.Msg) {
	var event models.RefundRequestedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Get().Error("Failed to unmarshal refund request", "error", err)
		// Poison message, drop it.
		s.ack(msg)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), refundTimeout)
	defer cancel()

	res, err := s.gateway.RequestRefund(ctx, event.PaymentRef, event.Amount)
	if err != nil {
		metrics.RefundRetriesTotal.Inc()
		logger.Get().Error("Refund failed, leaving for redelivery",
			"error", err,
			"ticket_id", event.TicketID,
			"payment_ref", event.PaymentRef,
			"redelivered", msg.Redelivered)
		return
	}
	if !res.Accepted {
		metrics.RefundRetriesTotal.Inc()
		logger.Get().Error("Refund not accepted, leaving for redelivery",
			"ticket_id", event.TicketID,
			"payment_ref", event.PaymentRef)
		return
	}

	if err := s.tickets.MarkRefunded(ctx, event.TicketID); err != nil {
		logger.Get().Error("Refund settled but ticket not marked",
			"error", err,
			"ticket_id", event.TicketID)
		// Redelivery re-runs the idempotent refund and retries the mark.
		return
	}

	logger.Get().Info("Refund settled",
		"ticket_id", event.TicketID,
		"amount", event.Amount.String())
	s.ack(msg)
}

// handleLifecycleEvent writes an audit log line for each ticket lifecycle
// event.
func (s *Service) handleLifecycleEvent(msg *stan.Msg) {
	var raw map[string]interface{}
	if err := json.Unmarshal(msg.Data, &raw); err != nil {
		logger.Get().Error("Failed to unmarshal lifecycle event",
			"error", err, "subject", msg.Subject)
		return
	}

	logger.Get().Info("Ticket lifecycle event",
		"subject", msg.Subject,
		"payload", raw)
}

func (s *Service) ack(msg *stan.Msg) {
	if err := msg.Ack(); err != nil {
		logger.Get().Error("Failed to ack message", "error", err, "subject", msg.Subject)
	}
}

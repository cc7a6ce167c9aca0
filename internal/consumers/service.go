package consumers

import (
	"tickmate/internal/external"
	"tickmate/internal/logger"
	"tickmate/internal/messaging"
	"tickmate/internal/models"
	"tickmate/internal/repository"

	"github.com/nats-io/stan.go"
)

const refundQueue = "refund-workers"

// Service runs the background consumers: the refund worker and the ticket
// lifecycle audit log.
type Service struct {
	nats    *messaging.NATSClient
	gateway external.PaymentGateway
	tickets *repository.TicketRepository

	subs []stan.Subscription
}

func NewService(nats *messaging.NATSClient, gateway external.PaymentGateway, tickets *repository.TicketRepository) *Service {
	return &Service{
		nats:    nats,
		gateway: gateway,
		tickets: tickets,
	}
}

// Start subscribes all consumers. Refund processing joins a queue group with
// manual acks so a failed refund is redelivered instead of lost.
func (s *Service) Start() error {
	sub, err := s.nats.SubscribeQueue(models.EventRefundRequested, refundQueue, s.handleRefundRequested)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)

	for _, subject := range []string{
		models.EventTicketIssued,
		models.EventTicketCancelled,
		models.EventTicketScanned,
	} {
		sub, err := s.nats.Subscribe(subject, s.handleLifecycleEvent)
		if err != nil {
			return err
		}
		s.subs = append(s.subs, sub)
	}

	logger.Get().Info("Consumers started")
	return nil
}

func (s *Service) Stop() {
	for _, sub := range s.subs {
		if err := sub.Close(); err != nil {
			logger.Get().Error("Failed to close subscription", "error", err)
		}
	}
}

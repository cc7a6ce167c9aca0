package jobs

import (
	"context"
	"time"

	"tickmate/internal/logger"
	"tickmate/internal/repository"
)

const sweepInterval = time.Minute

// ExpirationSweep periodically completes past events and expires their
// never-scanned tickets. Both statements are idempotent, so overlapping runs
// from multiple consumer instances are safe.
type ExpirationSweep struct {
	events  *repository.EventRepository
	tickets *repository.TicketRepository

	stop chan struct{}
	done chan struct{}
}

func NewExpirationSweep(events *repository.EventRepository, tickets *repository.TicketRepository) *ExpirationSweep {
	return &ExpirationSweep{
		events:  events,
		tickets: tickets,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (j *ExpirationSweep) Start() {
	go j.run()
	logger.Get().Info("Expiration sweep started", "interval", sweepInterval.String())
}

func (j *ExpirationSweep) Stop() {
	close(j.stop)
	<-j.done
}

func (j *ExpirationSweep) run() {
	defer close(j.done)

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.sweep()
		case <-j.stop:
			return
		}
	}
}

func (j *ExpirationSweep) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	completed, err := j.events.CompletePastEvents(ctx)
	if err != nil {
		logger.Get().Error("Failed to complete past events", "error", err)
		return
	}

	expired, err := j.tickets.ExpireUnscanned(ctx)
	if err != nil {
		logger.Get().Error("Failed to expire unscanned tickets", "error", err)
		return
	}

	if completed > 0 || expired > 0 {
		logger.Get().Info("Expiration sweep finished",
			"events_completed", completed,
			"tickets_expired", expired)
	}
}

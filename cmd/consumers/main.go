package main

import (
	"os"
	"os/signal"
	"syscall"

	"tickmate/cmd/consumers/jobs"
	"tickmate/internal/config"
	"tickmate/internal/consumers"
	"tickmate/internal/database"
	"tickmate/internal/external"
	"tickmate/internal/logger"
	"tickmate/internal/messaging"
	"tickmate/internal/repository"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}
	defer natsClient.Close()

	repos := repository.NewRepositories(db)
	gateway := external.NewPaymentClient(cfg.Payment)

	svc := consumers.NewService(natsClient, gateway, repos.Tickets)
	if err := svc.Start(); err != nil {
		logger.Fatal("Failed to start consumers", "error", err)
	}
	defer svc.Stop()

	sweep := jobs.NewExpirationSweep(repos.Events, repos.Tickets)
	sweep.Start()
	defer sweep.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Get().Info("Shutting down consumers")
}

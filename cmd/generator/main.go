// Command generator seeds a demo data set: a host with published events, a
// pool of attendees and a couple of staff accounts assigned to every event.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"tickmate/internal/config"
	"tickmate/internal/database"
	"tickmate/internal/identity"
	"tickmate/internal/logger"
	"tickmate/internal/models"
	"tickmate/internal/repository"

	"github.com/shopspring/decimal"
)

func main() {
	events := flag.Int("events", 3, "number of events to create")
	attendees := flag.Int("attendees", 20, "number of attendee accounts")
	flag.Parse()

	cfg := config.Load()
	logger.Init(cfg.LogLevel, "text")

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	repos := repository.NewRepositories(db)
	ids := identity.NewService(repos.Users, cfg.Identity)
	ctx := context.Background()

	host := register(ctx, ids, repos.Users, "host@tickmate.dev", models.RoleHost)

	var staffIDs []int64
	for i := 1; i <= 2; i++ {
		staff := register(ctx, ids, repos.Users, fmt.Sprintf("staff%d@tickmate.dev", i), models.RoleStaff)
		if staff != nil {
			staffIDs = append(staffIDs, staff.UserID)
		}
	}

	for i := 1; i <= *attendees; i++ {
		register(ctx, ids, repos.Users, fmt.Sprintf("attendee%d@tickmate.dev", i), models.RoleAttendee)
	}

	if host == nil {
		logger.Fatal("Host account unavailable, aborting")
	}

	for i := 1; i <= *events; i++ {
		start := time.Now().Add(time.Duration(i*48) * time.Hour)
		event := &models.Event{
			Title:    fmt.Sprintf("Demo Event %d", i),
			HostID:   host.UserID,
			Capacity: 50 * i,
			StartAt:  start,
			EndAt:    start.Add(4 * time.Hour),
			Status:   models.EventStatusDraft,
			IsFree:   i%2 == 1,
			Price:    decimal.NewFromInt(int64(10 * i)),
		}
		if event.IsFree {
			event.Price = decimal.Zero
		}

		if err := repos.Events.Create(ctx, event); err != nil {
			logger.Get().Error("Failed to create event", "error", err, "title", event.Title)
			continue
		}
		if _, err := repos.Events.UpdateStatus(ctx, event.ID, models.EventStatusPublished); err != nil {
			logger.Get().Error("Failed to publish event", "error", err, "event_id", event.ID)
			continue
		}

		for _, staffID := range staffIDs {
			if err := repos.Events.AssignStaff(ctx, event.ID, staffID); err != nil {
				logger.Get().Error("Failed to assign staff", "error", err, "event_id", event.ID)
			}
		}

		logger.Get().Info("Created event", "id", event.ID, "title", event.Title, "is_free", event.IsFree)
	}

	logger.Get().Info("Demo data ready",
		"events", *events,
		"attendees", *attendees,
		"password", "password123")
}

// register creates an account, reusing the existing one on reruns against an
// already seeded database.
func register(ctx context.Context, ids *identity.Service, users *repository.UserRepository, email, role string) *models.User {
	user, err := ids.Register(ctx, &models.RegisterRequest{
		Email:     email,
		Password:  "password123",
		FirstName: "Demo",
		Surname:   role,
		Role:      role,
	})
	if err == nil {
		return user
	}

	existing, lookupErr := users.GetByEmail(ctx, email)
	if lookupErr != nil || existing == nil {
		logger.Get().Error("Failed to create user", "error", err, "email", email)
		return nil
	}
	return existing
}

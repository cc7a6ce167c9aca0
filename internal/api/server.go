package api

import (
	"fmt"
	"net/http"
	"time"

	"tickmate/internal/cache"
	"tickmate/internal/config"
	"tickmate/internal/database"
	"tickmate/internal/external"
	"tickmate/internal/handlers"
	"tickmate/internal/identity"
	"tickmate/internal/logger"
	"tickmate/internal/messaging"
	"tickmate/internal/metrics"
	"tickmate/internal/middleware"
	"tickmate/internal/models"
	"tickmate/internal/repository"
	"tickmate/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server wires the whole API process: storage, cache, messaging, payment
// gateway, services and routes.
type Server struct {
	router *gin.Engine

	db    *database.DB
	cache *cache.Client
	nats  *messaging.NATSClient
}

func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	// The API stays up without redis; auth and attendance just skip the
	// fast path.
	cacheClient, err := cache.NewClient(cfg.Cache)
	if err != nil {
		logger.Get().Warn("Redis unavailable, running without cache", "error", err)
		cacheClient = nil
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, fmt.Errorf("nats: %w", err)
	}

	gateway := external.NewPaymentClient(cfg.Payment)

	repos := repository.NewRepositories(db)
	ids := identity.NewService(repos.Users, cfg.Identity)
	services := service.NewServices(repos, natsClient, gateway)

	metrics.Register()

	s := &Server{
		db:    db,
		cache: cacheClient,
		nats:  natsClient,
	}
	s.router = s.setupRouter(handlers.NewHandlers(services, ids, cacheClient), ids)

	return s, nil
}

func (s *Server) setupRouter(h *handlers.Handlers, ids *identity.Service) *gin.Engine {
	router := gin.New()
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())

	router.GET("/health", s.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := router.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
	}

	api := router.Group("/api")
	api.Use(middleware.Auth(ids, s.cache))
	{
		events := api.Group("/events")
		{
			events.GET("", h.ListEvents)
			events.GET("/:id", h.GetEvent)
			events.POST("", middleware.RequireRole(models.RoleHost), h.CreateEvent)
			events.POST("/:id/publish", middleware.RequireRole(models.RoleHost), h.PublishEvent)
			events.POST("/:id/staff", middleware.RequireRole(models.RoleHost), h.AssignStaff)
			events.GET("/:id/staff", middleware.RequireRole(models.RoleHost), h.ListStaff)

			events.GET("/:id/attendance", middleware.RequireRole(models.RoleStaff), h.Attendance)
			events.GET("/:id/analytics", middleware.RequireRole(models.RoleHost, models.RoleStaff), h.Analytics)
			events.GET("/:id/scans/histogram", middleware.RequireRole(models.RoleHost, models.RoleStaff), h.ScanHistogram)
		}

		reports := api.Group("/reports")
		reports.Use(middleware.RequireRole(models.RoleHost, models.RoleStaff))
		{
			reports.GET("/tickets", h.TicketReport)
		}

		tickets := api.Group("/tickets")
		tickets.Use(middleware.RequireRole(models.RoleAttendee))
		{
			tickets.POST("", h.IssueTicket)
			tickets.GET("", h.ListMyTickets)
			tickets.DELETE("/:id", h.CancelTicket)
		}

		api.POST("/scans", middleware.RequireRole(models.RoleStaff), h.Scan)
	}

	return router
}

func (s *Server) healthCheck(c *gin.Context) {
	check := s.db.HealthCheck(c.Request.Context())

	status := http.StatusOK
	if check.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":    check.Status,
		"database":  check,
		"timestamp": time.Now(),
	})
}

// Router exposes the engine; the entrypoint mounts it on an http.Server so
// it can drain requests on shutdown.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Cleanup closes all external connections.
func (s *Server) Cleanup() {
	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			logger.Get().Error("Failed to close NATS connection", "error", err)
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			logger.Get().Error("Failed to close redis connection", "error", err)
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Failed to close database connection", "error", err)
		}
	}
}

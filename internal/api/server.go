package api

import (
	"fmt"
	"net/http"

	"voyago/internal/cache"
	"voyago/internal/config"
	"voyago/internal/database"
	"voyago/internal/external"
	"voyago/internal/handlers"
	"voyago/internal/logger"
	"voyago/internal/messaging"
	"voyago/internal/middleware"
	"voyago/internal/repository"
	"voyago/internal/search"
	"voyago/internal/service"

	"github.com/gin-gonic/gin"
)

// Server wires together the HTTP API and its backing services.
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	nats     *messaging.NATSClient
	redis    *cache.Client
	services *service.Services
	repos    *repository.Repositories
}

func NewServer(cfg *config.Config) *Server {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	if err := db.RunMigrations(); err != nil {
		logger.Fatal("Failed to run migrations", "error", err)
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		logger.Fatal("Failed to connect to NATS", "error", err)
	}

	// Redis and Elasticsearch are accelerators, not dependencies: the API
	// stays up without them.
	redisClient, err := cache.NewClient(cfg.Redis)
	if err != nil {
		logger.Get().Warn("Redis unavailable, auth cache disabled", "error", err)
		redisClient = nil
	}

	var repos *repository.Repositories
	esClient, err := search.NewElasticsearchClient(config.LoadElasticsearchConfig())
	if err != nil {
		logger.Get().Warn("Elasticsearch unavailable, trip search disabled", "error", err)
		repos = repository.NewRepositories(db)
	} else {
		repos = repository.NewRepositoriesWithSearch(db, esClient)
	}

	providerClient := external.NewProviderClient(cfg.Provider)
	services := service.NewServices(db, repos, natsClient, providerClient, cfg)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		nats:     natsClient,
		redis:    redisClient,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services)

	api := s.router.Group("/api")

	// Webhook authenticates via the provider signature, not Basic Auth.
	api.POST("/payments/webhook", h.PaymentWebhook)

	authed := api.Group("")
	authed.Use(middleware.BasicAuth(s.repos.Users, s.redis))
	{
		trips := authed.Group("/trips")
		{
			trips.GET("", h.ListTrips)
			trips.GET("/:id", h.GetTrip)
			trips.POST("", middleware.AdminOnly(s.repos.Users), h.CreateTrip)
			trips.PUT("/:id", middleware.AdminOnly(s.repos.Users), h.UpdateTrip)
			trips.DELETE("/:id", middleware.AdminOnly(s.repos.Users), h.DeactivateTrip)
		}

		bookings := authed.Group("/bookings")
		{
			bookings.POST("", h.CreateBooking)
			bookings.GET("/my-bookings", h.ListMyBookings)
			bookings.PATCH("/:id/cancel", h.CancelBooking)
			bookings.PATCH("/:id/status", middleware.AdminOnly(s.repos.Users), h.SetBookingStatus)
			bookings.DELETE("/:id", middleware.AdminOnly(s.repos.Users), h.DeleteBooking)
		}

		payments := authed.Group("/payments")
		{
			payments.POST("/create-intent", h.CreatePaymentIntent)
		}

		finances := authed.Group("/finances")
		finances.Use(middleware.AdminOnly(s.repos.Users))
		{
			finances.POST("/transactions", h.RecordTransaction)
			finances.GET("/transactions/:id", h.GetTransaction)
			finances.PATCH("/transactions/:id/status", h.SetTransactionStatus)
			finances.POST("/transactions/:id/refund", h.RequestRefund)
		}
	}

	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", middleware.PrometheusHandler())
}

func (s *Server) healthCheck(c *gin.Context) {
	health := s.db.HealthCheck(c.Request.Context())
	status := http.StatusOK
	if health.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status":   health.Status,
		"service":  "voyago-api",
		"database": health,
	})
}

func (s *Server) Run() error {
	addr := fmt.Sprintf(":%s", s.config.Port)
	return s.router.Run(addr)
}

// GetRouter exposes the router for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes external connections.
func (s *Server) Cleanup() error {
	log := logger.Get()

	if s.nats != nil {
		if err := s.nats.Close(); err != nil {
			log.Error("Error closing NATS connection", "error", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}

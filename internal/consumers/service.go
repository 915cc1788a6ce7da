package consumers

import (
	"context"
	"log/slog"

	"voyago/internal/config"
	"voyago/internal/database"
	"voyago/internal/external"
	"voyago/internal/messaging"
	"voyago/internal/models"
	"voyago/internal/repository"
	"voyago/internal/service"
)

type ConsumerService struct {
	db       *database.DB
	nats     *messaging.NATSClient
	repos    *repository.Repositories
	services *service.Services
	handlers *Handlers
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, err
	}

	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	repos := repository.NewRepositories(db)
	providerClient := external.NewProviderClient(cfg.Provider)
	services := service.NewServices(db, repos, natsClient, providerClient, cfg)
	handlers := NewHandlers(repos)

	return &ConsumerService{
		db:       db,
		nats:     natsClient,
		repos:    repos,
		services: services,
		handlers: handlers,
	}, nil
}

// Services exposes the service layer for the background jobs that run in the
// same process.
func (cs *ConsumerService) Services() *service.Services {
	return cs.services
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	if _, err := cs.nats.SubscribeQueue(models.EventBookingCreated, "consumers", cs.handlers.HandleBookingCreated); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.EventBookingConfirmed, "consumers", cs.handlers.HandleBookingConfirmed); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.EventBookingCancelled, "consumers", cs.handlers.HandleBookingCancelled); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.EventPaymentInitiated, "consumers", cs.handlers.HandlePaymentInitiated); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.EventPaymentCompleted, "consumers", cs.handlers.HandlePaymentCompleted); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.EventPaymentCancelled, "consumers", cs.handlers.HandlePaymentCancelled); err != nil {
		return err
	}
	if _, err := cs.nats.SubscribeQueue(models.EventReconciliationAlert, "consumers", cs.handlers.HandleReconciliationAlert); err != nil {
		return err
	}

	slog.Info("All consumers started successfully")
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
		}
	}

	if cs.db != nil {
		if err := cs.db.Close(); err != nil {
			slog.Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}

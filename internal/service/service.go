package service

import (
	"voyago/internal/config"
	"voyago/internal/database"
	"voyago/internal/external"
	"voyago/internal/messaging"
	"voyago/internal/models"
	"voyago/internal/repository"
)

// eventPublisher is the slice of the NATS client the services use.
// Narrowed to an interface so tests can record events instead of connecting.
type eventPublisher interface {
	Publish(subject string, data interface{}) error
}

// providerGateway is the slice of the payment provider client the services
// need. Narrowed to an interface so tests can stand in a fake.
type providerGateway interface {
	CreateIntent(amount int64, orderRef, description, email string) (*external.IntentResponse, error)
	CancelIntent(intentID, reason string) error
	VerifyNotification(payload *models.WebhookPayload) bool
	Currency() string
}

type Services struct {
	Trips      *TripService
	Bookings   *BookingService
	Payments   *PaymentService
	Reconciler *Reconciler
}

func NewServices(db *database.DB, repos *repository.Repositories, natsClient *messaging.NATSClient, providerClient *external.ProviderClient, cfg *config.Config) *Services {
	reconciler := NewReconciler(db, repos.Payments, repos.Bookings, repos.Trips, natsClient, cfg.Booking.EnforceCapacity)

	tripService := NewTripService(repos.Trips, repos.TripSearch)
	bookingService := NewBookingService(db, repos.Bookings, repos.Trips, repos.Payments, providerClient, natsClient, cfg.Booking.EnforceCapacity)
	paymentService := NewPaymentService(repos.Payments, repos.Bookings, providerClient, natsClient, reconciler)

	return &Services{
		Trips:      tripService,
		Bookings:   bookingService,
		Payments:   paymentService,
		Reconciler: reconciler,
	}
}

package consumers

import (
	"context"
	"encoding/json"
	"log/slog"

	"voyago/internal/models"
	"voyago/internal/repository"

	"github.com/nats-io/stan.go"
)

type Handlers struct {
	repos *repository.Repositories
}

func NewHandlers(repos *repository.Repositories) *Handlers {
	return &Handlers{
		repos: repos,
	}
}

func (h *Handlers) HandleBookingCreated(m *stan.Msg) {
	var event models.BookingCreatedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking created event", "error", err)
		return
	}

	// Notification fan-out point: confirmation emails, analytics.
	slog.Info("Booking created",
		"booking_id", event.BookingID,
		"trip_id", event.TripID,
		"user_id", event.UserID,
		"total_price", event.TotalPrice)

	m.Ack()
}

func (h *Handlers) HandleBookingConfirmed(m *stan.Msg) {
	var event models.BookingStatusEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking status event", "error", err)
		return
	}

	ctx := context.Background()
	booking, err := h.repos.Bookings.GetByID(ctx, event.BookingID)
	if err != nil {
		slog.Error("Failed to get booking", "booking_id", event.BookingID, "error", err)
		return
	}

	if booking != nil {
		slog.Info("Booking confirmed",
			"booking_id", booking.ID,
			"user_id", booking.UserID,
			"actor", event.Actor)
	}

	m.Ack()
}

func (h *Handlers) HandleBookingCancelled(m *stan.Msg) {
	var event models.BookingStatusEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal booking status event", "error", err)
		return
	}

	slog.Info("Booking cancelled",
		"booking_id", event.BookingID,
		"trip_id", event.TripID,
		"actor", event.Actor)

	m.Ack()
}

func (h *Handlers) HandlePaymentInitiated(m *stan.Msg) {
	var event models.PaymentInitiatedEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment initiated event", "error", err)
		return
	}

	slog.Info("Payment initiated",
		"payment_id", event.PaymentID,
		"booking_id", event.BookingID,
		"amount", event.Amount,
		"provider_ref", event.ProviderRef)

	m.Ack()
}

func (h *Handlers) HandlePaymentCompleted(m *stan.Msg) {
	var event models.PaymentOutcomeEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment outcome event", "error", err)
		return
	}

	slog.Info("Payment completed",
		"payment_id", event.PaymentID,
		"booking_id", event.BookingID)

	m.Ack()
}

func (h *Handlers) HandlePaymentCancelled(m *stan.Msg) {
	var event models.PaymentOutcomeEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal payment outcome event", "error", err)
		return
	}

	slog.Info("Payment cancelled",
		"payment_id", event.PaymentID,
		"booking_id", event.BookingID)

	m.Ack()
}

// HandleReconciliationAlert is the operational alert sink. Alerts mean the
// two ledgers disagree and someone has to look: they are logged at error
// level so they reach the paging pipeline.
func (h *Handlers) HandleReconciliationAlert(m *stan.Msg) {
	var event models.ReconciliationAlertEvent
	if err := json.Unmarshal(m.Data, &event); err != nil {
		slog.Error("Failed to unmarshal reconciliation alert", "error", err)
		return
	}

	slog.Error("RECONCILIATION ALERT",
		"payment_id", event.PaymentID,
		"booking_id", event.BookingID,
		"payment_status", event.PaymentStatus,
		"booking_status", event.BookingStatus,
		"reason", event.Reason)

	m.Ack()
}

package models

import "time"

// NATS Event Types
const (
	EventBookingCreated      = "booking.created"
	EventBookingConfirmed    = "booking.confirmed"
	EventBookingCancelled    = "booking.cancelled"
	EventPaymentInitiated    = "payment.initiated"
	EventPaymentCompleted    = "payment.completed"
	EventPaymentCancelled    = "payment.cancelled"
	EventReconciliationAlert = "reconciliation.alert"
)

// BookingCreatedEvent represents a booking creation event
type BookingCreatedEvent struct {
	BookingID    int64     `json:"booking_id"`
	TripID       int64     `json:"trip_id"`
	UserID       int64     `json:"user_id"`
	Participants int       `json:"participants"`
	TotalPrice   int64     `json:"total_price"`
	Timestamp    time.Time `json:"timestamp"`
}

// BookingStatusEvent represents a booking status transition.
// Actor records who drove the transition ("system" or "admin" or "user"),
// which keeps admin overrides attributable.
type BookingStatusEvent struct {
	BookingID int64     `json:"booking_id"`
	TripID    int64     `json:"trip_id"`
	Status    string    `json:"status"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
}

// PaymentInitiatedEvent represents a payment intent creation
type PaymentInitiatedEvent struct {
	PaymentID   int64     `json:"payment_id"`
	BookingID   *int64    `json:"booking_id"`
	Amount      int64     `json:"amount"`
	ProviderRef string    `json:"provider_ref"`
	Timestamp   time.Time `json:"timestamp"`
}

// PaymentOutcomeEvent represents a terminal payment transition
type PaymentOutcomeEvent struct {
	PaymentID   int64     `json:"payment_id"`
	BookingID   *int64    `json:"booking_id"`
	Status      string    `json:"status"`
	ProviderRef *string   `json:"provider_ref"`
	Timestamp   time.Time `json:"timestamp"`
}

// ReconciliationAlertEvent is published when the ledgers disagree in a way
// the engine cannot repair on its own (dangling booking reference, booking
// already settled in a different terminal state, over-capacity confirmation).
// Consumed by the operational alerting channel.
type ReconciliationAlertEvent struct {
	PaymentID     int64     `json:"payment_id"`
	BookingID     *int64    `json:"booking_id"`
	PaymentStatus string    `json:"payment_status"`
	BookingStatus string    `json:"booking_status,omitempty"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

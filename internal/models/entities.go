package models

import (
	"time"
)

// Booking statuses
const (
	BookingStatusPending   = "PENDING"
	BookingStatusConfirmed = "CONFIRMED"
	BookingStatusCancelled = "CANCELLED"
	BookingStatusCompleted = "COMPLETED"
)

// Payment statuses
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusCancelled = "CANCELLED"
)

// Actors allowed to mutate ledger state
const (
	ActorSystem = "system"
	ActorAdmin  = "admin"
	ActorUser   = "user"
)

// IsTerminalBookingStatus reports whether a booking status can no longer be
// changed by the system actor.
func IsTerminalBookingStatus(status string) bool {
	switch status {
	case BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// IsTerminalPaymentStatus reports whether a payment status is a final outcome.
func IsTerminalPaymentStatus(status string) bool {
	return status == PaymentStatusCompleted || status == PaymentStatusCancelled
}

// User represents a user in the system
type User struct {
	UserID       int64     `json:"user_id" db:"user_id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	FirstName    string    `json:"first_name" db:"first_name"`
	Surname      string    `json:"surname" db:"surname"`
	IsAdmin      bool      `json:"is_admin" db:"is_admin"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
	LastLoggedIn time.Time `json:"last_logged_in" db:"last_logged_in"`
}

// Trip represents a sellable travel package listing.
// Price is per participant per night, in minor currency units.
type Trip struct {
	ID              int64     `json:"id" db:"id"`
	Title           string    `json:"title" db:"title"`
	Description     *string   `json:"description" db:"description"`
	Destination     string    `json:"destination" db:"destination"`
	Price           int64     `json:"price" db:"price"`
	MaxParticipants int       `json:"max_participants" db:"max_participants"`
	Active          bool      `json:"active" db:"active"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Booking represents a reservation against a trip.
// TotalPrice is fixed at creation time and never recalculated from the
// current trip price.
type Booking struct {
	ID              int64     `json:"id" db:"id"`
	TripID          int64     `json:"trip_id" db:"trip_id"`
	UserID          int64     `json:"user_id" db:"user_id"`
	Participants    int       `json:"participants" db:"participants"`
	StartDate       time.Time `json:"start_date" db:"start_date"`
	EndDate         time.Time `json:"end_date" db:"end_date"`
	RoomType        string    `json:"room_type" db:"room_type"`
	SpecialRequests *string   `json:"special_requests" db:"special_requests"`
	TotalPrice      int64     `json:"total_price" db:"total_price"`
	Status          string    `json:"status" db:"status"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Payment represents a monetary transaction, optionally linked to a booking.
// BookingID is nullable: admin-entered payments may exist without a booking.
type Payment struct {
	ID              int64      `json:"id" db:"id"`
	BookingID       *int64     `json:"booking_id" db:"booking_id"`
	Amount          int64      `json:"amount" db:"amount"`
	Status          string     `json:"status" db:"status"`
	ProviderRef     *string    `json:"provider_ref" db:"provider_ref"`
	PaidAt          *time.Time `json:"paid_at" db:"paid_at"`
	CustomerName    string     `json:"customer_name" db:"customer_name"`
	CustomerEmail   string     `json:"customer_email" db:"customer_email"`
	RefundRequested bool       `json:"refund_requested" db:"refund_requested"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

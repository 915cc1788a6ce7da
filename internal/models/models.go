package models

// CreateBookingRequest - payload for creating a booking
type CreateBookingRequest struct {
	TripID          int64  `json:"trip_id" binding:"required"`
	Participants    int    `json:"participants" binding:"required"`
	StartDate       string `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate         string `json:"end_date" binding:"required"`   // YYYY-MM-DD
	RoomType        string `json:"room_type"`
	SpecialRequests string `json:"special_requests"`
}

// CreateBookingResponse - response for a created booking
type CreateBookingResponse struct {
	ID         int64  `json:"id"`
	TotalPrice int64  `json:"total_price"`
	Status     string `json:"status"`
}

// SetBookingStatusRequest - admin status override payload
type SetBookingStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// CreateIntentRequest - payload for initiating a payment against a booking
type CreateIntentRequest struct {
	BookingID int64 `json:"booking_id" binding:"required"`
}

// CreateIntentResponse - provider intent handed back to the client
type CreateIntentResponse struct {
	PaymentID    int64  `json:"payment_id"`
	ProviderRef  string `json:"provider_ref"`
	ClientSecret string `json:"client_secret"`
	PaymentURL   string `json:"payment_url,omitempty"`
}

// RecordManualPaymentRequest - admin path for entering a payment directly.
// BookingID is optional; status may be set on entry.
type RecordManualPaymentRequest struct {
	BookingID     *int64 `json:"booking_id"`
	Amount        int64  `json:"amount" binding:"required"`
	Status        string `json:"status"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

// SetPaymentStatusRequest - admin payment status edit payload
type SetPaymentStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// WebhookPayload - notification delivered by the payment provider.
// Token is the provider's signature over the sorted payload values plus the
// shared signing secret; it must verify before the payload is trusted.
type WebhookPayload struct {
	EventType   string `json:"eventType"`
	ProviderRef string `json:"providerReference"`
	Outcome     string `json:"outcome"`
	Timestamp   string `json:"timestamp"`
	Token       string `json:"token"`
}

// CreateTripRequest - admin catalog payload
type CreateTripRequest struct {
	Title           string `json:"title" binding:"required"`
	Description     string `json:"description"`
	Destination     string `json:"destination" binding:"required"`
	Price           int64  `json:"price" binding:"required"`
	MaxParticipants int    `json:"max_participants" binding:"required"`
	Active          *bool  `json:"active"`
}

// ListTripsResponseItem - element of the trip catalog listing
type ListTripsResponseItem struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	Destination     string `json:"destination"`
	Price           int64  `json:"price"`
	MaxParticipants int    `json:"max_participants"`
}

// ListBookingsResponseItem - element of a user's booking list
type ListBookingsResponseItem struct {
	ID           int64  `json:"id"`
	TripID       int64  `json:"trip_id"`
	Participants int    `json:"participants"`
	TotalPrice   int64  `json:"total_price"`
	Status       string `json:"status"`
}

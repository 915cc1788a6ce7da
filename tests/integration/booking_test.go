package integration

import (
	"testing"
)

func TestAPI_HealthCheck(t *testing.T) {
	client := NewTestClient(t)
	client.HealthCheck(t)
}

func TestAPI_BookingFlow(t *testing.T) {
	client := NewTestClient(t)

	// 100.00 per participant per night
	trip := client.CreateTrip(t, 10000, 10)

	// 3 nights, 2 participants: 100.00 * 3 * 2 * 1.21 = 726.00
	booking := client.CreateBooking(t, trip.ID, 2, "2026-06-01", "2026-06-04")

	if booking.TotalPrice != 72600 {
		t.Fatalf("Expected total 72600 minor units, got %d", booking.TotalPrice)
	}
	if booking.Status != "PENDING" {
		t.Fatalf("Expected new booking to be PENDING, got %s", booking.Status)
	}

	// The booking shows up in the caller's list with the same fixed total
	bookings := client.ListMyBookings(t)
	found := false
	for _, b := range bookings {
		if b.ID == booking.ID {
			found = true
			if b.TotalPrice != booking.TotalPrice {
				t.Fatalf("Listed total %d differs from quoted total %d", b.TotalPrice, booking.TotalPrice)
			}
		}
	}
	if !found {
		t.Fatalf("Booking %d missing from my-bookings", booking.ID)
	}
}

package integration

import (
	"net/http"
	"testing"

	"voyago/internal/models"
)

func TestAPI_ManualPaymentConfirmsBooking(t *testing.T) {
	client := NewTestClient(t)

	trip := client.CreateTrip(t, 10000, 10)
	booking := client.CreateBooking(t, trip.ID, 1, "2026-07-01", "2026-07-03")

	payment := client.RecordTransaction(t, models.RecordManualPaymentRequest{
		BookingID:    &booking.ID,
		Amount:       booking.TotalPrice,
		Status:       models.PaymentStatusCompleted,
		CustomerName: "Integration Tester",
	})

	if payment.Status != models.PaymentStatusCompleted {
		t.Fatalf("Expected payment COMPLETED, got %s", payment.Status)
	}

	// The completed payment must have confirmed the booking
	bookings := client.ListMyBookings(t)
	for _, b := range bookings {
		if b.ID == booking.ID && b.Status != models.BookingStatusConfirmed {
			t.Fatalf("Expected booking CONFIRMED after completed payment, got %s", b.Status)
		}
	}
}

func TestAPI_PaymentStatusReplayIsIdempotent(t *testing.T) {
	client := NewTestClient(t)

	trip := client.CreateTrip(t, 5000, 10)
	booking := client.CreateBooking(t, trip.ID, 1, "2026-08-01", "2026-08-02")

	payment := client.RecordTransaction(t, models.RecordManualPaymentRequest{
		BookingID: &booking.ID,
		Amount:    booking.TotalPrice,
	})

	// First settlement applies, the replay is a harmless no-op
	if code := client.SetTransactionStatus(t, payment.ID, models.PaymentStatusCompleted); code != http.StatusOK {
		t.Fatalf("Expected 200 on first settlement, got %d", code)
	}
	if code := client.SetTransactionStatus(t, payment.ID, models.PaymentStatusCompleted); code != http.StatusOK {
		t.Fatalf("Expected 200 on replay, got %d", code)
	}

	// A contradictory terminal outcome is rejected
	if code := client.SetTransactionStatus(t, payment.ID, models.PaymentStatusCancelled); code != http.StatusConflict {
		t.Fatalf("Expected 409 on conflicting outcome, got %d", code)
	}

	got := client.GetTransaction(t, payment.ID)
	if got.Status != models.PaymentStatusCompleted {
		t.Fatalf("Payment should stay COMPLETED, got %s", got.Status)
	}
	if got.PaidAt == nil {
		t.Fatal("Completed payment should carry paid_at")
	}
}

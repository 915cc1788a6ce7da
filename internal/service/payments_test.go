package service

import (
	"context"
	"testing"
	"time"

	"voyago/internal/database"
	apperrors "voyago/internal/errors"
	"voyago/internal/external"
	"voyago/internal/models"
	"voyago/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider stands in for the payment provider client.
type fakeProvider struct {
	intents  []int64
	verified bool
}

func (f *fakeProvider) CreateIntent(amount int64, orderRef, description, email string) (*external.IntentResponse, error) {
	f.intents = append(f.intents, amount)
	return &external.IntentResponse{
		Success:      true,
		IntentID:     "intent-abc",
		ClientSecret: "secret-xyz",
		Status:       "pending",
		Amount:       amount,
	}, nil
}

func (f *fakeProvider) CancelIntent(intentID, reason string) error { return nil }

func (f *fakeProvider) VerifyNotification(payload *models.WebhookPayload) bool { return f.verified }

func (f *fakeProvider) Currency() string { return "EUR" }

func newPaymentTest(t *testing.T) (*PaymentService, sqlmock.Sqlmock, *fakeProvider, *eventRecorder) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := &database.DB{DB: sqlDB}
	paymentRepo := repository.NewPaymentRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	provider := &fakeProvider{}
	pub := &eventRecorder{}
	reconciler := NewReconciler(db, paymentRepo, bookingRepo, repository.NewTripRepository(db), pub, false)

	svc := NewPaymentService(paymentRepo, bookingRepo, provider, pub, reconciler)
	return svc, mock, provider, pub
}

func TestCreateIntentUsesStoredBookingTotal(t *testing.T) {
	svc, mock, provider, pub := newPaymentTest(t)
	now := time.Now()

	mock.ExpectQuery(`FROM bookings WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(bookingRow(3, 2, 2, 72600, models.BookingStatusPending))
	mock.ExpectQuery(`FROM payments`).
		WithArgs(int64(3)).
		WillReturnRows(emptyPaymentRows())
	mock.ExpectQuery(`INSERT INTO payments`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(11, now, now))

	resp, err := svc.CreateIntent(context.Background(), 1, &models.CreateIntentRequest{BookingID: 3})
	require.NoError(t, err)

	// The amount is the booking's stored total, never client input
	require.Len(t, provider.intents, 1)
	assert.Equal(t, int64(72600), provider.intents[0])
	assert.Equal(t, int64(11), resp.PaymentID)
	assert.Equal(t, "intent-abc", resp.ProviderRef)
	assert.Equal(t, "secret-xyz", resp.ClientSecret)

	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventPaymentInitiated, pub.events[0].subject)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIntentHidesOtherUsersBookings(t *testing.T) {
	svc, mock, _, _ := newPaymentTest(t)

	// Booking belongs to user 1, request comes from user 42
	mock.ExpectQuery(`FROM bookings WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(bookingRow(3, 2, 2, 72600, models.BookingStatusPending))

	_, err := svc.CreateIntent(context.Background(), 42, &models.CreateIntentRequest{BookingID: 3})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCreateIntentRejectsSettledBooking(t *testing.T) {
	svc, mock, _, _ := newPaymentTest(t)

	mock.ExpectQuery(`FROM bookings WHERE id = \$1`).
		WithArgs(int64(3)).
		WillReturnRows(bookingRow(3, 2, 2, 72600, models.BookingStatusCancelled))

	_, err := svc.CreateIntent(context.Background(), 1, &models.CreateIntentRequest{BookingID: 3})
	assert.True(t, apperrors.IsConflict(err))
}

func TestCreateIntentReturnsInFlightIntent(t *testing.T) {
	svc, mock, provider, _ := newPaymentTest(t)
	bookingID := int64(3)
	now := time.Now()

	existing := sqlmock.NewRows([]string{
		"id", "booking_id", "amount", "status", "provider_ref", "paid_at",
		"customer_name", "customer_email", "refund_requested", "created_at", "updated_at",
	}).AddRow(9, bookingID, 72600, models.PaymentStatusPending, "intent-old", nil, "", "", false, now, now)

	mock.ExpectQuery(`FROM bookings WHERE id = \$1`).
		WithArgs(bookingID).
		WillReturnRows(bookingRow(bookingID, 2, 2, 72600, models.BookingStatusPending))
	mock.ExpectQuery(`FROM payments`).
		WithArgs(bookingID).
		WillReturnRows(existing)

	resp, err := svc.CreateIntent(context.Background(), 1, &models.CreateIntentRequest{BookingID: bookingID})
	require.NoError(t, err)

	assert.Equal(t, int64(9), resp.PaymentID)
	assert.Equal(t, "intent-old", resp.ProviderRef)
	assert.Empty(t, provider.intents)
}

func TestApplyProviderOutcomeUnknownReference(t *testing.T) {
	svc, mock, _, _ := newPaymentTest(t)

	mock.ExpectQuery(`FROM payments WHERE provider_ref = \$1`).
		WithArgs("intent-missing").
		WillReturnRows(emptyPaymentRows())

	err := svc.ApplyProviderOutcome(context.Background(), &models.WebhookPayload{
		EventType:   "payment.outcome",
		ProviderRef: "intent-missing",
		Outcome:     "succeeded",
	})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestApplyProviderOutcomeUnknownOutcome(t *testing.T) {
	svc, mock, _, _ := newPaymentTest(t)
	bookingID := int64(3)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "booking_id", "amount", "status", "provider_ref", "paid_at",
		"customer_name", "customer_email", "refund_requested", "created_at", "updated_at",
	}).AddRow(9, bookingID, 72600, models.PaymentStatusPending, "intent-abc", nil, "", "", false, now, now)

	mock.ExpectQuery(`FROM payments WHERE provider_ref = \$1`).
		WithArgs("intent-abc").
		WillReturnRows(rows)

	err := svc.ApplyProviderOutcome(context.Background(), &models.WebhookPayload{
		ProviderRef: "intent-abc",
		Outcome:     "mystery",
	})
	assert.True(t, apperrors.IsValidation(err))
}

func TestRecordManualRejectsNonPositiveAmount(t *testing.T) {
	svc, _, _, _ := newPaymentTest(t)

	_, err := svc.RecordManual(context.Background(), &models.RecordManualPaymentRequest{Amount: 0})
	assert.True(t, apperrors.IsValidation(err))

	_, err = svc.RecordManual(context.Background(), &models.RecordManualPaymentRequest{Amount: -100})
	assert.True(t, apperrors.IsValidation(err))
}

func TestSetStatusRejectsNonTerminal(t *testing.T) {
	svc, _, _, _ := newPaymentTest(t)

	err := svc.SetStatus(context.Background(), 1, models.PaymentStatusPending)
	assert.True(t, apperrors.IsValidation(err))
}

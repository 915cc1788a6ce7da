package service

import (
	"context"
	"testing"
	"time"

	"voyago/internal/database"
	apperrors "voyago/internal/errors"
	"voyago/internal/models"
	"voyago/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	subject string
	data    interface{}
}

// eventRecorder stands in for the NATS client.
type eventRecorder struct {
	events []publishedEvent
}

func (r *eventRecorder) Publish(subject string, data interface{}) error {
	r.events = append(r.events, publishedEvent{subject: subject, data: data})
	return nil
}

func (r *eventRecorder) subjects() []string {
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.subject
	}
	return out
}

func newReconcilerTest(t *testing.T) (*Reconciler, sqlmock.Sqlmock, *eventRecorder) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := &database.DB{DB: sqlDB}
	pub := &eventRecorder{}
	rc := NewReconciler(db,
		repository.NewPaymentRepository(db),
		repository.NewBookingRepository(db),
		repository.NewTripRepository(db),
		pub, false)

	return rc, mock, pub
}

func paymentRow(id int64, bookingID *int64, amount int64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "booking_id", "amount", "status", "provider_ref", "paid_at",
		"customer_name", "customer_email", "refund_requested", "created_at", "updated_at",
	}).AddRow(id, bookingID, amount, status, nil, nil, "", "", false, now, now)
}

func emptyPaymentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "booking_id", "amount", "status", "provider_ref", "paid_at",
		"customer_name", "customer_email", "refund_requested", "created_at", "updated_at",
	})
}

func emptyBookingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "trip_id", "user_id", "participants", "start_date", "end_date",
		"room_type", "special_requests", "total_price", "status", "created_at", "updated_at",
	})
}

func bookingRow(id, tripID int64, participants int, totalPrice int64, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "trip_id", "user_id", "participants", "start_date", "end_date",
		"room_type", "special_requests", "total_price", "status", "created_at", "updated_at",
	}).AddRow(id, tripID, 1, participants, now, now.Add(72*time.Hour), "double", nil, totalPrice, status, now, now)
}

func TestApplyPaymentOutcomeConfirmsPendingBooking(t *testing.T) {
	rc, mock, pub := newReconcilerTest(t)
	bookingID := int64(3)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM payments WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(paymentRow(7, &bookingID, 72600, models.PaymentStatusPending))
	mock.ExpectExec(`UPDATE payments SET status`).
		WithArgs(models.PaymentStatusCompleted, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
		WithArgs(bookingID).
		WillReturnRows(bookingRow(bookingID, 2, 2, 72600, models.BookingStatusPending))
	mock.ExpectExec(`UPDATE bookings SET status`).
		WithArgs(models.BookingStatusConfirmed, bookingID, models.BookingStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := rc.ApplyPaymentOutcome(context.Background(), 7, models.PaymentStatusCompleted, models.ActorSystem)
	require.NoError(t, err)

	assert.Equal(t, []string{models.EventPaymentCompleted, models.EventBookingConfirmed}, pub.subjects())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPaymentOutcomeReplayIsNoOp(t *testing.T) {
	rc, mock, pub := newReconcilerTest(t)
	bookingID := int64(3)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM payments WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(paymentRow(7, &bookingID, 72600, models.PaymentStatusCompleted))
	mock.ExpectRollback()

	err := rc.ApplyPaymentOutcome(context.Background(), 7, models.PaymentStatusCompleted, models.ActorSystem)
	require.NoError(t, err)

	// Nothing was written and nothing re-published
	assert.Empty(t, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPaymentOutcomeRejectsConflictingTerminal(t *testing.T) {
	rc, mock, pub := newReconcilerTest(t)
	bookingID := int64(3)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM payments WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(paymentRow(7, &bookingID, 72600, models.PaymentStatusCancelled))
	mock.ExpectRollback()

	err := rc.ApplyPaymentOutcome(context.Background(), 7, models.PaymentStatusCompleted, models.ActorAdmin)
	assert.True(t, apperrors.IsConflict(err))
	assert.Empty(t, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPaymentOutcomeUnknownPayment(t *testing.T) {
	rc, mock, pub := newReconcilerTest(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM payments WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(99)).
		WillReturnRows(emptyPaymentRows())
	mock.ExpectRollback()

	err := rc.ApplyPaymentOutcome(context.Background(), 99, models.PaymentStatusCompleted, models.ActorAdmin)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Empty(t, pub.events)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPaymentOutcomeSettledBookingStillCommitsPayment(t *testing.T) {
	rc, mock, pub := newReconcilerTest(t)
	bookingID := int64(3)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM payments WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(paymentRow(7, &bookingID, 72600, models.PaymentStatusPending))
	mock.ExpectExec(`UPDATE payments SET status`).
		WithArgs(models.PaymentStatusCompleted, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
		WithArgs(bookingID).
		WillReturnRows(bookingRow(bookingID, 2, 2, 72600, models.BookingStatusCancelled))
	// No booking update: the cancellation stands, the payment still commits
	mock.ExpectCommit()

	err := rc.ApplyPaymentOutcome(context.Background(), 7, models.PaymentStatusCompleted, models.ActorSystem)
	require.NoError(t, err)

	subjects := pub.subjects()
	require.Len(t, subjects, 2)
	assert.Equal(t, models.EventPaymentCompleted, subjects[0])
	assert.Equal(t, models.EventReconciliationAlert, subjects[1])

	alert, ok := pub.events[1].data.(models.ReconciliationAlertEvent)
	require.True(t, ok)
	assert.Equal(t, AlertBookingSettled, alert.Reason)
	assert.Equal(t, models.BookingStatusCancelled, alert.BookingStatus)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPaymentOutcomeDanglingBookingReference(t *testing.T) {
	rc, mock, pub := newReconcilerTest(t)
	bookingID := int64(404)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM payments WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(paymentRow(7, &bookingID, 5000, models.PaymentStatusPending))
	mock.ExpectExec(`UPDATE payments SET status`).
		WithArgs(models.PaymentStatusCompleted, sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
		WithArgs(bookingID).
		WillReturnRows(emptyBookingRows())
	mock.ExpectCommit()

	err := rc.ApplyPaymentOutcome(context.Background(), 7, models.PaymentStatusCompleted, models.ActorSystem)
	require.NoError(t, err)

	subjects := pub.subjects()
	require.Len(t, subjects, 2)
	assert.Equal(t, models.EventReconciliationAlert, subjects[1])

	alert := pub.events[1].data.(models.ReconciliationAlertEvent)
	assert.Equal(t, AlertDanglingBooking, alert.Reason)
}

func TestApplyPaymentOutcomeCancelReleasesPendingBooking(t *testing.T) {
	rc, mock, pub := newReconcilerTest(t)
	bookingID := int64(3)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM payments WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(7)).
		WillReturnRows(paymentRow(7, &bookingID, 72600, models.PaymentStatusPending))
	mock.ExpectExec(`UPDATE payments SET status`).
		WithArgs(models.PaymentStatusCancelled, nil, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
		WithArgs(bookingID).
		WillReturnRows(bookingRow(bookingID, 2, 2, 72600, models.BookingStatusPending))
	mock.ExpectExec(`UPDATE bookings SET status`).
		WithArgs(models.BookingStatusCancelled, bookingID, models.BookingStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := rc.ApplyPaymentOutcome(context.Background(), 7, models.PaymentStatusCancelled, models.ActorSystem)
	require.NoError(t, err)

	assert.Equal(t, []string{models.EventPaymentCancelled, models.EventBookingCancelled}, pub.subjects())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyPaymentOutcomeRejectsNonTerminalTarget(t *testing.T) {
	rc, _, _ := newReconcilerTest(t)

	err := rc.ApplyPaymentOutcome(context.Background(), 7, models.PaymentStatusPending, models.ActorAdmin)
	assert.True(t, apperrors.IsValidation(err))
}

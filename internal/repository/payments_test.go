package repository

import (
	"context"
	"testing"
	"time"

	"voyago/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentTestColumns = []string{
	"id", "booking_id", "amount", "status", "provider_ref", "paid_at",
	"customer_name", "customer_email", "refund_requested", "created_at", "updated_at",
}

func TestPaymentGetByProviderRefNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectQuery(`FROM payments WHERE provider_ref = \$1`).
		WithArgs("intent-unknown").
		WillReturnRows(sqlmock.NewRows(paymentTestColumns))

	payment, err := repo.GetByProviderRef(context.Background(), "intent-unknown")
	require.NoError(t, err)
	assert.Nil(t, payment)
}

func TestPaymentGetByProviderRefFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)
	now := time.Now()
	bookingID := int64(3)

	mock.ExpectQuery(`FROM payments WHERE provider_ref = \$1`).
		WithArgs("intent-abc").
		WillReturnRows(sqlmock.NewRows(paymentTestColumns).
			AddRow(9, bookingID, 72600, models.PaymentStatusPending, "intent-abc", nil, "", "", false, now, now))

	payment, err := repo.GetByProviderRef(context.Background(), "intent-abc")
	require.NoError(t, err)
	require.NotNil(t, payment)
	assert.Equal(t, int64(9), payment.ID)
	require.NotNil(t, payment.BookingID)
	assert.Equal(t, bookingID, *payment.BookingID)
}

func TestPaymentGetLatestActiveIgnoresCancelled(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	// The query itself excludes cancelled rows; an empty result means no
	// authoritative payment exists.
	mock.ExpectQuery(`status <> 'CANCELLED'`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(paymentTestColumns))

	payment, err := repo.GetLatestActiveByBookingID(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, payment)
}

func TestPaymentUpdateStatusTxKeepsPaidAtOnNil(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPaymentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`paid_at = COALESCE\(\$2, paid_at\)`).
		WithArgs(models.PaymentStatusCancelled, nil, int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err)

	err = repo.UpdateStatusTx(context.Background(), tx, 9, models.PaymentStatusCancelled, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	assert.NoError(t, mock.ExpectationsWereMet())
}

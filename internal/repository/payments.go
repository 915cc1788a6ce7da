package repository

import (
	"context"
	"database/sql"
	"time"

	"voyago/internal/database"
	"voyago/internal/models"
)

type PaymentRepository struct {
	db *database.DB
}

func NewPaymentRepository(db *database.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, booking_id, amount, status, provider_ref, paid_at,
	       customer_name, customer_email, refund_requested, created_at, updated_at`

func scanPayment(row interface{ Scan(...interface{}) error }, p *models.Payment) error {
	return row.Scan(
		&p.ID,
		&p.BookingID,
		&p.Amount,
		&p.Status,
		&p.ProviderRef,
		&p.PaidAt,
		&p.CustomerName,
		&p.CustomerEmail,
		&p.RefundRequested,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func (r *PaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	query := `
		INSERT INTO payments (booking_id, amount, status, provider_ref, paid_at,
		                      customer_name, customer_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		payment.BookingID,
		payment.Amount,
		payment.Status,
		payment.ProviderRef,
		payment.PaidAt,
		payment.CustomerName,
		payment.CustomerEmail,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	err := scanPayment(r.db.QueryRowContext(ctx, query, id), payment)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payment, err
}

// GetByProviderRef looks a payment up by the provider's unique transaction
// reference. A miss signals a webhook replay after data loss, not a retry
// condition.
func (r *PaymentRepository) GetByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_ref = $1`

	err := scanPayment(r.db.QueryRowContext(ctx, query, providerRef), payment)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payment, err
}

// GetByIDForUpdate locks the payment row inside the given transaction.
func (r *PaymentRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`

	err := scanPayment(tx.QueryRowContext(ctx, query, id), payment)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payment, err
}

// GetLatestActiveByBookingID returns the authoritative payment for a booking:
// the most recent non-cancelled one. Historical cancelled rows are ignored.
func (r *PaymentRepository) GetLatestActiveByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error) {
	payment := &models.Payment{}
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1 AND status <> 'CANCELLED'
		ORDER BY created_at DESC
		LIMIT 1`

	err := scanPayment(r.db.QueryRowContext(ctx, query, bookingID), payment)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return payment, err
}

// UpdateStatusTx writes a payment status inside an existing transaction.
// paidAt is only set on completion.
func (r *PaymentRepository) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id int64, status string, paidAt *time.Time) error {
	query := `UPDATE payments SET status = $1, paid_at = COALESCE($2, paid_at), updated_at = NOW() WHERE id = $3`
	_, err := tx.ExecContext(ctx, query, status, paidAt, id)
	return err
}

// MarkRefundRequested flags a payment for refund; refund execution is an
// external, slower process.
func (r *PaymentRepository) MarkRefundRequested(ctx context.Context, id int64) error {
	query := `UPDATE payments SET refund_requested = TRUE, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

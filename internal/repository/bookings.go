package repository

import (
	"context"
	"database/sql"
	"time"

	"voyago/internal/database"
	"voyago/internal/models"
)

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `id, trip_id, user_id, participants, start_date, end_date,
	       room_type, special_requests, total_price, status, created_at, updated_at`

func scanBooking(row interface{ Scan(...interface{}) error }, b *models.Booking) error {
	return row.Scan(
		&b.ID,
		&b.TripID,
		&b.UserID,
		&b.Participants,
		&b.StartDate,
		&b.EndDate,
		&b.RoomType,
		&b.SpecialRequests,
		&b.TotalPrice,
		&b.Status,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
}

func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (trip_id, user_id, participants, start_date, end_date,
		                      room_type, special_requests, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		booking.TripID,
		booking.UserID,
		booking.Participants,
		booking.StartDate,
		booking.EndDate,
		booking.RoomType,
		booking.SpecialRequests,
		booking.TotalPrice,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

// CreateTx inserts a booking inside an existing transaction.
func (r *BookingRepository) CreateTx(ctx context.Context, tx *sql.Tx, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (trip_id, user_id, participants, start_date, end_date,
		                      room_type, special_requests, total_price, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return tx.QueryRowContext(ctx, query,
		booking.TripID,
		booking.UserID,
		booking.Participants,
		booking.StartDate,
		booking.EndDate,
		booking.RoomType,
		booking.SpecialRequests,
		booking.TotalPrice,
		booking.Status,
	).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	err := scanBooking(r.db.QueryRowContext(ctx, query, id), booking)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return booking, err
}

// GetByIDForUpdate locks the booking row inside the given transaction.
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Booking, error) {
	booking := &models.Booking{}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`

	err := scanBooking(tx.QueryRowContext(ctx, query, id), booking)
	if err == sql.ErrNoRows {
		return nil, nil
	}

	return booking, err
}

func (r *BookingRepository) GetByUserID(ctx context.Context, userID int64) ([]models.Booking, error) {
	var bookings []models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var booking models.Booking
		if err := scanBooking(rows, &booking); err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

// UpdateStatus writes a booking status unconditionally. Admin override path.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status string) (bool, error) {
	query := `UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateStatusFrom writes a booking status only when the current status
// matches expected. Returns false when another writer got there first.
func (r *BookingRepository) UpdateStatusFrom(ctx context.Context, id int64, expected, status string) (bool, error) {
	query := `UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, status, id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// UpdateStatusFromTx is UpdateStatusFrom inside an existing transaction.
func (r *BookingRepository) UpdateStatusFromTx(ctx context.Context, tx *sql.Tx, id int64, expected, status string) (bool, error) {
	query := `UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`
	res, err := tx.ExecContext(ctx, query, status, id, expected)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes a booking; dependent payments cascade at the schema level.
func (r *BookingRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// ConfirmedParticipants sums participants of CONFIRMED bookings for a trip,
// locking the trip row so concurrent confirmations serialize on it.
func (r *BookingRepository) ConfirmedParticipants(ctx context.Context, tx *sql.Tx, tripID int64) (int, error) {
	if _, err := tx.ExecContext(ctx, `SELECT id FROM trips WHERE id = $1 FOR UPDATE`, tripID); err != nil {
		return 0, err
	}

	var total int
	query := `
		SELECT COALESCE(SUM(participants), 0)
		FROM bookings
		WHERE trip_id = $1 AND status = 'CONFIRMED'`
	err := tx.QueryRowContext(ctx, query, tripID).Scan(&total)
	return total, err
}

// GetExpiredPending returns PENDING bookings created before the cutoff that
// have no authoritative payment in flight or settled.
func (r *BookingRepository) GetExpiredPending(ctx context.Context, cutoff time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	query := `SELECT ` + bookingColumns + `
		FROM bookings b
		WHERE b.status = 'PENDING'
		  AND b.created_at < $1
		  AND NOT EXISTS (
			SELECT 1 FROM payments p
			WHERE p.booking_id = b.id AND p.status <> 'CANCELLED'
		  )
		ORDER BY b.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var booking models.Booking
		if err := scanBooking(rows, &booking); err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}

	return bookings, rows.Err()
}

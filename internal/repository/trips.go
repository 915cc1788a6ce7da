package repository

import (
	"context"
	"database/sql"

	"voyago/internal/database"
	"voyago/internal/models"
)

type TripRepository struct {
	db *database.DB
}

func NewTripRepository(db *database.DB) *TripRepository {
	return &TripRepository{db: db}
}

func (r *TripRepository) Create(ctx context.Context, trip *models.Trip) error {
	query := `
		INSERT INTO trips (title, description, destination, price, max_participants, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return r.db.QueryRowContext(ctx, query,
		trip.Title,
		trip.Description,
		trip.Destination,
		trip.Price,
		trip.MaxParticipants,
		trip.Active,
	).Scan(&trip.ID, &trip.CreatedAt, &trip.UpdatedAt)
}

func (r *TripRepository) GetByID(ctx context.Context, id int64) (*models.Trip, error) {
	trip := &models.Trip{}
	query := `
		SELECT id, title, description, destination, price, max_participants, active,
		       created_at, updated_at
		FROM trips
		WHERE id = $1`

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&trip.ID,
		&trip.Title,
		&trip.Description,
		&trip.Destination,
		&trip.Price,
		&trip.MaxParticipants,
		&trip.Active,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return trip, err
}

// GetByIDForUpdate locks the trip row inside the given transaction, which
// serializes concurrent capacity checks for the same trip.
func (r *TripRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Trip, error) {
	trip := &models.Trip{}
	query := `
		SELECT id, title, description, destination, price, max_participants, active,
		       created_at, updated_at
		FROM trips
		WHERE id = $1
		FOR UPDATE`

	err := tx.QueryRowContext(ctx, query, id).Scan(
		&trip.ID,
		&trip.Title,
		&trip.Description,
		&trip.Destination,
		&trip.Price,
		&trip.MaxParticipants,
		&trip.Active,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}

	return trip, err
}

func (r *TripRepository) ListActive(ctx context.Context, page, pageSize int) ([]models.Trip, error) {
	var trips []models.Trip
	query := `
		SELECT id, title, description, destination, price, max_participants, active,
		       created_at, updated_at
		FROM trips
		WHERE active = TRUE
		ORDER BY id`

	args := []interface{}{}
	if page > 0 && pageSize > 0 {
		query += ` LIMIT $1 OFFSET $2`
		args = append(args, pageSize, (page-1)*pageSize)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var trip models.Trip
		err := rows.Scan(
			&trip.ID,
			&trip.Title,
			&trip.Description,
			&trip.Destination,
			&trip.Price,
			&trip.MaxParticipants,
			&trip.Active,
			&trip.CreatedAt,
			&trip.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}

	return trips, rows.Err()
}

func (r *TripRepository) Update(ctx context.Context, trip *models.Trip) error {
	query := `
		UPDATE trips
		SET title = $1, description = $2, destination = $3, price = $4,
		    max_participants = $5, active = $6, updated_at = NOW()
		WHERE id = $7`

	_, err := r.db.ExecContext(ctx, query,
		trip.Title,
		trip.Description,
		trip.Destination,
		trip.Price,
		trip.MaxParticipants,
		trip.Active,
		trip.ID,
	)

	return err
}

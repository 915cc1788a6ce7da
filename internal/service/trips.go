package service

import (
	"context"
	"fmt"

	apperrors "voyago/internal/errors"
	"voyago/internal/logger"
	"voyago/internal/models"
	"voyago/internal/repository"
)

type TripService struct {
	tripRepo   *repository.TripRepository
	searchRepo *repository.TripSearchRepository
}

func NewTripService(tripRepo *repository.TripRepository, searchRepo *repository.TripSearchRepository) *TripService {
	return &TripService{
		tripRepo:   tripRepo,
		searchRepo: searchRepo,
	}
}

// Create stores a new catalog trip. Indexing into Elasticsearch is
// best-effort; Postgres remains the source of truth.
func (s *TripService) Create(ctx context.Context, req *models.CreateTripRequest) (*models.Trip, error) {
	if req.Price < 0 {
		return nil, apperrors.ValidationError{Field: "price", Msg: "must not be negative"}
	}
	if req.MaxParticipants <= 0 {
		return nil, apperrors.ValidationError{Field: "max_participants", Msg: "must be positive"}
	}

	trip := &models.Trip{
		Title:           req.Title,
		Destination:     req.Destination,
		Price:           req.Price,
		MaxParticipants: req.MaxParticipants,
		Active:          true,
	}
	if req.Description != "" {
		trip.Description = &req.Description
	}
	if req.Active != nil {
		trip.Active = *req.Active
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	s.indexTrip(ctx, trip)
	return trip, nil
}

func (s *TripService) Get(ctx context.Context, id int64) (*models.Trip, error) {
	trip, err := s.tripRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	if trip == nil {
		return nil, apperrors.NotFoundError{Resource: "trip"}
	}
	return trip, nil
}

// List serves the catalog. Full-text queries go through Elasticsearch when
// it is configured; plain listings and the fallback path use SQL.
func (s *TripService) List(ctx context.Context, query, destination string, page, pageSize int) ([]models.ListTripsResponseItem, error) {
	var trips []models.Trip
	var err error

	if s.searchRepo != nil && (query != "" || destination != "") {
		trips, err = s.searchRepo.Search(ctx, query, destination, page, pageSize)
		if err != nil {
			logger.WithContext(ctx).Error("Trip search failed, falling back to SQL",
				"error", err, "query", query)
			trips, err = s.tripRepo.ListActive(ctx, page, pageSize)
		}
	} else {
		trips, err = s.tripRepo.ListActive(ctx, page, pageSize)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}

	result := make([]models.ListTripsResponseItem, len(trips))
	for i, trip := range trips {
		result[i] = models.ListTripsResponseItem{
			ID:              trip.ID,
			Title:           trip.Title,
			Destination:     trip.Destination,
			Price:           trip.Price,
			MaxParticipants: trip.MaxParticipants,
		}
	}

	return result, nil
}

// Update rewrites a trip. Repricing does not touch existing bookings: their
// totals were fixed at creation time.
func (s *TripService) Update(ctx context.Context, id int64, req *models.CreateTripRequest) (*models.Trip, error) {
	trip, err := s.tripRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	if trip == nil {
		return nil, apperrors.NotFoundError{Resource: "trip"}
	}
	if req.Price < 0 {
		return nil, apperrors.ValidationError{Field: "price", Msg: "must not be negative"}
	}

	trip.Title = req.Title
	trip.Destination = req.Destination
	trip.Price = req.Price
	trip.MaxParticipants = req.MaxParticipants
	if req.Description != "" {
		trip.Description = &req.Description
	}
	if req.Active != nil {
		trip.Active = *req.Active
	}

	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, fmt.Errorf("failed to update trip: %w", err)
	}

	s.indexTrip(ctx, trip)
	return trip, nil
}

// Deactivate pulls a trip from sale. Existing bookings keep their fixed
// totals; the trip just stops being bookable and searchable.
func (s *TripService) Deactivate(ctx context.Context, id int64) error {
	trip, err := s.tripRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get trip: %w", err)
	}
	if trip == nil {
		return apperrors.NotFoundError{Resource: "trip"}
	}

	trip.Active = false
	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return fmt.Errorf("failed to deactivate trip: %w", err)
	}

	if s.searchRepo != nil {
		if err := s.searchRepo.Delete(ctx, id); err != nil {
			logger.WithContext(ctx).Error("Failed to remove trip from search index",
				"error", err, "trip_id", id)
		}
	}

	return nil
}

func (s *TripService) indexTrip(ctx context.Context, trip *models.Trip) {
	if s.searchRepo == nil {
		return
	}
	if err := s.searchRepo.Index(ctx, trip); err != nil {
		logger.WithContext(ctx).Error("Failed to index trip",
			"error", err, "trip_id", trip.ID)
	}
}

package repository

import (
	"context"

	"voyago/internal/models"
	"voyago/internal/search"
)

// TripSearchRepository fronts the Elasticsearch trip index.
type TripSearchRepository struct {
	es *search.ElasticsearchClient
}

func NewTripSearchRepository(es *search.ElasticsearchClient) *TripSearchRepository {
	return &TripSearchRepository{es: es}
}

func (r *TripSearchRepository) Search(ctx context.Context, query, destination string, page, pageSize int) ([]models.Trip, error) {
	return r.es.Search(ctx, query, destination, page, pageSize)
}

func (r *TripSearchRepository) Index(ctx context.Context, trip *models.Trip) error {
	return r.es.IndexTrip(ctx, trip)
}

func (r *TripSearchRepository) Delete(ctx context.Context, id int64) error {
	return r.es.DeleteTrip(ctx, id)
}

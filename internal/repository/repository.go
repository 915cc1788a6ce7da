package repository

import (
	"voyago/internal/database"
	"voyago/internal/search"
)

type Repositories struct {
	Trips    *TripRepository
	Bookings *BookingRepository
	Payments *PaymentRepository
	Users    *UserRepository

	// TripSearch is nil when Elasticsearch is not configured; catalog
	// queries fall back to SQL.
	TripSearch *TripSearchRepository
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Trips:    NewTripRepository(db),
		Bookings: NewBookingRepository(db),
		Payments: NewPaymentRepository(db),
		Users:    NewUserRepository(db),
	}
}

func NewRepositoriesWithSearch(db *database.DB, es *search.ElasticsearchClient) *Repositories {
	repos := NewRepositories(db)
	repos.TripSearch = NewTripSearchRepository(es)
	return repos
}

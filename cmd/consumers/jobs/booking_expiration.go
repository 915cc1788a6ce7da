package jobs

import (
	"context"
	"log/slog"
	"time"

	"voyago/internal/service"
)

const checkInterval = 30 * time.Second

// BookingExpirationJob cancels PENDING bookings that never got a payment
// within the configured TTL, freeing their spot on the trip.
type BookingExpirationJob struct {
	bookings *service.BookingService
	ttl      time.Duration
	ticker   *time.Ticker
	done     chan bool
}

func NewBookingExpirationJob(bookings *service.BookingService, ttl time.Duration) *BookingExpirationJob {
	return &BookingExpirationJob{
		bookings: bookings,
		ttl:      ttl,
		done:     make(chan bool),
	}
}

func (j *BookingExpirationJob) Start(ctx context.Context) {
	slog.Info("Starting booking expiration job",
		"check_interval", checkInterval, "ttl", j.ttl)

	j.ticker = time.NewTicker(checkInterval)

	go j.run(ctx)

	go func() {
		for {
			select {
			case <-j.ticker.C:
				go j.run(ctx)
			case <-j.done:
				slog.Info("Booking expiration job stopped")
				return
			}
		}
	}()
}

func (j *BookingExpirationJob) Stop() {
	if j.ticker != nil {
		j.ticker.Stop()
	}
	close(j.done)
}

func (j *BookingExpirationJob) run(ctx context.Context) {
	cutoff := time.Now().Add(-j.ttl)

	cancelled, err := j.bookings.ExpirePending(ctx, cutoff)
	if err != nil {
		slog.Error("Failed to expire pending bookings", "error", err)
		return
	}

	if cancelled > 0 {
		slog.Info("Expired pending bookings", "count", cancelled)
	}
}

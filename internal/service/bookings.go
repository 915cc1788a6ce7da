package service

import (
	"context"
	"fmt"
	"time"

	"voyago/internal/database"
	apperrors "voyago/internal/errors"
	"voyago/internal/logger"
	"voyago/internal/middleware"
	"voyago/internal/models"
	"voyago/internal/repository"
)

// Tax applied on top of the base price, in basis points. 2100 = 21%.
const taxRateBasisPoints = 2100

type BookingService struct {
	db              *database.DB
	bookingRepo     *repository.BookingRepository
	tripRepo        *repository.TripRepository
	paymentRepo     *repository.PaymentRepository
	providerClient  providerGateway
	natsClient      eventPublisher
	enforceCapacity bool
}

func NewBookingService(db *database.DB, bookingRepo *repository.BookingRepository, tripRepo *repository.TripRepository, paymentRepo *repository.PaymentRepository, providerClient providerGateway, natsClient eventPublisher, enforceCapacity bool) *BookingService {
	return &BookingService{
		db:              db,
		bookingRepo:     bookingRepo,
		tripRepo:        tripRepo,
		paymentRepo:     paymentRepo,
		providerClient:  providerClient,
		natsClient:      natsClient,
		enforceCapacity: enforceCapacity,
	}
}

// computeTotalPrice quotes a booking in minor units using integer arithmetic:
// base price per participant per night, times nights, times participants,
// plus tax. The result is exact, there is no float rounding anywhere.
func computeTotalPrice(pricePerNight int64, nights, participants int) int64 {
	base := pricePerNight * int64(nights) * int64(participants)
	return base * (10000 + taxRateBasisPoints) / 10000
}

func parseBookingDates(startDate, endDate string) (time.Time, time.Time, int, error) {
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return time.Time{}, time.Time{}, 0, apperrors.ValidationError{Field: "start_date", Msg: "must be YYYY-MM-DD"}
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return time.Time{}, time.Time{}, 0, apperrors.ValidationError{Field: "end_date", Msg: "must be YYYY-MM-DD"}
	}

	nights := int(end.Sub(start).Hours() / 24)
	if nights <= 0 {
		return time.Time{}, time.Time{}, 0, apperrors.ValidationError{Field: "end_date", Msg: "must be after start_date"}
	}

	return start, end, nights, nil
}

// Create validates the request against the current catalog, fixes the total
// price and stores the booking as PENDING. The stored total never changes
// afterwards, even if the trip is repriced.
func (s *BookingService) Create(ctx context.Context, userID int64, req *models.CreateBookingRequest) (*models.CreateBookingResponse, error) {
	if req.Participants <= 0 {
		return nil, apperrors.ValidationError{Field: "participants", Msg: "must be positive"}
	}

	start, end, nights, err := parseBookingDates(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	if trip == nil {
		return nil, apperrors.NotFoundError{Resource: "trip"}
	}
	if !trip.Active {
		return nil, apperrors.ValidationError{Field: "trip_id", Msg: "trip is not open for booking"}
	}
	if trip.MaxParticipants > 0 && req.Participants > trip.MaxParticipants {
		return nil, apperrors.ValidationError{Field: "participants", Msg: "exceeds trip capacity"}
	}

	booking := &models.Booking{
		TripID:       trip.ID,
		UserID:       userID,
		Participants: req.Participants,
		StartDate:    start,
		EndDate:      end,
		RoomType:     req.RoomType,
		TotalPrice:   computeTotalPrice(trip.Price, nights, req.Participants),
		Status:       models.BookingStatusPending,
	}
	if req.SpecialRequests != "" {
		booking.SpecialRequests = &req.SpecialRequests
	}

	if s.enforceCapacity {
		if err := s.createWithCapacityCheck(ctx, trip, booking); err != nil {
			return nil, err
		}
	} else if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	middleware.RecordBookingCreated()

	eventData := models.BookingCreatedEvent{
		BookingID:    booking.ID,
		TripID:       booking.TripID,
		UserID:       booking.UserID,
		Participants: booking.Participants,
		TotalPrice:   booking.TotalPrice,
		Timestamp:    time.Now().UTC(),
	}
	if err := s.natsClient.Publish(models.EventBookingCreated, eventData); err != nil {
		logger.WithContext(ctx).Error("Failed to publish booking created event",
			"error", err,
			"booking_id", booking.ID,
			"event_type", models.EventBookingCreated)
	}

	return &models.CreateBookingResponse{
		ID:         booking.ID,
		TotalPrice: booking.TotalPrice,
		Status:     booking.Status,
	}, nil
}

// createWithCapacityCheck serializes on the trip row so two racing bookings
// cannot both slip under the participant limit.
func (s *BookingService) createWithCapacityCheck(ctx context.Context, trip *models.Trip, booking *models.Booking) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	confirmed, err := s.bookingRepo.ConfirmedParticipants(ctx, tx, trip.ID)
	if err != nil {
		return fmt.Errorf("failed to count confirmed participants: %w", err)
	}
	if trip.MaxParticipants > 0 && confirmed+booking.Participants > trip.MaxParticipants {
		return apperrors.ConflictError{Resource: "booking", Msg: "trip is fully booked"}
	}

	if err := s.bookingRepo.CreateTx(ctx, tx, booking); err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return tx.Commit()
}

func (s *BookingService) List(ctx context.Context, userID int64) ([]models.ListBookingsResponseItem, error) {
	bookings, err := s.bookingRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings: %w", err)
	}

	result := make([]models.ListBookingsResponseItem, len(bookings))
	for i, booking := range bookings {
		result[i] = models.ListBookingsResponseItem{
			ID:           booking.ID,
			TripID:       booking.TripID,
			Participants: booking.Participants,
			TotalPrice:   booking.TotalPrice,
			Status:       booking.Status,
		}
	}

	return result, nil
}

func (s *BookingService) Get(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return nil, apperrors.NotFoundError{Resource: "booking"}
	}
	return booking, nil
}

// SetStatus is the admin override: it writes any status unconditionally and
// keeps an attributable trail in the logs and on the event bus.
func (s *BookingService) SetStatus(ctx context.Context, id int64, status string) error {
	switch status {
	case models.BookingStatusPending, models.BookingStatusConfirmed,
		models.BookingStatusCancelled, models.BookingStatusCompleted:
	default:
		return apperrors.ValidationError{Field: "status", Msg: "unknown booking status"}
	}

	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil {
		return apperrors.NotFoundError{Resource: "booking"}
	}
	if booking.Status == status {
		return nil
	}

	if status == models.BookingStatusConfirmed && s.enforceCapacity {
		if err := s.requireCapacity(ctx, booking); err != nil {
			return err
		}
	}

	updated, err := s.bookingRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if !updated {
		return apperrors.NotFoundError{Resource: "booking"}
	}

	logger.WithContext(ctx).Warn("Admin booking status override",
		"booking_id", id,
		"from_status", booking.Status,
		"to_status", status)

	if status == models.BookingStatusCancelled && booking.Status == models.BookingStatusConfirmed {
		s.flagRefund(ctx, id)
	}

	s.publishStatusEvent(ctx, booking, status, models.ActorAdmin)
	return nil
}

// flagRefund marks the completed payment of a cancelled-after-confirmation
// booking for refund. Refund execution happens outside this service.
func (s *BookingService) flagRefund(ctx context.Context, bookingID int64) {
	log := logger.WithContext(ctx)

	payment, err := s.paymentRepo.GetLatestActiveByBookingID(ctx, bookingID)
	if err != nil {
		log.Error("Failed to look up payment for refund flag", "error", err, "booking_id", bookingID)
		return
	}
	if payment == nil || payment.Status != models.PaymentStatusCompleted {
		return
	}

	if err := s.paymentRepo.MarkRefundRequested(ctx, payment.ID); err != nil {
		log.Error("Failed to flag payment for refund", "error", err, "payment_id", payment.ID)
		return
	}

	log.Warn("Payment flagged for refund", "payment_id", payment.ID, "booking_id", bookingID)
}

// requireCapacity rejects an admin confirmation that would push the trip
// over its participant limit. Unlike the payment-driven path, no money has
// moved yet, so refusing is safe.
func (s *BookingService) requireCapacity(ctx context.Context, booking *models.Booking) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	trip, err := s.tripRepo.GetByIDForUpdate(ctx, tx, booking.TripID)
	if err != nil {
		return fmt.Errorf("failed to lock trip: %w", err)
	}
	if trip == nil || trip.MaxParticipants <= 0 {
		return nil
	}

	confirmed, err := s.bookingRepo.ConfirmedParticipants(ctx, tx, booking.TripID)
	if err != nil {
		return fmt.Errorf("failed to count confirmed participants: %w", err)
	}
	if confirmed+booking.Participants > trip.MaxParticipants {
		return apperrors.ConflictError{Resource: "booking", Msg: "trip is fully booked"}
	}

	return tx.Commit()
}

// Cancel is the user-facing cancellation: only PENDING bookings can be
// cancelled, and any in-flight payment intent is voided with the provider.
func (s *BookingService) Cancel(ctx context.Context, id, userID int64) error {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil || booking.UserID != userID {
		return apperrors.NotFoundError{Resource: "booking"}
	}

	updated, err := s.bookingRepo.UpdateStatusFrom(ctx, id, models.BookingStatusPending, models.BookingStatusCancelled)
	if err != nil {
		return fmt.Errorf("failed to cancel booking: %w", err)
	}
	if !updated {
		return apperrors.ConflictError{
			Resource: "booking",
			Msg:      fmt.Sprintf("cannot cancel booking in status %s", booking.Status),
		}
	}

	s.voidActivePayment(ctx, id)
	s.publishStatusEvent(ctx, booking, models.BookingStatusCancelled, models.ActorUser)
	return nil
}

// voidActivePayment cancels the latest in-flight payment for the booking.
// Best-effort: the provider webhook remains the source of truth for the
// final payment outcome.
func (s *BookingService) voidActivePayment(ctx context.Context, bookingID int64) {
	log := logger.WithContext(ctx)

	payment, err := s.paymentRepo.GetLatestActiveByBookingID(ctx, bookingID)
	if err != nil {
		log.Error("Failed to look up active payment", "error", err, "booking_id", bookingID)
		return
	}
	if payment == nil || payment.Status != models.PaymentStatusPending {
		return
	}

	if payment.ProviderRef != nil && s.providerClient != nil {
		if err := s.providerClient.CancelIntent(*payment.ProviderRef, "booking cancelled"); err != nil {
			log.Warn("Failed to cancel provider intent",
				"error", err, "payment_id", payment.ID, "provider_ref", *payment.ProviderRef)
		}
	}
}

// Delete removes a booking entirely. Admin path; payments cascade at the
// schema level.
func (s *BookingService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.bookingRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if !deleted {
		return apperrors.NotFoundError{Resource: "booking"}
	}

	logger.WithContext(ctx).Warn("Booking deleted", "booking_id", id)
	return nil
}

// ExpirePending cancels PENDING bookings older than the cutoff that have no
// authoritative payment. Used by the background expiration job.
func (s *BookingService) ExpirePending(ctx context.Context, cutoff time.Time) (int, error) {
	expired, err := s.bookingRepo.GetExpiredPending(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired bookings: %w", err)
	}

	cancelled := 0
	for _, booking := range expired {
		updated, err := s.bookingRepo.UpdateStatusFrom(ctx, booking.ID,
			models.BookingStatusPending, models.BookingStatusCancelled)
		if err != nil {
			logger.WithContext(ctx).Error("Failed to expire booking",
				"error", err, "booking_id", booking.ID)
			continue
		}
		if !updated {
			// A payment settled it between the query and the write.
			continue
		}

		cancelled++
		s.publishStatusEvent(ctx, &booking, models.BookingStatusCancelled, models.ActorSystem)
	}

	return cancelled, nil
}

func (s *BookingService) publishStatusEvent(ctx context.Context, booking *models.Booking, status, actor string) {
	var subject string
	switch status {
	case models.BookingStatusConfirmed:
		subject = models.EventBookingConfirmed
	case models.BookingStatusCancelled:
		subject = models.EventBookingCancelled
	default:
		return
	}

	eventData := models.BookingStatusEvent{
		BookingID: booking.ID,
		TripID:    booking.TripID,
		Status:    status,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
	}

	if err := s.natsClient.Publish(subject, eventData); err != nil {
		logger.WithContext(ctx).Error("Failed to publish booking status event",
			"error", err,
			"booking_id", booking.ID,
			"event_type", subject)
	}
}

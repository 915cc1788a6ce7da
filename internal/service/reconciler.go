package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"voyago/internal/database"
	apperrors "voyago/internal/errors"
	"voyago/internal/logger"
	"voyago/internal/middleware"
	"voyago/internal/models"
	"voyago/internal/repository"
)

// Alert reasons attached to reconciliation.alert events.
const (
	AlertDanglingBooking  = "dangling_booking_reference"
	AlertBookingSettled   = "booking_already_settled"
	AlertCancelledSettled = "payment_cancelled_after_settlement"
	AlertOverCapacity     = "over_capacity_confirmation"
)

// Reconciler propagates terminal payment outcomes into the booking ledger.
// All writes for one outcome happen in a single database transaction. When
// the ledgers disagree in a way that cannot be repaired automatically, the
// payment write still commits (the money has already moved) and the
// disagreement is logged and published to the alert channel.
type Reconciler struct {
	db              *database.DB
	paymentRepo     *repository.PaymentRepository
	bookingRepo     *repository.BookingRepository
	tripRepo        *repository.TripRepository
	natsClient      eventPublisher
	enforceCapacity bool
}

func NewReconciler(db *database.DB, paymentRepo *repository.PaymentRepository, bookingRepo *repository.BookingRepository, tripRepo *repository.TripRepository, natsClient eventPublisher, enforceCapacity bool) *Reconciler {
	return &Reconciler{
		db:              db,
		paymentRepo:     paymentRepo,
		bookingRepo:     bookingRepo,
		tripRepo:        tripRepo,
		natsClient:      natsClient,
		enforceCapacity: enforceCapacity,
	}
}

// outcomeEffects collects everything to publish after the transaction commits.
type outcomeEffects struct {
	payment      *models.Payment
	target       string
	bookingEvent *models.BookingStatusEvent
	alerts       []models.ReconciliationAlertEvent
}

// ApplyPaymentOutcome moves a payment to a terminal status and propagates the
// result to its booking in the same transaction.
//
// Replaying an outcome the payment already has is a no-op: nothing is written
// and nothing is re-published. Applying a different terminal outcome to an
// already-settled payment is a conflict and is rejected.
func (rc *Reconciler) ApplyPaymentOutcome(ctx context.Context, paymentID int64, target, actor string) error {
	if !models.IsTerminalPaymentStatus(target) {
		return apperrors.ValidationError{Field: "status", Msg: "must be COMPLETED or CANCELLED"}
	}

	log := logger.WithContext(ctx)

	tx, err := rc.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	payment, err := rc.paymentRepo.GetByIDForUpdate(ctx, tx, paymentID)
	if err != nil {
		return fmt.Errorf("failed to lock payment: %w", err)
	}
	if payment == nil {
		return apperrors.NotFoundError{Resource: "payment"}
	}

	if payment.Status == target {
		// Replay of an already-applied outcome.
		log.Info("Payment outcome replayed, no-op",
			"payment_id", payment.ID, "status", target, "actor", actor)
		return nil
	}
	if models.IsTerminalPaymentStatus(payment.Status) {
		return apperrors.ConflictError{
			Resource: "payment",
			Msg:      fmt.Sprintf("already settled as %s", payment.Status),
		}
	}

	var paidAt *time.Time
	if target == models.PaymentStatusCompleted {
		now := time.Now().UTC()
		paidAt = &now
	}

	if err := rc.paymentRepo.UpdateStatusTx(ctx, tx, payment.ID, target, paidAt); err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	effects := outcomeEffects{payment: payment, target: target}

	if payment.BookingID != nil {
		if err := rc.propagateToBooking(ctx, tx, payment, target, actor, &effects); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	rc.publishEffects(ctx, &effects)
	return nil
}

func (rc *Reconciler) propagateToBooking(ctx context.Context, tx *sql.Tx, payment *models.Payment, target, actor string, effects *outcomeEffects) error {
	log := logger.WithContext(ctx)

	booking, err := rc.bookingRepo.GetByIDForUpdate(ctx, tx, *payment.BookingID)
	if err != nil {
		return fmt.Errorf("failed to lock booking: %w", err)
	}

	if booking == nil {
		// The payment points at a booking that no longer exists. The money
		// has still moved, so the payment write stands and the disagreement
		// goes to the alert channel.
		log.Error("Payment references missing booking",
			"payment_id", payment.ID, "booking_id", *payment.BookingID, "status", target)
		effects.alerts = append(effects.alerts, models.ReconciliationAlertEvent{
			PaymentID:     payment.ID,
			BookingID:     payment.BookingID,
			PaymentStatus: target,
			Reason:        AlertDanglingBooking,
			Timestamp:     time.Now().UTC(),
		})
		return nil
	}

	switch target {
	case models.PaymentStatusCompleted:
		return rc.confirmBooking(ctx, tx, payment, booking, actor, effects)
	case models.PaymentStatusCancelled:
		return rc.releaseBooking(ctx, tx, payment, booking, actor, effects)
	}
	return nil
}

func (rc *Reconciler) confirmBooking(ctx context.Context, tx *sql.Tx, payment *models.Payment, booking *models.Booking, actor string, effects *outcomeEffects) error {
	log := logger.WithContext(ctx)

	switch booking.Status {
	case models.BookingStatusPending:
		if rc.enforceCapacity {
			over, err := rc.checkCapacity(ctx, tx, booking)
			if err != nil {
				return err
			}
			if over {
				// The payment is settled, so the confirmation proceeds
				// anyway and the overbooking is surfaced for manual
				// handling.
				log.Warn("Confirming booking over trip capacity",
					"booking_id", booking.ID, "trip_id", booking.TripID,
					"participants", booking.Participants)
				effects.alerts = append(effects.alerts, models.ReconciliationAlertEvent{
					PaymentID:     payment.ID,
					BookingID:     payment.BookingID,
					PaymentStatus: models.PaymentStatusCompleted,
					BookingStatus: booking.Status,
					Reason:        AlertOverCapacity,
					Timestamp:     time.Now().UTC(),
				})
			}
		}

		updated, err := rc.bookingRepo.UpdateStatusFromTx(ctx, tx, booking.ID,
			models.BookingStatusPending, models.BookingStatusConfirmed)
		if err != nil {
			return fmt.Errorf("failed to confirm booking: %w", err)
		}
		if updated {
			effects.bookingEvent = &models.BookingStatusEvent{
				BookingID: booking.ID,
				TripID:    booking.TripID,
				Status:    models.BookingStatusConfirmed,
				Actor:     actor,
				Timestamp: time.Now().UTC(),
			}
		}

	case models.BookingStatusConfirmed:
		// Already where the completed payment wants it.

	default:
		// The booking settled in a different terminal state while the
		// payment completed. Both facts stand; operators resolve it.
		log.Error("Completed payment against settled booking",
			"payment_id", payment.ID, "booking_id", booking.ID,
			"booking_status", booking.Status)
		effects.alerts = append(effects.alerts, models.ReconciliationAlertEvent{
			PaymentID:     payment.ID,
			BookingID:     payment.BookingID,
			PaymentStatus: models.PaymentStatusCompleted,
			BookingStatus: booking.Status,
			Reason:        AlertBookingSettled,
			Timestamp:     time.Now().UTC(),
		})
	}

	return nil
}

func (rc *Reconciler) releaseBooking(ctx context.Context, tx *sql.Tx, payment *models.Payment, booking *models.Booking, actor string, effects *outcomeEffects) error {
	log := logger.WithContext(ctx)

	switch booking.Status {
	case models.BookingStatusPending:
		updated, err := rc.bookingRepo.UpdateStatusFromTx(ctx, tx, booking.ID,
			models.BookingStatusPending, models.BookingStatusCancelled)
		if err != nil {
			return fmt.Errorf("failed to cancel booking: %w", err)
		}
		if updated {
			effects.bookingEvent = &models.BookingStatusEvent{
				BookingID: booking.ID,
				TripID:    booking.TripID,
				Status:    models.BookingStatusCancelled,
				Actor:     actor,
				Timestamp: time.Now().UTC(),
			}
		}

	case models.BookingStatusCancelled:
		// Already released.

	default:
		log.Error("Cancelled payment against settled booking",
			"payment_id", payment.ID, "booking_id", booking.ID,
			"booking_status", booking.Status)
		effects.alerts = append(effects.alerts, models.ReconciliationAlertEvent{
			PaymentID:     payment.ID,
			BookingID:     payment.BookingID,
			PaymentStatus: models.PaymentStatusCancelled,
			BookingStatus: booking.Status,
			Reason:        AlertCancelledSettled,
			Timestamp:     time.Now().UTC(),
		})
	}

	return nil
}

func (rc *Reconciler) checkCapacity(ctx context.Context, tx *sql.Tx, booking *models.Booking) (bool, error) {
	trip, err := rc.tripRepo.GetByIDForUpdate(ctx, tx, booking.TripID)
	if err != nil {
		return false, fmt.Errorf("failed to lock trip: %w", err)
	}
	if trip == nil || trip.MaxParticipants <= 0 {
		return false, nil
	}

	confirmed, err := rc.bookingRepo.ConfirmedParticipants(ctx, tx, booking.TripID)
	if err != nil {
		return false, fmt.Errorf("failed to count confirmed participants: %w", err)
	}

	return confirmed+booking.Participants > trip.MaxParticipants, nil
}

func (rc *Reconciler) publishEffects(ctx context.Context, effects *outcomeEffects) {
	log := logger.WithContext(ctx)

	middleware.RecordPaymentProcessed(effects.target)

	paymentSubject := models.EventPaymentCompleted
	if effects.target == models.PaymentStatusCancelled {
		paymentSubject = models.EventPaymentCancelled
	}

	paymentEvent := models.PaymentOutcomeEvent{
		PaymentID:   effects.payment.ID,
		BookingID:   effects.payment.BookingID,
		Status:      effects.target,
		ProviderRef: effects.payment.ProviderRef,
		Timestamp:   time.Now().UTC(),
	}
	if err := rc.natsClient.Publish(paymentSubject, paymentEvent); err != nil {
		log.Error("Failed to publish payment outcome event",
			"error", err, "payment_id", effects.payment.ID, "event_type", paymentSubject)
	}

	if effects.bookingEvent != nil {
		subject := models.EventBookingConfirmed
		if effects.bookingEvent.Status == models.BookingStatusCancelled {
			subject = models.EventBookingCancelled
		}
		if err := rc.natsClient.Publish(subject, effects.bookingEvent); err != nil {
			log.Error("Failed to publish booking status event",
				"error", err, "booking_id", effects.bookingEvent.BookingID, "event_type", subject)
		}
	}

	for _, alert := range effects.alerts {
		middleware.RecordReconciliationAlert(alert.Reason)
		if err := rc.natsClient.Publish(models.EventReconciliationAlert, alert); err != nil {
			log.Error("Failed to publish reconciliation alert",
				"error", err, "payment_id", alert.PaymentID, "reason", alert.Reason)
		}
	}
}

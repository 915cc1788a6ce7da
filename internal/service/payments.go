package service

import (
	"context"
	"fmt"
	"time"

	apperrors "voyago/internal/errors"
	"voyago/internal/logger"
	"voyago/internal/models"
	"voyago/internal/repository"
)

type PaymentService struct {
	paymentRepo    *repository.PaymentRepository
	bookingRepo    *repository.BookingRepository
	providerClient providerGateway
	natsClient     eventPublisher
	reconciler     *Reconciler
}

func NewPaymentService(paymentRepo *repository.PaymentRepository, bookingRepo *repository.BookingRepository, providerClient providerGateway, natsClient eventPublisher, reconciler *Reconciler) *PaymentService {
	return &PaymentService{
		paymentRepo:    paymentRepo,
		bookingRepo:    bookingRepo,
		providerClient: providerClient,
		natsClient:     natsClient,
		reconciler:     reconciler,
	}
}

// CreateIntent opens a PENDING payment for a booking and registers the
// intent with the provider. The amount always comes from the stored booking
// total, never from the request.
func (s *PaymentService) CreateIntent(ctx context.Context, userID int64, req *models.CreateIntentRequest) (*models.CreateIntentResponse, error) {
	booking, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking == nil || booking.UserID != userID {
		return nil, apperrors.NotFoundError{Resource: "booking"}
	}
	if booking.Status != models.BookingStatusPending {
		return nil, apperrors.ConflictError{
			Resource: "booking",
			Msg:      fmt.Sprintf("cannot pay for booking in status %s", booking.Status),
		}
	}

	existing, err := s.paymentRepo.GetLatestActiveByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active payment: %w", err)
	}
	if existing != nil && existing.Status == models.PaymentStatusPending && existing.ProviderRef != nil {
		// An intent is already in flight; hand it back instead of opening a
		// second one.
		return &models.CreateIntentResponse{
			PaymentID:   existing.ID,
			ProviderRef: *existing.ProviderRef,
		}, nil
	}

	orderRef := fmt.Sprintf("booking-%d-%d", booking.ID, time.Now().Unix())
	intent, err := s.providerClient.CreateIntent(booking.TotalPrice, orderRef,
		fmt.Sprintf("Trip booking #%d", booking.ID), "")
	if err != nil {
		return nil, fmt.Errorf("failed to create provider intent: %w", err)
	}

	payment := &models.Payment{
		BookingID:   &booking.ID,
		Amount:      booking.TotalPrice,
		Status:      models.PaymentStatusPending,
		ProviderRef: &intent.IntentID,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	eventData := models.PaymentInitiatedEvent{
		PaymentID:   payment.ID,
		BookingID:   payment.BookingID,
		Amount:      payment.Amount,
		ProviderRef: intent.IntentID,
		Timestamp:   time.Now().UTC(),
	}
	if err := s.natsClient.Publish(models.EventPaymentInitiated, eventData); err != nil {
		logger.WithContext(ctx).Error("Failed to publish payment initiated event",
			"error", err,
			"payment_id", payment.ID,
			"event_type", models.EventPaymentInitiated)
	}

	return &models.CreateIntentResponse{
		PaymentID:    payment.ID,
		ProviderRef:  intent.IntentID,
		ClientSecret: intent.ClientSecret,
		PaymentURL:   intent.PaymentURL,
	}, nil
}

// VerifyNotification delegates webhook signature verification to the
// provider client.
func (s *PaymentService) VerifyNotification(payload *models.WebhookPayload) bool {
	return s.providerClient.VerifyNotification(payload)
}

// ApplyProviderOutcome maps a verified webhook notification onto the
// matching payment and runs it through the reconciler. An unknown provider
// reference is reported as NotFound; the caller decides how loudly to fail.
func (s *PaymentService) ApplyProviderOutcome(ctx context.Context, payload *models.WebhookPayload) error {
	payment, err := s.paymentRepo.GetByProviderRef(ctx, payload.ProviderRef)
	if err != nil {
		return fmt.Errorf("failed to look up payment: %w", err)
	}
	if payment == nil {
		return apperrors.NotFoundError{Resource: "payment"}
	}

	var target string
	switch payload.Outcome {
	case "succeeded", "completed":
		target = models.PaymentStatusCompleted
	case "failed", "cancelled", "expired":
		target = models.PaymentStatusCancelled
	default:
		return apperrors.ValidationError{Field: "outcome", Msg: "unknown payment outcome"}
	}

	return s.reconciler.ApplyPaymentOutcome(ctx, payment.ID, target, models.ActorSystem)
}

// RecordManual is the admin path for entering a payment directly, e.g. a
// bank transfer taken outside the provider. A COMPLETED entry linked to a
// booking goes through the reconciler so the booking ledger moves with it.
func (s *PaymentService) RecordManual(ctx context.Context, req *models.RecordManualPaymentRequest) (*models.Payment, error) {
	if req.Amount <= 0 {
		return nil, apperrors.ValidationError{Field: "amount", Msg: "must be positive"}
	}

	status := req.Status
	if status == "" {
		status = models.PaymentStatusPending
	}
	switch status {
	case models.PaymentStatusPending, models.PaymentStatusCompleted, models.PaymentStatusCancelled:
	default:
		return nil, apperrors.ValidationError{Field: "status", Msg: "unknown payment status"}
	}

	if req.BookingID != nil {
		booking, err := s.bookingRepo.GetByID(ctx, *req.BookingID)
		if err != nil {
			return nil, fmt.Errorf("failed to get booking: %w", err)
		}
		if booking == nil {
			return nil, apperrors.NotFoundError{Resource: "booking"}
		}
	}

	payment := &models.Payment{
		BookingID:     req.BookingID,
		Amount:        req.Amount,
		Status:        models.PaymentStatusPending,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	if models.IsTerminalPaymentStatus(status) {
		if err := s.reconciler.ApplyPaymentOutcome(ctx, payment.ID, status, models.ActorAdmin); err != nil {
			return nil, err
		}
		payment.Status = status
	}

	return payment, nil
}

// SetStatus is the admin edit on a payment. Terminal targets go through the
// reconciler so the linked booking is kept consistent; a concurrent
// settlement shows up as a conflict and is retried once before giving up.
func (s *PaymentService) SetStatus(ctx context.Context, id int64, status string) error {
	if !models.IsTerminalPaymentStatus(status) {
		return apperrors.ValidationError{Field: "status", Msg: "must be COMPLETED or CANCELLED"}
	}

	err := s.reconciler.ApplyPaymentOutcome(ctx, id, status, models.ActorAdmin)
	if apperrors.IsConflict(err) {
		logger.WithContext(ctx).Warn("Payment status conflict, retrying once",
			"payment_id", id, "target_status", status)
		err = s.reconciler.ApplyPaymentOutcome(ctx, id, status, models.ActorAdmin)
	}
	return err
}

// Get returns a single payment.
func (s *PaymentService) Get(ctx context.Context, id int64) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return nil, apperrors.NotFoundError{Resource: "payment"}
	}
	return payment, nil
}

// RequestRefund flags a settled payment for refund. Execution happens
// outside this system.
func (s *PaymentService) RequestRefund(ctx context.Context, id int64) error {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get payment: %w", err)
	}
	if payment == nil {
		return apperrors.NotFoundError{Resource: "payment"}
	}
	if payment.Status != models.PaymentStatusCompleted {
		return apperrors.ConflictError{Resource: "payment", Msg: "only completed payments can be refunded"}
	}

	if err := s.paymentRepo.MarkRefundRequested(ctx, id); err != nil {
		return fmt.Errorf("failed to mark refund: %w", err)
	}

	logger.WithContext(ctx).Info("Refund requested", "payment_id", id)
	return nil
}

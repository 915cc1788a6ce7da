package handlers

import (
	"net/http"

	apperrors "voyago/internal/errors"
	"voyago/internal/logger"
	"voyago/internal/middleware"
	"voyago/internal/models"

	"github.com/gin-gonic/gin"
)

// Payments handlers

// CreatePaymentIntent - POST /api/payments/create-intent
func (h *Handlers) CreatePaymentIntent(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Payments.CreateIntent(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// PaymentWebhook - POST /api/payments/webhook
//
// Unauthenticated route: trust comes from the provider signature. A payload
// that fails verification is rejected with 400 before any state is touched.
// Verified payloads always get a 200, including replays and payloads the
// ledger disagrees with, so the provider stops redelivering; disagreements
// are logged and alerted instead of bounced.
func (h *Handlers) PaymentWebhook(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log := logger.WithContext(c.Request.Context())

	if !h.services.Payments.VerifyNotification(&payload) {
		log.Warn("Webhook signature verification failed",
			"provider_ref", payload.ProviderRef, "event_type", payload.EventType)
		respondError(c, apperrors.ProviderVerificationError{})
		return
	}

	err := h.services.Payments.ApplyProviderOutcome(c.Request.Context(), &payload)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case apperrors.IsNotFound(err):
		log.Error("Webhook references unknown payment",
			"provider_ref", payload.ProviderRef, "outcome", payload.Outcome)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
	case apperrors.IsConflict(err):
		log.Error("Webhook outcome conflicts with settled payment",
			"provider_ref", payload.ProviderRef, "outcome", payload.Outcome, "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "conflict"})
	case apperrors.IsValidation(err):
		respondError(c, err)
	default:
		respondError(c, err)
	}
}

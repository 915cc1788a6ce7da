package handlers

import (
	"net/http"
	"strconv"

	"voyago/internal/models"

	"github.com/gin-gonic/gin"
)

// Finances handlers (admin)

// RecordTransaction - POST /api/finances/transactions
// Manual entry for money taken outside the provider, e.g. bank transfers.
func (h *Handlers) RecordTransaction(c *gin.Context) {
	var req models.RecordManualPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payment, err := h.services.Payments.RecordManual(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, payment)
}

// GetTransaction - GET /api/finances/transactions/:id
func (h *Handlers) GetTransaction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	payment, err := h.services.Payments.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, payment)
}

// SetTransactionStatus - PATCH /api/finances/transactions/:id/status
// Terminal statuses run through the reconciler so the linked booking moves
// with the payment.
func (h *Handlers) SetTransactionStatus(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	var req models.SetPaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.services.Payments.SetStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

// RequestRefund - POST /api/finances/transactions/:id/refund
func (h *Handlers) RequestRefund(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid transaction id"})
		return
	}

	if err := h.services.Payments.RequestRefund(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusOK)
}

package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voyago/internal/database"
	"voyago/internal/external"
	"voyago/internal/middleware"
	"voyago/internal/models"
	"voyago/internal/repository"
	"voyago/internal/service"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	subjects []string
}

func (r *recordingPublisher) Publish(subject string, data interface{}) error {
	r.subjects = append(r.subjects, subject)
	return nil
}

type testEnv struct {
	router   *gin.Engine
	mock     sqlmock.Sqlmock
	provider *external.ProviderClient
	events   *recordingPublisher
}

func setupTest(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := &database.DB{DB: sqlDB}
	repos := repository.NewRepositories(db)
	provider := external.NewProviderClient(external.ProviderConfig{
		BaseURL:       "http://unused",
		MerchantID:    "merchant-1",
		SigningSecret: "test-secret",
		Currency:      "EUR",
	})
	events := &recordingPublisher{}

	reconciler := service.NewReconciler(db, repos.Payments, repos.Bookings, repos.Trips, events, false)
	services := &service.Services{
		Trips:      service.NewTripService(repos.Trips, nil),
		Bookings:   service.NewBookingService(db, repos.Bookings, repos.Trips, repos.Payments, provider, events, false),
		Payments:   service.NewPaymentService(repos.Payments, repos.Bookings, provider, events, reconciler),
		Reconciler: reconciler,
	}

	h := NewHandlers(services)

	router := gin.New()
	api := router.Group("/api")
	api.POST("/payments/webhook", h.PaymentWebhook)

	authed := api.Group("")
	authed.Use(func(c *gin.Context) {
		// Stand-in for BasicAuth: user 1 is logged in
		c.Set("user_id", int64(1))
		c.Request = c.Request.WithContext(middleware.ContextWithUserID(c.Request.Context(), 1))
	})
	{
		authed.POST("/bookings", h.CreateBooking)
		authed.GET("/bookings/my-bookings", h.ListMyBookings)
		authed.PATCH("/bookings/:id/status", h.SetBookingStatus)
		authed.PATCH("/bookings/:id/cancel", h.CancelBooking)
		authed.POST("/payments/create-intent", h.CreatePaymentIntent)
		authed.POST("/finances/transactions", h.RecordTransaction)
		authed.PATCH("/finances/transactions/:id/status", h.SetTransactionStatus)
	}

	return &testEnv{router: router, mock: mock, provider: provider, events: events}
}

func (e *testEnv) request(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestCreateBookingMissingFields(t *testing.T) {
	env := setupTest(t)

	w := env.request(t, http.MethodPost, "/api/bookings", gin.H{"trip_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBookingInvalidDates(t *testing.T) {
	env := setupTest(t)

	w := env.request(t, http.MethodPost, "/api/bookings", models.CreateBookingRequest{
		TripID:       1,
		Participants: 2,
		StartDate:    "2026-06-04",
		EndDate:      "2026-06-01",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateBookingUnknownTrip(t *testing.T) {
	env := setupTest(t)

	env.mock.ExpectQuery(`FROM trips`).
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "description", "destination", "price", "max_participants",
			"active", "created_at", "updated_at",
		}))

	w := env.request(t, http.MethodPost, "/api/bookings", models.CreateBookingRequest{
		TripID:       404,
		Participants: 2,
		StartDate:    "2026-06-01",
		EndDate:      "2026-06-04",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateBookingQuotesExactTotal(t *testing.T) {
	env := setupTest(t)
	now := time.Now()

	env.mock.ExpectQuery(`FROM trips`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "title", "description", "destination", "price", "max_participants",
			"active", "created_at", "updated_at",
		}).AddRow(2, "Lisbon getaway", nil, "Lisbon", 10000, 10, true, now, now))
	env.mock.ExpectQuery(`INSERT INTO bookings`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).
			AddRow(5, now, now))

	w := env.request(t, http.MethodPost, "/api/bookings", models.CreateBookingRequest{
		TripID:       2,
		Participants: 2,
		StartDate:    "2026-06-01",
		EndDate:      "2026-06-04",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp models.CreateBookingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// 100.00 x 3 nights x 2 participants x 1.21 tax = 726.00
	assert.Equal(t, int64(72600), resp.TotalPrice)
	assert.Equal(t, models.BookingStatusPending, resp.Status)
	assert.Equal(t, []string{models.EventBookingCreated}, env.events.subjects)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := setupTest(t)

	w := env.request(t, http.MethodPost, "/api/payments/webhook", models.WebhookPayload{
		EventType:   "payment.outcome",
		ProviderRef: "intent-abc",
		Outcome:     "succeeded",
		Timestamp:   "2026-06-01T12:00:00Z",
		Token:       "forged",
	})

	// No state is touched: no DB expectations were set
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.events.subjects)
}

func TestWebhookIgnoresUnknownReference(t *testing.T) {
	env := setupTest(t)

	payload := models.WebhookPayload{
		EventType:   "payment.outcome",
		ProviderRef: "intent-missing",
		Outcome:     "succeeded",
		Timestamp:   "2026-06-01T12:00:00Z",
	}
	payload.Token = env.provider.SignNotification(&payload)

	env.mock.ExpectQuery(`FROM payments WHERE provider_ref = \$1`).
		WithArgs("intent-missing").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "booking_id", "amount", "status", "provider_ref", "paid_at",
			"customer_name", "customer_email", "refund_requested", "created_at", "updated_at",
		}))

	w := env.request(t, http.MethodPost, "/api/payments/webhook", payload)

	// 200 so the provider stops redelivering; the miss is logged instead
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ignored")
}

func TestWebhookAppliesOutcome(t *testing.T) {
	env := setupTest(t)
	now := time.Now()
	bookingID := int64(3)

	payload := models.WebhookPayload{
		EventType:   "payment.outcome",
		ProviderRef: "intent-abc",
		Outcome:     "succeeded",
		Timestamp:   "2026-06-01T12:00:00Z",
	}
	payload.Token = env.provider.SignNotification(&payload)

	paymentCols := []string{
		"id", "booking_id", "amount", "status", "provider_ref", "paid_at",
		"customer_name", "customer_email", "refund_requested", "created_at", "updated_at",
	}
	bookingCols := []string{
		"id", "trip_id", "user_id", "participants", "start_date", "end_date",
		"room_type", "special_requests", "total_price", "status", "created_at", "updated_at",
	}

	env.mock.ExpectQuery(`FROM payments WHERE provider_ref = \$1`).
		WithArgs("intent-abc").
		WillReturnRows(sqlmock.NewRows(paymentCols).
			AddRow(9, bookingID, 72600, models.PaymentStatusPending, "intent-abc", nil, "", "", false, now, now))
	env.mock.ExpectBegin()
	env.mock.ExpectQuery(`FROM payments WHERE id = \$1 FOR UPDATE`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows(paymentCols).
			AddRow(9, bookingID, 72600, models.PaymentStatusPending, "intent-abc", nil, "", "", false, now, now))
	env.mock.ExpectExec(`UPDATE payments SET status`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectQuery(`FROM bookings WHERE id = \$1 FOR UPDATE`).
		WithArgs(bookingID).
		WillReturnRows(sqlmock.NewRows(bookingCols).
			AddRow(bookingID, 2, 1, 2, now, now.Add(72*time.Hour), "double", nil, 72600,
				models.BookingStatusPending, now, now))
	env.mock.ExpectExec(`UPDATE bookings SET status`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	env.mock.ExpectCommit()

	w := env.request(t, http.MethodPost, "/api/payments/webhook", payload)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, []string{models.EventPaymentCompleted, models.EventBookingConfirmed}, env.events.subjects)
	assert.NoError(t, env.mock.ExpectationsWereMet())
}

func TestSetBookingStatusInvalidID(t *testing.T) {
	env := setupTest(t)

	w := env.request(t, http.MethodPatch, "/api/bookings/abc/status",
		models.SetBookingStatusRequest{Status: models.BookingStatusConfirmed})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetTransactionStatusRejectsNonTerminal(t *testing.T) {
	env := setupTest(t)

	w := env.request(t, http.MethodPatch, "/api/finances/transactions/9/status",
		models.SetPaymentStatusRequest{Status: models.PaymentStatusPending})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRecordTransactionRejectsZeroAmount(t *testing.T) {
	env := setupTest(t)

	w := env.request(t, http.MethodPost, "/api/finances/transactions",
		gin.H{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

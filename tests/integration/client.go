package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"voyago/internal/models"
)

// The suite runs against a live stack (API, Postgres, NATS). It is skipped
// unless VOYAGO_API_URL points at a running server.
//
//	VOYAGO_API_URL=http://localhost:8080 go test ./tests/integration/...

func apiBaseURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("VOYAGO_API_URL")
	if url == "" {
		t.Skip("VOYAGO_API_URL not set, skipping integration tests")
	}
	return url
}

// TestClient provides methods for exercising the API
type TestClient struct {
	BaseURL    string
	Email      string
	Password   string
	HTTPClient *http.Client
}

func NewTestClient(t *testing.T) *TestClient {
	return &TestClient{
		BaseURL:  apiBaseURL(t),
		Email:    getEnvDefault("VOYAGO_TEST_EMAIL", "admin@voyago.test"),
		Password: getEnvDefault("VOYAGO_TEST_PASSWORD", "admin123"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.Email, c.Password)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

func (c *TestClient) decodeOrFail(t *testing.T, resp *http.Response, wantStatus int, out interface{}) {
	t.Helper()
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status %d, got %d. Body: %s", wantStatus, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
}

// HealthCheck verifies the API is up
func (c *TestClient) HealthCheck(t *testing.T) {
	resp := c.makeRequest(t, "GET", "/health", nil)
	c.decodeOrFail(t, resp, http.StatusOK, nil)
}

// CreateTrip creates a catalog trip (requires admin credentials)
func (c *TestClient) CreateTrip(t *testing.T, price int64, maxParticipants int) *models.Trip {
	req := models.CreateTripRequest{
		Title:           fmt.Sprintf("Integration trip %d", time.Now().UnixNano()),
		Destination:     "Lisbon",
		Price:           price,
		MaxParticipants: maxParticipants,
	}

	var trip models.Trip
	resp := c.makeRequest(t, "POST", "/api/trips", req)
	c.decodeOrFail(t, resp, http.StatusCreated, &trip)
	return &trip
}

// CreateBooking books a trip
func (c *TestClient) CreateBooking(t *testing.T, tripID int64, participants int, startDate, endDate string) *models.CreateBookingResponse {
	req := models.CreateBookingRequest{
		TripID:       tripID,
		Participants: participants,
		StartDate:    startDate,
		EndDate:      endDate,
		RoomType:     "double",
	}

	var booking models.CreateBookingResponse
	resp := c.makeRequest(t, "POST", "/api/bookings", req)
	c.decodeOrFail(t, resp, http.StatusCreated, &booking)
	return &booking
}

// ListMyBookings returns the caller's bookings
func (c *TestClient) ListMyBookings(t *testing.T) []models.ListBookingsResponseItem {
	var bookings []models.ListBookingsResponseItem
	resp := c.makeRequest(t, "GET", "/api/bookings/my-bookings", nil)
	c.decodeOrFail(t, resp, http.StatusOK, &bookings)
	return bookings
}

// RecordTransaction enters a manual payment (requires admin credentials)
func (c *TestClient) RecordTransaction(t *testing.T, req models.RecordManualPaymentRequest) *models.Payment {
	var payment models.Payment
	resp := c.makeRequest(t, "POST", "/api/finances/transactions", req)
	c.decodeOrFail(t, resp, http.StatusCreated, &payment)
	return &payment
}

// SetTransactionStatus patches a payment's status, returning the HTTP status
func (c *TestClient) SetTransactionStatus(t *testing.T, id int64, status string) int {
	req := models.SetPaymentStatusRequest{Status: status}
	resp := c.makeRequest(t, "PATCH", fmt.Sprintf("/api/finances/transactions/%d/status", id), req)
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

// GetTransaction fetches a payment
func (c *TestClient) GetTransaction(t *testing.T, id int64) *models.Payment {
	var payment models.Payment
	resp := c.makeRequest(t, "GET", fmt.Sprintf("/api/finances/transactions/%d", id), nil)
	c.decodeOrFail(t, resp, http.StatusOK, &payment)
	return &payment
}

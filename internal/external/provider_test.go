package external

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"voyago/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *ProviderClient {
	return NewProviderClient(ProviderConfig{
		BaseURL:       baseURL,
		MerchantID:    "merchant-1",
		SigningSecret: "test-secret",
		Currency:      "EUR",
	})
}

func TestVerifyNotificationAcceptsValidToken(t *testing.T) {
	client := newTestClient("http://unused")

	payload := &models.WebhookPayload{
		EventType:   "payment.outcome",
		ProviderRef: "intent-abc",
		Outcome:     "succeeded",
		Timestamp:   "2026-06-01T12:00:00Z",
	}
	payload.Token = client.SignNotification(payload)

	assert.True(t, client.VerifyNotification(payload))
}

func TestVerifyNotificationRejectsTamperedPayload(t *testing.T) {
	client := newTestClient("http://unused")

	payload := &models.WebhookPayload{
		EventType:   "payment.outcome",
		ProviderRef: "intent-abc",
		Outcome:     "succeeded",
		Timestamp:   "2026-06-01T12:00:00Z",
	}
	payload.Token = client.SignNotification(payload)

	// Flipping the outcome after signing must invalidate the token
	payload.Outcome = "failed"
	assert.False(t, client.VerifyNotification(payload))
}

func TestVerifyNotificationRejectsWrongSecret(t *testing.T) {
	signer := newTestClient("http://unused")
	verifier := NewProviderClient(ProviderConfig{
		BaseURL:       "http://unused",
		SigningSecret: "other-secret",
		Currency:      "EUR",
	})

	payload := &models.WebhookPayload{
		EventType:   "payment.outcome",
		ProviderRef: "intent-abc",
		Outcome:     "succeeded",
		Timestamp:   "2026-06-01T12:00:00Z",
	}
	payload.Token = signer.SignNotification(payload)

	assert.False(t, verifier.VerifyNotification(payload))
}

func TestSignParamsIsOrderIndependent(t *testing.T) {
	a := signParams(map[string]string{"B": "2", "A": "1", "C": "3"}, "s")
	b := signParams(map[string]string{"C": "3", "A": "1", "B": "2"}, "s")
	assert.Equal(t, a, b)
}

func TestCreateIntentSendsSignedRequest(t *testing.T) {
	var received IntentRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/intents", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		json.NewEncoder(w).Encode(IntentResponse{
			Success:      true,
			IntentID:     "intent-abc",
			ClientSecret: "secret-xyz",
			Status:       "pending",
			Amount:       received.Amount,
			Currency:     received.Currency,
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	resp, err := client.CreateIntent(72600, "booking-3", "Trip booking #3", "user@example.com")
	require.NoError(t, err)

	assert.Equal(t, "intent-abc", resp.IntentID)
	assert.Equal(t, int64(72600), received.Amount)
	assert.Equal(t, "merchant-1", received.MerchantID)

	// The token covers amount, currency and order reference
	expected := signParams(map[string]string{
		"Amount":   "72600",
		"Currency": "EUR",
		"OrderRef": "booking-3",
	}, "test-secret")
	assert.Equal(t, expected, received.Token)
}

func TestCreateIntentRejectedByProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(IntentResponse{Success: false})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.CreateIntent(100, "booking-9", "", "")
	assert.Error(t, err)
}

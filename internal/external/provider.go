package external

import (
	"bytes"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"voyago/internal/models"
)

// ProviderClient talks to the external payment provider. The provider is a
// collaborator, not part of this system: intents are created here, outcomes
// arrive asynchronously on the webhook.
type ProviderClient struct {
	baseURL       string
	merchantID    string
	signingSecret string
	currency      string
	httpClient    *http.Client
}

type ProviderConfig struct {
	BaseURL       string
	MerchantID    string
	SigningSecret string
	Currency      string
	Timeout       time.Duration
}

type IntentRequest struct {
	MerchantID  string `json:"merchantId"`
	Token       string `json:"token"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	OrderRef    string `json:"orderRef"`
	Description string `json:"description,omitempty"`
	Email       string `json:"email,omitempty"`
}

type IntentResponse struct {
	Success      bool   `json:"success"`
	IntentID     string `json:"intentId"`
	ClientSecret string `json:"clientSecret"`
	PaymentURL   string `json:"paymentURL"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	ExpiresAt    string `json:"expiresAt"`
}

func NewProviderClient(cfg ProviderConfig) *ProviderClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &ProviderClient{
		baseURL:       cfg.BaseURL,
		merchantID:    cfg.MerchantID,
		signingSecret: cfg.SigningSecret,
		currency:      cfg.Currency,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// signParams implements the provider's token scheme: parameter values are
// concatenated in alphabetical key order, the shared secret appended, and
// the whole string hashed with SHA-256.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var tokenString string
	for _, key := range keys {
		tokenString += params[key]
	}
	tokenString += secret

	hash := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(hash[:])
}

func (pc *ProviderClient) Currency() string {
	return pc.currency
}

// CreateIntent registers a payment intent with the provider and returns its
// reference and client secret.
func (pc *ProviderClient) CreateIntent(amount int64, orderRef, description, email string) (*IntentResponse, error) {
	token := signParams(map[string]string{
		"Amount":   strconv.FormatInt(amount, 10),
		"Currency": pc.currency,
		"OrderRef": orderRef,
	}, pc.signingSecret)

	req := IntentRequest{
		MerchantID:  pc.merchantID,
		Token:       token,
		Amount:      amount,
		Currency:    pc.currency,
		OrderRef:    orderRef,
		Description: description,
		Email:       email,
	}

	jsonBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := pc.httpClient.Post(pc.baseURL+"/intents", "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create intent: %w", err)
	}
	defer resp.Body.Close()

	var result IntentResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if !result.Success {
		return nil, fmt.Errorf("intent creation rejected by provider")
	}

	return &result, nil
}

// CancelIntent asks the provider to void a pending intent. Best-effort: the
// webhook remains the source of truth for the final outcome.
func (pc *ProviderClient) CancelIntent(intentID, reason string) error {
	token := signParams(map[string]string{
		"IntentId": intentID,
	}, pc.signingSecret)

	reqData := map[string]interface{}{
		"merchantId": pc.merchantID,
		"token":      token,
		"intentId":   intentID,
		"reason":     reason,
	}

	jsonBody, err := json.Marshal(reqData)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := pc.httpClient.Post(pc.baseURL+"/intents/cancel", "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to cancel intent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}

// VerifyNotification checks the webhook token against the shared signing
// secret. The payload must not be trusted before this passes.
func (pc *ProviderClient) VerifyNotification(payload *models.WebhookPayload) bool {
	expected := signParams(map[string]string{
		"EventType":         payload.EventType,
		"Outcome":           payload.Outcome,
		"ProviderReference": payload.ProviderRef,
		"Timestamp":         payload.Timestamp,
	}, pc.signingSecret)

	return subtle.ConstantTimeCompare([]byte(expected), []byte(payload.Token)) == 1
}

// SignNotification produces the token the provider would attach to a
// notification. Used by tests and the local provider stub.
func (pc *ProviderClient) SignNotification(payload *models.WebhookPayload) string {
	return signParams(map[string]string{
		"EventType":         payload.EventType,
		"Outcome":           payload.Outcome,
		"ProviderReference": payload.ProviderRef,
		"Timestamp":         payload.Timestamp,
	}, pc.signingSecret)
}

package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sekolahku/sekolahku-api/internal/models"
)

// PaymentGateway abstracts the external payment provider.
type PaymentGateway interface {
	CreateCharge(ctx context.Context, payment *models.FeePayment) (ref string, paymentURL string, err error)
}

// HTTPPaymentGateway talks to the provider's REST API.
type HTTPPaymentGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPPaymentGateway constructs the gateway client.
func NewHTTPPaymentGateway(baseURL, apiKey string, timeout time.Duration) *HTTPPaymentGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPPaymentGateway{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type gatewayChargeRequest struct {
	ExternalID  string `json:"external_id"`
	AmountCents int64  `json:"amount_cents"`
	Description string `json:"description"`
}

type gatewayChargeResponse struct {
	Ref        string `json:"ref"`
	PaymentURL string `json:"payment_url"`
}

// CreateCharge registers a charge with the provider and returns its
// reference and hosted payment URL.
func (g *HTTPPaymentGateway) CreateCharge(ctx context.Context, payment *models.FeePayment) (string, string, error) {
	body, err := json.Marshal(gatewayChargeRequest{
		ExternalID:  payment.ID,
		AmountCents: payment.AmountCents,
		Description: payment.Description,
	})
	if err != nil {
		return "", "", fmt.Errorf("marshal charge request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("build charge request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("call payment gateway: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("payment gateway returned status %d", resp.StatusCode)
	}
	var parsed gatewayChargeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", fmt.Errorf("decode gateway response: %w", err)
	}
	if parsed.Ref == "" {
		return "", "", fmt.Errorf("payment gateway returned empty ref")
	}
	return parsed.Ref, parsed.PaymentURL, nil
}

// VerifyWebhookSignature checks the HMAC-SHA256 signature the gateway sends
// with callbacks.
func VerifyWebhookSignature(secret string, payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

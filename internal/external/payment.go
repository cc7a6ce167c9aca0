package external

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentGateway is the port the ticket ledger and the refund consumer talk
// to. The HTTP client below implements it against the gateway simulator;
// tests substitute deterministic fakes.
type PaymentGateway interface {
	ConfirmPayment(ctx context.Context, paymentRef string) (*PaymentConfirmation, error)
	RequestRefund(ctx context.Context, paymentRef string, amount decimal.Decimal) (*RefundResult, error)
}

type PaymentConfirmation struct {
	Confirmed bool            `json:"confirmed"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
}

type RefundResult struct {
	Accepted bool `json:"accepted"`
}

type PaymentConfig struct {
	BaseURL      string
	MerchantSlug string
	Password     string
	Timeout      time.Duration
}

type PaymentClient struct {
	baseURL      string
	merchantSlug string
	password     string
	httpClient   *http.Client
}

type paymentCheckRequest struct {
	MerchantSlug string `json:"merchantSlug"`
	Token        string `json:"token"`
	PaymentRef   string `json:"paymentRef"`
}

type paymentCheckResponse struct {
	Success   bool            `json:"success"`
	Confirmed bool            `json:"confirmed"`
	Status    string          `json:"status"`
	Amount    decimal.Decimal `json:"amount"`
}

type refundRequest struct {
	MerchantSlug string          `json:"merchantSlug"`
	Token        string          `json:"token"`
	PaymentRef   string          `json:"paymentRef"`
	Amount       decimal.Decimal `json:"amount"`
}

type refundResponse struct {
	Success  bool `json:"success"`
	Accepted bool `json:"accepted"`
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &PaymentClient{
		baseURL:      cfg.BaseURL,
		merchantSlug: cfg.MerchantSlug,
		password:     cfg.Password,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// generateToken signs a request the way the gateway expects: parameters
// sorted alphabetically, values concatenated, SHA-256 over the result.
func (pc *PaymentClient) generateToken(params map[string]string) string {
	params["MerchantSlug"] = pc.merchantSlug
	params["Password"] = pc.password

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var tokenString string
	for _, key := range keys {
		tokenString += params[key]
	}

	hash := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(hash[:])
}

func (pc *PaymentClient) post(ctx context.Context, path string, body any, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, pc.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (pc *PaymentClient) ConfirmPayment(ctx context.Context, paymentRef string) (*PaymentConfirmation, error) {
	token := pc.generateToken(map[string]string{
		"PaymentRef": paymentRef,
	})

	req := paymentCheckRequest{
		MerchantSlug: pc.merchantSlug,
		Token:        token,
		PaymentRef:   paymentRef,
	}

	var resp paymentCheckResponse
	if err := pc.post(ctx, "/api/v1/payments/check", req, &resp); err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("payment check rejected by gateway")
	}

	return &PaymentConfirmation{
		Confirmed: resp.Confirmed,
		Amount:    resp.Amount,
		Status:    resp.Status,
	}, nil
}

// RequestRefund is idempotent on paymentRef: the gateway treats a repeated
// refund for the same reference as already settled.
func (pc *PaymentClient) RequestRefund(ctx context.Context, paymentRef string, amount decimal.Decimal) (*RefundResult, error) {
	token := pc.generateToken(map[string]string{
		"Amount":     amount.String(),
		"PaymentRef": paymentRef,
	})

	req := refundRequest{
		MerchantSlug: pc.merchantSlug,
		Token:        token,
		PaymentRef:   paymentRef,
		Amount:       amount,
	}

	var resp refundResponse
	if err := pc.post(ctx, "/api/v1/payments/refund", req, &resp); err != nil {
		return nil, err
	}

	if !resp.Success {
		return nil, fmt.Errorf("refund rejected by gateway")
	}

	return &RefundResult{Accepted: resp.Accepted}, nil
}

// IsTimeout reports whether a gateway call failed on a deadline rather than
// a definitive answer. Callers surface this as a retryable pending state.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

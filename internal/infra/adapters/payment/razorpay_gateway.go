// File: internal/infra/adapters/payment/razorpay_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"finance-billing/internal/domain"
	"finance-billing/internal/domain/ports/adapter"
)

var _ adapter.PaymentProvider = (*RazorpayGateway)(nil)

type RazorpayConfig struct {
	BaseURL       string // e.g. https://api.razorpay.com/v1
	KeyID         string
	KeySecret     string
	WebhookSecret string
	MerchantName  string
	HTTPTimeout   time.Duration
}

// RazorpayGateway creates orders over REST (basic auth with key id and key
// secret) and checks checkout and webhook HMACs locally.
type RazorpayGateway struct {
	*signatureScheme

	baseURL   string
	keyID     string
	keySecret string
	merchant  string
	client    *http.Client
}

func NewRazorpayGateway(cfg RazorpayConfig) (*RazorpayGateway, error) {
	if cfg.KeyID == "" {
		return nil, errors.New("razorpay: key id empty")
	}
	if _, err := url.ParseRequestURI(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("razorpay: invalid base url: %w", err)
	}
	sigs, err := newSignatureScheme(cfg.KeySecret, cfg.WebhookSecret)
	if err != nil {
		return nil, fmt.Errorf("razorpay: %w", err)
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &RazorpayGateway{
		signatureScheme: sigs,
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		keyID:           cfg.KeyID,
		keySecret:       cfg.KeySecret,
		merchant:        cfg.MerchantName,
		client:          &http.Client{Timeout: timeout},
	}, nil
}

func (g *RazorpayGateway) Name() string { return "razorpay" }

// ProviderError is a rejection returned by the gateway API.
type ProviderError struct {
	Status      int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("razorpay: status %d: %s: %s", e.Status, e.Code, e.Description)
}

type createOrderBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Receipt  string            `json:"receipt"`
	Notes    map[string]string `json:"notes,omitempty"`
}

type orderResponse struct {
	ID       string `json:"id"`
	Entity   string `json:"entity"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type errorResponse struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// CreateOrder calls POST /orders.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (*adapter.RemoteOrder, error) {
	if req.Amount <= 0 || !req.Currency.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	notes := map[string]string{"user_id": req.UserID, "plan": string(req.Plan)}
	for k, v := range req.Metadata {
		notes[k] = v
	}
	b, err := json.Marshal(createOrderBody{
		Amount:   req.Amount,
		Currency: string(req.Currency),
		Receipt:  req.Receipt,
		Notes:    notes,
	})
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(g.keyID, g.keySecret)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("razorpay: create order: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("razorpay: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var er errorResponse
		_ = json.Unmarshal(body, &er)
		return nil, &ProviderError{Status: resp.StatusCode, Code: er.Error.Code, Description: er.Error.Description}
	}

	var out orderResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("razorpay: decode order: %w", err)
	}
	if out.ID == "" {
		return nil, errors.New("razorpay: order id missing in response")
	}
	return &adapter.RemoteOrder{
		OrderID: out.ID,
		ClientData: map[string]any{
			"key_id":   g.keyID,
			"order_id": out.ID,
			"amount":   out.Amount,
			"currency": out.Currency,
			"receipt":  out.Receipt,
			"name":     g.merchant,
		},
	}, nil
}

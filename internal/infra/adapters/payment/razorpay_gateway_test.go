//go:build !integration

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finance-billing/internal/domain"
	"finance-billing/internal/domain/model"
	"finance-billing/internal/domain/ports/adapter"
	"finance-billing/internal/infra/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKeyID         = "rzp_test_key"
	testKeySecret     = "test-key-secret"
	testWebhookSecret = "test-webhook-secret"
)

func newTestGateway(t *testing.T, baseURL string, timeout time.Duration) *RazorpayGateway {
	t.Helper()
	g, err := NewRazorpayGateway(RazorpayConfig{
		BaseURL:       baseURL,
		KeyID:         testKeyID,
		KeySecret:     testKeySecret,
		WebhookSecret: testWebhookSecret,
		MerchantName:  "Ledgerly",
		HTTPTimeout:   timeout,
	})
	require.NoError(t, err)
	return g
}

func orderRequest() adapter.CreateOrderRequest {
	return adapter.CreateOrderRequest{
		Amount:   1000,
		Currency: model.CurrencyUSD,
		UserID:   "user-1",
		Plan:     model.PlanProMonthly,
		Receipt:  "rcpt_1",
	}
}

func TestRazorpayGateway_CreateOrder(t *testing.T) {
	t.Run("should create an order with basic auth and return checkout data", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, testKeyID, user)
			assert.Equal(t, testKeySecret, pass)
			assert.Equal(t, "/orders", r.URL.Path)

			var body createOrderBody
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, int64(1000), body.Amount)
			assert.Equal(t, "USD", body.Currency)
			assert.Equal(t, "rcpt_1", body.Receipt)
			assert.Equal(t, "PRO_MONTHLY", body.Notes["plan"])

			_, _ = w.Write([]byte(`{"id":"order_abc","entity":"order","amount":1000,"currency":"USD","receipt":"rcpt_1","status":"created"}`))
		}))
		defer srv.Close()

		order, err := newTestGateway(t, srv.URL, time.Second).CreateOrder(context.Background(), orderRequest())
		require.NoError(t, err)
		assert.Equal(t, "order_abc", order.OrderID)
		assert.Equal(t, testKeyID, order.ClientData["key_id"])
		assert.Equal(t, "Ledgerly", order.ClientData["name"])
		assert.NotContains(t, order.ClientData, "key_secret")
	})

	t.Run("should surface provider rejections as ProviderError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
		}))
		defer srv.Close()

		_, err := newTestGateway(t, srv.URL, time.Second).CreateOrder(context.Background(), orderRequest())
		var perr *ProviderError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, http.StatusBadRequest, perr.Status)
		assert.Equal(t, "BAD_REQUEST_ERROR", perr.Code)
		assert.NotContains(t, err.Error(), testKeySecret)
	})

	t.Run("should honour the caller deadline", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := newTestGateway(t, srv.URL, 5*time.Second).CreateOrder(ctx, orderRequest())
		require.Error(t, err)
		assert.True(t, errors.Is(err, context.DeadlineExceeded))
	})

	t.Run("should reject invalid amounts without calling out", func(t *testing.T) {
		req := orderRequest()
		req.Amount = 0
		_, err := newTestGateway(t, "http://127.0.0.1:1", time.Second).CreateOrder(context.Background(), req)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestNewRazorpayGateway(t *testing.T) {
	_, err := NewRazorpayGateway(RazorpayConfig{BaseURL: "https://api.example.test", KeyID: "k", KeySecret: "s"})
	assert.Error(t, err, "webhook secret is required")

	_, err = NewRazorpayGateway(RazorpayConfig{BaseURL: "::bad", KeyID: "k", KeySecret: "s", WebhookSecret: "w"})
	assert.Error(t, err)
}

func TestSignatureScheme_VerifySignature(t *testing.T) {
	g := newTestGateway(t, "https://api.example.test", time.Second)
	signer, _ := security.NewSigner(testKeySecret)
	good := signer.Sign(security.OrderPayload("order_1", "pay_1"))
	ctx := context.Background()

	assert.NoError(t, g.VerifySignature(ctx, "order_1", "pay_1", good))

	err := g.VerifySignature(ctx, "order_1", "pay_other", good)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	assert.Equal(t, "invalid signature: signature mismatch", err.Error())

	assert.ErrorIs(t, g.VerifySignature(ctx, "order_1", "", good), domain.ErrInvalidSignature)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, g.VerifySignature(cancelled, "order_1", "pay_1", good), domain.ErrInvalidSignature)
}

func TestSignatureScheme_ParseWebhook(t *testing.T) {
	g := newTestGateway(t, "https://api.example.test", time.Second)
	signer, _ := security.NewSigner(testWebhookSecret)
	ctx := context.Background()

	cases := []struct {
		name string
		body string
		want model.WebhookEvent
	}{
		{
			name: "captured",
			body: `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","status":"captured"}}}}`,
			want: model.PaymentCaptured{PaymentID: "pay_1", OrderID: "order_1"},
		},
		{
			name: "order paid maps to captured",
			body: `{"event":"order.paid","payload":{"payment":{"entity":{"id":"pay_2","order_id":"order_2"}},"order":{"entity":{"id":"order_2"}}}}`,
			want: model.PaymentCaptured{PaymentID: "pay_2", OrderID: "order_2"},
		},
		{
			name: "failed",
			body: `{"event":"payment.failed","payload":{"payment":{"entity":{"id":"pay_3","order_id":"order_3","error_description":"card declined"}}}}`,
			want: model.PaymentFailed{PaymentID: "pay_3", OrderID: "order_3", Reason: "card declined"},
		},
		{
			name: "refund",
			body: `{"event":"refund.created","payload":{"refund":{"entity":{"id":"rfnd_1","payment_id":"pay_1","amount":1000}}}}`,
			want: model.RefundCreated{RefundID: "rfnd_1", PaymentID: "pay_1", Amount: 1000},
		},
		{
			name: "unknown",
			body: `{"event":"subscription.charged","payload":{}}`,
			want: model.UnknownEvent{Name: "subscription.charged"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := []byte(tc.body)
			ev, err := g.ParseWebhook(ctx, body, signer.Sign(body))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev)
		})
	}

	t.Run("should reject a tampered body before decoding", func(t *testing.T) {
		body := []byte(cases[0].body)
		sig := signer.Sign(body)
		tampered := append([]byte(nil), body...)
		tampered[len(tampered)-5] ^= 0x01

		ev, err := g.ParseWebhook(ctx, tampered, sig)
		assert.Nil(t, ev)
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("should reject a missing signature", func(t *testing.T) {
		_, err := g.ParseWebhook(ctx, []byte(cases[0].body), "")
		assert.ErrorIs(t, err, domain.ErrMissingSignature)
	})

	t.Run("should reject a body signed with the checkout secret", func(t *testing.T) {
		keySigner, _ := security.NewSigner(testKeySecret)
		body := []byte(cases[0].body)
		_, err := g.ParseWebhook(ctx, body, keySigner.Sign(body))
		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
	})

	t.Run("should flag malformed json that carries a valid signature", func(t *testing.T) {
		body := []byte(`{"event":`)
		_, err := g.ParseWebhook(ctx, body, signer.Sign(body))
		assert.ErrorIs(t, err, domain.ErrMalformedPayload)
	})
}

func TestFakeProvider(t *testing.T) {
	f, err := NewFakeProvider(testKeySecret, testWebhookSecret)
	require.NoError(t, err)
	ctx := context.Background()

	order, err := f.CreateOrder(ctx, orderRequest())
	require.NoError(t, err)
	stored, ok := f.Order(order.OrderID)
	require.True(t, ok)
	assert.Equal(t, int64(1000), stored.Amount)

	assert.NoError(t, f.VerifySignature(ctx, order.OrderID, "pay_1", f.SignCheckout(order.OrderID, "pay_1")))

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"` + order.OrderID + `"}}}}`)
	ev, err := f.ParseWebhook(ctx, body, f.SignWebhook(body))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentCaptured{PaymentID: "pay_1", OrderID: order.OrderID}, ev)
}

func TestFakeProvider_OrderIDsUniqueAcrossInstances(t *testing.T) {
	ctx := context.Background()
	first, err := NewFakeProvider(testKeySecret, testWebhookSecret)
	require.NoError(t, err)
	restarted, err := NewFakeProvider(testKeySecret, testWebhookSecret)
	require.NoError(t, err)

	a, err := first.CreateOrder(ctx, orderRequest())
	require.NoError(t, err)
	b, err := restarted.CreateOrder(ctx, orderRequest())
	require.NoError(t, err)
	c, err := restarted.CreateOrder(ctx, orderRequest())
	require.NoError(t, err)

	assert.NotEqual(t, a.OrderID, b.OrderID)
	assert.NotEqual(t, b.OrderID, c.OrderID)
	assert.Contains(t, a.OrderID, "order_fake_")
}

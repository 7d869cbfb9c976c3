package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"finance-billing/internal/domain"
	"finance-billing/internal/domain/ports/adapter"
	"finance-billing/internal/infra/security"
)

var _ adapter.PaymentProvider = (*FakeProvider)(nil)

// FakeProvider is an in-memory gateway for dev mode and tests. It signs and
// verifies with real secrets so the confirmation paths run unchanged.
type FakeProvider struct {
	*signatureScheme

	mu     sync.Mutex
	orders map[string]adapter.CreateOrderRequest
}

func NewFakeProvider(keySecret, webhookSecret string) (*FakeProvider, error) {
	sigs, err := newSignatureScheme(keySecret, webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("fake provider: %w", err)
	}
	return &FakeProvider{signatureScheme: sigs, orders: make(map[string]adapter.CreateOrderRequest)}, nil
}

func (f *FakeProvider) Name() string { return "fake" }

func (f *FakeProvider) CreateOrder(ctx context.Context, req adapter.CreateOrderRequest) (*adapter.RemoteOrder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Amount <= 0 || !req.Currency.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	// unique across restarts; order ids are UNIQUE in the ledger
	id := "order_fake_" + ulid.Make().String()
	f.orders[id] = req
	return &adapter.RemoteOrder{
		OrderID: id,
		ClientData: map[string]any{
			"order_id": id,
			"amount":   req.Amount,
			"currency": string(req.Currency),
		},
	}, nil
}

// Order returns the request an order was created with.
func (f *FakeProvider) Order(orderID string) (adapter.CreateOrderRequest, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.orders[orderID]
	return r, ok
}

// SignCheckout produces the signature a checkout widget would hand the client.
func (f *FakeProvider) SignCheckout(orderID, paymentID string) string {
	return f.order.Sign(security.OrderPayload(orderID, paymentID))
}

// SignWebhook produces the signature header for body.
func (f *FakeProvider) SignWebhook(body []byte) string {
	return f.webhook.Sign(body)
}

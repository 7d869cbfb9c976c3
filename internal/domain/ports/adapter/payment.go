package adapter

import (
	"context"

	"finance-billing/internal/domain/model"
)

// CreateOrderRequest is the input of PaymentProvider.CreateOrder.
type CreateOrderRequest struct {
	Amount   int64 // minor units, > 0
	Currency model.Currency
	UserID   string
	Plan     model.Plan
	Receipt  string
	Metadata map[string]string
}

// RemoteOrder is the provider's answer to an order creation.
type RemoteOrder struct {
	OrderID    string
	ClientData map[string]any // everything the checkout widget needs
}

// PaymentProvider is the port for a payment gateway.
type PaymentProvider interface {
	Name() string

	// CreateOrder opens an order on the provider side. One network call.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*RemoteOrder, error)

	// VerifySignature checks the checkout signature over "{orderID}|{paymentID}".
	// Any missing input fails without comparing.
	VerifySignature(ctx context.Context, orderID, paymentID, signature string) error

	// ParseWebhook authenticates rawBody against signature and only then decodes it.
	ParseWebhook(ctx context.Context, rawBody []byte, signature string) (model.WebhookEvent, error)
}

package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"finance-billing/internal/domain"
	"finance-billing/internal/domain/model"
	"finance-billing/internal/infra/security"
)

// signatureScheme holds the two secrets of a gateway account: the key secret
// signs checkout confirmations, the webhook secret signs pushed events.
type signatureScheme struct {
	order   *security.Signer
	webhook *security.Signer
}

func newSignatureScheme(keySecret, webhookSecret string) (*signatureScheme, error) {
	order, err := security.NewSigner(keySecret)
	if err != nil {
		return nil, fmt.Errorf("key secret: %w", err)
	}
	webhook, err := security.NewSigner(webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("webhook secret: %w", err)
	}
	return &signatureScheme{order: order, webhook: webhook}, nil
}

func (s *signatureScheme) VerifySignature(ctx context.Context, orderID, paymentID, signature string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: verification cancelled", domain.ErrInvalidSignature)
	}
	if err := s.order.VerifyOrder(orderID, paymentID, signature); err != nil {
		return signatureError(err)
	}
	return nil
}

// ParseWebhook authenticates the exact received bytes before decoding them.
func (s *signatureScheme) ParseWebhook(ctx context.Context, rawBody []byte, signature string) (model.WebhookEvent, error) {
	if signature == "" {
		return nil, domain.ErrMissingSignature
	}
	if err := s.webhook.Verify(rawBody, signature); err != nil {
		return nil, signatureError(err)
	}
	return decodeWebhook(rawBody)
}

func signatureError(err error) error {
	if errors.Is(err, security.ErrMissingInput) {
		return fmt.Errorf("%w: missing signature input", domain.ErrInvalidSignature)
	}
	return fmt.Errorf("%w: signature mismatch", domain.ErrInvalidSignature)
}

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment *struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				Status           string `json:"status"`
				ErrorCode        string `json:"error_code"`
				ErrorDescription string `json:"error_description"`
				ErrorReason      string `json:"error_reason"`
			} `json:"entity"`
		} `json:"payment"`
		Refund *struct {
			Entity struct {
				ID        string `json:"id"`
				PaymentID string `json:"payment_id"`
				Amount    int64  `json:"amount"`
			} `json:"entity"`
		} `json:"refund"`
	} `json:"payload"`
}

func decodeWebhook(body []byte) (model.WebhookEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if env.Event == "" {
		return nil, fmt.Errorf("%w: event name missing", domain.ErrMalformedPayload)
	}

	switch env.Event {
	case "payment.captured", "order.paid":
		pay := env.Payload.Payment
		if pay == nil || pay.Entity.ID == "" || pay.Entity.OrderID == "" {
			return nil, fmt.Errorf("%w: %s without payment entity", domain.ErrMalformedPayload, env.Event)
		}
		return model.PaymentCaptured{PaymentID: pay.Entity.ID, OrderID: pay.Entity.OrderID}, nil

	case "payment.failed":
		pay := env.Payload.Payment
		if pay == nil || pay.Entity.OrderID == "" {
			return nil, fmt.Errorf("%w: payment.failed without payment entity", domain.ErrMalformedPayload)
		}
		reason := pay.Entity.ErrorDescription
		if reason == "" {
			reason = pay.Entity.ErrorReason
		}
		if reason == "" {
			reason = "payment failed at provider"
		}
		return model.PaymentFailed{PaymentID: pay.Entity.ID, OrderID: pay.Entity.OrderID, Reason: reason}, nil

	case "refund.created":
		ref := env.Payload.Refund
		if ref == nil || ref.Entity.PaymentID == "" {
			return nil, fmt.Errorf("%w: refund.created without refund entity", domain.ErrMalformedPayload)
		}
		return model.RefundCreated{RefundID: ref.Entity.ID, PaymentID: ref.Entity.PaymentID, Amount: ref.Entity.Amount}, nil
	}
	return model.UnknownEvent{Name: env.Event}, nil
}

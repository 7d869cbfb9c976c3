package repository

import (
	"context"
	"time"

	"finance-billing/internal/domain/model"
)

// PaymentRepository is the payment ledger.
type PaymentRepository interface {
	Create(ctx context.Context, tx Tx, p *model.Payment) error
	FindByRemoteOrderID(ctx context.Context, tx Tx, orderID string) (*model.Payment, error)
	FindByRemotePaymentID(ctx context.Context, tx Tx, paymentID string) (*model.Payment, error)

	// MarkCompleted moves the payment to COMPLETED only while its status is one
	// of from. The boolean reports whether this call performed the transition.
	MarkCompleted(ctx context.Context, tx Tx, orderID, paymentID string, paidAt time.Time, from ...model.PaymentStatus) (bool, error)
	// MarkFailed moves a PENDING payment to FAILED. paymentID may be empty.
	MarkFailed(ctx context.Context, tx Tx, orderID, paymentID, reason string) (bool, error)
	// MarkRefunded moves a COMPLETED payment to REFUNDED.
	MarkRefunded(ctx context.Context, tx Tx, orderID string) (bool, error)
	LinkSubscription(ctx context.Context, tx Tx, orderID, subscriptionID string) error

	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Payment, error)
}

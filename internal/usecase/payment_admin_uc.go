// File: internal/usecase/payment_admin_uc.go
package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"finance-billing/internal/domain"
	"finance-billing/internal/domain/model"
	"finance-billing/internal/domain/ports/repository"
	"finance-billing/internal/infra/logging"
	"finance-billing/internal/infra/metrics"
)

var _ PaymentAdminUseCase = (*paymentAdminUC)(nil)

// PaymentAdminUseCase backs the operator endpoints.
type PaymentAdminUseCase interface {
	// ListStale returns PENDING payments created more than olderThan ago.
	ListStale(ctx context.Context, olderThan time.Duration, limit int) ([]*model.Payment, error)
	// RecordRefund marks a completed payment as refunded after the operator
	// refunded it at the provider. The subscription is left alone.
	RecordRefund(ctx context.Context, orderID string) (*model.Payment, error)
}

const maxStaleLimit = 500

type paymentAdminUC struct {
	payments repository.PaymentRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
	now      func() time.Time
}

func NewPaymentAdminUseCase(payments repository.PaymentRepository, tm repository.TransactionManager, logger *zerolog.Logger) *paymentAdminUC {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "payment_admin").Logger()
	return &paymentAdminUC{payments: payments, tm: tm, log: &l, now: func() time.Time { return time.Now().UTC() }}
}

func (u *paymentAdminUC) ListStale(ctx context.Context, olderThan time.Duration, limit int) ([]*model.Payment, error) {
	if olderThan <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	if limit <= 0 || limit > maxStaleLimit {
		limit = maxStaleLimit
	}
	return u.payments.ListPendingOlderThan(ctx, repository.NoTX, u.now().Add(-olderThan), limit)
}

func (u *paymentAdminUC) RecordRefund(ctx context.Context, orderID string) (*model.Payment, error) {
	if orderID == "" {
		return nil, domain.ErrInvalidArgument
	}
	var out *model.Payment
	var changed bool
	err := u.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		p, err := u.payments.FindByRemoteOrderID(ctx, tx, orderID)
		if err != nil {
			return err
		}
		switch p.Status {
		case model.PaymentStatusRefunded:
			out = p
			return nil
		case model.PaymentStatusCompleted:
		default:
			return domain.ErrInvalidTransition
		}
		ok, err := u.payments.MarkRefunded(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrInvalidTransition
		}
		p.Status = model.PaymentStatusRefunded
		out, changed = p, true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		metrics.IncPayment(string(model.PaymentStatusRefunded))
		logging.With(ctx, u.log).Info().Str("order_id", orderID).Str("user_id", out.UserID).
			Int64("amount", out.Amount).Msg("refund recorded")
	}
	return out, nil
}

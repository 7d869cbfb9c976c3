package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"finance-billing/internal/infra/metrics"
	"finance-billing/internal/usecase"
)

const auditBatch = 200

// PendingAuditor reports PENDING payments that have waited longer than
// staleAfter. It never changes them: a late capture webhook must still be
// able to complete the payment.
type PendingAuditor struct {
	admin      usecase.PaymentAdminUseCase
	staleAfter time.Duration
	log        *zerolog.Logger
}

func NewPendingAuditor(admin usecase.PaymentAdminUseCase, staleAfter time.Duration, logger *zerolog.Logger) *PendingAuditor {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "PendingAuditor").Logger()
	return &PendingAuditor{admin: admin, staleAfter: staleAfter, log: &l}
}

func (a *PendingAuditor) Name() string { return "pending_audit" }

func (a *PendingAuditor) Tick(ctx context.Context) error {
	stale, err := a.admin.ListStale(ctx, a.staleAfter, auditBatch)
	if err != nil {
		return err
	}
	metrics.SetStalePending(len(stale))
	for _, p := range stale {
		a.log.Warn().
			Str("order_id", p.RemoteOrderID).
			Str("user_id", p.UserID).
			Int64("amount", p.Amount).
			Str("currency", string(p.Currency)).
			Dur("age", time.Since(p.CreatedAt)).
			Msg("payment still pending")
	}
	return nil
}

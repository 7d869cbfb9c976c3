package sched

import (
	"context"

	"github.com/rs/zerolog"

	"finance-billing/internal/usecase"
)

// ExpiryWorker flips subscriptions past their expiry to EXPIRED.
type ExpiryWorker struct {
	subUC usecase.SubscriptionUseCase
	log   *zerolog.Logger
}

func NewExpiryWorker(subUC usecase.SubscriptionUseCase, logger *zerolog.Logger) *ExpiryWorker {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{subUC: subUC, log: &l}
}

func (w *ExpiryWorker) Name() string { return "expiry_sweep" }

func (w *ExpiryWorker) Tick(ctx context.Context) error {
	n, err := w.subUC.ExpireDue(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("expired subscriptions finished")
	}
	return nil
}

// File: internal/usecase/subscription_uc.go
package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"finance-billing/internal/domain"
	"finance-billing/internal/domain/model"
	"finance-billing/internal/domain/ports/repository"
	"finance-billing/internal/infra/logging"
	"finance-billing/internal/infra/metrics"
)

var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	Get(ctx context.Context, userID string) (*model.Subscription, error)
	// Cancel stops renewal of access; the user keeps access until expiry.
	Cancel(ctx context.Context, userID string) (*model.Subscription, error)
	// ExpireDue flips every subscription past its expiry to EXPIRED.
	ExpireDue(ctx context.Context) (int, error)
}

type subscriptionUC struct {
	subs repository.SubscriptionRepository
	log  *zerolog.Logger
	now  func() time.Time
}

func NewSubscriptionUseCase(subs repository.SubscriptionRepository, logger *zerolog.Logger) *subscriptionUC {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "subscriptions").Logger()
	return &subscriptionUC{subs: subs, log: &l, now: func() time.Time { return time.Now().UTC() }}
}

func (u *subscriptionUC) Get(ctx context.Context, userID string) (*model.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	return u.subs.FindByUser(ctx, repository.NoTX, userID)
}

func (u *subscriptionUC) Cancel(ctx context.Context, userID string) (*model.Subscription, error) {
	if userID == "" {
		return nil, domain.ErrInvalidArgument
	}
	sub, err := u.subs.Cancel(ctx, repository.NoTX, userID)
	if err == nil {
		logging.With(ctx, u.log).Info().Str("subscription_id", sub.ID).Time("expires_at", sub.ExpiresAt).
			Msg("subscription cancelled")
		return sub, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	// no ACTIVE row: repeat cancels return the current row
	cur, err := u.subs.FindByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	if cur.Status == model.SubscriptionStatusCancelled {
		return cur, nil
	}
	return nil, domain.ErrNoActiveSubscription
}

func (u *subscriptionUC) ExpireDue(ctx context.Context) (int, error) {
	n, err := u.subs.MarkExpired(ctx, repository.NoTX, u.now())
	if err != nil {
		return 0, err
	}
	metrics.IncSubscriptionsExpired(n)
	if n > 0 {
		u.log.Info().Int("count", n).Msg("subscriptions expired")
	}

	counts, err := u.subs.CountByStatus(ctx, repository.NoTX)
	if err != nil {
		u.log.Warn().Err(err).Msg("could not refresh subscription gauges")
		return n, nil
	}
	metrics.SetSubscriptionsTotal(counts)
	return n, nil
}

// File: internal/usecase/reconcile_uc.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"finance-billing/internal/domain"
	"finance-billing/internal/domain/model"
	"finance-billing/internal/domain/ports/adapter"
	"finance-billing/internal/domain/ports/repository"
	"finance-billing/internal/infra/logging"
	"finance-billing/internal/infra/metrics"
)

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileUseCase turns confirmations arriving on either channel into at most
// one subscription activation per payment.
type ReconcileUseCase interface {
	// CreateOrder prices the plan, opens a remote order and records it PENDING.
	CreateOrder(ctx context.Context, userID string, plan model.Plan, currency model.Currency) (*model.OrderIntent, error)
	// VerifyPayment handles the client-side confirmation of an order.
	VerifyPayment(ctx context.Context, userID, orderID, paymentID, signature string) model.Outcome
	// HandleWebhook authenticates and applies a provider event. An error is
	// returned only when the payload could not be authenticated.
	HandleWebhook(ctx context.Context, rawBody []byte, signature string) (model.WebhookReceipt, error)
}

const (
	defaultProviderTimeout = 10 * time.Second
	defaultSettleDelay     = 300 * time.Millisecond
)

type reconcileUC struct {
	payments repository.PaymentRepository
	subs     repository.SubscriptionRepository
	pricing  repository.PricingRepository
	provider adapter.PaymentProvider
	alerts   adapter.OpsAlerter
	log      *zerolog.Logger

	providerTimeout time.Duration
	settleDelay     time.Duration
	now             func() time.Time
}

// ReconcileOption tweaks the engine at construction.
type ReconcileOption func(*reconcileUC)

// WithProviderTimeout bounds every provider call.
func WithProviderTimeout(d time.Duration) ReconcileOption {
	return func(u *reconcileUC) {
		if d > 0 {
			u.providerTimeout = d
		}
	}
}

// WithSettleDelay sets how long a confirmation that finds the payment already
// claimed waits before re-reading the subscription. Zero disables the re-read.
func WithSettleDelay(d time.Duration) ReconcileOption {
	return func(u *reconcileUC) {
		if d >= 0 {
			u.settleDelay = d
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) ReconcileOption {
	return func(u *reconcileUC) {
		if now != nil {
			u.now = now
		}
	}
}

func NewReconcileUseCase(
	payments repository.PaymentRepository,
	subs repository.SubscriptionRepository,
	pricing repository.PricingRepository,
	provider adapter.PaymentProvider,
	alerts adapter.OpsAlerter,
	logger *zerolog.Logger,
	opts ...ReconcileOption,
) *reconcileUC {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "reconcile").Str("provider", provider.Name()).Logger()
	u := &reconcileUC{
		payments:        payments,
		subs:            subs,
		pricing:         pricing,
		provider:        provider,
		alerts:          alerts,
		log:             &l,
		providerTimeout: defaultProviderTimeout,
		settleDelay:     defaultSettleDelay,
		now:             func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

func (u *reconcileUC) CreateOrder(ctx context.Context, userID string, plan model.Plan, currency model.Currency) (*model.OrderIntent, error) {
	if userID == "" || !plan.Valid() || !currency.Valid() {
		return nil, domain.ErrInvalidArgument
	}
	log := logging.With(ctx, u.log)

	price, err := u.pricing.FindByPlanAndCurrency(ctx, repository.NoTX, plan, currency)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil, domain.ErrPricingNotFound
	case err != nil:
		log.Error().Err(err).Str("plan", string(plan)).Str("currency", string(currency)).Msg("pricing lookup failed")
		return nil, domain.ErrOperationFailed
	case !price.Active:
		return nil, domain.ErrPricingInactive
	}

	receipt := "rcpt_" + ulid.Make().String()
	remote, err := u.createRemoteOrder(ctx, adapter.CreateOrderRequest{
		Amount:   price.Amount,
		Currency: currency,
		UserID:   userID,
		Plan:     plan,
		Receipt:  receipt,
	})
	if err != nil {
		// nothing was written locally
		log.Warn().Err(err).Str("plan", string(plan)).Str("receipt", receipt).Msg("provider order creation failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	now := u.now()
	p := &model.Payment{
		ID:            uuid.NewString(),
		UserID:        userID,
		Plan:          plan,
		Currency:      currency,
		Amount:        price.Amount,
		Provider:      u.provider.Name(),
		Receipt:       receipt,
		RemoteOrderID: remote.OrderID,
		Status:        model.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := u.payments.Create(ctx, repository.NoTX, p); err != nil {
		// The remote order exists but we have no record of it. Retrying would
		// open a second remote order, so a human reconciles this one.
		u.manualIntervention(ctx, p, "", "orphan_order", "remote order created without local payment record", err)
		return nil, domain.ErrOperationFailed
	}
	metrics.IncPayment(string(model.PaymentStatusPending))

	data := make(map[string]any, len(remote.ClientData)+1)
	for k, v := range remote.ClientData {
		data[k] = v
	}
	data["amount_display"] = model.FormatAmount(price.Amount, currency)

	log.Info().Str("order_id", remote.OrderID).Str("plan", string(plan)).Int64("amount", price.Amount).
		Str("currency", string(currency)).Msg("order created")
	return &model.OrderIntent{
		PaymentID:     p.ID,
		RemoteOrderID: remote.OrderID,
		Plan:          plan,
		Currency:      currency,
		Amount:        price.Amount,
		ClientData:    data,
	}, nil
}

func (u *reconcileUC) createRemoteOrder(ctx context.Context, req adapter.CreateOrderRequest) (*adapter.RemoteOrder, error) {
	pctx, cancel := context.WithTimeout(ctx, u.providerTimeout)
	defer cancel()
	start := time.Now()
	remote, err := u.provider.CreateOrder(pctx, req)
	if err == nil && (remote == nil || remote.OrderID == "") {
		err = errors.New("provider returned no order id")
	}
	metrics.ObserveProvider("create_order", err, time.Since(start))
	return remote, err
}

func (u *reconcileUC) VerifyPayment(ctx context.Context, userID, orderID, paymentID, signature string) model.Outcome {
	defer logging.TraceDuration(u.log, "ReconcileUC.VerifyPayment")()
	start := time.Now()
	out := u.verify(ctx, userID, orderID, paymentID, signature)
	metrics.ObserveVerify(string(out.Kind), time.Since(start))
	metrics.IncReconcileOutcome("verify", string(out.Kind))
	return out
}

func (u *reconcileUC) verify(ctx context.Context, userID, orderID, paymentID, signature string) model.Outcome {
	if orderID == "" || userID == "" {
		return model.Rejected(domain.ErrInvalidArgument)
	}
	log := logging.With(ctx, u.log).With().Str("order_id", orderID).Logger()

	p, err := u.payments.FindByRemoteOrderID(ctx, repository.NoTX, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return model.Rejected(domain.ErrNotFound)
	}
	if err != nil {
		log.Error().Err(err).Msg("payment lookup failed")
		return model.Rejected(domain.ErrOperationFailed)
	}

	if p.UserID != userID {
		logging.Security(&log).Str("caller_id", userID).Str("owner_id", p.UserID).
			Msg("confirmation attempted for another user's order")
		return model.Rejected(domain.ErrForbidden)
	}

	switch p.Status {
	case model.PaymentStatusCompleted:
		return u.currentState(ctx, p.UserID)
	case model.PaymentStatusPending:
	default:
		return model.Rejected(domain.ErrPaymentResolved)
	}

	if err := u.verifySignature(ctx, orderID, paymentID, signature); err != nil {
		metrics.IncSignatureFailure("verify", "mismatch")
		logging.Security(&log).Err(err).Msg("checkout signature rejected")
		// paymentID came with the rejected signature; it must not reach the ledger.
		if _, ferr := u.payments.MarkFailed(ctx, repository.NoTX, orderID, "", err.Error()); ferr != nil {
			log.Error().Err(ferr).Msg("could not mark payment failed after signature rejection")
		} else {
			metrics.IncPayment(string(model.PaymentStatusFailed))
		}
		return model.Rejected(domain.ErrInvalidSignature)
	}

	return u.complete(ctx, p, paymentID, model.PaymentStatusPending)
}

func (u *reconcileUC) verifySignature(ctx context.Context, orderID, paymentID, signature string) error {
	vctx, cancel := context.WithTimeout(ctx, u.providerTimeout)
	defer cancel()
	return u.provider.VerifySignature(vctx, orderID, paymentID, signature)
}

// complete runs the completion sequence for p. from lists the statuses the
// payment may be moved to COMPLETED from; only the caller whose conditional
// update succeeds goes on to activate.
func (u *reconcileUC) complete(ctx context.Context, p *model.Payment, remotePaymentID string, from ...model.PaymentStatus) model.Outcome {
	log := logging.With(ctx, u.log).With().
		Str("order_id", p.RemoteOrderID).
		Str("payment_id", remotePaymentID).
		Str("user_id", p.UserID).
		Logger()
	now := u.now()

	existing, err := u.subs.FindByUser(ctx, repository.NoTX, p.UserID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		log.Warn().Err(err).Msg("subscription lookup failed; continuing with activation")
	}
	if err == nil && existing.IsActiveFor(p.Plan, now) {
		won, err := u.payments.MarkCompleted(ctx, repository.NoTX, p.RemoteOrderID, remotePaymentID, now, from...)
		switch {
		case err != nil:
			u.manualIntervention(ctx, p, remotePaymentID, "mark_completed", "payment captured but ledger update failed", err)
		case won:
			u.recordCompleted(p)
			u.link(ctx, &log, p.RemoteOrderID, existing.ID)
		}
		log.Info().Str("subscription_id", existing.ID).Msg("plan already active; payment recorded without extension")
		return model.AlreadyActive(existing)
	}

	won, err := u.payments.MarkCompleted(ctx, repository.NoTX, p.RemoteOrderID, remotePaymentID, now, from...)
	switch {
	case err != nil:
		// Money has moved; entitlement must not wait on bookkeeping.
		u.manualIntervention(ctx, p, remotePaymentID, "mark_completed", "payment captured but ledger update failed", err)
	case !won:
		log.Debug().Msg("completion already claimed by a concurrent confirmation")
		return u.currentState(ctx, p.UserID)
	default:
		u.recordCompleted(p)
	}

	duration := u.entitlementDuration(ctx, &log, p.Plan, p.Currency)
	sub, err := model.NewActivation(uuid.NewString(), p.UserID, p.Plan, duration, now)
	if err == nil {
		sub, err = u.subs.Activate(ctx, repository.NoTX, sub)
	}
	if err != nil {
		u.manualIntervention(ctx, p, remotePaymentID, "activate", "payment completed but subscription activation failed", err)
		return model.PendingManualReview("subscription activation pending manual review")
	}
	metrics.IncSubscriptionActivated(p.Plan)

	u.link(ctx, &log, p.RemoteOrderID, sub.ID)
	log.Info().Str("subscription_id", sub.ID).Time("expires_at", sub.ExpiresAt).Msg("subscription activated")
	return model.Activated(sub)
}

func (u *reconcileUC) recordCompleted(p *model.Payment) {
	metrics.IncPayment(string(model.PaymentStatusCompleted))
	metrics.AddPaymentRevenue(string(p.Currency), p.Amount)
}

// entitlementDuration prefers the price table, active or not, and falls back
// to the plan default when no row can be read.
func (u *reconcileUC) entitlementDuration(ctx context.Context, log *zerolog.Logger, plan model.Plan, currency model.Currency) time.Duration {
	price, err := u.pricing.FindByPlanAndCurrency(ctx, repository.NoTX, plan, currency)
	if err == nil && price.Duration() > 0 {
		return price.Duration()
	}
	d := plan.DefaultDuration()
	log.Warn().Err(err).Str("plan", string(plan)).Str("currency", string(currency)).
		Dur("fallback", d).Msg("pricing unavailable at completion; using plan default duration")
	return d
}

func (u *reconcileUC) link(ctx context.Context, log *zerolog.Logger, orderID, subscriptionID string) {
	if err := u.payments.LinkSubscription(ctx, repository.NoTX, orderID, subscriptionID); err != nil {
		log.Warn().Err(err).Str("subscription_id", subscriptionID).Msg("could not link payment to subscription")
	}
}

// currentState reports the user's entitlement without changing anything.
func (u *reconcileUC) currentState(ctx context.Context, userID string) model.Outcome {
	if out, ok := u.activeState(ctx, userID); ok {
		return out
	}
	// The winner may still be writing the subscription; look once more.
	if u.settleDelay > 0 {
		t := time.NewTimer(u.settleDelay)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
			if out, ok := u.activeState(ctx, userID); ok {
				return out
			}
		}
	}
	return model.PendingManualReview("activation in progress")
}

func (u *reconcileUC) activeState(ctx context.Context, userID string) (model.Outcome, bool) {
	sub, err := u.subs.FindByUser(ctx, repository.NoTX, userID)
	if err == nil && sub.Status == model.SubscriptionStatusActive && sub.ExpiresAt.After(u.now()) {
		return model.AlreadyActive(sub), true
	}
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logging.With(ctx, u.log).Warn().Err(err).Str("user_id", userID).Msg("subscription lookup failed")
	}
	return model.Outcome{}, false
}

// manualIntervention records a state the engine cannot repair by itself.
func (u *reconcileUC) manualIntervention(ctx context.Context, p *model.Payment, remotePaymentID, stage, msg string, err error) {
	metrics.IncManualReview(stage)
	logging.ManualIntervention(logging.With(ctx, u.log)).Err(err).
		Str("stage", stage).
		Str("user_id", p.UserID).
		Str("order_id", p.RemoteOrderID).
		Str("payment_id", remotePaymentID).
		Int64("amount", p.Amount).
		Str("currency", string(p.Currency)).
		Str("plan", string(p.Plan)).
		Msg(msg)
	if u.alerts == nil {
		return
	}
	u.alerts.Alert(ctx, adapter.OpsAlert{
		Severity: adapter.AlertCritical,
		Title:    msg,
		Fields: map[string]string{
			"stage":      stage,
			"user_id":    p.UserID,
			"order_id":   p.RemoteOrderID,
			"payment_id": remotePaymentID,
			"amount":     model.FormatAmount(p.Amount, p.Currency),
			"plan":       string(p.Plan),
		},
	})
}

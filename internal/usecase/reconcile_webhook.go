package usecase

import (
	"context"
	"errors"
	"strconv"

	"github.com/rs/zerolog"

	"finance-billing/internal/domain"
	"finance-billing/internal/domain/model"
	"finance-billing/internal/domain/ports/adapter"
	"finance-billing/internal/domain/ports/repository"
	"finance-billing/internal/infra/logging"
	"finance-billing/internal/infra/metrics"
)

func (u *reconcileUC) HandleWebhook(ctx context.Context, rawBody []byte, signature string) (model.WebhookReceipt, error) {
	defer logging.TraceDuration(u.log, "ReconcileUC.HandleWebhook")()
	log := logging.With(ctx, u.log).With().Str("path", "webhook").Logger()

	if signature == "" {
		metrics.IncSignatureFailure("webhook", "missing")
		logging.Security(&log).Msg("webhook without signature header")
		return model.WebhookReceipt{}, domain.ErrMissingSignature
	}

	ev, err := u.provider.ParseWebhook(ctx, rawBody, signature)
	switch {
	case errors.Is(err, domain.ErrMalformedPayload):
		log.Warn().Err(err).Int("bytes", len(rawBody)).Msg("authenticated webhook could not be parsed")
		metrics.IncWebhookEvent("unparseable", string(model.WebhookAcknowledged))
		return model.WebhookReceipt{Action: model.WebhookAcknowledged}, nil
	case errors.Is(err, domain.ErrMissingSignature):
		metrics.IncSignatureFailure("webhook", "missing")
		return model.WebhookReceipt{}, domain.ErrMissingSignature
	case err != nil:
		metrics.IncSignatureFailure("webhook", "mismatch")
		logging.Security(&log).Int("bytes", len(rawBody)).Msg("webhook signature rejected")
		return model.WebhookReceipt{}, domain.ErrInvalidSignature
	}

	var rc model.WebhookReceipt
	switch e := ev.(type) {
	case model.PaymentCaptured:
		rc = u.onCaptured(ctx, &log, e)
	case model.PaymentFailed:
		rc = u.onFailed(ctx, &log, e)
	case model.RefundCreated:
		rc = u.onRefund(ctx, &log, e)
	default:
		log.Info().Str("event", ev.EventName()).Msg("webhook event acknowledged without handling")
		rc = model.WebhookReceipt{Action: model.WebhookAcknowledged}
	}
	rc.Event = ev.EventName()
	metrics.IncWebhookEvent(rc.Event, string(rc.Action))
	if rc.Outcome != nil {
		metrics.IncReconcileOutcome("webhook", string(rc.Outcome.Kind))
	}
	return rc, nil
}

func (u *reconcileUC) onCaptured(ctx context.Context, log *zerolog.Logger, e model.PaymentCaptured) model.WebhookReceipt {
	rc := model.WebhookReceipt{OrderID: e.OrderID}
	p, err := u.payments.FindByRemoteOrderID(ctx, repository.NoTX, e.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		log.Info().Str("order_id", e.OrderID).Msg("capture for unknown order ignored")
		rc.Action = model.WebhookIgnored
		return rc
	}
	if err != nil {
		u.webhookFailure(ctx, log, "capture", e.OrderID, e.PaymentID, err)
		rc.Action = model.WebhookInternalError
		return rc
	}

	var out model.Outcome
	switch p.Status {
	case model.PaymentStatusCompleted:
		rc.Action = model.WebhookAlreadyCompleted
		return rc
	case model.PaymentStatusRefunded:
		log.Warn().Str("order_id", e.OrderID).Msg("capture received for refunded payment; ignored")
		rc.Action = model.WebhookIgnored
		return rc
	case model.PaymentStatusFailed:
		log.Warn().Str("order_id", e.OrderID).Str("payment_id", e.PaymentID).Str("user_id", p.UserID).
			Msg("provider reports capture for a payment marked failed; completing")
		out = u.complete(ctx, p, e.PaymentID, model.PaymentStatusPending, model.PaymentStatusFailed)
	default:
		out = u.complete(ctx, p, e.PaymentID, model.PaymentStatusPending)
	}
	rc.Action = model.WebhookCompleted
	rc.Outcome = &out
	return rc
}

func (u *reconcileUC) onFailed(ctx context.Context, log *zerolog.Logger, e model.PaymentFailed) model.WebhookReceipt {
	rc := model.WebhookReceipt{OrderID: e.OrderID, Action: model.WebhookIgnored}
	p, err := u.payments.FindByRemoteOrderID(ctx, repository.NoTX, e.OrderID)
	if errors.Is(err, domain.ErrNotFound) {
		return rc
	}
	if err != nil {
		u.webhookFailure(ctx, log, "failure", e.OrderID, e.PaymentID, err)
		rc.Action = model.WebhookInternalError
		return rc
	}
	if !p.IsPending() {
		// typically a failure event delivered after a capture already landed
		log.Info().Str("order_id", e.OrderID).Str("status", string(p.Status)).Msg("failure event for resolved payment ignored")
		return rc
	}

	won, err := u.payments.MarkFailed(ctx, repository.NoTX, e.OrderID, e.PaymentID, e.Reason)
	if err != nil {
		u.webhookFailure(ctx, log, "failure", e.OrderID, e.PaymentID, err)
		rc.Action = model.WebhookInternalError
		return rc
	}
	if won {
		metrics.IncPayment(string(model.PaymentStatusFailed))
		log.Info().Str("order_id", e.OrderID).Str("reason", e.Reason).Msg("payment marked failed by provider")
		rc.Action = model.WebhookMarkedFailed
	}
	return rc
}

// onRefund only records the event. Whether the subscription is revoked is an
// operator decision.
func (u *reconcileUC) onRefund(ctx context.Context, log *zerolog.Logger, e model.RefundCreated) model.WebhookReceipt {
	rc := model.WebhookReceipt{Action: model.WebhookLogged}
	fields := map[string]string{
		"refund_id":  e.RefundID,
		"payment_id": e.PaymentID,
		"amount":     strconv.FormatInt(e.Amount, 10),
	}

	ev := log.Warn().Str("refund_id", e.RefundID).Str("payment_id", e.PaymentID).Int64("refund_amount", e.Amount)
	p, err := u.payments.FindByRemotePaymentID(ctx, repository.NoTX, e.PaymentID)
	switch {
	case err == nil:
		rc.OrderID = p.RemoteOrderID
		fields["order_id"] = p.RemoteOrderID
		fields["user_id"] = p.UserID
		fields["amount"] = model.FormatAmount(e.Amount, p.Currency)
		ev = ev.Str("order_id", p.RemoteOrderID).Str("user_id", p.UserID).Str("status", string(p.Status))
	case !errors.Is(err, domain.ErrNotFound):
		ev = ev.AnErr("lookup_error", err)
	}
	ev.Msg("refund created at provider; manual handling required")

	if u.alerts != nil {
		u.alerts.Alert(ctx, adapter.OpsAlert{Severity: adapter.AlertWarning, Title: "refund created at provider", Fields: fields})
	}
	return rc
}

// webhookFailure logs an authenticated event the engine could not apply. The
// provider still gets a success answer, so this log is the only trace.
func (u *reconcileUC) webhookFailure(ctx context.Context, log *zerolog.Logger, stage, orderID, paymentID string, err error) {
	metrics.IncManualReview("webhook_" + stage)
	logging.ManualIntervention(log).Err(err).Str("stage", stage).Str("order_id", orderID).
		Str("payment_id", paymentID).Msg("webhook event could not be applied")
	if u.alerts != nil {
		u.alerts.Alert(ctx, adapter.OpsAlert{
			Severity: adapter.AlertCritical,
			Title:    "webhook event could not be applied",
			Fields:   map[string]string{"stage": stage, "order_id": orderID, "payment_id": paymentID},
		})
	}
}

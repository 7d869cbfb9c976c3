package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"finance-billing/internal/domain"
	"finance-billing/internal/domain/model"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: code, Message: msg})
}

// statusFor maps domain errors to HTTP. Messages come from the sentinels, not
// from wrapped internal errors.
func statusFor(err error) (int, string, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "invalid_argument", domain.ErrInvalidArgument.Error()
	case errors.Is(err, domain.ErrPricingNotFound):
		return http.StatusBadRequest, "pricing_not_found", domain.ErrPricingNotFound.Error()
	case errors.Is(err, domain.ErrPricingInactive):
		return http.StatusBadRequest, "pricing_inactive", domain.ErrPricingInactive.Error()
	case errors.Is(err, domain.ErrInvalidSignature):
		return http.StatusBadRequest, "invalid_signature", domain.ErrInvalidSignature.Error()
	case errors.Is(err, domain.ErrMissingSignature):
		return http.StatusBadRequest, "missing_signature", domain.ErrMissingSignature.Error()
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "forbidden", domain.ErrForbidden.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", domain.ErrNotFound.Error()
	case errors.Is(err, domain.ErrPaymentResolved):
		return http.StatusConflict, "payment_resolved", domain.ErrPaymentResolved.Error()
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition", domain.ErrInvalidTransition.Error()
	case errors.Is(err, domain.ErrNoActiveSubscription):
		return http.StatusConflict, "no_active_subscription", domain.ErrNoActiveSubscription.Error()
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited", domain.ErrRateLimited.Error()
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusServiceUnavailable, "provider_unavailable", "payment provider unavailable, retry later"
	case errors.Is(err, domain.ErrOperationFailed):
		return http.StatusServiceUnavailable, "unavailable", "temporarily unavailable, retry later"
	}
	return http.StatusInternalServerError, "internal_error", "internal error"
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code, msg := statusFor(err)
	writeError(w, status, code, msg)
}

type subscriptionView struct {
	ID        string `json:"id"`
	Plan      string `json:"plan"`
	Status    string `json:"status"`
	ExpiresAt string `json:"expires_at"`
}

func viewSubscription(s *model.Subscription) *subscriptionView {
	if s == nil {
		return nil
	}
	return &subscriptionView{
		ID:        s.ID,
		Plan:      string(s.Plan),
		Status:    string(s.Status),
		ExpiresAt: s.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

type outcomeView struct {
	Outcome      string            `json:"outcome"`
	Subscription *subscriptionView `json:"subscription,omitempty"`
	Reason       string            `json:"reason,omitempty"`
}

type paymentView struct {
	OrderID   string `json:"remote_order_id"`
	UserID    string `json:"user_id"`
	Plan      string `json:"plan"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Display   string `json:"amount_display"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func viewPayment(p *model.Payment) paymentView {
	return paymentView{
		OrderID:   p.RemoteOrderID,
		UserID:    p.UserID,
		Plan:      string(p.Plan),
		Amount:    p.Amount,
		Currency:  string(p.Currency),
		Display:   model.FormatAmount(p.Amount, p.Currency),
		Status:    string(p.Status),
		CreatedAt: p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

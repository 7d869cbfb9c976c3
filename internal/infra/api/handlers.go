package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"finance-billing/internal/domain"
	"finance-billing/internal/domain/model"
	"finance-billing/internal/infra/logging"
	red "finance-billing/internal/infra/redis"
)

type createOrderRequest struct {
	Plan     string `json:"plan" validate:"required,oneof=PRO_MONTHLY PRO_YEARLY"`
	Currency string `json:"currency" validate:"required,oneof=INR USD EUR"`
}

type createOrderResponse struct {
	PaymentID     string         `json:"payment_id"`
	RemoteOrderID string         `json:"remote_order_id"`
	Plan          string         `json:"plan"`
	Currency      string         `json:"currency"`
	Amount        int64          `json:"amount"`
	Checkout      map[string]any `json:"checkout"`
}

type verifyRequest struct {
	RemoteOrderID   string `json:"remote_order_id" validate:"required,max=64"`
	RemotePaymentID string `json:"remote_payment_id" validate:"required,max=64"`
	Signature       string `json:"signature" validate:"required,max=256"`
}

// decode reads a bounded JSON body and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return false
	}
	if n, ok := v.(interface{ normalize() }); ok {
		n.normalize()
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", validationMessage(err))
		return false
	}
	return true
}

func (r *createOrderRequest) normalize() {
	r.Plan = string(model.ParsePlan(r.Plan))
	r.Currency = string(model.ParseCurrency(r.Currency))
}

func (r *verifyRequest) normalize() {
	r.RemoteOrderID = strings.TrimSpace(r.RemoteOrderID)
	r.RemotePaymentID = strings.TrimSpace(r.RemotePaymentID)
	r.Signature = strings.TrimSpace(r.Signature)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fields := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, strings.ToLower(fe.Field())+" "+fe.Tag())
		}
		return "invalid fields: " + strings.Join(fields, ", ")
	}
	return domain.ErrInvalidArgument.Error()
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !s.decode(w, r, &req) {
		return
	}
	intent, err := s.reconcile.CreateOrder(r.Context(), callerID(r.Context()), model.Plan(req.Plan), model.Currency(req.Currency))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, createOrderResponse{
		PaymentID:     intent.PaymentID,
		RemoteOrderID: intent.RemoteOrderID,
		Plan:          string(intent.Plan),
		Currency:      string(intent.Currency),
		Amount:        intent.Amount,
		Checkout:      intent.ClientData,
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := callerID(ctx)

	if s.limiter != nil && s.opts.VerifyPerMinute > 0 {
		ok, err := s.limiter.Allow(ctx, red.UserActionKey(userID, "verify"), s.opts.VerifyPerMinute, time.Minute)
		if err != nil {
			logging.With(ctx, s.log).Warn().Err(err).Msg("rate limiter unavailable; allowing request")
		} else if !ok {
			writeDomainError(w, domain.ErrRateLimited)
			return
		}
	}

	var req verifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	out := s.reconcile.VerifyPayment(ctx, userID, req.RemoteOrderID, req.RemotePaymentID, req.Signature)
	if out.IsRejected() {
		writeDomainError(w, out.Err)
		return
	}
	writeJSON(w, http.StatusOK, outcomeView{
		Outcome:      string(out.Kind),
		Subscription: viewSubscription(out.Subscription),
		Reason:       out.Reason,
	})
}

// handleWebhook hands the exact received bytes to the engine.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "body_too_large", "payload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_body", "could not read body")
		return
	}

	rc, err := s.reconcile.HandleWebhook(r.Context(), body, r.Header.Get(s.opts.SignatureHeader))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "action": string(rc.Action)})
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subs.Get(r.Context(), callerID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSubscription(sub))
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subs.Cancel(r.Context(), callerID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewSubscription(sub))
}

func (s *Server) handleListStale(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	olderThan := 30 * time.Minute
	if v := q.Get("older_than"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_argument", "older_than must be a positive duration")
			return
		}
		olderThan = d
	}
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_argument", "limit must be a positive integer")
			return
		}
		limit = n
	}

	items, err := s.admin.ListStale(r.Context(), olderThan, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]paymentView, 0, len(items))
	for _, p := range items {
		out = append(out, viewPayment(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": out, "count": len(out)})
}

func (s *Server) handleRecordRefund(w http.ResponseWriter, r *http.Request) {
	p, err := s.admin.RecordRefund(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewPayment(p))
}

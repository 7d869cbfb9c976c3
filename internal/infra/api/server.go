package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"finance-billing/internal/infra/metrics"
	"finance-billing/internal/usecase"
)

// RateLimiter is satisfied by redis.RateLimiter.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// Pinger reports backing store health for /healthz.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	RequestTimeout  time.Duration
	MaxBodyBytes    int64
	VerifyPerMinute int
	AdminAPIKey     string
	SignatureHeader string
}

// Server exposes the billing engine over HTTP.
type Server struct {
	reconcile usecase.ReconcileUseCase
	subs      usecase.SubscriptionUseCase
	admin     usecase.PaymentAdminUseCase
	auth      *Authenticator
	limiter   RateLimiter
	health    []Pinger
	validate  *validator.Validate
	opts      Options
	log       *zerolog.Logger
}

func NewServer(
	reconcile usecase.ReconcileUseCase,
	subs usecase.SubscriptionUseCase,
	admin usecase.PaymentAdminUseCase,
	auth *Authenticator,
	limiter RateLimiter,
	opts Options,
	logger *zerolog.Logger,
	health ...Pinger,
) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	if opts.SignatureHeader == "" {
		opts.SignatureHeader = "X-Razorpay-Signature"
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "http").Logger()
	return &Server{
		reconcile: reconcile,
		subs:      subs,
		admin:     admin,
		auth:      auth,
		limiter:   limiter,
		health:    health,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		opts:      opts,
		log:       &l,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(), RequestLog(s.log), Recover(s.log), Timeout(s.opts.RequestTimeout))

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/webhooks/payments", s.handleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(s.auth.RequireUser)
			r.Post("/orders", s.handleCreateOrder)
			r.Post("/payments/verify", s.handleVerify)
			r.Get("/subscription", s.handleGetSubscription)
			r.Post("/subscription/cancel", s.handleCancelSubscription)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(RequireAdminKey(s.opts.AdminAPIKey))
		r.Get("/payments/stale", s.handleListStale)
		r.Post("/payments/{orderID}/refunded", s.handleRecordRefund)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	for _, p := range s.health {
		if err := p.Ping(ctx); err != nil {
			s.log.Warn().Err(err).Msg("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

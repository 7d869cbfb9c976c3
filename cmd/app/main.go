// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"finance-billing/internal/config"
	"finance-billing/internal/domain/ports/adapter"
	"finance-billing/internal/domain/ports/repository"
	payAdapters "finance-billing/internal/infra/adapters/payment"
	tele "finance-billing/internal/infra/adapters/telegram"
	"finance-billing/internal/infra/api"
	pg "finance-billing/internal/infra/db/postgres"
	"finance-billing/internal/infra/logging"
	"finance-billing/internal/infra/metrics"
	red "finance-billing/internal/infra/redis"
	"finance-billing/internal/infra/sched"
	"finance-billing/internal/infra/scheduler"
	"finance-billing/internal/infra/worker"
	"finance-billing/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (fake payment provider allowed)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled")
	}
	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, cfg.Scheduler.PoolStatsInterval)

	// ---- Repositories ----
	payRepo := pg.NewPaymentRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	txm := pg.NewTxManager(pool)
	var pricingRepo repository.PricingRepository = pg.NewPricingRepo(pool)

	health := []api.Pinger{pool}

	// ---- Redis (optional) ----
	var (
		limiter api.RateLimiter
		locker  scheduler.Locker
	)
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis")
		}
		defer redisClient.Close()
		pricingRepo = pg.NewPricingRepoCacheDecorator(pricingRepo, redisClient, cfg.Redis.TTL)
		limiter = red.NewRateLimiter(redisClient)
		locker = red.NewLocker(redisClient)
		health = append(health, redisClient)
	} else {
		logger.Warn().Msg("redis.url not set; pricing cache, rate limiting and job leases disabled")
	}

	// ---- Payment provider ----
	provider, err := newProvider(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("payment provider")
	}
	logger.Info().Str("provider", provider.Name()).Msg("payment provider ready")

	// ---- Alerts ----
	// own context: queued alerts must outlive the request context at shutdown
	alertCtx, stopAlerts := context.WithCancel(context.Background())
	defer stopAlerts()
	alertPool := worker.NewPool(cfg.Alerts.Workers, logger)
	alertPool.Start(alertCtx)
	alerts := newAlerter(cfg, alertPool, logger)

	// ---- Use cases ----
	reconcileUC := usecase.NewReconcileUseCase(payRepo, subRepo, pricingRepo, provider, alerts, logger,
		usecase.WithProviderTimeout(cfg.Payment.Timeout))
	subUC := usecase.NewSubscriptionUseCase(subRepo, logger)
	adminUC := usecase.NewPaymentAdminUseCase(payRepo, txm, logger)

	// ---- Background jobs ----
	jobs := []*scheduler.Scheduler{
		scheduler.NewScheduler(cfg.Scheduler.ExpiryInterval, sched.NewExpiryWorker(subUC, logger), locker, logger),
		scheduler.NewScheduler(cfg.Scheduler.PendingAuditInterval,
			sched.NewPendingAuditor(adminUC, cfg.Scheduler.PendingStaleAfter, logger), locker, logger),
	}
	for _, j := range jobs {
		j.Start(ctx)
	}

	// ---- HTTP ----
	auth, err := api.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("auth")
	}
	if cfg.Admin.APIKey == "" {
		logger.Warn().Msg("ADMIN_API_KEY not set; admin routes disabled")
	}
	srv := api.NewServer(reconcileUC, subUC, adminUC, auth, limiter, api.Options{
		RequestTimeout:  cfg.Server.RequestTimeout,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		VerifyPerMinute: cfg.RateLimit.VerifyPerMinute,
		AdminAPIKey:     cfg.Admin.APIKey,
	}, logger, health...)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           srv.Routes(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("http listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	shutdown(logger, server, jobs, alertPool, stopAlerts)
	cancel()
}

// shutdown stops intake, then the jobs, then flushes queued alerts before
// their context is cancelled.
func shutdown(logger *zerolog.Logger, server *http.Server, jobs []*scheduler.Scheduler, alertPool *worker.Pool, stopAlerts context.CancelFunc) {
	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	for _, j := range jobs {
		j.Stop()
	}
	alertPool.Stop()
	stopAlerts()
	done, failed := alertPool.Stats()
	logger.Info().Int64("alerts_sent", done).Int64("alerts_failed", failed).Msg("alert queue flushed")
}

func newProvider(cfg *config.Config) (adapter.PaymentProvider, error) {
	switch cfg.Payment.Provider {
	case "fake":
		keySecret, hookSecret := cfg.Payment.KeySecret, cfg.Payment.WebhookSecret
		if keySecret == "" {
			keySecret = "dev-key-secret"
		}
		if hookSecret == "" {
			hookSecret = "dev-webhook-secret"
		}
		return payAdapters.NewFakeProvider(keySecret, hookSecret)
	default:
		return payAdapters.NewRazorpayGateway(payAdapters.RazorpayConfig{
			BaseURL:       cfg.Payment.BaseURL,
			KeyID:         cfg.Payment.KeyID,
			KeySecret:     cfg.Payment.KeySecret,
			WebhookSecret: cfg.Payment.WebhookSecret,
			MerchantName:  cfg.Payment.MerchantName,
			HTTPTimeout:   cfg.Payment.Timeout,
		})
	}
}

// newAlerter sends ops alerts to Telegram when configured and to the log otherwise.
func newAlerter(cfg *config.Config, pool *worker.Pool, logger *zerolog.Logger) adapter.OpsAlerter {
	if cfg.Alerts.TelegramToken == "" || cfg.Alerts.TelegramChatID == 0 {
		return tele.NewLogAlerter(logger)
	}
	bot, err := tele.NewBotAPI(cfg.Alerts.TelegramToken)
	if err != nil {
		logger.Error().Err(err).Msg("telegram alerts unavailable; logging alerts instead")
		return tele.NewLogAlerter(logger)
	}
	n, err := tele.NewAlertNotifier(bot, cfg.Alerts.TelegramChatID, pool, logger)
	if err != nil {
		logger.Error().Err(err).Msg("telegram alerts unavailable; logging alerts instead")
		return tele.NewLogAlerter(logger)
	}
	return n
}

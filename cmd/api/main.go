package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/talshachar/therabill/internal/analysis"
	"github.com/talshachar/therabill/internal/api/router"
	"github.com/talshachar/therabill/internal/billing"
	"github.com/talshachar/therabill/internal/calendar"
	appconfig "github.com/talshachar/therabill/internal/config"
	"github.com/talshachar/therabill/internal/http/handlers"
	"github.com/talshachar/therabill/internal/observability/metrics"
	"github.com/talshachar/therabill/internal/patients"
	"github.com/talshachar/therabill/internal/payments"
	"github.com/talshachar/therabill/pkg/logging"
)

func main() {
	// Load .env when present; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := appconfig.Load()

	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting therabill API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx := context.Background()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Google Calendar is the single source of truth for sessions.
	var calOpts []option.ClientOption
	if cfg.GoogleCredentialsFile != "" {
		calOpts = append(calOpts, option.WithCredentialsFile(cfg.GoogleCredentialsFile))
	}
	calSvc, err := gcal.NewService(ctx, calOpts...)
	if err != nil {
		logger.Error("failed to create calendar service", "error", err)
		os.Exit(1)
	}
	provider := calendar.NewGoogleProvider(calSvc, logger)

	// Stores.
	patientStore := patients.NewStore(pool)
	aliasStore := billing.NewAliasStore(pool)
	ignoreStore := billing.NewIgnoreStore(pool)
	overrideStore := billing.NewOverrideStore(pool)
	paymentStore := payments.NewStore(pool)
	settingsStore := analysis.NewSettingsStore(pool, cfg.DefaultVATRatePercent)

	billingSvc := billing.NewService(
		patientStore,
		aliasStore,
		ignoreStore,
		overrideStore,
		provider,
		cfg.GoogleCalendarID,
		logger,
	)

	repainter := calendar.NewRepainter(provider, logger).
		WithBatchSize(cfg.RepaintBatchSize).
		WithBatchDelay(cfg.RepaintBatchDelay).
		WithMaxRetries(cfg.RepaintMaxRetries).
		WithRetryBase(cfg.RepaintRetryBase)

	// Sync-state cache: Redis when configured, otherwise process-local.
	var syncCache payments.SyncCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		syncCache = payments.NewRedisCache(rdb, cfg.SyncCacheTTL)
		logger.Info("sync cache backed by redis", "addr", cfg.RedisAddr)
	} else {
		syncCache = payments.NewMemoryCache()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	reconcilerMetrics := metrics.NewReconcilerMetrics(reg)

	reconciler := payments.NewReconciler(paymentStore, provider, repainter, syncCache, logger, reconcilerMetrics)

	routerCfg := &router.Config{
		Logger:             logger,
		Billing:            handlers.NewBillingHandler(billingSvc, logger),
		Payments:           handlers.NewPaymentsHandler(billingSvc, reconciler, logger),
		Analysis:           handlers.NewAnalysisHandler(paymentStore, patientStore, settingsStore, logger),
		Patients:           handlers.NewPatientsHandler(patientStore, logger),
		MatchingAdmin:      handlers.NewMatchingAdminHandler(aliasStore, ignoreStore, overrideStore, logger),
		Settings:           handlers.NewSettingsHandler(settingsStore, logger),
		CalendarAdmin:      handlers.NewCalendarAdminHandler(provider, cfg.GoogleCalendarID, logger),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		TherapistJWTSecret: cfg.TherapistJWTSecret,
		CORSAllowedOrigins: splitOrigins(cfg.CORSAllowedOrigins),
	}
	r := router.New(routerCfg)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func splitOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

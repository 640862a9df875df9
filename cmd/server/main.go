package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbilling "github.com/agency/backoffice/internal/application/billing"
	"github.com/agency/backoffice/internal/infrastructure/cache"
	"github.com/agency/backoffice/internal/infrastructure/config"
	"github.com/agency/backoffice/internal/infrastructure/logger"
	"github.com/agency/backoffice/internal/infrastructure/persistence"
	"github.com/agency/backoffice/internal/infrastructure/telemetry"
	"github.com/agency/backoffice/internal/interfaces/http/handler"
	"github.com/agency/backoffice/internal/interfaces/http/middleware"
	"github.com/agency/backoffice/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting agency back-office",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("agency", cfg.Billing.AgencyID),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}
	tp, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	log = lp.Bridge(log, level)
	defer zap.ReplaceGlobals(log)()

	db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite database", zap.Error(err))
		}
	}
	if err := telemetry.NewDBTracingPlugin(telemetry.DefaultDBTracingConfig(), log).Register(db.DB); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}

	recorders := appbilling.MultiMetrics{}
	var prom *telemetry.PrometheusMetrics
	if cfg.Telemetry.MetricsEnabled {
		prom = telemetry.NewPrometheusMetrics()
		if sqlDB, err := db.DB.DB(); err == nil {
			if err := prom.RegisterDBStats(sqlDB, cfg.Database.DBName); err != nil {
				log.Warn("Failed to register database pool metrics", zap.Error(err))
			}
		}
		recorders = append(recorders, prom)
	}
	if mp.IsEnabled() {
		bm, err := telemetry.NewBillingMetrics(mp.Meter("backoffice/billing"))
		if err != nil {
			log.Fatal("Failed to create billing metrics", zap.Error(err))
		}
		recorders = append(recorders, bm)
	}

	configCache, err := cache.NewCalcConfigCacheFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateCache()
	if err != nil {
		log.Fatal("Failed to create calc config cache", zap.Error(err))
	}

	defaultFeePct := decimal.NewFromFloat(cfg.Billing.DefaultTransferFeePct)
	summaries := appbilling.NewSummaryService(appbilling.SummaryServiceConfig{
		Configs: cache.NewCachedCalcConfigProvider(
			persistence.NewGormCalcConfigRepository(db.DB),
			configCache,
			cfg.Billing.ConfigCacheTTL,
			log,
		),
		Commissions:           persistence.NewGormCommissionRepository(db.DB),
		AgencyID:              cfg.Billing.AgencyID,
		DefaultTransferFeePct: &defaultFeePct,
		RetrievalTimeout:      cfg.Billing.RetrievalTimeout,
		Logger:                log,
		Metrics:               recorders,
	})

	pruneCtx, stopPrune := context.WithCancel(ctx)
	go pruneSessions(pruneCtx, summaries, cfg.Billing, log)

	health := handler.NewHealthHandler(version, map[string]handler.HealthCheck{
		"database": func(context.Context) error { return db.Ping() },
	})

	engineCfg := router.EngineConfig{
		Logger:         log,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tp.IsEnabled(),
		CORS:           middleware.DefaultCORSConfig(),
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		RequestTimeout: cfg.HTTP.WriteTimeout,
		Health:         health.Health,
	}
	if prom != nil {
		engineCfg.Metrics = prom
	}
	if cfg.HTTP.RateLimitEnabled {
		engineCfg.RateLimiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	engine, err := router.NewEngine(engineCfg)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	router.NewRouter(engine, router.WithMiddleware(router.APIMiddleware(engineCfg)...)).
		Register(handler.NewBillingHandler(summaries)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stopPrune()
	if engineCfg.RateLimiter != nil {
		engineCfg.RateLimiter.Stop()
	}
	if err := configCache.Close(); err != nil {
		log.Warn("Failed to close calc config cache", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tp.Shutdown,
		"meter":  mp.Shutdown,
		"logger": lp.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			log.Warn("Telemetry provider shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

// pruneSessions periodically forgets booking sessions nobody asked about
// for longer than the idle timeout.
func pruneSessions(ctx context.Context, svc *appbilling.SummaryService, cfg config.BillingConfig, log *zap.Logger) {
	if cfg.SessionPruneInterval <= 0 || cfg.SessionIdleTimeout <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.SessionPruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svc.PruneSessions(cfg.SessionIdleTimeout); n > 0 {
				log.Debug("Pruned idle booking sessions", zap.Int("count", n))
			}
		}
	}
}

package router

import (
	"net/http"
	"time"

	"github.com/agency/backoffice/internal/infrastructure/logger"
	"github.com/agency/backoffice/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MetricsEndpoint records HTTP requests and serves the scrape endpoint
type MetricsEndpoint interface {
	middleware.RequestRecorder
	Handler() http.Handler
}

// EngineConfig describes the middleware stack of the HTTP engine
type EngineConfig struct {
	Logger         *zap.Logger
	ServiceName    string
	TracingEnabled bool
	TracerProvider trace.TracerProvider
	CORS           middleware.CORSConfig
	TrustedProxies []string
	MaxBodySize    int64
	RequestTimeout time.Duration
	// RateLimiter is optional; nil disables rate limiting of API routes
	RateLimiter *middleware.RateLimiter
	// Metrics is optional; nil disables request metrics and /metrics
	Metrics MetricsEndpoint
	// Health serves GET /health when set
	Health gin.HandlerFunc
}

// NewEngine builds a gin engine with the global middleware, /health and
// /metrics. API routes are mounted afterwards through a Router.
func NewEngine(cfg EngineConfig) (*gin.Engine, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName:    cfg.ServiceName,
			Enabled:        cfg.TracingEnabled,
			TracerProvider: cfg.TracerProvider,
		}),
		middleware.TracingAttributes(),
		middleware.SpanErrorMarker(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Secure(),
		middleware.CORSWithConfig(cfg.CORS),
	)
	if cfg.Metrics != nil {
		engine.Use(middleware.HTTPMetrics(cfg.Metrics))
		engine.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}
	if cfg.Health != nil {
		engine.GET("/health", cfg.Health)
	}
	return engine, nil
}

// APIMiddleware returns the middleware that only guards API routes
func APIMiddleware(cfg EngineConfig) []gin.HandlerFunc {
	handlers := []gin.HandlerFunc{
		middleware.BodyLimit(cfg.MaxBodySize),
		middleware.Timeout(cfg.RequestTimeout),
	}
	if cfg.RateLimiter != nil {
		handlers = append(handlers, cfg.RateLimiter.Middleware())
	}
	return handlers
}

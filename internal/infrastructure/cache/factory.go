package cache

import (
	"fmt"

	"github.com/agency/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// CalcConfigCacheFactory creates calc config caches based on configuration
type CalcConfigCacheFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// CalcConfigCacheFactoryOption is a functional option for configuring the factory
type CalcConfigCacheFactoryOption func(*CalcConfigCacheFactory)

// WithLogger sets the logger for the factory and the caches it creates
func WithLogger(logger *zap.Logger) CalcConfigCacheFactoryOption {
	return func(f *CalcConfigCacheFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to
// the in-memory cache. Default is true.
func WithInMemoryFallback(allow bool) CalcConfigCacheFactoryOption {
	return func(f *CalcConfigCacheFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewCalcConfigCacheFactory creates a new factory
func NewCalcConfigCacheFactory(cfg config.RedisConfig, opts ...CalcConfigCacheFactoryOption) *CalcConfigCacheFactory {
	f := &CalcConfigCacheFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateCache returns a Redis cache when Redis is enabled and reachable,
// otherwise an in-memory cache if fallback is allowed
func (f *CalcConfigCacheFactory) CreateCache() (CalcConfigCache, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("Redis disabled, using in-memory calc config cache")
		return NewInMemoryCalcConfigCache(f.logger), nil
	}

	c, err := NewRedisCalcConfigCache(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	}, f.logger)
	if err == nil {
		f.logger.Info("using Redis calc config cache", zap.String("addr", f.redisConfig.Addr()))
		return c, nil
	}

	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("Redis required for calc config cache but unavailable: %w", err)
	}

	f.logger.Warn("Redis unavailable, falling back to in-memory calc config cache. "+
		"Configuration changes made through other instances may be seen late.",
		zap.Error(err),
	)
	return NewInMemoryCalcConfigCache(f.logger), nil
}

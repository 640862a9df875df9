package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agency/backoffice/internal/domain/billing"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const defaultCalcConfigKeyPrefix = "billing:calc_config:"

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// RedisCalcConfigCache implements CalcConfigCache using Redis so that every
// instance sees the same invalidations
type RedisCalcConfigCache struct {
	client     *redis.Client
	ownsClient bool
	keyPrefix  string
	logger     *zap.Logger
}

// NewRedisCalcConfigCache connects to Redis and verifies the connection
func NewRedisCalcConfigCache(cfg RedisConfig, logger *zap.Logger) (*RedisCalcConfigCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c := NewRedisCalcConfigCacheWithClient(client, "", logger)
	c.ownsClient = true
	return c, nil
}

// NewRedisCalcConfigCacheWithClient creates a cache on an existing client.
// The caller keeps ownership of the client.
func NewRedisCalcConfigCacheWithClient(client *redis.Client, keyPrefix string, logger *zap.Logger) *RedisCalcConfigCache {
	if keyPrefix == "" {
		keyPrefix = defaultCalcConfigKeyPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisCalcConfigCache{client: client, keyPrefix: keyPrefix, logger: logger}
}

func (c *RedisCalcConfigCache) key(agencyID string) string {
	return c.keyPrefix + agencyID
}

// Get returns the cached document or nil on a miss
func (c *RedisCalcConfigCache) Get(ctx context.Context, agencyID string) (*billing.RawCalcConfig, error) {
	data, err := c.client.Get(ctx, c.key(agencyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get calc config from Redis: %w", err)
	}
	raw, err := decodeRaw(data)
	if err != nil {
		// a corrupt entry counts as a miss and is dropped
		c.logger.Warn("discarding undecodable cached calc config",
			zap.String("agency_id", agencyID), zap.Error(err))
		_ = c.client.Del(ctx, c.key(agencyID)).Err()
		return nil, nil
	}
	return raw, nil
}

// Set stores the document with ttl
func (c *RedisCalcConfigCache) Set(ctx context.Context, agencyID string, raw *billing.RawCalcConfig, ttl time.Duration) error {
	if raw == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultCalcConfigTTL
	}
	data, err := encodeRaw(raw)
	if err != nil {
		return fmt.Errorf("failed to encode calc config: %w", err)
	}
	if err := c.client.Set(ctx, c.key(agencyID), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set calc config in Redis: %w", err)
	}
	return nil
}

// Delete removes the cached document of an agency
func (c *RedisCalcConfigCache) Delete(ctx context.Context, agencyID string) error {
	if err := c.client.Del(ctx, c.key(agencyID)).Err(); err != nil {
		return fmt.Errorf("failed to delete calc config from Redis: %w", err)
	}
	return nil
}

// Close closes the client when the cache created it
func (c *RedisCalcConfigCache) Close() error {
	if c.ownsClient {
		return c.client.Close()
	}
	return nil
}

var _ CalcConfigCache = (*RedisCalcConfigCache)(nil)

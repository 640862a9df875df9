package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agency/backoffice/internal/domain/billing"
	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// cacheEntry wraps a cached value with expiration time
type cacheEntry[T any] struct {
	value     *T
	expiresAt time.Time
}

func (e *cacheEntry[T]) isExpired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// InMemoryCalcConfigCache implements CalcConfigCache in process memory.
// State is not shared between instances.
type InMemoryCalcConfigCache struct {
	entries sync.Map // agencyID -> *cacheEntry[billing.RawCalcConfig]
	logger  *zap.Logger
	now     func() time.Time
	stopCh  chan struct{}
	stopped int32

	hits   int64
	misses int64
}

// NewInMemoryCalcConfigCache creates the cache and starts its cleanup loop.
// Close stops the loop.
func NewInMemoryCalcConfigCache(logger *zap.Logger) *InMemoryCalcConfigCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &InMemoryCalcConfigCache{
		logger: logger,
		now:    time.Now,
		stopCh: make(chan struct{}),
	}
	go c.cleanupLoop(defaultCleanupInterval)
	return c
}

// Get returns the cached document or nil on a miss
func (c *InMemoryCalcConfigCache) Get(_ context.Context, agencyID string) (*billing.RawCalcConfig, error) {
	if v, ok := c.entries.Load(agencyID); ok {
		entry := v.(*cacheEntry[billing.RawCalcConfig])
		if !entry.isExpired(c.now()) {
			atomic.AddInt64(&c.hits, 1)
			copied := *entry.value
			return &copied, nil
		}
		c.entries.Delete(agencyID)
	}
	atomic.AddInt64(&c.misses, 1)
	return nil, nil
}

// Set stores a copy of the document with ttl
func (c *InMemoryCalcConfigCache) Set(_ context.Context, agencyID string, raw *billing.RawCalcConfig, ttl time.Duration) error {
	if raw == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = DefaultCalcConfigTTL
	}
	copied := *raw
	c.entries.Store(agencyID, &cacheEntry[billing.RawCalcConfig]{
		value:     &copied,
		expiresAt: c.now().Add(ttl),
	})
	return nil
}

// Delete removes the cached document of an agency
func (c *InMemoryCalcConfigCache) Delete(_ context.Context, agencyID string) error {
	c.entries.Delete(agencyID)
	return nil
}

// Close stops the cleanup loop. It is safe to call more than once.
func (c *InMemoryCalcConfigCache) Close() error {
	if atomic.CompareAndSwapInt32(&c.stopped, 0, 1) {
		close(c.stopCh)
	}
	return nil
}

// Stats returns the hit and miss counters
func (c *InMemoryCalcConfigCache) Stats() (hits, misses int64) {
	return atomic.LoadInt64(&c.hits), atomic.LoadInt64(&c.misses)
}

func (c *InMemoryCalcConfigCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.removeExpired()
		}
	}
}

func (c *InMemoryCalcConfigCache) removeExpired() int {
	now := c.now()
	removed := 0
	c.entries.Range(func(key, value any) bool {
		if value.(*cacheEntry[billing.RawCalcConfig]).isExpired(now) {
			c.entries.Delete(key)
			removed++
		}
		return true
	})
	if removed > 0 {
		c.logger.Debug("removed expired calc configs", zap.Int("count", removed))
	}
	return removed
}

var _ CalcConfigCache = (*InMemoryCalcConfigCache)(nil)

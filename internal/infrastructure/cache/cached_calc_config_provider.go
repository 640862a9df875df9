package cache

import (
	"context"
	"time"

	"github.com/agency/backoffice/internal/domain/billing"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachedCalcConfigProvider decorates a billing.CalcConfigRepository with a
// read-through cache. Cache failures are logged and bypassed; concurrent
// misses for one agency share a single repository read.
type CachedCalcConfigProvider struct {
	repo   billing.CalcConfigRepository
	cache  CalcConfigCache
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
}

// NewCachedCalcConfigProvider wraps repo with cache
func NewCachedCalcConfigProvider(repo billing.CalcConfigRepository, cache CalcConfigCache, ttl time.Duration, logger *zap.Logger) *CachedCalcConfigProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultCalcConfigTTL
	}
	return &CachedCalcConfigProvider{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// FindByAgency serves from cache and falls back to the repository.
// Not-found results are not cached.
func (p *CachedCalcConfigProvider) FindByAgency(ctx context.Context, agencyID string) (*billing.RawCalcConfig, error) {
	raw, err := p.cache.Get(ctx, agencyID)
	if err != nil {
		p.logger.Warn("calc config cache read failed", zap.String("agency_id", agencyID), zap.Error(err))
	} else if raw != nil {
		return raw, nil
	}

	v, err, _ := p.group.Do(agencyID, func() (any, error) {
		found, err := p.repo.FindByAgency(ctx, agencyID)
		if err != nil {
			return nil, err
		}
		if err := p.cache.Set(ctx, agencyID, found, p.ttl); err != nil {
			p.logger.Warn("calc config cache write failed", zap.String("agency_id", agencyID), zap.Error(err))
		}
		return found, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*billing.RawCalcConfig), nil
}

// Save writes through to the repository and drops the cached copy
func (p *CachedCalcConfigProvider) Save(ctx context.Context, agencyID string, cfg billing.CalcConfig) error {
	if err := p.repo.Save(ctx, agencyID, cfg); err != nil {
		return err
	}
	if err := p.cache.Delete(ctx, agencyID); err != nil {
		p.logger.Warn("calc config cache invalidation failed", zap.String("agency_id", agencyID), zap.Error(err))
	}
	return nil
}

var _ billing.CalcConfigRepository = (*CachedCalcConfigProvider)(nil)

package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/agency/backoffice/internal/domain/billing"
	"github.com/agency/backoffice/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockCalcConfigRepository struct {
	mock.Mock
}

func (m *MockCalcConfigRepository) FindByAgency(ctx context.Context, agencyID string) (*billing.RawCalcConfig, error) {
	args := m.Called(ctx, agencyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.RawCalcConfig), args.Error(1)
}

func (m *MockCalcConfigRepository) Save(ctx context.Context, agencyID string, cfg billing.CalcConfig) error {
	args := m.Called(ctx, agencyID, cfg)
	return args.Error(0)
}

func TestCachedCalcConfigProvider_FindByAgency(t *testing.T) {
	ctx := context.Background()

	t.Run("repository read is cached", func(t *testing.T) {
		repo := new(MockCalcConfigRepository)
		c := NewInMemoryCalcConfigCache(nil)
		defer c.Close()
		p := NewCachedCalcConfigProvider(repo, c, time.Minute, zap.NewNop())
		repo.On("FindByAgency", mock.Anything, "agency-1").Return(manualRaw(), nil).Once()

		first, err := p.FindByAgency(ctx, "agency-1")
		require.NoError(t, err)
		second, err := p.FindByAgency(ctx, "agency-1")
		require.NoError(t, err)

		assert.Equal(t, billing.BreakdownModeManual, first.Parse().Mode)
		assert.Equal(t, billing.BreakdownModeManual, second.Parse().Mode)
		repo.AssertNumberOfCalls(t, "FindByAgency", 1)
	})

	t.Run("not found is passed through and not cached", func(t *testing.T) {
		repo := new(MockCalcConfigRepository)
		c := NewInMemoryCalcConfigCache(nil)
		defer c.Close()
		p := NewCachedCalcConfigProvider(repo, c, 0, nil)
		repo.On("FindByAgency", mock.Anything, "agency-1").Return(nil, shared.ErrNotFound)

		_, err := p.FindByAgency(ctx, "agency-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = p.FindByAgency(ctx, "agency-1")
		assert.ErrorIs(t, err, shared.ErrNotFound)

		repo.AssertNumberOfCalls(t, "FindByAgency", 2)
	})

	t.Run("unreachable cache is bypassed", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 100 * time.Millisecond})
		defer client.Close()
		repo := new(MockCalcConfigRepository)
		p := NewCachedCalcConfigProvider(repo, NewRedisCalcConfigCacheWithClient(client, "", nil), time.Minute, nil)
		repo.On("FindByAgency", mock.Anything, "agency-1").Return(manualRaw(), nil)

		got, err := p.FindByAgency(ctx, "agency-1")

		require.NoError(t, err)
		assert.Equal(t, billing.BreakdownModeManual, got.Parse().Mode)
	})

	t.Run("concurrent misses share one read", func(t *testing.T) {
		repo := new(MockCalcConfigRepository)
		c := NewInMemoryCalcConfigCache(nil)
		defer c.Close()
		p := NewCachedCalcConfigProvider(repo, c, time.Minute, nil)
		release := make(chan struct{})
		repo.On("FindByAgency", mock.Anything, "agency-1").
			Run(func(mock.Arguments) { <-release }).
			Return(manualRaw(), nil)

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := p.FindByAgency(ctx, "agency-1")
				assert.NoError(t, err)
			}()
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.LessOrEqual(t, len(repo.Calls), 5)
		got, _ := c.Get(ctx, "agency-1")
		assert.NotNil(t, got)
	})
}

func TestCachedCalcConfigProvider_Save(t *testing.T) {
	ctx := context.Background()

	t.Run("save invalidates the cached copy", func(t *testing.T) {
		repo := new(MockCalcConfigRepository)
		c := NewInMemoryCalcConfigCache(nil)
		defer c.Close()
		p := NewCachedCalcConfigProvider(repo, c, time.Minute, nil)
		require.NoError(t, c.Set(ctx, "agency-1", manualRaw(), time.Minute))
		repo.On("Save", mock.Anything, "agency-1", mock.Anything).Return(nil)

		require.NoError(t, p.Save(ctx, "agency-1", billing.DefaultCalcConfig()))

		got, _ := c.Get(ctx, "agency-1")
		assert.Nil(t, got)
	})

	t.Run("failed save keeps the cache", func(t *testing.T) {
		repo := new(MockCalcConfigRepository)
		c := NewInMemoryCalcConfigCache(nil)
		defer c.Close()
		p := NewCachedCalcConfigProvider(repo, c, time.Minute, nil)
		require.NoError(t, c.Set(ctx, "agency-1", manualRaw(), time.Minute))
		repo.On("Save", mock.Anything, "agency-1", mock.Anything).Return(errors.New("db down"))

		assert.Error(t, p.Save(ctx, "agency-1", billing.DefaultCalcConfig()))

		got, _ := c.Get(ctx, "agency-1")
		assert.NotNil(t, got)
	})
}

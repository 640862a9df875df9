package cache

import (
	"testing"

	"github.com/agency/backoffice/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalcConfigCacheFactory_CreateCache(t *testing.T) {
	unreachable := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: 1}

	t.Run("redis disabled uses memory", func(t *testing.T) {
		c, err := NewCalcConfigCacheFactory(config.RedisConfig{}).CreateCache()
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &InMemoryCalcConfigCache{}, c)
	})

	t.Run("unreachable redis falls back", func(t *testing.T) {
		c, err := NewCalcConfigCacheFactory(unreachable).CreateCache()
		require.NoError(t, err)
		defer c.Close()
		assert.IsType(t, &InMemoryCalcConfigCache{}, c)
	})

	t.Run("fallback can be refused", func(t *testing.T) {
		_, err := NewCalcConfigCacheFactory(unreachable, WithInMemoryFallback(false)).CreateCache()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Redis required")
	})
}

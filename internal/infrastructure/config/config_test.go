package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"AGENCY_APP_NAME",
	"AGENCY_APP_ENV",
	"AGENCY_APP_PORT",
	"AGENCY_DATABASE_DRIVER",
	"AGENCY_DATABASE_HOST",
	"AGENCY_DATABASE_PORT",
	"AGENCY_DATABASE_PASSWORD",
	"AGENCY_DATABASE_SSLMODE",
	"AGENCY_DATABASE_MAX_OPEN_CONNS",
	"AGENCY_DATABASE_MAX_IDLE_CONNS",
	"AGENCY_BILLING_AGENCY_ID",
	"AGENCY_BILLING_DEFAULT_TRANSFER_FEE_PCT",
	"AGENCY_BILLING_RETRIEVAL_TIMEOUT",
	"AGENCY_BILLING_CONFIG_CACHE_TTL",
	"AGENCY_TELEMETRY_SAMPLING_RATIO",
}

// clearEnv blanks every key for the duration of the test; viper treats
// empty variables as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnvKeys {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "agency-backoffice", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "postgres", cfg.Database.Driver)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "backoffice", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "default", cfg.Billing.AgencyID)
		assert.InDelta(t, 0.024, cfg.Billing.DefaultTransferFeePct, 1e-9)
		assert.Equal(t, 5*time.Minute, cfg.Billing.ConfigCacheTTL)
		assert.Equal(t, 3*time.Second, cfg.Billing.RetrievalTimeout)
	})

	t.Run("loads values from environment variables with AGENCY prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AGENCY_APP_NAME", "test-app")
		t.Setenv("AGENCY_APP_PORT", "9000")
		t.Setenv("AGENCY_DATABASE_HOST", "testdb.local")
		t.Setenv("AGENCY_DATABASE_PORT", "5433")
		t.Setenv("AGENCY_BILLING_AGENCY_ID", "agency-7")
		t.Setenv("AGENCY_BILLING_DEFAULT_TRANSFER_FEE_PCT", "0.03")
		t.Setenv("AGENCY_BILLING_RETRIEVAL_TIMEOUT", "750ms")
		t.Setenv("AGENCY_BILLING_CONFIG_CACHE_TTL", "1m")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "agency-7", cfg.Billing.AgencyID)
		assert.InDelta(t, 0.03, cfg.Billing.DefaultTransferFeePct, 1e-9)
		assert.Equal(t, 750*time.Millisecond, cfg.Billing.RetrievalTimeout)
		assert.Equal(t, time.Minute, cfg.Billing.ConfigCacheTTL)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AGENCY_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("AGENCY_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("keeps an explicit zero transfer fee", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AGENCY_BILLING_DEFAULT_TRANSFER_FEE_PCT", "0")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Zero(t, cfg.Billing.DefaultTransferFeePct)
	})

	t.Run("rejects a transfer fee expressed as a percent", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AGENCY_BILLING_DEFAULT_TRANSFER_FEE_PCT", "2.4")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "default_transfer_fee_pct")
	})

	t.Run("rejects unknown database driver", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AGENCY_DATABASE_DRIVER", "mysql")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.driver")
	})

	t.Run("rejects sampling ratio out of range", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AGENCY_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	t.Run("requires database.password in production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AGENCY_APP_ENV", "production")
		t.Setenv("AGENCY_DATABASE_SSLMODE", "require")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AGENCY_APP_ENV", "production")
		t.Setenv("AGENCY_DATABASE_PASSWORD", "secure-password")
		t.Setenv("AGENCY_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("passes validation with valid production config", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AGENCY_APP_ENV", "production")
		t.Setenv("AGENCY_DATABASE_PASSWORD", "secure-password")
		t.Setenv("AGENCY_DATABASE_SSLMODE", "require")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the tests touch; viper treats an empty
// variable as unset
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AVP_APP_NAME", "AVP_APP_ENV", "AVP_APP_PORT",
		"AVP_DATABASE_HOST", "AVP_DATABASE_PORT", "AVP_DATABASE_USER",
		"AVP_DATABASE_PASSWORD", "AVP_DATABASE_DBNAME", "AVP_DATABASE_SSLMODE",
		"AVP_DATABASE_MAX_OPEN_CONNS", "AVP_DATABASE_MAX_IDLE_CONNS",
		"AVP_FULFILLMENT_MAX_CONFLICT_RETRIES", "AVP_FULFILLMENT_RETRY_BASE_DELAY",
		"AVP_FULFILLMENT_DOCUMENT_LOCK", "AVP_FULFILLMENT_DEFAULT_TAX_RATE",
		"AVP_CURRENCY_BASE", "AVP_TELEMETRY_DB_LOG_FULL_SQL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "avparts-fulfillment", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "avparts", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, 3, cfg.Fulfillment.MaxConflictRetries)
		assert.Equal(t, 20*time.Millisecond, cfg.Fulfillment.RetryBaseDelay)
		assert.Equal(t, DocumentLockNone, cfg.Fulfillment.DocumentLock)
		assert.Equal(t, 10*time.Second, cfg.Fulfillment.LockExpiry)
		assert.Equal(t, "USD", cfg.Currency.Base)
		assert.Equal(t, 1.0, cfg.Currency.Rates["USD"])
		assert.Equal(t, "avparts-fulfillment", cfg.Telemetry.ServiceName)
	})

	t.Run("loads values from environment variables with AVP prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AVP_APP_NAME", "test-app")
		t.Setenv("AVP_APP_PORT", "9000")
		t.Setenv("AVP_DATABASE_HOST", "testdb.local")
		t.Setenv("AVP_DATABASE_PORT", "5433")
		t.Setenv("AVP_DATABASE_MAX_OPEN_CONNS", "50")
		t.Setenv("AVP_DATABASE_MAX_IDLE_CONNS", "10")
		t.Setenv("AVP_FULFILLMENT_MAX_CONFLICT_RETRIES", "5")
		t.Setenv("AVP_FULFILLMENT_RETRY_BASE_DELAY", "50ms")
		t.Setenv("AVP_FULFILLMENT_DOCUMENT_LOCK", "REDIS")
		t.Setenv("AVP_FULFILLMENT_DEFAULT_TAX_RATE", "18")
		t.Setenv("AVP_CURRENCY_BASE", "inr")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "test-app", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, 5, cfg.Fulfillment.MaxConflictRetries)
		assert.Equal(t, 50*time.Millisecond, cfg.Fulfillment.RetryBaseDelay)
		assert.Equal(t, DocumentLockRedis, cfg.Fulfillment.DocumentLock)
		assert.Equal(t, 18.0, cfg.Fulfillment.DefaultTaxRate)
		assert.Equal(t, "INR", cfg.Currency.Base)
		assert.Equal(t, 1.0, cfg.Currency.Rates["INR"])
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AVP_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("AVP_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("rejects unknown document lock mode", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AVP_FULFILLMENT_DOCUMENT_LOCK", "zookeeper")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "fulfillment.document_lock")
	})

	t.Run("rejects too many conflict retries", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AVP_FULFILLMENT_MAX_CONFLICT_RETRIES", "11")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_conflict_retries")
	})

	t.Run("rejects tax rate above 100", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AVP_FULFILLMENT_DEFAULT_TAX_RATE", "120")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "default_tax_rate")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearEnv(t)
		t.Setenv("AVP_APP_ENV", "production")
		t.Setenv("AVP_DATABASE_PASSWORD", "secure-password")
		t.Setenv("AVP_DATABASE_SSLMODE", "require")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("AVP_DATABASE_PASSWORD", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("AVP_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("rejects full SQL logging in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("AVP_TELEMETRY_DB_LOG_FULL_SQL", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql")
	})
}

func TestParseRates(t *testing.T) {
	t.Run("normalizes codes", func(t *testing.T) {
		rates, err := parseRates(map[string]string{"eur": "1.08", "INR": "0.012"})
		require.NoError(t, err)
		assert.Equal(t, 1.08, rates["EUR"])
		assert.Equal(t, 0.012, rates["INR"])
	})

	t.Run("rejects non-numeric rate", func(t *testing.T) {
		_, err := parseRates(map[string]string{"eur": "abc"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "currency.rates.eur")
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
		assert.Contains(t, dsn, "testdb")
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

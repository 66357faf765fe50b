package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PORT", "APP_ENV", "COOKIE_SECURE", "CORS_ALLOWED_ORIGINS", "REFRESH_STORE", "REDIS_DB",
		"JWT_EXPIRE_MINUTES", "JWT_REFRESH_EXPIRE_DAYS", "ORDER_TTL_MINUTES", "ORDER_SWEEP_INTERVAL_SECONDS", "OTP_TTL_MINUTES"} {
		t.Setenv(key, "")
	}
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_KEY_SECRET", "rzp_test_secret")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, 30*time.Minute, cfg.JWTTTL)
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 30*time.Minute, cfg.OrderTTL)
	require.Equal(t, time.Minute, cfg.OrderSweepInterval)
	require.Equal(t, 5*time.Minute, cfg.OTPTTL)
	require.Equal(t, []string{"*"}, cfg.CORSOrigins)
	require.True(t, cfg.CookieSecure)
	require.False(t, cfg.Development())
}

func TestLoadRequiresGatewayKeys(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("RAZORPAY_KEY_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRequiresDatabaseForPostgres(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.EqualError(t, err, "DATABASE_URL is required")
}

func TestLoadRedisBackendNeedsAddress(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("REFRESH_STORE", "redis")
	t.Setenv("REDIS_ADDR", "")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 2, cfg.RedisDB)
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_EXPIRE_MINUTES", "15")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("COOKIE_SECURE", "false")
	t.Setenv("CLIENT_URL", "http://app.test/")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, cfg.JWTTTL)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
	require.False(t, cfg.CookieSecure)
	require.True(t, cfg.Development())
	require.Equal(t, "http://app.test", cfg.ClientURL)
}

package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET_KEY", testKey)
	t.Setenv("REVOCATION_BACKEND", BackendRedis)
	t.Setenv("IDENTITY_BACKEND", BackendMemory)
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
}

func TestLoad_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, 30*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
	assert.Equal(t, "access_token", cfg.AccessCookieName)
	assert.Equal(t, "refresh_token", cfg.RefreshCookieName)
	assert.Equal(t, "csrf_token", cfg.CSRFCookieName)
	assert.Equal(t, "X-CSRFToken", cfg.CSRFHeaderName)
	assert.Equal(t, "/", cfg.CookiePath)
	assert.True(t, cfg.SecureCookies())
	assert.Empty(t, cfg.CSRFTrustedOrigins)
}

func TestLoad_Overrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("ACCESS_TOKEN_TTL", "900")
	t.Setenv("REFRESH_TOKEN_TTL", "48h")
	t.Setenv("CSRF_TRUSTED_ORIGINS", "https://app.example.com, ,https://admin.example.com")
	t.Setenv("COOKIE_DOMAIN", ".example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 48*time.Hour, cfg.RefreshTTL)
	assert.Equal(t, []string{"https://app.example.com", "https://admin.example.com"}, cfg.CSRFTrustedOrigins)
	assert.Equal(t, ".example.com", cfg.CookieDomain)
}

func TestLoad_LocalAllowsInsecureCookies(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", EnvLocal)
	t.Setenv("REVOCATION_BACKEND", BackendMemory)

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsLocal())
	assert.False(t, cfg.SecureCookies())
}

func TestLoad_LocalStillRequiresFullLengthKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("APP_ENV", EnvLocal)
	t.Setenv("JWT_SECRET_KEY", "short")
	t.Setenv("REVOCATION_BACKEND", BackendMemory)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Env:               "production",
			SigningKey:        testKey,
			AccessTTL:         time.Minute,
			RefreshTTL:        time.Hour,
			StoreTimeout:      time.Second,
			RevocationBackend: BackendPostgres,
			IdentityBackend:   BackendPostgres,
			DatabaseDSN:       "postgres://localhost/quill",
			SweepInterval:     time.Minute,
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing key", func(c *Config) { c.SigningKey = "" }, "JWT_SECRET_KEY is required"},
		{"short key", func(c *Config) { c.SigningKey = "short" }, "at least 32 bytes"},
		{"access not shorter", func(c *Config) { c.AccessTTL = c.RefreshTTL }, "must be shorter"},
		{"zero ttl", func(c *Config) { c.AccessTTL = 0 }, "must be positive"},
		{"unknown backend", func(c *Config) { c.RevocationBackend = "etcd" }, "unknown REVOCATION_BACKEND"},
		{"memory outside local", func(c *Config) { c.RevocationBackend = BackendMemory }, "only allowed with APP_ENV=local"},
		{"redis without url", func(c *Config) { c.RevocationBackend = BackendRedis; c.RedisURL = "" }, "REDIS_URL is required"},
		{"postgres without dsn", func(c *Config) { c.DatabaseDSN = "" }, "DATABASE_DSN is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, strings.Contains(err.Error(), tt.want), err.Error())
		})
	}
}

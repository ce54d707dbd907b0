// Package config loads the service settings from the environment once at
// startup. The resulting Config is treated as immutable.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Revocation store backends
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// EnvLocal is the APP_ENV value for a developer machine
const EnvLocal = "local"

// MinSigningKeyLength is the shortest HMAC key the token codec accepts
const MinSigningKeyLength = 32

// Config holds the service settings
type Config struct {
	// Server
	Env      string // local or production
	HTTPAddr string // Listen address of the HTTP API
	GinMode  string // debug, release or test
	LogLevel string // debug, info, warn or error

	// Token signing
	SigningKey   string        // HMAC key for HS256
	Issuer       string        // iss claim; empty disables the check
	Audience     string        // aud claim; empty disables the check
	AccessTTL    time.Duration // Lifetime of access credentials
	RefreshTTL   time.Duration // Lifetime of refresh credentials
	StoreTimeout time.Duration // Upper bound for a single revocation store call

	// Cookies
	AccessCookieName  string
	RefreshCookieName string
	CSRFCookieName    string
	CSRFHeaderName    string
	CSRFCookieMaxAge  time.Duration
	CookieDomain      string
	CookiePath        string

	// Cross-origin
	CSRFTrustedOrigins []string
	CORSAllowedOrigins []string

	// Storage
	RevocationBackend string // memory, redis or postgres
	IdentityBackend   string // memory or postgres
	RedisURL          string
	DatabaseDSN       string
	SweepInterval     time.Duration
}

// Load reads .env.local when present, then the process environment.
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "production"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8000"),
		GinMode:  getEnv("GIN_MODE", "release"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		SigningKey:   getEnv("JWT_SECRET_KEY", ""),
		Issuer:       getEnv("JWT_ISSUER", "quill"),
		Audience:     getEnv("JWT_AUDIENCE", ""),
		AccessTTL:    getEnvAsDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		RefreshTTL:   getEnvAsDuration("REFRESH_TOKEN_TTL", 14*24*time.Hour),
		StoreTimeout: getEnvAsDuration("STORE_TIMEOUT", 2*time.Second),

		AccessCookieName:  getEnv("AUTH_COOKIE_ACCESS", "access_token"),
		RefreshCookieName: getEnv("AUTH_COOKIE_REFRESH", "refresh_token"),
		CSRFCookieName:    getEnv("CSRF_COOKIE_NAME", "csrf_token"),
		CSRFHeaderName:    getEnv("CSRF_HEADER_NAME", "X-CSRFToken"),
		CSRFCookieMaxAge:  getEnvAsDuration("CSRF_COOKIE_MAX_AGE", 365*24*time.Hour),
		CookieDomain:      getEnv("COOKIE_DOMAIN", ""),
		CookiePath:        getEnv("COOKIE_PATH", "/"),

		CSRFTrustedOrigins: getEnvAsList("CSRF_TRUSTED_ORIGINS"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		RevocationBackend: getEnv("REVOCATION_BACKEND", BackendRedis),
		IdentityBackend:   getEnv("IDENTITY_BACKEND", BackendPostgres),
		RedisURL:          getEnv("REDIS_URL", ""),
		DatabaseDSN:       getEnv("DATABASE_DSN", ""),
		SweepInterval:     getEnvAsDuration("SWEEP_INTERVAL", 10*time.Minute),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsLocal reports whether the service runs on a developer machine
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal
}

// SecureCookies reports whether cookies must carry the Secure attribute
func (c *Config) SecureCookies() bool {
	return !c.IsLocal()
}

// Validate checks the settings for consistency
func (c *Config) Validate() error {
	var errs []error

	if c.SigningKey == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	} else if len(c.SigningKey) < MinSigningKeyLength {
		errs = append(errs, fmt.Errorf("JWT_SECRET_KEY must be at least %d bytes", MinSigningKeyLength))
	}

	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token TTLs must be positive"))
	} else if c.AccessTTL >= c.RefreshTTL {
		errs = append(errs, fmt.Errorf("ACCESS_TOKEN_TTL (%s) must be shorter than REFRESH_TOKEN_TTL (%s)", c.AccessTTL, c.RefreshTTL))
	}

	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}

	switch c.RevocationBackend {
	case BackendMemory:
		if !c.IsLocal() {
			errs = append(errs, errors.New("REVOCATION_BACKEND=memory is only allowed with APP_ENV=local"))
		}
	case BackendRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis backend"))
		}
	case BackendPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown REVOCATION_BACKEND %q", c.RevocationBackend))
	}

	switch c.IdentityBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseDSN == "" {
			errs = append(errs, errors.New("DATABASE_DSN is required for the postgres identity backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown IDENTITY_BACKEND %q", c.IdentityBackend))
	}

	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}

	return errors.Join(errs...)
}

func loadEnvFile() {
	if err := godotenv.Load(".env.local"); err == nil {
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		return
	}

	parent := filepath.Dir(cwd)
	if parent == "" || parent == cwd {
		return
	}

	_ = godotenv.Load(filepath.Join(parent, ".env.local"))
}

// getEnv returns the variable or defaultValue when it is unset.
func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("15m") or whole seconds ("900").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping empty entries.
func getEnvAsList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN used by the connection pool.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SessionTTL is the default session lifetime (e.g. "24h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// HeartbeatInterval is how stale last_activity_at may get before a request refreshes it.
	HeartbeatInterval string `mapstructure:"HEARTBEAT_INTERVAL"`
	// SessionSweepInterval is how often the expiry sweeper deletes expired session rows.
	SessionSweepInterval string `mapstructure:"SESSION_SWEEP_INTERVAL"`
	// PoolMaxConns is the maximum number of open database connections.
	PoolMaxConns int `mapstructure:"POOL_MAX_CONNS"`
	// PoolIdleTTL is how long a connection may sit idle before the sweep closes it.
	PoolIdleTTL string `mapstructure:"POOL_IDLE_TTL"`
	// PoolSweepInterval is how often the pool's idle sweep runs.
	PoolSweepInterval string `mapstructure:"POOL_SWEEP_INTERVAL"`
	// PoolAcquireRetries is the bounded number of retries when acquiring a connection.
	PoolAcquireRetries int `mapstructure:"POOL_ACQUIRE_RETRIES"`
	// IDPPublicKey is the PEM-encoded public key (RSA or ECDSA) of the identity
	// provider, or a path to a file containing it. Login assertions are verified with it.
	IDPPublicKey string `mapstructure:"IDP_PUBLIC_KEY"`
	// IDPIssuer is the iss claim expected on identity-provider assertions.
	IDPIssuer string `mapstructure:"IDP_ISSUER"`
	// IDPAudience is the aud claim expected on identity-provider assertions.
	IDPAudience string `mapstructure:"IDP_AUDIENCE"`
	// AuditBufferSize is the capacity of the async audit dispatch buffer.
	AuditBufferSize int `mapstructure:"AUDIT_BUFFER_SIZE"`
	// CookieSecure controls the Secure attribute on the session cookie. Only
	// disable for plain-HTTP local development.
	CookieSecure bool `mapstructure:"COOKIE_SECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_TTL", "24h")
	v.SetDefault("HEARTBEAT_INTERVAL", "5m")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1h")
	v.SetDefault("POOL_MAX_CONNS", 10)
	v.SetDefault("POOL_IDLE_TTL", "5m")
	v.SetDefault("POOL_SWEEP_INTERVAL", "1m")
	v.SetDefault("POOL_ACQUIRE_RETRIES", 3)
	v.SetDefault("IDP_PUBLIC_KEY", "")
	v.SetDefault("IDP_ISSUER", "tenant-auth-idp")
	v.SetDefault("IDP_AUDIENCE", "tenant-auth-plane")
	v.SetDefault("AUDIT_BUFFER_SIZE", 256)
	v.SetDefault("COOKIE_SECURE", true)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.PoolMaxConns < 1 {
		return nil, fmt.Errorf("config: POOL_MAX_CONNS must be at least 1, got %d", cfg.PoolMaxConns)
	}
	if cfg.PoolAcquireRetries < 0 {
		return nil, fmt.Errorf("config: POOL_ACQUIRE_RETRIES must not be negative, got %d", cfg.PoolAcquireRetries)
	}
	if !cfg.CookieSecure && cfg.Env == "production" {
		return nil, errors.New("config: COOKIE_SECURE must not be false when APP_ENV=production")
	}

	return &cfg, nil
}

// SessionTTLDuration parses SessionTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) SessionTTLDuration() time.Duration {
	return durationOr(c.SessionTTL, 24*time.Hour)
}

// HeartbeatIntervalDuration parses HeartbeatInterval. Returns 5m if unset or invalid.
func (c *Config) HeartbeatIntervalDuration() time.Duration {
	return durationOr(c.HeartbeatInterval, 5*time.Minute)
}

// SessionSweepIntervalDuration parses SessionSweepInterval. Returns 1h if unset or invalid.
func (c *Config) SessionSweepIntervalDuration() time.Duration {
	return durationOr(c.SessionSweepInterval, time.Hour)
}

// PoolIdleTTLDuration parses PoolIdleTTL. Returns 5m if unset or invalid.
func (c *Config) PoolIdleTTLDuration() time.Duration {
	return durationOr(c.PoolIdleTTL, 5*time.Minute)
}

// PoolSweepIntervalDuration parses PoolSweepInterval. Returns 1m if unset or invalid.
func (c *Config) PoolSweepIntervalDuration() time.Duration {
	return durationOr(c.PoolSweepInterval, time.Minute)
}

func durationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.SessionTTL != "24h" {
		t.Errorf("SessionTTL = %q, want %q", cfg.SessionTTL, "24h")
	}
	if cfg.PoolMaxConns != 10 {
		t.Errorf("PoolMaxConns = %d, want 10", cfg.PoolMaxConns)
	}
	if cfg.PoolAcquireRetries != 3 {
		t.Errorf("PoolAcquireRetries = %d, want 3", cfg.PoolAcquireRetries)
	}
	if cfg.IDPIssuer != "tenant-auth-idp" {
		t.Errorf("IDPIssuer = %q, want %q", cfg.IDPIssuer, "tenant-auth-idp")
	}
	if cfg.IDPAudience != "tenant-auth-plane" {
		t.Errorf("IDPAudience = %q, want %q", cfg.IDPAudience, "tenant-auth-plane")
	}
	if !cfg.CookieSecure {
		t.Error("CookieSecure should default to true")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9999")
	os.Setenv("SESSION_TTL", "1h")
	os.Setenv("POOL_MAX_CONNS", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9999" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9999")
	}
	if cfg.SessionTTLDuration() != time.Hour {
		t.Errorf("SessionTTLDuration = %v, want 1h", cfg.SessionTTLDuration())
	}
	if cfg.PoolMaxConns != 4 {
		t.Errorf("PoolMaxConns = %d, want 4", cfg.PoolMaxConns)
	}
}

func TestLoad_InvalidPoolSize(t *testing.T) {
	os.Clearenv()
	os.Setenv("POOL_MAX_CONNS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail for POOL_MAX_CONNS=0")
	}
}

func TestLoad_InsecureCookieInProduction(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")
	os.Setenv("COOKIE_SECURE", "false")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail for COOKIE_SECURE=false in production")
	}
}

func TestDurationFallbacks(t *testing.T) {
	cfg := &Config{SessionTTL: "garbage", HeartbeatInterval: "", PoolIdleTTL: "-5m"}
	if got := cfg.SessionTTLDuration(); got != 24*time.Hour {
		t.Errorf("SessionTTLDuration = %v, want 24h", got)
	}
	if got := cfg.HeartbeatIntervalDuration(); got != 5*time.Minute {
		t.Errorf("HeartbeatIntervalDuration = %v, want 5m", got)
	}
	if got := cfg.PoolIdleTTLDuration(); got != 5*time.Minute {
		t.Errorf("PoolIdleTTLDuration = %v, want 5m", got)
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadAuthLimiterDefaults(t *testing.T) {
	t.Setenv("AUTH_RATE_LIMIT_WINDOW", "")
	t.Setenv("AUTH_RATE_LIMIT_MAX", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.RateLimitWindow != 15*time.Minute {
		t.Fatalf("RateLimitWindow = %s, want 15m", cfg.Auth.RateLimitWindow)
	}
	// Five attempts per window: the sixth login attempt must be rejected.
	if cfg.Auth.RateLimitMax != 5 {
		t.Fatalf("RateLimitMax = %d, want 5", cfg.Auth.RateLimitMax)
	}
}

func TestLoadAuthLimiterOverrides(t *testing.T) {
	t.Setenv("AUTH_RATE_LIMIT_WINDOW", "1m")
	t.Setenv("AUTH_RATE_LIMIT_MAX", "100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.RateLimitWindow != time.Minute {
		t.Fatalf("RateLimitWindow = %s, want 1m", cfg.Auth.RateLimitWindow)
	}
	if cfg.Auth.RateLimitMax != 100 {
		t.Fatalf("RateLimitMax = %d, want 100", cfg.Auth.RateLimitMax)
	}
}

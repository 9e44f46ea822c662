package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "PREDICTION_BACKEND", "SCORING_MODE", "RATE_LIMIT_WINDOW_MS", "RATE_LIMIT_MAX_REQUESTS", "CORS_ALLOWED_ORIGINS", "REQUEST_TIMEOUT", "DB_HOST", "TRUST_PROXY_HEADERS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "3001" {
		t.Errorf("Expected port 3001, got %s", cfg.Port)
	}
	if cfg.PredictionBackend != BackendTemplate || cfg.ScoringMode != ScoringRandom {
		t.Errorf("unexpected backend %s/%s", cfg.PredictionBackend, cfg.ScoringMode)
	}
	if cfg.RateLimitWindow != time.Minute || cfg.RateLimitMaxRequests != 10 {
		t.Errorf("unexpected rate limit %v/%d", cfg.RateLimitWindow, cfg.RateLimitMaxRequests)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"*"}) {
		t.Errorf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.RequestTimeout != 30*time.Second {
		t.Errorf("Expected 30s timeout, got %v", cfg.RequestTimeout)
	}
	if cfg.DB.Enabled() {
		t.Error("database must be disabled without DB_HOST")
	}
	if cfg.TrustProxyHeaders {
		t.Error("proxy headers must not be trusted by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("PREDICTION_BACKEND", "DeepSeek")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "1500")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "not-a-number")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("DB_HOST", "db")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" || cfg.PredictionBackend != BackendDeepSeek {
		t.Errorf("unexpected %s/%s", cfg.Port, cfg.PredictionBackend)
	}
	if cfg.RateLimitWindow != 1500*time.Millisecond {
		t.Errorf("Expected 1.5s window, got %v", cfg.RateLimitWindow)
	}
	if cfg.RateLimitMaxRequests != 10 {
		t.Errorf("malformed int should fall back to default, got %d", cfg.RateLimitMaxRequests)
	}
	if !reflect.DeepEqual(cfg.AllowedOrigins, []string{"https://a.example", "https://b.example"}) {
		t.Errorf("unexpected origins %v", cfg.AllowedOrigins)
	}
	if !cfg.DB.Enabled() || cfg.DB.Port != "5432" {
		t.Errorf("unexpected db config %+v", cfg.DB)
	}
	if !cfg.TrustProxyHeaders {
		t.Error("Expected TRUST_PROXY_HEADERS=true to be honoured")
	}
}

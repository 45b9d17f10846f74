package config

import (
	"testing"
	"time"
)

func TestLoad_DefaultsWithSecretSet(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.APIBasePath != "/api/v1" {
		t.Errorf("APIBasePath = %q, want /api/v1", cfg.APIBasePath)
	}
	if cfg.WriteTimeout != 0 {
		t.Errorf("WriteTimeout = %v, want 0 (streams stay open)", cfg.WriteTimeout)
	}
	if cfg.MaxBodyRunes != 4000 {
		t.Errorf("MaxBodyRunes = %d, want 4000", cfg.MaxBodyRunes)
	}
	if cfg.CatchUpLimit != 500 {
		t.Errorf("CatchUpLimit = %d, want 500", cfg.CatchUpLimit)
	}
	if cfg.Live.SSEBuffer != 16 {
		t.Errorf("SSEBuffer = %d, want 16", cfg.Live.SSEBuffer)
	}
	if cfg.Live.KeepaliveInterval != 25*time.Second {
		t.Errorf("KeepaliveInterval = %v, want 25s", cfg.Live.KeepaliveInterval)
	}
	if cfg.Live.NodeName == "" {
		t.Error("NodeName should default to the hostname")
	}
	if cfg.IdempotencyTTL != 24*time.Hour {
		t.Errorf("IdempotencyTTL = %v, want 24h", cfg.IdempotencyTTL)
	}
	if cfg.Redis.Addr != "" {
		t.Errorf("Redis.Addr = %q, want disabled by default", cfg.Redis.Addr)
	}
}

func TestLoad_MissingJWTSecretFails(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Fatal("Load succeeded without JWT_SECRET")
	}
}

func TestLoad_ValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
	}{
		{"negative write timeout", map[string]string{"WRITE_TIMEOUT": "-1s"}},
		{"zero burst", map[string]string{"RATE_BURST": "0"}},
		{"zero sse buffer", map[string]string{"SSE_BUFFER": "0"}},
		{"zero keepalive", map[string]string{"KEEPALIVE_INTERVAL": "0s"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "verbose"}},
		{"sample ratio out of range", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("Load accepted invalid %v", tc.env)
			}
		})
	}
}

func TestLoad_NormalizesValues(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("LOG_LEVEL", "WARNING")
	t.Setenv("GIN_MODE", "production")
	t.Setenv("API_BASE_PATH", "api/v2/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
	if cfg.GinMode != "release" {
		t.Errorf("GinMode = %q, want release fallback", cfg.GinMode)
	}
	if cfg.APIBasePath != "/api/v2" {
		t.Errorf("APIBasePath = %q, want /api/v2", cfg.APIBasePath)
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV(" https://a.example , ,https://b.example,")
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("splitCSV = %v", got)
	}
	if splitCSV("") != nil {
		t.Fatal("splitCSV(\"\") should be nil")
	}
}

func TestNormalizeBasePath(t *testing.T) {
	cases := map[string]string{
		"":        "/",
		"/":       "/",
		"api":     "/api",
		"/api/":   "/api",
		"/api/v1": "/api/v1",
	}
	for in, want := range cases {
		if got := normalizeBasePath(in); got != want {
			t.Errorf("normalizeBasePath(%q) = %q, want %q", in, got, want)
		}
	}
}

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "HEALTH_PORT", "LOG_LEVEL", "LOG_FORMAT", "MODEL_PATH", "DEFAULT_TOP_N",
		"STORE_PROVIDER", "QUEUE_PROVIDER", "CACHE_PROVIDER", "CACHE_TTL", "CACHE_SIZE",
	} {
		t.Setenv(key, "") // restores the original value on cleanup
		os.Unsetenv(key)
	}

	cfg := Load()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Port", cfg.Port, 8080},
		{"HealthPort", cfg.HealthPort, 8081},
		{"LogLevel", cfg.LogLevel, "info"},
		{"LogFormat", cfg.LogFormat, "json"},
		{"ModelPath", cfg.ModelPath, "model/model.yaml"},
		{"DefaultTopN", cfg.DefaultTopN, 5},
		{"StoreProvider", cfg.StoreProvider, "postgres"},
		{"QueueProvider", cfg.QueueProvider, "nats"},
		{"CacheProvider", cfg.CacheProvider, "memory"},
		{"CacheTTL", cfg.CacheTTL, 10 * time.Minute},
		{"CacheSize", cfg.CacheSize, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.expected {
				t.Errorf("expected %s=%v, got %v", tt.name, tt.expected, tt.got)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("MODEL_PATH", "/models/news.yaml")
	t.Setenv("CACHE_TTL", "30s")

	cfg := Load()

	if cfg.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level 'debug', got %s", cfg.LogLevel)
	}
	if cfg.ModelPath != "/models/news.yaml" {
		t.Errorf("expected model path override, got %s", cfg.ModelPath)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Errorf("expected cache ttl 30s, got %v", cfg.CacheTTL)
	}
}

func TestLoadProviderOverrides(t *testing.T) {
	t.Setenv("STORE_PROVIDER", "none")
	t.Setenv("CACHE_PROVIDER", "redis")

	cfg := Load()

	if cfg.StoreProvider != "none" {
		t.Errorf("expected store provider 'none', got %s", cfg.StoreProvider)
	}
	if cfg.CacheProvider != "redis" {
		t.Errorf("expected cache provider 'redis', got %s", cfg.CacheProvider)
	}
}

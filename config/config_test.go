package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/execkit/resilience"
)

func TestServiceConfigApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
	})

	t.Run("production keeps debug false", func(t *testing.T) {
		cfg := ServiceConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})
}

func TestServiceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ServiceConfig
		wantErr string
	}{
		{"valid development", ServiceConfig{Name: "svc", Environment: "development"}, ""},
		{"valid production", ServiceConfig{Name: "svc", Environment: "production"}, ""},
		{"missing name", ServiceConfig{Environment: "production"}, "config.name is required"},
		{"invalid environment", ServiceConfig{Name: "svc", Environment: "invalid"}, "config.environment must be one of"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := tc.cfg
			cfg.ApplyDefaults()
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("expected error containing %q, got %q", tc.wantErr, err.Error())
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yml")

	yamlContent := `
name: executor-service
environment: staging
version: "1.0.0"
redis:
  addr: localhost:6379
  db: 2
wal:
  ttl: 12h
idempotency:
  ttl: 30m
executor:
  recovery_max_attempts: 5
dependencies:
  slack:
    circuit_breaker:
      max_failures: 5
      recovery_timeout: 30s
    retry:
      max_attempts: 3
      strategy: exponential
      base_delay: 100ms
      jitter: 0.1
    rate_limiter:
      rate: 10
      burst: 20
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	var cfg Config
	if err := Load("executor-service", &cfg, WithConfigFile(configPath)); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Name != "executor-service" || cfg.Environment != "staging" {
		t.Errorf("unexpected service fields: %+v", cfg.ServiceConfig)
	}
	if cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Errorf("unexpected redis config: %+v", cfg.Redis)
	}
	if cfg.WAL.TTL != 12*time.Hour {
		t.Errorf("expected 12h wal ttl, got %v", cfg.WAL.TTL)
	}
	if cfg.Idempotency.TTL != 30*time.Minute {
		t.Errorf("expected 30m idempotency ttl, got %v", cfg.Idempotency.TTL)
	}
	if cfg.Executor.RecoveryMaxAttempts != 5 {
		t.Errorf("expected 5 recovery attempts, got %d", cfg.Executor.RecoveryMaxAttempts)
	}

	slack, ok := cfg.Dependencies["slack"]
	if !ok {
		t.Fatal("expected slack dependency section")
	}
	if slack.CircuitBreaker == nil || slack.CircuitBreaker.MaxFailures != 5 {
		t.Errorf("unexpected breaker section: %+v", slack.CircuitBreaker)
	}
	if slack.Bulkhead != nil {
		t.Error("bulkhead section was not configured and must stay nil")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis.internal:6380")

	var cfg Config
	if err := Load("executor-service", &cfg); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Redis.Addr != "redis.internal:6380" {
		t.Errorf("expected env override, got %q", cfg.Redis.Addr)
	}
}

func TestDependencyConfigBuild(t *testing.T) {
	dep := DependencyConfig{
		CircuitBreaker: &CircuitBreakerConfig{
			MaxFailures:     7,
			FailureRatio:    0.5,
			MinimumRequests: 10,
			RecoveryTimeout: time.Minute,
		},
		Retry: &RetryConfig{
			MaxAttempts: 4,
			Strategy:    "linear",
			BaseDelay:   50 * time.Millisecond,
		},
	}

	built := dep.Build()
	if built.CircuitBreaker == nil || built.CircuitBreaker.MaxFailures != 7 {
		t.Errorf("unexpected breaker: %+v", built.CircuitBreaker)
	}
	if built.Retry == nil || built.Retry.Strategy != resilience.StrategyLinear {
		t.Errorf("unexpected retry: %+v", built.Retry)
	}
	if built.Bulkhead != nil || built.RateLimiter != nil {
		t.Error("unconfigured sections must build to nil")
	}
}

func TestDependencyConfigValidate(t *testing.T) {
	bad := DependencyConfig{
		Retry: &RetryConfig{MaxAttempts: 99, Jitter: 3},
	}
	if err := bad.Validate(); err == nil {
		t.Error("expected validation failure for out-of-range retry settings")
	}

	good := DependencyConfig{
		Retry: &RetryConfig{MaxAttempts: 3, Strategy: "exponential", Jitter: 0.1},
	}
	if err := good.Validate(); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}
}

func TestEnvKeyVariants(t *testing.T) {
	variants := envKeyVariants("REDIS_POOL_SIZE")
	want := map[string]bool{
		"redis_pool_size": false,
		"redis.pool.size": false,
		"redis.pool_size": false,
	}
	for _, v := range variants {
		if _, ok := want[v]; ok {
			want[v] = true
		}
	}
	for key, found := range want {
		if !found {
			t.Errorf("expected variant %q in %v", key, variants)
		}
	}
}

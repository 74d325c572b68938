package config

import (
	"time"

	"github.com/kbukum/execkit/executor"
	"github.com/kbukum/execkit/resilience"
	"github.com/kbukum/execkit/validation"
)

// CircuitBreakerConfig is the file representation of a breaker.
type CircuitBreakerConfig struct {
	MaxFailures      int           `yaml:"max_failures" mapstructure:"max_failures" validate:"omitempty,gte=1"`
	FailureRatio     float64       `yaml:"failure_ratio" mapstructure:"failure_ratio" validate:"gte=0,lte=1"`
	MinimumRequests  int           `yaml:"minimum_requests" mapstructure:"minimum_requests" validate:"gte=0"`
	RecoveryTimeout  time.Duration `yaml:"recovery_timeout" mapstructure:"recovery_timeout"`
	SuccessThreshold int           `yaml:"success_threshold" mapstructure:"success_threshold" validate:"gte=0"`
	HalfOpenMaxCalls int           `yaml:"half_open_max_calls" mapstructure:"half_open_max_calls" validate:"gte=0"`
}

// BulkheadConfig is the file representation of a bulkhead.
type BulkheadConfig struct {
	MaxConcurrent int           `yaml:"max_concurrent" mapstructure:"max_concurrent" validate:"omitempty,gte=1"`
	MaxWait       time.Duration `yaml:"max_wait" mapstructure:"max_wait"`
}

// RetryConfig is the file representation of a retry policy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts" validate:"omitempty,gte=1,lte=10"`
	Strategy    string        `yaml:"strategy" mapstructure:"strategy" validate:"omitempty,oneof=fixed linear exponential"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	Multiplier  float64       `yaml:"multiplier" mapstructure:"multiplier" validate:"gte=0"`
	Jitter      float64       `yaml:"jitter" mapstructure:"jitter" validate:"gte=0,lte=1"`
}

// RateLimiterConfig is the file representation of a rate limiter.
type RateLimiterConfig struct {
	Rate  float64 `yaml:"rate" mapstructure:"rate" validate:"omitempty,gt=0"`
	Burst int     `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
}

// DependencyConfig is the file representation of one dependency's stack.
// Nil sections fall back to package defaults; a nil rate limiter section
// disables rate limiting for the dependency.
type DependencyConfig struct {
	CircuitBreaker *CircuitBreakerConfig `yaml:"circuit_breaker" mapstructure:"circuit_breaker"`
	Bulkhead       *BulkheadConfig       `yaml:"bulkhead" mapstructure:"bulkhead"`
	Retry          *RetryConfig          `yaml:"retry" mapstructure:"retry"`
	RateLimiter    *RateLimiterConfig    `yaml:"rate_limiter" mapstructure:"rate_limiter"`
}

// Validate validates the configured sections.
func (d *DependencyConfig) Validate() error {
	if d.CircuitBreaker != nil {
		if err := validation.Validate(*d.CircuitBreaker); err != nil {
			return err
		}
	}
	if d.Bulkhead != nil {
		if err := validation.Validate(*d.Bulkhead); err != nil {
			return err
		}
	}
	if d.Retry != nil {
		if err := validation.Validate(*d.Retry); err != nil {
			return err
		}
	}
	if d.RateLimiter != nil {
		if err := validation.Validate(*d.RateLimiter); err != nil {
			return err
		}
	}
	return nil
}

// Build converts the file representation into the executor's runtime form.
func (d *DependencyConfig) Build() executor.DependencyConfig {
	out := executor.DependencyConfig{}

	if cb := d.CircuitBreaker; cb != nil {
		out.CircuitBreaker = &resilience.CircuitBreakerConfig{
			MaxFailures:      cb.MaxFailures,
			FailureRatio:     cb.FailureRatio,
			MinimumRequests:  cb.MinimumRequests,
			RecoveryTimeout:  cb.RecoveryTimeout,
			SuccessThreshold: cb.SuccessThreshold,
			HalfOpenMaxCalls: cb.HalfOpenMaxCalls,
		}
	}
	if bh := d.Bulkhead; bh != nil {
		out.Bulkhead = &resilience.BulkheadConfig{
			MaxConcurrent: bh.MaxConcurrent,
			MaxWait:       bh.MaxWait,
		}
	}
	if r := d.Retry; r != nil {
		out.Retry = &resilience.RetryConfig{
			MaxAttempts: r.MaxAttempts,
			Strategy:    resilience.BackoffStrategy(r.Strategy),
			BaseDelay:   r.BaseDelay,
			MaxDelay:    r.MaxDelay,
			Multiplier:  r.Multiplier,
			Jitter:      r.Jitter,
		}
	}
	if rl := d.RateLimiter; rl != nil {
		out.RateLimiter = &resilience.RateLimiterConfig{
			Rate:  rl.Rate,
			Burst: rl.Burst,
		}
	}
	return out
}

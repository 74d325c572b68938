package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy selects how the delay grows between attempts.
type BackoffStrategy string

const (
	// StrategyFixed waits BaseDelay between every attempt.
	StrategyFixed BackoffStrategy = "fixed"
	// StrategyLinear waits BaseDelay * attempt.
	StrategyLinear BackoffStrategy = "linear"
	// StrategyExponential waits BaseDelay * Multiplier^(attempt-1).
	StrategyExponential BackoffStrategy = "exponential"
)

// RetryExhaustedError is returned when every attempt failed. It wraps the
// last underlying error so callers can distinguish "failed once" from
// "failed after N attempts".
type RetryExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("retry exhausted after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Cause }

// IsRetryExhausted reports whether err is (or wraps) a RetryExhaustedError.
func IsRetryExhausted(err error) bool {
	var re *RetryExhaustedError
	return errors.As(err, &re)
}

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including the first).
	MaxAttempts int
	// Strategy selects the backoff schedule.
	Strategy BackoffStrategy
	// BaseDelay is the initial delay between retries.
	BaseDelay time.Duration
	// MaxDelay clamps the computed delay.
	MaxDelay time.Duration
	// Multiplier is the growth factor for the exponential strategy.
	Multiplier float64
	// Jitter perturbs the delay by ±Jitter fraction uniformly at random.
	// Zero disables jitter.
	Jitter float64
	// RetryIf determines if an error should be retried. Errors that do
	// not match propagate immediately without consuming further attempts.
	RetryIf func(error) bool
	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error, backoff time.Duration)
}

// DefaultRetryConfig returns sensible defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Strategy:    StrategyExponential,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2.0,
		Jitter:      0.1,
		RetryIf:     DefaultRetryIf,
	}
}

// DefaultRetryIf retries all errors except context cancellation.
func DefaultRetryIf(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (cfg *RetryConfig) applyDefaults() {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyExponential
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 10 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = DefaultRetryIf
	}
}

// Retry executes fn up to cfg.MaxAttempts times. A non-retryable error
// propagates unchanged; exhausting every attempt returns a
// *RetryExhaustedError wrapping the last error. The backoff sleep is
// context-aware and never blocks past cancellation.
func Retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error

	cfg.applyDefaults()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !cfg.RetryIf(err) {
			return zero, err
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		backoff := Backoff(attempt, cfg)
		if cfg.Jitter > 0 {
			backoff = applyJitter(backoff, cfg.Jitter)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}

	return zero, &RetryExhaustedError{Attempts: cfg.MaxAttempts, Cause: lastErr}
}

// RetryFunc executes a function that returns only an error.
func RetryFunc(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := Retry(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Backoff computes the pre-jitter delay for an attempt, clamped to
// [0, cfg.MaxDelay]. It is a pure function of (attempt, cfg).
func Backoff(attempt int, cfg RetryConfig) time.Duration {
	base := float64(cfg.BaseDelay)

	var delay float64
	switch cfg.Strategy {
	case StrategyFixed:
		delay = base
	case StrategyLinear:
		delay = base * float64(attempt)
	case StrategyExponential:
		delay = base * math.Pow(cfg.Multiplier, float64(attempt-1))
	default:
		delay = base
	}

	if cfg.MaxDelay > 0 && delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// applyJitter perturbs d by ±fraction uniformly at random, never below zero.
func applyJitter(d time.Duration, fraction float64) time.Duration {
	jitterRange := float64(d) * fraction
	jittered := float64(d) + (rand.Float64()*2-1)*jitterRange
	if jittered < 0 {
		jittered = 0
	}
	return time.Duration(jittered)
}

// Package resilience provides the fault-tolerance primitives used by the
// execkit execution pipeline.
//
// This package includes:
//   - CircuitBreaker: fails fast once a dependency is judged unhealthy
//   - Retry: re-invokes failed operations on a backoff schedule
//   - Bulkhead: caps concurrent calls per dependency
//   - RateLimiter: token bucket request rate control
//
// The executor package composes these per named dependency:
//
//	rl.Wait → bulkhead → circuit breaker → retry → operation
//
// Retries run inside a single circuit-breaker-guarded call so that an
// operation retried N times counts as one breaker observation, not N.
package resilience

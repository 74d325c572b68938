package executor

import "github.com/kbukum/execkit/resilience"

// DependencyMetrics is a snapshot of one dependency's resilience state.
type DependencyMetrics struct {
	CircuitState string                   `json:"circuit_state"`
	CircuitOpens uint64                   `json:"circuit_opens"`
	Bulkhead     resilience.BulkheadStats `json:"bulkhead"`
}

// Metrics is a point-in-time snapshot of executor counters for an external
// metrics pipeline to scrape.
type Metrics struct {
	TotalRequests       uint64                       `json:"total_requests"`
	SuccessfulRequests  uint64                       `json:"successful_requests"`
	FailedRequests      uint64                       `json:"failed_requests"`
	RetryAttempts       uint64                       `json:"retry_attempts"`
	CircuitBreakerOpens uint64                       `json:"circuit_breaker_opens"`
	BulkheadRejections  uint64                       `json:"bulkhead_rejections"`
	IdempotencyHits     uint64                       `json:"idempotency_hits"`
	IdempotencyMisses   uint64                       `json:"idempotency_misses"`
	Dependencies        map[string]DependencyMetrics `json:"dependencies"`
}

// Metrics returns a snapshot of the executor's counters and per-dependency
// resilience state. Counters are monotonic; the snapshot itself is not
// atomic across dependencies.
func (e *Executor) Metrics() Metrics {
	m := Metrics{
		TotalRequests:      e.total.Load(),
		SuccessfulRequests: e.succeeded.Load(),
		FailedRequests:     e.failed.Load(),
		RetryAttempts:      e.retries.Load(),
		IdempotencyHits:    e.idem.Hits(),
		IdempotencyMisses:  e.idem.Misses(),
		Dependencies:       make(map[string]DependencyMetrics),
	}

	for _, name := range e.registry.names() {
		dep, ok := e.registry.get(name)
		if !ok {
			continue
		}
		stats := dep.bulkhead.Stats()
		opens := dep.breaker.Opens()
		m.CircuitBreakerOpens += opens
		m.BulkheadRejections += stats.Rejected
		m.Dependencies[name] = DependencyMetrics{
			CircuitState: dep.breaker.State().String(),
			CircuitOpens: opens,
			Bulkhead:     stats,
		}
	}
	return m
}

package resilience

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed allows requests to pass through.
	StateClosed State = iota
	// StateOpen blocks all requests.
	StateOpen
	// StateHalfOpen allows limited probe requests to test recovery.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the breaker rejects a call without
// invoking the underlying function.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the guarded dependency for metrics/logging.
	Name string
	// MaxFailures is the absolute failure count that opens the circuit.
	MaxFailures int
	// FailureRatio opens the circuit when failures/total reaches this
	// ratio, but only once MinimumRequests samples have been observed.
	// Zero disables ratio-based opening.
	FailureRatio float64
	// MinimumRequests is the sample floor for FailureRatio. It guards
	// against opening on a cold start with few requests.
	MinimumRequests int
	// RecoveryTimeout is how long to stay open before allowing a
	// half-open probe.
	RecoveryTimeout time.Duration
	// SuccessThreshold is the number of consecutive half-open successes
	// required to close the circuit again.
	SuccessThreshold int
	// HalfOpenMaxCalls is the number of concurrent probes allowed while
	// half-open.
	HalfOpenMaxCalls int
	// OnStateChange is called once per actual state transition.
	OnStateChange func(name string, from, to State)
}

// DefaultCircuitBreakerConfig returns sensible defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		FailureRatio:     0.5,
		MinimumRequests:  10,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 1,
		HalfOpenMaxCalls: 1,
	}
}

// Counts is a snapshot of breaker bookkeeping for observability.
type Counts struct {
	Failures        int
	Successes       int
	TotalRequests   int
	LastFailureTime time.Time
}

// CircuitBreaker tracks failure and success counts for one named dependency
// and fails fast while the dependency is unhealthy.
//
// States:
//   - Closed: normal operation, requests pass through
//   - Open: dependency is unhealthy, requests fail immediately with
//     ErrCircuitOpen until RecoveryTimeout elapses
//   - HalfOpen: limited probes allowed; SuccessThreshold consecutive
//     successes close the circuit, any failure reopens it
//
// The breaker never swallows the underlying error: after bookkeeping the
// error from the wrapped function is returned unchanged.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu              sync.Mutex
	state           State
	failures        int
	successes       int
	total           int
	lastFailureTime time.Time
	halfOpenCalls   int
	opens           uint64
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 1
	}

	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
	}
}

// Execute runs fn through the circuit breaker. It returns ErrCircuitOpen
// without invoking fn if the circuit is open, otherwise it returns exactly
// what fn returned.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allowRequest() {
		return ErrCircuitOpen
	}

	err := fn()
	cb.recordResult(err)
	return err
}

// State returns the current circuit breaker state.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// Counts returns a snapshot of the breaker's bookkeeping.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return Counts{
		Failures:        cb.failures,
		Successes:       cb.successes,
		TotalRequests:   cb.total,
		LastFailureTime: cb.lastFailureTime,
	}
}

// Opens returns how many times the breaker has transitioned to open.
func (cb *CircuitBreaker) Opens() uint64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.opens
}

// Reset returns the circuit breaker to the closed state with clean counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.toState(StateClosed)
	cb.failures = 0
	cb.successes = 0
	cb.total = 0
	cb.halfOpenCalls = 0
}

// allowRequest checks if a request should be allowed, counting half-open
// probes against HalfOpenMaxCalls.
func (cb *CircuitBreaker) allowRequest() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentState() {
	case StateClosed:
		return true
	case StateOpen:
		return false
	case StateHalfOpen:
		if cb.halfOpenCalls < cb.config.HalfOpenMaxCalls {
			cb.halfOpenCalls++
			return true
		}
		return false
	default:
		return false
	}
}

// recordResult updates counters and applies state-transition rules for one
// terminal outcome of the wrapped function. A context error is the caller
// abandoning the call, not a dependency outcome: it leaves the counters
// untouched and gives back any half-open probe slot it consumed.
func (cb *CircuitBreaker) recordResult(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if cb.state == StateHalfOpen && cb.halfOpenCalls > 0 {
			cb.halfOpenCalls--
		}
		return
	}

	cb.total++
	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	switch cb.currentState() {
	case StateClosed:
		cb.failures = 0
	case StateHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.toState(StateClosed)
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailureTime = time.Now()

	switch cb.currentState() {
	case StateClosed:
		if cb.shouldOpen() {
			cb.toState(StateOpen)
		}
	case StateHalfOpen:
		// Any failure during a probe reopens immediately.
		cb.toState(StateOpen)
	}
}

// shouldOpen applies the threshold policy: an absolute failure count, or a
// failure ratio once enough samples exist.
func (cb *CircuitBreaker) shouldOpen() bool {
	if cb.failures >= cb.config.MaxFailures {
		return true
	}
	if cb.config.FailureRatio > 0 && cb.total >= cb.config.MinimumRequests && cb.config.MinimumRequests > 0 {
		if float64(cb.failures)/float64(cb.total) >= cb.config.FailureRatio {
			return true
		}
	}
	return false
}

// currentState returns the state, lazily transitioning Open to HalfOpen
// once the recovery timeout has elapsed. Callers must hold cb.mu.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == StateOpen {
		if time.Since(cb.lastFailureTime) >= cb.config.RecoveryTimeout {
			cb.toState(StateHalfOpen)
		}
	}
	return cb.state
}

// toState transitions to a new state, firing OnStateChange only when the
// state actually changes. Callers must hold cb.mu.
func (cb *CircuitBreaker) toState(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to

	switch to {
	case StateClosed:
		cb.failures = 0
		cb.successes = 0
		cb.total = 0
		cb.halfOpenCalls = 0
	case StateHalfOpen:
		cb.halfOpenCalls = 0
		cb.successes = 0
	case StateOpen:
		cb.opens++
		cb.halfOpenCalls = 0
		cb.successes = 0
	}

	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(cb.config.Name, from, to)
	}
}

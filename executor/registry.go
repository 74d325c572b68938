package executor

import (
	"fmt"
	"sync"

	goerrors "github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/resilience"
	"github.com/kbukum/execkit/saga"
)

// DependencyConfig configures the resilience stack for one dependency.
// Nil fields fall back to package defaults; a nil RateLimiter disables
// rate limiting for the dependency.
type DependencyConfig struct {
	CircuitBreaker *resilience.CircuitBreakerConfig
	Bulkhead       *resilience.BulkheadConfig
	RateLimiter    *resilience.RateLimiterConfig
	Retry          *resilience.RetryConfig
}

// dependency bundles the long-lived per-dependency state: the adapter and
// the resilience primitives guarding it.
type dependency struct {
	name     string
	adapter  Operation
	breaker  *resilience.CircuitBreaker
	bulkhead *resilience.Bulkhead
	limiter  *resilience.RateLimiter
	retry    resilience.RetryConfig
	saga     *saga.Executor
}

// registry maps dependency names to their resilience state. It is owned by
// one Executor; nothing here is process-global.
type registry struct {
	mu   sync.RWMutex
	deps map[string]*dependency
}

func newRegistry() *registry {
	return &registry{deps: make(map[string]*dependency)}
}

func (r *registry) add(dep *dependency) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.deps[dep.name]; exists {
		return goerrors.InvalidInput("dependency", fmt.Sprintf("dependency %q is already registered", dep.name))
	}
	r.deps[dep.name] = dep
	return nil
}

func (r *registry) get(name string) (*dependency, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	dep, ok := r.deps[name]
	return dep, ok
}

func (r *registry) names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.deps))
	for name := range r.deps {
		names = append(names, name)
	}
	return names
}

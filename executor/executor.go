package executor

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync/atomic"
	"time"

	goerrors "github.com/kbukum/execkit/errors"
	"github.com/kbukum/execkit/idempotency"
	"github.com/kbukum/execkit/logger"
	"github.com/kbukum/execkit/resilience"
	"github.com/kbukum/execkit/saga"
	"github.com/kbukum/execkit/validation"
	"github.com/kbukum/execkit/wal"
)

// Config configures the executor.
type Config struct {
	// RecoveryMaxAttempts caps how many recorded attempts a pending WAL
	// entry may have before the recovery sweep gives up on it. Zero means 3.
	RecoveryMaxAttempts int `yaml:"recovery_max_attempts" mapstructure:"recovery_max_attempts" validate:"gte=0"`
}

// ApplyDefaults applies default values.
func (c *Config) ApplyDefaults() {
	if c.RecoveryMaxAttempts <= 0 {
		c.RecoveryMaxAttempts = 3
	}
}

// Executor is the composition root. It owns the per-dependency resilience
// registry and orchestrates every invocation through the full pipeline.
type Executor struct {
	registry *registry
	idem     *idempotency.Manager
	wal      *wal.Log
	cfg      Config
	log      *logger.Logger

	total     atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64
	retries   atomic.Uint64
}

// New creates an executor over the given idempotency manager and WAL. Both
// must share a durable store for crash recovery to work across restarts; an
// in-memory store is correct within one process but forfeits that guarantee.
func New(idem *idempotency.Manager, walLog *wal.Log, cfg Config, log *logger.Logger) *Executor {
	cfg.ApplyDefaults()
	return &Executor{
		registry: newRegistry(),
		idem:     idem,
		wal:      walLog,
		cfg:      cfg,
		log:      log.WithComponent("executor"),
	}
}

// Register adds a dependency adapter with its resilience configuration.
// Registering the same name twice is an error.
func (e *Executor) Register(name string, adapter Operation, cfg DependencyConfig) error {
	if name == "" {
		return goerrors.MissingField("dependency")
	}
	if adapter == nil {
		return goerrors.InvalidInput("adapter", "adapter must not be nil")
	}

	cbCfg := resilience.DefaultCircuitBreakerConfig(name)
	if cfg.CircuitBreaker != nil {
		cbCfg = *cfg.CircuitBreaker
	}
	cbCfg.Name = name
	userStateHook := cbCfg.OnStateChange
	cbCfg.OnStateChange = func(dep string, from, to resilience.State) {
		e.log.Warn("circuit state changed", logger.Fields(
			logger.FieldDependency, dep,
			"from", from.String(),
			logger.FieldState, to.String(),
		))
		if userStateHook != nil {
			userStateHook(dep, from, to)
		}
	}

	bhCfg := resilience.DefaultBulkheadConfig(name)
	if cfg.Bulkhead != nil {
		bhCfg = *cfg.Bulkhead
	}
	bhCfg.Name = name

	retryCfg := resilience.DefaultRetryConfig()
	if cfg.Retry != nil {
		retryCfg = *cfg.Retry
	}
	userRetryIf := retryCfg.RetryIf
	if userRetryIf == nil {
		userRetryIf = resilience.DefaultRetryIf
	}
	// Non-retryable application errors stop the retry loop regardless of
	// the configured predicate.
	retryCfg.RetryIf = func(err error) bool {
		if appErr, ok := goerrors.AsAppError(err); ok && !appErr.Retryable {
			return false
		}
		return userRetryIf(err)
	}
	dep := &dependency{
		name:     name,
		adapter:  adapter,
		breaker:  resilience.NewCircuitBreaker(cbCfg),
		bulkhead: resilience.NewBulkhead(bhCfg),
		retry:    retryCfg,
		saga:     saga.NewExecutor(adapter, e.log),
	}
	if cfg.RateLimiter != nil {
		rlCfg := *cfg.RateLimiter
		rlCfg.Name = name
		dep.limiter = resilience.NewRateLimiter(rlCfg)
	}

	if err := e.registry.add(dep); err != nil {
		return err
	}

	e.log.Info("dependency registered", logger.Fields(
		logger.FieldDependency, name,
		"max_concurrent", dep.bulkhead.MaxConcurrent(),
		"max_attempts", retryCfg.MaxAttempts,
	))
	return nil
}

// Dependencies returns the names of all registered dependencies.
func (e *Executor) Dependencies() []string {
	return e.registry.names()
}

// Execute runs one operation through the full resilience pipeline and
// returns its result. Failures surface as AppError taxonomy members;
// underlying domain errors propagate unchanged when no wrapper applies.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	e.total.Add(1)
	result, err := e.execute(ctx, req)
	if err != nil {
		e.failed.Add(1)
		return nil, err
	}
	e.succeeded.Add(1)
	return result, nil
}

func (e *Executor) execute(ctx context.Context, req Request) (*Result, error) {
	if appErr := validation.New().
		Required("dependency", req.Dependency).
		Required("operation", req.Operation).
		Validate(); appErr != nil {
		return nil, appErr
	}
	dep, ok := e.registry.get(req.Dependency)
	if !ok {
		return nil, goerrors.InvalidInput("dependency", fmt.Sprintf("dependency %q is not registered", req.Dependency))
	}

	key := req.IdempotencyKey
	if key == "" {
		var err error
		key, err = idempotency.Fingerprint(req.Operation, req.Payload, req.Headers)
		if err != nil {
			return nil, goerrors.InvalidInput("payload", "payload is not serializable").WithCause(err)
		}
	}

	// Cache hit short-circuits before any slot or token is taken.
	rec, err := e.idem.Lookup(ctx, key)
	if err != nil {
		return nil, goerrors.StorageError(err)
	}
	if rec != nil {
		return e.replay(key, rec)
	}

	if dep.limiter != nil {
		if err := dep.limiter.Wait(ctx); err != nil {
			return nil, e.wrapError(dep.name, req.Operation, err)
		}
	}

	value, err := e.runGuarded(ctx, dep, req, key)
	if err != nil {
		wrapped := e.wrapError(dep.name, req.Operation, err)
		e.cacheFailure(ctx, key, wrapped)
		return nil, wrapped
	}

	if err := e.idem.Store(ctx, idempotency.Record{Key: key, Result: value, Success: true}); err != nil {
		e.log.Warn("caching result failed", logger.Fields(
			logger.FieldKey, key,
			logger.FieldError, err.Error(),
		))
	}
	return &Result{Value: value, IdempotencyKey: key}, nil
}

// runGuarded executes the adapter call through bulkhead, breaker and retry,
// with each attempt write-ahead logged. The WAL entry is created by the
// first attempt, so aborts before any attempt (circuit open, bulkhead
// rejection) leave no pending record behind.
func (e *Executor) runGuarded(ctx context.Context, dep *dependency, req Request, key string) (json.RawMessage, error) {
	var entry *wal.Entry

	attempt := func() (json.RawMessage, error) {
		if entry == nil {
			appended, err := e.wal.Append(ctx, wal.Entry{
				Dependency:     dep.name,
				Operation:      req.Operation,
				Payload:        req.Payload,
				Headers:        req.Headers,
				IdempotencyKey: key,
			})
			if err != nil {
				return nil, goerrors.StorageError(err)
			}
			entry = appended
		} else if err := e.wal.MarkPending(ctx, entry.ID); err != nil {
			e.log.Warn("reclaiming wal entry failed", logger.Fields(
				logger.FieldEntryID, entry.ID,
				logger.FieldError, err.Error(),
			))
		}

		value, err := dep.adapter.ExecuteOperation(ctx, req.Operation, req.Payload, req.Headers)
		if err != nil {
			// A cancelled attempt stays pending so the next recovery
			// sweep picks it up; cancellation is not a dependency failure.
			if ctx.Err() == nil {
				if werr := e.wal.MarkFailed(ctx, entry.ID, err); werr != nil {
					e.log.Warn("marking wal entry failed errored", logger.Fields(
						logger.FieldEntryID, entry.ID,
						logger.FieldError, werr.Error(),
					))
				}
			}
			return nil, err
		}

		if werr := e.wal.MarkCompleted(ctx, entry.ID); werr != nil {
			e.log.Warn("marking wal entry completed errored", logger.Fields(
				logger.FieldEntryID, entry.ID,
				logger.FieldError, werr.Error(),
			))
		}
		return value, nil
	}

	retryCfg := dep.retry
	userOnRetry := retryCfg.OnRetry
	retryCfg.OnRetry = func(attemptNum int, err error, backoff time.Duration) {
		e.retries.Add(1)
		e.log.Debug("retrying operation", logger.Fields(
			logger.FieldDependency, dep.name,
			logger.FieldOperation, req.Operation,
			logger.FieldAttempt, attemptNum,
			logger.FieldError, err.Error(),
			logger.FieldDuration, backoff.String(),
		))
		if userOnRetry != nil {
			userOnRetry(attemptNum, err, backoff)
		}
	}

	// Retries run inside a single breaker observation.
	guarded := func() (json.RawMessage, error) {
		var value json.RawMessage
		var callErr error
		cbErr := dep.breaker.Execute(func() error {
			value, callErr = resilience.Retry(ctx, retryCfg, attempt)
			return callErr
		})
		if cbErr != nil && callErr == nil {
			return nil, cbErr
		}
		return value, callErr
	}

	return resilience.ExecuteWithResult(ctx, dep.bulkhead, guarded)
}

// replay serves a cached record. A cached failure marker replays the
// failure; the adapter is never re-invoked either way.
func (e *Executor) replay(key string, rec *idempotency.Record) (*Result, error) {
	if rec.Success {
		return &Result{Value: rec.Result, Replayed: true, IdempotencyKey: key}, nil
	}
	return nil, goerrors.New(goerrors.ErrCodeExternalService, rec.Error, 502)
}

// cacheFailure records a failure marker so duplicate submissions replay the
// failure instead of hammering the dependency. Capacity aborts and
// cancellations are not operation outcomes and are never cached.
func (e *Executor) cacheFailure(ctx context.Context, key string, err error) {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return
	}
	if appErr, ok := goerrors.AsAppError(err); ok {
		switch appErr.Code {
		case goerrors.ErrCodeCircuitOpen, goerrors.ErrCodeBulkheadFull,
			goerrors.ErrCodeBulkheadTimeout, goerrors.ErrCodeRateLimited,
			goerrors.ErrCodeStorageError:
			return
		}
	}

	if serr := e.idem.Store(ctx, idempotency.Record{Key: key, Success: false, Error: err.Error()}); serr != nil {
		e.log.Warn("caching failure marker failed", logger.Fields(
			logger.FieldKey, key,
			logger.FieldError, serr.Error(),
		))
	}
}

// Compensate invokes the adapter's rollback for a completed operation. It
// returns false when compensation failed; failures are recorded and logged,
// never raised.
func (e *Executor) Compensate(ctx context.Context, dependency, operation string, payload map[string]any, result json.RawMessage) bool {
	dep, ok := e.registry.get(dependency)
	if !ok {
		e.log.Warn("compensation requested for unregistered dependency", logger.Fields(
			logger.FieldDependency, dependency,
			logger.FieldOperation, operation,
		))
		return false
	}
	return dep.saga.Compensate(ctx, operation, payload, result)
}

// CompensationOutcomes returns the recorded compensation outcomes for one
// dependency.
func (e *Executor) CompensationOutcomes(dependency string) []saga.Outcome {
	dep, ok := e.registry.get(dependency)
	if !ok {
		return nil
	}
	return dep.saga.Outcomes()
}

// wrapError converts resilience sentinel errors into the AppError taxonomy.
// Domain errors and context errors pass through unchanged.
func (e *Executor) wrapError(dependency, operation string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := goerrors.AsAppError(err); ok {
		return appErr
	}

	var exhausted *resilience.RetryExhaustedError
	switch {
	case stderrors.As(err, &exhausted):
		return goerrors.RetryExhausted(operation, exhausted.Attempts, exhausted.Cause)
	case stderrors.Is(err, resilience.ErrCircuitOpen):
		return goerrors.CircuitOpen(dependency).WithCause(err)
	case stderrors.Is(err, resilience.ErrBulkheadFull):
		return goerrors.BulkheadRejected(dependency).WithCause(err)
	case stderrors.Is(err, resilience.ErrBulkheadTimeout):
		return goerrors.BulkheadTimeout(dependency).WithCause(err)
	case stderrors.Is(err, resilience.ErrRateLimited):
		return goerrors.RateLimited(dependency).WithCause(err)
	default:
		return err
	}
}

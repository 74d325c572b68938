package saga

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/execkit/logger"
)

// Compensator is the domain-supplied inverse action for one adapter. The
// triple passed in is derivable from the write-ahead log, so compensation
// remains possible after a crash.
type Compensator interface {
	// Compensate undoes the effect of a completed operation. Returning an
	// error marks the compensation as failed; it is recorded, not raised.
	Compensate(ctx context.Context, operation string, payload map[string]any, result json.RawMessage) error
}

// CompensatorFunc adapts a function to the Compensator interface.
type CompensatorFunc func(ctx context.Context, operation string, payload map[string]any, result json.RawMessage) error

// Compensate implements Compensator.
func (f CompensatorFunc) Compensate(ctx context.Context, operation string, payload map[string]any, result json.RawMessage) error {
	return f(ctx, operation, payload, result)
}

// NoopCompensator is for operations with no sensible inverse (pure reads).
// It always succeeds.
var NoopCompensator = CompensatorFunc(func(context.Context, string, map[string]any, json.RawMessage) error {
	return nil
})

// Outcome records whether compensation for one operation succeeded.
type Outcome struct {
	Operation string    `json:"operation"`
	Succeeded bool      `json:"succeeded"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Executor invokes the domain compensator and records per-operation
// outcomes for the orchestrating workflow.
type Executor struct {
	compensator Compensator
	log         *logger.Logger

	mu       sync.Mutex
	outcomes []Outcome
}

// NewExecutor creates a compensation executor around a domain compensator.
// A nil compensator behaves as NoopCompensator.
func NewExecutor(compensator Compensator, log *logger.Logger) *Executor {
	if compensator == nil {
		compensator = NoopCompensator
	}
	return &Executor{
		compensator: compensator,
		log:         log.WithComponent("saga"),
	}
}

// Compensate invokes the domain rollback for one completed operation.
// It returns false when compensation failed; it never returns an error and
// never panics through to the caller.
func (e *Executor) Compensate(ctx context.Context, operation string, payload map[string]any, result json.RawMessage) bool {
	err := e.invoke(ctx, operation, payload, result)

	outcome := Outcome{
		Operation: operation,
		Succeeded: err == nil,
		At:        time.Now().UTC(),
	}
	if err != nil {
		outcome.Error = err.Error()
		e.log.Error("compensation failed", logger.Fields(
			logger.FieldOperation, operation,
			logger.FieldError, err.Error(),
		))
	} else {
		e.log.Info("compensation succeeded", logger.Fields(
			logger.FieldOperation, operation,
		))
	}

	e.mu.Lock()
	e.outcomes = append(e.outcomes, outcome)
	e.mu.Unlock()

	return err == nil
}

func (e *Executor) invoke(ctx context.Context, operation string, payload map[string]any, result json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("compensator panicked: %v", r)
		}
	}()
	return e.compensator.Compensate(ctx, operation, payload, result)
}

// Outcomes returns a copy of all recorded compensation outcomes.
func (e *Executor) Outcomes() []Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Outcome, len(e.outcomes))
	copy(out, e.outcomes)
	return out
}

// FailedOutcomes returns only the outcomes whose compensation failed.
func (e *Executor) FailedOutcomes() []Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	var failed []Outcome
	for _, o := range e.outcomes {
		if !o.Succeeded {
			failed = append(failed, o)
		}
	}
	return failed
}

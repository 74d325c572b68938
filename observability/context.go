package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ExecutionContext holds observability context for one tracked execution.
type ExecutionContext struct {
	Dependency     string
	Operation      string
	IdempotencyKey string
	StartTime      time.Time
	Metrics        *Metrics
}

// NewExecutionContext creates a new execution context.
// If metrics is nil, metric recording is silently skipped.
func NewExecutionContext(dependency, operation, idempotencyKey string, metrics *Metrics) *ExecutionContext {
	return &ExecutionContext{
		Dependency:     dependency,
		Operation:      operation,
		IdempotencyKey: idempotencyKey,
		StartTime:      time.Now(),
		Metrics:        metrics,
	}
}

// executionContextKey is the context key for ExecutionContext.
type executionContextKey struct{}

// WithExecutionContext stores an ExecutionContext in the context.
func WithExecutionContext(ctx context.Context, ec *ExecutionContext) context.Context {
	return context.WithValue(ctx, executionContextKey{}, ec)
}

// ExecutionContextFromContext retrieves the ExecutionContext from context, or nil.
func ExecutionContextFromContext(ctx context.Context) *ExecutionContext {
	if ec, ok := ctx.Value(executionContextKey{}).(*ExecutionContext); ok {
		return ec
	}
	return nil
}

// StartSpanForExecution starts a traced span annotated with the execution's
// dependency, operation and idempotency key.
func (ec *ExecutionContext) StartSpanForExecution(ctx context.Context, spanName string) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, spanName)
	span.SetAttributes(
		attribute.String(AttrDependency, ec.Dependency),
		attribute.String(AttrOperation, ec.Operation),
	)
	if ec.IdempotencyKey != "" {
		span.SetAttributes(attribute.String(AttrIdempotencyKey, ec.IdempotencyKey))
	}
	return ctx, span
}

// EndExecution ends the span and records the execution metric.
func (ec *ExecutionContext) EndExecution(ctx context.Context, span trace.Span, status string, err error) {
	duration := time.Since(ec.StartTime)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}

	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	if ec.Metrics != nil {
		ec.Metrics.RecordExecution(ctx, ec.Dependency, ec.Operation, status, duration)
	}
}

// Duration returns the elapsed time since the execution started.
func (ec *ExecutionContext) Duration() time.Duration {
	return time.Since(ec.StartTime)
}

package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/execkit/executor"
	"github.com/kbukum/execkit/logger"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// ServiceName is the name of the service.
	ServiceName string
	// ServiceVersion is the version of the service.
	ServiceVersion string
	// Environment is the deployment environment (dev, staging, prod).
	Environment string
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string
	// Insecure allows insecure connections (for development).
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter initializes the OpenTelemetry meter provider.
// Returns a MeterProvider that should be shut down on application exit.
func InitMeter(ctx context.Context, config MeterConfig, log *logger.Logger) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	readerOpts := []sdkmetric.PeriodicReaderOption{}
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	if log != nil {
		log.Info("meter initialized", logger.Fields(
			logger.FieldService, config.ServiceName,
			"endpoint", config.Endpoint,
			"interval", config.Interval.String(),
		))
	}

	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds synchronous instruments for recording individual executions
// and compensations at call sites.
type Metrics struct {
	executionTotal    metric.Int64Counter
	executionDuration metric.Float64Histogram
	compensationTotal metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	executionTotal, err := meter.Int64Counter("execution.total",
		metric.WithDescription("Total number of executions by dependency, operation and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating execution.total counter: %w", err)
	}

	executionDuration, err := meter.Float64Histogram("execution.duration",
		metric.WithDescription("Duration of executions in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating execution.duration histogram: %w", err)
	}

	compensationTotal, err := meter.Int64Counter("compensation.total",
		metric.WithDescription("Total number of compensations by dependency and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating compensation.total counter: %w", err)
	}

	return &Metrics{
		executionTotal:    executionTotal,
		executionDuration: executionDuration,
		compensationTotal: compensationTotal,
	}, nil
}

// RecordExecution records one execution outcome with its duration.
func (m *Metrics) RecordExecution(ctx context.Context, dependency, operation, status string, duration time.Duration) {
	m.executionTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrDependency, dependency),
		attribute.String(AttrOperation, operation),
		attribute.String(AttrStatus, status),
	))
	m.executionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrDependency, dependency),
		attribute.String(AttrOperation, operation),
	))
}

// RecordCompensation records a compensation attempt and whether it succeeded.
func (m *Metrics) RecordCompensation(ctx context.Context, dependency, operation string, ok bool) {
	status := "success"
	if !ok {
		status = "failure"
	}
	m.compensationTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrDependency, dependency),
		attribute.String(AttrOperation, operation),
		attribute.String(AttrStatus, status),
	))
}

// circuitStateValue encodes a breaker state for the state gauge.
func circuitStateValue(state string) int64 {
	switch state {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}

// RegisterExecutorMetrics registers observable instruments that scrape the
// executor's counter snapshot on every collection. Unregister the returned
// registration when the executor is discarded.
func RegisterExecutorMetrics(meter metric.Meter, exec *executor.Executor) (metric.Registration, error) {
	requests, err := meter.Int64ObservableCounter("executor.requests",
		metric.WithDescription("Total requests accepted by the executor, by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating executor.requests counter: %w", err)
	}

	retries, err := meter.Int64ObservableCounter("executor.retry.attempts",
		metric.WithDescription("Total retry attempts across all dependencies"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating executor.retry.attempts counter: %w", err)
	}

	idemHits, err := meter.Int64ObservableCounter("idempotency.hits",
		metric.WithDescription("Idempotency cache hits"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating idempotency.hits counter: %w", err)
	}

	idemMisses, err := meter.Int64ObservableCounter("idempotency.misses",
		metric.WithDescription("Idempotency cache misses"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating idempotency.misses counter: %w", err)
	}

	breakerOpens, err := meter.Int64ObservableCounter("circuit_breaker.opens",
		metric.WithDescription("Closed to open transitions, by dependency"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating circuit_breaker.opens counter: %w", err)
	}

	breakerState, err := meter.Int64ObservableGauge("circuit_breaker.state",
		metric.WithDescription("Breaker state by dependency: 0 closed, 1 half-open, 2 open"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating circuit_breaker.state gauge: %w", err)
	}

	bulkheadRejections, err := meter.Int64ObservableCounter("bulkhead.rejections",
		metric.WithDescription("Requests rejected at the bulkhead, by dependency"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bulkhead.rejections counter: %w", err)
	}

	bulkheadInUse, err := meter.Int64ObservableGauge("bulkhead.in_use",
		metric.WithDescription("Concurrency slots currently held, by dependency"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bulkhead.in_use gauge: %w", err)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		snap := exec.Metrics()

		o.ObserveInt64(requests, int64(snap.SuccessfulRequests),
			metric.WithAttributes(attribute.String(AttrStatus, "success")))
		o.ObserveInt64(requests, int64(snap.FailedRequests),
			metric.WithAttributes(attribute.String(AttrStatus, "failure")))
		o.ObserveInt64(retries, int64(snap.RetryAttempts))
		o.ObserveInt64(idemHits, int64(snap.IdempotencyHits))
		o.ObserveInt64(idemMisses, int64(snap.IdempotencyMisses))

		for name, dep := range snap.Dependencies {
			attrs := metric.WithAttributes(attribute.String(AttrDependency, name))
			o.ObserveInt64(breakerOpens, int64(dep.CircuitOpens), attrs)
			o.ObserveInt64(breakerState, circuitStateValue(dep.CircuitState), attrs)
			o.ObserveInt64(bulkheadRejections, int64(dep.Bulkhead.Rejected), attrs)
			o.ObserveInt64(bulkheadInUse, int64(dep.Bulkhead.InUse), attrs)
		}
		return nil
	}, requests, retries, idemHits, idemMisses, breakerOpens, breakerState, bulkheadRejections, bulkheadInUse)
	if err != nil {
		return nil, fmt.Errorf("registering executor metrics callback: %w", err)
	}
	return reg, nil
}

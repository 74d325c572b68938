// Package observability provides OpenTelemetry tracing and metrics for the
// execution core, plus service-level health aggregation.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("my-service"), log)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanExecute)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("my-service"), log)
//	defer mp.Shutdown(ctx)
//
//	reg, err := observability.RegisterExecutorMetrics(observability.Meter("my-service"), exec)
//	defer reg.Unregister()
//
// Health:
//
//	health := observability.CollectHealth(ctx, "my-service", "1.0.0", registry)
package observability

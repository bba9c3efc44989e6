// Package observability provides OpenTelemetry tracing and metrics for
// the scheduler, plus health reporting for the HTTP surface.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("taskflow"))
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, observability.SpanTaskExecute)
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("taskflow"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewSchedulerMetrics(observability.Meter("taskflow"))
//	metrics.RecordTask(ctx, "Cato", "implementation", "completed", duration)
package observability

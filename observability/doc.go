// Package observability provides OpenTelemetry tracing and metrics for the
// spawn layer.
//
// Tracing:
//
//	cfg := observability.DefaultTracerConfig("gospawn")
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	cfg := observability.DefaultMeterConfig("gospawn")
//	mp, err := observability.InitMeter(ctx, &cfg)
//	defer mp.Shutdown(ctx)
//
// Without initialization the global no-op providers are used, so spans and
// instruments recorded by package process cost nothing.
package observability

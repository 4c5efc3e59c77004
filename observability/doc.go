// Package observability provides OpenTelemetry wiring for streamkit.
//
// The library itself only uses the global providers: scheduler metrics
// and flow subscription spans are no-ops until an application
// initializes exporters, either through this package (OTLP over HTTP)
// or its own OpenTelemetry setup.
//
// # Usage
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("my-app"))
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("my-app"))
//	defer tp.Shutdown(ctx)
//	defer mp.Shutdown(ctx)
package observability

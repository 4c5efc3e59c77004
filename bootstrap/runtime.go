package bootstrap

import (
	"context"
	"fmt"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/streamkit/config"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
	"github.com/kbukum/streamkit/scheduler"
	"github.com/kbukum/streamkit/version"
)

// Runtime is the initialized streamkit infrastructure: configuration,
// logging, the default schedulers and, when enabled, OpenTelemetry
// providers. Create one per process with Init and tear it down with
// Shutdown.
type Runtime struct {
	Cfg    *config.Config
	Logger *logger.Logger

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider

	gracefulTimeout time.Duration
	onStop          []Hook
}

// Init loads configuration, initializes the global logger and the
// default scheduler settings, and optionally wires OpenTelemetry.
func Init(ctx context.Context, opts ...Option) (*Runtime, error) {
	o := resolveOptions(opts)

	cfg := o.cfg
	if cfg == nil {
		loaded, err := config.Load(o.loaderOpts...)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		cfg = loaded
	}

	rt := &Runtime{
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
	}
	if o.gracefulTimeout != nil {
		rt.gracefulTimeout = *o.gracefulTimeout
	}

	if o.logger != nil {
		rt.Logger = o.logger
	} else {
		logger.Init(cfg.Logging)
		rt.Logger = logger.GetGlobalLogger()
	}

	if err := scheduler.InitDefaults(cfg.Scheduler); err != nil {
		return nil, fmt.Errorf("scheduler defaults: %w", err)
	}

	if o.tracing != nil {
		tp, err := observability.InitTracer(ctx, *o.tracing)
		if err != nil {
			return nil, fmt.Errorf("initializing tracer: %w", err)
		}
		rt.tracerProvider = tp
	}
	if o.metrics != nil {
		mp, err := observability.InitMeter(ctx, o.metrics)
		if err != nil {
			return nil, fmt.Errorf("initializing meter: %w", err)
		}
		rt.meterProvider = mp
	}

	rt.Logger.WithComponent("bootstrap").Info("streamkit initialized", logger.Fields(
		"version", version.Get().String(),
		"parallelism", cfg.Scheduler.Parallelism,
	))
	return rt, nil
}

// OnStop registers a hook that runs during Shutdown before the default
// schedulers are disposed.
func (rt *Runtime) OnStop(hooks ...Hook) {
	rt.onStop = append(rt.onStop, hooks...)
}

// Shutdown tears down the runtime: stop hooks first, then the default
// schedulers, then the telemetry providers, all within the graceful
// timeout. The first error is returned but teardown always continues.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, rt.gracefulTimeout)
	defer cancel()

	var firstErr error
	if err := runHooks(ctx, rt.onStop); err != nil {
		rt.Logger.WithComponent("bootstrap").Error("stop hook failed", logger.ErrorFields("shutdown", err))
		firstErr = err
	}

	scheduler.Shutdown()

	if rt.tracerProvider != nil {
		if err := rt.tracerProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("tracer shutdown: %w", err)
		}
	}
	if rt.meterProvider != nil {
		if err := rt.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("meter shutdown: %w", err)
		}
	}

	rt.Logger.WithComponent("bootstrap").Info("streamkit shut down")
	return firstErr
}

// Hook is a lifecycle callback run during shutdown.
type Hook func(ctx context.Context) error

// runHooks executes hooks sequentially, returning the first error.
func runHooks(ctx context.Context, hooks []Hook) error {
	for i, h := range hooks {
		if err := h(ctx); err != nil {
			return fmt.Errorf("hook %d failed: %w", i, err)
		}
	}
	return nil
}

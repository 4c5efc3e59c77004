package bootstrap

import (
	"time"

	"github.com/kbukum/streamkit/config"
	"github.com/kbukum/streamkit/logger"
	"github.com/kbukum/streamkit/observability"
)

// Option configures Init.
type Option func(*initOptions)

// initOptions collects all option values before applying to the Runtime.
type initOptions struct {
	cfg             *config.Config
	loaderOpts      []config.LoaderOption
	logger          *logger.Logger
	tracing         *observability.TracerConfig
	metrics         *observability.MeterConfig
	gracefulTimeout *time.Duration
}

// resolveOptions applies all options and returns the collected values.
func resolveOptions(opts []Option) *initOptions {
	o := &initOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithConfig bypasses config loading and uses cfg directly. The caller
// is responsible for defaults and validation.
func WithConfig(cfg *config.Config) Option {
	return func(o *initOptions) { o.cfg = cfg }
}

// WithLoaderOptions forwards options to config.Load.
func WithLoaderOptions(opts ...config.LoaderOption) Option {
	return func(o *initOptions) { o.loaderOpts = append(o.loaderOpts, opts...) }
}

// WithLogger sets a custom logger. Without it, the global logger is
// initialized from the loaded logging configuration.
func WithLogger(l *logger.Logger) Option {
	return func(o *initOptions) { o.logger = l }
}

// WithTracing enables the OpenTelemetry tracer provider.
func WithTracing(cfg observability.TracerConfig) Option {
	return func(o *initOptions) { o.tracing = &cfg }
}

// WithMetrics enables the OpenTelemetry meter provider.
func WithMetrics(cfg observability.MeterConfig) Option {
	return func(o *initOptions) { o.metrics = &cfg }
}

// WithGracefulTimeout caps how long Shutdown may take.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *initOptions) { o.gracefulTimeout = &d }
}

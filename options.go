package keen

import (
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/cualquiercosa327/libkeen/cache"
	"github.com/cualquiercosa327/libkeen/ext"
	"github.com/cualquiercosa327/libkeen/middleware"
	"github.com/cualquiercosa327/libkeen/transport"
)

// scopeName is the instrumentation scope for metrics and traces emitted
// by the core.
const scopeName = "github.com/cualquiercosa327/libkeen"

// Option configures a Core.
type Option func(*Core) error

// WithConfig replaces the entire configuration.
func WithConfig(cfg Config) Option {
	return func(c *Core) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		c.config = cfg
		return nil
	}
}

// WithLogger sets the structured logger for the core.
func WithLogger(l *slog.Logger) Option {
	return func(c *Core) error {
		c.logger = l
		return nil
	}
}

// WithTransport sets the sender used for deliveries. The default is an
// HTTP sender.
func WithTransport(s transport.Sender) Option {
	return func(c *Core) error {
		c.sender = s
		return nil
	}
}

// WithRetryStore sets the retry cache backend. The default is an
// in-process store; pass a redis or bun backed store for durability
// across restarts. The caller keeps ownership of stores it supplies:
// Close will not close them.
func WithRetryStore(s cache.Store) Option {
	return func(c *Core) error {
		c.store = s
		c.ownsStore = false
		return nil
	}
}

// WithWorkers sets the delivery worker count. Zero selects the hardware
// parallelism of the host.
func WithWorkers(n int) Option {
	return func(c *Core) error {
		c.config.Workers = n
		return nil
	}
}

// WithExtension registers a lifecycle extension.
func WithExtension(e ext.Extension) Option {
	return func(c *Core) error {
		c.extensions = append(c.extensions, e)
		return nil
	}
}

// WithMiddleware appends delivery middleware. Middleware runs in
// registration order around every send, inside the built-in recovery
// and timeout layers.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(c *Core) error {
		c.middlewares = append(c.middlewares, mws...)
		return nil
	}
}

// WithMeterProvider records per-delivery metrics through the given
// provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *Core) error {
		c.middlewares = append(c.middlewares, middleware.MetricsWithMeter(mp.Meter(scopeName)))
		return nil
	}
}

// WithTracerProvider traces every delivery send through the given
// provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Core) error {
		c.middlewares = append(c.middlewares, middleware.TracingWithTracer(tp.Tracer(scopeName)))
		return nil
	}
}

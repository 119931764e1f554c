// Package observability provides a ready-made metrics extension that
// counts delivery lifecycle events through OpenTelemetry. Register it
// with the core to track posted, delivered, failed, cached, and
// replayed events without writing a custom extension.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/cualquiercosa327/libkeen/ext"
	"github.com/cualquiercosa327/libkeen/task"
)

// meterName is the instrumentation scope for lifecycle metrics.
const meterName = "github.com/cualquiercosa327/libkeen/observability"

// Compile-time interface checks.
var (
	_ ext.Extension         = (*MetricsExtension)(nil)
	_ ext.EventPosted       = (*MetricsExtension)(nil)
	_ ext.DeliverySucceeded = (*MetricsExtension)(nil)
	_ ext.DeliveryFailed    = (*MetricsExtension)(nil)
	_ ext.EventCached       = (*MetricsExtension)(nil)
	_ ext.CacheReplayed     = (*MetricsExtension)(nil)
	_ ext.CacheFlushed      = (*MetricsExtension)(nil)
)

// MetricsExtension records system-wide lifecycle counters. All
// instruments degrade to noops when no MeterProvider is configured.
type MetricsExtension struct {
	eventsPosted       metric.Int64Counter
	deliverySucceeded  metric.Int64Counter
	deliveryFailed     metric.Int64Counter
	eventsCached       metric.Int64Counter
	cacheReplayed      metric.Int64Counter
	cacheEntriesPopped metric.Int64Counter
}

// NewMetricsExtension creates a MetricsExtension on the global
// MeterProvider.
func NewMetricsExtension() *MetricsExtension {
	return NewMetricsExtensionWithMeter(otel.Meter(meterName))
}

// NewMetricsExtensionWithMeter creates a MetricsExtension with the
// provided meter. This variant allows injecting a specific
// MeterProvider for testing.
func NewMetricsExtensionWithMeter(meter metric.Meter) *MetricsExtension {
	m := &MetricsExtension{}

	// On error the OTel API returns noop instruments, so the extension
	// degrades gracefully.
	m.eventsPosted, _ = meter.Int64Counter("keen.events.posted",
		metric.WithDescription("Events accepted for dispatch"),
		metric.WithUnit("{event}"),
	)
	m.deliverySucceeded, _ = meter.Int64Counter("keen.delivery.succeeded",
		metric.WithDescription("Events accepted by the collector"),
		metric.WithUnit("{event}"),
	)
	m.deliveryFailed, _ = meter.Int64Counter("keen.delivery.failed",
		metric.WithDescription("Send attempts rejected or errored"),
		metric.WithUnit("{attempt}"),
	)
	m.eventsCached, _ = meter.Int64Counter("keen.events.cached",
		metric.WithDescription("Events diverted into the retry cache"),
		metric.WithUnit("{event}"),
	)
	m.cacheReplayed, _ = meter.Int64Counter("keen.cache.replayed",
		metric.WithDescription("Cached events successfully re-delivered"),
		metric.WithUnit("{event}"),
	)
	m.cacheEntriesPopped, _ = meter.Int64Counter("keen.cache.popped",
		metric.WithDescription("Entries read from the retry cache by flush cycles"),
		metric.WithUnit("{entry}"),
	)

	return m
}

// Name implements ext.Extension.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnEventPosted implements ext.EventPosted.
func (m *MetricsExtension) OnEventPosted(ctx context.Context, _ *task.Task) error {
	m.eventsPosted.Add(ctx, 1)
	return nil
}

// OnDeliverySucceeded implements ext.DeliverySucceeded.
func (m *MetricsExtension) OnDeliverySucceeded(ctx context.Context, _ *task.Task, _ time.Duration) error {
	m.deliverySucceeded.Add(ctx, 1)
	return nil
}

// OnDeliveryFailed implements ext.DeliveryFailed.
func (m *MetricsExtension) OnDeliveryFailed(ctx context.Context, _ *task.Task, _ error) error {
	m.deliveryFailed.Add(ctx, 1)
	return nil
}

// OnEventCached implements ext.EventCached.
func (m *MetricsExtension) OnEventCached(ctx context.Context, _ *task.Task) error {
	m.eventsCached.Add(ctx, 1)
	return nil
}

// OnCacheReplayed implements ext.CacheReplayed.
func (m *MetricsExtension) OnCacheReplayed(ctx context.Context, _ *task.Task) error {
	m.cacheReplayed.Add(ctx, 1)
	return nil
}

// OnCacheFlushed implements ext.CacheFlushed.
func (m *MetricsExtension) OnCacheFlushed(ctx context.Context, popped int) error {
	m.cacheEntriesPopped.Add(ctx, int64(popped))
	return nil
}

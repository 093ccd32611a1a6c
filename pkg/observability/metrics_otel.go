package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics records the same measurements as Metrics through the global
// OpenTelemetry meter provider
type OTelMetrics struct {
	bridgeCalls     metric.Int64Counter
	bridgeDuration  metric.Float64Histogram
	pluginLoads     metric.Int64Counter
	pluginDuration  metric.Float64Histogram
	resolverFetches metric.Int64Counter
	resolverBytes   metric.Int64Counter
	resolves        metric.Int64Counter
	resolveDuration metric.Float64Histogram
	eventsFired     metric.Int64Counter
	eventDuration   metric.Float64Histogram
}

// NewOTelMetrics creates a new OTel metrics instance
func NewOTelMetrics() (*OTelMetrics, error) {
	return newOTelMetrics(otel.Meter("github.com/platinummonkey/patchbridge"))
}

func newOTelMetrics(meter metric.Meter) (*OTelMetrics, error) {
	m := &OTelMetrics{}
	var err error

	m.bridgeCalls, err = meter.Int64Counter(
		"patchbridge.bridge.calls",
		metric.WithDescription("Total number of calls into the native core"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge calls counter: %w", err)
	}

	m.bridgeDuration, err = meter.Float64Histogram(
		"patchbridge.bridge.duration",
		metric.WithDescription("Duration of calls into the native core"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bridge duration histogram: %w", err)
	}

	m.pluginLoads, err = meter.Int64Counter(
		"patchbridge.plugin.loads",
		metric.WithDescription("Total number of plugin instantiations"),
		metric.WithUnit("{plugin}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin loads counter: %w", err)
	}

	m.pluginDuration, err = meter.Float64Histogram(
		"patchbridge.plugin.load.duration",
		metric.WithDescription("Plugin instantiation duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create plugin duration histogram: %w", err)
	}

	m.resolverFetches, err = meter.Int64Counter(
		"patchbridge.resolver.fetches",
		metric.WithDescription("Total number of library files fetched"),
		metric.WithUnit("{file}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver fetches counter: %w", err)
	}

	m.resolverBytes, err = meter.Int64Counter(
		"patchbridge.resolver.bytes",
		metric.WithDescription("Bytes downloaded from repositories"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolver bytes counter: %w", err)
	}

	m.resolves, err = meter.Int64Counter(
		"patchbridge.resolver.coordinates",
		metric.WithDescription("Total number of coordinates resolved"),
		metric.WithUnit("{coordinate}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolves counter: %w", err)
	}

	m.resolveDuration, err = meter.Float64Histogram(
		"patchbridge.resolver.duration",
		metric.WithDescription("Coordinate resolution duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resolve duration histogram: %w", err)
	}

	m.eventsFired, err = meter.Int64Counter(
		"patchbridge.events.fired",
		metric.WithDescription("Total number of events fired by the native core"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create events counter: %w", err)
	}

	m.eventDuration, err = meter.Float64Histogram(
		"patchbridge.events.duration",
		metric.WithDescription("Time spent running listeners for one event"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create event duration histogram: %w", err)
	}

	return m, nil
}

// ObserveCall records one downcall
func (m *OTelMetrics) ObserveCall(op, outcome string, elapsed time.Duration) {
	ctx := context.Background()
	m.bridgeCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("bridge.op", op),
		attribute.String("outcome", outcome),
	))
	m.bridgeDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("bridge.op", op)))
}

// ObserveLoad records one plugin instantiation
func (m *OTelMetrics) ObserveLoad(source, outcome string, elapsed time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("plugin.source", source),
		attribute.String("outcome", outcome),
	)
	m.pluginLoads.Add(ctx, 1, attrs)
	m.pluginDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// ObserveFetch records one library file served from source
func (m *OTelMetrics) ObserveFetch(source string, bytes int64) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("resolver.source", source))
	m.resolverFetches.Add(ctx, 1, attrs)
	if bytes > 0 {
		m.resolverBytes.Add(ctx, bytes, attrs)
	}
}

// ObserveResolve records one coordinate resolution
func (m *OTelMetrics) ObserveResolve(outcome string, elapsed time.Duration) {
	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.resolves.Add(ctx, 1, attrs)
	m.resolveDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// ObserveFire records one fired event
func (m *OTelMetrics) ObserveFire(eventType, outcome string, listeners int, elapsed time.Duration) {
	ctx := context.Background()
	m.eventsFired.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event.type", eventType),
		attribute.String("outcome", outcome),
		attribute.Int("event.listeners", listeners),
	))
	m.eventDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("event.type", eventType)))
}

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ProviderMetrics holds instruments for condition and directions provider calls.
type ProviderMetrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	cacheHit        metric.Int64Counter
	cacheMiss       metric.Int64Counter
	staleServed     metric.Int64Counter
}

// NewProviderMetrics creates the provider instruments on the global meter.
func NewProviderMetrics() (*ProviderMetrics, error) {
	meter := otel.Meter(InstrumentationName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds, retries included"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	cacheHit, err := meter.Int64Counter(
		"provider.cache.hit",
		metric.WithDescription("Number of provider cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}

	cacheMiss, err := meter.Int64Counter(
		"provider.cache.miss",
		metric.WithDescription("Number of provider cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}

	staleServed, err := meter.Int64Counter(
		"provider.cache.stale_served",
		metric.WithDescription("Number of stale cache entries served after a provider error"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &ProviderMetrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHit:        cacheHit,
		cacheMiss:       cacheMiss,
		staleServed:     staleServed,
	}, nil
}

func providerAttrs(provider, kind string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.kind", kind),
	}
}

// RecordRequest records a provider request. A nil receiver is a no-op.
func (m *ProviderMetrics) RecordRequest(provider, kind string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := providerAttrs(provider, kind)
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Recorded on a fresh context so caller cancellation does not drop the sample.
	ctx := context.Background()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordCacheHit records a cache hit.
func (m *ProviderMetrics) RecordCacheHit(provider, kind string) {
	if m == nil {
		return
	}
	m.cacheHit.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, kind)...))
}

// RecordCacheMiss records a cache miss.
func (m *ProviderMetrics) RecordCacheMiss(provider, kind string) {
	if m == nil {
		return
	}
	m.cacheMiss.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, kind)...))
}

// RecordStaleServed records a stale entry returned in place of a failed fetch.
func (m *ProviderMetrics) RecordStaleServed(provider, kind string) {
	if m == nil {
		return
	}
	m.staleServed.Add(context.Background(), 1, metric.WithAttributes(providerAttrs(provider, kind)...))
}

// EngineMetrics holds instruments for route engine operations.
type EngineMetrics struct {
	operationDuration metric.Float64Histogram
	rerouteDecisions  metric.Int64Counter
	degradedResults   metric.Int64Counter
}

// NewEngineMetrics creates the engine instruments on the global meter.
func NewEngineMetrics() (*EngineMetrics, error) {
	meter := otel.Meter(InstrumentationName)

	operationDuration, err := meter.Float64Histogram(
		"engine.operation.duration",
		metric.WithDescription("Duration of route engine operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	rerouteDecisions, err := meter.Int64Counter(
		"engine.reroute.decisions",
		metric.WithDescription("Reroute decisions by outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	degradedResults, err := meter.Int64Counter(
		"engine.degraded.results",
		metric.WithDescription("Optimizations returned with missing provider data"),
		metric.WithUnit("{result}"),
	)
	if err != nil {
		return nil, err
	}

	return &EngineMetrics{
		operationDuration: operationDuration,
		rerouteDecisions:  rerouteDecisions,
		degradedResults:   degradedResults,
	}, nil
}

// RecordOperation records the duration of an engine operation. A nil receiver is a no-op.
func (m *EngineMetrics) RecordOperation(ctx context.Context, operation string, duration time.Duration) {
	if m == nil {
		return
	}
	m.operationDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(attribute.String("engine.operation", operation)))
}

// RecordRerouteDecision counts a reroute decision.
func (m *EngineMetrics) RecordRerouteDecision(ctx context.Context, reroute bool, reasons []string) {
	if m == nil {
		return
	}
	m.rerouteDecisions.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("reroute", reroute),
		attribute.StringSlice("reasons", reasons),
	))
}

// RecordDegraded counts an optimization that lacked provider data.
func (m *EngineMetrics) RecordDegraded(ctx context.Context, missing int) {
	if m == nil {
		return
	}
	m.degradedResults.Add(ctx, 1, metric.WithAttributes(attribute.Int("missing_providers", missing)))
}

// Package observe provides the observability primitives of the dictation
// service: OpenTelemetry metrics, tracing, trace-aware logging, and the HTTP
// middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed for
// scraping through the Prometheus exporter bridge set up by [InitProvider].
// A package-level [DefaultMetrics] instance is available; tests should use
// [NewMetrics] with their own [metric.MeterProvider] to avoid cross-test
// pollution.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/diktat"

// Metrics holds all metric instruments of the application. The OTel types
// handle their own synchronisation.
type Metrics struct {
	// AlignDuration tracks the time one alignment takes. Attribute: origin.
	AlignDuration metric.Float64Histogram

	// AlignRequests counts alignments. Attribute: origin ("http",
	// "dictation", "cli").
	AlignRequests metric.Int64Counter

	// AlignSpans counts produced spans. Attributes: kind, rule.
	AlignSpans metric.Int64Counter

	// LessonFetches counts lesson document lookups. Attributes: source,
	// status, cache ("hit" or "miss").
	LessonFetches metric.Int64Counter

	// AttemptsSaved counts persisted attempts. Attributes: backend, status.
	AttemptsSaved metric.Int64Counter

	// ActiveDictations tracks open live dictation sessions.
	ActiveDictations metric.Int64UpDownCounter

	// HTTPRequestDuration tracks HTTP request processing time. Attributes:
	// method, route.
	HTTPRequestDuration metric.Float64Histogram
}

// alignBuckets are histogram boundaries in seconds. A dictation sentence
// aligns in well under a millisecond; long documents take longer.
var alignBuckets = []float64{
	0.00005, 0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05, 0.25,
}

// httpBuckets are histogram boundaries in seconds for request latency.
var httpBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10,
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.AlignDuration, err = m.Float64Histogram("diktat.align.duration",
		metric.WithDescription("Latency of one transcript/sentence alignment."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(alignBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AlignRequests, err = m.Int64Counter("diktat.align.requests",
		metric.WithDescription("Total alignments by origin."),
	); err != nil {
		return nil, err
	}
	if met.AlignSpans, err = m.Int64Counter("diktat.align.spans",
		metric.WithDescription("Total alignment spans by kind and rule."),
	); err != nil {
		return nil, err
	}
	if met.LessonFetches, err = m.Int64Counter("diktat.lesson.fetches",
		metric.WithDescription("Total lesson document lookups by source, status and cache outcome."),
	); err != nil {
		return nil, err
	}
	if met.AttemptsSaved, err = m.Int64Counter("diktat.attempts.saved",
		metric.WithDescription("Total persisted dictation attempts by backend and status."),
	); err != nil {
		return nil, err
	}
	if met.ActiveDictations, err = m.Int64UpDownCounter("diktat.active_dictations",
		metric.WithDescription("Number of open live dictation sessions."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("diktat.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(httpBuckets...),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics], creating it on first
// call from [otel.GetMeterProvider]. Call it only after [InitProvider] so the
// instruments bind to the exporting provider.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAlignment records one alignment of the given origin.
func (m *Metrics) RecordAlignment(ctx context.Context, origin string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("origin", origin))
	m.AlignRequests.Add(ctx, 1, attrs)
	m.AlignDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordSpans adds n spans of the given kind and rule.
func (m *Metrics) RecordSpans(ctx context.Context, kind, rule string, n int64) {
	if n == 0 {
		return
	}
	m.AlignSpans.Add(ctx, n,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("rule", rule),
		),
	)
}

// RecordLessonFetch records one lesson document lookup.
func (m *Metrics) RecordLessonFetch(ctx context.Context, source, status string, cached bool) {
	cache := "miss"
	if cached {
		cache = "hit"
	}
	m.LessonFetches.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("status", status),
			attribute.String("cache", cache),
		),
	)
}

// RecordAttemptSaved records one attempt persistence outcome.
func (m *Metrics) RecordAttemptSaved(ctx context.Context, backend, status string) {
	m.AttemptsSaved.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("status", status),
		),
	)
}

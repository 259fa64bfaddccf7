// Package observe provides application-wide observability primitives for
// SpeakTrainer: OpenTelemetry metrics, distributed tracing, trace-aware
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API and exposed for
// Prometheus scraping by [InitProvider] and [MetricsHandler]. Tests should use
// [NewMetrics] with their own [metric.MeterProvider] rather than
// [DefaultMetrics].
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all SpeakTrainer metrics.
const meterName = "github.com/MrWong99/speaktrainer"

// Provider kinds used as the "kind" attribute.
const (
	KindSTT        = "stt"
	KindPhonemizer = "phonemizer"
	KindRemote     = "remote"
)

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use.
type Metrics struct {
	// --- Latency histograms per analysis stage ---

	// AnalysisDuration tracks the full analysis of one recording.
	AnalysisDuration metric.Float64Histogram

	// STTDuration tracks speech-to-text transcription latency.
	STTDuration metric.Float64Histogram

	// PhonemizeDuration tracks grapheme-to-phoneme conversion latency.
	PhonemizeDuration metric.Float64Histogram

	// AlignmentDuration tracks the phoneme comparison itself.
	AlignmentDuration metric.Float64Histogram

	// RemoteDuration tracks requests to a remote analysis service. Use with
	// attributes: attribute.String("provider", ...)
	RemoteDuration metric.Float64Histogram

	// --- Results ---

	// Scores records pronunciation scores (0–100).
	Scores metric.Int64Histogram

	// --- Counters ---

	// ProviderRequests counts provider calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...)
	ProviderErrors metric.Int64Counter

	// CircuitTransitions counts circuit breaker state changes. Use with
	// attributes: attribute.String("provider", ...), attribute.String("kind", ...),
	// attribute.String("to", ...)
	CircuitTransitions metric.Int64Counter

	// --- Gauges ---

	// ActiveAnalyses tracks the number of analyses currently running.
	ActiveAnalyses metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("route", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Cloud and
// local transcription of a short sentence take between a few hundred
// milliseconds and several seconds.
var latencyBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

var scoreBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	met := &Metrics{}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&met.AnalysisDuration, "speaktrainer.analysis.duration", "Latency of a complete pronunciation analysis."},
		{&met.STTDuration, "speaktrainer.stt.duration", "Latency of speech-to-text transcription."},
		{&met.PhonemizeDuration, "speaktrainer.phonemize.duration", "Latency of text-to-phoneme conversion."},
		{&met.AlignmentDuration, "speaktrainer.alignment.duration", "Latency of phoneme alignment and scoring."},
		{&met.RemoteDuration, "speaktrainer.remote.duration", "Latency of requests to a remote analysis service."},
	}
	for _, h := range histograms {
		var err error
		if *h.dst, err = m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		); err != nil {
			return nil, err
		}
	}

	var err error
	if met.Scores, err = m.Int64Histogram("speaktrainer.analysis.score",
		metric.WithDescription("Pronunciation scores by language."),
		metric.WithUnit("%"),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("speaktrainer.provider.requests",
		metric.WithDescription("Total provider requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("speaktrainer.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.CircuitTransitions, err = m.Int64Counter("speaktrainer.provider.circuit_transitions",
		metric.WithDescription("Circuit breaker state changes by provider, kind, and target state."),
	); err != nil {
		return nil, err
	}
	if met.ActiveAnalyses, err = m.Int64UpDownCounter("speaktrainer.active_analyses",
		metric.WithDescription("Number of analyses currently in progress."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("speaktrainer.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Panics if instrument creation
// fails.
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

// Attr is a convenience alias for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordProviderRequest counts one provider call with its outcome.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError counts one provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordCircuitTransition counts one breaker state change of provider into
// state to.
func (m *Metrics) RecordCircuitTransition(ctx context.Context, provider, kind, to string) {
	m.CircuitTransitions.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("to", to),
		),
	)
}

// ObserveProvider records the request counter, the error counter on failure,
// and the stage latency in h since start. It returns err unchanged so it can
// wrap a return statement.
func (m *Metrics) ObserveProvider(ctx context.Context, h metric.Float64Histogram, provider, kind string, start time.Time, err error) error {
	h.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(attribute.String("provider", provider)))
	status := "ok"
	if err != nil {
		status = "error"
		m.RecordProviderError(ctx, provider, kind)
	}
	m.RecordProviderRequest(ctx, provider, kind, status)
	return err
}

// RecordScore records one pronunciation score.
func (m *Metrics) RecordScore(ctx context.Context, score int, language string) {
	m.Scores.Record(ctx, int64(score),
		metric.WithAttributes(attribute.String("language", language)))
}

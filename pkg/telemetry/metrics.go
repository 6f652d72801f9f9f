package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Outcome classifies how a chain evaluation finished.
type Outcome string

const (
	// OutcomeSuccess indicates the evaluation produced a response.
	OutcomeSuccess Outcome = "success"
	// OutcomeError indicates a handler returned an error.
	OutcomeError Outcome = "error"
	// OutcomeDenied indicates a governance handler rejected the request.
	OutcomeDenied Outcome = "denied"
	// OutcomeThrottled indicates the request was rate limited.
	OutcomeThrottled Outcome = "throttled"
)

var (
	metricsOnce         sync.Once
	metricsInitErr      error
	evaluationCounter   metric.Int64Counter
	deniedCounter       metric.Int64Counter
	throttledCounter    metric.Int64Counter
	evaluationHistogram metric.Float64Histogram
)

// EvaluationMetrics captures the fields recorded for one chain evaluation.
type EvaluationMetrics struct {
	Chain    string
	Status   int
	Outcome  Outcome
	Duration time.Duration
}

// RecordEvaluation emits the counters and histogram describing one
// evaluation. Recording is best-effort: instrument setup failures are
// swallowed so telemetry can never fail a request.
func RecordEvaluation(ctx context.Context, m EvaluationMetrics) {
	if err := ensureMetrics(); err != nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("chain.name", m.Chain),
		attribute.Int("http.status_code", m.Status),
		attribute.String("chain.outcome", string(m.Outcome)),
	}

	evaluationCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	if m.Duration > 0 {
		evaluationHistogram.Record(ctx, float64(m.Duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}

	switch m.Outcome {
	case OutcomeDenied:
		deniedCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	case OutcomeThrottled:
		throttledCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("relay.chain")

		evaluationCounter, metricsInitErr = meter.Int64Counter(
			"relay.chain.evaluations_total",
			metric.WithDescription("Chain evaluations partitioned by outcome"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		deniedCounter, metricsInitErr = meter.Int64Counter(
			"relay.chain.denied_total",
			metric.WithDescription("Evaluations rejected by governance handlers"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		throttledCounter, metricsInitErr = meter.Int64Counter(
			"relay.chain.throttled_total",
			metric.WithDescription("Evaluations rejected by rate limiting"),
			metric.WithUnit("{count}"),
		)
		if metricsInitErr != nil {
			return
		}

		evaluationHistogram, metricsInitErr = meter.Float64Histogram(
			"relay.chain.duration_ms",
			metric.WithDescription("Observed chain evaluation latency"),
			metric.WithUnit("ms"),
		)
	})

	return metricsInitErr
}

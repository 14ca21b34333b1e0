package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ResolutionMetrics holds metric instruments for credential resolution.
// Initialize once at server startup and share across requests.
type ResolutionMetrics struct {
	Attempts metric.Int64Counter     // Total resolve calls
	Failures metric.Int64Counter     // Resolve calls ending in an AuthError
	Duration metric.Float64Histogram // Resolve latency
	Writes   metric.Int64Counter     // Principal inserts, backfills and role corrections
}

// NewResolutionMetrics creates instruments on the global meter provider.
// With no provider configured the instruments are no-ops.
func NewResolutionMetrics() (*ResolutionMetrics, error) {
	meter := otel.Meter("shieldapi/identity")

	attempts, err := meter.Int64Counter(
		"auth.attempt.count",
		metric.WithDescription("Total number of credential resolution attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter(
		"auth.failure.count",
		metric.WithDescription("Total number of failed credential resolutions"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"auth.duration",
		metric.WithDescription("Credential resolution duration"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000),
	)
	if err != nil {
		return nil, err
	}

	writes, err := meter.Int64Counter(
		"auth.principal.write.count",
		metric.WithDescription("Principal writes performed during resolution"),
		metric.WithUnit("{write}"),
	)
	if err != nil {
		return nil, err
	}

	return &ResolutionMetrics{
		Attempts: attempts,
		Failures: failures,
		Duration: duration,
		Writes:   writes,
	}, nil
}

// RecordResolve records one resolve call. source is the provider that
// verified the credential, or "none"; outcome is "resolved" or the error kind.
func (m *ResolutionMetrics) RecordResolve(ctx context.Context, source, outcome string, durationMs float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String(AttrProviderSource, source),
		attribute.String(AttrProviderOutcome, outcome),
	)

	m.Attempts.Add(ctx, 1, attrs)
	m.Duration.Record(ctx, durationMs, attrs)
	if outcome != "resolved" {
		m.Failures.Add(ctx, 1, attrs)
	}
}

// RecordWrite records a principal write of the given kind
// (insert, backfill, role) and whether it succeeded.
func (m *ResolutionMetrics) RecordWrite(ctx context.Context, kind string, err error) {
	if m == nil {
		return
	}
	m.Writes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("write.kind", kind),
		attribute.Bool("write.success", err == nil),
	))
}

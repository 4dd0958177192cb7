package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics instruments the liquidation pipeline's hot path with OpenTelemetry:
// how long evaluation and submission take, and how opportunities resolve
// (submitted, skipped, reverted).
type Metrics struct {
	evaluationLatency metric.Float64Histogram
	submissionLatency metric.Float64Histogram
	opportunities     metric.Int64Counter
	rbfBumps          metric.Int64Counter
}

// NewMetrics creates a new OpenTelemetry metrics recorder.
// meterName should typically be the package name or service name.
func NewMetrics(meterName string) (*Metrics, error) {
	meter := otel.Meter(meterName)

	evalLatency, err := meter.Float64Histogram(
		"opportunity_evaluation_duration_seconds",
		metric.WithDescription("Time taken to evaluate one liquidation target"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create opportunity_evaluation_duration_seconds histogram: %w", err)
	}

	subLatency, err := meter.Float64Histogram(
		"tx_submission_duration_seconds",
		metric.WithDescription("Time from first submission to receipt"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tx_submission_duration_seconds histogram: %w", err)
	}

	opportunities, err := meter.Int64Counter(
		"opportunities_total",
		metric.WithDescription("Liquidation targets evaluated, labeled by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create opportunities_total counter: %w", err)
	}

	rbfBumps, err := meter.Int64Counter(
		"tx_rbf_bumps_total",
		metric.WithDescription("Replace-by-fee resubmissions issued"),
	)
	if err != nil {
		return nil, fmt.Errorf("create tx_rbf_bumps_total counter: %w", err)
	}

	return &Metrics{
		evaluationLatency: evalLatency,
		submissionLatency: subLatency,
		opportunities:     opportunities,
		rbfBumps:          rbfBumps,
	}, nil
}

// RecordEvaluation records how long one Opportunity Evaluator pass took.
func (m *Metrics) RecordEvaluation(ctx context.Context, duration time.Duration, outcome string) {
	m.evaluationLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
	m.opportunities.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordSubmission records the time from first broadcast to a mined receipt.
func (m *Metrics) RecordSubmission(ctx context.Context, duration time.Duration, status string) {
	m.submissionLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}

// RecordRBFBump increments the replace-by-fee counter.
func (m *Metrics) RecordRBFBump(ctx context.Context) {
	m.rbfBumps.Add(ctx, 1)
}

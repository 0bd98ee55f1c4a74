// Package metricspkg records ledger operation metrics through the OpenTelemetry metric API.
package metricspkg

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	OperationsName = "ledger.operations"
	DurationName   = "ledger.operation.duration"
	RetriesName    = "ledger.retries"
)

// Recorder holds the ledger instruments. A nil *Recorder records nothing.
type Recorder struct {
	operations metric.Int64Counter
	duration   metric.Float64Histogram
	retries    metric.Int64Counter
}

// NewRecorder creates the ledger instruments on the given meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	operations, err := meter.Int64Counter(OperationsName,
		metric.WithDescription("Ledger operations by kind and outcome"),
		metric.WithUnit("{operation}"))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(DurationName,
		metric.WithDescription("Ledger operation latency including retries"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter(RetriesName,
		metric.WithDescription("Ledger attempts retried after a conflict or duplicate reference"),
		metric.WithUnit("{retry}"))
	if err != nil {
		return nil, err
	}

	return &Recorder{
		operations: operations,
		duration:   duration,
		retries:    retries,
	}, nil
}

// RecordOperation counts one finished operation and its latency.
func (r *Recorder) RecordOperation(ctx context.Context, kind, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	)

	r.operations.Add(ctx, 1, attrs)
	r.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordRetry counts one retried attempt.
func (r *Recorder) RecordRetry(ctx context.Context, kind, reason string) {
	if r == nil {
		return
	}

	r.retries.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("reason", reason),
	))
}

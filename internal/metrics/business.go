package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AccessMetrics defines the interface for recording access-control metrics.
// Implementations track validation and decision counts and durations across
// the front door's domains (introspection, authorization, revocation).
type AccessMetrics interface {
	// RecordOperation records an access-control operation with its outcome.
	// Domain examples: "introspection", "authorization", "revocation"
	// Operation examples: "token_validate", "policy_decide", "token_revoke"
	// Outcome examples: "allow", "deny", "invalid_token", "upstream_error"
	RecordOperation(ctx context.Context, domain, operation, outcome string)

	// RecordDuration records the duration of an access-control operation with
	// its outcome. Duration is recorded in seconds as a histogram for
	// percentile calculations.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, outcome string)
}

// accessMetrics implements AccessMetrics using OpenTelemetry metrics.
type accessMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
}

// NewAccessMetrics creates a new AccessMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names (e.g., "scimgate").
// Returns error if meters cannot be initialized.
func NewAccessMetrics(meterProvider metric.MeterProvider, namespace string) (AccessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	// Create counter for total operations
	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of access-control operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	// Create histogram for operation durations
	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of access-control operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	return &accessMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
	}, nil
}

// RecordOperation increments the operation counter with domain, operation, and outcome labels.
func (b *accessMetrics) RecordOperation(ctx context.Context, domain, operation, outcome string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordDuration records the operation duration in seconds with domain, operation, and outcome labels.
func (b *accessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	outcome string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("outcome", outcome),
		),
	)
}

// NoOpAccessMetrics is a no-op implementation of AccessMetrics for when metrics are disabled.
type NoOpAccessMetrics struct{}

// NewNoOpAccessMetrics creates a no-op AccessMetrics implementation.
func NewNoOpAccessMetrics() AccessMetrics {
	return &NoOpAccessMetrics{}
}

// RecordOperation does nothing when metrics are disabled.
func (n *NoOpAccessMetrics) RecordOperation(ctx context.Context, domain, operation, outcome string) {
	// No-op
}

// RecordDuration does nothing when metrics are disabled.
func (n *NoOpAccessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	outcome string,
) {
	// No-op
}

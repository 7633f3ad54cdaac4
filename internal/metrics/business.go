package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics records operation metrics for the audit chain, field encryption and key
// rotation domains.
type BusinessMetrics interface {
	// RecordOperation records a business operation with its status.
	// Domain examples: "audit", "rotation", "crypto"
	// Operation examples: "audit_append", "audit_verify", "rotation_rotate"
	// Status examples: "success", "error"
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the duration of a business operation with its status.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordDecryptFailure counts a field that decrypted to the placeholder.
	// Reason is one of "no_key_configured", "authentication_failed" or "malformed".
	RecordDecryptFailure(ctx context.Context, keyVersion, reason string)

	// RecordChainViolations counts integrity violations found by a verification run.
	RecordChainViolations(ctx context.Context, count int)

	// RecordRotatedRecords counts records processed by a rotation run for one table.
	// Outcome is one of "rotated", "skipped" or "failed".
	RecordRotatedRecords(ctx context.Context, table, outcome string, count int)
}

// businessMetrics implements BusinessMetrics using OpenTelemetry metrics.
type businessMetrics struct {
	operationCounter      metric.Int64Counter
	durationHisto         metric.Float64Histogram
	decryptFailureCounter metric.Int64Counter
	violationCounter      metric.Int64Counter
	rotationCounter       metric.Int64Counter
}

// NewBusinessMetrics creates a new BusinessMetrics implementation using the provided meter provider.
// The namespace parameter is used as a prefix for all metric names (e.g., "ledger").
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of business operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of business operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	decryptFailureCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_decrypt_failures_total", namespace),
		metric.WithDescription("Fields that could not be decrypted with any configured key"),
		metric.WithUnit("{field}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decrypt failure counter: %w", err)
	}

	violationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_audit_chain_violations_total", namespace),
		metric.WithDescription("Audit chain integrity violations detected"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create violation counter: %w", err)
	}

	rotationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_rotation_records_total", namespace),
		metric.WithDescription("Records processed by key rotation"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rotation counter: %w", err)
	}

	return &businessMetrics{
		operationCounter:      operationCounter,
		durationHisto:         durationHisto,
		decryptFailureCounter: decryptFailureCounter,
		violationCounter:      violationCounter,
		rotationCounter:       rotationCounter,
	}, nil
}

// RecordOperation increments the operation counter with domain, operation, and status labels.
func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordDuration records the operation duration in seconds with domain, operation, and status labels.
func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordDecryptFailure(ctx context.Context, keyVersion, reason string) {
	b.decryptFailureCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("key_version", keyVersion),
			attribute.String("reason", reason),
		),
	)
}

func (b *businessMetrics) RecordChainViolations(ctx context.Context, count int) {
	if count <= 0 {
		return
	}
	b.violationCounter.Add(ctx, int64(count))
}

func (b *businessMetrics) RecordRotatedRecords(ctx context.Context, table, outcome string, count int) {
	if count <= 0 {
		return
	}
	b.rotationCounter.Add(ctx, int64(count),
		metric.WithAttributes(
			attribute.String("table", table),
			attribute.String("outcome", outcome),
		),
	)
}

// NoOpBusinessMetrics is a no-op implementation of BusinessMetrics for when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

// RecordOperation does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
}

// RecordDuration does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
}

// RecordDecryptFailure does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordDecryptFailure(ctx context.Context, keyVersion, reason string) {}

// RecordChainViolations does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordChainViolations(ctx context.Context, count int) {}

// RecordRotatedRecords does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordRotatedRecords(ctx context.Context, table, outcome string, count int) {
}

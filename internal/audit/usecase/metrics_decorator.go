package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/metrics"
)

const metricsDomain = "audit"

// auditChainUseCaseWithMetrics decorates AuditChainUseCase with metrics instrumentation.
type auditChainUseCaseWithMetrics struct {
	next    AuditChainUseCase
	metrics metrics.BusinessMetrics
}

// NewAuditChainUseCaseWithMetrics wraps an AuditChainUseCase with metrics recording.
func NewAuditChainUseCaseWithMetrics(useCase AuditChainUseCase, m metrics.BusinessMetrics) AuditChainUseCase {
	return &auditChainUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (a *auditChainUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	a.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	a.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Append records metrics for audit append operations.
func (a *auditChainUseCaseWithMetrics) Append(
	ctx context.Context,
	input *AppendInput,
) (*auditDomain.Entry, error) {
	start := time.Now()
	entry, err := a.next.Append(ctx, input)
	a.record(ctx, "audit_append", start, err)
	return entry, err
}

// Delete records metrics for rejected deletions.
func (a *auditChainUseCaseWithMetrics) Delete(ctx context.Context, organizationID string, id uuid.UUID) error {
	start := time.Now()
	err := a.next.Delete(ctx, organizationID, id)
	a.record(ctx, "audit_delete", start, err)
	return err
}

// BulkDelete records metrics for rejected bulk deletions.
func (a *auditChainUseCaseWithMetrics) BulkDelete(
	ctx context.Context,
	organizationID string,
	ids []uuid.UUID,
) error {
	start := time.Now()
	err := a.next.BulkDelete(ctx, organizationID, ids)
	a.record(ctx, "audit_bulk_delete", start, err)
	return err
}

// List records metrics for audit log listing.
func (a *auditChainUseCaseWithMetrics) List(
	ctx context.Context,
	filter auditDomain.ListFilter,
) (*auditDomain.ListResult, error) {
	start := time.Now()
	result, err := a.next.List(ctx, filter)
	a.record(ctx, "audit_list", start, err)
	return result, err
}

// Stats records metrics for audit statistics.
func (a *auditChainUseCaseWithMetrics) Stats(
	ctx context.Context,
	organizationID string,
	startTime, endTime int64,
) (*auditDomain.Stats, error) {
	start := time.Now()
	stats, err := a.next.Stats(ctx, organizationID, startTime, endTime)
	a.record(ctx, "audit_stats", start, err)
	return stats, err
}

// EntityHistory records metrics for entity history lookups.
func (a *auditChainUseCaseWithMetrics) EntityHistory(
	ctx context.Context,
	organizationID, entityType, entityID string,
	limit int,
) ([]*auditDomain.Entry, error) {
	start := time.Now()
	entries, err := a.next.EntityHistory(ctx, organizationID, entityType, entityID, limit)
	a.record(ctx, "audit_entity_history", start, err)
	return entries, err
}

// UserActivity records metrics for user activity lookups.
func (a *auditChainUseCaseWithMetrics) UserActivity(
	ctx context.Context,
	organizationID, userID string,
	limit int,
) ([]*auditDomain.Entry, error) {
	start := time.Now()
	entries, err := a.next.UserActivity(ctx, organizationID, userID, limit)
	a.record(ctx, "audit_user_activity", start, err)
	return entries, err
}

// integrityAuditorUseCaseWithMetrics decorates IntegrityAuditorUseCase with metrics instrumentation.
type integrityAuditorUseCaseWithMetrics struct {
	next    IntegrityAuditorUseCase
	metrics metrics.BusinessMetrics
}

// NewIntegrityAuditorUseCaseWithMetrics wraps an IntegrityAuditorUseCase with metrics recording.
func NewIntegrityAuditorUseCaseWithMetrics(
	useCase IntegrityAuditorUseCase,
	m metrics.BusinessMetrics,
) IntegrityAuditorUseCase {
	return &integrityAuditorUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Verify records metrics for single-chain verification.
func (i *integrityAuditorUseCaseWithMetrics) Verify(
	ctx context.Context,
	organizationID string,
	mode auditDomain.VerifyMode,
) (*auditDomain.VerificationReport, error) {
	start := time.Now()
	report, err := i.next.Verify(ctx, organizationID, mode)

	status := "success"
	if err != nil {
		status = "error"
	}

	i.metrics.RecordOperation(ctx, metricsDomain, "audit_verify", status)
	i.metrics.RecordDuration(ctx, metricsDomain, "audit_verify", time.Since(start), status)

	return report, err
}

// VerifyAll records metrics for whole-store verification.
func (i *integrityAuditorUseCaseWithMetrics) VerifyAll(
	ctx context.Context,
	mode auditDomain.VerifyMode,
) (*auditDomain.VerificationReport, error) {
	start := time.Now()
	report, err := i.next.VerifyAll(ctx, mode)

	status := "success"
	if err != nil {
		status = "error"
	}

	i.metrics.RecordOperation(ctx, metricsDomain, "audit_verify_all", status)
	i.metrics.RecordDuration(ctx, metricsDomain, "audit_verify_all", time.Since(start), status)

	return report, err
}

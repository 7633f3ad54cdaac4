package usecase

import (
	"context"
	"time"

	"github.com/kvhuynh79-oss/sda-management-sub004/internal/metrics"
	rotationDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/domain"
)

// keyRotationUseCaseWithMetrics decorates KeyRotationUseCase with metrics instrumentation.
type keyRotationUseCaseWithMetrics struct {
	next    KeyRotationUseCase
	metrics metrics.BusinessMetrics
}

// NewKeyRotationUseCaseWithMetrics wraps a KeyRotationUseCase with metrics recording.
func NewKeyRotationUseCaseWithMetrics(useCase KeyRotationUseCase, m metrics.BusinessMetrics) KeyRotationUseCase {
	return &keyRotationUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (k *keyRotationUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	k.metrics.RecordOperation(ctx, "rotation", operation, status)
	k.metrics.RecordDuration(ctx, "rotation", operation, time.Since(start), status)
}

// Rotate records metrics for key rotation runs.
func (k *keyRotationUseCaseWithMetrics) Rotate(
	ctx context.Context,
	tables ...string,
) (*rotationDomain.RotationResult, error) {
	start := time.Now()
	result, err := k.next.Rotate(ctx, tables...)
	k.record(ctx, "rotation_rotate", start, err)
	return result, err
}

// EncryptExisting records metrics for plaintext encryption runs.
func (k *keyRotationUseCaseWithMetrics) EncryptExisting(
	ctx context.Context,
	tables ...string,
) (*rotationDomain.RotationResult, error) {
	start := time.Now()
	result, err := k.next.EncryptExisting(ctx, tables...)
	k.record(ctx, "rotation_encrypt_existing", start, err)
	return result, err
}

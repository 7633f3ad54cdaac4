// Package usecase implements the audit chain: appending hash-linked entries, querying them and
// verifying chain integrity.
package usecase

import (
	"context"

	"github.com/google/uuid"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
)

// EntryRepository defines persistence operations for audit chain entries.
// Implementations must support transaction-aware operations via context propagation.
type EntryRepository interface {
	// Create stores a new entry. Returns ErrSequenceConflict when the organization already has
	// an entry with the same sequence number.
	Create(ctx context.Context, entry *auditDomain.Entry) error

	// LatestHead returns the organization's highest-sequence entry position, or nil when the
	// organization has no entries.
	LatestHead(ctx context.Context, organizationID string) (*auditDomain.ChainHead, error)

	// ListAscending returns up to limit entries with a sequence number greater than
	// afterSequence, in ascending sequence order.
	ListAscending(
		ctx context.Context,
		organizationID string,
		afterSequence int64,
		limit int,
	) ([]*auditDomain.Entry, error)

	// MarkVerified sets is_integrity_verified for the given entries. No other column changes.
	MarkVerified(ctx context.Context, ids []uuid.UUID) error

	// List returns entries matching filter, newest first.
	List(ctx context.Context, filter auditDomain.ListFilter) ([]*auditDomain.Entry, error)

	// Count returns the number of entries matching filter, ignoring Offset and Limit.
	Count(ctx context.Context, filter auditDomain.ListFilter) (int, error)

	// Stats counts an organization's entries by action, entity type and user email within
	// [start, end]. Zero bounds are open.
	Stats(ctx context.Context, organizationID string, start, end int64) (*auditDomain.Stats, error)

	// ListOrganizations returns every organization that has at least one entry.
	ListOrganizations(ctx context.Context) ([]string, error)
}

// AppendInput contains the caller-supplied fields of a new audit entry. Sequence number,
// hashes, timestamp and id are assigned by Append.
type AppendInput struct {
	OrganizationID string
	Actor          auditDomain.Actor
	Action         auditDomain.Action
	EntityType     string
	EntityID       string
	EntityName     string
	Changes        auditDomain.Diff
	PreviousValues auditDomain.Diff
	Metadata       auditDomain.Diff
}

// AuditChainUseCase appends to and reads from the per-organization audit chains.
type AuditChainUseCase interface {
	// Append links a new entry to the end of the organization's chain and persists it with
	// IsIntegrityVerified=false. Appends for one organization are linearized.
	Append(ctx context.Context, input *AppendInput) (*auditDomain.Entry, error)

	// Delete always fails with ErrImmutable.
	Delete(ctx context.Context, organizationID string, id uuid.UUID) error

	// BulkDelete always fails with ErrImmutable.
	BulkDelete(ctx context.Context, organizationID string, ids []uuid.UUID) error

	// List returns a page of entries matching filter, newest first.
	List(ctx context.Context, filter auditDomain.ListFilter) (*auditDomain.ListResult, error)

	// Stats counts entries in [start, end] by action, entity type and user.
	Stats(ctx context.Context, organizationID string, start, end int64) (*auditDomain.Stats, error)

	// EntityHistory returns the latest entries for one entity. A non-positive limit means 20.
	EntityHistory(
		ctx context.Context,
		organizationID, entityType, entityID string,
		limit int,
	) ([]*auditDomain.Entry, error)

	// UserActivity returns the latest entries by one user. A non-positive limit means 50.
	UserActivity(ctx context.Context, organizationID, userID string, limit int) ([]*auditDomain.Entry, error)
}

// IntegrityAuditorUseCase walks audit chains and reports integrity violations.
type IntegrityAuditorUseCase interface {
	// Verify walks one organization's chain in ascending order and marks entries without
	// violations as verified.
	Verify(
		ctx context.Context,
		organizationID string,
		mode auditDomain.VerifyMode,
	) (*auditDomain.VerificationReport, error)

	// VerifyAll runs Verify for every organization with entries and merges the reports.
	VerifyAll(ctx context.Context, mode auditDomain.VerifyMode) (*auditDomain.VerificationReport, error)
}

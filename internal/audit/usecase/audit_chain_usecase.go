package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
	auditService "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/service"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/database"
	apperrors "github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
	appValidation "github.com/kvhuynh79-oss/sda-management-sub004/internal/validation"
)

const (
	defaultEntityHistoryLimit = 20
	defaultUserActivityLimit  = 50
	maxQueryLimit             = 100

	appendMinBackoff = 2 * time.Millisecond
	appendMaxBackoff = 50 * time.Millisecond
)

// auditChainUseCase implements AuditChainUseCase.
type auditChainUseCase struct {
	txManager  database.TxManager
	entryRepo  EntryRepository
	hasher     auditService.ChainHasher
	locker     auditService.AppendLocker
	maxRetries int
	logger     *slog.Logger
}

// NewAuditChainUseCase creates an AuditChainUseCase. maxRetries bounds how many times Append
// retries after losing a sequence number race; values below 1 mean a single attempt.
func NewAuditChainUseCase(
	txManager database.TxManager,
	entryRepo EntryRepository,
	hasher auditService.ChainHasher,
	locker auditService.AppendLocker,
	maxRetries int,
	logger *slog.Logger,
) AuditChainUseCase {
	return &auditChainUseCase{
		txManager:  txManager,
		entryRepo:  entryRepo,
		hasher:     hasher,
		locker:     locker,
		maxRetries: max(maxRetries, 1),
		logger:     logger,
	}
}

// Append links a new entry to the organization's chain.
//
// The per-organization lock keeps concurrent appends from racing for the same sequence number.
// The storage uniqueness constraint is what guarantees the chain: if a writer outside the lock
// takes the sequence number first, the insert fails with ErrSequenceConflict and the append
// is retried against a fresh head.
func (a *auditChainUseCase) Append(ctx context.Context, input *AppendInput) (*auditDomain.Entry, error) {
	if err := validateAppendInput(input); err != nil {
		return nil, err
	}

	unlock, err := a.locker.Lock(ctx, input.OrganizationID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to acquire audit append lock")
	}
	defer unlock()

	backoff := appendMinBackoff
	for attempt := 1; ; attempt++ {
		entry, err := a.appendOnce(ctx, input)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, auditDomain.ErrSequenceConflict) || attempt >= a.maxRetries {
			return nil, err
		}

		a.logger.Debug("audit append lost sequence race, retrying",
			slog.String("organization_id", input.OrganizationID),
			slog.Int("attempt", attempt),
		)

		wait := backoff/2 + rand.N(backoff/2+1)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		backoff = min(backoff*2, appendMaxBackoff)
	}
}

func (a *auditChainUseCase) appendOnce(ctx context.Context, input *AppendInput) (*auditDomain.Entry, error) {
	var entry *auditDomain.Entry

	err := a.txManager.WithTx(ctx, func(txCtx context.Context) error {
		head, err := a.entryRepo.LatestHead(txCtx, input.OrganizationID)
		if err != nil {
			return err
		}
		seq, previousHash := head.Next()

		entry = &auditDomain.Entry{
			ID:             uuid.Must(uuid.NewV7()),
			OrganizationID: input.OrganizationID,
			Actor:          input.Actor,
			Action:         input.Action,
			EntityType:     input.EntityType,
			EntityID:       input.EntityID,
			EntityName:     input.EntityName,
			Changes:        input.Changes.Clone(),
			PreviousValues: input.PreviousValues.Clone(),
			Metadata:       input.Metadata.Clone(),
			Timestamp:      time.Now().UnixMilli(),
			SequenceNumber: seq,
			PreviousHash:   previousHash,
		}
		entry.CurrentHash = a.hasher.Hash(entry)

		return a.entryRepo.Create(txCtx, entry)
	})
	if err != nil {
		return nil, err
	}

	return entry, nil
}

// Delete rejects deletion of a single entry.
func (a *auditChainUseCase) Delete(ctx context.Context, organizationID string, id uuid.UUID) error {
	a.logger.Warn("rejected audit log deletion",
		slog.String("organization_id", organizationID),
		slog.String("entry_id", id.String()),
	)
	return auditDomain.ErrImmutable
}

// BulkDelete rejects deletion of several entries.
func (a *auditChainUseCase) BulkDelete(ctx context.Context, organizationID string, ids []uuid.UUID) error {
	a.logger.Warn("rejected audit log bulk deletion",
		slog.String("organization_id", organizationID),
		slog.Int("count", len(ids)),
	)
	return auditDomain.ErrImmutable
}

// List returns a page of entries, newest first, with the total match count.
func (a *auditChainUseCase) List(
	ctx context.Context,
	filter auditDomain.ListFilter,
) (*auditDomain.ListResult, error) {
	if err := validateOrganizationID(filter.OrganizationID); err != nil {
		return nil, err
	}
	if filter.Action != "" && !filter.Action.Valid() {
		return nil, auditDomain.ErrInvalidAction
	}
	filter.Offset = max(filter.Offset, 0)
	if filter.Limit <= 0 || filter.Limit > maxQueryLimit {
		filter.Limit = maxQueryLimit
	}

	entries, err := a.entryRepo.List(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}

	total, err := a.entryRepo.Count(ctx, filter)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to count audit logs")
	}

	return &auditDomain.ListResult{
		Entries:    entries,
		TotalCount: total,
		HasMore:    filter.Offset+len(entries) < total,
	}, nil
}

// Stats counts entries by action, entity type and user.
func (a *auditChainUseCase) Stats(
	ctx context.Context,
	organizationID string,
	start, end int64,
) (*auditDomain.Stats, error) {
	if err := validateOrganizationID(organizationID); err != nil {
		return nil, err
	}

	stats, err := a.entryRepo.Stats(ctx, organizationID, start, end)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to compute audit stats")
	}
	return stats, nil
}

// EntityHistory returns the latest entries recorded against one entity.
func (a *auditChainUseCase) EntityHistory(
	ctx context.Context,
	organizationID, entityType, entityID string,
	limit int,
) ([]*auditDomain.Entry, error) {
	if limit <= 0 {
		limit = defaultEntityHistoryLimit
	}

	result, err := a.List(ctx, auditDomain.ListFilter{
		OrganizationID: organizationID,
		EntityType:     entityType,
		EntityID:       entityID,
		Limit:          limit,
	})
	if err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// UserActivity returns the latest entries recorded for one user.
func (a *auditChainUseCase) UserActivity(
	ctx context.Context,
	organizationID, userID string,
	limit int,
) ([]*auditDomain.Entry, error) {
	if limit <= 0 {
		limit = defaultUserActivityLimit
	}

	result, err := a.List(ctx, auditDomain.ListFilter{
		OrganizationID: organizationID,
		UserID:         userID,
		Limit:          limit,
	})
	if err != nil {
		return nil, err
	}
	return result.Entries, nil
}

// validateAppendInput validates the append input using jellydator/validation.
func validateAppendInput(input *AppendInput) error {
	if input == nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "append input is required")
	}

	err := validation.ValidateStruct(input,
		validation.Field(&input.OrganizationID,
			validation.Required.Error("organization id is required"),
			appValidation.NotBlank,
			appValidation.NoWhitespace,
			appValidation.NoControlChars,
			validation.Length(1, 255),
		),
		validation.Field(&input.Action,
			validation.Required.Error("action is required"),
			validation.By(func(value any) error {
				if action, _ := value.(auditDomain.Action); !action.Valid() {
					return validation.NewError("validation_audit_action", "must be a known audit action")
				}
				return nil
			}),
		),
		validation.Field(&input.EntityType,
			validation.Required.Error("entity type is required"),
			appValidation.NotBlank,
			appValidation.NoWhitespace,
			appValidation.NoControlChars,
			validation.Length(1, 100),
		),
		validation.Field(&input.EntityID,
			appValidation.NoWhitespace,
			appValidation.NoControlChars,
			validation.Length(0, 255),
		),
		validation.Field(&input.EntityName,
			appValidation.ValidUTF8,
			appValidation.NoNullBytes,
			validation.Length(0, 500),
		),
		validation.Field(&input.Changes, validation.By(validateDiff)),
		validation.Field(&input.PreviousValues, validation.By(validateDiff)),
		validation.Field(&input.Metadata, validation.By(validateDiff)),
	)
	if err != nil {
		return appValidation.WrapValidationError(err)
	}

	err = validation.ValidateStruct(&input.Actor,
		validation.Field(&input.Actor.UserID,
			validation.Required.Error("user id is required"),
			appValidation.NotBlank,
			appValidation.NoWhitespace,
			appValidation.NoControlChars,
			validation.Length(1, 255),
		),
		validation.Field(&input.Actor.UserEmail, appValidation.Email, validation.Length(0, 255)),
		validation.Field(&input.Actor.UserName, appValidation.NoControlChars, validation.Length(0, 255)),
	)
	return appValidation.WrapValidationError(err)
}

// validateOrganizationID checks the tenant key used to scope queries.
func validateOrganizationID(organizationID string) error {
	err := validation.Validate(organizationID,
		validation.Required.Error("organization id is required"),
		appValidation.NoWhitespace,
	)
	if err != nil {
		return appValidation.WrapValidationError(fmt.Errorf("organization_id: %w", err))
	}
	return nil
}

// validateDiff rejects keys and values that storage would not keep byte for byte.
func validateDiff(value any) error {
	diff, _ := value.(auditDomain.Diff)
	for _, key := range diff.Keys() {
		if err := validation.Validate(key, appValidation.ValidUTF8, appValidation.NoControlChars); err != nil {
			return fmt.Errorf("key %q: %w", key, err)
		}
		if err := validation.Validate(diff[key], appValidation.ValidUTF8, appValidation.NoNullBytes); err != nil {
			return fmt.Errorf("value of %q: %w", key, err)
		}
	}
	return nil
}

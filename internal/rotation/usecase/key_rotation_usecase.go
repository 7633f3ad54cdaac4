package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/crypto/domain"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/database"
	apperrors "github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/metrics"
	rotationDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/domain"
)

const defaultRotationBatchSize = 100

// keyRotationUseCase implements KeyRotationUseCase.
type keyRotationUseCase struct {
	txManager  database.TxManager
	recordRepo RecordRepository
	cipher     FieldCipher
	indexer    BlindIndexer
	batchSize  int
	metrics    metrics.BusinessMetrics
	logger     *slog.Logger
}

// NewKeyRotationUseCase creates a KeyRotationUseCase. batchSize is the number of records read
// and written per transaction (100 when not positive).
func NewKeyRotationUseCase(
	txManager database.TxManager,
	recordRepo RecordRepository,
	cipher FieldCipher,
	indexer BlindIndexer,
	batchSize int,
	businessMetrics metrics.BusinessMetrics,
	logger *slog.Logger,
) KeyRotationUseCase {
	if batchSize <= 0 {
		batchSize = defaultRotationBatchSize
	}
	if businessMetrics == nil {
		businessMetrics = metrics.NewNoOpBusinessMetrics()
	}
	return &keyRotationUseCase{
		txManager:  txManager,
		recordRepo: recordRepo,
		cipher:     cipher,
		indexer:    indexer,
		batchSize:  batchSize,
		metrics:    businessMetrics,
		logger:     logger,
	}
}

// Rotate re-encrypts stale ciphertext with the current key version.
func (k *keyRotationUseCase) Rotate(ctx context.Context, tables ...string) (*rotationDomain.RotationResult, error) {
	return k.run(ctx, rotationDomain.ModeRotate, tables)
}

// EncryptExisting encrypts leftover plaintext with the current key version.
func (k *keyRotationUseCase) EncryptExisting(
	ctx context.Context,
	tables ...string,
) (*rotationDomain.RotationResult, error) {
	return k.run(ctx, rotationDomain.ModeEncryptExisting, tables)
}

func (k *keyRotationUseCase) run(
	ctx context.Context,
	mode rotationDomain.Mode,
	tables []string,
) (*rotationDomain.RotationResult, error) {
	specs, err := rotationDomain.ResolveTables(tables)
	if err != nil {
		return nil, err
	}

	result := &rotationDomain.RotationResult{
		Mode:       mode,
		KeyVersion: k.cipher.CurrentVersion().String(),
		StartedAt:  time.Now().UTC(),
	}
	defer func() { result.FinishedAt = time.Now().UTC() }()

	for _, spec := range specs {
		tableResult, err := k.processTable(ctx, mode, spec)
		result.Tables = append(result.Tables, tableResult)
		k.recordTable(ctx, tableResult)
		if err != nil {
			return result, fmt.Errorf("table %s: %w", spec.Name, err)
		}
	}

	totals := result.Totals()
	k.logger.Info("key rotation run completed",
		slog.String("mode", string(mode)),
		slog.String("key_version", result.KeyVersion),
		slog.Int("total", totals.Total),
		slog.Int("rotated", totals.Rotated),
		slog.Int("skipped", totals.Skipped),
		slog.Int("failed", totals.Failed),
	)

	return result, nil
}

// processTable walks one table in id order. Each batch's staged updates are written in one
// transaction and its counters are added only once that commit succeeds, so batch boundaries
// are safe resumption points. A record rewritten by someone else after it was read keeps the
// newer value and counts as skipped; the next run picks it up.
func (k *keyRotationUseCase) processTable(
	ctx context.Context,
	mode rotationDomain.Mode,
	spec rotationDomain.TableSpec,
) (rotationDomain.TableResult, error) {
	result := rotationDomain.TableResult{Table: spec.Name}
	afterID := uuid.Nil

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		records, err := k.recordRepo.ListBatch(ctx, spec, afterID, k.batchSize)
		if err != nil {
			return result, apperrors.Wrap(err, "failed to load records")
		}
		if len(records) == 0 {
			break
		}

		batch := rotationDomain.TableResult{Table: spec.Name}
		var updates []*rotationDomain.RecordUpdate
		for _, record := range records {
			fields, err := k.processRecord(ctx, mode, spec, record)
			switch {
			case errors.Is(err, cryptoDomain.ErrReencryptUnreadable):
				batch.Failed++
				k.logger.Warn("record left unchanged: value unreadable with configured keys",
					slog.String("table", spec.Name),
					slog.String("record_id", record.ID.String()),
					slog.Any("error", err),
				)
			case err != nil:
				return result, err
			case len(fields) == 0:
				batch.Skipped++
			default:
				updates = append(updates, rotationDomain.NewRecordUpdate(record, fields))
			}
		}

		var stale []uuid.UUID
		if len(updates) > 0 {
			err := k.txManager.WithTx(ctx, func(ctx context.Context) error {
				var err error
				stale, err = k.recordRepo.Update(ctx, spec, updates)
				return err
			})
			if err != nil {
				return result, apperrors.Wrap(err, "failed to write rotated records")
			}
		}
		for _, id := range stale {
			k.logger.Info("record left unchanged: modified during rotation",
				slog.String("table", spec.Name),
				slog.String("record_id", id.String()),
			)
		}

		result.Total += len(records)
		result.Rotated += len(updates) - len(stale)
		result.Skipped += batch.Skipped + len(stale)
		result.Failed += batch.Failed
		afterID = records[len(records)-1].ID

		if len(records) < k.batchSize {
			break
		}
	}

	return result, nil
}

// processRecord returns the columns to rewrite for record, or none when it needs no change.
// ErrReencryptUnreadable marks a per-record failure; any other error is a configuration
// problem that must stop the run.
func (k *keyRotationUseCase) processRecord(
	ctx context.Context,
	mode rotationDomain.Mode,
	spec rotationDomain.TableSpec,
	record *rotationDomain.Record,
) (map[string]*string, error) {
	fields := make(map[string]*string)

	for _, field := range spec.Fields {
		value := record.Fields[field]
		if value == nil || *value == "" {
			continue
		}

		var err error
		if mode == rotationDomain.ModeRotate {
			err = k.rotateField(ctx, spec, record, field, *value, fields)
		} else {
			err = k.encryptField(ctx, spec, record, field, *value, fields)
		}
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", field, err)
		}
	}

	return fields, nil
}

func (k *keyRotationUseCase) rotateField(
	ctx context.Context,
	spec rotationDomain.TableSpec,
	record *rotationDomain.Record,
	field, value string,
	out map[string]*string,
) error {
	if !k.cipher.IsEncrypted(value) || k.cipher.IsCurrentVersion(value) {
		return nil
	}

	indexColumn, indexed := spec.BlindIndexes[field]
	if !indexed {
		rotated, err := k.cipher.ReencryptToCurrent(ctx, value)
		if err != nil {
			return err
		}
		out[field] = &rotated
		return nil
	}

	plaintext, err := k.cipher.Plaintext(ctx, value)
	if err != nil {
		return err
	}
	rotated, err := k.cipher.EncryptString(ctx, plaintext)
	if err != nil {
		return err
	}
	token, err := k.indexer.Index(ctx, plaintext)
	if err != nil {
		return err
	}

	out[field] = &rotated
	if current := record.Fields[indexColumn]; current == nil || *current != token {
		out[indexColumn] = &token
	}
	return nil
}

func (k *keyRotationUseCase) encryptField(
	ctx context.Context,
	spec rotationDomain.TableSpec,
	record *rotationDomain.Record,
	field, value string,
	out map[string]*string,
) error {
	indexColumn, indexed := spec.BlindIndexes[field]

	if k.cipher.IsEncrypted(value) {
		if !indexed || record.Fields[indexColumn] != nil {
			return nil
		}
		plaintext, err := k.cipher.Plaintext(ctx, value)
		if err != nil {
			return err
		}
		token, err := k.indexer.Index(ctx, plaintext)
		if err != nil {
			return err
		}
		out[indexColumn] = &token
		return nil
	}

	encrypted, err := k.cipher.EncryptString(ctx, value)
	if err != nil {
		return err
	}
	out[field] = &encrypted

	if indexed {
		token, err := k.indexer.Index(ctx, value)
		if err != nil {
			return err
		}
		out[indexColumn] = &token
	}
	return nil
}

func (k *keyRotationUseCase) recordTable(ctx context.Context, result rotationDomain.TableResult) {
	k.metrics.RecordRotatedRecords(ctx, result.Table, "rotated", result.Rotated)
	k.metrics.RecordRotatedRecords(ctx, result.Table, "skipped", result.Skipped)
	k.metrics.RecordRotatedRecords(ctx, result.Table, "failed", result.Failed)

	k.logger.Info("table processed",
		slog.String("table", result.Table),
		slog.Int("total", result.Total),
		slog.Int("rotated", result.Rotated),
		slog.Int("skipped", result.Skipped),
		slog.Int("failed", result.Failed),
	)
}

package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/kvhuynh79-oss/sda-management-sub004/internal/database"
	apperrors "github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
	rotationDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/domain"
)

// PostgreSQLRecordRepository reads and rewrites encrypted columns in PostgreSQL.
// Uses native UUID ids, with transaction support via database.GetTx().
type PostgreSQLRecordRepository struct {
	db *sql.DB
}

// NewPostgreSQLRecordRepository creates a new PostgreSQL encrypted record repository.
func NewPostgreSQLRecordRepository(db *sql.DB) *PostgreSQLRecordRepository {
	return &PostgreSQLRecordRepository{db: db}
}

// ListBatch returns up to limit records with an id greater than afterID, ordered by id.
func (p *PostgreSQLRecordRepository) ListBatch(
	ctx context.Context,
	table rotationDomain.TableSpec,
	afterID uuid.UUID,
	limit int,
) ([]*rotationDomain.Record, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(ctx, batchQuery(table, postgresPlaceholder), afterID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list "+table.Name+" records")
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*rotationDomain.Record, 0)
	for rows.Next() {
		var id uuid.UUID
		record, err := scanRecord(rows, table, &id)
		if err != nil {
			return nil, err
		}
		record.ID = id
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating "+table.Name+" records")
	}

	return records, nil
}

// Update rewrites the given columns of each record that still holds its expected values and
// returns the ids of the records it left untouched.
func (p *PostgreSQLRecordRepository) Update(
	ctx context.Context,
	table rotationDomain.TableSpec,
	updates []*rotationDomain.RecordUpdate,
) ([]uuid.UUID, error) {
	return execUpdates(ctx, database.GetTx(ctx, p.db), table, updates, postgresDialect,
		func(id uuid.UUID) (any, error) { return id, nil },
	)
}

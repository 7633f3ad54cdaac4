package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/kvhuynh79-oss/sda-management-sub004/internal/database"
	apperrors "github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
	rotationDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/domain"
)

// MySQLRecordRepository reads and rewrites encrypted columns in MySQL.
// Stores UUIDs as BINARY(16), with transaction support via database.GetTx().
type MySQLRecordRepository struct {
	db *sql.DB
}

// NewMySQLRecordRepository creates a new MySQL encrypted record repository.
func NewMySQLRecordRepository(db *sql.DB) *MySQLRecordRepository {
	return &MySQLRecordRepository{db: db}
}

// ListBatch returns up to limit records with an id greater than afterID, ordered by id.
// BINARY(16) ids compare bytewise, which matches uuid ordering.
func (m *MySQLRecordRepository) ListBatch(
	ctx context.Context,
	table rotationDomain.TableSpec,
	afterID uuid.UUID,
	limit int,
) ([]*rotationDomain.Record, error) {
	querier := database.GetTx(ctx, m.db)

	after, err := marshalID(afterID)
	if err != nil {
		return nil, err
	}

	rows, err := querier.QueryContext(ctx, batchQuery(table, mysqlPlaceholder), after, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list "+table.Name+" records")
	}
	defer func() {
		_ = rows.Close()
	}()

	records := make([]*rotationDomain.Record, 0)
	for rows.Next() {
		var id []byte
		record, err := scanRecord(rows, table, &id)
		if err != nil {
			return nil, err
		}
		if err := record.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal "+table.Name+" record id")
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "error iterating "+table.Name+" records")
	}

	return records, nil
}

// Update rewrites the given columns of each record that still holds its expected values and
// returns the ids of the records it left untouched. MySQL counts changed rows, and a rewrite
// never stores the value it replaces.
func (m *MySQLRecordRepository) Update(
	ctx context.Context,
	table rotationDomain.TableSpec,
	updates []*rotationDomain.RecordUpdate,
) ([]uuid.UUID, error) {
	return execUpdates(ctx, database.GetTx(ctx, m.db), table, updates, mysqlDialect, marshalID)
}

func marshalID(id uuid.UUID) (any, error) {
	b, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal record id")
	}
	return b, nil
}

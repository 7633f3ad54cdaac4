package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/database"
	apperrors "github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
)

func mysqlPlaceholder(int) string {
	return "?"
}

// MySQLEntryRepository implements audit chain persistence for MySQL.
// Stores UUIDs as BINARY(16) and diffs as JSON, with transaction support via database.GetTx().
type MySQLEntryRepository struct {
	db *sql.DB
}

// NewMySQLEntryRepository creates a new MySQL entry repository.
func NewMySQLEntryRepository(db *sql.DB) *MySQLEntryRepository {
	return &MySQLEntryRepository{db: db}
}

// Create inserts a new entry. A duplicate (organization_id, sequence_number) key is returned
// as ErrSequenceConflict.
func (m *MySQLEntryRepository) Create(ctx context.Context, entry *auditDomain.Entry) error {
	querier := database.GetTx(ctx, m.db)

	id, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit log id")
	}
	changes, err := marshalDiff(entry.Changes)
	if err != nil {
		return err
	}
	previousValues, err := marshalDiff(entry.PreviousValues)
	if err != nil {
		return err
	}
	metadata, err := marshalDiff(entry.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO audit_logs (` + entryColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		entry.OrganizationID,
		entry.Actor.UserID,
		entry.Actor.UserEmail,
		entry.Actor.UserName,
		string(entry.Action),
		entry.EntityType,
		entry.EntityID,
		entry.EntityName,
		changes,
		previousValues,
		metadata,
		entry.Timestamp,
		entry.SequenceNumber,
		entry.PreviousHash,
		entry.CurrentHash,
		entry.IsIntegrityVerified,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return auditDomain.ErrSequenceConflict
		}
		return apperrors.Wrap(err, "failed to create audit log")
	}

	return nil
}

// LatestHead returns the highest-sequence position of the organization's chain, or nil.
func (m *MySQLEntryRepository) LatestHead(
	ctx context.Context,
	organizationID string,
) (*auditDomain.ChainHead, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT sequence_number, current_hash FROM audit_logs
			  WHERE organization_id = ?
			  ORDER BY sequence_number DESC
			  LIMIT 1`

	var head auditDomain.ChainHead
	err := querier.QueryRowContext(ctx, query, organizationID).Scan(&head.SequenceNumber, &head.CurrentHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Wrap(err, "failed to get audit chain head")
	}

	return &head, nil
}

// ListAscending returns up to limit entries after afterSequence in ascending sequence order.
func (m *MySQLEntryRepository) ListAscending(
	ctx context.Context,
	organizationID string,
	afterSequence int64,
	limit int,
) ([]*auditDomain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM audit_logs
			  WHERE organization_id = ? AND sequence_number > ?
			  ORDER BY sequence_number ASC
			  LIMIT ?`

	return m.query(ctx, query, organizationID, afterSequence, limit)
}

// MarkVerified flips is_integrity_verified to true for ids in one statement.
func (m *MySQLEntryRepository) MarkVerified(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	querier := database.GetTx(ctx, m.db)

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		idBinary, err := id.MarshalBinary()
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit log id")
		}
		placeholders[i] = "?"
		args[i] = idBinary
	}

	query := `UPDATE audit_logs SET is_integrity_verified = TRUE
			  WHERE is_integrity_verified = FALSE AND id IN (` + strings.Join(placeholders, ", ") + `)`

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Wrap(err, "failed to mark audit logs verified")
	}

	return nil
}

// List returns entries matching filter ordered by sequence number descending.
func (m *MySQLEntryRepository) List(
	ctx context.Context,
	filter auditDomain.ListFilter,
) ([]*auditDomain.Entry, error) {
	where, args := whereClause(filter, mysqlPlaceholder)
	args = append(args, filter.Limit, filter.Offset)

	query := `SELECT ` + entryColumns + ` FROM audit_logs` + where +
		` ORDER BY sequence_number DESC LIMIT ? OFFSET ?`

	return m.query(ctx, query, args...)
}

// Count returns the number of entries matching filter.
func (m *MySQLEntryRepository) Count(ctx context.Context, filter auditDomain.ListFilter) (int, error) {
	querier := database.GetTx(ctx, m.db)
	where, args := whereClause(filter, mysqlPlaceholder)

	var count int
	if err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count audit logs")
	}

	return count, nil
}

// Stats aggregates counts by action, entity type and user email.
func (m *MySQLEntryRepository) Stats(
	ctx context.Context,
	organizationID string,
	start, end int64,
) (*auditDomain.Stats, error) {
	querier := database.GetTx(ctx, m.db)
	where, args := timeRangeClause(organizationID, start, end, mysqlPlaceholder)

	rows, err := querier.QueryContext(ctx, statsQuery+where+statsGroupBy, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to compute audit stats")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanStats(rows)
}

// ListOrganizations returns the organizations that have audit entries.
func (m *MySQLEntryRepository) ListOrganizations(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(
		ctx,
		`SELECT DISTINCT organization_id FROM audit_logs ORDER BY organization_id`,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audited organizations")
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanStrings(rows)
}

func (m *MySQLEntryRepository) query(ctx context.Context, query string, args ...any) ([]*auditDomain.Entry, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() {
		_ = rows.Close()
	}()

	// Initialize empty slice to avoid returning nil for empty results
	entries := make([]*auditDomain.Entry, 0)
	for rows.Next() {
		var idBinary []byte
		entry, err := scanEntry(rows, &idBinary)
		if err != nil {
			return nil, err
		}
		if err := entry.ID.UnmarshalBinary(idBinary); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal audit log id")
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}

	return entries, nil
}

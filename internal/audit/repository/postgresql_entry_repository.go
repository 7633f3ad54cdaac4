package repository

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/database"
	apperrors "github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
)

func postgresPlaceholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// PostgreSQLEntryRepository implements audit chain persistence for PostgreSQL.
// Uses native UUID and JSONB types with transaction support via database.GetTx().
type PostgreSQLEntryRepository struct {
	db *sql.DB
}

// NewPostgreSQLEntryRepository creates a new PostgreSQL entry repository.
func NewPostgreSQLEntryRepository(db *sql.DB) *PostgreSQLEntryRepository {
	return &PostgreSQLEntryRepository{db: db}
}

// Create inserts a new entry. A unique violation on (organization_id, sequence_number) is
// returned as ErrSequenceConflict.
func (p *PostgreSQLEntryRepository) Create(ctx context.Context, entry *auditDomain.Entry) error {
	querier := database.GetTx(ctx, p.db)

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
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.ID,
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
func (p *PostgreSQLEntryRepository) LatestHead(
	ctx context.Context,
	organizationID string,
) (*auditDomain.ChainHead, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT sequence_number, current_hash FROM audit_logs
			  WHERE organization_id = $1
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
func (p *PostgreSQLEntryRepository) ListAscending(
	ctx context.Context,
	organizationID string,
	afterSequence int64,
	limit int,
) ([]*auditDomain.Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM audit_logs
			  WHERE organization_id = $1 AND sequence_number > $2
			  ORDER BY sequence_number ASC
			  LIMIT $3`

	return p.query(ctx, query, organizationID, afterSequence, limit)
}

// MarkVerified flips is_integrity_verified to true for ids in one statement.
func (p *PostgreSQLEntryRepository) MarkVerified(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	querier := database.GetTx(ctx, p.db)

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = postgresPlaceholder(i + 1)
		args[i] = id
	}

	query := `UPDATE audit_logs SET is_integrity_verified = TRUE
			  WHERE is_integrity_verified = FALSE AND id IN (` + strings.Join(placeholders, ", ") + `)`

	if _, err := querier.ExecContext(ctx, query, args...); err != nil {
		return apperrors.Wrap(err, "failed to mark audit logs verified")
	}

	return nil
}

// List returns entries matching filter ordered by sequence number descending.
func (p *PostgreSQLEntryRepository) List(
	ctx context.Context,
	filter auditDomain.ListFilter,
) ([]*auditDomain.Entry, error) {
	where, args := whereClause(filter, postgresPlaceholder)
	args = append(args, filter.Limit, filter.Offset)

	query := `SELECT ` + entryColumns + ` FROM audit_logs` + where +
		` ORDER BY sequence_number DESC LIMIT ` + postgresPlaceholder(len(args)-1) +
		` OFFSET ` + postgresPlaceholder(len(args))

	return p.query(ctx, query, args...)
}

// Count returns the number of entries matching filter.
func (p *PostgreSQLEntryRepository) Count(ctx context.Context, filter auditDomain.ListFilter) (int, error) {
	querier := database.GetTx(ctx, p.db)
	where, args := whereClause(filter, postgresPlaceholder)

	var count int
	if err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&count); err != nil {
		return 0, apperrors.Wrap(err, "failed to count audit logs")
	}

	return count, nil
}

// Stats aggregates counts by action, entity type and user email.
func (p *PostgreSQLEntryRepository) Stats(
	ctx context.Context,
	organizationID string,
	start, end int64,
) (*auditDomain.Stats, error) {
	querier := database.GetTx(ctx, p.db)
	where, args := timeRangeClause(organizationID, start, end, postgresPlaceholder)

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
func (p *PostgreSQLEntryRepository) ListOrganizations(ctx context.Context) ([]string, error) {
	querier := database.GetTx(ctx, p.db)

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

func (p *PostgreSQLEntryRepository) query(ctx context.Context, query string, args ...any) ([]*auditDomain.Entry, error) {
	querier := database.GetTx(ctx, p.db)

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
		var id uuid.UUID
		entry, err := scanEntry(rows, &id)
		if err != nil {
			return nil, err
		}
		entry.ID = id
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}

	return entries, nil
}

func scanStats(rows *sql.Rows) (*auditDomain.Stats, error) {
	stats := newStats()
	for rows.Next() {
		var action, entityType, userEmail string
		var count int
		if err := rows.Scan(&action, &entityType, &userEmail, &count); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit stats")
		}
		stats.TotalLogs += count
		stats.ByAction[action] += count
		stats.ByEntityType[entityType] += count
		stats.ByUser[userEmail] += count
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit stats")
	}

	return stats, nil
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan organization id")
		}
		out = append(out, s)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate organization ids")
	}

	return out, nil
}

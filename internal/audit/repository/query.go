// Package repository implements audit chain persistence for PostgreSQL and MySQL.
package repository

import (
	"encoding/json"
	"strings"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
	apperrors "github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
)

const entryColumns = `id, organization_id, user_id, user_email, user_name, action, entity_type, entity_id,
	entity_name, changes, previous_values, metadata, timestamp_ms, sequence_number, previous_hash,
	current_hash, is_integrity_verified`

// searchColumns are matched case-insensitively by ListFilter.SearchTerm.
var searchColumns = []string{"entity_name", "entity_type", "user_email", "user_name"}

// placeholderFunc renders the n-th (1-based) bind parameter.
type placeholderFunc func(n int) string

// whereClause builds the WHERE clause shared by List and Count.
func whereClause(filter auditDomain.ListFilter, placeholder placeholderFunc) (string, []any) {
	var conditions []string
	var args []any

	add := func(condition string, value any) {
		args = append(args, value)
		conditions = append(conditions, strings.ReplaceAll(condition, "?", placeholder(len(args))))
	}

	add("organization_id = ?", filter.OrganizationID)
	if filter.EntityType != "" {
		add("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != "" {
		add("entity_id = ?", filter.EntityID)
	}
	if filter.UserID != "" {
		add("user_id = ?", filter.UserID)
	}
	if filter.Action != "" {
		add("action = ?", string(filter.Action))
	}
	if filter.StartTime != 0 {
		add("timestamp_ms >= ?", filter.StartTime)
	}
	if filter.EndTime != 0 {
		add("timestamp_ms <= ?", filter.EndTime)
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
		var matches []string
		for _, column := range searchColumns {
			args = append(args, pattern)
			matches = append(matches, "LOWER("+column+") LIKE "+placeholder(len(args)))
		}
		conditions = append(conditions, "("+strings.Join(matches, " OR ")+")")
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// timeRangeClause builds the WHERE clause for Stats.
func timeRangeClause(organizationID string, start, end int64, placeholder placeholderFunc) (string, []any) {
	return whereClause(auditDomain.ListFilter{
		OrganizationID: organizationID,
		StartTime:      start,
		EndTime:        end,
	}, placeholder)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// marshalDiff encodes a diff as a JSON object. Empty diffs are stored as NULL.
func marshalDiff(d auditDomain.Diff) ([]byte, error) {
	if len(d) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(map[string]string(d))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal audit diff")
	}
	return data, nil
}

func unmarshalDiff(data []byte) (auditDomain.Diff, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var d auditDomain.Diff
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal audit diff")
	}
	return d.Clone(), nil
}

// entryScanner is implemented by *sql.Row and *sql.Rows.
type entryScanner interface {
	Scan(dest ...any) error
}

// scanEntry scans one row of entryColumns. id receives the id column in the driver's
// representation; the caller converts it into entry.ID.
func scanEntry(scanner entryScanner, id any) (*auditDomain.Entry, error) {
	var entry auditDomain.Entry
	var action string
	var changes, previousValues, metadata []byte

	err := scanner.Scan(
		id,
		&entry.OrganizationID,
		&entry.Actor.UserID,
		&entry.Actor.UserEmail,
		&entry.Actor.UserName,
		&action,
		&entry.EntityType,
		&entry.EntityID,
		&entry.EntityName,
		&changes,
		&previousValues,
		&metadata,
		&entry.Timestamp,
		&entry.SequenceNumber,
		&entry.PreviousHash,
		&entry.CurrentHash,
		&entry.IsIntegrityVerified,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan audit log")
	}

	entry.Action = auditDomain.Action(action)

	if entry.Changes, err = unmarshalDiff(changes); err != nil {
		return nil, err
	}
	if entry.PreviousValues, err = unmarshalDiff(previousValues); err != nil {
		return nil, err
	}
	if entry.Metadata, err = unmarshalDiff(metadata); err != nil {
		return nil, err
	}

	return &entry, nil
}

// newStats returns an empty Stats with initialized maps.
func newStats() *auditDomain.Stats {
	return &auditDomain.Stats{
		ByAction:     map[string]int{},
		ByEntityType: map[string]int{},
		ByUser:       map[string]int{},
	}
}

// statsQuery groups matching entries by action, entity type and user email.
const statsQuery = `SELECT action, entity_type, user_email, COUNT(*) FROM audit_logs`

const statsGroupBy = ` GROUP BY action, entity_type, user_email`

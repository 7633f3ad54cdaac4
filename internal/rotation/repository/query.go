// Package repository implements the encrypted record repositories for PostgreSQL and MySQL.
//
// Table and column names are interpolated into SQL, so they are only ever taken from the
// rotation table registry; values are always bound as parameters.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/kvhuynh79-oss/sda-management-sub004/internal/database"
	apperrors "github.com/kvhuynh79-oss/sda-management-sub004/internal/errors"
	rotationDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/domain"
)

type placeholderFunc func(n int) string

func postgresPlaceholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

func mysqlPlaceholder(int) string {
	return "?"
}

// batchQuery selects the id and every encrypted column of one keyset page.
func batchQuery(table rotationDomain.TableSpec, placeholder placeholderFunc) string {
	return fmt.Sprintf(
		"SELECT id, %s FROM %s WHERE id > %s ORDER BY id ASC LIMIT %s",
		strings.Join(table.Columns(), ", "),
		table.Name,
		placeholder(1),
		placeholder(2),
	)
}

// dialect holds the SQL that differs between the supported databases.
type dialect struct {
	placeholder   placeholderFunc
	nullSafeEqual string
}

var (
	postgresDialect = dialect{placeholder: postgresPlaceholder, nullSafeEqual: "IS NOT DISTINCT FROM"}
	mysqlDialect    = dialect{placeholder: mysqlPlaceholder, nullSafeEqual: "<=>"}
)

// updateQuery builds a compare-and-set UPDATE for one record: the new values are written only
// while each rewritten column still equals update.Expected. id is bound as given.
func updateQuery(
	table rotationDomain.TableSpec,
	update *rotationDomain.RecordUpdate,
	id any,
	d dialect,
) (string, []any, error) {
	allowed := table.Columns()
	columns := make([]string, 0, len(update.Fields))
	for column := range update.Fields {
		if !slices.Contains(allowed, column) {
			return "", nil, apperrors.Wrap(
				apperrors.ErrInvalidInput,
				fmt.Sprintf("column %s is not an encrypted column of %s", column, table.Name),
			)
		}
		columns = append(columns, column)
	}
	slices.Sort(columns)

	args := make([]any, 0, 2*len(columns)+1)
	assignments := make([]string, len(columns))
	for i, column := range columns {
		assignments[i] = fmt.Sprintf("%s = %s", column, d.placeholder(len(args)+1))
		args = append(args, nullable(update.Fields[column]))
	}

	conditions := []string{"id = " + d.placeholder(len(args)+1)}
	args = append(args, id)
	for _, column := range columns {
		conditions = append(conditions,
			fmt.Sprintf("%s %s %s", column, d.nullSafeEqual, d.placeholder(len(args)+1)),
		)
		args = append(args, nullable(update.Expected[column]))
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s",
		table.Name,
		strings.Join(assignments, ", "),
		strings.Join(conditions, " AND "),
	)
	return query, args, nil
}

func nullable(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

// execUpdates runs the staged updates and returns the ids of records that changed since they
// were read and were left untouched.
func execUpdates(
	ctx context.Context,
	querier database.Querier,
	table rotationDomain.TableSpec,
	updates []*rotationDomain.RecordUpdate,
	d dialect,
	bindID func(uuid.UUID) (any, error),
) ([]uuid.UUID, error) {
	var stale []uuid.UUID
	for _, update := range updates {
		id, err := bindID(update.ID)
		if err != nil {
			return nil, err
		}

		query, args, err := updateQuery(table, update, id, d)
		if err != nil {
			return nil, err
		}

		result, err := querier.ExecContext(ctx, query, args...)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to update "+table.Name+" record")
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to read affected rows")
		}
		if affected == 0 {
			stale = append(stale, update.ID)
		}
	}
	return stale, nil
}

// scanRecord scans one batch row. idDest receives the id column.
func scanRecord(
	rows *sql.Rows,
	table rotationDomain.TableSpec,
	idDest any,
) (*rotationDomain.Record, error) {
	columns := table.Columns()
	values := make([]sql.NullString, len(columns))

	dest := make([]any, 0, len(columns)+1)
	dest = append(dest, idDest)
	for i := range values {
		dest = append(dest, &values[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, apperrors.Wrap(err, "failed to scan "+table.Name+" record")
	}

	record := &rotationDomain.Record{Fields: make(map[string]*string, len(columns))}
	for i, column := range columns {
		if values[i].Valid {
			value := values[i].String
			record.Fields[column] = &value
		}
	}
	return record, nil
}

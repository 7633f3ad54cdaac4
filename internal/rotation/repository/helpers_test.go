package repository

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	rotationDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/domain"
	rotationUseCase "github.com/kvhuynh79-oss/sda-management-sub004/internal/rotation/usecase"
)

var (
	_ rotationUseCase.RecordRepository = (*PostgreSQLRecordRepository)(nil)
	_ rotationUseCase.RecordRepository = (*MySQLRecordRepository)(nil)
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func mustTable(t *testing.T, name string) rotationDomain.TableSpec {
	t.Helper()
	spec, ok := rotationDomain.LookupTable(name)
	require.True(t, ok)
	return spec
}

func ptr(s string) *string {
	return &s
}

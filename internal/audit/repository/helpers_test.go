package repository

import (
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/kvhuynh79-oss/sda-management-sub004/internal/audit/domain"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

var entryColumnNames = []string{
	"id", "organization_id", "user_id", "user_email", "user_name", "action", "entity_type", "entity_id",
	"entity_name", "changes", "previous_values", "metadata", "timestamp_ms", "sequence_number",
	"previous_hash", "current_hash", "is_integrity_verified",
}

func testEntry(seq int64) *auditDomain.Entry {
	return &auditDomain.Entry{
		ID:             uuid.Must(uuid.NewV7()),
		OrganizationID: "org1",
		Actor: auditDomain.Actor{
			UserID:    "user-1",
			UserEmail: "coordinator@example.com",
			UserName:  "Sam Coordinator",
		},
		Action:         auditDomain.ActionUpdate,
		EntityType:     "incident",
		EntityID:       "inc-1",
		EntityName:     "Fall in bathroom",
		Changes:        auditDomain.Diff{"status": "closed"},
		PreviousValues: auditDomain.Diff{"status": "open"},
		Timestamp:      1_700_000_000_000 + seq,
		SequenceNumber: seq,
		PreviousHash:   "prev",
		CurrentHash:    "curr",
	}
}

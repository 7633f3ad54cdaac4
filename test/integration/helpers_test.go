// Package integration provides end-to-end tests against real PostgreSQL and MySQL databases.
package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kvhuynh79-oss/sda-management-sub004/internal/app"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/config"
	"github.com/kvhuynh79-oss/sda-management-sub004/internal/testutil"
)

type dbConfig struct {
	name   string
	driver string
	dsn    string
}

func dbConfigs() []dbConfig {
	return []dbConfig{
		{name: "PostgreSQL", driver: "postgres", dsn: testutil.GetPostgresTestDSN()},
		{name: "MySQL", driver: "mysql", dsn: testutil.GetMySQLTestDSN()},
	}
}

// setupDB opens the test database for driver, runs migrations and truncates every table
// when the test ends. The test is skipped when the database is unreachable.
func setupDB(t *testing.T, driver string) *sql.DB {
	t.Helper()

	var db *sql.DB
	if driver == "postgres" {
		db = testutil.SetupPostgresDB(t)
		t.Cleanup(func() {
			testutil.CleanupPostgresDB(t, db)
			testutil.TeardownDB(t, db)
		})
		return db
	}

	db = testutil.SetupMySQLDB(t)
	t.Cleanup(func() {
		testutil.CleanupMySQLDB(t, db)
		testutil.TeardownDB(t, db)
	})
	return db
}

// newTestConfig returns a configuration pointing at the test database with metrics disabled.
func newTestConfig(driver, dsn, currentKeyVersion string) *config.Config {
	return &config.Config{
		DBDriver:              driver,
		DBConnectionString:    dsn,
		DBMaxOpenConnections:  10,
		DBMaxIdleConnections:  5,
		DBConnMaxLifetime:     time.Minute,
		LogLevel:              "error",
		MetricsEnabled:        false,
		CurrentKeyVersion:     currentKeyVersion,
		EncryptionAlgorithm:   "aes-gcm",
		RotationBatchSize:     2,
		AuditVerifyBatchSize:  3,
		AuditAppendMaxRetries: 50,
		AuditAppendLockTTL:    5 * time.Second,
	}
}

// newTestContainer builds a container for cfg and shuts it down when the test ends.
func newTestContainer(t *testing.T, cfg *config.Config) *app.Container {
	t.Helper()

	container := app.NewContainer(cfg)
	t.Cleanup(func() {
		require.NoError(t, container.Shutdown(context.Background()))
	})
	return container
}

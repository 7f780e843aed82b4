package database

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"acsf-platform/pkg/logging"
	"acsf-platform/pkg/metrics"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	logger := logging.NewStructuredLogger("acsf-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollectorWithRegisterer("acsf_test", prometheus.NewRegistry())

	db, err := Open(&Config{
		Driver:          DriverSQLite,
		DSN:             ":memory:",
		MonitorInterval: 5 * time.Millisecond,
	}, logger, collector)
	require.NoError(t, err)
	return db
}

func TestOpenMigrateClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx, true))
	// Idempotent
	require.NoError(t, db.Migrate(ctx, true))

	_, err := db.ExecContext(ctx, "insert_run", `
		INSERT INTO ingestion_runs (id, root_path, targets, file_count, row_count, reading_count, skipped_readings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"run-1", "/data", "power", 1, 1, 3, 0, time.Now().UTC(),
	)
	require.NoError(t, err)

	var count int
	require.NoError(t, db.GetContext(ctx, "count_runs", &count, `SELECT COUNT(*) FROM ingestion_runs`))
	assert.Equal(t, 1, count)

	require.NoError(t, db.HealthCheck(ctx))

	// Let the pool monitor tick at least once
	time.Sleep(20 * time.Millisecond)

	require.NoError(t, db.Migrate(ctx, false))
	require.NoError(t, db.Close())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	logger := logging.NewStructuredLogger("acsf-test", "test", logging.ErrorLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollectorWithRegisterer("acsf_test", prometheus.NewRegistry())

	_, err := Open(&Config{Driver: "mysql"}, logger, collector)
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestDataSourceName(t *testing.T) {
	cfg := &Config{Host: "db", Port: 5432, User: "acsf", Password: "secret", Database: "acsf", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=acsf password=secret dbname=acsf sslmode=disable", cfg.dataSourceName())

	cfg.DSN = "file:acsf.db"
	assert.Equal(t, "file:acsf.db", cfg.dataSourceName())
}

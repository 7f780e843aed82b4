package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"acsf-platform/internal/models"
	"acsf-platform/internal/repository"
	"acsf-platform/pkg/database"
)

func newTestDatasetService(t *testing.T, withRepo bool) *DatasetService {
	t.Helper()
	logger := testLogger()
	collector := testCollector()

	var repo repository.DatasetRepository
	if withRepo {
		db, err := database.Open(&database.Config{Driver: database.DriverSQLite, DSN: ":memory:"}, logger, collector)
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		require.NoError(t, db.Migrate(context.Background(), true))
		repo = repository.NewDatasetRepository(db, logger, collector)
	}

	ingestion := NewIngestionService(Options{}, logger, collector)
	return NewDatasetService(ingestion, repo, logger, collector)
}

func TestDatasetServiceViews(t *testing.T) {
	svc := newTestDatasetService(t, false)
	ctx := context.Background()

	_, err := svc.Current()
	assert.True(t, errors.Is(err, models.ErrNoData))
	_, err = svc.Signatures()
	assert.True(t, errors.Is(err, models.ErrNoData))

	root := writeTree(t, fridgeAndFan()...)
	_, err = svc.Ingest(ctx, root, nil, false)
	require.NoError(t, err)

	table, err := svc.WideTable()
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())

	sig, err := svc.Signatures()
	require.NoError(t, err)
	assert.Equal(t, []string{"fridge", "fan"}, sig.Labels())

	train, test, err := svc.Split()
	require.NoError(t, err)
	assert.Equal(t, 2, train.Len())
	assert.Equal(t, 0, test.Len())

	labels, err := svc.Labels()
	require.NoError(t, err)
	assert.Equal(t, []string{"fridge", "fan"}, labels.Labels)

	devices, err := svc.Devices()
	require.NoError(t, err)
	assert.Len(t, devices, 2)

	runs, err := svc.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
	assert.NoError(t, svc.HealthCheck(ctx))
}

func TestDatasetServicePersistRequiresRepository(t *testing.T) {
	svc := newTestDatasetService(t, false)
	root := writeTree(t, fridgeAndFan()...)

	_, err := svc.Ingest(context.Background(), root, nil, true)
	assert.True(t, errors.Is(err, models.ErrInvalidConfiguration))

	_, err = svc.LoadRun(context.Background(), "")
	assert.True(t, errors.Is(err, models.ErrInvalidConfiguration))
}

func TestDatasetServicePersistAndLoad(t *testing.T) {
	svc := newTestDatasetService(t, true)
	ctx := context.Background()
	root := writeTree(t, fridgeAndFan()...)

	ingested, err := svc.Ingest(ctx, root, nil, true)
	require.NoError(t, err)

	runs, err := svc.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ingested.RunID, runs[0].ID)
	assert.Equal(t, 2, runs[0].RowCount)
	assert.Equal(t, 1, runs[0].SkippedReadings)

	loaded, err := svc.LoadRun(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, ingested.RunID, loaded.RunID)
	assert.Equal(t, ingested.Table, loaded.Table)
	assert.Equal(t, ingested.Targets, loaded.Targets)
	assert.Equal(t, ingested.Devices, loaded.Devices)

	_, err = svc.LoadRun(ctx, "missing")
	assert.True(t, errors.Is(err, models.ErrNotFound))
	assert.NoError(t, svc.HealthCheck(ctx))
}

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"acsf-platform/internal/models"
	"acsf-platform/pkg/database"
	"acsf-platform/pkg/logging"
	"acsf-platform/pkg/metrics"
)

// DatasetRepository provides persistence for ingestion runs and their wide tables
type DatasetRepository interface {
	// Run operations
	SaveRun(ctx context.Context, run *models.IngestionRun, table *models.WideTable, devices []models.DeviceMetadata) error
	GetRun(ctx context.Context, runID string) (*models.IngestionRun, error)
	GetLatestRun(ctx context.Context) (*models.IngestionRun, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*models.IngestionRun, error)
	DeleteRun(ctx context.Context, runID string) error

	// Table operations
	LoadWideTable(ctx context.Context, runID string) (*models.WideTable, error)
	LoadDevices(ctx context.Context, runID string) ([]models.DeviceMetadata, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// datasetRepository implements DatasetRepository
type datasetRepository struct {
	db      *database.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *database.DB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) DatasetRepository {
	return &datasetRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const runColumns = `id, root_path, targets, file_count, row_count, reading_count, skipped_readings, created_at`

// SaveRun stores the run, its wide rows and device metadata in a single transaction
func (r *datasetRepository) SaveRun(ctx context.Context, run *models.IngestionRun, table *models.WideTable, devices []models.DeviceMetadata) error {
	timer := time.Now()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO ingestion_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`),
		run.ID,
		run.RootPath,
		run.Targets,
		run.FileCount,
		run.RowCount,
		run.ReadingCount,
		run.SkippedReadings,
		run.CreatedAt,
	)
	if err != nil {
		r.metrics.RecordDBError("insert_run_error")
		return fmt.Errorf("failed to insert run: %w", err)
	}

	rowStmt, err := tx.PrepareContext(ctx, tx.Rebind(`
		INSERT INTO wide_rows (run_id, position, row_key, label, reading_values)
		VALUES (?, ?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare row statement: %w", err)
	}
	defer rowStmt.Close()

	for i, row := range table.Rows {
		if _, err := rowStmt.ExecContext(ctx, run.ID, i, row.Key, row.Label, encodeValues(row.Values)); err != nil {
			r.metrics.RecordDBError("insert_row_error")
			return fmt.Errorf("failed to insert row %s: %w", row.Key, err)
		}
	}

	deviceStmt, err := tx.PrepareContext(ctx, tx.Rebind(`
		INSERT INTO device_metadata (run_id, position, attributes)
		VALUES (?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("failed to prepare device statement: %w", err)
	}
	defer deviceStmt.Close()

	for i, device := range devices {
		attrs, err := json.Marshal(device)
		if err != nil {
			return fmt.Errorf("failed to encode device metadata: %w", err)
		}
		if _, err := deviceStmt.ExecContext(ctx, run.ID, i, string(attrs)); err != nil {
			r.metrics.RecordDBError("insert_device_error")
			return fmt.Errorf("failed to insert device metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info(ctx, "[REPO_SAVE_RUN] Ingestion run stored", logging.Fields{
		"run_id":      run.ID,
		"rows":        len(table.Rows),
		"devices":     len(devices),
		"duration_ms": time.Since(timer).Milliseconds(),
	})

	return nil
}

// GetRun retrieves an ingestion run by ID
func (r *datasetRepository) GetRun(ctx context.Context, runID string) (*models.IngestionRun, error) {
	query := `SELECT ` + runColumns + ` FROM ingestion_runs WHERE id = ?`

	var run models.IngestionRun
	err := r.db.GetContext(ctx, "get_run", &run, query, runID)

	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{
			Resource: "ingestion_run",
			ID:       runID,
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return &run, nil
}

// GetLatestRun retrieves the most recently created ingestion run
func (r *datasetRepository) GetLatestRun(ctx context.Context) (*models.IngestionRun, error) {
	query := `SELECT ` + runColumns + ` FROM ingestion_runs ORDER BY created_at DESC, id LIMIT 1`

	var run models.IngestionRun
	err := r.db.GetContext(ctx, "get_latest_run", &run, query)

	if err == sql.ErrNoRows {
		return nil, &models.NotFoundError{
			Resource: "ingestion_run",
			ID:       "latest",
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}

	return &run, nil
}

// ListRuns retrieves ingestion runs, newest first, with pagination
func (r *datasetRepository) ListRuns(ctx context.Context, limit, offset int) ([]*models.IngestionRun, error) {
	query := `
		SELECT ` + runColumns + `
		FROM ingestion_runs
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`

	runs := make([]*models.IngestionRun, 0)
	if err := r.db.SelectContext(ctx, "list_runs", &runs, query, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	return runs, nil
}

// DeleteRun removes a run with its rows and device metadata
func (r *datasetRepository) DeleteRun(ctx context.Context, runID string) error {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"device_metadata", "wide_rows"} {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM `+table+` WHERE run_id = ?`), runID); err != nil {
			return fmt.Errorf("failed to delete from %s: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM ingestion_runs WHERE id = ?`), runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &models.NotFoundError{Resource: "ingestion_run", ID: runID}
	}

	return tx.Commit()
}

type wideRowRecord struct {
	Key    string `db:"row_key"`
	Label  string `db:"label"`
	Values string `db:"reading_values"`
}

// LoadWideTable rebuilds the wide table of a run in its original row order
func (r *datasetRepository) LoadWideTable(ctx context.Context, runID string) (*models.WideTable, error) {
	query := `
		SELECT row_key, label, reading_values
		FROM wide_rows
		WHERE run_id = ?
		ORDER BY position
	`

	var records []wideRowRecord
	if err := r.db.SelectContext(ctx, "load_wide_rows", &records, query, runID); err != nil {
		return nil, fmt.Errorf("failed to load wide rows: %w", err)
	}

	table := &models.WideTable{Rows: make([]models.WideRow, 0, len(records))}
	for _, rec := range records {
		values, err := decodeValues(rec.Values)
		if err != nil {
			return nil, fmt.Errorf("failed to decode row %s: %w", rec.Key, err)
		}
		table.Rows = append(table.Rows, models.WideRow{Key: rec.Key, Label: rec.Label, Values: values})
	}

	return table, nil
}

// LoadDevices returns the device metadata of a run in ingestion order
func (r *datasetRepository) LoadDevices(ctx context.Context, runID string) ([]models.DeviceMetadata, error) {
	query := `
		SELECT attributes
		FROM device_metadata
		WHERE run_id = ?
		ORDER BY position
	`

	var raw []string
	if err := r.db.SelectContext(ctx, "load_devices", &raw, query, runID); err != nil {
		return nil, fmt.Errorf("failed to load device metadata: %w", err)
	}

	devices := make([]models.DeviceMetadata, 0, len(raw))
	for _, attrs := range raw {
		var device models.DeviceMetadata
		if err := json.Unmarshal([]byte(attrs), &device); err != nil {
			return nil, fmt.Errorf("failed to decode device metadata: %w", err)
		}
		devices = append(devices, device)
	}

	return devices, nil
}

// HealthCheck performs a repository health check
func (r *datasetRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// encodeValues stores readings as comma separated text; unlike JSON it keeps NaN and Inf
func encodeValues(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

func decodeValues(s string) ([]float64, error) {
	if s == "" {
		return []float64{}, nil
	}
	parts := strings.Split(s, ",")
	values := make([]float64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

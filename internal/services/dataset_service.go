package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"acsf-platform/internal/models"
	"acsf-platform/internal/repository"
	"acsf-platform/pkg/logging"
	"acsf-platform/pkg/metrics"
)

// DatasetService keeps the most recent wide table in memory, persists it
// when a repository is configured, and serves the derived views.
type DatasetService struct {
	ingestion *IngestionService
	repo      repository.DatasetRepository
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector

	// builds serializes ingestion runs
	builds sync.Mutex

	mu      sync.RWMutex
	current *IngestionResult
}

// NewDatasetService creates a new dataset service. repo may be nil, in which
// case nothing is persisted.
func NewDatasetService(ingestion *IngestionService, repo repository.DatasetRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *DatasetService {
	return &DatasetService{
		ingestion: ingestion,
		repo:      repo,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// Ingestion returns the underlying ingestion service
func (s *DatasetService) Ingestion() *IngestionService {
	return s.ingestion
}

// Ingest builds a new wide table from path (or the configured default), makes
// it current and, if persist is set, stores it. Non-empty targets are
// validated strictly and apply to this run only; empty targets use the
// service's active ones.
func (s *DatasetService) Ingest(ctx context.Context, path string, targets []string, persist bool) (*IngestionResult, error) {
	if persist && s.repo == nil {
		return nil, &models.ConfigurationError{Field: "database", Message: "persistence requested but no repository configured"}
	}
	if len(targets) == 0 {
		targets = nil
	} else if err := ValidateTargets(targets); err != nil {
		return nil, err
	}

	s.builds.Lock()
	defer s.builds.Unlock()

	result, err := s.ingestion.BuildWideTableWith(ctx, path, targets)
	if err != nil {
		return nil, err
	}

	if persist {
		runLog := s.logger.WithFields(logging.Fields{"run_id": result.RunID, "rows": result.Table.Len()})
		if err := s.repo.SaveRun(logging.WithRunID(ctx, result.RunID), runOf(result), result.Table, result.Devices); err != nil {
			runLog.Error(ctx, "[DATASET_PERSIST_ERROR] Failed to persist run", nil, err)
			return nil, fmt.Errorf("failed to persist run: %w", err)
		}
		runLog.Info(ctx, "[DATASET_PERSIST] Run stored", nil)
	}

	s.setCurrent(result)
	return result, nil
}

// LoadRun makes a persisted run current; an empty runID loads the latest one
func (s *DatasetService) LoadRun(ctx context.Context, runID string) (*IngestionResult, error) {
	if s.repo == nil {
		return nil, &models.ConfigurationError{Field: "database", Message: "no repository configured"}
	}

	var (
		run *models.IngestionRun
		err error
	)
	if runID == "" {
		run, err = s.repo.GetLatestRun(ctx)
	} else {
		run, err = s.repo.GetRun(ctx, runID)
	}
	if err != nil {
		return nil, err
	}

	table, err := s.repo.LoadWideTable(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	devices, err := s.repo.LoadDevices(ctx, run.ID)
	if err != nil {
		return nil, err
	}

	result := &IngestionResult{
		RunID:           run.ID,
		RootPath:        run.RootPath,
		Targets:         splitTargets(run.Targets),
		Table:           table,
		Devices:         devices,
		TotalFiles:      run.FileCount,
		TotalReadings:   run.ReadingCount,
		SkippedReadings: run.SkippedReadings,
		CreatedAt:       run.CreatedAt,
	}

	s.logger.Info(logging.WithRunID(ctx, run.ID), "[DATASET_LOAD] Persisted run loaded", logging.Fields{
		"rows":    table.Len(),
		"devices": len(devices),
	})

	s.setCurrent(result)
	return result, nil
}

// ListRuns lists persisted runs, newest first
func (s *DatasetService) ListRuns(ctx context.Context, limit, offset int) ([]*models.IngestionRun, error) {
	if s.repo == nil {
		return []*models.IngestionRun{}, nil
	}
	return s.repo.ListRuns(ctx, limit, offset)
}

// Current returns the current ingestion result
func (s *DatasetService) Current() (*IngestionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return nil, models.ErrNoData
	}
	return s.current, nil
}

// WideTable returns the current wide table
func (s *DatasetService) WideTable() (*models.WideTable, error) {
	current, err := s.Current()
	if err != nil {
		return nil, err
	}
	return current.Table, nil
}

// Devices returns the device metadata of the current run
func (s *DatasetService) Devices() ([]models.DeviceMetadata, error) {
	current, err := s.Current()
	if err != nil {
		return nil, err
	}
	return current.Devices, nil
}

// Signatures pivots the current wide table into the per-device signature table
func (s *DatasetService) Signatures() (*models.SignatureTable, error) {
	table, err := s.WideTable()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	signatures, err := CreateSignatureDataset(table)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveReshape("signature", time.Since(start))
	s.metrics.SignatureRows.Set(float64(len(signatures.Rows)))

	return signatures, nil
}

// Split partitions the current wide table by acquisition session
func (s *DatasetService) Split() (*models.WideTable, *models.WideTable, error) {
	table, err := s.WideTable()
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	train, test, err := CreateIntersessionProtocol(table)
	if err != nil {
		return nil, nil, err
	}
	s.metrics.ObserveReshape("split", time.Since(start))

	return train, test, nil
}

// Labels builds the label index of the current wide table
func (s *DatasetService) Labels() (*models.LabelIndex, error) {
	table, err := s.WideTable()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	idx, err := CreateLabelIndex(table)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveReshape("labels", time.Since(start))

	return idx, nil
}

// HealthCheck reports the repository health; without a repository it always succeeds
func (s *DatasetService) HealthCheck(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.HealthCheck(ctx)
}

func (s *DatasetService) setCurrent(result *IngestionResult) {
	s.mu.Lock()
	s.current = result
	s.mu.Unlock()
	s.metrics.WideTableRows.Set(float64(result.Table.Len()))
}

func runOf(result *IngestionResult) *models.IngestionRun {
	return &models.IngestionRun{
		ID:              result.RunID,
		RootPath:        result.RootPath,
		Targets:         strings.Join(result.Targets, ","),
		FileCount:       result.TotalFiles,
		RowCount:        result.Table.Len(),
		ReadingCount:    result.TotalReadings,
		SkippedReadings: result.SkippedReadings,
		CreatedAt:       result.CreatedAt,
	}
}

func splitTargets(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}

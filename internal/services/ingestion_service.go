package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"acsf-platform/internal/models"
	"acsf-platform/pkg/logging"
	"acsf-platform/pkg/metrics"
)

// Options configures an IngestionService at construction
type Options struct {
	// Path is the dataset root used when BuildWideTable is called without one
	Path string
	// Targets are the requested channel codes; invalid or empty falls back to all channels
	Targets []string
}

// IngestionService builds wide tables from ACS-F2 recording trees
type IngestionService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector

	mu        sync.Mutex
	path      string
	targets   []string
	filePaths []string
	warnings  []string
}

// IngestionResult contains the wide table and ingestion statistics of one run
type IngestionResult struct {
	RunID           string
	RootPath        string
	Targets         []string
	Table           *models.WideTable
	Devices         []models.DeviceMetadata
	Records         []models.DeviceRecord
	TotalFiles      int
	TotalReadings   int
	SkippedReadings int
	// Warnings are the non-fatal warnings that apply to this run only
	Warnings  []string
	CreatedAt time.Time
	Duration  time.Duration
}

// NewIngestionService creates a new ingestion service. Target validation is
// lenient here: a bad request is replaced by the full whitelist with a warning.
func NewIngestionService(opts Options, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	s := &IngestionService{
		logger:  logger,
		metrics: metricsCollector,
		path:    opts.Path,
	}

	targets, warning := ResolveTargets(opts.Targets)
	s.targets = targets
	if warning != "" {
		s.warnings = append(s.warnings, warning)
		logger.Warn(context.Background(), "[INGEST_TARGETS] "+warning, logging.Fields{
			"requested": opts.Targets,
			"targets":   targets,
		})
	}

	return s
}

// Targets returns the active channel codes
func (s *IngestionService) Targets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.targets...)
}

// Warnings returns the warnings emitted at construction
func (s *IngestionService) Warnings() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.warnings...)
}

// SetTargets replaces the active channels. Unlike construction, an invalid
// entry is rejected with a configuration error and the targets are left as they were.
func (s *IngestionService) SetTargets(targets ...string) error {
	if err := ValidateTargets(targets); err != nil {
		return err
	}

	s.mu.Lock()
	s.targets = append([]string(nil), targets...)
	s.mu.Unlock()
	return nil
}

// SetFilePaths locates the recordings under root and stores them for later builds
func (s *IngestionService) SetFilePaths(root string) error {
	files, err := LocateFiles(root)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.path = root
	s.filePaths = files
	s.mu.Unlock()
	return nil
}

// FilePaths returns the stored recording list
func (s *IngestionService) FilePaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.filePaths...)
}

// noPathWarning is reported by a build that falls back to the stored file list or root
const noPathWarning = "no path to dataset given"

// resolveFiles picks the file list for a build: an explicit path wins, then
// the stored list, then the construction-time root.
func (s *IngestionService) resolveFiles(ctx context.Context, path string) ([]string, string, error) {
	if path != "" {
		if err := s.SetFilePaths(path); err != nil {
			return nil, "", err
		}
		return s.FilePaths(), path, nil
	}

	s.mu.Lock()
	files := append([]string(nil), s.filePaths...)
	root := s.path
	s.mu.Unlock()

	s.logger.Warn(ctx, "[INGEST_NO_PATH] No path to dataset given", logging.Fields{
		"stored_files": len(files),
		"default_root": root,
	})

	if len(files) > 0 {
		return files, root, nil
	}
	if root != "" {
		if err := s.SetFilePaths(root); err != nil {
			return nil, "", err
		}
		return s.FilePaths(), root, nil
	}

	return nil, "", &models.NotFoundError{Resource: "xml recordings", ID: "no dataset path configured"}
}

// BuildWideTable parses every recording in order and aggregates the readings
// into one wide table for the active targets. Device indices are file
// positions. Any file error aborts the whole build.
func (s *IngestionService) BuildWideTable(ctx context.Context, path string) (*IngestionResult, error) {
	return s.BuildWideTableWith(ctx, path, nil)
}

// BuildWideTableWith is BuildWideTable for the given targets, which apply to
// this build only and are validated strictly. Nil targets use the active ones.
func (s *IngestionService) BuildWideTableWith(ctx context.Context, path string, targets []string) (*IngestionResult, error) {
	var warnings []string
	if targets == nil {
		targets = s.Targets()
		warnings = append(warnings, s.Warnings()...)
	} else {
		if err := ValidateTargets(targets); err != nil {
			return nil, err
		}
		targets = append([]string(nil), targets...)
	}

	timer := s.metrics.NewTimer(s.metrics.IngestionDuration)
	startTime := time.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)

	files, root, err := s.resolveFiles(ctx, path)
	if err != nil {
		s.metrics.RecordIngestionError("file_discovery")
		return nil, err
	}
	if path == "" {
		warnings = append(warnings, noPathWarning)
	}

	s.logger.Info(ctx, "[INGEST_START] Starting wide table build", logging.Fields{
		"root":       root,
		"file_count": len(files),
		"targets":    targets,
		"stage":      "INITIALIZATION",
	})

	acc := newTableAccumulator()
	result := &IngestionResult{
		RunID:      runID,
		RootPath:   root,
		Targets:    targets,
		TotalFiles: len(files),
		Warnings:   warnings,
		CreatedAt:  startTime.UTC(),
	}

	for deviceIndex, filePath := range files {
		fileLog := s.logger.WithFields(logging.Fields{
			"file_path":    filePath,
			"device_index": deviceIndex,
		})

		extracted, err := s.extractFile(filePath, targets, deviceIndex)
		if err != nil {
			s.metrics.RecordIngestionError(errorType(err))
			fileLog.Error(ctx, "[INGEST_FILE_ERROR] File ingestion failed", logging.Fields{
				"stage": "FILE_PROCESSING",
			}, err)
			return nil, fmt.Errorf("failed to ingest %s: %w", filePath, err)
		}

		acc.add(&extracted.Record, extracted.Readings)
		result.TotalReadings += len(extracted.Readings)
		result.SkippedReadings += extracted.SkippedTotal()
		s.recordFileMetrics(extracted)

		fileLog.Debug(ctx, "[INGEST_FILE] File parsed", logging.Fields{
			"label":    extracted.Record.Label,
			"session":  extracted.Record.Session,
			"readings": len(extracted.Readings),
			"skipped":  extracted.SkippedTotal(),
		})
	}

	result.Table = acc.table()
	result.Devices = acc.devices
	result.Records = acc.records
	result.Duration = timer.ObserveDuration()

	s.metrics.WideTableRows.Set(float64(result.Table.Len()))

	s.logger.Info(ctx, "[INGEST_COMPLETE] Wide table built", logging.Fields{
		"total_files":      result.TotalFiles,
		"rows":             result.Table.Len(),
		"width":            result.Table.Width(),
		"total_readings":   result.TotalReadings,
		"skipped_readings": result.SkippedReadings,
		"duration_seconds": result.Duration.Seconds(),
		"stage":            "COMPLETE",
	})

	return result, nil
}

func (s *IngestionService) extractFile(filePath string, targets []string, deviceIndex int) (*ExtractedFile, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	extracted, err := ExtractRecord(file, targets, deviceIndex)
	if err != nil {
		return nil, err
	}
	extracted.Record.SourceFile = filePath
	return extracted, nil
}

func (s *IngestionService) recordFileMetrics(f *ExtractedFile) {
	s.metrics.FilesParsedTotal.Inc()
	s.metrics.FileReadings.Observe(float64(len(f.Readings)))

	perChannel := make(map[string]int)
	for _, r := range f.Readings {
		perChannel[r.Channel]++
	}
	for channel, n := range perChannel {
		s.metrics.RecordReadings(channel, n)
	}
	for channel, n := range f.Skipped {
		s.metrics.RecordSkippedReadings(channel, n)
	}
}

// tableAccumulator owns the aggregation state of a single build
type tableAccumulator struct {
	index   map[string]int
	rows    []models.WideRow
	devices []models.DeviceMetadata
	records []models.DeviceRecord
}

func newTableAccumulator() *tableAccumulator {
	return &tableAccumulator{
		index:   make(map[string]int),
		rows:    make([]models.WideRow, 0),
		devices: make([]models.DeviceMetadata, 0),
		records: make([]models.DeviceRecord, 0),
	}
}

// add appends readings to their rows; a key seen for the first time opens a
// new row and records the device label for it.
func (a *tableAccumulator) add(rec *models.DeviceRecord, readings []models.Reading) {
	a.devices = append(a.devices, rec.Metadata...)
	a.records = append(a.records, *rec)

	for _, r := range readings {
		key := rec.Key(r.Channel).String()
		if i, ok := a.index[key]; ok {
			a.rows[i].Values = append(a.rows[i].Values, r.Value)
			continue
		}
		a.index[key] = len(a.rows)
		a.rows = append(a.rows, models.WideRow{
			Key:    key,
			Label:  rec.Label,
			Values: []float64{r.Value},
		})
	}
}

func (a *tableAccumulator) table() *models.WideTable {
	return &models.WideTable{Rows: a.rows}
}

// errorType classifies ingestion failures for the error counter
func errorType(err error) string {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrNoDeviceDescriptor):
		return "no_device_descriptor"
	default:
		return "parse_error"
	}
}

package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"acsf-platform/internal/models"
	"acsf-platform/internal/services"
	"acsf-platform/pkg/logging"
	"acsf-platform/pkg/metrics"
)

// DatasetHandler handles dataset API endpoints
type DatasetHandler struct {
	service *services.DatasetService
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewDatasetHandler creates a new dataset handler
func NewDatasetHandler(
	service *services.DatasetService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *DatasetHandler {
	return &DatasetHandler{
		service: service,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// IngestRequest is the body of POST /api/dataset/ingest. Every field is optional.
type IngestRequest struct {
	Path    string   `json:"path"`
	Targets []string `json:"targets"`
	Persist bool     `json:"persist"`
}

// IngestResponse summarizes a finished ingestion run
type IngestResponse struct {
	RunID           string    `json:"run_id"`
	RootPath        string    `json:"root_path"`
	Targets         []string  `json:"targets"`
	TotalFiles      int       `json:"total_files"`
	Rows            int       `json:"rows"`
	Width           int       `json:"width"`
	TotalReadings   int       `json:"total_readings"`
	SkippedReadings int       `json:"skipped_readings"`
	DurationMS      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
	Warnings        []string  `json:"warnings"`
	Persisted       bool      `json:"persisted"`
}

// RowResponse is one wide-table row; missing and non-finite values are null
type RowResponse struct {
	Key    string     `json:"key"`
	Label  string     `json:"label"`
	Values []*float64 `json:"values"`
}

// SignatureResponse is one device of the signature table
type SignatureResponse struct {
	DeviceIndex int                   `json:"device_index"`
	Label       string                `json:"label"`
	Channels    []string              `json:"channels"`
	Length      int                   `json:"length"`
	Series      map[string][]*float64 `json:"series"`
}

// SplitResponse is one part of the intersession protocol
type SplitResponse struct {
	Part string        `json:"part"`
	Rows []RowResponse `json:"rows"`
}

// Ingest handles POST /api/dataset/ingest
func (h *DatasetHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dataset/ingest"
	ctx := r.Context()
	defer h.observe(endpoint, time.Now())

	var req IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.sendError(w, r, "invalid request body", http.StatusBadRequest)
		return
	}

	if len(req.Targets) > 0 {
		if err := services.ValidateTargets(req.Targets); err != nil {
			h.metrics.RecordAPIError("invalid_targets", endpoint)
			h.sendError(w, r, err.Error(), http.StatusBadRequest)
			return
		}
	}

	result, err := h.service.Ingest(ctx, req.Path, req.Targets, req.Persist)
	if err != nil {
		h.handleServiceError(w, r, endpoint, "[API_INGEST_ERROR] Ingestion failed", err)
		return
	}

	response := IngestResponse{
		RunID:           result.RunID,
		RootPath:        result.RootPath,
		Targets:         result.Targets,
		TotalFiles:      result.TotalFiles,
		Rows:            result.Table.Len(),
		Width:           result.Table.Width(),
		TotalReadings:   result.TotalReadings,
		SkippedReadings: result.SkippedReadings,
		DurationMS:      result.Duration.Milliseconds(),
		CreatedAt:       result.CreatedAt,
		Warnings:        warningsOf(result),
		Persisted:       req.Persist,
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "201")
	h.sendJSON(w, response, http.StatusCreated)
}

// GetWideTable handles GET /api/dataset/wide
func (h *DatasetHandler) GetWideTable(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dataset/wide"
	defer h.observe(endpoint, time.Now())

	table, err := h.service.WideTable()
	if err != nil {
		h.handleServiceError(w, r, endpoint, "[API_WIDE_ERROR] Failed to get wide table", err)
		return
	}

	page, limit := pagination(r)
	start, end := pageBounds(table.Len(), page, limit)

	response := PaginatedResponse{
		Data:       rowsResponse(table.Rows[start:end]),
		Total:      table.Len(),
		Page:       page,
		Limit:      limit,
		TotalPages: (table.Len() + limit - 1) / limit,
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetSignatures handles GET /api/dataset/signature
func (h *DatasetHandler) GetSignatures(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dataset/signature"
	defer h.observe(endpoint, time.Now())

	sig, err := h.service.Signatures()
	if err != nil {
		h.handleServiceError(w, r, endpoint, "[API_SIGNATURE_ERROR] Failed to build signature dataset", err)
		return
	}

	rows := make([]SignatureResponse, 0, len(sig.Rows))
	for _, row := range sig.Rows {
		series := make(map[string][]*float64, len(row.Series))
		for ch, values := range row.Series {
			series[ch] = nullable(values)
		}
		rows = append(rows, SignatureResponse{
			DeviceIndex: row.DeviceIndex,
			Label:       row.Label,
			Channels:    row.Channels,
			Length:      row.Length(),
			Series:      series,
		})
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, rows, http.StatusOK)
}

// GetSplit handles GET /api/dataset/split/{part}
func (h *DatasetHandler) GetSplit(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dataset/split"
	defer h.observe(endpoint, time.Now())

	part := mux.Vars(r)["part"]
	if part != "train" && part != "test" {
		h.sendError(w, r, "invalid part, expected train or test", http.StatusBadRequest)
		return
	}

	train, test, err := h.service.Split()
	if err != nil {
		h.handleServiceError(w, r, endpoint, "[API_SPLIT_ERROR] Failed to split dataset", err)
		return
	}

	table := train
	if part == "test" {
		table = test
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, SplitResponse{Part: part, Rows: rowsResponse(table.Rows)}, http.StatusOK)
}

// GetLabels handles GET /api/dataset/labels
func (h *DatasetHandler) GetLabels(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dataset/labels"
	defer h.observe(endpoint, time.Now())

	idx, err := h.service.Labels()
	if err != nil {
		h.handleServiceError(w, r, endpoint, "[API_LABELS_ERROR] Failed to build label index", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, idx, http.StatusOK)
}

// GetDevices handles GET /api/dataset/devices
func (h *DatasetHandler) GetDevices(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dataset/devices"
	defer h.observe(endpoint, time.Now())

	devices, err := h.service.Devices()
	if err != nil {
		h.handleServiceError(w, r, endpoint, "[API_DEVICES_ERROR] Failed to get devices", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, devices, http.StatusOK)
}

// ListRuns handles GET /api/dataset/runs
func (h *DatasetHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dataset/runs"
	defer h.observe(endpoint, time.Now())

	page, limit := pagination(r)
	runs, err := h.service.ListRuns(r.Context(), limit, (page-1)*limit)
	if err != nil {
		h.handleServiceError(w, r, endpoint, "[API_RUNS_ERROR] Failed to list runs", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, runs, http.StatusOK)
}

// LoadRun handles POST /api/dataset/runs/{id}/load; the id "latest" loads the newest run
func (h *DatasetHandler) LoadRun(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dataset/runs/load"
	defer h.observe(endpoint, time.Now())

	id := mux.Vars(r)["id"]
	if id == "latest" {
		id = ""
	}

	result, err := h.service.LoadRun(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, endpoint, "[API_LOAD_RUN_ERROR] Failed to load run", err)
		return
	}

	response := IngestResponse{
		RunID:           result.RunID,
		RootPath:        result.RootPath,
		Targets:         result.Targets,
		TotalFiles:      result.TotalFiles,
		Rows:            result.Table.Len(),
		Width:           result.Table.Width(),
		TotalReadings:   result.TotalReadings,
		SkippedReadings: result.SkippedReadings,
		CreatedAt:       result.CreatedAt,
		Warnings:        []string{},
		Persisted:       true,
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, response, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *DatasetHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.service.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK] Store unavailable", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "unhealthy"
		code = http.StatusServiceUnavailable
	}

	if current, err := h.service.Current(); err == nil {
		status["run_id"] = current.RunID
	}

	h.sendJSON(w, status, code)
}

// handleServiceError maps service errors onto HTTP status codes
func (h *DatasetHandler) handleServiceError(w http.ResponseWriter, r *http.Request, endpoint, logMessage string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), logMessage, logging.Fields{
			"endpoint": endpoint,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "internal error", status)
		return
	}

	h.metrics.RecordAPIError(errorKind(err), endpoint)
	h.sendError(w, r, err.Error(), status)
}

func statusFor(err error) int {
	var validationErr *models.ValidationError
	switch {
	case errors.Is(err, models.ErrNoData), errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNoDeviceDescriptor), errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, models.ErrNoData):
		return "no_data"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	case errors.Is(err, models.ErrInvalidConfiguration):
		return "invalid_configuration"
	default:
		return "invalid_input"
	}
}

func (h *DatasetHandler) observe(endpoint string, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// pagination reads page and limit, defaulting to 1 and 100
func pagination(r *http.Request) (int, int) {
	page := 1
	limit := 100

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}

	return page, limit
}

func pageBounds(total, page, limit int) (int, int) {
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}

func rowsResponse(rows []models.WideRow) []RowResponse {
	out := make([]RowResponse, len(rows))
	for i, row := range rows {
		out[i] = RowResponse{Key: row.Key, Label: row.Label, Values: nullable(row.Values)}
	}
	return out
}

// nullable converts values for JSON, which has no NaN or Inf
func nullable(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		v := values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[i] = &v
	}
	return out
}

// sendJSON sends a JSON response
func (h *DatasetHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *DatasetHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// requestContext tags every request with an id, taken from X-Request-ID when
// the client sent one, and carries it into the log entries of the request
func (h *DatasetHandler) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		ctx := logging.WithRequestID(r.Context(), requestID)
		h.logger.Debug(ctx, "[API_REQUEST] Request received", logging.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RegisterRoutes registers all dataset API routes
func (h *DatasetHandler) RegisterRoutes(router *mux.Router) {
	router.Use(h.requestContext)
	router.HandleFunc("/api/dataset/ingest", h.Ingest).Methods("POST")
	router.HandleFunc("/api/dataset/wide", h.GetWideTable).Methods("GET")
	router.HandleFunc("/api/dataset/signature", h.GetSignatures).Methods("GET")
	router.HandleFunc("/api/dataset/split/{part}", h.GetSplit).Methods("GET")
	router.HandleFunc("/api/dataset/labels", h.GetLabels).Methods("GET")
	router.HandleFunc("/api/dataset/devices", h.GetDevices).Methods("GET")
	router.HandleFunc("/api/dataset/runs", h.ListRuns).Methods("GET")
	router.HandleFunc("/api/dataset/runs/{id}/load", h.LoadRun).Methods("POST")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}

func warningsOf(result *services.IngestionResult) []string {
	if result.Warnings == nil {
		return []string{}
	}
	return result.Warnings
}

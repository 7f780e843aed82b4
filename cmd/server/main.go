package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"acsf-platform/internal/config"
	"acsf-platform/internal/handlers"
	"acsf-platform/internal/models"
	"acsf-platform/internal/repository"
	"acsf-platform/internal/services"
	"acsf-platform/pkg/database"
	"acsf-platform/pkg/logging"
	"acsf-platform/pkg/metrics"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("acsf-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting ACS-F2 signature API server", logging.Fields{
		"version":      "1.0.0",
		"server_host":  cfg.Server.Host,
		"server_port":  cfg.Server.Port,
		"db_enabled":   cfg.Database.Enabled,
		"db_driver":    cfg.Database.Driver,
		"dataset_path": cfg.Dataset.Path,
	})

	metricsCollector := metrics.NewCollector("acsf_platform")

	// The run store is optional; without it the API serves in-memory runs only
	var repo repository.DatasetRepository
	if cfg.Database.Enabled {
		db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
		}
		defer db.Close()
		repo = repository.NewDatasetRepository(db, logger, metricsCollector)
	}

	ingestion := services.NewIngestionService(services.Options{
		Path:    cfg.Dataset.Path,
		Targets: cfg.Dataset.Targets,
	}, logger, metricsCollector)
	datasetService := services.NewDatasetService(ingestion, repo, logger, metricsCollector)

	warmUp(ctx, cfg, datasetService, logger)

	datasetHandler := handlers.NewDatasetHandler(datasetService, logger, metricsCollector)

	router := mux.NewRouter()
	datasetHandler.RegisterRoutes(router)
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}

// warmUp makes a dataset current before serving: a configured tree is
// ingested, otherwise the latest stored run is loaded. Failures only log.
func warmUp(ctx context.Context, cfg *config.Config, svc *services.DatasetService, logger *logging.StructuredLogger) {
	if cfg.Dataset.Path != "" {
		if _, err := svc.Ingest(ctx, cfg.Dataset.Path, nil, cfg.Dataset.Persist && cfg.Database.Enabled); err != nil {
			logger.Error(ctx, "[STARTUP_INGEST_ERROR] Initial ingestion failed", logging.Fields{
				"dataset_path": cfg.Dataset.Path,
			}, err)
		}
		return
	}

	if !cfg.Database.Enabled {
		return
	}
	if _, err := svc.LoadRun(ctx, ""); err != nil && !errors.Is(err, models.ErrNotFound) {
		logger.Error(ctx, "[STARTUP_LOAD_ERROR] Failed to load latest run", logging.Fields{}, err)
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"acsf-platform/internal/config"
	"acsf-platform/internal/repository"
	"acsf-platform/internal/services"
	"acsf-platform/pkg/database"
	"acsf-platform/pkg/logging"
	"acsf-platform/pkg/metrics"
)

const version = "1.0.0"

type options struct {
	configFile string
	dataDir    string
	targets    []string
	persist    bool
	signatures bool
	split      bool
	labels     bool
	logLevel   string
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "acsf-ingester",
		Short:        "Build the ACS-F2 wide table from a recording tree",
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configFile, "config", "", "Path to a configuration file (default: ./acsf.yaml)")
	flags.StringVar(&opts.dataDir, "data-dir", "", "Root of the recording tree (<root>/<type>/<device>/*.xml)")
	flags.StringSliceVar(&opts.targets, "targets", nil, "Channels to extract: freq,phAngle,power,reacPower,rmsCur,rmsVolt")
	flags.BoolVar(&opts.persist, "persist", false, "Store the run in the configured database")
	flags.BoolVar(&opts.signatures, "signatures", false, "Print the signature dataset summary")
	flags.BoolVar(&opts.split, "split", false, "Print the intersession protocol summary")
	flags.BoolVar(&opts.labels, "labels", false, "Print the label index")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	return cmd
}

func run(cmd *cobra.Command, opts *options) error {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// flags take precedence over file and environment
	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.Dataset.Path = opts.dataDir
	}
	if flags.Changed("targets") {
		cfg.Dataset.Targets = opts.targets
	}
	if flags.Changed("persist") {
		cfg.Dataset.Persist = opts.persist
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if cfg.Dataset.Persist {
		cfg.Database.Enabled = true
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewStructuredLogger("acsf-ingester", version, logging.ParseLevel(cfg.Logging.Level))
	// one-shot command: nothing scrapes, so a private registry is enough
	metricsCollector := metrics.NewCollectorWithRegisterer("acsf_ingester", prometheus.NewRegistry())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger.Info(ctx, "[INGESTER_START] Starting ACS-F2 ingestion", logging.Fields{
		"version":  version,
		"data_dir": cfg.Dataset.Path,
		"targets":  cfg.Dataset.Targets,
		"persist":  cfg.Dataset.Persist,
	})

	var repo repository.DatasetRepository
	if cfg.Database.Enabled {
		db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		repo = repository.NewDatasetRepository(db, logger, metricsCollector)
	}

	ingestion := services.NewIngestionService(services.Options{
		Path:    cfg.Dataset.Path,
		Targets: cfg.Dataset.Targets,
	}, logger, metricsCollector)
	datasetService := services.NewDatasetService(ingestion, repo, logger, metricsCollector)

	result, err := datasetService.Ingest(ctx, cfg.Dataset.Path, nil, cfg.Dataset.Persist)
	if err != nil {
		logger.Error(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{
			"data_dir": cfg.Dataset.Path,
		}, err)
		return err
	}

	out := cmd.OutOrStdout()
	rule := strings.Repeat("=", 80)

	fmt.Fprintln(out, rule)
	fmt.Fprintln(out, "INGESTION COMPLETE")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Run ID:             %s\n", result.RunID)
	fmt.Fprintf(out, "Root:               %s\n", result.RootPath)
	fmt.Fprintf(out, "Targets:            %s\n", strings.Join(result.Targets, ","))
	fmt.Fprintf(out, "Total Files:        %d\n", result.TotalFiles)
	fmt.Fprintf(out, "Rows:               %d\n", result.Table.Len())
	fmt.Fprintf(out, "Columns:            %d\n", result.Table.Width())
	fmt.Fprintf(out, "Readings:           %d\n", result.TotalReadings)
	fmt.Fprintf(out, "Skipped Readings:   %d\n", result.SkippedReadings)
	fmt.Fprintf(out, "Duration:           %v\n", result.Duration)
	if cfg.Dataset.Persist {
		fmt.Fprintf(out, "Persisted:          yes\n")
	}

	if warnings := result.Warnings; len(warnings) > 0 {
		fmt.Fprintf(out, "\nWarnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	if opts.signatures {
		sig, err := datasetService.Signatures()
		if err != nil {
			return fmt.Errorf("failed to build signature dataset: %w", err)
		}
		fmt.Fprintln(out, "\n"+rule)
		fmt.Fprintln(out, "SIGNATURE DATASET")
		fmt.Fprintln(out, rule)
		for _, row := range sig.Rows {
			fmt.Fprintf(out, "  device %-5d %-24s channels=%s samples=%d\n",
				row.DeviceIndex, row.Label, strings.Join(row.Channels, ","), row.Length())
		}
	}

	if opts.split {
		train, test, err := datasetService.Split()
		if err != nil {
			return fmt.Errorf("failed to split dataset: %w", err)
		}
		fmt.Fprintln(out, "\n"+rule)
		fmt.Fprintln(out, "INTERSESSION PROTOCOL")
		fmt.Fprintln(out, rule)
		fmt.Fprintf(out, "Train Rows (session 1): %d\n", train.Len())
		fmt.Fprintf(out, "Test Rows (session 2):  %d\n", test.Len())
	}

	if opts.labels {
		idx, err := datasetService.Labels()
		if err != nil {
			return fmt.Errorf("failed to build label index: %w", err)
		}
		fmt.Fprintln(out, "\n"+rule)
		fmt.Fprintln(out, "LABEL INDEX")
		fmt.Fprintln(out, rule)
		for _, label := range idx.Labels {
			fmt.Fprintf(out, "  %3d  %s\n", idx.Codes[label], label)
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed successfully", logging.Fields{
		"run_id":           result.RunID,
		"rows":             result.Table.Len(),
		"skipped_readings": result.SkippedReadings,
		"duration_seconds": result.Duration.Seconds(),
	})

	return nil
}

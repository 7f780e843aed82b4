package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"acsf-platform/internal/config"
	"acsf-platform/pkg/database"
	"acsf-platform/pkg/logging"
	"acsf-platform/pkg/metrics"
)

func main() {
	var configFile string

	cmd := &cobra.Command{
		Use:          "acsf-migrate [up|down]",
		Short:        "Apply or revert the run store schema",
		Args:         cobra.MaximumNArgs(1),
		ValidArgs:    []string{"up", "down"},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}
			if direction != "up" && direction != "down" {
				return fmt.Errorf("unknown direction %q, expected up or down", direction)
			}

			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger := logging.NewStructuredLogger("acsf-migrate", "1.0.0", logging.ParseLevel(cfg.Logging.Level))
			metricsCollector := metrics.NewCollector("acsf_migrate")

			db, err := database.Open(cfg.Database.Connection(), logger, metricsCollector)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer db.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "Running migration: %s\n", direction)
			if err := db.Migrate(context.Background(), direction == "up"); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migration completed successfully")
			return nil
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "Path to a configuration file (default: ./acsf.yaml)")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"shelfguard/internal/alerts"
	"shelfguard/internal/engine"
	"shelfguard/internal/ingest"
	"shelfguard/internal/logging"
	"shelfguard/internal/metrics"
	"shelfguard/internal/report"
)

var summaryDataDir string

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Run a pass in memory and print the summary",
	RunE:  runSummary,
}

func init() {
	summaryCmd.Flags().StringVar(&summaryDataDir, "data-dir", "", "input directory (overrides config)")
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if summaryDataDir != "" {
		cfg.Ingest.DataDir = summaryDataDir
	}
	logger := logging.NewLogger("warn")

	ds, err := ingest.NewLoader(cfg.Ingest, logger).Load()
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	eng := engine.NewEngine(cfg, logger,
		metrics.NewStore(cfg.Metrics.StoreLimit),
		alerts.NewStore(cfg.Detections.StoreLimit),
		nil,
	)
	result, err := eng.RunPass(context.Background(), ds)
	if err != nil {
		return err
	}

	digest, err := json.MarshalIndent(report.Summarize(result.Detections), "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(digest))
	return nil
}

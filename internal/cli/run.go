package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"shelfguard/internal/alerts"
	"shelfguard/internal/config"
	"shelfguard/internal/engine"
	"shelfguard/internal/ingest"
	"shelfguard/internal/logging"
	"shelfguard/internal/metrics"
	"shelfguard/internal/report"
	"shelfguard/internal/storage"
)

var (
	runDataDir    string
	runOutput     string
	runShowDigest bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one correlation pass over a data directory",
	Long: `Loads the reference catalogs and station streams from the data
directory, evaluates every detection rule, and writes the scored events
as JSON lines sorted by timestamp.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "input directory (overrides config)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "events.jsonl", "output file")
	runCmd.Flags().BoolVar(&runShowDigest, "summary", false, "print a run summary to stdout")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if runDataDir != "" {
		cfg.Ingest.DataDir = runDataDir
	}
	logger := logging.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ds, err := ingest.NewLoader(cfg.Ingest, logger).Load()
	if err != nil {
		return fmt.Errorf("load dataset: %w", err)
	}

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if store != nil {
		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
		defer store.Close()
	}

	eng := engine.NewEngine(cfg, logger,
		metrics.NewStore(cfg.Metrics.StoreLimit),
		alerts.NewStore(cfg.Detections.StoreLimit),
		store,
	)
	result, err := eng.RunPass(ctx, ds)
	if err != nil {
		return err
	}

	if err := report.WriteFile(runOutput, result.Detections); err != nil {
		return err
	}
	logger.Info("events written", "path", runOutput, "count", len(result.Detections))

	if runShowDigest {
		digest, err := json.MarshalIndent(report.Summarize(result.Detections), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(digest))
	}
	return nil
}

func buildConfigManager(cfg *config.Config) (*config.Manager, error) {
	if cfgFile == "" {
		return config.NewStaticManager(cfg), nil
	}
	return config.NewManager(config.ResolvePath(cfgFile))
}

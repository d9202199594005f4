package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shelfguard/internal/alerts"
	"shelfguard/internal/api"
	"shelfguard/internal/config"
	"shelfguard/internal/engine"
	"shelfguard/internal/ingest"
	"shelfguard/internal/logging"
	"shelfguard/internal/metrics"
	"shelfguard/internal/model"
	"shelfguard/internal/storage"
)

var (
	serveDataDir  string
	serveInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a service with live ingest and the dashboard API",
	Long: `Loads the reference catalogs and any batch files, then keeps
collecting records from the configured live transports. Passes run on a
timer or on demand via POST /admin/run.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "input directory (overrides config)")
	serveCmd.Flags().DurationVar(&serveInterval, "interval", 30*time.Second, "periodic pass interval (0 disables)")
	rootCmd.AddCommand(serveCmd)
}

// passRunner couples the engine with the live accumulator so the API can
// trigger passes over a consistent snapshot.
type passRunner struct {
	eng *engine.Engine
	acc *ingest.Accumulator
}

func (r *passRunner) Reset() { r.eng.Reset() }

func (r *passRunner) UpdateConfig(cfg *config.Config) { r.eng.UpdateConfig(cfg) }

func (r *passRunner) RunNow(ctx context.Context) (*engine.PassResult, error) {
	return r.eng.RunPass(ctx, r.acc.Snapshot())
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveDataDir != "" {
		cfg.Ingest.DataDir = serveDataDir
	}
	logger := logging.NewLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	manager, err := buildConfigManager(cfg)
	if err != nil {
		return err
	}
	cfg = manager.Get()

	base, err := ingest.NewLoader(cfg.Ingest, logger).Load()
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

	metricsStore := metrics.NewStore(cfg.Metrics.StoreLimit)
	eventsStore := alerts.NewStore(cfg.Detections.StoreLimit)
	eng := engine.NewEngine(cfg, logger, metricsStore, eventsStore, store)

	acc := ingest.NewAccumulator(base)
	records := make(chan model.Record, cfg.Ingest.ChannelBuffer)
	go acc.Run(ctx, records)

	var seq atomic.Int64
	seq.Store(maxSeq(base))
	ingest.StartStream(ctx, manager, records, &seq, logger)
	ingest.StartKafka(ctx, manager, records, &seq, logger)

	runner := &passRunner{eng: eng, acc: acc}
	server := api.Start(ctx, manager, metricsStore, eventsStore, runner, logger, version)

	if manager.Path() != "" {
		go manager.Watch(3*time.Second,
			func(next *config.Config) {
				eng.UpdateConfig(next)
				logger.Info("config reloaded", "path", manager.Path())
			},
			func(err error) {
				logger.Warn("config reload failed", "err", err)
			},
			ctx.Done(),
		)
	}

	if serveInterval > 0 {
		go func() {
			ticker := time.NewTicker(serveInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if _, err := runner.RunNow(ctx); err != nil && ctx.Err() == nil {
						logger.Warn("periodic pass failed", "err", err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	logger.Info("shelfguard running", "version", version)
	<-ctx.Done()
	logger.Info("shutting down")
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	return nil
}

func maxSeq(ds *ingest.Dataset) int64 {
	var max int64
	for _, rec := range ds.Records() {
		if rec.Seq > max {
			max = rec.Seq
		}
	}
	return max
}

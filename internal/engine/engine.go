// Package engine runs one correlation pass over a materialized dataset:
// per-record rules, then aggregation, then a deterministic merge.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"shelfguard/internal/aggregate"
	"shelfguard/internal/alerts"
	"shelfguard/internal/config"
	"shelfguard/internal/correlate"
	"shelfguard/internal/ingest"
	"shelfguard/internal/metrics"
	"shelfguard/internal/model"
	"shelfguard/internal/rules"
	"shelfguard/internal/storage"
)

type Engine struct {
	logger     *slog.Logger
	metrics    *metrics.Store
	detections *alerts.Store
	store      storage.Store
	cfg        atomic.Value
}

// PassResult is the outcome of one batch pass. Detections are sorted by
// timestamp; order among detections sharing a timestamp is deterministic
// but not part of the contract.
type PassResult struct {
	RunID      string            `json:"run_id"`
	Started    time.Time         `json:"started"`
	Finished   time.Time         `json:"finished"`
	Detections []model.Detection `json:"detections"`
	Counts     map[string]int    `json:"counts"`
}

func NewEngine(cfg *config.Config, logger *slog.Logger, metricsStore *metrics.Store, detectionsStore *alerts.Store, store storage.Store) *Engine {
	e := &Engine{
		logger:     logger,
		metrics:    metricsStore,
		detections: detectionsStore,
		store:      store,
	}
	e.cfg.Store(cfg)
	return e
}

func (e *Engine) UpdateConfig(cfg *config.Config) {
	e.cfg.Store(cfg)
}

func (e *Engine) config() *config.Config {
	if v := e.cfg.Load(); v != nil {
		return v.(*config.Config)
	}
	return config.DefaultConfig()
}

// RunPass evaluates every rule over the dataset. Rules are independent
// and run concurrently; the merge re-establishes a deterministic order.
// A rule that fails contributes zero detections and never aborts the pass.
func (e *Engine) RunPass(ctx context.Context, ds *ingest.Dataset) (*PassResult, error) {
	if ds == nil {
		return nil, fmt.Errorf("nil dataset")
	}
	cfg := e.config()
	started := time.Now().UTC()
	runID := uuid.NewString()

	posIndex := correlate.NewIndex(ds.POS)
	rfidIndex := correlate.NewIndex(ds.RFID)
	visionIndex := correlate.NewIndex(ds.Vision)
	ruleSet := rules.New(cfg.Rules, ds.Products)

	evaluations := []struct {
		name string
		eval func() []model.Detection
	}{
		{"scanner_avoidance", func() []model.Detection { return ruleSet.ScannerAvoidance(ds.RFID, posIndex) }},
		{"barcode_switching", func() []model.Detection { return ruleSet.BarcodeSwitching(ds.Vision, posIndex) }},
		{"weight_discrepancy", func() []model.Detection { return ruleSet.WeightDiscrepancies(ds.POS) }},
		{"long_queue", func() []model.Detection { return ruleSet.LongQueues(ds.Queue) }},
		{"long_wait", func() []model.Detection { return ruleSet.LongWaits(ds.Queue) }},
		{"staffing_needs", func() []model.Detection { return ruleSet.StaffingNeeds(ds.Queue) }},
		{"system_crash", func() []model.Detection { return ruleSet.SystemCrashes(ds.Records()) }},
		{"inventory_discrepancy", func() []model.Detection { return ruleSet.InventoryDiscrepancies(ds.Snapshots, ds.POS, ds.RFID) }},
		{"success", func() []model.Detection { return ruleSet.Successes(ds.POS, rfidIndex, visionIndex) }},
	}

	results := make([][]model.Detection, len(evaluations))
	var wg sync.WaitGroup
	for i := range evaluations {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.runRule(evaluations[i].name, evaluations[i].eval)
		}(i)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Primary fraud detections feed the customer aggregation. Merge in
	// the fixed rule order so the pre-sort order is reproducible.
	all := make([]model.Detection, 0)
	fraud := make([]model.Detection, 0)
	for i, detections := range results {
		all = append(all, detections...)
		switch evaluations[i].name {
		case "scanner_avoidance", "barcode_switching", "weight_discrepancy":
			fraud = append(fraud, detections...)
		}
	}

	agg := aggregate.New(cfg.Aggregation, cfg.Rules)
	all = append(all, e.runRule("high_risk_customer", func() []model.Detection {
		return agg.HighRiskCustomers(fraud)
	})...)
	all = append(all, e.runRule("station_performance", func() []model.Detection {
		return agg.StationAlerts(ds.Queue)
	})...)

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})

	counts := make(map[string]int)
	for _, det := range all {
		counts[string(det.Kind)]++
	}

	if e.metrics != nil {
		e.metrics.Record(all)
	}
	if e.detections != nil {
		e.detections.AddAll(all)
	}

	result := &PassResult{
		RunID:      runID,
		Started:    started,
		Finished:   time.Now().UTC(),
		Detections: all,
		Counts:     counts,
	}

	if e.store != nil {
		if err := e.store.SaveRun(ctx, storage.RunRecord{
			RunID:      runID,
			Started:    result.Started,
			Finished:   result.Finished,
			Detections: len(all),
		}); err != nil && e.logger != nil {
			e.logger.Warn("persist run failed", "run_id", runID, "err", err)
		}
		if err := e.store.SaveDetections(ctx, runID, all); err != nil && e.logger != nil {
			e.logger.Warn("persist detections failed", "run_id", runID, "err", err)
		}
	}

	if e.logger != nil {
		e.logger.Info("pass complete",
			"run_id", runID,
			"detections", len(all),
			"elapsed", result.Finished.Sub(result.Started),
		)
	}
	return result, nil
}

// runRule isolates one rule evaluation. Rules are fail-soft: a panic is
// logged and the rule contributes nothing.
func (e *Engine) runRule(name string, eval func() []model.Detection) (out []model.Detection) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			if e.logger != nil {
				e.logger.Warn("rule evaluation failed", "rule", name, "panic", r)
			}
		}
	}()
	return eval()
}

func (e *Engine) Reset() {
	if e.metrics != nil {
		e.metrics.Clear()
	}
	if e.detections != nil {
		e.detections.Clear()
	}
}

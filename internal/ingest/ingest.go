// Package ingest materializes station event streams and reference
// catalogs into datasets the engine can correlate.
package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"shelfguard/internal/model"
)

func SendNonBlocking(ctx context.Context, out chan<- model.Record, rec model.Record, logger *slog.Logger) bool {
	select {
	case out <- rec:
		return true
	case <-ctx.Done():
		return false
	default:
		if logger != nil {
			logger.Warn("record channel full, dropping record", "station_id", rec.StationID, "source", rec.Source, "timestamp", rec.Timestamp)
		}
		return false
	}
}

func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// Accumulator gathers records arriving from live transports so that
// passes can run over a consistent snapshot while collection continues.
type Accumulator struct {
	mu sync.Mutex
	ds *Dataset
}

func NewAccumulator(base *Dataset) *Accumulator {
	if base == nil {
		base = &Dataset{
			Products:  make(map[string]model.Product),
			Customers: make(map[string]model.Customer),
		}
	}
	return &Accumulator{ds: base}
}

// Run drains records from in until the context ends or the channel closes.
func (a *Accumulator) Run(ctx context.Context, in <-chan model.Record) {
	for {
		select {
		case rec, ok := <-in:
			if !ok {
				return
			}
			a.mu.Lock()
			a.ds.add(rec)
			a.mu.Unlock()
		case <-ctx.Done():
			return
		}
	}
}

// Snapshot copies the accumulated streams. Catalogs are shared; they are
// read-only reference data.
func (a *Accumulator) Snapshot() *Dataset {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := &Dataset{
		POS:       append([]model.Record(nil), a.ds.POS...),
		RFID:      append([]model.Record(nil), a.ds.RFID...),
		Vision:    append([]model.Record(nil), a.ds.Vision...),
		Queue:     append([]model.Record(nil), a.ds.Queue...),
		Snapshots: append([]model.Record(nil), a.ds.Snapshots...),
		Products:  a.ds.Products,
		Customers: a.ds.Customers,
		Skipped:   a.ds.Skipped,
	}
	return out
}

package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync/atomic"
	"time"

	"shelfguard/internal/config"
	"shelfguard/internal/model"
)

type streamBanner struct {
	Service     string   `json:"service"`
	Datasets    []string `json:"datasets"`
	TotalEvents int      `json:"total_events"`
	Looping     bool     `json:"looping"`
	SpeedFactor float64  `json:"speed_factor"`
}

// StartStream connects to the station stream server and forwards decoded
// records to out. The server sends one banner line followed by JSONL
// envelopes. Reconnects with backoff until the context is cancelled.
func StartStream(ctx context.Context, cfg *config.Manager, out chan<- model.Record, seq *atomic.Int64, logger *slog.Logger) {
	current := cfg.Get().Ingest.Stream
	if !current.Enabled {
		if logger != nil {
			logger.Info("stream ingest disabled")
		}
		return
	}
	if logger != nil {
		logger.Info("stream ingest enabled", "addr", current.Addr)
	}
	go func() {
		for ctx.Err() == nil {
			if err := consumeStream(ctx, current, out, seq, logger); err != nil && logger != nil {
				logger.Warn("stream connection lost", "err", err)
			}
			if !BackoffSleep(ctx, 2*time.Second) {
				return
			}
		}
	}()
}

func consumeStream(ctx context.Context, cfg config.StreamConfig, out chan<- model.Record, seq *atomic.Int64, logger *slog.Logger) error {
	dialer := net.Dialer{Timeout: 10 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", cfg.Addr)
	if err != nil {
		return err
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 8192), 4*1024*1024)

	if scanner.Scan() {
		var banner streamBanner
		if err := json.Unmarshal(scanner.Bytes(), &banner); err == nil && logger != nil {
			logger.Info("stream connected",
				"service", banner.Service,
				"datasets", banner.Datasets,
				"total_events", banner.TotalEvents,
				"looping", banner.Looping,
				"speed_factor", banner.SpeedFactor,
			)
		}
	}

	count := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		rec, err := DecodeEnvelope(line, seq.Add(1))
		if err != nil {
			if logger != nil {
				logger.Debug("stream decode error", "err", err)
			}
			continue
		}
		SendNonBlocking(ctx, out, rec, logger)
		count++
		if cfg.Limit > 0 && count >= cfg.Limit {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
	return scanner.Err()
}

package ingest

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/segmentio/kafka-go"

	"shelfguard/internal/config"
	"shelfguard/internal/model"
)

// StartKafka consumes envelope messages from a kafka topic and forwards
// decoded records to out.
func StartKafka(ctx context.Context, cfg *config.Manager, out chan<- model.Record, seq *atomic.Int64, logger *slog.Logger) {
	current := cfg.Get().Ingest.Kafka
	if !current.Enabled {
		if logger != nil {
			logger.Info("kafka ingest disabled")
		}
		return
	}
	if logger != nil {
		logger.Info("kafka ingest enabled", "brokers", current.Brokers, "topic", current.Topic, "group_id", current.GroupID)
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  current.Brokers,
		Topic:    current.Topic,
		GroupID:  current.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
	go func() {
		defer reader.Close()
		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if logger != nil {
					logger.Warn("kafka read error", "err", err)
				}
				continue
			}
			rec, err := DecodeEnvelope(m.Value, seq.Add(1))
			if err != nil {
				if logger != nil {
					logger.Debug("kafka decode error", "err", err)
				}
				continue
			}
			SendNonBlocking(ctx, out, rec, logger)
		}
	}()
}

// Package worker implements the Telemetry Worker Pool (§4.H): a fixed
// number of consumer-group members that batch, expand, and insert
// telemetry, handing each batch to the Alert Evaluator before the insert
// commits.
package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vigilia-platform/iotcore/internal/db"
	"github.com/vigilia-platform/iotcore/internal/logging"
	"github.com/vigilia-platform/iotcore/internal/metrics"
	"github.com/vigilia-platform/iotcore/internal/model"
	"github.com/vigilia-platform/iotcore/internal/realtime"
	"github.com/vigilia-platform/iotcore/internal/streambuf"
)

// Evaluator is the Alert Evaluator surface the pool hands each batch to.
// EvaluateBatch returns no error and flush recovers any panic from it, so
// a failing evaluator never fails telemetry ingestion.
type Evaluator interface {
	EvaluateBatch(ctx context.Context, records []model.Record)
}

// Config tunes batch accumulation and stale-entry reclaim.
type Config struct {
	Workers      int
	BatchSize    int
	BatchTimeout time.Duration
	// ClaimIdle is both the XAUTOCLAIM minimum idle time and the sweep
	// interval: a pending entry untouched for this long is assumed to
	// belong to a crashed consumer.
	ClaimIdle time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 1000
	}
	if c.BatchTimeout <= 0 {
		c.BatchTimeout = 5 * time.Second
	}
	if c.ClaimIdle <= 0 {
		c.ClaimIdle = 30 * time.Second
	}
	return c
}

// Pool runs Config.Workers consumer-group members against the telemetry
// stream.
type Pool struct {
	cfg       Config
	stream    *streambuf.Client
	telemetry *db.TelemetryRepo
	evaluator Evaluator
	bus       realtime.Publisher
	metrics   *metrics.Registry
	log       *logging.Logger

	wg sync.WaitGroup
}

func NewPool(cfg Config, stream *streambuf.Client, telemetry *db.TelemetryRepo, evaluator Evaluator, bus realtime.Publisher, reg *metrics.Registry, log *logging.Logger) *Pool {
	return &Pool{
		cfg:       cfg.withDefaults(),
		stream:    stream,
		telemetry: telemetry,
		evaluator: evaluator,
		bus:       bus,
		metrics:   reg,
		log:       log.WithComponent("worker"),
	}
}

// Run starts every worker and blocks until ctx is cancelled, then waits
// for each worker to finish its final flush.
func (p *Pool) Run(ctx context.Context) error {
	if err := p.stream.EnsureGroup(ctx); err != nil {
		return err
	}

	for i := 0; i < p.cfg.Workers; i++ {
		consumer := "worker-" + uuid.NewString()
		p.wg.Add(1)
		go func(consumer string) {
			defer p.wg.Done()
			p.runWorker(ctx, consumer)
		}(consumer)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.reclaimLoop(ctx)
	}()

	p.wg.Wait()
	return nil
}

// reclaimLoop periodically XAUTOCLAIMs pending entries idle longer than
// ClaimIdle — the crashed-worker recovery path. A member that dies between
// XREADGROUP and XACK leaves its batch in the PEL forever otherwise.
func (p *Pool) reclaimLoop(ctx context.Context) {
	consumer := "reclaimer-" + uuid.NewString()
	log := p.log.With("consumer", consumer)

	ticker := time.NewTicker(p.cfg.ClaimIdle)
	defer ticker.Stop()

	start := "0-0"
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start = p.reclaim(ctx, consumer, start, log)
		}
	}
}

// reclaim runs one XAUTOCLAIM cursor step and flushes whatever it claims
// through the normal batch pipeline, then ACKs and returns the next cursor.
func (p *Pool) reclaim(ctx context.Context, consumer, start string, log *logging.Logger) string {
	messages, next, err := p.stream.Raw().XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   streambuf.StreamKey,
		Group:    streambuf.ConsumerGroup,
		MinIdle:  p.cfg.ClaimIdle,
		Start:    start,
		Count:    100,
		Consumer: consumer,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			log.Warn("xautoclaim failed", "error", err)
		}
		return start
	}

	var batch []pending
	for _, msg := range messages {
		rec, ok := decodeRecord(msg, log)
		if !ok {
			continue
		}
		batch = append(batch, pending{streamID: msg.ID, record: rec})
	}
	if len(batch) > 0 {
		log.Warn("reclaiming stale pending telemetry entries", "count", len(batch))
		if p.metrics != nil {
			p.metrics.ClaimedStaleTotal.Add(float64(len(batch)))
		}
		p.flush(ctx, batch, log)
	}

	// XAUTOCLAIM wraps the PEL scan back to "0-0" once it has covered
	// every pending entry; resuming from there next tick re-scans from
	// the start, which is what we want for a recurring sweep.
	return next
}

type pending struct {
	streamID string
	record   model.Record
}

func (p *Pool) runWorker(ctx context.Context, consumer string) {
	log := p.log.With("consumer", consumer)
	var batch []pending
	lastFlush := time.Now()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		p.flush(ctx, batch, log)
		batch = nil
		lastFlush = time.Now()
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		default:
		}

		entries, err := p.stream.Raw().XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    streambuf.ConsumerGroup,
			Consumer: consumer,
			Streams:  []string{streambuf.StreamKey, ">"},
			Count:    100,
			Block:    1000 * time.Millisecond,
		}).Result()

		if err != nil && err != redis.Nil {
			if ctx.Err() != nil {
				flush()
				return
			}
			log.Warn("xreadgroup failed", "error", err)
		}

		for _, stream := range entries {
			for _, msg := range stream.Messages {
				rec, ok := decodeRecord(msg, log)
				if !ok {
					continue
				}
				batch = append(batch, pending{streamID: msg.ID, record: rec})
			}
		}

		expanded := expandedRowCount(batch)
		if expanded >= p.cfg.BatchSize || (len(batch) > 0 && time.Since(lastFlush) >= p.cfg.BatchTimeout) {
			flush()
		}
	}
}

func decodeRecord(msg redis.XMessage, log *logging.Logger) (model.Record, bool) {
	raw, ok := msg.Values["payload"].(string)
	if !ok {
		log.Warn("telemetry stream entry missing payload field", "id", msg.ID)
		return model.Record{}, false
	}
	var rec model.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		log.Warn("failed to decode telemetry record", "id", msg.ID, "error", err)
		return model.Record{}, false
	}
	return rec, true
}

func expandedRowCount(batch []pending) int {
	n := 0
	for _, p := range batch {
		n += len(p.record.Metrics)
	}
	return n
}

// flush expands the batch into narrow rows, runs the evaluator, inserts,
// and ACKs only on insert success.
func (p *Pool) flush(ctx context.Context, batch []pending, log *logging.Logger) {
	start := time.Now()
	records := make([]model.Record, len(batch))
	var rows []model.Row
	for i, item := range batch {
		records[i] = item.record
		ts := item.record.ServerTimestamp
		for name, value := range item.record.Metrics {
			rows = append(rows, model.RowFromValue(ts, item.record.DeviceID, name, value))
		}
	}

	if p.metrics != nil {
		defer func() {
			p.metrics.BatchFlushDuration.Observe(time.Since(start).Seconds())
			p.metrics.BatchFlushRows.Observe(float64(len(rows)))
		}()
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Warn("alert evaluator panicked, batch insert continues", "panic", r)
			}
		}()
		p.evaluator.EvaluateBatch(ctx, records)
	}()

	if err := p.telemetry.InsertBatch(ctx, rows); err != nil {
		log.Warn("telemetry batch insert failed, leaving entries pending", "count", len(batch), "error", err)
		return
	}

	ids := make([]string, len(batch))
	for i, item := range batch {
		ids[i] = item.streamID
	}
	if err := p.stream.Raw().XAck(ctx, streambuf.StreamKey, streambuf.ConsumerGroup, ids...).Err(); err != nil {
		log.Warn("xack failed", "error", err)
	}

	if p.bus == nil {
		return
	}
	for _, item := range batch {
		room := "device:" + item.record.DeviceID.String()
		for name, value := range item.record.Metrics {
			event := map[string]any{
				"device_id": item.record.DeviceID,
				"metric":    name,
				"value":     value.Raw(),
				"timestamp": item.record.ServerTimestamp,
			}
			if err := p.bus.Publish(ctx, room, "telemetry:data", event); err != nil {
				log.Warn("realtime telemetry publish failed", "error", err)
			}
		}
	}
}

package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/model"
)

// TelemetryRepo batch-inserts narrow telemetry rows and serves query reads.
type TelemetryRepo struct {
	pool *Pool
}

func NewTelemetryRepo(pool *Pool) *TelemetryRepo { return &TelemetryRepo{pool: pool} }

// InsertBatch queues one INSERT per row in a single pgx.Batch sent inside
// one transaction, so the rows commit or roll back together; duplicate
// primary keys (time, device_id, metric_name)
// collide harmlessly, which is how retried worker flushes stay idempotent.
func (r *TelemetryRepo) InsertBatch(ctx context.Context, rows []model.Row) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, errors.KindUnavailable, "beginning telemetry batch transaction")
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO device_telemetry (time, device_id, metric_name, value_numeric, value_string, value_bool)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (time, device_id, metric_name) DO NOTHING`,
			row.Time, row.DeviceID, row.MetricName, row.ValueNumeric, row.ValueString, row.ValueBool)
	}

	br := tx.SendBatch(ctx, batch)
	for range rows {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return errors.Wrap(err, errors.KindUnavailable, "inserting telemetry row")
		}
	}
	if err := br.Close(); err != nil {
		return errors.Wrap(err, errors.KindUnavailable, "closing telemetry batch")
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, errors.KindUnavailable, "committing telemetry batch")
	}
	return nil
}

// Aggregation selects raw rows or one of the continuous aggregates.
type Aggregation string

const (
	AggregationRaw    Aggregation = "raw"
	AggregationHourly Aggregation = "hourly"
	AggregationDaily  Aggregation = "daily"
)

// QueryRow is one returned telemetry sample, raw or bucketed.
type QueryRow struct {
	Time         time.Time
	MetricName   string
	ValueNumeric *float64
	ValueString  *string
	ValueBool    *bool
	Avg, Min, Max *float64
	Count        *int64
}

// Query reads telemetry for a device, either raw (DESC by time) or bucketed
// (ASC by bucket) from the hourly/daily continuous aggregate.
func (r *TelemetryRepo) Query(ctx context.Context, deviceID uuid.UUID, metricName string, start, end time.Time, agg Aggregation, limit, offset int) ([]QueryRow, error) {
	var sql string
	switch agg {
	case AggregationHourly:
		sql = `SELECT bucket, metric_name, avg_value, min_value, max_value, reading_count
		       FROM device_telemetry_hourly
		       WHERE device_id=$1 AND metric_name=$2 AND bucket BETWEEN $3 AND $4
		       ORDER BY bucket ASC LIMIT $5 OFFSET $6`
	case AggregationDaily:
		sql = `SELECT bucket, metric_name, avg_value, min_value, max_value, reading_count
		       FROM device_telemetry_daily
		       WHERE device_id=$1 AND metric_name=$2 AND bucket BETWEEN $3 AND $4
		       ORDER BY bucket ASC LIMIT $5 OFFSET $6`
	default:
		sql = `SELECT time, metric_name, value_numeric, value_string, value_bool
		       FROM device_telemetry
		       WHERE device_id=$1 AND metric_name=$2 AND time BETWEEN $3 AND $4
		       ORDER BY time DESC LIMIT $5 OFFSET $6`
	}

	rows, err := r.pool.Query(ctx, sql, deviceID, metricName, start, end, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "querying telemetry")
	}
	defer rows.Close()

	var out []QueryRow
	for rows.Next() {
		var qr QueryRow
		if agg == AggregationRaw {
			if err := rows.Scan(&qr.Time, &qr.MetricName, &qr.ValueNumeric, &qr.ValueString, &qr.ValueBool); err != nil {
				return nil, errors.Wrap(err, errors.KindInternal, "scanning raw telemetry row")
			}
		} else {
			var count int64
			if err := rows.Scan(&qr.Time, &qr.MetricName, &qr.Avg, &qr.Min, &qr.Max, &count); err != nil {
				return nil, errors.Wrap(err, errors.KindInternal, "scanning aggregated telemetry row")
			}
			qr.Count = &count
		}
		out = append(out, qr)
	}
	return out, rows.Err()
}

// DistinctMetrics lists every metric name recorded for a device.
func (r *TelemetryRepo) DistinctMetrics(ctx context.Context, deviceID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT metric_name FROM device_telemetry WHERE device_id = $1 ORDER BY metric_name`, deviceID)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "listing distinct metrics")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "scanning metric name")
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

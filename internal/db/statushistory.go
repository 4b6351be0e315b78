package db

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/model"
)

// StatusHistoryRepo records device status transitions, one append-only row
// per K-detected offline transition and per registration activation.
type StatusHistoryRepo struct {
	pool *Pool
}

func NewStatusHistoryRepo(pool *Pool) *StatusHistoryRepo { return &StatusHistoryRepo{pool: pool} }

// Record inserts one transition row.
func (r *StatusHistoryRepo) Record(ctx context.Context, deviceID uuid.UUID, oldStatus *model.DeviceStatus, newStatus model.DeviceStatus, reason string, connQuality *int, changedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO device_status_history (device_id, old_status, new_status, changed_at, reason, connection_quality)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		deviceID, oldStatus, newStatus, changedAt, nullableString(reason), connQuality)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "recording status history")
	}
	return nil
}

// Recent returns the most recent transitions for a device, newest first.
func (r *StatusHistoryRepo) Recent(ctx context.Context, deviceID uuid.UUID, limit int) ([]*model.StatusHistory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, device_id, old_status, new_status, changed_at, reason, connection_quality
		FROM device_status_history WHERE device_id = $1 ORDER BY changed_at DESC LIMIT $2`, deviceID, limit)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "listing status history")
	}
	defer rows.Close()

	var out []*model.StatusHistory
	for rows.Next() {
		var h model.StatusHistory
		var reason *string
		if err := rows.Scan(&h.ID, &h.DeviceID, &h.OldStatus, &h.NewStatus, &h.ChangedAt, &reason, &h.ConnectionQuality); err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "scanning status history row")
		}
		if reason != nil {
			h.Reason = *reason
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

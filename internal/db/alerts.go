package db

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/model"
)

// AlertRepo persists alerts raised by the evaluator and exposes the
// acknowledge/resolve/dismiss transitions for external collaborators.
type AlertRepo struct {
	pool *Pool
}

func NewAlertRepo(pool *Pool) *AlertRepo { return &AlertRepo{pool: pool} }

// Create inserts a new pending alert.
func (r *AlertRepo) Create(ctx context.Context, a *model.Alert) error {
	payload, err := json.Marshal(nonNilMap(a.RawPayload))
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshaling alert payload")
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO alerts
			(source, severity, status, alert_type, title, description, device_id,
			 building_id, floor_plan_id, raw_payload, occurrence_count, last_occurrence, received_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id, created_at, updated_at`,
		a.Source, a.Severity, model.AlertPending, a.AlertType, a.Title, a.Description, a.DeviceID,
		a.BuildingID, a.FloorPlanID, payload, a.OccurrenceCount, a.LastOccurrence, a.ReceivedAt,
	)
	a.Status = model.AlertPending
	if err := row.Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return errors.Wrap(err, errors.KindInternal, "inserting alert")
	}
	return nil
}

// Recent lists the most recently received alerts, optionally filtered.
func (r *AlertRepo) Recent(ctx context.Context, limit int, severity string, deviceID *uuid.UUID) ([]*model.Alert, error) {
	sql := `SELECT id, source, severity, status, alert_type, title, description, device_id,
	               building_id, floor_plan_id, raw_payload, occurrence_count, last_occurrence,
	               assigned_to, received_at, acknowledged_at, processed_at, created_at, updated_at
	        FROM alerts WHERE ($2 = '' OR severity = $2) AND ($3::uuid IS NULL OR device_id = $3)
	        ORDER BY received_at DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, sql, limit, severity, deviceID)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "listing recent alerts")
	}
	defer rows.Close()

	var out []*model.Alert
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Acknowledge moves an alert to acknowledged and stamps acknowledged_at.
func (r *AlertRepo) Acknowledge(ctx context.Context, id uuid.UUID, assignedTo *uuid.UUID) error {
	return r.transition(ctx, id, model.AlertAcknowledged, "acknowledged_at", assignedTo)
}

// Resolve moves an alert to resolved and stamps processed_at.
func (r *AlertRepo) Resolve(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, model.AlertResolved, "processed_at", nil)
}

// Dismiss moves an alert to dismissed and stamps processed_at.
func (r *AlertRepo) Dismiss(ctx context.Context, id uuid.UUID) error {
	return r.transition(ctx, id, model.AlertDismissed, "processed_at", nil)
}

// Reassign sets assigned_to without changing status.
func (r *AlertRepo) Reassign(ctx context.Context, id, assignedTo uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE alerts SET assigned_to = $2, updated_at = now() WHERE id = $1`, id, assignedTo)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "reassigning alert")
	}
	return nil
}

func (r *AlertRepo) transition(ctx context.Context, id uuid.UUID, status model.AlertStatus, timestampCol string, assignedTo *uuid.UUID) error {
	sql := `UPDATE alerts SET status = $2, ` + timestampCol + ` = now(), updated_at = now()`
	args := []any{id, status}
	if assignedTo != nil {
		sql += `, assigned_to = $3`
		args = append(args, *assignedTo)
	}
	sql += ` WHERE id = $1`

	_, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "transitioning alert status")
	}
	return nil
}

func scanAlert(s rowScanner) (*model.Alert, error) {
	var a model.Alert
	var payload []byte
	if err := s.Scan(
		&a.ID, &a.Source, &a.Severity, &a.Status, &a.AlertType, &a.Title, &a.Description, &a.DeviceID,
		&a.BuildingID, &a.FloorPlanID, &payload, &a.OccurrenceCount, &a.LastOccurrence,
		&a.AssignedTo, &a.ReceivedAt, &a.AcknowledgedAt, &a.ProcessedAt, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.KindNotFound, "alert not found")
		}
		return nil, errors.Wrap(err, errors.KindInternal, "scanning alert row")
	}
	if err := json.Unmarshal(payload, &a.RawPayload); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "decoding alert payload")
	}
	return &a, nil
}

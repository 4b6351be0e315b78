package db

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/model"
)

// TwinRepo persists the {desired, reported} configuration pair.
type TwinRepo struct {
	pool *Pool
}

func NewTwinRepo(pool *Pool) *TwinRepo { return &TwinRepo{pool: pool} }

// GetOrCreate loads a device's twin, lazily inserting an empty one if
// missing — GetTwin never 404s.
func (r *TwinRepo) GetOrCreate(ctx context.Context, deviceID uuid.UUID) (*model.DeviceTwin, error) {
	t, err := r.get(ctx, deviceID)
	if err == nil {
		return t, nil
	}
	if errors.GetKind(err) != errors.KindNotFound {
		return nil, err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO device_twins (device_id) VALUES ($1)
		ON CONFLICT (device_id) DO NOTHING`, deviceID)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "creating empty twin")
	}
	return r.get(ctx, deviceID)
}

func (r *TwinRepo) get(ctx context.Context, deviceID uuid.UUID) (*model.DeviceTwin, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT device_id, desired_config, desired_version, desired_updated_at,
		       reported_config, reported_version, reported_updated_at, is_synced,
		       created_at, updated_at
		FROM device_twins WHERE device_id = $1`, deviceID)

	var t model.DeviceTwin
	var desired, reported []byte
	if err := row.Scan(
		&t.DeviceID, &desired, &t.DesiredVersion, &t.DesiredUpdatedAt,
		&reported, &t.ReportedVersion, &t.ReportedUpdatedAt, &t.IsSynced,
		&t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.KindNotFound, "twin not found")
		}
		return nil, errors.Wrap(err, errors.KindInternal, "loading twin")
	}
	if err := json.Unmarshal(desired, &t.DesiredConfig); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "decoding desired config")
	}
	if err := json.Unmarshal(reported, &t.ReportedConfig); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "decoding reported config")
	}
	return &t, nil
}

// UpdateDesired persists a bumped desired_config/version atomically,
// guarding against a concurrent writer with an optimistic version check.
func (r *TwinRepo) UpdateDesired(ctx context.Context, t *model.DeviceTwin) error {
	desired, err := json.Marshal(nonNilMap(t.DesiredConfig))
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshaling desired config")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE device_twins SET
			desired_config=$2, desired_version=$3, desired_updated_at=$4,
			is_synced=$5, updated_at=now()
		WHERE device_id = $1 AND desired_version = $3 - 1`,
		t.DeviceID, desired, t.DesiredVersion, t.DesiredUpdatedAt, t.IsSynced)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "updating desired config")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.KindConflict, "desired config version conflict")
	}
	return nil
}

// UpdateReported persists a bumped reported_config/version, called only
// after the caller has confirmed reported_version > current.
func (r *TwinRepo) UpdateReported(ctx context.Context, t *model.DeviceTwin) error {
	reported, err := json.Marshal(nonNilMap(t.ReportedConfig))
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshaling reported config")
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE device_twins SET
			reported_config=$2, reported_version=$3, reported_updated_at=$4,
			is_synced=$5, updated_at=now()
		WHERE device_id = $1`,
		t.DeviceID, reported, t.ReportedVersion, t.ReportedUpdatedAt, t.IsSynced)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "updating reported config")
	}
	return nil
}

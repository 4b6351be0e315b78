package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/model"
)

// Querier is satisfied by both *Pool and pgx.Tx, letting repository
// methods run either standalone (through the circuit breaker) or inside a
// caller-managed transaction (the provisioning service needs the latter for
// its atomic device+credential commit).
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// DeviceRepo persists Device rows.
type DeviceRepo struct {
	pool *Pool
}

func NewDeviceRepo(pool *Pool) *DeviceRepo { return &DeviceRepo{pool: pool} }

// Create inserts a new device with provisioning_status=pending, status=offline.
func (r *DeviceRepo) Create(ctx context.Context, d *model.Device) error {
	return r.CreateWith(ctx, r.pool, d)
}

// CreateWith inserts a device using the given Querier, so callers can run it
// inside a transaction shared with a credential insert.
func (r *DeviceRepo) CreateWith(ctx context.Context, q Querier, d *model.Device) error {
	config, err := json.Marshal(nonNilMap(d.Config))
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshaling device config")
	}
	caps, err := json.Marshal(nonNilSlice(d.Capabilities))
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshaling device capabilities")
	}
	extra, err := json.Marshal(nonNilMap(d.MetadataExtra))
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshaling device metadata")
	}

	row := q.QueryRow(ctx, `
		INSERT INTO iot_devices
			(name, device_type, building_id, agency_id, profile_id, serial_number,
			 manufacturer, model, firmware_version, provisioning_status, status,
			 config, capabilities, metadata_extra)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id, created_at, updated_at`,
		d.Name, d.DeviceType, d.BuildingID, d.AgencyID, d.ProfileID, d.SerialNumber,
		d.Manufacturer, d.Model, d.FirmwareVersion, d.ProvisioningStatus, d.Status,
		config, caps, extra,
	)
	if err := row.Scan(&d.ID, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return errors.Wrap(err, errors.KindInternal, "inserting device")
	}
	return nil
}

// GetByID loads a non-deleted device.
func (r *DeviceRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Device, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, device_type, building_id, agency_id, profile_id,
		       serial_number, ip_address, mac_address, model, firmware_version,
		       manufacturer, status, last_seen, connection_quality,
		       provisioning_status, config, capabilities, metadata_extra,
		       created_at, updated_at, deleted_at
		FROM iot_devices WHERE id = $1 AND deleted_at IS NULL`, id)
	return scanDevice(row)
}

// UpdateStatus transitions status as a single statement on the pool. It
// writes no StatusHistory row; callers that record a transition do so with
// a separate StatusHistoryRepo.Record call, outside any shared transaction.
func (r *DeviceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.DeviceStatus, lastSeen *time.Time, connQuality *int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE iot_devices SET status=$2, last_seen=COALESCE($3, last_seen),
			connection_quality=COALESCE($4, connection_quality), updated_at=now()
		WHERE id = $1`, id, status, lastSeen, connQuality)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "updating device status")
	}
	return nil
}

// Activate flips provisioning_status to active and copies reported metadata,
// used by the Registration Handler.
func (r *DeviceRepo) Activate(ctx context.Context, id uuid.UUID, serial, firmware, mac string, now time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE iot_devices SET
			provisioning_status = 'active',
			status = 'online',
			last_seen = $2,
			serial_number = COALESCE(NULLIF($3, ''), serial_number),
			firmware_version = COALESCE(NULLIF($4, ''), firmware_version),
			mac_address = COALESCE(NULLIF($5, ''), mac_address),
			updated_at = now()
		WHERE id = $1`, id, now, serial, firmware, mac)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "activating device")
	}
	return nil
}

// ListStaleActive returns devices in online or alert status whose last_seen
// is unset or predates the cutoff, used by the health monitor sweep.
func (r *DeviceRepo) ListStaleActive(ctx context.Context, cutoff time.Time) ([]*model.Device, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, device_type, building_id, agency_id, profile_id,
		       serial_number, ip_address, mac_address, model, firmware_version,
		       manufacturer, status, last_seen, connection_quality,
		       provisioning_status, config, capabilities, metadata_extra,
		       created_at, updated_at, deleted_at
		FROM iot_devices
		WHERE deleted_at IS NULL
		  AND status IN ('online', 'alert')
		  AND (last_seen IS NULL OR last_seen < $1)`, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "listing stale devices")
	}
	defer rows.Close()

	var out []*model.Device
	for rows.Next() {
		d, err := scanDeviceRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountByStatus returns the number of non-deleted devices currently in the
// given status, used to drive the health monitor's online/offline gauges.
func (r *DeviceRepo) CountByStatus(ctx context.Context, status model.DeviceStatus) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM iot_devices
		WHERE deleted_at IS NULL AND status = $1`, status).Scan(&n)
	if err != nil {
		return 0, errors.Wrap(err, errors.KindInternal, "counting devices by status")
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row pgx.Row) (*model.Device, error) {
	d, err := scanDeviceRows(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.KindNotFound, "device not found")
		}
		return nil, err
	}
	return d, nil
}

func scanDeviceRows(s rowScanner) (*model.Device, error) {
	var d model.Device
	var config, caps, extra []byte
	if err := s.Scan(
		&d.ID, &d.Name, &d.DeviceType, &d.BuildingID, &d.AgencyID, &d.ProfileID,
		&d.SerialNumber, &d.IPAddress, &d.MACAddress, &d.Model, &d.FirmwareVersion,
		&d.Manufacturer, &d.Status, &d.LastSeen, &d.ConnectionQuality,
		&d.ProvisioningStatus, &config, &caps, &extra,
		&d.CreatedAt, &d.UpdatedAt, &d.DeletedAt,
	); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "scanning device row")
	}
	if err := json.Unmarshal(config, &d.Config); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "decoding device config")
	}
	if err := json.Unmarshal(caps, &d.Capabilities); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "decoding device capabilities")
	}
	if err := json.Unmarshal(extra, &d.MetadataExtra); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "decoding device metadata")
	}
	return &d, nil
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

package db

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/model"
)

// ProfileRepo is the Profile Registry's persistence layer.
type ProfileRepo struct {
	pool *Pool
}

func NewProfileRepo(pool *Pool) *ProfileRepo { return &ProfileRepo{pool: pool} }

// Create inserts a new profile.
func (r *ProfileRepo) Create(ctx context.Context, p *model.DeviceProfile) error {
	schema, rules, serverAttrs, clientAttrs, defCfg, err := marshalProfileJSON(p)
	if err != nil {
		return err
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO device_profiles
			(name, description, device_type, telemetry_schema, attributes_server,
			 attributes_client, alert_rules, default_config, is_default)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at`,
		p.Name, p.Description, p.DeviceType, schema, serverAttrs, clientAttrs, rules, defCfg, p.IsDefault,
	)
	if err := row.Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return errors.Wrap(err, errors.KindInternal, "inserting device profile")
	}
	return nil
}

// GetByID loads a non-deleted profile.
func (r *ProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.DeviceProfile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, device_type, telemetry_schema, attributes_server,
		       attributes_client, alert_rules, default_config, is_default, created_at, updated_at, deleted_at
		FROM device_profiles WHERE id = $1 AND deleted_at IS NULL`, id)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.KindNotFound, "profile not found")
		}
		return nil, err
	}
	return p, nil
}

// GetByName loads a profile by name regardless of soft-delete, used by Seed
// to check idempotency.
func (r *ProfileRepo) GetByName(ctx context.Context, name string) (*model.DeviceProfile, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, description, device_type, telemetry_schema, attributes_server,
		       attributes_client, alert_rules, default_config, is_default, created_at, updated_at, deleted_at
		FROM device_profiles WHERE name = $1`, name)
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.KindNotFound, "profile not found")
		}
		return nil, err
	}
	return p, nil
}

// List returns every non-deleted profile.
func (r *ProfileRepo) List(ctx context.Context) ([]*model.DeviceProfile, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, device_type, telemetry_schema, attributes_server,
		       attributes_client, alert_rules, default_config, is_default, created_at, updated_at, deleted_at
		FROM device_profiles WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "listing device profiles")
	}
	defer rows.Close()

	var out []*model.DeviceProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update replaces a profile's mutable fields.
func (r *ProfileRepo) Update(ctx context.Context, p *model.DeviceProfile) error {
	schema, rules, serverAttrs, clientAttrs, defCfg, err := marshalProfileJSON(p)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE device_profiles SET
			name=$2, description=$3, device_type=$4, telemetry_schema=$5,
			attributes_server=$6, attributes_client=$7, alert_rules=$8,
			default_config=$9, is_default=$10, updated_at=now()
		WHERE id = $1 AND deleted_at IS NULL`,
		p.ID, p.Name, p.Description, p.DeviceType, schema, serverAttrs, clientAttrs, rules, defCfg, p.IsDefault,
	)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "updating device profile")
	}
	return nil
}

// SoftDelete marks a profile deleted without disturbing devices that
// reference it; their profile_id simply dangles until admin action.
func (r *ProfileRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE device_profiles SET deleted_at = now() WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "soft-deleting device profile")
	}
	return nil
}

func marshalProfileJSON(p *model.DeviceProfile) (schema, rules, serverAttrs, clientAttrs, defCfg []byte, err error) {
	if schema, err = json.Marshal(p.TelemetrySchema); err != nil {
		return nil, nil, nil, nil, nil, errors.Wrap(err, errors.KindInternal, "marshaling telemetry schema")
	}
	if rules, err = json.Marshal(p.AlertRules); err != nil {
		return nil, nil, nil, nil, nil, errors.Wrap(err, errors.KindInternal, "marshaling alert rules")
	}
	if serverAttrs, err = json.Marshal(nonNilMap(p.AttributesServer)); err != nil {
		return nil, nil, nil, nil, nil, errors.Wrap(err, errors.KindInternal, "marshaling server attributes")
	}
	if clientAttrs, err = json.Marshal(nonNilMap(p.AttributesClient)); err != nil {
		return nil, nil, nil, nil, nil, errors.Wrap(err, errors.KindInternal, "marshaling client attributes")
	}
	if defCfg, err = json.Marshal(nonNilMap(p.DefaultConfig)); err != nil {
		return nil, nil, nil, nil, nil, errors.Wrap(err, errors.KindInternal, "marshaling default config")
	}
	return schema, rules, serverAttrs, clientAttrs, defCfg, nil
}

func scanProfile(s rowScanner) (*model.DeviceProfile, error) {
	var p model.DeviceProfile
	var schema, rules, serverAttrs, clientAttrs, defCfg []byte
	if err := s.Scan(
		&p.ID, &p.Name, &p.Description, &p.DeviceType, &schema, &serverAttrs,
		&clientAttrs, &rules, &defCfg, &p.IsDefault, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(schema, &p.TelemetrySchema); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "decoding telemetry schema")
	}
	if err := json.Unmarshal(rules, &p.AlertRules); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "decoding alert rules")
	}
	if err := json.Unmarshal(serverAttrs, &p.AttributesServer); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "decoding server attributes")
	}
	if err := json.Unmarshal(clientAttrs, &p.AttributesClient); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "decoding client attributes")
	}
	if err := json.Unmarshal(defCfg, &p.DefaultConfig); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "decoding default config")
	}
	return &p, nil
}

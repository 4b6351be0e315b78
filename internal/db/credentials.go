package db

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/model"
)

// CredentialRepo persists DeviceCredential rows — the credential store
// backing the broker auth hook and the provisioning service.
type CredentialRepo struct {
	pool *Pool
}

func NewCredentialRepo(pool *Pool) *CredentialRepo { return &CredentialRepo{pool: pool} }

// Put inserts or replaces the device's credential (1:1 with device).
func (r *CredentialRepo) Put(ctx context.Context, c *model.DeviceCredential) error {
	return r.PutWith(ctx, r.pool, c)
}

// PutWith inserts or replaces a credential using the given Querier, so
// callers can run it inside the same transaction as the device insert.
func (r *CredentialRepo) PutWith(ctx context.Context, q Querier, c *model.DeviceCredential) error {
	row := q.QueryRow(ctx, `
		INSERT INTO device_credentials
			(device_id, credential_type, access_token_hash, certificate_pem,
			 certificate_cn, certificate_expiry, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (device_id) DO UPDATE SET
			credential_type = EXCLUDED.credential_type,
			access_token_hash = EXCLUDED.access_token_hash,
			certificate_pem = EXCLUDED.certificate_pem,
			certificate_cn = EXCLUDED.certificate_cn,
			certificate_expiry = EXCLUDED.certificate_expiry,
			is_active = EXCLUDED.is_active,
			updated_at = now()
		RETURNING id, created_at, updated_at`,
		c.DeviceID, c.CredentialType, nullableString(c.AccessTokenHash), nullableString(c.CertificatePEM),
		nullableString(c.CertificateCN), c.CertificateExpiry, c.IsActive,
	)
	if err := row.Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return errors.Wrap(err, errors.KindInternal, "storing device credential")
	}
	return nil
}

// GetByDeviceID loads the active-or-not credential for a device.
func (r *CredentialRepo) GetByDeviceID(ctx context.Context, deviceID uuid.UUID) (*model.DeviceCredential, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, device_id, credential_type, COALESCE(access_token_hash, ''),
		       COALESCE(certificate_pem, ''), COALESCE(certificate_cn, ''),
		       certificate_expiry, is_active, last_used_at, created_at, updated_at
		FROM device_credentials WHERE device_id = $1`, deviceID)

	var c model.DeviceCredential
	if err := row.Scan(
		&c.ID, &c.DeviceID, &c.CredentialType, &c.AccessTokenHash,
		&c.CertificatePEM, &c.CertificateCN, &c.CertificateExpiry,
		&c.IsActive, &c.LastUsedAt, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errors.New(errors.KindNotFound, "credential not found")
		}
		return nil, errors.Wrap(err, errors.KindInternal, "loading device credential")
	}
	return &c, nil
}

// DeactivateByDeviceID flips is_active off without deleting the row, so the
// audit trail (last_used_at, certificate_cn) survives revocation.
func (r *CredentialRepo) DeactivateByDeviceID(ctx context.Context, deviceID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE device_credentials SET is_active = false, updated_at = now() WHERE device_id = $1`, deviceID)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "deactivating device credential")
	}
	return nil
}

// TouchLastUsed records a successful auth, best-effort from the broker's
// perspective: callers log but do not fail the auth decision on error.
func (r *CredentialRepo) TouchLastUsed(ctx context.Context, deviceID uuid.UUID, now time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE device_credentials SET last_used_at = $2 WHERE device_id = $1`, deviceID, now)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "touching credential last_used_at")
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

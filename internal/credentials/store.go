// Package credentials is the Credential Store (§4.B): persists per-device
// hashed access tokens or certificate material, and tracks last use for
// the broker auth hook.
package credentials

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/vigilia-platform/iotcore/internal/db"
	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/model"
)

// hashCost mirrors a bcrypt work factor comparable to cost 12.
const hashCost = 12

// Store wraps the credential repository with the hashing/verification
// logic the spec requires.
type Store struct {
	repo *db.CredentialRepo
}

func New(repo *db.CredentialRepo) *Store {
	return &Store{repo: repo}
}

// GenerateAccessToken produces 256 bits of CSPRNG entropy, base64-url
// encoded, and returns both the raw token (returned to the caller exactly
// once) and its bcrypt hash (the only thing persisted).
func GenerateAccessToken() (raw, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", errors.Wrap(err, errors.KindInternal, "generating access token entropy")
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)

	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), hashCost)
	if err != nil {
		return "", "", errors.Wrap(err, errors.KindInternal, "hashing access token")
	}
	return raw, string(hashed), nil
}

// Put inserts or replaces a device's credential.
func (s *Store) Put(ctx context.Context, c *model.DeviceCredential) error {
	return s.repo.Put(ctx, c)
}

// PutWith inserts or replaces a credential inside a caller-managed
// transaction, used by the provisioning service's atomic commit.
func (s *Store) PutWith(ctx context.Context, q db.Querier, c *model.DeviceCredential) error {
	return s.repo.PutWith(ctx, q, c)
}

// GetByDeviceID loads a device's credential.
func (s *Store) GetByDeviceID(ctx context.Context, deviceID uuid.UUID) (*model.DeviceCredential, error) {
	return s.repo.GetByDeviceID(ctx, deviceID)
}

// DeactivateByDeviceID revokes a device's credential without deleting it.
func (s *Store) DeactivateByDeviceID(ctx context.Context, deviceID uuid.UUID) error {
	return s.repo.DeactivateByDeviceID(ctx, deviceID)
}

// TouchLastUsed records a successful auth.
func (s *Store) TouchLastUsed(ctx context.Context, deviceID uuid.UUID, now time.Time) error {
	return s.repo.TouchLastUsed(ctx, deviceID, now)
}

// VerifyAccessToken performs a constant-time comparison of a raw token
// against the stored bcrypt hash, bcrypt's comparison already being
// constant-time with respect to the hash contents.
func VerifyAccessToken(hash, raw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(raw)) == nil
}

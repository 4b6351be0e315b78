// Package provisioning implements the Provisioning Service (§4.C):
// allocates device records and mints credentials atomically.
package provisioning

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/vigilia-platform/iotcore/internal/audit"
	"github.com/vigilia-platform/iotcore/internal/ca"
	"github.com/vigilia-platform/iotcore/internal/credentials"
	"github.com/vigilia-platform/iotcore/internal/db"
	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/logging"
	"github.com/vigilia-platform/iotcore/internal/model"
)

// BuildingLookup resolves a building to its owning agency. Building/floor-
// plan storage is an external collaborator (spec §1 Non-goals); this is the
// one interface the core needs from it.
type BuildingLookup interface {
	AgencyForBuilding(ctx context.Context, buildingID uuid.UUID) (agencyID uuid.UUID, err error)
}

// ProfileExister checks profile existence by loading the profile by id.
type ProfileExister interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.DeviceProfile, error)
}

// Request is the input to Provision.
type Request struct {
	Name           string
	DeviceType     model.DeviceType
	BuildingID     uuid.UUID
	CredentialType model.CredentialType
	ProfileID      *uuid.UUID
	SerialNumber   string
	Manufacturer   string
	Model          string
	Extras         map[string]any
}

// Result carries the one-time secret material back to the caller.
type Result struct {
	Device            *model.Device
	AccessToken       string // set only when CredentialType == access_token
	CertificatePEM    string // set only when CredentialType == x509
	PrivateKeyPEM     string
	CertificateCN     string
	CertificateExpiry time.Time
}

// Service wires the CA, credential store, and device repository together
// under one atomic commit.
type Service struct {
	pool       *db.Pool
	devices    *db.DeviceRepo
	creds      *credentials.Store
	authority  *ca.Authority
	buildings  BuildingLookup
	profiles   ProfileExister
	audit      *audit.Logger
	log        *logging.Logger
	validityDays int
}

func New(pool *db.Pool, devices *db.DeviceRepo, creds *credentials.Store, authority *ca.Authority, buildings BuildingLookup, profiles ProfileExister, validityDays int, auditLog *audit.Logger, log *logging.Logger) *Service {
	return &Service{
		pool:         pool,
		devices:      devices,
		creds:        creds,
		authority:    authority,
		buildings:    buildings,
		profiles:     profiles,
		audit:        auditLog,
		validityDays: validityDays,
		log:          log.WithComponent("provisioning"),
	}
}

// Provision allocates a device and mints its credential atomically.
func (s *Service) Provision(ctx context.Context, req Request) (*Result, error) {
	agencyID, err := s.buildings.AgencyForBuilding(ctx, req.BuildingID)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindValidation, "building does not exist")
	}

	if req.ProfileID != nil {
		if _, err := s.profiles.GetByID(ctx, *req.ProfileID); err != nil {
			return nil, errors.Wrap(err, errors.KindValidation, "profile does not exist")
		}
	}

	device := &model.Device{
		Name:               req.Name,
		DeviceType:         req.DeviceType,
		BuildingID:         req.BuildingID,
		AgencyID:           agencyID,
		ProfileID:          req.ProfileID,
		SerialNumber:       req.SerialNumber,
		Manufacturer:       req.Manufacturer,
		Model:              req.Model,
		ProvisioningStatus: model.ProvisioningPending,
		Status:             model.StatusOffline,
		MetadataExtra:      req.Extras,
	}

	result := &Result{Device: device}

	err = s.pool.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.devices.CreateWith(ctx, tx, device); err != nil {
			return err
		}

		cred := &model.DeviceCredential{
			DeviceID:       device.ID,
			CredentialType: req.CredentialType,
			IsActive:       true,
		}

		switch req.CredentialType {
		case model.CredentialAccessToken:
			raw, hash, err := credentials.GenerateAccessToken()
			if err != nil {
				return err
			}
			cred.AccessTokenHash = hash
			result.AccessToken = raw

		case model.CredentialX509:
			signed, err := s.authority.SignDeviceCert(device.ID, agencyID, s.validityDays)
			if err != nil {
				return err
			}
			cred.CertificatePEM = signed.CertificatePEM
			cred.CertificateCN = signed.CommonName
			expiry := signed.Expiry
			cred.CertificateExpiry = &expiry
			result.CertificatePEM = signed.CertificatePEM
			result.PrivateKeyPEM = signed.PrivateKeyPEM
			result.CertificateCN = signed.CommonName
			result.CertificateExpiry = expiry

		default:
			return errors.Errorf(errors.KindValidation, "unsupported credential type: %s", req.CredentialType)
		}

		return s.creds.PutWith(ctx, tx, cred)
	})
	if err != nil {
		if s.audit != nil {
			s.audit.DeviceProvisioned(ctx, device.ID, false, err.Error())
		}
		return nil, err
	}

	s.log.Info("device provisioned", "device_id", device.ID, "credential_type", req.CredentialType)
	if s.audit != nil {
		s.audit.DeviceProvisioned(ctx, device.ID, true, "")
		s.audit.CredentialEvent(ctx, device.ID, audit.EventCredentialIssued, true, string(req.CredentialType))
	}
	return result, nil
}

// GetStatus returns provisioning/online status only — never credentials.
func (s *Service) GetStatus(ctx context.Context, deviceID uuid.UUID) (*model.Device, error) {
	return s.devices.GetByID(ctx, deviceID)
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// CredentialType distinguishes the two provisioning paths.
type CredentialType string

const (
	CredentialAccessToken CredentialType = "access_token"
	CredentialX509        CredentialType = "x509"
)

// DeviceCredential holds exactly one of a hashed access token or an X.509
// certificate, never the raw secret.
type DeviceCredential struct {
	ID                 uuid.UUID
	DeviceID           uuid.UUID
	CredentialType     CredentialType
	AccessTokenHash    string
	CertificatePEM     string
	CertificateCN      string
	CertificateExpiry  *time.Time
	IsActive           bool
	LastUsedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Package brokerauth implements the Broker Auth Hook (§4.D): the three
// HTTP callouts an MQTT broker plugin uses to authenticate and authorize
// every client connection and topic access.
package brokerauth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vigilia-platform/iotcore/internal/credentials"
	"github.com/vigilia-platform/iotcore/internal/db"
	"github.com/vigilia-platform/iotcore/internal/logging"
	"github.com/vigilia-platform/iotcore/internal/model"
)

const (
	internalServiceUser = "internal-service"
	healthCheckUser     = "health-check"
	devicePrefix        = "device_"
)

// Access mirrors the broker's read/write/rw bitmask.
type Access int

const (
	AccessRead  Access = 1
	AccessWrite Access = 2
	AccessRW    Access = 3
)

// Hook answers AuthN/ACL/Superuser callouts.
type Hook struct {
	devices *db.DeviceRepo
	creds   *credentials.Store
	log     *logging.Logger
}

func New(devices *db.DeviceRepo, creds *credentials.Store, log *logging.Logger) *Hook {
	return &Hook{devices: devices, creds: creds, log: log.WithComponent("brokerauth")}
}

// AuthN answers the broker's connect callout.
func (h *Hook) AuthN(ctx context.Context, username, password, clientID string) bool {
	switch username {
	case internalServiceUser, healthCheckUser:
		return true
	}

	deviceID, ok := parseDeviceUsername(username)
	if !ok {
		h.log.Debug("authn: malformed username", "username", username)
		return false
	}

	cred, err := h.creds.GetByDeviceID(ctx, deviceID)
	if err != nil {
		h.log.Debug("authn: no credential for device", "device_id", deviceID)
		return false
	}
	if !cred.IsActive {
		return false
	}

	var allowed bool
	switch cred.CredentialType {
	case model.CredentialAccessToken:
		allowed = credentials.VerifyAccessToken(cred.AccessTokenHash, password)
	case model.CredentialX509:
		allowed = password == "" && username == cred.CertificateCN
	}

	if allowed {
		if err := h.creds.TouchLastUsed(ctx, deviceID, time.Now().UTC()); err != nil {
			h.log.Warn("authn: failed to touch last_used_at", "device_id", deviceID, "error", err)
		}
	}
	return allowed
}

// ACL answers the broker's topic-authorization callout.
func (h *Hook) ACL(ctx context.Context, username, topic, clientID string, access Access) bool {
	switch username {
	case internalServiceUser:
		return true
	case healthCheckUser:
		return strings.HasPrefix(topic, "$SYS/")
	}

	deviceID, ok := parseDeviceUsername(username)
	if !ok {
		return false
	}

	device, err := h.devices.GetByID(ctx, deviceID)
	if err != nil {
		return false
	}

	prefix := "agency/" + device.AgencyID.String() + "/device/" + device.ID.String() + "/"
	return strings.HasPrefix(topic, prefix)
}

// Superuser answers the broker's superuser callout.
func (h *Hook) Superuser(ctx context.Context, username, clientID string) bool {
	return username == internalServiceUser
}

func parseDeviceUsername(username string) (uuid.UUID, bool) {
	if !strings.HasPrefix(username, devicePrefix) {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(username, devicePrefix))
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

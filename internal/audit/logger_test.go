package audit

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/vigilia-platform/iotcore/internal/logging"
)

func testLogger(buf *bytes.Buffer) *Logger {
	return NewLogger(logging.New(logging.Config{Level: "debug", Output: buf}))
}

func TestDeviceProvisioned_Success(t *testing.T) {
	var buf bytes.Buffer
	l := testLogger(&buf)
	deviceID := uuid.New()

	l.DeviceProvisioned(nil, deviceID, true, "")

	out := buf.String()
	assert.Contains(t, out, "device_provisioned")
	assert.Contains(t, out, deviceID.String())
	assert.Contains(t, out, "success=true")
}

func TestDeviceProvisioned_Failure(t *testing.T) {
	var buf bytes.Buffer
	l := testLogger(&buf)
	deviceID := uuid.New()

	l.DeviceProvisioned(nil, deviceID, false, "tx rollback")

	out := buf.String()
	assert.Contains(t, out, "success=false")
	assert.Contains(t, out, "tx rollback")
}

func TestAlertTransition(t *testing.T) {
	var buf bytes.Buffer
	l := testLogger(&buf)
	alertID := uuid.New()

	l.AlertTransition(nil, alertID, EventAlertAcknowledged, nil)

	out := buf.String()
	assert.Contains(t, out, "alert_acknowledged")
	assert.Contains(t, out, "alert:"+alertID.String())
}

func TestCredentialEvent_RevokedIsWarn(t *testing.T) {
	var buf bytes.Buffer
	l := testLogger(&buf)
	deviceID := uuid.New()

	l.CredentialEvent(nil, deviceID, EventCredentialRevoked, false, "expired")

	out := buf.String()
	assert.Contains(t, out, "credential_revoked")
	assert.Contains(t, out, "WARN")
}

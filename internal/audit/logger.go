// Package audit provides structured logging of device lifecycle, alert
// lifecycle, and credential events for compliance review. It is a thin
// wrapper over the structured logger, not a separate persistence store:
// device status transitions already live in device_status_history and
// alert transitions in alerts, so audit entries carry enough context to
// be grepped or shipped to a log sink without a store of their own.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vigilia-platform/iotcore/internal/logging"
)

// EventType names a distinct kind of auditable event.
type EventType string

const (
	EventDeviceProvisioned    EventType = "device_provisioned"
	EventDeviceDecommissioned EventType = "device_decommissioned"
	EventCredentialIssued     EventType = "credential_issued"
	EventCredentialRevoked    EventType = "credential_revoked"
	EventCredentialRotated    EventType = "credential_rotated"
	EventAlertFired           EventType = "alert_fired"
	EventAlertAcknowledged    EventType = "alert_acknowledged"
	EventAlertResolved        EventType = "alert_resolved"
	EventAlertDismissed       EventType = "alert_dismissed"
	EventTwinDesiredUpdated   EventType = "twin_desired_updated"
)

// Severity mirrors the structured logger's levels so Log can pick the
// right one without every caller repeating the switch.
type Severity string

const (
	SeverityInfo  Severity = "info"
	SeverityWarn  Severity = "warn"
	SeverityError Severity = "error"
)

// Event is one auditable occurrence tied to a device, actor, and outcome.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	Severity   Severity
	DeviceID   *uuid.UUID
	ActorID    *uuid.UUID
	Resource   string
	Success    bool
	Reason     string
	Metadata   map[string]any
}

// Logger emits Events to the structured logger under a stable "audit"
// component so they can be filtered independently of the emitting
// package's own log lines.
type Logger struct {
	log *logging.Logger
}

func NewLogger(log *logging.Logger) *Logger {
	return &Logger{log: log.WithComponent("audit")}
}

// Log records an event. Timestamp defaults to now if unset.
func (l *Logger) Log(_ context.Context, e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	kv := []any{
		"event_type", e.Type,
		"success", e.Success,
		"resource", e.Resource,
	}
	if e.DeviceID != nil {
		kv = append(kv, "device_id", e.DeviceID.String())
	}
	if e.ActorID != nil {
		kv = append(kv, "actor_id", e.ActorID.String())
	}
	if e.Reason != "" {
		kv = append(kv, "reason", e.Reason)
	}
	for k, v := range e.Metadata {
		kv = append(kv, k, v)
	}

	switch e.Severity {
	case SeverityWarn:
		l.log.Warn("audit", kv...)
	case SeverityError:
		l.log.Error("audit", kv...)
	default:
		l.log.Info("audit", kv...)
	}
}

// DeviceProvisioned records a successful or failed provisioning attempt.
func (l *Logger) DeviceProvisioned(ctx context.Context, deviceID uuid.UUID, success bool, reason string) {
	sev := SeverityInfo
	if !success {
		sev = SeverityError
	}
	l.Log(ctx, Event{Type: EventDeviceProvisioned, Severity: sev, DeviceID: &deviceID, Resource: "device", Success: success, Reason: reason})
}

// AlertTransition records a state change on an alert's lifecycle.
func (l *Logger) AlertTransition(ctx context.Context, alertID uuid.UUID, eventType EventType, actor *uuid.UUID) {
	l.Log(ctx, Event{Type: eventType, Severity: SeverityInfo, ActorID: actor, Resource: "alert:" + alertID.String(), Success: true})
}

// CredentialEvent records issuance, rotation, or revocation of device
// credentials, which a compliance review needs independent of whatever
// the credential store itself retains.
func (l *Logger) CredentialEvent(ctx context.Context, deviceID uuid.UUID, eventType EventType, success bool, reason string) {
	sev := SeverityInfo
	if !success {
		sev = SeverityWarn
	}
	l.Log(ctx, Event{Type: eventType, Severity: sev, DeviceID: &deviceID, Resource: "credential", Success: success, Reason: reason})
}

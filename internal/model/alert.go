package model

import (
	"time"

	"github.com/google/uuid"
)

// AlertSource names the subsystem that raised an alert. Only iot_telemetry
// is defined here, and it is the only source this core produces.
type AlertSource string

const AlertSourceIoTTelemetry AlertSource = "iot_telemetry"

// AlertStatus is the operator-facing lifecycle of a persisted alert.
type AlertStatus string

const (
	AlertPending      AlertStatus = "pending"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertProcessing   AlertStatus = "processing"
	AlertResolved     AlertStatus = "resolved"
	AlertDismissed    AlertStatus = "dismissed"
)

// Alert is a persisted, operator-visible incident raised by the evaluator.
type Alert struct {
	ID              uuid.UUID
	Source          AlertSource
	Severity        AlertSeverity
	Status          AlertStatus
	AlertType       string
	Title           string
	Description     string
	DeviceID        *uuid.UUID
	BuildingID      *uuid.UUID
	FloorPlanID     *uuid.UUID
	Latitude        *float64
	Longitude       *float64
	RawPayload      map[string]any
	OccurrenceCount int
	LastOccurrence  *time.Time
	AssignedTo      *uuid.UUID
	ReceivedAt      time.Time
	AcknowledgedAt  *time.Time
	ProcessedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// StatusHistory is an append-only record of a device status transition.
type StatusHistory struct {
	ID                uuid.UUID
	DeviceID          uuid.UUID
	OldStatus         *DeviceStatus
	NewStatus         DeviceStatus
	ChangedAt         time.Time
	Reason            string
	ConnectionQuality *int
}

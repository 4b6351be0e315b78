// Package model holds the entity types shared across the core: devices,
// credentials, profiles, twins, telemetry, alerts, and status history.
package model

import (
	"time"

	"github.com/google/uuid"
)

// DeviceStatus is the device's online/offline/alert state.
type DeviceStatus string

const (
	StatusOnline      DeviceStatus = "online"
	StatusOffline     DeviceStatus = "offline"
	StatusAlert       DeviceStatus = "alert"
	StatusMaintenance DeviceStatus = "maintenance"
	StatusError       DeviceStatus = "error"
)

// ProvisioningStatus tracks a device through its onboarding lifecycle.
type ProvisioningStatus string

const (
	ProvisioningUnprovisioned ProvisioningStatus = "unprovisioned"
	ProvisioningPending       ProvisioningStatus = "pending"
	ProvisioningActive        ProvisioningStatus = "active"
)

// DeviceType enumerates the recognized device classes.
type DeviceType string

const (
	DeviceMicrophone DeviceType = "microphone"
	DeviceCamera     DeviceType = "camera"
	DeviceSensor     DeviceType = "sensor"
	DeviceGateway    DeviceType = "gateway"
)

// Device is a field unit publishing telemetry and accepting config.
type Device struct {
	ID                 uuid.UUID
	Name               string
	DeviceType         DeviceType
	BuildingID         uuid.UUID
	AgencyID           uuid.UUID
	ProfileID          *uuid.UUID
	SerialNumber       string
	IPAddress          string
	MACAddress         string
	Model              string
	FirmwareVersion    string
	Manufacturer       string
	Status             DeviceStatus
	LastSeen           *time.Time
	ConnectionQuality  *int
	ProvisioningStatus ProvisioningStatus
	Config             map[string]any
	Capabilities       []string
	MetadataExtra      map[string]any
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          *time.Time
}

// IsMaintenance reports whether the health monitor should skip this device.
func (d *Device) IsMaintenance() bool {
	return d.Status == StatusMaintenance
}

// Package registration implements the Registration Handler (§4.E): the
// broker-side counterpart to provisioning that activates a device the
// first time it announces itself on its register topic.
package registration

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vigilia-platform/iotcore/internal/db"
	"github.com/vigilia-platform/iotcore/internal/logging"
	"github.com/vigilia-platform/iotcore/internal/model"
	"github.com/vigilia-platform/iotcore/internal/mqttclient"
	"github.com/vigilia-platform/iotcore/internal/realtime"
)

// Topic is the wildcard subscription filter: agency/+/device/+/register.
const Topic = "agency/+/device/+/register"

// BuildingLookup resolves a building to its owning agency, used to verify
// the topic's agency segment against the device's actual building.
type BuildingLookup interface {
	AgencyForBuilding(ctx context.Context, buildingID uuid.UUID) (agencyID uuid.UUID, err error)
}

// payload is the optional reported metadata a device may include on
// registration.
type payload struct {
	SerialNumber    string `json:"serial_number"`
	FirmwareVersion string `json:"firmware_version"`
	MACAddress      string `json:"mac_address"`
}

// Handler activates devices on first registration.
type Handler struct {
	devices   *db.DeviceRepo
	history   *db.StatusHistoryRepo
	buildings BuildingLookup
	bus       realtime.Publisher
	log       *logging.Logger
}

func New(devices *db.DeviceRepo, history *db.StatusHistoryRepo, buildings BuildingLookup, bus realtime.Publisher, log *logging.Logger) *Handler {
	return &Handler{devices: devices, history: history, buildings: buildings, bus: bus, log: log.WithComponent("registration")}
}

// Subscribe wires this handler into the shared MQTT client.
func (h *Handler) Subscribe(client *mqttclient.Client) {
	client.Subscribe(Topic, 1, h.onMessage)
}

func (h *Handler) onMessage(topic string, body []byte) {
	agencyID, deviceID, ok := parseTopic(topic)
	if !ok {
		h.log.Warn("registration: malformed topic", "topic", topic)
		return
	}

	ctx := context.Background()
	if err := h.handle(ctx, agencyID, deviceID, body); err != nil {
		h.log.Warn("registration: dropped message", "device_id", deviceID, "error", err)
	}
}

func (h *Handler) handle(ctx context.Context, agencyID, deviceID uuid.UUID, body []byte) error {
	device, err := h.devices.GetByID(ctx, deviceID)
	if err != nil {
		return err
	}

	buildingAgency, err := h.buildings.AgencyForBuilding(ctx, device.BuildingID)
	if err != nil {
		return err
	}
	if buildingAgency != agencyID {
		h.log.Warn("registration: agency mismatch", "device_id", deviceID, "topic_agency", agencyID, "building_agency", buildingAgency)
		return nil
	}

	if device.ProvisioningStatus != model.ProvisioningPending {
		h.log.Info("registration: idempotent re-registration ignored", "device_id", deviceID)
		return nil
	}

	var p payload
	if len(body) > 0 {
		_ = json.Unmarshal(body, &p)
	}

	now := time.Now().UTC()
	if err := h.devices.Activate(ctx, deviceID, p.SerialNumber, p.FirmwareVersion, p.MACAddress, now); err != nil {
		return err
	}

	oldStatus := device.Status
	if err := h.history.Record(ctx, deviceID, &oldStatus, model.StatusOnline, "registration", nil, now); err != nil {
		h.log.Warn("registration: failed to record status history", "device_id", deviceID, "error", err)
	}

	if h.bus != nil {
		_ = h.bus.Publish(ctx, "device:"+deviceID.String(), "device:status", map[string]any{
			"device_id": deviceID,
			"status":    "online",
			"reason":    "registration",
		})
	}
	return nil
}

func parseTopic(topic string) (agencyID, deviceID uuid.UUID, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != "agency" || parts[2] != "device" || parts[4] != "register" {
		return uuid.UUID{}, uuid.UUID{}, false
	}
	agencyID, err := uuid.Parse(parts[1])
	if err != nil {
		return uuid.UUID{}, uuid.UUID{}, false
	}
	deviceID, err = uuid.Parse(parts[3])
	if err != nil {
		return uuid.UUID{}, uuid.UUID{}, false
	}
	return agencyID, deviceID, true
}

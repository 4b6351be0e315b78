// Package twin implements the Device Twin Service (§4.J): desired/reported
// config with version counters, retained MQTT publish of desired state,
// and diff computation for operators.
package twin

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/vigilia-platform/iotcore/internal/db"
	"github.com/vigilia-platform/iotcore/internal/logging"
	"github.com/vigilia-platform/iotcore/internal/metrics"
	"github.com/vigilia-platform/iotcore/internal/model"
	"github.com/vigilia-platform/iotcore/internal/mqttclient"
	"github.com/vigilia-platform/iotcore/internal/realtime"
)

// View is what GetTwin returns: the stored pair plus the computed diff.
type View struct {
	DeviceID        uuid.UUID
	Desired         map[string]any
	DesiredVersion  int
	Reported        map[string]any
	ReportedVersion int
	IsSynced        bool
	Delta           model.Delta
}

// AgencyLookup resolves the agency a device belongs to, needed to build
// the desired-config publish topic.
type AgencyLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Device, error)
}

type desiredWire struct {
	Config    map[string]any `json:"config"`
	Version   int            `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
}

// Service is the Device Twin Service's application layer.
type Service struct {
	repo    *db.TwinRepo
	devices AgencyLookup
	mqtt    *mqttclient.Client
	bus     realtime.Publisher
	metrics *metrics.Registry
	log     *logging.Logger
}

func New(repo *db.TwinRepo, devices AgencyLookup, mqtt *mqttclient.Client, bus realtime.Publisher, reg *metrics.Registry, log *logging.Logger) *Service {
	return &Service{repo: repo, devices: devices, mqtt: mqtt, bus: bus, metrics: reg, log: log.WithComponent("twin")}
}

// GetTwin lazily creates an empty twin if missing and returns the stored
// pair alongside the computed diff.
func (s *Service) GetTwin(ctx context.Context, deviceID uuid.UUID) (*View, error) {
	t, err := s.repo.GetOrCreate(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return toView(t), nil
}

// UpdateDesired shallow-merges patch onto desired_config, bumps the
// version, recomputes is_synced, commits, then fire-and-forgets the
// retained MQTT publish and a realtime event.
func (s *Service) UpdateDesired(ctx context.Context, deviceID uuid.UUID, patch map[string]any) (*View, error) {
	t, err := s.repo.GetOrCreate(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	merged := mergeShallow(t.DesiredConfig, patch)
	t.DesiredConfig = merged
	t.DesiredVersion++
	t.DesiredUpdatedAt = time.Now().UTC()
	t.IsSynced = model.DeepEqualConfig(t.DesiredConfig, t.ReportedConfig)

	if err := s.repo.UpdateDesired(ctx, t); err != nil {
		return nil, err
	}

	go s.publishDesired(context.Background(), deviceID, t)

	if s.bus != nil {
		_ = s.bus.Publish(ctx, "device:"+deviceID.String(), "device:config:updated", map[string]any{
			"device_id": deviceID,
			"version":   t.DesiredVersion,
			"is_synced": t.IsSynced,
		})
	}

	return toView(t), nil
}

func (s *Service) publishDesired(ctx context.Context, deviceID uuid.UUID, t *model.DeviceTwin) {
	device, err := s.devices.GetByID(ctx, deviceID)
	if err != nil {
		s.log.Warn("twin: could not resolve agency for desired-config publish", "device_id", deviceID, "error", err)
		return
	}

	wire := desiredWire{Config: t.DesiredConfig, Version: t.DesiredVersion, Timestamp: t.DesiredUpdatedAt}
	payload, err := json.Marshal(wire)
	if err != nil {
		s.log.Warn("twin: failed to marshal desired config", "device_id", deviceID, "error", err)
		return
	}

	topic := "agency/" + device.AgencyID.String() + "/device/" + deviceID.String() + "/config/desired"
	if err := s.mqtt.Publish(ctx, topic, payload, 1, true); err != nil {
		s.log.Warn("twin: retained desired-config publish failed", "device_id", deviceID, "error", err)
	}
}

// UpdateReported is invoked by the broker subscriber on the reported-config
// topic. A reportedVersion at or below the stored version is dropped as
// stale.
func (s *Service) UpdateReported(ctx context.Context, deviceID uuid.UUID, reportedConfig map[string]any, reportedVersion int) error {
	t, err := s.repo.GetOrCreate(ctx, deviceID)
	if err != nil {
		return err
	}
	if reportedVersion <= t.ReportedVersion {
		s.log.Debug("twin: stale reported config dropped", "device_id", deviceID, "reported_version", reportedVersion, "current", t.ReportedVersion)
		return nil
	}

	wasSynced := t.IsSynced
	now := time.Now().UTC()
	t.ReportedConfig = reportedConfig
	t.ReportedVersion++
	t.ReportedUpdatedAt = &now
	t.IsSynced = model.DeepEqualConfig(t.DesiredConfig, t.ReportedConfig)

	if err := s.repo.UpdateReported(ctx, t); err != nil {
		return err
	}

	if s.bus != nil {
		room := "device:" + deviceID.String()
		_ = s.bus.Publish(ctx, room, "device:config:updated", map[string]any{
			"device_id": deviceID,
			"version":   t.ReportedVersion,
			"is_synced": t.IsSynced,
		})
		if !wasSynced && t.IsSynced {
			_ = s.bus.Publish(ctx, room, "device:config:synced", map[string]any{"device_id": deviceID})
		}
	}
	if !wasSynced && t.IsSynced && s.metrics != nil {
		s.metrics.TwinConfigSyncedTotal.Inc()
	}
	return nil
}

func mergeShallow(base, patch map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(patch))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range patch {
		merged[k] = v
	}
	return merged
}

func toView(t *model.DeviceTwin) *View {
	return &View{
		DeviceID:        t.DeviceID,
		Desired:         t.DesiredConfig,
		DesiredVersion:  t.DesiredVersion,
		Reported:        t.ReportedConfig,
		ReportedVersion: t.ReportedVersion,
		IsSynced:        t.IsSynced,
		Delta:           model.ComputeDelta(t.DesiredConfig, t.ReportedConfig),
	}
}

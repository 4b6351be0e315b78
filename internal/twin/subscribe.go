package twin

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/vigilia-platform/iotcore/internal/mqttclient"
)

// ReportedTopic is the wildcard subscription filter for devices reporting
// their applied config back.
const ReportedTopic = "agency/+/device/+/config/reported"

type reportedWire struct {
	Config  map[string]any `json:"config"`
	Version int            `json:"version"`
}

// Subscribe wires the reported-config path into the shared MQTT client.
func (s *Service) Subscribe(client *mqttclient.Client) {
	client.Subscribe(ReportedTopic, 1, s.onReportedMessage)
}

func (s *Service) onReportedMessage(topic string, body []byte) {
	_, deviceID, ok := parseReportedTopic(topic)
	if !ok {
		s.log.Warn("twin: malformed reported-config topic", "topic", topic)
		return
	}

	var wire reportedWire
	if err := json.Unmarshal(body, &wire); err != nil {
		s.log.Warn("twin: malformed reported-config payload", "device_id", deviceID, "error", err)
		return
	}

	if err := s.UpdateReported(context.Background(), deviceID, wire.Config, wire.Version); err != nil {
		s.log.Warn("twin: failed to apply reported config", "device_id", deviceID, "error", err)
	}
}

func parseReportedTopic(topic string) (agencyID, deviceID uuid.UUID, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 6 || parts[0] != "agency" || parts[2] != "device" || parts[4] != "config" || parts[5] != "reported" {
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

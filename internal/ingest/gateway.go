// Package ingest implements the Ingestion Gateway (§4.G): the shared
// validate-and-buffer routine reached from both the MQTT telemetry
// subscriber and the HTTP POST endpoint.
package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vigilia-platform/iotcore/internal/db"
	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/logging"
	"github.com/vigilia-platform/iotcore/internal/metrics"
	"github.com/vigilia-platform/iotcore/internal/model"
	"github.com/vigilia-platform/iotcore/internal/mqttclient"
	"github.com/vigilia-platform/iotcore/internal/streambuf"
)

// Topic is the wildcard subscription filter: agency/+/device/+/telemetry.
const Topic = "agency/+/device/+/telemetry"

// ProfileCache resolves a device's profile from an in-memory cache shared
// with the Alert Evaluator; a cache miss is not fatal, it only disables
// schema validation for that message.
type ProfileCache interface {
	Get(ctx context.Context, deviceID uuid.UUID) (*model.DeviceProfile, bool)
}

// wirePayload is the wire shape shared by both entry paths.
type wirePayload struct {
	Metrics   map[string]any `json:"metrics"`
	Timestamp string         `json:"timestamp,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
}

// Gateway validates and buffers telemetry onto the Redis stream.
type Gateway struct {
	devices  *db.DeviceRepo
	profiles ProfileCache
	stream   *streambuf.Client
	metrics  *metrics.Registry
	log      *logging.Logger
}

func New(devices *db.DeviceRepo, profiles ProfileCache, stream *streambuf.Client, reg *metrics.Registry, log *logging.Logger) *Gateway {
	return &Gateway{devices: devices, profiles: profiles, stream: stream, metrics: reg, log: log.WithComponent("ingest")}
}

// Subscribe wires the MQTT telemetry path into the shared client.
func (g *Gateway) Subscribe(client *mqttclient.Client) {
	client.Subscribe(Topic, 1, g.onMQTTMessage)
}

func (g *Gateway) onMQTTMessage(topic string, body []byte) {
	_, deviceID, ok := parseTelemetryTopic(topic)
	if !ok {
		g.log.Warn("ingest: malformed topic", "topic", topic)
		return
	}

	ctx := context.Background()
	if err := g.Ingest(ctx, deviceID, body, "mqtt"); err != nil {
		// Redelivery would not help a message that already failed
		// validation or was a duplicate; log and move on.
		g.log.Warn("ingest: mqtt message dropped", "device_id", deviceID, "error", err)
	}
}

// reject records a rejection against the registry and returns the error
// unchanged, so call sites can wrap a return statement without breaking
// their flow.
func (g *Gateway) reject(reason string, err error) error {
	if g.metrics != nil {
		g.metrics.IngestRejectedTotal.WithLabelValues(reason).Inc()
	}
	return err
}

// Ingest runs the shared validate-and-buffer routine. HTTP handlers call
// this directly with transport "http"; its ValidationError return maps to
// a 422 response there.
func (g *Gateway) Ingest(ctx context.Context, deviceID uuid.UUID, body []byte, transport string) error {
	var wp wirePayload
	if err := json.Unmarshal(body, &wp); err != nil {
		return g.reject("malformed_payload", errors.Wrap(err, errors.KindValidation, "malformed telemetry payload"))
	}

	record := model.Record{
		DeviceID:        deviceID,
		ServerTimestamp: time.Now().UTC(),
		MessageID:       wp.MessageID,
		Metrics:         map[string]model.TelemetryValue{},
	}
	if wp.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, wp.Timestamp); err == nil {
			record.DeviceTimestamp = &ts
		}
	}

	if wp.MessageID != "" {
		first, err := g.stream.TryDedup(ctx, wp.MessageID)
		if err != nil {
			return err
		}
		if !first {
			g.log.Debug("ingest: duplicate message dropped", "message_id", wp.MessageID)
			if g.metrics != nil {
				g.metrics.DedupHitsTotal.Inc()
			}
			return nil
		}
	}

	profile, hasProfile := g.profiles.Get(ctx, deviceID)
	if !hasProfile {
		g.log.Warn("ingest: no cached profile, accepting metrics unchecked", "device_id", deviceID)
	}

	for name, raw := range wp.Metrics {
		if hasProfile {
			field := profile.FieldByName(name)
			if field == nil {
				return g.reject("unknown_metric", errors.Errorf(errors.KindValidation, "unknown metric key: %s", name))
			}
			tv, ok := model.ValueFromAny(raw)
			if !ok {
				return g.reject("unsupported_value_type", errors.Errorf(errors.KindValidation, "metric %s has unsupported value type", name))
			}
			if err := checkFieldType(field.Type, tv); err != nil {
				return g.reject("schema_mismatch", errors.Errorf(errors.KindValidation, "metric %s: %v", name, err))
			}
			record.Metrics[name] = tv
		} else {
			tv, ok := model.ValueFromAny(raw)
			if !ok {
				return g.reject("unsupported_value_type", errors.Errorf(errors.KindValidation, "metric %s has unsupported value type", name))
			}
			record.Metrics[name] = tv
		}
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, errors.KindInternal, "marshaling telemetry record")
	}

	if _, err := g.stream.XAdd(ctx, map[string]any{
		"device_id": deviceID.String(),
		"payload":   string(payload),
	}); err != nil {
		return err
	}

	if g.metrics != nil {
		g.metrics.IngestMessagesTotal.WithLabelValues(transport).Inc()
	}

	if err := g.devices.UpdateStatus(ctx, deviceID, model.StatusOnline, &record.ServerTimestamp, nil); err != nil {
		g.log.Warn("ingest: failed to refresh last_seen", "device_id", deviceID, "error", err)
	}

	return nil
}

// checkFieldType enforces the schema's declared type against the decoded
// value, checking boolean before numeric per the explicit ordering rule.
func checkFieldType(declared model.MetricType, v model.TelemetryValue) error {
	switch declared {
	case model.MetricBoolean:
		if v.Bool == nil {
			return errors.New(errors.KindValidation, "expected boolean value")
		}
	case model.MetricNumeric:
		if v.Bool != nil {
			return errors.New(errors.KindValidation, "boolean value not accepted for numeric metric")
		}
		if v.Numeric == nil {
			return errors.New(errors.KindValidation, "expected numeric value")
		}
	case model.MetricString:
		if v.String == nil {
			return errors.New(errors.KindValidation, "expected string value")
		}
	}
	return nil
}

func parseTelemetryTopic(topic string) (agencyID, deviceID uuid.UUID, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 5 || parts[0] != "agency" || parts[2] != "device" || parts[4] != "telemetry" {
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

// Package alerting implements the Alert Evaluator (§4.I): per-rule
// condition evaluation over a just-ingested telemetry batch, cooldown
// enforcement, alert persistence, and realtime fan-out.
package alerting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vigilia-platform/iotcore/internal/audit"
	"github.com/vigilia-platform/iotcore/internal/db"
	"github.com/vigilia-platform/iotcore/internal/logging"
	"github.com/vigilia-platform/iotcore/internal/metrics"
	"github.com/vigilia-platform/iotcore/internal/model"
	"github.com/vigilia-platform/iotcore/internal/realtime"
	"github.com/vigilia-platform/iotcore/internal/streambuf"
)

// ProfileCache is the lookup the gateway and evaluator share.
type ProfileCache interface {
	Get(ctx context.Context, deviceID uuid.UUID) (*model.DeviceProfile, bool)
}

// DeviceGetter loads a device by id; the evaluator reads its id, name and
// building_id.
type DeviceGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Device, error)
}

// Engine evaluates a device's profile rules against an ingested batch.
type Engine struct {
	profiles ProfileCache
	devices  DeviceGetter
	alerts   *db.AlertRepo
	cooldown *streambuf.Client
	bus      realtime.Publisher
	metrics  *metrics.Registry
	audit    *audit.Logger
	log      *logging.Logger
}

func NewEngine(profiles ProfileCache, devices DeviceGetter, alerts *db.AlertRepo, cooldown *streambuf.Client, bus realtime.Publisher, reg *metrics.Registry, auditLog *audit.Logger, log *logging.Logger) *Engine {
	return &Engine{profiles: profiles, devices: devices, alerts: alerts, cooldown: cooldown, bus: bus, metrics: reg, audit: auditLog, log: log.WithComponent("alerting")}
}

// EvaluateBatch runs every record through its device's profile rules, in
// batch order. Evaluator failures for one record never abort the rest;
// they are logged and the evaluator moves to the next record. It returns
// no error, so alert evaluation never fails the ingest batch.
func (e *Engine) EvaluateBatch(ctx context.Context, records []model.Record) {
	for _, rec := range records {
		e.evaluateRecord(ctx, rec)
	}
}

func (e *Engine) evaluateRecord(ctx context.Context, rec model.Record) {
	profile, ok := e.profiles.Get(ctx, rec.DeviceID)
	if !ok {
		return
	}
	device, err := e.devices.GetByID(ctx, rec.DeviceID)
	if err != nil {
		return
	}

	ts := rec.ServerTimestamp
	if rec.DeviceTimestamp != nil {
		ts = *rec.DeviceTimestamp
	}

	for _, rule := range profile.AlertRules {
		value, present := rec.Metrics[rule.Metric]
		if !present {
			continue
		}
		if !conditionFires(rule.Condition, rule.Threshold, value) {
			continue
		}

		clear, err := e.cooldown.TryCooldown(ctx, rec.DeviceID.String(), rule.Name, time.Duration(rule.CooldownSeconds)*time.Second)
		if err != nil {
			e.log.Warn("alerting: cooldown check failed, skipping", "device_id", rec.DeviceID, "rule", rule.Name, "error", err)
			continue
		}
		if !clear {
			if e.metrics != nil {
				e.metrics.CooldownSuppressed.Inc()
			}
			continue
		}

		e.fire(ctx, device, rule, value, ts)
	}
}

func (e *Engine) fire(ctx context.Context, device *model.Device, rule model.AlertRule, value model.TelemetryValue, occurredAt time.Time) {
	deviceID := device.ID
	alert := &model.Alert{
		Source:     model.AlertSourceIoTTelemetry,
		Severity:   rule.Severity,
		AlertType:  deriveAlertType(rule.Metric),
		Title:      rule.Name,
		DeviceID:   &deviceID,
		BuildingID: &device.BuildingID,
		RawPayload: map[string]any{
			"rule_name":    rule.Name,
			"metric":       rule.Metric,
			"condition":    rule.Condition,
			"threshold":    rule.Threshold,
			"actual_value": value.Raw(),
			"device_name":  device.Name,
		},
		OccurrenceCount: 1,
		LastOccurrence:  &occurredAt,
		ReceivedAt:      time.Now().UTC(),
	}

	if err := e.alerts.Create(ctx, alert); err != nil {
		e.log.Warn("alerting: failed to persist alert", "device_id", deviceID, "rule", rule.Name, "error", err)
		return
	}

	if e.metrics != nil {
		e.metrics.AlertsFiredTotal.WithLabelValues(string(alert.Severity)).Inc()
	}
	if e.audit != nil {
		e.audit.AlertTransition(ctx, alert.ID, audit.EventAlertFired, nil)
	}

	if e.bus == nil {
		return
	}
	event := map[string]any{
		"alert_id":   alert.ID,
		"device_id":  deviceID,
		"severity":   alert.Severity,
		"alert_type": alert.AlertType,
		"title":      alert.Title,
		"payload":    alert.RawPayload,
	}
	for _, room := range []string{"authenticated", "device:" + deviceID.String(), "building:" + device.BuildingID.String()} {
		if err := e.bus.Publish(ctx, room, "device:alert", event); err != nil {
			e.log.Warn("alerting: realtime publish failed", "room", room, "error", err)
		}
	}
}

// conditionFires applies rule.condition to the value against threshold
// with the spec's exact per-condition semantics.
func conditionFires(cond model.AlertCondition, threshold model.Threshold, value model.TelemetryValue) bool {
	switch cond {
	case model.ConditionGT, model.ConditionLT, model.ConditionGTE, model.ConditionLTE:
		v, ok := numericOf(value)
		if !ok {
			return false
		}
		scalar, ok := numericOfAny(threshold.Scalar)
		if !ok {
			return false
		}
		switch cond {
		case model.ConditionGT:
			return v > scalar
		case model.ConditionLT:
			return v < scalar
		case model.ConditionGTE:
			return v >= scalar
		default:
			return v <= scalar
		}

	case model.ConditionEQ, model.ConditionNE:
		eq := rawEqual(value.Raw(), threshold.Scalar)
		if cond == model.ConditionEQ {
			return eq
		}
		return !eq

	case model.ConditionRange:
		v, ok := numericOf(value)
		if !ok || threshold.Min == nil || threshold.Max == nil {
			return false
		}
		return v >= *threshold.Min && v <= *threshold.Max

	default:
		return false
	}
}

func numericOf(v model.TelemetryValue) (float64, bool) {
	if v.Bool != nil || v.Numeric == nil {
		return 0, false
	}
	return *v.Numeric, true
}

func numericOfAny(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	}
	return 0, false
}

func rawEqual(a, b any) bool {
	af, aok := numericOfAny(a)
	bf, bok := numericOfAny(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

// Package profiles implements the Profile Registry (§4.F): CRUD over
// device profiles plus the built-in seed set, with struct-tag validation
// and the semantic cross-checks the spec calls out (rule metrics must
// exist in the schema, conditions/severities must be recognized).
package profiles

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/vigilia-platform/iotcore/internal/db"
	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/logging"
	"github.com/vigilia-platform/iotcore/internal/model"
)

var validConditions = map[model.AlertCondition]bool{
	model.ConditionGT: true, model.ConditionLT: true, model.ConditionGTE: true,
	model.ConditionLTE: true, model.ConditionEQ: true, model.ConditionNE: true,
	model.ConditionRange: true,
}

var validSeverities = map[model.AlertSeverity]bool{
	model.SeverityCritical: true, model.SeverityHigh: true, model.SeverityMedium: true,
	model.SeverityLow: true, model.SeverityInfo: true,
}

// Registry is the Profile Registry's application layer.
type Registry struct {
	repo     *db.ProfileRepo
	validate *validator.Validate
	log      *logging.Logger
}

func New(repo *db.ProfileRepo, log *logging.Logger) *Registry {
	return &Registry{repo: repo, validate: validator.New(), log: log.WithComponent("profiles")}
}

// Create validates and persists a new profile.
func (r *Registry) Create(ctx context.Context, p *model.DeviceProfile) error {
	if err := r.validateProfile(p); err != nil {
		return err
	}
	return r.repo.Create(ctx, p)
}

// Update validates and replaces a profile's mutable fields.
func (r *Registry) Update(ctx context.Context, p *model.DeviceProfile) error {
	if err := r.validateProfile(p); err != nil {
		return err
	}
	return r.repo.Update(ctx, p)
}

func (r *Registry) GetByID(ctx context.Context, id uuid.UUID) (*model.DeviceProfile, error) {
	return r.repo.GetByID(ctx, id)
}

func (r *Registry) List(ctx context.Context) ([]*model.DeviceProfile, error) {
	return r.repo.List(ctx)
}

func (r *Registry) Delete(ctx context.Context, id uuid.UUID) error {
	return r.repo.SoftDelete(ctx, id)
}

// validateProfile enforces struct-tag validation plus the semantic
// cross-checks: every rule's metric must be declared in the schema, and
// conditions/severities must be from the recognized sets.
func (r *Registry) validateProfile(p *model.DeviceProfile) error {
	if err := r.validate.Struct(p); err != nil {
		return errors.Wrap(err, errors.KindValidation, "profile failed struct validation")
	}

	for _, rule := range p.AlertRules {
		if p.FieldByName(rule.Metric) == nil {
			return errors.Errorf(errors.KindValidation, "alert rule %q references undeclared metric %q", rule.Name, rule.Metric)
		}
		if !validConditions[rule.Condition] {
			return errors.Errorf(errors.KindValidation, "alert rule %q has unknown condition %q", rule.Name, rule.Condition)
		}
		if !validSeverities[rule.Severity] {
			return errors.Errorf(errors.KindValidation, "alert rule %q has unknown severity %q", rule.Name, rule.Severity)
		}
	}
	return nil
}

// builtins is the seed set: a small catalog of common device classes,
// is_default=true, idempotent by name.
var builtins = []model.DeviceProfile{
	{
		Name:        "axis-microphone",
		Description: "Axis network microphone with gunshot/aggression detection",
		DeviceType:  model.DeviceMicrophone,
		IsDefault:   true,
		TelemetrySchema: []model.SchemaField{
			{Name: "sound_level_db", Type: model.MetricNumeric, Unit: "dB"},
			{Name: "gunshot_detected", Type: model.MetricBoolean},
			{Name: "aggression_score", Type: model.MetricNumeric},
		},
		AlertRules: []model.AlertRule{
			{Name: "loud-sound", Metric: "sound_level_db", Condition: model.ConditionGT, Threshold: model.Threshold{Scalar: 85.0}, Severity: model.SeverityHigh, CooldownSeconds: 120},
			{Name: "gunshot", Metric: "gunshot_detected", Condition: model.ConditionEQ, Threshold: model.Threshold{Scalar: true}, Severity: model.SeverityCritical, CooldownSeconds: 30},
		},
		DefaultConfig: map[string]any{"sample_rate_hz": 16000, "sensitivity": "medium"},
	},
	{
		Name:        "generic-camera",
		Description: "Generic IP camera reporting connection and motion telemetry",
		DeviceType:  model.DeviceCamera,
		IsDefault:   true,
		TelemetrySchema: []model.SchemaField{
			{Name: "motion_detected", Type: model.MetricBoolean},
			{Name: "signal_strength", Type: model.MetricNumeric, Unit: "dBm"},
		},
		AlertRules: []model.AlertRule{
			{Name: "motion", Metric: "motion_detected", Condition: model.ConditionEQ, Threshold: model.Threshold{Scalar: true}, Severity: model.SeverityMedium, CooldownSeconds: 60},
		},
		DefaultConfig: map[string]any{"stream_quality": "720p"},
	},
	{
		Name:        "generic-sensor",
		Description: "Generic environmental sensor (temperature, humidity, tamper)",
		DeviceType:  model.DeviceSensor,
		IsDefault:   true,
		TelemetrySchema: []model.SchemaField{
			{Name: "temperature_c", Type: model.MetricNumeric, Unit: "C"},
			{Name: "humidity_pct", Type: model.MetricNumeric, Unit: "%"},
			{Name: "tamper_detected", Type: model.MetricBoolean},
		},
		AlertRules: []model.AlertRule{
			{Name: "high-temp", Metric: "temperature_c", Condition: model.ConditionGT, Threshold: model.Threshold{Scalar: 45.0}, Severity: model.SeverityHigh, CooldownSeconds: 300},
			{Name: "tamper", Metric: "tamper_detected", Condition: model.ConditionEQ, Threshold: model.Threshold{Scalar: true}, Severity: model.SeverityCritical, CooldownSeconds: 0},
		},
		DefaultConfig: map[string]any{"report_interval_seconds": 60},
	},
}

// Seed inserts the built-in profiles, skipping any name that already
// exists so repeated startup calls are a no-op.
func (r *Registry) Seed(ctx context.Context) error {
	for i := range builtins {
		p := builtins[i]
		_, err := r.repo.GetByName(ctx, p.Name)
		if err == nil {
			continue
		}
		if errors.GetKind(err) != errors.KindNotFound {
			return err
		}
		if err := r.repo.Create(ctx, &p); err != nil {
			return err
		}
		r.log.Info("seeded built-in profile", "name", p.Name)
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// MetricType is the declared dynamic type of a telemetry value.
type MetricType string

const (
	MetricNumeric MetricType = "numeric"
	MetricString  MetricType = "string"
	MetricBoolean MetricType = "boolean"
)

// AlertCondition is the comparison operator an alert rule applies.
type AlertCondition string

const (
	ConditionGT    AlertCondition = "gt"
	ConditionLT    AlertCondition = "lt"
	ConditionGTE   AlertCondition = "gte"
	ConditionLTE   AlertCondition = "lte"
	ConditionEQ    AlertCondition = "eq"
	ConditionNE    AlertCondition = "ne"
	ConditionRange AlertCondition = "range"
)

// AlertSeverity ranks an alert rule's urgency.
type AlertSeverity string

const (
	SeverityCritical AlertSeverity = "critical"
	SeverityHigh     AlertSeverity = "high"
	SeverityMedium   AlertSeverity = "medium"
	SeverityLow      AlertSeverity = "low"
	SeverityInfo     AlertSeverity = "info"
)

// SchemaField describes one metric a profile's device class may emit.
type SchemaField struct {
	Name string      `json:"name"`
	Type MetricType  `json:"type"`
	Unit string      `json:"unit,omitempty"`
	Min  *float64    `json:"min,omitempty"`
	Max  *float64    `json:"max,omitempty"`
	Enum []string    `json:"enum,omitempty"`
}

// Threshold is either a scalar or a {min, max} range, depending on the
// rule's condition.
type Threshold struct {
	Scalar any      `json:"scalar,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// AlertRule is a per-metric condition evaluated on every ingested batch.
type AlertRule struct {
	Name            string         `json:"name" validate:"required"`
	Metric          string         `json:"metric" validate:"required"`
	Condition       AlertCondition `json:"condition" validate:"required"`
	Threshold       Threshold      `json:"threshold"`
	Severity        AlertSeverity  `json:"severity" validate:"required"`
	CooldownSeconds int            `json:"cooldown_seconds" validate:"gte=0"`
}

// DeviceProfile is a reusable template: what a device class emits, its
// alert rules, and its default config.
type DeviceProfile struct {
	ID               uuid.UUID
	Name             string `validate:"required"`
	Description      string
	DeviceType       DeviceType `validate:"required"`
	TelemetrySchema  []SchemaField
	AttributesServer map[string]any
	AttributesClient map[string]any
	AlertRules       []AlertRule `validate:"dive"`
	DefaultConfig    map[string]any
	IsDefault        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// FieldByName returns the schema field for metric, or nil if not declared.
func (p *DeviceProfile) FieldByName(metric string) *SchemaField {
	for i := range p.TelemetrySchema {
		if p.TelemetrySchema[i].Name == metric {
			return &p.TelemetrySchema[i]
		}
	}
	return nil
}

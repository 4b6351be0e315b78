package model

import (
	"time"

	"github.com/google/uuid"
)

// TelemetryValue is the tagged union of value types a metric can carry.
// Boolean is checked before numeric everywhere this is decoded: a JSON
// boolean must never satisfy a numeric schema slot.
type TelemetryValue struct {
	Numeric *float64 `json:"numeric,omitempty"`
	String  *string  `json:"string,omitempty"`
	Bool    *bool    `json:"bool,omitempty"`
}

// ValueFromAny classifies a decoded JSON value into the tagged union,
// testing bool before float64 per the schema's explicit ordering rule.
func ValueFromAny(v any) (TelemetryValue, bool) {
	switch tv := v.(type) {
	case bool:
		return TelemetryValue{Bool: &tv}, true
	case float64:
		return TelemetryValue{Numeric: &tv}, true
	case string:
		return TelemetryValue{String: &tv}, true
	default:
		return TelemetryValue{}, false
	}
}

// Raw returns the underlying value as an any, for structural eq/ne
// comparisons and for raw_payload storage.
func (v TelemetryValue) Raw() any {
	switch {
	case v.Bool != nil:
		return *v.Bool
	case v.Numeric != nil:
		return *v.Numeric
	case v.String != nil:
		return *v.String
	default:
		return nil
	}
}

// Row is one narrow hypertable row: exactly one value column populated.
type Row struct {
	Time        time.Time
	DeviceID    uuid.UUID
	MetricName  string
	ValueNumeric *float64
	ValueString  *string
	ValueBool    *bool
}

// RowFromValue expands a TelemetryValue into a Row.
func RowFromValue(t time.Time, deviceID uuid.UUID, metric string, v TelemetryValue) Row {
	return Row{
		Time:         t,
		DeviceID:     deviceID,
		MetricName:   metric,
		ValueNumeric: v.Numeric,
		ValueString:  v.String,
		ValueBool:    v.Bool,
	}
}

// Record is the canonical form of one ingested telemetry message, built by
// the Ingestion Gateway and handed whole to the worker pool and evaluator.
type Record struct {
	DeviceID        uuid.UUID                `json:"device_id"`
	Metrics         map[string]TelemetryValue `json:"metrics"`
	DeviceTimestamp *time.Time                `json:"device_timestamp,omitempty"`
	ServerTimestamp time.Time                 `json:"server_timestamp"`
	MessageID       string                    `json:"message_id,omitempty"`
}

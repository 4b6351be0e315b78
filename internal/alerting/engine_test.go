package alerting

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vigilia-platform/iotcore/internal/model"
)

func numericValue(v float64) model.TelemetryValue {
	return model.TelemetryValue{Numeric: &v}
}

func boolValue(v bool) model.TelemetryValue {
	return model.TelemetryValue{Bool: &v}
}

func stringValue(v string) model.TelemetryValue {
	return model.TelemetryValue{String: &v}
}

func TestConditionFires_Comparisons(t *testing.T) {
	cases := []struct {
		name      string
		condition model.AlertCondition
		threshold model.Threshold
		value     model.TelemetryValue
		want      bool
	}{
		{"gt fires above threshold", model.ConditionGT, model.Threshold{Scalar: 85.0}, numericValue(90), true},
		{"gt does not fire at threshold", model.ConditionGT, model.Threshold{Scalar: 85.0}, numericValue(85), false},
		{"lt fires below threshold", model.ConditionLT, model.Threshold{Scalar: 10.0}, numericValue(5), true},
		{"gte fires at threshold", model.ConditionGTE, model.Threshold{Scalar: 85.0}, numericValue(85), true},
		{"lte fires at threshold", model.ConditionLTE, model.Threshold{Scalar: 85.0}, numericValue(85), true},
		{"gt skips non-numeric", model.ConditionGT, model.Threshold{Scalar: 85.0}, boolValue(true), false},
		{"range fires within bounds", model.ConditionRange, model.Threshold{Min: f64(10), Max: f64(20)}, numericValue(15), true},
		{"range does not fire outside bounds", model.ConditionRange, model.Threshold{Min: f64(10), Max: f64(20)}, numericValue(25), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, conditionFires(tc.condition, tc.threshold, tc.value))
		})
	}
}

func TestConditionFires_EqNe(t *testing.T) {
	assert.True(t, conditionFires(model.ConditionEQ, model.Threshold{Scalar: true}, boolValue(true)))
	assert.False(t, conditionFires(model.ConditionEQ, model.Threshold{Scalar: true}, boolValue(false)))
	assert.True(t, conditionFires(model.ConditionNE, model.Threshold{Scalar: "ok"}, stringValue("fault")))
	assert.False(t, conditionFires(model.ConditionNE, model.Threshold{Scalar: "ok"}, stringValue("ok")))
}

func TestDeriveAlertType(t *testing.T) {
	assert.Equal(t, "sound_anomaly", deriveAlertType("sound_level_db"))
	assert.Equal(t, "high_temperature", deriveAlertType("temperature_c"))
	assert.Equal(t, "gas", deriveAlertType("gas_ppm"))
	assert.Equal(t, "tamper", deriveAlertType("tamper_detected"))
	assert.Equal(t, "intrusion", deriveAlertType("motion_detected"))
	assert.Equal(t, "threshold_violation", deriveAlertType("battery_level"))
}

func f64(v float64) *float64 { return &v }

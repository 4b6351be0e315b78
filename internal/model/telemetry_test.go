package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValueFromAny(t *testing.T) {
	v, ok := ValueFromAny(true)
	assert.True(t, ok)
	assert.NotNil(t, v.Bool)
	assert.True(t, *v.Bool)

	v, ok = ValueFromAny(21.5)
	assert.True(t, ok)
	assert.NotNil(t, v.Numeric)
	assert.Equal(t, 21.5, *v.Numeric)

	v, ok = ValueFromAny("on")
	assert.True(t, ok)
	assert.NotNil(t, v.String)
	assert.Equal(t, "on", *v.String)

	_, ok = ValueFromAny(map[string]any{})
	assert.False(t, ok)
}

func TestValueFromAny_BoolBeforeNumeric(t *testing.T) {
	v, ok := ValueFromAny(false)
	assert.True(t, ok)
	assert.NotNil(t, v.Bool)
	assert.Nil(t, v.Numeric, "a bool value must never also populate Numeric")
}

func TestTelemetryValue_Raw(t *testing.T) {
	n := 1.5
	s := "x"
	b := true
	assert.Equal(t, 1.5, TelemetryValue{Numeric: &n}.Raw())
	assert.Equal(t, "x", TelemetryValue{String: &s}.Raw())
	assert.Equal(t, true, TelemetryValue{Bool: &b}.Raw())
	assert.Nil(t, TelemetryValue{}.Raw())
}

func TestRowFromValue(t *testing.T) {
	deviceID := uuid.New()
	now := time.Now().UTC()
	n := 42.0
	row := RowFromValue(now, deviceID, "temp", TelemetryValue{Numeric: &n})

	assert.Equal(t, now, row.Time)
	assert.Equal(t, deviceID, row.DeviceID)
	assert.Equal(t, "temp", row.MetricName)
	assert.Equal(t, &n, row.ValueNumeric)
	assert.Nil(t, row.ValueString)
	assert.Nil(t, row.ValueBool)
}

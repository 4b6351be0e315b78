package ingest

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/vigilia-platform/iotcore/internal/model"
)

func TestParseTelemetryTopic(t *testing.T) {
	agency := uuid.New()
	device := uuid.New()
	topic := "agency/" + agency.String() + "/device/" + device.String() + "/telemetry"

	gotAgency, gotDevice, ok := parseTelemetryTopic(topic)
	assert.True(t, ok)
	assert.Equal(t, agency, gotAgency)
	assert.Equal(t, device, gotDevice)
}

func TestParseTelemetryTopic_Malformed(t *testing.T) {
	cases := []string{
		"agency/not-a-uuid/device/" + uuid.New().String() + "/telemetry",
		"agency/" + uuid.New().String() + "/device/not-a-uuid/telemetry",
		"agency/" + uuid.New().String() + "/device/" + uuid.New().String() + "/register",
		"too/few/parts",
	}
	for _, topic := range cases {
		_, _, ok := parseTelemetryTopic(topic)
		assert.False(t, ok, "expected %q to be rejected", topic)
	}
}

func numeric(v float64) model.TelemetryValue { return model.TelemetryValue{Numeric: &v} }
func boolean(v bool) model.TelemetryValue    { return model.TelemetryValue{Bool: &v} }
func str(v string) model.TelemetryValue      { return model.TelemetryValue{String: &v} }

func TestCheckFieldType(t *testing.T) {
	assert.NoError(t, checkFieldType(model.MetricNumeric, numeric(1.5)))
	assert.NoError(t, checkFieldType(model.MetricBoolean, boolean(true)))
	assert.NoError(t, checkFieldType(model.MetricString, str("on")))

	assert.Error(t, checkFieldType(model.MetricNumeric, boolean(true)), "boolean must not satisfy a numeric field")
	assert.Error(t, checkFieldType(model.MetricBoolean, numeric(1)))
	assert.Error(t, checkFieldType(model.MetricString, numeric(1)))
}

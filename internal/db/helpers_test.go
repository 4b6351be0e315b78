package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilia-platform/iotcore/internal/model"
)

func TestNullableString(t *testing.T) {
	assert.Nil(t, nullableString(""))
	got := nullableString("abc")
	require.NotNil(t, got)
	assert.Equal(t, "abc", *got)
}

func TestNonNilMap(t *testing.T) {
	assert.Equal(t, map[string]any{}, nonNilMap(nil))
	m := map[string]any{"a": 1}
	assert.Equal(t, m, nonNilMap(m))
}

func TestNonNilSlice(t *testing.T) {
	assert.Equal(t, []string{}, nonNilSlice(nil))
	s := []string{"a", "b"}
	assert.Equal(t, s, nonNilSlice(s))
}

func TestMarshalProfileJSON(t *testing.T) {
	profile := &model.DeviceProfile{
		TelemetrySchema: []model.SchemaField{{Name: "temp", Type: model.MetricNumeric}},
		AlertRules: []model.AlertRule{{
			Metric:    "temp",
			Condition: model.ConditionGT,
			Severity:  model.SeverityHigh,
		}},
	}

	schema, rules, serverAttrs, clientAttrs, defCfg, err := marshalProfileJSON(profile)
	require.NoError(t, err)

	assert.Contains(t, string(schema), `"temp"`)
	assert.Contains(t, string(rules), `"gt"`)
	assert.Equal(t, "{}", string(serverAttrs))
	assert.Equal(t, "{}", string(clientAttrs))
	assert.Equal(t, "{}", string(defCfg))
}

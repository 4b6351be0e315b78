package profiles

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/model"
)

func testRegistry() *Registry {
	return &Registry{validate: validator.New()}
}

func validProfile() *model.DeviceProfile {
	return &model.DeviceProfile{
		Name:       "generic-sensor-clone",
		DeviceType: model.DeviceSensor,
		TelemetrySchema: []model.SchemaField{
			{Name: "temperature_c", Type: model.MetricNumeric},
		},
		AlertRules: []model.AlertRule{
			{Name: "high-temp", Metric: "temperature_c", Condition: model.ConditionGT, Severity: model.SeverityHigh},
		},
	}
}

func TestValidateProfile_Valid(t *testing.T) {
	r := testRegistry()
	assert.NoError(t, r.validateProfile(validProfile()))
}

func TestValidateProfile_MissingRequiredFields(t *testing.T) {
	r := testRegistry()
	p := validProfile()
	p.Name = ""
	err := r.validateProfile(p)
	assert.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))
}

func TestValidateProfile_RuleReferencesUndeclaredMetric(t *testing.T) {
	r := testRegistry()
	p := validProfile()
	p.AlertRules[0].Metric = "humidity_pct"
	err := r.validateProfile(p)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "undeclared metric")
}

func TestValidateProfile_UnknownCondition(t *testing.T) {
	r := testRegistry()
	p := validProfile()
	p.AlertRules[0].Condition = "between"
	err := r.validateProfile(p)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown condition")
}

func TestValidateProfile_UnknownSeverity(t *testing.T) {
	r := testRegistry()
	p := validProfile()
	p.AlertRules[0].Severity = "catastrophic"
	err := r.validateProfile(p)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown severity")
}

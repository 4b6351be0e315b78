package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vigilia-platform/iotcore/internal/errors"
)

func TestValidateIdentifier(t *testing.T) {
	assert.NoError(t, ValidateIdentifier("ambient.temp-01"))
	assert.NoError(t, ValidateIdentifier("device_id_123"))

	err := ValidateIdentifier("")
	assert.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))

	assert.Error(t, ValidateIdentifier("has space"))
	assert.Error(t, ValidateIdentifier("semi;colon"))
	assert.Error(t, ValidateIdentifier("pipe|char"))
}

func TestValidateIdentifier_RejectsOverlong(t *testing.T) {
	long := make([]byte, 129)
	for i := range long {
		long[i] = 'a'
	}
	assert.Error(t, ValidateIdentifier(string(long)))
}

func TestValidateAllowlist(t *testing.T) {
	assert.NoError(t, ValidateAllowlist("device_type", "sensor", DeviceTypes))
	err := ValidateAllowlist("device_type", "toaster", DeviceTypes)
	assert.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "rmrf", SanitizeString("rm;rf"))
	assert.Equal(t, "hello", SanitizeString("hello"))
	assert.Equal(t, "drop table", SanitizeString("drop` table"))
}

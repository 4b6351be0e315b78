package config

import (
	"encoding/json"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureString_StringMasksValue(t *testing.T) {
	assert.Equal(t, "", SecureString("").String())
	assert.Equal(t, "(hidden)", SecureString("s3cr3t").String())
}

func TestSecureString_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(SecureString("s3cr3t"))
	require.NoError(t, err)
	assert.Equal(t, `"(hidden)"`, string(b))

	b, err = json.Marshal(SecureString(""))
	require.NoError(t, err)
	assert.Equal(t, `""`, string(b))
}

func TestSecureString_UnmarshalYAML(t *testing.T) {
	var s SecureString
	require.NoError(t, yaml.Unmarshal([]byte(`s3cr3t`), &s))
	assert.Equal(t, SecureString("s3cr3t"), s)
	assert.Equal(t, "s3cr3t", string(s))
}

package credentials

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAccessToken_RoundTrips(t *testing.T) {
	raw, hash, err := GenerateAccessToken()
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.NotEmpty(t, hash)
	assert.NotEqual(t, raw, hash)

	assert.True(t, VerifyAccessToken(hash, raw))
	assert.False(t, VerifyAccessToken(hash, "wrong-token"))
}

func TestGenerateAccessToken_Unique(t *testing.T) {
	raw1, _, err := GenerateAccessToken()
	require.NoError(t, err)
	raw2, _, err := GenerateAccessToken()
	require.NoError(t, err)
	assert.NotEqual(t, raw1, raw2)
}

func TestVerifyAccessToken_RejectsTamperedHash(t *testing.T) {
	_, hash, err := GenerateAccessToken()
	require.NoError(t, err)
	assert.False(t, VerifyAccessToken(hash+"x", "anything"))
}

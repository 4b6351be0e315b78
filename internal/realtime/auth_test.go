package realtime

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticTokenAuthenticator(t *testing.T) {
	auth := NewStaticTokenAuthenticator([]string{"tok-a", "tok-b", ""})

	ok, err := auth.Authenticate(context.Background(), "tok-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = auth.Authenticate(context.Background(), "tok-c")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = auth.Authenticate(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok, "empty token must never be accepted even if an empty string was in the source list")
}

func TestNewStaticTokenAuthenticator_Empty(t *testing.T) {
	auth := NewStaticTokenAuthenticator(nil)
	ok, err := auth.Authenticate(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, ok)
}

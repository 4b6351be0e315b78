package brokerauth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseDeviceUsername(t *testing.T) {
	id := uuid.New()

	got, ok := parseDeviceUsername("device_" + id.String())
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = parseDeviceUsername("not-a-device")
	assert.False(t, ok)

	_, ok = parseDeviceUsername("device_not-a-uuid")
	assert.False(t, ok)

	_, ok = parseDeviceUsername("")
	assert.False(t, ok)
}

func TestHook_Superuser(t *testing.T) {
	h := &Hook{}
	ctx := context.Background()
	assert.True(t, h.Superuser(ctx, internalServiceUser, "client1"))
	assert.False(t, h.Superuser(ctx, "device_"+uuid.New().String(), "client1"))
}

package registration

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseTopic(t *testing.T) {
	agency := uuid.New()
	device := uuid.New()
	topic := "agency/" + agency.String() + "/device/" + device.String() + "/register"

	gotAgency, gotDevice, ok := parseTopic(topic)
	assert.True(t, ok)
	assert.Equal(t, agency, gotAgency)
	assert.Equal(t, device, gotDevice)
}

func TestParseTopic_Malformed(t *testing.T) {
	cases := []string{
		"agency/" + uuid.New().String() + "/device/" + uuid.New().String() + "/telemetry",
		"agency/bad-uuid/device/" + uuid.New().String() + "/register",
		"short/topic",
	}
	for _, topic := range cases {
		_, _, ok := parseTopic(topic)
		assert.False(t, ok, "expected %q to be rejected", topic)
	}
}

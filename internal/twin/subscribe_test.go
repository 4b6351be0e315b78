package twin

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestParseReportedTopic(t *testing.T) {
	agency := uuid.New()
	device := uuid.New()
	topic := "agency/" + agency.String() + "/device/" + device.String() + "/config/reported"

	gotAgency, gotDevice, ok := parseReportedTopic(topic)
	assert.True(t, ok)
	assert.Equal(t, agency, gotAgency)
	assert.Equal(t, device, gotDevice)
}

func TestParseReportedTopic_Malformed(t *testing.T) {
	cases := []string{
		"agency/" + uuid.New().String() + "/device/" + uuid.New().String() + "/config/desired",
		"agency/" + uuid.New().String() + "/device/bad-uuid/config/reported",
		"too/short",
	}
	for _, topic := range cases {
		_, _, ok := parseReportedTopic(topic)
		assert.False(t, ok, "expected %q to be rejected", topic)
	}
}

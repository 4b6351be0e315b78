package mqttclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTopicMatches(t *testing.T) {
	cases := []struct {
		filter, topic string
		want          bool
	}{
		{"agency/+/device/+/telemetry", "agency/a1/device/d1/telemetry", true},
		{"agency/+/device/+/telemetry", "agency/a1/device/d1/register", false},
		{"agency/#", "agency/a1/device/d1/telemetry", true},
		{"agency/#", "agency", true},
		{"agency/a1/#", "agency/a1", true},
		{"agency/+/device/+/telemetry", "agency/a1/telemetry", false},
		{"a/b/c", "a/b/c", true},
		{"a/b/c", "a/b/c/d", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, topicMatches(c.filter, c.topic), "filter=%q topic=%q", c.filter, c.topic)
	}
}

func TestSplitTopic(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitTopic("a/b/c"))
	assert.Equal(t, []string{""}, splitTopic(""))
	assert.Equal(t, []string{"a"}, splitTopic("a"))
}

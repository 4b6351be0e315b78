package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 120*time.Second, cfg.OfflineThreshold)
}

func TestConfig_WithDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := Config{PollInterval: 5 * time.Second, OfflineThreshold: 10 * time.Second}.withDefaults()
	assert.Equal(t, 5*time.Second, cfg.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.OfflineThreshold)
}

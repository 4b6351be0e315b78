package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	cfg := DefaultConfig()
	cfg.Postgres.DSN = "postgres://localhost/iotcore"
	cfg.MQTT.BrokerURL = "mqtt://localhost:1883"
	cfg.CA.KeyPath = "/etc/iotcore/ca.key"
	cfg.CA.CertPath = "/etc/iotcore/ca.crt"
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RequiresPostgresDSN(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.DSN = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresMQTTBrokerURL(t *testing.T) {
	cfg := validConfig()
	cfg.MQTT.BrokerURL = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresCAPaths(t *testing.T) {
	cfg := validConfig()
	cfg.CA.KeyPath = ""
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.CA.CertPath = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_RequiresPositiveWorkerPoolSize(t *testing.T) {
	cfg := validConfig()
	cfg.Worker.PoolSize = 0
	assert.Error(t, cfg.Validate())
}

func TestDefaultConfig_Values(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 4, cfg.Worker.PoolSize)
	assert.Equal(t, ":8443", cfg.HTTP.ListenAddr)
}

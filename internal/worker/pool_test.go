package worker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilia-platform/iotcore/internal/logging"
	"github.com/vigilia-platform/iotcore/internal/model"
)

func testLogger() *logging.Logger {
	return logging.New(logging.DefaultConfig())
}

func TestExpandedRowCount(t *testing.T) {
	numeric := 1.0
	batch := []pending{
		{record: model.Record{Metrics: map[string]model.TelemetryValue{
			"temp": {Numeric: &numeric},
			"hum":  {Numeric: &numeric},
		}}},
		{record: model.Record{Metrics: map[string]model.TelemetryValue{
			"battery": {Numeric: &numeric},
		}}},
	}
	assert.Equal(t, 3, expandedRowCount(batch))
}

func TestExpandedRowCount_Empty(t *testing.T) {
	assert.Equal(t, 0, expandedRowCount(nil))
}

func TestDecodeRecord(t *testing.T) {
	deviceID := uuid.New()
	payload := `{"device_id":"` + deviceID.String() + `","metrics":{"temp":{"numeric":21.5}},"server_timestamp":"2026-01-01T00:00:00Z"}`

	msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{"payload": payload}}
	rec, ok := decodeRecord(msg, testLogger())
	require.True(t, ok)
	assert.Equal(t, deviceID, rec.DeviceID)
	require.Contains(t, rec.Metrics, "temp")
	assert.Equal(t, 21.5, *rec.Metrics["temp"].Numeric)
}

func TestDecodeRecord_MissingPayload(t *testing.T) {
	msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{}}
	_, ok := decodeRecord(msg, testLogger())
	assert.False(t, ok)
}

func TestDecodeRecord_MalformedJSON(t *testing.T) {
	msg := redis.XMessage{ID: "1-0", Values: map[string]interface{}{"payload": "not json"}}
	_, ok := decodeRecord(msg, testLogger())
	assert.False(t, ok)
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, 5*time.Second, cfg.BatchTimeout)
	assert.Equal(t, 30*time.Second, cfg.ClaimIdle)
}

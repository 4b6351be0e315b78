package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersAndIncrements(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.IngestMessagesTotal.WithLabelValues("mqtt").Inc()
	m.IngestRejectedTotal.WithLabelValues("malformed_payload").Inc()
	m.DedupHitsTotal.Inc()
	m.DevicesOnline.Set(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	assert.True(t, found["iotcore_ingest_messages_total"])
	assert.True(t, found["iotcore_ingest_rejected_total"])
	assert.True(t, found["iotcore_ingest_dedup_hits_total"])
	assert.True(t, found["iotcore_devices_online"])

	var gauge *dto.Metric
	for _, f := range families {
		if f.GetName() == "iotcore_devices_online" {
			gauge = f.Metric[0]
		}
	}
	require.NotNil(t, gauge)
	assert.Equal(t, float64(3), gauge.GetGauge().GetValue())
}

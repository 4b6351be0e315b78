// Package metrics exposes the core's Prometheus collectors: ingest
// throughput, batch flush latency, alert fire rate, dedup/cooldown hit
// rate, and device online/offline gauges.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry bundles every collector the process registers once at
// startup and hands to each component that reports against it.
type Registry struct {
	IngestMessagesTotal   *prometheus.CounterVec
	IngestRejectedTotal   *prometheus.CounterVec
	DedupHitsTotal        prometheus.Counter
	CooldownSuppressed    prometheus.Counter
	BatchFlushDuration    prometheus.Histogram
	BatchFlushRows        prometheus.Histogram
	AlertsFiredTotal      *prometheus.CounterVec
	DevicesOnline         prometheus.Gauge
	DevicesOffline        prometheus.Gauge
	TwinConfigSyncedTotal prometheus.Counter
	ClaimedStaleTotal     prometheus.Counter
}

// New constructs and registers every collector against reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		IngestMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iotcore",
			Subsystem: "ingest",
			Name:      "messages_total",
			Help:      "Telemetry messages accepted onto the stream, by transport.",
		}, []string{"transport"}),
		IngestRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iotcore",
			Subsystem: "ingest",
			Name:      "rejected_total",
			Help:      "Telemetry messages rejected by validation, by reason.",
		}, []string{"reason"}),
		DedupHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "iotcore",
			Subsystem: "ingest",
			Name:      "dedup_hits_total",
			Help:      "Telemetry messages dropped as duplicates by message_id.",
		}),
		CooldownSuppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "iotcore",
			Subsystem: "alerting",
			Name:      "cooldown_suppressed_total",
			Help:      "Alert rule firings suppressed by an active cooldown.",
		}),
		BatchFlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "iotcore",
			Subsystem: "worker",
			Name:      "batch_flush_duration_seconds",
			Help:      "Time spent expanding, evaluating, and inserting one worker batch.",
			Buckets:   prometheus.DefBuckets,
		}),
		BatchFlushRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "iotcore",
			Subsystem: "worker",
			Name:      "batch_flush_rows",
			Help:      "Expanded row count per flushed batch.",
			Buckets:   []float64{10, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		AlertsFiredTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iotcore",
			Subsystem: "alerting",
			Name:      "fired_total",
			Help:      "Alerts persisted, by severity.",
		}, []string{"severity"}),
		DevicesOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "iotcore",
			Subsystem: "devices",
			Name:      "online",
			Help:      "Devices currently in status=online.",
		}),
		DevicesOffline: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "iotcore",
			Subsystem: "devices",
			Name:      "offline",
			Help:      "Devices currently in status=offline.",
		}),
		TwinConfigSyncedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "iotcore",
			Subsystem: "twin",
			Name:      "config_synced_total",
			Help:      "Times a device twin transitioned from out-of-sync to synced.",
		}),
		ClaimedStaleTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "iotcore",
			Subsystem: "worker",
			Name:      "claimed_stale_total",
			Help:      "Pending telemetry stream entries reassigned from a crashed consumer via XAUTOCLAIM.",
		}),
	}

	reg.MustRegister(
		m.IngestMessagesTotal, m.IngestRejectedTotal, m.DedupHitsTotal, m.CooldownSuppressed,
		m.BatchFlushDuration, m.BatchFlushRows, m.AlertsFiredTotal,
		m.DevicesOnline, m.DevicesOffline, m.TwinConfigSyncedTotal, m.ClaimedStaleTotal,
	)
	return m
}

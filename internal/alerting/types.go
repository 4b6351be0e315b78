package alerting

import "strings"

// alertTypeRules maps a metric-name substring to the alert_type stamped
// onto a persisted alert, the fixed derivation table the spec calls out:
// sound/dB → sound anomaly, temperature → high temperature, gas → gas,
// tamper → tamper, motion/intrusion → intrusion; anything else falls
// through to threshold violation.
var alertTypeRules = []struct {
	contains  string
	alertType string
}{
	{"sound", "sound_anomaly"},
	{"db", "sound_anomaly"},
	{"temperature", "high_temperature"},
	{"gas", "gas"},
	{"tamper", "tamper"},
	{"motion", "intrusion"},
	{"intrusion", "intrusion"},
}

const defaultAlertType = "threshold_violation"

func deriveAlertType(metric string) string {
	lower := strings.ToLower(metric)
	for _, r := range alertTypeRules {
		if strings.Contains(lower, r.contains) {
			return r.alertType
		}
	}
	return defaultAlertType
}

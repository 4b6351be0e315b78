package model

import (
	"time"

	"github.com/google/uuid"
)

// DeviceTwin is the {desired, reported} configuration pair for one device.
type DeviceTwin struct {
	DeviceID          uuid.UUID
	DesiredConfig     map[string]any
	DesiredVersion    int
	DesiredUpdatedAt  time.Time
	ReportedConfig    map[string]any
	ReportedVersion   int
	ReportedUpdatedAt *time.Time
	IsSynced          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Delta buckets the three ways desired and reported config can diverge.
type Delta struct {
	ValuesChanged         map[string][2]any `json:"values_changed"`
	AddedInDesired        map[string]any    `json:"added_in_desired"`
	PresentInReportedOnly map[string]any    `json:"present_in_reported_only"`
	Summary               string            `json:"summary"`
}

// ComputeDelta produces the three-bucket diff used by GetTwin.
func ComputeDelta(desired, reported map[string]any) Delta {
	d := Delta{
		ValuesChanged:         map[string][2]any{},
		AddedInDesired:        map[string]any{},
		PresentInReportedOnly: map[string]any{},
	}

	for k, dv := range desired {
		rv, ok := reported[k]
		if !ok {
			d.AddedInDesired[k] = dv
			continue
		}
		if !deepEqual(dv, rv) {
			d.ValuesChanged[k] = [2]any{dv, rv}
		}
	}
	for k, rv := range reported {
		if _, ok := desired[k]; !ok {
			d.PresentInReportedOnly[k] = rv
		}
	}

	changed := len(d.ValuesChanged)
	added := len(d.AddedInDesired)
	reportedOnly := len(d.PresentInReportedOnly)
	if changed == 0 && added == 0 && reportedOnly == 0 {
		d.Summary = "in sync"
	} else {
		d.Summary = summarize(changed, added, reportedOnly)
	}
	return d
}

func summarize(changed, added, reportedOnly int) string {
	parts := ""
	if changed > 0 {
		parts += pluralize(changed, "value changed", "values changed")
	}
	if added > 0 {
		if parts != "" {
			parts += ", "
		}
		parts += pluralize(added, "key pending in desired", "keys pending in desired")
	}
	if reportedOnly > 0 {
		if parts != "" {
			parts += ", "
		}
		parts += pluralize(reportedOnly, "key reported only", "keys reported only")
	}
	return parts
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return itoa(n) + " " + plural
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// deepEqual compares the JSON-decoded scalar/map/slice values that flow
// through config patches. Reflection-based reflect.DeepEqual is avoided
// because numeric types decoded from JSON (float64) must compare equal to
// integers encoded the same way; a plain recursive comparison over the
// json.Unmarshal output shapes (map[string]any, []any, scalars) is enough.
func deepEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, ok := bv[k]
			if !ok || !deepEqual(v, bvv) {
				return false
			}
		}
		return true
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !deepEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	default:
		return a == b
	}
}

// DeepEqualConfig exposes deepEqual for the twin service's is_synced check.
func DeepEqualConfig(a, b map[string]any) bool {
	return deepEqual(a, b)
}

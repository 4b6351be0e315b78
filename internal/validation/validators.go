// Package validation provides small, dependency-free validators for
// identifiers, enum allowlists and free-form strings. No other package in
// this module imports it.
package validation

import (
	"regexp"
	"strings"

	"github.com/vigilia-platform/iotcore/internal/errors"
)

var (
	// Valid metric/rule name: alphanumeric, dash, underscore, dot.
	identifierRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,128}$`)

	dangerousChars = []string{";", "|", "&", "$", "`", "<", ">", "\\", "\x00", "\n", "\r"}
)

// DeviceTypes enumerates the device classes recognized by the core.
var DeviceTypes = []string{"microphone", "camera", "sensor", "gateway"}

// CredentialTypes enumerates the provisioning credential kinds.
var CredentialTypes = []string{"access_token", "x509"}

// MetricTypes enumerates the telemetry schema value types.
var MetricTypes = []string{"numeric", "string", "boolean"}

// AlertConditions enumerates the alert rule comparison operators.
var AlertConditions = []string{"gt", "lt", "gte", "lte", "eq", "ne", "range"}

// AlertSeverities enumerates the alert severities, most to least urgent.
var AlertSeverities = []string{"critical", "high", "medium", "low", "info"}

// ValidateIdentifier validates a metric name, rule name, or similar short
// token used as a map key or Redis key component.
func ValidateIdentifier(id string) error {
	if id == "" {
		return errors.New(errors.KindValidation, "identifier cannot be empty")
	}
	if !identifierRegex.MatchString(id) {
		return errors.Errorf(errors.KindValidation, "invalid identifier: %q (must be alphanumeric with -_.)", id)
	}
	for _, c := range dangerousChars {
		if strings.Contains(id, c) {
			return errors.Errorf(errors.KindValidation, "identifier contains disallowed character: %q", c)
		}
	}
	return nil
}

// ValidateAllowlist checks that value is one of allowed, returning a
// KindValidation error naming the allowed set otherwise.
func ValidateAllowlist(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return errors.Errorf(errors.KindValidation, "%s: %q is not one of %s", field, value, strings.Join(allowed, ", "))
}

// SanitizeString strips characters that have no business appearing in a
// value destined for a log line or a Redis key.
func SanitizeString(s string) string {
	for _, c := range dangerousChars {
		s = strings.ReplaceAll(s, c, "")
	}
	return s
}

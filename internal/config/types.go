package config

// SecureString is a string that hides its value in logs and JSON output.
// It is used for DB passwords, MQTT credentials, and CA key passphrases.
type SecureString string

func (s SecureString) String() string {
	if s == "" {
		return ""
	}
	return "(hidden)"
}

func (s SecureString) GoString() string {
	return "(hidden)"
}

// MarshalJSON masks the value in any API response that echoes config back.
func (s SecureString) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte(`""`), nil
	}
	return []byte(`"(hidden)"`), nil
}

// UnmarshalYAML keeps the raw value decodable from config.yaml while the
// String/GoString/MarshalJSON overrides above keep it out of logs.
func (s *SecureString) UnmarshalYAML(unmarshal func(any) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*s = SecureString(raw)
	return nil
}

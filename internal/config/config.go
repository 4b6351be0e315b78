// Package config loads the iotcore process configuration from a single
// YAML file, following the teacher's pattern of one struct, loaded once at
// startup and passed by pointer into constructors.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vigilia-platform/iotcore/internal/errors"
)

const defaultConfigPath = "/etc/iotcore/config.yaml"

// Config is the root of the iotcore configuration tree.
type Config struct {
	Postgres  PostgresConfig  `yaml:"postgres"`
	Redis     RedisConfig     `yaml:"redis"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	CA        CAConfig        `yaml:"ca"`
	HTTP      HTTPConfig      `yaml:"http"`
	Worker    WorkerConfig    `yaml:"worker"`
	Health    HealthConfig    `yaml:"health"`
	Realtime  RealtimeConfig  `yaml:"realtime"`
	Ingest    IngestConfig    `yaml:"ingest"`
	LogLevel  string          `yaml:"log_level"`
	LogJSON   bool            `yaml:"log_json"`
}

type PostgresConfig struct {
	DSN         SecureString  `yaml:"dsn"`
	MaxConns    int32         `yaml:"max_conns"`
	ConnTimeout time.Duration `yaml:"conn_timeout"`
}

type RedisConfig struct {
	Addr     string       `yaml:"addr"`
	Password SecureString `yaml:"password"`
	DB       int          `yaml:"db"`
	Stream   string       `yaml:"stream"`
	Group    string       `yaml:"group"`
}

type MQTTConfig struct {
	BrokerURL string       `yaml:"broker_url"`
	ClientID  string       `yaml:"client_id"`
	Username  string       `yaml:"username"`
	Password  SecureString `yaml:"password"`
}

type CAConfig struct {
	KeyPath        string       `yaml:"key_path"`
	CertPath       string       `yaml:"cert_path"`
	KeyPassphrase  SecureString `yaml:"key_passphrase"`
	ValidityDays   int          `yaml:"validity_days"`
}

type HTTPConfig struct {
	ListenAddr        string        `yaml:"listen_addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	IdleTimeout       time.Duration `yaml:"idle_timeout"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	CORSAllowedOrigins []string     `yaml:"cors_allowed_origins"`
}

type WorkerConfig struct {
	PoolSize      int           `yaml:"pool_size"`
	BatchSize     int           `yaml:"batch_size"`
	BatchInterval time.Duration `yaml:"batch_interval"`
	ClaimIdle     time.Duration `yaml:"claim_idle"`
}

type HealthConfig struct {
	SweepInterval   time.Duration `yaml:"sweep_interval"`
	OfflineAfter    time.Duration `yaml:"offline_after"`
	PingGateways    bool          `yaml:"ping_gateways"`
	PingTimeout     time.Duration `yaml:"ping_timeout"`
}

type RealtimeConfig struct {
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	ReadBufferSize int           `yaml:"read_buffer_size"`
	// DashboardTokens authenticates the operator-dashboard backend that
	// proxies WebSocket connections to this core; operator-level user
	// auth is handled upstream of this core (spec §1 Non-goals).
	DashboardTokens []SecureString `yaml:"dashboard_tokens"`
}

type IngestConfig struct {
	StrictProfile bool `yaml:"strict_profile"`
}

// DefaultConfig returns the values used when a field is absent from the
// YAML file, mirroring the teacher's DefaultServerConfig helper.
func DefaultConfig() Config {
	return Config{
		Postgres: PostgresConfig{
			MaxConns:    10,
			ConnTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			Addr:   "127.0.0.1:6379",
			Stream: "telemetry:stream",
			Group:  "telemetry-workers",
		},
		CA: CAConfig{
			ValidityDays: 365,
		},
		HTTP: HTTPConfig{
			ListenAddr:        ":8443",
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxBodyBytes:      1 << 20,
		},
		Worker: WorkerConfig{
			PoolSize:      4,
			BatchSize:     200,
			BatchInterval: 2 * time.Second,
			ClaimIdle:     30 * time.Second,
		},
		Health: HealthConfig{
			SweepInterval: 30 * time.Second,
			OfflineAfter:  2 * time.Minute,
			PingGateways:  true,
			PingTimeout:   2 * time.Second,
		},
		Realtime: RealtimeConfig{
			WriteTimeout:   10 * time.Second,
			PingInterval:   30 * time.Second,
			ReadBufferSize: 4096,
		},
		Ingest: IngestConfig{
			StrictProfile: false,
		},
		LogLevel: "info",
	}
}

// Path resolves the config file location: IOTCORE_CONFIG env var, or the
// platform default.
func Path() string {
	if p := os.Getenv("IOTCORE_CONFIG"); p != "" {
		return p
	}
	return defaultConfigPath
}

// Load reads and parses the YAML config file at path, overlaying it onto
// DefaultConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindInternal, "reading config file %s", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, errors.KindInternal, "parsing config file %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the fields the process cannot start without.
func (c *Config) Validate() error {
	if c.Postgres.DSN == "" {
		return errors.New(errors.KindValidation, "postgres.dsn is required")
	}
	if c.MQTT.BrokerURL == "" {
		return errors.New(errors.KindValidation, "mqtt.broker_url is required")
	}
	if c.CA.KeyPath == "" || c.CA.CertPath == "" {
		return errors.New(errors.KindValidation, "ca.key_path and ca.cert_path are required")
	}
	if c.Worker.PoolSize < 1 {
		return errors.New(errors.KindValidation, "worker.pool_size must be at least 1")
	}
	return nil
}

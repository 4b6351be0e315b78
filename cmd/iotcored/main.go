// Command iotcored is the IoT telemetry/alerting core process: it wires
// every component in §2's dependency order and serves MQTT + HTTP until
// asked to stop.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/vigilia-platform/iotcore/internal/alerting"
	"github.com/vigilia-platform/iotcore/internal/api"
	"github.com/vigilia-platform/iotcore/internal/audit"
	"github.com/vigilia-platform/iotcore/internal/brokerauth"
	"github.com/vigilia-platform/iotcore/internal/ca"
	"github.com/vigilia-platform/iotcore/internal/config"
	"github.com/vigilia-platform/iotcore/internal/credentials"
	"github.com/vigilia-platform/iotcore/internal/db"
	"github.com/vigilia-platform/iotcore/internal/health"
	"github.com/vigilia-platform/iotcore/internal/ingest"
	"github.com/vigilia-platform/iotcore/internal/logging"
	"github.com/vigilia-platform/iotcore/internal/metrics"
	"github.com/vigilia-platform/iotcore/internal/mqttclient"
	"github.com/vigilia-platform/iotcore/internal/profiles"
	"github.com/vigilia-platform/iotcore/internal/provisioning"
	"github.com/vigilia-platform/iotcore/internal/realtime"
	"github.com/vigilia-platform/iotcore/internal/registration"
	"github.com/vigilia-platform/iotcore/internal/streambuf"
	"github.com/vigilia-platform/iotcore/internal/twin"
	"github.com/vigilia-platform/iotcore/internal/worker"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "iotcored:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.Open(ctx, string(cfg.Postgres.DSN), cfg.Postgres.MaxConns, log)
	if err != nil {
		return fmt.Errorf("opening postgres: %w", err)
	}
	defer pool.Close()

	if err := pool.Migrate(ctx, string(cfg.Postgres.DSN)); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	stream := streambuf.New(cfg.Redis.Addr, string(cfg.Redis.Password), cfg.Redis.DB, log)
	defer stream.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: string(cfg.Redis.Password),
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	authority, err := ca.Load(cfg.CA.CertPath, cfg.CA.KeyPath)
	if err != nil {
		return fmt.Errorf("loading CA: %w", err)
	}

	devices := db.NewDeviceRepo(pool)
	profileRepo := db.NewProfileRepo(pool)
	credRepo := db.NewCredentialRepo(pool)
	buildings := db.NewBuildingRepo(pool)
	history := db.NewStatusHistoryRepo(pool)
	telemetry := db.NewTelemetryRepo(pool)
	twins := db.NewTwinRepo(pool)
	alerts := db.NewAlertRepo(pool)

	credStore := credentials.New(credRepo)
	profileRegistry := profiles.New(profileRepo, log)
	profileCache := profiles.NewCache(devices, profileRepo)
	auditLog := audit.NewLogger(log)

	reg := prometheus.NewRegistry()
	metricsRegistry := metrics.New(reg)

	mqtt := mqttclient.New(mqttclient.Config{
		BrokerURL: cfg.MQTT.BrokerURL,
		ClientID:  cfg.MQTT.ClientID,
		Username:  cfg.MQTT.Username,
		Password:  string(cfg.MQTT.Password),
	}, log)

	provisioningSvc := provisioning.New(pool, devices, credStore, authority, buildings, profileRegistry, cfg.CA.ValidityDays, auditLog, log)
	brokerAuth := brokerauth.New(devices, credStore, log)
	gateway := ingest.New(devices, profileCache, stream, metricsRegistry, log)

	bus := realtime.New(rdb, realtime.NewStaticTokenAuthenticator(secureStrings(cfg.Realtime.DashboardTokens)), nil, log)

	registrationHandler := registration.New(devices, history, buildings, bus, log)

	evaluator := alerting.NewEngine(profileCache, devices, alerts, stream, bus, metricsRegistry, auditLog, log)

	workerPool := worker.NewPool(worker.Config{
		Workers:      cfg.Worker.PoolSize,
		BatchSize:    cfg.Worker.BatchSize,
		BatchTimeout: cfg.Worker.BatchInterval,
		ClaimIdle:    cfg.Worker.ClaimIdle,
	}, stream, telemetry, evaluator, bus, metricsRegistry, log)

	monitor := health.New(health.Config{
		PollInterval:     cfg.Health.SweepInterval,
		OfflineThreshold: cfg.Health.OfflineAfter,
	}, devices, history, bus, metricsRegistry, log)

	twinSvc := twin.New(twins, devices, mqtt, bus, metricsRegistry, log)

	registrationHandler.Subscribe(mqtt)
	gateway.Subscribe(mqtt)
	twinSvc.Subscribe(mqtt)

	httpServer := api.New(cfg.HTTP, api.Deps{
		Provisioning: provisioningSvc,
		Registry:     profileRegistry,
		Devices:      devices,
		Telemetry:    telemetry,
		Alerts:       alerts,
		Twins:        twinSvc,
		Ingest:       gateway,
		BrokerAuth:   brokerAuth,
		Bus:          bus,
		Audit:        auditLog,
		Registerer:   reg,
	}, log)

	errCh := make(chan error, 2)
	go func() {
		if err := mqtt.Start(ctx); err != nil {
			errCh <- fmt.Errorf("mqtt client stopped: %w", err)
		}
	}()
	go func() {
		if err := workerPool.Run(ctx); err != nil {
			errCh <- fmt.Errorf("worker pool stopped: %w", err)
		}
	}()

	monitor.Start(ctx)
	httpServer.Start()

	log.Info("iotcored started", "http_addr", cfg.HTTP.ListenAddr)

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("component failed", "error", err)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown error", "error", err)
	}
	monitor.Stop()

	return nil
}

func secureStrings(in []config.SecureString) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}

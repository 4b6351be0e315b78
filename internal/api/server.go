// Package api implements the HTTP surface (§4.B-L touchpoints not served
// over MQTT): device provisioning, telemetry query, profile and twin
// management, alert review, the broker auth callouts, and the realtime
// WebSocket upgrade.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vigilia-platform/iotcore/internal/audit"
	"github.com/vigilia-platform/iotcore/internal/brokerauth"
	"github.com/vigilia-platform/iotcore/internal/config"
	"github.com/vigilia-platform/iotcore/internal/db"
	"github.com/vigilia-platform/iotcore/internal/ingest"
	"github.com/vigilia-platform/iotcore/internal/logging"
	"github.com/vigilia-platform/iotcore/internal/profiles"
	"github.com/vigilia-platform/iotcore/internal/provisioning"
	"github.com/vigilia-platform/iotcore/internal/realtime"
	"github.com/vigilia-platform/iotcore/internal/twin"
)

// Deps bundles every collaborator the API surface reaches into. None of
// these are optional except Bus and Audit, which are nil-safe at the call
// site.
type Deps struct {
	Provisioning *provisioning.Service
	Registry     *profiles.Registry
	Devices      *db.DeviceRepo
	Telemetry    *db.TelemetryRepo
	Alerts       *db.AlertRepo
	Twins        *twin.Service
	Ingest       *ingest.Gateway
	BrokerAuth   *brokerauth.Hook
	Bus          *realtime.Bus
	Audit        *audit.Logger
	Registerer   prometheus.Gatherer
}

// Server owns the HTTP listener and routes every request to its handler.
type Server struct {
	cfg    config.HTTPConfig
	deps   Deps
	router *mux.Router
	http   *http.Server
	log    *logging.Logger
}

func New(cfg config.HTTPConfig, deps Deps, log *logging.Logger) *Server {
	s := &Server{cfg: cfg, deps: deps, log: log.WithComponent("api")}
	s.router = mux.NewRouter()
	s.routes()

	var handler http.Handler = s.router
	handler = cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})(handler)
	handler = http.MaxBytesHandler(handler, cfg.MaxBodyBytes)

	s.http = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

func (s *Server) routes() {
	r := s.router

	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(s.deps.Registerer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	if s.deps.Bus != nil {
		r.HandleFunc("/ws", s.deps.Bus.ServeWS).Methods(http.MethodGet)
	}

	broker := r.PathPrefix("/mqtt").Subrouter()
	broker.HandleFunc("/auth", s.handleMQTTAuth).Methods(http.MethodPost)
	broker.HandleFunc("/acl", s.handleMQTTACL).Methods(http.MethodPost)
	broker.HandleFunc("/superuser", s.handleMQTTSuperuser).Methods(http.MethodPost)

	v1 := r.PathPrefix("/api/v1").Subrouter()

	v1.HandleFunc("/devices", s.handleProvisionDevice).Methods(http.MethodPost)
	v1.HandleFunc("/devices/{device_id}", s.handleGetDevice).Methods(http.MethodGet)
	v1.HandleFunc("/devices/{device_id}/telemetry", s.handlePostTelemetry).Methods(http.MethodPost)
	v1.HandleFunc("/devices/{device_id}/telemetry", s.handleQueryTelemetry).Methods(http.MethodGet)
	v1.HandleFunc("/devices/{device_id}/twin", s.handleGetTwin).Methods(http.MethodGet)
	v1.HandleFunc("/devices/{device_id}/twin/desired", s.handlePatchDesired).Methods(http.MethodPatch)

	v1.HandleFunc("/profiles", s.handleListProfiles).Methods(http.MethodGet)
	v1.HandleFunc("/profiles", s.handleCreateProfile).Methods(http.MethodPost)
	v1.HandleFunc("/profiles/{profile_id}", s.handleGetProfile).Methods(http.MethodGet)
	v1.HandleFunc("/profiles/{profile_id}", s.handleUpdateProfile).Methods(http.MethodPut)
	v1.HandleFunc("/profiles/{profile_id}", s.handleDeleteProfile).Methods(http.MethodDelete)

	v1.HandleFunc("/alerts", s.handleListAlerts).Methods(http.MethodGet)
	v1.HandleFunc("/alerts/{alert_id}/acknowledge", s.handleAcknowledgeAlert).Methods(http.MethodPost)
	v1.HandleFunc("/alerts/{alert_id}/resolve", s.handleResolveAlert).Methods(http.MethodPost)
	v1.HandleFunc("/alerts/{alert_id}/dismiss", s.handleDismissAlert).Methods(http.MethodPost)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start runs ListenAndServe in the background and returns immediately.
func (s *Server) Start() {
	go func() {
		s.log.Info("api: listening", "addr", s.cfg.ListenAddr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("api: server error", "error", err)
		}
	}()
}

// Shutdown drains in-flight requests with a bounded grace period.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}

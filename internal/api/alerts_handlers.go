package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vigilia-platform/iotcore/internal/audit"
	"github.com/vigilia-platform/iotcore/internal/errors"
)

func (s *Server) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parseIntParam(q.Get("limit"), 100)
	severity := q.Get("severity")

	var deviceID *uuid.UUID
	if raw := q.Get("device_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, s.log, errors.New(errors.KindValidation, "malformed device_id"))
			return
		}
		deviceID = &id
	}

	alerts, err := s.deps.Alerts.Recent(r.Context(), limit, severity, deviceID)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (s *Server) handleAcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["alert_id"])
	if err != nil {
		writeError(w, s.log, errors.New(errors.KindValidation, "malformed alert_id"))
		return
	}
	if err := s.deps.Alerts.Acknowledge(r.Context(), id, nil); err != nil {
		writeError(w, s.log, err)
		return
	}
	if s.deps.Audit != nil {
		s.deps.Audit.AlertTransition(r.Context(), id, audit.EventAlertAcknowledged, nil)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "acknowledged"})
}

func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["alert_id"])
	if err != nil {
		writeError(w, s.log, errors.New(errors.KindValidation, "malformed alert_id"))
		return
	}
	if err := s.deps.Alerts.Resolve(r.Context(), id); err != nil {
		writeError(w, s.log, err)
		return
	}
	if s.deps.Audit != nil {
		s.deps.Audit.AlertTransition(r.Context(), id, audit.EventAlertResolved, nil)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
}

func (s *Server) handleDismissAlert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["alert_id"])
	if err != nil {
		writeError(w, s.log, errors.New(errors.KindValidation, "malformed alert_id"))
		return
	}
	if err := s.deps.Alerts.Dismiss(r.Context(), id); err != nil {
		writeError(w, s.log, err)
		return
	}
	if s.deps.Audit != nil {
		s.deps.Audit.AlertTransition(r.Context(), id, audit.EventAlertDismissed, nil)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

package api

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vigilia-platform/iotcore/internal/db"
	"github.com/vigilia-platform/iotcore/internal/errors"
)

// handlePostTelemetry is the HTTP alternative to the MQTT telemetry
// subscriber, running the same Gateway.Ingest routine so both transports
// validate and buffer identically.
func (s *Server) handlePostTelemetry(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(mux.Vars(r)["device_id"])
	if err != nil {
		writeError(w, s.log, errors.New(errors.KindValidation, "malformed device_id"))
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, s.log, errors.Wrap(err, errors.KindValidation, "reading request body"))
		return
	}

	if err := s.deps.Ingest.Ingest(r.Context(), deviceID, body, "http"); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (s *Server) handleQueryTelemetry(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(mux.Vars(r)["device_id"])
	if err != nil {
		writeError(w, s.log, errors.New(errors.KindValidation, "malformed device_id"))
		return
	}

	q := r.URL.Query()
	metric := q.Get("metric")
	if metric == "" {
		writeError(w, s.log, errors.New(errors.KindValidation, "metric query parameter is required"))
		return
	}

	agg := db.Aggregation(q.Get("aggregation"))
	if agg == "" {
		agg = db.AggregationRaw
	}

	start, err := parseTimeParam(q.Get("start"), time.Now().Add(-1*time.Hour))
	if err != nil {
		writeError(w, s.log, errors.Wrap(err, errors.KindValidation, "malformed start"))
		return
	}
	end, err := parseTimeParam(q.Get("end"), time.Now())
	if err != nil {
		writeError(w, s.log, errors.Wrap(err, errors.KindValidation, "malformed end"))
		return
	}

	limit := parseIntParam(q.Get("limit"), 1000)
	offset := parseIntParam(q.Get("offset"), 0)

	rows, err := s.deps.Telemetry.Query(r.Context(), deviceID, metric, start, end, agg, limit, offset)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func parseTimeParam(raw string, def time.Time) (time.Time, error) {
	if raw == "" {
		return def, nil
	}
	return time.Parse(time.RFC3339, raw)
}

func parseIntParam(raw string, def int) int {
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

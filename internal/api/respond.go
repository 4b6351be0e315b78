package api

import (
	"encoding/json"
	"net/http"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/logging"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps an internal/errors Kind to the HTTP status it represents
// and writes a small JSON error body. Telemetry validation failures map to
// 422 per spec, not the generic 400.
func writeError(w http.ResponseWriter, log *logging.Logger, err error) {
	kind := errors.GetKind(err)
	status := http.StatusInternalServerError
	switch kind {
	case errors.KindValidation:
		status = http.StatusUnprocessableEntity
	case errors.KindNotFound:
		status = http.StatusNotFound
	case errors.KindPermission:
		status = http.StatusForbidden
	case errors.KindConflict:
		status = http.StatusConflict
	case errors.KindUnavailable:
		status = http.StatusServiceUnavailable
	case errors.KindTimeout:
		status = http.StatusGatewayTimeout
	}
	if status == http.StatusInternalServerError {
		log.Error("api: internal error", "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, errors.KindValidation, "malformed request body")
	}
	return nil
}

package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vigilia-platform/iotcore/internal/errors"
)

func (s *Server) handleGetTwin(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(mux.Vars(r)["device_id"])
	if err != nil {
		writeError(w, s.log, errors.New(errors.KindValidation, "malformed device_id"))
		return
	}

	view, err := s.deps.Twins.GetTwin(r.Context(), deviceID)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePatchDesired(w http.ResponseWriter, r *http.Request) {
	deviceID, err := uuid.Parse(mux.Vars(r)["device_id"])
	if err != nil {
		writeError(w, s.log, errors.New(errors.KindValidation, "malformed device_id"))
		return
	}

	var patch map[string]any
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, s.log, err)
		return
	}

	view, err := s.deps.Twins.UpdateDesired(r.Context(), deviceID, patch)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

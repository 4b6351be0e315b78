package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/model"
)

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Registry.List(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": list})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["profile_id"])
	if err != nil {
		writeError(w, s.log, errors.New(errors.KindValidation, "malformed profile_id"))
		return
	}
	p, err := s.deps.Registry.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var p model.DeviceProfile
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.deps.Registry.Create(r.Context(), &p); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["profile_id"])
	if err != nil {
		writeError(w, s.log, errors.New(errors.KindValidation, "malformed profile_id"))
		return
	}
	var p model.DeviceProfile
	if err := decodeJSON(r, &p); err != nil {
		writeError(w, s.log, err)
		return
	}
	p.ID = id
	if err := s.deps.Registry.Update(r.Context(), &p); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["profile_id"])
	if err != nil {
		writeError(w, s.log, errors.New(errors.KindValidation, "malformed profile_id"))
		return
	}
	if err := s.deps.Registry.Delete(r.Context(), id); err != nil {
		writeError(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/model"
	"github.com/vigilia-platform/iotcore/internal/provisioning"
)

type provisionRequest struct {
	Name           string            `json:"name"`
	DeviceType     model.DeviceType  `json:"device_type"`
	BuildingID     uuid.UUID         `json:"building_id"`
	CredentialType model.CredentialType `json:"credential_type"`
	ProfileID      *uuid.UUID        `json:"profile_id,omitempty"`
	SerialNumber   string            `json:"serial_number,omitempty"`
	Manufacturer   string            `json:"manufacturer,omitempty"`
	Model          string            `json:"model,omitempty"`
	Extras         map[string]any    `json:"extras,omitempty"`
}

func (s *Server) handleProvisionDevice(w http.ResponseWriter, r *http.Request) {
	var req provisionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}

	result, err := s.deps.Provisioning.Provision(r.Context(), provisioning.Request{
		Name:           req.Name,
		DeviceType:     req.DeviceType,
		BuildingID:     req.BuildingID,
		CredentialType: req.CredentialType,
		ProfileID:      req.ProfileID,
		SerialNumber:   req.SerialNumber,
		Manufacturer:   req.Manufacturer,
		Model:          req.Model,
		Extras:         req.Extras,
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["device_id"])
	if err != nil {
		writeError(w, s.log, errors.New(errors.KindValidation, "malformed device_id"))
		return
	}

	device, err := s.deps.Devices.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, device)
}

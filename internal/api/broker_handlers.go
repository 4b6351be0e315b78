package api

import (
	"net/http"

	"github.com/vigilia-platform/iotcore/internal/brokerauth"
	"github.com/vigilia-platform/iotcore/internal/errors"
)

// The three broker endpoints follow the Mosquitto go-auth HTTP backend
// convention: the broker POSTs a JSON body per callout and treats any
// non-2xx response as denied. There is no response payload to interpret,
// only the status code.

type mqttAuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	ClientID string `json:"clientid"`
}

func (s *Server) handleMQTTAuth(w http.ResponseWriter, r *http.Request) {
	var req mqttAuthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if !s.deps.BrokerAuth.AuthN(r.Context(), req.Username, req.Password, req.ClientID) {
		writeError(w, s.log, errors.New(errors.KindPermission, "denied"))
		return
	}
	w.WriteHeader(http.StatusOK)
}

type mqttACLRequest struct {
	Username string             `json:"username"`
	ClientID string             `json:"clientid"`
	Topic    string             `json:"topic"`
	Access   brokerauth.Access  `json:"acc"`
}

func (s *Server) handleMQTTACL(w http.ResponseWriter, r *http.Request) {
	var req mqttACLRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if !s.deps.BrokerAuth.ACL(r.Context(), req.Username, req.Topic, req.ClientID, req.Access) {
		writeError(w, s.log, errors.New(errors.KindPermission, "denied"))
		return
	}
	w.WriteHeader(http.StatusOK)
}

type mqttSuperuserRequest struct {
	Username string `json:"username"`
	ClientID string `json:"clientid"`
}

func (s *Server) handleMQTTSuperuser(w http.ResponseWriter, r *http.Request) {
	var req mqttSuperuserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if !s.deps.BrokerAuth.Superuser(r.Context(), req.Username, req.ClientID) {
		writeError(w, s.log, errors.New(errors.KindPermission, "denied"))
		return
	}
	w.WriteHeader(http.StatusOK)
}

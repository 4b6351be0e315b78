package realtime

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.Equal(t, "", bearerToken(r))

	r = httptest.NewRequest(http.MethodGet, "/ws?token=abc123", nil)
	assert.Equal(t, "abc123", bearerToken(r))

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer xyz789")
	assert.Equal(t, "xyz789", bearerToken(r))
}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "realtime:authenticated", channelName("authenticated"))
	assert.Equal(t, "realtime:device:123", channelName("device:123"))
}

func TestServeWS_RejectsMissingToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()

	assert.Empty(t, bearerToken(r))

	// ServeWS rejects before touching Redis, the authenticator or the
	// upgrader, so a zero Bus is enough here.
	(&Bus{}).ServeWS(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

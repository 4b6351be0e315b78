package api

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigilia-platform/iotcore/internal/errors"
	"github.com/vigilia-platform/iotcore/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(logging.DefaultConfig())
}

func TestWriteError_MapsKindToStatus(t *testing.T) {
	cases := []struct {
		kind errors.Kind
		want int
	}{
		{errors.KindValidation, 422},
		{errors.KindNotFound, 404},
		{errors.KindPermission, 403},
		{errors.KindConflict, 409},
		{errors.KindUnavailable, 503},
		{errors.KindTimeout, 504},
		{errors.KindInternal, 500},
	}

	for _, tc := range cases {
		w := httptest.NewRecorder()
		writeError(w, testLogger(), errors.New(tc.kind, "boom"))
		assert.Equal(t, tc.want, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "boom", body["error"])
	}
}

func TestDecodeJSON_RejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/x", bytes.NewBufferString(`{"name":"a","bogus":1}`))
	var v struct {
		Name string `json:"name"`
	}
	err := decodeJSON(req, &v)
	require.Error(t, err)
	assert.Equal(t, errors.KindValidation, errors.GetKind(err))
}

func TestDecodeJSON_Succeeds(t *testing.T) {
	req := httptest.NewRequest("POST", "/x", bytes.NewBufferString(`{"name":"a"}`))
	var v struct {
		Name string `json:"name"`
	}
	require.NoError(t, decodeJSON(req, &v))
	assert.Equal(t, "a", v.Name)
}

func TestParseIntParam(t *testing.T) {
	assert.Equal(t, 100, parseIntParam("", 100))
	assert.Equal(t, 5, parseIntParam("5", 100))
	assert.Equal(t, 100, parseIntParam("notanumber", 100))
}

func TestParseTimeParam(t *testing.T) {
	def := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := parseTimeParam("", def)
	require.NoError(t, err)
	assert.Equal(t, def, got)

	got, err = parseTimeParam("2026-07-30T00:00:00Z", def)
	require.NoError(t, err)
	assert.Equal(t, 2026, got.Year())

	_, err = parseTimeParam("not-a-time", def)
	assert.Error(t, err)
}

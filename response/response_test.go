package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/report", nil)

	WriteError(w, r, ErrNoReport())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["error"])
	assert.Equal(t, "Service unavailable", body["message"])
	assert.Equal(t, []interface{}{"No report has been computed yet"}, body["messages"])
}

func TestWriteResponse(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/report", nil)

	WriteResponse(w, r, map[string]int{"active subscriptions": 3})

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["error"])
	assert.Equal(t, map[string]interface{}{"active subscriptions": 3.0}, body["result"])
}

func TestErrorChaining(t *testing.T) {
	err := ErrBadRequest().AddMessages("Invalid window").WithResult("custom")
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)
	assert.Equal(t, []string{"Invalid window"}, err.Messages)
	assert.Equal(t, "HTTP 400: Bad request", err.Error())
}

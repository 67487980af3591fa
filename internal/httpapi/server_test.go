package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asyncify/asyncify/internal/engine"
	"github.com/asyncify/asyncify/internal/httpapi"
)

func TestParseIgnoreAndAsyncStacksRoundTrip(t *testing.T) {
	eng := engine.New(".", engine.Options{})
	srv := httpapi.NewServer(eng)

	parseBody, _ := json.Marshal(map[string]interface{}{
		"fragments": []map[string]interface{}{
			{"path": "fixture.js", "firstLine": 1, "text": "function a() { return b(); }\nfunction b() { return 1; }\n"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/parse", bytes.NewReader(parseBody))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	stacksBody, _ := json.Marshal(map[string]interface{}{
		"path": "fixture.js", "line": 2, "functionIndex": 0,
	})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/async-stacks", bytes.NewReader(stacksBody))
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAsyncStacksNotFoundReturns404(t *testing.T) {
	eng := engine.New(".", engine.Options{})
	srv := httpapi.NewServer(eng)

	parseBody, _ := json.Marshal(map[string]interface{}{
		"fragments": []map[string]interface{}{
			{"path": "fixture.js", "firstLine": 1, "text": "function a() {}\n"},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/parse", bytes.NewReader(parseBody))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	stacksBody, _ := json.Marshal(map[string]interface{}{
		"path": "fixture.js", "line": 99, "functionIndex": 0,
	})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/async-stacks", bytes.NewReader(stacksBody))
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/datamod/internal/store"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), store.WithIDGenerator(store.NewFixedGenerator("gen-1", "gen-2")))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	rr := do(t, newTestServer(t), http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
}

func TestCRUDRoundTrip(t *testing.T) {
	h := newTestServer(t)

	rr := do(t, h, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/api/users", `{"id":1,"name":"ada"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"id":1,"name":"ada"}`, rr.Body.String())

	rr = do(t, h, http.MethodPost, "/api/users", `{"name":"bob"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"id":"gen-1","name":"bob"}`, rr.Body.String())

	rr = do(t, h, http.MethodPut, "/api/users/1", `{"id":1,"name":"ada lovelace"}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/users/1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":1,"name":"ada lovelace"}`, rr.Body.String())

	rr = do(t, h, http.MethodDelete, "/api/users/gen-1", "")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, h, http.MethodGet, "/api/users", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"id":1,"name":"ada lovelace"}]`, rr.Body.String())
}

func TestUpdateFillsIDFromURL(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/tags", `{"id":"x","label":"old"}`).Code)

	rr := do(t, h, http.MethodPut, "/api/tags/x", `{"label":"new"}`)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"id":"x","label":"new"}`, rr.Body.String())
}

func TestErrors(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/users", `{"id":1}`).Code)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"get missing", http.MethodGet, "/api/users/9", "", http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/users/9", "", http.StatusNotFound},
		{"update missing", http.MethodPut, "/api/users/9", `{"id":9}`, http.StatusNotFound},
		{"duplicate create", http.MethodPost, "/api/users", `{"id":1}`, http.StatusConflict},
		{"malformed json", http.MethodPost, "/api/users", `{"id":`, http.StatusBadRequest},
		{"array body", http.MethodPost, "/api/users", `[1]`, http.StatusBadRequest},
		{"mismatched id", http.MethodPut, "/api/users/1", `{"id":2}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, h, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.status, rr.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestRequestIDHeaderAccepted(t *testing.T) {
	h := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestETagRevalidation(t *testing.T) {
	h := newTestServer(t)
	require.Equal(t, http.StatusCreated, do(t, h, http.MethodPost, "/api/users", `{"id":1,"name":"ada"}`).Code)

	for _, path := range []string{"/api/users", "/api/users/1"} {
		t.Run(path, func(t *testing.T) {
			rr := do(t, h, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, rr.Code)
			etag := rr.Header().Get("ETag")
			require.NotEmpty(t, etag)
			assert.Equal(t, etag, do(t, h, http.MethodGet, path, "").Header().Get("ETag"), "stable for unchanged content")

			req := httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("If-None-Match", etag)
			cached := httptest.NewRecorder()
			h.ServeHTTP(cached, req)

			assert.Equal(t, http.StatusNotModified, cached.Code)
			assert.Empty(t, cached.Body.String())

			req = httptest.NewRequest(http.MethodGet, path, nil)
			req.Header.Set("If-None-Match", `"stale"`)
			fresh := httptest.NewRecorder()
			h.ServeHTTP(fresh, req)
			assert.Equal(t, http.StatusOK, fresh.Code)
		})
	}

	before := do(t, h, http.MethodGet, "/api/users", "").Header().Get("ETag")
	require.Equal(t, http.StatusOK, do(t, h, http.MethodPut, "/api/users/1", `{"id":1,"name":"ada lovelace"}`).Code)
	assert.NotEqual(t, before, do(t, h, http.MethodGet, "/api/users", "").Header().Get("ETag"))
}

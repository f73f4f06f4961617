package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

func serveNoRoute(t *testing.T, staticDir, path string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.NoRoute(noRoute(staticDir))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func requireNotFoundEnvelope(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, http.StatusNotFound, w.Code)
	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, response.CodeNotFound, resp.Error)
	assert.Equal(t, "route not found", resp.Message)
}

func TestNoRoute_WithoutFrontend(t *testing.T) {
	requireNotFoundEnvelope(t, serveNoRoute(t, "", "/api/v1/nope"))
	requireNotFoundEnvelope(t, serveNoRoute(t, "", "/dashboard"))
	requireNotFoundEnvelope(t, serveNoRoute(t, t.TempDir(), "/dashboard"))
}

func TestNoRoute_ServesFrontend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "app.js"), []byte("console.log(1)"), 0o644))

	requireNotFoundEnvelope(t, serveNoRoute(t, dir, "/api/v1/nope"))

	w := serveNoRoute(t, dir, "/app.js")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log(1)", w.Body.String())

	w = serveNoRoute(t, dir, "/projects/42")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "app")
}

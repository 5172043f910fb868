package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/api/health", h.Get)
	r.HEAD("/api/health", h.Head)
	r.OPTIONS("/api/health", h.Options)
	return r
}

func TestGetShape(t *testing.T) {
	h := NewHandler(nil, nil, time.Now().Add(-time.Minute))
	r := newTestRouter(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status  string          `json:"status"`
		Uptime  string          `json:"uptime"`
		Memory  map[string]any  `json:"memory"`
		Checks  map[string]bool `json:"checks"`
		Metrics map[string]any  `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "healthy", body.Status)
	require.NotEmpty(t, body.Uptime)
	require.Contains(t, body.Memory, "alloc_bytes")
	require.Contains(t, body.Metrics, "goroutines")
	require.NotNil(t, body.Checks)
}

func TestHeadIsEmpty(t *testing.T) {
	h := NewHandler(nil, nil, time.Now())
	r := newTestRouter(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Body.String())
}

func TestOptionsAdvertisesMethods(t *testing.T) {
	h := NewHandler(nil, nil, time.Now())
	r := newTestRouter(h)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "GET, HEAD, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
}

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, h *HealthHandler) HealthResponse {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	h.RegisterRoutes(r)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestHealthReportsBackingResources(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	h := NewHealthHandler("adorable-backend", "1.0.0", nil, client, t.TempDir())
	resp := serveHealth(t, h)

	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "adorable-backend", resp.Service)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, "disabled", resp.DB)
	assert.Equal(t, "up", resp.Redis)
	assert.Equal(t, "ok", resp.Workspaces)
}

func TestHealthDegradedWhenWorkspaceRootMissing(t *testing.T) {
	h := NewHealthHandler("adorable-backend", "1.0.0", nil, nil, "/nonexistent/workspaces")
	resp := serveHealth(t, h)

	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "missing", resp.Workspaces)
	assert.Equal(t, "disabled", resp.Redis)
}

func TestHealthDegradedWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	h := NewHealthHandler("adorable-backend", "1.0.0", nil, client, t.TempDir())
	resp := serveHealth(t, h)

	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "down", resp.Redis)
}

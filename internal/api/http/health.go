package http

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const probeTimeout = 1 * time.Second

// HealthResponse reports the service's view of its three backing resources:
// the project store, the session tracker store and the workspaces root.
type HealthResponse struct {
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
	Service    string    `json:"service"`
	Version    string    `json:"version"`
	DB         string    `json:"db,omitempty"`
	Redis      string    `json:"redis,omitempty"`
	Workspaces string    `json:"workspaces,omitempty"`
}

type HealthHandler struct {
	serviceName   string
	version       string
	db            *pgxpool.Pool
	redis         *redis.Client
	workspaceRoot string
}

func NewHealthHandler(serviceName, version string, db *pgxpool.Pool, rdb *redis.Client, workspaceRoot string) *HealthHandler {
	return &HealthHandler{
		serviceName:   serviceName,
		version:       version,
		db:            db,
		redis:         rdb,
		workspaceRoot: workspaceRoot,
	}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	resp := HealthResponse{
		Status:     "healthy",
		Timestamp:  time.Now().UTC(),
		Service:    h.serviceName,
		Version:    h.version,
		DB:         "disabled",
		Redis:      "disabled",
		Workspaces: "disabled",
	}

	if h.db != nil {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		if err := h.db.Ping(pingCtx); err != nil {
			resp.DB = "down"
			resp.Status = "degraded"
		} else {
			resp.DB = "up"
		}
		cancel()
	}

	if h.redis != nil {
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
		if err := h.redis.Ping(pingCtx).Err(); err != nil {
			resp.Redis = "down"
			resp.Status = "degraded"
		} else {
			resp.Redis = "up"
		}
		cancel()
	}

	if h.workspaceRoot != "" {
		if info, err := os.Stat(h.workspaceRoot); err != nil || !info.IsDir() {
			resp.Workspaces = "missing"
			resp.Status = "degraded"
		} else {
			resp.Workspaces = "ok"
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.HealthCheck)
	r.GET("/healthz", h.HealthCheck)
}

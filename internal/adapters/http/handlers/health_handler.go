// Package handlers - health endpoints for orchestration probes.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/coinvault/coinvault/internal/infrastructure/persistence/postgres"
)

// HealthHandler serves /health, /live and /ready.
type HealthHandler struct {
	pool    *pgxpool.Pool
	version string
	started time.Time
}

// NewHealthHandler creates the handler.
func NewHealthHandler(pool *pgxpool.Pool, version string) *HealthHandler {
	return &HealthHandler{
		pool:    pool,
		version: version,
		started: time.Now().UTC(),
	}
}

// RegisterRoutes attaches the health endpoints to the root router.
func (h *HealthHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)
	r.GET("/live", h.Live)
	r.GET("/ready", h.Ready)
}

// Health reports overall status including a database ping.
func (h *HealthHandler) Health(c *gin.Context) {
	status := http.StatusOK
	dbStatus := "up"

	if h.pool != nil {
		if err := postgres.HealthCheck(c.Request.Context(), h.pool); err != nil {
			status = http.StatusServiceUnavailable
			dbStatus = "down"
		}
	}

	c.JSON(status, gin.H{
		"status":   statusWord(status),
		"version":  h.version,
		"uptime":   time.Since(h.started).Truncate(time.Second).String(),
		"database": dbStatus,
	})
}

// Live is the liveness probe: the process is up.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

// Ready is the readiness probe: dependencies are reachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	if h.pool != nil {
		if err := postgres.HealthCheck(c.Request.Context(), h.pool); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func statusWord(httpStatus int) string {
	if httpStatus == http.StatusOK {
		return "healthy"
	}
	return "unhealthy"
}

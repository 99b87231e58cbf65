// ===========================================
// Package handler - Health Check Handler
// ===========================================
// Liveness: "Is the process alive?" - no dependency checks.
// Readiness: "Can the process handle requests?" - checks every
// registered dependency (the link store, and Redis when enabled).
// ===========================================

package handler

import (
	"context"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/user/linktrack/internal/models"
)

// Checker is a dependency that can report its health.
type Checker interface {
	Health(ctx context.Context) error
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	checks  map[string]Checker
	version string
}

// NewHealthHandler creates a health handler over the named checks,
// e.g. {"postgres": db, "redis": cache}.
func NewHealthHandler(checks map[string]Checker, version string) *HealthHandler {
	return &HealthHandler{checks: checks, version: version}
}

// ===========================================
// GET /health
// ===========================================
// Response (200 - healthy, 503 - unhealthy):
//
//	{
//	  "status": "healthy",
//	  "version": "1.0.0",
//	  "timestamp": "2026-01-01T00:00:00Z",
//	  "services": {
//	    "sqlite": "ok"
//	  }
//	}
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	services := make(map[string]string, len(h.checks))
	healthy := true
	for _, name := range slices.Sorted(maps.Keys(h.checks)) {
		if err := h.checks[name].Health(ctx); err != nil {
			services[name] = "error: " + err.Error()
			healthy = false
		} else {
			services[name] = "ok"
		}
	}

	response := models.HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
		Services:  services,
	}
	if !healthy {
		response.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, response)
		return
	}
	c.JSON(http.StatusOK, response)
}

// ===========================================
// GET /ready
// ===========================================
// Same checks as /health, status code only.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	for _, check := range h.checks {
		if err := check.Health(ctx); err != nil {
			c.Status(http.StatusServiceUnavailable)
			return
		}
	}
	c.Status(http.StatusOK)
}

// ===========================================
// GET /live
// ===========================================
func (h *HealthHandler) Live(c *gin.Context) {
	c.Status(http.StatusOK)
}

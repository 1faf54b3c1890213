package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/health"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/services"
)

// healthHandler implements `GET /api/health/{path}` (spec.md §6):
// on-demand probe with the monitor's fast timeout, trying the path as
// a server first and falling back to an agent.
type healthHandler struct {
	monitor *health.Monitor
	servers *services.ServerService
	agents  *services.AgentService
	logger  *zap.Logger
}

func (h *healthHandler) onDemand(c *gin.Context) {
	path := c.Param("path")

	if s, err := h.servers.Get(c.Request.Context(), path); err == nil {
		status := h.monitor.CheckServer(c.Request.Context(), s)
		c.JSON(http.StatusOK, gin.H{"path": s.Path, "health_status": status})
		return
	}

	if a, err := h.agents.Get(c.Request.Context(), path); err == nil {
		status := h.monitor.CheckAgent(c.Request.Context(), a)
		c.JSON(http.StatusOK, gin.H{"path": a.Path, "health_status": status})
		return
	}

	respondError(c, h.logger, registryerr.NewNotFound("no server or agent registered at this path", nil))
}

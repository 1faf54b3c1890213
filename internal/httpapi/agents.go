package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/scope"
	"github.com/mcp-registry/gateway/internal/services"
)

// agentHandler implements the `/api/agents` group, mirroring
// serverHandler with Agent's visibility-based access check in place
// of Server's scope-path check.
type agentHandler struct {
	svc    *services.AgentService
	logger *zap.Logger
}

func (h *agentHandler) register(g *gin.RouterGroup) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:path", h.get)
	g.PUT("/:path", h.update)
	g.DELETE("/:path", h.delete)
	g.POST("/:path/toggle", h.toggle)
	g.POST("/:path/rate", h.rate)
}

func (h *agentHandler) list(c *gin.Context) {
	all, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	cc := callerFrom(c)
	visible := make([]*domain.Agent, 0, len(all))
	for _, a := range all {
		if scope.AllowsAgentAccess(cc, a) {
			visible = append(visible, a)
		}
	}
	c.JSON(http.StatusOK, gin.H{"agents": visible, "count": len(visible)})
}

func (h *agentHandler) create(c *gin.Context) {
	cc := callerFrom(c)
	if !cc.IsAdmin {
		respondError(c, h.logger, registryerr.NewPermissionDenied("registering an agent requires admin scope", nil))
		return
	}
	var a domain.Agent
	if err := c.ShouldBindJSON(&a); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}
	a.RegisteredBy = cc.Username
	if err := h.svc.Register(c.Request.Context(), &a); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *agentHandler) get(c *gin.Context) {
	path := "/" + c.Param("path")
	a, err := h.svc.Get(c.Request.Context(), path)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !scope.AllowsAgentAccess(callerFrom(c), a) {
		respondError(c, h.logger, registryerr.NewPermissionDenied("not permitted to read this agent", nil))
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *agentHandler) update(c *gin.Context) {
	path := "/" + c.Param("path")
	cc := callerFrom(c)
	existing, err := h.svc.Get(c.Request.Context(), path)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !cc.IsAdmin && !scope.AllowsAgentAccess(cc, existing) {
		respondError(c, h.logger, registryerr.NewPermissionDenied("not permitted to modify this agent", nil))
		return
	}
	var a domain.Agent
	if err := c.ShouldBindJSON(&a); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}
	a.Path = path
	if err := h.svc.Update(c.Request.Context(), &a); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

func (h *agentHandler) delete(c *gin.Context) {
	path := "/" + c.Param("path")
	if !callerFrom(c).IsAdmin {
		respondError(c, h.logger, registryerr.NewPermissionDenied("deleting an agent requires admin scope", nil))
		return
	}
	if err := h.svc.Delete(c.Request.Context(), path); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *agentHandler) toggle(c *gin.Context) {
	path := "/" + c.Param("path")
	if !callerFrom(c).IsAdmin {
		respondError(c, h.logger, registryerr.NewPermissionDenied("toggling an agent requires admin scope", nil))
		return
	}
	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}
	if err := h.svc.SetEnabled(c.Request.Context(), path, req.Enabled); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "is_enabled": req.Enabled})
}

func (h *agentHandler) rate(c *gin.Context) {
	path := "/" + c.Param("path")
	cc := callerFrom(c)
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}
	a, err := h.svc.Rate(c.Request.Context(), path, cc.Username, req.Rating)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

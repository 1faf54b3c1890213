package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/federation"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/repository"
)

// federationHandler implements the `/api/federation` admin group of
// spec.md §6: upstream config CRUD plus on-demand sync.
type federationHandler struct {
	configs repository.FederationConfigRepository
	syncer  *federation.Syncer
	logger  *zap.Logger
}

func (h *federationHandler) register(g *gin.RouterGroup) {
	g.GET("/config", h.list)
	g.POST("/config", h.create)
	g.GET("/config/:id", h.get)
	g.PUT("/config/:id", h.update)
	g.DELETE("/config/:id", h.delete)
	g.POST("/sync", h.sync)
}

func (h *federationHandler) requireAdmin(c *gin.Context) bool {
	if !callerFrom(c).IsAdmin {
		respondError(c, h.logger, registryerr.NewPermissionDenied("federation administration requires admin scope", nil))
		return false
	}
	return true
}

func (h *federationHandler) list(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	cfgs, err := h.configs.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"upstreams": cfgs, "count": len(cfgs)})
}

func (h *federationHandler) create(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	var cfg domain.FederationConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}
	if err := h.configs.Create(c.Request.Context(), &cfg); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, cfg)
}

func (h *federationHandler) get(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	cfg, err := h.configs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *federationHandler) update(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	var cfg domain.FederationConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}
	cfg.Name = c.Param("id")
	if err := h.configs.Update(c.Request.Context(), &cfg); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *federationHandler) delete(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	if _, err := h.configs.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// sync handles `POST /api/federation/sync?source=` (spec.md §6): with
// a source, runs that single upstream synchronously and reports the
// result; without one, triggers the full sweep in the background
// (matching the periodic task's own fire-and-forget, logged shape).
func (h *federationHandler) sync(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	source := c.Query("source")
	if source == "" {
		// Detached from the request context: the sweep must outlive
		// this handler's response, same as the periodic task.
		go h.syncer.SyncAll(context.Background())
		c.JSON(http.StatusAccepted, gin.H{"message": "full federation sync started"})
		return
	}
	if err := h.syncer.SyncOne(c.Request.Context(), source); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "sync completed", "source": source})
}

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/repository"
)

// scopeHandler implements `/api/scopes` admin CRUD over the group →
// access mappings scope.Resolver reads per request (spec.md §4.3).
// There's no cache to invalidate: Resolver.Resolve reads the
// repository fresh on every call.
type scopeHandler struct {
	repo   repository.ScopeRepository
	logger *zap.Logger
}

func (h *scopeHandler) register(g *gin.RouterGroup) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:name", h.get)
	g.PUT("/:name", h.update)
	g.DELETE("/:name", h.delete)
}

func (h *scopeHandler) requireAdmin(c *gin.Context) bool {
	if !callerFrom(c).IsAdmin {
		respondError(c, h.logger, registryerr.NewPermissionDenied("scope administration requires admin scope", nil))
		return false
	}
	return true
}

func (h *scopeHandler) list(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	scopes, err := h.repo.ListAll(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scopes": scopes, "count": len(scopes)})
}

func (h *scopeHandler) create(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	var s domain.Scope
	if err := c.ShouldBindJSON(&s); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}
	if err := s.Validate(); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}
	if err := h.repo.Create(c.Request.Context(), &s); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *scopeHandler) get(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	s, err := h.repo.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *scopeHandler) update(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	var s domain.Scope
	if err := c.ShouldBindJSON(&s); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}
	s.Name = c.Param("name")
	if err := s.Validate(); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}
	if err := h.repo.Update(c.Request.Context(), &s); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *scopeHandler) delete(c *gin.Context) {
	if !h.requireAdmin(c) {
		return
	}
	if _, err := h.repo.Delete(c.Request.Context(), c.Param("name")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

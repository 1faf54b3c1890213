package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/scope"
	"github.com/mcp-registry/gateway/internal/services"
)

// serverHandler implements the `/api/servers` group of spec.md §6:
// CRUD, toggle, rate.
type serverHandler struct {
	svc    *services.ServerService
	logger *zap.Logger
}

func (h *serverHandler) register(g *gin.RouterGroup) {
	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:path", h.get)
	g.PUT("/:path", h.update)
	g.DELETE("/:path", h.delete)
	g.POST("/:path/toggle", h.toggle)
	g.POST("/:path/rate", h.rate)
	g.GET("/:path/tools", h.tools)
}

// toMCPTool converts a registered tool's opaque RawSchema into the
// go-sdk's wire type, reusing its InputSchema shape instead of
// hand-rolling one (SPEC_FULL's domain-stack table).
func toMCPTool(t domain.ToolDefinition) (*mcp.Tool, error) {
	tool := &mcp.Tool{Name: t.Name, Description: t.Description}
	if t.InputSchema == nil {
		return tool, nil
	}
	raw, err := json.Marshal(t.InputSchema)
	if err != nil {
		return nil, err
	}
	var schema jsonschema.Schema
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil, err
	}
	tool.InputSchema = &schema
	return tool, nil
}

func (h *serverHandler) tools(c *gin.Context) {
	path := "/" + c.Param("path")
	s, err := h.svc.Get(c.Request.Context(), path)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !scope.AllowsServerAccess(callerFrom(c), s.Path, s.Name) {
		respondError(c, h.logger, registryerr.NewPermissionDenied("not permitted to read this server", nil))
		return
	}
	tools := make([]*mcp.Tool, 0, len(s.ToolList))
	for _, t := range s.ToolList {
		mt, err := toMCPTool(t)
		if err != nil {
			respondError(c, h.logger, registryerr.NewUnexpected("converting tool schema", err))
			return
		}
		tools = append(tools, mt)
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools})
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

type rateRequest struct {
	Rating int `json:"rating" binding:"required"`
}

func (h *serverHandler) list(c *gin.Context) {
	all, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	cc := callerFrom(c)
	visible := make([]*domain.Server, 0, len(all))
	for _, s := range all {
		if scope.AllowsServerAccess(cc, s.Path, s.Name) {
			visible = append(visible, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{"servers": visible, "count": len(visible)})
}

func (h *serverHandler) create(c *gin.Context) {
	cc := callerFrom(c)
	if !cc.IsAdmin {
		respondError(c, h.logger, registryerr.NewPermissionDenied("registering a server requires admin scope", nil))
		return
	}
	var s domain.Server
	if err := c.ShouldBindJSON(&s); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}
	if err := h.svc.Register(c.Request.Context(), &s); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

func (h *serverHandler) get(c *gin.Context) {
	path := "/" + c.Param("path")
	s, err := h.svc.Get(c.Request.Context(), path)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !scope.AllowsServerAccess(callerFrom(c), s.Path, s.Name) {
		respondError(c, h.logger, registryerr.NewPermissionDenied("not permitted to read this server", nil))
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *serverHandler) update(c *gin.Context) {
	path := "/" + c.Param("path")
	cc := callerFrom(c)
	existing, err := h.svc.Get(c.Request.Context(), path)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !cc.IsAdmin && !scope.AllowsServerAccess(cc, existing.Path, existing.Name) {
		respondError(c, h.logger, registryerr.NewPermissionDenied("not permitted to modify this server", nil))
		return
	}
	var s domain.Server
	if err := c.ShouldBindJSON(&s); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}
	s.Path = path
	if err := h.svc.Update(c.Request.Context(), &s); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

func (h *serverHandler) delete(c *gin.Context) {
	path := "/" + c.Param("path")
	if !callerFrom(c).IsAdmin {
		respondError(c, h.logger, registryerr.NewPermissionDenied("deleting a server requires admin scope", nil))
		return
	}
	if err := h.svc.Delete(c.Request.Context(), path); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *serverHandler) toggle(c *gin.Context) {
	path := "/" + c.Param("path")
	if !callerFrom(c).IsAdmin {
		respondError(c, h.logger, registryerr.NewPermissionDenied("toggling a server requires admin scope", nil))
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

func (h *serverHandler) rate(c *gin.Context) {
	path := "/" + c.Param("path")
	cc := callerFrom(c)
	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}
	s, err := h.svc.Rate(c.Request.Context(), path, cc.Username, req.Rating)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

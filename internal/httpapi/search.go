package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/search"
)

// searchHandler implements `POST /api/search/semantic` (spec.md §6, §4.2).
type searchHandler struct {
	engine *search.Engine
	logger *zap.Logger
}

type semanticSearchRequest struct {
	Query       string   `json:"query" binding:"required"`
	EntityTypes []string `json:"entity_types,omitempty"`
	MaxResults  int      `json:"max_results,omitempty"`
}

func (h *searchHandler) semantic(c *gin.Context) {
	var req semanticSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, registryerr.NewValidation(err.Error(), err))
		return
	}

	types := make([]domain.EntityType, 0, len(req.EntityTypes))
	for _, t := range req.EntityTypes {
		types = append(types, domain.EntityType(t))
	}

	result, err := h.engine.Search(c.Request.Context(), search.Query{
		Text:        req.Query,
		EntityTypes: types,
		MaxResults:  req.MaxResults,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

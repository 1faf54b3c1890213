package httpapi

import (
	"net/http"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/services"
)

// agentDiscoveryHandler serves enabled, publicly-visible agents as
// real A2A AgentCard values rather than a registry-shaped projection,
// mirroring discoveryHandler's Anthropic-compatible server surface.
// Public: no auth, same as the server discovery pair.
type agentDiscoveryHandler struct {
	agents *services.AgentService
	logger *zap.Logger
}

func toAgentCard(a *domain.Agent) a2a.AgentCard {
	skills := make([]a2a.AgentSkill, 0, len(a.Skills))
	for _, s := range a.Skills {
		skills = append(skills, a2a.AgentSkill{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Tags:        s.Tags,
			Examples:    s.Examples,
			InputModes:  s.InputModes,
			OutputModes: s.OutputModes,
		})
	}
	return a2a.AgentCard{
		Name:               a.Name,
		Description:        a.Description,
		Version:            a.Version,
		URL:                a.URL,
		ProtocolVersion:    a.ProtocolVersion,
		PreferredTransport: a.PreferredTransport,
		DefaultInputModes:  a.DefaultInputModes,
		DefaultOutputModes: a.DefaultOutputModes,
		Capabilities: a2a.AgentCapabilities{
			Streaming: a.Capabilities["streaming"],
		},
		Skills: skills,
	}
}

func (h *agentDiscoveryHandler) listAgents(c *gin.Context) {
	all, err := h.agents.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	cards := make([]a2a.AgentCard, 0, len(all))
	for _, a := range all {
		if a.IsEnabled && a.Visibility == domain.VisibilityPublic {
			cards = append(cards, toAgentCard(a))
		}
	}
	c.JSON(http.StatusOK, gin.H{"agents": cards})
}

func (h *agentDiscoveryHandler) getAgent(c *gin.Context) {
	name := c.Param("name")
	all, err := h.agents.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	for _, a := range all {
		if a.IsEnabled && a.Visibility == domain.VisibilityPublic && a.Name == name {
			c.JSON(http.StatusOK, toAgentCard(a))
			return
		}
	}
	respondError(c, h.logger, registryerr.NewNotFound("no enabled public agent matches that name", nil))
}

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// authHandler serves GET /api/auth/me (spec.md §6): caller identity
// and effective permissions, already computed by
// callerContextMiddleware.
type authHandler struct{}

type meResponse struct {
	Username          string   `json:"username"`
	Groups            []string `json:"groups"`
	Scopes            []string `json:"scopes"`
	AccessibleServers []string `json:"accessible_servers"`
	AccessibleAgents  []string `json:"accessible_agents"`
	IsAdmin           bool     `json:"is_admin"`
}

func (h *authHandler) me(c *gin.Context) {
	cc := callerFrom(c)
	c.JSON(http.StatusOK, meResponse{
		Username:          cc.Username,
		Groups:            cc.Groups,
		Scopes:            cc.Scopes,
		AccessibleServers: cc.AccessibleServers,
		AccessibleAgents:  cc.AccessibleAgents,
		IsAdmin:           cc.IsAdmin,
	})
}

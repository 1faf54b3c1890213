package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/httpapi/middleware"
	"github.com/mcp-registry/gateway/internal/scope"
)

const callerContextKey = "callerContext"

// callerContextMiddleware resolves the effective scope.CallerContext
// for the identity AuthMiddleware decoded, and stores it for handlers
// (spec.md §4.3: group membership → effective scopes → access
// decisions, run once per request rather than per handler).
func callerContextMiddleware(resolver *scope.Resolver, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, groups := middleware.CallerIdentity(c)
		cc, err := resolver.Resolve(c.Request.Context(), username, groups)
		if err != nil {
			respondError(c, logger, err)
			c.Abort()
			return
		}
		c.Set(callerContextKey, cc)
		c.Next()
	}
}

func callerFrom(c *gin.Context) *scope.CallerContext {
	v, _ := c.Get(callerContextKey)
	cc, _ := v.(*scope.CallerContext)
	return cc
}

// Package httpapi exposes the registry API, the Anthropic-compatible
// discovery API, well-known discovery, and the liveness endpoint of
// spec.md §6 as Gin handlers, grounded on the teacher's
// RegisterRESTRoutes convention: one handler struct per resource
// group; grouped handlers expose a register method taking a
// *gin.RouterGroup.
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
	"github.com/mcp-registry/gateway/internal/federation"
	"github.com/mcp-registry/gateway/internal/health"
	"github.com/mcp-registry/gateway/internal/httpapi/middleware"
	"github.com/mcp-registry/gateway/internal/repository"
	"github.com/mcp-registry/gateway/internal/scope"
	"github.com/mcp-registry/gateway/internal/search"
	"github.com/mcp-registry/gateway/internal/services"
)

// Deps bundles every collaborator a handler group needs. Handlers
// depend on these concrete types and narrow service/search types
// directly (not interfaces) since the router wires one production
// singleton per process, same as internal/orchestrator.
type Deps struct {
	Cfg      *config.Config
	Servers  *services.ServerService
	Agents   *services.AgentService
	Scopes   repository.ScopeRepository
	Resolver *scope.Resolver
	Search   *search.Engine
	Monitor  *health.Monitor
	Syncer   *federation.Syncer
	Configs  repository.FederationConfigRepository
	Logger   *zap.Logger
}

// NewRouter builds the full Gin engine: CORS, auth middleware, then
// every route group.
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "mcp-registry-gateway"})
	})

	wk := &wellKnownHandler{cfg: d.Cfg}
	r.GET("/.well-known/mcp-registry", wk.discover)

	disc := &discoveryHandler{servers: d.Servers, logger: d.Logger}
	r.GET("/v0/servers", disc.listServers)
	r.GET("/v0/servers/:name/versions/latest", disc.getServer)

	agentDisc := &agentDiscoveryHandler{agents: d.Agents, logger: d.Logger}
	r.GET("/v0/agents", agentDisc.listAgents)
	r.GET("/v0/agents/:name", agentDisc.getAgent)

	limiter := middleware.NewRateLimiter(d.Cfg.RateLimitPerSecond, d.Cfg.RateLimitBurst)

	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware(d.Cfg.JWTSigningKey != "", d.Cfg.JWTSigningKey))
	api.Use(limiter.Handler())
	api.Use(callerContextMiddleware(d.Resolver, d.Logger))

	authHandler := &authHandler{}
	api.GET("/auth/me", authHandler.me)

	sh := &serverHandler{svc: d.Servers, logger: d.Logger}
	serverGroup := api.Group("/servers")
	sh.register(serverGroup)

	ah := &agentHandler{svc: d.Agents, logger: d.Logger}
	agentGroup := api.Group("/agents")
	ah.register(agentGroup)

	srch := &searchHandler{engine: d.Search, logger: d.Logger}
	api.POST("/search/semantic", srch.semantic)

	fh := &federationHandler{configs: d.Configs, syncer: d.Syncer, logger: d.Logger}
	fedGroup := api.Group("/federation")
	fh.register(fedGroup)

	hh := &healthHandler{monitor: d.Monitor, servers: d.Servers, agents: d.Agents, logger: d.Logger}
	api.GET("/health/stream", hh.stream)
	api.GET("/health/*path", hh.onDemand)

	sch := &scopeHandler{repo: d.Scopes, logger: d.Logger}
	scopeGroup := api.Group("/scopes")
	sch.register(scopeGroup)

	return r
}

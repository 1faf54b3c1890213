package httpapi

import (
	"encoding/base64"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/services"
)

// discoveryHandler serves the Anthropic-compatible read-only
// discovery surface of spec.md §6: enabled servers as ServerDetail,
// name in reverse-DNS form, opaque-cursor pagination ordered by name.
// Public: no auth, mirroring the teacher's unauthenticated /health.
type discoveryHandler struct {
	servers *services.ServerService
	logger  *zap.Logger
}

// serverPackage is ServerDetail's packages[] entry: one way to reach
// the server (a transport/URL pair), mirrored from the upstream shape
// federation.AnthropicProtocol parses.
type serverPackage struct {
	TransportType string `json:"transport_type"`
	URL           string `json:"url"`
}

// serverDetail is spec.md §6's Anthropic-compatible ServerDetail.
type serverDetail struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Version     string          `json:"version,omitempty"`
	Title       string          `json:"title,omitempty"`
	Repository  string          `json:"repository,omitempty"`
	Packages    []serverPackage `json:"packages"`
	Meta        map[string]any  `json:"_meta,omitempty"`
}

func toServerDetail(s *domain.Server) serverDetail {
	return serverDetail{
		Name:        reverseDNSName(s.Name, s.Path),
		Description: s.Description,
		Version:     s.Version,
		Packages:    []serverPackage{{TransportType: string(s.TransportType), URL: s.ProxyPassURL}},
		Meta: map[string]any{
			"path":       s.Path,
			"num_tools":  s.NumTools,
			"num_stars":  s.NumStars,
			"is_enabled": s.IsEnabled,
		},
	}
}

// reverseDNSName synthesizes the reverse-DNS form ServerDetail.name
// requires when the registered name doesn't already carry one,
// deriving it from the path by joining its segments with dots under
// the io.mcp-registry prefix.
func reverseDNSName(name, path string) string {
	if strings.Contains(name, ".") {
		return name
	}
	segment := strings.Trim(path, "/")
	segment = strings.ReplaceAll(segment, "/", ".")
	return "io.mcp-registry." + segment
}

const discoveryPageSize = 50

func (h *discoveryHandler) listServers(c *gin.Context) {
	all, err := h.servers.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	enabled := make([]*domain.Server, 0, len(all))
	for _, s := range all {
		if s.IsEnabled {
			enabled = append(enabled, s)
		}
	}
	sort.Slice(enabled, func(i, j int) bool { return enabled[i].Name < enabled[j].Name })

	offset := decodeCursor(c.Query("cursor"))
	end := offset + discoveryPageSize
	if end > len(enabled) {
		end = len(enabled)
	}
	if offset > len(enabled) {
		offset = len(enabled)
	}

	page := enabled[offset:end]
	details := make([]serverDetail, 0, len(page))
	for _, s := range page {
		details = append(details, toServerDetail(s))
	}

	resp := gin.H{"servers": details}
	if end < len(enabled) {
		resp["nextCursor"] = encodeCursor(end)
	}
	c.JSON(http.StatusOK, resp)
}

func (h *discoveryHandler) getServer(c *gin.Context) {
	name := c.Param("name")
	all, err := h.servers.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	for _, s := range all {
		if !s.IsEnabled {
			continue
		}
		if reverseDNSName(s.Name, s.Path) == name || s.Name == name {
			c.JSON(http.StatusOK, toServerDetail(s))
			return
		}
	}
	respondError(c, h.logger, registryerr.NewNotFound("no enabled server matches that name", nil))
}

// encodeCursor/decodeCursor keep the pagination cursor opaque to the
// caller per spec.md §6, even though it's a plain offset underneath.
func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(offset)))
}

func decodeCursor(raw string) int {
	if raw == "" {
		return 0
	}
	decoded, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return 0
	}
	offset, err := strconv.Atoi(string(decoded))
	if err != nil || offset < 0 {
		return 0
	}
	return offset
}

// wellKnownHandler serves GET /.well-known/mcp-registry (spec.md §6):
// public service-discovery metadata, no auth.
type wellKnownHandler struct {
	cfg *config.Config
}

func (h *wellKnownHandler) discover(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"registry":          "mcp-registry-gateway",
		"discovery_api":     "/v0/servers",
		"semantic_search":   "/api/search/semantic",
		"storage_namespace": h.cfg.Namespace,
	})
}

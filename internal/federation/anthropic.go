package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
)

// AnthropicProtocol fetches servers from an Anthropic-MCP-Registry-
// shaped discovery API (grounded on
// original_source's registry/services/federation/anthropic_client.py).
type AnthropicProtocol struct {
	client  *http.Client
	logger  *zap.Logger
	timeout time.Duration
}

func NewAnthropicProtocol(timeout time.Duration, logger *zap.Logger) *AnthropicProtocol {
	return &AnthropicProtocol{client: &http.Client{}, logger: logger, timeout: timeout}
}

type anthropicListResponse struct {
	Servers []struct {
		Name string `json:"name"`
	} `json:"servers"`
}

type anthropicServerResponse struct {
	Server struct {
		Name        string `json:"name"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Version     string `json:"version"`
		Remotes     []struct {
			Type string `json:"type"`
			URL  string `json:"url"`
		} `json:"remotes"`
		Packages []struct {
			Transport struct {
				Type string `json:"type"`
				URL  string `json:"url"`
			} `json:"transport"`
		} `json:"packages"`
	} `json:"server"`
}

// FetchServers lists (or, for a curated config, targets) upstream
// server names and fetches each one. Per-item fetch failures are
// logged and skipped, never aborting the whole sync (spec.md §4.4
// "Errors per item are isolated").
func (p *AnthropicProtocol) FetchServers(ctx context.Context, cfg *domain.FederationConfig) ([]*domain.Server, error) {
	names, err := p.resolveNames(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("anthropic federation %q: %w", cfg.Name, err)
	}

	out := make([]*domain.Server, 0, len(names))
	for _, name := range names {
		s, err := p.fetchOne(ctx, cfg, name)
		if err != nil {
			p.logger.Warn("anthropic federation: failed to fetch item",
				zap.String("upstream", cfg.Name), zap.String("item", name), zap.Error(err))
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (p *AnthropicProtocol) resolveNames(ctx context.Context, cfg *domain.FederationConfig) ([]string, error) {
	if !cfg.SelectsAll() {
		return cfg.SelectedItems, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, strings.TrimRight(cfg.Endpoint, "/")+"/v0/servers", nil)
	if err != nil {
		return nil, err
	}
	p.applyAuth(req, cfg)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list servers: unexpected status %d", resp.StatusCode)
	}

	var listing anthropicListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode server list: %w", err)
	}
	names := make([]string, len(listing.Servers))
	for i, s := range listing.Servers {
		names[i] = s.Name
	}
	return names, nil
}

func (p *AnthropicProtocol) fetchOne(ctx context.Context, cfg *domain.FederationConfig, name string) (*domain.Server, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	endpoint := fmt.Sprintf("%s/v0/servers/%s/versions/latest", strings.TrimRight(cfg.Endpoint, "/"), url.PathEscape(name))
	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	p.applyAuth(req, cfg)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body anthropicServerResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode server: %w", err)
	}
	return transformAnthropicServer(cfg, name, body), nil
}

func (p *AnthropicProtocol) applyAuth(req *http.Request, cfg *domain.FederationConfig) {
	if cfg.AuthEnvVar == "" {
		return
	}
	if token := os.Getenv(cfg.AuthEnvVar); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// normalizeTransport maps the upstream's transport vocabulary onto
// the registry's own (e.g. the older "http" package transport name).
func normalizeTransport(upstream string) string {
	if upstream == "http" {
		return string(domain.TransportStreamableHTTP)
	}
	return upstream
}

// transformAnthropicServer maps the upstream response to the internal
// Server shape, preserving source, forcing read-only, and synthesizing
// path from the upstream name (spec.md §4.4 Federation sync).
func transformAnthropicServer(cfg *domain.FederationConfig, name string, body anthropicServerResponse) *domain.Server {
	transport := "streamable-http"
	proxyURL := ""
	if len(body.Server.Remotes) > 0 {
		transport = normalizeTransport(body.Server.Remotes[0].Type)
		proxyURL = body.Server.Remotes[0].URL
	} else if len(body.Server.Packages) > 0 {
		t := body.Server.Packages[0].Transport
		if t.Type == "streamable-http" || t.Type == "http" {
			proxyURL = t.URL
		}
		if t.Type != "" {
			transport = normalizeTransport(t.Type)
		}
	}

	title := body.Server.Title
	if title == "" {
		title = name
	}
	version := body.Server.Version
	if version == "" {
		version = "1.0.0"
	}

	return &domain.Server{
		Path:          "/" + strings.ReplaceAll(name, "/", "-"),
		Name:          title,
		Description:   body.Server.Description,
		Version:       version,
		ProxyPassURL:  proxyURL,
		TransportType: domain.Transport(transport),
		Tags:          []string{"federated", cfg.Name},
		IsEnabled:     true,
		HealthStatus:  domain.HealthUnknown,
		Source:        cfg.Name,
		IsReadOnly:    true,
	}
}

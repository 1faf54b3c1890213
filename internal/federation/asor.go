package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
)

// AsorProtocol fetches agents from a Workday-ASOR-shaped agent
// directory (grounded on original_source's
// registry/services/federation/asor_client.py). Per spec.md §9 Open
// Questions, the OAuth2 token-acquisition flow that client performs
// is out of scope here: auth_env_var is read as a ready bearer token.
type AsorProtocol struct {
	client  *http.Client
	logger  *zap.Logger
	timeout time.Duration
}

func NewAsorProtocol(timeout time.Duration, logger *zap.Logger) *AsorProtocol {
	return &AsorProtocol{client: &http.Client{}, logger: logger, timeout: timeout}
}

type asorAgentEntry struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	URL         string   `json:"endpointUrl"`
	Version     string   `json:"version"`
	Tags        []string `json:"tags"`
}

type asorListResponse struct {
	Agents []asorAgentEntry `json:"agents"`
}

func (p *AsorProtocol) FetchAgents(ctx context.Context, cfg *domain.FederationConfig) ([]*domain.Agent, error) {
	entries, err := p.list(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("asor federation %q: %w", cfg.Name, err)
	}

	out := make([]*domain.Agent, 0, len(entries))
	for _, e := range entries {
		if !cfg.Selects(e.ID) {
			continue
		}
		out = append(out, transformAsorAgent(cfg, e))
	}
	return out, nil
}

func (p *AsorProtocol) list(ctx context.Context, cfg *domain.FederationConfig) ([]asorAgentEntry, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, strings.TrimRight(cfg.Endpoint, "/")+"/agents", nil)
	if err != nil {
		return nil, err
	}
	if cfg.AuthEnvVar != "" {
		if token := os.Getenv(cfg.AuthEnvVar); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list agents: unexpected status %d", resp.StatusCode)
	}

	var listing asorListResponse
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("decode agent list: %w", err)
	}
	return listing.Agents, nil
}

func transformAsorAgent(cfg *domain.FederationConfig, e asorAgentEntry) *domain.Agent {
	tags := append([]string{"federated", cfg.Name}, e.Tags...)
	version := e.Version
	if version == "" {
		version = "1.0.0"
	}
	return &domain.Agent{
		Path:         "/" + strings.ReplaceAll(e.ID, "/", "-"),
		Name:         e.Name,
		Description:  e.Description,
		URL:          e.URL,
		Version:      version,
		Tags:         tags,
		Visibility:   domain.VisibilityPublic,
		IsEnabled:    true,
		HealthStatus: domain.HealthUnknown,
		Source:       cfg.Name,
		IsReadOnly:   true,
	}
}

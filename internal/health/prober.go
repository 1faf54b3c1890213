package health

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mcp-registry/gateway/internal/domain"
)

// wellKnownHealthPath is the path probed on every registered
// endpoint's base URL (spec.md §4.4: "probe each enabled endpoint at
// its declared well-known path").
const wellKnownHealthPath = "/health"

// Prober checks a single endpoint's liveness. It is accepted as an
// interface so Monitor can be tested without real network calls.
type Prober interface {
	Probe(ctx context.Context, baseURL string, timeout time.Duration) string
}

// HTTPProber issues a GET against baseURL+wellKnownHealthPath and
// classifies any 2xx response as healthy.
type HTTPProber struct {
	client *http.Client
}

func NewHTTPProber() *HTTPProber {
	return &HTTPProber{client: &http.Client{}}
}

func (p *HTTPProber) Probe(ctx context.Context, baseURL string, timeout time.Duration) string {
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	url := strings.TrimRight(baseURL, "/") + wellKnownHealthPath
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return domain.HealthUnhealthy
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return domain.HealthUnhealthy
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return domain.HealthHealthy
	}
	return domain.HealthUnhealthy
}

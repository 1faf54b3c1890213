package health

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
)

type fakeServerRepoHealth struct {
	servers map[string]*domain.Server
}

func (f *fakeServerRepoHealth) LoadAll(ctx context.Context) ([]*domain.Server, error) { return f.ListAll(ctx) }
func (f *fakeServerRepoHealth) Get(ctx context.Context, path string) (*domain.Server, error) {
	s, ok := f.servers[path]
	if !ok {
		return nil, registryerr.NewNotFound("not found", nil)
	}
	return s, nil
}
func (f *fakeServerRepoHealth) ListAll(ctx context.Context) ([]*domain.Server, error) {
	out := make([]*domain.Server, 0, len(f.servers))
	for _, s := range f.servers {
		out = append(out, s)
	}
	return out, nil
}
func (f *fakeServerRepoHealth) Create(ctx context.Context, s *domain.Server) error {
	f.servers[s.Path] = s
	return nil
}
func (f *fakeServerRepoHealth) Update(ctx context.Context, s *domain.Server) error {
	f.servers[s.Path] = s
	return nil
}
func (f *fakeServerRepoHealth) Delete(ctx context.Context, path string) (bool, error) {
	_, ok := f.servers[path]
	delete(f.servers, path)
	return ok, nil
}
func (f *fakeServerRepoHealth) SetEnabled(ctx context.Context, path string, enabled bool) error {
	f.servers[path].IsEnabled = enabled
	return nil
}
func (f *fakeServerRepoHealth) UpdateRating(ctx context.Context, path, username string, rating int) (*domain.Server, error) {
	return f.servers[path], nil
}
func (f *fakeServerRepoHealth) GetState(ctx context.Context) ([]string, []string, error) {
	return nil, nil, nil
}

type fakeAgentRepoHealth struct {
	agents map[string]*domain.Agent
}

func (f *fakeAgentRepoHealth) LoadAll(ctx context.Context) ([]*domain.Agent, error) { return f.ListAll(ctx) }
func (f *fakeAgentRepoHealth) Get(ctx context.Context, path string) (*domain.Agent, error) {
	a, ok := f.agents[path]
	if !ok {
		return nil, registryerr.NewNotFound("not found", nil)
	}
	return a, nil
}
func (f *fakeAgentRepoHealth) ListAll(ctx context.Context) ([]*domain.Agent, error) {
	out := make([]*domain.Agent, 0, len(f.agents))
	for _, a := range f.agents {
		out = append(out, a)
	}
	return out, nil
}
func (f *fakeAgentRepoHealth) Create(ctx context.Context, a *domain.Agent) error {
	f.agents[a.Path] = a
	return nil
}
func (f *fakeAgentRepoHealth) Update(ctx context.Context, a *domain.Agent) error {
	f.agents[a.Path] = a
	return nil
}
func (f *fakeAgentRepoHealth) Delete(ctx context.Context, path string) (bool, error) {
	_, ok := f.agents[path]
	delete(f.agents, path)
	return ok, nil
}
func (f *fakeAgentRepoHealth) SetEnabled(ctx context.Context, path string, enabled bool) error {
	f.agents[path].IsEnabled = enabled
	return nil
}
func (f *fakeAgentRepoHealth) UpdateRating(ctx context.Context, path, username string, rating int) (*domain.Agent, error) {
	return f.agents[path], nil
}
func (f *fakeAgentRepoHealth) GetState(ctx context.Context) ([]string, []string, error) {
	return nil, nil, nil
}

type stubProber struct {
	status string
}

func (s stubProber) Probe(ctx context.Context, baseURL string, timeout time.Duration) string {
	return s.status
}

func TestMonitor_CheckServer_UpdatesCacheAndPersists(t *testing.T) {
	servers := &fakeServerRepoHealth{servers: map[string]*domain.Server{
		"/weather": {Path: "/weather", ProxyPassURL: "http://weather:8080", IsEnabled: true},
	}}
	agents := &fakeAgentRepoHealth{agents: map[string]*domain.Agent{}}
	m := NewMonitor(servers, agents, stubProber{status: domain.HealthHealthy}, 300, 2, zap.NewNop())

	status := m.CheckServer(context.Background(), servers.servers["/weather"])
	assert.Equal(t, domain.HealthHealthy, status)
	assert.Equal(t, domain.HealthHealthy, servers.servers["/weather"].HealthStatus)

	cached, _, ok := m.Status("/weather")
	require.True(t, ok)
	assert.Equal(t, domain.HealthHealthy, cached)
}

func TestMonitor_Status_UnknownBeforeFirstProbe(t *testing.T) {
	m := NewMonitor(&fakeServerRepoHealth{servers: map[string]*domain.Server{}}, &fakeAgentRepoHealth{agents: map[string]*domain.Agent{}}, stubProber{}, 300, 2, zap.NewNop())
	status, _, ok := m.Status("/nope")
	assert.False(t, ok)
	assert.Equal(t, domain.HealthUnknown, status)
}

func TestMonitor_Sweep_SkipsDisabledAndIsolatesFailures(t *testing.T) {
	servers := &fakeServerRepoHealth{servers: map[string]*domain.Server{
		"/enabled":  {Path: "/enabled", ProxyPassURL: "http://a", IsEnabled: true},
		"/disabled": {Path: "/disabled", ProxyPassURL: "http://b", IsEnabled: false},
	}}
	agents := &fakeAgentRepoHealth{agents: map[string]*domain.Agent{}}
	m := NewMonitor(servers, agents, stubProber{status: domain.HealthUnhealthy}, 300, 2, zap.NewNop())

	m.sweep(context.Background())

	_, _, enabledOK := m.Status("/enabled")
	_, _, disabledOK := m.Status("/disabled")
	assert.True(t, enabledOK)
	assert.False(t, disabledOK, "disabled entities must not be probed")
}

package federation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/repository"
	"github.com/mcp-registry/gateway/internal/search"
)

type fakeConfigRepo struct {
	configs map[string]*domain.FederationConfig
}

func (f *fakeConfigRepo) LoadAll(ctx context.Context) ([]*domain.FederationConfig, error) { return f.ListAll(ctx) }
func (f *fakeConfigRepo) Get(ctx context.Context, name string) (*domain.FederationConfig, error) {
	c, ok := f.configs[name]
	if !ok {
		return nil, registryerr.NewNotFound("not found", nil)
	}
	return c, nil
}
func (f *fakeConfigRepo) ListAll(ctx context.Context) ([]*domain.FederationConfig, error) {
	out := make([]*domain.FederationConfig, 0, len(f.configs))
	for _, c := range f.configs {
		out = append(out, c)
	}
	return out, nil
}
func (f *fakeConfigRepo) Create(ctx context.Context, c *domain.FederationConfig) error {
	f.configs[c.Name] = c
	return nil
}
func (f *fakeConfigRepo) Update(ctx context.Context, c *domain.FederationConfig) error {
	f.configs[c.Name] = c
	return nil
}
func (f *fakeConfigRepo) Delete(ctx context.Context, name string) (bool, error) {
	_, ok := f.configs[name]
	delete(f.configs, name)
	return ok, nil
}

type fakeServerRepoFed struct {
	servers map[string]*domain.Server
}

func (f *fakeServerRepoFed) LoadAll(ctx context.Context) ([]*domain.Server, error) { return f.ListAll(ctx) }
func (f *fakeServerRepoFed) Get(ctx context.Context, path string) (*domain.Server, error) {
	s, ok := f.servers[path]
	if !ok {
		return nil, registryerr.NewNotFound("not found", nil)
	}
	return s, nil
}
func (f *fakeServerRepoFed) ListAll(ctx context.Context) ([]*domain.Server, error) {
	out := make([]*domain.Server, 0, len(f.servers))
	for _, s := range f.servers {
		out = append(out, s)
	}
	return out, nil
}
func (f *fakeServerRepoFed) Create(ctx context.Context, s *domain.Server) error {
	f.servers[s.Path] = s
	return nil
}
func (f *fakeServerRepoFed) Update(ctx context.Context, s *domain.Server) error {
	f.servers[s.Path] = s
	return nil
}
func (f *fakeServerRepoFed) Delete(ctx context.Context, path string) (bool, error) {
	_, ok := f.servers[path]
	delete(f.servers, path)
	return ok, nil
}
func (f *fakeServerRepoFed) SetEnabled(ctx context.Context, path string, enabled bool) error {
	f.servers[path].IsEnabled = enabled
	return nil
}
func (f *fakeServerRepoFed) UpdateRating(ctx context.Context, path, username string, rating int) (*domain.Server, error) {
	return f.servers[path], nil
}
func (f *fakeServerRepoFed) GetState(ctx context.Context) ([]string, []string, error) {
	return nil, nil, nil
}

type fakeAgentRepoFed struct {
	agents map[string]*domain.Agent
}

func (f *fakeAgentRepoFed) LoadAll(ctx context.Context) ([]*domain.Agent, error) { return f.ListAll(ctx) }
func (f *fakeAgentRepoFed) Get(ctx context.Context, path string) (*domain.Agent, error) {
	a, ok := f.agents[path]
	if !ok {
		return nil, registryerr.NewNotFound("not found", nil)
	}
	return a, nil
}
func (f *fakeAgentRepoFed) ListAll(ctx context.Context) ([]*domain.Agent, error) {
	out := make([]*domain.Agent, 0, len(f.agents))
	for _, a := range f.agents {
		out = append(out, a)
	}
	return out, nil
}
func (f *fakeAgentRepoFed) Create(ctx context.Context, a *domain.Agent) error {
	f.agents[a.Path] = a
	return nil
}
func (f *fakeAgentRepoFed) Update(ctx context.Context, a *domain.Agent) error {
	f.agents[a.Path] = a
	return nil
}
func (f *fakeAgentRepoFed) Delete(ctx context.Context, path string) (bool, error) {
	_, ok := f.agents[path]
	delete(f.agents, path)
	return ok, nil
}
func (f *fakeAgentRepoFed) SetEnabled(ctx context.Context, path string, enabled bool) error {
	f.agents[path].IsEnabled = enabled
	return nil
}
func (f *fakeAgentRepoFed) UpdateRating(ctx context.Context, path, username string, rating int) (*domain.Agent, error) {
	return f.agents[path], nil
}
func (f *fakeAgentRepoFed) GetState(ctx context.Context) ([]string, []string, error) {
	return nil, nil, nil
}

type fakeSearchRepoFed struct{}

func (fakeSearchRepoFed) Index(ctx context.Context, doc *domain.SearchDocument) error { return nil }
func (fakeSearchRepoFed) Remove(ctx context.Context, path string) error               { return nil }
func (fakeSearchRepoFed) VectorSearch(ctx context.Context, embedding []float32, entityTypes []domain.EntityType, topK int) ([]repository.ScoredDocument, error) {
	return nil, nil
}
func (fakeSearchRepoFed) AllDocuments(ctx context.Context, entityTypes []domain.EntityType) ([]*domain.SearchDocument, error) {
	return nil, nil
}

type fakeEmbeddingsFed struct{}

func (fakeEmbeddingsFed) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0}
	}
	return out, nil
}
func (fakeEmbeddingsFed) Dimensions() int { return 1 }

type stubServerProtocol struct {
	servers []*domain.Server
	err     error
}

func (p stubServerProtocol) FetchServers(ctx context.Context, cfg *domain.FederationConfig) ([]*domain.Server, error) {
	return p.servers, p.err
}

func TestSyncer_SyncAll_UpsertsAndEnablesFetchedServers(t *testing.T) {
	configs := &fakeConfigRepo{configs: map[string]*domain.FederationConfig{
		"acme": {Name: "acme", Enabled: true, Protocol: "anthropic-discovery", Endpoint: "http://acme"},
	}}
	servers := &fakeServerRepoFed{servers: map[string]*domain.Server{}}
	agents := &fakeAgentRepoFed{agents: map[string]*domain.Agent{}}
	indexer := search.NewIndexer(fakeSearchRepoFed{}, fakeEmbeddingsFed{}, zap.NewNop())

	protocol := stubServerProtocol{servers: []*domain.Server{
		{Path: "/acme-tool", Name: "acme-tool", ProxyPassURL: "http://acme-tool", TransportType: domain.TransportStreamableHTTP, IsEnabled: false, Source: "acme", IsReadOnly: true},
	}}

	syncer := NewSyncer(configs, servers, agents, indexer,
		map[string]ServerProtocol{"anthropic-discovery": protocol},
		map[string]AgentProtocol{},
		zap.NewNop(),
	)

	syncer.SyncAll(context.Background())

	stored, ok := servers.servers["/acme-tool"]
	require.True(t, ok)
	assert.True(t, stored.IsEnabled)
	assert.Equal(t, "acme", stored.Source)
	assert.True(t, stored.IsReadOnly)
}

func TestSyncer_SyncAll_SkipsDisabledUpstreams(t *testing.T) {
	configs := &fakeConfigRepo{configs: map[string]*domain.FederationConfig{
		"acme": {Name: "acme", Enabled: false, Protocol: "anthropic-discovery"},
	}}
	servers := &fakeServerRepoFed{servers: map[string]*domain.Server{}}
	agents := &fakeAgentRepoFed{agents: map[string]*domain.Agent{}}
	indexer := search.NewIndexer(fakeSearchRepoFed{}, fakeEmbeddingsFed{}, zap.NewNop())
	protocol := stubServerProtocol{servers: []*domain.Server{{Path: "/x", Name: "x"}}}

	syncer := NewSyncer(configs, servers, agents, indexer,
		map[string]ServerProtocol{"anthropic-discovery": protocol},
		map[string]AgentProtocol{},
		zap.NewNop(),
	)

	syncer.SyncAll(context.Background())
	assert.Empty(t, servers.servers)
}

func TestSyncer_UpsertServer_PreservesRatingsOnUpdate(t *testing.T) {
	configs := &fakeConfigRepo{configs: map[string]*domain.FederationConfig{}}
	servers := &fakeServerRepoFed{servers: map[string]*domain.Server{
		"/acme-tool": {Path: "/acme-tool", NumStars: 4.5, RatingDetails: []domain.RatingEntry{{Username: "alice", Rating: 5}}},
	}}
	agents := &fakeAgentRepoFed{agents: map[string]*domain.Agent{}}
	indexer := search.NewIndexer(fakeSearchRepoFed{}, fakeEmbeddingsFed{}, zap.NewNop())
	syncer := NewSyncer(configs, servers, agents, indexer, nil, nil, zap.NewNop())

	syncer.upsertServer(context.Background(), &domain.Server{Path: "/acme-tool", Name: "acme-tool-v2"})

	stored := servers.servers["/acme-tool"]
	assert.Equal(t, 4.5, stored.NumStars)
	assert.Len(t, stored.RatingDetails, 1)
	assert.True(t, stored.IsEnabled)
}

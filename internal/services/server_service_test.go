package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/repository"
	"github.com/mcp-registry/gateway/internal/search"
)

type fakeServerRepo struct {
	servers map[string]*domain.Server
}

func newFakeServerRepo() *fakeServerRepo { return &fakeServerRepo{servers: map[string]*domain.Server{}} }

func (f *fakeServerRepo) LoadAll(ctx context.Context) ([]*domain.Server, error) { return f.ListAll(ctx) }
func (f *fakeServerRepo) Get(ctx context.Context, path string) (*domain.Server, error) {
	s, ok := f.servers[path]
	if !ok {
		return nil, registryerr.NewNotFound("server not found", nil)
	}
	return s, nil
}
func (f *fakeServerRepo) ListAll(ctx context.Context) ([]*domain.Server, error) {
	out := make([]*domain.Server, 0, len(f.servers))
	for _, s := range f.servers {
		out = append(out, s)
	}
	return out, nil
}
func (f *fakeServerRepo) Create(ctx context.Context, s *domain.Server) error {
	if _, ok := f.servers[s.Path]; ok {
		return registryerr.NewAlreadyExists("server already exists", nil)
	}
	f.servers[s.Path] = s
	return nil
}
func (f *fakeServerRepo) Update(ctx context.Context, s *domain.Server) error {
	f.servers[s.Path] = s
	return nil
}
func (f *fakeServerRepo) Delete(ctx context.Context, path string) (bool, error) {
	_, ok := f.servers[path]
	delete(f.servers, path)
	return ok, nil
}
func (f *fakeServerRepo) SetEnabled(ctx context.Context, path string, enabled bool) error {
	s, ok := f.servers[path]
	if !ok {
		return registryerr.NewNotFound("server not found", nil)
	}
	s.IsEnabled = enabled
	return nil
}
func (f *fakeServerRepo) UpdateRating(ctx context.Context, path, username string, rating int) (*domain.Server, error) {
	s, ok := f.servers[path]
	if !ok {
		return nil, registryerr.NewNotFound("server not found", nil)
	}
	if err := s.ApplyRating(username, rating); err != nil {
		return nil, registryerr.NewValidation(err.Error(), err)
	}
	return s, nil
}
func (f *fakeServerRepo) GetState(ctx context.Context) ([]string, []string, error) {
	var enabled, disabled []string
	for _, s := range f.servers {
		if s.IsEnabled {
			enabled = append(enabled, s.Path)
		} else {
			disabled = append(disabled, s.Path)
		}
	}
	return enabled, disabled, nil
}

type fakeScanRepo struct {
	appended []*domain.SecurityScanResult
}

func (f *fakeScanRepo) Append(ctx context.Context, r *domain.SecurityScanResult) error {
	f.appended = append(f.appended, r)
	return nil
}
func (f *fakeScanRepo) Current(ctx context.Context, path string) (*domain.SecurityScanResult, error) {
	var latest *domain.SecurityScanResult
	for _, r := range f.appended {
		if r.Path == path && (latest == nil || r.Timestamp.After(latest.Timestamp)) {
			latest = r
		}
	}
	return latest, nil
}
func (f *fakeScanRepo) History(ctx context.Context, path string) ([]*domain.SecurityScanResult, error) {
	var out []*domain.SecurityScanResult
	for _, r := range f.appended {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeSearchRepo struct {
	docs map[string]*domain.SearchDocument
}

func newFakeSearchRepo() *fakeSearchRepo { return &fakeSearchRepo{docs: map[string]*domain.SearchDocument{}} }
func (f *fakeSearchRepo) Index(ctx context.Context, doc *domain.SearchDocument) error {
	f.docs[doc.Path] = doc
	return nil
}
func (f *fakeSearchRepo) Remove(ctx context.Context, path string) error {
	delete(f.docs, path)
	return nil
}
func (f *fakeSearchRepo) VectorSearch(ctx context.Context, embedding []float32, entityTypes []domain.EntityType, topK int) ([]repository.ScoredDocument, error) {
	return nil, nil
}
func (f *fakeSearchRepo) AllDocuments(ctx context.Context, entityTypes []domain.EntityType) ([]*domain.SearchDocument, error) {
	return nil, nil
}

type fakeEmbeddingsClient struct{}

func (fakeEmbeddingsClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0, 0}
	}
	return out, nil
}
func (fakeEmbeddingsClient) Dimensions() int { return 2 }

type fakeProxyEmitter struct {
	calls int
}

func (f *fakeProxyEmitter) Emit(ctx context.Context, servers []*domain.Server) error {
	f.calls++
	return nil
}

type alwaysUnsafeScanner struct{}

func (alwaysUnsafeScanner) Scan(ctx context.Context, path, targetURL string, timeout time.Duration) *domain.SecurityScanResult {
	return &domain.SecurityScanResult{Path: path, Timestamp: time.Now(), IsSafe: false, CriticalCount: 1}
}

func newTestServerService(t *testing.T, scanEnabled, blockUnsafe bool, scanner Scanner) (*ServerService, *fakeServerRepo, *fakeScanRepo, *fakeProxyEmitter) {
	t.Helper()
	serverRepo := newFakeServerRepo()
	scanRepo := &fakeScanRepo{}
	searchRepo := newFakeSearchRepo()
	indexer := search.NewIndexer(searchRepo, fakeEmbeddingsClient{}, zap.NewNop())
	proxy := &fakeProxyEmitter{}
	cfg := &config.Config{SecurityScanEnabled: scanEnabled, SecurityScanOnRegistration: true, SecurityBlockUnsafeServers: blockUnsafe, SecurityScanTimeoutSeconds: 5}
	svc := NewServerService(serverRepo, scanRepo, indexer, scanner, proxy, cfg, zap.NewNop())
	return svc, serverRepo, scanRepo, proxy
}

func validServer(path string) *domain.Server {
	return &domain.Server{
		Path:          path,
		Name:          "weather-mcp",
		Description:   "Weather forecasting server",
		ProxyPassURL:  "http://weather:8080",
		TransportType: domain.TransportStreamableHTTP,
	}
}

func TestServerService_Register_Succeeds(t *testing.T) {
	svc, repo, _, _ := newTestServerService(t, false, false, nil)
	s := validServer("/weather")

	require.NoError(t, svc.Register(context.Background(), s))
	stored, err := repo.Get(context.Background(), "/weather")
	require.NoError(t, err)
	assert.Equal(t, "weather-mcp", stored.Name)
}

func TestServerService_Register_ForcesDisabledRegardlessOfCallerValue(t *testing.T) {
	svc, repo, _, _ := newTestServerService(t, false, false, nil)
	s := validServer("/weather")
	s.IsEnabled = true

	require.NoError(t, svc.Register(context.Background(), s))
	stored, err := repo.Get(context.Background(), "/weather")
	require.NoError(t, err)
	assert.False(t, stored.IsEnabled, "a newly registered server must default to disabled")
}

func TestServerService_Register_SkipsScanWhenOnRegistrationDisabled(t *testing.T) {
	svc, repo, scans, _ := newTestServerService(t, true, true, alwaysUnsafeScanner{})
	svc.cfg.SecurityScanOnRegistration = false
	s := validServer("/weather")

	require.NoError(t, svc.Register(context.Background(), s))
	_, err := repo.Get(context.Background(), "/weather")
	assert.NoError(t, err, "registration must not be blocked when scanning is disabled for registration")
	assert.Empty(t, scans.appended, "no scan should run when SecurityScanOnRegistration is false")
}

func TestServerService_Register_BlocksUnsafeWhenConfigured(t *testing.T) {
	svc, repo, scans, _ := newTestServerService(t, true, true, alwaysUnsafeScanner{})
	s := validServer("/weather")

	err := svc.Register(context.Background(), s)
	require.Error(t, err)
	assert.Equal(t, registryerr.ExternalProcessFailed, registryerr.KindOf(err))

	_, getErr := repo.Get(context.Background(), "/weather")
	assert.Error(t, getErr, "server must not be persisted when blocked")
	assert.Len(t, scans.appended, 1, "scan result must still be persisted")
}

func TestServerService_Register_PersistsUnsafeScanWhenNotBlocking(t *testing.T) {
	svc, repo, scans, _ := newTestServerService(t, true, false, alwaysUnsafeScanner{})
	s := validServer("/weather")

	require.NoError(t, svc.Register(context.Background(), s))
	_, err := repo.Get(context.Background(), "/weather")
	assert.NoError(t, err)
	assert.Len(t, scans.appended, 1)
}

func TestServerService_SetEnabled_EmitsProxyConfig(t *testing.T) {
	svc, repo, _, proxy := newTestServerService(t, false, false, nil)
	repo.servers["/weather"] = validServer("/weather")

	require.NoError(t, svc.SetEnabled(context.Background(), "/weather", true))
	assert.Equal(t, 1, proxy.calls)
	assert.True(t, repo.servers["/weather"].IsEnabled)
}

func TestServerService_Rate_RecomputesNumStars(t *testing.T) {
	svc, repo, _, _ := newTestServerService(t, false, false, nil)
	repo.servers["/weather"] = validServer("/weather")

	_, err := svc.Rate(context.Background(), "/weather", "alice", 5)
	require.NoError(t, err)
	_, err = svc.Rate(context.Background(), "/weather", "bob", 3)
	require.NoError(t, err)

	assert.InDelta(t, 4.0, repo.servers["/weather"].NumStars, 1e-9)
	assert.Len(t, repo.servers["/weather"].RatingDetails, 2)
}

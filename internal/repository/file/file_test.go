package file

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &config.Config{FileBackendDir: t.TempDir()}
	store, err := Open(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestServerRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newServerRepository(newTestStore(t))

	s := &domain.Server{Path: "/svc/weather", Name: "weather", ProxyPassURL: "http://weather.internal"}
	require.NoError(t, repo.Create(ctx, s))

	_, err := repo.Get(ctx, "/svc/weather")
	require.NoError(t, err)

	err = repo.Create(ctx, &domain.Server{Path: "/svc/weather", Name: "dup", ProxyPassURL: "http://x"})
	require.Error(t, err)
	assert.Equal(t, registryerr.AlreadyExists, registryerr.KindOf(err))

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.SetEnabled(ctx, "/svc/weather", true))
	enabled, disabled, err := repo.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/svc/weather"}, enabled)
	assert.Empty(t, disabled)

	rated, err := repo.UpdateRating(ctx, "/svc/weather", "alice", 4)
	require.NoError(t, err)
	assert.Equal(t, float64(4), rated.NumStars)

	ok, err := repo.Delete(ctx, "/svc/weather")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.Get(ctx, "/svc/weather")
	assert.Equal(t, registryerr.NotFound, registryerr.KindOf(err))
}

func TestAgentRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newAgentRepository(newTestStore(t))

	a := &domain.Agent{Path: "/agents/a", Name: "a", URL: "http://a.internal", Visibility: domain.VisibilityPublic}
	require.NoError(t, repo.Create(ctx, a))

	got, err := repo.Get(ctx, "/agents/a")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)

	all, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	ok, err := repo.Delete(ctx, "/agents/a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestScopeRepositoryCRUD(t *testing.T) {
	ctx := context.Background()
	repo := newScopeRepository(newTestStore(t))

	s := &domain.Scope{Name: "engineering", GroupMappings: []string{"eng"}}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.Get(ctx, "engineering")
	require.NoError(t, err)
	assert.Equal(t, []string{"eng"}, got.GroupMappings)

	got.IsAdminScope = true
	require.NoError(t, repo.Update(ctx, got))

	reread, err := repo.Get(ctx, "engineering")
	require.NoError(t, err)
	assert.True(t, reread.IsAdminScope)

	ok, err := repo.Delete(ctx, "engineering")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = repo.Get(ctx, "engineering")
	assert.Equal(t, registryerr.NotFound, registryerr.KindOf(err))
}

func TestServerRepositoryUpdateMissingReturnsNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newServerRepository(newTestStore(t))

	err := repo.Update(ctx, &domain.Server{Path: "/svc/missing", Name: "x", ProxyPassURL: "http://x"})
	require.Error(t, err)
	assert.Equal(t, registryerr.NotFound, registryerr.KindOf(err))
}

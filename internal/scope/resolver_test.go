package scope

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
)

var errAlreadyExists = registryerr.NewAlreadyExists("scope already exists", nil)

type fakeScopeRepo struct {
	scopes map[string]*domain.Scope
}

func newFakeScopeRepo(scopes ...*domain.Scope) *fakeScopeRepo {
	m := make(map[string]*domain.Scope, len(scopes))
	for _, s := range scopes {
		m[s.Name] = s
	}
	return &fakeScopeRepo{scopes: m}
}

func (f *fakeScopeRepo) LoadAll(ctx context.Context) ([]*domain.Scope, error) {
	return f.ListAll(ctx)
}
func (f *fakeScopeRepo) Get(ctx context.Context, name string) (*domain.Scope, error) {
	s, ok := f.scopes[name]
	if !ok {
		return nil, nil
	}
	return s, nil
}
func (f *fakeScopeRepo) ListAll(ctx context.Context) ([]*domain.Scope, error) {
	out := make([]*domain.Scope, 0, len(f.scopes))
	for _, s := range f.scopes {
		out = append(out, s)
	}
	return out, nil
}
func (f *fakeScopeRepo) Create(ctx context.Context, s *domain.Scope) error {
	if _, ok := f.scopes[s.Name]; ok {
		return errAlreadyExists
	}
	f.scopes[s.Name] = s
	return nil
}
func (f *fakeScopeRepo) Update(ctx context.Context, s *domain.Scope) error {
	f.scopes[s.Name] = s
	return nil
}
func (f *fakeScopeRepo) Delete(ctx context.Context, name string) (bool, error) {
	_, existed := f.scopes[name]
	delete(f.scopes, name)
	return existed, nil
}

func TestResolver_Resolve_UnionsGroupsAndDetectsAdmin(t *testing.T) {
	repo := newFakeScopeRepo(
		&domain.Scope{
			Name:          "mcp-servers-readonly/read",
			GroupMappings: []string{"viewers"},
			ServerAccess:  []domain.EntityAccess{{Path: "/weather", Methods: []string{"GET"}}},
		},
		&domain.Scope{
			Name:          "mcp-admin",
			GroupMappings: []string{"platform-admins"},
			IsAdminScope:  true,
		},
	)
	resolver := NewResolver(repo, zap.NewNop())

	cc, err := resolver.Resolve(context.Background(), "alice", []string{"viewers"})
	require.NoError(t, err)
	assert.False(t, cc.IsAdmin)
	assert.Contains(t, cc.Scopes, "mcp-servers-readonly/read")
	assert.Contains(t, cc.AccessibleServers, "/weather")

	cc, err = resolver.Resolve(context.Background(), "bob", []string{"platform-admins"})
	require.NoError(t, err)
	assert.True(t, cc.IsAdmin)
}

func TestAllowsServerAccess(t *testing.T) {
	admin := &CallerContext{IsAdmin: true}
	assert.True(t, AllowsServerAccess(admin, "/anything", "anything"))

	all := &CallerContext{AccessibleServers: []string{"all"}}
	assert.True(t, AllowsServerAccess(all, "/anything", "anything"))

	named := &CallerContext{AccessibleServers: []string{"weather"}}
	assert.True(t, AllowsServerAccess(named, "/weather", "weather-mcp"))
	assert.True(t, AllowsServerAccess(named, "weather/", "weather-mcp"))
	assert.False(t, AllowsServerAccess(named, "/other", "other-mcp"))
}

func TestAllowsAgentAccess(t *testing.T) {
	publicAgent := &domain.Agent{Path: "/summarizer", Visibility: domain.VisibilityPublic}
	assert.True(t, AllowsAgentAccess(&CallerContext{}, publicAgent))

	privateAgent := &domain.Agent{Path: "/mine", Visibility: domain.VisibilityPrivate, RegisteredBy: "alice"}
	assert.True(t, AllowsAgentAccess(&CallerContext{Username: "alice"}, privateAgent))
	assert.False(t, AllowsAgentAccess(&CallerContext{Username: "bob"}, privateAgent))

	restricted := &domain.Agent{Path: "/team", Visibility: domain.VisibilityGroupRestricted, AllowedGroups: []string{"eng"}}
	assert.True(t, AllowsAgentAccess(&CallerContext{Groups: []string{"eng", "other"}}, restricted))
	assert.False(t, AllowsAgentAccess(&CallerContext{Groups: []string{"sales"}}, restricted))
}

func TestUIPermissionsFor_UnionsAcrossBoundScopes(t *testing.T) {
	repo := newFakeScopeRepo(
		&domain.Scope{
			Name:          "scope-a",
			GroupMappings: []string{"g1"},
			UIPermissions: map[string][]string{"register": {"weather"}, "delete": {"all"}},
		},
		&domain.Scope{
			Name:          "scope-b",
			GroupMappings: []string{"g2"},
			UIPermissions: map[string][]string{"toggle": {"weather"}},
		},
	)
	resolver := NewResolver(repo, zap.NewNop())
	cc := &CallerContext{Scopes: []string{"scope-a", "scope-b"}}

	perms, err := resolver.UIPermissionsFor(context.Background(), cc, "weather")
	require.NoError(t, err)
	assert.True(t, perms["register"])
	assert.True(t, perms["delete"])
	assert.True(t, perms["toggle"])
}

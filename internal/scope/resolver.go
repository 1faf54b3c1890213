// Package scope implements the authorization model of spec.md §4.3:
// effective-scope computation from identity-provider groups, server/
// agent access checks, and UI-permission union.
package scope

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/repository"
)

// CallerContext is the per-request authorization context. The
// external collaborator (auth adapter, spec.md §6) may supply one
// directly from a token; Resolver.Resolve builds one from raw groups
// when only group membership is available.
type CallerContext struct {
	Username          string
	Groups            []string
	Scopes            []string
	AccessibleServers []string
	AccessibleAgents  []string
	IsAdmin           bool
}

// containsAny reports whether any of needle appears in haystack,
// matched exactly or via the "all"/"*" wildcard member of haystack.
func containsAny(haystack []string, needle ...string) bool {
	set := make(map[string]bool, len(haystack))
	for _, h := range haystack {
		if h == "all" || h == "*" {
			return true
		}
		set[h] = true
	}
	for _, n := range needle {
		if set[n] {
			return true
		}
	}
	return false
}

// Resolver computes effective scopes and access decisions against the
// live ScopeRepository.
type Resolver struct {
	scopes repository.ScopeRepository
	logger *zap.Logger
}

func NewResolver(scopes repository.ScopeRepository, logger *zap.Logger) *Resolver {
	return &Resolver{scopes: scopes, logger: logger}
}

// Resolve computes the CallerContext for a caller advertising the
// given identity-provider groups: the union over groups of
// scope.group_mappings ∋ group → scope.name (spec.md §4.3), plus the
// accessible server/agent paths and UI permissions those scopes grant.
// Admin is a reserved scope implying access to all entities and
// operations.
func (r *Resolver) Resolve(ctx context.Context, username string, groups []string) (*CallerContext, error) {
	all, err := r.scopes.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	cc := &CallerContext{Username: username, Groups: groups}
	groupSet := make(map[string]bool, len(groups))
	for _, g := range groups {
		groupSet[g] = true
	}

	for _, s := range all {
		matched := false
		for _, g := range s.GroupMappings {
			if groupSet[g] {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		cc.Scopes = append(cc.Scopes, s.Name)
		if s.IsAdminScope {
			cc.IsAdmin = true
		}
		for _, a := range s.ServerAccess {
			cc.AccessibleServers = append(cc.AccessibleServers, a.Path)
		}
		for _, a := range s.AgentAccess {
			cc.AccessibleAgents = append(cc.AccessibleAgents, a.Path)
		}
	}

	r.logger.Debug("resolved caller scopes",
		zap.String("username", username),
		zap.Strings("scopes", cc.Scopes),
		zap.Bool("is_admin", cc.IsAdmin))

	return cc, nil
}

// technicalName strips leading/trailing slashes; inner slashes are
// kept. Matching spec.md §4.3's "technical name (P stripped
// of slashes)".
func technicalName(path string) string {
	return strings.Trim(path, "/")
}

// AllowsServerAccess implements the server access check of spec.md
// §4.3: admin or "all" in accessible_servers allows everything;
// otherwise the technical name or server name must appear in
// accessible_servers. Trailing-slash variants of path are equivalent.
func AllowsServerAccess(cc *CallerContext, path, serverName string) bool {
	if cc.IsAdmin {
		return true
	}
	return containsAny(cc.AccessibleServers, technicalName(path), serverName)
}

// AllowsAgentAccess implements the agent access check of spec.md
// §4.3: admin/"all" allows everything; else visibility governs
// access (public allows all, private only the registering user,
// group-restricted requires a group intersection).
func AllowsAgentAccess(cc *CallerContext, agent *domain.Agent) bool {
	if cc.IsAdmin || containsAny(cc.AccessibleAgents, technicalName(agent.Path)) {
		return true
	}
	switch agent.Visibility {
	case domain.VisibilityPublic:
		return true
	case domain.VisibilityPrivate:
		return agent.RegisteredBy == cc.Username
	case domain.VisibilityGroupRestricted:
		return groupsIntersect(agent.AllowedGroups, cc.Groups)
	default:
		return false
	}
}

func groupsIntersect(a, b []string) bool {
	set := make(map[string]bool, len(a))
	for _, g := range a {
		set[g] = true
	}
	for _, g := range b {
		if set[g] {
			return true
		}
	}
	return false
}

// UIPermissionsFor computes the union, across every scope bound to
// the caller's groups, of UI actions granted on the given server name
// (spec.md §4.3 UI permissions: "the union across the caller's scopes
// is computed at request time").
func (r *Resolver) UIPermissionsFor(ctx context.Context, cc *CallerContext, serverName string) (map[string]bool, error) {
	all, err := r.scopes.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	scopeSet := make(map[string]bool, len(cc.Scopes))
	for _, s := range cc.Scopes {
		scopeSet[s] = true
	}

	result := make(map[string]bool)
	for _, s := range all {
		if !scopeSet[s.Name] {
			continue
		}
		for action, servers := range s.UIPermissions {
			if containsAny(servers, serverName) {
				result[action] = true
			}
		}
	}
	return result, nil
}

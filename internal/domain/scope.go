package domain

import "fmt"

// EntityAccess is one entry of a scope's server_access / agent_access
// list: the entity path, plus the methods and tools/skills granted on
// it. A single "*" element in either list means "all".
type EntityAccess struct {
	Path    string   `json:"path" bson:"path"`
	Methods []string `json:"methods" bson:"methods"`
	Tools   []string `json:"tools,omitempty" bson:"tools,omitempty"`
}

func (e EntityAccess) grantsMethod(method string) bool {
	for _, m := range e.Methods {
		if m == "*" || m == method {
			return true
		}
	}
	return false
}

func (e EntityAccess) grantsTool(tool string) bool {
	if len(e.Tools) == 0 {
		return true
	}
	for _, t := range e.Tools {
		if t == "*" || t == tool {
			return true
		}
	}
	return false
}

// Scope is an authorization contract: identity-provider groups map to
// a named scope, which in turn grants access to a set of server/agent
// paths (spec.md §3 Scope).
//
// UIPermissions is keyed by UI action (e.g. "list_service", "modify")
// with a value listing the server names it applies to, or ["all"]
// (spec.md §4.3 UI permissions).
type Scope struct {
	Name          string              `json:"name" bson:"_id"`
	Description   string              `json:"description,omitempty" bson:"description,omitempty"`
	GroupMappings []string            `json:"group_mappings" bson:"group_mappings"`
	ServerAccess  []EntityAccess      `json:"server_access,omitempty" bson:"server_access,omitempty"`
	AgentAccess   []EntityAccess      `json:"agent_access,omitempty" bson:"agent_access,omitempty"`
	UIPermissions map[string][]string `json:"ui_permissions,omitempty" bson:"ui_permissions,omitempty"`
	IsAdminScope  bool                `json:"is_admin_scope,omitempty" bson:"is_admin_scope,omitempty"`
}

func (s *Scope) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("scope name is required")
	}
	if len(s.GroupMappings) == 0 {
		return fmt.Errorf("scope %q must map to at least one group", s.Name)
	}
	return nil
}

// ServerAccessFor returns the server_access entry for path, if the
// scope grants any access to it (admin scopes act as if every path
// were granted "*"/"*").
func (s *Scope) ServerAccessFor(path string) (EntityAccess, bool) {
	if s.IsAdminScope {
		return EntityAccess{Path: path, Methods: []string{"*"}, Tools: []string{"*"}}, true
	}
	for _, a := range s.ServerAccess {
		if a.Path == path {
			return a, true
		}
	}
	return EntityAccess{}, false
}

// AgentAccessFor returns the agent_access entry for path, if the
// scope grants any access to it.
func (s *Scope) AgentAccessFor(path string) (EntityAccess, bool) {
	if s.IsAdminScope {
		return EntityAccess{Path: path, Methods: []string{"*"}, Tools: []string{"*"}}, true
	}
	for _, a := range s.AgentAccess {
		if a.Path == path {
			return a, true
		}
	}
	return EntityAccess{}, false
}

// AllowsServerMethod reports whether this scope grants method (and,
// when tool is non-empty, tool) on the given server path.
func (s *Scope) AllowsServerMethod(path, method, tool string) bool {
	access, ok := s.ServerAccessFor(path)
	if !ok {
		return false
	}
	if !access.grantsMethod(method) {
		return false
	}
	if tool == "" {
		return true
	}
	return access.grantsTool(tool)
}

// AllowsAgentMethod reports whether this scope grants method (and,
// when skill is non-empty, skill) on the given agent path.
func (s *Scope) AllowsAgentMethod(path, method, skill string) bool {
	access, ok := s.AgentAccessFor(path)
	if !ok {
		return false
	}
	if !access.grantsMethod(method) {
		return false
	}
	if skill == "" {
		return true
	}
	return access.grantsTool(skill)
}

// Package search implements the hybrid search index of spec.md §4.2:
// ingestion text builders, the embedding-backed query algorithm with
// its native-vector-search/client-side-cosine fallback, lexical
// text-boost scoring, and per-entity-type result capping.
package search

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mcp-registry/gateway/internal/domain"
)

// TextForServer builds the text_for_embedding for a Server: name,
// description, "Tags: t1, t2", and "<tool.name> <tool.description>"
// per tool (spec.md §4.2 Ingestion).
func TextForServer(s *domain.Server) string {
	var b strings.Builder
	b.WriteString(s.Name)
	b.WriteString(" ")
	b.WriteString(s.Description)
	if len(s.Tags) > 0 {
		fmt.Fprintf(&b, " Tags: %s", strings.Join(s.Tags, ", "))
	}
	for _, tool := range s.ToolList {
		fmt.Fprintf(&b, " %s %s", tool.Name, tool.Description)
	}
	return strings.TrimSpace(b.String())
}

// TextForAgent builds the text_for_embedding for an Agent: name,
// description, tags, capability keys (sorted for determinism), and
// "<skill.name> <skill.description>" per skill.
func TextForAgent(a *domain.Agent) string {
	var b strings.Builder
	b.WriteString(a.Name)
	b.WriteString(" ")
	b.WriteString(a.Description)
	if len(a.Tags) > 0 {
		fmt.Fprintf(&b, " Tags: %s", strings.Join(a.Tags, ", "))
	}
	if len(a.Capabilities) > 0 {
		keys := make([]string, 0, len(a.Capabilities))
		for k := range a.Capabilities {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&b, " %s", strings.Join(keys, " "))
	}
	for _, skill := range a.Skills {
		fmt.Fprintf(&b, " %s %s", skill.Name, skill.Description)
	}
	return strings.TrimSpace(b.String())
}

// ServerMetadata builds the lightweight metadata snapshot stored
// alongside a server's embedding (spec.md §3 Search document).
func ServerMetadata(s *domain.Server) map[string]any {
	return map[string]any{
		"name":        s.Name,
		"description": s.Description,
		"tags":        s.Tags,
		"is_enabled":  s.IsEnabled,
		"num_stars":   s.NumStars,
	}
}

// AgentMetadata builds the lightweight metadata snapshot for an agent.
func AgentMetadata(a *domain.Agent) map[string]any {
	return map[string]any{
		"name":        a.Name,
		"description": a.Description,
		"tags":        a.Tags,
		"is_enabled":  a.IsEnabled,
		"num_stars":   a.NumStars,
	}
}

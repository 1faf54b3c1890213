// Package federation implements spec.md §4.4's federation sync: for
// each enabled upstream, fetch its items via the upstream's protocol,
// transform them to the internal schema, idempotently upsert, enable,
// and re-index, isolating per-item and per-upstream failures so one
// bad upstream never blocks the others (SPEC_FULL §3, grounded on
// original_source's asor_client.py/anthropic_client.py).
package federation

import (
	"context"

	"github.com/mcp-registry/gateway/internal/domain"
)

// ServerProtocol fetches server-family items from one upstream kind
// (e.g. the Anthropic MCP Registry discovery API).
type ServerProtocol interface {
	FetchServers(ctx context.Context, cfg *domain.FederationConfig) ([]*domain.Server, error)
}

// AgentProtocol fetches agent-family items from one upstream kind
// (e.g. a Workday-ASOR-shaped agent directory). Per spec.md §9 Open
// Questions, token acquisition for such upstreams is an external
// concern: auth_env_var is read as a ready-to-use bearer credential,
// never as an OAuth client secret to exchange.
type AgentProtocol interface {
	FetchAgents(ctx context.Context, cfg *domain.FederationConfig) ([]*domain.Agent, error)
}

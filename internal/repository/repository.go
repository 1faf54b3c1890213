// Package repository defines the six storage contracts of spec.md
// §4.1 and the Set that bundles them; internal/storage.Build selects
// the concrete backend from Config.StorageBackend. Higher layers depend only on these
// interfaces — never on a concrete backend — so file/documentdb/
// mongodb-ce/mongodb stay interchangeable.
package repository

import (
	"context"
	"time"

	"github.com/mcp-registry/gateway/internal/domain"
)

// ServerRepository persists Server entities.
type ServerRepository interface {
	LoadAll(ctx context.Context) ([]*domain.Server, error)
	Get(ctx context.Context, path string) (*domain.Server, error)
	ListAll(ctx context.Context) ([]*domain.Server, error)
	Create(ctx context.Context, server *domain.Server) error
	Update(ctx context.Context, server *domain.Server) error
	Delete(ctx context.Context, path string) (bool, error)

	SetEnabled(ctx context.Context, path string, enabled bool) error
	UpdateRating(ctx context.Context, path, username string, rating int) (*domain.Server, error)
	GetState(ctx context.Context) (enabled, disabled []string, err error)
}

// AgentRepository persists Agent entities.
type AgentRepository interface {
	LoadAll(ctx context.Context) ([]*domain.Agent, error)
	Get(ctx context.Context, path string) (*domain.Agent, error)
	ListAll(ctx context.Context) ([]*domain.Agent, error)
	Create(ctx context.Context, agent *domain.Agent) error
	Update(ctx context.Context, agent *domain.Agent) error
	Delete(ctx context.Context, path string) (bool, error)

	SetEnabled(ctx context.Context, path string, enabled bool) error
	UpdateRating(ctx context.Context, path, username string, rating int) (*domain.Agent, error)
	GetState(ctx context.Context) (enabled, disabled []string, err error)
}

// ScopeRepository persists authorization Scopes.
type ScopeRepository interface {
	LoadAll(ctx context.Context) ([]*domain.Scope, error)
	Get(ctx context.Context, name string) (*domain.Scope, error)
	ListAll(ctx context.Context) ([]*domain.Scope, error)
	Create(ctx context.Context, scope *domain.Scope) error
	Update(ctx context.Context, scope *domain.Scope) error
	Delete(ctx context.Context, name string) (bool, error)
}

// SecurityScanRepository persists append-only scan results.
type SecurityScanRepository interface {
	Append(ctx context.Context, result *domain.SecurityScanResult) error
	// Current returns the most recent scan result for path by
	// timestamp, or nil if the entity has never been scanned.
	Current(ctx context.Context, path string) (*domain.SecurityScanResult, error)
	History(ctx context.Context, path string) ([]*domain.SecurityScanResult, error)
}

// SearchRepository indexes entities for the hybrid search module.
// Create/Update/Delete keep the index synchronous with the source of
// truth per spec.md §3's invariant on search/entity path pairing.
type SearchRepository interface {
	Index(ctx context.Context, doc *domain.SearchDocument) error
	Remove(ctx context.Context, path string) error
	// VectorSearch returns the topK nearest documents to embedding,
	// restricted to entityTypes when non-empty. Implementations that
	// lack native vector search return ErrNativeVectorSearchUnavailable
	// so the search module can fall back to client-side cosine.
	VectorSearch(ctx context.Context, embedding []float32, entityTypes []domain.EntityType, topK int) ([]ScoredDocument, error)
	// AllDocuments returns every indexed document, for the client-side
	// cosine fallback path.
	AllDocuments(ctx context.Context, entityTypes []domain.EntityType) ([]*domain.SearchDocument, error)
}

// ScoredDocument pairs an indexed document with its similarity score.
type ScoredDocument struct {
	Document *domain.SearchDocument
	Score    float64
}

// FederationConfigRepository persists upstream federation configs.
type FederationConfigRepository interface {
	LoadAll(ctx context.Context) ([]*domain.FederationConfig, error)
	Get(ctx context.Context, name string) (*domain.FederationConfig, error)
	ListAll(ctx context.Context) ([]*domain.FederationConfig, error)
	Create(ctx context.Context, cfg *domain.FederationConfig) error
	Update(ctx context.Context, cfg *domain.FederationConfig) error
	Delete(ctx context.Context, name string) (bool, error)
}

// Clock is a time-source function type. No repository in this module
// takes one; they stamp registered_at/updated_at with time.Now().
type Clock func() time.Time

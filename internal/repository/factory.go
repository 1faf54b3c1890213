package repository

import (
	"context"
	"errors"
)

// ErrNativeVectorSearchUnavailable is returned by VectorSearch when the
// configured backend has no native vector-search capability (or the
// server rejected the $vectorSearch stage at runtime); the search
// module catches it and falls back to AllDocuments + client-side
// cosine (spec.md §4.1 Search backend selection).
var ErrNativeVectorSearchUnavailable = errors.New("native vector search unavailable")

// Set bundles one instance of each repository contract, all sharing
// the same backend and connection. A process-wide factory
// (internal/storage) builds exactly one Set from Config.StorageBackend
// and every service depends on this interface, never a concrete
// backend (spec.md §4.1: "higher layers never branch on backend").
type Set struct {
	Servers     ServerRepository
	Agents      AgentRepository
	Scopes      ScopeRepository
	ScanResults SecurityScanRepository
	Search      SearchRepository
	Federation  FederationConfigRepository

	// Close releases the backend's underlying connection, if any
	// (spec.md §4.4 shutdown: "close repository clients"). The file
	// backend has nothing to release and sets this to a no-op.
	Close func(ctx context.Context) error
}

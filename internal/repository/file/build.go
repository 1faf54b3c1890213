package file

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
	"github.com/mcp-registry/gateway/internal/repository"
)

// BuildSet opens the file-backend Store and wires one repository per
// contract against it, matching the mongo package's BuildSet shape so
// callers in internal/storage can dispatch on Config.StorageBackend
// without caring which family they got.
func BuildSet(cfg *config.Config, logger *zap.Logger) (*repository.Set, error) {
	store, err := Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("opening file backend: %w", err)
	}

	search, err := newSearchRepository(store)
	if err != nil {
		return nil, fmt.Errorf("opening file search index: %w", err)
	}

	return &repository.Set{
		Servers:     newServerRepository(store),
		Agents:      newAgentRepository(store),
		Scopes:      newScopeRepository(store),
		ScanResults: newScanRepository(store),
		Search:      search,
		Federation:  newFederationRepository(store),
		Close:       func(ctx context.Context) error { return nil },
	}, nil
}

// Package storage is the process-wide factory of spec.md §4.1: it
// selects and builds exactly one repository.Set from
// Config.StorageBackend. It is the only package that imports both
// repository/file and repository/mongo — every other package depends
// on the repository interfaces alone.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
	"github.com/mcp-registry/gateway/internal/repository"
	"github.com/mcp-registry/gateway/internal/repository/file"
	"github.com/mcp-registry/gateway/internal/repository/mongo"
)

// Build constructs the repository.Set for cfg.StorageBackend. Callers
// (the orchestrator) build exactly once per process and pass the
// result down explicitly — no package-level singleton.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Set, error) {
	switch cfg.StorageBackend {
	case config.BackendFile:
		return file.BuildSet(cfg, logger)
	case config.BackendDocumentDB, config.BackendMongoCE, config.BackendMongoDB:
		return mongo.BuildSet(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("no repository backend registered for %q", cfg.StorageBackend)
	}
}

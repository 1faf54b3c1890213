// Package mongo implements the repository contracts against
// DocumentDB, MongoDB-CE, and MongoDB proper, behind one set of types
// parameterized by a vector-search capability flag (spec.md §4.1:
// "one implementation serving DocumentDB, MongoDB-CE, and MongoDB
// proper"). Grounded on the teacher's internal/mcp/storage/
// tools_storage.go for index-creation and upsert idiom.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
	"github.com/mcp-registry/gateway/internal/repository"
)

// Backend bundles the shared mongo.Database handle and capability
// flags every collection-specific repository reads from.
type Backend struct {
	client *mongo.Client
	db     *mongo.Database
	cfg    *config.Config
	logger *zap.Logger

	// NativeVectorSearch is true only for storage_backend=mongodb; it
	// gates whether SearchRepository.VectorSearch attempts the native
	// $vectorSearch aggregation stage or returns
	// repository.ErrNativeVectorSearchUnavailable immediately.
	NativeVectorSearch bool
}

// Connect dials the configured Mongo-family backend and returns a
// Backend ready to build collection-specific repositories.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	uri := buildURI(cfg)

	clientOpts := options.Client().ApplyURI(uri)
	if cfg.DocumentDBDirectConnect {
		clientOpts.SetDirect(true)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", cfg.StorageBackend, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("pinging %s: %w", cfg.StorageBackend, err)
	}

	logger.Info("connected to mongo-family backend",
		zap.String("backend", string(cfg.StorageBackend)),
		zap.String("database", cfg.DocumentDBDatabase))

	return &Backend{
		client:             client,
		db:                 client.Database(cfg.DocumentDBDatabase),
		cfg:                cfg,
		logger:             logger,
		NativeVectorSearch: cfg.HasNativeVectorSearch(),
	}, nil
}

func buildURI(cfg *config.Config) string {
	scheme := "mongodb"
	tlsParam := ""
	if cfg.DocumentDBUseTLS {
		tlsParam = "&tls=true"
	}
	if cfg.DocumentDBUsername != "" {
		return fmt.Sprintf("%s://%s:%s@%s:%d/?retryWrites=false%s",
			scheme, cfg.DocumentDBUsername, cfg.DocumentDBPassword, cfg.DocumentDBHost, cfg.DocumentDBPort, tlsParam)
	}
	return fmt.Sprintf("%s://%s:%d/?retryWrites=false%s", scheme, cfg.DocumentDBHost, cfg.DocumentDBPort, tlsParam)
}

// BuildSet connects, ensures indexes, and wires one repository per
// contract against the shared Backend.
func BuildSet(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*repository.Set, error) {
	backend, err := Connect(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := backend.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return &repository.Set{
		Servers:     newServerRepository(backend),
		Agents:      newAgentRepository(backend),
		Scopes:      newScopeRepository(backend),
		ScanResults: newScanRepository(backend),
		Search:      newSearchRepository(backend),
		Federation:  newFederationRepository(backend),
		Close:       backend.client.Disconnect,
	}, nil
}

package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// ensureIndexes creates the regular indexes enumerated in spec.md §6.
// The vector-search index itself is created (on mongodb only) through
// the search-index API by the search package, not here, since it
// requires the embedding dimension which the search module owns.
func (b *Backend) ensureIndexes(ctx context.Context) error {
	servers := b.db.Collection(b.serversCollectionName())
	if _, err := servers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "is_enabled", Value: 1}, {Key: "tags", Value: 1}, {Key: "server_name", Value: 1}},
	}); err != nil {
		return fmt.Errorf("creating servers index: %w", err)
	}

	agents := b.db.Collection(b.agentsCollectionName())
	if _, err := agents.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "is_enabled", Value: 1}, {Key: "tags", Value: 1}, {Key: "agent_name", Value: 1}},
	}); err != nil {
		return fmt.Errorf("creating agents index: %w", err)
	}

	embeddings := b.db.Collection(b.embeddingsCollectionName())
	if _, err := embeddings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "entity_type", Value: 1}},
	}); err != nil {
		return fmt.Errorf("creating embeddings index: %w", err)
	}

	scans := b.db.Collection(b.scansCollectionName())
	if _, err := scans.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "path", Value: 1}, {Key: "failed", Value: 1}, {Key: "timestamp", Value: -1}},
	}); err != nil {
		return fmt.Errorf("creating security_scans index: %w", err)
	}

	return nil
}

func (b *Backend) serversCollectionName() string    { return b.cfg.CollectionName("mcp_servers") }
func (b *Backend) agentsCollectionName() string     { return b.cfg.CollectionName("mcp_agents") }
func (b *Backend) scopesCollectionName() string     { return b.cfg.CollectionName("mcp_scopes") }
func (b *Backend) embeddingsCollectionName() string { return b.cfg.EmbeddingsCollectionName() }
func (b *Backend) scansCollectionName() string      { return b.cfg.CollectionName("mcp_security_scans") }
func (b *Backend) federationCollectionName() string { return b.cfg.CollectionName("mcp_federation_config") }

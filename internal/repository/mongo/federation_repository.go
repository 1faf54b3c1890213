package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
)

type federationRepository struct {
	collection *mongo.Collection
}

func newFederationRepository(b *Backend) *federationRepository {
	return &federationRepository{collection: b.db.Collection(b.federationCollectionName())}
}

func (r *federationRepository) LoadAll(ctx context.Context) ([]*domain.FederationConfig, error) {
	return r.ListAll(ctx)
}

func (r *federationRepository) Get(ctx context.Context, name string) (*domain.FederationConfig, error) {
	var f domain.FederationConfig
	err := r.collection.FindOne(ctx, bson.M{"_id": name}).Decode(&f)
	if err == mongo.ErrNoDocuments {
		return nil, registryerr.NewNotFound(fmt.Sprintf("federation config %q not found", name), err)
	}
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("fetching federation config", err)
	}
	return &f, nil
}

func (r *federationRepository) ListAll(ctx context.Context) ([]*domain.FederationConfig, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("listing federation configs", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.FederationConfig
	for cursor.Next(ctx) {
		var f domain.FederationConfig
		if err := cursor.Decode(&f); err != nil {
			return nil, registryerr.NewBackendUnavailable("decoding federation config", err)
		}
		out = append(out, &f)
	}
	return out, cursor.Err()
}

func (r *federationRepository) Create(ctx context.Context, cfg *domain.FederationConfig) error {
	_, err := r.collection.InsertOne(ctx, cfg)
	if mongo.IsDuplicateKeyError(err) {
		return registryerr.NewAlreadyExists(fmt.Sprintf("federation config %q already exists", cfg.Name), err)
	}
	if err != nil {
		return registryerr.NewBackendUnavailable("creating federation config", err)
	}
	return nil
}

func (r *federationRepository) Update(ctx context.Context, cfg *domain.FederationConfig) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": cfg.Name}, cfg)
	if err != nil {
		return registryerr.NewBackendUnavailable("updating federation config", err)
	}
	if result.MatchedCount == 0 {
		return registryerr.NewNotFound(fmt.Sprintf("federation config %q not found", cfg.Name), nil)
	}
	return nil
}

func (r *federationRepository) Delete(ctx context.Context, name string) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return false, registryerr.NewBackendUnavailable("deleting federation config", err)
	}
	return result.DeletedCount > 0, nil
}

package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
)

type scopeRepository struct {
	collection *mongo.Collection
}

func newScopeRepository(b *Backend) *scopeRepository {
	return &scopeRepository{collection: b.db.Collection(b.scopesCollectionName())}
}

func (r *scopeRepository) LoadAll(ctx context.Context) ([]*domain.Scope, error) {
	return r.ListAll(ctx)
}

func (r *scopeRepository) Get(ctx context.Context, name string) (*domain.Scope, error) {
	var s domain.Scope
	err := r.collection.FindOne(ctx, bson.M{"_id": name}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, registryerr.NewNotFound(fmt.Sprintf("scope %q not found", name), err)
	}
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("fetching scope", err)
	}
	return &s, nil
}

func (r *scopeRepository) ListAll(ctx context.Context) ([]*domain.Scope, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("listing scopes", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.Scope
	for cursor.Next(ctx) {
		var s domain.Scope
		if err := cursor.Decode(&s); err != nil {
			return nil, registryerr.NewBackendUnavailable("decoding scope", err)
		}
		out = append(out, &s)
	}
	return out, cursor.Err()
}

func (r *scopeRepository) Create(ctx context.Context, scope *domain.Scope) error {
	_, err := r.collection.InsertOne(ctx, scope)
	if mongo.IsDuplicateKeyError(err) {
		return registryerr.NewAlreadyExists(fmt.Sprintf("scope %q already exists", scope.Name), err)
	}
	if err != nil {
		return registryerr.NewBackendUnavailable("creating scope", err)
	}
	return nil
}

func (r *scopeRepository) Update(ctx context.Context, scope *domain.Scope) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": scope.Name}, scope)
	if err != nil {
		return registryerr.NewBackendUnavailable("updating scope", err)
	}
	if result.MatchedCount == 0 {
		return registryerr.NewNotFound(fmt.Sprintf("scope %q not found", scope.Name), nil)
	}
	return nil
}

func (r *scopeRepository) Delete(ctx context.Context, name string) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": name})
	if err != nil {
		return false, registryerr.NewBackendUnavailable("deleting scope", err)
	}
	return result.DeletedCount > 0, nil
}

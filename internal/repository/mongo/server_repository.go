package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
)

type serverRepository struct {
	backend    *Backend
	collection *mongo.Collection
}

func newServerRepository(b *Backend) *serverRepository {
	return &serverRepository{backend: b, collection: b.db.Collection(b.serversCollectionName())}
}

func (r *serverRepository) LoadAll(ctx context.Context) ([]*domain.Server, error) {
	return r.ListAll(ctx)
}

func (r *serverRepository) Get(ctx context.Context, path string) (*domain.Server, error) {
	path = domain.NormalizePath(path)
	var s domain.Server
	err := r.collection.FindOne(ctx, bson.M{"_id": path}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, registryerr.NewNotFound(fmt.Sprintf("server %q not found", path), err)
	}
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("fetching server", err)
	}
	return &s, nil
}

func (r *serverRepository) ListAll(ctx context.Context) ([]*domain.Server, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("listing servers", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.Server
	for cursor.Next(ctx) {
		var s domain.Server
		if err := cursor.Decode(&s); err != nil {
			return nil, registryerr.NewBackendUnavailable("decoding server", err)
		}
		out = append(out, &s)
	}
	return out, cursor.Err()
}

func (r *serverRepository) Create(ctx context.Context, server *domain.Server) error {
	server.Path = domain.NormalizePath(server.Path)
	now := time.Now().UTC()
	server.RegisteredAt = now
	server.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, server)
	if mongo.IsDuplicateKeyError(err) {
		return registryerr.NewAlreadyExists(fmt.Sprintf("server %q already registered", server.Path), err)
	}
	if err != nil {
		return registryerr.NewBackendUnavailable("creating server", err)
	}
	return nil
}

func (r *serverRepository) Update(ctx context.Context, server *domain.Server) error {
	server.Path = domain.NormalizePath(server.Path)
	server.UpdatedAt = time.Now().UTC()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": server.Path}, server)
	if err != nil {
		return registryerr.NewBackendUnavailable("updating server", err)
	}
	if result.MatchedCount == 0 {
		return registryerr.NewNotFound(fmt.Sprintf("server %q not found", server.Path), nil)
	}
	return nil
}

func (r *serverRepository) Delete(ctx context.Context, path string) (bool, error) {
	path = domain.NormalizePath(path)
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": path})
	if err != nil {
		return false, registryerr.NewBackendUnavailable("deleting server", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *serverRepository) SetEnabled(ctx context.Context, path string, enabled bool) error {
	path = domain.NormalizePath(path)
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": path},
		bson.M{"$set": bson.M{"is_enabled": enabled, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return registryerr.NewBackendUnavailable("toggling server", err)
	}
	if result.MatchedCount == 0 {
		return registryerr.NewNotFound(fmt.Sprintf("server %q not found", path), nil)
	}
	return nil
}

func (r *serverRepository) UpdateRating(ctx context.Context, path, username string, rating int) (*domain.Server, error) {
	s, err := r.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyRating(username, rating); err != nil {
		return nil, registryerr.NewValidation(err.Error(), err)
	}
	if err := r.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *serverRepository) GetState(ctx context.Context) (enabled, disabled []string, err error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1, "is_enabled": 1}))
	if err != nil {
		return nil, nil, registryerr.NewBackendUnavailable("fetching server state", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			Path      string `bson:"_id"`
			IsEnabled bool   `bson:"is_enabled"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, nil, registryerr.NewBackendUnavailable("decoding server state", err)
		}
		if row.IsEnabled {
			enabled = append(enabled, row.Path)
		} else {
			disabled = append(disabled, row.Path)
		}
	}
	return enabled, disabled, cursor.Err()
}

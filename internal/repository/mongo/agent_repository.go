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

type agentRepository struct {
	backend    *Backend
	collection *mongo.Collection
}

func newAgentRepository(b *Backend) *agentRepository {
	return &agentRepository{backend: b, collection: b.db.Collection(b.agentsCollectionName())}
}

func (r *agentRepository) LoadAll(ctx context.Context) ([]*domain.Agent, error) {
	return r.ListAll(ctx)
}

func (r *agentRepository) Get(ctx context.Context, path string) (*domain.Agent, error) {
	path = domain.NormalizePath(path)
	var a domain.Agent
	err := r.collection.FindOne(ctx, bson.M{"_id": path}).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, registryerr.NewNotFound(fmt.Sprintf("agent %q not found", path), err)
	}
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("fetching agent", err)
	}
	return &a, nil
}

func (r *agentRepository) ListAll(ctx context.Context) ([]*domain.Agent, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("listing agents", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.Agent
	for cursor.Next(ctx) {
		var a domain.Agent
		if err := cursor.Decode(&a); err != nil {
			return nil, registryerr.NewBackendUnavailable("decoding agent", err)
		}
		out = append(out, &a)
	}
	return out, cursor.Err()
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	agent.Path = domain.NormalizePath(agent.Path)
	now := time.Now().UTC()
	agent.RegisteredAt = now
	agent.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, agent)
	if mongo.IsDuplicateKeyError(err) {
		return registryerr.NewAlreadyExists(fmt.Sprintf("agent %q already registered", agent.Path), err)
	}
	if err != nil {
		return registryerr.NewBackendUnavailable("creating agent", err)
	}
	return nil
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	agent.Path = domain.NormalizePath(agent.Path)
	agent.UpdatedAt = time.Now().UTC()

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": agent.Path}, agent)
	if err != nil {
		return registryerr.NewBackendUnavailable("updating agent", err)
	}
	if result.MatchedCount == 0 {
		return registryerr.NewNotFound(fmt.Sprintf("agent %q not found", agent.Path), nil)
	}
	return nil
}

func (r *agentRepository) Delete(ctx context.Context, path string) (bool, error) {
	path = domain.NormalizePath(path)
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": path})
	if err != nil {
		return false, registryerr.NewBackendUnavailable("deleting agent", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *agentRepository) SetEnabled(ctx context.Context, path string, enabled bool) error {
	path = domain.NormalizePath(path)
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": path},
		bson.M{"$set": bson.M{"is_enabled": enabled, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return registryerr.NewBackendUnavailable("toggling agent", err)
	}
	if result.MatchedCount == 0 {
		return registryerr.NewNotFound(fmt.Sprintf("agent %q not found", path), nil)
	}
	return nil
}

func (r *agentRepository) UpdateRating(ctx context.Context, path, username string, rating int) (*domain.Agent, error) {
	a, err := r.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := a.ApplyRating(username, rating); err != nil {
		return nil, registryerr.NewValidation(err.Error(), err)
	}
	if err := r.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *agentRepository) GetState(ctx context.Context) (enabled, disabled []string, err error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1, "is_enabled": 1}))
	if err != nil {
		return nil, nil, registryerr.NewBackendUnavailable("fetching agent state", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			Path      string `bson:"_id"`
			IsEnabled bool   `bson:"is_enabled"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, nil, registryerr.NewBackendUnavailable("decoding agent state", err)
		}
		if row.IsEnabled {
			enabled = append(enabled, row.Path)
		} else {
			disabled = append(disabled, row.Path)
		}
	}
	return enabled, disabled, cursor.Err()
}

package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
)

type scanRepository struct {
	collection *mongo.Collection
}

func newScanRepository(b *Backend) *scanRepository {
	return &scanRepository{collection: b.db.Collection(b.scansCollectionName())}
}

// Append never updates a prior scan — scans are append-only per
// spec.md §3 Lifecycle ("Scan results are append-only per entity").
func (r *scanRepository) Append(ctx context.Context, result *domain.SecurityScanResult) error {
	_, err := r.collection.InsertOne(ctx, result)
	if err != nil {
		return registryerr.NewBackendUnavailable("appending scan result", err)
	}
	return nil
}

func (r *scanRepository) Current(ctx context.Context, path string) (*domain.SecurityScanResult, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	var res domain.SecurityScanResult
	err := r.collection.FindOne(ctx, bson.M{"path": path}, opts).Decode(&res)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("fetching current scan result", err)
	}
	return &res, nil
}

func (r *scanRepository) History(ctx context.Context, path string) ([]*domain.SecurityScanResult, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"path": path}, opts)
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("listing scan history", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.SecurityScanResult
	for cursor.Next(ctx) {
		var res domain.SecurityScanResult
		if err := cursor.Decode(&res); err != nil {
			return nil, registryerr.NewBackendUnavailable("decoding scan result", err)
		}
		out = append(out, &res)
	}
	return out, cursor.Err()
}

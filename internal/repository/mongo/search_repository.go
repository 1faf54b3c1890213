package mongo

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/repository"
)

type searchRepository struct {
	backend    *Backend
	collection *mongo.Collection
}

func newSearchRepository(b *Backend) *searchRepository {
	return &searchRepository{backend: b, collection: b.db.Collection(b.embeddingsCollectionName())}
}

func (r *searchRepository) Index(ctx context.Context, doc *domain.SearchDocument) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.Path}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return registryerr.NewBackendUnavailable("indexing search document", err)
	}
	return nil
}

func (r *searchRepository) Remove(ctx context.Context, path string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": path})
	if err != nil {
		return registryerr.NewBackendUnavailable("removing search document", err)
	}
	return nil
}

// VectorSearch runs the native $vectorSearch aggregation stage. Any
// error whose message indicates the stage is unrecognized (DocumentDB
// and pre-8.2 MongoDB-CE both reject it outright) is translated to
// ErrNativeVectorSearchUnavailable so the search module can fall back
// silently, per spec.md §4.1's "must detect the absent-vector-search
// error and fall back silently".
func (r *searchRepository) VectorSearch(ctx context.Context, embedding []float32, entityTypes []domain.EntityType, topK int) ([]repository.ScoredDocument, error) {
	if !r.backend.NativeVectorSearch {
		return nil, repository.ErrNativeVectorSearchUnavailable
	}

	stage := bson.M{
		"$vectorSearch": bson.M{
			"index":         r.backend.cfg.MongoVectorIndexName,
			"path":          "embedding",
			"queryVector":   embedding,
			"numCandidates": topK * r.backend.cfg.MongoVectorNumCandidatesMultiplier,
			"limit":         topK,
		},
	}
	pipeline := mongo.Pipeline{stage}
	if len(entityTypes) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.M{"entity_type": bson.M{"$in": entityTypes}}}})
	}
	pipeline = append(pipeline, bson.D{{Key: "$addFields", Value: bson.M{"score": bson.M{"$meta": "vectorSearchScore"}}}})

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		if isVectorSearchUnsupported(err) {
			return nil, repository.ErrNativeVectorSearchUnavailable
		}
		return nil, registryerr.NewBackendUnavailable("running vector search", err)
	}
	defer cursor.Close(ctx)

	var out []repository.ScoredDocument
	for cursor.Next(ctx) {
		var row struct {
			domain.SearchDocument `bson:",inline"`
			Score                 float64 `bson:"score"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, registryerr.NewBackendUnavailable("decoding vector search result", err)
		}
		doc := row.SearchDocument
		out = append(out, repository.ScoredDocument{Document: &doc, Score: row.Score})
	}
	return out, cursor.Err()
}

func isVectorSearchUnsupported(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unrecognized pipeline stage") ||
		strings.Contains(msg, "$vectorsearch") ||
		strings.Contains(msg, "unknown aggregation")
}

func (r *searchRepository) AllDocuments(ctx context.Context, entityTypes []domain.EntityType) ([]*domain.SearchDocument, error) {
	filter := bson.M{}
	if len(entityTypes) > 0 {
		filter["entity_type"] = bson.M{"$in": entityTypes}
	}
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("listing search documents", err)
	}
	defer cursor.Close(ctx)

	var out []*domain.SearchDocument
	for cursor.Next(ctx) {
		var doc domain.SearchDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, registryerr.NewBackendUnavailable("decoding search document", err)
		}
		out = append(out, &doc)
	}
	return out, cursor.Err()
}

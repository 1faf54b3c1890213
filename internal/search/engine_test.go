package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/repository"
)

type stubEmbeddings struct{ vector []float32 }

func (s *stubEmbeddings) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = s.vector
	}
	return out, nil
}
func (s *stubEmbeddings) Dimensions() int { return len(s.vector) }

// fallbackOnlyRepo always reports native vector search unavailable,
// exercising the client-side cosine fallback path.
type fallbackOnlyRepo struct {
	docs []*domain.SearchDocument
}

func (r *fallbackOnlyRepo) Index(ctx context.Context, doc *domain.SearchDocument) error { return nil }
func (r *fallbackOnlyRepo) Remove(ctx context.Context, path string) error               { return nil }
func (r *fallbackOnlyRepo) VectorSearch(ctx context.Context, embedding []float32, entityTypes []domain.EntityType, topK int) ([]repository.ScoredDocument, error) {
	return nil, repository.ErrNativeVectorSearchUnavailable
}
func (r *fallbackOnlyRepo) AllDocuments(ctx context.Context, entityTypes []domain.EntityType) ([]*domain.SearchDocument, error) {
	return r.docs, nil
}

func TestEngine_Search_FallbackPath(t *testing.T) {
	repo := &fallbackOnlyRepo{docs: []*domain.SearchDocument{
		{
			EntityType: domain.EntityTypeMCPServer,
			Path:       "/weather",
			Embedding:  []float32{1, 0},
			Metadata:   map[string]any{"name": "weather-mcp", "description": "forecast service"},
		},
		{
			EntityType: domain.EntityTypeA2AAgent,
			Path:       "/unrelated-agent",
			Embedding:  []float32{0, 1},
			Metadata:   map[string]any{"name": "unrelated", "description": "does something else"},
		},
	}}

	client := &stubEmbeddings{vector: []float32{1, 0}}
	cfg := &config.Config{MongoVectorSimilarity: config.SimilarityCosine}
	engine := NewEngine(repo, client, cfg, zap.NewNop())

	result, err := engine.Search(context.Background(), Query{Text: "weather forecast"})
	require.NoError(t, err)
	require.Len(t, result.Servers, 1)
	assert.Equal(t, "/weather", result.Servers[0].Path)
	assert.Greater(t, result.Servers[0].Score, 0.5)
	// Orthogonal vectors and no lexical overlap leave the unrelated agent
	// at the normalized cosine midpoint; it is ranked, not dropped.
	require.Len(t, result.Agents, 1)
	assert.InDelta(t, 0.5, result.Agents[0].Score, 1e-9)
}

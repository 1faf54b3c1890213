package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/repository"
)

type recordingSearchRepo struct {
	indexed map[string]*domain.SearchDocument
}

func newRecordingSearchRepo() *recordingSearchRepo {
	return &recordingSearchRepo{indexed: map[string]*domain.SearchDocument{}}
}

func (r *recordingSearchRepo) Index(ctx context.Context, doc *domain.SearchDocument) error {
	r.indexed[doc.Path] = doc
	return nil
}
func (r *recordingSearchRepo) Remove(ctx context.Context, path string) error {
	delete(r.indexed, path)
	return nil
}
func (r *recordingSearchRepo) VectorSearch(ctx context.Context, embedding []float32, entityTypes []domain.EntityType, topK int) ([]repository.ScoredDocument, error) {
	return nil, nil
}
func (r *recordingSearchRepo) AllDocuments(ctx context.Context, entityTypes []domain.EntityType) ([]*domain.SearchDocument, error) {
	return nil, nil
}

// TestIndexServer_ToolMetadataCarriesSchema guards against the
// hybrid search response dropping a tool's name/schema, per spec.md
// §4.2's "schema copied through from the original registration" and
// the §8 E2E scenario's tools[*].tool_name assertion.
func TestIndexServer_ToolMetadataCarriesSchema(t *testing.T) {
	repo := newRecordingSearchRepo()
	indexer := NewIndexer(repo, &stubEmbeddings{vector: []float32{1, 0}}, zap.NewNop())

	s := &domain.Server{
		Path:        "/currenttime",
		Name:        "currenttime",
		Description: "Time utilities",
		ToolList: []domain.ToolDefinition{
			{
				Name:        "get_time",
				Description: "return the current UTC time",
				InputSchema: domain.RawSchema{"type": "object"},
			},
		},
	}

	indexer.IndexServer(context.Background(), s)

	doc, ok := repo.indexed["/currenttime#get_time"]
	require.True(t, ok, "tool document must be indexed")
	assert.Equal(t, "get_time", doc.Metadata["tool_name"])
	assert.Equal(t, map[string]any{"type": "object"}, doc.Metadata["inputSchema"])
	assert.Equal(t, "/currenttime", doc.ParentPath)
}

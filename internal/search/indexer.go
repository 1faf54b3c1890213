package search

import (
	"context"

	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/embeddings"
	"github.com/mcp-registry/gateway/internal/repository"
)

// Indexer keeps the search index synchronous with entity writes.
// Its methods never return an error to the caller: index failures are
// logged, not propagated, so a slow or unavailable embedding provider
// never fails a registration (spec.md §4.2 Incremental updates).
type Indexer struct {
	repo       repository.SearchRepository
	embeddings embeddings.Client
	logger     *zap.Logger
}

func NewIndexer(repo repository.SearchRepository, client embeddings.Client, logger *zap.Logger) *Indexer {
	return &Indexer{repo: repo, embeddings: client, logger: logger}
}

// IndexServer embeds and (re-)indexes a server, plus one document per
// tool so searches can surface individual tools (spec.md §4.2 Result
// shape: "emit each of its matching tools as a separate entry").
func (ix *Indexer) IndexServer(ctx context.Context, s *domain.Server) {
	text := TextForServer(s)
	vec, err := ix.embedOne(ctx, text)
	if err != nil {
		ix.logger.Warn("failed to embed server for indexing", zap.String("path", s.Path), zap.Error(err))
		return
	}

	if err := ix.repo.Index(ctx, &domain.SearchDocument{
		EntityType: domain.EntityTypeMCPServer,
		Path:       s.Path,
		Text:       text,
		Embedding:  vec,
		Metadata:   ServerMetadata(s),
	}); err != nil {
		ix.logger.Warn("failed to index server", zap.String("path", s.Path), zap.Error(err))
	}

	for _, tool := range s.ToolList {
		toolText := tool.Name + " " + tool.Description
		toolVec, err := ix.embedOne(ctx, toolText)
		if err != nil {
			ix.logger.Warn("failed to embed tool for indexing", zap.String("path", s.Path), zap.String("tool", tool.Name), zap.Error(err))
			continue
		}
		toolPath := s.Path + "#" + tool.Name
		if err := ix.repo.Index(ctx, &domain.SearchDocument{
			EntityType: domain.EntityTypeMCPTool,
			Path:       toolPath,
			ParentPath: s.Path,
			Text:       toolText,
			Embedding:  toolVec,
			Metadata: map[string]any{
				"name":        tool.Name,
				"tool_name":   tool.Name,
				"description": tool.Description,
				"server_path": s.Path,
				"inputSchema": map[string]any(tool.InputSchema),
			},
		}); err != nil {
			ix.logger.Warn("failed to index tool", zap.String("path", toolPath), zap.Error(err))
		}
	}
}

// IndexAgent embeds and (re-)indexes an agent.
func (ix *Indexer) IndexAgent(ctx context.Context, a *domain.Agent) {
	text := TextForAgent(a)
	vec, err := ix.embedOne(ctx, text)
	if err != nil {
		ix.logger.Warn("failed to embed agent for indexing", zap.String("path", a.Path), zap.Error(err))
		return
	}

	if err := ix.repo.Index(ctx, &domain.SearchDocument{
		EntityType: domain.EntityTypeA2AAgent,
		Path:       a.Path,
		Text:       text,
		Embedding:  vec,
		Metadata:   AgentMetadata(a),
	}); err != nil {
		ix.logger.Warn("failed to index agent", zap.String("path", a.Path), zap.Error(err))
	}
}

// RemoveServer removes a server document and every tool document
// parented under it.
func (ix *Indexer) RemoveServer(ctx context.Context, s *domain.Server) {
	if err := ix.repo.Remove(ctx, s.Path); err != nil {
		ix.logger.Warn("failed to remove server from index", zap.String("path", s.Path), zap.Error(err))
	}
	for _, tool := range s.ToolList {
		if err := ix.repo.Remove(ctx, s.Path+"#"+tool.Name); err != nil {
			ix.logger.Warn("failed to remove tool from index", zap.String("path", s.Path), zap.String("tool", tool.Name), zap.Error(err))
		}
	}
}

// RemoveAgent removes an agent document.
func (ix *Indexer) RemoveAgent(ctx context.Context, path string) {
	if err := ix.repo.Remove(ctx, path); err != nil {
		ix.logger.Warn("failed to remove agent from index", zap.String("path", path), zap.Error(err))
	}
}

func (ix *Indexer) embedOne(ctx context.Context, text string) ([]float32, error) {
	vectors, err := ix.embeddings.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, nil
	}
	return vectors[0], nil
}

package file

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/repository"
)

// searchRepository is the file backend's "local FAISS-style index"
// (spec.md §4.1): a flat in-memory slice of documents, persisted as
// one JSON file, searched by brute-force cosine similarity. At the
// scale this backend targets (single-process, file-based deployments)
// a full index library buys nothing over a linear scan.
type searchRepository struct {
	store *Store
	mu    sync.Mutex
	docs  map[string]*domain.SearchDocument
}

func newSearchRepository(s *Store) (*searchRepository, error) {
	r := &searchRepository{store: s, docs: map[string]*domain.SearchDocument{}}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *searchRepository) indexPath() string {
	return filepath.Join(r.store.root, "search_index.json")
}

func (r *searchRepository) load() error {
	var docs []*domain.SearchDocument
	if err := readJSON(r.indexPath(), &docs); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return registryerr.NewBackendUnavailable("reading search index file", err)
	}
	for _, d := range docs {
		r.docs[d.Path] = d
	}
	return nil
}

// persist must be called with r.mu held.
func (r *searchRepository) persist() error {
	docs := make([]*domain.SearchDocument, 0, len(r.docs))
	for _, d := range r.docs {
		docs = append(docs, d)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	if err := writeJSONAtomic(r.indexPath(), docs); err != nil {
		return registryerr.NewBackendUnavailable("writing search index file", err)
	}
	return nil
}

func (r *searchRepository) Index(ctx context.Context, doc *domain.SearchDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.Path] = doc
	return r.persist()
}

func (r *searchRepository) Remove(ctx context.Context, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, path)
	return r.persist()
}

// VectorSearch always returns ErrNativeVectorSearchUnavailable: the
// file backend never has a native vector index, so the search module
// always takes the AllDocuments + client-side cosine path for it.
func (r *searchRepository) VectorSearch(ctx context.Context, embedding []float32, entityTypes []domain.EntityType, topK int) ([]repository.ScoredDocument, error) {
	return nil, repository.ErrNativeVectorSearchUnavailable
}

func (r *searchRepository) AllDocuments(ctx context.Context, entityTypes []domain.EntityType) ([]*domain.SearchDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	wanted := make(map[domain.EntityType]bool, len(entityTypes))
	for _, t := range entityTypes {
		wanted[t] = true
	}

	out := make([]*domain.SearchDocument, 0, len(r.docs))
	for _, d := range r.docs {
		if len(wanted) > 0 && !wanted[d.EntityType] {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

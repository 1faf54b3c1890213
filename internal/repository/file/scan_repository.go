package file

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
)

// scanRepository stores one JSON array of SecurityScanResult per
// entity path under security_scans/, per spec.md §6 File layout.
type scanRepository struct {
	store *Store
	mu    sync.Mutex
}

func newScanRepository(s *Store) *scanRepository {
	return &scanRepository{store: s}
}

func (r *scanRepository) filePath(path string) string {
	return filepath.Join(r.store.scansDir(), pathToFilename(path, false))
}

func (r *scanRepository) Append(ctx context.Context, result *domain.SecurityScanResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path := r.filePath(result.Path)
	var history []*domain.SecurityScanResult
	if err := readJSON(path, &history); err != nil && !os.IsNotExist(err) {
		return registryerr.NewBackendUnavailable("reading scan history file", err)
	}
	history = append(history, result)
	if err := writeJSONAtomic(path, history); err != nil {
		return registryerr.NewBackendUnavailable("writing scan history file", err)
	}
	return nil
}

func (r *scanRepository) History(ctx context.Context, path string) ([]*domain.SecurityScanResult, error) {
	var history []*domain.SecurityScanResult
	if err := readJSON(r.filePath(path), &history); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, registryerr.NewBackendUnavailable("reading scan history file", err)
	}
	sort.Slice(history, func(i, j int) bool { return history[i].Timestamp.After(history[j].Timestamp) })
	return history, nil
}

func (r *scanRepository) Current(ctx context.Context, path string) (*domain.SecurityScanResult, error) {
	history, err := r.History(ctx, path)
	if err != nil || len(history) == 0 {
		return nil, err
	}
	return history[0], nil
}

package file

import (
	"context"
	"fmt"
	"os"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
)

type scopeRepository struct {
	store *Store
}

func newScopeRepository(s *Store) *scopeRepository {
	return &scopeRepository{store: s}
}

func (r *scopeRepository) LoadAll(ctx context.Context) ([]*domain.Scope, error) {
	return r.ListAll(ctx)
}

func (r *scopeRepository) Get(ctx context.Context, name string) (*domain.Scope, error) {
	var s domain.Scope
	if err := readJSON(r.store.scopePath(name), &s); err != nil {
		if os.IsNotExist(err) {
			return nil, registryerr.NewNotFound(fmt.Sprintf("scope %q not found", name), err)
		}
		return nil, registryerr.NewBackendUnavailable("reading scope file", err)
	}
	return &s, nil
}

func (r *scopeRepository) ListAll(ctx context.Context) ([]*domain.Scope, error) {
	files, err := listJSONFiles(r.store.scopesDir(), "")
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("listing scope files", err)
	}
	var out []*domain.Scope
	for _, f := range files {
		var s domain.Scope
		if err := readJSON(f, &s); err != nil {
			return nil, registryerr.NewBackendUnavailable("reading scope file", err)
		}
		out = append(out, &s)
	}
	return out, nil
}

func (r *scopeRepository) Create(ctx context.Context, scope *domain.Scope) error {
	path := r.store.scopePath(scope.Name)
	if _, err := os.Stat(path); err == nil {
		return registryerr.NewAlreadyExists(fmt.Sprintf("scope %q already exists", scope.Name), nil)
	}
	if err := writeJSONAtomic(path, scope); err != nil {
		return registryerr.NewBackendUnavailable("writing scope file", err)
	}
	return nil
}

func (r *scopeRepository) Update(ctx context.Context, scope *domain.Scope) error {
	path := r.store.scopePath(scope.Name)
	if _, err := os.Stat(path); err != nil {
		return registryerr.NewNotFound(fmt.Sprintf("scope %q not found", scope.Name), err)
	}
	if err := writeJSONAtomic(path, scope); err != nil {
		return registryerr.NewBackendUnavailable("writing scope file", err)
	}
	return nil
}

func (r *scopeRepository) Delete(ctx context.Context, name string) (bool, error) {
	if err := os.Remove(r.store.scopePath(name)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, registryerr.NewBackendUnavailable("deleting scope file", err)
	}
	return true, nil
}

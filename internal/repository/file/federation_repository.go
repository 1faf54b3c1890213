package file

import (
	"context"
	"fmt"
	"os"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
)

type federationRepository struct {
	store *Store
}

func newFederationRepository(s *Store) *federationRepository {
	return &federationRepository{store: s}
}

func (r *federationRepository) LoadAll(ctx context.Context) ([]*domain.FederationConfig, error) {
	return r.ListAll(ctx)
}

func (r *federationRepository) Get(ctx context.Context, name string) (*domain.FederationConfig, error) {
	var f domain.FederationConfig
	if err := readJSON(r.store.federationPath(name), &f); err != nil {
		if os.IsNotExist(err) {
			return nil, registryerr.NewNotFound(fmt.Sprintf("federation config %q not found", name), err)
		}
		return nil, registryerr.NewBackendUnavailable("reading federation config file", err)
	}
	return &f, nil
}

func (r *federationRepository) ListAll(ctx context.Context) ([]*domain.FederationConfig, error) {
	files, err := listJSONFiles(r.store.federationDir(), "")
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("listing federation config files", err)
	}
	var out []*domain.FederationConfig
	for _, f := range files {
		var cfg domain.FederationConfig
		if err := readJSON(f, &cfg); err != nil {
			return nil, registryerr.NewBackendUnavailable("reading federation config file", err)
		}
		out = append(out, &cfg)
	}
	return out, nil
}

func (r *federationRepository) Create(ctx context.Context, cfg *domain.FederationConfig) error {
	path := r.store.federationPath(cfg.Name)
	if _, err := os.Stat(path); err == nil {
		return registryerr.NewAlreadyExists(fmt.Sprintf("federation config %q already exists", cfg.Name), nil)
	}
	if err := writeJSONAtomic(path, cfg); err != nil {
		return registryerr.NewBackendUnavailable("writing federation config file", err)
	}
	return nil
}

func (r *federationRepository) Update(ctx context.Context, cfg *domain.FederationConfig) error {
	path := r.store.federationPath(cfg.Name)
	if _, err := os.Stat(path); err != nil {
		return registryerr.NewNotFound(fmt.Sprintf("federation config %q not found", cfg.Name), err)
	}
	if err := writeJSONAtomic(path, cfg); err != nil {
		return registryerr.NewBackendUnavailable("writing federation config file", err)
	}
	return nil
}

func (r *federationRepository) Delete(ctx context.Context, name string) (bool, error) {
	if err := os.Remove(r.store.federationPath(name)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, registryerr.NewBackendUnavailable("deleting federation config file", err)
	}
	return true, nil
}

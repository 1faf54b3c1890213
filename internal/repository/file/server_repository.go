package file

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
)

type serverRepository struct {
	store *Store
}

func newServerRepository(s *Store) *serverRepository {
	return &serverRepository{store: s}
}

func (r *serverRepository) LoadAll(ctx context.Context) ([]*domain.Server, error) {
	return r.ListAll(ctx)
}

func (r *serverRepository) Get(ctx context.Context, path string) (*domain.Server, error) {
	path = domain.NormalizePath(path)
	var s domain.Server
	if err := readJSON(r.store.serverPath(path), &s); err != nil {
		if os.IsNotExist(err) {
			return nil, registryerr.NewNotFound(fmt.Sprintf("server %q not found", path), err)
		}
		return nil, registryerr.NewBackendUnavailable("reading server file", err)
	}
	return &s, nil
}

func (r *serverRepository) ListAll(ctx context.Context) ([]*domain.Server, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	files, err := listJSONFiles(r.store.serversDir(), "")
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("listing server files", err)
	}

	var out []*domain.Server
	for _, f := range files {
		var s domain.Server
		if err := readJSON(f, &s); err != nil {
			return nil, registryerr.NewBackendUnavailable("reading server file", err)
		}
		out = append(out, &s)
	}
	return out, nil
}

func (r *serverRepository) Create(ctx context.Context, server *domain.Server) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	server.Path = domain.NormalizePath(server.Path)
	path := r.store.serverPath(server.Path)
	if _, err := os.Stat(path); err == nil {
		return registryerr.NewAlreadyExists(fmt.Sprintf("server %q already registered", server.Path), nil)
	}

	now := time.Now().UTC()
	server.RegisteredAt = now
	server.UpdatedAt = now

	if err := writeJSONAtomic(path, server); err != nil {
		return registryerr.NewBackendUnavailable("writing server file", err)
	}
	return r.regenerateState()
}

func (r *serverRepository) Update(ctx context.Context, server *domain.Server) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	server.Path = domain.NormalizePath(server.Path)
	path := r.store.serverPath(server.Path)
	if _, err := os.Stat(path); err != nil {
		return registryerr.NewNotFound(fmt.Sprintf("server %q not found", server.Path), err)
	}

	server.UpdatedAt = time.Now().UTC()
	if err := writeJSONAtomic(path, server); err != nil {
		return registryerr.NewBackendUnavailable("writing server file", err)
	}
	return r.regenerateState()
}

func (r *serverRepository) Delete(ctx context.Context, path string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	path = domain.NormalizePath(path)
	filePath := r.store.serverPath(path)
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, registryerr.NewBackendUnavailable("deleting server file", err)
	}
	return true, r.regenerateState()
}

func (r *serverRepository) SetEnabled(ctx context.Context, path string, enabled bool) error {
	s, err := r.Get(ctx, path)
	if err != nil {
		return err
	}
	s.IsEnabled = enabled
	return r.Update(ctx, s)
}

func (r *serverRepository) UpdateRating(ctx context.Context, path, username string, rating int) (*domain.Server, error) {
	s, err := r.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := s.ApplyRating(username, rating); err != nil {
		return nil, registryerr.NewValidation(err.Error(), err)
	}
	if err := r.Update(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// GetState buckets every server by its own is_enabled field rather
// than trusting server_state.json, which is regenerated as a
// best-effort side artifact for the reverse proxy (spec.md §4.1:
// "readers tolerate missing state by defaulting to disabled").
func (r *serverRepository) GetState(ctx context.Context) (enabled, disabled []string, err error) {
	servers, err := r.ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, s := range servers {
		if s.IsEnabled {
			enabled = append(enabled, s.Path)
		} else {
			disabled = append(disabled, s.Path)
		}
	}
	return enabled, disabled, nil
}

func (r *serverRepository) regenerateState() error {
	enabled, disabled, err := r.GetState(context.Background())
	if err != nil {
		return err
	}
	return writeJSONAtomic(r.store.serverStatePath(), stateFile{Enabled: enabled, Disabled: disabled})
}

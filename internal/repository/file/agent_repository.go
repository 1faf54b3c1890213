package file

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
)

type agentRepository struct {
	store *Store
}

func newAgentRepository(s *Store) *agentRepository {
	return &agentRepository{store: s}
}

func (r *agentRepository) LoadAll(ctx context.Context) ([]*domain.Agent, error) {
	return r.ListAll(ctx)
}

func (r *agentRepository) Get(ctx context.Context, path string) (*domain.Agent, error) {
	path = domain.NormalizePath(path)
	var a domain.Agent
	if err := readJSON(r.store.agentPath(path), &a); err != nil {
		if os.IsNotExist(err) {
			return nil, registryerr.NewNotFound(fmt.Sprintf("agent %q not found", path), err)
		}
		return nil, registryerr.NewBackendUnavailable("reading agent file", err)
	}
	return &a, nil
}

func (r *agentRepository) ListAll(ctx context.Context) ([]*domain.Agent, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	files, err := listJSONFiles(r.store.agentsDir(), "_agent.json")
	if err != nil {
		return nil, registryerr.NewBackendUnavailable("listing agent files", err)
	}

	var out []*domain.Agent
	for _, f := range files {
		var a domain.Agent
		if err := readJSON(f, &a); err != nil {
			return nil, registryerr.NewBackendUnavailable("reading agent file", err)
		}
		out = append(out, &a)
	}
	return out, nil
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	agent.Path = domain.NormalizePath(agent.Path)
	path := r.store.agentPath(agent.Path)
	if _, err := os.Stat(path); err == nil {
		return registryerr.NewAlreadyExists(fmt.Sprintf("agent %q already registered", agent.Path), nil)
	}

	now := time.Now().UTC()
	agent.RegisteredAt = now
	agent.UpdatedAt = now

	if err := writeJSONAtomic(path, agent); err != nil {
		return registryerr.NewBackendUnavailable("writing agent file", err)
	}
	return r.regenerateState()
}

func (r *agentRepository) Update(ctx context.Context, agent *domain.Agent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	agent.Path = domain.NormalizePath(agent.Path)
	path := r.store.agentPath(agent.Path)
	if _, err := os.Stat(path); err != nil {
		return registryerr.NewNotFound(fmt.Sprintf("agent %q not found", agent.Path), err)
	}

	agent.UpdatedAt = time.Now().UTC()
	if err := writeJSONAtomic(path, agent); err != nil {
		return registryerr.NewBackendUnavailable("writing agent file", err)
	}
	return r.regenerateState()
}

func (r *agentRepository) Delete(ctx context.Context, path string) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	path = domain.NormalizePath(path)
	filePath := r.store.agentPath(path)
	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, registryerr.NewBackendUnavailable("deleting agent file", err)
	}
	return true, r.regenerateState()
}

func (r *agentRepository) SetEnabled(ctx context.Context, path string, enabled bool) error {
	a, err := r.Get(ctx, path)
	if err != nil {
		return err
	}
	a.IsEnabled = enabled
	return r.Update(ctx, a)
}

func (r *agentRepository) UpdateRating(ctx context.Context, path, username string, rating int) (*domain.Agent, error) {
	a, err := r.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if err := a.ApplyRating(username, rating); err != nil {
		return nil, registryerr.NewValidation(err.Error(), err)
	}
	if err := r.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *agentRepository) GetState(ctx context.Context) (enabled, disabled []string, err error) {
	agents, err := r.ListAll(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, a := range agents {
		if a.IsEnabled {
			enabled = append(enabled, a.Path)
		} else {
			disabled = append(disabled, a.Path)
		}
	}
	return enabled, disabled, nil
}

func (r *agentRepository) regenerateState() error {
	enabled, disabled, err := r.GetState(context.Background())
	if err != nil {
		return err
	}
	return writeJSONAtomic(r.store.agentStatePath(), stateFile{Enabled: enabled, Disabled: disabled})
}

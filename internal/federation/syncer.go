package federation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/repository"
	"github.com/mcp-registry/gateway/internal/search"
	"github.com/mcp-registry/gateway/internal/tasks"
)

// Syncer runs the federation sync of spec.md §4.4 for every enabled
// upstream, one per-upstream gobreaker.CircuitBreaker so a wedged
// upstream trips open instead of starving the others' sync attempts.
type Syncer struct {
	configs repository.FederationConfigRepository
	servers repository.ServerRepository
	agents  repository.AgentRepository
	indexer *search.Indexer

	serverProtocols map[string]ServerProtocol
	agentProtocols  map[string]AgentProtocol

	logger *zap.Logger

	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
}

func NewSyncer(
	configs repository.FederationConfigRepository,
	servers repository.ServerRepository,
	agents repository.AgentRepository,
	indexer *search.Indexer,
	serverProtocols map[string]ServerProtocol,
	agentProtocols map[string]AgentProtocol,
	logger *zap.Logger,
) *Syncer {
	return &Syncer{
		configs:         configs,
		servers:         servers,
		agents:          agents,
		indexer:         indexer,
		serverProtocols: serverProtocols,
		agentProtocols:  agentProtocols,
		logger:          logger,
		breakers:        make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (s *Syncer) breakerFor(name string) *gobreaker.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.breakers[name]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "federation-" + name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	s.breakers[name] = b
	return b
}

// SyncAll syncs every enabled upstream, isolating failures between
// upstreams (spec.md §4.4 "isolated ... from the overall job").
func (s *Syncer) SyncAll(ctx context.Context) {
	runID := uuid.NewString()
	cfgs, err := s.configs.ListAll(ctx)
	if err != nil {
		s.logger.Warn("federation: failed to list upstream configs", zap.String("run_id", runID), zap.Error(err))
		return
	}
	s.logger.Info("federation: starting full sync sweep", zap.String("run_id", runID), zap.Int("upstreams", len(cfgs)))
	for _, cfg := range cfgs {
		if !cfg.Enabled {
			continue
		}
		s.syncOne(ctx, cfg)
	}
}

// SyncStartup runs only the upstreams flagged sync_on_startup (spec.md
// §4.4 startup step 5), distinct from SyncAll's periodic sweep of
// every enabled upstream.
func (s *Syncer) SyncStartup(ctx context.Context) {
	cfgs, err := s.configs.ListAll(ctx)
	if err != nil {
		s.logger.Warn("federation: failed to list upstream configs", zap.Error(err))
		return
	}
	for _, cfg := range cfgs {
		if !cfg.Enabled || !cfg.SyncOnStartup {
			continue
		}
		s.syncOne(ctx, cfg)
	}
}

// SyncOne runs a single upstream's sync by name, for the on-demand
// `POST /api/federation/sync?source=` admin endpoint. Unlike SyncAll
// and SyncStartup, a lookup failure or fetch failure is returned to
// the caller rather than only logged, since this is a user-triggered
// request expecting a response.
func (s *Syncer) SyncOne(ctx context.Context, name string) error {
	cfg, err := s.configs.Get(ctx, name)
	if err != nil {
		return err
	}
	return s.fetchAndUpsert(ctx, cfg)
}

func (s *Syncer) syncOne(ctx context.Context, cfg *domain.FederationConfig) {
	breaker := s.breakerFor(cfg.Name)

	_, err := breaker.Execute(func() (any, error) {
		return nil, s.fetchAndUpsert(ctx, cfg)
	})
	if err != nil {
		s.logger.Warn("federation: upstream sync failed", zap.String("upstream", cfg.Name), zap.Error(err))
	}
}

func (s *Syncer) fetchAndUpsert(ctx context.Context, cfg *domain.FederationConfig) error {
	var fetchErr error

	if proto, ok := s.serverProtocols[cfg.Protocol]; ok {
		items, err := withRetry(ctx, func() ([]*domain.Server, error) { return proto.FetchServers(ctx, cfg) })
		if err != nil {
			fetchErr = err
		} else {
			for _, item := range items {
				s.upsertServer(ctx, item)
			}
		}
	}

	if proto, ok := s.agentProtocols[cfg.Protocol]; ok {
		items, err := withRetry(ctx, func() ([]*domain.Agent, error) { return proto.FetchAgents(ctx, cfg) })
		if err != nil {
			fetchErr = err
		} else {
			for _, item := range items {
				s.upsertAgent(ctx, item)
			}
		}
	}

	if fetchErr == nil && s.serverProtocols[cfg.Protocol] == nil && s.agentProtocols[cfg.Protocol] == nil {
		return fmt.Errorf("unknown federation protocol %q", cfg.Protocol)
	}
	return fetchErr
}

// withRetry wraps a single upstream fetch with bounded exponential
// backoff, for transient network failures distinct from the
// circuit-breaker's longer-horizon trip decision.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var result T
	boff := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	err := backoff.Retry(func() error {
		var err error
		result, err = fn()
		return err
	}, boff)
	return result, err
}

// upsertServer creates-or-updates a federated server, enables it, and
// re-indexes it (spec.md §4.4 Federation sync).
func (s *Syncer) upsertServer(ctx context.Context, item *domain.Server) {
	existing, err := s.servers.Get(ctx, item.Path)
	now := time.Now().UTC()
	item.UpdatedAt = now
	if err == nil && existing != nil {
		item.RegisteredAt = existing.RegisteredAt
		item.RatingDetails = existing.RatingDetails
		item.NumStars = existing.NumStars
		if upErr := s.servers.Update(ctx, item); upErr != nil {
			s.logger.Warn("federation: failed to update server", zap.String("path", item.Path), zap.Error(upErr))
			return
		}
	} else {
		item.RegisteredAt = now
		if crErr := s.servers.Create(ctx, item); crErr != nil {
			s.logger.Warn("federation: failed to create server", zap.String("path", item.Path), zap.Error(crErr))
			return
		}
	}
	if err := s.servers.SetEnabled(ctx, item.Path, true); err != nil {
		s.logger.Warn("federation: failed to enable server", zap.String("path", item.Path), zap.Error(err))
	}
	s.indexer.IndexServer(ctx, item)
}

func (s *Syncer) upsertAgent(ctx context.Context, item *domain.Agent) {
	existing, err := s.agents.Get(ctx, item.Path)
	now := time.Now().UTC()
	item.UpdatedAt = now
	if err == nil && existing != nil {
		item.RegisteredAt = existing.RegisteredAt
		item.RatingDetails = existing.RatingDetails
		item.NumStars = existing.NumStars
		if upErr := s.agents.Update(ctx, item); upErr != nil {
			s.logger.Warn("federation: failed to update agent", zap.String("path", item.Path), zap.Error(upErr))
			return
		}
	} else {
		item.RegisteredAt = now
		if crErr := s.agents.Create(ctx, item); crErr != nil {
			s.logger.Warn("federation: failed to create agent", zap.String("path", item.Path), zap.Error(crErr))
			return
		}
	}
	if err := s.agents.SetEnabled(ctx, item.Path, true); err != nil {
		s.logger.Warn("federation: failed to enable agent", zap.String("path", item.Path), zap.Error(err))
	}
	s.indexer.IndexAgent(ctx, item)
}

// Start registers the periodic sync as a tracked background task,
// keyed by the configured interval (shared across upstreams — each
// upstream's own SyncIntervalSec is stored but not read by the
// scheduler; spec.md §4.4 treats the scheduled sweep as a single
// tracked task).
func (s *Syncer) Start(ctx context.Context, mgr *tasks.Manager, interval time.Duration) error {
	return mgr.CreateTask(ctx, "federation-sync", func(taskCtx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-taskCtx.Done():
				return nil
			case <-ticker.C:
				s.SyncAll(taskCtx)
			}
		}
	})
}

// Package orchestrator drives the startup sequence and shutdown
// choreography of spec.md §4.4: load scopes (with retry), load
// entities, warm the search index, start the health monitor, run any
// startup-flagged federation syncs, and emit the initial proxy config;
// on shutdown, drain the task manager and close the repository
// backend.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
	"github.com/mcp-registry/gateway/internal/federation"
	"github.com/mcp-registry/gateway/internal/health"
	"github.com/mcp-registry/gateway/internal/proxyconfig"
	"github.com/mcp-registry/gateway/internal/repository"
	"github.com/mcp-registry/gateway/internal/scope"
	"github.com/mcp-registry/gateway/internal/search"
	"github.com/mcp-registry/gateway/internal/tasks"
)

// Orchestrator owns the lifecycle of every background collaborator:
// it does not itself serve requests (that is internal/httpapi's job).
type Orchestrator struct {
	repos   *repository.Set
	indexer *search.Indexer
	monitor *health.Monitor
	syncer  *federation.Syncer
	proxy   *proxyconfig.Emitter
	tasks   *tasks.Manager
	cfg     *config.Config
	logger  *zap.Logger
}

func New(
	repos *repository.Set,
	indexer *search.Indexer,
	monitor *health.Monitor,
	syncer *federation.Syncer,
	proxy *proxyconfig.Emitter,
	mgr *tasks.Manager,
	cfg *config.Config,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		repos:   repos,
		indexer: indexer,
		monitor: monitor,
		syncer:  syncer,
		proxy:   proxy,
		tasks:   mgr,
		cfg:     cfg,
		logger:  logger,
	}
}

// Startup runs the ordered sequence of spec.md §4.4. Each numbered
// step below corresponds to one line of that sequence.
func (o *Orchestrator) Startup(ctx context.Context) error {
	// 1. Load scopes, retrying while the backend may not yet be ready.
	if err := o.loadScopesWithRetry(ctx); err != nil {
		return fmt.Errorf("orchestrator startup: loading scopes: %w", err)
	}
	if err := scope.Seed(ctx, o.cfg.ScopeSeedPath, o.repos.Scopes, o.logger); err != nil {
		o.logger.Warn("orchestrator startup: scope seeding failed", zap.Error(err))
	}

	// 2. Load servers and agents.
	servers, err := o.repos.Servers.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator startup: loading servers: %w", err)
	}
	agents, err := o.repos.Agents.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator startup: loading agents: %w", err)
	}

	// 3. Warm the search index. Per-entity failures are logged inside
	// Indexer and never fatal.
	for _, s := range servers {
		o.indexer.IndexServer(ctx, s)
	}
	for _, a := range agents {
		o.indexer.IndexAgent(ctx, a)
	}

	// 4. Initialize the health monitor.
	if err := o.monitor.Start(ctx, o.tasks); err != nil {
		return fmt.Errorf("orchestrator startup: starting health monitor: %w", err)
	}

	// 5. Load federation config and run any startup-flagged syncs.
	if err := federation.Seed(ctx, o.cfg.FederationSeedPath, o.repos.Federation, o.logger); err != nil {
		o.logger.Warn("orchestrator startup: federation seeding failed", zap.Error(err))
	}
	o.syncer.SyncStartup(ctx)
	if err := o.syncer.Start(ctx, o.tasks, time.Duration(o.cfg.FederationSyncIntervalSeconds)*time.Second); err != nil {
		return fmt.Errorf("orchestrator startup: starting federation sync: %w", err)
	}

	// 6. Emit the reverse-proxy config from currently enabled servers.
	allServers, err := o.repos.Servers.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("orchestrator startup: listing servers for proxy config: %w", err)
	}
	if err := o.proxy.Emit(ctx, allServers); err != nil {
		o.logger.Warn("orchestrator startup: proxy config emission failed", zap.Error(err))
	}

	return nil
}

// loadScopesWithRetry retries ScopeRepository.ListAll with exponential
// backoff (initial delay 2s, base 2, up to 5 attempts — spec.md §4.4
// startup step 1) so a backend that isn't ready yet doesn't fail
// startup outright.
func (o *Orchestrator) loadScopesWithRetry(ctx context.Context) error {
	boff := backoff.NewExponentialBackOff()
	boff.InitialInterval = 2 * time.Second
	boff.Multiplier = 2
	bounded := backoff.WithContext(backoff.WithMaxRetries(boff, 4), ctx)

	return backoff.Retry(func() error {
		_, err := o.repos.Scopes.ListAll(ctx)
		return err
	}, bounded)
}

// Shutdown awaits task-manager shutdown with a bounded timeout, then
// closes the repository backend (spec.md §4.4 Shutdown).
func (o *Orchestrator) Shutdown(timeout time.Duration) error {
	if ok := o.tasks.Shutdown(timeout); !ok {
		o.logger.Warn("orchestrator shutdown: task manager deadline exceeded")
	}
	closeCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if o.repos.Close != nil {
		return o.repos.Close(closeCtx)
	}
	return nil
}

// Package health implements the periodic and on-demand endpoint
// probing of spec.md §4.4's health monitor: a cron-scheduled sweep of
// every enabled Server/Agent plus a fast-path on-demand check, both
// backed by an in-memory status cache. A failed probe never disables
// the entity; it only updates status.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/repository"
	"github.com/mcp-registry/gateway/internal/tasks"
)

// cachedStatus is the in-memory record Monitor keeps for each path,
// independent of whatever value is currently persisted in the
// repository (spec.md §4.4: "state is cached in memory").
type cachedStatus struct {
	status    string
	checkedAt time.Time
}

type Monitor struct {
	servers repository.ServerRepository
	agents  repository.AgentRepository
	prober  Prober

	interval    time.Duration
	fastTimeout time.Duration
	logger      *zap.Logger

	mu    sync.RWMutex
	cache map[string]cachedStatus

	cron *cron.Cron
}

func NewMonitor(
	servers repository.ServerRepository,
	agents repository.AgentRepository,
	prober Prober,
	intervalSeconds, fastTimeoutSeconds int,
	logger *zap.Logger,
) *Monitor {
	return &Monitor{
		servers:     servers,
		agents:      agents,
		prober:      prober,
		interval:    time.Duration(intervalSeconds) * time.Second,
		fastTimeout: time.Duration(fastTimeoutSeconds) * time.Second,
		logger:      logger,
		cache:       make(map[string]cachedStatus),
	}
}

// Start registers the periodic sweep as a tracked background task
// (spec.md §4.4). The cron scheduler itself runs for the lifetime of
// the task; cancellation stops it and waits for the in-flight sweep,
// if any, to return.
func (m *Monitor) Start(ctx context.Context, mgr *tasks.Manager) error {
	c := cron.New()
	spec := fmt.Sprintf("@every %s", m.interval)
	if _, err := c.AddFunc(spec, func() { m.sweep(ctx) }); err != nil {
		return fmt.Errorf("health monitor: schedule sweep: %w", err)
	}
	m.cron = c

	return mgr.CreateTask(ctx, "health-monitor", func(taskCtx context.Context) error {
		c.Start()
		<-taskCtx.Done()
		stopCtx := c.Stop()
		<-stopCtx.Done()
		return nil
	})
}

// sweep probes every enabled server and agent and updates both the
// cache and the persisted health_status/last_checked fields. Per-entity
// failures are isolated and logged; they never abort the sweep.
func (m *Monitor) sweep(ctx context.Context) {
	servers, err := m.servers.ListAll(ctx)
	if err != nil {
		m.logger.Warn("health monitor: failed to list servers", zap.Error(err))
	}
	for _, s := range servers {
		if !s.IsEnabled {
			continue
		}
		m.probeServer(ctx, s, m.interval)
	}

	agents, err := m.agents.ListAll(ctx)
	if err != nil {
		m.logger.Warn("health monitor: failed to list agents", zap.Error(err))
	}
	for _, a := range agents {
		if !a.IsEnabled {
			continue
		}
		m.probeAgent(ctx, a, m.interval)
	}
}

func (m *Monitor) probeServer(ctx context.Context, s *domain.Server, timeout time.Duration) string {
	status := m.prober.Probe(ctx, s.ProxyPassURL, timeout)
	now := time.Now().UTC()
	m.store(s.Path, status, now)

	s.HealthStatus = status
	s.LastChecked = now
	if err := m.servers.Update(ctx, s); err != nil {
		m.logger.Warn("health monitor: failed to persist server status", zap.String("path", s.Path), zap.Error(err))
	}
	return status
}

func (m *Monitor) probeAgent(ctx context.Context, a *domain.Agent, timeout time.Duration) string {
	status := m.prober.Probe(ctx, a.URL, timeout)
	now := time.Now().UTC()
	m.store(a.Path, status, now)

	a.HealthStatus = status
	a.LastChecked = now
	if err := m.agents.Update(ctx, a); err != nil {
		m.logger.Warn("health monitor: failed to persist agent status", zap.String("path", a.Path), zap.Error(err))
	}
	return status
}

// CheckServer is the fast on-demand path (spec.md §4.4, `GET
// /api/health/{path}`): probes with the short fast timeout regardless
// of the entity's enabled state and returns the fresh status.
func (m *Monitor) CheckServer(ctx context.Context, s *domain.Server) string {
	return m.probeServer(ctx, s, m.fastTimeout)
}

func (m *Monitor) CheckAgent(ctx context.Context, a *domain.Agent) string {
	return m.probeAgent(ctx, a, m.fastTimeout)
}

// Status returns the cached status for path and whether anything has
// ever been recorded for it.
func (m *Monitor) Status(path string) (string, time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cache[path]
	if !ok {
		return domain.HealthUnknown, time.Time{}, false
	}
	return c.status, c.checkedAt, true
}

// Snapshot returns the full cache as path -> status, for the
// `/api/health/stream` push endpoint.
func (m *Monitor) Snapshot() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string, len(m.cache))
	for path, c := range m.cache {
		out[path] = c.status
	}
	return out
}

func (m *Monitor) store(path, status string, at time.Time) {
	m.mu.Lock()
	m.cache[path] = cachedStatus{status: status, checkedAt: at}
	m.mu.Unlock()
}

// Package tasks provides a small tracked-goroutine manager used for the
// registry's background work (health probes, federation sync, index
// warmup). It generalizes the WaitGroup-plus-context-cancellation
// shutdown shape used for the server's foreground listeners into a
// reusable type that also supports targeted, by-name cancellation.
package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Func is the unit of work a task runs. It must return promptly once
// ctx is cancelled.
type Func func(ctx context.Context) error

type trackedTask struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns a set of named, cancellable background tasks (spec.md
// §4.4 Task manager).
type Manager struct {
	mu     sync.Mutex
	tasks  map[string]*trackedTask
	wg     sync.WaitGroup
	closed bool
	logger *zap.Logger
}

func NewManager(logger *zap.Logger) *Manager {
	return &Manager{tasks: make(map[string]*trackedTask), logger: logger}
}

// CreateTask spawns fn under a child of ctx tagged with name and tracks
// it until completion. It is a no-op returning an error if the manager
// has already been shut down (P8: no task created after shutdown is
// started).
func (m *Manager) CreateTask(ctx context.Context, name string, fn Func) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("task manager: shutting down, refused task %q", name)
	}
	taskCtx, cancel := context.WithCancel(ctx)
	t := &trackedTask{cancel: cancel, done: make(chan struct{})}
	m.tasks[name] = t
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		defer close(t.done)
		defer func() {
			m.mu.Lock()
			if m.tasks[name] == t {
				delete(m.tasks, name)
			}
			m.mu.Unlock()
		}()
		if err := fn(taskCtx); err != nil && taskCtx.Err() == nil {
			m.logger.Error("background task failed", zap.String("task", name), zap.Error(err))
		}
	}()
	return nil
}

// CancelByName cancels the task registered under name, if any is
// currently tracked. It does not wait for the task to observe
// cancellation.
func (m *Manager) CancelByName(name string) {
	m.mu.Lock()
	t, ok := m.tasks[name]
	m.mu.Unlock()
	if ok {
		t.cancel()
	}
}

// Names returns the names of all currently tracked tasks, for
// observability.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.tasks))
	for name := range m.tasks {
		names = append(names, name)
	}
	return names
}

// Count returns the number of currently tracked tasks.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Shutdown marks the manager closed (rejecting new submissions),
// cancels every tracked task, and waits up to timeout for them to
// finish. It returns false if the deadline was exceeded before all
// tasks observed cancellation.
func (m *Manager) Shutdown(timeout time.Duration) bool {
	m.mu.Lock()
	m.closed = true
	for name, t := range m.tasks {
		t.cancel()
		m.logger.Debug("cancelling background task for shutdown", zap.String("task", name))
	}
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		m.logger.Warn("task manager shutdown deadline exceeded", zap.Int("remaining", m.Count()))
		return false
	}
}

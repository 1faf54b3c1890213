// Package proxyconfig serializes the enabled-server set to the
// reverse-proxy's config file and signals it to reload (spec.md §4.4
// Proxy config emission). The proxy's own format and runtime are
// external collaborators (spec.md §1 Out of scope); this package only
// writes a fixed {path: upstream_url} JSON document and runs an
// operator-configured reload command.
package proxyconfig

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
	"github.com/mcp-registry/gateway/internal/domain"
)

const reloadTimeout = 10 * time.Second

// Emitter writes the enabled-server set to Config.ProxyConfigPath and
// signals Config.ProxyReloadCommand, if set, to reload.
type Emitter struct {
	cfg    *config.Config
	logger *zap.Logger
}

func NewEmitter(cfg *config.Config, logger *zap.Logger) *Emitter {
	return &Emitter{cfg: cfg, logger: logger}
}

// Emit writes the {path: upstream_url} document for every enabled
// server and, on a successful write, runs the reload command.
// Failures are returned (a failed reload is also logged), but per spec.md §4.4 never undo
// the state change that triggered the emission — callers must not
// roll back on error.
func (e *Emitter) Emit(ctx context.Context, servers []*domain.Server) error {
	upstreams := make(map[string]string)
	for _, s := range servers {
		if s.IsEnabled {
			upstreams[s.Path] = s.ProxyPassURL
		}
	}

	content, err := json.MarshalIndent(upstreams, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling proxy config: %w", err)
	}

	if dir := filepath.Dir(e.cfg.ProxyConfigPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating proxy config directory: %w", err)
		}
	}

	tmp := e.cfg.ProxyConfigPath + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("writing proxy config: %w", err)
	}
	if err := os.Rename(tmp, e.cfg.ProxyConfigPath); err != nil {
		return fmt.Errorf("renaming proxy config into place: %w", err)
	}

	e.logger.Info("wrote proxy config", zap.String("path", e.cfg.ProxyConfigPath), zap.Int("enabled_servers", len(upstreams)))

	if e.cfg.ProxyReloadCommand == "" {
		return nil
	}
	return e.reload(ctx)
}

func (e *Emitter) reload(ctx context.Context) error {
	reloadCtx, cancel := context.WithTimeout(ctx, reloadTimeout)
	defer cancel()

	cmd := exec.CommandContext(reloadCtx, "sh", "-c", e.cfg.ProxyReloadCommand)
	output, err := cmd.CombinedOutput()
	if err != nil {
		e.logger.Warn("proxy reload command failed",
			zap.String("command", e.cfg.ProxyReloadCommand),
			zap.String("output", string(output)),
			zap.Error(err))
		return fmt.Errorf("running proxy reload command: %w", err)
	}
	e.logger.Info("reloaded reverse proxy")
	return nil
}

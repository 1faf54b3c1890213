package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mcp-registry/gateway/internal/config"
	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/repository"
	"github.com/mcp-registry/gateway/internal/search"
)

// Scanner is the narrow interface ServerService and AgentService need
// from internal/security, accepted here rather than imported
// concretely so the registration flow can be tested without invoking
// a real subprocess.
type Scanner interface {
	Scan(ctx context.Context, path, targetURL string, timeout time.Duration) *domain.SecurityScanResult
}

// ProxyEmitter is the narrow interface ServerService needs from
// internal/proxyconfig.
type ProxyEmitter interface {
	Emit(ctx context.Context, servers []*domain.Server) error
}

// ServerService implements the registration admission flow, rating
// read-modify-write, and state-toggle proxy re-emission of spec.md
// §4.4 for Server entities.
type ServerService struct {
	repo    repository.ServerRepository
	scans   repository.SecurityScanRepository
	indexer *search.Indexer
	scanner Scanner
	proxy   ProxyEmitter
	cfg     *config.Config
	logger  *zap.Logger
}

func NewServerService(
	repo repository.ServerRepository,
	scans repository.SecurityScanRepository,
	indexer *search.Indexer,
	scanner Scanner,
	proxy ProxyEmitter,
	cfg *config.Config,
	logger *zap.Logger,
) *ServerService {
	return &ServerService{repo: repo, scans: scans, indexer: indexer, scanner: scanner, proxy: proxy, cfg: cfg, logger: logger}
}

// Register validates, optionally runs pre-admission security
// scanning, persists, and indexes a new server (spec.md §4.4
// Registration admission flow).
func (svc *ServerService) Register(ctx context.Context, s *domain.Server) error {
	s.Path = domain.NormalizePath(s.Path)
	if err := s.Validate(); err != nil {
		return registryerr.NewValidation(err.Error(), err)
	}
	if err := validateToolSchemas(s.ToolList); err != nil {
		return registryerr.NewValidation(err.Error(), err)
	}
	s.Description = sanitizeText(s.Description)
	s.NumTools = len(s.ToolList)
	s.IsEnabled = false
	now := time.Now().UTC()
	s.RegisteredAt = now
	s.UpdatedAt = now

	if svc.cfg.SecurityScanEnabled && svc.cfg.SecurityScanOnRegistration && svc.scanner != nil {
		if err := svc.runScan(ctx, s.Path, s.ProxyPassURL, svc.cfg.SecurityScanTimeoutSeconds, svc.cfg.SecurityBlockUnsafeServers); err != nil {
			return err
		}
	}

	if err := svc.repo.Create(ctx, s); err != nil {
		return err
	}
	svc.indexer.IndexServer(ctx, s)
	return nil
}

// runScan executes the scanner, persists the result regardless of
// verdict, and — only when blockUnsafe is set and the verdict is
// unsafe — returns a security error that aborts registration without
// persisting the entity (spec.md §4.4 step 2-3).
func (svc *ServerService) runScan(ctx context.Context, path, targetURL string, timeoutSeconds int, blockUnsafe bool) error {
	timeout := time.Duration(timeoutSeconds) * time.Second
	result := svc.scanner.Scan(ctx, path, targetURL, timeout)

	if err := svc.scans.Append(ctx, result); err != nil {
		svc.logger.Warn("failed to persist security scan result", zap.String("path", path), zap.Error(err))
	}

	if result.Failed {
		svc.logger.Warn("security scan process failed", zap.String("path", path), zap.String("error", result.ErrorMessage))
	}

	if blockUnsafe && !result.IsSafe {
		msg := fmt.Sprintf("security scan found %d critical and %d high severity findings", result.CriticalCount, result.HighCount)
		if result.Failed {
			msg = "security scan failed: " + result.ErrorMessage
		}
		return registryerr.NewExternalProcessFailed(msg, nil)
	}
	return nil
}

// Update validates and persists changes to an already-registered
// server, preserving RegisteredAt/RatingDetails/NumStars across the
// write (spec.md §6 `PUT /api/servers/{path}`) — the same
// preserve-on-update shape federation.Syncer.upsertServer uses for
// federated entities.
func (svc *ServerService) Update(ctx context.Context, s *domain.Server) error {
	s.Path = domain.NormalizePath(s.Path)
	if err := s.Validate(); err != nil {
		return registryerr.NewValidation(err.Error(), err)
	}
	if err := validateToolSchemas(s.ToolList); err != nil {
		return registryerr.NewValidation(err.Error(), err)
	}
	s.Description = sanitizeText(s.Description)
	existing, err := svc.repo.Get(ctx, s.Path)
	if err != nil {
		return err
	}
	s.NumTools = len(s.ToolList)
	s.RegisteredAt = existing.RegisteredAt
	s.RatingDetails = existing.RatingDetails
	s.NumStars = existing.NumStars
	s.UpdatedAt = time.Now().UTC()

	if err := svc.repo.Update(ctx, s); err != nil {
		return err
	}
	svc.indexer.IndexServer(ctx, s)
	svc.emitProxyConfig(ctx)
	return nil
}

func (svc *ServerService) Get(ctx context.Context, path string) (*domain.Server, error) {
	return svc.repo.Get(ctx, domain.NormalizePath(path))
}

func (svc *ServerService) List(ctx context.Context) ([]*domain.Server, error) {
	return svc.repo.ListAll(ctx)
}

// Delete removes a server from the repository, the search index, and
// re-emits the proxy config (the enabled set necessarily shrinks).
func (svc *ServerService) Delete(ctx context.Context, path string) error {
	path = domain.NormalizePath(path)
	s, err := svc.repo.Get(ctx, path)
	if err != nil {
		return err
	}
	if _, err := svc.repo.Delete(ctx, path); err != nil {
		return err
	}
	svc.indexer.RemoveServer(ctx, s)
	svc.emitProxyConfig(ctx)
	return nil
}

// SetEnabled toggles a server's enablement and re-emits the proxy
// config afterward, regardless of whether the state actually changed
// (spec.md §4.4 Proxy config emission, P7).
func (svc *ServerService) SetEnabled(ctx context.Context, path string, enabled bool) error {
	path = domain.NormalizePath(path)
	if err := svc.repo.SetEnabled(ctx, path, enabled); err != nil {
		return err
	}
	svc.emitProxyConfig(ctx)
	return nil
}

// Rate validates the rating and delegates the read-modify-write to
// the repository, then re-indexes (num_stars changed, which search
// result metadata snapshots).
func (svc *ServerService) Rate(ctx context.Context, path, username string, rating int) (*domain.Server, error) {
	if rating < 1 || rating > 5 {
		return nil, registryerr.NewValidation("rating must be between 1 and 5", nil)
	}
	path = domain.NormalizePath(path)
	s, err := svc.repo.UpdateRating(ctx, path, username, rating)
	if err != nil {
		return nil, err
	}
	svc.indexer.IndexServer(ctx, s)
	return s, nil
}

// emitProxyConfig re-serializes the full enabled-server set. Failures
// are logged, never propagated: per spec.md §4.4, proxy-reload errors
// must not roll back the state change that triggered them.
func (svc *ServerService) emitProxyConfig(ctx context.Context) {
	servers, err := svc.repo.ListAll(ctx)
	if err != nil {
		svc.logger.Warn("failed to list servers for proxy config emission", zap.Error(err))
		return
	}
	if err := svc.proxy.Emit(ctx, servers); err != nil {
		svc.logger.Warn("failed to emit proxy config", zap.Error(err))
	}
}

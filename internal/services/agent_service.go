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

// AgentService mirrors ServerService for Agent entities (spec.md §4.4,
// applied to the agent_security_* config family instead of
// security_*). Agents have no reverse-proxy surface, so there is no
// proxy-config re-emission step.
type AgentService struct {
	repo    repository.AgentRepository
	scans   repository.SecurityScanRepository
	indexer *search.Indexer
	scanner Scanner
	cfg     *config.Config
	logger  *zap.Logger
}

func NewAgentService(
	repo repository.AgentRepository,
	scans repository.SecurityScanRepository,
	indexer *search.Indexer,
	scanner Scanner,
	cfg *config.Config,
	logger *zap.Logger,
) *AgentService {
	return &AgentService{repo: repo, scans: scans, indexer: indexer, scanner: scanner, cfg: cfg, logger: logger}
}

// Register validates, optionally scans, persists, and indexes a new
// agent.
func (svc *AgentService) Register(ctx context.Context, a *domain.Agent) error {
	a.Path = domain.NormalizePath(a.Path)
	if err := a.Validate(); err != nil {
		return registryerr.NewValidation(err.Error(), err)
	}
	a.Description = sanitizeText(a.Description)
	a.IsEnabled = false
	now := time.Now().UTC()
	a.RegisteredAt = now
	a.UpdatedAt = now

	if svc.cfg.AgentSecurityScanEnabled && svc.cfg.SecurityScanOnRegistration && svc.scanner != nil {
		if err := svc.runScan(ctx, a.Path, a.URL, svc.cfg.AgentSecurityScanTimeout, svc.cfg.AgentSecurityBlockUnsafe); err != nil {
			return err
		}
	}

	if err := svc.repo.Create(ctx, a); err != nil {
		return err
	}
	svc.indexer.IndexAgent(ctx, a)
	return nil
}

func (svc *AgentService) runScan(ctx context.Context, path, targetURL string, timeoutSeconds int, blockUnsafe bool) error {
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

// Update mirrors ServerService.Update for Agent entities.
func (svc *AgentService) Update(ctx context.Context, a *domain.Agent) error {
	a.Path = domain.NormalizePath(a.Path)
	if err := a.Validate(); err != nil {
		return registryerr.NewValidation(err.Error(), err)
	}
	a.Description = sanitizeText(a.Description)
	existing, err := svc.repo.Get(ctx, a.Path)
	if err != nil {
		return err
	}
	a.RegisteredAt = existing.RegisteredAt
	a.RatingDetails = existing.RatingDetails
	a.NumStars = existing.NumStars
	a.UpdatedAt = time.Now().UTC()

	if err := svc.repo.Update(ctx, a); err != nil {
		return err
	}
	svc.indexer.IndexAgent(ctx, a)
	return nil
}

func (svc *AgentService) Get(ctx context.Context, path string) (*domain.Agent, error) {
	return svc.repo.Get(ctx, domain.NormalizePath(path))
}

func (svc *AgentService) List(ctx context.Context) ([]*domain.Agent, error) {
	return svc.repo.ListAll(ctx)
}

func (svc *AgentService) Delete(ctx context.Context, path string) error {
	path = domain.NormalizePath(path)
	if _, err := svc.repo.Delete(ctx, path); err != nil {
		return err
	}
	svc.indexer.RemoveAgent(ctx, path)
	return nil
}

func (svc *AgentService) SetEnabled(ctx context.Context, path string, enabled bool) error {
	return svc.repo.SetEnabled(ctx, domain.NormalizePath(path), enabled)
}

func (svc *AgentService) Rate(ctx context.Context, path, username string, rating int) (*domain.Agent, error) {
	if rating < 1 || rating > 5 {
		return nil, registryerr.NewValidation("rating must be between 1 and 5", nil)
	}
	path = domain.NormalizePath(path)
	a, err := svc.repo.UpdateRating(ctx, path, username, rating)
	if err != nil {
		return nil, err
	}
	svc.indexer.IndexAgent(ctx, a)
	return a, nil
}

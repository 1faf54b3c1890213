package federation

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/mcp-registry/gateway/internal/domain"
	"github.com/mcp-registry/gateway/internal/registryerr"
	"github.com/mcp-registry/gateway/internal/repository"
)

// seedFile is the on-disk shape of a federation.yaml bootstrap file,
// mirroring internal/scope's scopes.yaml loader.
type seedFile struct {
	Upstreams []domain.FederationConfig `yaml:"upstreams"`
}

// LoadSeed reads a federation.yaml file. A missing path is not an
// error: seeding is an optional bootstrap.
func LoadSeed(path string) ([]domain.FederationConfig, error) {
	if path == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading federation seed file %s: %w", path, err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(content, &sf); err != nil {
		return nil, fmt.Errorf("parsing federation seed file %s: %w", path, err)
	}
	return sf.Upstreams, nil
}

// Seed bootstraps an empty FederationConfigRepository from path,
// tolerating a repository that already has entries (no-op) or a
// concurrent seed attempt (AlreadyExists from Create is not an error).
func Seed(ctx context.Context, path string, repo repository.FederationConfigRepository, logger *zap.Logger) error {
	existing, err := repo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("listing existing federation configs: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	seeds, err := LoadSeed(path)
	if err != nil {
		return err
	}
	for i := range seeds {
		cfg := seeds[i]
		if err := repo.Create(ctx, &cfg); err != nil {
			if registryerr.KindOf(err) == registryerr.AlreadyExists {
				continue
			}
			return fmt.Errorf("seeding federation config %q: %w", cfg.Name, err)
		}
		logger.Info("seeded federation config", zap.String("upstream", cfg.Name))
	}
	return nil
}

package scope

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

// seedFile is the on-disk shape of a scopes.yaml bootstrap file: a
// flat list of scope definitions, unmarshaled directly into
// domain.Scope.
type seedFile struct {
	Scopes []domain.Scope `yaml:"scopes"`
}

// LoadSeed reads a scopes.yaml file. A missing path is not an error:
// seeding is an optional bootstrap, not a required input.
func LoadSeed(path string) ([]domain.Scope, error) {
	if path == "" {
		return nil, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading scope seed file %s: %w", path, err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(content, &sf); err != nil {
		return nil, fmt.Errorf("parsing scope seed file %s: %w", path, err)
	}
	return sf.Scopes, nil
}

// Seed bootstraps an empty ScopeRepository from a scopes.yaml file.
// The seed file is never the source of truth once the store holds
// data: scopes already present in the repository are left untouched,
// and AlreadyExists from Create is treated as "already seeded", not
// an error.
func Seed(ctx context.Context, path string, repo repository.ScopeRepository, logger *zap.Logger) error {
	scopes, err := LoadSeed(path)
	if err != nil {
		return err
	}
	if len(scopes) == 0 {
		return nil
	}

	existing, err := repo.ListAll(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logger.Debug("scope repository already populated, skipping seed file", zap.Int("existing_scopes", len(existing)))
		return nil
	}

	for i := range scopes {
		s := &scopes[i]
		if err := s.Validate(); err != nil {
			return fmt.Errorf("invalid seed scope %q: %w", s.Name, err)
		}
		if err := repo.Create(ctx, s); err != nil {
			if registryerr.KindOf(err) == registryerr.AlreadyExists {
				continue
			}
			return fmt.Errorf("seeding scope %q: %w", s.Name, err)
		}
		logger.Info("seeded scope from bootstrap file", zap.String("scope", s.Name))
	}
	return nil
}

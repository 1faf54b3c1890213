package services

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/microcosm-cc/bluemonday"

	"github.com/mcp-registry/gateway/internal/domain"
)

// descriptionPolicy strips markup from free-text fields a caller
// supplies at registration: descriptions flow through to the
// discovery API and a UI consumer, so they're sanitized the same way
// the teacher's AI service sanitizes model-facing free text before it
// reaches a rendered surface.
var descriptionPolicy = bluemonday.StrictPolicy()

func sanitizeText(s string) string {
	return descriptionPolicy.Sanitize(s)
}

// validateToolSchemas rejects a registration whose tool input schemas
// aren't resolvable JSON Schema documents, catching malformed schemas
// at admission time instead of at first invocation.
func validateToolSchemas(tools []domain.ToolDefinition) error {
	for _, t := range tools {
		if t.InputSchema == nil {
			continue
		}
		raw, err := json.Marshal(t.InputSchema)
		if err != nil {
			return fmt.Errorf("tool %q: marshaling input schema: %w", t.Name, err)
		}
		var schema jsonschema.Schema
		if err := json.Unmarshal(raw, &schema); err != nil {
			return fmt.Errorf("tool %q: invalid JSON Schema: %w", t.Name, err)
		}
		if _, err := schema.Resolve(nil); err != nil {
			return fmt.Errorf("tool %q: unresolvable JSON Schema: %w", t.Name, err)
		}
	}
	return nil
}

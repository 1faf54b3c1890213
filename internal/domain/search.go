package domain

// EntityType discriminates what a SearchDocument indexes (spec.md §3
// Search document).
type EntityType string

const (
	EntityTypeMCPServer EntityType = "mcp_server"
	EntityTypeA2AAgent  EntityType = "a2a_agent"
	EntityTypeMCPTool   EntityType = "mcp_tool"
)

// SearchDocument is one indexed entity or tool. Metadata is a
// lightweight snapshot (name, description, tags, enabled state)
// rendered directly into search results without a second repository
// lookup, per spec.md §4.2.
type SearchDocument struct {
	EntityType EntityType     `json:"entity_type" bson:"entity_type"`
	Path       string         `json:"path" bson:"_id"`
	Text       string         `json:"text" bson:"text"`
	Embedding  []float32      `json:"embedding,omitempty" bson:"embedding,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`

	// ParentPath is set only for EntityTypeMCPTool, pointing back to
	// the owning server so results can be grouped or access-checked
	// against the server's scope grants.
	ParentPath string `json:"parent_path,omitempty" bson:"parent_path,omitempty"`
}

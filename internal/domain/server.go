// Package domain holds the entity shapes shared by every repository
// backend, the search index, and the HTTP edge: Server, Agent, Scope,
// SecurityScanResult, FederationConfig, and SearchDocument.
package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Transport identifies how a registered MCP server is reached. It is
// a tagged union modeled as a constrained string rather than an
// interface{} payload, since no transport carries variant-specific
// fields beyond ProxyPassURL.
type Transport string

const (
	TransportStdio          Transport = "stdio"
	TransportStreamableHTTP Transport = "streamable-http"
	TransportSSE            Transport = "sse"
)

func (t Transport) Validate() error {
	switch t {
	case TransportStdio, TransportStreamableHTTP, TransportSSE:
		return nil
	default:
		return fmt.Errorf("transport_type must be one of stdio, streamable-http, sse, got %q", t)
	}
}

// ToolDefinition describes one tool a server exposes. InputSchema is
// kept as raw JSON Schema text (validated against the JSON Schema
// meta-schema by the caller on registration) rather than a hand-rolled
// schema struct, so servers can advertise arbitrarily shaped schemas.
type ToolDefinition struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	InputSchema RawSchema `json:"inputSchema,omitempty"`
}

// RawSchema is a JSON Schema document kept opaque to the registry.
type RawSchema map[string]any

// RatingEntry is one user's rating of an entity.
type RatingEntry struct {
	Username string `json:"username" bson:"username"`
	Rating   int    `json:"rating" bson:"rating"`
}

// Server represents a registered MCP endpoint (spec.md §3 Server).
type Server struct {
	Path        string   `json:"path" bson:"_id"`
	Name        string   `json:"server_name" bson:"server_name"`
	Description string   `json:"description" bson:"description"`
	Version     string   `json:"version,omitempty" bson:"version,omitempty"`
	Tags        []string `json:"tags,omitempty" bson:"tags,omitempty"`
	License     string   `json:"license,omitempty" bson:"license,omitempty"`

	ProxyPassURL  string           `json:"proxy_pass_url" bson:"proxy_pass_url"`
	TransportType Transport        `json:"transport_type" bson:"transport_type"`
	ToolList      []ToolDefinition `json:"tool_list,omitempty" bson:"tool_list,omitempty"`
	NumTools      int              `json:"num_tools" bson:"num_tools"`

	IsEnabled    bool      `json:"is_enabled" bson:"is_enabled"`
	HealthStatus string    `json:"health_status" bson:"health_status"`
	LastChecked  time.Time `json:"last_checked,omitempty" bson:"last_checked,omitempty"`
	RegisteredAt time.Time `json:"registered_at" bson:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`

	NumStars      float64       `json:"num_stars" bson:"num_stars"`
	RatingDetails []RatingEntry `json:"rating_details,omitempty" bson:"rating_details,omitempty"`

	Source     string `json:"source,omitempty" bson:"source,omitempty"`
	IsReadOnly bool   `json:"is_read_only,omitempty" bson:"is_read_only,omitempty"`
}

var pathShape = regexp.MustCompile(`^/[^/]+(/[^/]+)*$`)

// ValidatePath enforces P1: leading-slash shape, no empty segments
// (which would otherwise manifest as "//").
func ValidatePath(path string) error {
	if path == "" || !pathShape.MatchString(path) {
		return fmt.Errorf("path %q must look like /foo or /foo/bar, with no empty segments", path)
	}
	if strings.Contains(path, "//") {
		return fmt.Errorf("path %q must not contain //", path)
	}
	return nil
}

// NormalizePath trims a single trailing slash so callers never need
// to special-case trailing-slash variants (spec.md §4.1 get_state,
// §4.3 access checks).
func NormalizePath(path string) string {
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		return strings.TrimRight(path, "/")
	}
	return path
}

// Validate enforces the Server invariants from spec.md §3.
func (s *Server) Validate() error {
	if err := ValidatePath(s.Path); err != nil {
		return err
	}
	if s.Name == "" {
		return fmt.Errorf("server_name is required")
	}
	if s.ProxyPassURL == "" {
		return fmt.Errorf("proxy_pass_url is required")
	}
	if err := s.TransportType.Validate(); err != nil {
		return err
	}
	for i, tool := range s.ToolList {
		if tool.Name == "" {
			return fmt.Errorf("tool_list[%d].name is required", i)
		}
	}
	return nil
}

// RecomputeNumStars enforces P2: num_stars is the mean of
// rating_details, 0 when empty.
func (s *Server) RecomputeNumStars() {
	s.NumStars = mean(s.RatingDetails)
}

// ApplyRating performs the read-modify-write described in spec.md
// §4.4 Rating flow and satisfies P3.
func (s *Server) ApplyRating(username string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}
	s.RatingDetails = applyRating(s.RatingDetails, username, rating)
	s.RecomputeNumStars()
	return nil
}

func mean(entries []RatingEntry) float64 {
	if len(entries) == 0 {
		return 0
	}
	var sum int
	for _, e := range entries {
		sum += e.Rating
	}
	return float64(sum) / float64(len(entries))
}

func applyRating(entries []RatingEntry, username string, rating int) []RatingEntry {
	for i, e := range entries {
		if e.Username == username {
			entries[i].Rating = rating
			return entries
		}
	}
	return append(entries, RatingEntry{Username: username, Rating: rating})
}

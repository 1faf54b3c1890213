package domain

import (
	"fmt"
	"time"
)

// SecuritySchemeType is the A2A security scheme discriminator (SPEC_FULL
// §2 domain module, grounded on a2aproject/a2a-go's scheme shapes).
type SecuritySchemeType string

const (
	SecuritySchemeAPIKey        SecuritySchemeType = "apiKey"
	SecuritySchemeHTTP          SecuritySchemeType = "http"
	SecuritySchemeOAuth2        SecuritySchemeType = "oauth2"
	SecuritySchemeOpenIDConnect SecuritySchemeType = "openIdConnect"
)

// SecurityScheme mirrors the A2A AgentCard security scheme shape. It is
// a tagged union kept as one struct with optional fields per variant,
// the idiomatic Go shape for a JSON discriminated union, rather than
// an interface{} payload.
type SecurityScheme struct {
	Type             SecuritySchemeType `json:"type" bson:"type"`
	Scheme           string             `json:"scheme,omitempty" bson:"scheme,omitempty"`
	In               string             `json:"in,omitempty" bson:"in,omitempty"`
	Name             string             `json:"name,omitempty" bson:"name,omitempty"`
	OpenIDConnectURL string             `json:"openIdConnectUrl,omitempty" bson:"openIdConnectUrl,omitempty"`
}

func (s SecurityScheme) Validate() error {
	switch s.Type {
	case SecuritySchemeAPIKey:
		if s.In == "" || s.Name == "" {
			return fmt.Errorf("apiKey security scheme requires in and name")
		}
	case SecuritySchemeHTTP:
		if s.Scheme == "" {
			return fmt.Errorf("http security scheme requires scheme")
		}
	case SecuritySchemeOAuth2:
		// OAuth2 flows are passed through opaque on the wire.
	case SecuritySchemeOpenIDConnect:
		if s.OpenIDConnectURL == "" {
			return fmt.Errorf("openIdConnect security scheme requires openIdConnectUrl")
		}
	default:
		return fmt.Errorf("unknown security scheme type %q", s.Type)
	}
	return nil
}

// SecurityRequirement is one entry of an agent's (or skill's) "security"
// list: a set of scheme names, each mapped to the scopes required for
// that scheme (empty for scheme types that carry no scopes).
type SecurityRequirement map[string][]string

// AgentSkill mirrors an A2A AgentCard skill entry.
type AgentSkill struct {
	ID           string                `json:"id" bson:"id"`
	Name         string                `json:"name" bson:"name"`
	Description  string                `json:"description,omitempty" bson:"description,omitempty"`
	Tags         []string              `json:"tags,omitempty" bson:"tags,omitempty"`
	Examples    []string              `json:"examples,omitempty" bson:"examples,omitempty"`
	InputModes  []string              `json:"input_modes,omitempty" bson:"input_modes,omitempty"`
	OutputModes []string              `json:"output_modes,omitempty" bson:"output_modes,omitempty"`
	Security    []SecurityRequirement `json:"security,omitempty" bson:"security,omitempty"`
}

// Visibility controls who can discover an agent via search or listing
// (spec.md §3 Agent, §4.3 access control).
type Visibility string

const (
	VisibilityPublic          Visibility = "public"
	VisibilityPrivate         Visibility = "private"
	VisibilityGroupRestricted Visibility = "group-restricted"
)

// TrustLevel is a coarse federation/community trust signal surfaced in
// discovery responses; it does not itself gate access.
type TrustLevel string

const (
	TrustUnverified TrustLevel = "unverified"
	TrustCommunity  TrustLevel = "community"
	TrustVerified   TrustLevel = "verified"
	TrustTrusted    TrustLevel = "trusted"
)

// Agent represents a registered A2A agent (spec.md §3 Agent).
type Agent struct {
	Path            string   `json:"path" bson:"_id"`
	Name            string   `json:"agent_name" bson:"agent_name"`
	Description     string   `json:"description" bson:"description"`
	URL             string   `json:"url" bson:"url"`
	Version         string   `json:"version,omitempty" bson:"version,omitempty"`
	ProtocolVersion string   `json:"protocol_version,omitempty" bson:"protocol_version,omitempty"`
	Tags            []string `json:"tags,omitempty" bson:"tags,omitempty"`
	License         string   `json:"license,omitempty" bson:"license,omitempty"`

	Skills             []AgentSkill              `json:"skills,omitempty" bson:"skills,omitempty"`
	Capabilities       map[string]bool           `json:"capabilities,omitempty" bson:"capabilities,omitempty"`
	SecuritySchemes    map[string]SecurityScheme `json:"security_schemes,omitempty" bson:"security_schemes,omitempty"`
	Security           []SecurityRequirement     `json:"security,omitempty" bson:"security,omitempty"`
	DefaultInputModes  []string                  `json:"default_input_modes,omitempty" bson:"default_input_modes,omitempty"`
	DefaultOutputModes []string                  `json:"default_output_modes,omitempty" bson:"default_output_modes,omitempty"`
	PreferredTransport string                    `json:"preferred_transport,omitempty" bson:"preferred_transport,omitempty"`

	Visibility    Visibility `json:"visibility" bson:"visibility"`
	AllowedGroups []string   `json:"allowed_groups,omitempty" bson:"allowed_groups,omitempty"`
	TrustLevel    TrustLevel `json:"trust_level,omitempty" bson:"trust_level,omitempty"`

	IsEnabled    bool      `json:"is_enabled" bson:"is_enabled"`
	HealthStatus string    `json:"health_status" bson:"health_status"`
	LastChecked  time.Time `json:"last_checked,omitempty" bson:"last_checked,omitempty"`
	RegisteredAt time.Time `json:"registered_at" bson:"registered_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`

	NumStars      float64       `json:"num_stars" bson:"num_stars"`
	RatingDetails []RatingEntry `json:"rating_details,omitempty" bson:"rating_details,omitempty"`

	RegisteredBy string `json:"registered_by,omitempty" bson:"registered_by,omitempty"`
	Source       string `json:"source,omitempty" bson:"source,omitempty"`
	IsReadOnly   bool   `json:"is_read_only,omitempty" bson:"is_read_only,omitempty"`
}

// Validate enforces the Agent invariants from spec.md §3, excluding
// the cross-field security-scheme reference check (ValidateSecuritySchemes).
func (a *Agent) Validate() error {
	if err := ValidatePath(a.Path); err != nil {
		return err
	}
	if a.Name == "" {
		return fmt.Errorf("agent_name is required")
	}
	if a.URL == "" {
		return fmt.Errorf("url is required")
	}
	if a.Visibility == VisibilityGroupRestricted && len(a.AllowedGroups) == 0 {
		return fmt.Errorf("visibility=group-restricted requires a non-empty allowed_groups")
	}
	for id, scheme := range a.SecuritySchemes {
		if err := scheme.Validate(); err != nil {
			return fmt.Errorf("security_schemes[%s]: %w", id, err)
		}
	}
	seen := make(map[string]bool, len(a.Skills))
	for i, skill := range a.Skills {
		if skill.ID == "" {
			return fmt.Errorf("skills[%d].id is required", i)
		}
		if seen[skill.ID] {
			return fmt.Errorf("skills[%d].id %q duplicates an earlier skill", i, skill.ID)
		}
		seen[skill.ID] = true
	}
	return a.ValidateSecuritySchemes()
}

// ValidateSecuritySchemes enforces the Scope invariant from spec.md §3:
// every scheme name referenced by the agent's (or any skill's) security
// requirements must exist in security_schemes. Mirrors the dedicated
// validator shape from the Python original (registry/utils/agent_validator.py).
func (a *Agent) ValidateSecuritySchemes() error {
	check := func(reqs []SecurityRequirement, where string) error {
		for _, req := range reqs {
			for name := range req {
				if _, ok := a.SecuritySchemes[name]; !ok {
					return fmt.Errorf("%s references undefined security scheme %q", where, name)
				}
			}
		}
		return nil
	}
	if err := check(a.Security, "security"); err != nil {
		return err
	}
	for i, skill := range a.Skills {
		if err := check(skill.Security, fmt.Sprintf("skills[%d].security", i)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Agent) RecomputeNumStars() {
	a.NumStars = mean(a.RatingDetails)
}

func (a *Agent) ApplyRating(username string, rating int) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("rating must be between 1 and 5, got %d", rating)
	}
	a.RatingDetails = applyRating(a.RatingDetails, username, rating)
	a.RecomputeNumStars()
	return nil
}

package hat

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// Schema defaults applied when a hat is decoded or normalized.
const (
	DefaultName       = "Unnamed Hat"
	DefaultModel      = "gpt-3.5-turbo"
	DefaultRole       = "agent"
	DefaultRetryLimit = 1
)

// Common roles. The set is open; stores accept any role string.
const (
	RolePlanner    = "planner"
	RoleSummarizer = "summarizer"
	RoleCritic     = "critic"
	RoleTool       = "tool"
	RoleResearcher = "researcher"
	RoleAgent      = "agent"
)

// Hat is a persona definition: model, instructions, role and team placement.
type Hat struct {
	ID            string   `json:"hat_id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	Model         string   `json:"model"`
	Instructions  string   `json:"instructions"`
	Role          string   `json:"role"`
	Tools         []string `json:"tools"`
	Relationships []string `json:"relationships"`
	TeamID        *string  `json:"team_id"`
	FlowOrder     *int     `json:"flow_order"`
	QualityGate   bool     `json:"qa_loop"`
	Critics       []string `json:"critics"`
	Active        bool     `json:"active"`
	MemoryTags    []string `json:"memory_tags"`
	RetryLimit    int      `json:"retry_limit"`
	BaseHatID     string   `json:"base_hat_id,omitempty"`
}

// NewID returns a fresh hat id of the form hat_<8 hex>.
func NewID() string {
	return "hat_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Normalize fills empty fields with schema defaults. Active and RetryLimit are
// left alone because their zero values are meaningful; UnmarshalJSON handles
// their absence.
func Normalize(h *Hat) {
	if h == nil {
		return
	}
	if strings.TrimSpace(h.Name) == "" {
		h.Name = DefaultName
	}
	if h.Model == "" {
		h.Model = DefaultModel
	}
	if h.Role == "" {
		h.Role = DefaultRole
	}
	if h.RetryLimit < 0 {
		h.RetryLimit = 0
	}
	if h.Tools == nil {
		h.Tools = []string{}
	}
	if h.Relationships == nil {
		h.Relationships = []string{}
	}
	if h.Critics == nil {
		h.Critics = []string{}
	}
	if h.MemoryTags == nil {
		h.MemoryTags = []string{}
	}
	if h.TeamID != nil && *h.TeamID == "" {
		h.TeamID = nil
	}
}

// New builds a normalized, active hat with a generated id.
func New(name, role, instructions string) *Hat {
	h := &Hat{
		ID:           NewID(),
		Name:         name,
		Role:         role,
		Instructions: instructions,
		Active:       true,
		RetryLimit:   DefaultRetryLimit,
	}
	Normalize(h)
	return h
}

// UnmarshalJSON decodes a hat record and applies defaults for missing fields.
func (h *Hat) UnmarshalJSON(data []byte) error {
	type alias Hat
	aux := struct {
		*alias
		Active     *bool `json:"active"`
		RetryLimit *int  `json:"retry_limit"`
	}{alias: (*alias)(h)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	h.Active = aux.Active == nil || *aux.Active
	if aux.RetryLimit == nil {
		h.RetryLimit = DefaultRetryLimit
	} else {
		h.RetryLimit = *aux.RetryLimit
	}
	Normalize(h)
	return nil
}

// Team returns the team id or "" when the hat is not on a team.
func (h *Hat) Team() string {
	if h == nil || h.TeamID == nil {
		return ""
	}
	return *h.TeamID
}

// InTeam reports whether the hat belongs to teamID.
func (h *Hat) InTeam(teamID string) bool {
	return teamID != "" && h.Team() == teamID
}

// Clone returns a deep copy.
func (h *Hat) Clone() *Hat {
	if h == nil {
		return nil
	}
	c := *h
	c.Tools = append([]string(nil), h.Tools...)
	c.Relationships = append([]string(nil), h.Relationships...)
	c.Critics = append([]string(nil), h.Critics...)
	c.MemoryTags = append([]string(nil), h.MemoryTags...)
	if h.TeamID != nil {
		team := *h.TeamID
		c.TeamID = &team
	}
	if h.FlowOrder != nil {
		order := *h.FlowOrder
		c.FlowOrder = &order
	}
	return &c
}

// StringPtr and IntPtr help build optional hat fields.
func StringPtr(s string) *string { return &s }

func IntPtr(i int) *int { return &i }

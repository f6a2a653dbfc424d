package roles

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role describes one organizational position a node can represent.
type Role struct {
	ID          string `yaml:"id" json:"id"`
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Knowledge   string `yaml:"knowledge" json:"knowledge"`
}

// Roster is an ordered set of roles. Order matters for index-based candidate
// recovery (role_1 is the first entry).
type Roster struct {
	roles []Role
	byID  map[string]Role
}

// NewRoster builds a roster from the given roles. Duplicate ids keep the
// first occurrence.
func NewRoster(roles ...Role) *Roster {
	r := &Roster{byID: map[string]Role{}}
	for _, role := range roles {
		key := strings.ToLower(role.ID)
		if _, exists := r.byID[key]; exists {
			continue
		}
		r.byID[key] = role
		r.roles = append(r.roles, role)
	}
	return r
}

// Default returns the built-in organizational roster.
func Default() *Roster {
	return NewRoster(
		Role{
			ID:          "ceo",
			Title:       "CEO",
			Description: "Oversees the entire organization and strategy.",
			Knowledge:   "Knows entire org structure, company goals, and strategic priorities.",
		},
		Role{
			ID:          "marketing",
			Title:       "Marketing Lead",
			Description: "Handles marketing campaigns and market analysis.",
			Knowledge:   "Knows about target markets, marketing strategies, campaign performance, and customer segments.",
		},
		Role{
			ID:          "engineering",
			Title:       "Engineering Lead",
			Description: "Manages the technical team and codebase.",
			Knowledge:   "Knows the current codebase, technical architecture, development processes, and ongoing technical challenges.",
		},
		Role{
			ID:          "design",
			Title:       "Design Lead",
			Description: "Leads UI/UX design and product aesthetics.",
			Knowledge:   "Knows UI/UX best practices, design system guidelines, user research findings, and current design tools.",
		},
		Role{
			ID:          "hr",
			Title:       "Human Resources Lead",
			Description: "Leads the team that handles all HR related tasks.",
			Knowledge:   "Knows all HR related tasks, including hiring, firing, and employee relations.",
		},
	)
}

// Load reads a roster from a YAML file with a top-level `roles:` list.
func Load(path string) (*Roster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML roster document.
func Parse(data []byte) (*Roster, error) {
	var doc struct {
		Roles []Role `yaml:"roles"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	if len(doc.Roles) == 0 {
		return nil, fmt.Errorf("parse roster: no roles defined")
	}
	for _, r := range doc.Roles {
		if r.ID == "" {
			return nil, fmt.Errorf("parse roster: role with empty id")
		}
	}
	return NewRoster(doc.Roles...), nil
}

// Roles returns the roster in definition order.
func (r *Roster) Roles() []Role {
	return append([]Role(nil), r.roles...)
}

// IDs returns all role ids in definition order.
func (r *Roster) IDs() []string {
	out := make([]string, len(r.roles))
	for i, role := range r.roles {
		out[i] = role.ID
	}
	return out
}

// Len returns the roster size.
func (r *Roster) Len() int { return len(r.roles) }

// ByIndex returns the 1-based role, matching the role_N convention of
// degenerate reasoner output.
func (r *Roster) ByIndex(i int) (Role, bool) {
	if i < 1 || i > len(r.roles) {
		return Role{}, false
	}
	return r.roles[i-1], true
}

// Resolve matches a free-form name against the roster: case-insensitive id
// match first, then case-insensitive title match.
func (r *Roster) Resolve(name string) (Role, bool) {
	trimmed := strings.TrimSpace(name)
	if role, ok := r.byID[strings.ToLower(trimmed)]; ok {
		return role, true
	}
	for _, role := range r.roles {
		if strings.EqualFold(role.Title, trimmed) {
			return role, true
		}
	}
	return Role{}, false
}

// Normalize maps the given names onto role ids, dropping names that match no
// role. The result preserves input order without duplicates.
func (r *Roster) Normalize(names []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, name := range names {
		role, ok := r.Resolve(name)
		if !ok || seen[role.ID] {
			continue
		}
		seen[role.ID] = true
		out = append(out, role.ID)
	}
	return out
}

// Describe renders the roster for reasoner prompts, one numbered line per
// role.
func (r *Roster) Describe() string {
	var b strings.Builder
	for i, role := range r.roles {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s (%s): %s", i+1, role.ID, role.Title, role.Description)
	}
	return b.String()
}

// Package catalog holds the categorical vocabularies shared by profiles, projects and feeds:
// roles, stacks per role, frameworks, goals, project statuses and seniority levels.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Placeholder is shown for blank values.
const Placeholder = "—"

// Option is one selectable value.
type Option struct {
	Code  string `yaml:"code" json:"code"`
	Label string `yaml:"label" json:"label"`
}

// Catalog is the parsed vocabulary set.
type Catalog struct {
	Roles           []Option            `yaml:"roles"`
	Stacks          map[string][]Option `yaml:"stacks"`
	StackGroups     map[string]string   `yaml:"stack_groups"`
	Frameworks      map[string][]string `yaml:"frameworks"`
	Goals           []Option            `yaml:"goals"`
	ProjectStatuses []Option            `yaml:"project_statuses"`
	Levels          []Option            `yaml:"levels"`

	roleLabels   map[string]string
	stackLabels  map[string]string
	goalLabels   map[string]string
	statusLabels map[string]string
	levelLabels  map[string]string
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// Default returns the embedded catalog. It panics if the embedded file is malformed,
// which the package tests guard against.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := Parse(catalogYAML)
		if err != nil {
			panic(fmt.Sprintf("catalog: embedded catalog.yaml is invalid: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// Parse decodes a catalog document and builds the label indexes.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(c.Roles) == 0 {
		return nil, fmt.Errorf("catalog has no roles")
	}

	c.roleLabels = index(c.Roles)
	c.goalLabels = index(c.Goals)
	c.statusLabels = index(c.ProjectStatuses)
	c.levelLabels = index(c.Levels)

	c.stackLabels = make(map[string]string, len(c.StackGroups))
	for code, label := range c.StackGroups {
		c.stackLabels[code] = label
	}
	for _, opts := range c.Stacks {
		for _, o := range opts {
			if _, ok := c.stackLabels[o.Code]; !ok {
				c.stackLabels[o.Code] = o.Label
			}
		}
	}
	return &c, nil
}

func index(opts []Option) map[string]string {
	m := make(map[string]string, len(opts))
	for _, o := range opts {
		m[o.Code] = o.Label
	}
	return m
}

func labelOr(m map[string]string, code string) string {
	if strings.TrimSpace(code) == "" {
		return Placeholder
	}
	if label, ok := m[code]; ok {
		return label
	}
	return code
}

// RoleLabel returns the display label of a role code, or the code itself when unknown.
func (c *Catalog) RoleLabel(code string) string { return labelOr(c.roleLabels, code) }

// GoalLabel returns the display label of a goal code.
func (c *Catalog) GoalLabel(code string) string { return labelOr(c.goalLabels, code) }

// StatusLabel returns the display label of a project status.
func (c *Catalog) StatusLabel(code string) string { return labelOr(c.statusLabels, code) }

// LevelLabel returns the display label of a seniority level.
func (c *Catalog) LevelLabel(code string) string { return labelOr(c.levelLabels, code) }

// FormatStack renders a stored stack value. Groups are separated by ';', items by ','.
// Unknown tokens are shown as typed.
func (c *Catalog) FormatStack(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Placeholder
	}
	if label, ok := c.stackLabels[raw]; ok {
		return label
	}

	var parts []string
	for _, group := range strings.Split(raw, ";") {
		var mapped []string
		for _, token := range strings.Split(group, ",") {
			token = strings.TrimSpace(token)
			if token == "" {
				continue
			}
			if label, ok := c.stackLabels[token]; ok {
				mapped = append(mapped, label)
			} else {
				mapped = append(mapped, token)
			}
		}
		if len(mapped) > 0 {
			parts = append(parts, strings.Join(mapped, ", "))
		}
	}
	if len(parts) == 0 {
		return Placeholder
	}
	return strings.Join(parts, "; ")
}

// FormatRoles renders a comma-joined list of role codes or labels.
func (c *Catalog) FormatRoles(raw string) string {
	var out []string
	for _, r := range strings.Split(raw, ",") {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, labelOr(c.roleLabels, r))
	}
	if len(out) == 0 {
		return Placeholder
	}
	return strings.Join(out, ", ")
}

// RoleWanted reports whether a project's looking_for_role text asks for role.
// The match is a case-insensitive substring on either the role code or its label.
// An empty role matches everything.
func (c *Catalog) RoleWanted(lookingFor, role string) bool {
	if role == "" {
		return true
	}
	haystack := strings.ToLower(lookingFor)
	if strings.Contains(haystack, strings.ToLower(role)) {
		return true
	}
	if label, ok := c.roleLabels[role]; ok {
		return strings.Contains(haystack, strings.ToLower(label))
	}
	return false
}

// IsRole reports whether code is a known role.
func (c *Catalog) IsRole(code string) bool {
	_, ok := c.roleLabels[code]
	return ok
}

// FrameworksFor lists the frameworks suggested for a stack code.
func (c *Catalog) FrameworksFor(stack string) []string {
	return c.Frameworks[stack]
}

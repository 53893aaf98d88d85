package models

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"
)

// FeedKind selects which browsing feed a session refers to.
type FeedKind string

const (
	FeedKindProfiles FeedKind = "profiles"
	FeedKindProjects FeedKind = "projects"
)

// ParseFeedKind validates a feed kind path segment. Singular forms ("profile") are accepted.
func ParseFeedKind(s string) (FeedKind, error) {
	kind := FeedKind(inflection.Plural(strings.ToLower(strings.TrimSpace(s))))
	switch kind {
	case FeedKindProfiles, FeedKindProjects:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown feed kind %q", s)
	}
}

// Direction moves the feed cursor.
type Direction string

const (
	DirectionNext     Direction = "next"
	DirectionPrevious Direction = "previous"
)

// anyFilterValues are accepted as "no filter" from clients.
var anyFilterValues = map[string]struct{}{
	"":      {},
	"any":   {},
	"all":   {},
	"любой": {},
}

// NormalizeFilter lower-cases a filter value and maps every "any" spelling to "".
func NormalizeFilter(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if _, ok := anyFilterValues[v]; ok {
		return ""
	}
	return v
}

// ProfileFilters narrow the profile feed. Empty fields mean no filter.
type ProfileFilters struct {
	Role  string `json:"role"`
	Stack string `json:"stack"`
	Goal  string `json:"goal"`
}

// Normalized returns the filters with "any" values cleared.
func (f ProfileFilters) Normalized() ProfileFilters {
	return ProfileFilters{
		Role:  NormalizeFilter(f.Role),
		Stack: NormalizeFilter(f.Stack),
		Goal:  NormalizeFilter(f.Goal),
	}
}

// ProjectFilters narrow the project feed. Empty fields mean no filter.
type ProjectFilters struct {
	Role  string `json:"role"`
	Stack string `json:"stack"`
	Level string `json:"level"`
}

// Normalized returns the filters with "any" values cleared.
func (f ProjectFilters) Normalized() ProjectFilters {
	return ProjectFilters{
		Role:  NormalizeFilter(f.Role),
		Stack: NormalizeFilter(f.Stack),
		Level: NormalizeFilter(f.Level),
	}
}

// FeedCandidate is the card at the cursor. Exactly one of Profile and Project is set.
type FeedCandidate struct {
	Kind     FeedKind `json:"kind"`
	Position int      `json:"position"`
	Total    int      `json:"total"`
	Profile  *Profile `json:"profile,omitempty"`
	Project  *Project `json:"project,omitempty"`
}

// StackTokens splits a composite stack value ("python, react; docker") into lower-case codes.
func StackTokens(stack string) []string {
	var tokens []string
	for _, group := range strings.Split(stack, ";") {
		for _, item := range strings.Split(group, ",") {
			item = strings.ToLower(strings.TrimSpace(item))
			if item != "" {
				tokens = append(tokens, item)
			}
		}
	}
	return tokens
}

// StackMatches reports whether the filter code equals any token of the stack value.
// An empty filter matches everything.
func StackMatches(stack, filter string) bool {
	if filter == "" {
		return true
	}
	for _, t := range StackTokens(stack) {
		if t == filter {
			return true
		}
	}
	return false
}

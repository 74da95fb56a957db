package analytics

import (
	"fmt"
	"strings"
)

// MatchPolicy selects how a status marker is compared to company_response.
type MatchPolicy string

const (
	MatchExact    MatchPolicy = "exact"
	MatchPrefix   MatchPolicy = "prefix"
	MatchContains MatchPolicy = "contains"
)

// ParseMatchPolicy validates a policy name. An empty name yields MatchPrefix.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch p := MatchPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return MatchPrefix, nil
	case MatchExact, MatchPrefix, MatchContains:
		return p, nil
	default:
		return "", fmt.Errorf("invalid match policy %q: must be one of exact, prefix, contains", s)
	}
}

// StatusMatcher tests a company_response value against a marker. Both sides
// are trimmed; comparison is case-sensitive.
type StatusMatcher struct {
	Marker string
	Policy MatchPolicy
}

// Match reports whether value satisfies the matcher.
func (m StatusMatcher) Match(value string) bool {
	value = strings.TrimSpace(value)
	marker := strings.TrimSpace(m.Marker)
	if marker == "" {
		return false
	}
	switch m.Policy {
	case MatchExact:
		return value == marker
	case MatchContains:
		return strings.Contains(value, marker)
	default:
		return strings.HasPrefix(value, marker)
	}
}

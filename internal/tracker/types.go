package tracker

import (
	"fmt"

	"github.com/spf13/cast"
)

// SearchType selects the search backend used by the tracker.
type SearchType string

const (
	SearchFullText   SearchType = "full_text"
	SearchSimilarity SearchType = "similarity"
)

// Valid reports whether t is a search type the tracker understands.
func (t SearchType) Valid() bool {
	return t == SearchFullText || t == SearchSimilarity
}

// Scope is the (organization, project) pair a tracker operation runs in.
// Empty fields are omitted from requests.
type Scope struct {
	Org     string
	Project string
}

// Issue is a raw issue object exactly as the tracker returned it.
// Field types are not guaranteed (ids may be numbers), so reads go
// through the coercing accessors below.
type Issue map[string]any

// String returns the value at key coerced to a string, or "" when the
// key is missing, null, or not representable as text.
func (i Issue) String(key string) string {
	v, ok := i[key]
	if !ok || v == nil {
		return ""
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return ""
	}
	return s
}

// ID returns the tracker-assigned identifier.
func (i Issue) ID() string { return i.String("id") }

// URL returns the deep link to the issue, if any.
func (i Issue) URL() string { return i.String("url") }

// Summary normalizes the raw issue into an IssueSummary. The id and title
// are required; a score that is missing or not numeric stays nil.
func (i Issue) Summary() (IssueSummary, error) {
	s := IssueSummary{
		ID:          i.ID(),
		Title:       i.String("title"),
		Description: i.String("description"),
		URL:         i.URL(),
	}
	if s.ID == "" {
		return IssueSummary{}, fmt.Errorf("issue is missing an id")
	}
	if s.Title == "" {
		return IssueSummary{}, fmt.Errorf("issue %s is missing a title", s.ID)
	}
	if raw, ok := i["score"]; ok && raw != nil {
		if f, err := cast.ToFloat64E(raw); err == nil {
			s.Score = &f
		}
	}
	return s, nil
}

// Summaries converts a search result list, preserving its order.
func Summaries(issues []Issue) ([]IssueSummary, error) {
	out := make([]IssueSummary, 0, len(issues))
	for idx, issue := range issues {
		s, err := issue.Summary()
		if err != nil {
			return nil, fmt.Errorf("result %d: %w", idx, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// IssueSummary is the normalized view of a search result or candidate.
type IssueSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	URL         string   `json:"url,omitempty"`
	Score       *float64 `json:"score,omitempty"`
}

// SearchParams are the inputs of SearchIssues.
type SearchParams struct {
	Query    string
	Type     SearchType
	Scope    Scope
	Status   string
	Labels   []string
	Assignee string
	Priority string
}

// CreateParams are the inputs of CreateIssue. Scope.Project is required.
type CreateParams struct {
	Title       string
	Description string
	Scope       Scope
	Labels      []string
	Assignee    string
	Priority    string
	Status      string
}

// UpdateParams are the inputs of UpdateIssue. Empty fields are left
// unchanged on the tracker.
type UpdateParams struct {
	Title       string
	Description string
	Status      string
	Priority    string
	Assignee    string
	Labels      []string
	Scope       Scope
}

// Fields returns only the fields that were supplied.
func (p UpdateParams) Fields() map[string]any {
	fields := map[string]any{}
	if p.Title != "" {
		fields["title"] = p.Title
	}
	if p.Description != "" {
		fields["description"] = p.Description
	}
	if p.Status != "" {
		fields["status"] = p.Status
	}
	if p.Priority != "" {
		fields["priority"] = p.Priority
	}
	if p.Assignee != "" {
		fields["assignee"] = p.Assignee
	}
	if len(p.Labels) > 0 {
		fields["labels"] = p.Labels
	}
	return fields
}

// VersionInfo is the tracker's answer to a version handshake.
type VersionInfo struct {
	ServerVersion    string `json:"server_version"`
	MinClientVersion string `json:"min_client_version"`
	MaxClientVersion string `json:"max_client_version"`
}

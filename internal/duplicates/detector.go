// Package duplicates decides whether a new issue duplicates one of the
// candidates returned by a similarity search.
//
// Three detectors implement the same contract: ThresholdDetector compares
// the top search score against a cutoff, LLMDetector asks a language
// model, and NullDetector never claims a duplicate. Select picks one
// from configuration.
//
// Candidates are always in the order the tracker returned them
// (descending relevance); no detector re-sorts them.
package duplicates

import (
	"context"

	"github.com/spacebridge-io/spacebridge-mcp/internal/tracker"
)

// Status is the outcome of a duplicate check.
type Status string

const (
	StatusDuplicate    Status = "duplicate"
	StatusNotDuplicate Status = "not_duplicate"
	StatusUndetermined Status = "undetermined"
)

// Decision is a detector verdict. DuplicateIssue is set iff Status is
// StatusDuplicate; use the constructors to keep that true.
type Decision struct {
	Status         Status
	DuplicateIssue *tracker.IssueSummary
}

// Duplicate returns a duplicate verdict pointing at issue.
func Duplicate(issue tracker.IssueSummary) Decision {
	return Decision{Status: StatusDuplicate, DuplicateIssue: &issue}
}

// NotDuplicate returns a not-duplicate verdict.
func NotDuplicate() Decision { return Decision{Status: StatusNotDuplicate} }

// Undetermined returns an undetermined verdict.
func Undetermined() Decision { return Decision{Status: StatusUndetermined} }

// Valid reports whether the decision holds its invariant.
func (d Decision) Valid() bool {
	switch d.Status {
	case StatusDuplicate:
		return d.DuplicateIssue != nil
	case StatusNotDuplicate, StatusUndetermined:
		return d.DuplicateIssue == nil
	default:
		return false
	}
}

// Detector checks a new issue against ordered candidates.
//
// Implementations return StatusNotDuplicate for an empty candidate list
// and must not mutate candidates.
type Detector interface {
	// Name identifies the detector in logs and metrics.
	Name() string
	CheckDuplicates(ctx context.Context, title, description string, candidates []tracker.IssueSummary) (Decision, error)
}

package duplicates

import (
	"context"

	"github.com/spacebridge-io/spacebridge-mcp/internal/tracker"
)

// NullDetector never claims a duplicate: no candidates means
// not_duplicate, anything else is undetermined.
type NullDetector struct{}

func (NullDetector) Name() string { return "none" }

func (NullDetector) CheckDuplicates(_ context.Context, _, _ string, candidates []tracker.IssueSummary) (Decision, error) {
	if len(candidates) == 0 {
		return NotDuplicate(), nil
	}
	return Undetermined(), nil
}

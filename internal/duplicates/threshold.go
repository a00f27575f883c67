package duplicates

import (
	"context"
	"math"

	"github.com/spacebridge-io/spacebridge-mcp/internal/tracker"
)

// DefaultThreshold is the similarity score at or above which the top
// candidate counts as a duplicate.
const DefaultThreshold = 0.75

// ThresholdDetector flags the top candidate when its score reaches the
// threshold. It does no I/O.
type ThresholdDetector struct {
	threshold float64
}

// NewThresholdDetector returns a detector with the given cutoff. A NaN or
// infinite threshold falls back to DefaultThreshold.
func NewThresholdDetector(threshold float64) *ThresholdDetector {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		threshold = DefaultThreshold
	}
	return &ThresholdDetector{threshold: threshold}
}

// Threshold returns the configured cutoff.
func (d *ThresholdDetector) Threshold() float64 { return d.threshold }

func (d *ThresholdDetector) Name() string { return "threshold" }

func (d *ThresholdDetector) CheckDuplicates(_ context.Context, _, _ string, candidates []tracker.IssueSummary) (Decision, error) {
	if len(candidates) == 0 {
		return NotDuplicate(), nil
	}
	top := candidates[0]
	if top.Score == nil {
		return Undetermined(), nil
	}
	if *top.Score >= d.threshold {
		return Duplicate(top), nil
	}
	return NotDuplicate(), nil
}

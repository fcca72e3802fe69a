package domain

import (
	"math"
	"time"
)

// NextRating folds one conclusive outcome into the stored aggregate.
//
// The success count is not stored. It is rebuilt from the rounded percentage
// on every call, so rounding error accumulates once applications grow past
// ~50. Stored percentages depend on this exact sequence, including the
// (successes / applications) * 100 evaluation order.
func NextRating(applications, successRate int, succeeded bool) (int, int) {
	priorSuccesses := int(math.Round(float64(successRate*applications) / 100))

	newApplications := applications + 1
	newSuccesses := priorSuccesses
	if succeeded {
		newSuccesses++
	}

	newRate := int(math.Round(float64(newSuccesses) / float64(newApplications) * 100))
	return newApplications, newRate
}

// RecordOutcome applies NextRating to t and touches UpdatedAt.
func (t *Treatment) RecordOutcome(succeeded bool, now time.Time) {
	t.Applications, t.SuccessRate = NextRating(t.Applications, t.SuccessRate, succeeded)
	t.UpdatedAt = now
}

package port

import (
	"peakshaver/internal/core/domain"
)

// PeakShavingLogic computes one mode decision from a set of readings.
// Implementations must be pure: no I/O, no state between calls.
type PeakShavingLogic interface {
	Compute(input domain.ControlInput) domain.ControlDecision
}

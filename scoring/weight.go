package scoring

import "math"

// WeightFunc maps a violation priority (1..10) to the amount it adds to a
// schedule's score.
type WeightFunc func(priority int) float64

// FlatWeight charges each violation its priority.
func FlatWeight(priority int) float64 {
	return float64(priority)
}

// ExponentialWeight charges base^(priority-1). With base greater than the
// number of violations a schedule can hold, one violation of a higher
// priority outweighs any number of lower ones.
func ExponentialWeight(base float64) WeightFunc {
	return func(priority int) float64 {
		return math.Pow(base, float64(priority-1))
	}
}

package reports

import "math"

const (
	minScore  = 1.0
	maxScore  = 10.0
	scoreStep = 0.5
)

// ValidScore reports whether v lies in [1, 10] on the 0.5 grid.
func ValidScore(v float64) bool {
	if math.IsNaN(v) || v < minScore || v > maxScore {
		return false
	}
	steps := v / scoreStep
	return steps == math.Trunc(steps)
}

// Aggregate returns the overall rating: the mean of the four sub-scores rounded
// half-up to one decimal. Potential is a separate judgement and never enters the mean.
// Inputs are expected to be validated with ValidScore beforehand.
func Aggregate(technical, tactical, physical, mental float64) float64 {
	return RoundHalfUp((technical+tactical+physical+mental)/4, 1)
}

// MeanRating averages overall ratings with the same rounding as Aggregate.
// An empty slice yields 0.
func MeanRating(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return RoundHalfUp(sum/float64(len(values)), 1)
}

// RoundHalfUp rounds v to the given number of decimal places, halves rounding up.
func RoundHalfUp(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	scaled := v * scale
	// absorb representation noise such as 72.49999999999999
	return math.Floor(scaled+0.5+1e-9) / scale
}

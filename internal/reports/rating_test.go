package reports

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidScore(t *testing.T) {
	for _, v := range []float64{1, 1.5, 5, 7.5, 10} {
		assert.True(t, ValidScore(v), "%v", v)
	}
	for _, v := range []float64{0, 0.5, 10.5, 7.25, -1, math.NaN(), math.Inf(1)} {
		assert.False(t, ValidScore(v), "%v", v)
	}
}

func TestAggregateExamples(t *testing.T) {
	assert.Equal(t, 7.4, Aggregate(8, 7.5, 6.5, 7.5))
	assert.Equal(t, 7.3, Aggregate(8, 7, 6.5, 7.5))
	assert.Equal(t, 1.0, Aggregate(1, 1, 1, 1))
	assert.Equal(t, 10.0, Aggregate(10, 10, 10, 10))
	// 7.25 and 7.375 both round up
	assert.Equal(t, 7.3, Aggregate(7, 7, 7.5, 7.5))
	assert.Equal(t, 6.1, Aggregate(6, 6, 6, 6.5))
	assert.Equal(t, 6.4, Aggregate(6, 6.5, 6.5, 6.5))
}

// Every combination on the half-point grid matches integer arithmetic:
// with h the sum of the scores in half points, the rounded mean in tenths is (5h+2)/4.
func TestAggregateMatchesIntegerReference(t *testing.T) {
	for a := 2; a <= 20; a++ {
		for b := 2; b <= 20; b++ {
			for c := 2; c <= 20; c++ {
				for d := 2; d <= 20; d++ {
					h := a + b + c + d
					want := float64((5*h+2)/4) / 10
					got := Aggregate(float64(a)/2, float64(b)/2, float64(c)/2, float64(d)/2)
					if math.Abs(got-want) > 1e-9 {
						require.Failf(t, "aggregate mismatch", "%d %d %d %d: got %v want %v", a, b, c, d, got, want)
					}
				}
			}
		}
	}
}

func TestMeanRating(t *testing.T) {
	assert.Equal(t, 0.0, MeanRating(nil))
	assert.Equal(t, 7.0, MeanRating([]float64{6.5, 7.5}))
	assert.Equal(t, 6.7, MeanRating([]float64{6.5, 6.8, 6.8}))
}

func TestRoundHalfUp(t *testing.T) {
	assert.Equal(t, 2.5, RoundHalfUp(2.45, 1))
	assert.Equal(t, 2.4, RoundHalfUp(2.44, 1))
	assert.Equal(t, 3.0, RoundHalfUp(2.5, 0))
}

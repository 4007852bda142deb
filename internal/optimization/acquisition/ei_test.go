package acquisition

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedImprovement(t *testing.T) {
	tests := []struct {
		name  string
		best  float64
		xi    float64
		mu    float64
		sigma float64
		check func(t *testing.T, got float64)
	}{
		{
			name: "zero sigma with improvement",
			best: 10, xi: 0, mu: 8, sigma: 0,
			check: func(t *testing.T, got float64) {
				assert.Equal(t, 2.0, got)
			},
		},
		{
			name: "zero sigma without improvement",
			best: 10, xi: 0, mu: 12, sigma: 0,
			check: func(t *testing.T, got float64) {
				assert.Equal(t, 0.0, got)
			},
		},
		{
			name: "uncertain candidate below best",
			best: 10, xi: 0.01, mu: 8, sigma: 1,
			check: func(t *testing.T, got float64) {
				assert.Greater(t, got, 1.9)
			},
		},
		{
			name: "uncertain candidate above best still has value",
			best: 10, xi: 0.01, mu: 11, sigma: 2,
			check: func(t *testing.T, got float64) {
				assert.Greater(t, got, 0.0)
			},
		},
		{
			name: "infinite best makes everything improving",
			best: math.Inf(1), xi: 0.01, mu: 5, sigma: 1,
			check: func(t *testing.T, got float64) {
				assert.True(t, math.IsInf(got, 1))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ei := NewExpectedImprovement(tt.best, tt.xi)
			tt.check(t, ei.Compute(tt.mu, tt.sigma))
		})
	}
}

func TestExpectedImprovementNonNegative(t *testing.T) {
	ei := NewExpectedImprovement(0, 0.01)
	for _, mu := range []float64{-5, 0, 5, 50} {
		for _, sigma := range []float64{0, 0.1, 1, 10} {
			assert.GreaterOrEqual(t, ei.Compute(mu, sigma), 0.0,
				"EI(mu=%v, sigma=%v)", mu, sigma)
		}
	}
}

func TestExpectedImprovementUpdateBest(t *testing.T) {
	ei := NewExpectedImprovement(math.Inf(1), 0.01)
	ei.UpdateBest(3)
	assert.Equal(t, 3.0, ei.BestObserved())
}

func TestFeasibilityProbability(t *testing.T) {
	// Certain cases at zero sigma.
	assert.Equal(t, 1.0, FeasibilityProbability(1, 0, 2))
	assert.Equal(t, 0.0, FeasibilityProbability(3, 0, 2))

	// Exactly on the threshold with uncertainty: 50/50.
	assert.InDelta(t, 0.5, FeasibilityProbability(2, 1, 2), 1e-9)

	// Monotonically decreasing in mu.
	p1 := FeasibilityProbability(0, 1, 2)
	p2 := FeasibilityProbability(1, 1, 2)
	p3 := FeasibilityProbability(4, 1, 2)
	assert.Greater(t, p1, p2)
	assert.Greater(t, p2, p3)
}

func TestEqualityFeasibilityProbability(t *testing.T) {
	// Certain cases at zero sigma.
	assert.Equal(t, 1.0, EqualityFeasibilityProbability(1.2, 0, 1, 0.5))
	assert.Equal(t, 0.0, EqualityFeasibilityProbability(2, 0, 1, 0.5))

	// Centered on the target beats off-center at the same sigma.
	centered := EqualityFeasibilityProbability(1, 0.5, 1, 0.5)
	offCenter := EqualityFeasibilityProbability(1.6, 0.5, 1, 0.5)
	assert.Greater(t, centered, offCenter)
	assert.Greater(t, centered, 0.0)
	assert.LessOrEqual(t, centered, 1.0)
}

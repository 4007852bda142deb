// Package acquisition scores candidate points for the next hardware trial.
package acquisition

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// ExpectedImprovement implements the Expected Improvement acquisition
// function for minimization.
type ExpectedImprovement struct {
	// Best observed value so far
	bestObserved float64
	// Exploration-exploitation trade-off parameter (xi)
	xi float64
}

// NewExpectedImprovement creates a new ExpectedImprovement acquisition
// function. bestObserved should start at +Inf when nothing has been observed.
func NewExpectedImprovement(bestObserved, xi float64) *ExpectedImprovement {
	return &ExpectedImprovement{
		bestObserved: bestObserved,
		xi:           xi,
	}
}

// Compute computes the Expected Improvement at a point with posterior mean
// mu and standard deviation sigma. The result is always non-negative.
func (ei *ExpectedImprovement) Compute(mu, sigma float64) float64 {
	improvement := ei.bestObserved - mu - ei.xi

	if sigma <= 1e-10 {
		if improvement <= 0 {
			return 0
		}
		return improvement
	}

	// EI = improvement * Φ(z) + sigma * φ(z)
	stdNormal := distuv.UnitNormal
	z := improvement / sigma
	return improvement*stdNormal.CDF(z) + sigma*stdNormal.Prob(z)
}

// UpdateBest updates the best observed value.
func (ei *ExpectedImprovement) UpdateBest(best float64) {
	ei.bestObserved = best
}

// BestObserved returns the best observed value.
func (ei *ExpectedImprovement) BestObserved() float64 {
	return ei.bestObserved
}

// FeasibilityProbability returns P(value <= threshold) for an inequality
// constraint whose predicted value at the candidate is N(mu, sigma^2).
func FeasibilityProbability(mu, sigma, threshold float64) float64 {
	if sigma <= 1e-10 {
		if mu <= threshold {
			return 1
		}
		return 0
	}
	return distuv.UnitNormal.CDF((threshold - mu) / sigma)
}

// EqualityFeasibilityProbability returns P(|value - target| <= tol) for an
// equality constraint under the same Gaussian assumption.
func EqualityFeasibilityProbability(mu, sigma, target, tol float64) float64 {
	if sigma <= 1e-10 {
		if mu >= target-tol && mu <= target+tol {
			return 1
		}
		return 0
	}
	stdNormal := distuv.UnitNormal
	upper := stdNormal.CDF((target + tol - mu) / sigma)
	lower := stdNormal.CDF((target - tol - mu) / sigma)
	return upper - lower
}

package surrogate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matern(t *testing.T) Kernel {
	t.Helper()
	k, err := NewKernel(KernelMatern52, 1.0, 1.0)
	require.NoError(t, err)
	return k
}

func TestGPFitAndPredict(t *testing.T) {
	gp := NewGP(matern(t), 1e-6, nil)

	X := [][]float64{{0}, {1}, {2}, {3}}
	y := []float64{0, 1, 4, 9}
	require.Nil(t, gp.Fit(X, y))

	// Near a training point the posterior mean should be close to the target
	// and the variance small.
	for i, x := range X {
		mu, variance, err := gp.Predict(x)
		require.NoError(t, err)
		assert.InDelta(t, y[i], mu, 0.1)
		assert.GreaterOrEqual(t, variance, 0.0)
		assert.Less(t, variance, 0.1)
	}

	// Away from the data the variance grows.
	_, farVar, err := gp.Predict([]float64{10})
	require.NoError(t, err)
	_, nearVar, err := gp.Predict([]float64{1})
	require.NoError(t, err)
	assert.Greater(t, farVar, nearVar)
}

func TestGPFitErrors(t *testing.T) {
	gp := NewGP(matern(t), 1e-6, nil)

	t.Run("empty training set", func(t *testing.T) {
		err := gp.Fit(nil, nil)
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "bad training shape")
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		err := gp.Fit([][]float64{{0}, {1}}, []float64{1})
		require.NotNil(t, err)
		assert.Contains(t, err.Error(), "bad training shape")
	})
}

func TestGPPredictBeforeFit(t *testing.T) {
	gp := NewGP(matern(t), 1e-6, nil)
	_, _, err := gp.Predict([]float64{0})
	require.Error(t, err)

	var fitErr *FitError
	assert.ErrorAs(t, err, &fitErr)
}

func TestGPDuplicatePointsSurviveJitter(t *testing.T) {
	gp := NewGP(matern(t), 1e-9, nil)

	// Identical inputs make the kernel matrix singular without jitter.
	X := [][]float64{{1, 1}, {1, 1}, {1, 1}, {2, 2}}
	y := []float64{3, 3, 3, 5}
	require.Nil(t, gp.Fit(X, y))

	mu, variance, err := gp.Predict([]float64{1, 1})
	require.NoError(t, err)
	assert.InDelta(t, 3, mu, 0.5)
	assert.GreaterOrEqual(t, variance, 0.0)
}

func TestGPCentersOnSampleMean(t *testing.T) {
	gp := NewGP(matern(t), 1e-6, nil)

	// A constant offset should be reproduced far from the data, where the
	// posterior falls back to the prior mean.
	X := [][]float64{{0}, {1}}
	y := []float64{100, 102}
	require.Nil(t, gp.Fit(X, y))

	mu, _, err := gp.Predict([]float64{50})
	require.NoError(t, err)
	assert.InDelta(t, 101, mu, 1.0)
	assert.False(t, math.IsNaN(mu))
}

func TestGPWithRBFKernel(t *testing.T) {
	k, err := NewKernel(KernelRBF, 1.0, 1.0)
	require.NoError(t, err)
	gp := NewGP(k, 1e-6, nil)

	X := [][]float64{{0}, {1}, {2}}
	y := []float64{1, 2, 3}
	require.Nil(t, gp.Fit(X, y))

	mu, variance, err := gp.Predict([]float64{1})
	require.NoError(t, err)
	assert.InDelta(t, 2, mu, 0.1)
	assert.GreaterOrEqual(t, variance, 0.0)
}

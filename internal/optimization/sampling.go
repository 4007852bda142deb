package optimization

import (
	"math/rand"
)

// LatinHypercubeSample generates n space-filling points over the given
// bounds: each dimension is stratified into n bins with exactly one sample
// per bin, then the bin assignments are shuffled independently per dimension.
func LatinHypercubeSample(rng *rand.Rand, bounds [][2]float64, n int) [][]float64 {
	nDims := len(bounds)
	samples := make([][]float64, n)

	for i := 0; i < nDims; i++ {
		samples1D := make([]float64, n)
		for j := 0; j < n; j++ {
			samples1D[j] = float64(j) + rng.Float64()
		}

		rng.Shuffle(n, func(k, l int) {
			samples1D[k], samples1D[l] = samples1D[l], samples1D[k]
		})

		for j := 0; j < n; j++ {
			if i == 0 {
				samples[j] = make([]float64, nDims)
			}
			lo, hi := bounds[i][0], bounds[i][1]
			samples[j][i] = lo + samples1D[j]/float64(n)*(hi-lo)
		}
	}

	return samples
}

// UniformSample draws one uniform random point inside bounds.
func UniformSample(rng *rand.Rand, bounds [][2]float64) []float64 {
	x := make([]float64, len(bounds))
	for i, b := range bounds {
		x[i] = b[0] + rng.Float64()*(b[1]-b[0])
	}
	return x
}

// Clamp constrains x to bounds in place and returns it.
func Clamp(x []float64, bounds [][2]float64) []float64 {
	for i := range x {
		if x[i] < bounds[i][0] {
			x[i] = bounds[i][0]
		}
		if x[i] > bounds[i][1] {
			x[i] = bounds[i][1]
		}
	}
	return x
}

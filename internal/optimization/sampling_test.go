package optimization

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatinHypercubeSample(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	bounds := [][2]float64{{0, 10}, {-5, 5}}
	n := 20

	samples := LatinHypercubeSample(rng, bounds, n)
	require.Len(t, samples, n)

	// All points within bounds.
	for _, x := range samples {
		require.Len(t, x, 2)
		for d, b := range bounds {
			assert.GreaterOrEqual(t, x[d], b[0])
			assert.LessOrEqual(t, x[d], b[1])
		}
	}

	// Stratification: exactly one sample per bin in each dimension.
	for d, b := range bounds {
		seen := make(map[int]bool)
		width := (b[1] - b[0]) / float64(n)
		for _, x := range samples {
			bin := int(math.Floor((x[d] - b[0]) / width))
			if bin == n {
				bin = n - 1
			}
			assert.False(t, seen[bin], "dimension %d bin %d sampled twice", d, bin)
			seen[bin] = true
		}
	}
}

func TestUniformSample(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	bounds := [][2]float64{{2, 3}, {-1, 0}, {100, 101}}
	for i := 0; i < 50; i++ {
		x := UniformSample(rng, bounds)
		for d, b := range bounds {
			assert.GreaterOrEqual(t, x[d], b[0])
			assert.LessOrEqual(t, x[d], b[1])
		}
	}
}

func TestClamp(t *testing.T) {
	bounds := [][2]float64{{0, 1}, {0, 1}}
	x := Clamp([]float64{-0.5, 1.5}, bounds)
	assert.Equal(t, []float64{0, 1}, x)
}

func TestMeasurementsGet(t *testing.T) {
	m := Measurements{
		"ok":   1.5,
		"nan":  math.NaN(),
		"inf":  math.Inf(1),
		"zero": 0,
	}

	v, ok := m.Get("ok")
	assert.True(t, ok)
	assert.Equal(t, 1.5, v)

	_, ok = m.Get("nan")
	assert.False(t, ok)
	_, ok = m.Get("inf")
	assert.False(t, ok)
	_, ok = m.Get("missing")
	assert.False(t, ok)

	v, ok = m.Get("zero")
	assert.True(t, ok)
	assert.Equal(t, 0.0, v)

	assert.Equal(t, 7.0, m.GetOr("nan", 7))
	assert.Equal(t, 1.5, m.GetOr("ok", 7))
}

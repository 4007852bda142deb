package surrogate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKernel(t *testing.T) {
	tests := []struct {
		name    string
		kernel  string
		wantErr bool
	}{
		{"empty name defaults to matern", "", false},
		{"matern52", KernelMatern52, false},
		{"rbf", KernelRBF, false},
		{"unknown name", "periodic", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := NewKernel(tt.kernel, 1.0, 1.0)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, k)
		})
	}

	t.Run("non-positive parameters", func(t *testing.T) {
		_, err := NewKernel(KernelMatern52, 0, 1.0)
		require.Error(t, err)
		_, err = NewKernel(KernelRBF, 1.0, -1)
		require.Error(t, err)
	})
}

func TestKernelEval(t *testing.T) {
	m, err := NewKernel(KernelMatern52, 1.0, 2.0)
	require.NoError(t, err)
	r, err := NewKernel(KernelRBF, 1.0, 2.0)
	require.NoError(t, err)

	for _, k := range []Kernel{m, r} {
		// At zero distance the covariance equals the signal variance.
		assert.InDelta(t, 2.0, k.Eval([]float64{1, 2}, []float64{1, 2}), 1e-12)

		near := k.Eval([]float64{0}, []float64{0.5})
		far := k.Eval([]float64{0}, []float64{3})
		assert.Greater(t, near, far)
		assert.Greater(t, far, 0.0)
	}

	// RBF closed form at unit length scale and distance 1.
	assert.InDelta(t, 2*math.Exp(-0.5), r.Eval([]float64{0}, []float64{1}), 1e-12)
}

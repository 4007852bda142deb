// Package surrogate implements the Gaussian process regression model the
// optimizers use to rank candidate trial parameters between hardware runs.
package surrogate

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// FitError reports that the surrogate could not be fitted to the current
// observations. It is an ordinary value, not control flow: callers match on
// it and fall back to space-filling sampling.
type FitError struct {
	Reason string
	Err    error
}

func (e *FitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("surrogate fit: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("surrogate fit: %s", e.Reason)
}

func (e *FitError) Unwrap() error { return e.Err }

// GP is a Gaussian process regression model over observed (x, y) pairs.
// Fit must succeed before Predict is called. The model centers y on its
// sample mean, so the prior mean is the average observed value rather than
// zero.
type GP struct {
	kernel   Kernel
	noiseVar float64

	X     [][]float64
	yMean float64

	chol  *mat.Cholesky
	alpha *mat.VecDense

	logger *zap.Logger
}

// NewGP creates a Gaussian process with the given kernel and noise variance.
func NewGP(kernel Kernel, noiseVar float64, logger *zap.Logger) *GP {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GP{
		kernel:   kernel,
		noiseVar: noiseVar,
		logger:   logger.Named("gp"),
	}
}

// Fit conditions the model on the given observations. A nil return means
// the model is ready for Predict; a non-nil *FitError means the factorization
// failed even with jitter escalation and the caller should fall back.
func (gp *GP) Fit(X [][]float64, y []float64) *FitError {
	if len(X) == 0 || len(X) != len(y) {
		return &FitError{Reason: fmt.Sprintf("bad training shape: %d inputs, %d targets", len(X), len(y))}
	}

	n := len(X)
	gp.X = X
	gp.yMean = 0
	for _, v := range y {
		gp.yMean += v
	}
	gp.yMean /= float64(n)

	centered := mat.NewVecDense(n, nil)
	for i, v := range y {
		centered.SetVec(i, v-gp.yMean)
	}

	K := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			K.SetSym(i, j, gp.kernel.Eval(X[i], X[j]))
		}
	}

	// Cholesky with jitter escalation: retry with a growing diagonal bump
	// before giving up, the same way the kernel matrix is stabilized for
	// noisy hardware measurements everywhere else.
	jitter := gp.noiseVar
	for attempt := 0; attempt < 8; attempt++ {
		Kj := mat.NewSymDense(n, nil)
		Kj.CopySym(K)
		for i := 0; i < n; i++ {
			Kj.SetSym(i, i, Kj.At(i, i)+jitter)
		}

		var chol mat.Cholesky
		if ok := chol.Factorize(Kj); !ok {
			gp.logger.Debug("Cholesky factorization failed, increasing jitter",
				zap.Int("attempt", attempt+1),
				zap.Float64("jitter", jitter))
			jitter *= 10
			continue
		}

		alpha := mat.NewVecDense(n, nil)
		if err := chol.SolveVecTo(alpha, centered); err != nil {
			gp.logger.Debug("Cholesky solve failed, increasing jitter",
				zap.Error(err),
				zap.Int("attempt", attempt+1))
			jitter *= 10
			continue
		}

		gp.chol = &chol
		gp.alpha = alpha
		return nil
	}

	return &FitError{Reason: fmt.Sprintf("kernel matrix not positive definite after jitter escalation (n=%d)", n)}
}

// Predict returns the posterior mean and variance at x. The variance is
// clamped to be non-negative.
func (gp *GP) Predict(x []float64) (mu, variance float64, err error) {
	if gp.chol == nil || gp.alpha == nil {
		return 0, 0, &FitError{Reason: "model not fitted"}
	}

	n := len(gp.X)
	kStar := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		kStar.SetVec(i, gp.kernel.Eval(x, gp.X[i]))
	}

	mu = gp.yMean + mat.Dot(kStar, gp.alpha)

	v := mat.NewVecDense(n, nil)
	if solveErr := gp.chol.SolveVecTo(v, kStar); solveErr != nil {
		return 0, 0, fmt.Errorf("posterior variance solve: %w", solveErr)
	}

	variance = gp.kernel.Eval(x, x) + gp.noiseVar - mat.Dot(kStar, v)
	if variance < 0 {
		variance = 0
	}
	return mu, variance, nil
}

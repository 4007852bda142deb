package surrogate

import (
	"fmt"
	"math"
)

// Kernel is a stationary covariance function over trial parameter vectors.
// The regression model only needs pairwise evaluation; hyperparameters are
// fixed at construction.
type Kernel interface {
	Eval(x1, x2 []float64) float64
}

// Kernel names accepted by the tuning configuration.
const (
	KernelMatern52 = "matern52"
	KernelRBF      = "rbf"
)

// NewKernel builds the kernel selected by a tuning knob. An empty name picks
// Matérn 5/2, the default for the rough cost surfaces per-shot ion counts
// produce.
func NewKernel(name string, lengthScale, signalVar float64) (Kernel, error) {
	if lengthScale <= 0 || signalVar <= 0 {
		return nil, fmt.Errorf("kernel parameters must be positive, got lengthScale=%v signalVar=%v", lengthScale, signalVar)
	}
	switch name {
	case "", KernelMatern52:
		return &Matern52{lengthScale: lengthScale, signalVar: signalVar}, nil
	case KernelRBF:
		return &RBF{lengthScale: lengthScale, signalVar: signalVar}, nil
	default:
		return nil, fmt.Errorf("unknown kernel %q", name)
	}
}

// Matern52 is the Matérn 5/2 covariance. Its samples are twice
// differentiable, which tolerates measurement roughness better than an
// infinitely smooth prior.
type Matern52 struct {
	lengthScale float64
	signalVar   float64
}

func (k *Matern52) Eval(x1, x2 []float64) float64 {
	r := math.Sqrt(sqDist(x1, x2)) / k.lengthScale
	sqrt5r := math.Sqrt(5) * r
	return k.signalVar * (1 + sqrt5r + 5*r*r/3) * math.Exp(-sqrt5r)
}

// RBF is the squared-exponential covariance, available for stages whose cost
// surface is known to be smooth.
type RBF struct {
	lengthScale float64
	signalVar   float64
}

func (k *RBF) Eval(x1, x2 []float64) float64 {
	return k.signalVar * math.Exp(-sqDist(x1, x2)/(2*k.lengthScale*k.lengthScale))
}

func sqDist(x1, x2 []float64) float64 {
	var s float64
	for i := range x1 {
		d := x1[i] - x2[i]
		s += d * d
	}
	return s
}

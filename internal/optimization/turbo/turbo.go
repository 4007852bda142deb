// Package turbo implements the trust-region Bayesian optimizer used to tune
// each pipeline stage in isolation during Phase I.
package turbo

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/surrogate"
)

// Config contains the tuning knobs for a trust-region optimizer.
type Config struct {
	// Bounds for each dimension [min, max] over the full (global) space.
	Bounds [][2]float64

	// Number of space-filling points before the surrogate takes over.
	NInit int

	// Number of candidates drawn per suggestion.
	CandidatePool int

	// Initial trust-region length as a fraction of the global range.
	Length float64

	// LengthMin triggers a restart; LengthMax caps expansion.
	LengthMin float64
	LengthMax float64

	// Consecutive improvements before the region doubles; consecutive
	// non-improvements before it halves.
	SuccessTolerance int
	FailureTolerance int

	// Maximum registrations before the optimizer reports exhaustion.
	MaxIterations int

	// Kernel names the surrogate covariance function; empty selects
	// Matérn 5/2.
	Kernel string

	// Random seed for reproducibility; 0 seeds from the clock.
	Seed int64
}

func (c *Config) applyDefaults() {
	if c.NInit < 1 {
		c.NInit = 5
	}
	if c.CandidatePool < 1 {
		c.CandidatePool = 100
	}
	if c.Length <= 0 {
		c.Length = 0.8
	}
	if c.LengthMin <= 0 {
		c.LengthMin = 0.01
	}
	if c.LengthMax <= 0 {
		c.LengthMax = 1.6
	}
	if c.SuccessTolerance < 1 {
		c.SuccessTolerance = 3
	}
	if c.FailureTolerance < 1 {
		c.FailureTolerance = 5
	}
	if c.MaxIterations < 1 {
		c.MaxIterations = 100
	}
}

// TrustRegionState is the adaptive search-region state. It is owned
// exclusively by one Optimizer and mutated only by Register.
type TrustRegionState struct {
	Center       []float64
	Length       float64
	SuccessCount int
	FailureCount int
	BestValue    float64
	BestPoint    []float64
}

// Optimizer is a single-objective trust-region optimizer speaking the
// suggest/register protocol. It is not safe for concurrent use; the
// controller serializes access.
type Optimizer struct {
	cfg     Config
	rng     *rand.Rand
	logger  *zap.Logger
	kernel  surrogate.Kernel
	state   TrustRegionState
	history []point
	pending bool

	// Pre-generated space-filling plan consumed during initialization.
	initPlan [][]float64
}

type point struct {
	x     []float64
	value float64
}

// New creates a trust-region optimizer over the given bounds.
func New(cfg Config, logger *zap.Logger) (*Optimizer, error) {
	cfg.applyDefaults()
	if len(cfg.Bounds) == 0 {
		return nil, optimization.NewError("bounds must not be empty").
			WithComponent("turbo").WithOperation("New")
	}
	for i, b := range cfg.Bounds {
		if math.IsNaN(b[0]) || math.IsNaN(b[1]) || math.IsInf(b[0], 0) || math.IsInf(b[1], 0) || b[0] >= b[1] {
			return nil, optimization.NewErrorf("dimension %d has invalid bounds [%v, %v]", i, b[0], b[1]).
				WithComponent("turbo").WithOperation("New")
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	kernel, err := surrogate.NewKernel(cfg.Kernel, 1.0, 1.0)
	if err != nil {
		return nil, optimization.WrapError(err, "surrogate kernel").
			WithComponent("turbo").WithOperation("New")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	opt := &Optimizer{
		cfg:    cfg,
		rng:    rng,
		logger: logger.Named("turbo"),
		kernel: kernel,
		state: TrustRegionState{
			Length:    cfg.Length,
			BestValue: math.Inf(1),
		},
		initPlan: optimization.LatinHypercubeSample(rng, cfg.Bounds, cfg.NInit),
	}
	return opt, nil
}

// Suggest proposes the next candidate. During initialization it returns a
// space-filling sample over the full bounds; afterward it ranks a candidate
// pool inside the trust region with a GP surrogate. Calling Suggest twice
// without an intervening Register is a caller error.
func (o *Optimizer) Suggest() ([]float64, error) {
	if o.pending {
		return nil, optimization.ErrSuggestPending
	}

	var x []float64
	if len(o.history) < o.cfg.NInit {
		x = append([]float64(nil), o.initPlan[len(o.history)]...)
	} else {
		x = o.suggestFromSurrogate()
	}

	o.pending = true
	return x, nil
}

// suggestFromSurrogate ranks a candidate pool inside the trust region. A
// surrogate fit failure is an ordinary result, not a panic: the pool falls
// back to the unranked space-filling strategy used during initialization.
func (o *Optimizer) suggestFromSurrogate() []float64 {
	pool := o.candidatePool()

	gp, fitErr := o.fitSurrogate()
	if fitErr != nil {
		o.logger.Warn("surrogate fit failed, falling back to random candidate",
			zap.String("reason", fitErr.Error()),
			zap.Int("observations", len(o.history)))
		return pool[o.rng.Intn(len(pool))]
	}

	best := pool[0]
	bestMu := math.Inf(1)
	bestVar := 0.0
	for _, cand := range pool {
		mu, variance, err := gp.Predict(cand)
		if err != nil {
			continue
		}
		// Lower predicted cost wins; near-ties go to the more uncertain
		// candidate to keep exploring.
		if mu < bestMu-1e-9 || (math.Abs(mu-bestMu) <= 1e-9 && variance > bestVar) {
			best = cand
			bestMu = mu
			bestVar = variance
		}
	}
	return best
}

func (o *Optimizer) fitSurrogate() (*surrogate.GP, *surrogate.FitError) {
	X := make([][]float64, len(o.history))
	y := make([]float64, len(o.history))
	for i, p := range o.history {
		X[i] = p.x
		y[i] = p.value
	}
	gp := surrogate.NewGP(o.kernel, 1e-6, o.logger)
	if err := gp.Fit(X, y); err != nil {
		return nil, err
	}
	return gp, nil
}

// candidatePool draws candidates inside the trust region intersected with
// the global bounds. The region side length is Length times the global range
// per dimension, centered on the current center.
func (o *Optimizer) candidatePool() [][]float64 {
	local := o.trustRegionBounds()
	pool := optimization.LatinHypercubeSample(o.rng, local, o.cfg.CandidatePool)
	for _, x := range pool {
		optimization.Clamp(x, o.cfg.Bounds)
	}
	return pool
}

func (o *Optimizer) trustRegionBounds() [][2]float64 {
	center := o.state.Center
	if center == nil {
		center = o.state.BestPoint
	}
	local := make([][2]float64, len(o.cfg.Bounds))
	for i, b := range o.cfg.Bounds {
		span := (b[1] - b[0]) * o.state.Length / 2
		lo := math.Max(b[0], center[i]-span)
		hi := math.Min(b[1], center[i]+span)
		if lo >= hi {
			lo, hi = b[0], b[1]
		}
		local[i] = [2]float64{lo, hi}
	}
	return local
}

// Register records the observed cost for the outstanding candidate and
// updates the trust region: expansion on a success streak, shrinkage on a
// failure streak, restart at the best point when the region collapses.
func (o *Optimizer) Register(x []float64, value float64) error {
	if !o.pending {
		return optimization.ErrNoPendingSuggest
	}
	o.pending = false
	o.apply(x, value)
	return nil
}

// Replay re-applies previously recorded observations from parallel slices,
// rebuilding the trust region deterministically. Used when resuming a phase
// from persisted state.
func (o *Optimizer) Replay(X [][]float64, values []float64) {
	for i := range X {
		o.apply(X[i], values[i])
	}
}

func (o *Optimizer) apply(x []float64, value float64) {
	xCopy := append([]float64(nil), x...)
	o.history = append(o.history, point{x: xCopy, value: value})

	improved := value < o.state.BestValue
	if improved {
		o.state.BestValue = value
		o.state.BestPoint = xCopy
		o.state.Center = xCopy
		o.state.SuccessCount++
		o.state.FailureCount = 0
	} else {
		o.state.FailureCount++
		o.state.SuccessCount = 0
	}

	if o.state.SuccessCount >= o.cfg.SuccessTolerance {
		o.state.Length = math.Min(o.state.Length*2, o.cfg.LengthMax)
		o.state.SuccessCount = 0
		o.state.FailureCount = 0
		o.logger.Debug("trust region expanded", zap.Float64("length", o.state.Length))
	} else if o.state.FailureCount >= o.cfg.FailureTolerance {
		o.state.Length /= 2
		o.state.SuccessCount = 0
		o.state.FailureCount = 0
		if o.state.Length < o.cfg.LengthMin {
			// Restart: re-center on the best point found and reopen the
			// region so the search can escape a locally bad neighborhood
			// without losing the incumbent.
			o.state.Length = o.cfg.Length
			o.state.Center = o.state.BestPoint
			o.logger.Info("trust region restarted",
				zap.Float64("best_value", o.state.BestValue))
		} else {
			o.logger.Debug("trust region shrunk", zap.Float64("length", o.state.Length))
		}
	}
}

// State returns a copy of the current trust-region state.
func (o *Optimizer) State() TrustRegionState {
	s := o.state
	s.Center = append([]float64(nil), o.state.Center...)
	s.BestPoint = append([]float64(nil), o.state.BestPoint...)
	return s
}

// Length returns the current trust-region length.
func (o *Optimizer) Length() float64 { return o.state.Length }

// Best returns the best observed value and point so far.
func (o *Optimizer) Best() (float64, []float64) {
	return o.state.BestValue, append([]float64(nil), o.state.BestPoint...)
}

// Observations returns the number of registered observations.
func (o *Optimizer) Observations() int { return len(o.history) }

// Exhausted reports whether the iteration budget is spent.
func (o *Optimizer) Exhausted() bool { return len(o.history) >= o.cfg.MaxIterations }

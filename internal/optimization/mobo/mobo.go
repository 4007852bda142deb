// Package mobo implements the constrained multi-objective optimizer driving
// the global Phase II search over the joint parameter space.
package mobo

import (
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/acquisition"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/objective"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/pareto"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/surrogate"
)

// Config contains the tuning knobs for the multi-objective optimizer.
type Config struct {
	// Bounds over the joint space, possibly tightened by warm start.
	Bounds [][2]float64

	Objectives  []objective.Objective
	Constraints []objective.Constraint

	// Number of candidates scored per suggestion.
	CandidatePool int

	// Observations required before the surrogates take over from
	// space-filling sampling.
	NInit int

	// Exploration margin for the improvement criterion.
	Xi float64

	// Kernel names the surrogate covariance function; empty selects
	// Matérn 5/2.
	Kernel string

	// Random seed for reproducibility; 0 seeds from the clock.
	Seed int64
}

func (c *Config) applyDefaults() {
	if c.CandidatePool < 1 {
		c.CandidatePool = 200
	}
	if c.NInit < 1 {
		c.NInit = 5
	}
	if c.Xi <= 0 {
		c.Xi = 0.01
	}
}

// State is the serializable snapshot of an optimizer, the unit persisted
// inside the controller's state file.
type State struct {
	Bounds    [][2]float64   `json:"bounds"`
	XObserved [][]float64    `json:"x_observed"`
	YObserved [][]float64    `json:"y_observed"`
	CObserved [][]float64    `json:"c_observed"`
	Pareto    []pareto.Point `json:"pareto"`
}

// Optimizer performs feasibility-weighted expected-improvement search over
// the joint bounds, archiving feasible non-dominated points in a Pareto
// front. Not safe for concurrent use; the controller serializes access.
type Optimizer struct {
	cfg    Config
	rng    *rand.Rand
	logger *zap.Logger
	kernel surrogate.Kernel

	front *pareto.Front

	xObserved [][]float64
	yObserved [][]float64 // minimization-canonical objective vectors
	cObserved [][]float64

	pending bool
}

// New creates a multi-objective optimizer.
func New(cfg Config, logger *zap.Logger) (*Optimizer, error) {
	cfg.applyDefaults()
	if len(cfg.Bounds) == 0 {
		return nil, optimization.NewError("bounds must not be empty").
			WithComponent("mobo").WithOperation("New")
	}
	if len(cfg.Objectives) == 0 {
		return nil, optimization.NewError("at least one objective is required").
			WithComponent("mobo").WithOperation("New")
	}
	for i, b := range cfg.Bounds {
		if b[0] >= b[1] || math.IsNaN(b[0]) || math.IsNaN(b[1]) {
			return nil, optimization.NewErrorf("dimension %d has invalid bounds [%v, %v]", i, b[0], b[1]).
				WithComponent("mobo").WithOperation("New")
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	kernel, err := surrogate.NewKernel(cfg.Kernel, 1.0, 1.0)
	if err != nil {
		return nil, optimization.WrapError(err, "surrogate kernel").
			WithComponent("mobo").WithOperation("New")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Optimizer{
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
		logger: logger.Named("mobo"),
		kernel: kernel,
		front:  pareto.New(len(cfg.Objectives)),
	}, nil
}

// Register evaluates every objective and constraint against the outstanding
// trial, appends to the observed histories, and archives the point when
// feasible. Registering without an outstanding Suggest is a caller error;
// prior observations go through Seed instead.
func (o *Optimizer) Register(x []float64, m optimization.Measurements) error {
	if !o.pending {
		return optimization.ErrNoPendingSuggest
	}
	o.pending = false
	o.observe(x, m)
	return nil
}

// Seed adds a prior observation (typically mapped Phase I data) without
// touching the pending flag. Warm start funnels through here.
func (o *Optimizer) Seed(x []float64, m optimization.Measurements) {
	o.observe(x, m)
}

func (o *Optimizer) observe(x []float64, m optimization.Measurements) {
	xCopy := append([]float64(nil), x...)

	y := make([]float64, len(o.cfg.Objectives))
	for i, obj := range o.cfg.Objectives {
		v := obj.Eval.Evaluate(xCopy, m)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = objective.DegeneratePenalty
		}
		if !obj.Minimize {
			v = -v
		}
		y[i] = v
	}

	c := make([]float64, len(o.cfg.Constraints))
	feasible := true
	for i, con := range o.cfg.Constraints {
		c[i] = con.Eval.Evaluate(xCopy, m)
		if !con.Satisfied(c[i]) {
			feasible = false
		}
	}

	o.xObserved = append(o.xObserved, xCopy)
	o.yObserved = append(o.yObserved, y)
	o.cObserved = append(o.cObserved, c)

	if feasible {
		added := o.front.Add(xCopy, y)
		o.logger.Debug("feasible observation",
			zap.Bool("archived", added),
			zap.Int("front_size", o.front.Size()))
	}
}

// Suggest proposes the next candidate: a pool over the joint bounds scored
// by expected improvement on the scalarized objective, weighted by the
// probability of satisfying every constraint under per-constraint
// surrogates. Calling Suggest twice without Register is a caller error.
func (o *Optimizer) Suggest() ([]float64, error) {
	if o.pending {
		return nil, optimization.ErrSuggestPending
	}

	var x []float64
	if len(o.xObserved) < o.cfg.NInit {
		x = optimization.UniformSample(o.rng, o.cfg.Bounds)
	} else {
		x = o.suggestFromSurrogates()
	}

	o.pending = true
	return x, nil
}

func (o *Optimizer) suggestFromSurrogates() []float64 {
	pool := optimization.LatinHypercubeSample(o.rng, o.cfg.Bounds, o.cfg.CandidatePool)

	objGP, cGPs, fitErr := o.fitSurrogates()
	if fitErr != nil {
		o.logger.Warn("surrogate fit failed, falling back to random candidate",
			zap.String("reason", fitErr.Error()))
		return pool[o.rng.Intn(len(pool))]
	}

	ei := acquisition.NewExpectedImprovement(o.bestFeasibleScalar(), o.cfg.Xi)

	best := pool[0]
	bestScore := math.Inf(-1)
	for _, cand := range pool {
		mu, variance, err := objGP.Predict(cand)
		if err != nil {
			continue
		}
		score := ei.Compute(mu, math.Sqrt(variance))

		for i, gp := range cGPs {
			cMu, cVar, err := gp.Predict(cand)
			if err != nil {
				score = 0
				break
			}
			con := o.cfg.Constraints[i]
			var p float64
			if con.Kind == objective.Equality {
				p = acquisition.EqualityFeasibilityProbability(cMu, math.Sqrt(cVar), con.Threshold, con.Tol)
			} else {
				p = acquisition.FeasibilityProbability(cMu, math.Sqrt(cVar), con.Threshold)
			}
			score *= p
		}

		if score > bestScore {
			bestScore = score
			best = cand
		}
	}
	return best
}

// fitSurrogates fits one GP to the scalarized objective and one per
// constraint channel. Any failure is reported as a value for the caller to
// match on.
func (o *Optimizer) fitSurrogates() (*surrogate.GP, []*surrogate.GP, *surrogate.FitError) {
	scalar := make([]float64, len(o.yObserved))
	for i, y := range o.yObserved {
		scalar[i] = scalarize(y)
	}

	objGP := surrogate.NewGP(o.kernel, 1e-6, o.logger)
	if err := objGP.Fit(o.xObserved, scalar); err != nil {
		return nil, nil, err
	}

	cGPs := make([]*surrogate.GP, len(o.cfg.Constraints))
	for i := range o.cfg.Constraints {
		vals := make([]float64, len(o.cObserved))
		for j, c := range o.cObserved {
			vals[j] = c[i]
		}
		gp := surrogate.NewGP(o.kernel, 1e-6, o.logger)
		if err := gp.Fit(o.xObserved, vals); err != nil {
			return nil, nil, err
		}
		cGPs[i] = gp
	}
	return objGP, cGPs, nil
}

// bestFeasibleScalar returns the best scalarized objective among feasible
// observations, or +Inf when none is feasible yet (making every candidate's
// improvement positive).
func (o *Optimizer) bestFeasibleScalar() float64 {
	best := math.Inf(1)
	for i, y := range o.yObserved {
		feasible := true
		for j, con := range o.cfg.Constraints {
			if !con.Satisfied(o.cObserved[i][j]) {
				feasible = false
				break
			}
		}
		if feasible {
			if s := scalarize(y); s < best {
				best = s
			}
		}
	}
	return best
}

func scalarize(y []float64) float64 {
	total := 0.0
	for _, v := range y {
		total += v
	}
	return total
}

// Front returns the current non-dominated archive. Empty until the first
// feasible observation.
func (o *Optimizer) Front() []pareto.Point { return o.front.Points() }

// FrontSize returns the archive size.
func (o *Optimizer) FrontSize() int { return o.front.Size() }

// Observations returns the number of observed trials, seeds included.
func (o *Optimizer) Observations() int { return len(o.xObserved) }

// Bounds returns the (possibly tightened) search bounds.
func (o *Optimizer) Bounds() [][2]float64 {
	return append([][2]float64(nil), o.cfg.Bounds...)
}

// Snapshot returns the serializable optimizer state.
func (o *Optimizer) Snapshot() State {
	return State{
		Bounds:    append([][2]float64(nil), o.cfg.Bounds...),
		XObserved: append([][]float64(nil), o.xObserved...),
		YObserved: append([][]float64(nil), o.yObserved...),
		CObserved: append([][]float64(nil), o.cObserved...),
		Pareto:    o.front.Points(),
	}
}

// Restore replaces the optimizer state from a snapshot.
func (o *Optimizer) Restore(s State) {
	if len(s.Bounds) == len(o.cfg.Bounds) {
		o.cfg.Bounds = append([][2]float64(nil), s.Bounds...)
	}
	o.xObserved = append([][]float64(nil), s.XObserved...)
	o.yObserved = append([][]float64(nil), s.YObserved...)
	o.cObserved = append([][]float64(nil), s.CObserved...)
	o.front.Restore(s.Pareto)
	o.pending = false
}

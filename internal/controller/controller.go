// Package controller orchestrates the two-phase optimization pipeline: the
// per-stage trust-region phases, the global multi-objective phase, the
// ask/tell protocol with the hardware execution layer, warm-start handover,
// and state persistence.
package controller

import (
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/mobo"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/objective"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/pareto"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/turbo"
)

// Phase identifies one stage of the pipeline.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseBeLoadingTurbo  Phase = "be_loading"
	PhaseBeEjectionTurbo Phase = "be_ejection"
	PhaseHDLoadingTurbo  Phase = "hd_loading"
	PhaseGlobalMOBO      Phase = "global_mobo"
	PhaseDone            Phase = "done"
)

// phaseOrder is the automatic progression on success or budget exhaustion.
var phaseOrder = map[Phase]Phase{
	PhaseBeLoadingTurbo:  PhaseBeEjectionTurbo,
	PhaseBeEjectionTurbo: PhaseHDLoadingTurbo,
	PhaseHDLoadingTurbo:  PhaseGlobalMOBO,
	PhaseGlobalMOBO:      PhaseDone,
}

// Config contains the controller construction parameters.
type Config struct {
	// Registry supplies phase objectives; never package-level state.
	Registry *objective.Registry

	// ObjectiveOptions are per-phase keyword options forwarded to the
	// registry constructors.
	ObjectiveOptions map[Phase]objective.Options

	// PhaseBudgets caps iterations per phase; a phase also ends early when
	// its objective reports success.
	PhaseBudgets map[Phase]int

	// Turbo carries the trust-region knobs shared by all Phase I stages
	// (bounds are filled per phase from the stage's parameter space).
	Turbo turbo.Config

	// MOBO carries the Phase II knobs (bounds are filled by warm start).
	MOBO mobo.Config

	// WarmStartMargin widens the tightened per-dimension bounds by this
	// fraction of the global range on each side.
	WarmStartMargin float64

	Seed   int64
	Logger *zap.Logger
}

func (c *Config) applyDefaults() {
	if c.Registry == nil {
		c.Registry = objective.NewRegistry()
	}
	if c.PhaseBudgets == nil {
		c.PhaseBudgets = map[Phase]int{}
	}
	for _, p := range []Phase{PhaseBeLoadingTurbo, PhaseBeEjectionTurbo, PhaseHDLoadingTurbo, PhaseGlobalMOBO} {
		if c.PhaseBudgets[p] < 1 {
			c.PhaseBudgets[p] = 60
		}
	}
	if c.WarmStartMargin <= 0 {
		c.WarmStartMargin = 0.05
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Meta accompanies every suggested candidate back to the caller.
type Meta struct {
	Phase             string  `json:"phase"`
	Iteration         int     `json:"iteration"`
	TrustRegionLength float64 `json:"trust_region_length,omitempty"`
	ParetoSize        int     `json:"pareto_size,omitempty"`
}

// Status summarizes controller progress for reporting.
type Status struct {
	Phase             Phase          `json:"phase"`
	Iteration         int            `json:"iteration"`
	PhaseIterations   int            `json:"phase_iterations"`
	PendingAsk        bool           `json:"pending_ask"`
	TrustRegionLength *float64       `json:"trust_region_length,omitempty"`
	BestValue         *float64       `json:"best_value,omitempty"`
	ParetoSize        *int           `json:"pareto_size,omitempty"`
	Observations      map[string]int `json:"observations"`
}

// Controller is the two-phase pipeline orchestrator. All public methods are
// safe for concurrent use; internally every state mutation happens entirely
// within one locked call, so no in-flight state ever needs rollback.
type Controller struct {
	mu  sync.Mutex
	cfg Config
	log *zap.Logger

	phase           Phase
	iteration       int
	phaseIterations int

	pendingParams map[string]float64
	pendingVec    []float64

	phaseIData map[string][]optimization.Observation

	space *optimization.ParameterSpace
	obj   objective.ObjectiveFunction
	turbo *turbo.Optimizer
	mobo  *mobo.Optimizer
}

// New creates an idle controller.
func New(cfg Config) (*Controller, error) {
	cfg.applyDefaults()
	return &Controller{
		cfg:        cfg,
		log:        cfg.Logger.Named("controller"),
		phase:      PhaseIdle,
		phaseIData: make(map[string][]optimization.Observation),
	}, nil
}

// phaseSpace returns the parameter space a phase searches over.
func phaseSpace(p Phase) *optimization.ParameterSpace {
	switch p {
	case PhaseBeLoadingTurbo:
		return optimization.BeLoadingSpace()
	case PhaseBeEjectionTurbo:
		return optimization.BeEjectionSpace()
	case PhaseHDLoadingTurbo:
		return optimization.HDLoadingSpace()
	case PhaseGlobalMOBO:
		return optimization.JointSpace()
	}
	return nil
}

// phaseObjectiveName returns the registry key for a phase's objective.
func phaseObjectiveName(p Phase) string {
	switch p {
	case PhaseBeLoadingTurbo:
		return "be_loading"
	case PhaseBeEjectionTurbo:
		return "be_ejection"
	case PhaseHDLoadingTurbo:
		return "hd_loading"
	case PhaseGlobalMOBO:
		return "global"
	}
	return ""
}

// isPhaseI reports whether a phase runs the trust-region optimizer.
func isPhaseI(p Phase) bool {
	return p == PhaseBeLoadingTurbo || p == PhaseBeEjectionTurbo || p == PhaseHDLoadingTurbo
}

// StartPhase is the only legal transition entry point. It instantiates the
// phase's parameter space, objective, and optimizer; entering the global
// phase performs the warm-start handover from Phase I data. Configuration
// errors prevent the phase from starting.
func (c *Controller) StartPhase(p Phase) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startPhaseLocked(p)
}

func (c *Controller) startPhaseLocked(p Phase) error {
	const op = "StartPhase"

	switch p {
	case PhaseDone, PhaseIdle:
		c.phase = p
		c.space = nil
		c.obj = nil
		c.turbo = nil
		c.pendingParams = nil
		c.pendingVec = nil
		c.phaseIterations = 0
		c.log.Info("phase entered", zap.String("phase", string(p)))
		return nil
	case PhaseBeLoadingTurbo, PhaseBeEjectionTurbo, PhaseHDLoadingTurbo, PhaseGlobalMOBO:
	default:
		return optimization.NewErrorf("unknown phase %q", p).WithComponent("controller").WithOperation(op)
	}

	space := phaseSpace(p)
	obj, err := c.cfg.Registry.Create(phaseObjectiveName(p), c.cfg.ObjectiveOptions[p])
	if err != nil {
		return optimization.WrapErrorf(err, "phase %q objective", p).WithComponent("controller").WithOperation(op)
	}

	if isPhaseI(p) {
		tCfg := c.cfg.Turbo
		tCfg.Bounds = space.BoundsList()
		tCfg.MaxIterations = c.cfg.PhaseBudgets[p]
		if tCfg.Seed == 0 {
			tCfg.Seed = c.cfg.Seed
		}
		opt, err := turbo.New(tCfg, c.log)
		if err != nil {
			return optimization.WrapErrorf(err, "phase %q optimizer", p).WithComponent("controller").WithOperation(op)
		}
		c.turbo = opt
	} else {
		multi, ok := obj.(objective.MultiObjective)
		if !ok {
			return optimization.NewErrorf("phase %q objective does not expose objectives/constraints", p).
				WithComponent("controller").WithOperation(op)
		}
		bounds, seeds := c.warmStartLocked(space)
		mCfg := c.cfg.MOBO
		mCfg.Bounds = bounds
		mCfg.Objectives = multi.Objectives()
		mCfg.Constraints = multi.Constraints()
		if mCfg.Seed == 0 {
			mCfg.Seed = c.cfg.Seed
		}
		opt, err := mobo.New(mCfg, c.log)
		if err != nil {
			return optimization.WrapErrorf(err, "phase %q optimizer", p).WithComponent("controller").WithOperation(op)
		}
		for _, s := range seeds {
			opt.Seed(s.x, s.m)
		}
		c.mobo = opt
		c.turbo = nil
		c.log.Info("warm start complete",
			zap.Int("seeded_observations", len(seeds)),
			zap.Int("dimensions", space.Dim()))
	}

	c.phase = p
	c.space = space
	c.obj = obj
	c.pendingParams = nil
	c.pendingVec = nil
	c.phaseIterations = 0
	c.log.Info("phase entered", zap.String("phase", string(p)))
	return nil
}

type seedObservation struct {
	x []float64
	m optimization.Measurements
}

// warmStartLocked computes tightened per-dimension bounds over all Phase I
// parameter values and maps every Phase I observation into the joint vector
// so the global search never starts cold. Dimensions no Phase I stage
// touched keep their full configured bounds.
func (c *Controller) warmStartLocked(joint *optimization.ParameterSpace) ([][2]float64, []seedObservation) {
	global := joint.BoundsList()
	names := joint.Names()

	observed := make(map[string][2]float64) // name -> (min, max) over Phase I data
	for _, observations := range c.phaseIData {
		for _, obs := range observations {
			for name, v := range obs.Params {
				if mm, ok := observed[name]; ok {
					observed[name] = [2]float64{math.Min(mm[0], v), math.Max(mm[1], v)}
				} else {
					observed[name] = [2]float64{v, v}
				}
			}
		}
	}

	bounds := make([][2]float64, len(names))
	for i, name := range names {
		g := global[i]
		mm, ok := observed[name]
		if !ok {
			bounds[i] = g
			continue
		}
		margin := c.cfg.WarmStartMargin * (g[1] - g[0])
		lo := math.Max(g[0], mm[0]-margin)
		hi := math.Min(g[1], mm[1]+margin)
		if hi-lo < 1e-12 {
			// Degenerate observed range: widen around the center, staying
			// inside the global bounds, so lower < upper holds.
			center := (lo + hi) / 2
			half := math.Max(margin, 1e-6*(g[1]-g[0]))
			lo = math.Max(g[0], center-half)
			hi = math.Min(g[1], center+half)
			if hi-lo < 1e-12 {
				lo, hi = g[0], g[1]
			}
		}
		bounds[i] = [2]float64{lo, hi}
	}

	var seeds []seedObservation
	defaults := joint.Defaults()
	for _, observations := range c.phaseIData {
		for _, obs := range observations {
			x := append([]float64(nil), defaults...)
			for i, name := range names {
				if v, ok := obs.Params[name]; ok {
					x[i] = v
				}
			}
			seeds = append(seeds, seedObservation{x: x, m: obs.Measurements})
		}
	}
	return bounds, seeds
}

// Ask returns the next candidate parameter dictionary and its metadata.
// Calling Ask while a candidate is outstanding is a caller error.
func (c *Controller) Ask() (map[string]float64, Meta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pendingParams != nil {
		return nil, Meta{}, optimization.ErrSuggestPending
	}

	var (
		x   []float64
		err error
	)
	switch {
	case isPhaseI(c.phase):
		x, err = c.turbo.Suggest()
	case c.phase == PhaseGlobalMOBO:
		x, err = c.mobo.Suggest()
	default:
		return nil, Meta{}, optimization.NewErrorf("no active optimization phase (current: %s)", c.phase).
			WithComponent("controller").WithOperation("Ask")
	}
	if err != nil {
		return nil, Meta{}, err
	}

	params, err := c.space.ArrayToDict(x)
	if err != nil {
		return nil, Meta{}, err
	}

	c.pendingVec = x
	c.pendingParams = params

	meta := Meta{Phase: string(c.phase), Iteration: c.iteration}
	if c.turbo != nil {
		meta.TrustRegionLength = c.turbo.Length()
	}
	if c.phase == PhaseGlobalMOBO {
		meta.ParetoSize = c.mobo.FrontSize()
	}
	return params, meta, nil
}

// Tell reports the measurement record for the outstanding candidate. It
// scores the trial, feeds the active optimizer, and advances the phase when
// the objective reports success or the phase budget is exhausted.
func (c *Controller) Tell(m optimization.Measurements) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pendingParams == nil {
		return optimization.ErrNoPendingSuggest
	}

	cost, components := c.obj.ComputeCost(c.pendingParams, m)

	switch {
	case isPhaseI(c.phase):
		if err := c.turbo.Register(c.pendingVec, cost); err != nil {
			return err
		}
		c.phaseIData[string(c.phase)] = append(c.phaseIData[string(c.phase)], optimization.Observation{
			Params:       c.pendingParams,
			Value:        cost,
			Measurements: m,
			Timestamp:    time.Now().UTC(),
		})
	case c.phase == PhaseGlobalMOBO:
		if err := c.mobo.Register(c.pendingVec, m); err != nil {
			return err
		}
	}

	c.iteration++
	c.phaseIterations++
	c.pendingParams = nil
	c.pendingVec = nil

	c.log.Debug("trial registered",
		zap.String("phase", string(c.phase)),
		zap.Int("iteration", c.iteration),
		zap.Float64("cost", cost),
		zap.Any("components", components))

	if c.obj.IsSuccess(m) {
		c.log.Info("phase goal met", zap.String("phase", string(c.phase)))
		return c.startPhaseLocked(phaseOrder[c.phase])
	}
	if c.phaseIterations >= c.cfg.PhaseBudgets[c.phase] {
		c.log.Info("phase budget exhausted", zap.String("phase", string(c.phase)))
		return c.startPhaseLocked(phaseOrder[c.phase])
	}
	return nil
}

// GetStatus reports the controller's progress.
func (c *Controller) GetStatus() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := Status{
		Phase:           c.phase,
		Iteration:       c.iteration,
		PhaseIterations: c.phaseIterations,
		PendingAsk:      c.pendingParams != nil,
		Observations:    make(map[string]int, len(c.phaseIData)),
	}
	for name, observations := range c.phaseIData {
		st.Observations[name] = len(observations)
	}
	if c.turbo != nil {
		l := c.turbo.Length()
		st.TrustRegionLength = &l
		if best, _ := c.turbo.Best(); !math.IsInf(best, 1) {
			st.BestValue = &best
		}
	}
	if c.mobo != nil {
		n := c.mobo.FrontSize()
		st.ParetoSize = &n
	}
	return st
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// ParetoFront returns the global phase's current trade-off archive. Empty
// before the global phase has any feasible observation.
func (c *Controller) ParetoFront() []pareto.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mobo == nil {
		return nil
	}
	return c.mobo.Front()
}

// MOBOBounds returns the global phase's (tightened) search bounds, nil when
// the global phase has not started.
func (c *Controller) MOBOBounds() [][2]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mobo == nil {
		return nil
	}
	return c.mobo.Bounds()
}

// MOBOObservations returns the global optimizer's observation count, 0 when
// the global phase has not started.
func (c *Controller) MOBOObservations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.mobo == nil {
		return 0
	}
	return c.mobo.Observations()
}

package controller

import (
	"encoding/json"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/mobo"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/objective"
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization/turbo"
)

// stateVersion guards the persisted format. Loading a different version is
// an explicit failure, never a silent partial restore.
const stateVersion = 1

type persistedState struct {
	Version         int                                   `json:"version"`
	Phase           Phase                                 `json:"phase"`
	Iteration       int                                   `json:"iteration"`
	PhaseIterations int                                   `json:"phase_iterations"`
	PhaseIData      map[string][]optimization.Observation `json:"phase_i_data"`
	MOBO            *mobo.State                           `json:"mobo,omitempty"`
}

// SaveState writes a complete session snapshot to path. The write is atomic:
// the snapshot goes to a temporary file in the same directory and is renamed
// into place, so a crash mid-write never corrupts an existing state file.
// An outstanding ask is not persisted; after a resume the caller simply asks
// again.
func (c *Controller) SaveState(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	const op = "SaveState"

	st := persistedState{
		Version:         stateVersion,
		Phase:           c.phase,
		Iteration:       c.iteration,
		PhaseIterations: c.phaseIterations,
		PhaseIData:      c.phaseIData,
	}
	if c.mobo != nil {
		snap := c.mobo.Snapshot()
		st.MOBO = &snap
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return optimization.WrapError(err, "encode state").WithComponent("controller").WithOperation(op)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return optimization.WrapError(err, "create state directory").WithComponent("controller").WithOperation(op)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return optimization.WrapError(err, "create temp state file").WithComponent("controller").WithOperation(op)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return optimization.WrapError(err, "write state").WithComponent("controller").WithOperation(op)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return optimization.WrapError(err, "close state file").WithComponent("controller").WithOperation(op)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return optimization.WrapError(err, "replace state file").WithComponent("controller").WithOperation(op)
	}

	c.log.Info("state saved",
		zap.String("path", path),
		zap.String("phase", string(c.phase)),
		zap.Int("iteration", c.iteration))
	return nil
}

// LoadState restores a session snapshot from path and rebuilds the active
// phase machinery: a Phase I resume replays the recorded observations through
// a fresh trust-region optimizer, a global-phase resume restores the
// multi-objective optimizer from its snapshot. A missing file, corrupt JSON,
// or version mismatch fails explicitly and leaves the controller untouched.
func (c *Controller) LoadState(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	const op = "LoadState"

	data, err := os.ReadFile(path)
	if err != nil {
		return optimization.WrapError(err, "read state file").WithComponent("controller").WithOperation(op)
	}
	var st persistedState
	if err := json.Unmarshal(data, &st); err != nil {
		return optimization.WrapError(err, "decode state file").WithComponent("controller").WithOperation(op)
	}
	if st.Version != stateVersion {
		return optimization.NewErrorf("state version %d, expected %d", st.Version, stateVersion).
			WithComponent("controller").WithOperation(op)
	}

	switch st.Phase {
	case PhaseIdle, PhaseBeLoadingTurbo, PhaseBeEjectionTurbo, PhaseHDLoadingTurbo, PhaseGlobalMOBO, PhaseDone:
	default:
		return optimization.NewErrorf("state file names unknown phase %q", st.Phase).
			WithComponent("controller").WithOperation(op)
	}

	phaseIData := st.PhaseIData
	if phaseIData == nil {
		phaseIData = make(map[string][]optimization.Observation)
	}

	switch {
	case isPhaseI(st.Phase):
		if err := c.resumePhaseI(st, phaseIData); err != nil {
			return err
		}
	case st.Phase == PhaseGlobalMOBO:
		if err := c.resumeGlobal(st); err != nil {
			return err
		}
	default:
		c.space = nil
		c.obj = nil
		c.turbo = nil
		c.mobo = nil
	}

	c.phase = st.Phase
	c.iteration = st.Iteration
	c.phaseIterations = st.PhaseIterations
	c.phaseIData = phaseIData
	c.pendingParams = nil
	c.pendingVec = nil

	c.log.Info("state loaded",
		zap.String("path", path),
		zap.String("phase", string(st.Phase)),
		zap.Int("iteration", st.Iteration))
	return nil
}

// resumePhaseI rebuilds a trust-region phase mid-flight by replaying the
// persisted observations in order.
func (c *Controller) resumePhaseI(st persistedState, data map[string][]optimization.Observation) error {
	const op = "LoadState"
	space := phaseSpace(st.Phase)
	obj, err := c.cfg.Registry.Create(phaseObjectiveName(st.Phase), c.cfg.ObjectiveOptions[st.Phase])
	if err != nil {
		return optimization.WrapErrorf(err, "phase %q objective", st.Phase).WithComponent("controller").WithOperation(op)
	}

	tCfg := c.cfg.Turbo
	tCfg.Bounds = space.BoundsList()
	tCfg.MaxIterations = c.cfg.PhaseBudgets[st.Phase]
	if tCfg.Seed == 0 {
		tCfg.Seed = c.cfg.Seed
	}
	opt, err := turbo.New(tCfg, c.log)
	if err != nil {
		return optimization.WrapErrorf(err, "phase %q optimizer", st.Phase).WithComponent("controller").WithOperation(op)
	}

	observations := data[string(st.Phase)]
	X := make([][]float64, 0, len(observations))
	values := make([]float64, 0, len(observations))
	for _, obs := range observations {
		x, err := space.DictToArray(obs.Params)
		if err != nil {
			return optimization.WrapErrorf(err, "phase %q persisted observation", st.Phase).
				WithComponent("controller").WithOperation(op)
		}
		X = append(X, x)
		values = append(values, obs.Value)
	}
	opt.Replay(X, values)

	c.space = space
	c.obj = obj
	c.turbo = opt
	c.mobo = nil
	return nil
}

// resumeGlobal rebuilds the multi-objective phase from its snapshot without
// re-running warm start, so seeded observations are not duplicated.
func (c *Controller) resumeGlobal(st persistedState) error {
	const op = "LoadState"
	if st.MOBO == nil {
		return optimization.NewError("state file lacks the global optimizer snapshot").
			WithComponent("controller").WithOperation(op)
	}

	space := phaseSpace(PhaseGlobalMOBO)
	obj, err := c.cfg.Registry.Create(phaseObjectiveName(PhaseGlobalMOBO), c.cfg.ObjectiveOptions[PhaseGlobalMOBO])
	if err != nil {
		return optimization.WrapError(err, "global objective").WithComponent("controller").WithOperation(op)
	}
	multi, ok := obj.(objective.MultiObjective)
	if !ok {
		return optimization.NewError("global objective does not expose objectives/constraints").
			WithComponent("controller").WithOperation(op)
	}

	mCfg := c.cfg.MOBO
	mCfg.Bounds = st.MOBO.Bounds
	mCfg.Objectives = multi.Objectives()
	mCfg.Constraints = multi.Constraints()
	if mCfg.Seed == 0 {
		mCfg.Seed = c.cfg.Seed
	}
	opt, err := mobo.New(mCfg, c.log)
	if err != nil {
		return optimization.WrapError(err, "global optimizer").WithComponent("controller").WithOperation(op)
	}
	opt.Restore(*st.MOBO)

	c.space = space
	c.obj = obj
	c.mobo = opt
	c.turbo = nil
	return nil
}

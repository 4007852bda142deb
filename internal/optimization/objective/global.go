package objective

import (
	"math"

	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization"
)

// GlobalObjective drives the joint Phase II search. It trades off cycle
// time, HD+ yield, and trap heating as Pareto axes, constrained to
// configurations that keep the exact target ion count and a minimum
// fluorescence signal.
type GlobalObjective struct {
	TargetIonCount  float64
	MinFluorescence float64

	objectives  []Objective
	constraints []Constraint
}

// NewGlobalObjective builds the Phase II objective set. Recognized options:
// target_ion_count, min_fluorescence, max_trap_heating.
func NewGlobalObjective(opts Options) *GlobalObjective {
	o := &GlobalObjective{
		TargetIonCount:  opts.Get("target_ion_count", 1),
		MinFluorescence: opts.Get("min_fluorescence", 100),
	}

	o.objectives = []Objective{
		{
			Name:     "cycle_time_ms",
			Minimize: true,
			Eval: EvaluatorFunc(func(x []float64, m optimization.Measurements) float64 {
				return m.GetOr("total_time_ms", 1e6)
			}),
		},
		{
			Name:     "hd_yield",
			Minimize: false,
			Eval: EvaluatorFunc(func(x []float64, m optimization.Measurements) float64 {
				return m.GetOr("hd_yield", 0)
			}),
		},
		{
			Name:     "trap_heating",
			Minimize: true,
			Eval: EvaluatorFunc(func(x []float64, m optimization.Measurements) float64 {
				return m.GetOr("trap_heating", 1e6)
			}),
		},
	}

	o.constraints = []Constraint{
		{
			Name:      "ion_count",
			Kind:      Equality,
			Threshold: o.TargetIonCount,
			Tol:       0.5, // counts are integers, half a count means exact
			Eval: EvaluatorFunc(func(x []float64, m optimization.Measurements) float64 {
				return m.GetOr("ion_count", -1)
			}),
		},
		{
			Name:      "fluorescence",
			Kind:      Inequality,
			Threshold: -o.MinFluorescence, // -signal <= -min, i.e. signal >= min
			Eval: EvaluatorFunc(func(x []float64, m optimization.Measurements) float64 {
				return -m.GetOr("total_fluorescence", 0)
			}),
		},
	}

	return o
}

// Objectives returns the Pareto axes, in canonical order.
func (o *GlobalObjective) Objectives() []Objective { return o.objectives }

// Constraints returns the feasibility conditions.
func (o *GlobalObjective) Constraints() []Constraint { return o.constraints }

// ComputeCost scalarizes the objective vector for logging and status
// reporting; the MOBO search itself works on the vector form.
func (o *GlobalObjective) ComputeCost(params map[string]float64, m optimization.Measurements) (float64, map[string]float64) {
	components := make(map[string]float64, len(o.objectives))
	total := 0.0
	for _, obj := range o.objectives {
		v := finite(obj.Eval.Evaluate(nil, m), DegeneratePenalty)
		if !obj.Minimize {
			v = -v
		}
		components[obj.Name] = v
		total += v
	}
	return finite(total, DegeneratePenalty), components
}

// IsSuccess holds when every constraint is met and the HD+ yield target is
// reached; the controller then retires the pipeline to DONE.
func (o *GlobalObjective) IsSuccess(m optimization.Measurements) bool {
	for _, c := range o.constraints {
		if !c.Satisfied(c.Eval.Evaluate(nil, m)) {
			return false
		}
	}
	yield, ok := m.Get("hd_yield")
	return ok && yield >= 1 && !math.IsNaN(yield)
}

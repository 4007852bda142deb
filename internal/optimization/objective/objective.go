// Package objective maps raw measurement records onto scalar costs and
// multi-objective/constraint vectors, one objective per pipeline phase.
package objective

import (
	"math"

	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization"
)

// DegeneratePenalty is the cost assigned when a required measurement channel
// is missing or non-numeric. A dropped trial must never crash the loop, it
// just scores badly.
const DegeneratePenalty = 1000.0

// ObjectiveFunction scalarizes one trial's measurements into a cost.
// Implementations must always return a finite total, even for degenerate
// measurement records.
type ObjectiveFunction interface {
	// ComputeCost returns the total cost and the named penalty components
	// it was assembled from.
	ComputeCost(params map[string]float64, m optimization.Measurements) (total float64, components map[string]float64)

	// IsSuccess reports whether the phase goal is met, triggering the
	// controller's automatic phase transition.
	IsSuccess(m optimization.Measurements) bool
}

// Evaluator computes one named objective or constraint value from a trial.
type Evaluator interface {
	Evaluate(x []float64, m optimization.Measurements) float64
}

// EvaluatorFunc adapts a plain function to the Evaluator interface.
type EvaluatorFunc func(x []float64, m optimization.Measurements) float64

func (f EvaluatorFunc) Evaluate(x []float64, m optimization.Measurements) float64 {
	return f(x, m)
}

// Objective is one named axis of a multi-objective phase.
type Objective struct {
	Name     string
	Minimize bool
	Eval     Evaluator
}

// ConstraintKind distinguishes inequality from equality constraints.
type ConstraintKind string

const (
	Inequality ConstraintKind = "inequality"
	Equality   ConstraintKind = "equality"
)

// Constraint is one named feasibility condition of a multi-objective phase.
// Inequality constraints require value <= Threshold; equality constraints
// require |value - Threshold| <= Tol.
type Constraint struct {
	Name      string
	Kind      ConstraintKind
	Threshold float64
	Tol       float64
	Eval      Evaluator
}

// Satisfied reports whether an observed constraint value meets the condition.
func (c Constraint) Satisfied(value float64) bool {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return false
	}
	switch c.Kind {
	case Equality:
		return math.Abs(value-c.Threshold) <= c.Tol
	default:
		return value <= c.Threshold
	}
}

// MultiObjective is implemented by objectives that additionally expose
// vector-valued objectives and constraints for the global phase.
type MultiObjective interface {
	ObjectiveFunction
	Objectives() []Objective
	Constraints() []Constraint
}

// finite replaces NaN/Inf with a fallback so cost totals stay computable.
func finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Package pareto maintains the non-dominated archive shared by the global
// multi-objective phase.
package pareto

// Point is one archived trade-off configuration. Objective vectors are in
// minimization form.
type Point struct {
	Params     []float64 `json:"params"`
	Objectives []float64 `json:"objectives"`
	Feasible   bool      `json:"feasible"`
}

// Front holds a set of points such that no archived point dominates another.
// The invariant is enforced on every insertion.
type Front struct {
	nObjectives int
	points      []Point
}

// New creates an empty front for the given number of objectives.
func New(nObjectives int) *Front {
	return &Front{nObjectives: nObjectives}
}

// Dominates reports whether a dominates b under minimization: a <= b in
// every component and a < b in at least one. Equal vectors never dominate
// each other, and dominance is irreflexive.
func Dominates(a, b []float64) bool {
	strictly := false
	for i := range a {
		if a[i] > b[i] {
			return false
		}
		if a[i] < b[i] {
			strictly = true
		}
	}
	return strictly
}

// Add attempts to insert a candidate. It returns false and leaves the
// archive unchanged when any archived point dominates the candidate;
// otherwise it inserts the candidate, evicting every point the candidate
// dominates.
func (f *Front) Add(params, objectives []float64) bool {
	if len(objectives) != f.nObjectives {
		return false
	}

	for _, p := range f.points {
		if Dominates(p.Objectives, objectives) {
			return false
		}
	}

	kept := f.points[:0]
	for _, p := range f.points {
		if !Dominates(objectives, p.Objectives) {
			kept = append(kept, p)
		}
	}
	f.points = append(kept, Point{
		Params:     append([]float64(nil), params...),
		Objectives: append([]float64(nil), objectives...),
		Feasible:   true,
	})
	return true
}

// Points returns the archive in insertion order.
func (f *Front) Points() []Point {
	return append([]Point(nil), f.points...)
}

// Size returns the number of archived points.
func (f *Front) Size() int { return len(f.points) }

// NObjectives returns the dimensionality of the objective vectors.
func (f *Front) NObjectives() int { return f.nObjectives }

// Restore replaces the archive contents, re-checking the dominance
// invariant. Used when loading persisted state.
func (f *Front) Restore(points []Point) {
	f.points = f.points[:0]
	for _, p := range points {
		f.Add(p.Params, p.Objectives)
	}
}

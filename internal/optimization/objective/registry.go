package objective

import (
	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization"
)

// Options carries named tuning knobs for an objective constructor, the
// spiritual equivalent of keyword arguments. Constructors read the keys they
// understand and fall back to defaults for the rest.
type Options map[string]float64

// Get returns the named option or def when absent.
func (o Options) Get(name string, def float64) float64 {
	if o == nil {
		return def
	}
	if v, ok := o[name]; ok {
		return v
	}
	return def
}

// Constructor builds an objective from options.
type Constructor func(opts Options) (ObjectiveFunction, error)

// Registry maps objective names to constructors. It is an explicit object
// handed to the controller at construction time, not package-level state,
// so tests and alternate deployments can carry independent registries.
type Registry struct {
	ctors map[string]Constructor
}

// NewRegistry returns a registry pre-populated with the built-in phase
// objectives.
func NewRegistry() *Registry {
	r := &Registry{ctors: make(map[string]Constructor)}
	r.Register("be_loading", func(opts Options) (ObjectiveFunction, error) {
		return NewBeLoadingObjective(opts), nil
	})
	r.Register("be_ejection", func(opts Options) (ObjectiveFunction, error) {
		return NewBeEjectionObjective(opts), nil
	})
	r.Register("hd_loading", func(opts Options) (ObjectiveFunction, error) {
		return NewHDLoadingObjective(opts), nil
	})
	r.Register("global", func(opts Options) (ObjectiveFunction, error) {
		return NewGlobalObjective(opts), nil
	})
	return r
}

// Register adds a named constructor. Re-registering a name replaces the
// previous constructor.
func (r *Registry) Register(name string, ctor Constructor) {
	r.ctors[name] = ctor
}

// Create is the sole construction entry point for objectives. Unknown names
// are configuration errors.
func (r *Registry) Create(name string, opts Options) (ObjectiveFunction, error) {
	ctor, ok := r.ctors[name]
	if !ok {
		return nil, optimization.NewErrorf("objective %q is not registered", name).
			WithComponent("objective_registry").WithOperation("Create")
	}
	return ctor(opts)
}

// Names returns the registered objective names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.ctors))
	for name := range r.ctors {
		names = append(names, name)
	}
	return names
}

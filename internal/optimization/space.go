package optimization

import (
	"math"
)

// ParameterType classifies how a parameter value is interpreted by the
// hardware layer. The optimizer treats every dimension as continuous; the
// type is carried for the execution layer's benefit.
type ParameterType string

const (
	ParameterContinuous  ParameterType = "continuous"
	ParameterInteger     ParameterType = "integer"
	ParameterCategorical ParameterType = "categorical"
	ParameterTimeWindow  ParameterType = "time-window"
)

// ParameterConfig describes a single named, bounded tuning parameter.
type ParameterConfig struct {
	Name        string
	Type        ParameterType
	Min         float64
	Max         float64
	Default     float64
	Unit        string
	Description string
}

// ParameterSpace is an ordered, immutable set of parameter definitions. It
// owns the vector layout: index i of any parameter vector corresponds to the
// i-th declared parameter.
type ParameterSpace struct {
	names   []string
	configs map[string]ParameterConfig
}

// NewParameterSpace builds a space from the given configs in declaration
// order. Bounds must be finite with Min < Max and names unique; anything
// else is a configuration error that prevents the phase from starting.
func NewParameterSpace(configs ...ParameterConfig) (*ParameterSpace, error) {
	const op = "NewParameterSpace"

	s := &ParameterSpace{
		names:   make([]string, 0, len(configs)),
		configs: make(map[string]ParameterConfig, len(configs)),
	}
	for _, cfg := range configs {
		if cfg.Name == "" {
			return nil, NewError("parameter name must not be empty").WithOperation(op)
		}
		if _, dup := s.configs[cfg.Name]; dup {
			return nil, NewErrorf("duplicate parameter %q", cfg.Name).WithOperation(op)
		}
		if math.IsNaN(cfg.Min) || math.IsNaN(cfg.Max) || math.IsInf(cfg.Min, 0) || math.IsInf(cfg.Max, 0) {
			return nil, NewErrorf("parameter %q has non-finite bounds", cfg.Name).WithOperation(op)
		}
		if cfg.Min >= cfg.Max {
			return nil, NewErrorf("parameter %q has inverted bounds [%v, %v]", cfg.Name, cfg.Min, cfg.Max).WithOperation(op)
		}
		if cfg.Type == "" {
			cfg.Type = ParameterContinuous
		}
		s.names = append(s.names, cfg.Name)
		s.configs[cfg.Name] = cfg
	}
	return s, nil
}

// Dim returns the number of parameters in the space.
func (s *ParameterSpace) Dim() int { return len(s.names) }

// Names returns the parameter names in canonical vector order.
func (s *ParameterSpace) Names() []string {
	return append([]string(nil), s.names...)
}

// Config returns the definition of a named parameter.
func (s *ParameterSpace) Config(name string) (ParameterConfig, bool) {
	cfg, ok := s.configs[name]
	return cfg, ok
}

// BoundsList returns the ordered (lo, hi) bounds matching the vector layout.
func (s *ParameterSpace) BoundsList() [][2]float64 {
	bounds := make([][2]float64, len(s.names))
	for i, name := range s.names {
		cfg := s.configs[name]
		bounds[i] = [2]float64{cfg.Min, cfg.Max}
	}
	return bounds
}

// Defaults returns the configured default for each dimension in vector order.
func (s *ParameterSpace) Defaults() []float64 {
	d := make([]float64, len(s.names))
	for i, name := range s.names {
		d[i] = s.configs[name].Default
	}
	return d
}

// DictToArray encodes a parameter dictionary into the canonical vector.
// Every key must be declared in this space; missing parameters take their
// configured default. Values outside the declared bounds are not rejected
// here, bound clipping is the optimizer's responsibility.
func (s *ParameterSpace) DictToArray(params map[string]float64) ([]float64, error) {
	for name := range params {
		if _, ok := s.configs[name]; !ok {
			return nil, &UnknownParameterError{Name: name}
		}
	}
	v := make([]float64, len(s.names))
	for i, name := range s.names {
		if val, ok := params[name]; ok {
			v[i] = val
		} else {
			v[i] = s.configs[name].Default
		}
	}
	return v, nil
}

// ArrayToDict decodes a canonical vector back into a parameter dictionary.
// Total and lossless for any vector of the correct dimensionality.
func (s *ParameterSpace) ArrayToDict(v []float64) (map[string]float64, error) {
	if len(v) != len(s.names) {
		return nil, NewErrorf("vector has %d dimensions, space has %d", len(v), len(s.names)).
			WithOperation("ArrayToDict")
	}
	params := make(map[string]float64, len(v))
	for i, name := range s.names {
		params[name] = v[i]
	}
	return params, nil
}

// Domain-specific spaces. These are configuration data, not algorithm: the
// bounds mirror the apparatus limits the loading sequence runs under.

// BeLoadingSpace describes the Be+ loading stage parameters.
func BeLoadingSpace() *ParameterSpace {
	s, err := NewParameterSpace(
		ParameterConfig{Name: "oven_current", Type: ParameterContinuous, Min: 1.5, Max: 3.5, Default: 2.2, Unit: "A", Description: "Be oven heating current"},
		ParameterConfig{Name: "load_time_ms", Type: ParameterTimeWindow, Min: 50, Max: 2000, Default: 500, Unit: "ms", Description: "loading window duration"},
		ParameterConfig{Name: "cooling_power_uw", Type: ParameterContinuous, Min: 1, Max: 200, Default: 50, Unit: "uW", Description: "Doppler cooling beam power"},
		ParameterConfig{Name: "ionization_power_uw", Type: ParameterContinuous, Min: 5, Max: 500, Default: 100, Unit: "uW", Description: "photoionization beam power"},
		ParameterConfig{Name: "secular_drive_amp", Type: ParameterContinuous, Min: 0.01, Max: 1.0, Default: 0.2, Unit: "", Description: "secular excitation amplitude"},
	)
	if err != nil {
		panic(err) // static configuration, cannot fail
	}
	return s
}

// BeEjectionSpace describes the excess-ion ejection stage parameters.
func BeEjectionSpace() *ParameterSpace {
	s, err := NewParameterSpace(
		ParameterConfig{Name: "eject_pulse_v", Type: ParameterContinuous, Min: 0.1, Max: 10, Default: 2, Unit: "V", Description: "ejection pulse amplitude"},
		ParameterConfig{Name: "eject_duration_us", Type: ParameterTimeWindow, Min: 1, Max: 500, Default: 50, Unit: "us", Description: "ejection pulse duration"},
		ParameterConfig{Name: "tickle_freq_khz", Type: ParameterContinuous, Min: 100, Max: 800, Default: 320, Unit: "kHz", Description: "parametric tickle frequency"},
		ParameterConfig{Name: "tickle_amp", Type: ParameterContinuous, Min: 0.01, Max: 1.0, Default: 0.1, Unit: "", Description: "tickle drive amplitude"},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// HDLoadingSpace describes the HD+ (dark species) loading stage parameters.
func HDLoadingSpace() *ParameterSpace {
	s, err := NewParameterSpace(
		ParameterConfig{Name: "hd_pressure_e9mbar", Type: ParameterContinuous, Min: 0.1, Max: 50, Default: 5, Unit: "1e-9 mbar", Description: "HD gas inlet pressure"},
		ParameterConfig{Name: "hd_exposure_ms", Type: ParameterTimeWindow, Min: 10, Max: 5000, Default: 800, Unit: "ms", Description: "HD exposure window"},
		ParameterConfig{Name: "sweep_start_khz", Type: ParameterContinuous, Min: 400, Max: 900, Default: 600, Unit: "kHz", Description: "secular sweep start frequency"},
		ParameterConfig{Name: "sweep_span_khz", Type: ParameterContinuous, Min: 10, Max: 300, Default: 100, Unit: "kHz", Description: "secular sweep span"},
		ParameterConfig{Name: "repump_power_uw", Type: ParameterContinuous, Min: 1, Max: 100, Default: 20, Unit: "uW", Description: "repump beam power"},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// JointSpace is the union of all stage spaces, used by the global phase.
// Stage spaces have disjoint parameter names so the union is well defined.
func JointSpace() *ParameterSpace {
	var configs []ParameterConfig
	for _, sub := range []*ParameterSpace{BeLoadingSpace(), BeEjectionSpace(), HDLoadingSpace()} {
		for _, name := range sub.names {
			configs = append(configs, sub.configs[name])
		}
	}
	s, err := NewParameterSpace(configs...)
	if err != nil {
		panic(err)
	}
	return s
}

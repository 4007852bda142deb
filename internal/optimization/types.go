package optimization

import (
	"math"
	"time"
)

// Measurements is one raw measurement record returned by the hardware
// execution layer for a single trial. Keys are phase-specific channel names
// (ion_count, secular_freq, total_time_ms, sweep_peak_found, ...). Boolean
// channels are encoded as 0/1.
type Measurements map[string]float64

// Get returns the named channel value. Missing or non-finite values are
// reported as not ok so objective functions can absorb degenerate trials
// with a penalty instead of failing.
func (m Measurements) Get(name string) (float64, bool) {
	v, ok := m[name]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// GetOr returns the named channel value, or def when it is missing or
// non-finite.
func (m Measurements) GetOr(name string, def float64) float64 {
	if v, ok := m.Get(name); ok {
		return v
	}
	return def
}

// Observation is one completed trial: the parameters that were run, the
// scalar cost the phase objective assigned, and the raw measurements the
// cost was derived from. Immutable once recorded.
type Observation struct {
	Params       map[string]float64 `json:"params"`
	Value        float64            `json:"value"`
	Measurements Measurements       `json:"measurements,omitempty"`
	Timestamp    time.Time          `json:"timestamp,omitempty"`
}

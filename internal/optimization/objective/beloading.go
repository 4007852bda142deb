package objective

import (
	"math"

	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization"
)

// BeLoadingObjective scores the Be+ loading stage. The goal is to land
// exactly the target ion count at the target secular frequency while
// keeping cycle time, cooling power, and total laser exposure down. Laser
// duration is the dominant side-effect metric and carries the heaviest
// weight.
type BeLoadingObjective struct {
	TargetIonCount   float64
	TargetSecularKHz float64

	WeightAccuracy  float64 // per ion of excess/deficit
	WeightStability float64 // per 1% secular-frequency bin
	WeightTime      float64 // per ms of cycle time
	WeightCooling   float64 // per uW of cooling power
	WeightLaser     float64 // per ms of laser exposure
}

// NewBeLoadingObjective builds the loading objective. Recognized options:
// target_ion_count, target_secular_khz.
func NewBeLoadingObjective(opts Options) *BeLoadingObjective {
	return &BeLoadingObjective{
		TargetIonCount:   opts.Get("target_ion_count", 1),
		TargetSecularKHz: opts.Get("target_secular_khz", 307.0),
		WeightAccuracy:   opts.Get("weight_accuracy", 100),
		WeightStability:  opts.Get("weight_stability", 10),
		WeightTime:       opts.Get("weight_time", 0.05),
		WeightCooling:    opts.Get("weight_cooling", 0.1),
		WeightLaser:      opts.Get("weight_laser", 0.5),
	}
}

// ComputeCost assembles the weighted penalty sum. Missing channels score the
// degenerate penalty instead of failing.
func (o *BeLoadingObjective) ComputeCost(params map[string]float64, m optimization.Measurements) (float64, map[string]float64) {
	components := make(map[string]float64, 5)

	// Accuracy: zero at the exact target, worst case when the trap is empty.
	ionCount, ok := m.Get("ion_count")
	switch {
	case !ok:
		components["accuracy"] = DegeneratePenalty
	case ionCount == o.TargetIonCount:
		components["accuracy"] = 0
	case ionCount == 0:
		components["accuracy"] = DegeneratePenalty
	default:
		components["accuracy"] = o.WeightAccuracy * math.Abs(ionCount-o.TargetIonCount)
	}

	// Stability: relative secular-frequency error, quantized to 1% bins so
	// drift below the measurement resolution does not dominate the cost.
	if freq, ok := m.Get("secular_freq"); ok && o.TargetSecularKHz > 0 {
		relErr := math.Abs(freq-o.TargetSecularKHz) / o.TargetSecularKHz
		components["stability"] = o.WeightStability * math.Floor(relErr/0.01)
	} else {
		components["stability"] = DegeneratePenalty / 10
	}

	components["time"] = o.WeightTime * finite(m.GetOr("total_time_ms", 0), 0)
	components["cooling"] = o.WeightCooling * finite(m.GetOr("cooling_power_uw", 0), 0)
	components["laser"] = o.WeightLaser * finite(m.GetOr("laser_duration_ms", 0), 0)

	total := 0.0
	for _, v := range components {
		total += v
	}
	return finite(total, DegeneratePenalty), components
}

// IsSuccess holds when the exact target count sits within 1% of the target
// secular frequency.
func (o *BeLoadingObjective) IsSuccess(m optimization.Measurements) bool {
	ionCount, ok := m.Get("ion_count")
	if !ok || ionCount != o.TargetIonCount {
		return false
	}
	freq, ok := m.Get("secular_freq")
	if !ok || o.TargetSecularKHz <= 0 {
		return false
	}
	return math.Abs(freq-o.TargetSecularKHz)/o.TargetSecularKHz < 0.01
}

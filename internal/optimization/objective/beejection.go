package objective

import (
	"math"

	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization"
)

// BeEjectionObjective scores the excess-ion ejection stage. Hitting the
// exact target count is rewarded outright; emptying the trap throws away the
// loading work and is penalized hardest. Between those, monotonic progress
// toward the target earns a scaled partial reward and a cycle with no
// movement pays a stagnation penalty. Progress is judged against the
// ion_count_before channel reported by the hardware layer.
type BeEjectionObjective struct {
	TargetIonCount float64

	RewardExact     float64
	PenaltyEmptied  float64
	RewardProgress  float64 // per ion moved toward target
	PenaltyStagnant float64
	PenaltyRegress  float64 // per ion moved away from target
	WeightDuration  float64 // per us of ejection pulse
}

// NewBeEjectionObjective builds the ejection objective. Recognized options:
// target_ion_count.
func NewBeEjectionObjective(opts Options) *BeEjectionObjective {
	return &BeEjectionObjective{
		TargetIonCount:  opts.Get("target_ion_count", 1),
		RewardExact:     opts.Get("reward_exact", 500),
		PenaltyEmptied:  opts.Get("penalty_emptied", 800),
		RewardProgress:  opts.Get("reward_progress", 50),
		PenaltyStagnant: opts.Get("penalty_stagnant", 100),
		PenaltyRegress:  opts.Get("penalty_regress", 200),
		WeightDuration:  opts.Get("weight_duration", 0.2),
	}
}

func (o *BeEjectionObjective) ComputeCost(params map[string]float64, m optimization.Measurements) (float64, map[string]float64) {
	components := make(map[string]float64, 3)

	ionCount, ok := m.Get("ion_count")
	if !ok {
		components["outcome"] = DegeneratePenalty
	} else {
		switch {
		case ionCount == o.TargetIonCount:
			components["outcome"] = -o.RewardExact
		case ionCount == 0 && o.TargetIonCount > 0:
			components["outcome"] = o.PenaltyEmptied
		default:
			before, haveBefore := m.Get("ion_count_before")
			if !haveBefore {
				// No reference count: treat as stagnation.
				components["outcome"] = o.PenaltyStagnant
				break
			}
			progress := math.Abs(before-o.TargetIonCount) - math.Abs(ionCount-o.TargetIonCount)
			switch {
			case progress > 0:
				components["outcome"] = -o.RewardProgress * progress
			case progress == 0:
				components["outcome"] = o.PenaltyStagnant
			default:
				components["outcome"] = o.PenaltyRegress * -progress
			}
		}
	}

	components["duration"] = o.WeightDuration * finite(m.GetOr("eject_duration_us", 0), 0)

	total := 0.0
	for _, v := range components {
		total += v
	}
	return finite(total, DegeneratePenalty), components
}

// IsSuccess holds at the exact target ion count.
func (o *BeEjectionObjective) IsSuccess(m optimization.Measurements) bool {
	ionCount, ok := m.Get("ion_count")
	return ok && ionCount == o.TargetIonCount
}

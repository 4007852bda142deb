package objective

import (
	"math"

	"github.com/Douglaxii/Centralised-Lab-Control-Framework-sub001/internal/optimization"
)

// HDLoadingObjective scores the dark-species (HD+) loading stage. HD+ is not
// fluorescing, so loading is verified with a secular sweep: a resonance peak
// at the coupled two-species frequency means an HD+ ion joined the crystal.
// A peak at the uncoupled (bare Be+) frequency means the crystal was
// disturbed without capture and scores worse than seeing no peak at all.
type HDLoadingObjective struct {
	CoupledFreqKHz   float64
	UncoupledFreqKHz float64
	FreqTolKHz       float64

	RewardCoupled    float64
	PenaltyUncoupled float64
	PenaltyNoPeak    float64
	WeightExposure   float64 // per ms of HD exposure
	WeightRepump     float64 // per uW of repump power
}

// NewHDLoadingObjective builds the HD loading objective. Recognized options:
// coupled_freq_khz, uncoupled_freq_khz, freq_tol_khz.
func NewHDLoadingObjective(opts Options) *HDLoadingObjective {
	return &HDLoadingObjective{
		CoupledFreqKHz:   opts.Get("coupled_freq_khz", 650),
		UncoupledFreqKHz: opts.Get("uncoupled_freq_khz", 307),
		FreqTolKHz:       opts.Get("freq_tol_khz", 15),
		RewardCoupled:    opts.Get("reward_coupled", 400),
		PenaltyUncoupled: opts.Get("penalty_uncoupled", 600),
		PenaltyNoPeak:    opts.Get("penalty_no_peak", 300),
		WeightExposure:   opts.Get("weight_exposure", 0.02),
		WeightRepump:     opts.Get("weight_repump", 0.1),
	}
}

func (o *HDLoadingObjective) ComputeCost(params map[string]float64, m optimization.Measurements) (float64, map[string]float64) {
	components := make(map[string]float64, 3)

	peakFound := m.GetOr("sweep_peak_found", 0) >= 0.5
	if !peakFound {
		components["sweep"] = o.PenaltyNoPeak
	} else {
		peakFreq, ok := m.Get("sweep_peak_freq")
		switch {
		case !ok:
			components["sweep"] = DegeneratePenalty
		case math.Abs(peakFreq-o.CoupledFreqKHz) <= o.FreqTolKHz:
			components["sweep"] = -o.RewardCoupled
		case math.Abs(peakFreq-o.UncoupledFreqKHz) <= o.FreqTolKHz:
			components["sweep"] = o.PenaltyUncoupled
		default:
			// Peak at neither line: ambiguous sweep, slightly better than a
			// clean wrong-frequency hit.
			components["sweep"] = o.PenaltyNoPeak
		}
	}

	components["exposure"] = o.WeightExposure * finite(m.GetOr("hd_exposure_ms", 0), 0)
	components["repump"] = o.WeightRepump * finite(m.GetOr("repump_power_uw", 0), 0)

	total := 0.0
	for _, v := range components {
		total += v
	}
	return finite(total, DegeneratePenalty), components
}

// IsSuccess holds when the sweep peak sits on the coupled frequency.
func (o *HDLoadingObjective) IsSuccess(m optimization.Measurements) bool {
	if m.GetOr("sweep_peak_found", 0) < 0.5 {
		return false
	}
	peakFreq, ok := m.Get("sweep_peak_freq")
	return ok && math.Abs(peakFreq-o.CoupledFreqKHz) <= o.FreqTolKHz
}

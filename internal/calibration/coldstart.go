// Package calibration derives cold-start item-response parameters from the
// historical percent-correct statistic of a source item. These parameters
// seed the downstream calibration model before any response data exists;
// they are computed exactly once per item and never revised by the pipeline.
package calibration

import (
	"math"

	"prism/internal/types"
)

// PhaseColdStart tags parameter sets derived analytically, before any
// observed responses.
const PhaseColdStart = "A_cold_start"

// DefaultPercentCorrect is assumed when the source item carries no statistic.
const DefaultPercentCorrect = 50.0

// betaClamp bounds the difficulty estimate at the domain boundaries.
const betaClamp = 3.0

// Probit approximates the inverse normal CDF using the Abramowitz-Stegun
// rational approximation. Input is a probability in (0,1); values at or
// beyond the boundaries clamp to ∓3.
func Probit(p float64) float64 {
	if p <= 0 {
		return -betaClamp
	}
	if p >= 1 {
		return betaClamp
	}
	if p == 0.5 {
		return 0.0
	}

	var t float64
	if p < 0.5 {
		t = math.Sqrt(-2.0 * math.Log(p))
	} else {
		t = math.Sqrt(-2.0 * math.Log(1.0-p))
	}

	const (
		c0 = 2.515517
		c1 = 0.802853
		c2 = 0.010328
		d1 = 1.432788
		d2 = 0.189269
		d3 = 0.001308
	)
	result := t - (c0+c1*t+c2*t*t)/(1.0+d1*t+d2*t*t+d3*t*t*t)

	if p < 0.5 {
		return -result
	}
	return result
}

// ColdStart computes the initial calibration parameters for a source item.
// Difficulty is beta = -probit(pct/100), rounded to 4 decimal places, so an
// item everyone answers correctly gets the minimum difficulty and vice versa.
func ColdStart(item *types.SourceItem) types.CalibrationParams {
	pct := DefaultPercentCorrect
	if item != nil && item.PercentCorrect != nil {
		pct = *item.PercentCorrect
	}

	beta := -Probit(pct / 100.0)
	beta = math.Round(beta*10000) / 10000

	return types.CalibrationParams{
		Phase:         PhaseColdStart,
		Alpha:         1.0,
		Beta:          beta,
		StepOffsets:   []float64{-0.5, 0.0, 0.5},
		ResponseCount: 0,
	}
}

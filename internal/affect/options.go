package affect

import (
	"fmt"
	"math"
)

// Options holds the engine thresholds.
type Options struct {
	// LowPitchThresholdHz forces a negative mood below this pitch.
	LowPitchThresholdHz float64

	// HighPitchThresholdHz forces a positive mood above this pitch.
	HighPitchThresholdHz float64

	// StrongPolarityThreshold adds happy/sad on top of lexicon emotions when
	// |polarity| exceeds it.
	StrongPolarityThreshold float64

	// NeutralPolarityBand is the |polarity| band that yields neutral when the
	// lexicon found nothing.
	NeutralPolarityBand float64

	// MoodNeutralBand is the |polarity| band that yields a neutral mood.
	// Zero makes mood follow the strict sign of polarity.
	MoodNeutralBand float64

	// NegationWindow is how many tokens before a trigger are checked for a
	// negation.
	NegationWindow int

	// MinPlausiblePitchHz and MaxPlausiblePitchHz bound accepted pitch. The
	// lower bound is exclusive.
	MinPlausiblePitchHz float64
	MaxPlausiblePitchHz float64
}

// DefaultOptions returns the stock thresholds.
func DefaultOptions() Options {
	return Options{
		LowPitchThresholdHz:     100,
		HighPitchThresholdHz:    200,
		StrongPolarityThreshold: 0.5,
		NeutralPolarityBand:     0.2,
		MoodNeutralBand:         0.2,
		NegationWindow:          3,
		MinPlausiblePitchHz:     0,
		MaxPlausiblePitchHz:     2000,
	}
}

// Validate checks threshold ordering and ranges.
func (o Options) Validate() error {
	if !finite(o.LowPitchThresholdHz, o.HighPitchThresholdHz, o.StrongPolarityThreshold,
		o.NeutralPolarityBand, o.MoodNeutralBand, o.MinPlausiblePitchHz, o.MaxPlausiblePitchHz) {
		return fmt.Errorf("%w: thresholds must be finite", ErrInvalidOptions)
	}
	if o.LowPitchThresholdHz <= 0 || o.LowPitchThresholdHz >= o.HighPitchThresholdHz {
		return fmt.Errorf("%w: need 0 < low_pitch_threshold_hz (%.1f) < high_pitch_threshold_hz (%.1f)",
			ErrInvalidOptions, o.LowPitchThresholdHz, o.HighPitchThresholdHz)
	}
	if o.NeutralPolarityBand < 0 || o.NeutralPolarityBand > o.StrongPolarityThreshold || o.StrongPolarityThreshold > 1 {
		return fmt.Errorf("%w: need 0 <= neutral_polarity_band (%.2f) <= strong_polarity_threshold (%.2f) <= 1",
			ErrInvalidOptions, o.NeutralPolarityBand, o.StrongPolarityThreshold)
	}
	if o.MoodNeutralBand < 0 || o.MoodNeutralBand > 1 {
		return fmt.Errorf("%w: mood_neutral_band %.2f out of [0, 1]", ErrInvalidOptions, o.MoodNeutralBand)
	}
	if o.NegationWindow < 0 {
		return fmt.Errorf("%w: negation_window must be >= 0", ErrInvalidOptions)
	}
	if o.MinPlausiblePitchHz < 0 || o.MaxPlausiblePitchHz <= o.MinPlausiblePitchHz {
		return fmt.Errorf("%w: need 0 <= min_plausible_pitch_hz < max_plausible_pitch_hz", ErrInvalidOptions)
	}
	return nil
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

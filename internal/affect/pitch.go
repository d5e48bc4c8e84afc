package affect

import (
	"fmt"
	"math"
)

// ValidatePitch returns pitch unchanged when it is absent or plausible.
// Implausible values return nil and ErrInvalidPitch.
func ValidatePitch(pitch *float64, opts Options) (*float64, error) {
	if pitch == nil {
		return nil, nil
	}
	p := *pitch
	if math.IsNaN(p) || math.IsInf(p, 0) || p <= opts.MinPlausiblePitchHz || p > opts.MaxPlausiblePitchHz {
		return nil, fmt.Errorf("%w: %v Hz", ErrInvalidPitch, p)
	}
	v := p
	return &v, nil
}

// ApplyPitch overrides mood from acoustic pitch. Low pitch forces a negative
// mood and adds sad; high pitch forces a positive mood and adds happy.
// Emotions are only ever added.
func ApplyPitch(emotions EmotionSet, mood Mood, pitch *float64, opts Options) (EmotionSet, Mood) {
	if pitch == nil {
		return emotions, mood
	}
	switch {
	case *pitch < opts.LowPitchThresholdHz:
		return emotions.With(Sad), MoodNegative
	case *pitch > opts.HighPitchThresholdHz:
		return emotions.With(Happy), MoodPositive
	}
	return emotions, mood
}

package affect

// Blend merges lexicon emotions with the polarity score and derives the
// overall mood. The result always holds at least one emotion.
func Blend(matched EmotionSet, polarity float64, opts Options) (EmotionSet, Mood) {
	emotions := matched
	if emotions.Len() == 0 {
		switch {
		case polarity > opts.NeutralPolarityBand:
			emotions = emotions.With(Happy)
		case polarity < -opts.NeutralPolarityBand:
			emotions = emotions.With(Sad)
		default:
			emotions = emotions.With(Neutral)
		}
	} else {
		switch {
		case polarity > opts.StrongPolarityThreshold:
			emotions = emotions.With(Happy)
		case polarity < -opts.StrongPolarityThreshold:
			emotions = emotions.With(Sad)
		}
	}
	return emotions, MoodFor(polarity, opts.MoodNeutralBand)
}

// MoodFor maps polarity to a mood. |polarity| <= band is neutral.
//
// A zero band is the plain sign of polarity. The default band of 0.2 keeps
// mood consistent with the emotion inferred when the lexicon finds nothing,
// so a faintly positive remark is neutral in both; the cost is that a weak polarity beside a
// lexicon hit (0.05 with "happy") reads neutral rather than positive.
func MoodFor(polarity, band float64) Mood {
	switch {
	case polarity > band:
		return MoodPositive
	case polarity < -band:
		return MoodNegative
	}
	return MoodNeutral
}

package affect

import "errors"

// Emotion is a discrete emotion label.
type Emotion string

// Emotion labels known to the lexicon and the blender.
const (
	Happy    Emotion = "happy"
	Sad      Emotion = "sad"
	Angry    Emotion = "angry"
	Fear     Emotion = "fear"
	Surprise Emotion = "surprise"
	Disgust  Emotion = "disgust"
	Neutral  Emotion = "neutral"
)

// lexiconEmotions is the fixed label set a lexicon may carry, in scan order.
var lexiconEmotions = []Emotion{Happy, Sad, Angry, Fear, Surprise, Disgust}

// IsLexiconEmotion reports whether e may appear as a lexicon label.
func IsLexiconEmotion(e Emotion) bool {
	for _, known := range lexiconEmotions {
		if e == known {
			return true
		}
	}
	return false
}

// Mood is the overall valence judgment of an utterance.
type Mood string

// Mood values.
const (
	MoodPositive Mood = "positive"
	MoodNegative Mood = "negative"
	MoodNeutral  Mood = "neutral"
)

// Valid reports whether m is one of the three mood values.
func (m Mood) Valid() bool {
	switch m {
	case MoodPositive, MoodNegative, MoodNeutral:
		return true
	}
	return false
}

// Sentiment holds the blended scorer outputs.
type Sentiment struct {
	// Polarity in [-1, 1].
	Polarity float64 `json:"polarity"`
	// Subjectivity in [0, 1].
	Subjectivity float64 `json:"subjectivity"`
	// Compound valence in [-1, 1].
	Compound float64 `json:"compound"`
}

// PolarityScorer returns polarity in [-1, 1] and subjectivity in [0, 1].
type PolarityScorer interface {
	Polarity(text string) (polarity, subjectivity float64, err error)
}

// ValenceScorer returns a compound valence score in [-1, 1].
type ValenceScorer interface {
	Compound(text string) (float64, error)
}

var (
	// ErrScorerUnavailable indicates a sentiment scorer could not produce a score.
	ErrScorerUnavailable = errors.New("sentiment scorer unavailable")

	// ErrInvalidPitch indicates a pitch value outside the plausible range.
	ErrInvalidPitch = errors.New("invalid pitch")

	// ErrInvalidLexicon indicates a malformed emotion lexicon.
	ErrInvalidLexicon = errors.New("invalid lexicon")

	// ErrInvalidOptions indicates out-of-range engine options.
	ErrInvalidOptions = errors.New("invalid affect options")
)

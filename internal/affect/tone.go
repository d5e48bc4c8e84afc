package affect

import "math"

// ToneRecord is the affect analysis of one utterance. Build it with
// NewToneRecord; do not mutate it afterwards.
type ToneRecord struct {
	Sentiment     Sentiment `json:"sentiment"`
	Emotions      []Emotion `json:"emotions"`
	OverallMood   Mood      `json:"overall_mood"`
	IsQuestioning bool      `json:"is_questioning"`
	Pitch         *float64  `json:"pitch,omitempty"`
}

// ToneParts are the raw inputs to NewToneRecord.
type ToneParts struct {
	Sentiment     Sentiment
	Emotions      EmotionSet
	Mood          Mood
	IsQuestioning bool
	Pitch         *float64
}

// NewToneRecord builds a ToneRecord. Scores are clamped to their ranges
// (NaN becomes 0), an empty emotion set becomes {neutral}, and an unknown
// mood becomes neutral.
func NewToneRecord(p ToneParts) ToneRecord {
	emotions := p.Emotions
	if emotions.Len() == 0 {
		emotions = NewEmotionSet(Neutral)
	}
	mood := p.Mood
	if !mood.Valid() {
		mood = MoodNeutral
	}

	var pitch *float64
	if p.Pitch != nil {
		v := *p.Pitch
		pitch = &v
	}

	return ToneRecord{
		Sentiment: Sentiment{
			Polarity:     clamp(p.Sentiment.Polarity, -1, 1),
			Subjectivity: clamp(p.Sentiment.Subjectivity, 0, 1),
			Compound:     clamp(p.Sentiment.Compound, -1, 1),
		},
		Emotions:      emotions.Labels(),
		OverallMood:   mood,
		IsQuestioning: p.IsQuestioning,
		Pitch:         pitch,
	}
}

// HasEmotion reports whether e is in the record.
func (t ToneRecord) HasEmotion(e Emotion) bool {
	for _, have := range t.Emotions {
		if have == e {
			return true
		}
	}
	return false
}

// EmotionStrings returns the emotions as strings.
func (t ToneRecord) EmotionStrings() []string {
	out := make([]string, len(t.Emotions))
	for i, e := range t.Emotions {
		out[i] = string(e)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}

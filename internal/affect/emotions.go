package affect

// EmotionSet is an insertion-ordered set of emotion labels.
type EmotionSet struct {
	order []Emotion
}

// NewEmotionSet builds a set from labels, dropping duplicates.
func NewEmotionSet(labels ...Emotion) EmotionSet {
	var s EmotionSet
	for _, l := range labels {
		s = s.With(l)
	}
	return s
}

// With returns a set with e appended if absent. The receiver is not modified.
func (s EmotionSet) With(e Emotion) EmotionSet {
	if s.Contains(e) {
		return s
	}
	order := make([]Emotion, len(s.order), len(s.order)+1)
	copy(order, s.order)
	return EmotionSet{order: append(order, e)}
}

// Contains reports whether e is in the set.
func (s EmotionSet) Contains(e Emotion) bool {
	for _, have := range s.order {
		if have == e {
			return true
		}
	}
	return false
}

// Len returns the number of labels.
func (s EmotionSet) Len() int {
	return len(s.order)
}

// Labels returns a copy of the labels in insertion order.
func (s EmotionSet) Labels() []Emotion {
	return append([]Emotion(nil), s.order...)
}

// Strings returns the labels as strings in insertion order.
func (s EmotionSet) Strings() []string {
	out := make([]string, len(s.order))
	for i, e := range s.order {
		out[i] = string(e)
	}
	return out
}

package affect

// Matcher finds lexicon emotions in a token sequence.
type Matcher struct {
	lexicon   *Lexicon
	negations NegationSet
	window    int
}

// NewMatcher creates a matcher. The zero NegationSet falls back to the
// lexicon's own negations; NewNegationSet() with no tokens disables negation.
func NewMatcher(lex *Lexicon, negations NegationSet, window int) *Matcher {
	if negations.tokens == nil {
		negations = lex.Negations()
	}
	return &Matcher{lexicon: lex, negations: negations, window: window}
}

// Match returns the emotions triggered by tokens, in lexicon scan order.
//
// Only the first occurrence of each trigger is inspected. A negation within
// the window before it turns happy into sad and sad into happy; any other
// label is recorded as is.
func (m *Matcher) Match(tokens []string) EmotionSet {
	var found EmotionSet
	for _, entry := range m.lexicon.entries {
		for _, trig := range entry.Triggers {
			pos := indexOf(tokens, trig.Tokens)
			if pos < 0 {
				continue
			}
			label := entry.Label
			if m.negated(tokens, pos) {
				label = invert(label)
			}
			found = found.With(label)
		}
	}
	return found
}

// MatchText tokenizes text and matches it.
func (m *Matcher) MatchText(text string) EmotionSet {
	return m.Match(Tokenize(text))
}

func (m *Matcher) negated(tokens []string, pos int) bool {
	start := pos - m.window
	if start < 0 {
		start = 0
	}
	for _, tok := range tokens[start:pos] {
		if m.negations.Contains(tok) {
			return true
		}
	}
	return false
}

func invert(e Emotion) Emotion {
	switch e {
	case Happy:
		return Sad
	case Sad:
		return Happy
	}
	return e
}

// indexOf returns the start of the first occurrence of phrase in tokens, or -1.
func indexOf(tokens, phrase []string) int {
	if len(phrase) == 0 {
		return -1
	}
outer:
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		for j, p := range phrase {
			if tokens[i+j] != p {
				continue outer
			}
		}
		return i
	}
	return -1
}

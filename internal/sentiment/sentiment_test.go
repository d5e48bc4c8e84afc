package sentiment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
	"github.com/fyrsmithlabs/perceptd/internal/sentiment"
)

func TestPatternScorer_Polarity(t *testing.T) {
	s, err := sentiment.NewPatternScorer()
	require.NoError(t, err)

	tests := []struct {
		name    string
		text    string
		wantPol float64
		delta   float64
	}{
		{"intensified positive", "I am very happy today!", 1.0, 0.001},
		{"plain positive", "I am happy", 0.8, 0.001},
		{"negated positive", "I am not happy about this.", -0.4, 0.001},
		{"negated through intensifier", "I am not very happy", -0.52, 0.001},
		{"n't negation", "This isn't good", -0.35, 0.001},
		{"averaged negatives", "I feel sad and down.", -0.33, 0.001},
		{"diminished", "slightly bad", -0.35, 0.001},
		{"no lexicon words", "The meeting is at noon", 0, 0},
		{"empty", "", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pol, subj, err := s.Polarity(tt.text)
			require.NoError(t, err)
			assert.InDelta(t, tt.wantPol, pol, tt.delta)
			assert.GreaterOrEqual(t, subj, 0.0)
			assert.LessOrEqual(t, subj, 1.0)
		})
	}
}

func TestPatternScorer_Subjectivity(t *testing.T) {
	s, err := sentiment.NewPatternScorer()
	require.NoError(t, err)

	_, subj, err := s.Polarity("terrible")
	require.NoError(t, err)
	assert.Equal(t, 1.0, subj)

	_, subj, err = s.Polarity("nothing here")
	require.NoError(t, err)
	assert.Equal(t, 0.0, subj)
}

func TestParsePatternLexicon_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed", "words: [\n"},
		{"no words", "intensifiers:\n  very: 1.3\n"},
		{"polarity out of range", "words:\n  good: {polarity: 2, subjectivity: 0.5}\n"},
		{"bad intensifier", "words:\n  good: {polarity: 0.5, subjectivity: 0.5}\nintensifiers:\n  very: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sentiment.ParsePatternLexicon([]byte(tt.yaml))
			require.ErrorIs(t, err, sentiment.ErrInvalidLexicon)
		})
	}
}

func TestVaderScorer_Compound(t *testing.T) {
	v := sentiment.NewVaderScorer()

	pos, err := v.Compound("I am very happy today!")
	require.NoError(t, err)
	assert.Greater(t, pos, 0.5)

	neg, err := v.Compound("I feel sad and down.")
	require.NoError(t, err)
	assert.Less(t, neg, 0.0)
}

func TestVaderScorer_NilIsUnavailable(t *testing.T) {
	var v *sentiment.VaderScorer
	_, err := v.Compound("hello")
	require.ErrorIs(t, err, affect.ErrScorerUnavailable)
}

// Package sentiment provides the polarity and valence scorers used by the
// affect engine.
package sentiment

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
)

//go:embed pattern.yaml
var defaultPatternYAML []byte

// negationFactor flips and damps the polarity of a negated word.
const negationFactor = -0.5

// ErrInvalidLexicon indicates a malformed pattern lexicon.
var ErrInvalidLexicon = errors.New("invalid pattern lexicon")

// WordScore is the lexicon entry for one word.
type WordScore struct {
	Polarity     float64 `yaml:"polarity"`
	Subjectivity float64 `yaml:"subjectivity"`
}

type patternFile struct {
	Words        map[string]WordScore `yaml:"words"`
	Intensifiers map[string]float64   `yaml:"intensifiers"`
	Negations    []string             `yaml:"negations"`
}

// PatternScorer scores polarity and subjectivity by averaging word-level
// lexicon scores. An intensifier scales the next sentiment word; a negation
// before it (optionally through one intensifier) multiplies its polarity by
// -0.5.
type PatternScorer struct {
	words        map[string]WordScore
	intensifiers map[string]float64
	negations    affect.NegationSet
}

var _ affect.PolarityScorer = (*PatternScorer)(nil)

// NewPatternScorer returns a scorer backed by the built-in lexicon.
func NewPatternScorer() (*PatternScorer, error) {
	return ParsePatternLexicon(defaultPatternYAML)
}

// ParsePatternLexicon builds a scorer from lexicon YAML.
func ParsePatternLexicon(data []byte) (*PatternScorer, error) {
	var file patternFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLexicon, err)
	}
	if len(file.Words) == 0 {
		return nil, fmt.Errorf("%w: no words defined", ErrInvalidLexicon)
	}

	words := make(map[string]WordScore, len(file.Words))
	for w, s := range file.Words {
		if s.Polarity < -1 || s.Polarity > 1 || s.Subjectivity < 0 || s.Subjectivity > 1 {
			return nil, fmt.Errorf("%w: score out of range for %q", ErrInvalidLexicon, w)
		}
		words[strings.ToLower(w)] = s
	}
	intensifiers := make(map[string]float64, len(file.Intensifiers))
	for w, m := range file.Intensifiers {
		if m <= 0 {
			return nil, fmt.Errorf("%w: intensifier %q must be positive", ErrInvalidLexicon, w)
		}
		intensifiers[strings.ToLower(w)] = m
	}

	return &PatternScorer{
		words:        words,
		intensifiers: intensifiers,
		negations:    affect.NewNegationSet(file.Negations...),
	}, nil
}

// Polarity implements affect.PolarityScorer. Text with no lexicon words
// scores (0, 0).
func (s *PatternScorer) Polarity(text string) (float64, float64, error) {
	tokens := affect.Tokenize(text)

	var sumPol, sumSubj float64
	var n int
	for i, tok := range tokens {
		ws, ok := s.words[tok]
		if !ok {
			continue
		}
		pol, subj := ws.Polarity, ws.Subjectivity

		prev := i - 1
		if prev >= 0 {
			if m, ok := s.intensifiers[tokens[prev]]; ok {
				pol *= m
				subj *= m
				prev--
			}
		}
		if prev >= 0 && s.negations.Contains(tokens[prev]) {
			pol *= negationFactor
		}

		sumPol += pol
		sumSubj += subj
		n++
	}
	if n == 0 {
		return 0, 0, nil
	}
	return clamp(sumPol/float64(n), -1, 1), clamp(sumSubj/float64(n), 0, 1), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

package affect

import (
	"errors"
	"fmt"
	"math"
)

// Degraded signal names.
const (
	SignalPolarity = "polarity"
	SignalValence  = "valence"
	SignalPitch    = "pitch"
)

// Degradation records a signal that was missing or rejected during analysis.
type Degradation struct {
	Signal string
	Err    error
}

func (d Degradation) Error() string {
	return d.Signal + ": " + d.Err.Error()
}

func (d Degradation) Unwrap() error {
	return d.Err
}

// Engine runs the affect pipeline. It holds no per-call state.
type Engine struct {
	opts     Options
	matcher  *Matcher
	polarity PolarityScorer
	valence  ValenceScorer
}

// NewEngine creates an engine. Nil scorers are treated as unavailable on
// every call.
func NewEngine(lex *Lexicon, opts Options, polarity PolarityScorer, valence ValenceScorer) (*Engine, error) {
	if lex == nil {
		return nil, fmt.Errorf("%w: lexicon is required", ErrInvalidLexicon)
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		opts:     opts,
		matcher:  NewMatcher(lex, lex.Negations(), opts.NegationWindow),
		polarity: polarity,
		valence:  valence,
	}, nil
}

// Options returns the engine thresholds.
func (e *Engine) Options() Options {
	return e.opts
}

// Analyze builds the tone record for text and an optional pitch in Hz.
// Failures never abort analysis; they come back as degradations.
func (e *Engine) Analyze(text string, pitch *float64) (ToneRecord, []Degradation) {
	var degraded []Degradation

	pol, subj, err := e.scorePolarity(text)
	if err != nil {
		degraded = append(degraded, Degradation{Signal: SignalPolarity, Err: err})
		pol, subj = 0, 0
	}
	compound, err := e.scoreValence(text)
	if err != nil {
		degraded = append(degraded, Degradation{Signal: SignalValence, Err: err})
		compound = 0
	}
	validPitch, err := ValidatePitch(pitch, e.opts)
	if err != nil {
		degraded = append(degraded, Degradation{Signal: SignalPitch, Err: err})
	}

	emotions, mood := Blend(e.matcher.MatchText(text), pol, e.opts)
	emotions, mood = ApplyPitch(emotions, mood, validPitch, e.opts)

	return NewToneRecord(ToneParts{
		Sentiment:     Sentiment{Polarity: pol, Subjectivity: subj, Compound: compound},
		Emotions:      emotions,
		Mood:          mood,
		IsQuestioning: IsQuestioning(text),
		Pitch:         validPitch,
	}), degraded
}

func (e *Engine) scorePolarity(text string) (float64, float64, error) {
	if e.polarity == nil {
		return 0, 0, ErrScorerUnavailable
	}
	pol, subj, err := e.polarity.Polarity(text)
	if err != nil {
		return 0, 0, unavailable(err)
	}
	if math.IsNaN(pol) || math.IsNaN(subj) {
		return 0, 0, fmt.Errorf("%w: non-numeric polarity", ErrScorerUnavailable)
	}
	return pol, subj, nil
}

func (e *Engine) scoreValence(text string) (float64, error) {
	if e.valence == nil {
		return 0, ErrScorerUnavailable
	}
	c, err := e.valence.Compound(text)
	if err != nil {
		return 0, unavailable(err)
	}
	if math.IsNaN(c) {
		return 0, fmt.Errorf("%w: non-numeric compound", ErrScorerUnavailable)
	}
	return c, nil
}

func unavailable(err error) error {
	if errors.Is(err, ErrScorerUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrScorerUnavailable, err)
}

package sentiment

import (
	"fmt"

	"github.com/jonreiter/govader"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
)

// VaderScorer returns the VADER compound valence score.
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

var _ affect.ValenceScorer = (*VaderScorer)(nil)

// NewVaderScorer loads the VADER lexicon.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Compound implements affect.ValenceScorer. A panic inside the analyzer is
// reported as affect.ErrScorerUnavailable.
func (v *VaderScorer) Compound(text string) (compound float64, err error) {
	if v == nil || v.analyzer == nil {
		return 0, affect.ErrScorerUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			compound = 0
			err = fmt.Errorf("%w: vader: %v", affect.ErrScorerUnavailable, r)
		}
	}()
	return v.analyzer.PolarityScores(text).Compound, nil
}

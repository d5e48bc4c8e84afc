package nlu

import (
	"context"
	"fmt"
	"strings"

	"github.com/jdkato/prose/v2"
)

// ProseTagger tags text with the prose tokenizer, averaged perceptron POS
// tagger and named-entity recognizer.
type ProseTagger struct{}

var _ Tagger = ProseTagger{}

// NewProseTagger returns a prose-backed tagger.
func NewProseTagger() ProseTagger {
	return ProseTagger{}
}

// Tag implements Tagger. Backend failures and panics are reported as
// ErrTaggingUnavailable.
func (ProseTagger) Tag(ctx context.Context, text string) (tagging Tagging, err error) {
	if err := ctx.Err(); err != nil {
		return Tagging{}, fmt.Errorf("%w: %v", ErrTaggingUnavailable, err)
	}
	defer func() {
		if r := recover(); r != nil {
			tagging = Tagging{}
			err = fmt.Errorf("%w: prose: %v", ErrTaggingUnavailable, r)
		}
	}()

	doc, err := prose.NewDocument(text, prose.WithSegmentation(false))
	if err != nil {
		return Tagging{}, fmt.Errorf("%w: %v", ErrTaggingUnavailable, err)
	}

	toks := doc.Tokens()
	tagging.Tokens = make([]string, len(toks))
	tagging.Tags = make([]string, len(toks))
	for i, tok := range toks {
		tagging.Tokens[i] = tok.Text
		tagging.Tags[i] = tok.Tag
	}
	for _, ent := range doc.Entities() {
		tagging.Chunks = append(tagging.Chunks, Chunk{Words: strings.Fields(ent.Text), Label: ent.Label})
	}
	return tagging, nil
}

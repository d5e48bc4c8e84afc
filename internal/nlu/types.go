// Package nlu fuses a tone record with tagger output into a perception record.
package nlu

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
)

// ErrTaggingUnavailable indicates the tagger could not process the text.
var ErrTaggingUnavailable = errors.New("tagging unavailable")

// Role is a coarse semantic role derived from a part-of-speech tag.
type Role string

// Semantic roles.
const (
	RoleEntity Role = "entity"
	RoleAction Role = "action"
)

// Entity is a named-entity chunk.
type Entity struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// SemanticRole pairs a word with its role.
type SemanticRole struct {
	Word string `json:"word"`
	Role Role   `json:"role"`
}

// PerceptionRecord is the fused output for one utterance.
type PerceptionRecord struct {
	Transcript    string           `json:"transcript"`
	Sentiment     affect.Sentiment `json:"sentiment"`
	Emotions      []affect.Emotion `json:"emotions"`
	Entities      []Entity         `json:"entities"`
	SemanticRoles []SemanticRole   `json:"semantic_roles"`
}

// Chunk is a contiguous named-entity span.
type Chunk struct {
	Words []string
	Label string
}

// Tagging is the tagger output. Tokens and Tags are parallel.
type Tagging struct {
	Tokens []string
	Tags   []string
	Chunks []Chunk
}

// Tagger tokenizes, part-of-speech tags and chunks text.
type Tagger interface {
	Tag(ctx context.Context, text string) (Tagging, error)
}

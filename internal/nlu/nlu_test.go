package nlu_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
	"github.com/fyrsmithlabs/perceptd/internal/nlu"
)

func sampleTone() affect.ToneRecord {
	return affect.NewToneRecord(affect.ToneParts{
		Sentiment: affect.Sentiment{Polarity: 0.4, Subjectivity: 0.5, Compound: 0.6},
		Emotions:  affect.NewEmotionSet(affect.Happy),
		Mood:      affect.MoodPositive,
	})
}

func TestFuse(t *testing.T) {
	tagging := nlu.Tagging{
		Tokens: []string{"Alice", "visited", "New", "York", "yesterday", "."},
		Tags:   []string{"NNP", "VBD", "NNP", "NNP", "NN", "."},
		Chunks: []nlu.Chunk{
			{Words: []string{"Alice"}, Label: "PERSON"},
			{Words: []string{"New", "York"}, Label: "GPE"},
		},
	}

	rec := nlu.Fuse("Alice visited New York yesterday.", sampleTone(), tagging)

	assert.Equal(t, "Alice visited New York yesterday.", rec.Transcript)
	assert.Equal(t, affect.Sentiment{Polarity: 0.4, Subjectivity: 0.5, Compound: 0.6}, rec.Sentiment)
	assert.Equal(t, []affect.Emotion{affect.Happy}, rec.Emotions)
	assert.Equal(t, []nlu.Entity{
		{Text: "Alice", Type: "PERSON"},
		{Text: "New York", Type: "GPE"},
	}, rec.Entities)
	assert.Equal(t, []nlu.SemanticRole{
		{Word: "Alice", Role: nlu.RoleEntity},
		{Word: "visited", Role: nlu.RoleAction},
		{Word: "New", Role: nlu.RoleEntity},
		{Word: "York", Role: nlu.RoleEntity},
		{Word: "yesterday", Role: nlu.RoleEntity},
	}, rec.SemanticRoles)
}

func TestFuse_EmptyTagging(t *testing.T) {
	rec := nlu.Fuse("hmm", sampleTone(), nlu.Tagging{})
	assert.Empty(t, rec.Entities)
	assert.Empty(t, rec.SemanticRoles)

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"entities":[]`)
	assert.Contains(t, string(data), `"semantic_roles":[]`)
}

func TestFuse_MismatchedTagsAndEmptyChunks(t *testing.T) {
	tagging := nlu.Tagging{
		Tokens: []string{"run", "fast", "now"},
		Tags:   []string{"VB"},
		Chunks: []nlu.Chunk{{Label: "ORG"}},
	}
	rec := nlu.Fuse("run fast now", sampleTone(), tagging)
	assert.Empty(t, rec.Entities)
	assert.Equal(t, []nlu.SemanticRole{{Word: "run", Role: nlu.RoleAction}}, rec.SemanticRoles)
}

func TestFuse_DoesNotAliasTone(t *testing.T) {
	tone := sampleTone()
	rec := nlu.Fuse("x", tone, nlu.Tagging{})
	rec.Emotions[0] = affect.Sad
	assert.Equal(t, affect.Happy, tone.Emotions[0])
}

func TestRoleForTag(t *testing.T) {
	tests := []struct {
		tag  string
		role nlu.Role
		ok   bool
	}{
		{"NN", nlu.RoleEntity, true},
		{"NNS", nlu.RoleEntity, true},
		{"NNPS", nlu.RoleEntity, true},
		{"VB", nlu.RoleAction, true},
		{"VBZ", nlu.RoleAction, true},
		{"JJ", "", false},
		{"PRP", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			role, ok := nlu.RoleForTag(tt.tag)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.role, role)
		})
	}
}

func TestProseTagger_Tag(t *testing.T) {
	tagging, err := nlu.NewProseTagger().Tag(context.Background(), "Alice went to the store.")
	require.NoError(t, err)

	require.NotEmpty(t, tagging.Tokens)
	assert.Len(t, tagging.Tags, len(tagging.Tokens))
	assert.Equal(t, "Alice", tagging.Tokens[0])

	rec := nlu.Fuse("Alice went to the store.", sampleTone(), tagging)
	assert.Contains(t, rec.SemanticRoles, nlu.SemanticRole{Word: "went", Role: nlu.RoleAction})
	assert.Contains(t, rec.SemanticRoles, nlu.SemanticRole{Word: "store", Role: nlu.RoleEntity})
}

func TestProseTagger_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := nlu.NewProseTagger().Tag(ctx, "hello")
	require.ErrorIs(t, err, nlu.ErrTaggingUnavailable)
}

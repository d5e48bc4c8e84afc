package nlu

import (
	"strings"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
)

// Fuse combines the transcript, its tone record and tagger output.
//
// Each chunk becomes one entity with its words joined by single spaces, in
// chunk order. Words tagged NN* become entities and VB* become actions; all
// other tags are dropped.
func Fuse(transcript string, tone affect.ToneRecord, tagging Tagging) PerceptionRecord {
	entities := make([]Entity, 0, len(tagging.Chunks))
	for _, c := range tagging.Chunks {
		if len(c.Words) == 0 {
			continue
		}
		entities = append(entities, Entity{Text: strings.Join(c.Words, " "), Type: c.Label})
	}

	n := len(tagging.Tokens)
	if len(tagging.Tags) < n {
		n = len(tagging.Tags)
	}
	roles := make([]SemanticRole, 0, n)
	for i := 0; i < n; i++ {
		if role, ok := RoleForTag(tagging.Tags[i]); ok {
			roles = append(roles, SemanticRole{Word: tagging.Tokens[i], Role: role})
		}
	}

	return PerceptionRecord{
		Transcript:    transcript,
		Sentiment:     tone.Sentiment,
		Emotions:      append([]affect.Emotion(nil), tone.Emotions...),
		Entities:      entities,
		SemanticRoles: roles,
	}
}

// RoleForTag maps a Penn Treebank tag to a semantic role.
func RoleForTag(tag string) (Role, bool) {
	switch {
	case strings.HasPrefix(tag, "NN"):
		return RoleEntity, true
	case strings.HasPrefix(tag, "VB"):
		return RoleAction, true
	}
	return "", false
}

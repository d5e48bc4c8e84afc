package memory

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
	"github.com/fyrsmithlabs/perceptd/internal/nlu"
)

// Metadata keys stored with every record.
const (
	metaUserID    = "user_id"
	metaEmotions  = "emotions"
	metaCreatedAt = "created_at"
	metaUpdatedAt = "updated_at"
)

// Entry is a stored perception record.
type Entry struct {
	ID        string               `json:"id"`
	UserID    string               `json:"user_id,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt *time.Time           `json:"updated_at,omitempty"`
	Score     float32              `json:"score,omitempty"`
	Record    nlu.PerceptionRecord `json:"record"`
}

// newDocument encodes rec as a Document. The content is the record JSON so a
// search matches on transcript, emotions and entities together.
func newDocument(id, userID string, rec nlu.PerceptionRecord, createdAt time.Time) (Document, error) {
	content, err := json.Marshal(rec)
	if err != nil {
		return Document{}, fmt.Errorf("encoding record %s: %w", id, err)
	}

	emotions := make([]string, len(rec.Emotions))
	for i, e := range rec.Emotions {
		emotions[i] = string(e)
	}

	return Document{
		ID:      id,
		Content: string(content),
		Metadata: map[string]interface{}{
			metaUserID:    userID,
			metaEmotions:  strings.Join(emotions, ","),
			metaCreatedAt: createdAt.UTC().Format(time.RFC3339Nano),
		},
	}, nil
}

// entryFromResult decodes a stored document.
func entryFromResult(r SearchResult) (Entry, error) {
	var rec nlu.PerceptionRecord
	if err := json.Unmarshal([]byte(r.Content), &rec); err != nil {
		return Entry{}, fmt.Errorf("decoding record %s: %w", r.ID, err)
	}
	if rec.Emotions == nil {
		rec.Emotions = []affect.Emotion{}
	}

	e := Entry{ID: r.ID, Score: r.Score, Record: rec}
	if v, ok := r.Metadata[metaUserID].(string); ok {
		e.UserID = v
	}
	if v, ok := r.Metadata[metaCreatedAt].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			e.CreatedAt = t
		}
	}
	if v, ok := r.Metadata[metaUpdatedAt].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			e.UpdatedAt = &t
		}
	}
	return e, nil
}

// decodeResults decodes results, dropping undecodable documents and
// reporting how many were skipped.
func decodeResults(results []SearchResult) ([]Entry, int) {
	entries := make([]Entry, 0, len(results))
	skipped := 0
	for _, r := range results {
		e, err := entryFromResult(r)
		if err != nil {
			skipped++
			continue
		}
		entries = append(entries, e)
	}
	return entries, skipped
}

// sortByCreated orders entries oldest first, breaking ties by id.
func sortByCreated(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].ID < entries[j].ID
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})
}

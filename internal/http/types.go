package http

import (
	"github.com/fyrsmithlabs/perceptd/internal/memory"
	"github.com/fyrsmithlabs/perceptd/internal/nlu"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Services map[string]string `json:"services"`
}

// AnalyzeTextRequest is the request body for POST /api/v1/analyze/text.
type AnalyzeTextRequest struct {
	Text   string   `json:"text"`
	Pitch  *float64 `json:"pitch,omitempty"`
	UserID string   `json:"user_id,omitempty"`
}

// EntriesResponse wraps memory entries.
type EntriesResponse struct {
	Entries []memory.Entry `json:"entries"`
	Count   int            `json:"count"`
}

// UpdateRecordRequest is the request body for PUT /api/v1/memory/long-term/:id.
type UpdateRecordRequest struct {
	UserID string               `json:"user_id"`
	Record nlu.PerceptionRecord `json:"record"`
}

func entries(e []memory.Entry) EntriesResponse {
	if e == nil {
		e = []memory.Entry{}
	}
	return EntriesResponse{Entries: e, Count: len(e)}
}

package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/memory"
	"github.com/fyrsmithlabs/perceptd/internal/nlu"
	"github.com/fyrsmithlabs/perceptd/internal/perception"
)

const (
	toolAnalyze = "analyze_utterance"
	toolRecall  = "recall_memory"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        toolAnalyze,
		Description: "Analyze the sentiment, emotions, mood and question intent of an utterance, with entities and semantic roles. Records with a user_id are remembered.",
	}, s.handleAnalyze)

	if s.memory != nil {
		mcp.AddTool(s.mcp, &mcp.Tool{
			Name:        toolRecall,
			Description: "Recall a user's perception records from working and long-term memory, optionally ranked by similarity to a query",
		}, s.handleRecall)
	}
}

// ===== ANALYZE =====

type analyzeInput struct {
	Text   string   `json:"text" jsonschema:"Transcript of the utterance"`
	Pitch  *float64 `json:"pitch,omitempty" jsonschema:"Mean fundamental frequency in Hz, if known"`
	UserID string   `json:"user_id,omitempty" jsonschema:"Speaker id; the record is remembered when set"`
}

type analyzeOutput struct {
	ID            string             `json:"id" jsonschema:"Analysis id"`
	OverallMood   string             `json:"overall_mood" jsonschema:"positive, negative or neutral"`
	Emotions      []string           `json:"emotions" jsonschema:"Emotion labels, never empty"`
	IsQuestioning bool               `json:"is_questioning" jsonschema:"Whether the utterance asks a question"`
	Polarity      float64            `json:"polarity" jsonschema:"Polarity in [-1, 1]"`
	Subjectivity  float64            `json:"subjectivity" jsonschema:"Subjectivity in [0, 1]"`
	Compound      float64            `json:"compound" jsonschema:"Compound valence in [-1, 1]"`
	Pitch         *float64           `json:"pitch,omitempty" jsonschema:"Pitch used, in Hz"`
	Entities      []nlu.Entity       `json:"entities" jsonschema:"Named entities"`
	SemanticRoles []nlu.SemanticRole `json:"semantic_roles" jsonschema:"Entity and action words"`
	Degraded      []string           `json:"degraded,omitempty" jsonschema:"Signals that were unavailable"`
}

func (s *Server) handleAnalyze(ctx context.Context, _ *mcp.CallToolRequest, args analyzeInput) (_ *mcp.CallToolResult, _ analyzeOutput, toolErr error) {
	done := s.metrics.track(ctx, toolAnalyze)
	defer func() { done(toolErr) }()

	a, err := s.perception.Analyze(ctx, perception.Input{Text: args.Text, Pitch: args.Pitch, UserID: args.UserID})
	if err != nil {
		return nil, analyzeOutput{}, fmt.Errorf("analyze failed: %w", err)
	}

	out := analyzeOutput{
		ID:            a.ID,
		OverallMood:   string(a.Tone.OverallMood),
		Emotions:      a.Tone.EmotionStrings(),
		IsQuestioning: a.Tone.IsQuestioning,
		Polarity:      a.Tone.Sentiment.Polarity,
		Subjectivity:  a.Tone.Sentiment.Subjectivity,
		Compound:      a.Tone.Sentiment.Compound,
		Pitch:         a.Tone.Pitch,
		Entities:      a.Record.Entities,
		SemanticRoles: a.Record.SemanticRoles,
		Degraded:      a.Degraded,
	}

	summary := fmt.Sprintf("Mood: %s; emotions: %s", out.OverallMood, strings.Join(out.Emotions, ", "))
	if out.IsQuestioning {
		summary += "; questioning"
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: summary}},
	}, out, nil
}

// ===== RECALL =====

type recallInput struct {
	UserID string `json:"user_id" jsonschema:"Speaker id"`
	Query  string `json:"query,omitempty" jsonschema:"Similarity query; empty returns recent and all records"`
}

type recalledRecord struct {
	ID         string   `json:"id"`
	Transcript string   `json:"transcript"`
	Emotions   []string `json:"emotions"`
	CreatedAt  string   `json:"created_at"`
	Score      float32  `json:"score,omitempty"`
}

type recallOutput struct {
	Working  []recalledRecord `json:"working_memory" jsonschema:"Recent records across speakers"`
	LongTerm []recalledRecord `json:"long_term_memory" jsonschema:"The speaker's stored records"`
}

func (s *Server) handleRecall(ctx context.Context, _ *mcp.CallToolRequest, args recallInput) (_ *mcp.CallToolResult, _ recallOutput, toolErr error) {
	done := s.metrics.track(ctx, toolRecall)
	defer func() { done(toolErr) }()

	recall, err := s.memory.Context(ctx, args.UserID, args.Query)
	if err != nil {
		s.logger.Warn("recall failed", zap.String("user_id", args.UserID), zap.Error(err))
		return nil, recallOutput{}, fmt.Errorf("recall failed: %w", err)
	}

	out := recallOutput{Working: recalled(recall.Working), LongTerm: recalled(recall.LongTerm)}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{
			Text: fmt.Sprintf("Recalled %d working and %d long-term records", len(out.Working), len(out.LongTerm)),
		}},
	}, out, nil
}

func recalled(entries []memory.Entry) []recalledRecord {
	out := make([]recalledRecord, 0, len(entries))
	for _, e := range entries {
		emotions := make([]string, len(e.Record.Emotions))
		for i, em := range e.Record.Emotions {
			emotions[i] = string(em)
		}
		out = append(out, recalledRecord{
			ID:         e.ID,
			Transcript: e.Record.Transcript,
			Emotions:   emotions,
			CreatedAt:  e.CreatedAt.Format(time.RFC3339),
			Score:      e.Score,
		})
	}
	return out
}

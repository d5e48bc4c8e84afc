package http

import (
	"bytes"
	"context"
	"encoding/json"
	"hash/fnv"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
	"github.com/fyrsmithlabs/perceptd/internal/logging"
	"github.com/fyrsmithlabs/perceptd/internal/memory"
	"github.com/fyrsmithlabs/perceptd/internal/nlu"
	"github.com/fyrsmithlabs/perceptd/internal/perception"
	"github.com/fyrsmithlabs/perceptd/internal/sentiment"
	"github.com/fyrsmithlabs/perceptd/internal/transcribe"
)

type wordEmbedder struct{}

func (wordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedWords(t)
	}
	return out, nil
}

func (wordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return embedWords(text), nil
}

func embedWords(text string) []float32 {
	v := make([]float32, 1024)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool { return !unicode.IsLetter(r) }) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%1024]++
	}
	var sum float64
	for _, x := range v {
		sum += float64(x * x)
	}
	if sum == 0 {
		v[0] = 1
		return v
	}
	for i := range v {
		v[i] /= float32(math.Sqrt(sum))
	}
	return v
}

type stubTranscriber struct {
	text string
	err  error
}

func (s stubTranscriber) Transcribe(_ context.Context, audio io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, audio)
	return s.text, s.err
}

type testEnv struct {
	server *Server
	memory *memory.Manager
}

func setupTestServer(t *testing.T, tr transcribe.Transcriber, cfg *Config) *testEnv {
	t.Helper()

	store, err := memory.NewChromemStore(memory.ChromemConfig{}, wordEmbedder{}, zap.NewNop())
	require.NoError(t, err)
	mgr, err := memory.NewManager(
		memory.NewWorkingMemory(store, 0, nil),
		memory.NewLongTermMemory(store, 0, nil),
		nil, store,
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mgr.Close() })

	lex, err := affect.DefaultLexicon()
	require.NoError(t, err)
	pattern, err := sentiment.NewPatternScorer()
	require.NoError(t, err)
	engine, err := affect.NewEngine(lex, affect.DefaultOptions(), pattern, sentiment.NewVaderScorer())
	require.NoError(t, err)
	svc, err := perception.NewService(engine, nlu.NewProseTagger(), mgr, nil)
	require.NoError(t, err)

	server, err := NewServer(Deps{Perception: svc, Memory: mgr, Transcriber: tr}, zap.NewNop(), cfg)
	require.NoError(t, err)
	return &testEnv{server: server, memory: mgr}
}

func (e *testEnv) do(t *testing.T, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.echo.ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	t.Run("uses defaults when config is nil", func(t *testing.T) {
		env := setupTestServer(t, nil, nil)
		assert.Equal(t, "localhost", env.server.config.Host)
		assert.Equal(t, 9090, env.server.config.Port)
		assert.Equal(t, int64(defaultMaxUploadSize), env.server.config.MaxUploadSize)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(Deps{Perception: &perception.Service{}}, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error without perception", func(t *testing.T) {
		_, err := NewServer(Deps{}, zap.NewNop(), nil)
		require.Error(t, err)
	})
}

func TestRequestIDReachesServiceLogs(t *testing.T) {
	lex, err := affect.DefaultLexicon()
	require.NoError(t, err)
	pattern, err := sentiment.NewPatternScorer()
	require.NoError(t, err)
	engine, err := affect.NewEngine(lex, affect.DefaultOptions(), pattern, sentiment.NewVaderScorer())
	require.NoError(t, err)

	logs := logging.NewTestLogger()
	svc, err := perception.NewService(engine, nil, nil, logs.Logger)
	require.NoError(t, err)
	server, err := NewServer(Deps{Perception: svc}, zap.NewNop(), nil)
	require.NoError(t, err)

	send := func(rid string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/text", strings.NewReader(`{"text":"I am happy"}`))
		req.Header.Set("Content-Type", "application/json")
		if rid != "" {
			req.Header.Set(echo.HeaderXRequestID, rid)
		}
		rec := httptest.NewRecorder()
		server.echo.ServeHTTP(rec, req)
		return rec
	}

	t.Run("client id", func(t *testing.T) {
		logs.Reset()
		rec := send("req-42")
		require.Equal(t, http.StatusOK, rec.Code)
		logs.AssertField(t, "utterance analyzed", "request.id", "req-42")
	})

	t.Run("generated id", func(t *testing.T) {
		logs.Reset()
		rec := send("")
		require.Equal(t, http.StatusOK, rec.Code)
		rid := rec.Header().Get(echo.HeaderXRequestID)
		require.NotEmpty(t, rid)
		logs.AssertField(t, "utterance analyzed", "request.id", rid)
	})

	t.Run("invalid client id is not propagated", func(t *testing.T) {
		logs.Reset()
		rec := send("bad id!")
		require.Equal(t, http.StatusOK, rec.Code)
		entries := logs.FilterMessage("utterance analyzed").All()
		require.Len(t, entries, 1)
		assert.NotContains(t, entries[0].ContextMap(), "request.id")
	})
}

func TestHandleHealth(t *testing.T) {
	env := setupTestServer(t, nil, &Config{Version: "1.2.3"})

	rec := env.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "1.2.3", resp.Version)
	assert.Equal(t, "ok", resp.Services["memory"])
	assert.Equal(t, "disabled", resp.Services["transcription"])
}

func TestHandleAnalyzeText(t *testing.T) {
	env := setupTestServer(t, nil, nil)

	t.Run("positive with high pitch", func(t *testing.T) {
		pitch := 220.0
		rec := env.do(t, http.MethodPost, "/api/v1/analyze/text", AnalyzeTextRequest{Text: "I am very happy today!", Pitch: &pitch})
		require.Equal(t, http.StatusOK, rec.Code)

		var a perception.Analysis
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
		assert.Equal(t, affect.MoodPositive, a.Tone.OverallMood)
		assert.Contains(t, a.Record.Emotions, affect.Happy)
		assert.NotEmpty(t, a.ID)
	})

	t.Run("bad user id", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/api/v1/analyze/text", AnalyzeTextRequest{Text: "hi", UserID: "no spaces allowed"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze/text", strings.NewReader("{"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		env.server.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func multipartAudio(t *testing.T, userID string, audio []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if audio != nil {
		part, err := w.CreateFormFile("audio", "clip.wav")
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, w.WriteField("user_id", userID))
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHandleAnalyzeAudio(t *testing.T) {
	t.Run("transcribes and remembers", func(t *testing.T) {
		env := setupTestServer(t, stubTranscriber{text: "I feel sad and down."}, nil)

		body, ct := multipartAudio(t, "alice", []byte("not really a wav"))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		env.server.echo.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var a perception.Analysis
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
		assert.Equal(t, "I feel sad and down.", a.Record.Transcript)
		assert.Nil(t, a.Tone.Pitch, "unparseable audio has no pitch")
		assert.Contains(t, a.Record.Emotions, affect.Sad)

		all, err := env.memory.LongTerm().All(context.Background(), "alice")
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, a.ID, all[0].ID)
	})

	t.Run("missing file", func(t *testing.T) {
		env := setupTestServer(t, stubTranscriber{}, nil)
		body, ct := multipartAudio(t, "alice", nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		env.server.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("transcription failure", func(t *testing.T) {
		env := setupTestServer(t, stubTranscriber{err: transcribe.ErrTranscriptionFailed}, nil)
		body, ct := multipartAudio(t, "alice", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		env.server.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})

	t.Run("not configured", func(t *testing.T) {
		env := setupTestServer(t, nil, nil)
		body, ct := multipartAudio(t, "alice", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/analyze", body)
		req.Header.Set("Content-Type", ct)
		rec := httptest.NewRecorder()
		env.server.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestMemoryRoutes(t *testing.T) {
	env := setupTestServer(t, nil, nil)

	for _, text := range []string{"I am very happy today!", "I feel sad and down.", "The weather is mild."} {
		rec := env.do(t, http.MethodPost, "/api/v1/analyze/text", AnalyzeTextRequest{Text: text, UserID: "bob"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	t.Run("working memory recent", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/memory/working?k=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp EntriesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
	})

	t.Run("bad k", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/memory/working?k=-1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("long-term all", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/memory/long-term?user_id=bob", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp EntriesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 3, resp.Count)
		assert.Equal(t, "I am very happy today!", resp.Entries[0].Record.Transcript)
	})

	t.Run("long-term search", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/memory/long-term?user_id=bob&q=weather&k=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp EntriesResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Equal(t, 1, resp.Count)
		assert.Equal(t, "The weather is mild.", resp.Entries[0].Record.Transcript)
	})

	t.Run("long-term requires user", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/memory/long-term", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update", func(t *testing.T) {
		all, err := env.memory.LongTerm().All(context.Background(), "bob")
		require.NoError(t, err)
		id := all[2].ID

		rec := env.do(t, http.MethodPut, "/api/v1/memory/long-term/"+id, UpdateRecordRequest{
			UserID: "bob",
			Record: nlu.PerceptionRecord{Transcript: "The weather is lovely.", Emotions: []affect.Emotion{affect.Happy}},
		})
		require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

		all, err = env.memory.LongTerm().All(context.Background(), "bob")
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "The weather is lovely.", all[2].Record.Transcript)
		assert.NotNil(t, all[2].UpdatedAt)

		rec = env.do(t, http.MethodPut, "/api/v1/memory/long-term/missing", UpdateRecordRequest{UserID: "bob"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("context", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/api/v1/context?user_id=bob&q=happy", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var recall memory.Recall
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &recall))
		assert.NotEmpty(t, recall.Working)
		assert.NotEmpty(t, recall.LongTerm)
	})

	t.Run("clear working memory", func(t *testing.T) {
		rec := env.do(t, http.MethodDelete, "/api/v1/memory/working", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		n, err := env.memory.Working().Len(context.Background())
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestServer(t, nil, nil)
	_ = env.do(t, http.MethodPost, "/api/v1/analyze/text", AnalyzeTextRequest{Text: "hello"})

	rec := env.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "perceptd_perception_utterances_total")
}

func TestRateLimit(t *testing.T) {
	env := setupTestServer(t, nil, &Config{Host: "localhost", Port: 9090, RateLimit: 0.001})

	var limited bool
	for i := 0; i < 10; i++ {
		rec := env.do(t, http.MethodPost, "/api/v1/analyze/text", AnalyzeTextRequest{Text: "hello"})
		if rec.Code == http.StatusTooManyRequests {
			limited = true
			break
		}
	}
	assert.True(t, limited)

	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "health is never limited")
}

func TestBodyLimit(t *testing.T) {
	env := setupTestServer(t, nil, &Config{MaxUploadSize: 16})
	rec := env.do(t, http.MethodPost, "/api/v1/analyze/text", AnalyzeTextRequest{Text: strings.Repeat("long ", 20)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

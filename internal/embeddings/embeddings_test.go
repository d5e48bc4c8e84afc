package embeddings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/perceptd/internal/config"
)

// newTEIServer answers /embed with one fixed-size vector per input.
func newTEIServer(t *testing.T, status int) (*httptest.Server, *[]teiRequest) {
	t.Helper()
	var seen []teiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embed", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req teiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		seen = append(seen, req)

		if status != http.StatusOK {
			http.Error(w, "model overloaded", status)
			return
		}

		n := 1
		if inputs, ok := req.Inputs.([]interface{}); ok {
			n = len(inputs)
		}
		out := make([][]float32, n)
		for i := range out {
			out[i] = []float32{float32(i), 1, 0}
		}
		_ = json.NewEncoder(w).Encode(out)
	}))
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(Config{}, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	svc, err := NewService(Config{BaseURL: "http://localhost:8080/"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", svc.config.BaseURL)
}

func TestService_EmbedDocuments(t *testing.T) {
	srv, seen := newTEIServer(t, http.StatusOK)
	svc, err := NewService(Config{BaseURL: srv.URL, Model: "BAAI/bge-small-en-v1.5"}, nil)
	require.NoError(t, err)
	before := testutil.ToFloat64(EmbedTextsTotal.WithLabelValues("tei"))
	failures := testutil.ToFloat64(EmbedErrorsTotal.WithLabelValues("tei", "documents"))

	vectors, err := svc.EmbedDocuments(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, before+2, testutil.ToFloat64(EmbedTextsTotal.WithLabelValues("tei")))
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 1, 0}, vectors[1])
	require.Len(t, *seen, 1)
	assert.True(t, (*seen)[0].Truncate)

	_, err = svc.EmbedDocuments(context.Background(), nil)
	require.ErrorIs(t, err, ErrEmptyInput)
	assert.Equal(t, failures+1, testutil.ToFloat64(EmbedErrorsTotal.WithLabelValues("tei", "documents")))
}

func TestService_EmbedQuery(t *testing.T) {
	srv, seen := newTEIServer(t, http.StatusOK)
	svc, err := NewService(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	vector, err := svc.EmbedQuery(context.Background(), "how do I feel")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 0}, vector)
	assert.Equal(t, "how do I feel", (*seen)[0].Inputs)

	_, err = svc.EmbedQuery(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestService_ServerError(t *testing.T) {
	srv, _ := newTEIServer(t, http.StatusServiceUnavailable)
	svc, err := NewService(Config{BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	_, err = svc.EmbedQuery(context.Background(), "x")
	require.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "503")
}

func TestService_SendsBearerToken(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`[[0.5,0.5]]`))
	}))
	defer srv.Close()

	svc, err := NewService(Config{BaseURL: srv.URL, APIKey: "tok"}, nil)
	require.NoError(t, err)
	_, err = svc.EmbedQuery(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", auth)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(ProviderConfig{Provider: "tei", BaseURL: "http://localhost:8080", Model: "BAAI/bge-base-en-v1.5"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 768, p.Dimension())
	require.NoError(t, p.Close())

	_, err = NewProvider(ProviderConfig{Provider: "openai"}, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDimensionForModel(t *testing.T) {
	for model, want := range map[string]int{
		"BAAI/bge-small-en-v1.5":                 384,
		"BAAI/bge-small-zh-v1.5":                 512,
		"sentence-transformers/all-MiniLM-L6-v2": 384,
		"intfloat/e5-large-v2":                   1024,
		"nomic-ai/nomic-embed-text-base":         768,
		"something-else":                         384,
	} {
		assert.Equal(t, want, DimensionForModel(model), model)
	}
}

func TestFromAppConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	pc, err := FromAppConfig(config.EmbeddingsConfig{Provider: "tei", BaseURL: "http://tei", Model: "m", CacheDir: "~/models"})
	require.NoError(t, err)
	assert.Equal(t, "tei", pc.Provider)
	assert.Equal(t, home+"/models", pc.CacheDir)
}

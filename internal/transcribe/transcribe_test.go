package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/perceptd/internal/logging"
)

// fakeAssembly serves upload, create and poll. The job reports
// "processing" for pending polls before reaching final.
func fakeAssembly(t *testing.T, pending int32, final transcriptResponse) (*httptest.Server, *int32) {
	t.Helper()
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/upload", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-key", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "RIFF-bytes", string(body))
		_ = json.NewEncoder(w).Encode(uploadResponse{UploadURL: "https://cdn.example/audio/1"})
	})
	mux.HandleFunc("/v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		var req transcriptRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://cdn.example/audio/1", req.AudioURL)
		_ = json.NewEncoder(w).Encode(transcriptResponse{ID: "job-1", Status: "queued"})
	})
	mux.HandleFunc("/v2/transcript/job-1", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&polls, 1)
		if n <= pending {
			_ = json.NewEncoder(w).Encode(transcriptResponse{ID: "job-1", Status: "processing"})
			return
		}
		_ = json.NewEncoder(w).Encode(final)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &polls
}

func newClient(t *testing.T, baseURL string, timeout time.Duration) (*AssemblyAI, *logging.TestLogger) {
	t.Helper()
	tl := logging.NewTestLogger()
	c, err := NewAssemblyAI(Config{
		BaseURL:      baseURL + "/",
		APIKey:       "secret-key",
		PollInterval: time.Millisecond,
		Timeout:      timeout,
	}, tl.Logger)
	require.NoError(t, err)
	return c, tl
}

func TestNewAssemblyAI_RequiresKey(t *testing.T) {
	_, err := NewAssemblyAI(Config{}, nil)
	require.ErrorIs(t, err, ErrInvalidConfig)

	c, err := NewAssemblyAI(Config{APIKey: "k"}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.config.BaseURL)
	assert.Equal(t, defaultPollInterval, c.config.PollInterval)
	assert.Equal(t, defaultTimeout, c.config.Timeout)
}

func TestTranscribe_PollsUntilCompleted(t *testing.T) {
	srv, polls := fakeAssembly(t, 2, transcriptResponse{ID: "job-1", Status: "completed", Text: "I am very happy today!"})
	c, tl := newClient(t, srv.URL, 5*time.Second)

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues(resultCompleted))
	text, err := c.Transcribe(context.Background(), strings.NewReader("RIFF-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "I am very happy today!", text)
	assert.Equal(t, int32(3), atomic.LoadInt32(polls))
	assert.Equal(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues(resultCompleted)))
	tl.AssertNoSecrets(t)
	for _, e := range tl.All() {
		assert.NotContains(t, e.Message, "secret-key")
	}
}

func TestTranscribe_JobError(t *testing.T) {
	srv, _ := fakeAssembly(t, 0, transcriptResponse{ID: "job-1", Status: "error", Error: "audio too short"})
	c, _ := newClient(t, srv.URL, 5*time.Second)

	_, err := c.Transcribe(context.Background(), strings.NewReader("RIFF-bytes"))
	require.ErrorIs(t, err, ErrTranscriptionFailed)
	assert.Contains(t, err.Error(), "audio too short")
}

func TestTranscribe_Timeout(t *testing.T) {
	srv, _ := fakeAssembly(t, math.MaxInt32, transcriptResponse{})
	c, _ := newClient(t, srv.URL, 50*time.Millisecond)

	before := testutil.ToFloat64(RequestsTotal.WithLabelValues(resultTimeout))
	_, err := c.Transcribe(context.Background(), strings.NewReader("RIFF-bytes"))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, before+1, testutil.ToFloat64(RequestsTotal.WithLabelValues(resultTimeout)))
}

func TestTranscribe_UploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
	}))
	defer srv.Close()
	c, _ := newClient(t, srv.URL, time.Second)

	_, err := c.Transcribe(context.Background(), bytes.NewReader(nil))
	require.ErrorIs(t, err, ErrTranscriptionFailed)
	assert.Contains(t, err.Error(), "401")
}

// writeWAV encodes samples as 16-bit mono PCM.
func writeWAV(t *testing.T, sampleRate int, samples []float64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s * 32767)
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	require.NoError(t, enc.Write(&audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	return path
}

func sine(freq float64, sampleRate int, seconds float64) []float64 {
	n := int(float64(sampleRate) * seconds)
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func TestEstimatePitch_Sine(t *testing.T) {
	for _, freq := range []float64{80, 150, 220, 400} {
		path := writeWAV(t, 16000, sine(freq, 16000, 0.5))
		pitch, err := EstimatePitchFile(path)
		require.NoError(t, err)
		require.NotNil(t, pitch, "%.0f Hz", freq)
		assert.InDelta(t, freq, *pitch, freq*0.03, "%.0f Hz", freq)
	}
}

func TestEstimatePitch_Silence(t *testing.T) {
	path := writeWAV(t, 16000, make([]float64, 8000))
	pitch, err := EstimatePitchFile(path)
	require.NoError(t, err)
	assert.Nil(t, pitch)
}

func TestEstimatePitch_InvalidInput(t *testing.T) {
	_, err := EstimatePitch(bytes.NewReader([]byte("definitely not audio")))
	require.ErrorIs(t, err, ErrInvalidAudio)

	_, err = EstimatePitchFile(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
}

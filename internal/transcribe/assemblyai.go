// Package transcribe turns recorded audio into the text and pitch inputs of
// the perception pipeline.
//
// AssemblyAI uploads audio to the AssemblyAI REST API and polls the
// resulting transcript job. EstimatePitch derives a mean fundamental
// frequency from a PCM WAV file.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/perceptd/internal/logging"
)

const (
	// DefaultBaseURL is the public AssemblyAI endpoint.
	DefaultBaseURL = "https://api.assemblyai.com"

	defaultPollInterval = time.Second
	defaultTimeout      = 5 * time.Minute
	maxErrorBody        = 512
)

var (
	// ErrInvalidConfig indicates a missing API key or malformed settings.
	ErrInvalidConfig = errors.New("invalid transcription config")

	// ErrTranscriptionFailed indicates the service rejected the job or
	// answered with something other than a transcript.
	ErrTranscriptionFailed = errors.New("transcription failed")
)

// Transcriber converts an audio stream to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader) (string, error)
}

// Config configures the AssemblyAI client.
type Config struct {
	BaseURL string
	// APIKey is sent in the authorization header. Never logged.
	APIKey string
	// PollInterval paces transcript status checks. Default: 1s.
	PollInterval time.Duration
	// Timeout bounds one Transcribe call end to end. Default: 5m.
	Timeout time.Duration
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// AssemblyAI is a Transcriber backed by the AssemblyAI v2 REST API.
type AssemblyAI struct {
	config Config
	client *http.Client
	logger *logging.Logger
}

var _ Transcriber = (*AssemblyAI)(nil)

// NewAssemblyAI validates cfg and returns a client.
func NewAssemblyAI(cfg Config, logger *logging.Logger) (*AssemblyAI, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: api key is required", ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &AssemblyAI{config: cfg, client: client, logger: logger.Named("transcribe")}, nil
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptRequest struct {
	AudioURL string `json:"audio_url"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe uploads audio, starts a transcript job and polls it until it
// completes, fails, or the configured timeout elapses.
func (a *AssemblyAI) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()
	start := time.Now()

	text, err := a.transcribe(ctx, audio)
	switch {
	case err == nil:
		RequestsTotal.WithLabelValues(resultCompleted).Inc()
		a.logger.Info(ctx, "transcript completed",
			zap.Int("chars", len(text)),
			zap.Duration("duration", time.Since(start)),
		)
		return text, nil
	case errors.Is(err, context.DeadlineExceeded):
		RequestsTotal.WithLabelValues(resultTimeout).Inc()
	case errors.Is(err, ErrTranscriptionFailed):
		RequestsTotal.WithLabelValues(resultError).Inc()
	default:
		RequestsTotal.WithLabelValues(resultFailed).Inc()
	}
	a.logger.Warn(ctx, "transcription failed", zap.Error(err), zap.Duration("duration", time.Since(start)))
	return "", err
}

func (a *AssemblyAI) transcribe(ctx context.Context, audio io.Reader) (string, error) {
	var up uploadResponse
	if err := a.do(ctx, http.MethodPost, "/v2/upload", "application/octet-stream", audio, &up); err != nil {
		return "", fmt.Errorf("uploading audio: %w", err)
	}
	if up.UploadURL == "" {
		return "", fmt.Errorf("%w: upload returned no url", ErrTranscriptionFailed)
	}

	body, err := json.Marshal(transcriptRequest{AudioURL: up.UploadURL})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}
	var job transcriptResponse
	if err := a.do(ctx, http.MethodPost, "/v2/transcript", "application/json", bytes.NewReader(body), &job); err != nil {
		return "", fmt.Errorf("creating transcript: %w", err)
	}
	if job.ID == "" {
		return "", fmt.Errorf("%w: transcript job has no id", ErrTranscriptionFailed)
	}
	a.logger.Debug(ctx, "transcript job created", zap.String("transcript.id", job.ID))

	limiter := rate.NewLimiter(rate.Every(a.config.PollInterval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			// Wait reports a deadline it cannot meet without wrapping ctx.Err.
			if ctx.Err() != nil {
				return "", fmt.Errorf("polling transcript %s: %w", job.ID, ctx.Err())
			}
			return "", fmt.Errorf("polling transcript %s: %w", job.ID, context.DeadlineExceeded)
		}

		var status transcriptResponse
		if err := a.do(ctx, http.MethodGet, "/v2/transcript/"+job.ID, "", nil, &status); err != nil {
			return "", fmt.Errorf("polling transcript %s: %w", job.ID, err)
		}

		switch status.Status {
		case "completed":
			return status.Text, nil
		case "error":
			return "", fmt.Errorf("%w: %s", ErrTranscriptionFailed, status.Error)
		}
		a.logger.Trace(ctx, "transcript pending", zap.String("transcript.id", job.ID), zap.String("status", status.Status))
	}
}

func (a *AssemblyAI) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, a.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", a.config.APIKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%w: status %d: %s", ErrTranscriptionFailed, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", ErrTranscriptionFailed, err)
	}
	return nil
}

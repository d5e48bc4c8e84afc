// Package config provides configuration loading for perceptd.
//
// Values come from defaults, then an optional YAML file, then PERCEPTD_*
// environment variables. See LoadWithFile.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"time"
)

// Config holds the complete perceptd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Logging       LoggingConfig       `koanf:"logging"`
	Affect        AffectConfig        `koanf:"affect"`
	Tagger        TaggerConfig        `koanf:"tagger"`
	Memory        MemoryConfig        `koanf:"memory"`
	Chromem       ChromemConfig       `koanf:"chromem"`
	Qdrant        QdrantConfig        `koanf:"qdrant"`
	Embeddings    EmbeddingsConfig    `koanf:"embeddings"`
	Transcription TranscriptionConfig `koanf:"transcription"`
	Events        EventsConfig        `koanf:"events"`
	Telemetry     TelemetryConfig     `koanf:"telemetry"`
	Redaction     RedactionConfig     `koanf:"redaction"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"http_host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
	// RateLimit is requests per second per client IP. Zero disables limiting.
	RateLimit     float64 `koanf:"rate_limit"`
	MaxUploadSize int64   `koanf:"max_upload_bytes"`
}

// LoggingConfig selects level and format. The full logging.Config is derived
// from it at startup.
type LoggingConfig struct {
	Level    string `koanf:"level"`
	Format   string `koanf:"format"`
	Sampling bool   `koanf:"sampling"`
	OTEL     bool   `koanf:"otel"`
	// LogContent logs transcripts and queries verbatim.
	LogContent bool `koanf:"log_content"`
}

// AffectConfig holds the affect engine thresholds.
type AffectConfig struct {
	LowPitchThresholdHz     float64 `koanf:"low_pitch_threshold_hz"`
	HighPitchThresholdHz    float64 `koanf:"high_pitch_threshold_hz"`
	StrongPolarityThreshold float64 `koanf:"strong_polarity_threshold"`
	NeutralPolarityBand     float64 `koanf:"neutral_polarity_band"`
	// MoodNeutralBand defaults to NeutralPolarityBand.
	MoodNeutralBand float64 `koanf:"mood_neutral_band"`
	// StrictMoodSign makes mood follow the bare sign of polarity.
	StrictMoodSign      bool    `koanf:"strict_mood_sign"`
	NegationWindow      int     `koanf:"negation_window"`
	MaxPlausiblePitchHz float64 `koanf:"max_plausible_pitch_hz"`
	LexiconPath         string  `koanf:"lexicon_path"`
	PolarityLexiconPath string  `koanf:"polarity_lexicon_path"`
}

// TaggerConfig selects the part-of-speech and entity tagger.
type TaggerConfig struct {
	// Provider is "prose" or "none".
	Provider string `koanf:"provider"`
}

// MemoryConfig holds memory tier settings.
type MemoryConfig struct {
	// Backend for long-term memory: "chromem" or "qdrant". Working memory is
	// always an in-process chromem collection.
	Backend      string   `koanf:"backend"`
	WorkingK     int      `koanf:"working_k"`
	LongTermK    int      `koanf:"long_term_k"`
	QueueSize    int      `koanf:"queue_size"`
	Workers      int      `koanf:"workers"`
	WriteTimeout Duration `koanf:"write_timeout"`
}

// ChromemConfig holds chromem-go settings for long-term memory.
type ChromemConfig struct {
	Path     string `koanf:"path"`
	Compress bool   `koanf:"compress"`
}

// QdrantConfig holds Qdrant gRPC settings.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	APIKey     Secret `koanf:"api_key"`
	UseTLS     bool   `koanf:"use_tls"`
	MaxRetries int    `koanf:"max_retries"`
}

// EmbeddingsConfig selects the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "fastembed" or "tei".
	Provider string `koanf:"provider"`
	BaseURL  string `koanf:"base_url"`
	Model    string `koanf:"model"`
	CacheDir string `koanf:"cache_dir"`
}

// TranscriptionConfig holds AssemblyAI settings.
type TranscriptionConfig struct {
	BaseURL      string   `koanf:"base_url"`
	APIKey       Secret   `koanf:"api_key"`
	PollInterval Duration `koanf:"poll_interval"`
	Timeout      Duration `koanf:"timeout"`
}

// EventsConfig holds NATS publishing settings. An empty URL disables it.
type EventsConfig struct {
	NATSURL       string `koanf:"nats_url"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// RedactionConfig controls secret scrubbing of stored and published records.
type RedactionConfig struct {
	Disabled bool `koanf:"disabled"`
	// AllowlistPath is a gitleaks-style TOML file of patterns to keep.
	AllowlistPath string `koanf:"allowlist_path"`
}

// TelemetryConfig holds OTLP export settings. Disabled by default.
type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
	// Protocol is "grpc" or "http/protobuf".
	Protocol string `koanf:"protocol"`
	Insecure bool   `koanf:"insecure"`
	// SampleRate is the trace sampling ratio in (0, 1].
	SampleRate      float64  `koanf:"sample_rate"`
	MetricsInterval Duration `koanf:"metrics_interval"`
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9191
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Server.MaxUploadSize == 0 {
		cfg.Server.MaxUploadSize = 25 << 20
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	a := &cfg.Affect
	if a.LowPitchThresholdHz == 0 {
		a.LowPitchThresholdHz = 100
	}
	if a.HighPitchThresholdHz == 0 {
		a.HighPitchThresholdHz = 200
	}
	if a.StrongPolarityThreshold == 0 {
		a.StrongPolarityThreshold = 0.5
	}
	if a.NeutralPolarityBand == 0 {
		a.NeutralPolarityBand = 0.2
	}
	if a.MoodNeutralBand == 0 && !a.StrictMoodSign {
		a.MoodNeutralBand = a.NeutralPolarityBand
	}
	if a.StrictMoodSign {
		a.MoodNeutralBand = 0
	}
	if a.NegationWindow == 0 {
		a.NegationWindow = 3
	}
	if a.MaxPlausiblePitchHz == 0 {
		a.MaxPlausiblePitchHz = 2000
	}

	if cfg.Tagger.Provider == "" {
		cfg.Tagger.Provider = "prose"
	}

	m := &cfg.Memory
	if m.Backend == "" {
		m.Backend = "chromem"
	}
	if m.WorkingK == 0 {
		m.WorkingK = 5
	}
	if m.LongTermK == 0 {
		m.LongTermK = 10
	}
	if m.QueueSize == 0 {
		m.QueueSize = 256
	}
	if m.Workers == 0 {
		m.Workers = 2
	}
	if m.WriteTimeout == 0 {
		m.WriteTimeout = Duration(30 * time.Second)
	}

	if cfg.Chromem.Path == "" {
		cfg.Chromem.Path = "~/.config/perceptd/memory"
	}

	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.MaxRetries == 0 {
		cfg.Qdrant.MaxRetries = 3
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "fastembed"
	}
	if cfg.Embeddings.BaseURL == "" {
		cfg.Embeddings.BaseURL = "http://localhost:8080"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}

	if cfg.Transcription.BaseURL == "" {
		cfg.Transcription.BaseURL = "https://api.assemblyai.com"
	}
	if cfg.Transcription.PollInterval == 0 {
		cfg.Transcription.PollInterval = Duration(time.Second)
	}
	if cfg.Transcription.Timeout == 0 {
		cfg.Transcription.Timeout = Duration(5 * time.Minute)
	}

	if cfg.Events.SubjectPrefix == "" {
		cfg.Events.SubjectPrefix = "perception.records"
	}

	t := &cfg.Telemetry
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4317"
		t.Insecure = true
	}
	if t.Protocol == "" {
		t.Protocol = "grpc"
	}
	if t.SampleRate == 0 {
		t.SampleRate = 1
	}
	if t.MetricsInterval == 0 {
		t.MetricsInterval = Duration(15 * time.Second)
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, errors.New("rate limit cannot be negative"))
	}
	if c.Server.MaxUploadSize <= 0 {
		errs = append(errs, errors.New("max upload size must be positive"))
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		errs = append(errs, fmt.Errorf("logging format must be 'json' or 'console', got %q", c.Logging.Format))
	}

	errs = append(errs, c.Affect.validate()...)

	switch c.Tagger.Provider {
	case "prose", "none":
	default:
		errs = append(errs, fmt.Errorf("unknown tagger provider %q", c.Tagger.Provider))
	}

	switch c.Memory.Backend {
	case "chromem", "qdrant":
	default:
		errs = append(errs, fmt.Errorf("unknown memory backend %q", c.Memory.Backend))
	}
	if c.Memory.WorkingK < 1 || c.Memory.LongTermK < 1 {
		errs = append(errs, errors.New("memory k values must be >= 1"))
	}
	if c.Memory.QueueSize < 1 || c.Memory.Workers < 1 {
		errs = append(errs, errors.New("memory queue size and workers must be >= 1"))
	}
	if c.Qdrant.Port < 1 || c.Qdrant.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid qdrant port: %d", c.Qdrant.Port))
	}

	switch c.Embeddings.Provider {
	case "fastembed", "tei":
	default:
		errs = append(errs, fmt.Errorf("unknown embeddings provider %q", c.Embeddings.Provider))
	}

	if _, err := url.ParseRequestURI(c.Transcription.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid transcription base_url: %w", err))
	}
	if c.Transcription.PollInterval <= 0 || c.Transcription.Timeout <= 0 {
		errs = append(errs, errors.New("transcription poll_interval and timeout must be positive"))
	}

	return errors.Join(errs...)
}

func (a AffectConfig) validate() []error {
	var errs []error
	for name, v := range map[string]float64{
		"low_pitch_threshold_hz":    a.LowPitchThresholdHz,
		"high_pitch_threshold_hz":   a.HighPitchThresholdHz,
		"strong_polarity_threshold": a.StrongPolarityThreshold,
		"neutral_polarity_band":     a.NeutralPolarityBand,
		"mood_neutral_band":         a.MoodNeutralBand,
		"max_plausible_pitch_hz":    a.MaxPlausiblePitchHz,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("affect.%s must be finite", name))
		}
	}
	if a.LowPitchThresholdHz <= 0 || a.LowPitchThresholdHz >= a.HighPitchThresholdHz {
		errs = append(errs, fmt.Errorf("affect: need 0 < low_pitch_threshold_hz (%.1f) < high_pitch_threshold_hz (%.1f)",
			a.LowPitchThresholdHz, a.HighPitchThresholdHz))
	}
	if a.HighPitchThresholdHz >= a.MaxPlausiblePitchHz {
		errs = append(errs, errors.New("affect: high_pitch_threshold_hz must be below max_plausible_pitch_hz"))
	}
	if a.NeutralPolarityBand < 0 || a.NeutralPolarityBand > a.StrongPolarityThreshold || a.StrongPolarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("affect: need 0 <= neutral_polarity_band (%.2f) <= strong_polarity_threshold (%.2f) <= 1",
			a.NeutralPolarityBand, a.StrongPolarityThreshold))
	}
	if a.MoodNeutralBand < 0 || a.MoodNeutralBand > 1 {
		errs = append(errs, fmt.Errorf("affect: mood_neutral_band %.2f out of [0, 1]", a.MoodNeutralBand))
	}
	if a.NegationWindow < 0 {
		errs = append(errs, errors.New("affect: negation_window must be >= 0"))
	}
	return errs
}

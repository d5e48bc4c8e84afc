package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
	"github.com/fyrsmithlabs/perceptd/internal/config"
	"github.com/fyrsmithlabs/perceptd/internal/embeddings"
	"github.com/fyrsmithlabs/perceptd/internal/events"
	"github.com/fyrsmithlabs/perceptd/internal/logging"
	"github.com/fyrsmithlabs/perceptd/internal/memory"
	"github.com/fyrsmithlabs/perceptd/internal/nlu"
	"github.com/fyrsmithlabs/perceptd/internal/perception"
	"github.com/fyrsmithlabs/perceptd/internal/redact"
	"github.com/fyrsmithlabs/perceptd/internal/sentiment"
	"github.com/fyrsmithlabs/perceptd/internal/telemetry"
	"github.com/fyrsmithlabs/perceptd/internal/transcribe"
)

// depOptions selects the optional parts a command needs.
type depOptions struct {
	memory    bool
	events    bool
	telemetry bool
	// stderrLogs keeps stdout free for command output or a stdio transport.
	stderrLogs bool
}

// dependencies holds everything a command wires together. Unused parts stay
// nil.
type dependencies struct {
	cfg         *config.Config
	logger      *logging.Logger
	telemetry   *telemetry.Telemetry
	embedder    embeddings.Provider
	memory      *memory.Manager
	publisher   *events.Publisher
	sink        *perception.AsyncSink
	transcriber transcribe.Transcriber
	perception  *perception.Service
}

// initDependencies builds the perception service and whatever opts asks for.
// On error everything built so far is closed.
func initDependencies(ctx context.Context, cfg *config.Config, opts depOptions) (_ *dependencies, err error) {
	d := &dependencies{cfg: cfg}
	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	if d.logger, err = initLogger(cfg.Logging, opts.stderrLogs); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zl := d.logger.Underlying()

	if opts.telemetry {
		d.telemetry, err = telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, version))
		if err != nil {
			return nil, err
		}
		if h := d.telemetry.Health(); h.Degraded {
			d.logger.Warn(ctx, "telemetry degraded", zap.Strings("problems", h.Problems))
		}
	}

	engine, err := newEngine(cfg.Affect)
	if err != nil {
		return nil, err
	}

	var sinks perception.MultiSink
	if opts.memory {
		embedCfg, err := embeddings.FromAppConfig(cfg.Embeddings)
		if err != nil {
			return nil, err
		}
		if d.embedder, err = embeddings.NewProvider(embedCfg, zl.Named("embeddings")); err != nil {
			return nil, fmt.Errorf("failed to initialize embeddings: %w", err)
		}
		if d.memory, err = newMemory(cfg, d.embedder, zl.Named("memory")); err != nil {
			return nil, err
		}
		sinks = append(sinks, d.memory)
	}

	if opts.events && cfg.Events.NATSURL != "" {
		if d.publisher, err = events.Connect(cfg.Events.NATSURL, cfg.Events.SubjectPrefix, d.logger); err != nil {
			return nil, err
		}
		sinks = append(sinks, d.publisher)
	}

	var sink perception.Sink
	if len(sinks) > 0 {
		var next perception.Sink = sinks
		if !cfg.Redaction.Disabled {
			if next, err = newRedactSink(cfg.Redaction, sinks, d.logger); err != nil {
				return nil, err
			}
		}
		d.sink = perception.NewAsyncSink(next, perception.AsyncOptions{
			QueueSize:    cfg.Memory.QueueSize,
			Workers:      cfg.Memory.Workers,
			WriteTimeout: cfg.Memory.WriteTimeout.Duration(),
		}, d.logger)
		sink = d.sink
	}

	if key := cfg.Transcription.APIKey.Value(); key != "" {
		d.transcriber, err = transcribe.NewAssemblyAI(transcribe.Config{
			BaseURL:      cfg.Transcription.BaseURL,
			APIKey:       key,
			PollInterval: cfg.Transcription.PollInterval.Duration(),
			Timeout:      cfg.Transcription.Timeout.Duration(),
		}, d.logger)
		if err != nil {
			return nil, err
		}
	}

	if d.perception, err = perception.NewService(engine, newTagger(cfg.Tagger), sink, d.logger); err != nil {
		return nil, err
	}

	d.logger.Info(ctx, "dependencies initialized",
		zap.Bool("memory", d.memory != nil),
		zap.String("memory_backend", cfg.Memory.Backend),
		zap.Bool("events", d.publisher != nil),
		zap.Bool("transcription", d.transcriber != nil),
		zap.String("tagger", cfg.Tagger.Provider),
	)
	return d, nil
}

// Close drains pending writes before closing the stores they target.
func (d *dependencies) Close() {
	timeout := 10 * time.Second
	if d.cfg != nil {
		timeout = d.cfg.Server.ShutdownTimeout.Duration()
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	if d.sink != nil {
		errs = append(errs, d.sink.Close(ctx))
	}
	if d.publisher != nil {
		errs = append(errs, d.publisher.Close())
	}
	if d.memory != nil {
		errs = append(errs, d.memory.Close())
	}
	if d.embedder != nil {
		errs = append(errs, d.embedder.Close())
	}
	if d.telemetry != nil {
		errs = append(errs, d.telemetry.Shutdown(ctx))
	}
	if d.logger != nil {
		if err := errors.Join(errs...); err != nil {
			d.logger.Warn(ctx, "shutdown incomplete", zap.Error(err))
		}
		_ = d.logger.Sync()
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func initLogger(c config.LoggingConfig, toStderr bool) (*logging.Logger, error) {
	cfg, err := logging.FromAppConfig(c)
	if err != nil {
		return nil, err
	}
	if toStderr {
		cfg.Output.Stderr = true
	}
	return logging.NewLogger(cfg, global.GetLoggerProvider())
}

// newEngine builds the affect engine from the affect config section.
func newEngine(c config.AffectConfig) (*affect.Engine, error) {
	lex, err := affect.DefaultLexicon()
	if c.LexiconPath != "" {
		var path string
		if path, err = config.ExpandPath(c.LexiconPath); err == nil {
			lex, err = affect.LoadLexicon(path)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load emotion lexicon: %w", err)
	}

	polarity, err := newPolarityScorer(c.PolarityLexiconPath)
	if err != nil {
		return nil, err
	}

	opts := affect.DefaultOptions()
	opts.LowPitchThresholdHz = c.LowPitchThresholdHz
	opts.HighPitchThresholdHz = c.HighPitchThresholdHz
	opts.StrongPolarityThreshold = c.StrongPolarityThreshold
	opts.NeutralPolarityBand = c.NeutralPolarityBand
	opts.MoodNeutralBand = c.MoodNeutralBand
	opts.NegationWindow = c.NegationWindow
	opts.MaxPlausiblePitchHz = c.MaxPlausiblePitchHz

	return affect.NewEngine(lex, opts, polarity, sentiment.NewVaderScorer())
}

func newPolarityScorer(path string) (*sentiment.PatternScorer, error) {
	if path == "" {
		return sentiment.NewPatternScorer()
	}
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(expanded) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("failed to read polarity lexicon: %w", err)
	}
	return sentiment.ParsePatternLexicon(data)
}

func newRedactSink(c config.RedactionConfig, next perception.Sink, logger *logging.Logger) (perception.Sink, error) {
	path := c.AllowlistPath
	if path != "" {
		var err error
		if path, err = config.ExpandPath(path); err != nil {
			return nil, err
		}
	}
	allowlist, err := redact.LoadAllowlist(path)
	if err != nil {
		return nil, err
	}
	redactor, err := redact.New(allowlist)
	if err != nil {
		return nil, err
	}
	return redact.NewSink(next, redactor, logger), nil
}

func newTagger(c config.TaggerConfig) nlu.Tagger {
	if c.Provider == "none" {
		return nil
	}
	return nlu.NewProseTagger()
}

// newMemory builds the two tiers. Working memory always lives in a volatile
// chromem collection; long-term memory follows the configured backend.
func newMemory(cfg *config.Config, embedder memory.Embedder, logger *zap.Logger) (*memory.Manager, error) {
	workingStore, err := memory.NewChromemStore(memory.ChromemConfig{}, embedder, logger.Named("working"))
	if err != nil {
		return nil, fmt.Errorf("failed to create working memory: %w", err)
	}

	var longTermStore memory.Store
	switch cfg.Memory.Backend {
	case "qdrant":
		longTermStore, err = memory.NewQdrantStore(memory.QdrantConfig{
			Host:       cfg.Qdrant.Host,
			Port:       cfg.Qdrant.Port,
			APIKey:     cfg.Qdrant.APIKey.Value(),
			UseTLS:     cfg.Qdrant.UseTLS,
			MaxRetries: cfg.Qdrant.MaxRetries,
		}, embedder, logger.Named("qdrant"))
	default:
		var path string
		if path, err = config.ExpandPath(cfg.Chromem.Path); err == nil {
			longTermStore, err = memory.NewChromemStore(memory.ChromemConfig{
				Path:     path,
				Compress: cfg.Chromem.Compress,
			}, embedder, logger.Named("chromem"))
		}
	}
	if err != nil {
		_ = workingStore.Close()
		return nil, fmt.Errorf("failed to create long-term memory: %w", err)
	}

	return memory.NewManager(
		memory.NewWorkingMemory(workingStore, cfg.Memory.WorkingK, logger),
		memory.NewLongTermMemory(longTermStore, cfg.Memory.LongTermK, logger),
		logger,
		workingStore, longTermStore,
	)
}

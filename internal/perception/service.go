// Package perception runs one utterance through the affect engine and the
// tagger, fuses the result into a PerceptionRecord and hands it to a Sink.
//
// Analysis never fails because a signal is missing: scorer, pitch and tagger
// failures are logged, counted and listed in Analysis.Degraded.
package perception

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
	"github.com/fyrsmithlabs/perceptd/internal/logging"
	"github.com/fyrsmithlabs/perceptd/internal/nlu"
)

// SignalTagging names a failed tagger in Analysis.Degraded.
const SignalTagging = "tagging"

const tracerName = "github.com/fyrsmithlabs/perceptd/internal/perception"

// ErrInvalidInput is returned for inputs that cannot be analyzed at all.
var ErrInvalidInput = errors.New("invalid input")

// Input is one utterance.
type Input struct {
	// Text is the transcript. Empty text yields a neutral record.
	Text string
	// Pitch is the mean fundamental frequency in Hz, if known.
	Pitch *float64
	// UserID owns the record in long-term memory. Empty skips the sink.
	UserID string
}

// Analysis is the result of Analyze.
type Analysis struct {
	ID       string               `json:"id"`
	Tone     affect.ToneRecord    `json:"tone"`
	Record   nlu.PerceptionRecord `json:"record"`
	Degraded []string             `json:"degraded,omitempty"`
}

// Service wires the engine, tagger and sink.
type Service struct {
	engine atomic.Pointer[affect.Engine]
	tagger nlu.Tagger
	sink   Sink
	logger *logging.Logger
}

// NewService returns a Service. A nil tagger disables entity and role
// extraction; a nil sink discards records.
func NewService(engine *affect.Engine, tagger nlu.Tagger, sink Sink, logger *logging.Logger) (*Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: engine is required", ErrInvalidInput)
	}
	if logger == nil {
		logger = logging.Nop()
	}
	s := &Service{tagger: tagger, sink: sink, logger: logger.Named("perception")}
	s.engine.Store(engine)
	return s, nil
}

// Engine returns the engine currently in use.
func (s *Service) Engine() *affect.Engine {
	return s.engine.Load()
}

// SwapEngine replaces the engine. In-flight analyses finish on the old one.
func (s *Service) SwapEngine(engine *affect.Engine) error {
	if engine == nil {
		return fmt.Errorf("%w: engine is required", ErrInvalidInput)
	}
	s.engine.Store(engine)
	return nil
}

// Analyze analyzes one utterance. It returns an error only when ctx is done
// or the user id is malformed.
func (s *Service) Analyze(ctx context.Context, in Input) (*Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in.UserID != "" {
		if err := logging.ValidateID(in.UserID, "user_id"); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		ctx = logging.WithUserID(ctx, in.UserID)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "perception.analyze")
	defer span.End()

	start := time.Now()
	tone, degradations := s.engine.Load().Analyze(in.Text, in.Pitch)

	var degraded []string
	for _, d := range degradations {
		degraded = append(degraded, d.Signal)
		s.logger.Warn(ctx, "signal degraded", zap.String("signal", d.Signal), zap.Error(d.Err))
	}

	var tagging nlu.Tagging
	if s.tagger != nil {
		t, err := s.tagger.Tag(ctx, in.Text)
		if err != nil {
			degraded = append(degraded, SignalTagging)
			s.logger.Warn(ctx, "signal degraded", zap.String("signal", SignalTagging), zap.Error(err))
		} else {
			tagging = t
		}
	}

	a := &Analysis{
		ID:       uuid.NewString(),
		Tone:     tone,
		Record:   nlu.Fuse(in.Text, tone, tagging),
		Degraded: degraded,
	}

	span.SetAttributes(
		attribute.String("analysis.id", a.ID),
		attribute.String("mood", string(tone.OverallMood)),
		attribute.StringSlice("emotions", tone.EmotionStrings()),
		attribute.Bool("questioning", tone.IsQuestioning),
		attribute.StringSlice("degraded", degraded),
	)

	AnalysisDuration.Observe(time.Since(start).Seconds())
	UtterancesTotal.WithLabelValues(string(tone.OverallMood)).Inc()
	for _, e := range tone.Emotions {
		EmotionsTotal.WithLabelValues(string(e)).Inc()
	}
	for _, sig := range degraded {
		DegradedTotal.WithLabelValues(sig).Inc()
	}

	s.logger.Debug(ctx, "utterance analyzed",
		zap.String("analysis.id", a.ID),
		zap.String("mood", string(tone.OverallMood)),
		zap.Strings("emotions", tone.EmotionStrings()),
		zap.Bool("questioning", tone.IsQuestioning),
		zap.Duration("duration", time.Since(start)),
	)

	if s.sink != nil && in.UserID != "" {
		if err := s.sink.Remember(ctx, a.ID, in.UserID, a.Record); err != nil {
			s.logger.Warn(ctx, "record not handed to memory", zap.String("analysis.id", a.ID), zap.Error(err))
		}
	}
	return a, nil
}

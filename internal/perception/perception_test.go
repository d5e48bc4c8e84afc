package perception_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
	"github.com/fyrsmithlabs/perceptd/internal/logging"
	"github.com/fyrsmithlabs/perceptd/internal/nlu"
	"github.com/fyrsmithlabs/perceptd/internal/perception"
	"github.com/fyrsmithlabs/perceptd/internal/sentiment"
	"github.com/fyrsmithlabs/perceptd/internal/telemetry"
)

func ptr(f float64) *float64 { return &f }

func newEngine(t *testing.T) *affect.Engine {
	t.Helper()
	lex, err := affect.DefaultLexicon()
	require.NoError(t, err)
	pattern, err := sentiment.NewPatternScorer()
	require.NoError(t, err)
	e, err := affect.NewEngine(lex, affect.DefaultOptions(), pattern, sentiment.NewVaderScorer())
	require.NoError(t, err)
	return e
}

type failingTagger struct{}

func (failingTagger) Tag(context.Context, string) (nlu.Tagging, error) {
	return nlu.Tagging{}, nlu.ErrTaggingUnavailable
}

type recordingSink struct {
	mu   sync.Mutex
	ids  []string
	recs []nlu.PerceptionRecord
}

func (r *recordingSink) Remember(_ context.Context, id, _ string, rec nlu.PerceptionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
	r.recs = append(r.recs, rec)
	return nil
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

func TestService_EndToEnd(t *testing.T) {
	svc, err := perception.NewService(newEngine(t), nlu.NewProseTagger(), nil, nil)
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("happy with high pitch", func(t *testing.T) {
		a, err := svc.Analyze(ctx, perception.Input{Text: "I am very happy today!", Pitch: ptr(220)})
		require.NoError(t, err)
		assert.Equal(t, affect.MoodPositive, a.Tone.OverallMood)
		assert.True(t, a.Tone.HasEmotion(affect.Happy))
		assert.False(t, a.Tone.IsQuestioning)
		assert.Empty(t, a.Degraded)
		assert.Equal(t, "I am very happy today!", a.Record.Transcript)
		assert.Contains(t, a.Record.Emotions, affect.Happy)
	})

	t.Run("sad with low pitch", func(t *testing.T) {
		a, err := svc.Analyze(ctx, perception.Input{Text: "I feel sad and down.", Pitch: ptr(80)})
		require.NoError(t, err)
		assert.Equal(t, affect.MoodNegative, a.Tone.OverallMood)
		assert.True(t, a.Tone.HasEmotion(affect.Sad))
	})

	t.Run("negated happy", func(t *testing.T) {
		a, err := svc.Analyze(ctx, perception.Input{Text: "I am not happy about this."})
		require.NoError(t, err)
		assert.True(t, a.Tone.HasEmotion(affect.Sad))
		assert.False(t, a.Tone.HasEmotion(affect.Happy))
		assert.Nil(t, a.Tone.Pitch)
	})

	t.Run("empty text", func(t *testing.T) {
		a, err := svc.Analyze(ctx, perception.Input{Text: ""})
		require.NoError(t, err)
		assert.Equal(t, []affect.Emotion{affect.Neutral}, a.Tone.Emotions)
		assert.Equal(t, affect.MoodNeutral, a.Tone.OverallMood)
		assert.NotNil(t, a.Record.Entities)
		assert.NotNil(t, a.Record.SemanticRoles)
	})
}

func TestService_Idempotent(t *testing.T) {
	svc, err := perception.NewService(newEngine(t), nlu.NewProseTagger(), nil, nil)
	require.NoError(t, err)

	in := perception.Input{Text: "Why did Alice leave Paris? I feel lost.", Pitch: ptr(150)}
	a, err := svc.Analyze(context.Background(), in)
	require.NoError(t, err)
	b, err := svc.Analyze(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, a.Tone, b.Tone)
	assert.Equal(t, a.Record, b.Record)
	assert.NotEqual(t, a.ID, b.ID, "each analysis gets its own id")
}

func TestService_RecordsSpan(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	tt.Install(t)

	svc, err := perception.NewService(newEngine(t), nlu.NewProseTagger(), nil, nil)
	require.NoError(t, err)
	_, err = svc.Analyze(context.Background(), perception.Input{Text: "Are you happy?"})
	require.NoError(t, err)

	tt.AssertSpanExists(t, "perception.analyze")
	tt.AssertSpanAttribute(t, "perception.analyze", "questioning", true)
}

func TestService_TaggingDegrades(t *testing.T) {
	tl := logging.NewTestLogger()
	svc, err := perception.NewService(newEngine(t), failingTagger{}, nil, tl.Logger)
	require.NoError(t, err)

	before := testutil.ToFloat64(perception.DegradedTotal.WithLabelValues(perception.SignalTagging))
	a, err := svc.Analyze(context.Background(), perception.Input{Text: "Alice went to the store."})
	require.NoError(t, err)

	assert.Equal(t, []string{perception.SignalTagging}, a.Degraded)
	assert.Empty(t, a.Record.Entities)
	assert.Empty(t, a.Record.SemanticRoles)
	assert.Equal(t, before+1, testutil.ToFloat64(perception.DegradedTotal.WithLabelValues(perception.SignalTagging)))
	tl.AssertField(t, "signal degraded", "signal", perception.SignalTagging)
}

func TestService_InvalidPitchDegrades(t *testing.T) {
	tl := logging.NewTestLogger()
	svc, err := perception.NewService(newEngine(t), nil, nil, tl.Logger)
	require.NoError(t, err)

	a, err := svc.Analyze(context.Background(), perception.Input{Text: "hello", Pitch: ptr(-5)})
	require.NoError(t, err)
	assert.Equal(t, []string{affect.SignalPitch}, a.Degraded)
	assert.Nil(t, a.Tone.Pitch)
	tl.AssertLogged(t, zapcore.WarnLevel, "signal degraded")
}

func TestService_HandsRecordToSink(t *testing.T) {
	sink := &recordingSink{}
	svc, err := perception.NewService(newEngine(t), nil, sink, nil)
	require.NoError(t, err)

	a, err := svc.Analyze(context.Background(), perception.Input{Text: "I am glad", UserID: "alice"})
	require.NoError(t, err)
	require.Equal(t, 1, sink.count())
	assert.Equal(t, a.ID, sink.ids[0])
	assert.Equal(t, a.Record, sink.recs[0])

	_, err = svc.Analyze(context.Background(), perception.Input{Text: "no owner"})
	require.NoError(t, err)
	assert.Equal(t, 1, sink.count(), "records without a user are not remembered")
}

func TestService_Errors(t *testing.T) {
	_, err := perception.NewService(nil, nil, nil, nil)
	require.ErrorIs(t, err, perception.ErrInvalidInput)

	svc, err := perception.NewService(newEngine(t), nil, nil, nil)
	require.NoError(t, err)

	_, err = svc.Analyze(context.Background(), perception.Input{Text: "x", UserID: "bad user"})
	require.ErrorIs(t, err, perception.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.Analyze(ctx, perception.Input{Text: "x"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	boom := errors.New("boom")
	multi := perception.MultiSink{
		a,
		perception.SinkFunc(func(context.Context, string, string, nlu.PerceptionRecord) error { return boom }),
		b,
	}

	err := multi.Remember(context.Background(), "id", "u", nlu.PerceptionRecord{})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count(), "later sinks still run after a failure")
}

func TestAsyncSink_DrainsOnClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	next := &recordingSink{}
	sink := perception.NewAsyncSink(next, perception.AsyncOptions{QueueSize: 16, Workers: 3}, nil)

	for i := 0; i < 10; i++ {
		require.NoError(t, sink.Remember(context.Background(), "id", "u", nlu.PerceptionRecord{}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sink.Close(ctx))
	assert.Equal(t, 10, next.count())

	err := sink.Remember(context.Background(), "late", "u", nlu.PerceptionRecord{})
	require.ErrorIs(t, err, perception.ErrSinkClosed)
	require.NoError(t, sink.Close(ctx), "Close is idempotent")
}

func TestAsyncSink_DropsWhenFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{}, 1)
	release := make(chan struct{})
	var writes int
	var mu sync.Mutex
	blocking := perception.SinkFunc(func(context.Context, string, string, nlu.PerceptionRecord) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		mu.Lock()
		writes++
		mu.Unlock()
		return nil
	})

	sink := perception.NewAsyncSink(blocking, perception.AsyncOptions{QueueSize: 1, Workers: 1}, nil)
	ctx := context.Background()

	require.NoError(t, sink.Remember(ctx, "1", "u", nlu.PerceptionRecord{}))
	<-started
	require.NoError(t, sink.Remember(ctx, "2", "u", nlu.PerceptionRecord{}))

	before := testutil.ToFloat64(perception.DroppedTotal)
	err := sink.Remember(ctx, "3", "u", nlu.PerceptionRecord{})
	require.ErrorIs(t, err, perception.ErrQueueFull)
	assert.Equal(t, before+1, testutil.ToFloat64(perception.DroppedTotal))

	close(release)
	require.NoError(t, sink.Close(ctx))
	mu.Lock()
	assert.Equal(t, 2, writes)
	mu.Unlock()
}

func TestAsyncSink_WriteOutlivesCallerContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	got := make(chan error, 1)
	sink := perception.NewAsyncSink(perception.SinkFunc(func(ctx context.Context, _, _ string, _ nlu.PerceptionRecord) error {
		got <- ctx.Err()
		return nil
	}), perception.AsyncOptions{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, sink.Remember(ctx, "id", "u", nlu.PerceptionRecord{}))
	cancel()

	require.NoError(t, sink.Close(context.Background()))
	assert.NoError(t, <-got)
}

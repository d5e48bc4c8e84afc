package perception

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/logging"
	"github.com/fyrsmithlabs/perceptd/internal/nlu"
)

var (
	// ErrQueueFull is returned when the async sink cannot take another record.
	ErrQueueFull = errors.New("sink queue full")

	// ErrSinkClosed is returned after Close.
	ErrSinkClosed = errors.New("sink closed")
)

// Sink receives finished perception records.
type Sink interface {
	Remember(ctx context.Context, id, userID string, rec nlu.PerceptionRecord) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, id, userID string, rec nlu.PerceptionRecord) error

// Remember calls f.
func (f SinkFunc) Remember(ctx context.Context, id, userID string, rec nlu.PerceptionRecord) error {
	return f(ctx, id, userID, rec)
}

// MultiSink hands every record to each sink in order. All sinks are tried;
// their errors are joined.
type MultiSink []Sink

// Remember implements Sink.
func (m MultiSink) Remember(ctx context.Context, id, userID string, rec nlu.PerceptionRecord) error {
	var errs []error
	for _, s := range m {
		if err := s.Remember(ctx, id, userID, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// AsyncOptions sizes an AsyncSink.
type AsyncOptions struct {
	// QueueSize bounds pending records. Default: 256.
	QueueSize int
	// Workers is the number of writer goroutines. Default: 2.
	Workers int
	// WriteTimeout bounds each downstream write. Default: 30s.
	WriteTimeout time.Duration
}

type job struct {
	ctx    context.Context
	id     string
	userID string
	rec    nlu.PerceptionRecord
}

// AsyncSink decouples callers from a slow downstream Sink. Remember never
// blocks: when the queue is full the record is dropped and counted.
type AsyncSink struct {
	next    Sink
	opts    AsyncOptions
	queue   chan job
	logger  *logging.Logger
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	stopped chan struct{}
}

// NewAsyncSink starts the workers.
func NewAsyncSink(next Sink, opts AsyncOptions, logger *logging.Logger) *AsyncSink {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logging.Nop()
	}

	a := &AsyncSink{
		next:    next,
		opts:    opts,
		queue:   make(chan job, opts.QueueSize),
		logger:  logger.Named("sink"),
		stopped: make(chan struct{}),
	}
	a.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go a.work()
	}
	go func() {
		a.wg.Wait()
		close(a.stopped)
	}()
	return a
}

// Remember enqueues the record. The write outlives ctx's cancellation but
// keeps its values for log correlation.
func (a *AsyncSink) Remember(ctx context.Context, id, userID string, rec nlu.PerceptionRecord) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		DroppedTotal.Inc()
		return ErrSinkClosed
	}

	select {
	case a.queue <- job{ctx: context.WithoutCancel(ctx), id: id, userID: userID, rec: rec}:
		QueueDepth.Set(float64(len(a.queue)))
		return nil
	default:
		DroppedTotal.Inc()
		a.logger.Warn(ctx, "memory queue full, record dropped",
			zap.String("analysis.id", id),
			zap.Int("queue_size", a.opts.QueueSize),
		)
		return fmt.Errorf("%w: record %s dropped", ErrQueueFull, id)
	}
}

func (a *AsyncSink) work() {
	defer a.wg.Done()
	for j := range a.queue {
		QueueDepth.Set(float64(len(a.queue)))
		a.write(j)
	}
}

func (a *AsyncSink) write(j job) {
	ctx, cancel := context.WithTimeout(j.ctx, a.opts.WriteTimeout)
	defer cancel()

	if err := a.next.Remember(ctx, j.id, j.userID, j.rec); err != nil {
		a.logger.Error(ctx, "memory write failed", zap.String("analysis.id", j.id), zap.Error(err))
		return
	}
	a.logger.Trace(ctx, "memory write done", zap.String("analysis.id", j.id))
}

// Close stops accepting records and waits for queued ones to be written, or
// for ctx to end.
func (a *AsyncSink) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.stopped:
		QueueDepth.Set(0)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("draining memory queue: %w", ctx.Err())
	}
}

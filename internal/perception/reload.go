package perception

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/affect"
	"github.com/fyrsmithlabs/perceptd/internal/logging"
)

// ErrWatcherFailed indicates the filesystem watcher could not be created.
var ErrWatcherFailed = errors.New("failed to create file watcher")

// EngineBuilder builds a fresh engine from the files on disk.
type EngineBuilder func() (*affect.Engine, error)

// Reloader rebuilds the service engine when a lexicon file changes. A
// failed rebuild keeps the previous engine.
//
// Parent directories are watched rather than the files, since editors
// often replace a file by renaming over it.
type Reloader struct {
	svc      *Service
	build    EngineBuilder
	files    map[string]struct{}
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *logging.Logger

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewReloader watches paths. debounce <= 0 means 250ms.
func NewReloader(svc *Service, build EngineBuilder, paths []string, debounce time.Duration, logger *logging.Logger) (*Reloader, error) {
	if svc == nil || build == nil {
		return nil, fmt.Errorf("%w: service and builder are required", ErrInvalidInput)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no files to watch", ErrInvalidInput)
	}
	if debounce <= 0 {
		debounce = 250 * time.Millisecond
	}
	if logger == nil {
		logger = logging.Nop()
	}

	files := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", p, err)
		}
		files[abs] = struct{}{}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}
	return &Reloader{
		svc:      svc,
		build:    build,
		files:    files,
		debounce: debounce,
		watcher:  watcher,
		logger:   logger.Named("reload"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching in a background goroutine. Call Stop to release
// the watcher.
func (r *Reloader) Start(ctx context.Context) error {
	dirs := make(map[string]struct{})
	for f := range r.files {
		dirs[filepath.Dir(f)] = struct{}{}
	}
	for dir := range dirs {
		if err := r.watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	r.started.Store(true)
	go r.run(ctx)
	return nil
}

// Stop stops watching and waits for the loop to exit. Safe to call more
// than once.
func (r *Reloader) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		_ = r.watcher.Close()
	})
	if r.started.Load() {
		<-r.done
	}
}

func (r *Reloader) run(ctx context.Context) {
	defer close(r.done)

	timer := time.NewTimer(r.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if r.relevant(event) {
				timer.Reset(r.debounce)
			}
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn(ctx, "lexicon watcher error", zap.Error(err))
		case <-timer.C:
			r.reload(ctx)
		}
	}
}

func (r *Reloader) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return false
	}
	_, ok := r.files[filepath.Clean(event.Name)]
	return ok
}

func (r *Reloader) reload(ctx context.Context) {
	engine, err := r.build()
	if err == nil {
		err = r.svc.SwapEngine(engine)
	}
	if err != nil {
		LexiconReloadsTotal.WithLabelValues("error").Inc()
		r.logger.Warn(ctx, "lexicon reload failed, keeping previous engine", zap.Error(err))
		return
	}
	LexiconReloadsTotal.WithLabelValues("success").Inc()
	r.logger.Info(ctx, "lexicon reloaded")
}

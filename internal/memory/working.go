package memory

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/nlu"
)

// WorkingCollection is the single collection holding working memory.
const WorkingCollection = "working_memory"

// DefaultWorkingK is the default number of working-memory hits.
const DefaultWorkingK = 5

// timeNow stamps created_at and updated_at.
var timeNow = time.Now

// WorkingMemory holds recent records from every user. It is meant to sit on a
// volatile store and is emptied with Clear.
type WorkingMemory struct {
	store  Store
	k      int
	logger *zap.Logger
}

// NewWorkingMemory returns a working-memory tier over store. k <= 0 selects
// DefaultWorkingK.
func NewWorkingMemory(store Store, k int, logger *zap.Logger) *WorkingMemory {
	if k <= 0 {
		k = DefaultWorkingK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkingMemory{store: store, k: k, logger: logger.Named("working")}
}

// Store writes rec under id.
func (w *WorkingMemory) Store(ctx context.Context, id, userID string, rec nlu.PerceptionRecord) (err error) {
	defer func() { recordWrite(TierWorking, err) }()

	doc, err := newDocument(id, userID, rec, timeNow())
	if err != nil {
		return err
	}
	if _, err = w.store.AddDocuments(ctx, WorkingCollection, []Document{doc}); err != nil {
		return fmt.Errorf("storing working memory %s: %w", id, err)
	}
	return nil
}

// Retrieve returns up to k records similar to query, best first. An empty
// query returns the most recent records instead. k <= 0 selects the tier default.
func (w *WorkingMemory) Retrieve(ctx context.Context, query string, k int) ([]Entry, error) {
	start := time.Now()
	defer func() { RecallDuration.WithLabelValues(TierWorking).Observe(time.Since(start).Seconds()) }()

	if k <= 0 {
		k = w.k
	}

	if query == "" {
		entries, err := w.all(ctx)
		if err != nil {
			return nil, err
		}
		if len(entries) > k {
			entries = entries[len(entries)-k:]
		}
		return entries, nil
	}

	results, err := w.store.Search(ctx, WorkingCollection, query, k)
	if err != nil {
		return nil, fmt.Errorf("searching working memory: %w", err)
	}
	entries, skipped := decodeResults(results)
	if skipped > 0 {
		w.logger.Warn("skipped undecodable working memory records", zap.Int("count", skipped))
	}
	return entries, nil
}

func (w *WorkingMemory) all(ctx context.Context) ([]Entry, error) {
	results, err := w.store.List(ctx, WorkingCollection, 0)
	if err != nil {
		return nil, fmt.Errorf("listing working memory: %w", err)
	}
	entries, skipped := decodeResults(results)
	if skipped > 0 {
		w.logger.Warn("skipped undecodable working memory records", zap.Int("count", skipped))
	}
	sortByCreated(entries)
	return entries, nil
}

// Clear drops every working-memory record.
func (w *WorkingMemory) Clear(ctx context.Context) error {
	if err := w.store.DeleteCollection(ctx, WorkingCollection); err != nil {
		return fmt.Errorf("clearing working memory: %w", err)
	}
	w.logger.Info("working memory cleared")
	return nil
}

// Len returns the number of records held.
func (w *WorkingMemory) Len(ctx context.Context) (int, error) {
	return w.store.Count(ctx, WorkingCollection)
}

package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/perceptd/internal/nlu"
)

const (
	// LongTermPrefix prefixes every per-user long-term collection.
	LongTermPrefix = "long_term_memory_"

	// DefaultLongTermK is the default number of long-term hits.
	DefaultLongTermK = 10

	maxUserSlug = 64 - len(LongTermPrefix) - 9
)

// LongTermCollection returns the collection name for userID. The readable
// slug is followed by a short hash so users whose slugs coincide stay apart.
func LongTermCollection(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidUserID)
	}

	var b strings.Builder
	for _, r := range strings.ToLower(userID) {
		if b.Len() >= maxUserSlug {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	sum := sha256.Sum256([]byte(userID))
	return LongTermPrefix + b.String() + "_" + hex.EncodeToString(sum[:4]), nil
}

// LongTermMemory keeps every record per user until it is explicitly updated.
type LongTermMemory struct {
	store  Store
	k      int
	logger *zap.Logger
}

// NewLongTermMemory returns a long-term tier over store. k <= 0 selects
// DefaultLongTermK.
func NewLongTermMemory(store Store, k int, logger *zap.Logger) *LongTermMemory {
	if k <= 0 {
		k = DefaultLongTermK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LongTermMemory{store: store, k: k, logger: logger.Named("long_term")}
}

// Store writes rec under id in the user's collection.
func (l *LongTermMemory) Store(ctx context.Context, id, userID string, rec nlu.PerceptionRecord) (err error) {
	defer func() { recordWrite(TierLongTerm, err) }()

	collection, err := LongTermCollection(userID)
	if err != nil {
		return err
	}
	doc, err := newDocument(id, userID, rec, timeNow())
	if err != nil {
		return err
	}
	if _, err = l.store.AddDocuments(ctx, collection, []Document{doc}); err != nil {
		return fmt.Errorf("storing long-term memory %s: %w", id, err)
	}
	return nil
}

// Retrieve returns up to k of the user's records similar to query, best
// first. An empty query returns every record, oldest first.
func (l *LongTermMemory) Retrieve(ctx context.Context, userID, query string, k int) ([]Entry, error) {
	start := time.Now()
	defer func() { RecallDuration.WithLabelValues(TierLongTerm).Observe(time.Since(start).Seconds()) }()

	if query == "" {
		return l.All(ctx, userID)
	}
	if k <= 0 {
		k = l.k
	}

	collection, err := LongTermCollection(userID)
	if err != nil {
		return nil, err
	}
	results, err := l.store.Search(ctx, collection, query, k)
	if err != nil {
		return nil, fmt.Errorf("searching long-term memory: %w", err)
	}
	entries, skipped := decodeResults(results)
	if skipped > 0 {
		l.logger.Warn("skipped undecodable long-term records", zap.Int("count", skipped))
	}
	return entries, nil
}

// All returns every record the user has, oldest first.
func (l *LongTermMemory) All(ctx context.Context, userID string) ([]Entry, error) {
	collection, err := LongTermCollection(userID)
	if err != nil {
		return nil, err
	}
	results, err := l.store.List(ctx, collection, 0)
	if err != nil {
		return nil, fmt.Errorf("listing long-term memory: %w", err)
	}
	entries, skipped := decodeResults(results)
	if skipped > 0 {
		l.logger.Warn("skipped undecodable long-term records", zap.Int("count", skipped))
	}
	sortByCreated(entries)
	return entries, nil
}

// Update replaces the record stored under id, keeping its creation time.
// It returns ErrRecordNotFound when the user has no such record.
func (l *LongTermMemory) Update(ctx context.Context, userID, id string, rec nlu.PerceptionRecord) (err error) {
	defer func() { recordWrite(TierLongTerm, err) }()

	existing, err := l.All(ctx, userID)
	if err != nil {
		return err
	}
	var found *Entry
	for i := range existing {
		if existing[i].ID == id {
			found = &existing[i]
			break
		}
	}
	if found == nil {
		return fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	collection, _ := LongTermCollection(userID)
	doc, err := newDocument(id, userID, rec, found.CreatedAt)
	if err != nil {
		return err
	}
	doc.Metadata[metaUpdatedAt] = timeNow().UTC().Format(time.RFC3339Nano)

	if err = l.store.DeleteDocuments(ctx, collection, []string{id}); err != nil {
		return fmt.Errorf("replacing long-term memory %s: %w", id, err)
	}
	if _, err = l.store.AddDocuments(ctx, collection, []Document{doc}); err != nil {
		return fmt.Errorf("replacing long-term memory %s: %w", id, err)
	}

	l.logger.Debug("long-term record updated", zap.String("id", id))
	return nil
}

// Package memory stores perception records in two tiers backed by a vector
// store: a clearable working memory and a per-user long-term memory.
package memory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Sentinel errors for memory operations.
var (
	// ErrCollectionNotFound is returned when a collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyDocuments indicates empty or nil documents.
	ErrEmptyDocuments = errors.New("empty or nil documents")

	// ErrConnectionFailed indicates gRPC connection issues.
	ErrConnectionFailed = errors.New("failed to connect to Qdrant")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")

	// ErrInvalidCollectionName indicates collection name validation failure.
	ErrInvalidCollectionName = errors.New("invalid collection name")

	// ErrInvalidUserID indicates an empty or malformed user id.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrRecordNotFound is returned when a long-term record id is unknown.
	ErrRecordNotFound = errors.New("record not found")
)

// collectionNamePattern: lowercase letters, numbers, underscores, 1-64 characters.
var collectionNamePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// ValidateCollectionName validates a collection name against the naming rules
// shared by every backend.
func ValidateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: collection name cannot be empty", ErrInvalidCollectionName)
	}
	if !collectionNamePattern.MatchString(name) {
		return fmt.Errorf("%w: collection name must match pattern ^[a-z0-9_]{1,64}$, got %q", ErrInvalidCollectionName, name)
	}
	return nil
}

// Document is a unit of storage: record JSON plus flat metadata.
type Document struct {
	// ID is the document identifier. Callers always supply one.
	ID string `json:"id"`

	// Content is the embedded text.
	Content string `json:"content"`

	// Metadata holds string, int, int64, float64 or bool values.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SearchResult is a document returned from a search or listing.
type SearchResult struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Score    float32                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// EmbedDocuments generates embeddings for multiple texts.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a single query.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Store is the vector storage contract the memory tiers are written against.
//
// Every method takes the collection explicitly; the tiers own collection
// naming. Collections are created on first write. Reads from a collection that
// was never written return empty results, not ErrCollectionNotFound.
type Store interface {
	// AddDocuments embeds and stores docs, returning their ids.
	AddDocuments(ctx context.Context, collection string, docs []Document) ([]string, error)

	// Search returns up to k documents most similar to query.
	Search(ctx context.Context, collection, query string, k int) ([]SearchResult, error)

	// List returns up to limit documents in no particular order. A limit of
	// zero or less means all documents.
	List(ctx context.Context, collection string, limit int) ([]SearchResult, error)

	// DeleteDocuments removes documents by id. Unknown ids are ignored.
	DeleteDocuments(ctx context.Context, collection string, ids []string) error

	// DeleteCollection drops a collection and all its documents.
	DeleteCollection(ctx context.Context, collection string) error

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int, error)

	// Close releases backend resources.
	Close() error
}

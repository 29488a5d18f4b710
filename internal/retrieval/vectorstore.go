package retrieval

import (
	"context"
	"errors"
	"time"
)

// ErrCollectionNotFound is returned when writing to or searching a
// collection that has not been created.
var ErrCollectionNotFound = errors.New("vector collection not found")

// VectorStore is the interface for vector storage and similarity search
// backends. Records are grouped in named collections; a document is
// identified by its SourceID and may span several chunk records.
type VectorStore interface {
	// CreateCollection ensures the named collection exists. Idempotent.
	CreateCollection(ctx context.Context, name string) error

	// Upsert inserts or replaces records by ID.
	Upsert(ctx context.Context, collection string, records []Record) error

	// DeleteSource removes every record of a document.
	DeleteSource(ctx context.Context, collection, sourceID string) error

	// Search returns the top-K records most similar to vector.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredRecord, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// DeleteAll drops every collection and record.
	DeleteAll(ctx context.Context) error
}

// Record represents one embedded chunk of a document.
type Record struct {
	ID         string
	SourceID   string
	ChunkIndex int
	TextChunk  string
	Embedding  []float32
	CreatedAt  time.Time
	Tags       string // JSON array stored as text
}

// ScoredRecord is a Record with a similarity score attached.
type ScoredRecord struct {
	Record
	Score float32
}

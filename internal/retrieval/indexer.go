package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/kalambet/odin/internal/logger"
)

// DefaultCollection is the collection documents are indexed into.
const DefaultCollection = "notes"

// Indexer embeds documents and writes them to a VectorStore.
type Indexer struct {
	embedder   *Embedder
	store      VectorStore
	collection string
	chunkSize  int
	log        *logger.Logger
	now        func() time.Time
}

// NewIndexer returns an Indexer writing to collection. An empty collection
// name means DefaultCollection.
func NewIndexer(embedder *Embedder, store VectorStore, collection string, log *logger.Logger) *Indexer {
	if collection == "" {
		collection = DefaultCollection
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Indexer{
		embedder:   embedder,
		store:      store,
		collection: collection,
		chunkSize:  DefaultChunkSize,
		log:        log.With("component", "indexer"),
		now:        time.Now,
	}
}

// Collection returns the name of the collection the indexer writes to.
func (ix *Indexer) Collection() string { return ix.collection }

// Ensure creates the collection if it does not exist.
func (ix *Indexer) Ensure(ctx context.Context) error {
	return ix.store.CreateCollection(ctx, ix.collection)
}

// Reset drops every vector and recreates an empty collection.
func (ix *Indexer) Reset(ctx context.Context) error {
	if err := ix.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("resetting vector store: %w", err)
	}
	return ix.Ensure(ctx)
}

// IndexDocument replaces the vectors of sourceID with fresh embeddings of
// text. It returns the number of chunks written. The previous vectors are
// only removed once every chunk has been embedded.
func (ix *Indexer) IndexDocument(ctx context.Context, sourceID, text string, tags []string) (int, error) {
	chunks := Chunk(text, ix.chunkSize)
	if len(chunks) == 0 {
		if err := ix.store.DeleteSource(ctx, ix.collection, sourceID); err != nil {
			return 0, fmt.Errorf("clearing vectors of %s: %w", sourceID, err)
		}
		return 0, nil
	}

	vecs, err := ix.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, err
	}

	tagsJSON := "[]"
	if len(tags) > 0 {
		b, err := json.Marshal(tags)
		if err != nil {
			return 0, fmt.Errorf("encoding tags: %w", err)
		}
		tagsJSON = string(b)
	}

	now := ix.now().UTC()
	records := make([]Record, len(chunks))
	for i, c := range chunks {
		records[i] = Record{
			ID:         RecordID(sourceID, i),
			SourceID:   sourceID,
			ChunkIndex: i,
			TextChunk:  c,
			Embedding:  vecs[i],
			CreatedAt:  now,
			Tags:       tagsJSON,
		}
	}

	if err := ix.store.DeleteSource(ctx, ix.collection, sourceID); err != nil {
		return 0, fmt.Errorf("clearing vectors of %s: %w", sourceID, err)
	}
	if err := ix.store.Upsert(ctx, ix.collection, records); err != nil {
		return 0, fmt.Errorf("storing vectors of %s: %w", sourceID, err)
	}
	ix.log.Debug("document indexed", "source", sourceID, "chunks", len(records))
	return len(records), nil
}

// RecordID is the stable id of chunk i of a document.
func RecordID(sourceID string, i int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceID+"#"+strconv.Itoa(i))).String()
}

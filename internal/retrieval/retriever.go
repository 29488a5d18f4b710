package retrieval

import (
	"context"
	"encoding/json"
	"time"
)

// Match is a retrieved document fragment with its similarity score.
type Match struct {
	SourceID   string
	ChunkIndex int
	Text       string
	Score      float32
	Tags       []string
	CreatedAt  time.Time
}

// Retriever combines embedding and vector search to find relevant notes.
type Retriever struct {
	embedder   *Embedder
	store      VectorStore
	collection string
}

// NewRetriever creates a Retriever backed by the given Embedder and VectorStore.
func NewRetriever(embedder *Embedder, store VectorStore, collection string) *Retriever {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Retriever{embedder: embedder, store: store, collection: collection}
}

// Search embeds the query and returns the top-K most similar chunks.
func (r *Retriever) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	scored, err := r.store.Search(ctx, r.collection, vec, topK)
	if err != nil {
		return nil, err
	}

	return toMatches(scored), nil
}

func toMatches(scored []ScoredRecord) []Match {
	out := make([]Match, len(scored))
	for i, s := range scored {
		var tags []string
		_ = json.Unmarshal([]byte(s.Tags), &tags)
		out[i] = Match{
			SourceID:   s.SourceID,
			ChunkIndex: s.ChunkIndex,
			Text:       s.TextChunk,
			Score:      s.Score,
			Tags:       tags,
			CreatedAt:  s.CreatedAt,
		}
	}
	return out
}

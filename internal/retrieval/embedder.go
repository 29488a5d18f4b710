package retrieval

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kalambet/odin/internal/engine"
	"golang.org/x/sync/errgroup"
)

// EngineFactory builds the engine that serves embeddings. It runs at most
// once, on first use.
type EngineFactory func(ctx context.Context) (engine.Engine, error)

// Embedder wraps an Engine to generate text embeddings. The engine is
// created lazily and owned by the Embedder.
type Embedder struct {
	model   string
	factory EngineFactory

	mu     sync.Mutex
	engine engine.Engine
}

// NewEmbedder creates an Embedder using the given Engine and model name.
func NewEmbedder(e engine.Engine, model string) *Embedder {
	return &Embedder{engine: e, model: model}
}

// NewLazyEmbedder creates an Embedder whose engine is built by factory on
// the first Embed call. A failed build is retried on the next call.
func NewLazyEmbedder(factory EngineFactory, model string) *Embedder {
	return &Embedder{factory: factory, model: model}
}

// Model returns the embedding model name.
func (e *Embedder) Model() string { return e.model }

func (e *Embedder) get(ctx context.Context) (engine.Engine, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.engine != nil {
		return e.engine, nil
	}
	if e.factory == nil {
		return nil, fmt.Errorf("embedder has no engine")
	}
	eng, err := e.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing embedding engine: %w", err)
	}
	e.engine = eng
	return eng, nil
}

// Embed returns the embedding vector for a single text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	eng, err := e.get(ctx)
	if err != nil {
		return nil, err
	}
	vec, err := eng.Embed(ctx, e.model, normalize(text))
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	return vec, nil
}

// EmbedBatch returns embedding vectors for multiple texts concurrently.
// Returns nil (not error) for empty/nil input.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	eng, err := e.get(ctx)
	if err != nil {
		return nil, err
	}
	results := make([][]float32, len(texts))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(4) // Bound concurrency to avoid overwhelming the engine.

	for i, text := range texts {
		g.Go(func() error {
			vec, err := eng.Embed(gCtx, e.model, normalize(text))
			if err != nil {
				return fmt.Errorf("embedding text %d: %w", i, err)
			}
			results[i] = vec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// normalize flattens newlines, which degrade embedding quality for some models.
func normalize(text string) string {
	return strings.ReplaceAll(text, "\n", " ")
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kalambet/odin/internal/config"
	"github.com/kalambet/odin/internal/engine"
	"github.com/kalambet/odin/internal/graph"
	"github.com/kalambet/odin/internal/logger"
	"github.com/kalambet/odin/internal/prompts"
	"github.com/kalambet/odin/internal/retrieval"
	"github.com/kalambet/odin/internal/storage"
	"github.com/kalambet/odin/internal/translator"
)

// app carries the loaded configuration and the resources a command opened.
// Resources are opened on demand and released by close in reverse order.
type app struct {
	cfg     config.Config
	log     *logger.Logger
	closers []func()

	store *storage.Store
	graph *graph.Store
}

func loadApp() (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Mode)
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}
	return &app{cfg: cfg, log: log}, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.log.Sync()
}

func (a *app) engineConfig(provider string) engine.Config {
	temp := a.cfg.LLM.Temperature
	return engine.Config{
		Provider:      provider,
		OllamaBaseURL: a.cfg.LLM.OllamaBaseURL,
		OpenAIBaseURL: a.cfg.LLM.OpenAIBaseURL,
		OpenAIAPIKey:  a.cfg.LLM.OpenAIAPIKey,
		GeminiAPIKey:  a.cfg.LLM.GeminiAPIKey,
		Temperature:   &temp,
	}
}

func (a *app) chatEngine(ctx context.Context) (engine.Engine, error) {
	eng, err := engine.New(ctx, a.engineConfig(a.cfg.LLM.Provider))
	if err != nil {
		return nil, fmt.Errorf("creating chat engine: %w", err)
	}
	return eng, nil
}

// translator builds the translator over the configured prompts and chat
// engine.
func (a *app) translator(ctx context.Context) (*translator.Translator, engine.Engine, error) {
	set, err := prompts.LoadDir(a.cfg.Prompts.Dir)
	if err != nil {
		return nil, nil, fmt.Errorf("loading prompts: %w", err)
	}
	eng, err := a.chatEngine(ctx)
	if err != nil {
		return nil, nil, err
	}
	return translator.New(set, eng, a.cfg.LLM.Model, a.log), eng, nil
}

func (a *app) openGraph(ctx context.Context) (*graph.Store, error) {
	if a.graph != nil {
		return a.graph, nil
	}
	g, err := graph.Open(ctx, graph.Config{
		URI:      a.cfg.Graph.URI(),
		User:     a.cfg.Graph.User,
		Password: a.cfg.Graph.Password,
		Database: a.cfg.Graph.Database,
	}, a.log)
	if err != nil {
		return nil, err
	}
	a.graph = g
	a.closers = append(a.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := g.Close(ctx); err != nil {
			a.log.Warn("closing graph store", "error", err)
		}
	})
	return g, nil
}

func (a *app) openStore() (*storage.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	st, err := storage.Open(a.cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	a.store = st
	a.closers = append(a.closers, func() {
		if err := st.Close(); err != nil {
			a.log.Warn("closing storage", "error", err)
		}
	})
	return st, nil
}

// embedder returns an Embedder whose engine is created on first use, so
// commands that never embed never contact the embedding provider.
func (a *app) embedder() *retrieval.Embedder {
	return retrieval.NewLazyEmbedder(func(ctx context.Context) (engine.Engine, error) {
		return engine.New(ctx, a.engineConfig(a.cfg.Embedding.Provider))
	}, a.cfg.Embedding.Model)
}

func (a *app) vectorStore() (retrieval.VectorStore, error) {
	switch a.cfg.Vector.Backend {
	case config.VectorQdrant:
		return retrieval.NewQdrantStore(retrieval.QdrantConfig{
			URL:       a.cfg.Vector.QdrantURL,
			Prefix:    a.cfg.Vector.Prefix,
			VectorDim: a.cfg.Vector.QdrantDim,
		})
	default:
		st, err := a.openStore()
		if err != nil {
			return nil, err
		}
		return retrieval.NewSQLiteStore(st.DB()), nil
	}
}

func (a *app) indexer() (*retrieval.Indexer, error) {
	vs, err := a.vectorStore()
	if err != nil {
		return nil, err
	}
	return retrieval.NewIndexer(a.embedder(), vs, a.cfg.Vector.Collection, a.log), nil
}

func (a *app) retriever() (*retrieval.Retriever, error) {
	vs, err := a.vectorStore()
	if err != nil {
		return nil, err
	}
	return retrieval.NewRetriever(a.embedder(), vs, a.cfg.Vector.Collection), nil
}

// Package api exposes the translator, graph statistics, import history and
// note search over HTTP and as MCP tools.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/odin/internal/graph"
	"github.com/kalambet/odin/internal/logger"
	"github.com/kalambet/odin/internal/retrieval"
	"github.com/kalambet/odin/internal/storage"
)

const maxBodySize = 10 << 20 // 10MB

// Translator is the model-backed part of the API.
type Translator interface {
	SynthesizeCreate(ctx context.Context, text, rootPath, filePath string) (string, error)
	SynthesizeUpdate(ctx context.Context, data, text, rootPath, filePath string) (string, error)
	GenerateQuestions(ctx context.Context, text string) (string, error)
	OptimizeCodeStyle(ctx context.Context, code string) (string, error)
	ExplainCode(ctx context.Context, code string) (string, error)
	DebugCode(ctx context.Context, code string) (string, error)
}

// GraphReader reads from the graph store.
type GraphReader interface {
	Stats(ctx context.Context) (graph.Stats, error)
	ExportForRoot(ctx context.Context, root string) (string, error)
}

// RunStore reads the import history.
type RunStore interface {
	ListImportRuns(ctx context.Context, limit int) ([]storage.ImportRun, error)
	GetImportRun(ctx context.Context, id string) (storage.ImportRun, error)
}

// Searcher finds note fragments similar to a query.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]retrieval.Match, error)
}

// Deps holds what the HTTP and MCP layers serve. Graph, Runs and Search
// are optional; their endpoints answer 503 when nil.
type Deps struct {
	Translator Translator
	Graph      GraphReader
	Runs       RunStore
	Search     Searcher
	Token      string
	Log        *logger.Logger
}

// NewHandler builds the HTTP API. /health is always public; every other
// route requires the bearer token when one is configured.
func NewHandler(deps Deps) http.Handler {
	if deps.Log == nil {
		deps.Log = logger.Nop()
	}
	h := &handler{deps: deps, log: deps.Log.With("component", "api")}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/translate/create", h.translateCreate)
		r.Post("/translate/update", h.translateUpdate)
		r.Post("/questions", h.auxiliary(deps.Translator.GenerateQuestions, "text"))
		r.Post("/explain", h.auxiliary(deps.Translator.ExplainCode, "code"))
		r.Post("/optimize", h.auxiliary(deps.Translator.OptimizeCodeStyle, "code"))
		r.Post("/debug", h.auxiliary(deps.Translator.DebugCode, "code"))

		r.Get("/graph/stats", h.graphStats)
		r.Get("/runs", h.listRuns)
		r.Get("/runs/{id}", h.getRun)
		r.Get("/search", h.search)
	})

	return r
}

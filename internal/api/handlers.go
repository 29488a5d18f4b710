package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/odin/internal/logger"
	"github.com/kalambet/odin/internal/prompts"
	"github.com/kalambet/odin/internal/storage"
)

const (
	defaultRunLimit    = 20
	defaultSearchLimit = 5
	maxSearchLimit     = 50
)

type handler struct {
	deps Deps
	log  *logger.Logger
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) translateCreate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTranslate(w, r)
	if !ok {
		return
	}
	out, err := h.deps.Translator.SynthesizeCreate(r.Context(), req.Text, req.RootPath, req.FilePath)
	if err != nil {
		h.modelError(w, "translate create", err)
		return
	}
	writeJSON(w, http.StatusOK, TranslateResponse{Cypher: out})
}

func (h *handler) translateUpdate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTranslate(w, r)
	if !ok {
		return
	}
	data := req.Data
	if data == "" && h.deps.Graph != nil {
		var err error
		data, err = h.deps.Graph.ExportForRoot(r.Context(), req.RootPath)
		if err != nil {
			h.log.Error("exporting graph failed", "root", req.RootPath, "error", err)
			httpError(w, http.StatusBadGateway, "graph_error", "exporting graph: %v", err)
			return
		}
	}
	out, err := h.deps.Translator.SynthesizeUpdate(r.Context(), data, req.Text, req.RootPath, req.FilePath)
	if err != nil {
		h.modelError(w, "translate update", err)
		return
	}
	writeJSON(w, http.StatusOK, TranslateResponse{Cypher: out})
}

func (h *handler) decodeTranslate(w http.ResponseWriter, r *http.Request) (TranslateRequest, bool) {
	var req TranslateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return req, false
	}
	if req.Text == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
		return req, false
	}
	if req.FilePath == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "file_path is required")
		return req, false
	}
	return req, true
}

// auxiliary serves one of the single-input model calls. field names the
// request field carrying the input.
func (h *handler) auxiliary(call func(context.Context, string) (string, error), field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AuxRequest
		if err := decodeJSON(w, r, &req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		input := req.Code
		if field == "text" {
			input = req.Text
		}
		if input == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%s is required", field)
			return
		}
		out, err := call(r.Context(), input)
		if err != nil {
			h.modelError(w, r.URL.Path, err)
			return
		}
		writeJSON(w, http.StatusOK, AuxResponse{Result: out})
	}
}

func (h *handler) modelError(w http.ResponseWriter, op string, err error) {
	h.log.Error("model call failed", "op", op, "error", err)
	if errors.Is(err, prompts.ErrMissingRole) {
		httpError(w, http.StatusServiceUnavailable, "configuration_error", "%v", err)
		return
	}
	httpError(w, http.StatusBadGateway, "api_error", "model call failed: %v", err)
}

func (h *handler) graphStats(w http.ResponseWriter, r *http.Request) {
	if h.deps.Graph == nil {
		httpError(w, http.StatusServiceUnavailable, "unavailable", "graph store not configured")
		return
	}
	st, err := h.deps.Graph.Stats(r.Context())
	if err != nil {
		h.log.Error("graph stats failed", "error", err)
		httpError(w, http.StatusBadGateway, "graph_error", "reading graph stats: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsResponse(st))
}

func (h *handler) listRuns(w http.ResponseWriter, r *http.Request) {
	if h.deps.Runs == nil {
		httpError(w, http.StatusServiceUnavailable, "unavailable", "run history not configured")
		return
	}
	limit := queryInt(r, "limit", defaultRunLimit)
	runs, err := h.deps.Runs.ListImportRuns(r.Context(), limit)
	if err != nil {
		h.log.Error("listing runs failed", "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "listing runs: %v", err)
		return
	}
	out := make([]RunDTO, len(runs))
	for i, run := range runs {
		out[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": out})
}

func (h *handler) getRun(w http.ResponseWriter, r *http.Request) {
	if h.deps.Runs == nil {
		httpError(w, http.StatusServiceUnavailable, "unavailable", "run history not configured")
		return
	}
	id := chi.URLParam(r, "id")
	run, err := h.deps.Runs.GetImportRun(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "run %s not found", id)
		return
	}
	if err != nil {
		h.log.Error("getting run failed", "id", id, "error", err)
		httpError(w, http.StatusInternalServerError, "api_error", "getting run: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(run))
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	if h.deps.Search == nil {
		httpError(w, http.StatusServiceUnavailable, "unavailable", "search not configured")
		return
	}
	q := r.URL.Query().Get("q")
	if q == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "q is required")
		return
	}
	limit := min(queryInt(r, "limit", defaultSearchLimit), maxSearchLimit)
	matches, err := h.deps.Search.Search(r.Context(), q, limit)
	if err != nil {
		h.log.Error("search failed", "error", err)
		httpError(w, http.StatusBadGateway, "api_error", "search failed: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": toMatchDTOs(matches)})
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

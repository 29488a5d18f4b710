package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kalambet/odin/internal/graph"
	"github.com/kalambet/odin/internal/prompts"
	"github.com/kalambet/odin/internal/retrieval"
	"github.com/kalambet/odin/internal/storage"
)

type fakeTranslator struct {
	err      error
	lastData string
	lastRoot string
}

func (f *fakeTranslator) SynthesizeCreate(_ context.Context, text, rootPath, filePath string) (string, error) {
	f.lastRoot = rootPath
	return fmt.Sprintf("CREATE (:Note {file_path: %q, text: %q})", filePath, text), f.err
}

func (f *fakeTranslator) SynthesizeUpdate(_ context.Context, data, text, rootPath, filePath string) (string, error) {
	f.lastData = data
	f.lastRoot = rootPath
	return "MERGE (:Note {file_path: \"" + filePath + "\"})", f.err
}

func (f *fakeTranslator) GenerateQuestions(_ context.Context, text string) (string, error) {
	return "Q: " + text, f.err
}

func (f *fakeTranslator) OptimizeCodeStyle(_ context.Context, code string) (string, error) {
	return "optimized " + code, f.err
}

func (f *fakeTranslator) ExplainCode(_ context.Context, code string) (string, error) {
	return "explained " + code, f.err
}

func (f *fakeTranslator) DebugCode(_ context.Context, code string) (string, error) {
	return "debugged " + code, f.err
}

type fakeGraph struct {
	stats  graph.Stats
	export string
	err    error
}

func (f *fakeGraph) Stats(context.Context) (graph.Stats, error) { return f.stats, f.err }

func (f *fakeGraph) ExportForRoot(context.Context, string) (string, error) { return f.export, f.err }

type fakeRuns struct {
	runs []storage.ImportRun
}

func (f *fakeRuns) ListImportRuns(_ context.Context, limit int) ([]storage.ImportRun, error) {
	if limit < len(f.runs) {
		return f.runs[:limit], nil
	}
	return f.runs, nil
}

func (f *fakeRuns) GetImportRun(_ context.Context, id string) (storage.ImportRun, error) {
	for _, r := range f.runs {
		if r.ID == id {
			return r, nil
		}
	}
	return storage.ImportRun{}, storage.ErrNotFound
}

type fakeSearch struct {
	matches []retrieval.Match
	topK    int
}

func (f *fakeSearch) Search(_ context.Context, _ string, topK int) ([]retrieval.Match, error) {
	f.topK = topK
	return f.matches, nil
}

func testDeps() (Deps, *fakeTranslator) {
	tr := &fakeTranslator{}
	return Deps{
		Translator: tr,
		Graph: &fakeGraph{
			stats: graph.Stats{
				Nodes:  3,
				Labels: []graph.Count{{Name: "Note", Count: 2}, {Name: "Tag", Count: 1}},
				Files:  2,
			},
			export: "CREATE (:Note {file_path: \"a.md\"})",
		},
		Runs: &fakeRuns{runs: []storage.ImportRun{
			{ID: "run-2", RootPath: "/vault", Total: 3, Processed: 2, Failed: 1, Elapsed: 90 * time.Second,
				Errors: []storage.ImportError{{Document: "/vault/c.md", Phase: "graph_write", Message: "boom"}}},
			{ID: "run-1", RootPath: "/vault", Total: 1, Processed: 1},
		}},
		Search: &fakeSearch{matches: []retrieval.Match{{SourceID: "/vault/a.md", Text: "hello", Score: 0.9}}},
	}, tr
}

func do(t *testing.T, h http.Handler, method, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth_PublicEvenWithToken(t *testing.T) {
	deps, _ := testDeps()
	deps.Token = "secret"
	w := do(t, NewHandler(deps), http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuth(t *testing.T) {
	deps, _ := testDeps()
	deps.Token = "secret"
	h := NewHandler(deps)

	w := do(t, h, http.MethodGet, "/graph/stats", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodGet, "/graph/stats", nil, "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodGet, "/graph/stats", nil, "secret")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTranslateCreate(t *testing.T) {
	deps, tr := testDeps()
	h := NewHandler(deps)

	w := do(t, h, http.MethodPost, "/translate/create", TranslateRequest{Text: "hi", RootPath: "/vault", FilePath: "a.md"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp TranslateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, `CREATE (:Note {file_path: "a.md", text: "hi"})`, resp.Cypher)
	assert.Equal(t, "/vault", tr.lastRoot)
}

func TestTranslate_Validation(t *testing.T) {
	deps, _ := testDeps()
	h := NewHandler(deps)

	w := do(t, h, http.MethodPost, "/translate/create", TranslateRequest{FilePath: "a.md"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodPost, "/translate/create", TranslateRequest{Text: "x"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/translate/create", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTranslateUpdate_ExportsGraphWhenDataMissing(t *testing.T) {
	deps, tr := testDeps()
	h := NewHandler(deps)

	w := do(t, h, http.MethodPost, "/translate/update", TranslateRequest{Text: "x", RootPath: "/vault", FilePath: "b.md"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, `CREATE (:Note {file_path: "a.md"})`, tr.lastData)

	w = do(t, h, http.MethodPost, "/translate/update", TranslateRequest{Text: "x", FilePath: "b.md", Data: "given"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "given", tr.lastData)
}

func TestTranslate_ErrorMapping(t *testing.T) {
	deps, tr := testDeps()
	h := NewHandler(deps)

	tr.err = fmt.Errorf("wrap: %w", prompts.ErrMissingRole)
	w := do(t, h, http.MethodPost, "/translate/create", TranslateRequest{Text: "x", FilePath: "a.md"}, "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	tr.err = errors.New("model down")
	w = do(t, h, http.MethodPost, "/translate/create", TranslateRequest{Text: "x", FilePath: "a.md"}, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "model down")
}

func TestAuxiliaryEndpoints(t *testing.T) {
	deps, _ := testDeps()
	h := NewHandler(deps)

	tests := []struct {
		path string
		body AuxRequest
		want string
	}{
		{"/questions", AuxRequest{Text: "cells"}, "Q: cells"},
		{"/explain", AuxRequest{Code: "x++"}, "explained x++"},
		{"/optimize", AuxRequest{Code: "x++"}, "optimized x++"},
		{"/debug", AuxRequest{Code: "x++"}, "debugged x++"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			w := do(t, h, http.MethodPost, tc.path, tc.body, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			var resp AuxResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tc.want, resp.Result)
		})
	}

	w := do(t, h, http.MethodPost, "/explain", AuxRequest{Text: "wrong field"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGraphStats(t *testing.T) {
	deps, _ := testDeps()
	w := do(t, NewHandler(deps), http.MethodGet, "/graph/stats", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 3, resp.Nodes)
	assert.EqualValues(t, 2, resp.Files)
	assert.Equal(t, []CountDTO{{Name: "Note", Count: 2}, {Name: "Tag", Count: 1}}, resp.Labels)
}

func TestRuns(t *testing.T) {
	deps, _ := testDeps()
	h := NewHandler(deps)

	w := do(t, h, http.MethodGet, "/runs?limit=1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Runs []RunDTO `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, "run-2", list.Runs[0].ID)
	assert.InDelta(t, 90.0, list.Runs[0].ElapsedSeconds, 1e-9)

	w = do(t, h, http.MethodGet, "/runs/run-2", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	var run RunDTO
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	require.Len(t, run.Errors, 1)
	assert.Equal(t, "graph_write", run.Errors[0].Phase)

	w = do(t, h, http.MethodGet, "/runs/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSearch(t *testing.T) {
	deps, _ := testDeps()
	h := NewHandler(deps)
	search := deps.Search.(*fakeSearch)

	w := do(t, h, http.MethodGet, "/search", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, http.MethodGet, "/search?q=hello&limit=500", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, maxSearchLimit, search.topK)

	var resp struct {
		Matches []MatchDTO `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Matches, 1)
	assert.Equal(t, "/vault/a.md", resp.Matches[0].SourceID)
}

func TestOptionalDepsUnavailable(t *testing.T) {
	h := NewHandler(Deps{Translator: &fakeTranslator{}})

	for _, path := range []string{"/graph/stats", "/runs", "/runs/x", "/search?q=a"} {
		w := do(t, h, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
	}
}

package retrieval

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type qdrantCall struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeQdrant records requests and answers each path from routes.
func fakeQdrant(t *testing.T, routes map[string]func(w http.ResponseWriter)) (*QdrantStore, *[]qdrantCall) {
	t.Helper()
	var (
		mu    sync.Mutex
		calls []qdrantCall
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := qdrantCall{Method: r.Method, Path: r.URL.Path}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&c.Body)
		}
		mu.Lock()
		calls = append(calls, c)
		mu.Unlock()

		if h, ok := routes[r.Method+" "+r.URL.Path]; ok {
			h(w)
			return
		}
		writeEnvelope(w, true)
	}))
	t.Cleanup(srv.Close)

	s, err := NewQdrantStore(QdrantConfig{URL: srv.URL + "/", Prefix: "odin_", VectorDim: 2})
	require.NoError(t, err)
	return s, &calls
}

func writeEnvelope(w http.ResponseWriter, result any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "status": "ok", "time": 0.001})
}

func notFound(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte(`{"status":{"error":"Not found: Collection doesn't exist"}}`))
}

func TestNewQdrantStore_Validates(t *testing.T) {
	_, err := NewQdrantStore(QdrantConfig{VectorDim: 3})
	assert.Error(t, err)
	_, err = NewQdrantStore(QdrantConfig{URL: "http://localhost:6333"})
	assert.Error(t, err)
}

func TestQdrant_CreateCollectionWhenMissing(t *testing.T) {
	s, calls := fakeQdrant(t, map[string]func(http.ResponseWriter){
		"GET /collections/odin_notes": notFound,
	})

	require.NoError(t, s.CreateCollection(context.Background(), "notes"))

	require.Len(t, *calls, 2)
	put := (*calls)[1]
	assert.Equal(t, http.MethodPut, put.Method)
	assert.Equal(t, "/collections/odin_notes", put.Path)
	vectors := put.Body["vectors"].(map[string]any)
	assert.Equal(t, float64(2), vectors["size"])
	assert.Equal(t, "Cosine", vectors["distance"])
}

func TestQdrant_CreateCollectionExisting(t *testing.T) {
	s, calls := fakeQdrant(t, nil)
	require.NoError(t, s.CreateCollection(context.Background(), "notes"))
	assert.Len(t, *calls, 1)
}

func TestQdrant_UpsertRequestShape(t *testing.T) {
	s, calls := fakeQdrant(t, nil)

	err := s.Upsert(context.Background(), "notes", []Record{
		{ID: "r1", SourceID: "a.md", ChunkIndex: 2, TextChunk: "hello", Embedding: []float32{1, 0}, Tags: `["x"]`},
	})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	c := (*calls)[0]
	assert.Equal(t, http.MethodPut, c.Method)
	assert.Equal(t, "/collections/odin_notes/points", c.Path)
	points := c.Body["points"].([]any)
	require.Len(t, points, 1)
	p := points[0].(map[string]any)
	assert.Equal(t, pointID("notes", "r1"), p["id"])
	payload := p["payload"].(map[string]any)
	assert.Equal(t, "r1", payload[payloadRecordIDKey])
	assert.Equal(t, "a.md", payload[payloadSourceIDKey])
	assert.Equal(t, float64(2), payload[payloadChunkIndexKey])
	assert.Equal(t, `["x"]`, payload[payloadTagsKey])
}

func TestQdrant_UpsertDimensionMismatch(t *testing.T) {
	s, calls := fakeQdrant(t, nil)
	err := s.Upsert(context.Background(), "notes", []Record{{ID: "r1", Embedding: []float32{1, 2, 3}}})

	var qe *QdrantError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, QdrantErrorValidation, qe.Code)
	assert.Empty(t, *calls)
}

func TestQdrant_SearchDecodesPayload(t *testing.T) {
	s, _ := fakeQdrant(t, map[string]func(http.ResponseWriter){
		"POST /collections/odin_notes/points/search": func(w http.ResponseWriter) {
			writeEnvelope(w, []map[string]any{
				{"id": "p2", "score": 0.4, "payload": map[string]any{payloadRecordIDKey: "r2", payloadSourceIDKey: "b.md", payloadTextKey: "two"}},
				{"id": "p1", "score": 0.9, "payload": map[string]any{payloadRecordIDKey: "r1", payloadSourceIDKey: "a.md", payloadTextKey: "one", payloadChunkIndexKey: 1}},
				{"id": "p3", "score": 0.3, "payload": map[string]any{}},
			})
		},
	})

	results, err := s.Search(context.Background(), "notes", []float32{1, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "r1", results[0].ID)
	assert.Equal(t, 1, results[0].ChunkIndex)
	assert.Equal(t, "one", results[0].TextChunk)
	assert.Equal(t, "r2", results[1].ID)
}

func TestQdrant_MissingCollectionSentinel(t *testing.T) {
	s, _ := fakeQdrant(t, map[string]func(http.ResponseWriter){
		"POST /collections/odin_notes/points/count": notFound,
	})
	_, err := s.Count(context.Background(), "notes")
	assert.True(t, errors.Is(err, ErrCollectionNotFound))
}

func TestQdrant_DeleteSourceUsesFilter(t *testing.T) {
	s, calls := fakeQdrant(t, nil)
	require.NoError(t, s.DeleteSource(context.Background(), "notes", "a.md"))

	c := (*calls)[0]
	assert.Equal(t, "/collections/odin_notes/points/delete", c.Path)
	must := c.Body["filter"].(map[string]any)["must"].([]any)
	cond := must[0].(map[string]any)
	assert.Equal(t, payloadSourceIDKey, cond["key"])
	assert.Equal(t, "a.md", cond["match"].(map[string]any)["value"])
}

func TestQdrant_DeleteAllOnlyPrefixed(t *testing.T) {
	s, calls := fakeQdrant(t, map[string]func(http.ResponseWriter){
		"GET /collections": func(w http.ResponseWriter) {
			writeEnvelope(w, map[string]any{"collections": []map[string]any{{"name": "odin_notes"}, {"name": "someone_else"}}})
		},
	})
	require.NoError(t, s.DeleteAll(context.Background()))

	var deleted []string
	for _, c := range *calls {
		if c.Method == http.MethodDelete {
			deleted = append(deleted, c.Path)
		}
	}
	assert.Equal(t, []string{"/collections/odin_notes"}, deleted)
}

func TestQdrant_ErrorStatus(t *testing.T) {
	s, _ := fakeQdrant(t, map[string]func(http.ResponseWriter){
		"PUT /collections/odin_notes/points": func(w http.ResponseWriter) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"status":{"error":"bad vector"}}`))
		},
	})
	err := s.Upsert(context.Background(), "notes", []Record{{ID: "r", Embedding: []float32{1, 1}}})

	var qe *QdrantError
	require.True(t, errors.As(err, &qe))
	assert.Equal(t, http.StatusBadRequest, qe.StatusCode)
	assert.Contains(t, qe.Error(), "bad vector")
}

func TestParseEnvelopeStatus(t *testing.T) {
	assert.Equal(t, "", parseEnvelopeStatus(json.RawMessage(`"ok"`)))
	assert.Equal(t, "", parseEnvelopeStatus(nil))
	assert.Equal(t, "boom", parseEnvelopeStatus(json.RawMessage(`{"error":"boom"}`)))
	assert.Equal(t, `qdrant status="pending"`, parseEnvelopeStatus(json.RawMessage(`"pending"`)))
}

package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	payloadRecordIDKey   = "record_id"
	payloadSourceIDKey   = "source_id"
	payloadChunkIndexKey = "chunk_index"
	payloadTextKey       = "text"
	payloadCreatedAtKey  = "created_at"
	payloadTagsKey       = "tags"
	maxErrorBodyBytes    = 1024
)

var pointIDNamespace = uuid.MustParse("6b0f3a5e-9d2c-4c1e-8a47-1f6e2d8c9b30")

var _ VectorStore = (*QdrantStore)(nil)

// QdrantConfig configures a QdrantStore. Collections are created as
// Prefix+name so DeleteAll only touches collections this store owns.
type QdrantConfig struct {
	URL       string
	Prefix    string
	VectorDim int
	Timeout   time.Duration
}

// QdrantStore implements VectorStore over the Qdrant HTTP API.
type QdrantStore struct {
	cfg     QdrantConfig
	baseURL string
	http    *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
	Vector  []float32       `json:"vector"`
}

// NewQdrantStore returns a store for the Qdrant instance at cfg.URL.
func NewQdrantStore(cfg QdrantConfig) (*QdrantStore, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if cfg.VectorDim <= 0 {
		return nil, fmt.Errorf("qdrant vector dimension must be positive, got %d", cfg.VectorDim)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &QdrantStore{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// CreateCollection creates the collection with cosine distance unless it
// already exists.
func (s *QdrantStore) CreateCollection(ctx context.Context, name string) error {
	const op = "create_collection"
	err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath(name, ""), nil, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrCollectionNotFound) {
		return err
	}
	req := map[string]any{
		"vectors": map[string]any{"size": s.cfg.VectorDim, "distance": "Cosine"},
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath(name, ""), req, nil)
}

func (s *QdrantStore) Upsert(ctx context.Context, collection string, records []Record) error {
	const op = "upsert"
	if len(records) == 0 {
		return nil
	}
	points := make([]map[string]any, 0, len(records))
	for _, r := range records {
		if strings.TrimSpace(r.ID) == "" {
			return qdrantErr(op, QdrantErrorValidation, "record id is required", nil)
		}
		if len(r.Embedding) != s.cfg.VectorDim {
			return qdrantErr(op, QdrantErrorValidation,
				fmt.Sprintf("record %q dimension mismatch: expected=%d got=%d", r.ID, s.cfg.VectorDim, len(r.Embedding)), nil)
		}
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		tags := r.Tags
		if tags == "" {
			tags = "[]"
		}
		points = append(points, map[string]any{
			"id":     pointID(collection, r.ID),
			"vector": r.Embedding,
			"payload": map[string]any{
				payloadRecordIDKey:   r.ID,
				payloadSourceIDKey:   r.SourceID,
				payloadChunkIndexKey: r.ChunkIndex,
				payloadTextKey:       r.TextChunk,
				payloadCreatedAtKey:  createdAt.UTC().Format(time.RFC3339),
				payloadTagsKey:       tags,
			},
		})
	}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath(collection, "/points?wait=true"),
		map[string]any{"points": points}, nil)
}

func (s *QdrantStore) DeleteSource(ctx context.Context, collection, sourceID string) error {
	req := map[string]any{"filter": sourceFilter(sourceID)}
	err := s.doJSON(ctx, "delete_source", http.MethodPost,
		s.collectionPath(collection, "/points/delete?wait=true"), req, nil)
	if errors.Is(err, ErrCollectionNotFound) {
		return nil
	}
	return err
}

func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, topK int) ([]ScoredRecord, error) {
	const op = "search"
	if topK <= 0 || norm(vector) == 0 {
		return nil, nil
	}
	if len(vector) != s.cfg.VectorDim {
		return nil, qdrantErr(op, QdrantErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", s.cfg.VectorDim, len(vector)), nil)
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
		"with_vector":  true,
	}
	var points []qdrantPoint
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath(collection, "/points/search"), req, &points); err != nil {
		return nil, err
	}

	out := make([]ScoredRecord, 0, len(points))
	for _, p := range points {
		r := recordFromPayload(p.Payload)
		if r.ID == "" {
			continue
		}
		r.Embedding = p.Vector
		out = append(out, ScoredRecord{Record: r, Score: float32(p.Score)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (s *QdrantStore) Count(ctx context.Context, collection string) (int, error) {
	var result struct {
		Count int `json:"count"`
	}
	err := s.doJSON(ctx, "count", http.MethodPost, s.collectionPath(collection, "/points/count"),
		map[string]any{"exact": true}, &result)
	if err != nil {
		return 0, err
	}
	return result.Count, nil
}

// DeleteAll drops every collection carrying the configured prefix.
func (s *QdrantStore) DeleteAll(ctx context.Context) error {
	var result struct {
		Collections []struct {
			Name string `json:"name"`
		} `json:"collections"`
	}
	if err := s.doJSON(ctx, "list_collections", http.MethodGet, "/collections", nil, &result); err != nil {
		return err
	}
	for _, c := range result.Collections {
		if !strings.HasPrefix(c.Name, s.cfg.Prefix) {
			continue
		}
		if err := s.doJSON(ctx, "delete_collection", http.MethodDelete, "/collections/"+c.Name, nil, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *QdrantStore) collectionPath(name, suffix string) string {
	return "/collections/" + s.cfg.Prefix + name + suffix
}

func (s *QdrantStore) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return qdrantErr(op, QdrantErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return qdrantErr(op, QdrantErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*maxErrorBodyBytes))
	if err != nil {
		return qdrantErr(op, QdrantErrorDecodeFailed, "read response failed", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return &QdrantError{
			Code:       QdrantErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    truncateBody(raw),
			Cause:      ErrCollectionNotFound,
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &QdrantError{
			Code:       QdrantErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return qdrantErr(op, QdrantErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if msg := parseEnvelopeStatus(envelope.Status); msg != "" {
		return &QdrantError{Code: QdrantErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return qdrantErr(op, QdrantErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return qdrantErr(op, QdrantErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return qdrantErr(op, QdrantErrorTimeout, message, err)
	}
	return qdrantErr(op, QdrantErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var statusString string
	if err := json.Unmarshal(raw, &statusString); err == nil {
		if strings.EqualFold(statusString, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", statusString)
	}
	var statusObject struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &statusObject); err == nil && strings.TrimSpace(statusObject.Error) != "" {
		return strings.TrimSpace(statusObject.Error)
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

// pointID maps a record ID onto the UUID point id Qdrant requires.
func pointID(collection, recordID string) string {
	return uuid.NewSHA1(pointIDNamespace, []byte(collection+"|"+recordID)).String()
}

func sourceFilter(sourceID string) map[string]any {
	return map[string]any{
		"must": []any{
			map[string]any{"key": payloadSourceIDKey, "match": map[string]any{"value": sourceID}},
		},
	}
}

func recordFromPayload(p map[string]any) Record {
	var r Record
	r.ID, _ = p[payloadRecordIDKey].(string)
	r.SourceID, _ = p[payloadSourceIDKey].(string)
	r.TextChunk, _ = p[payloadTextKey].(string)
	r.Tags, _ = p[payloadTagsKey].(string)
	if f, ok := p[payloadChunkIndexKey].(float64); ok {
		r.ChunkIndex = int(f)
	}
	if s, ok := p[payloadCreatedAtKey].(string); ok {
		r.CreatedAt, _ = time.Parse(time.RFC3339, s)
	}
	return r
}

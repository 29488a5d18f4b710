package graph

import (
	"context"
	"fmt"
)

// Count is a named tally.
type Count struct {
	Name  string
	Count int64
}

// Stats summarizes the whole database.
type Stats struct {
	Nodes         int64
	Labels        []Count
	Relationships []Count
	// Files is the number of distinct file_path values on nodes.
	Files int64
}

const (
	nodeCountQuery  = `MATCH (n) RETURN count(n) AS node_count`
	labelCountQuery = `MATCH (n) UNWIND labels(n) AS label RETURN label, count(*) AS count ORDER BY count DESC`
	relCountQuery   = `MATCH ()-[r]->() RETURN type(r) AS rel_type, count(*) AS count ORDER BY count DESC`
	fileCountQuery  = `MATCH (n) WHERE n.file_path IS NOT NULL RETURN count(DISTINCT n.file_path) AS file_count`
)

// Stats collects node, label, relationship and file counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats

	rows, err := s.RunSelect(ctx, nodeCountQuery, nil)
	if err != nil {
		return st, fmt.Errorf("counting nodes: %w", err)
	}
	st.Nodes = firstInt(rows, "node_count")

	rows, err = s.RunSelect(ctx, labelCountQuery, nil)
	if err != nil {
		return st, fmt.Errorf("counting labels: %w", err)
	}
	st.Labels = counts(rows, "label")

	rows, err = s.RunSelect(ctx, relCountQuery, nil)
	if err != nil {
		return st, fmt.Errorf("counting relationships: %w", err)
	}
	st.Relationships = counts(rows, "rel_type")

	rows, err = s.RunSelect(ctx, fileCountQuery, nil)
	if err != nil {
		return st, fmt.Errorf("counting files: %w", err)
	}
	st.Files = firstInt(rows, "file_count")

	return st, nil
}

func firstInt(rows []map[string]any, key string) int64 {
	if len(rows) == 0 {
		return 0
	}
	return toInt64(rows[0][key])
}

func counts(rows []map[string]any, nameKey string) []Count {
	out := make([]Count, 0, len(rows))
	for _, r := range rows {
		name, _ := r[nameKey].(string)
		out = append(out, Count{Name: name, Count: toInt64(r["count"])})
	}
	return out
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	}
	return 0
}

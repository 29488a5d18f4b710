package graph

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Node is an exported graph node.
type Node struct {
	ID     string
	Labels []string
	Props  map[string]any
}

// Relationship is an exported directed edge.
type Relationship struct {
	Type  string
	Start string
	End   string
	Props map[string]any
}

// Snapshot is the part of the graph that belongs to one vault root.
type Snapshot struct {
	Nodes         []Node
	Relationships []Relationship
}

const (
	exportNodesQuery = `MATCH (n) WHERE n.repo_path = $root RETURN n`
	exportRelsQuery  = `MATCH (a)-[r]->(b) WHERE a.repo_path = $root AND b.repo_path = $root RETURN r`
)

// Export reads every node whose repo_path is root and the relationships
// between them.
func (s *Store) Export(ctx context.Context, root string) (Snapshot, error) {
	params := map[string]any{"root": root}

	nodeRows, err := s.RunSelect(ctx, exportNodesQuery, params)
	if err != nil {
		return Snapshot{}, fmt.Errorf("exporting nodes: %w", err)
	}
	relRows, err := s.RunSelect(ctx, exportRelsQuery, params)
	if err != nil {
		return Snapshot{}, fmt.Errorf("exporting relationships: %w", err)
	}

	var snap Snapshot
	for _, row := range nodeRows {
		if n, ok := row["n"].(neo4j.Node); ok {
			snap.Nodes = append(snap.Nodes, Node{ID: n.ElementId, Labels: n.Labels, Props: n.Props})
		}
	}
	for _, row := range relRows {
		if r, ok := row["r"].(neo4j.Relationship); ok {
			snap.Relationships = append(snap.Relationships, Relationship{
				Type:  r.Type,
				Start: r.StartElementId,
				End:   r.EndElementId,
				Props: r.Props,
			})
		}
	}
	return snap, nil
}

// ExportForRoot returns the snapshot for root rendered as text for a prompt.
func (s *Store) ExportForRoot(ctx context.Context, root string) (string, error) {
	snap, err := s.Export(ctx, root)
	if err != nil {
		return "", err
	}
	return FormatSnapshot(snap), nil
}

// FormatSnapshot renders nodes and relationships in Cypher pattern syntax,
// one per line. Node variables are n0, n1, ... in input order; relationships
// whose endpoints are not in the snapshot are skipped.
func FormatSnapshot(snap Snapshot) string {
	if len(snap.Nodes) == 0 {
		return "(empty graph)"
	}

	vars := make(map[string]string, len(snap.Nodes))
	var sb strings.Builder
	sb.WriteString("Nodes:\n")
	for i, n := range snap.Nodes {
		v := "n" + strconv.Itoa(i)
		vars[n.ID] = v
		sb.WriteString("(")
		sb.WriteString(v)
		for _, l := range n.Labels {
			sb.WriteString(":")
			sb.WriteString(l)
		}
		if len(n.Props) > 0 {
			sb.WriteString(" ")
			sb.WriteString(formatProps(n.Props))
		}
		sb.WriteString(")\n")
	}

	var rels []string
	for _, r := range snap.Relationships {
		from, okFrom := vars[r.Start]
		to, okTo := vars[r.End]
		if !okFrom || !okTo {
			continue
		}
		line := "(" + from + ")-[:" + r.Type
		if len(r.Props) > 0 {
			line += " " + formatProps(r.Props)
		}
		rels = append(rels, line+"]->("+to+")")
	}
	if len(rels) > 0 {
		sb.WriteString("Relationships:\n")
		sb.WriteString(strings.Join(rels, "\n"))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatProps(props map[string]any) string {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + formatValue(props[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			parts[i] = formatValue(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return strconv.Quote(fmt.Sprint(x))
	}
}

package cypher

import (
	"regexp"
	"strings"
)

// Report describes what Repair did to a statement batch.
type Report struct {
	// Text is the repaired batch, one statement per line.
	Text string
	// Dropped holds lines removed by the create/match guard, in input order.
	Dropped []string
	// Rewritten holds the original form of lines changed by a rewrite rule.
	Rewritten []string
	// InlineNodes holds relationship lines that create nodes inline. They are
	// passed through unchanged.
	InlineNodes []string
}

// lineState is shared by all line rules for one batch.
type lineState struct {
	sawCreate bool
}

type verdict int

const (
	keep verdict = iota
	drop
	next
)

// lineRule inspects one trimmed line. It may rewrite the line and returns
// keep or drop to stop evaluation, or next to fall through to the next rule.
type lineRule struct {
	name  string
	apply func(st *lineState, rep *Report, line string) (string, verdict)
}

const (
	onCreatePrefix = "ON CREATE"
	commentPrefix  = "//"
)

var (
	datetimeCallRe = regexp.MustCompile(`(?i)\bdatetime\(\s*["']([^"']+)["']\s*\)`)
	inlineNodeRe   = regexp.MustCompile(`\([^:)]+:[^)]+\{[^}]+\}\)`)
	relationArrows = []string{"->", "<-"}
)

var repairRules = []lineRule{
	{name: "temporal-literal", apply: normalizeTemporal},
	{name: "create-match-order", apply: guardCreateMatch},
	{name: "assignment", apply: keepAssignments},
	{name: "inline-node", apply: detectInlineNodes},
}

// Repair normalizes an extracted statement batch. It never fails and never
// reorders lines.
func Repair(text string) string {
	return RepairWithReport(text).Text
}

// RepairWithReport is Repair that also returns what was dropped, rewritten
// or flagged.
func RepairWithReport(text string) Report {
	var (
		st   lineState
		rep  Report
		kept []string
	)

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}

		v := next
		for _, r := range repairRules {
			line, v = r.apply(&st, &rep, line)
			if v != next {
				break
			}
		}
		if v == drop {
			continue
		}
		kept = append(kept, line)
	}

	rep.Text = strings.Join(kept, "\n")
	return rep
}

func normalizeTemporal(_ *lineState, rep *Report, line string) (string, verdict) {
	if !datetimeCallRe.MatchString(line) {
		return line, next
	}
	rewritten := datetimeCallRe.ReplaceAllString(line, `"$1"`)
	if rewritten != line {
		rep.Rewritten = append(rep.Rewritten, line)
	}
	return rewritten, next
}

// guardCreateMatch drops MATCH clauses once a CREATE has been seen: in a
// single update query the store cannot match what the same batch creates.
func guardCreateMatch(st *lineState, rep *Report, line string) (string, verdict) {
	upper := strings.ToUpper(line)
	switch {
	case strings.HasPrefix(upper, "CREATE"):
		st.sawCreate = true
		return line, keep
	case strings.HasPrefix(upper, "MERGE"):
		return line, keep
	case strings.HasPrefix(upper, "MATCH"):
		if st.sawCreate {
			rep.Dropped = append(rep.Dropped, line)
			return line, drop
		}
		return line, keep
	}
	return line, next
}

func keepAssignments(_ *lineState, _ *Report, line string) (string, verdict) {
	upper := strings.ToUpper(line)
	if strings.HasPrefix(upper, "SET") || strings.HasPrefix(upper, onCreatePrefix) {
		return line, keep
	}
	return line, next
}

// detectInlineNodes records relationship lines that declare a labeled node
// with properties inline. No rewrite is applied.
func detectInlineNodes(_ *lineState, rep *Report, line string) (string, verdict) {
	if isRelationship(line) && inlineNodeRe.MatchString(line) {
		rep.InlineNodes = append(rep.InlineNodes, line)
	}
	return line, keep
}

func isRelationship(line string) bool {
	if !strings.Contains(line, ":") {
		return false
	}
	for _, arrow := range relationArrows {
		if strings.Contains(line, arrow) {
			return true
		}
	}
	return false
}

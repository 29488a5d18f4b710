// Package cypher isolates Cypher statements from free-form model output and
// repairs the generation mistakes the graph store is known to reject.
package cypher

import (
	"regexp"
	"strings"
)

// ExtractRule is one row of the extraction decision table. Apply returns the
// extracted payload and true when the rule matches.
type ExtractRule struct {
	Name  string
	Apply func(response string) (string, bool)
}

var (
	fencedCypherRe  = regexp.MustCompile("(?is)```cypher\\s*\\n(.*?)```")
	fencedCQLRe     = regexp.MustCompile("(?is)```cql\\s*\\n(.*?)```")
	fencedGenericRe = regexp.MustCompile("(?is)```\\s*\\n((?:CREATE|MERGE|MATCH|DELETE|SET|RETURN|WITH|UNWIND).*?)```")
	anyFenceRe      = regexp.MustCompile("(?s)```.*?```")
	lineCommentRe   = regexp.MustCompile(`(?m)^\s*//.*$`)

	headingMarkers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:(?:Cypher\s+)?Quer(?:y|ies)|Code):\s*\n`),
		regexp.MustCompile(`(?i)<cypher>\s*`),
	}
	closingTagRe = regexp.MustCompile(`(?i)\s*</cypher>\s*$`)

	// Leading keywords accepted for unfenced payloads. WITH and UNWIND are
	// only trusted inside a fence.
	leadingKeywordRe = regexp.MustCompile(`(?i)^\s*(CREATE|MERGE|MATCH|DELETE|SET|RETURN)`)
)

// ExtractRules is the ordered decision table used by Extract. The first rule
// that matches wins; later rules are not attempted.
var ExtractRules = []ExtractRule{
	{Name: "fenced-cypher", Apply: fencedBlock(fencedCypherRe)},
	{Name: "fenced-cql", Apply: fencedBlock(fencedCQLRe)},
	{Name: "fenced-keyword", Apply: fencedBlock(fencedGenericRe)},
	{Name: "heading-marker", Apply: afterHeading},
	{Name: "leading-keyword", Apply: leadingKeyword},
}

// Extract returns the best-effort Cypher payload contained in a model
// response. When nothing structured can be isolated the response is returned
// unchanged so the store surfaces the failure on execution.
func Extract(response string) string {
	out, _ := ExtractWithRule(response)
	return out
}

// ExtractWithRule is Extract that also reports which rule fired. The rule
// name is empty when the identity fallback was used.
func ExtractWithRule(response string) (string, string) {
	for _, r := range ExtractRules {
		if out, ok := r.Apply(response); ok {
			return out, r.Name
		}
	}
	return response, ""
}

func fencedBlock(re *regexp.Regexp) func(string) (string, bool) {
	return func(response string) (string, bool) {
		m := re.FindStringSubmatch(response)
		if m == nil {
			return "", false
		}
		return stripComments(m[1]), true
	}
}

func afterHeading(response string) (string, bool) {
	for _, marker := range headingMarkers {
		parts := marker.Split(response, -1)
		if len(parts) < 2 {
			continue
		}
		tail := strings.TrimSpace(parts[len(parts)-1])
		if !leadingKeywordRe.MatchString(tail) {
			continue
		}
		tail = anyFenceRe.ReplaceAllString(tail, "")
		tail = closingTagRe.ReplaceAllString(tail, "")
		return strings.TrimSpace(tail), true
	}
	return "", false
}

func leadingKeyword(response string) (string, bool) {
	if !leadingKeywordRe.MatchString(response) {
		return "", false
	}
	return strings.TrimSpace(response), true
}

func stripComments(s string) string {
	s = strings.TrimSpace(s)
	s = lineCommentRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
